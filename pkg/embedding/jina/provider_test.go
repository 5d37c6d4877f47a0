package jina

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"ai-platform-be/internal/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJinaEmbedBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"data":[{"object":"embedding","index":1,"embedding":[0.5]},{"object":"embedding","index":0,"embedding":[0.25]}]}`)
	}))
	defer srv.Close()

	p := NewJinaProvider("key", srv.URL)
	assert.Equal(t, 768, p.Dimension())

	vecs, err := p.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.25}, {0.5}}, vecs)
}

func TestJinaAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"detail":"invalid key"}`)
	}))
	defer srv.Close()

	_, err := NewJinaProvider("bad", srv.URL).Embed(context.Background(), "a")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrProviderUnavailable))
	assert.Contains(t, err.Error(), "401")
}

func TestJinaMissingKey(t *testing.T) {
	_, err := NewJinaProvider("", "").Embed(context.Background(), "a")
	assert.True(t, errors.Is(err, apperror.ErrProviderUnavailable))
}
