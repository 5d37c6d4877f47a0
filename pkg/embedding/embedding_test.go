package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"ai-platform-be/internal/pkg/apperror"
	"ai-platform-be/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestMockProviderDeterministic(t *testing.T) {
	p := NewMockProvider(0)
	assert.Equal(t, DefaultDimension, p.Dimension())

	a, err := p.Embed(context.Background(), "Vector databases store embeddings")
	require.NoError(t, err)
	b, err := p.Embed(context.Background(), "Vector databases store embeddings")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, DefaultDimension)
	assert.InDelta(t, 1.0, cosine(a, a), 1e-6)
}

func TestMockProviderSimilarity(t *testing.T) {
	p := NewMockProvider(256)
	ctx := context.Background()

	vecs, err := p.EmbedBatch(ctx, []string{
		"how do vector databases index embeddings",
		"vector databases index embeddings quickly",
		"bananas are yellow fruit",
	})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	assert.Greater(t, cosine(vecs[0], vecs[1]), cosine(vecs[0], vecs[2]))
}

func TestNormalizeVector(t *testing.T) {
	v := normalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := normalizeVector([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, zero)
}

type countingProvider struct {
	*MockProvider
	calls  int32
	inputs int32
}

func (c *countingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	atomic.AddInt32(&c.calls, 1)
	atomic.AddInt32(&c.inputs, int32(len(texts)))
	return c.MockProvider.EmbedBatch(ctx, texts)
}

func TestCachedProviderSplitsHitsAndMisses(t *testing.T) {
	inner := &countingProvider{MockProvider: NewMockProvider(32)}
	p := NewCachedProvider(inner, cache.NewMemoryStore("emb", time.Minute), time.Minute)
	ctx := context.Background()

	first, err := p.EmbedBatch(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, inner.inputs)

	second, err := p.EmbedBatch(ctx, []string{"beta", "gamma", "alpha"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, inner.calls)
	assert.EqualValues(t, 3, inner.inputs, "only gamma goes upstream")

	assert.Equal(t, first[1], second[0])
	assert.Equal(t, first[0], second[2])

	single, err := p.Embed(ctx, "gamma")
	require.NoError(t, err)
	assert.Equal(t, second[1], single)
	assert.EqualValues(t, 2, inner.calls)
}

func TestCachedProviderKeyedByProviderAndDimension(t *testing.T) {
	store := cache.NewMemoryStore("emb", time.Minute)
	ctx := context.Background()

	small := &countingProvider{MockProvider: NewMockProvider(32)}
	_, err := NewCachedProvider(small, store, time.Minute).Embed(ctx, "alpha")
	require.NoError(t, err)

	large := &countingProvider{MockProvider: NewMockProvider(64)}
	vec, err := NewCachedProvider(large, store, time.Minute).Embed(ctx, "alpha")
	require.NoError(t, err)
	assert.Len(t, vec, 64)
	assert.EqualValues(t, 1, large.calls, "a shared store never serves another dimension")
}

func TestGeminiEmbedBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/text-embedding-004:batchEmbedContents", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-goog-api-key"))

		var req batchEmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Requests, 2)
		assert.Equal(t, "models/text-embedding-004", req.Requests[0].Model)
		assert.Equal(t, geminiTaskDocument, req.Requests[0].TaskType)

		fmt.Fprint(w, `{"embeddings":[{"values":[1,0]},{"values":[0,1]}]}`)
	}))
	defer srv.Close()

	p := NewGeminiProvider("key", srv.URL, "")
	vecs, err := p.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
}

func TestGeminiMissingKey(t *testing.T) {
	_, err := NewGeminiProvider("", "", "").Embed(context.Background(), "x")
	assert.True(t, errors.Is(err, apperror.ErrProviderUnavailable))
}

func TestOpenAIEmbedOrdersByIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}]}`)
	}))
	defer srv.Close()

	p := NewOpenAIProvider("key", srv.URL, "")
	vecs, err := p.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vecs)
}

func TestOpenAIEmbedCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"index":0,"embedding":[1,0]}]}`)
	}))
	defer srv.Close()

	_, err := NewOpenAIProvider("key", srv.URL, "").EmbedBatch(context.Background(), []string{"a", "b"})
	assert.True(t, errors.Is(err, apperror.ErrProviderUnavailable))
}

func TestOllamaEmbedBatchNormalizesInOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaEmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		switch req.Prompt {
		case "x":
			fmt.Fprint(w, `{"embedding":[3,4]}`)
		default:
			fmt.Fprint(w, `{"embedding":[0,2]}`)
		}
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "", 2)
	vecs, err := p.EmbedBatch(context.Background(), []string{"x", "y", "x"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.InDelta(t, 0.6, vecs[0][0], 1e-6)
	assert.InDelta(t, 1.0, vecs[1][1], 1e-6)
	assert.Equal(t, vecs[0], vecs[2])
}

func TestOllamaEmbedUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL, "", 2).EmbedBatch(context.Background(), []string{"a", "b"})
	assert.True(t, errors.Is(err, apperror.ErrProviderUnavailable))
}
