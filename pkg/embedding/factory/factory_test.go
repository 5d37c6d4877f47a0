package factory

import (
	"errors"
	"testing"
	"time"

	"ai-platform-be/internal/pkg/apperror"
	"ai-platform-be/pkg/cache"
	"ai-platform-be/pkg/embedding"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbeddingProvider(t *testing.T) {
	tests := []struct {
		key      string
		wantName string
		wantDim  int
	}{
		{"", "mock", 768},
		{"mock", "mock", 768},
		{"gemini", "gemini", 768},
		{"openai", "openai", 1536},
		{"ollama", "ollama", 768},
		{"jina", "jina", 768},
	}
	for _, tt := range tests {
		t.Run(tt.wantName+"/"+tt.key, func(t *testing.T) {
			p, err := NewEmbeddingProvider(Settings{Provider: tt.key, Dimension: 768})
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, p.Name())
			assert.Equal(t, tt.wantDim, p.Dimension())
		})
	}
}

func TestNewEmbeddingProviderUnknown(t *testing.T) {
	_, err := NewEmbeddingProvider(Settings{Provider: "word2vec"})
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestNewEmbeddingProviderCached(t *testing.T) {
	p, err := NewEmbeddingProvider(Settings{Cache: cache.NewMemoryStore("emb", time.Minute), CacheTTL: time.Minute})
	require.NoError(t, err)
	_, ok := p.(*embedding.CachedProvider)
	assert.True(t, ok)
}
