package factory

import (
	"context"
	"errors"
	"testing"
	"time"

	"ai-platform-be/internal/pkg/apperror"
	"ai-platform-be/pkg/cache"
	"ai-platform-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryKeys(t *testing.T) {
	r, err := NewRegistry(Settings{})
	require.NoError(t, err)

	assert.Equal(t, []string{"anthropic", "gemini", "huggingface", "mock", "ollama", "openai"}, r.Keys())
	assert.Equal(t, "mock", r.DefaultKey())

	for _, key := range r.Keys() {
		p, err := r.Get(key)
		require.NoError(t, err, key)
		assert.Equal(t, key, p.Name())
	}
}

func TestRegistryUnknownProvider(t *testing.T) {
	_, err := NewRegistry(Settings{DefaultProvider: "cohere"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	r, err := NewRegistry(Settings{})
	require.NoError(t, err)
	_, err = r.Get("cohere")
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestRegistryMissingCredentialsFailOnUse(t *testing.T) {
	r, err := NewRegistry(Settings{DefaultProvider: "openai"})
	require.NoError(t, err)

	_, err = r.Default().Generate(context.Background(), "hi")
	assert.True(t, errors.Is(err, apperror.ErrProviderUnavailable))
}

func TestRegistryWrapsWithCache(t *testing.T) {
	store := cache.NewMemoryStore("llm", time.Minute)
	r, err := NewRegistry(Settings{Cache: store, CacheTTL: time.Minute})
	require.NoError(t, err)

	p := r.Default()
	_, ok := p.(*llm.CachedProvider)
	require.True(t, ok)

	first, err := p.Generate(context.Background(), "same prompt")
	require.NoError(t, err)
	second, err := p.Generate(context.Background(), "same prompt")
	require.NoError(t, err)
	assert.Equal(t, first.Text, second.Text)
}
