package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RAG_CHUNK_SIZE", "")
	t.Setenv("LLM_TEMPERATURE", "")

	cfg := Load()
	assert.Equal(t, 1000, cfg.Rag.ChunkSize)
	assert.Equal(t, 200, cfg.Rag.ChunkOverlap)
	assert.Equal(t, 3600, cfg.Rag.CacheTTLSeconds)
	assert.InDelta(t, 0.7, cfg.Ai.Temperature, 1e-9)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("VECTOR_STORE", "PgVector")
	t.Setenv("RATE_LIMIT_REQUESTS", "5")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("AUTH_DISABLED", "true")
	t.Setenv("EMBEDDING_DIMENSION", "not-a-number")

	cfg := Load()
	assert.Equal(t, "pgvector", cfg.VectorStore.Backend)
	assert.Equal(t, 5, cfg.RateLimit.Requests)
	assert.InDelta(t, 0.2, cfg.Ai.Temperature, 1e-9)
	assert.True(t, cfg.App.AuthDisabled)
	assert.Equal(t, 768, cfg.Ai.EmbeddingDimension)
}
