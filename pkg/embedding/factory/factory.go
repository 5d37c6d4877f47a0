package factory

import (
	"time"

	"ai-platform-be/internal/pkg/apperror"
	"ai-platform-be/pkg/cache"
	"ai-platform-be/pkg/embedding"
	"ai-platform-be/pkg/embedding/jina"
)

type Settings struct {
	Provider  string
	Dimension int

	GeminiAPIKey string
	OpenAIAPIKey string
	JinaAPIKey   string

	OllamaBaseURL string
	OllamaModel   string

	Cache    cache.Store
	CacheTTL time.Duration
}

// NewEmbeddingProvider builds the provider selected by s.Provider, wrapped
// with a vector cache when one is configured.
func NewEmbeddingProvider(s Settings) (embedding.EmbeddingProvider, error) {
	var p embedding.EmbeddingProvider
	switch s.Provider {
	case "", embedding.MockProviderName:
		p = embedding.NewMockProvider(s.Dimension)
	case embedding.GeminiProviderName:
		p = embedding.NewGeminiProvider(s.GeminiAPIKey, "", "")
	case embedding.OpenAIProviderName:
		p = embedding.NewOpenAIProvider(s.OpenAIAPIKey, "", "")
	case embedding.OllamaProviderName:
		p = embedding.NewOllamaProvider(s.OllamaBaseURL, s.OllamaModel, s.Dimension)
	case jina.ProviderName:
		p = jina.NewJinaProvider(s.JinaAPIKey, "")
	default:
		return nil, apperror.Newf(apperror.ErrValidation, "unsupported embedding provider: %s", s.Provider)
	}

	if s.Cache != nil {
		p = embedding.NewCachedProvider(p, s.Cache, s.CacheTTL)
	}
	return p, nil
}
