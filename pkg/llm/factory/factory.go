package factory

import (
	"sort"
	"sync"
	"time"

	"ai-platform-be/internal/pkg/apperror"
	"ai-platform-be/pkg/cache"
	"ai-platform-be/pkg/llm"
	"ai-platform-be/pkg/llm/anthropic"
	"ai-platform-be/pkg/llm/gemini"
	"ai-platform-be/pkg/llm/mock"
	"ai-platform-be/pkg/llm/ollama"
	"ai-platform-be/pkg/llm/openai"
)

const ProviderHuggingFace = "huggingface"

// Settings carries what the concrete providers need. Empty keys are allowed;
// those providers fail on first use instead of at boot.
type Settings struct {
	DefaultProvider string

	GeminiAPIKey      string
	OpenAIAPIKey      string
	AnthropicAPIKey   string
	HuggingFaceAPIKey string

	OllamaBaseURL string
	OllamaModel   string

	MockLatency time.Duration

	// Cache, when set, memoizes complete answers of every provider.
	Cache    cache.Store
	CacheTTL time.Duration
}

// Registry resolves providers by their string key.
type Registry struct {
	mu              sync.RWMutex
	providers       map[string]llm.LLMProvider
	defaultProvider string
}

func NewRegistry(s Settings) (*Registry, error) {
	r := &Registry{providers: make(map[string]llm.LLMProvider)}

	r.Register(mock.ProviderName, mock.NewMockProvider(s.MockLatency))
	r.Register(gemini.ProviderName, gemini.NewGeminiProvider(s.GeminiAPIKey, "", ""))
	r.Register("openai", openai.NewOpenAIProvider("openai", s.OpenAIAPIKey, "", ""))
	r.Register(ProviderHuggingFace, openai.NewOpenAIProvider(ProviderHuggingFace, s.HuggingFaceAPIKey, openai.HuggingFaceRouterURL, ""))
	r.Register(anthropic.ProviderName, anthropic.NewAnthropicProvider(s.AnthropicAPIKey, "", ""))
	r.Register(ollama.ProviderName, ollama.NewOllamaProvider(s.OllamaBaseURL, s.OllamaModel))

	if s.Cache != nil {
		for key, p := range r.providers {
			r.providers[key] = llm.NewCachedProvider(p, s.Cache, s.CacheTTL)
		}
	}

	def := s.DefaultProvider
	if def == "" {
		def = mock.ProviderName
	}
	if _, ok := r.providers[def]; !ok {
		return nil, apperror.Newf(apperror.ErrValidation, "unsupported LLM provider: %s", def)
	}
	r.defaultProvider = def
	return r, nil
}

// Register adds or replaces the provider served under key.
func (r *Registry) Register(key string, p llm.LLMProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[key] = p
}

// Get returns the provider for key, or the default one when key is empty.
func (r *Registry) Get(key string) (llm.LLMProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if key == "" {
		key = r.defaultProvider
	}
	p, ok := r.providers[key]
	if !ok {
		return nil, apperror.Newf(apperror.ErrValidation, "unsupported LLM provider: %s", key)
	}
	return p, nil
}

func (r *Registry) Default() llm.LLMProvider {
	p, _ := r.Get("")
	return p
}

func (r *Registry) DefaultKey() string {
	return r.defaultProvider
}

func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.providers))
	for k := range r.providers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
