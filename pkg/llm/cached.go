package llm

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"time"

	"ai-platform-be/pkg/cache"
)

// CachedProvider memoizes complete chat answers. Streams are passed through untouched.
type CachedProvider struct {
	inner LLMProvider
	store cache.Store
	ttl   time.Duration
}

var _ LLMProvider = (*CachedProvider)(nil)

func NewCachedProvider(inner LLMProvider, store cache.Store, ttl time.Duration) *CachedProvider {
	return &CachedProvider{inner: inner, store: store, ttl: ttl}
}

func (p *CachedProvider) Name() string {
	return p.inner.Name()
}

func (p *CachedProvider) Model() string {
	return ResolveModel(p.inner, "")
}

func (p *CachedProvider) cacheKey(history []Message, o Options) string {
	raw, _ := json.Marshal(struct {
		Provider string    `json:"p"`
		Options  Options   `json:"o"`
		History  []Message `json:"h"`
	}{p.inner.Name(), o, history})
	sum := md5.Sum(raw)
	return hex.EncodeToString(sum[:])
}

func (p *CachedProvider) Chat(ctx context.Context, history []Message, options ...Option) (*Completion, error) {
	key := p.cacheKey(history, ApplyOptions(Options{}, options...))

	var cached Completion
	if found, err := p.store.Get(ctx, key, &cached); err == nil && found {
		return &cached, nil
	}

	res, err := p.inner.Chat(ctx, history, options...)
	if err != nil {
		return nil, err
	}

	// a cache outage must not fail the generation
	_ = p.store.Set(ctx, key, res, p.ttl)
	return res, nil
}

func (p *CachedProvider) Generate(ctx context.Context, prompt string, options ...Option) (*Completion, error) {
	return p.Chat(ctx, PromptHistory(prompt, options...), options...)
}

func (p *CachedProvider) ChatStream(ctx context.Context, history []Message, options ...Option) (Stream, error) {
	return p.inner.ChatStream(ctx, history, options...)
}

func (p *CachedProvider) GenerateStream(ctx context.Context, prompt string, options ...Option) (Stream, error) {
	return p.inner.GenerateStream(ctx, prompt, options...)
}
