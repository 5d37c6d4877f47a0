package embedding

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"time"

	"ai-platform-be/pkg/cache"
)

// CachedProvider keeps vectors in a cache store. Batches only send the misses upstream.
type CachedProvider struct {
	inner EmbeddingProvider
	store cache.Store
	ttl   time.Duration
}

var _ EmbeddingProvider = (*CachedProvider)(nil)

func NewCachedProvider(inner EmbeddingProvider, store cache.Store, ttl time.Duration) *CachedProvider {
	return &CachedProvider{inner: inner, store: store, ttl: ttl}
}

func (p *CachedProvider) Name() string {
	return p.inner.Name()
}

func (p *CachedProvider) Dimension() int {
	return p.inner.Dimension()
}

func (p *CachedProvider) key(text string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s|%d|%s", p.inner.Name(), p.inner.Dimension(), text)))
	return hex.EncodeToString(sum[:])
}

func (p *CachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (p *CachedProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		var vec []float32
		if found, err := p.store.Get(ctx, p.key(text), &vec); err == nil && found && len(vec) > 0 {
			out[i] = vec
			continue
		}
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	fresh, err := p.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, CountMismatch(p.inner.Name(), len(missTexts), len(fresh))
	}

	for j, vec := range fresh {
		out[missIdx[j]] = vec
		// cache write failures only cost a recompute
		_ = p.store.Set(ctx, p.key(missTexts[j]), vec, p.ttl)
	}
	return out, nil
}
