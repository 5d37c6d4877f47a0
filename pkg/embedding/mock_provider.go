package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

const (
	MockProviderName = "mock"
	DefaultDimension = 768
)

// MockProvider hashes words into a fixed number of buckets. Equal texts map to
// equal vectors and texts sharing words score higher under cosine.
type MockProvider struct {
	dimension int
}

var _ EmbeddingProvider = (*MockProvider)(nil)

func NewMockProvider(dimension int) *MockProvider {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &MockProvider{dimension: dimension}
}

func (p *MockProvider) Name() string {
	return MockProviderName
}

func (p *MockProvider) Dimension() int {
	return p.dimension
}

func (p *MockProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.vector(text), nil
}

func (p *MockProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = p.vector(text)
	}
	return out, nil
}

func (p *MockProvider) vector(text string) []float32 {
	vec := make([]float32, p.dimension)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		h := fnv.New64a()
		_, _ = h.Write([]byte(w))
		sum := h.Sum64()
		vec[sum%uint64(p.dimension)] += 1
	}
	return normalizeVector(vec)
}
