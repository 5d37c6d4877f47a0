package embedding

import (
	"context"
	"fmt"
	"math"

	"ai-platform-be/internal/pkg/apperror"
)

// EmbeddingProvider defines the interface for generating text embeddings
type EmbeddingProvider interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// normalizeVector normalizes a vector to unit length (magnitude = 1)
// Cosine distance in pgvector expects normalized vectors.
func normalizeVector(vec []float32) []float32 {
	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)

	// Avoid division by zero
	if magnitude == 0 {
		return vec
	}

	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / magnitude)
	}
	return normalized
}

func toFloat32(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}

func ErrMissingCredentials(provider string) error {
	return apperror.Newf(apperror.ErrProviderUnavailable, "%s embedding provider is not configured: missing API key", provider)
}

func RequestFailed(provider string, err error) error {
	return apperror.Wrap(apperror.ErrProviderUnavailable, err, fmt.Sprintf("%s embedding request failed", provider))
}

func UpstreamStatus(provider string, status int, body []byte) error {
	msg := string(body)
	if len(msg) > 512 {
		msg = msg[:512] + "..."
	}
	return apperror.Newf(apperror.ErrProviderUnavailable, "%s embedding error: status %d, body: %s", provider, status, msg)
}

// CountMismatch reports an upstream that returned fewer or more vectors than inputs.
func CountMismatch(provider string, want, got int) error {
	return apperror.Newf(apperror.ErrProviderUnavailable, "%s returned %d embeddings for %d inputs", provider, got, want)
}
