// Package vectorstore stores chunk embeddings and answers similarity queries.
package vectorstore

import (
	"context"
	"fmt"
	"strings"

	"ai-platform-be/internal/pkg/apperror"

	"github.com/google/uuid"
)

const (
	DistanceCosine = "Cosine"

	PayloadContent      = "content"
	PayloadDocumentID   = "document_id"
	PayloadDocumentName = "document_name"
	PayloadChunkIndex   = "chunk_index"
	PayloadMetadata     = "metadata"
)

type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]interface{}
}

type SearchRequest struct {
	Vector         []float32
	TopK           int
	ScoreThreshold float64
	// Filters are equality constraints, all of which must hold.
	Filters map[string]interface{}
}

type ScoredPoint struct {
	ID      string
	Score   float64
	Payload map[string]interface{}
}

type CollectionInfo struct {
	Name        string
	VectorSize  int
	Distance    string
	PointsCount int64
}

type Store interface {
	CreateCollection(ctx context.Context, name string, vectorSize int) error
	ListCollections(ctx context.Context) ([]CollectionInfo, error)
	DeleteCollection(ctx context.Context, name string) error
	Upsert(ctx context.Context, collection string, points []Point) error
	// Search returns at most TopK points scoring at least ScoreThreshold, best first.
	Search(ctx context.Context, collection string, req SearchRequest) ([]ScoredPoint, error)
	DeleteByDocument(ctx context.Context, collection, documentID string) error
}

var pointNamespace = uuid.MustParse("6f1d3c1e-8a3b-4f8e-9a55-2b7c9e0d4a10")

// PointID derives a stable UUID for a chunk so re-ingesting overwrites it.
func PointID(documentID string, chunkIndex int) string {
	return uuid.NewMD5(pointNamespace, []byte(fmt.Sprintf("%s_%d", documentID, chunkIndex))).String()
}

var topLevelKeys = map[string]bool{
	PayloadContent:      true,
	PayloadDocumentID:   true,
	PayloadDocumentName: true,
	PayloadChunkIndex:   true,
}

// FilterKey maps a caller filter key onto its payload path. Plain keys refer
// to document metadata.
func FilterKey(key string) string {
	if strings.Contains(key, ".") || topLevelKeys[key] {
		return key
	}
	return PayloadMetadata + "." + key
}

// ClampScore maps a cosine similarity onto [0, 1]. Opposed vectors score 0.
func ClampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func storeError(op, collection string, cause error) error {
	return apperror.Wrap(apperror.ErrStore, cause, fmt.Sprintf("vectorstore %s %s", op, collection))
}

// lookup walks a dotted path through nested payload maps.
func lookup(payload map[string]interface{}, path string) (interface{}, bool) {
	var current interface{} = payload
	for _, part := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// valuesEqual compares payload values loosely enough to survive a JSON round trip.
func valuesEqual(a, b interface{}) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func matchesFilters(payload map[string]interface{}, filters map[string]interface{}) bool {
	for k, want := range filters {
		got, ok := lookup(payload, FilterKey(k))
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}
