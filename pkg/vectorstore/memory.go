package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"ai-platform-be/internal/pkg/apperror"
)

type memoryCollection struct {
	vectorSize int
	points     map[string]Point
}

// MemoryStore is a brute-force Store for tests and single process runs.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

func (s *MemoryStore) CreateCollection(ctx context.Context, name string, vectorSize int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[name]; ok {
		return apperror.Newf(apperror.ErrAlreadyExists, "collection %s already exists", name)
	}
	s.collections[name] = &memoryCollection{vectorSize: vectorSize, points: make(map[string]Point)}
	return nil
}

func (s *MemoryStore) ListCollections(ctx context.Context) ([]CollectionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]CollectionInfo, 0, len(s.collections))
	for name, c := range s.collections {
		out = append(out, CollectionInfo{
			Name:        name,
			VectorSize:  c.vectorSize,
			Distance:    DistanceCosine,
			PointsCount: int64(len(c.points)),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) DeleteCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[name]; !ok {
		return storeError("delete_collection", name, fmt.Errorf("collection not found"))
	}
	delete(s.collections, name)
	return nil
}

func (s *MemoryStore) Upsert(ctx context.Context, collection string, points []Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		return storeError("upsert", collection, fmt.Errorf("collection not found"))
	}
	for _, p := range points {
		if len(p.Vector) != c.vectorSize {
			return storeError("upsert", collection, fmt.Errorf("point %s has %d dimensions, want %d", p.ID, len(p.Vector), c.vectorSize))
		}
	}
	for _, p := range points {
		vec := make([]float32, len(p.Vector))
		copy(vec, p.Vector)
		c.points[p.ID] = Point{ID: p.ID, Vector: vec, Payload: p.Payload}
	}
	return nil
}

func (s *MemoryStore) Search(ctx context.Context, collection string, req SearchRequest) ([]ScoredPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return nil, storeError("search", collection, fmt.Errorf("collection not found"))
	}
	if len(req.Vector) != c.vectorSize {
		return nil, storeError("search", collection, fmt.Errorf("query has %d dimensions, want %d", len(req.Vector), c.vectorSize))
	}

	scored := make([]ScoredPoint, 0, len(c.points))
	for _, p := range c.points {
		if !matchesFilters(p.Payload, req.Filters) {
			continue
		}
		score := ClampScore(cosineSimilarity(req.Vector, p.Vector))
		if score < req.ScoreThreshold {
			continue
		}
		scored = append(scored, ScoredPoint{ID: p.ID, Score: score, Payload: p.Payload})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score == scored[j].Score {
			return scored[i].ID < scored[j].ID
		}
		return scored[i].Score > scored[j].Score
	})
	if req.TopK > 0 && len(scored) > req.TopK {
		scored = scored[:req.TopK]
	}
	return scored, nil
}

func (s *MemoryStore) DeleteByDocument(ctx context.Context, collection, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		return storeError("delete_by_document", collection, fmt.Errorf("collection not found"))
	}
	for id, p := range c.points {
		if v, ok := p.Payload[PayloadDocumentID]; ok && fmt.Sprint(v) == documentID {
			delete(c.points, id)
		}
	}
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
