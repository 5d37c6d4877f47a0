package vectorstore

import (
	"context"
	"errors"
	"testing"

	"ai-platform-be/internal/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedMemory(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.CreateCollection(ctx, "docs", 2))

	require.NoError(t, s.Upsert(ctx, "docs", []Point{
		{ID: PointID("d1", 0), Vector: []float32{1, 0}, Payload: map[string]interface{}{
			PayloadDocumentID: "d1", PayloadDocumentName: "a.txt", PayloadChunkIndex: 0,
			PayloadMetadata: map[string]interface{}{"lang": "en"},
		}},
		{ID: PointID("d1", 1), Vector: []float32{0.8, 0.6}, Payload: map[string]interface{}{
			PayloadDocumentID: "d1", PayloadDocumentName: "a.txt", PayloadChunkIndex: 1,
			PayloadMetadata: map[string]interface{}{"lang": "en"},
		}},
		{ID: PointID("d2", 0), Vector: []float32{0, 1}, Payload: map[string]interface{}{
			PayloadDocumentID: "d2", PayloadDocumentName: "b.txt", PayloadChunkIndex: 0,
			PayloadMetadata: map[string]interface{}{"lang": "de"},
		}},
	}))
	return s
}

func TestPointIDStable(t *testing.T) {
	assert.Equal(t, PointID("doc", 3), PointID("doc", 3))
	assert.NotEqual(t, PointID("doc", 3), PointID("doc", 4))
	assert.Len(t, PointID("doc", 0), 36)
}

func TestFilterKey(t *testing.T) {
	assert.Equal(t, "metadata.lang", FilterKey("lang"))
	assert.Equal(t, "document_id", FilterKey("document_id"))
	assert.Equal(t, "metadata.nested.key", FilterKey("metadata.nested.key"))
}

func TestMemorySearchOrderingAndLimits(t *testing.T) {
	s := seedMemory(t)
	ctx := context.Background()

	res, err := s.Search(ctx, "docs", SearchRequest{Vector: []float32{1, 0}, TopK: 5})
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, PointID("d1", 0), res[0].ID)
	assert.InDelta(t, 1.0, res[0].Score, 1e-9)
	assert.InDelta(t, 0.8, res[1].Score, 1e-6)
	assert.InDelta(t, 0.0, res[2].Score, 1e-9)

	res, err = s.Search(ctx, "docs", SearchRequest{Vector: []float32{1, 0}, TopK: 1})
	require.NoError(t, err)
	assert.Len(t, res, 1)

	res, err = s.Search(ctx, "docs", SearchRequest{Vector: []float32{1, 0}, TopK: 5, ScoreThreshold: 0.7})
	require.NoError(t, err)
	assert.Len(t, res, 2)
	for _, r := range res {
		assert.GreaterOrEqual(t, r.Score, 0.7)
	}
}

func TestMemorySearchFilters(t *testing.T) {
	s := seedMemory(t)
	ctx := context.Background()

	res, err := s.Search(ctx, "docs", SearchRequest{Vector: []float32{1, 0}, TopK: 5, Filters: map[string]interface{}{"lang": "de"}})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "d2", res[0].Payload[PayloadDocumentID])

	res, err = s.Search(ctx, "docs", SearchRequest{Vector: []float32{1, 0}, TopK: 5, Filters: map[string]interface{}{
		PayloadDocumentID: "d1",
		PayloadChunkIndex: 1.0,
	}})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, PointID("d1", 1), res[0].ID)
}

func TestMemoryUpsertIsIdempotent(t *testing.T) {
	s := seedMemory(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "docs", []Point{
		{ID: PointID("d1", 0), Vector: []float32{0, 1}, Payload: map[string]interface{}{PayloadDocumentID: "d1"}},
	}))

	cols, err := s.ListCollections(ctx)
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.EqualValues(t, 3, cols[0].PointsCount)
	assert.Equal(t, 2, cols[0].VectorSize)
}

func TestMemoryDeleteByDocument(t *testing.T) {
	s := seedMemory(t)
	ctx := context.Background()

	require.NoError(t, s.DeleteByDocument(ctx, "docs", "d1"))
	res, err := s.Search(ctx, "docs", SearchRequest{Vector: []float32{1, 0}, TopK: 5})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "d2", res[0].Payload[PayloadDocumentID])
}

func TestMemoryErrors(t *testing.T) {
	s := seedMemory(t)
	ctx := context.Background()

	err := s.CreateCollection(ctx, "docs", 2)
	assert.True(t, errors.Is(err, apperror.ErrAlreadyExists))

	_, err = s.Search(ctx, "missing", SearchRequest{Vector: []float32{1, 0}})
	assert.True(t, errors.Is(err, apperror.ErrStore))

	err = s.Upsert(ctx, "docs", []Point{{ID: "x", Vector: []float32{1, 2, 3}}})
	assert.True(t, errors.Is(err, apperror.ErrStore))

	require.NoError(t, s.DeleteCollection(ctx, "docs"))
	assert.True(t, errors.Is(s.DeleteCollection(ctx, "docs"), apperror.ErrStore))
}

func TestMemorySearchScoresStayInUnitRange(t *testing.T) {
	s := seedMemory(t)
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, "docs", []Point{
		{ID: PointID("d3", 0), Vector: []float32{-1, 0}, Payload: map[string]interface{}{PayloadDocumentID: "d3"}},
	}))

	res, err := s.Search(ctx, "docs", SearchRequest{Vector: []float32{1, 0}, TopK: 10})
	require.NoError(t, err)
	require.Len(t, res, 4)
	for _, p := range res {
		assert.GreaterOrEqual(t, p.Score, 0.0)
		assert.LessOrEqual(t, p.Score, 1.0)
	}
	assert.Equal(t, 0.0, res[3].Score)
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0.0, ClampScore(-0.4))
	assert.Equal(t, 0.25, ClampScore(0.25))
	assert.Equal(t, 1.0, ClampScore(1.0000001))
}
