package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"ai-platform-be/internal/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQdrantCreateCollection(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/collections/docs", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("api-key"))

		var body map[string]map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 768, body["vectors"]["size"])
		assert.Equal(t, DistanceCosine, body["vectors"]["distance"])

		if calls > 1 {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"status":{"error":"Wrong input: Collection `+"`docs`"+` already exists!"}}`)
			return
		}
		fmt.Fprint(w, `{"result":true,"status":"ok"}`)
	}))
	defer srv.Close()

	s := NewQdrantStore(srv.URL, "secret")
	require.NoError(t, s.CreateCollection(context.Background(), "docs", 768))

	err := s.CreateCollection(context.Background(), "docs", 768)
	assert.True(t, errors.Is(err, apperror.ErrAlreadyExists))
}

func TestQdrantListCollections(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/collections":
			fmt.Fprint(w, `{"result":{"collections":[{"name":"docs"}]}}`)
		case "/collections/docs":
			fmt.Fprint(w, `{"result":{"points_count":42,"config":{"params":{"vectors":{"size":768,"distance":"Cosine"}}}}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	cols, err := NewQdrantStore(srv.URL, "").ListCollections(context.Background())
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, CollectionInfo{Name: "docs", VectorSize: 768, Distance: "Cosine", PointsCount: 42}, cols[0])
}

func TestQdrantSearchBuildsFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/docs/points/search", r.URL.Path)

		var req qdrantSearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 3, req.Limit)
		require.NotNil(t, req.ScoreThreshold)
		assert.InDelta(t, 0.7, *req.ScoreThreshold, 1e-9)
		assert.True(t, req.WithPayload)
		require.NotNil(t, req.Filter)
		require.Len(t, req.Filter.Must, 1)
		assert.Equal(t, "metadata.lang", req.Filter.Must[0].Key)
		assert.Equal(t, "en", req.Filter.Must[0].Match.Value)

		fmt.Fprint(w, `{"result":[{"id":"p1","score":0.93,"payload":{"content":"hello","document_id":"d1"}}],"status":"ok"}`)
	}))
	defer srv.Close()

	res, err := NewQdrantStore(srv.URL, "").Search(context.Background(), "docs", SearchRequest{
		Vector:         []float32{0.1, 0.2},
		TopK:           3,
		ScoreThreshold: 0.7,
		Filters:        map[string]interface{}{"lang": "en"},
	})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "p1", res[0].ID)
	assert.InDelta(t, 0.93, res[0].Score, 1e-9)
	assert.Equal(t, "hello", res[0].Payload[PayloadContent])
}

func TestQdrantUpsertAndDeleteByDocument(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path+"?"+r.URL.RawQuery)
		if r.URL.Path == "/collections/docs/points/delete" {
			var body struct {
				Filter qdrantFilter `json:"filter"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Len(t, body.Filter.Must, 1)
			assert.Equal(t, PayloadDocumentID, body.Filter.Must[0].Key)
			assert.Equal(t, "d1", body.Filter.Must[0].Match.Value)
		}
		fmt.Fprint(w, `{"result":{"status":"completed"},"status":"ok"}`)
	}))
	defer srv.Close()

	s := NewQdrantStore(srv.URL, "")
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, "docs", []Point{{ID: PointID("d1", 0), Vector: []float32{1}, Payload: map[string]interface{}{PayloadDocumentID: "d1"}}}))
	require.NoError(t, s.DeleteByDocument(ctx, "docs", "d1"))

	assert.Equal(t, []string{
		"PUT /collections/docs/points?wait=true",
		"POST /collections/docs/points/delete?wait=true",
	}, seen)
}

func TestQdrantErrorsAreStoreErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"status":{"error":"Not found: Collection missing"}}`)
	}))
	defer srv.Close()

	s := NewQdrantStore(srv.URL, "")
	err := s.DeleteCollection(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrStore))
	assert.Contains(t, err.Error(), "404")

	_, err = s.Search(context.Background(), "missing", SearchRequest{Vector: []float32{1}, TopK: 1})
	assert.True(t, errors.Is(err, apperror.ErrStore))
}
