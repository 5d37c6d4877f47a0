package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ai-platform-be/internal/pkg/apperror"
)

const upsertBatchSize = 256

// QdrantStore is a minimal Qdrant HTTP client.
type QdrantStore struct {
	base   string
	apiKey string
	http   *http.Client
}

var _ Store = (*QdrantStore)(nil)

func NewQdrantStore(baseURL, apiKey string) *QdrantStore {
	return &QdrantStore{
		base:   strings.TrimRight(baseURL, "/"),
		apiKey: apiKey,
		http:   &http.Client{Timeout: 30 * time.Second},
	}
}

type qdrantFieldCondition struct {
	Key   string `json:"key"`
	Match struct {
		Value interface{} `json:"value"`
	} `json:"match"`
}

type qdrantFilter struct {
	Must []qdrantFieldCondition `json:"must"`
}

type qdrantSearchRequest struct {
	Vector         []float32     `json:"vector"`
	Limit          int           `json:"limit"`
	ScoreThreshold *float64      `json:"score_threshold,omitempty"`
	WithPayload    bool          `json:"with_payload"`
	Filter         *qdrantFilter `json:"filter,omitempty"`
}

type qdrantPoint struct {
	ID      interface{}            `json:"id"`
	Vector  []float32              `json:"vector,omitempty"`
	Score   float64                `json:"score,omitempty"`
	Payload map[string]interface{} `json:"payload"`
}

type qdrantSearchResponse struct {
	Result []qdrantPoint `json:"result"`
	Status interface{}   `json:"status"`
}

type qdrantListResponse struct {
	Result struct {
		Collections []struct {
			Name string `json:"name"`
		} `json:"collections"`
	} `json:"result"`
}

type qdrantCollectionResponse struct {
	Result struct {
		PointsCount *int64 `json:"points_count"`
		Config      struct {
			Params struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	} `json:"result"`
}

func buildFilter(filters map[string]interface{}) *qdrantFilter {
	if len(filters) == 0 {
		return nil
	}
	f := &qdrantFilter{}
	for k, v := range filters {
		cond := qdrantFieldCondition{Key: FilterKey(k)}
		cond.Match.Value = v
		f.Must = append(f.Must, cond)
	}
	return f
}

// do sends one request and decodes a 2xx JSON answer into out when it is non-nil.
func (s *QdrantStore) do(ctx context.Context, method, path string, body interface{}, out interface{}) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.base+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, respBody, fmt.Errorf("qdrant status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return resp.StatusCode, respBody, fmt.Errorf("decode qdrant response: %w", err)
		}
	}
	return resp.StatusCode, respBody, nil
}

func collectionPath(name string) string {
	return "/collections/" + url.PathEscape(name)
}

func (s *QdrantStore) CreateCollection(ctx context.Context, name string, vectorSize int) error {
	body := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     vectorSize,
			"distance": DistanceCosine,
		},
	}
	status, respBody, err := s.do(ctx, http.MethodPut, collectionPath(name), body, nil)
	if err != nil {
		if status == http.StatusConflict || strings.Contains(strings.ToLower(string(respBody)), "already exists") {
			return apperror.Newf(apperror.ErrAlreadyExists, "collection %s already exists", name)
		}
		return storeError("create_collection", name, err)
	}
	return nil
}

func (s *QdrantStore) ListCollections(ctx context.Context) ([]CollectionInfo, error) {
	var list qdrantListResponse
	if _, _, err := s.do(ctx, http.MethodGet, "/collections", nil, &list); err != nil {
		return nil, storeError("list_collections", "", err)
	}

	out := make([]CollectionInfo, 0, len(list.Result.Collections))
	for _, c := range list.Result.Collections {
		var info qdrantCollectionResponse
		if _, _, err := s.do(ctx, http.MethodGet, collectionPath(c.Name), nil, &info); err != nil {
			return nil, storeError("get_collection", c.Name, err)
		}

		ci := CollectionInfo{
			Name:       c.Name,
			VectorSize: info.Result.Config.Params.Vectors.Size,
			Distance:   info.Result.Config.Params.Vectors.Distance,
		}
		if info.Result.PointsCount != nil {
			ci.PointsCount = *info.Result.PointsCount
		}
		out = append(out, ci)
	}
	return out, nil
}

func (s *QdrantStore) DeleteCollection(ctx context.Context, name string) error {
	if _, _, err := s.do(ctx, http.MethodDelete, collectionPath(name), nil, nil); err != nil {
		return storeError("delete_collection", name, err)
	}
	return nil
}

func (s *QdrantStore) Upsert(ctx context.Context, collection string, points []Point) error {
	for start := 0; start < len(points); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(points) {
			end = len(points)
		}

		batch := make([]qdrantPoint, 0, end-start)
		for _, p := range points[start:end] {
			batch = append(batch, qdrantPoint{ID: p.ID, Vector: p.Vector, Payload: p.Payload})
		}

		body := map[string]interface{}{"points": batch}
		if _, _, err := s.do(ctx, http.MethodPut, collectionPath(collection)+"/points?wait=true", body, nil); err != nil {
			return storeError("upsert", collection, err)
		}
	}
	return nil
}

func (s *QdrantStore) Search(ctx context.Context, collection string, req SearchRequest) ([]ScoredPoint, error) {
	body := qdrantSearchRequest{
		Vector:      req.Vector,
		Limit:       req.TopK,
		WithPayload: true,
		Filter:      buildFilter(req.Filters),
	}
	if req.ScoreThreshold > 0 {
		thr := req.ScoreThreshold
		body.ScoreThreshold = &thr
	}

	var resp qdrantSearchResponse
	if _, _, err := s.do(ctx, http.MethodPost, collectionPath(collection)+"/points/search", body, &resp); err != nil {
		return nil, storeError("search", collection, err)
	}

	out := make([]ScoredPoint, 0, len(resp.Result))
	for _, p := range resp.Result {
		out = append(out, ScoredPoint{
			ID:      fmt.Sprint(p.ID),
			Score:   ClampScore(p.Score),
			Payload: p.Payload,
		})
	}
	return out, nil
}

func (s *QdrantStore) DeleteByDocument(ctx context.Context, collection, documentID string) error {
	body := map[string]interface{}{
		"filter": buildFilter(map[string]interface{}{PayloadDocumentID: documentID}),
	}
	if _, _, err := s.do(ctx, http.MethodPost, collectionPath(collection)+"/points/delete?wait=true", body, nil); err != nil {
		return storeError("delete_by_document", collection, err)
	}
	return nil
}
