package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	GeminiProviderName  = "gemini"
	GeminiDefaultModel  = "text-embedding-004"
	geminiDefaultURL    = "https://generativelanguage.googleapis.com/v1beta"
	geminiDimension     = 768
	geminiTaskDocument  = "RETRIEVAL_DOCUMENT"
	geminiMaxBatchInput = 100
)

type EmbeddingRequestContentPart struct {
	Text string `json:"text"`
}

type EmbeddingRequestContent struct {
	Parts []EmbeddingRequestContentPart `json:"parts"`
}

type EmbeddingRequest struct {
	Model    string                  `json:"model"`
	Content  EmbeddingRequestContent `json:"content"`
	TaskType string                  `json:"taskType,omitempty"`
}

type EmbeddingResponseEmbedding struct {
	Values []float32 `json:"values"`
}

type EmbeddingResponse struct {
	Embedding EmbeddingResponseEmbedding `json:"embedding"`
}

type batchEmbeddingRequest struct {
	Requests []EmbeddingRequest `json:"requests"`
}

type batchEmbeddingResponse struct {
	Embeddings []EmbeddingResponseEmbedding `json:"embeddings"`
}

type GeminiProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

var _ EmbeddingProvider = (*GeminiProvider)(nil)

func NewGeminiProvider(apiKey, baseURL, model string) *GeminiProvider {
	if baseURL == "" {
		baseURL = geminiDefaultURL
	}
	if model == "" {
		model = GeminiDefaultModel
	}
	return &GeminiProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *GeminiProvider) Name() string {
	return GeminiProviderName
}

func (p *GeminiProvider) Dimension() int {
	return geminiDimension
}

func (p *GeminiProvider) request(text string) EmbeddingRequest {
	return EmbeddingRequest{
		Model: "models/" + p.model,
		Content: EmbeddingRequestContent{
			Parts: []EmbeddingRequestContentPart{{Text: text}},
		},
		TaskType: geminiTaskDocument,
	}
}

func (p *GeminiProvider) post(ctx context.Context, method string, body interface{}, out interface{}) error {
	if p.apiKey == "" {
		return ErrMissingCredentials(GeminiProviderName)
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/models/%s:%s", p.baseURL, p.model, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return RequestFailed(GeminiProviderName, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return RequestFailed(GeminiProviderName, err)
	}
	if resp.StatusCode != http.StatusOK {
		return UpstreamStatus(GeminiProviderName, resp.StatusCode, bodyBytes)
	}
	return json.Unmarshal(bodyBytes, out)
}

func (p *GeminiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp EmbeddingResponse
	if err := p.post(ctx, "embedContent", p.request(text), &resp); err != nil {
		return nil, err
	}
	return resp.Embedding.Values, nil
}

func (p *GeminiProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += geminiMaxBatchInput {
		end := start + geminiMaxBatchInput
		if end > len(texts) {
			end = len(texts)
		}

		batch := batchEmbeddingRequest{Requests: make([]EmbeddingRequest, 0, end-start)}
		for _, text := range texts[start:end] {
			batch.Requests = append(batch.Requests, p.request(text))
		}

		var resp batchEmbeddingResponse
		if err := p.post(ctx, "batchEmbedContents", batch, &resp); err != nil {
			return nil, err
		}
		if len(resp.Embeddings) != end-start {
			return nil, CountMismatch(GeminiProviderName, end-start, len(resp.Embeddings))
		}
		for _, e := range resp.Embeddings {
			out = append(out, e.Values)
		}
	}
	return out, nil
}
