package dto

import (
	"time"

	"github.com/google/uuid"
)

const (
	DefaultTopK           = 5
	DefaultScoreThreshold = 0.7
	DefaultTemperature    = 0.7
	DefaultMaxTokens      = 2048
)

type RAGQueryRequest struct {
	Query           string                 `json:"query" validate:"required,min=1,max=10000"`
	CollectionName  string                 `json:"collection_name" validate:"required"`
	TopK            int                    `json:"top_k" validate:"min=1,max=20"`
	ScoreThreshold  float64                `json:"score_threshold" validate:"gte=0,lte=1"`
	Filters         map[string]interface{} `json:"filters,omitempty"`
	Model           string                 `json:"model,omitempty"`
	Provider        string                 `json:"provider,omitempty"`
	Temperature     float64                `json:"temperature" validate:"gte=0,lte=2"`
	MaxTokens       int                    `json:"max_tokens" validate:"min=1,max=128000"`
	SystemPrompt    string                 `json:"system_prompt,omitempty"`
	IncludeMetadata bool                   `json:"include_metadata"`
}

// NewRAGQueryRequest returns a request pre-filled with defaults. Decode the
// body into it so absent fields keep their default.
func NewRAGQueryRequest() RAGQueryRequest {
	return RAGQueryRequest{
		TopK:            DefaultTopK,
		ScoreThreshold:  DefaultScoreThreshold,
		Temperature:     DefaultTemperature,
		MaxTokens:       DefaultMaxTokens,
		IncludeMetadata: true,
	}
}

type ChunkResult struct {
	DocumentId   string                 `json:"document_id"`
	DocumentName string                 `json:"document_name"`
	Content      string                 `json:"content"`
	Score        float64                `json:"score"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
	ChunkIndex   int                    `json:"chunk_index"`
}

type RAGResponse struct {
	Answer           string        `json:"answer"`
	Query            string        `json:"query"`
	Chunks           []ChunkResult `json:"chunks"`
	ModelUsed        string        `json:"model_used"`
	Provider         string        `json:"provider"`
	TotalTokens      int           `json:"total_tokens"`
	PromptTokens     int           `json:"prompt_tokens"`
	CompletionTokens int           `json:"completion_tokens"`
	CostUSD          float64       `json:"cost_usd"`
	LatencyMs        float64       `json:"latency_ms"`
	Cached           bool          `json:"cached"`
}

// RAGStreamChunk is one server-sent event: sources, chunk, done or error.
type RAGStreamChunk struct {
	Type     string                 `json:"type"`
	Content  string                 `json:"content,omitempty"`
	Chunks   []ChunkResult          `json:"chunks,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type SearchRequest struct {
	Query          string                 `json:"query" validate:"required,min=1,max=10000"`
	CollectionName string                 `json:"collection_name" validate:"required"`
	TopK           int                    `json:"top_k" validate:"min=1,max=20"`
	ScoreThreshold float64                `json:"score_threshold" validate:"gte=0,lte=1"`
	Filters        map[string]interface{} `json:"filters,omitempty"`
}

func NewSearchRequest() SearchRequest {
	return SearchRequest{TopK: DefaultTopK}
}

type SearchResponse struct {
	Chunks []ChunkResult `json:"chunks"`
	Count  int           `json:"count"`
}

type CreateCollectionRequest struct {
	Name           string `json:"name" validate:"required,min=1,max=255"`
	Description    string `json:"description"`
	EmbeddingModel string `json:"embedding_model"`
	DistanceMetric string `json:"distance_metric" validate:"omitempty,oneof=cosine"`
}

type CollectionResponse struct {
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	DocumentCount  int64     `json:"document_count"`
	ChunkCount     int64     `json:"chunk_count"`
	VectorSize     int       `json:"vector_size"`
	EmbeddingModel string    `json:"embedding_model"`
	DistanceMetric string    `json:"distance_metric"`
	CreatedAt      time.Time `json:"created_at"`
}

type CollectionListResponse struct {
	Items []CollectionResponse `json:"items"`
	Total int                  `json:"total"`
}

type ProcessDocumentInput struct {
	FileBytes      []byte
	Filename       string
	ContentType    string
	CollectionName string
	UserId         uuid.UUID
	Metadata       map[string]interface{}
}

type DocumentResponse struct {
	Id             uuid.UUID              `json:"id"`
	Name           string                 `json:"name"`
	CollectionName string                 `json:"collection_name"`
	FileType       string                 `json:"file_type"`
	FileSize       int64                  `json:"file_size"`
	Status         string                 `json:"status"`
	ChunkCount     int                    `json:"chunk_count"`
	TokenCount     int                    `json:"token_count"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	ProcessedAt    *time.Time             `json:"processed_at"`
}

// ListDocumentsRequest leaves paging to the service, which defaults and
// caps it.
type ListDocumentsRequest struct {
	CollectionName string `query:"collection_name"`
	Page           int    `query:"page"`
	PageSize       int    `query:"page_size"`
}

type DocumentListResponse struct {
	Items    []DocumentResponse `json:"items"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
}
