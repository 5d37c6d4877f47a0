package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"ai-platform-be/internal/constant"
	"ai-platform-be/internal/dto"
	"ai-platform-be/internal/pkg/logger"
	"ai-platform-be/pkg/cache"
	"ai-platform-be/pkg/embedding"
	"ai-platform-be/pkg/llm"
	"ai-platform-be/pkg/metrics"
	"ai-platform-be/pkg/vectorstore"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	queryModeQuery  = "query"
	queryModeStream = "stream"
	queryModeSearch = "search"

	streamBuffer = 16
)

// ProviderResolver returns the LLM served under a key; "" selects the default.
type ProviderResolver interface {
	Get(key string) (llm.LLMProvider, error)
}

type IRAGService interface {
	Query(ctx context.Context, req dto.RAGQueryRequest) (*dto.RAGResponse, error)
	// QueryStream retrieves once, then emits sources, chunk* and a terminal
	// done or error event. The channel is closed after the terminal event or
	// when ctx is cancelled.
	QueryStream(ctx context.Context, req dto.RAGQueryRequest) (<-chan dto.RAGStreamChunk, error)
	Search(ctx context.Context, req dto.SearchRequest) (*dto.SearchResponse, error)
}

type RAGSettings struct {
	CacheTTL time.Duration
	// DefaultModel applies only to DefaultProvider. Other providers fall
	// back to their own default model.
	DefaultProvider string
	DefaultModel    string
}

type ragService struct {
	providers   ProviderResolver
	embedder    embedding.EmbeddingProvider
	vectorStore vectorstore.Store
	ragCache    cache.Store
	settings    RAGSettings
	logger      logger.ILogger
	tracer      trace.Tracer
}

// NewRAGService expects ragCache to be the rag namespace view.
func NewRAGService(
	providers ProviderResolver,
	embedder embedding.EmbeddingProvider,
	vectorStore vectorstore.Store,
	ragCache cache.Store,
	settings RAGSettings,
	log logger.ILogger,
) IRAGService {
	return &ragService{
		providers:   providers,
		embedder:    embedder,
		vectorStore: vectorStore,
		ragCache:    ragCache,
		settings:    settings,
		logger:      log,
		tracer:      otel.Tracer("ai-platform-be/rag"),
	}
}

func normalizeQuery(req *dto.RAGQueryRequest) {
	if req.TopK <= 0 {
		req.TopK = dto.DefaultTopK
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = dto.DefaultMaxTokens
	}
}

func (s *ragService) Query(ctx context.Context, req dto.RAGQueryRequest) (resp *dto.RAGResponse, err error) {
	start := time.Now()
	normalizeQuery(&req)

	ctx, span := s.tracer.Start(ctx, "RAG.Query", trace.WithAttributes(
		attribute.String("collection", req.CollectionName),
		attribute.Int("top_k", req.TopK),
	))
	defer span.End()

	cached := false
	defer func() {
		s.observe(queryModeQuery, start, err, cached)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	provider, err := s.providers.Get(req.Provider)
	if err != nil {
		return nil, err
	}

	key := s.cacheKey(ctx, req)
	var hit dto.RAGResponse
	if found, cacheErr := s.ragCache.Get(ctx, key, &hit); cacheErr != nil {
		s.logger.Warn("RAG", "Cache read failed", map[string]interface{}{"error": cacheErr.Error()})
	} else if found {
		cached = true
		hit.Cached = true
		hit.LatencyMs = elapsedMs(start)
		span.SetAttributes(attribute.Bool("cached", true))
		return &hit, nil
	}

	chunks, err := s.retrieve(ctx, req.CollectionName, req.Query, vectorstore.SearchRequest{
		TopK:           req.TopK,
		ScoreThreshold: req.ScoreThreshold,
		Filters:        req.Filters,
	}, req.IncludeMetadata)
	if err != nil {
		return nil, err
	}

	genCtx, genSpan := s.tracer.Start(ctx, "RAG.Generate")
	completion, err := provider.Generate(genCtx, buildUserPrompt(chunks, req.Query), s.generationOptions(s.modelFor(provider, req), req)...)
	genSpan.End()
	if err != nil {
		return nil, err
	}

	metrics.RecordTokens(completion.Provider, completion.Model, completion.PromptTokens, completion.CompletionTokens)

	resp = &dto.RAGResponse{
		Answer:           completion.Text,
		Query:            req.Query,
		Chunks:           chunks,
		ModelUsed:        completion.Model,
		Provider:         completion.Provider,
		PromptTokens:     completion.PromptTokens,
		CompletionTokens: completion.CompletionTokens,
		TotalTokens:      completion.TotalTokens,
		CostUSD:          EstimateCost(completion.Model, completion.PromptTokens, completion.CompletionTokens),
		LatencyMs:        elapsedMs(start),
		Cached:           false,
	}

	if err := s.ragCache.Set(ctx, key, resp, s.settings.CacheTTL); err != nil {
		s.logger.Warn("RAG", "Cache write failed", map[string]interface{}{"error": err.Error()})
	}

	s.logger.Info("RAG", "Query answered", map[string]interface{}{
		"collection": req.CollectionName,
		"chunks":     len(chunks),
		"model":      completion.Model,
		"tokens":     completion.TotalTokens,
		"latency_ms": resp.LatencyMs,
	})
	return resp, nil
}

func (s *ragService) QueryStream(ctx context.Context, req dto.RAGQueryRequest) (<-chan dto.RAGStreamChunk, error) {
	normalizeQuery(&req)

	provider, err := s.providers.Get(req.Provider)
	if err != nil {
		return nil, err
	}

	out := make(chan dto.RAGStreamChunk, streamBuffer)
	go s.runStream(ctx, provider, req, out)
	return out, nil
}

func (s *ragService) runStream(ctx context.Context, provider llm.LLMProvider, req dto.RAGQueryRequest, out chan<- dto.RAGStreamChunk) {
	defer close(out)

	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "RAG.QueryStream", trace.WithAttributes(
		attribute.String("collection", req.CollectionName),
	))
	defer span.End()

	var streamErr error
	defer func() { s.observe(queryModeStream, start, streamErr, false) }()

	send := func(ev dto.RAGStreamChunk) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
	fail := func(err error) {
		streamErr = err
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error("RAG", "Stream failed", map[string]interface{}{"error": err.Error()})
		send(dto.RAGStreamChunk{Type: constant.StreamEventError, Error: err.Error()})
	}

	chunks, err := s.retrieve(ctx, req.CollectionName, req.Query, vectorstore.SearchRequest{
		TopK:           req.TopK,
		ScoreThreshold: req.ScoreThreshold,
		Filters:        req.Filters,
	}, req.IncludeMetadata)
	if err != nil {
		fail(err)
		return
	}

	if !send(dto.RAGStreamChunk{Type: constant.StreamEventSources, Chunks: chunks}) {
		streamErr = ctx.Err()
		return
	}

	stream, err := provider.GenerateStream(ctx, buildUserPrompt(chunks, req.Query), s.generationOptions(s.modelFor(provider, req), req)...)
	if err != nil {
		fail(err)
		return
	}
	defer stream.Close()

	for {
		if ctx.Err() != nil {
			streamErr = ctx.Err()
			return
		}
		fragment, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				streamErr = ctx.Err()
				return
			}
			fail(err)
			return
		}
		if fragment == "" {
			continue
		}
		if !send(dto.RAGStreamChunk{Type: constant.StreamEventChunk, Content: fragment}) {
			streamErr = ctx.Err()
			return
		}
	}

	send(dto.RAGStreamChunk{
		Type: constant.StreamEventDone,
		Metadata: map[string]interface{}{
			"latency_ms": elapsedMs(start),
			"model":      s.modelFor(provider, req),
			"provider":   provider.Name(),
		},
	})
}

func (s *ragService) Search(ctx context.Context, req dto.SearchRequest) (resp *dto.SearchResponse, err error) {
	start := time.Now()
	if req.TopK <= 0 {
		req.TopK = dto.DefaultTopK
	}
	defer func() { s.observe(queryModeSearch, start, err, false) }()

	chunks, err := s.retrieve(ctx, req.CollectionName, req.Query, vectorstore.SearchRequest{
		TopK:           req.TopK,
		ScoreThreshold: req.ScoreThreshold,
		Filters:        req.Filters,
	}, true)
	if err != nil {
		return nil, err
	}
	return &dto.SearchResponse{Chunks: chunks, Count: len(chunks)}, nil
}

func (s *ragService) retrieve(ctx context.Context, collection, query string, sreq vectorstore.SearchRequest, includeMetadata bool) ([]dto.ChunkResult, error) {
	ctx, span := s.tracer.Start(ctx, "RAG.Retrieve")
	defer span.End()

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	sreq.Vector = vector

	points, err := s.vectorStore.Search(ctx, collection, sreq)
	if err != nil {
		return nil, err
	}

	chunks := make([]dto.ChunkResult, 0, len(points))
	for _, p := range points {
		chunks = append(chunks, toChunkResult(p, includeMetadata))
	}
	span.SetAttributes(attribute.Int("chunks", len(chunks)))
	metrics.RAGChunksRetrieved.Observe(float64(len(chunks)))
	return chunks, nil
}

// modelFor returns the model sent to provider for req.
func (s *ragService) modelFor(provider llm.LLMProvider, req dto.RAGQueryRequest) string {
	if req.Model != "" {
		return req.Model
	}
	if s.settings.DefaultModel != "" && (req.Provider == "" || req.Provider == s.settings.DefaultProvider) {
		return s.settings.DefaultModel
	}
	return llm.ResolveModel(provider, "")
}

func (s *ragService) generationOptions(model string, req dto.RAGQueryRequest) []llm.Option {
	system := constant.RAGDefaultSystemPrompt
	if req.SystemPrompt != "" {
		system = req.SystemPrompt
	}
	return []llm.Option{
		llm.WithSystemPrompt(system),
		llm.WithModel(model),
		llm.WithTemperature(req.Temperature),
		llm.WithMaxTokens(req.MaxTokens),
	}
}

// cacheKey covers every field that changes the answer plus the collection's
// generation, so content changes orphan older entries.
func (s *ragService) cacheKey(ctx context.Context, req dto.RAGQueryRequest) string {
	var generation int64
	if _, err := s.ragCache.Get(ctx, fmt.Sprintf(constant.CollectionGenerationKey, req.CollectionName), &generation); err != nil {
		s.logger.Warn("RAG", "Generation read failed", map[string]interface{}{"error": err.Error()})
	}

	raw, _ := json.Marshal(struct {
		Query           string                 `json:"q"`
		Collection      string                 `json:"c"`
		TopK            int                    `json:"k"`
		ScoreThreshold  float64                `json:"t"`
		Filters         map[string]interface{} `json:"f"`
		Model           string                 `json:"m"`
		Provider        string                 `json:"p"`
		Temperature     float64                `json:"temp"`
		MaxTokens       int                    `json:"max"`
		SystemPrompt    string                 `json:"sys"`
		IncludeMetadata bool                   `json:"meta"`
		Generation      int64                  `json:"gen"`
	}{
		req.Query, req.CollectionName, req.TopK, req.ScoreThreshold, req.Filters,
		req.Model, req.Provider, req.Temperature, req.MaxTokens, req.SystemPrompt,
		req.IncludeMetadata, generation,
	})
	sum := md5.Sum(raw)
	return "query:" + hex.EncodeToString(sum[:])
}

func (s *ragService) observe(mode string, start time.Time, err error, cached bool) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.RAGQueries.WithLabelValues(mode, status, strconv.FormatBool(cached)).Inc()
	metrics.RAGQueryDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
}

func buildUserPrompt(chunks []dto.ChunkResult, query string) string {
	blocks := make([]string, len(chunks))
	for i, c := range chunks {
		blocks[i] = fmt.Sprintf(constant.RAGContextBlockTemplate, c.DocumentName, c.Content)
	}
	return fmt.Sprintf(constant.RAGUserPromptTemplate, strings.Join(blocks, constant.RAGContextSeparator), query)
}

func toChunkResult(p vectorstore.ScoredPoint, includeMetadata bool) dto.ChunkResult {
	c := dto.ChunkResult{Score: p.Score}
	c.DocumentId, _ = p.Payload[vectorstore.PayloadDocumentID].(string)
	c.DocumentName, _ = p.Payload[vectorstore.PayloadDocumentName].(string)
	c.Content, _ = p.Payload[vectorstore.PayloadContent].(string)

	switch idx := p.Payload[vectorstore.PayloadChunkIndex].(type) {
	case int:
		c.ChunkIndex = idx
	case int64:
		c.ChunkIndex = int(idx)
	case float64:
		c.ChunkIndex = int(idx)
	}

	if includeMetadata {
		if meta, ok := p.Payload[vectorstore.PayloadMetadata].(map[string]interface{}); ok {
			c.Metadata = meta
		} else {
			c.Metadata = map[string]interface{}{}
		}
	}
	return c
}

// EstimateCost prices a generation from the per-model table. Unknown models cost 0.
func EstimateCost(model string, promptTokens, completionTokens int) float64 {
	price, ok := constant.ModelPrices[model]
	if !ok {
		return 0
	}
	return float64(promptTokens)/1000*price.Prompt + float64(completionTokens)/1000*price.Completion
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
