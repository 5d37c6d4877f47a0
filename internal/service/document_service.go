package service

import (
	"context"
	"fmt"
	"os"
	"time"

	"ai-platform-be/internal/constant"
	"ai-platform-be/internal/dto"
	"ai-platform-be/internal/entity"
	"ai-platform-be/internal/pkg/apperror"
	"ai-platform-be/internal/pkg/logger"
	"ai-platform-be/internal/repository/specification"
	"ai-platform-be/internal/repository/unitofwork"
	"ai-platform-be/pkg/chunker"
	"ai-platform-be/pkg/embedding"
	"ai-platform-be/pkg/events"
	"ai-platform-be/pkg/extract"
	"ai-platform-be/pkg/metrics"
	"ai-platform-be/pkg/vectorstore"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type IDocumentService interface {
	// Process ingests one upload. On a pipeline failure the failed document is
	// returned together with the error.
	Process(ctx context.Context, input dto.ProcessDocumentInput) (*dto.DocumentResponse, error)
	List(ctx context.Context, userId uuid.UUID, req dto.ListDocumentsRequest) (*dto.DocumentListResponse, error)
	Get(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.DocumentResponse, error)
	Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error
}

type DocumentSettings struct {
	MaxUploadBytes int64
	ChunkSize      int
	ChunkOverlap   int
}

type documentService struct {
	uowFactory        unitofwork.RepositoryFactory
	collectionService ICollectionService
	vectorStore       vectorstore.Store
	embedder          embedding.EmbeddingProvider
	publisherService  IPublisherService
	settings          DocumentSettings
	logger            logger.ILogger
}

func NewDocumentService(
	uowFactory unitofwork.RepositoryFactory,
	collectionService ICollectionService,
	vectorStore vectorstore.Store,
	embedder embedding.EmbeddingProvider,
	publisherService IPublisherService,
	settings DocumentSettings,
	log logger.ILogger,
) IDocumentService {
	if settings.ChunkSize <= 0 {
		settings.ChunkSize = chunker.DefaultChunkSize
	}
	if settings.ChunkOverlap < 0 {
		settings.ChunkOverlap = chunker.DefaultChunkOverlap
	}
	return &documentService{
		uowFactory:        uowFactory,
		collectionService: collectionService,
		vectorStore:       vectorStore,
		embedder:          embedder,
		publisherService:  publisherService,
		settings:          settings,
		logger:            log,
	}
}

func (s *documentService) Process(ctx context.Context, input dto.ProcessDocumentInput) (*dto.DocumentResponse, error) {
	ctx, span := otel.Tracer("ai-platform-be/ingest").Start(ctx, "DocumentService.Process")
	defer span.End()

	size := int64(len(input.FileBytes))
	if s.settings.MaxUploadBytes > 0 && size > s.settings.MaxUploadBytes {
		return nil, apperror.Newf(apperror.ErrPayloadTooLarge,
			"file size %d exceeds limit of %d bytes", size, s.settings.MaxUploadBytes)
	}

	fileType := extract.DetectType(input.Filename, input.ContentType)
	span.SetAttributes(
		attribute.String("collection", input.CollectionName),
		attribute.String("file_type", fileType),
		attribute.Int64("file_size", size),
	)

	exists, err := s.collectionService.Exists(ctx, input.CollectionName)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperror.Newf(apperror.ErrNotFound, "collection %s not found", input.CollectionName)
	}

	metadata := input.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	doc := &entity.Document{
		UserId:         input.UserId,
		CollectionName: input.CollectionName,
		Filename:       input.Filename,
		FileType:       fileType,
		FileSize:       size,
		ContentType:    input.ContentType,
		Status:         constant.DocumentStatusProcessing,
		Metadata:       metadata,
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.DocumentRepository().Create(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("INGEST", "Processing document", map[string]interface{}{
		"document_id": doc.Id.String(),
		"collection":  doc.CollectionName,
		"file_type":   fileType,
		"size":        size,
	})

	chunkCount, tokenCount, pipeErr := s.runPipeline(ctx, doc, input.FileBytes)

	now := time.Now()
	if pipeErr != nil {
		doc.Status = constant.DocumentStatusFailed
		doc.ErrorMessage = pipeErr.Error()
		span.RecordError(pipeErr)
		span.SetStatus(codes.Error, pipeErr.Error())
	} else {
		doc.Status = constant.DocumentStatusCompleted
		doc.ChunkCount = chunkCount
		doc.TokenCount = tokenCount
		doc.ProcessedAt = &now
	}

	if err := uow.DocumentRepository().Update(ctx, doc); err != nil {
		return nil, err
	}

	metrics.DocumentsIngested.WithLabelValues(fileType, doc.Status).Inc()
	s.publishTerminal(ctx, doc)

	if pipeErr != nil {
		s.logger.Error("INGEST", "Document processing failed", map[string]interface{}{
			"document_id": doc.Id.String(),
			"error":       pipeErr.Error(),
		})
		return toDocumentResponse(doc), pipeErr
	}

	metrics.ChunksIngested.Add(float64(chunkCount))
	s.logger.Info("INGEST", "Document processed", map[string]interface{}{
		"document_id": doc.Id.String(),
		"chunks":      chunkCount,
		"tokens":      tokenCount,
	})
	return toDocumentResponse(doc), nil
}

// runPipeline covers extraction through upsert. It returns chunk and word counts.
func (s *documentService) runPipeline(ctx context.Context, doc *entity.Document, data []byte) (int, int, error) {
	tmp, err := os.CreateTemp("", "upload-*."+doc.FileType)
	if err != nil {
		return 0, 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		return 0, 0, fmt.Errorf("write temp file: %w", writeErr)
	}
	if closeErr != nil {
		return 0, 0, fmt.Errorf("close temp file: %w", closeErr)
	}

	text, err := extract.File(tmpPath, doc.FileType)
	if err != nil {
		return 0, 0, err
	}

	tokenCount := chunker.CountWords(text)
	if tokenCount == 0 {
		return 0, 0, apperror.New(apperror.ErrExtractionFailed, "no text content extracted")
	}

	chunks, err := chunker.Split(text, doc.Id.String(), doc.Filename, s.settings.ChunkSize, s.settings.ChunkOverlap)
	if err != nil {
		return 0, 0, err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, 0, err
	}
	if len(vectors) != len(chunks) {
		return 0, 0, embedding.CountMismatch(s.embedder.Name(), len(chunks), len(vectors))
	}

	points := make([]vectorstore.Point, len(chunks))
	for i, c := range chunks {
		points[i] = vectorstore.Point{
			ID:     vectorstore.PointID(c.DocumentID, c.ChunkIndex),
			Vector: vectors[i],
			Payload: map[string]interface{}{
				vectorstore.PayloadContent:      c.Content,
				vectorstore.PayloadDocumentID:   c.DocumentID,
				vectorstore.PayloadDocumentName: c.DocumentName,
				vectorstore.PayloadChunkIndex:   c.ChunkIndex,
				vectorstore.PayloadMetadata:     mergeMetadata(doc.Metadata, c.Metadata),
			},
		}
	}

	if err := s.vectorStore.Upsert(ctx, doc.CollectionName, points); err != nil {
		return 0, 0, err
	}

	return len(chunks), tokenCount, nil
}

// mergeMetadata layers chunk metadata over the document's; chunk keys win.
func mergeMetadata(document, chunk map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(document)+len(chunk))
	for k, v := range document {
		merged[k] = v
	}
	for k, v := range chunk {
		merged[k] = v
	}
	return merged
}

func (s *documentService) publishTerminal(ctx context.Context, doc *entity.Document) {
	eventType := events.DocumentIngested
	data := map[string]interface{}{
		events.KeyCollectionName: doc.CollectionName,
		events.KeyDocumentID:     doc.Id.String(),
		events.KeyUserID:         doc.UserId.String(),
		events.KeyChunkCount:     doc.ChunkCount,
	}
	if doc.Status == constant.DocumentStatusFailed {
		eventType = events.DocumentFailed
		data[events.KeyError] = doc.ErrorMessage
	}

	if err := s.publisherService.Publish(ctx, events.New(eventType, data)); err != nil {
		s.logger.Warn("INGEST", "Failed to publish "+eventType, map[string]interface{}{"error": err.Error()})
	}
}

func (s *documentService) List(ctx context.Context, userId uuid.UUID, req dto.ListDocumentsRequest) (*dto.DocumentListResponse, error) {
	page := req.Page
	if page < 1 {
		page = constant.DefaultPage
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = constant.DefaultPageSize
	}
	if pageSize > constant.MaxPageSize {
		pageSize = constant.MaxPageSize
	}

	filters := []specification.Specification{
		specification.DocumentOwnedByUser{UserID: userId},
	}
	if req.CollectionName != "" {
		filters = append(filters, specification.ByCollectionName{CollectionName: req.CollectionName})
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	total, err := uow.DocumentRepository().Count(ctx, filters...)
	if err != nil {
		return nil, err
	}

	specs := append(filters,
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: pageSize, Offset: (page - 1) * pageSize},
	)
	docs, err := uow.DocumentRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	items := make([]dto.DocumentResponse, 0, len(docs))
	for _, d := range docs {
		items = append(items, *toDocumentResponse(d))
	}

	return &dto.DocumentListResponse{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (s *documentService) Get(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.DocumentResponse, error) {
	doc, err := s.findOwned(ctx, userId, id)
	if err != nil {
		return nil, err
	}
	return toDocumentResponse(doc), nil
}

func (s *documentService) Delete(ctx context.Context, userId uuid.UUID, id uuid.UUID) error {
	doc, err := s.findOwned(ctx, userId, id)
	if err != nil {
		return err
	}

	if err := s.vectorStore.DeleteByDocument(ctx, doc.CollectionName, doc.Id.String()); err != nil {
		return err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.DocumentRepository().Delete(ctx, doc.Id); err != nil {
		return err
	}

	s.logger.Info("INGEST", "Document deleted", map[string]interface{}{
		"document_id": doc.Id.String(),
		"collection":  doc.CollectionName,
	})

	evt := events.New(events.DocumentDeleted, map[string]interface{}{
		events.KeyCollectionName: doc.CollectionName,
		events.KeyDocumentID:     doc.Id.String(),
		events.KeyUserID:         doc.UserId.String(),
	})
	if err := s.publisherService.Publish(ctx, evt); err != nil {
		s.logger.Warn("INGEST", "Failed to publish document.deleted", map[string]interface{}{"error": err.Error()})
	}
	return nil
}

func (s *documentService) findOwned(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*entity.Document, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	doc, err := uow.DocumentRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.DocumentOwnedByUser{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, apperror.New(apperror.ErrNotFound, "document not found")
	}
	return doc, nil
}

func toDocumentResponse(d *entity.Document) *dto.DocumentResponse {
	return &dto.DocumentResponse{
		Id:             d.Id,
		Name:           d.Filename,
		CollectionName: d.CollectionName,
		FileType:       d.FileType,
		FileSize:       d.FileSize,
		Status:         d.Status,
		ChunkCount:     d.ChunkCount,
		TokenCount:     d.TokenCount,
		ErrorMessage:   d.ErrorMessage,
		Metadata:       d.Metadata,
		CreatedAt:      d.CreatedAt,
		ProcessedAt:    d.ProcessedAt,
	}
}
