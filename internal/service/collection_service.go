package service

import (
	"context"
	"sort"
	"strings"

	"ai-platform-be/internal/constant"
	"ai-platform-be/internal/dto"
	"ai-platform-be/internal/entity"
	"ai-platform-be/internal/pkg/apperror"
	"ai-platform-be/internal/pkg/logger"
	"ai-platform-be/internal/repository/specification"
	"ai-platform-be/internal/repository/unitofwork"
	"ai-platform-be/pkg/embedding"
	"ai-platform-be/pkg/events"
	"ai-platform-be/pkg/vectorstore"
)

type ICollectionService interface {
	Create(ctx context.Context, req *dto.CreateCollectionRequest) (*dto.CollectionResponse, error)
	List(ctx context.Context) (*dto.CollectionListResponse, error)
	Delete(ctx context.Context, name string) error
	// Exists reports whether name is a known collection, in the registry or
	// in the vector store.
	Exists(ctx context.Context, name string) (bool, error)
}

type collectionService struct {
	uowFactory       unitofwork.RepositoryFactory
	vectorStore      vectorstore.Store
	embedder         embedding.EmbeddingProvider
	publisherService IPublisherService
	logger           logger.ILogger
}

func NewCollectionService(
	uowFactory unitofwork.RepositoryFactory,
	vectorStore vectorstore.Store,
	embedder embedding.EmbeddingProvider,
	publisherService IPublisherService,
	log logger.ILogger,
) ICollectionService {
	return &collectionService{
		uowFactory:       uowFactory,
		vectorStore:      vectorStore,
		embedder:         embedder,
		publisherService: publisherService,
		logger:           log,
	}
}

func (s *collectionService) Create(ctx context.Context, req *dto.CreateCollectionRequest) (*dto.CollectionResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.New(apperror.ErrValidation, "collection name is required")
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	existing, err := uow.CollectionRepository().FindOne(ctx, specification.ByName{Name: name})
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.Newf(apperror.ErrAlreadyExists, "collection %s already exists", name)
	}

	if err := s.vectorStore.CreateCollection(ctx, name, s.embedder.Dimension()); err != nil {
		return nil, err
	}

	col := &entity.Collection{
		Name:           name,
		Description:    req.Description,
		EmbeddingModel: req.EmbeddingModel,
		DistanceMetric: req.DistanceMetric,
		VectorSize:     s.embedder.Dimension(),
	}
	if col.EmbeddingModel == "" {
		col.EmbeddingModel = s.embedder.Name()
	}
	if col.DistanceMetric == "" {
		col.DistanceMetric = constant.DistanceMetricCosine
	}

	if err := uow.CollectionRepository().Create(ctx, col); err != nil {
		s.logger.Error("COLLECTION", "Registry insert failed after store create", map[string]interface{}{
			"collection": name,
			"error":      err.Error(),
		})
		return nil, err
	}

	s.logger.Info("COLLECTION", "Collection created", map[string]interface{}{
		"collection":  name,
		"vector_size": col.VectorSize,
	})

	return &dto.CollectionResponse{
		Name:           col.Name,
		Description:    col.Description,
		VectorSize:     col.VectorSize,
		EmbeddingModel: col.EmbeddingModel,
		DistanceMetric: col.DistanceMetric,
		CreatedAt:      col.CreatedAt,
	}, nil
}

func (s *collectionService) List(ctx context.Context) (*dto.CollectionListResponse, error) {
	infos, err := s.vectorStore.ListCollections(ctx)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	registered, err := uow.CollectionRepository().FindAll(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*entity.Collection, len(registered))
	for _, c := range registered {
		byName[c.Name] = c
	}

	docCounts, err := uow.DocumentRepository().CountByCollection(ctx,
		specification.ByStatus{Status: constant.DocumentStatusCompleted},
	)
	if err != nil {
		return nil, err
	}

	items := make([]dto.CollectionResponse, 0, len(infos))
	for _, info := range infos {
		item := dto.CollectionResponse{
			Name:           info.Name,
			DocumentCount:  docCounts[info.Name],
			ChunkCount:     info.PointsCount,
			VectorSize:     info.VectorSize,
			EmbeddingModel: s.embedder.Name(),
			DistanceMetric: constant.DistanceMetricCosine,
		}
		if reg, ok := byName[info.Name]; ok {
			item.Description = reg.Description
			item.EmbeddingModel = reg.EmbeddingModel
			item.DistanceMetric = reg.DistanceMetric
			item.CreatedAt = reg.CreatedAt
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })

	return &dto.CollectionListResponse{Items: items, Total: len(items)}, nil
}

func (s *collectionService) Delete(ctx context.Context, name string) error {
	exists, err := s.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return apperror.Newf(apperror.ErrNotFound, "collection %s not found", name)
	}

	if err := s.vectorStore.DeleteCollection(ctx, name); err != nil {
		return err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.DocumentRepository().DeleteByCollection(ctx, name); err != nil {
		return err
	}
	if err := uow.CollectionRepository().DeleteByName(ctx, name); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	s.logger.Info("COLLECTION", "Collection deleted", map[string]interface{}{"collection": name})

	evt := events.New(events.CollectionDeleted, map[string]interface{}{
		events.KeyCollectionName: name,
	})
	if err := s.publisherService.Publish(ctx, evt); err != nil {
		s.logger.Warn("COLLECTION", "Failed to publish collection.deleted", map[string]interface{}{"error": err.Error()})
	}
	return nil
}

func (s *collectionService) Exists(ctx context.Context, name string) (bool, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	col, err := uow.CollectionRepository().FindOne(ctx, specification.ByName{Name: name})
	if err != nil {
		return false, err
	}
	if col != nil {
		return true, nil
	}

	// collections created directly in the vector store have no registry row
	infos, err := s.vectorStore.ListCollections(ctx)
	if err != nil {
		return false, err
	}
	for _, info := range infos {
		if info.Name == name {
			return true, nil
		}
	}
	return false, nil
}

