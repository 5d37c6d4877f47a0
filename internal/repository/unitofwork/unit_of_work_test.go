package unitofwork

import (
	"context"
	"testing"
	"time"

	"ai-platform-be/internal/constant"
	"ai-platform-be/internal/entity"
	"ai-platform-be/internal/model"
	"ai-platform-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// every pooled connection to :memory: would see its own empty database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&model.Document{}, &model.Collection{}))
	return db
}

func newDocument(userID uuid.UUID, collection, filename, status string) *entity.Document {
	return &entity.Document{
		UserId:         userID,
		CollectionName: collection,
		Filename:       filename,
		FileType:       "txt",
		FileSize:       42,
		Status:         status,
		Metadata:       map[string]interface{}{"source": "test"},
	}
}

func TestDocumentRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	uow := NewRepositoryFactory(newTestDB(t)).NewUnitOfWork(ctx)
	repo := uow.DocumentRepository()
	userID := uuid.New()

	doc := newDocument(userID, "default", "notes.txt", constant.DocumentStatusProcessing)
	require.NoError(t, repo.Create(ctx, doc))
	assert.NotEqual(t, uuid.Nil, doc.Id)
	assert.False(t, doc.CreatedAt.IsZero())

	found, err := repo.FindOne(ctx, specification.ByID{ID: doc.Id})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "notes.txt", found.Filename)
	assert.Equal(t, "test", found.Metadata["source"])

	now := time.Now()
	found.Status = constant.DocumentStatusCompleted
	found.ChunkCount = 3
	found.ProcessedAt = &now
	require.NoError(t, repo.Update(ctx, found))

	reloaded, err := repo.FindOne(ctx, specification.ByID{ID: doc.Id})
	require.NoError(t, err)
	assert.Equal(t, constant.DocumentStatusCompleted, reloaded.Status)
	assert.Equal(t, 3, reloaded.ChunkCount)
	assert.NotNil(t, reloaded.ProcessedAt)

	require.NoError(t, repo.Delete(ctx, doc.Id))
	missing, err := repo.FindOne(ctx, specification.ByID{ID: doc.Id})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDocumentRepository_FiltersAndCounts(t *testing.T) {
	ctx := context.Background()
	uow := NewRepositoryFactory(newTestDB(t)).NewUnitOfWork(ctx)
	repo := uow.DocumentRepository()
	alice, bob := uuid.New(), uuid.New()

	require.NoError(t, repo.Create(ctx, newDocument(alice, "docs", "a.txt", constant.DocumentStatusCompleted)))
	require.NoError(t, repo.Create(ctx, newDocument(alice, "docs", "b.txt", constant.DocumentStatusFailed)))
	require.NoError(t, repo.Create(ctx, newDocument(alice, "faq", "c.txt", constant.DocumentStatusCompleted)))
	require.NoError(t, repo.Create(ctx, newDocument(bob, "docs", "d.txt", constant.DocumentStatusCompleted)))

	owned, err := repo.FindAll(ctx,
		specification.DocumentOwnedByUser{UserID: alice},
		specification.ByCollectionName{CollectionName: "docs"},
		specification.OrderBy{Field: "filename"},
	)
	require.NoError(t, err)
	require.Len(t, owned, 2)
	assert.Equal(t, "a.txt", owned[0].Filename)

	page, err := repo.FindAll(ctx,
		specification.DocumentOwnedByUser{UserID: alice},
		specification.OrderBy{Field: "filename"},
		specification.Pagination{Limit: 1, Offset: 1},
	)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b.txt", page[0].Filename)

	total, err := repo.Count(ctx, specification.DocumentOwnedByUser{UserID: alice})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	counts, err := repo.CountByCollection(ctx, specification.ByStatus{Status: constant.DocumentStatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts["docs"])
	assert.Equal(t, int64(1), counts["faq"])

	require.NoError(t, repo.DeleteByCollection(ctx, "docs"))
	remaining, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), remaining)
}

func TestCollectionRepository(t *testing.T) {
	ctx := context.Background()
	uow := NewRepositoryFactory(newTestDB(t)).NewUnitOfWork(ctx)
	repo := uow.CollectionRepository()

	col := &entity.Collection{Name: "docs", VectorSize: 768, DistanceMetric: constant.DistanceMetricCosine}
	require.NoError(t, repo.Create(ctx, col))
	assert.NotEqual(t, uuid.Nil, col.Id)

	dup := &entity.Collection{Name: "docs", VectorSize: 768, DistanceMetric: constant.DistanceMetricCosine}
	assert.Error(t, repo.Create(ctx, dup))

	found, err := repo.FindOne(ctx, specification.ByName{Name: "docs"})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 768, found.VectorSize)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, repo.DeleteByName(ctx, "docs"))
	gone, err := repo.FindOne(ctx, specification.ByName{Name: "docs"})
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestUnitOfWork_Transaction(t *testing.T) {
	ctx := context.Background()
	factory := NewRepositoryFactory(newTestDB(t))
	userID := uuid.New()

	t.Run("rollback discards writes", func(t *testing.T) {
		uow := factory.NewUnitOfWork(ctx)
		require.NoError(t, uow.Begin(ctx))
		require.NoError(t, uow.DocumentRepository().Create(ctx, newDocument(userID, "tx", "gone.txt", constant.DocumentStatusProcessing)))
		require.NoError(t, uow.Rollback())

		count, err := uow.DocumentRepository().Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})

	t.Run("commit keeps writes", func(t *testing.T) {
		uow := factory.NewUnitOfWork(ctx)
		require.NoError(t, uow.Begin(ctx))
		require.NoError(t, uow.DocumentRepository().Create(ctx, newDocument(userID, "tx", "kept.txt", constant.DocumentStatusProcessing)))
		require.NoError(t, uow.Commit())

		count, err := uow.DocumentRepository().Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("double begin fails", func(t *testing.T) {
		uow := factory.NewUnitOfWork(ctx)
		require.NoError(t, uow.Begin(ctx))
		assert.Error(t, uow.Begin(ctx))
		require.NoError(t, uow.Rollback())
		assert.Error(t, uow.Commit())
	})
}
