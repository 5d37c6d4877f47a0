package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"ai-platform-be/internal/model"
	"ai-platform-be/internal/repository/unitofwork"
	"ai-platform-be/pkg/cache"
	"ai-platform-be/pkg/embedding"
	"ai-platform-be/pkg/events"
	"ai-platform-be/pkg/llm/factory"
	"ai-platform-be/pkg/vectorstore"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

func (p *recordingPublisher) Last() events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return nil
	}
	return p.events[len(p.events)-1]
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&model.Document{}, &model.Collection{}))
	return db
}

// fixture wires the services against in-memory backends.
type fixture struct {
	db          *gorm.DB
	uowFactory  unitofwork.RepositoryFactory
	store       *vectorstore.MemoryStore
	embedder    embedding.EmbeddingProvider
	ragCache    cache.Store
	registry    *factory.Registry
	publisher   *recordingPublisher
	collections ICollectionService
	documents   IDocumentService
	rag         IRAGService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := newTestDB(t)
	f := &fixture{
		db:         db,
		uowFactory: unitofwork.NewRepositoryFactory(db),
		store:      vectorstore.NewMemoryStore(),
		embedder:   embedding.NewMockProvider(64),
		ragCache:   cache.NewMemoryStore("rag", time.Minute),
		publisher:  &recordingPublisher{},
	}

	registry, err := factory.NewRegistry(factory.Settings{DefaultProvider: "mock"})
	require.NoError(t, err)
	f.registry = registry

	f.collections = NewCollectionService(f.uowFactory, f.store, f.embedder, f.publisher, nopLogger{})
	f.documents = NewDocumentService(f.uowFactory, f.collections, f.store, f.embedder, f.publisher,
		DocumentSettings{MaxUploadBytes: 1 << 20, ChunkSize: 20, ChunkOverlap: 5}, nopLogger{})
	f.rag = NewRAGService(f.registry, f.embedder, f.store, f.ragCache,
		RAGSettings{CacheTTL: time.Minute}, nopLogger{})
	return f
}
