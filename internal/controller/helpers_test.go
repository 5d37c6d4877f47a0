package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ai-platform-be/internal/model"
	"ai-platform-be/internal/pkg/serverutils"
	"ai-platform-be/internal/repository/unitofwork"
	"ai-platform-be/internal/service"
	internalWS "ai-platform-be/internal/websocket"
	"ai-platform-be/pkg/cache"
	"ai-platform-be/pkg/embedding"
	"ai-platform-be/pkg/events"
	"ai-platform-be/pkg/llm/factory"
	"ai-platform-be/pkg/vectorstore"

	"github.com/gofiber/fiber/v2"
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

type discardPublisher struct{}

func (discardPublisher) Publish(ctx context.Context, event events.Event) error { return nil }

type envelope struct {
	Success bool            `json:"success"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// newTestApp serves every controller on /api with auth disabled.
func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.Document{}, &model.Collection{}))

	uowFactory := unitofwork.NewRepositoryFactory(db)
	store := vectorstore.NewMemoryStore()
	embedder := embedding.NewMockProvider(32)
	registry, err := factory.NewRegistry(factory.Settings{})
	require.NoError(t, err)

	collections := service.NewCollectionService(uowFactory, store, embedder, discardPublisher{}, nopLogger{})
	documents := service.NewDocumentService(uowFactory, collections, store, embedder, discardPublisher{},
		service.DocumentSettings{MaxUploadBytes: 1 << 20, ChunkSize: 50, ChunkOverlap: 10}, nopLogger{})
	rag := service.NewRAGService(registry, embedder, store, cache.NewMemoryStore("rag", time.Minute),
		service.RAGSettings{CacheTTL: time.Minute}, nopLogger{})
	playground := service.NewPlaygroundService(registry, nopLogger{})
	health := service.NewHealthService("test", "test", map[string]service.HealthCheck{
		"database": func(ctx context.Context) error { return sqlDB.PingContext(ctx) },
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := internalWS.NewHub(nopLogger{})
	go hub.Run(ctx)

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware(nopLogger{}))
	NewHealthController(health).RegisterRoutes(app)

	api := app.Group("/api", serverutils.NewJwtMiddleware("", true))
	NewCollectionController(collections).RegisterRoutes(api)
	NewDocumentController(documents).RegisterRoutes(api)
	NewRAGController(rag, nopLogger{}).RegisterRoutes(api)
	NewPlaygroundController(playground, hub, registry.DefaultKey(), "", nopLogger{}).RegisterRoutes(api)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return send(t, app, req)
}

func send(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, envelope) {
	t.Helper()

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out envelope
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func uploadRequest(t *testing.T, path, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}
