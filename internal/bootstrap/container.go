package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"ai-platform-be/internal/config"
	"ai-platform-be/internal/constant"
	"ai-platform-be/internal/controller"
	"ai-platform-be/internal/pkg/logger"
	"ai-platform-be/internal/repository/unitofwork"
	"ai-platform-be/internal/service"
	"ai-platform-be/internal/websocket"
	"ai-platform-be/pkg/cache"
	"ai-platform-be/pkg/database"
	"ai-platform-be/pkg/events"
	embeddingFactory "ai-platform-be/pkg/embedding/factory"
	llmFactory "ai-platform-be/pkg/llm/factory"
	"ai-platform-be/pkg/ratelimit"
	"ai-platform-be/pkg/vectorstore"

	pktNats "ai-platform-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const eventTopic = "rag.events"

type Container struct {
	// Controllers
	CollectionController controller.ICollectionController
	DocumentController   controller.IDocumentController
	RAGController        controller.IRAGController
	PlaygroundController controller.IPlaygroundController
	HealthController     controller.IHealthController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	WebSocketHub    *websocket.Hub
	NatsSubscriber  *pktNats.Subscriber

	RateLimiter *ratelimit.Limiter
	Logger      logger.ILogger
	InstanceID  string

	closers []func()
}

func NewContainer(db *gorm.DB, cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	instanceID := uuid.NewString()

	c := &Container{Logger: sysLogger, InstanceID: instanceID}

	// 2. Cache (Redis, falling back to process memory)
	ragCacheTTL := time.Duration(cfg.Rag.CacheTTLSeconds) * time.Second
	var rdb *redis.Client
	var baseCache cache.Store
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb = redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	pingErr := rdb.Ping(pingCtx).Err()
	cancel()
	if pingErr != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Using in-memory cache", pingErr)
		rdb.Close()
		rdb = nil
		baseCache = cache.NewMemoryStore(constant.CacheNamespaceRAG, ragCacheTTL)
	} else {
		log.Printf("[INFO] Connected to Redis at %s", opt.Addr)
		baseCache = cache.NewRedisStore(rdb, constant.CacheNamespaceRAG, ragCacheTTL)
		c.closers = append(c.closers, func() { rdb.Close() })
	}
	ragCache := baseCache.WithPrefix(constant.CacheNamespaceRAG)
	llmCache := baseCache.WithPrefix(constant.CacheNamespaceLLM)
	embCache := baseCache.WithPrefix(constant.CacheNamespaceEmbedding)
	limitCache := baseCache.WithPrefix(constant.CacheNamespaceRateLimit)

	// 3. Vector Store
	var store vectorstore.Store
	switch cfg.VectorStore.Backend {
	case "pgvector":
		store = vectorstore.NewPgVectorStore(db)
	case "memory":
		store = vectorstore.NewMemoryStore()
	case "qdrant", "":
		store = vectorstore.NewQdrantStore(cfg.VectorStore.QdrantURL, cfg.VectorStore.QdrantAPIKey)
	default:
		return nil, fmt.Errorf("unsupported vector store: %s", cfg.VectorStore.Backend)
	}
	log.Printf("[INFO] Using Vector Store: %s", cfg.VectorStore.Backend)

	// 4. AI Providers
	embedder, err := embeddingFactory.NewEmbeddingProvider(embeddingFactory.Settings{
		Provider:      cfg.Ai.EmbeddingProvider,
		Dimension:     cfg.Ai.EmbeddingDimension,
		GeminiAPIKey:  cfg.Keys.GoogleGemini,
		OpenAIAPIKey:  cfg.Keys.OpenAI,
		JinaAPIKey:    cfg.Keys.Jina,
		OllamaBaseURL: cfg.Ai.OllamaBaseURL,
		OllamaModel:   cfg.Ai.OllamaEmbeddingModel,
		Cache:         embCache,
		CacheTTL:      ragCacheTTL,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] Using Embedding Provider: %s (%d dims)", embedder.Name(), embedder.Dimension())

	registry, err := llmFactory.NewRegistry(llmFactory.Settings{
		DefaultProvider:   cfg.Ai.LLMProvider,
		GeminiAPIKey:      cfg.Keys.GoogleGemini,
		OpenAIAPIKey:      cfg.Keys.OpenAI,
		AnthropicAPIKey:   cfg.Keys.Anthropic,
		HuggingFaceAPIKey: cfg.Keys.HuggingFace,
		OllamaBaseURL:     cfg.Ai.OllamaBaseURL,
		OllamaModel:       cfg.Ai.OllamaModel,
		MockLatency:       time.Duration(cfg.Ai.MockLatencyMs) * time.Millisecond,
		Cache:             llmCache,
		CacheTTL:          time.Duration(cfg.Rag.LLMCacheTTL) * time.Second,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", registry.DefaultKey(), cfg.Ai.LLMModel)

	// 5. Event Bus (in-process, mirrored to NATS when reachable)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	c.closers = append(c.closers, func() { pubSub.Close() })

	var mirror events.Publisher
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, instanceID)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	} else {
		mirror = natsPub
		c.closers = append(c.closers, natsPub.Close)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	} else {
		c.NatsSubscriber = natsSub
		c.closers = append(c.closers, natsSub.Close)
	}

	// 6. Services
	publisherService := service.NewPublisherService(eventTopic, pubSub, mirror, instanceID, sysLogger)
	c.ConsumerService = service.NewConsumerService(pubSub, eventTopic, ragCache, instanceID, sysLogger)

	collectionService := service.NewCollectionService(uowFactory, store, embedder, publisherService, sysLogger)
	documentService := service.NewDocumentService(uowFactory, collectionService, store, embedder, publisherService,
		service.DocumentSettings{
			MaxUploadBytes: int64(cfg.Rag.UploadMaxSizeMB) << 20,
			ChunkSize:      cfg.Rag.ChunkSize,
			ChunkOverlap:   cfg.Rag.ChunkOverlap,
		}, sysLogger)
	ragService := service.NewRAGService(registry, embedder, store, ragCache,
		service.RAGSettings{
			CacheTTL:        ragCacheTTL,
			DefaultProvider: registry.DefaultKey(),
			DefaultModel:    cfg.Ai.LLMModel,
		}, sysLogger)
	playgroundService := service.NewPlaygroundService(registry, sysLogger)

	checks := map[string]service.HealthCheck{
		"database": func(ctx context.Context) error { return database.Ping(db.WithContext(ctx)) },
		"redis":    baseCache.Ping,
		"vector_store": func(ctx context.Context) error {
			_, err := store.ListCollections(ctx)
			return err
		},
	}
	healthService := service.NewHealthService(cfg.App.Version, cfg.App.Environment, checks)

	c.RateLimiter = ratelimit.NewLimiter(limitCache, cfg.RateLimit.Requests,
		time.Duration(cfg.RateLimit.PeriodSeconds)*time.Second)

	// WebSocket Hub
	c.WebSocketHub = websocket.NewHub(sysLogger)

	// 7. Controllers
	c.CollectionController = controller.NewCollectionController(collectionService)
	c.DocumentController = controller.NewDocumentController(documentService)
	c.RAGController = controller.NewRAGController(ragService, sysLogger)
	c.PlaygroundController = controller.NewPlaygroundController(playgroundService, c.WebSocketHub,
		registry.DefaultKey(), cfg.Ai.LLMModel, sysLogger)
	c.HealthController = controller.NewHealthController(healthService)

	return c, nil
}

// Start launches the background workers. They stop when ctx is done.
func (c *Container) Start(ctx context.Context) error {
	go c.WebSocketHub.Run(ctx)

	if err := c.ConsumerService.Consume(ctx); err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}

	if c.NatsSubscriber != nil {
		// one durable per instance so every replica sees every event
		durable := "rag-cache-" + c.InstanceID
		if err := c.NatsSubscriber.Subscribe(ctx, pktNats.SubjectPrefix+">", durable, c.ConsumerService.HandleRemote); err != nil {
			log.Printf("[WARN] NATS cache invalidation disabled: %v", err)
		}
	}
	return nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.Logger.Sync()
}
