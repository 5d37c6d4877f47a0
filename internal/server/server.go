package server

import (
	"context"
	"log"

	"ai-platform-be/internal/bootstrap"
	"ai-platform-be/internal/config"
	"ai-platform-be/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	// Upload limit plus room for the multipart envelope
	app := fiber.New(fiber.Config{
		BodyLimit: (cfg.Rag.UploadMaxSizeMB + 1) * 1024 * 1024,
	})

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CorsAllowedOrigins,
		AllowCredentials: cfg.App.CorsAllowedOrigins != "*",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Type",
	}))

	// OpenTelemetry tracing middleware (traces all HTTP requests)
	app.Use(otelfiber.Middleware())

	app.Use(serverutils.ErrorHandlerMiddleware(container.Logger))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Routes
	registerRoutes(app, cfg, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	log.Printf("✅ Server is running on http://localhost:%s", s.cfg.App.Port)
	return s.app.Listen(":" + s.cfg.App.Port)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Printf("[INFO] Shutting down, %d playground sessions open", s.container.WebSocketHub.Count())
	return s.app.ShutdownWithContext(ctx)
}

func registerRoutes(app *fiber.App, cfg *config.Config, c *bootstrap.Container) {
	// Probes stay outside auth and rate limiting
	c.HealthController.RegisterRoutes(app)

	api := app.Group("/api",
		serverutils.NewJwtMiddleware(cfg.App.JWTSecret, cfg.App.AuthDisabled),
		serverutils.RateLimitMiddleware(c.RateLimiter, c.Logger),
	)

	c.CollectionController.RegisterRoutes(api)
	c.DocumentController.RegisterRoutes(api)
	c.RAGController.RegisterRoutes(api)
	c.PlaygroundController.RegisterRoutes(api)
}
