package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/driftwatch/driftwatch/internal/cache"
	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/handlers"
	"github.com/driftwatch/driftwatch/internal/logging"
	"github.com/driftwatch/driftwatch/internal/metadata"
	"github.com/driftwatch/driftwatch/internal/middleware"
	"github.com/driftwatch/driftwatch/internal/queue"
	"github.com/driftwatch/driftwatch/internal/storage"
)

// Setup configures all routes and middlewares
func Setup(app *fiber.App, logger *logging.Logger, metadataManager metadata.Manager,
	store *storage.SeriesStore, resultCache cache.ResultCache,
	publisher queue.Publisher, cfg config.Config,
) *handlers.Handler {
	h := handlers.New(logger, metadataManager, store, resultCache, publisher, cfg.Detection)
	if cfg.Queue.PublishObservations && publisher != nil {
		h.RelayObservations(publisher)
	}

	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-API-Key,X-Request-ID",
	}))
	app.Use(logging.FiberMiddleware(logger, logging.DefaultMiddlewareConfig()))

	// Health check (no auth required)
	app.Get("/health", h.Health)

	// API key authentication middleware
	authMiddleware := middleware.APIKeyAuth(logger, cfg.Auth.APIKeys, cfg.Auth.Enabled)

	// API v1 routes (protected by API key)
	v1 := app.Group("/v1", authMiddleware)

	// Dataset Management Routes
	v1.Post("/datasets", h.CreateDataset)
	v1.Get("/datasets", h.ListDatasets)
	v1.Get("/datasets/:dataset", h.GetDataset)
	v1.Delete("/datasets/:dataset", h.DeleteDataset)

	// Series Management Routes
	v1.Post("/datasets/:dataset/series", h.CreateSeries)
	v1.Get("/datasets/:dataset/series", h.ListSeries)
	v1.Get("/datasets/:dataset/series/:series", h.GetSeries)
	v1.Delete("/datasets/:dataset/series/:series", h.DeleteSeries)

	// Observation Ingestion Routes
	v1.Post("/datasets/:dataset/series/:series/observations", h.AppendObservations)

	// Detection Routes
	v1.Post("/datasets/:dataset/series/:series/detect", h.Detect)
	v1.Post("/datasets/:dataset/series/:series/sweep", h.Sweep)
	v1.Post("/datasets/:dataset/detect", h.DetectDataset)

	// Admin Routes (protected by API key)
	admin := app.Group("/admin", authMiddleware)
	admin.Get("/stats", h.Stats)

	// 404 handler
	app.Use(h.NotFound)

	return h
}

// New creates a new Fiber app with configuration
func New(logger *logging.Logger, metadataManager metadata.Manager,
	store *storage.SeriesStore, resultCache cache.ResultCache,
	publisher queue.Publisher, cfg config.Config,
) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Driftwatch Detector",
		DisableStartupMessage: true,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	Setup(app, logger, metadataManager, store, resultCache, publisher, cfg)

	return app
}
