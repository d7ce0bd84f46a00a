package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/driftwatch/driftwatch/internal/cache"
	"github.com/driftwatch/driftwatch/internal/config"
	"github.com/driftwatch/driftwatch/internal/ingest"
	"github.com/driftwatch/driftwatch/internal/logging"
	"github.com/driftwatch/driftwatch/internal/metadata"
	"github.com/driftwatch/driftwatch/internal/queue"
	"github.com/driftwatch/driftwatch/internal/router"
	"github.com/driftwatch/driftwatch/internal/services"
	"github.com/driftwatch/driftwatch/internal/storage"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	logger.Info("Detector service starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime)

	// Setup etcd metadata manager
	logger.Info("Connecting to etcd", "endpoints", cfg.Etcd.Endpoints)
	metadataManager, err := metadata.NewEtcdManager(cfg.Etcd.Endpoints)
	if err != nil {
		logger.Fatal("Failed to connect to etcd", "error", err)
	}
	defer func() { _ = metadataManager.Close() }()
	logger.Info("Metadata manager initialized with built-in cache")

	// Observation store
	store := storage.NewSeriesStore(storage.DefaultSegmentSize, logger)

	// Connect to Queue (configurable backend)
	logger.Info("Connecting to Queue", "type", cfg.Queue.Type, "url", cfg.Queue.URL)
	queueClient, err := queue.NewQueue(cfg.Queue)
	if err != nil {
		logger.Fatal("Failed to connect to Queue", "error", err)
	}
	defer func() { _ = queueClient.Close() }()
	logger.Info("Queue connection established")

	// Detection result cache
	resultCache, err := cache.New(cfg.Cache, cfg.Detection.CacheTTL)
	if err != nil {
		logger.Fatal("Failed to initialize result cache", "error", err)
	}
	defer func() { _ = resultCache.Close() }()
	logger.Info("Result cache initialized", "type", cfg.Cache.Type)

	// Log authentication status
	if cfg.Auth.Enabled {
		logger.Info("API key authentication enabled", "num_keys", len(cfg.Auth.APIKeys))
	} else {
		logger.Warn("API key authentication DISABLED - all requests will be allowed")
	}

	// Initialize router
	app := router.New(logger, metadataManager, store, resultCache, queueClient, *cfg)

	// Create context for background services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start ingest consumer for queued observation batches
	seriesService := services.NewSeriesService(logger, metadataManager, store)
	detectionService := services.NewDetectionService(logger, metadataManager, store,
		resultCache, queueClient, cfg.Detection)
	consumer := ingest.NewConsumer(logger, queueClient, metadataManager,
		seriesService, detectionService, cfg.Detection.PublishTriggers)
	if err := consumer.Start(ctx); err != nil {
		logger.Fatal("Failed to start ingest consumer", "error", err)
	}

	// Start server in goroutine
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort)
		logger.Info("Server listening", "address", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	if err := consumer.Stop(); err != nil {
		logger.Error("Failed to stop ingest consumer", "error", err)
	}

	// Graceful shutdown with 10 second timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
