package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/api"
	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/config"
	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/domain"
	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/export"
	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/metrics"
	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/query"
	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/service"
	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/setup"
)

func main() {
	// Load configuration
	var opts []config.Option
	if path := os.Getenv("PDQ_CONFIG_FILE"); path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}
	configManager, err := config.NewManager(opts...)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := config.NewLogger(cfg.Logging, os.Stdout)
	pipeline := service.NewPipeline(logger, configManager.GetEngineConfig())

	// Check for setup subcommand
	if len(os.Args) > 1 && os.Args[1] == "check" {
		dryRun := func(ctx context.Context) (*domain.Snapshot, error) {
			return service.NewEngine(logger, *configManager.GetInputsConfig(), pipeline).Reload(ctx)
		}
		if err := setup.NewCLI(configManager, dryRun, os.Stdout).Run(context.Background(), os.Args[2:]); err != nil {
			log.Fatalf("Check failed: %v", err)
		}
		return
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initial load; a failure here leaves the API serving 503 until a reload succeeds
	m := metrics.New()
	engine := service.NewEngine(logger, *configManager.GetInputsConfig(), pipeline, service.WithMetrics(m))
	if _, err := engine.Reload(ctx); err != nil {
		logger.WithError(err).Error("Initial load failed")
	}

	router, err := query.NewRouter(logger, engine, query.RouterConfig{
		DefaultWindowDays: cfg.Engine.ExpirationWindowDays,
		CacheSize:         cfg.Cache.MaxItems,
		Metrics:           m,
	})
	if err != nil {
		log.Fatalf("Failed to create query router: %v", err)
	}

	store, err := export.NewSQLiteStore(cfg.Export.DBPath)
	if err != nil {
		log.Fatalf("Failed to open export store: %v", err)
	}
	defer store.Close()

	logger.Infof("Starting provider quality API on %s:%d", cfg.Server.Host, cfg.Server.Port)

	// Create server
	server := api.NewServer(configManager, logger, engine, router, store, api.WithMetrics(m))

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Start server
	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server failed")
		return
	}

	logger.Info("Server stopped")
}
