package main

import (
	"context"
	"log"
	"os"

	"github.com/gorilla/mux"

	"github.com/querylens/querylens/pkg/api"
	"github.com/querylens/querylens/pkg/cache"
	"github.com/querylens/querylens/pkg/config"
	"github.com/querylens/querylens/pkg/connections"
	"github.com/querylens/querylens/pkg/datasets"
	"github.com/querylens/querylens/pkg/errortracking"
	"github.com/querylens/querylens/pkg/executor"
	"github.com/querylens/querylens/pkg/invalidation"
	"github.com/querylens/querylens/pkg/logger"
	"github.com/querylens/querylens/pkg/metastore"
	"github.com/querylens/querylens/pkg/metrics"
	"github.com/querylens/querylens/pkg/middleware"
	"github.com/querylens/querylens/pkg/server"
	"github.com/querylens/querylens/pkg/tracing"
	"github.com/querylens/querylens/pkg/translator"
)

func main() {
	// Load configuration
	cfgMgr := config.NewManager()
	if err := cfgMgr.Load(); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	cfg, err := cfgMgr.GetConfig()
	if err != nil {
		log.Fatalf("Failed to get configuration: %v", err)
	}

	// Initialize logger with configuration
	logger.Init(cfg.Logger.Dev)
	if cfg.Logger.Path != "" {
		logger.UpdateLoggerPath(cfg.Logger.Path, cfg.Logger.Dev)
	}
	logger.Info("QueryLens server starting")

	// Error tracking
	tracker, err := errortracking.NewProviderFromConfig(cfg.ErrorTracking)
	if err != nil {
		logger.Error("Failed to initialize error tracking: %v", err)
		os.Exit(1)
	}
	logger.InitErrorTracking(tracker)
	defer func() {
		if closeErr := logger.CloseErrorTracking(); closeErr != nil {
			logger.Warn("Failed to close error tracking: %v", closeErr)
		}
	}()

	// Tracing
	shutdownTracing, err := tracing.InitFromConfig(cfg.Tracing)
	if err != nil {
		logger.Error("Failed to initialize tracing: %v", err)
		os.Exit(1)
	}
	server.RegisterShutdownCallback(shutdownTracing)

	ctx := context.Background()

	// Metadata store
	metaDB, err := metastore.Open(ctx, cfg.Store)
	if err != nil {
		logger.Error("Failed to open metadata store: %v", err)
		os.Exit(1)
	}
	defer metaDB.Close()

	connStore := connections.NewStore(metaDB)
	if err := connStore.Init(ctx); err != nil {
		logger.Error("Failed to initialize connections store: %v", err)
		os.Exit(1)
	}

	datasetStore := datasets.NewSQLStore(metaDB)
	if err := datasetStore.Init(ctx); err != nil {
		logger.Error("Failed to initialize datasets store: %v", err)
		os.Exit(1)
	}

	// Credential cipher
	cipher, err := connections.NewCredentialCipher(cfg.Engine.CredentialKey)
	if err != nil {
		logger.Error("Failed to initialize credential cipher: %v", err)
		os.Exit(1)
	}

	// Result cache
	resultCache, err := cache.NewFromConfig(cfg.Cache)
	if err != nil {
		logger.Error("Failed to initialize cache: %v", err)
		os.Exit(1)
	}
	server.RegisterShutdownCallback(func(context.Context) error {
		return resultCache.Close()
	})

	// Cross-instance invalidation bus
	invProvider, err := invalidation.NewProviderFromConfig(cfg.Invalidation, cfg.Cache.Redis)
	if err != nil {
		logger.Error("Failed to initialize invalidation provider: %v", err)
		os.Exit(1)
	}
	bus, err := invalidation.NewBus(invProvider, resultCache)
	if err != nil {
		logger.Error("Failed to subscribe invalidation bus: %v", err)
		os.Exit(1)
	}
	server.RegisterShutdownCallback(func(context.Context) error {
		return bus.Close()
	})

	// Query executor and widget translator
	exec := executor.New(connStore, datasetStore, cipher, executor.Options{
		Timeout: cfg.Engine.QueryTimeout,
		MaxRows: cfg.Engine.MaxRows,
	})
	widgets := translator.New(exec, resultCache, translator.NewMockSource(nil))

	// HTTP routes and middleware
	handler := api.NewHandler(exec, resultCache, widgets, bus)

	rateLimiter := middleware.NewRateLimiter(cfg.Middleware.RateLimitRPS, cfg.Middleware.RateLimitBurst)
	sizeLimiter := middleware.NewRequestSizeLimiter(cfg.Middleware.MaxRequestSize)

	middlewares := []api.MiddlewareFunc{
		middleware.PanicRecovery,
		tracing.Middleware,
	}
	if cfg.Metrics.Enabled {
		prom := metrics.NewPrometheusProvider()
		metrics.SetProvider(prom)
		middlewares = append(middlewares, prom.Middleware)
	}
	middlewares = append(middlewares, rateLimiter.Middleware, sizeLimiter.Middleware)

	router := mux.NewRouter()
	api.SetupMuxRoutes(router, handler, middlewares...)

	srv, err := server.NewGracefulServer(server.FromServerConfig(cfg.Server, router))
	if err != nil {
		logger.Error("Failed to create server: %v", err)
		os.Exit(1)
	}

	if err := srv.ListenAndServe(); err != nil {
		logger.Error("Server error: %v", err)
		os.Exit(1)
	}
}
