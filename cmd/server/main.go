package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/medextract/medextract/api/internal/config"
	"github.com/medextract/medextract/api/internal/handler"
	"github.com/medextract/medextract/api/internal/middleware"
	"github.com/medextract/medextract/api/internal/pkg/database"
	"github.com/medextract/medextract/api/internal/pkg/logger"
	pgrepo "github.com/medextract/medextract/api/internal/repository/postgres"
	"github.com/medextract/medextract/api/internal/repository/rediscache"
	"github.com/medextract/medextract/api/internal/service"
	"github.com/medextract/medextract/api/internal/worker"
)

const appVersion = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.Log

	ctx := context.Background()

	// Initialize databases
	pg, err := database.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pg.Close()

	rdb, err := database.NewRedis(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Build the extraction pipeline
	lookupCache := rediscache.NewLookupCache(rdb, cfg.Cache.TTL)
	pipeline, err := service.BuildPipeline(cfg, lookupCache, log)
	if err != nil {
		log.Fatal("failed to build extraction pipeline", zap.Error(err))
	}

	// Task queue client for async extractions
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()
	enqueuer := worker.NewEnqueuer(asynqClient, cfg.Worker.QueueDefault)

	// Wire services and handlers
	extractionRepo := pgrepo.NewExtractionRepository(pg)
	extractionService := service.NewExtractionService(extractionRepo, enqueuer, pipeline, log)

	extractionsHandler := handler.NewExtractionsHandler(extractionService, log)
	healthHandler := handler.NewHealthHandler(pg.Pool, rdb.Client, appVersion)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:               "MedExtract API",
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		IdleTimeout:           120 * time.Second,
		DisableStartupMessage: cfg.Server.Env == "production",
	})

	// Apply global middleware
	app.Use(middleware.RequestID())

	loggerConfig := middleware.DefaultLoggerConfig(log)
	loggerConfig.Skip = middleware.HealthSkipper
	app.Use(middleware.NewLoggerMiddleware(loggerConfig).Handler())

	app.Use(middleware.Recover(middleware.DefaultRecoverConfig(log)))

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	app.Use(middleware.NewCORSMiddleware(corsConfig).Handler())

	app.Use(middleware.NewMetricsMiddleware(middleware.DefaultMetricsConfig()).Handler())

	// Routes
	app.Get("/health", healthHandler.Health)
	app.Get("/healthz", healthHandler.Liveness)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := app.Group("/v1")
	if cfg.Server.RateLimitPerMinute > 0 {
		rateLimitConfig := middleware.DefaultRateLimitConfig()
		rateLimitConfig.Max = cfg.Server.RateLimitPerMinute
		v1.Use(middleware.NewRateLimitMiddleware(rdb.Client, rateLimitConfig).Handler())
	}
	v1.Post("/extractions", extractionsHandler.Extract)
	v1.Post("/extractions/async", extractionsHandler.ExtractAsync)
	v1.Get("/extractions", extractionsHandler.ListExtractions)
	v1.Get("/extractions/:id", extractionsHandler.GetExtraction)
	v1.Get("/extractions/:id/fhir", extractionsHandler.GetExtractionFHIR)

	// Start server
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Info("starting server", zap.String("addr", addr))
		if err := app.Listen(addr); err != nil {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("server shutdown failed", zap.Error(err))
	}
	log.Info("server stopped")
}
