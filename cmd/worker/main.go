package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/medextract/medextract/api/internal/config"
	"github.com/medextract/medextract/api/internal/pkg/database"
	"github.com/medextract/medextract/api/internal/pkg/logger"
	pgrepo "github.com/medextract/medextract/api/internal/repository/postgres"
	"github.com/medextract/medextract/api/internal/repository/rediscache"
	"github.com/medextract/medextract/api/internal/service"
	"github.com/medextract/medextract/api/internal/worker"
)

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

	log.Info("starting worker service")

	ctx := context.Background()

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

	lookupCache := rediscache.NewLookupCache(rdb, cfg.Cache.TTL)
	pipeline, err := service.BuildPipeline(cfg, lookupCache, log)
	if err != nil {
		log.Fatal("failed to build extraction pipeline", zap.Error(err))
	}

	extractionRepo := pgrepo.NewExtractionRepository(pg)
	extractionService := service.NewExtractionService(extractionRepo, nil, pipeline, log)

	workerServer := worker.NewServer(log, cfg, extractionService)

	errCh := make(chan error, 1)
	go func() {
		errCh <- workerServer.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("shutting down worker...")
		workerServer.Stop()
	case err := <-errCh:
		if err != nil {
			log.Error("worker server error", zap.Error(err))
		}
	}

	log.Info("worker stopped")
}
