package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/gyoansoft/gyoan-backend/api/routes"
	"github.com/gyoansoft/gyoan-backend/internal/content"
	"github.com/gyoansoft/gyoan-backend/internal/querycache"
	"github.com/gyoansoft/gyoan-backend/pkg/config"
	"github.com/gyoansoft/gyoan-backend/pkg/db"
	"github.com/gyoansoft/gyoan-backend/pkg/logger"
	"github.com/gyoansoft/gyoan-backend/pkg/metrics"
	"github.com/gyoansoft/gyoan-backend/pkg/migrate"
	"github.com/gyoansoft/gyoan-backend/pkg/redis"
	"github.com/gyoansoft/gyoan-backend/pkg/storage/local"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	var queryCache querycache.Cache = querycache.NewMemory()
	if cfg.FeatureFlags.UseRedis {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()

		queryCache, err = querycache.NewRedis(redisClient, cfg.Cache.Namespace, cfg.Cache.TTL)
		if err != nil {
			logg.Error(context.Background(), "failed to create query cache", err)
			os.Exit(1)
		}
	}

	blobStore, err := local.New(cfg.Storage.RootDir, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to open blob storage", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	contentMetrics := metrics.NewContentMetrics(registry)

	contentService, err := content.NewService(
		content.NewRepository(dbClient.DB()),
		blobStore,
		queryCache,
		logg,
		contentMetrics,
		cfg.Storage.MaxUploadMB,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create content service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	var redisPinger redis.Pinger
	if redisClient != nil {
		redisPinger = redisClient
	}

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisPinger, blobStore, contentService, registry),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
