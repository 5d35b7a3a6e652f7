package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/yokitheyo/avatarpipeline/internal/config"
	"github.com/yokitheyo/avatarpipeline/internal/display"
	httpHandler "github.com/yokitheyo/avatarpipeline/internal/handler/http"
	"github.com/yokitheyo/avatarpipeline/internal/handler/middleware"
	infradatabase "github.com/yokitheyo/avatarpipeline/internal/infrastructure/database"
	"github.com/yokitheyo/avatarpipeline/internal/infrastructure/kafka"
	"github.com/yokitheyo/avatarpipeline/internal/infrastructure/metrics"
	"github.com/yokitheyo/avatarpipeline/internal/infrastructure/processor"
	"github.com/yokitheyo/avatarpipeline/internal/infrastructure/source"
	"github.com/yokitheyo/avatarpipeline/internal/infrastructure/storage"
	"github.com/yokitheyo/avatarpipeline/internal/repository/postgres"
	"github.com/yokitheyo/avatarpipeline/internal/retry"
	"github.com/yokitheyo/avatarpipeline/internal/usecase"
)

func main() {
	zlog.Init()
	zlog.Logger.Info().Msg("Starting Avatar API Server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.Load(os.Getenv("AVATAR_CONFIG"))
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to load config")
	}

	database, err := infradatabase.Connect(ctx, &cfg.Database)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to database after all retries")
	}
	defer infradatabase.Close(database)

	// Run migrations
	zlog.Logger.Info().Msg("Running database migrations...")
	if err := infradatabase.RunMigrations(database, cfg.Migrations.Path); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Migrations failed")
	}

	// Setup Storage
	store, err := storage.New(&cfg.Storage)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to initialize storage")
	}

	imageProcessor, err := processor.NewImageProcessor(&cfg.Avatar)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to initialize image processor")
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	var observer metrics.Observer = metrics.Nop{}
	if cfg.Metrics.Enabled {
		promObserver, err := metrics.NewPrometheusObserver(cfg.Metrics.Namespace, registry)
		if err != nil {
			zlog.Logger.Fatal().Err(err).Msg("Failed to register metrics")
		}
		observer = promObserver
	}

	// Repository + Usecase
	profiles := postgres.NewProfileRepository(database, retry.DefaultStrategy)
	opts := []usecase.Option{usecase.WithObserver(observer)}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(&cfg.Kafka)
		defer producer.Close()
		opts = append(opts, usecase.WithReconciler(producer))
	} else {
		zlog.Logger.Warn().Msg("Kafka disabled, failed profile updates will only be logged")
	}
	avatarUsecase := usecase.NewAvatarUsecase(imageProcessor, store, profiles, usecase.Settings{
		MaxUploadBytes:   cfg.Avatar.MaxUploadBytes(),
		SupportedFormats: cfg.Avatar.SupportedFormats,
		ThumbnailSize:    cfg.Avatar.ThumbnailSize,
	}, opts...)

	// Display
	httpLoader, err := display.NewHTTPLoader(cfg.Display, nil)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to initialize display loader")
	}
	resolver := display.NewResolver(display.NewChainLoader(display.NewStoreLoader(store), httpLoader), observer)

	// Gin engine + middleware
	engine := ginext.New("release")
	engine.Use(
		middleware.ErrorHandlerMiddleware(),
		middleware.LoggerMiddleware(),
		middleware.CORSMiddleware(),
	)

	engine.GET("/health", func(c *ginext.Context) {
		if err := database.Master.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, ginext.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, ginext.H{"status": "ok"})
	})

	if cfg.Metrics.Enabled {
		metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
		engine.GET("/metrics", func(c *ginext.Context) {
			metricsHandler.ServeHTTP(c.Writer, c.Request)
		})
	}

	avatarHandler := httpHandler.NewAvatarHandler(
		avatarUsecase,
		source.NewFileSource(),
		profiles,
		resolver,
		httpHandler.HandlerConfig{
			MaxUploadBytes: cfg.Avatar.MaxUploadBytes(),
			TempDir:        cfg.Avatar.TempDir,
			DefaultQuality: cfg.Avatar.DefaultQuality,
			DefaultMaxSize: cfg.Avatar.DefaultMaxSize,
		},
	)
	avatarHandler.RegisterRoutes(engine)

	if cfg.Storage.Type == "local" {
		engine.Static("/files", cfg.Storage.LocalPath)
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSec) * time.Second,
	}

	go func() {
		zlog.Logger.Info().Str("addr", cfg.Server.Addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Logger.Fatal().Err(err).Msg("Failed to start API server")
		}
	}()

	<-ctx.Done()
	zlog.Logger.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("HTTP server shutdown failed")
	} else {
		zlog.Logger.Info().Msg("HTTP server stopped gracefully")
	}

	zlog.Logger.Info().Msg("API shutdown complete")
}
