package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/wb-go/wbf/zlog"

	"github.com/yokitheyo/avatarpipeline/internal/config"
	infradatabase "github.com/yokitheyo/avatarpipeline/internal/infrastructure/database"
	"github.com/yokitheyo/avatarpipeline/internal/infrastructure/kafka"
	"github.com/yokitheyo/avatarpipeline/internal/infrastructure/metrics"
	"github.com/yokitheyo/avatarpipeline/internal/infrastructure/storage"
	"github.com/yokitheyo/avatarpipeline/internal/repository/postgres"
	"github.com/yokitheyo/avatarpipeline/internal/retry"
	"github.com/yokitheyo/avatarpipeline/internal/usecase"
	"github.com/yokitheyo/avatarpipeline/internal/worker"
)

func main() {
	zlog.Init()
	zlog.Logger.Info().Msg("Starting Avatar Reconcile Worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("AVATAR_CONFIG"))
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to load config")
	}
	if !cfg.Kafka.Enabled {
		zlog.Logger.Fatal().Msg("kafka.enabled is false, nothing to consume")
	}

	database, err := infradatabase.Connect(ctx, &cfg.Database)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to database after all retries")
	}
	defer infradatabase.Close(database)

	// Run migrations
	zlog.Logger.Info().Msg("Running database migrations...")
	if err := infradatabase.RunMigrations(database, cfg.Migrations.Path); err != nil {
		zlog.Logger.Warn().Err(err).Msg("Migrations warning (might be already applied)")
	}

	store, err := storage.New(&cfg.Storage)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to initialize storage")
	}

	var observer metrics.Observer = metrics.Nop{}
	if cfg.Metrics.Enabled {
		if o, err := metrics.NewPrometheusObserver(cfg.Metrics.Namespace, prometheus.DefaultRegisterer); err == nil {
			observer = o
		} else {
			zlog.Logger.Warn().Err(err).Msg("metrics disabled")
		}
	}

	profiles := postgres.NewProfileRepository(database, retry.DefaultStrategy)
	reconcileUsecase := usecase.NewReconcileUsecase(profiles, store, observer, nil)
	reconcileWorker := worker.NewReconcileWorker(reconcileUsecase, 30*time.Second)

	consumer, err := kafka.NewConsumer(&cfg.Kafka, reconcileWorker.HandleReconcileTask)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to initialize Kafka consumer")
	}
	defer consumer.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Start(ctx); err != nil {
			zlog.Logger.Error().Err(err).Msg("Kafka consumer error")
		}
	}()

	<-ctx.Done()
	zlog.Logger.Info().Msg("Shutdown signal received")

	select {
	case <-done:
	case <-time.After(time.Duration(cfg.Server.ShutdownTimeoutSec) * time.Second):
		zlog.Logger.Warn().Msg("Kafka consumer did not stop in time")
	}

	zlog.Logger.Info().Msg("Worker shutdown complete")
}
