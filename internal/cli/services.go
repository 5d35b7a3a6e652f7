package cli

import (
	"context"
	"fmt"

	"github.com/yokitheyo/avatarpipeline/internal/config"
	"github.com/yokitheyo/avatarpipeline/internal/domain"
	infradatabase "github.com/yokitheyo/avatarpipeline/internal/infrastructure/database"
	"github.com/yokitheyo/avatarpipeline/internal/infrastructure/kafka"
	"github.com/yokitheyo/avatarpipeline/internal/infrastructure/processor"
	"github.com/yokitheyo/avatarpipeline/internal/infrastructure/source"
	"github.com/yokitheyo/avatarpipeline/internal/infrastructure/storage"
	"github.com/yokitheyo/avatarpipeline/internal/repository/postgres"
	"github.com/yokitheyo/avatarpipeline/internal/retry"
	"github.com/yokitheyo/avatarpipeline/internal/usecase"
)

type services struct {
	avatars        domain.AvatarService
	source         domain.ImageSource
	defaultMaxSize int
	defaultQuality float64
	close          func()
}

type serviceLoader func(ctx context.Context, configPath string) (*services, error)

func defaultServices(ctx context.Context, configPath string) (*services, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	db, err := infradatabase.Connect(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}
	closers := []func(){func() { infradatabase.Close(db) }}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	store, err := storage.New(&cfg.Storage)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	imageProcessor, err := processor.NewImageProcessor(&cfg.Avatar)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("init processor: %w", err)
	}

	var opts []usecase.Option
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(&cfg.Kafka)
		closers = append(closers, func() { _ = producer.Close() })
		opts = append(opts, usecase.WithReconciler(producer))
	}

	profiles := postgres.NewProfileRepository(db, retry.DefaultStrategy)
	avatars := usecase.NewAvatarUsecase(imageProcessor, store, profiles, usecase.Settings{
		MaxUploadBytes:   cfg.Avatar.MaxUploadBytes(),
		SupportedFormats: cfg.Avatar.SupportedFormats,
		ThumbnailSize:    cfg.Avatar.ThumbnailSize,
	}, opts...)

	return &services{
		avatars:        avatars,
		source:         source.NewFileSource(),
		defaultMaxSize: cfg.Avatar.DefaultMaxSize,
		defaultQuality: cfg.Avatar.DefaultQuality,
		close:          closeAll,
	}, nil
}
