package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/avatarpipeline/internal/config"
	"github.com/yokitheyo/avatarpipeline/internal/domain"
)

// Storage is an object store that can also report a single object's metadata.
type Storage interface {
	domain.ObjectStore
	Stat(ctx context.Context, namespace, name string) (domain.ObjectInfo, error)
}

func New(cfg *config.StorageConfig) (Storage, error) {
	switch cfg.Type {
	case "local":
		zlog.Logger.Info().Msg("Initializing local storage")
		return NewLocalStorage(cfg)
	case "s3":
		zlog.Logger.Info().Msg("Initializing S3 storage")
		return NewS3Storage(cfg)
	default:
		zlog.Logger.Error().Str("type", cfg.Type).Msg("Unsupported storage type, use 'local' or 's3'")
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

func validSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

func checkKey(namespace, name string) error {
	if !validSegment(namespace) {
		return fmt.Errorf("invalid namespace %q", namespace)
	}
	if !validSegment(name) {
		return fmt.Errorf("invalid object name %q", name)
	}
	return nil
}

func publicURL(baseURL, namespace, name string) string {
	return baseURL + "/" + path.Join(namespace, name)
}
