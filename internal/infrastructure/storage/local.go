package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/avatarpipeline/internal/config"
	"github.com/yokitheyo/avatarpipeline/internal/domain"
)

type localStorage struct {
	basePath string
	baseURL  string
}

func NewLocalStorage(cfg *config.StorageConfig) (Storage, error) {
	if cfg.LocalPath == "" {
		return nil, fmt.Errorf("LocalPath is empty, set storage.local_path in config or env")
	}
	if cfg.PublicBaseURL == "" {
		return nil, fmt.Errorf("PublicBaseURL is empty, set storage.public_base_url in config or env")
	}

	if err := os.MkdirAll(cfg.LocalPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &localStorage{
		basePath: cfg.LocalPath,
		baseURL:  cfg.PublicBaseURL,
	}, nil
}

func (s *localStorage) PublicURL(namespace, name string) string {
	return publicURL(s.baseURL, namespace, name)
}

func (s *localStorage) Put(ctx context.Context, namespace, name string, reader io.Reader, size int64, opts domain.PutOptions) (domain.StoredObject, error) {
	if reader == nil {
		zlog.Logger.Error().Str("name", name).Msg("reader is nil")
		return domain.StoredObject{}, fmt.Errorf("reader is nil")
	}
	if err := checkKey(namespace, name); err != nil {
		return domain.StoredObject{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.StoredObject{}, err
	}

	dir := filepath.Join(s.basePath, namespace)
	if err := os.MkdirAll(dir, 0755); err != nil {
		zlog.Logger.Error().Err(err).Str("dir", dir).Msg("failed to create namespace directory")
		return domain.StoredObject{}, fmt.Errorf("create namespace %s: %w", namespace, err)
	}

	fullPath := filepath.Join(dir, name)
	if !opts.Overwrite {
		if _, err := os.Stat(fullPath); err == nil {
			return domain.StoredObject{}, fmt.Errorf("object %s/%s already exists", namespace, name)
		}
	}

	// Write to a sibling temp file and rename, so readers never see a partial object.
	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		zlog.Logger.Error().Err(err).Str("dir", dir).Msg("failed to create temp file")
		return domain.StoredObject{}, fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	written, err := io.Copy(tmp, reader)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && written == 0 {
		err = fmt.Errorf("no bytes written")
	}
	if err == nil && size > 0 && written != size {
		err = fmt.Errorf("short write: %d of %d bytes", written, size)
	}
	if err != nil {
		_ = os.Remove(tmpName)
		zlog.Logger.Error().Err(err).Str("path", fullPath).Msg("failed to write object")
		return domain.StoredObject{}, fmt.Errorf("write object %s/%s: %w", namespace, name, err)
	}

	if err := os.Rename(tmpName, fullPath); err != nil {
		_ = os.Remove(tmpName)
		zlog.Logger.Error().Err(err).Str("path", fullPath).Msg("failed to move object into place")
		return domain.StoredObject{}, fmt.Errorf("rename object %s/%s: %w", namespace, name, err)
	}

	objectPath := filepath.ToSlash(filepath.Join(namespace, name))
	zlog.Logger.Info().
		Str("path", objectPath).
		Str("content_type", opts.ContentType).
		Int64("bytes", written).
		Msg("object saved successfully")

	return domain.StoredObject{Path: objectPath, PublicURL: s.PublicURL(namespace, name)}, nil
}

func (s *localStorage) List(ctx context.Context, namespace string) ([]domain.ObjectInfo, error) {
	if !validSegment(namespace) {
		return nil, fmt.Errorf("invalid namespace %q", namespace)
	}

	dir := filepath.Join(s.basePath, namespace)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		zlog.Logger.Error().Err(err).Str("dir", dir).Msg("failed to list namespace")
		return nil, fmt.Errorf("list namespace %s: %w", namespace, err)
	}

	objects := make([]domain.ObjectInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || e.Name()[0] == '.' {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		objects = append(objects, domain.ObjectInfo{Name: e.Name(), Size: info.Size()})
	}
	return objects, nil
}

func (s *localStorage) Stat(ctx context.Context, namespace, name string) (domain.ObjectInfo, error) {
	if err := checkKey(namespace, name); err != nil {
		return domain.ObjectInfo{}, err
	}
	info, err := os.Stat(filepath.Join(s.basePath, namespace, name))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.ObjectInfo{}, fmt.Errorf("%w: %s/%s", domain.ErrObjectNotFound, namespace, name)
		}
		return domain.ObjectInfo{}, fmt.Errorf("stat object %s/%s: %w", namespace, name, err)
	}
	return domain.ObjectInfo{Name: name, Size: info.Size()}, nil
}

func (s *localStorage) Remove(ctx context.Context, namespace string, names []string) error {
	var lastErr error

	for _, name := range names {
		if err := checkKey(namespace, name); err != nil {
			lastErr = err
			continue
		}
		fullPath := filepath.Join(s.basePath, namespace, name)
		if err := os.Remove(fullPath); err != nil {
			if os.IsNotExist(err) {
				zlog.Logger.Warn().Str("path", fullPath).Msg("object not found, skipping delete")
				continue
			}
			zlog.Logger.Error().Err(err).Str("path", fullPath).Msg("failed to delete object")
			lastErr = fmt.Errorf("delete object %s/%s: %w", namespace, name, err)
			continue
		}
		zlog.Logger.Info().Str("namespace", namespace).Str("name", name).Msg("object deleted successfully")
	}

	return lastErr
}
