package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/avatarpipeline/internal/config"
	"github.com/yokitheyo/avatarpipeline/internal/domain"
)

type s3Storage struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

func NewS3Storage(cfg *config.StorageConfig) (Storage, error) {
	if cfg.S3Endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if cfg.S3AccessKey == "" || cfg.S3SecretKey == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}

	creds := credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, "")
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  creds,
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize s3 client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.S3Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check s3 bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.S3Bucket, minio.MakeBucketOptions{Region: cfg.S3Region}); err != nil {
			zlog.Logger.Warn().Err(err).Str("bucket", cfg.S3Bucket).Msg("unable to create bucket, ensure it exists and credentials are correct")
		} else {
			zlog.Logger.Info().Str("bucket", cfg.S3Bucket).Msg("created s3 bucket")
		}
	}

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		baseURL = strings.TrimRight(client.EndpointURL().String(), "/") + "/" + cfg.S3Bucket
	}

	return &s3Storage{
		client:  client,
		bucket:  cfg.S3Bucket,
		baseURL: baseURL,
	}, nil
}

func (s *s3Storage) PublicURL(namespace, name string) string {
	return publicURL(s.baseURL, namespace, name)
}

func (s *s3Storage) Put(ctx context.Context, namespace, name string, reader io.Reader, size int64, opts domain.PutOptions) (domain.StoredObject, error) {
	if reader == nil {
		zlog.Logger.Error().Str("name", name).Msg("reader is nil")
		return domain.StoredObject{}, fmt.Errorf("reader is nil")
	}
	if err := checkKey(namespace, name); err != nil {
		return domain.StoredObject{}, err
	}

	objectName := path.Join(namespace, name)

	if !opts.Overwrite {
		if _, err := s.Stat(ctx, namespace, name); err == nil {
			return domain.StoredObject{}, fmt.Errorf("object %s already exists", objectName)
		}
	}

	if size <= 0 {
		size = -1
	}
	_, err := s.client.PutObject(ctx, s.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType:  opts.ContentType,
		CacheControl: "no-cache",
	})
	if err != nil {
		zlog.Logger.Error().Err(err).Str("object", objectName).Msg("failed to put object to s3")
		return domain.StoredObject{}, fmt.Errorf("put object %s: %w", objectName, err)
	}

	zlog.Logger.Info().Str("path", objectName).Str("content_type", opts.ContentType).Msg("object saved to s3")
	return domain.StoredObject{Path: objectName, PublicURL: s.PublicURL(namespace, name)}, nil
}

func (s *s3Storage) List(ctx context.Context, namespace string) ([]domain.ObjectInfo, error) {
	if !validSegment(namespace) {
		return nil, fmt.Errorf("invalid namespace %q", namespace)
	}

	prefix := namespace + "/"
	var objects []domain.ObjectInfo
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			zlog.Logger.Error().Err(obj.Err).Str("prefix", prefix).Msg("failed to list objects")
			return nil, fmt.Errorf("list namespace %s: %w", namespace, obj.Err)
		}
		objects = append(objects, domain.ObjectInfo{
			Name: strings.TrimPrefix(obj.Key, prefix),
			Size: obj.Size,
		})
	}
	return objects, nil
}

func (s *s3Storage) Stat(ctx context.Context, namespace, name string) (domain.ObjectInfo, error) {
	if err := checkKey(namespace, name); err != nil {
		return domain.ObjectInfo{}, err
	}
	objectName := path.Join(namespace, name)
	info, err := s.client.StatObject(ctx, s.bucket, objectName, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return domain.ObjectInfo{}, fmt.Errorf("%w: %s", domain.ErrObjectNotFound, objectName)
		}
		return domain.ObjectInfo{}, fmt.Errorf("stat object %s: %w", objectName, err)
	}
	return domain.ObjectInfo{Name: name, Size: info.Size}, nil
}

func (s *s3Storage) Remove(ctx context.Context, namespace string, names []string) error {
	if len(names) == 0 {
		return nil
	}

	objectsCh := make(chan minio.ObjectInfo, len(names))
	for _, name := range names {
		if err := checkKey(namespace, name); err != nil {
			close(objectsCh)
			return err
		}
		objectsCh <- minio.ObjectInfo{Key: path.Join(namespace, name)}
	}
	close(objectsCh)

	var lastErr error
	for rErr := range s.client.RemoveObjects(ctx, s.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if minio.ToErrorResponse(rErr.Err).Code == "NoSuchKey" {
			continue
		}
		zlog.Logger.Error().Err(rErr.Err).Str("object", rErr.ObjectName).Msg("failed to delete object from s3")
		lastErr = fmt.Errorf("remove object %s: %w", rErr.ObjectName, rErr.Err)
	}
	if lastErr != nil {
		return lastErr
	}

	zlog.Logger.Info().Str("namespace", namespace).Int("count", len(names)).Msg("objects deleted from s3")
	return nil
}
