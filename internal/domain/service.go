package domain

import (
	"context"
	"io"
)

type AvatarService interface {
	Upload(ctx context.Context, image LocalImage, opts UploadOptions, onProgress ProgressListener) UploadResult
	RemoveAvatar(ctx context.Context, userID string) RemovalResult
}

type ReconcileService interface {
	Reconcile(ctx context.Context, task *ReconcileTask) error
}

// Transformer is the image transform primitive. A failed transform is reported through
// ProcessedImage.Success and ErrorReason, never by panicking.
type Transformer interface {
	Compress(ctx context.Context, path string, constraints TransformConstraints) ProcessedImage
}

type ImageSource interface {
	Pick(ctx context.Context, path string) (LocalImage, error)
}

type PutOptions struct {
	ContentType string
	Overwrite   bool
}

type StoredObject struct {
	Path      string `json:"path"`
	PublicURL string `json:"public_url"`
}

type ObjectInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// ObjectStore keeps one namespace per user identity.
type ObjectStore interface {
	Put(ctx context.Context, namespace, name string, r io.Reader, size int64, opts PutOptions) (StoredObject, error)
	List(ctx context.Context, namespace string) ([]ObjectInfo, error)
	Remove(ctx context.Context, namespace string, names []string) error
	PublicURL(namespace, name string) string
}

type Reconciler interface {
	PublishReconcileTask(ctx context.Context, task ReconcileTask) error
}
