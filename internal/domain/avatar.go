package domain

import (
	"strings"
	"time"
)

const (
	AvatarObjectName    = "avatar.jpg"
	ThumbnailObjectName = "avatar_thumbnail.jpg"
)

const (
	DefaultQuality = 0.8
	DefaultMaxSize = 400

	MinMaxSize = 50
	MaxMaxSize = 2000
)

// LocalImage is a handle to an image on the local filesystem, produced by an image source.
type LocalImage struct {
	URI      string `json:"uri"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	ByteSize int64  `json:"byte_size"`
	MimeType string `json:"mime_type"`
}

// TransformConstraints bounds a single transform call.
type TransformConstraints struct {
	MaxWidth  int
	MaxHeight int
	Quality   float64
}

// ProcessedImage is the output of one transform call.
type ProcessedImage struct {
	URI         string `json:"uri"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ByteSize    int64  `json:"byte_size"`
	Success     bool   `json:"success"`
	ErrorReason string `json:"error_reason,omitempty"`
}

func FailedImage(reason string) ProcessedImage {
	return ProcessedImage{Success: false, ErrorReason: reason}
}

type UploadOptions struct {
	UserID                string
	Compress              bool
	GenerateMultipleSizes bool
	Quality               float64
	MaxSize               int
	// DeleteSource removes the source file during cleanup.
	DeleteSource bool
}

func DefaultUploadOptions(userID string) UploadOptions {
	return UploadOptions{
		UserID:   userID,
		Compress: true,
		Quality:  DefaultQuality,
		MaxSize:  DefaultMaxSize,
	}
}

type UploadResult struct {
	Success      bool            `json:"success"`
	AvatarURL    string          `json:"avatar_url,omitempty"`
	ThumbnailURL string          `json:"thumbnail_url,omitempty"`
	Error        string          `json:"error,omitempty"`
	Events       []ProgressEvent `json:"events,omitempty"`

	// Err keeps the classified cause for callers that need errors.Is.
	Err error `json:"-"`
}

func FailedUpload(err error) UploadResult {
	return UploadResult{Success: false, Error: err.Error(), Err: err}
}

type RemovalResult struct {
	Success bool   `json:"success"`
	Removed int    `json:"removed"`
	Error   string `json:"error,omitempty"`

	Err error `json:"-"`
}

type Profile struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name,omitempty"`
	Email       string    `json:"email,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p *Profile) HasAvatar() bool {
	return p.AvatarURL != ""
}

// ThumbnailURL derives the thumbnail reference from the primary avatar URL.
// Both objects share a namespace, so only the final path segment differs.
func (p *Profile) ThumbnailURL() string {
	if !p.HasAvatar() {
		return ""
	}
	idx := strings.LastIndex(p.AvatarURL, "/")
	if idx < 0 || p.AvatarURL[idx+1:] != AvatarObjectName {
		return ""
	}
	return p.AvatarURL[:idx+1] + ThumbnailObjectName
}

// ReconcileTask asks the worker to re-apply a profile update that failed after the
// avatar objects were already stored.
type ReconcileTask struct {
	TaskID    string    `json:"task_id"`
	UserID    string    `json:"user_id"`
	AvatarURL string    `json:"avatar_url"`
	FailedAt  time.Time `json:"failed_at"`
	Reason    string    `json:"reason,omitempty"`
}
