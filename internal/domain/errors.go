package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrFileTooLarge      = errors.New("file too large")
	ErrInvalidUserID     = errors.New("user id is required and must be a single path segment")
	ErrInvalidQuality    = errors.New("quality must be between 0 and 1")
	ErrInvalidMaxSize    = errors.New("max size must be between 50 and 2000")
	ErrSourceUnreadable  = errors.New("image source is not readable")
	ErrProfileNotFound   = errors.New("profile not found")
	ErrObjectNotFound    = errors.New("object not found")
	ErrCancelled         = errors.New("upload cancelled")
)

type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindTransform    ErrorKind = "transform"
	KindStorage      ErrorKind = "storage"
	KindRecordUpdate ErrorKind = "record_update"
	KindCleanup      ErrorKind = "cleanup"
)

// Kind sentinels, for errors.Is(err, domain.ErrValidation) and friends.
var (
	ErrValidation   = &PipelineError{Kind: KindValidation}
	ErrTransform    = &PipelineError{Kind: KindTransform}
	ErrStorage      = &PipelineError{Kind: KindStorage}
	ErrRecordUpdate = &PipelineError{Kind: KindRecordUpdate}
	ErrCleanup      = &PipelineError{Kind: KindCleanup}
)

type PipelineError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *PipelineError) Error() string {
	if e.Err == nil {
		return string(e.Kind) + " error"
	}
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Is matches any PipelineError of the same kind, so the kind sentinels work with errors.Is.
func (e *PipelineError) Is(target error) bool {
	t, ok := target.(*PipelineError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Err == nil || errors.Is(e.Err, t.Err))
}

func ValidationError(err error) error {
	return &PipelineError{Kind: KindValidation, Err: err}
}

func TransformError(op string, err error) error {
	return &PipelineError{Kind: KindTransform, Op: op, Err: err}
}

func StorageError(op string, err error) error {
	return &PipelineError{Kind: KindStorage, Op: op, Err: err}
}

func RecordUpdateError(op string, err error) error {
	return &PipelineError{Kind: KindRecordUpdate, Op: op, Err: err}
}

func CleanupWarning(op string, err error) error {
	return &PipelineError{Kind: KindCleanup, Op: op, Err: err}
}

func KindOf(err error) (ErrorKind, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return "", false
}
