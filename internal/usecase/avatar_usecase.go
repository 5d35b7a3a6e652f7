package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"
	"golang.org/x/sync/singleflight"

	"github.com/yokitheyo/avatarpipeline/internal/domain"
	"github.com/yokitheyo/avatarpipeline/internal/infrastructure/metrics"
	"github.com/yokitheyo/avatarpipeline/internal/infrastructure/source"
	"github.com/yokitheyo/avatarpipeline/internal/progress"
)

const (
	DefaultMaxUploadBytes = 10 * 1024 * 1024
	DefaultThumbnailSize  = 150
)

var defaultFormats = []string{"image/jpeg", "image/png", "image/webp"}

type Settings struct {
	MaxUploadBytes   int64
	SupportedFormats []string
	ThumbnailSize    int
}

type Option func(*AvatarUsecase)

func WithReconciler(r domain.Reconciler) Option {
	return func(u *AvatarUsecase) { u.reconciler = r }
}

func WithObserver(o metrics.Observer) Option {
	return func(u *AvatarUsecase) {
		if o != nil {
			u.observer = o
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(u *AvatarUsecase) { u.now = now }
}

// AvatarUsecase runs the avatar upload pipeline and avatar removal.
type AvatarUsecase struct {
	transformer domain.Transformer
	store       domain.ObjectStore
	profiles    domain.ProfileRepository
	reconciler  domain.Reconciler
	observer    metrics.Observer
	settings    Settings
	now         func() time.Time

	locks    *UserLocks
	removals singleflight.Group
}

func NewAvatarUsecase(
	transformer domain.Transformer,
	store domain.ObjectStore,
	profiles domain.ProfileRepository,
	settings Settings,
	opts ...Option,
) *AvatarUsecase {
	if settings.MaxUploadBytes <= 0 {
		settings.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if settings.ThumbnailSize <= 0 {
		settings.ThumbnailSize = DefaultThumbnailSize
	}
	if len(settings.SupportedFormats) == 0 {
		settings.SupportedFormats = defaultFormats
	}
	normalized := make([]string, 0, len(settings.SupportedFormats))
	for _, f := range settings.SupportedFormats {
		normalized = append(normalized, source.NormalizeMimeType(f))
	}
	settings.SupportedFormats = normalized

	u := &AvatarUsecase{
		transformer: transformer,
		store:       store,
		profiles:    profiles,
		observer:    metrics.Nop{},
		settings:    settings,
		now:         time.Now,
		locks:       NewUserLocks(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *AvatarUsecase) Locks() *UserLocks {
	return u.locks
}

func (u *AvatarUsecase) Upload(
	ctx context.Context,
	image domain.LocalImage,
	opts domain.UploadOptions,
	onProgress domain.ProgressListener,
) domain.UploadResult {
	start := time.Now()
	opts.UserID = strings.TrimSpace(opts.UserID)

	image, err := u.validate(image, opts)
	if err != nil {
		zlog.Logger.Warn().
			Err(err).
			Str("user_id", opts.UserID).
			Str("uri", image.URI).
			Str("mime_type", image.MimeType).
			Msg("avatar upload rejected")
		u.observer.RecordStageFailure("validation", string(domain.KindValidation))
		u.observer.RecordUpload(time.Since(start), err)
		return domain.FailedUpload(err)
	}

	release, err := u.locks.Lock(ctx, opts.UserID)
	if err != nil {
		err = fmt.Errorf("%w: %v", domain.ErrCancelled, err)
		zlog.Logger.Warn().Err(err).Str("user_id", opts.UserID).Msg("avatar upload cancelled while waiting for user lock")
		u.observer.RecordUpload(time.Since(start), err)
		return domain.FailedUpload(err)
	}
	defer release()

	emitter := progress.NewEmitter(onProgress)
	result := u.run(ctx, image, opts, emitter)
	result.Events = emitter.Events()

	u.observer.RecordUpload(time.Since(start), result.Err)
	if result.Success {
		zlog.Logger.Info().
			Str("user_id", opts.UserID).
			Str("avatar_url", result.AvatarURL).
			Str("thumbnail_url", result.ThumbnailURL).
			Dur("duration", time.Since(start)).
			Msg("avatar uploaded successfully")
	}
	return result
}

func (u *AvatarUsecase) run(
	ctx context.Context,
	image domain.LocalImage,
	opts domain.UploadOptions,
	em *progress.Emitter,
) domain.UploadResult {
	var temps []string
	if opts.DeleteSource {
		temps = append(temps, image.URI)
	}
	cleaned := false
	defer func() {
		if !cleaned {
			u.cleanup(opts.UserID, temps)
		}
	}()

	// Compress
	var primary domain.ProcessedImage
	if opts.Compress {
		em.Emit(domain.StageCompressing, 10, "Compressing image", image.URI)
		primary = u.transformer.Compress(ctx, image.URI, domain.TransformConstraints{
			MaxWidth:  opts.MaxSize,
			MaxHeight: opts.MaxSize,
			Quality:   opts.Quality,
		})
		if primary.URI != "" && primary.URI != image.URI {
			temps = append(temps, primary.URI)
		}
		if !primary.Success {
			return u.fail(domain.StageCompressing, opts.UserID, domain.TransformError("compress image", errors.New(primary.ErrorReason)))
		}
		em.Emit(domain.StageCompressing, 30, "Image compressed", primary.URI)
	} else {
		em.Emit(domain.StageCompressing, 10, "Compression skipped", image.URI)
		primary = domain.ProcessedImage{
			URI:      image.URI,
			Width:    image.Width,
			Height:   image.Height,
			ByteSize: image.ByteSize,
			Success:  true,
		}
		em.Emit(domain.StageCompressing, 30, "Using original image", image.URI)
	}

	// Optional thumbnail
	var thumbnail *domain.ProcessedImage
	if opts.GenerateMultipleSizes {
		if err := ctx.Err(); err != nil {
			return u.fail(domain.StageCompressing, opts.UserID, fmt.Errorf("%w: %v", domain.ErrCancelled, err))
		}
		size := u.settings.ThumbnailSize
		thumb := u.transformer.Compress(ctx, image.URI, domain.TransformConstraints{
			MaxWidth:  size,
			MaxHeight: size,
			Quality:   opts.Quality,
		})
		if thumb.URI != "" && thumb.URI != image.URI {
			temps = append(temps, thumb.URI)
		}
		if thumb.Success {
			thumbnail = &thumb
			em.Emit(domain.StageCompressing, 40, "Thumbnail generated", thumb.URI)
		} else {
			terr := domain.TransformError("generate thumbnail", errors.New(thumb.ErrorReason))
			zlog.Logger.Warn().Err(terr).Str("user_id", opts.UserID).Msg("thumbnail generation failed, continuing with primary only")
			u.observer.RecordStageFailure(string(domain.StageCompressing), string(domain.KindTransform))
			em.Emit(domain.StageCompressing, 40, "Thumbnail generation failed", "")
		}
	}

	// Nothing has been committed remotely yet, so this is the last point where
	// cancellation is honoured.
	if err := ctx.Err(); err != nil {
		return u.fail(domain.StageUploading, opts.UserID, fmt.Errorf("%w: %v", domain.ErrCancelled, err))
	}

	contentType := "image/jpeg"
	if !opts.Compress {
		contentType = image.MimeType
	}

	em.Emit(domain.StageUploading, 50, "Uploading avatar", domain.AvatarObjectName)
	stored, err := u.putFile(ctx, opts.UserID, domain.AvatarObjectName, primary.URI, contentType)
	if err != nil {
		return u.fail(domain.StageUploading, opts.UserID, domain.StorageError("upload avatar", err))
	}
	em.Emit(domain.StageUploading, 70, "Avatar uploaded", domain.AvatarObjectName)

	committed := context.WithoutCancel(ctx)
	result := domain.UploadResult{Success: true, AvatarURL: stored.PublicURL}

	if thumbnail != nil {
		em.Emit(domain.StageUploading, 70, "Uploading thumbnail", domain.ThumbnailObjectName)
		thumbStored, err := u.putFile(committed, opts.UserID, domain.ThumbnailObjectName, thumbnail.URI, "image/jpeg")
		if err != nil {
			serr := domain.StorageError("upload thumbnail", err)
			zlog.Logger.Warn().Err(serr).Str("user_id", opts.UserID).Msg("thumbnail upload failed, continuing with primary only")
			u.observer.RecordStageFailure(string(domain.StageUploading), string(domain.KindStorage))
			em.Emit(domain.StageUploading, 85, "Thumbnail upload failed", domain.ThumbnailObjectName)
		} else {
			result.ThumbnailURL = thumbStored.PublicURL
			em.Emit(domain.StageUploading, 85, "Thumbnail uploaded", domain.ThumbnailObjectName)
		}
	}

	// Update profile
	em.Emit(domain.StageUpdatingProfile, 85, "Updating profile", "")
	updatedAt := u.now()
	if err := u.profiles.UpdateAvatar(committed, opts.UserID, result.AvatarURL, updatedAt); err != nil {
		rerr := domain.RecordUpdateError("update profile", err)
		zlog.Logger.Error().
			Err(rerr).
			Str("user_id", opts.UserID).
			Str("avatar_url", result.AvatarURL).
			Time("failed_at", updatedAt).
			Msg("profile update failed after avatar upload, object store and profile are inconsistent")
		u.observer.RecordStageFailure(string(domain.StageUpdatingProfile), string(domain.KindRecordUpdate))
		u.requestReconcile(committed, opts.UserID, result.AvatarURL, updatedAt, err)
		em.Emit(domain.StageUpdatingProfile, 95, "Profile update deferred", "")
	} else {
		em.Emit(domain.StageUpdatingProfile, 95, "Profile updated", "")
	}

	// Cleanup
	em.Emit(domain.StageCleaningUp, 95, "Cleaning up temporary files", "")
	cleaned = true
	u.cleanup(opts.UserID, temps)

	em.Emit(domain.StageCompleted, 100, "Upload completed", "")
	return result
}

func (u *AvatarUsecase) validate(image domain.LocalImage, opts domain.UploadOptions) (domain.LocalImage, error) {
	if err := validateUserID(opts.UserID); err != nil {
		return image, err
	}
	if math.IsNaN(opts.Quality) || opts.Quality < 0 || opts.Quality > 1 {
		return image, domain.ValidationError(fmt.Errorf("%w, got %v", domain.ErrInvalidQuality, opts.Quality))
	}
	if opts.MaxSize < domain.MinMaxSize || opts.MaxSize > domain.MaxMaxSize {
		return image, domain.ValidationError(fmt.Errorf("%w, got %d", domain.ErrInvalidMaxSize, opts.MaxSize))
	}

	if image.URI == "" {
		return image, domain.ValidationError(fmt.Errorf("%w: empty uri", domain.ErrSourceUnreadable))
	}
	stat, err := os.Stat(image.URI)
	if err != nil {
		return image, domain.ValidationError(fmt.Errorf("%w: %v", domain.ErrSourceUnreadable, err))
	}
	if !stat.Mode().IsRegular() {
		return image, domain.ValidationError(fmt.Errorf("%w: not a regular file", domain.ErrSourceUnreadable))
	}
	f, err := os.Open(image.URI)
	if err != nil {
		return image, domain.ValidationError(fmt.Errorf("%w: %v", domain.ErrSourceUnreadable, err))
	}
	f.Close()

	// Format/size gate
	if image.MimeType == "" {
		mt, err := source.DetectMimeType(image.URI)
		if err != nil {
			return image, domain.ValidationError(err)
		}
		image.MimeType = mt
	}
	image.MimeType = source.NormalizeMimeType(image.MimeType)
	if !u.supported(image.MimeType) {
		return image, domain.ValidationError(fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, image.MimeType))
	}

	size := stat.Size()
	if image.ByteSize > size {
		size = image.ByteSize
	}
	if size > u.settings.MaxUploadBytes {
		return image, domain.ValidationError(fmt.Errorf("%w: %d bytes exceeds limit of %d", domain.ErrFileTooLarge, size, u.settings.MaxUploadBytes))
	}
	image.ByteSize = stat.Size()

	return image, nil
}

func (u *AvatarUsecase) supported(mimeType string) bool {
	for _, f := range u.settings.SupportedFormats {
		if f == mimeType {
			return true
		}
	}
	return false
}

func validateUserID(userID string) error {
	id := strings.TrimSpace(userID)
	if id == "" || id == "." || strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return domain.ValidationError(domain.ErrInvalidUserID)
	}
	return nil
}

func (u *AvatarUsecase) putFile(ctx context.Context, namespace, name, path, contentType string) (domain.StoredObject, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.StoredObject{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var size int64 = -1
	if stat, err := f.Stat(); err == nil {
		size = stat.Size()
	}

	stored, err := u.store.Put(ctx, namespace, name, f, size, domain.PutOptions{
		ContentType: contentType,
		Overwrite:   true,
	})
	if err != nil {
		return domain.StoredObject{}, err
	}
	u.observer.RecordUploadedBytes(size)
	return stored, nil
}

func (u *AvatarUsecase) requestReconcile(ctx context.Context, userID, avatarURL string, failedAt time.Time, cause error) {
	if u.reconciler == nil {
		return
	}
	task := domain.ReconcileTask{
		TaskID:    uuid.New().String(),
		UserID:    userID,
		AvatarURL: avatarURL,
		FailedAt:  failedAt,
		Reason:    cause.Error(),
	}
	if err := u.reconciler.PublishReconcileTask(ctx, task); err != nil {
		zlog.Logger.Error().
			Err(err).
			Str("user_id", userID).
			Str("task_id", task.TaskID).
			Msg("failed to publish reconcile task")
		return
	}
	zlog.Logger.Info().Str("user_id", userID).Str("task_id", task.TaskID).Msg("reconcile task published")
}

func (u *AvatarUsecase) cleanup(userID string, paths []string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			zlog.Logger.Warn().
				Err(domain.CleanupWarning("remove temp file", err)).
				Str("user_id", userID).
				Str("path", p).
				Msg("failed to remove temporary file")
			u.observer.RecordStageFailure(string(domain.StageCleaningUp), string(domain.KindCleanup))
		}
	}
}

func (u *AvatarUsecase) fail(stage domain.UploadStage, userID string, err error) domain.UploadResult {
	kind, ok := domain.KindOf(err)
	if !ok {
		kind = "cancelled"
	}
	zlog.Logger.Error().
		Err(err).
		Str("user_id", userID).
		Str("stage", string(stage)).
		Str("kind", string(kind)).
		Msg("avatar upload failed")
	u.observer.RecordStageFailure(string(stage), string(kind))
	return domain.FailedUpload(err)
}

// RemoveAvatar deletes every object in the user's namespace. Concurrent removals for the
// same user share one execution.
func (u *AvatarUsecase) RemoveAvatar(ctx context.Context, userID string) domain.RemovalResult {
	userID = strings.TrimSpace(userID)
	if err := validateUserID(userID); err != nil {
		return domain.RemovalResult{Success: false, Error: err.Error(), Err: err}
	}

	v, err, shared := u.removals.Do(userID, func() (interface{}, error) {
		release, err := u.locks.Lock(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrCancelled, err)
		}
		defer release()
		return u.removeAll(context.WithoutCancel(ctx), userID)
	})
	if err != nil {
		return domain.RemovalResult{Success: false, Error: err.Error(), Err: err}
	}
	removed := v.(int)

	zlog.Logger.Info().
		Str("user_id", userID).
		Int("removed", removed).
		Bool("shared", shared).
		Msg("avatar removed")
	return domain.RemovalResult{Success: true, Removed: removed}
}

func (u *AvatarUsecase) removeAll(ctx context.Context, userID string) (int, error) {
	objects, err := u.store.List(ctx, userID)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("user_id", userID).Msg("failed to list avatar namespace")
		return 0, domain.StorageError("list avatars", err)
	}
	if len(objects) == 0 {
		return 0, nil
	}

	names := make([]string, 0, len(objects))
	for _, o := range objects {
		names = append(names, o.Name)
	}
	if err := u.store.Remove(ctx, userID, names); err != nil {
		zlog.Logger.Error().Err(err).Str("user_id", userID).Strs("names", names).Msg("failed to remove avatars")
		return 0, domain.StorageError("remove avatars", err)
	}

	if err := u.profiles.UpdateAvatar(ctx, userID, "", u.now()); err != nil {
		zlog.Logger.Warn().
			Err(domain.RecordUpdateError("clear profile avatar", err)).
			Str("user_id", userID).
			Msg("failed to clear profile avatar after removal")
		u.observer.RecordStageFailure("removing", string(domain.KindRecordUpdate))
	}
	return len(names), nil
}
