package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wb-go/wbf/zlog"
	"github.com/yokitheyo/avatarpipeline/internal/domain"
	"github.com/yokitheyo/avatarpipeline/internal/infrastructure/metrics"
)

// ReconcileUsecase re-applies profile updates that failed after a successful upload.
type ReconcileUsecase struct {
	profiles domain.ProfileRepository
	store    domain.ObjectStore
	observer metrics.Observer
	locks    *UserLocks
	now      func() time.Time
}

// NewReconcileUsecase shares locks with the upload pipeline when both run in one process;
// pass nil to use a private set.
func NewReconcileUsecase(profiles domain.ProfileRepository, store domain.ObjectStore, observer metrics.Observer, locks *UserLocks) *ReconcileUsecase {
	if observer == nil {
		observer = metrics.Nop{}
	}
	if locks == nil {
		locks = NewUserLocks()
	}
	return &ReconcileUsecase{
		profiles: profiles,
		store:    store,
		observer: observer,
		locks:    locks,
		now:      time.Now,
	}
}

func (u *ReconcileUsecase) Reconcile(ctx context.Context, task *domain.ReconcileTask) error {
	if err := validateUserID(task.UserID); err != nil {
		return err
	}

	release, err := u.locks.Lock(ctx, task.UserID)
	if err != nil {
		return err
	}
	defer release()

	profile, err := u.profiles.FindByID(ctx, task.UserID)
	if err != nil && !errors.Is(err, domain.ErrProfileNotFound) {
		u.observer.RecordReconcile(err)
		return fmt.Errorf("find profile: %w", err)
	}
	if profile != nil && profile.UpdatedAt.After(task.FailedAt) {
		zlog.Logger.Info().
			Str("user_id", task.UserID).
			Str("task_id", task.TaskID).
			Time("profile_updated_at", profile.UpdatedAt).
			Time("failed_at", task.FailedAt).
			Msg("profile changed after failed update, skipping reconcile")
		return nil
	}

	present, err := u.avatarPresent(ctx, task.UserID)
	if err != nil {
		u.observer.RecordReconcile(err)
		return err
	}
	if !present {
		zlog.Logger.Info().
			Str("user_id", task.UserID).
			Str("task_id", task.TaskID).
			Msg("avatar object no longer exists, skipping reconcile")
		return nil
	}

	if profile == nil {
		err = u.profiles.Upsert(ctx, &domain.Profile{ID: task.UserID, AvatarURL: task.AvatarURL, UpdatedAt: u.now()})
	} else {
		err = u.profiles.UpdateAvatar(ctx, task.UserID, task.AvatarURL, u.now())
	}
	u.observer.RecordReconcile(err)
	if err != nil {
		zlog.Logger.Error().Err(err).Str("user_id", task.UserID).Str("task_id", task.TaskID).Msg("reconcile profile update failed")
		return fmt.Errorf("reconcile profile %s: %w", task.UserID, err)
	}

	zlog.Logger.Info().
		Str("user_id", task.UserID).
		Str("task_id", task.TaskID).
		Str("avatar_url", task.AvatarURL).
		Msg("profile reconciled")
	return nil
}

func (u *ReconcileUsecase) avatarPresent(ctx context.Context, userID string) (bool, error) {
	objects, err := u.store.List(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("list avatars: %w", err)
	}
	for _, o := range objects {
		if o.Name == domain.AvatarObjectName {
			return true, nil
		}
	}
	return false, nil
}
