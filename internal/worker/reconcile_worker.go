package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/wb-go/wbf/zlog"

	"github.com/yokitheyo/avatarpipeline/internal/domain"
)

// ReconcileWorker applies reconcile tasks taken off the queue.
type ReconcileWorker struct {
	reconciler domain.ReconcileService
	timeout    time.Duration
}

func NewReconcileWorker(reconciler domain.ReconcileService, timeout time.Duration) *ReconcileWorker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ReconcileWorker{
		reconciler: reconciler,
		timeout:    timeout,
	}
}

func (w *ReconcileWorker) HandleReconcileTask(ctx context.Context, task *domain.ReconcileTask) error {
	if task == nil || task.UserID == "" {
		zlog.Logger.Error().Msg("reconcile task without user id")
		return fmt.Errorf("invalid reconcile task: empty user id")
	}

	zlog.Logger.Info().
		Str("task_id", task.TaskID).
		Str("user_id", task.UserID).
		Time("failed_at", task.FailedAt).
		Msg("starting reconcile task")

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if err := w.reconciler.Reconcile(ctx, task); err != nil {
		zlog.Logger.Error().
			Err(err).
			Str("task_id", task.TaskID).
			Str("user_id", task.UserID).
			Msg("failed to reconcile profile")
		return fmt.Errorf("reconcile %s: %w", task.UserID, err)
	}

	zlog.Logger.Info().
		Str("task_id", task.TaskID).
		Str("user_id", task.UserID).
		Msg("reconcile task done")
	return nil
}
