package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/autocare/workshop/internal/jobs"
)

// IdempotencyCleaner prunes old idempotency keys.
type IdempotencyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// SessionPurger prunes expired staff session rows.
type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

// CleanupJob handles TaskMaintenanceCleanup.
type CleanupJob struct {
	Keys     IdempotencyCleaner
	Sessions SessionPurger
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewCleanupJob wires dependencies for the cleanup handler.
func NewCleanupJob(keys IdempotencyCleaner, sessions SessionPurger, logger *slog.Logger, metrics *jobmetrics.Metrics) *CleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupJob{Keys: keys, Sessions: sessions, Logger: logger, Metrics: metrics}
}

// Handle runs both cleanups and reports the first failure.
func (j *CleanupJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil {
		return errors.New("cleanup: handler not configured")
	}
	tracker := j.Metrics.Track(TaskMaintenanceCleanup)
	defer func() { err = tracker.End(err) }()

	var errs []error
	if j.Keys != nil {
		n, kerr := j.Keys.Cleanup(ctx, IdempotencyRetention)
		if kerr != nil {
			errs = append(errs, kerr)
		} else {
			j.Logger.Info("idempotency keys pruned", slog.Int64("deleted", n))
		}
	}
	if j.Sessions != nil {
		n, serr := j.Sessions.PurgeExpiredSessions(ctx)
		if serr != nil {
			errs = append(errs, serr)
		} else {
			j.Logger.Info("expired sessions pruned", slog.Int64("deleted", n))
		}
	}
	return errors.Join(errs...)
}
