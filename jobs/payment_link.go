package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/autocare/workshop/internal/bookings"
	jobmetrics "github.com/autocare/workshop/internal/jobs"
)

// PaymentLinkSender sends a booking's payment link. Remote failures must
// wrap bookings.ErrPaymentRemote.
type PaymentLinkSender interface {
	TrySendPaymentLink(ctx context.Context, id string) (bookings.PaymentLinkOutcome, error)
}

// PaymentLinkJob handles TaskPaymentLinkSend.
type PaymentLinkJob struct {
	Sender  PaymentLinkSender
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	// Attempts reports how often the task was retried and its retry limit.
	// Defaults to the asynq task metadata.
	Attempts func(ctx context.Context) (retried, limit int)
}

func taskAttempts(ctx context.Context) (int, int) {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return 0, 0
	}
	limit, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return retried, retried
	}
	return retried, limit
}

// finalAttempt reports whether asynq will not retry the task again.
// Without task metadata every run is final.
func (j *PaymentLinkJob) finalAttempt(ctx context.Context) bool {
	attempts := j.Attempts
	if attempts == nil {
		attempts = taskAttempts
	}
	retried, limit := attempts(ctx)
	return retried >= limit
}

// NewPaymentLinkJob wires dependencies for the payment link handler.
func NewPaymentLinkJob(sender PaymentLinkSender, logger *slog.Logger, metrics *jobmetrics.Metrics) *PaymentLinkJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentLinkJob{Sender: sender, Logger: logger, Metrics: metrics}
}

// Handle processes payment link tasks. Missing or closed bookings are
// not retried. Payment function failures are retried and fall back to the
// demo outcome on the last attempt.
func (j *PaymentLinkJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Sender == nil {
		return errors.New("payment link: handler not configured")
	}
	var payload PaymentLinkPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.BookingID == "" {
		return fmt.Errorf("payment link: bad payload: %w", asynq.SkipRetry)
	}

	tracker := j.Metrics.Track(TaskPaymentLinkSend)
	defer func() { err = tracker.End(err) }()

	logger := j.Logger.With(slog.String("booking_id", payload.BookingID))
	outcome, err := j.Sender.TrySendPaymentLink(ctx, payload.BookingID)
	switch {
	case errors.Is(err, bookings.ErrNotFound), errors.Is(err, bookings.ErrPaymentLinkNotAllowed):
		logger.Warn("payment link skipped", slog.Any("error", err))
		return fmt.Errorf("payment link: %w: %w", err, asynq.SkipRetry)
	case errors.Is(err, bookings.ErrPaymentRemote) && j.finalAttempt(ctx):
		logger.Warn("payment link retries exhausted, using demo fallback", slog.Any("error", err))
		outcome = bookings.DemoPaymentLink()
	case err != nil:
		return fmt.Errorf("payment link: %w", err)
	}
	logger.Info("payment link processed", slog.String("result", string(outcome.Result)))
	return nil
}
