package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPaymentLinkSend sends the payment link for a new booking.
	TaskPaymentLinkSend = "payment:link:send"
	// TaskMaintenanceCleanup prunes idempotency keys and expired sessions.
	TaskMaintenanceCleanup = "maintenance:cleanup"

	// PaymentLinkMaxRetry bounds retries of the payment link task.
	PaymentLinkMaxRetry = 3
	// IdempotencyRetention is how long form submission keys are kept.
	IdempotencyRetention = 7 * 24 * time.Hour
	// CleanupSchedule runs maintenance nightly.
	CleanupSchedule = "15 3 * * *"
)

// PaymentLinkPayload identifies the booking to send a link for.
type PaymentLinkPayload struct {
	BookingID string `json:"bookingId"`
}

// NewPaymentLinkTask builds a payment link task.
func NewPaymentLinkTask(bookingID string) (*asynq.Task, error) {
	body, err := json.Marshal(PaymentLinkPayload{BookingID: bookingID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentLinkSend, body,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(PaymentLinkMaxRetry),
		asynq.Timeout(time.Minute),
	), nil
}

// NewCleanupTask builds the maintenance task.
func NewCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskMaintenanceCleanup, nil, asynq.Queue(QueueDefault))
}
