package bookings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/autocare/workshop/internal/catalog"
	"github.com/autocare/workshop/internal/observability"
	"github.com/autocare/workshop/internal/payments"
	"github.com/autocare/workshop/internal/platform/db"
	"github.com/autocare/workshop/internal/realtime"
	"github.com/autocare/workshop/internal/shared"
)

// IdempotencyModule namespaces booking form keys.
const IdempotencyModule = "bookings.create"

const maxCreateAttempts = 3

// ServiceResolver maps selected service ids onto names and a total.
type ServiceResolver interface {
	Resolve(ctx context.Context, ids []string) (catalog.Selection, error)
}

// LinkSender issues payment links.
type LinkSender interface {
	CreateLink(ctx context.Context, req payments.LinkRequest) (string, error)
}

// Publisher fans booking events out to live pages.
type Publisher interface {
	Publish(ctx context.Context, evt realtime.Event) error
}

// Invalidator drops cached dashboard figures.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Enqueuer schedules payment link delivery in the worker.
type Enqueuer interface {
	EnqueuePaymentLink(ctx context.Context, bookingID string) error
}

// IdempotencyGuard rejects repeated form submissions.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service implements the booking operations.
type Service struct {
	repo     Repository
	menu     ServiceResolver
	logger   *slog.Logger
	payments LinkSender
	events   Publisher
	cache    Invalidator
	jobs     Enqueuer
	idem     IdempotencyGuard
	audit    shared.AuditRecorder
	metrics  *observability.Metrics
	location *time.Location
	now      func() time.Time
}

// NewService constructs the booking service. Optional collaborators are set
// with the Set* methods.
func NewService(repo Repository, menu ServiceResolver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		menu:     menu,
		logger:   logger,
		audit:    shared.NopAuditor{},
		location: time.UTC,
		now:      time.Now,
	}
}

// SetPayments wires the payment link client.
func (s *Service) SetPayments(p LinkSender) { s.payments = p }

// SetPublisher wires realtime events.
func (s *Service) SetPublisher(p Publisher) { s.events = p }

// SetInvalidator wires the dashboard cache.
func (s *Service) SetInvalidator(c Invalidator) { s.cache = c }

// SetEnqueuer makes Create queue payment links instead of sending inline.
func (s *Service) SetEnqueuer(e Enqueuer) { s.jobs = e }

// SetIdempotency wires duplicate submission protection.
func (s *Service) SetIdempotency(g IdempotencyGuard) { s.idem = g }

// SetAuditor wires the audit log.
func (s *Service) SetAuditor(a shared.AuditRecorder) {
	if a != nil {
		s.audit = a
	}
}

// SetMetrics wires Prometheus counters.
func (s *Service) SetMetrics(m *observability.Metrics) { s.metrics = m }

// WithLocation sets the workshop time zone used for "today" and numbering.
func (s *Service) WithLocation(loc *time.Location) {
	if loc != nil {
		s.location = loc
	}
}

// WithNow overrides the clock.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// CreateResult reports a new booking and what happened to its payment link.
type CreateResult struct {
	Booking     Booking
	PaymentLink PaymentLinkOutcome
	Queued      bool
}

// Create validates the form, stores the booking and its customer in one
// transaction, then sends (or queues) the payment link.
func (s *Service) Create(ctx context.Context, req CreateRequest, staffID string) (CreateResult, error) {
	req.normalize()
	now := s.now()
	if err := req.Validate(now.In(s.location)); err != nil {
		return CreateResult{}, err
	}

	if s.idem != nil && req.IdempotencyKey != "" {
		if err := s.idem.CheckAndInsert(ctx, req.IdempotencyKey, IdempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return CreateResult{}, ErrDuplicateSubmission
			}
			return CreateResult{}, fmt.Errorf("check idempotency: %w", err)
		}
	}

	booking, err := s.insert(ctx, req, staffID, now)
	if err != nil {
		if s.idem != nil && req.IdempotencyKey != "" {
			if delErr := s.idem.Delete(ctx, req.IdempotencyKey); delErr != nil {
				s.logger.Warn("idempotency rollback failed", slog.Any("error", delErr))
			}
		}
		return CreateResult{}, err
	}

	s.metrics.BookingCreated()
	s.record(ctx, shared.AuditLog{
		ActorID:  staffID,
		Action:   shared.AuditBookingCreate,
		Entity:   "booking",
		EntityID: booking.ID,
		Meta:     map[string]any{"number": booking.Number, "total": booking.TotalAmount},
	})
	s.publish(ctx, realtime.Event{Type: realtime.TypeBookingCreated, ID: booking.ID, Action: "create"})
	s.publish(ctx, realtime.Event{Type: realtime.TypeCustomerUpdated, ID: booking.CustomerID, Action: "update"})
	s.invalidate(ctx)

	result := CreateResult{Booking: booking}
	if s.jobs != nil {
		err := s.jobs.EnqueuePaymentLink(ctx, booking.ID)
		if err == nil {
			result.Queued = true
			return result, nil
		}
		s.logger.Warn("enqueue payment link failed, sending inline", slog.String("booking_id", booking.ID), slog.Any("error", err))
	}
	outcome, err := s.SendPaymentLink(ctx, booking.ID)
	if err != nil {
		s.logger.Error("payment link after create failed", slog.String("booking_id", booking.ID), slog.Any("error", err))
		outcome = DemoPaymentLink()
	}
	result.PaymentLink = outcome
	if outcome.Link != "" {
		result.Booking.PaymentLink = outcome.Link
	}
	return result, nil
}

func (s *Service) insert(ctx context.Context, req CreateRequest, staffID string, now time.Time) (Booking, error) {
	selection, err := s.menu.Resolve(ctx, req.ServiceIDs)
	if err != nil {
		if errors.Is(err, catalog.ErrUnknownService) {
			return Booking{}, &ValidationError{Fields: map[string]string{"services": "Unknown service selected"}}
		}
		return Booking{}, fmt.Errorf("resolve services: %w", err)
	}

	day := sequenceDay(now, s.location)
	booking := Booking{
		ID:            uuid.NewString(),
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Car:           req.Car,
		Services:      selection.Names(),
		TotalAmount:   selection.Total,
		Status:        StatusPending,
		CreatedAt:     now,
		ScheduledAt:   req.ScheduledAt,
		Notes:         req.Notes,
		CreatedBy:     staffID,
	}

	for attempt := 1; ; attempt++ {
		err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			seq, err := tx.NextSequence(ctx, day)
			if err != nil {
				return err
			}
			booking.Number = GenerateNumber(day, seq)
			customerID, err := tx.UpsertCustomer(ctx, CustomerUpsert{
				NewID:     uuid.NewString(),
				Name:      booking.CustomerName,
				Phone:     booking.CustomerPhone,
				Amount:    booking.TotalAmount,
				BookingID: booking.ID,
			})
			if err != nil {
				return err
			}
			booking.CustomerID = customerID
			return tx.InsertBooking(ctx, booking)
		})
		if err == nil {
			return booking, nil
		}
		if attempt >= maxCreateAttempts || !db.IsSerializationFailure(err) {
			return Booking{}, fmt.Errorf("create booking: %w", err)
		}
		s.logger.Debug("retrying booking create", slog.Int("attempt", attempt), slog.Any("error", err))
	}
}

// Get loads a single booking.
func (s *Service) Get(ctx context.Context, id string) (Booking, error) {
	return s.repo.Get(ctx, id)
}

// UpdateStatus applies a lifecycle transition.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status, staffID string) (Booking, error) {
	if !status.Valid() {
		return Booking{}, ErrInvalidStatus
	}
	booking, err := s.repo.Get(ctx, id)
	if err != nil {
		return Booking{}, err
	}
	if !booking.Status.CanTransition(status) {
		return Booking{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, booking.Status, status)
	}
	if err := s.repo.UpdateStatus(ctx, id, booking.Status, status); err != nil {
		return Booking{}, err
	}
	previous := booking.Status
	booking.Status = status

	s.metrics.StatusChanged(status.String())
	s.record(ctx, shared.AuditLog{
		ActorID:  staffID,
		Action:   shared.AuditBookingStatus,
		Entity:   "booking",
		EntityID: booking.ID,
		Meta:     map[string]any{"from": previous.String(), "to": status.String()},
	})
	s.publish(ctx, realtime.Event{Type: realtime.TypeBookingUpdated, ID: booking.ID, Action: "status"})
	s.invalidate(ctx)
	return booking, nil
}

// SendPaymentLink asks the payment function for a link. Remote failures
// leave the booking untouched and yield the demo outcome.
func (s *Service) SendPaymentLink(ctx context.Context, id string) (PaymentLinkOutcome, error) {
	outcome, err := s.TrySendPaymentLink(ctx, id)
	if errors.Is(err, ErrPaymentRemote) {
		s.logger.Warn("payment link failed, using demo fallback", slog.String("booking_id", id), slog.Any("error", err))
		return DemoPaymentLink(), nil
	}
	return outcome, err
}

// TrySendPaymentLink is SendPaymentLink without the demo fallback for
// remote failures, which come back wrapping ErrPaymentRemote so a caller
// with retries left can try again.
func (s *Service) TrySendPaymentLink(ctx context.Context, id string) (PaymentLinkOutcome, error) {
	booking, err := s.repo.Get(ctx, id)
	if err != nil {
		return PaymentLinkOutcome{}, err
	}
	if !booking.CanSendPaymentLink() {
		return PaymentLinkOutcome{}, ErrPaymentLinkNotAllowed
	}

	link, err := s.createLink(ctx, booking)
	if errors.Is(err, payments.ErrNotConfigured) {
		s.metrics.PaymentLink(string(PaymentLinkDemo))
		return DemoPaymentLink(), nil
	}
	if err != nil {
		s.metrics.PaymentLink("failed")
		return PaymentLinkOutcome{}, fmt.Errorf("%w: %w", ErrPaymentRemote, err)
	}

	if err := s.repo.SetPaymentLink(ctx, booking.ID, link); err != nil {
		s.logger.Error("store payment link failed", slog.String("booking_id", booking.ID), slog.Any("error", err))
	}
	s.metrics.PaymentLink(string(PaymentLinkSent))
	s.record(ctx, shared.AuditLog{
		Action:   shared.AuditPaymentLink,
		Entity:   "booking",
		EntityID: booking.ID,
		Meta:     map[string]any{"link": link},
	})
	s.publish(ctx, realtime.Event{Type: realtime.TypeBookingUpdated, ID: booking.ID, Action: "payment_link"})
	return PaymentLinkOutcome{Result: PaymentLinkSent, Link: link, Message: MessagePaymentLinkSent}, nil
}

func (s *Service) createLink(ctx context.Context, booking Booking) (string, error) {
	if s.payments == nil {
		return "", payments.ErrNotConfigured
	}
	return s.payments.CreateLink(ctx, payments.LinkRequest{
		BookingID:     booking.ID,
		CustomerPhone: booking.CustomerPhone,
	})
}

// Today returns bookings scheduled on now's calendar day in the workshop time zone.
func (s *Service) Today(ctx context.Context, now time.Time) ([]Booking, error) {
	local := now.In(s.location)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location)
	return s.repo.ListScheduledBetween(ctx, start, start.AddDate(0, 0, 1))
}

// PendingPayments returns bookings still awaiting payment.
func (s *Service) PendingPayments(ctx context.Context) ([]Booking, error) {
	return s.repo.ListByStatus(ctx, StatusPending)
}

// ReceiptEligible returns paid and completed bookings, newest first.
func (s *Service) ReceiptEligible(ctx context.Context) ([]Booking, error) {
	return s.repo.ListByStatus(ctx, StatusPaid, StatusCompleted)
}

// ForCustomer returns bookings made with phone or recorded in history.
func (s *Service) ForCustomer(ctx context.Context, phone string, history []string) ([]Booking, error) {
	return s.repo.ListForCustomer(ctx, phone, history)
}

// List filters and sorts all bookings.
func (s *Service) List(ctx context.Context, filter Filter) (ListResult, error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return ListResult{}, err
	}
	return Apply(all, filter), nil
}

// Now exposes the service clock to handlers.
func (s *Service) Now() time.Time {
	return s.now()
}

func (s *Service) record(ctx context.Context, entry shared.AuditLog) {
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", entry.Action), slog.Any("error", err))
	}
}

func (s *Service) publish(ctx context.Context, evt realtime.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, evt); err != nil {
		s.logger.Warn("publish event failed", slog.String("type", evt.Type), slog.Any("error", err))
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("dashboard cache bump failed", slog.Any("error", err))
	}
}
