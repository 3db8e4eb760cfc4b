// Package bookings owns the service bookings made at the front desk: creation,
// status changes, payment links, list filtering and exports.
package bookings

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/autocare/workshop/internal/platform/httpx"
)

// Status is the lifecycle state of a booking.
type Status string

// Booking statuses.
const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusPending, StatusPaid, StatusCompleted, StatusCancelled}

var transitions = map[Status][]Status{
	StatusPending: {StatusPaid, StatusCancelled},
	StatusPaid:    {StatusCompleted, StatusCancelled},
}

var (
	// ErrNotFound is returned when a booking does not exist.
	ErrNotFound = httpx.NewError(httpx.ErrNotFound, "booking not found")
	// ErrInvalidTransition rejects status changes outside the lifecycle.
	ErrInvalidTransition = httpx.NewError(httpx.ErrConflict, "invalid booking status transition")
	// ErrInvalidStatus is returned for unknown status values.
	ErrInvalidStatus = httpx.NewError(httpx.ErrValidation, "invalid booking status")
	// ErrValidation marks input errors.
	ErrValidation = httpx.NewError(httpx.ErrValidation, "booking validation failed")
	// ErrPaymentLinkNotAllowed rejects payment links for closed bookings.
	ErrPaymentLinkNotAllowed = httpx.NewError(httpx.ErrConflict, "payment link not allowed for this booking")
	// ErrDuplicateSubmission is returned when a form is submitted twice.
	ErrDuplicateSubmission = httpx.NewError(httpx.ErrConflict, "booking already submitted")
	// ErrPaymentRemote wraps failures of the payment link function.
	ErrPaymentRemote = errors.New("payment function unavailable")
)

func (s Status) String() string { return string(s) }

// Label is the capitalised status for display.
func (s Status) Label() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether moving from s to next is allowed.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// NextStatuses lists the statuses reachable from s.
func (s Status) NextStatuses() []Status {
	return append([]Status(nil), transitions[s]...)
}

// ParseStatus validates a raw status value.
func ParseStatus(raw string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return status, nil
}

// Car describes the customer's vehicle.
type Car struct {
	Make         string `json:"make" validate:"required,max=60"`
	Model        string `json:"model" validate:"required,max=60"`
	Year         int    `json:"year"`
	LicensePlate string `json:"licensePlate" validate:"required,max=20"`
}

// Description renders "year make model".
func (c Car) Description() string {
	return strings.TrimSpace(fmt.Sprintf("%d %s %s", c.Year, c.Make, c.Model))
}

// Booking is a scheduled service visit.
type Booking struct {
	ID            string    `json:"id"`
	Number        string    `json:"bookingNumber"`
	CustomerID    string    `json:"customerId"`
	CustomerName  string    `json:"customerName"`
	CustomerPhone string    `json:"customerPhone"`
	Car           Car       `json:"car"`
	Services      []string  `json:"services"`
	TotalAmount   float64   `json:"totalAmount"`
	Status        Status    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	ScheduledAt   time.Time `json:"scheduledDate"`
	PaymentLink   string    `json:"paymentLink,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	CreatedBy     string    `json:"createdBy"`
}

// ReceiptEligible reports whether a receipt can be issued.
func (b Booking) ReceiptEligible() bool {
	return b.Status == StatusPaid || b.Status == StatusCompleted
}

// CanSendPaymentLink reports whether a payment link may be (re)sent.
func (b Booking) CanSendPaymentLink() bool {
	return !b.Status.Terminal()
}

// CreateRequest carries the new booking form.
type CreateRequest struct {
	CustomerName   string    `json:"customerName" validate:"required,max=120"`
	CustomerPhone  string    `json:"customerPhone" validate:"required,max=32"`
	Car            Car       `json:"car"`
	ServiceIDs     []string  `json:"serviceIds"`
	ScheduledAt    time.Time `json:"scheduledDate"`
	Notes          string    `json:"notes" validate:"max=2000"`
	IdempotencyKey string    `json:"-"`
}

// ValidationError lists field problems in a stable order.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	return e.Fields[e.firstKey()]
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error { return ErrValidation }

func (e *ValidationError) firstKey() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return fieldRank(keys[i]) < fieldRank(keys[j])
	})
	return keys[0]
}

var fieldOrder = []string{"customerName", "customerPhone", "carMake", "carModel", "carYear", "licensePlate", "services", "scheduledDate", "notes"}

func fieldRank(field string) int {
	for i, f := range fieldOrder {
		if f == field {
			return i
		}
	}
	return len(fieldOrder)
}

// PaymentLinkResult describes the outcome of SendPaymentLink.
type PaymentLinkResult string

// Payment link outcomes.
const (
	PaymentLinkSent PaymentLinkResult = "sent"
	PaymentLinkDemo PaymentLinkResult = "demo"
)

// PaymentLinkOutcome is returned to pages and the API.
type PaymentLinkOutcome struct {
	Result  PaymentLinkResult `json:"result"`
	Link    string            `json:"paymentLink,omitempty"`
	Message string            `json:"message"`
}

// Messages shown after a payment link attempt.
const (
	MessagePaymentLinkSent = "Payment link sent to customer"
	MessagePaymentLinkDemo = "Demo: Payment link would be sent to customer"
)

// DemoPaymentLink is the outcome reported when no real link was created.
func DemoPaymentLink() PaymentLinkOutcome {
	return PaymentLinkOutcome{Result: PaymentLinkDemo, Message: MessagePaymentLinkDemo}
}
