// Package receipts issues printable receipts for paid and completed bookings.
package receipts

import (
	"context"
	"errors"

	"github.com/autocare/workshop/internal/bookings"
	"github.com/autocare/workshop/internal/platform/httpx"
)

// ErrNotFound is returned for missing or ineligible bookings.
var ErrNotFound = httpx.NewError(httpx.ErrNotFound, "receipt not found")

// Empty state messages.
const (
	MessageNoPaidBookings = "No paid bookings available for receipts"
	MessageNoMatches      = "No receipts match your search criteria"
)

// BookingSource loads bookings for receipts.
type BookingSource interface {
	ReceiptEligible(ctx context.Context) ([]bookings.Booking, error)
	Get(ctx context.Context, id string) (bookings.Booking, error)
}

// Service lists and loads receipt-eligible bookings.
type Service struct {
	source BookingSource
}

// NewService constructs the service.
func NewService(source BookingSource) *Service {
	return &Service{source: source}
}

// List is the receipts page content.
type List struct {
	Search        string
	Receipts      []bookings.Booking
	EligibleCount int
	EmptyMessage  string
}

// Search returns eligible bookings matching term (number or name,
// case-insensitive; phone by substring).
func (s *Service) Search(ctx context.Context, term string) (List, error) {
	eligible, err := s.source.ReceiptEligible(ctx)
	if err != nil {
		return List{}, err
	}
	out := List{Search: term, EligibleCount: len(eligible)}
	for _, b := range eligible {
		if bookings.Matches(b, term) {
			out.Receipts = append(out.Receipts, b)
		}
	}
	switch {
	case len(eligible) == 0:
		out.EmptyMessage = MessageNoPaidBookings
	case len(out.Receipts) == 0:
		out.EmptyMessage = MessageNoMatches
	}
	return out, nil
}

// Get loads a booking that can carry a receipt.
func (s *Service) Get(ctx context.Context, id string) (bookings.Booking, error) {
	b, err := s.source.Get(ctx, id)
	if err != nil {
		if errors.Is(err, bookings.ErrNotFound) {
			return bookings.Booking{}, ErrNotFound
		}
		return bookings.Booking{}, err
	}
	if !b.ReceiptEligible() {
		return bookings.Booking{}, ErrNotFound
	}
	return b, nil
}
