package customers

import (
	"context"
	"strings"

	"github.com/autocare/workshop/internal/bookings"
)

// BookingFinder lists the bookings belonging to a customer.
type BookingFinder interface {
	ForCustomer(ctx context.Context, phone string, history []string) ([]bookings.Booking, error)
}

// Service answers customer lookups.
type Service struct {
	repo     Repository
	bookings BookingFinder
}

// NewService constructs the service.
func NewService(repo Repository, finder BookingFinder) *Service {
	return &Service{repo: repo, bookings: finder}
}

// FindByPhone returns the first customer, newest first, whose phone contains fragment.
func (s *Service) FindByPhone(ctx context.Context, fragment string) (Customer, error) {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return Customer{}, ErrNotFound
	}
	return s.repo.FindByPhone(ctx, fragment)
}

// History returns bookings made with the customer's phone or listed in
// their booking history, newest first.
func (s *Service) History(ctx context.Context, c Customer) ([]bookings.Booking, error) {
	return s.bookings.ForCustomer(ctx, c.Phone, c.BookingHistory)
}

// Lookup combines FindByPhone and History.
func (s *Service) Lookup(ctx context.Context, fragment string) (Profile, error) {
	c, err := s.FindByPhone(ctx, fragment)
	if err != nil {
		return Profile{}, err
	}
	return s.profile(ctx, c)
}

// Profile loads a customer by id with their history.
func (s *Service) Profile(ctx context.Context, id string) (Profile, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	return s.profile(ctx, c)
}

func (s *Service) profile(ctx context.Context, c Customer) (Profile, error) {
	history, err := s.History(ctx, c)
	if err != nil {
		return Profile{}, err
	}
	return Profile{Customer: c, Bookings: history, BookingCount: len(history)}, nil
}
