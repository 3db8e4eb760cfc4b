package customers

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autocare/workshop/internal/bookings"
)

type fakeRepo struct {
	customers []Customer
}

func (f *fakeRepo) FindByPhone(ctx context.Context, fragment string) (Customer, error) {
	list := append([]Customer(nil), f.customers...)
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	for _, c := range list {
		if strings.Contains(c.Phone, fragment) {
			return c, nil
		}
	}
	return Customer{}, ErrNotFound
}

func (f *fakeRepo) Get(ctx context.Context, id string) (Customer, error) {
	for _, c := range f.customers {
		if c.ID == id {
			return c, nil
		}
	}
	return Customer{}, ErrNotFound
}

type fakeBookings struct {
	all []bookings.Booking
}

func (f *fakeBookings) ForCustomer(ctx context.Context, phone string, history []string) ([]bookings.Booking, error) {
	var out []bookings.Booking
	for _, b := range f.all {
		match := b.CustomerPhone == phone
		for _, id := range history {
			if id == b.ID {
				match = true
			}
		}
		if match {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func newTestService() *Service {
	base := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	repo := &fakeRepo{customers: []Customer{
		{ID: "c1", Name: "Old Customer", Phone: "555-1234", CreatedAt: base, BookingHistory: []string{"b1"}},
		{ID: "c2", Name: "New Customer", Phone: "555-1299", CreatedAt: base.Add(24 * time.Hour), BookingHistory: []string{"b3"}},
	}}
	finder := &fakeBookings{all: []bookings.Booking{
		{ID: "b1", CustomerPhone: "555-1234", CreatedAt: base},
		{ID: "b2", CustomerPhone: "555-1234", CreatedAt: base.Add(48 * time.Hour)},
		{ID: "b3", CustomerPhone: "old-number", CreatedAt: base.Add(72 * time.Hour)},
	}}
	return NewService(repo, finder)
}

func TestFindByPhoneSubstringNewestFirst(t *testing.T) {
	svc := newTestService()

	c, err := svc.FindByPhone(context.Background(), "555-12")
	require.NoError(t, err)
	assert.Equal(t, "c2", c.ID)

	c, err = svc.FindByPhone(context.Background(), " 1234 ")
	require.NoError(t, err)
	assert.Equal(t, "c1", c.ID)
}

func TestFindByPhoneNotFound(t *testing.T) {
	svc := newTestService()

	_, err := svc.FindByPhone(context.Background(), "999")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.FindByPhone(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupIncludesPhoneAndHistoryBookings(t *testing.T) {
	svc := newTestService()

	profile, err := svc.Lookup(context.Background(), "1234")
	require.NoError(t, err)
	assert.Equal(t, 2, profile.BookingCount)
	assert.Equal(t, "b2", profile.Bookings[0].ID)
	assert.Equal(t, "b1", profile.Bookings[1].ID)

	profile, err = svc.Profile(context.Background(), "c2")
	require.NoError(t, err)
	require.Len(t, profile.Bookings, 1)
	assert.Equal(t, "b3", profile.Bookings[0].ID)
}
