// Package customers provides phone lookup and booking history for returning
// customers. Customer rows are written by the bookings transaction.
package customers

import (
	"time"

	"github.com/autocare/workshop/internal/bookings"
	"github.com/autocare/workshop/internal/platform/httpx"
)

// ErrNotFound is returned when no customer matches a phone search.
var ErrNotFound = httpx.NewError(httpx.ErrNotFound, "customer not found")

// Customer aggregates the bookings made with one phone number.
type Customer struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Phone          string    `json:"phone"`
	TotalSpent     float64   `json:"totalSpent"`
	BookingHistory []string  `json:"bookingHistory"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Profile is a customer with their bookings, newest first.
type Profile struct {
	Customer     Customer           `json:"customer"`
	Bookings     []bookings.Booking `json:"bookings"`
	BookingCount int                `json:"bookingCount"`
}
