// Package dashboard summarises the workshop's day and recent months.
package dashboard

import (
	"html/template"
	"time"

	"github.com/autocare/workshop/internal/bookings"
	"github.com/autocare/workshop/internal/platform/httpx"
)

// ErrValidation marks rejected expense input.
var ErrValidation = httpx.NewError(httpx.ErrValidation, "invalid expense")

// ChartMonths is the number of months plotted on the income chart.
const ChartMonths = 6

// Stats are the headline counters.
type Stats struct {
	TodayCount     int     `json:"todayCount"`
	PendingCount   int     `json:"pendingCount"`
	Revenue        float64 `json:"revenue"`
	CompletedCount int     `json:"completedCount"`
}

// MonthPoint is one month of income and expenses. Month is formatted
// as 2006-01.
type MonthPoint struct {
	Month    string  `json:"month"`
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
}

// Overview is the cached part of the dashboard.
type Overview struct {
	Stats  Stats        `json:"stats"`
	Months []MonthPoint `json:"months"`
}

// Expense is a ledger entry shown against income.
type Expense struct {
	ID        string
	Label     string
	Amount    float64
	SpentOn   time.Time
	CreatedBy string
	CreatedAt time.Time
}

// ExpenseInput is the submitted expense form.
type ExpenseInput struct {
	Label   string    `validate:"required,max=120"`
	Amount  float64   `validate:"gt=0"`
	SpentOn time.Time `validate:"-"`
}

// View feeds the dashboard page.
type View struct {
	Stats      Stats
	Today      []bookings.Booking
	TodayTotal int
	Months     []MonthPoint
	Chart      template.HTML
}

// TodayPreview is how many of today's bookings the dashboard lists.
const TodayPreview = 3
