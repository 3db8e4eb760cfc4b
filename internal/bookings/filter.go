package bookings

import (
	"net/url"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Sort orders a booking list.
type Sort string

// Supported sort orders.
const (
	SortNewest     Sort = "newest"
	SortOldest     Sort = "oldest"
	SortAmountHigh Sort = "amount-high"
	SortAmountLow  Sort = "amount-low"
	SortCustomer   Sort = "customer"
)

// StatusAll disables the status filter.
const StatusAll = "all"

// SortOptions lists the sorts in the order the page offers them.
var SortOptions = []Sort{SortNewest, SortOldest, SortAmountHigh, SortAmountLow, SortCustomer}

// Filter narrows and orders the booking list.
type Filter struct {
	Search string
	Status string
	Sort   Sort
}

// Counts holds the number of bookings per status bucket.
type Counts struct {
	All       int `json:"all"`
	Pending   int `json:"pending"`
	Paid      int `json:"paid"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}

// ListResult is a filtered list plus the counts of the unfiltered one.
type ListResult struct {
	Bookings []Booking `json:"bookings"`
	Counts   Counts    `json:"counts"`
	Total    int       `json:"total"`
	Filter   Filter    `json:"-"`
}

// ParseFilter reads search, status and sort query parameters. Unknown
// values fall back to the defaults.
func ParseFilter(values url.Values) Filter {
	f := Filter{
		Search: strings.TrimSpace(values.Get("search")),
		Status: StatusAll,
		Sort:   SortNewest,
	}
	if status, err := ParseStatus(values.Get("status")); err == nil {
		f.Status = status.String()
	}
	sort := Sort(values.Get("sort"))
	if slices.Contains(SortOptions, sort) {
		f.Sort = sort
	}
	return f
}

// Query renders the filter back into query parameters.
func (f Filter) Query() url.Values {
	values := url.Values{}
	if f.Search != "" {
		values.Set("search", f.Search)
	}
	if f.Status != "" && f.Status != StatusAll {
		values.Set("status", f.Status)
	}
	if f.Sort != "" && f.Sort != SortNewest {
		values.Set("sort", string(f.Sort))
	}
	return values
}

// Matches reports whether b matches a search term: booking number and
// customer name case-insensitively, phone by plain substring.
func Matches(b Booking, term string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return true
	}
	lower := strings.ToLower(term)
	return strings.Contains(strings.ToLower(b.Number), lower) ||
		strings.Contains(strings.ToLower(b.CustomerName), lower) ||
		strings.Contains(b.CustomerPhone, term)
}

// CountStatuses tallies bookings per status.
func CountStatuses(all []Booking) Counts {
	counts := Counts{All: len(all)}
	for _, b := range all {
		switch b.Status {
		case StatusPending:
			counts.Pending++
		case StatusPaid:
			counts.Paid++
		case StatusCompleted:
			counts.Completed++
		case StatusCancelled:
			counts.Cancelled++
		}
	}
	return counts
}

// Apply filters and sorts all, which is expected newest first. The input
// slice is not modified.
func Apply(all []Booking, f Filter) ListResult {
	out := make([]Booking, 0, len(all))
	for _, b := range all {
		if f.Status != "" && f.Status != StatusAll && b.Status.String() != f.Status {
			continue
		}
		if !Matches(b, f.Search) {
			continue
		}
		out = append(out, b)
	}
	sortBookings(out, f.Sort)
	return ListResult{
		Bookings: out,
		Counts:   CountStatuses(all),
		Total:    len(all),
		Filter:   f,
	}
}

func sortBookings(list []Booking, order Sort) {
	switch order {
	case SortOldest:
		slices.SortStableFunc(list, func(a, b Booking) int { return a.CreatedAt.Compare(b.CreatedAt) })
	case SortAmountHigh:
		slices.SortStableFunc(list, func(a, b Booking) int { return compareFloat(b.TotalAmount, a.TotalAmount) })
	case SortAmountLow:
		slices.SortStableFunc(list, func(a, b Booking) int { return compareFloat(a.TotalAmount, b.TotalAmount) })
	case SortCustomer:
		// Collator is not safe for concurrent use; one per call.
		col := collate.New(language.English, collate.IgnoreCase, collate.Loose)
		slices.SortStableFunc(list, func(a, b Booking) int { return col.CompareString(a.CustomerName, b.CustomerName) })
	default:
		slices.SortStableFunc(list, func(a, b Booking) int { return b.CreatedAt.Compare(a.CreatedAt) })
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
