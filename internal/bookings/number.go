package bookings

import (
	"fmt"
	"time"
)

// GenerateNumber formats a booking number as BK-YYMMDD-NNN.
func GenerateNumber(day time.Time, seq int) string {
	return fmt.Sprintf("BK-%s-%03d", day.Format("060102"), seq)
}

// sequenceDay truncates t to the calendar day in loc, used as the counter key.
func sequenceDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}
