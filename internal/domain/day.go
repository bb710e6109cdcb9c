package domain

import (
	"fmt"
	"time"
)

// Day identifies a calendar date, independent of time-of-day and zone.
// Availability is always addressed at calendar-day granularity, so stored
// timestamps must be collapsed through DayOf before comparison.
type Day struct {
	Year  int
	Month time.Month
	Date  int
}

// DayOf collapses a timestamp to its UTC calendar date.
func DayOf(t time.Time) Day {
	y, m, d := t.UTC().Date()
	return Day{Year: y, Month: m, Date: d}
}

// IsZero reports whether the day is unset.
func (d Day) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Date == 0
}

// Time returns the day as midnight UTC.
func (d Day) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Date, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the day shifted by n calendar days.
func (d Day) AddDays(n int) Day {
	return DayOf(d.Time().AddDate(0, 0, n))
}

// Before reports whether d is strictly earlier than other.
func (d Day) Before(other Day) bool {
	return d.Time().Before(other.Time())
}

// String formats the day as YYYY-MM-DD.
func (d Day) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Date)
}
