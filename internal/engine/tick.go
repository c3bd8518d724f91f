// Package engine provides the day-stepped simulation loop.
package engine

import (
	"time"
)

// TimestampLayout is the layout used for human-readable simulated times.
const TimestampLayout = "2006-01-02 15:04:05"

// Calendar maps day offsets of a run onto calendar days.
type Calendar struct {
	Start time.Time // Local midnight of day 0
	Days  int
}

// NewCalendar creates a calendar of days days beginning at start's calendar day.
func NewCalendar(start time.Time, days int) Calendar {
	return Calendar{
		Start: time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location()),
		Days:  days,
	}
}

// Day returns local midnight of the given offset.
func (c Calendar) Day(offset int) time.Time {
	return c.Start.AddDate(0, 0, offset)
}

// End returns midnight after the last simulated day.
func (c Calendar) End() time.Time {
	return c.Day(c.Days)
}

// Step calls fn for every day of the run, in order.
func (c Calendar) Step(fn func(offset int, day time.Time)) {
	for d := 0; d < c.Days; d++ {
		fn(d, c.Day(d))
	}
}

// SimTime returns a human-readable simulated timestamp.
func SimTime(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseDate parses a YYYY-MM-DD start date as local midnight.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.Local)
}
