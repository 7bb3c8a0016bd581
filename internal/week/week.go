// Package week computes the work-week window used to bound the calendar query.
package week

import (
	"fmt"
	"time"
)

// Workdays is the number of weekday buckets (Monday through Friday).
const Workdays = 5

// Window is the [Monday, Saturday) range of the current work week.
type Window struct {
	Monday   time.Time
	Saturday time.Time
}

// Zone returns a fixed zone for a whole-hour UTC offset, e.g. -3 for UTC-03:00.
func Zone(offsetHours int) *time.Location {
	sign := "+"
	h := offsetHours
	if h < 0 {
		sign = "-"
		h = -h
	}
	return time.FixedZone(fmt.Sprintf("UTC%s%02d:00", sign, h), offsetHours*3600)
}

// Start returns the most recent date on or before date whose weekday equals
// offset (Sunday = 0). The time of day is truncated to midnight in date's location.
func Start(date time.Time, offset int) time.Time {
	back := ((int(date.Weekday())-offset)%7 + 7) % 7
	y, m, d := date.Date()
	return time.Date(y, m, d-back, 0, 0, 0, 0, date.Location())
}

// Current returns the window for the week containing now, as seen in loc.
func Current(now time.Time, offset int, loc *time.Location) Window {
	monday := Start(now.In(loc), offset)
	return Window{
		Monday:   monday,
		Saturday: monday.AddDate(0, 0, Workdays),
	}
}

// Day returns midnight of the given day offset (0 = Monday) in the window.
func (w Window) Day(offset int) time.Time {
	return w.Monday.AddDate(0, 0, offset)
}

// String formats the window for log lines.
func (w Window) String() string {
	return fmt.Sprintf("%s to %s", w.Monday.Format("2006-01-02"), w.Saturday.Format("2006-01-02"))
}
