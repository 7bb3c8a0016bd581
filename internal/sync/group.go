package sync

import (
	"time"

	"github.com/beekhof/calendar-toggl/internal/week"
)

// Buckets holds the events of each workday, index 0 being Monday.
type Buckets [week.Workdays][]Event

// Len returns the number of events across all buckets.
func (b Buckets) Len() int {
	n := 0
	for _, day := range b {
		n += len(day)
	}
	return n
}

// GroupByWeekday puts each event in the bucket whose date equals the calendar
// date of its start time. Events outside Monday-Friday of the week land in no
// bucket. Order within a bucket follows the input order.
func GroupByWeekday(events []Event, w week.Window) Buckets {
	var buckets Buckets
	for offset := 0; offset < week.Workdays; offset++ {
		day := w.Day(offset)
		for _, event := range events {
			if sameDate(event.Start, day) {
				buckets[offset] = append(buckets[offset], event)
			}
		}
	}
	return buckets
}

// sameDate compares calendar dates, each in its own location.
func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
