package calendar

import (
	"context"
	"time"

	"github.com/beekhof/calendar-toggl/internal/week"
)

// RawEvent is a single timed calendar occurrence as returned by a provider.
// Start and End keep the UTC offset the provider reported.
type RawEvent struct {
	ID      string
	Summary string
	Start   time.Time
	End     time.Time
}

// Source fetches the events of one calendar for a work-week window.
// Both the Google Calendar and the CalDAV clients implement this interface.
type Source interface {
	FetchWeek(ctx context.Context, w week.Window) ([]RawEvent, error)
}
