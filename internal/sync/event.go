package sync

import (
	"time"

	calclient "github.com/beekhof/calendar-toggl/internal/calendar"
)

// Event is a calendar event after alias resolution and project tagging.
// It is not modified after Normalize returns it.
type Event struct {
	Start   time.Time
	End     time.Time
	Summary string
	Project string // empty when the event is not billable
}

// Billable reports whether the event is logged against the project.
func (e Event) Billable() bool {
	return e.Project != ""
}

// DurationSeconds is End minus Start in whole seconds.
func (e Event) DurationSeconds() int64 {
	return e.End.Unix() - e.Start.Unix()
}

// Normalize maps a raw event through the alias table. Titles found in the
// table (exact, case-sensitive) take the mapped label and the project;
// anything else keeps its title and has no project.
func Normalize(raw calclient.RawEvent, aliases map[string]string, project string) Event {
	event := Event{
		Start:   raw.Start,
		End:     raw.End,
		Summary: raw.Summary,
	}
	if label, ok := aliases[raw.Summary]; ok {
		event.Summary = label
		event.Project = project
	}
	return event
}

// NormalizeAll normalizes every raw event, keeping their order.
func NormalizeAll(raw []calclient.RawEvent, aliases map[string]string, project string) []Event {
	events := make([]Event, 0, len(raw))
	for _, r := range raw {
		events = append(events, Normalize(r, aliases, project))
	}
	return events
}
