package sync

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/beekhof/calendar-toggl/internal/week"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loc = week.Zone(-3)

var monday = time.Date(2026, time.October, 19, 0, 0, 0, 0, loc)

var thisWeek = week.Window{Monday: monday, Saturday: monday.AddDate(0, 0, week.Workdays)}

func at(day, hour int, summary string) Event {
	start := monday.AddDate(0, 0, day).Add(time.Duration(hour) * time.Hour)
	return Event{Start: start, End: start.Add(time.Hour), Summary: summary}
}

func TestGroupByWeekday_Partition(t *testing.T) {
	events := []Event{
		at(1, 10, "tue-1"),
		at(0, 9, "mon-1"),
		at(5, 10, "saturday"),
		at(1, 8, "tue-2"),
		at(4, 23, "fri-late"),
		at(6, 10, "sunday"),
		at(-1, 10, "previous sunday"),
		at(7, 9, "next monday"),
	}

	buckets := GroupByWeekday(events, thisWeek)

	assert.Equal(t, []string{"mon-1"}, summaries(buckets[0]))
	assert.Equal(t, []string{"tue-1", "tue-2"}, summaries(buckets[1]), "input order is kept")
	assert.Empty(t, buckets[2])
	assert.Empty(t, buckets[3])
	assert.Equal(t, []string{"fri-late"}, summaries(buckets[4]))
	assert.Equal(t, 4, buckets.Len(), "weekend and out-of-week events are dropped")

	seen := map[string]bool{}
	for d, bucket := range buckets {
		for _, e := range bucket {
			assert.False(t, seen[e.Summary], "%s in two buckets", e.Summary)
			seen[e.Summary] = true
			assert.True(t, sameDate(e.Start, monday.AddDate(0, 0, d)))
		}
	}
}

func TestGroupByWeekday_UsesEventOwnOffset(t *testing.T) {
	// 23:30 on Monday at -03:00 is Tuesday in UTC; the event's own date wins.
	start := time.Date(2026, time.October, 19, 23, 30, 0, 0, loc)
	buckets := GroupByWeekday([]Event{{Start: start, End: start.Add(time.Hour)}}, thisWeek)

	assert.Len(t, buckets[0], 1)
	assert.Empty(t, buckets[1])
}

func TestGroupByWeekday_Empty(t *testing.T) {
	buckets := GroupByWeekday(nil, thisWeek)

	for d := range buckets {
		assert.Empty(t, buckets[d])
	}
	assert.Equal(t, 0, buckets.Len())
}

func TestReport(t *testing.T) {
	events := []Event{at(0, 9, "a"), at(0, 10, "b"), at(2, 9, "c"), at(5, 9, "weekend")}
	buckets := GroupByWeekday(events, thisWeek)

	var out bytes.Buffer
	require.NoError(t, Report(&out, events, buckets))

	assert.Equal(t, "Events count: 4\n"+
		"================\n"+
		"Events on day: 0: 2\n"+
		"Events on day: 1: 0\n"+
		"Events on day: 2: 1\n"+
		"Events on day: 3: 0\n"+
		"Events on day: 4: 0\n", out.String())
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("closed") }

func TestReport_WriteError(t *testing.T) {
	assert.Error(t, Report(failingWriter{}, nil, Buckets{}))
}

func summaries(events []Event) []string {
	var out []string
	for _, e := range events {
		out = append(out, e.Summary)
	}
	return out
}
