package calendar

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const calDAVResponse = `<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:" xmlns:cal="urn:ietf:params:xml:ns:caldav">
  <d:response>
    <d:href>/me/calendars/work/grooming.ics</d:href>
    <d:propstat>
      <d:prop>
        <d:getetag>"1"</d:getetag>
        <cal:calendar-data>BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//Test//EN
BEGIN:VEVENT
UID:grooming
DTSTAMP:20261001T000000Z
SUMMARY:Automation: Grooming
DTSTART:20261020T130000Z
DTEND:20261020T140000Z
END:VEVENT
END:VCALENDAR
</cal:calendar-data>
      </d:prop>
      <d:status>HTTP/1.1 200 OK</d:status>
    </d:propstat>
  </d:response>
  <d:response>
    <d:href>/me/calendars/work/holiday.ics</d:href>
    <d:propstat>
      <d:prop>
        <cal:calendar-data>BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//Test//EN
BEGIN:VEVENT
UID:holiday
DTSTAMP:20261001T000000Z
SUMMARY:Holiday
DTSTART;VALUE=DATE:20261022
DTEND;VALUE=DATE:20261023
END:VEVENT
END:VCALENDAR
</cal:calendar-data>
      </d:prop>
    </d:propstat>
  </d:response>
  <d:response>
    <d:href>/me/calendars/work/standup.ics</d:href>
    <d:propstat>
      <d:prop>
        <cal:calendar-data>BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//Test//EN
BEGIN:VEVENT
UID:standup
DTSTAMP:20261001T000000Z
SUMMARY:Standup
DTSTART:20261019T120000Z
DURATION:PT30M
RRULE:FREQ=DAILY;COUNT=10
END:VEVENT
BEGIN:VEVENT
UID:standup
DTSTAMP:20261001T000000Z
RECURRENCE-ID:20261021T120000Z
SUMMARY:Standup (moved)
DTSTART:20261021T140000Z
DTEND:20261021T143000Z
END:VEVENT
END:VCALENDAR
</cal:calendar-data>
      </d:prop>
    </d:propstat>
  </d:response>
</d:multistatus>`

func TestCalDAVFetchWeek(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "me" || pass != "app-password" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Method != "REPORT" || r.URL.Path != "/me/calendars/work/" || r.Header.Get("Depth") != "1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusMultiStatus)
		w.Write([]byte(calDAVResponse))
	}))
	defer srv.Close()

	client := NewCalDAVClient(srv.URL, "/me/calendars/work/", "me", "app-password")
	w := testWindow()

	events, err := client.FetchWeek(context.Background(), w)
	require.NoError(t, err)

	assert.Contains(t, gotBody, `<C:expand start="20261019T030000Z" end="20261024T030000Z"/>`)
	assert.Contains(t, gotBody, `<C:time-range start="20261019T030000Z" end="20261024T030000Z"/>`)

	// grooming, the moved standup, then four generated standups (19, 20, 22, 23).
	require.Len(t, events, 6)

	assert.Equal(t, "Automation: Grooming", events[0].Summary)
	assert.Equal(t, "2026-10-20T10:00:00-03:00", events[0].Start.Format(time.RFC3339))
	assert.Equal(t, "2026-10-20T11:00:00-03:00", events[0].End.Format(time.RFC3339))

	assert.Equal(t, "Standup (moved)", events[1].Summary)
	assert.Equal(t, "2026-10-21T11:00:00-03:00", events[1].Start.Format(time.RFC3339))

	var days []int
	for _, e := range events[2:] {
		assert.Equal(t, "Standup", e.Summary)
		assert.Equal(t, "standup", e.ID)
		assert.Equal(t, 30*time.Minute, e.End.Sub(e.Start))
		assert.Equal(t, 9, e.Start.Hour(), "start in window location")
		days = append(days, e.Start.Day())
	}
	assert.Equal(t, []int{19, 20, 22, 23}, days)
}

// An unexpanded object carries overrides for every week of the series.
const calDAVUnexpandedResponse = `<?xml version="1.0" encoding="utf-8"?>
<d:multistatus xmlns:d="DAV:" xmlns:cal="urn:ietf:params:xml:ns:caldav">
  <d:response>
    <d:href>/me/calendars/work/weekly.ics</d:href>
    <d:propstat>
      <d:prop>
        <cal:calendar-data>BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//Test//EN
BEGIN:VEVENT
UID:weekly
DTSTAMP:20261001T000000Z
SUMMARY:Weekly
DTSTART:20261013T130000Z
DTEND:20261013T140000Z
RRULE:FREQ=WEEKLY;COUNT=4
END:VEVENT
BEGIN:VEVENT
UID:weekly
DTSTAMP:20261001T000000Z
RECURRENCE-ID:20261020T130000Z
SUMMARY:Weekly moved
DTSTART:20261028T130000Z
DTEND:20261028T140000Z
END:VEVENT
BEGIN:VEVENT
UID:weekly
DTSTAMP:20261001T000000Z
RECURRENCE-ID:20261013T130000Z
SUMMARY:Weekly moved in
DTSTART:20261021T130000Z
DTEND:20261021T140000Z
END:VEVENT
END:VCALENDAR
</cal:calendar-data>
      </d:prop>
    </d:propstat>
  </d:response>
</d:multistatus>`

func TestCalDAVFetchWeek_OverridesOutsideWindow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMultiStatus)
		w.Write([]byte(calDAVUnexpandedResponse))
	}))
	defer srv.Close()

	client := NewCalDAVClient(srv.URL, "/me/calendars/work/", "me", "app-password")
	w := testWindow()

	events, err := client.FetchWeek(context.Background(), w)
	require.NoError(t, err)

	// This week's occurrence moved to next week; last week's moved into this one.
	require.Len(t, events, 1)
	assert.Equal(t, "Weekly moved in", events[0].Summary)
	assert.Equal(t, "2026-10-21T10:00:00-03:00", events[0].Start.Format(time.RFC3339))
	for _, e := range events {
		assert.False(t, e.Start.Before(w.Monday), "%q starts before the window", e.Summary)
		assert.True(t, e.Start.Before(w.Saturday), "%q starts after the window", e.Summary)
	}
}

func TestCalDAVFetchWeek_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewCalDAVClient(srv.URL, "/me/calendars/work/", "me", "wrong")
	_, err := client.FetchWeek(context.Background(), testWindow())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 401")
}

func TestParseCalDAVResponse_Empty(t *testing.T) {
	objects, err := parseCalDAVResponse([]byte(`<d:multistatus xmlns:d="DAV:"></d:multistatus>`))
	require.NoError(t, err)
	assert.Empty(t, objects)

	_, err = parseCalDAVResponse([]byte(`not xml`))
	assert.Error(t, err)
}
