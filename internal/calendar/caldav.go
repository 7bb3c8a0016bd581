package calendar

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/beekhof/calendar-toggl/internal/week"

	"github.com/emersion/go-ical"
)

// calDAVTimeFormat is the UTC form CalDAV expects in time-range and expand.
const calDAVTimeFormat = "20060102T150405Z"

// CalDAVClient reads events from a CalDAV calendar (e.g. iCloud) over HTTP
// basic auth.
type CalDAVClient struct {
	httpClient   *http.Client
	username     string
	password     string
	serverURL    string
	calendarPath string
}

// NewCalDAVClient creates a new CalDAV client.
// serverURL should be the CalDAV server URL (e.g., "https://caldav.icloud.com" for iCloud),
// calendarPath the collection path (e.g., "/123456/calendars/work/").
// For iCloud the password should be an app-specific password.
func NewCalDAVClient(serverURL, calendarPath, username, password string) *CalDAVClient {
	return &CalDAVClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		username:     username,
		password:     password,
		serverURL:    serverURL,
		calendarPath: calendarPath,
	}
}

// makeRequest makes an authenticated HTTP request to the CalDAV server.
func (c *CalDAVClient) makeRequest(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	url := strings.TrimSuffix(c.serverURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}

	req.SetBasicAuth(c.username, c.password)
	if body != nil {
		req.Header.Set("Content-Type", "application/xml; charset=utf-8")
	}
	req.Header.Set("Depth", "1")

	return c.httpClient.Do(req)
}

// FetchWeek queries the calendar for events within the window. The server is
// asked to expand recurring events; masters it returns unexpanded are
// expanded locally. Times are returned in the window's location.
func (c *CalDAVClient) FetchWeek(ctx context.Context, w week.Window) ([]RawEvent, error) {
	start := w.Monday.UTC().Format(calDAVTimeFormat)
	end := w.Saturday.UTC().Format(calDAVTimeFormat)
	queryBody := fmt.Sprintf(`<?xml version="1.0" encoding="utf-8" ?>
<C:calendar-query xmlns:D="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">
  <D:prop>
    <D:getetag/>
    <C:calendar-data>
      <C:expand start="%s" end="%s"/>
    </C:calendar-data>
  </D:prop>
  <C:filter>
    <C:comp-filter name="VCALENDAR">
      <C:comp-filter name="VEVENT">
        <C:time-range start="%s" end="%s"/>
      </C:comp-filter>
    </C:comp-filter>
  </C:filter>
</C:calendar-query>`, start, end, start, end)

	resp, err := c.makeRequest(ctx, "REPORT", c.calendarPath, strings.NewReader(queryBody))
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusMultiStatus {
		return nil, fmt.Errorf("failed to query calendar: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	objects, err := parseCalDAVResponse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CalDAV response: %w", err)
	}

	loc := w.Monday.Location()
	var events []RawEvent
	for _, icalData := range objects {
		cal, err := ical.NewDecoder(strings.NewReader(icalData)).Decode()
		if err != nil {
			return nil, fmt.Errorf("failed to parse iCalendar data: %w", err)
		}

		occurrences, err := expandCalendar(cal, w, loc)
		if err != nil {
			return nil, err
		}
		events = append(events, occurrences...)
	}

	return events, nil
}

// parseCalDAVResponse parses a CalDAV REPORT response to extract iCalendar data.
func parseCalDAVResponse(body []byte) ([]string, error) {
	type CalendarData struct {
		XMLName xml.Name `xml:"calendar-data"`
		Data    string   `xml:",chardata"`
	}

	type Prop struct {
		CalendarData CalendarData `xml:"calendar-data"`
	}

	type Response struct {
		XMLName xml.Name `xml:"response"`
		Prop    Prop     `xml:"propstat>prop"`
	}

	type Multistatus struct {
		XMLName   xml.Name   `xml:"multistatus"`
		Responses []Response `xml:"response"`
	}

	var multistatus Multistatus
	if err := xml.Unmarshal(body, &multistatus); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}

	var objects []string
	for _, resp := range multistatus.Responses {
		if resp.Prop.CalendarData.Data != "" {
			objects = append(objects, resp.Prop.CalendarData.Data)
		}
	}

	return objects, nil
}

// expandCalendar turns every timed VEVENT of one calendar object into
// occurrences starting within the window. RECURRENCE-ID overrides replace
// the occurrence they were generated from.
func expandCalendar(cal *ical.Calendar, w week.Window, loc *time.Location) ([]RawEvent, error) {
	var masters, singles []ical.Event
	overridden := make(map[int64]bool)

	for _, ev := range cal.Events() {
		if isAllDay(ev) {
			summary, _ := ev.Props.Text(ical.PropSummary)
			log.Printf("Skipping all-day event %q", summary)
			continue
		}
		if rid := ev.Props.Get(ical.PropRecurrenceID); rid != nil {
			if t, err := rid.DateTime(loc); err == nil {
				overridden[t.Unix()] = true
			}
			singles = append(singles, ev)
			continue
		}
		if ev.Props.Get(ical.PropRecurrenceRule) != nil {
			masters = append(masters, ev)
			continue
		}
		singles = append(singles, ev)
	}

	var events []RawEvent
	for _, ev := range singles {
		event, err := occurrence(ev, loc)
		if err != nil {
			return nil, err
		}
		// Servers that ignore <C:expand> return the whole object, including
		// overrides moved to other weeks.
		if event.Start.Before(w.Monday) || !event.Start.Before(w.Saturday) {
			continue
		}
		events = append(events, event)
	}

	for _, ev := range masters {
		first, err := occurrence(ev, loc)
		if err != nil {
			return nil, err
		}
		length := first.End.Sub(first.Start)

		set, err := ev.RecurrenceSet(loc)
		if err != nil {
			return nil, fmt.Errorf("failed to parse recurrence of %q: %w", first.Summary, err)
		}
		for _, start := range set.Between(w.Monday, w.Saturday, true) {
			if !start.Before(w.Saturday) || overridden[start.Unix()] {
				continue
			}
			events = append(events, RawEvent{
				ID:      first.ID,
				Summary: first.Summary,
				Start:   start.In(loc),
				End:     start.Add(length).In(loc),
			})
		}
	}

	return events, nil
}

// occurrence converts one VEVENT into a RawEvent. A missing DTEND falls back
// to DURATION, then to a zero-length event.
func occurrence(ev ical.Event, loc *time.Location) (RawEvent, error) {
	uid, _ := ev.Props.Text(ical.PropUID)
	summary, _ := ev.Props.Text(ical.PropSummary)

	startProp := ev.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return RawEvent{}, fmt.Errorf("event %q has no DTSTART", uid)
	}
	start, err := startProp.DateTime(loc)
	if err != nil {
		return RawEvent{}, fmt.Errorf("failed to parse start time of %q: %w", uid, err)
	}

	end := start
	if endProp := ev.Props.Get(ical.PropDateTimeEnd); endProp != nil {
		end, err = endProp.DateTime(loc)
		if err != nil {
			return RawEvent{}, fmt.Errorf("failed to parse end time of %q: %w", uid, err)
		}
	} else if durProp := ev.Props.Get(ical.PropDuration); durProp != nil {
		d, err := durProp.Duration()
		if err != nil {
			return RawEvent{}, fmt.Errorf("failed to parse duration of %q: %w", uid, err)
		}
		end = start.Add(d)
	}

	return RawEvent{
		ID:      uid,
		Summary: summary,
		Start:   start.In(loc),
		End:     end.In(loc),
	}, nil
}

// isAllDay reports whether DTSTART is a DATE value.
func isAllDay(ev ical.Event) bool {
	dtstart := ev.Props.Get(ical.PropDateTimeStart)
	return dtstart != nil && dtstart.Params.Get(ical.ParamValue) == string(ical.ValueDate)
}
