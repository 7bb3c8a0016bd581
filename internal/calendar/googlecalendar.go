package calendar

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/beekhof/calendar-toggl/internal/week"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Client is a wrapper around the Google Calendar API service.
type Client struct {
	service    *calendar.Service
	calendarID string
}

// NewClient creates a new Google Calendar API client using the provided HTTP client.
// Extra options are appended after the HTTP client (tests use option.WithEndpoint).
func NewClient(ctx context.Context, httpClient *http.Client, calendarID string, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return &Client{service: service, calendarID: calendarID}, nil
}

// FetchWeek retrieves the timed events of the configured calendar within the window.
// Important: Sets SingleEvents = true to expand recurring events.
func (c *Client) FetchWeek(ctx context.Context, w week.Window) ([]RawEvent, error) {
	eventsList, err := c.service.Events.List(c.calendarID).
		TimeMin(w.Monday.Format(time.RFC3339)).
		TimeMax(w.Saturday.Format(time.RFC3339)).
		SingleEvents(true). // Expand recurring events
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	events := make([]RawEvent, 0, len(eventsList.Items))
	for _, item := range eventsList.Items {
		event, ok, err := fromGoogleEvent(item)
		if err != nil {
			return nil, err
		}
		if !ok {
			log.Printf("Skipping all-day event %q (%s)", item.Summary, item.Id)
			continue
		}
		events = append(events, event)
	}

	return events, nil
}

// fromGoogleEvent converts a timed Google event. ok is false for all-day events.
func fromGoogleEvent(item *calendar.Event) (RawEvent, bool, error) {
	if item.Start == nil || item.End == nil || item.Start.DateTime == "" || item.End.DateTime == "" {
		return RawEvent{}, false, nil
	}

	start, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return RawEvent{}, false, fmt.Errorf("failed to parse start time of event %s: %w", item.Id, err)
	}
	end, err := time.Parse(time.RFC3339, item.End.DateTime)
	if err != nil {
		return RawEvent{}, false, fmt.Errorf("failed to parse end time of event %s: %w", item.Id, err)
	}

	return RawEvent{
		ID:      item.Id,
		Summary: item.Summary,
		Start:   start,
		End:     end,
	}, true, nil
}
