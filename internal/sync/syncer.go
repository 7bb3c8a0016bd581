package sync

import (
	"context"
	"io"
	"log"
	"time"

	calclient "github.com/beekhof/calendar-toggl/internal/calendar"
	"github.com/beekhof/calendar-toggl/internal/config"
	"github.com/beekhof/calendar-toggl/internal/week"
)

// Syncer runs one pass: fetch the week, normalize, group, report, upload.
type Syncer struct {
	source   calclient.Source
	uploader *Uploader
	config   *config.Config
	out      io.Writer
	verbose  bool

	// now is replaced in tests.
	now func() time.Time
}

// NewSyncer creates a new Syncer instance.
func NewSyncer(source calclient.Source, uploader *Uploader, cfg *config.Config, out io.Writer, verbose bool) *Syncer {
	return &Syncer{
		source:   source,
		uploader: uploader,
		config:   cfg,
		out:      out,
		verbose:  verbose,
		now:      time.Now,
	}
}

// Run performs the sync. Any fetch, report or upload error aborts it.
func (s *Syncer) Run(ctx context.Context) error {
	w := week.Current(s.now(), s.config.WeekStartOffset, week.Zone(s.config.UTCOffsetHours))
	log.Printf("Fetching events for %s", w)

	raw, err := s.source.FetchWeek(ctx, w)
	if err != nil {
		return err
	}

	events := NormalizeAll(raw, s.config.Aliases, s.config.ProjectLabel)
	buckets := GroupByWeekday(events, w)

	if s.verbose {
		for _, e := range events {
			log.Printf("DEBUG: %s %q billable=%t", e.Start.Format(time.RFC3339), e.Summary, e.Billable())
		}
		if skipped := len(events) - buckets.Len(); skipped > 0 {
			log.Printf("DEBUG: %d event(s) fall outside Monday-Friday and will not be uploaded", skipped)
		}
	}

	if err := Report(s.out, events, buckets); err != nil {
		return err
	}

	return s.uploader.Run(ctx, buckets)
}
