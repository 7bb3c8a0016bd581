package sync

import (
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/beekhof/calendar-toggl/internal/config"
	"github.com/beekhof/calendar-toggl/internal/prompt"
	"github.com/beekhof/calendar-toggl/internal/toggl"
	"github.com/beekhof/calendar-toggl/internal/week"
)

// UploadQuestion is asked before anything is sent to the tracker.
const UploadQuestion = "Do you want to upload to toggl? (0, 1, 2, 3, 4 for monday-friday | 5 everything | ctrl + c to cancel)"

// selectAll is the answer that uploads the whole week.
const selectAll = week.Workdays

// Tracker is the time-tracking service. *toggl.Client implements it.
type Tracker interface {
	Workspaces(ctx context.Context) ([]toggl.Workspace, error)
	CreateTimeEntry(ctx context.Context, entry toggl.TimeEntry) (int64, error)
}

// Uploader asks which day to upload and submits the chosen events.
type Uploader struct {
	tracker Tracker
	input   prompt.Prompter
	out     io.Writer
	config  *config.Config

	workspaceID int64
	resolved    bool
}

// NewUploader creates an Uploader.
func NewUploader(tracker Tracker, input prompt.Prompter, out io.Writer, cfg *config.Config) *Uploader {
	return &Uploader{
		tracker: tracker,
		input:   input,
		out:     out,
		config:  cfg,
	}
}

// Run prompts for a selection and uploads it. An answer outside 0-5 prints
// "Incorrect option" and returns nil. The first failed submission stops the
// run; entries already created stay in the tracker.
func (u *Uploader) Run(ctx context.Context, buckets Buckets) error {
	answer, err := u.input.Prompt(UploadQuestion)
	if err != nil {
		return fmt.Errorf("failed to read upload selection: %w", err)
	}

	selection, err := strconv.Atoi(strings.TrimSpace(answer))
	if err != nil || selection < 0 || selection > selectAll {
		_, err := fmt.Fprintln(u.out, "Incorrect option")
		return err
	}

	if selection == selectAll {
		for day, bucket := range buckets {
			for _, event := range bucket {
				if err := u.upload(ctx, event); err != nil {
					return err
				}
				if _, err := fmt.Fprintf(u.out, "Uploaded day %d\n", day); err != nil {
					return err
				}
			}
		}
		return nil
	}

	for _, event := range buckets[selection] {
		if err := u.upload(ctx, event); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(u.out, "Uploaded day %d\n", selection)
	return err
}

func (u *Uploader) upload(ctx context.Context, event Event) error {
	workspaceID, err := u.workspace(ctx)
	if err != nil {
		return err
	}

	entry := u.timeEntry(event, workspaceID)
	id, err := u.tracker.CreateTimeEntry(ctx, entry)
	if err != nil {
		return err
	}

	log.Printf("Created time entry %d: %q at %s (%ds)", id, entry.Description, entry.Start.Format("2006-01-02 15:04"), entry.Duration)
	return nil
}

// workspace resolves the first workspace of the tracker user once.
func (u *Uploader) workspace(ctx context.Context) (int64, error) {
	if u.resolved {
		return u.workspaceID, nil
	}

	workspaces, err := u.tracker.Workspaces(ctx)
	if err != nil {
		return 0, err
	}
	if len(workspaces) == 0 {
		return 0, fmt.Errorf("the tracking account has no workspaces")
	}

	u.workspaceID = workspaces[0].ID
	u.resolved = true
	return u.workspaceID, nil
}

// timeEntry builds the outbound entry; the project ID is attached only to
// billable events.
func (u *Uploader) timeEntry(event Event, workspaceID int64) toggl.TimeEntry {
	entry := toggl.TimeEntry{
		Description: event.Summary,
		WorkspaceID: workspaceID,
		Start:       event.Start,
		Duration:    event.DurationSeconds(),
		CreatedWith: u.config.CreatedWith,
	}
	if event.Billable() {
		projectID := u.config.ProjectID
		entry.ProjectID = &projectID
	}
	return entry
}

// DryRunTracker logs entries instead of submitting them.
type DryRunTracker struct{}

// Workspaces returns a single placeholder workspace.
func (DryRunTracker) Workspaces(ctx context.Context) ([]toggl.Workspace, error) {
	return []toggl.Workspace{{ID: 0, Name: "dry-run"}}, nil
}

// CreateTimeEntry logs the entry and pretends it was created.
func (DryRunTracker) CreateTimeEntry(ctx context.Context, entry toggl.TimeEntry) (int64, error) {
	project := "none"
	if entry.ProjectID != nil {
		project = strconv.FormatInt(*entry.ProjectID, 10)
	}
	log.Printf("DRY RUN: would create %q start=%s duration=%ds project=%s",
		entry.Description, entry.Start.Format("2006-01-02T15:04:05Z07:00"), entry.Duration, project)
	return 0, nil
}
