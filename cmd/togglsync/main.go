package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"

	"github.com/beekhof/calendar-toggl/internal/auth"
	calclient "github.com/beekhof/calendar-toggl/internal/calendar"
	"github.com/beekhof/calendar-toggl/internal/config"
	"github.com/beekhof/calendar-toggl/internal/prompt"
	"github.com/beekhof/calendar-toggl/internal/sync"
	"github.com/beekhof/calendar-toggl/internal/toggl"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type options struct {
	configFile      string
	credentialsPath string
	tokenPath       string
	source          string
	verbose         bool
	dryRun          bool
	selectDay       string
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "togglsync",
		Short: "Log this week's calendar events as Toggl time entries",
		Long: `Calendar to Toggl sync

Fetches the current work week (Monday to Friday) from your calendar, renames
known meeting titles through the alias table, marks them as project time,
prints a per-day summary and, after you pick a day (0-4) or the whole week (5),
creates one Toggl time entry per event.

The Toggl API token is read from TOGGL_API_KEY (a .env file in the working
directory is loaded first). Google OAuth client credentials are read from the
credentials JSON downloaded from Google Cloud Console; the first run asks you
to authorize in the browser and stores the token for later runs.

CONFIGURATION PRECEDENCE (highest to lowest):
    1. Command-line flags
    2. Environment variables (GOOGLE_CREDENTIALS_PATH, TOKEN_PATH, CALENDAR_SOURCE,
       CALENDAR_ID, CALDAV_URL, CALDAV_USERNAME, CALDAV_PASSWORD)
    3. Config file (--config, ./.togglsync.toml or ~/.config/togglsync/.togglsync.toml)
    4. Defaults`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configFile, "config", "", "Path to TOML config file")
	flags.StringVar(&opts.credentialsPath, "credentials", "", "Path to Google OAuth credentials JSON file (overrides config file and GOOGLE_CREDENTIALS_PATH)")
	flags.StringVar(&opts.tokenPath, "token", "", "Path to store the Google OAuth token (overrides config file and TOKEN_PATH)")
	flags.StringVar(&opts.source, "source", "", "Calendar source: google or caldav (overrides config file and CALENDAR_SOURCE)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose output (show DEBUG logs)")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "Log the time entries instead of creating them")
	flags.StringVar(&opts.selectDay, "select", "", "Answer the upload prompt non-interactively (0-4 for a day, 5 for the week)")

	return cmd
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.LoadConfig(opts.configFile, config.Overrides{
		GoogleCredentialsPath: opts.credentialsPath,
		TokenPath:             opts.tokenPath,
		CalendarSource:        opts.source,
		DryRun:                opts.dryRun,
	})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	console := prompt.NewConsole(os.Stdin, os.Stdout)

	source, err := newSource(ctx, cfg, console)
	if err != nil {
		return err
	}

	var tracker sync.Tracker = toggl.NewClient(cfg.TogglAPIKey, "")
	if cfg.DryRun {
		log.Println("Dry run: no time entries will be created")
		tracker = sync.DryRunTracker{}
	}

	var selection prompt.Prompter = console
	if opts.selectDay != "" {
		selection = prompt.NewScripted(opts.selectDay)
	}

	uploader := sync.NewUploader(tracker, selection, os.Stdout, cfg)
	return sync.NewSyncer(source, uploader, cfg, os.Stdout, opts.verbose).Run(ctx)
}

// newSource authenticates against the configured calendar provider.
func newSource(ctx context.Context, cfg *config.Config, input prompt.Prompter) (calclient.Source, error) {
	if cfg.CalendarSource == config.SourceCalDAV {
		return calclient.NewCalDAVClient(cfg.CalDAVURL, cfg.CalendarID, cfg.CalDAVUsername, cfg.CalDAVPassword), nil
	}

	clientID, clientSecret, err := config.LoadGoogleCredentials(cfg.GoogleCredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load Google credentials: %w", err)
	}

	authorizer := &auth.Authorizer{
		OAuthConfig: cfg.OAuth2Config(clientID, clientSecret),
		Store:       auth.NewFileTokenStore(cfg.TokenPath),
		Flow:        cfg.AuthFlow,
		Input:       input,
		Out:         os.Stdout,
	}
	httpClient, err := authorizer.Client(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate calendar account: %w", err)
	}

	client, err := calclient.NewClient(ctx, httpClient, cfg.CalendarID)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar client: %w", err)
	}
	return client, nil
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Variables already set in the environment win over .env.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Failed to load .env: %v", err)
	}

	// Ctrl+C keeps its default behaviour: it ends the run at either prompt.
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		log.Fatalf("Sync failed: %v", err)
	}
}
