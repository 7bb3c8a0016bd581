package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

// FileName is the config file looked up in the working directory and then
// in $HOME/.config/togglsync/.
const FileName = ".togglsync.toml"

// Source types for calendar_source.
const (
	SourceGoogle = "google"
	SourceCalDAV = "caldav"
)

// Auth flows for auth_flow.
const (
	AuthFlowPaste    = "paste"
	AuthFlowLoopback = "loopback"
)

// OOBRedirectURL is the out-of-band redirect used by the paste flow.
const OOBRedirectURL = "urn:ietf:wg:oauth:2.0:oob"

// DefaultAliases maps exact calendar titles to the labels logged in Toggl.
// Every title in this table is billable project time.
func DefaultAliases() map[string]string {
	return map[string]string{
		"FW: Automation: Daily Scrum":      "Automation: Daily Scrum",
		"FW: Automation: Grooming":         "Automation: Grooming",
		"Automation: Grooming":             "Automation: Grooming",
		"Automation: Retro & Planning":     "Automation: Retro & Planning",
		"[Internal] Q-centrix weekly Sync": "Team sync",
		"Automation: Pre-Grooming":         "Automation: Pre-Grooming",
	}
}

// GoogleCredentials represents the structure of Google OAuth credentials JSON file.
type GoogleCredentials struct {
	Installed struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	} `json:"installed"`
	Web struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	} `json:"web"`
}

// LoadGoogleCredentials loads Google OAuth credentials from a JSON file.
func LoadGoogleCredentials(path string) (clientID, clientSecret string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read credentials file: %w", err)
	}

	var creds GoogleCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return "", "", fmt.Errorf("failed to parse credentials file: %w", err)
	}

	// Try "installed" first (for desktop apps), then "web"
	if creds.Installed.ClientID != "" {
		return creds.Installed.ClientID, creds.Installed.ClientSecret, nil
	}
	if creds.Web.ClientID != "" {
		return creds.Web.ClientID, creds.Web.ClientSecret, nil
	}

	return "", "", fmt.Errorf("no client_id found in credentials file (expected 'installed' or 'web' section)")
}

// Config holds the configuration for a sync run. It is built once at startup
// and handed to each component; nothing reads it from package state.
type Config struct {
	GoogleCredentialsPath string `toml:"google_credentials_path"`
	TokenPath             string `toml:"token_path"`
	AuthFlow              string `toml:"auth_flow"` // "paste" or "loopback"

	CalendarSource string `toml:"calendar_source"` // "google" or "caldav"
	CalendarID     string `toml:"calendar_id"`     // Google calendar ID or CalDAV calendar path

	// CalDAV source settings
	CalDAVURL      string `toml:"caldav_url"`
	CalDAVUsername string `toml:"caldav_username"`
	CalDAVPassword string `toml:"caldav_password"`

	UTCOffsetHours  int `toml:"utc_offset_hours"`
	WeekStartOffset int `toml:"week_start_offset"` // Sunday = 0

	ProjectLabel string            `toml:"project_label"`
	ProjectID    int64             `toml:"project_id"`
	CreatedWith  string            `toml:"created_with"`
	Aliases      map[string]string `toml:"aliases"`

	// Only taken from the environment.
	TogglAPIKey string `toml:"-"`

	DryRun bool `toml:"-"`
}

// Overrides carries command-line values. Empty fields leave lower-precedence
// values in place.
type Overrides struct {
	GoogleCredentialsPath string
	TokenPath             string
	CalendarSource        string
	DryRun                bool
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		GoogleCredentialsPath: "credentials.json",
		TokenPath:             "token.json",
		AuthFlow:              AuthFlowPaste,
		CalendarSource:        SourceGoogle,
		CalendarID:            "primary",
		UTCOffsetHours:        -3,
		WeekStartOffset:       1,
		ProjectLabel:          "q-centrix",
		ProjectID:             167143617,
		CreatedWith:           "toggl_google_calendar_sync",
	}
}

// FindConfigFile returns the first existing config file among the working
// directory and $HOME/.config/togglsync/, or "" if there is none.
func FindConfigFile() string {
	candidates := []string{FileName}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "togglsync", FileName))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// LoadConfigFromFile decodes a TOML config file over the defaults.
func LoadConfigFromFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadConfig loads configuration with the following precedence (highest to lowest):
// 1. Command-line flags
// 2. Environment variables
// 3. Config file (the explicit path, or the first one FindConfigFile sees)
// 4. Defaults
func LoadConfig(configFile string, flags Overrides) (*Config, error) {
	cfg := Default()

	// Step 1: Load from config file if present
	path := configFile
	if path == "" {
		path = FindConfigFile()
	}
	if path != "" {
		fileConfig, err := LoadConfigFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileConfig
	}

	// Step 2: Override with environment variables
	cfg.TogglAPIKey = os.Getenv("TOGGL_API_KEY")
	envString("GOOGLE_CREDENTIALS_PATH", &cfg.GoogleCredentialsPath)
	envString("TOKEN_PATH", &cfg.TokenPath)
	envString("CALENDAR_SOURCE", &cfg.CalendarSource)
	envString("CALENDAR_ID", &cfg.CalendarID)
	envString("CALDAV_URL", &cfg.CalDAVURL)
	envString("CALDAV_USERNAME", &cfg.CalDAVUsername)
	envString("CALDAV_PASSWORD", &cfg.CalDAVPassword)

	// Step 3: Override with command-line flags (highest priority)
	if flags.GoogleCredentialsPath != "" {
		cfg.GoogleCredentialsPath = flags.GoogleCredentialsPath
	}
	if flags.TokenPath != "" {
		cfg.TokenPath = flags.TokenPath
	}
	if flags.CalendarSource != "" {
		cfg.CalendarSource = flags.CalendarSource
	}
	cfg.DryRun = flags.DryRun

	// Step 4: Apply defaults and validate
	if cfg.Aliases == nil {
		cfg.Aliases = DefaultAliases()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	if c.TogglAPIKey == "" && !c.DryRun {
		return fmt.Errorf("TOGGL_API_KEY environment variable must be set")
	}

	switch c.CalendarSource {
	case SourceGoogle:
		if c.GoogleCredentialsPath == "" {
			return fmt.Errorf("google_credentials_path must be provided via --credentials flag, GOOGLE_CREDENTIALS_PATH environment variable, or config file")
		}
		if c.TokenPath == "" {
			return fmt.Errorf("token_path must be provided via --token flag, TOKEN_PATH environment variable, or config file")
		}
		if c.AuthFlow != AuthFlowPaste && c.AuthFlow != AuthFlowLoopback {
			return fmt.Errorf("auth_flow must be '%s' or '%s', got '%s'", AuthFlowPaste, AuthFlowLoopback, c.AuthFlow)
		}
	case SourceCalDAV:
		if c.CalDAVURL == "" {
			return fmt.Errorf("caldav_url must be provided for the CalDAV calendar source")
		}
		if c.CalDAVUsername == "" || c.CalDAVPassword == "" {
			return fmt.Errorf("caldav_username and caldav_password must be provided for the CalDAV calendar source")
		}
		if c.CalendarID == "" || c.CalendarID == "primary" {
			return fmt.Errorf("calendar_id must be set to the CalDAV calendar path")
		}
	default:
		return fmt.Errorf("calendar_source must be '%s' or '%s', got '%s'", SourceGoogle, SourceCalDAV, c.CalendarSource)
	}

	if c.UTCOffsetHours < -12 || c.UTCOffsetHours > 14 {
		return fmt.Errorf("utc_offset_hours out of range: %d", c.UTCOffsetHours)
	}
	if c.WeekStartOffset < 0 || c.WeekStartOffset > 6 {
		return fmt.Errorf("week_start_offset must be between 0 (Sunday) and 6, got %d", c.WeekStartOffset)
	}
	if c.ProjectLabel == "" {
		return fmt.Errorf("project_label must not be empty")
	}

	return nil
}

// OAuth2Config builds the read-only Google Calendar OAuth configuration.
func (c *Config) OAuth2Config(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  OOBRedirectURL, // Replaced by the loopback flow
		Scopes:       []string{calendar.CalendarReadonlyScope},
		Endpoint:     google.Endpoint,
	}
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
