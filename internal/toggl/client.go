// Package toggl is a minimal client for the Toggl Track v9 API: it lists the
// user's workspaces and creates time entries.
package toggl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the Toggl Track v9 API root.
const DefaultBaseURL = "https://api.track.toggl.com/api/v9"

// Workspace is a Toggl workspace the authenticated user belongs to.
type Workspace struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// TimeEntry is one logged work interval.
type TimeEntry struct {
	Description string
	WorkspaceID int64
	Start       time.Time
	Duration    int64 // seconds
	ProjectID   *int64
	CreatedWith string
}

// timeEntryRequest is the wire form of a new time entry.
type timeEntryRequest struct {
	Description string `json:"description"`
	WorkspaceID int64  `json:"workspace_id"`
	Start       string `json:"start"`
	Duration    int64  `json:"duration"`
	ProjectID   *int64 `json:"project_id,omitempty"`
	CreatedWith string `json:"created_with"`
}

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("toggl: HTTP %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Client talks to the Toggl API with an API token.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a client. An empty baseURL selects DefaultBaseURL.
func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// makeRequest makes an authenticated request and decodes a JSON response into out.
func (c *Client) makeRequest(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}

	// Toggl uses the API token as the user name and the literal "api_token" as password.
	req.SetBasicAuth(c.apiKey, "api_token")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// Workspaces lists the workspaces of the authenticated user.
func (c *Client) Workspaces(ctx context.Context) ([]Workspace, error) {
	var workspaces []Workspace
	if err := c.makeRequest(ctx, http.MethodGet, "/me/workspaces", nil, &workspaces); err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	return workspaces, nil
}

// CreateTimeEntry submits a finished time entry and returns its Toggl ID.
func (c *Client) CreateTimeEntry(ctx context.Context, entry TimeEntry) (int64, error) {
	req := timeEntryRequest{
		Description: entry.Description,
		WorkspaceID: entry.WorkspaceID,
		Start:       entry.Start.Format(time.RFC3339),
		Duration:    entry.Duration,
		ProjectID:   entry.ProjectID,
		CreatedWith: entry.CreatedWith,
	}

	var created struct {
		ID int64 `json:"id"`
	}
	path := fmt.Sprintf("/workspaces/%d/time_entries", entry.WorkspaceID)
	if err := c.makeRequest(ctx, http.MethodPost, path, req, &created); err != nil {
		return 0, fmt.Errorf("failed to create time entry %q: %w", entry.Description, err)
	}

	return created.ID, nil
}
