// Package circleci provides a client for the CircleCI v1.1 API.
package circleci

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"cistat/src/provider"
)

const (
	// APIBaseURL is the base URL for the CircleCI v1.1 API.
	APIBaseURL = "https://circleci.com/api/v1.1"
)

// Client is a CircleCI API client.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
}

// Build represents a build summary as returned by the project endpoints.
type Build struct {
	BuildNum    int64      `json:"build_num"`
	Branch      string     `json:"branch"`
	VCSRevision string     `json:"vcs_revision"`
	Status      string     `json:"status"`
	Outcome     *string    `json:"outcome"`
	Lifecycle   string     `json:"lifecycle"`
	StartTime   *time.Time `json:"start_time"`
	StopTime    *time.Time `json:"stop_time"`
	QueuedAt    *time.Time `json:"queued_at"`
	BuildURL    string     `json:"build_url"`
	Workflows   *struct {
		WorkflowName string `json:"workflow_name"`
		JobName      string `json:"job_name"`
	} `json:"workflows"`
}

// RawStatus returns the build's status, falling back to its outcome.
func (b Build) RawStatus() string {
	if b.Status != "" {
		return b.Status
	}
	if b.Outcome != nil {
		return *b.Outcome
	}
	return ""
}

// NewClient creates a new CircleCI API client.
func NewClient(token string) *Client {
	return NewClientWithHTTPClient(token, provider.NewHTTPClient(), APIBaseURL)
}

// NewClientWithHTTPClient creates a client with a custom HTTP client and base URL.
func NewClientWithHTTPClient(token string, httpClient *http.Client, baseURL string) *Client {
	return &Client{
		token:      token,
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

// RecentBuilds lists a project's most recent builds, newest first. slug is
// "vcs/org/repo". A non-empty branch narrows the listing to that branch.
func (c *Client) RecentBuilds(ctx context.Context, slug, branch string, limit int) ([]Build, error) {
	u := fmt.Sprintf("%s/project/%s", c.baseURL, slug)
	if branch != "" {
		u += "/tree/" + url.PathEscape(branch)
	}
	u += "?limit=" + strconv.Itoa(limit) + "&shallow=true"

	headers := map[string]string{}
	if c.token != "" {
		headers["Circle-Token"] = c.token
	}

	var builds []Build
	if err := provider.GetJSON(ctx, c.httpClient, provider.KindCircleCI, u, headers, &builds); err != nil {
		return nil, fmt.Errorf("list builds for %s: %w", slug, err)
	}
	return builds, nil
}
