// Package buildkite provides a client for interacting with the Buildkite API.
package buildkite

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
	// APIBaseURL is the base URL for the Buildkite API.
	APIBaseURL = "https://api.buildkite.com/v2"
)

// Client is a Buildkite API client.
type Client struct {
	apiToken   string
	httpClient *http.Client
	baseURL    string
}

// Build represents a Buildkite build.
type Build struct {
	ID         string     `json:"id"`
	Number     int64      `json:"number"`
	State      string     `json:"state"`
	Branch     string     `json:"branch"`
	Commit     string     `json:"commit"`
	Message    string     `json:"message"`
	WebURL     string     `json:"web_url"`
	CreatedAt  *time.Time `json:"created_at"`
	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	Pipeline   struct {
		Slug string `json:"slug"`
		Name string `json:"name"`
	} `json:"pipeline"`
}

// NewClient creates a new Buildkite API client.
func NewClient(apiToken string) *Client {
	return NewClientWithHTTPClient(apiToken, provider.NewHTTPClient(), APIBaseURL)
}

// NewClientWithHTTPClient creates a client with a custom HTTP client and base URL.
func NewClientWithHTTPClient(apiToken string, httpClient *http.Client, baseURL string) *Client {
	return &Client{
		apiToken:   apiToken,
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

// ListBuilds fetches the most recent builds of a pipeline, newest first.
// An empty branch lists builds on every branch.
func (c *Client) ListBuilds(ctx context.Context, org, pipeline, branch string, perPage int) ([]Build, error) {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(perPage))
	if branch != "" {
		q.Set("branch", branch)
	}
	u := fmt.Sprintf("%s/organizations/%s/pipelines/%s/builds?%s",
		c.baseURL, url.PathEscape(org), url.PathEscape(pipeline), q.Encode())

	var builds []Build
	err := provider.GetJSON(ctx, c.httpClient, provider.KindBuildkite, u,
		map[string]string{"Authorization": "Bearer " + c.apiToken}, &builds)
	if err != nil {
		return nil, fmt.Errorf("list builds for %s/%s: %w", org, pipeline, err)
	}
	return builds, nil
}
