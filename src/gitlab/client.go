// Package gitlab provides a client for GitLab CI pipelines.
package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cistat/src/provider"
)

const (
	// DefaultBaseURL is gitlab.com; self-managed instances override it.
	DefaultBaseURL = "https://gitlab.com"
)

// Client is a GitLab API client.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Pipeline is an entry of the project pipelines listing.
type Pipeline struct {
	ID        int64     `json:"id"`
	IID       int64     `json:"iid"`
	Status    string    `json:"status"`
	Ref       string    `json:"ref"`
	SHA       string    `json:"sha"`
	Source    string    `json:"source"`
	WebURL    string    `json:"web_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewClient creates a new GitLab client for baseURL.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = provider.NewHTTPClient()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

// GetPipelines retrieves recent pipelines for a project path ("group/project"),
// newest first. A non-empty ref narrows the listing to that branch.
func (c *Client) GetPipelines(ctx context.Context, projectPath, ref string, limit int) ([]Pipeline, error) {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(limit))
	if ref != "" {
		q.Set("ref", ref)
	}
	u := fmt.Sprintf("%s/api/v4/projects/%s/pipelines?%s", c.baseURL, url.PathEscape(projectPath), q.Encode())

	headers := map[string]string{}
	if c.token != "" {
		headers["PRIVATE-TOKEN"] = c.token
	}

	var pipelines []Pipeline
	if err := provider.GetJSON(ctx, c.httpClient, provider.KindGitLab, u, headers, &pipelines); err != nil {
		return nil, fmt.Errorf("failed to get pipelines for %s: %w", projectPath, err)
	}
	return pipelines, nil
}
