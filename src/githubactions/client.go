// Package githubactions reads GitHub Actions workflow runs through go-github.
package githubactions

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"cistat/src/provider"
)

// Client wraps go-github for the workflow run endpoints.
type Client struct {
	gh *gh.Client
}

// NewClient creates a GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional requests, so unchanged listings cost no rate limit)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (REST client with token auth)
func NewClient(token string) *Client {
	return &Client{gh: newGitHub(nil, token)}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// An empty baseURL selects api.github.com.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, token string) (*Client, error) {
	client := newGitHub(httpClient, token)
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("%w: parsing base URL: %w", provider.ErrConfiguration, err)
		}
		client.BaseURL = u
	}
	return &Client{gh: client}, nil
}

func newGitHub(httpClient *http.Client, token string) *gh.Client {
	if httpClient == nil {
		cacheTransport := httpcache.NewMemoryCacheTransport()
		httpClient = github_ratelimit.NewClient(cacheTransport)
		httpClient.Timeout = provider.DefaultTimeout
	}
	client := gh.NewClient(httpClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return client
}

// ListRuns returns the most recent workflow runs of owner/repo, newest first.
func (c *Client) ListRuns(ctx context.Context, owner, repo, branch string, perPage int) ([]*gh.WorkflowRun, error) {
	opts := &gh.ListWorkflowRunsOptions{
		Branch:      branch,
		ListOptions: gh.ListOptions{PerPage: perPage},
	}

	runs, _, err := c.gh.Actions.ListRepositoryWorkflowRuns(ctx, owner, repo, opts)
	if err != nil {
		return nil, fmt.Errorf("listing workflow runs for %s/%s: %w", owner, repo, classify(ctx, err))
	}
	return runs.WorkflowRuns, nil
}

// classify maps go-github errors onto the provider error taxonomy.
func classify(ctx context.Context, err error) error {
	var rateErr *gh.RateLimitError
	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return fmt.Errorf("%w: %w", provider.ErrProviderUnavailable, err)
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return &provider.StatusError{
			Kind: provider.KindGitHub,
			Code: ghErr.Response.StatusCode,
			Body: ghErr.Message,
		}
	}

	return provider.ClassifyTransport(ctx, err)
}
