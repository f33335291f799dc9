package githubactions

import (
	"context"
	"fmt"
	"strconv"
	"time"

	gh "github.com/google/go-github/v82/github"

	"cistat/src/provider"
)

func init() {
	provider.RegisterProvider(provider.KindGitHub, func(s provider.Settings) provider.Provider {
		return NewProviderWithSettings(s)
	})
}

// Provider implements provider.Provider for GitHub Actions
type Provider struct {
	client *Client
	err    error
}

// NewProvider creates a GitHub Actions provider with a token
func NewProvider(token string) *Provider {
	return &Provider{client: NewClient(token)}
}

// NewProviderWithSettings creates a provider from registry settings. An
// unusable base URL is reported by the first fetch.
func NewProviderWithSettings(s provider.Settings) *Provider {
	client, err := NewClientWithHTTPClient(s.HTTPClient, s.BaseURL, s.Token)
	return &Provider{client: client, err: err}
}

// Kind returns "github"
func (p *Provider) Kind() provider.Kind {
	return provider.KindGitHub
}

// FetchRecentBuilds lists recent workflow runs of ref ("owner/repo").
func (p *Provider) FetchRecentBuilds(ctx context.Context, ref provider.ProjectRef, limit int) ([]provider.RawBuild, error) {
	if p.err != nil {
		return nil, p.err
	}
	if err := provider.ValidateLimit(limit); err != nil {
		return nil, err
	}
	parts := ref.SlugParts()
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: github expects owner/repo, got %q", provider.ErrInvalidRef, ref.Slug)
	}

	branch, _ := ref.SingleBranch()
	runs, err := p.client.ListRuns(ctx, parts[0], parts[1], branch, limit)
	if err != nil {
		return nil, err
	}

	raws := make([]provider.RawBuild, 0, len(runs))
	for _, run := range runs {
		if !ref.Tracks(run.GetHeadBranch()) {
			continue
		}
		raws = append(raws, mapRun(run, ref))
	}
	return raws, nil
}

// mapRun converts a workflow run. A completed run reports its conclusion as
// the status and its last update as the finish time.
func mapRun(run *gh.WorkflowRun, ref provider.ProjectRef) provider.RawBuild {
	raw := provider.RawBuild{
		ID:       strconv.FormatInt(run.GetID(), 10),
		Number:   int64(run.GetRunNumber()),
		Project:  ref.String(),
		Branch:   run.GetHeadBranch(),
		Pipeline: run.GetName(),
		Commit:   run.GetHeadSHA(),
		Status:   run.GetStatus(),
		URL:      run.GetHTMLURL(),
	}

	started := run.GetRunStartedAt()
	if started.IsZero() {
		started = run.GetCreatedAt()
	}
	raw.StartedAt = timePtr(started.Time)

	if run.GetStatus() == "completed" {
		raw.Status = run.GetConclusion()
		raw.FinishedAt = timePtr(run.GetUpdatedAt().Time)
	}
	return raw
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
