package gitlab

import (
	"context"
	"strconv"
	"time"

	"cistat/src/provider"
)

func init() {
	provider.RegisterProvider(provider.KindGitLab, func(s provider.Settings) provider.Provider {
		return NewProvider(s)
	})
}

// Provider implements provider.Provider for GitLab CI
type Provider struct {
	client *Client
}

// NewProvider creates a GitLab provider from settings.
func NewProvider(s provider.Settings) *Provider {
	return &Provider{client: NewClient(s.BaseURL, s.Token, s.HTTPClient)}
}

// Kind returns "gitlab"
func (p *Provider) Kind() provider.Kind {
	return provider.KindGitLab
}

// FetchRecentBuilds lists recent pipelines of ref ("group/.../project").
func (p *Provider) FetchRecentBuilds(ctx context.Context, ref provider.ProjectRef, limit int) ([]provider.RawBuild, error) {
	if err := provider.ValidateLimit(limit); err != nil {
		return nil, err
	}

	branch, _ := ref.SingleBranch()
	pipelines, err := p.client.GetPipelines(ctx, ref.Slug, branch, limit)
	if err != nil {
		return nil, err
	}

	raws := make([]provider.RawBuild, 0, len(pipelines))
	for _, pl := range pipelines {
		if !ref.Tracks(pl.Ref) {
			continue
		}
		raws = append(raws, convertPipeline(pl, ref))
	}
	return raws, nil
}

// finished lists statuses after which a pipeline no longer changes.
var finished = map[string]bool{
	"success":  true,
	"failed":   true,
	"canceled": true,
	"skipped":  true,
}

// convertPipeline converts a listing entry. The listing carries no start or
// finish times, so creation stands in for the start and the last update of a
// finished pipeline for its finish.
func convertPipeline(pl Pipeline, ref provider.ProjectRef) provider.RawBuild {
	raw := provider.RawBuild{
		ID:        strconv.FormatInt(pl.ID, 10),
		Number:    pl.IID,
		Project:   ref.String(),
		Branch:    pl.Ref,
		Commit:    pl.SHA,
		Status:    pl.Status,
		StartedAt: timePtr(pl.CreatedAt),
		URL:       pl.WebURL,
	}
	if finished[pl.Status] {
		raw.FinishedAt = timePtr(pl.UpdatedAt)
	}
	return raw
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
