package circleci

import (
	"context"
	"strconv"

	"cistat/src/provider"
)

func init() {
	provider.RegisterProvider(provider.KindCircleCI, func(s provider.Settings) provider.Provider {
		return NewProviderWithSettings(s)
	})
}

// Provider implements provider.Provider for CircleCI
type Provider struct {
	client *Client
}

// NewProvider creates a CircleCI provider with API token
func NewProvider(token string) *Provider {
	return &Provider{client: NewClient(token)}
}

// NewProviderWithSettings creates a provider from registry settings.
func NewProviderWithSettings(s provider.Settings) *Provider {
	httpClient := s.HTTPClient
	if httpClient == nil {
		httpClient = provider.NewHTTPClient()
	}
	baseURL := s.BaseURL
	if baseURL == "" {
		baseURL = APIBaseURL
	}
	return &Provider{client: NewClientWithHTTPClient(s.Token, httpClient, baseURL)}
}

// Kind returns "circleci"
func (p *Provider) Kind() provider.Kind {
	return provider.KindCircleCI
}

// FetchRecentBuilds lists recent builds of ref ("vcs/org/repo").
func (p *Provider) FetchRecentBuilds(ctx context.Context, ref provider.ProjectRef, limit int) ([]provider.RawBuild, error) {
	if err := provider.ValidateLimit(limit); err != nil {
		return nil, err
	}

	branch, _ := ref.SingleBranch()
	builds, err := p.client.RecentBuilds(ctx, ref.Slug, branch, limit)
	if err != nil {
		return nil, err
	}

	raws := make([]provider.RawBuild, 0, len(builds))
	for _, b := range builds {
		if !ref.Tracks(b.Branch) {
			continue
		}
		started := b.StartTime
		if started == nil {
			started = b.QueuedAt
		}
		raw := provider.RawBuild{
			ID:         strconv.FormatInt(b.BuildNum, 10),
			Number:     b.BuildNum,
			Project:    ref.String(),
			Branch:     b.Branch,
			Commit:     b.VCSRevision,
			Status:     b.RawStatus(),
			StartedAt:  started,
			FinishedAt: b.StopTime,
			URL:        b.BuildURL,
		}
		if b.Workflows != nil {
			raw.Pipeline = b.Workflows.WorkflowName
		}
		raws = append(raws, raw)
	}
	return raws, nil
}
