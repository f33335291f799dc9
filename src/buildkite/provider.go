package buildkite

import (
	"context"
	"fmt"

	"cistat/src/provider"
)

func init() {
	// Register the Buildkite provider factory
	provider.RegisterProvider(provider.KindBuildkite, func(s provider.Settings) provider.Provider {
		return NewProviderWithSettings(s)
	})
}

// Provider implements provider.Provider for Buildkite
type Provider struct {
	client *Client
}

// NewProvider creates a Buildkite provider with API token
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

// Kind returns "buildkite"
func (p *Provider) Kind() provider.Kind {
	return provider.KindBuildkite
}

// FetchRecentBuilds lists recent builds of the pipeline named by ref ("org/pipeline").
func (p *Provider) FetchRecentBuilds(ctx context.Context, ref provider.ProjectRef, limit int) ([]provider.RawBuild, error) {
	if err := provider.ValidateLimit(limit); err != nil {
		return nil, err
	}
	parts := ref.SlugParts()
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: buildkite expects org/pipeline, got %q", provider.ErrInvalidRef, ref.Slug)
	}

	branch, _ := ref.SingleBranch()
	builds, err := p.client.ListBuilds(ctx, parts[0], parts[1], branch, limit)
	if err != nil {
		return nil, err
	}

	raws := make([]provider.RawBuild, 0, len(builds))
	for _, b := range builds {
		if !ref.Tracks(b.Branch) {
			continue
		}
		started := b.StartedAt
		if started == nil {
			started = b.CreatedAt
		}
		raws = append(raws, provider.RawBuild{
			ID:         fmt.Sprintf("%d", b.Number),
			Number:     b.Number,
			Project:    ref.String(),
			Branch:     b.Branch,
			Pipeline:   b.Pipeline.Name,
			Commit:     b.Commit,
			Status:     b.State,
			StartedAt:  started,
			FinishedAt: b.FinishedAt,
			URL:        b.WebURL,
		})
	}
	return raws, nil
}
