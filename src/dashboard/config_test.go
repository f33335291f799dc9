package dashboard

import (
	"errors"
	"testing"
	"time"

	"cistat/src/aggregate"
	"cistat/src/config"
	"cistat/src/provider"
)

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{
		Projects:    []provider.ProjectRef{circleRef},
		Watch:       true,
		Interval:    time.Minute,
		Limit:       30,
		Depth:       3,
		Order:       aggregate.OrderAlphabetical,
		GroupBy:     aggregate.ByPipeline,
		Concurrency: 2,
		StaleLimit:  5,
	}

	opts := OptionsFromConfig(cfg, nil)
	if !opts.Watch || opts.Interval != time.Minute || opts.Limit != 30 || opts.Concurrency != 2 || opts.StaleLimit != 5 {
		t.Errorf("OptionsFromConfig() = %+v", opts)
	}
	want := aggregate.Options{Key: aggregate.ByPipeline, Depth: 3, Order: aggregate.OrderAlphabetical}
	if opts.Aggregate != want {
		t.Errorf("Aggregate = %+v, want %+v", opts.Aggregate, want)
	}
}

func TestNewProviders(t *testing.T) {
	fp := newFakeProvider(provider.KindGitLab)
	provider.RegisterProvider(provider.KindGitLab, func(s provider.Settings) provider.Provider { return fp })

	cfg := &config.Config{Projects: []provider.ProjectRef{
		{Kind: provider.KindGitLab, Slug: "acme/api"},
		{Kind: provider.KindGitLab, Slug: "acme/web"},
	}}
	providers, err := NewProviders(cfg)
	if err != nil {
		t.Fatalf("NewProviders() error = %v", err)
	}
	if len(providers) != 1 || providers[provider.KindGitLab] != provider.Provider(fp) {
		t.Errorf("NewProviders() = %v, want the gitlab provider only", providers)
	}
}

func TestNewProviders_Unregistered(t *testing.T) {
	cfg := &config.Config{Projects: []provider.ProjectRef{{Kind: provider.Kind("jenkins"), Slug: "x"}}}
	if _, err := NewProviders(cfg); !errors.Is(err, provider.ErrUnknownProvider) {
		t.Errorf("NewProviders() error = %v, want ErrUnknownProvider", err)
	}
}
