package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"cistat/src/config"
	"cistat/src/provider"
)

func (f *flags) register(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "config file (default ~/.config/cistat/config.yaml when present)")
	pf.StringVarP(&f.provider, "provider", "p", "", "provider for selectors without a prefix (circleci, github, buildkite, gitlab)")
	pf.StringVarP(&f.token, "token", "t", "", "API token for every provider in use")
	pf.BoolVarP(&f.watch, "watch", "w", false, "refresh continuously")
	pf.StringVarP(&f.interval, "interval", "i", "", "refresh interval in watch mode (default 30s)")
	pf.IntVarP(&f.limit, "limit", "l", provider.DefaultLimit, "builds fetched per project (1-100)")
	pf.IntVarP(&f.depth, "depth", "d", 0, "history kept per group (default 5)")
	pf.StringVar(&f.order, "order", "", "group order: first-seen or alphabetical")
	pf.StringVar(&f.groupBy, "group-by", "", "grouping: branch, project-branch or pipeline")
	pf.BoolVar(&f.trend, "trend", false, "show a trend of recent builds per group")
	pf.BoolVar(&f.plain, "plain", false, "no colors and no interactive view")
	pf.StringVar(&f.align, "align", "", "name column alignment: left or right")
	pf.BoolVar(&f.localBranches, "local-branches", false, "only show branches that exist in the local git repository")
	pf.StringVar(&f.cache, "cache", "", "cache: a SQLite file path, a postgres:// DSN or memory")
	pf.IntVar(&f.staleLimit, "stale-limit", 0, "failed refreshes after which stale data is dropped (0 keeps it)")
	pf.StringVar(&f.brokers, "notify-brokers", "", "comma separated Kafka/Redpanda brokers for transition events")
	pf.IntVar(&f.concurrency, "concurrency", 0, "projects fetched in parallel (default 4)")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging on stderr")
}

// loadOptions turns the flags the user set into configuration overrides.
// Flags left at their defaults do not override the file or environment.
func (f *flags) loadOptions(cmd *cobra.Command, selectors []string) (config.LoadOptions, error) {
	fs := cmd.Flags()
	changed := fs.Changed
	o := config.Overrides{Selectors: selectors}

	if changed("provider") {
		o.Provider = &f.provider
	}
	if changed("token") {
		o.Token = &f.token
	}
	if changed("watch") {
		o.Watch = &f.watch
	}
	if changed("interval") {
		d, err := time.ParseDuration(f.interval)
		if err != nil {
			return config.LoadOptions{}, fmt.Errorf("%w: invalid interval %q: %v", provider.ErrConfiguration, f.interval, err)
		}
		o.Interval = &d
	}
	if changed("limit") {
		o.Limit = &f.limit
	}
	if changed("depth") {
		o.Depth = &f.depth
	}
	if changed("order") {
		o.Order = &f.order
	}
	if changed("group-by") {
		o.GroupBy = &f.groupBy
	}
	if changed("trend") {
		o.Trend = &f.trend
	}
	if changed("plain") {
		o.Plain = &f.plain
	}
	if changed("align") {
		o.Align = &f.align
	}
	if changed("local-branches") {
		o.LocalBranches = &f.localBranches
	}
	if changed("cache") {
		o.Cache = &f.cache
	}
	if changed("stale-limit") {
		o.StaleLimit = &f.staleLimit
	}
	if changed("notify-brokers") {
		o.Brokers = &f.brokers
	}
	if changed("concurrency") {
		o.Concurrency = &f.concurrency
	}
	if changed("verbose") {
		o.Verbose = &f.verbose
	}

	path := f.configPath
	if path == "" {
		if def := config.DefaultPath(); config.FileExists(def) {
			path = def
		}
	}
	return config.LoadOptions{ConfigPath: path, Overrides: o}, nil
}
