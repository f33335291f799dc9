// Package config resolves the cistat configuration from defaults, an optional
// YAML file, the environment and command-line flags, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"cistat/src/aggregate"
	"cistat/src/provider"
	"cistat/src/render"
)

const (
	DefaultInterval    = 30 * time.Second
	MinInterval        = time.Second
	DefaultConcurrency = 4
	DefaultTopic       = "cistat.transitions"
)

// tokenEnv names the per-provider token variables.
var tokenEnv = map[provider.Kind]string{
	provider.KindCircleCI:  "CIRCLECI_TOKEN",
	provider.KindGitHub:    "GITHUB_TOKEN",
	provider.KindBuildkite: "BUILDKITE_API_TOKEN",
	provider.KindGitLab:    "GITLAB_TOKEN",
}

// urlEnv names the per-provider base URL variables.
var urlEnv = map[provider.Kind]string{
	provider.KindCircleCI:  "CIRCLECI_URL",
	provider.KindGitHub:    "GITHUB_URL",
	provider.KindBuildkite: "BUILDKITE_URL",
	provider.KindGitLab:    "GITLAB_URL",
}

// tokenRequired lists providers that have no anonymous API access.
var tokenRequired = map[provider.Kind]bool{
	provider.KindCircleCI:  true,
	provider.KindBuildkite: true,
}

// TokenEnv returns the environment variable holding the token for kind.
func TokenEnv(kind provider.Kind) string {
	return tokenEnv[kind]
}

// ProviderConfig holds per-provider connection settings.
type ProviderConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
}

// Config is the resolved, immutable configuration handed to the orchestrator.
type Config struct {
	DefaultKind provider.Kind
	Projects    []provider.ProjectRef
	Providers   map[provider.Kind]ProviderConfig

	Watch       bool
	Interval    time.Duration
	Limit       int
	Depth       int
	Order       aggregate.Order
	GroupBy     aggregate.GroupKey
	Concurrency int
	StaleLimit  int

	Trend         bool
	Plain         bool
	Align         render.Align
	LocalBranches bool

	Cache       string
	Brokers     []string
	NotifyTopic string
	Verbose     bool
}

// Settings returns what provider.New needs for kind.
func (c *Config) Settings(kind provider.Kind) provider.Settings {
	p := c.Providers[kind]
	return provider.Settings{BaseURL: p.BaseURL, Token: p.Token}
}

// Kinds returns the distinct provider kinds of the tracked projects in first-seen order.
func (c *Config) Kinds() []provider.Kind {
	seen := make(map[provider.Kind]bool)
	var kinds []provider.Kind
	for _, p := range c.Projects {
		if !seen[p.Kind] {
			seen[p.Kind] = true
			kinds = append(kinds, p.Kind)
		}
	}
	return kinds
}

// Validate checks the configuration before any fetch happens.
func (c *Config) Validate() error {
	if len(c.Projects) == 0 {
		return fmt.Errorf("%w: no projects selected", provider.ErrConfiguration)
	}
	if err := provider.ValidateLimit(c.Limit); err != nil {
		return err
	}
	if c.Depth < 1 || c.Depth > aggregate.MaxDepth {
		return fmt.Errorf("%w: depth %d outside 1-%d", provider.ErrConfiguration, c.Depth, aggregate.MaxDepth)
	}
	if c.Watch && c.Interval < MinInterval {
		return fmt.Errorf("%w: interval %s is shorter than %s", provider.ErrConfiguration, c.Interval, MinInterval)
	}
	if c.StaleLimit < 0 {
		return fmt.Errorf("%w: stale limit must not be negative", provider.ErrConfiguration)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1", provider.ErrConfiguration)
	}
	for _, kind := range c.Kinds() {
		if tokenRequired[kind] && c.Providers[kind].Token == "" {
			return fmt.Errorf("%w: missing %s token (pass --token or set %s)",
				provider.ErrConfiguration, kind, tokenEnv[kind])
		}
	}
	return nil
}

// fileConfig mirrors the YAML file layout.
type fileConfig struct {
	Provider    string                    `yaml:"provider"`
	Projects    []string                  `yaml:"projects"`
	Interval    string                    `yaml:"interval"`
	Limit       int                       `yaml:"limit"`
	Depth       int                       `yaml:"depth"`
	Order       string                    `yaml:"order"`
	GroupBy     string                    `yaml:"group_by"`
	Concurrency int                       `yaml:"concurrency"`
	StaleLimit  *int                      `yaml:"stale_limit"`
	Trend       *bool                     `yaml:"trend"`
	Align       string                    `yaml:"align"`
	Cache       string                    `yaml:"cache"`
	Providers   map[string]ProviderConfig `yaml:"providers"`
	Notify      struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"notify"`
}

// Overrides carries command-line values. Nil fields were not set on the command line.
type Overrides struct {
	Selectors     []string
	Provider      *string
	Token         *string
	Watch         *bool
	Interval      *time.Duration
	Limit         *int
	Depth         *int
	Order         *string
	GroupBy       *string
	Trend         *bool
	Plain         *bool
	Align         *string
	LocalBranches *bool
	Cache         *string
	StaleLimit    *int
	Brokers       *string
	Concurrency   *int
	Verbose       *bool
}

// LoadOptions configures Load.
type LoadOptions struct {
	// ConfigPath is a YAML file to read. Empty skips the file.
	ConfigPath string
	Overrides  Overrides

	// AllowNoProjects accepts a configuration without projects, for commands
	// that only need the cache or broker settings.
	AllowNoProjects bool
}

// DefaultPath returns the config file location used when --config is not given.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "cistat", "config.yaml")
}

// Load resolves and validates the configuration.
func Load(opts LoadOptions) (*Config, error) {
	cfg := defaults()

	var groupBy, order, align string
	var selectors []string

	if opts.ConfigPath != "" {
		fc, err := readFile(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		if err := applyFile(cfg, fc); err != nil {
			return nil, err
		}
		groupBy, order, align = fc.GroupBy, fc.Order, fc.Align
		selectors = fc.Projects
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	o := opts.Overrides
	if o.Provider != nil {
		kind, err := provider.ParseKind(*o.Provider)
		if err != nil {
			return nil, err
		}
		cfg.DefaultKind = kind
	}
	if len(o.Selectors) > 0 {
		selectors = o.Selectors
	}
	setDuration(&cfg.Interval, o.Interval)
	setInt(&cfg.Limit, o.Limit)
	setInt(&cfg.Depth, o.Depth)
	setInt(&cfg.StaleLimit, o.StaleLimit)
	setInt(&cfg.Concurrency, o.Concurrency)
	setBool(&cfg.Watch, o.Watch)
	setBool(&cfg.Trend, o.Trend)
	setBool(&cfg.Plain, o.Plain)
	setBool(&cfg.LocalBranches, o.LocalBranches)
	setBool(&cfg.Verbose, o.Verbose)
	setString(&cfg.Cache, o.Cache)
	setString(&groupBy, o.GroupBy)
	setString(&order, o.Order)
	setString(&align, o.Align)
	if o.Brokers != nil {
		cfg.Brokers = splitList(*o.Brokers)
	}

	for _, sel := range selectors {
		ref, err := provider.ParseProjectRef(sel, cfg.DefaultKind)
		if err != nil {
			return nil, err
		}
		cfg.Projects = append(cfg.Projects, ref)
	}
	cfg.Projects = provider.MergeRefs(cfg.Projects)

	if o.Token != nil && *o.Token != "" {
		for _, kind := range cfg.Kinds() {
			p := cfg.Providers[kind]
			p.Token = *o.Token
			cfg.Providers[kind] = p
		}
	}

	var err error
	if cfg.Order, err = aggregate.ParseOrder(order); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrConfiguration, err)
	}
	if cfg.Align, err = render.ParseAlign(align); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrConfiguration, err)
	}
	if groupBy == "" && len(cfg.Projects) > 1 {
		cfg.GroupBy = aggregate.ByProjectBranch
	} else if cfg.GroupBy, err = aggregate.ParseGroupKey(groupBy); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrConfiguration, err)
	}

	if opts.AllowNoProjects && len(cfg.Projects) == 0 {
		return cfg, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		DefaultKind: provider.KindCircleCI,
		Providers:   make(map[provider.Kind]ProviderConfig),
		Interval:    DefaultInterval,
		Limit:       provider.DefaultLimit,
		Depth:       aggregate.DefaultDepth,
		Concurrency: DefaultConcurrency,
		NotifyTopic: DefaultTopic,
	}
}

func readFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read config file: %w", provider.ErrConfiguration, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", provider.ErrConfiguration, path, err)
	}
	return &fc, nil
}

func applyFile(cfg *Config, fc *fileConfig) error {
	if fc.Provider != "" {
		kind, err := provider.ParseKind(fc.Provider)
		if err != nil {
			return err
		}
		cfg.DefaultKind = kind
	}
	if fc.Interval != "" {
		d, err := time.ParseDuration(fc.Interval)
		if err != nil {
			return fmt.Errorf("%w: interval: %w", provider.ErrConfiguration, err)
		}
		cfg.Interval = d
	}
	if fc.Limit != 0 {
		cfg.Limit = fc.Limit
	}
	if fc.Depth != 0 {
		cfg.Depth = fc.Depth
	}
	if fc.Concurrency != 0 {
		cfg.Concurrency = fc.Concurrency
	}
	if fc.StaleLimit != nil {
		cfg.StaleLimit = *fc.StaleLimit
	}
	if fc.Trend != nil {
		cfg.Trend = *fc.Trend
	}
	if fc.Cache != "" {
		cfg.Cache = expandHome(fc.Cache)
	}
	if len(fc.Notify.Brokers) > 0 {
		cfg.Brokers = fc.Notify.Brokers
	}
	if fc.Notify.Topic != "" {
		cfg.NotifyTopic = fc.Notify.Topic
	}
	for name, pc := range fc.Providers {
		kind, err := provider.ParseKind(name)
		if err != nil {
			return err
		}
		cfg.Providers[kind] = pc
	}
	return nil
}

func applyEnv(cfg *Config) error {
	generic := os.Getenv("CISTAT_TOKEN")
	for _, kind := range provider.Kinds {
		p := cfg.Providers[kind]
		if v := os.Getenv(tokenEnv[kind]); v != "" {
			p.Token = v
		}
		if p.Token == "" {
			p.Token = generic
		}
		if v := os.Getenv(urlEnv[kind]); v != "" {
			p.BaseURL = v
		}
		cfg.Providers[kind] = p
	}

	if v := os.Getenv("CISTAT_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: CISTAT_INTERVAL: %w", provider.ErrConfiguration, err)
		}
		cfg.Interval = d
	}
	if v := os.Getenv("CISTAT_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: CISTAT_LIMIT: %w", provider.ErrConfiguration, err)
		}
		cfg.Limit = n
	}
	if v := os.Getenv("CISTAT_CACHE"); v != "" {
		cfg.Cache = expandHome(v)
	}
	if v := os.Getenv("CISTAT_BROKERS"); v != "" {
		cfg.Brokers = splitList(v)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// FileExists reports whether path names a readable regular file.
func FileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *time.Duration) {
	if v != nil {
		*dst = *v
	}
}
