package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
)

var (
	ErrInvalidRef      = errors.New("invalid project reference")
	ErrUnknownProvider = errors.New("unknown CI provider")
)

const (
	MinLimit     = 1
	MaxLimit     = 100
	DefaultLimit = 50
)

// Provider defines the interface for CI/CD platform integrations.
// Implementations are read-only against the provider.
type Provider interface {
	// Kind returns the provider kind (e.g., "circleci", "github")
	Kind() Kind

	// FetchRecentBuilds returns up to limit recent builds for the project, newest first
	// as far as the provider orders them.
	FetchRecentBuilds(ctx context.Context, ref ProjectRef, limit int) ([]RawBuild, error)
}

// Settings carries what a provider factory needs to build a client.
type Settings struct {
	BaseURL    string       // empty selects the provider's public API
	Token      string       // API token
	HTTPClient *http.Client // optional; adapters create one with a timeout when nil
}

// Factory creates a Provider from settings.
type Factory func(Settings) Provider

var (
	registryMu sync.RWMutex
	factories  = make(map[Kind]Factory)
)

// RegisterProvider makes a provider kind available to New.
// Adapter packages call it from init.
func RegisterProvider(kind Kind, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[kind] = factory
}

// New returns a provider of the given kind.
func New(kind Kind, settings Settings) (Provider, error) {
	registryMu.RLock()
	factory, ok := factories[kind]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, kind)
	}
	return factory(settings), nil
}

// Registered returns the registered kinds, sorted.
func Registered() []Kind {
	registryMu.RLock()
	defer registryMu.RUnlock()

	kinds := make([]Kind, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// ValidateLimit checks that limit is within [MinLimit, MaxLimit].
func ValidateLimit(limit int) error {
	if limit < MinLimit || limit > MaxLimit {
		return fmt.Errorf("%w: limit %d outside %d-%d", ErrConfiguration, limit, MinLimit, MaxLimit)
	}
	return nil
}

// ParseKind parses a provider kind name. A few common aliases are accepted.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "circleci", "circle":
		return KindCircleCI, nil
	case "github", "gh", "github-actions", "githubactions":
		return KindGitHub, nil
	case "buildkite", "bk":
		return KindBuildkite, nil
	case "gitlab", "gl":
		return KindGitLab, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
}

// ParseProjectRef parses a selector of the form "[kind:]slug[@branch,branch]".
// defaultKind is used when the selector has no kind prefix.
func ParseProjectRef(selector string, defaultKind Kind) (ProjectRef, error) {
	s := strings.TrimSpace(selector)
	if s == "" {
		return ProjectRef{}, fmt.Errorf("%w: empty selector", ErrInvalidRef)
	}

	kind := defaultKind
	if i := strings.Index(s, ":"); i >= 0 {
		k, err := ParseKind(s[:i])
		if err != nil {
			return ProjectRef{}, err
		}
		kind = k
		s = s[i+1:]
	}
	if kind == "" {
		return ProjectRef{}, fmt.Errorf("%w: %q has no provider prefix", ErrInvalidRef, selector)
	}

	var branches []string
	if i := strings.LastIndex(s, "@"); i >= 0 {
		for _, b := range strings.Split(s[i+1:], ",") {
			if b = strings.TrimSpace(b); b != "" {
				branches = append(branches, b)
			}
		}
		s = s[:i]
	}

	slug := strings.Trim(s, "/")
	parts := strings.Split(slug, "/")
	for _, p := range parts {
		if p == "" {
			return ProjectRef{}, fmt.Errorf("%w: %q", ErrInvalidRef, selector)
		}
	}

	switch kind {
	case KindCircleCI:
		// org/repo defaults to GitHub-hosted projects, as CircleCI's own CLI does
		if len(parts) == 2 {
			slug = "gh/" + slug
		} else if len(parts) != 3 {
			return ProjectRef{}, fmt.Errorf("%w: circleci expects vcs/org/repo, got %q", ErrInvalidRef, selector)
		}
	case KindGitHub, KindBuildkite:
		if len(parts) != 2 {
			return ProjectRef{}, fmt.Errorf("%w: %s expects owner/name, got %q", ErrInvalidRef, kind, selector)
		}
	case KindGitLab:
		if len(parts) < 2 {
			return ProjectRef{}, fmt.Errorf("%w: gitlab expects group/project, got %q", ErrInvalidRef, selector)
		}
	default:
		return ProjectRef{}, fmt.Errorf("%w: %s", ErrUnknownProvider, kind)
	}

	return ProjectRef{Kind: kind, Slug: slug, Branches: branches}, nil
}
