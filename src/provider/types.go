package provider

import (
	"strings"
	"time"
)

// Kind identifies a CI provider.
type Kind string

const (
	KindCircleCI  Kind = "circleci"
	KindGitHub    Kind = "github"
	KindBuildkite Kind = "buildkite"
	KindGitLab    Kind = "gitlab"
)

// Kinds lists every supported provider kind in display order.
var Kinds = []Kind{KindCircleCI, KindGitHub, KindBuildkite, KindGitLab}

// ProjectRef identifies a project tracked on a CI provider
type ProjectRef struct {
	Kind     Kind     // provider kind
	Slug     string   // provider-specific path, e.g. "gh/org/repo" or "owner/repo"
	Branches []string // optional branch filter; empty tracks every branch
}

// String returns the canonical "kind:slug" form used as the project key.
func (r ProjectRef) String() string {
	return string(r.Kind) + ":" + r.Slug
}

// Tracks reports whether builds on branch belong to this ref.
func (r ProjectRef) Tracks(branch string) bool {
	if len(r.Branches) == 0 {
		return true
	}
	for _, b := range r.Branches {
		if b == branch {
			return true
		}
	}
	return false
}

// SingleBranch returns the only tracked branch, if exactly one is configured.
// Adapters use it to push the branch filter down to the provider API.
func (r ProjectRef) SingleBranch() (string, bool) {
	if len(r.Branches) == 1 {
		return r.Branches[0], true
	}
	return "", false
}

// SlugParts splits the slug on "/".
func (r ProjectRef) SlugParts() []string {
	return strings.Split(r.Slug, "/")
}

// RawBuild is a build as reported by a provider, before normalization.
// Status holds the provider's own vocabulary.
type RawBuild struct {
	ID         string
	Number     int64
	Project    string
	Branch     string
	Pipeline   string
	Commit     string
	Status     string
	StartedAt  *time.Time
	FinishedAt *time.Time
	URL        string
}

// MergeRefs collapses refs naming the same project into one, keeping the
// position of the first. Branch filters are unioned; a ref that tracks every
// branch makes the merged ref track every branch.
func MergeRefs(refs []ProjectRef) []ProjectRef {
	out := make([]ProjectRef, 0, len(refs))
	index := make(map[string]int, len(refs))
	for _, ref := range refs {
		key := ref.String()
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			ref.Branches = append([]string(nil), ref.Branches...)
			out = append(out, ref)
			continue
		}

		merged := &out[i]
		if len(merged.Branches) == 0 {
			continue
		}
		if len(ref.Branches) == 0 {
			merged.Branches = nil
			continue
		}
		for _, b := range ref.Branches {
			if !merged.Tracks(b) {
				merged.Branches = append(merged.Branches, b)
			}
		}
	}
	return out
}
