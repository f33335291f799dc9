// Package aggregate groups normalized build records into pipeline groups and
// computes dashboard-level summaries and snapshot differences.
package aggregate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"cistat/src/status"
)

const (
	// DefaultDepth is the history kept per group when none is configured.
	DefaultDepth = 5
	// MaxDepth bounds the history kept per group.
	MaxDepth = 50
)

// GroupKey selects what records are grouped by.
type GroupKey int

const (
	// ByBranch groups by branch name.
	ByBranch GroupKey = iota
	// ByProjectBranch groups by "project@branch"; used when several projects are tracked.
	ByProjectBranch
	// ByPipeline groups by workflow or pipeline name, falling back to the branch.
	ByPipeline
)

// Order controls the order groups are returned in.
type Order int

const (
	// OrderFirstSeen keeps groups in the order their name first appears in the
	// input. Across refreshes, StableOrder keeps that order from moving.
	OrderFirstSeen Order = iota
	// OrderAlphabetical sorts groups by name.
	OrderAlphabetical
)

// ParseGroupKey parses "branch", "project-branch" or "pipeline".
func ParseGroupKey(s string) (GroupKey, error) {
	switch strings.ToLower(s) {
	case "", "branch":
		return ByBranch, nil
	case "project-branch", "project":
		return ByProjectBranch, nil
	case "pipeline", "workflow":
		return ByPipeline, nil
	}
	return ByBranch, fmt.Errorf("unknown grouping %q (want branch, project-branch or pipeline)", s)
}

func (k GroupKey) String() string {
	switch k {
	case ByProjectBranch:
		return "project-branch"
	case ByPipeline:
		return "pipeline"
	}
	return "branch"
}

// ParseOrder parses "first-seen" or "alphabetical".
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(s) {
	case "", "first-seen", "insertion":
		return OrderFirstSeen, nil
	case "alphabetical", "alpha", "name":
		return OrderAlphabetical, nil
	}
	return OrderFirstSeen, fmt.Errorf("unknown order %q (want first-seen or alphabetical)", s)
}

func (o Order) String() string {
	if o == OrderAlphabetical {
		return "alphabetical"
	}
	return "first-seen"
}

// Options configures Aggregate.
type Options struct {
	Key   GroupKey
	Depth int // history bound; values outside 1..MaxDepth fall back to DefaultDepth or MaxDepth
	Order Order
}

func (o Options) depth() int {
	switch {
	case o.Depth <= 0:
		return DefaultDepth
	case o.Depth > MaxDepth:
		return MaxDepth
	}
	return o.Depth
}

// PipelineGroup is the latest known state of one branch or named pipeline.
type PipelineGroup struct {
	Name    string               `json:"name"`
	Project string               `json:"project,omitempty"`
	Latest  status.BuildRecord   `json:"latest"`
	History []status.BuildRecord `json:"history"`

	// Stale is set when the group shows data from an earlier cycle because the
	// latest fetch of its project failed. StaleFor counts consecutive failures.
	Stale    bool   `json:"stale,omitempty"`
	StaleFor int    `json:"stale_for,omitempty"`
	Err      string `json:"error,omitempty"`
}

// HasData reports whether the group holds at least one build.
func (g PipelineGroup) HasData() bool {
	return len(g.History) > 0
}

// Snapshot is one complete dashboard state. A new snapshot is built on every
// refresh; published snapshots are never modified.
type Snapshot struct {
	Groups   []PipelineGroup `json:"groups"`
	TakenAt  time.Time       `json:"taken_at"`
	Cycle    int             `json:"cycle"`
	Problems []string        `json:"problems,omitempty"`
}

// Group returns the group with the given name.
func (s Snapshot) Group(name string) (PipelineGroup, bool) {
	for _, g := range s.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return PipelineGroup{}, false
}

// GroupName returns the name rec is grouped under for key.
func GroupName(rec status.BuildRecord, key GroupKey) string {
	switch key {
	case ByProjectBranch:
		return rec.Project + "@" + rec.Branch
	case ByPipeline:
		if rec.Pipeline != "" {
			return rec.Pipeline
		}
	}
	return rec.Branch
}

// Aggregate groups records, orders each group's history newest first and
// truncates it to the configured depth. The result does not depend on the
// order of records within a group.
func Aggregate(records []status.BuildRecord, opts Options) []PipelineGroup {
	depth := opts.depth()

	var names []string
	buckets := make(map[string][]status.BuildRecord)
	for _, rec := range records {
		name := GroupName(rec, opts.Key)
		if _, ok := buckets[name]; !ok {
			names = append(names, name)
		}
		buckets[name] = append(buckets[name], rec)
	}

	if opts.Order == OrderAlphabetical {
		sort.Strings(names)
	}

	groups := make([]PipelineGroup, 0, len(names))
	for _, name := range names {
		history := make([]status.BuildRecord, len(buckets[name]))
		copy(history, buckets[name])
		SortHistory(history)
		if len(history) > depth {
			history = history[:depth]
		}
		groups = append(groups, PipelineGroup{
			Name:    name,
			Project: history[0].Project,
			Latest:  history[0],
			History: history,
		})
	}
	return groups
}

// StableOrder returns groups with the names listed in prior first, in prior's
// order, followed by the remaining groups in their current order. Names in
// prior that have no group are skipped.
func StableOrder(groups []PipelineGroup, prior []string) []PipelineGroup {
	if len(prior) == 0 {
		return groups
	}
	pos := make(map[string]int, len(prior))
	for i, name := range prior {
		if _, dup := pos[name]; !dup {
			pos[name] = i
		}
	}

	ordered := make([]PipelineGroup, len(groups))
	copy(ordered, groups)
	sort.SliceStable(ordered, func(i, j int) bool {
		pi, iknown := pos[ordered[i].Name]
		pj, jknown := pos[ordered[j].Name]
		switch {
		case iknown && jknown:
			return pi < pj
		case iknown:
			return true
		}
		return false
	})
	return ordered
}

// Names returns the group names in order.
func Names(groups []PipelineGroup) []string {
	names := make([]string, len(groups))
	for i, g := range groups {
		names[i] = g.Name
	}
	return names
}

// SortHistory sorts records newest first by StartedAt. Equal start times are
// ordered by ID descending; records without a start time sort last.
func SortHistory(records []status.BuildRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return newer(records[i], records[j])
	})
}

func newer(a, b status.BuildRecord) bool {
	switch {
	case a.StartedAt == nil && b.StartedAt == nil:
		return idGreater(a.ID, b.ID)
	case a.StartedAt == nil:
		return false
	case b.StartedAt == nil:
		return true
	case !a.StartedAt.Equal(*b.StartedAt):
		return a.StartedAt.After(*b.StartedAt)
	}
	return idGreater(a.ID, b.ID)
}

// idGreater compares IDs numerically when both are integers and lexically
// when neither is. A non-numeric ID ranks above a numeric one so mixed input
// still sorts consistently.
func idGreater(a, b string) bool {
	an, aerr := strconv.ParseInt(a, 10, 64)
	bn, berr := strconv.ParseInt(b, 10, 64)
	switch {
	case aerr == nil && berr == nil:
		return an > bn
	case aerr == nil:
		return false
	case berr == nil:
		return true
	}
	return a > b
}
