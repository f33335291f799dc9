// Package ranking orders groups that need attention so the most urgent
// breakage comes first.
package ranking

import (
	"sort"

	"cistat/src/aggregate"
	"cistat/src/status"
)

// Tier constants for group classification.
const (
	TierHealthy  = 0 // Latest build passed and the data is current
	TierBroken   = 1 // Latest build failed or errored
	TierDegraded = 2 // Data is stale or missing because fetches fail
	TierInFlight = 3 // Running, pending or cancelled
)

// RankedGroup wraps a PipelineGroup with tier and rank information.
type RankedGroup struct {
	Group  aggregate.PipelineGroup
	Tier   int
	Streak int // Consecutive non-passing builds, newest first
	Rank   int // Position within the flattened list (1-indexed)
}

// TieredGroups holds the groups that need attention, by tier.
type TieredGroups struct {
	Broken   []RankedGroup
	Degraded []RankedGroup
	InFlight []RankedGroup
}

// RankGroups classifies groups into tiers. Healthy groups are dropped.
// Each tier is sorted by streak (descending), then consecutive fetch
// failures (descending), then name.
func RankGroups(groups []aggregate.PipelineGroup) TieredGroups {
	var tg TieredGroups
	for _, g := range groups {
		ranked := RankedGroup{
			Group:  g,
			Tier:   ClassifyTier(g),
			Streak: FailureStreak(g.History),
		}
		switch ranked.Tier {
		case TierBroken:
			tg.Broken = append(tg.Broken, ranked)
		case TierDegraded:
			tg.Degraded = append(tg.Degraded, ranked)
		case TierInFlight:
			tg.InFlight = append(tg.InFlight, ranked)
		}
	}

	sortTier(tg.Broken)
	sortTier(tg.Degraded)
	sortTier(tg.InFlight)
	return tg
}

func sortTier(groups []RankedGroup) {
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if a.Streak != b.Streak {
			return a.Streak > b.Streak
		}
		if a.Group.StaleFor != b.Group.StaleFor {
			return a.Group.StaleFor > b.Group.StaleFor
		}
		return a.Group.Name < b.Group.Name
	})
}

// FlattenByTier returns all groups, broken first, then degraded, then in
// flight. Assigns global rank (1-indexed).
func (tg TieredGroups) FlattenByTier() []RankedGroup {
	total := len(tg.Broken) + len(tg.Degraded) + len(tg.InFlight)
	if total == 0 {
		return nil
	}

	result := make([]RankedGroup, 0, total)
	result = append(result, tg.Broken...)
	result = append(result, tg.Degraded...)
	result = append(result, tg.InFlight...)

	for i := range result {
		result[i].Rank = i + 1
	}
	return result
}

// Counts returns the number of groups in each tier.
func (tg TieredGroups) Counts() (broken, degraded, inFlight int) {
	return len(tg.Broken), len(tg.Degraded), len(tg.InFlight)
}

// ClassifyTier determines which tier a group belongs to. A failing build
// outranks staleness: stale data that shows a failure is still broken.
func ClassifyTier(g aggregate.PipelineGroup) int {
	if !g.HasData() {
		return TierDegraded
	}
	switch g.Latest.Status {
	case status.Failed, status.Errored:
		return TierBroken
	case status.Passed:
		if g.Stale {
			return TierDegraded
		}
		return TierHealthy
	default:
		if g.Stale {
			return TierDegraded
		}
		return TierInFlight
	}
}

// FailureStreak counts consecutive failed or errored builds at the head of a
// newest-first history. Builds still in flight are skipped.
func FailureStreak(history []status.BuildRecord) int {
	streak := 0
	for _, rec := range history {
		switch rec.Status {
		case status.Failed, status.Errored:
			streak++
		case status.Running, status.Pending:
			continue
		default:
			return streak
		}
	}
	return streak
}
