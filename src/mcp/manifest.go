package mcp

import (
	"time"

	"cistat/src/aggregate"
	"cistat/src/ranking"
	"cistat/src/status"
)

func toGroupInfo(g aggregate.PipelineGroup) GroupInfo {
	info := GroupInfo{
		Name:     g.Name,
		Project:  g.Project,
		Status:   status.Errored.String(),
		Stale:    g.Stale,
		StaleFor: g.StaleFor,
		Error:    g.Err,
		History:  len(g.History),
	}
	if !g.HasData() {
		return info
	}
	info.Status = g.Latest.Status.String()
	info.Number = g.Latest.Number
	info.Commit = g.Latest.Commit
	info.URL = g.Latest.URL
	if g.Latest.StartedAt != nil {
		info.Started = g.Latest.StartedAt.UTC().Format(time.RFC3339)
	}
	if g.Latest.Diagnostic != "" && info.Error == "" {
		info.Error = g.Latest.Diagnostic
	}
	return info
}

// ToManifest builds the tool response for a snapshot.
func ToManifest(requestID string, snap aggregate.Snapshot, dashboard string) StatusManifest {
	s := aggregate.Summarize(snap.Groups)
	m := StatusManifest{
		RequestID: requestID,
		TakenAt:   snap.TakenAt,
		Summary: SummaryInfo{
			Total:   s.Total,
			Passing: s.Passing,
			Failing: s.Failing,
			Running: s.Running,
			Pending: s.Pending,
			Errored: s.Errored,
			Stale:   s.Stale,
			Healthy: s.Healthy(),
		},
		Attention: []GroupInfo{},
		Healthy:   []string{},
		Problems:  snap.Problems,
		Dashboard: dashboard,
	}
	for _, rg := range ranking.RankGroups(snap.Groups).FlattenByTier() {
		info := toGroupInfo(rg.Group)
		info.Rank, info.Tier, info.Streak = rg.Rank, rg.Tier, rg.Streak
		m.Attention = append(m.Attention, info)
	}
	for _, g := range snap.Groups {
		if ranking.ClassifyTier(g) == ranking.TierHealthy {
			m.Healthy = append(m.Healthy, g.Name)
		}
	}
	return m
}
