package ranking

import (
	"testing"

	"cistat/src/aggregate"
	"cistat/src/status"
)

func builds(statuses ...status.Status) []status.BuildRecord {
	out := make([]status.BuildRecord, len(statuses))
	for i, st := range statuses {
		out[i] = status.BuildRecord{Status: st}
	}
	return out
}

func group(name string, statuses ...status.Status) aggregate.PipelineGroup {
	g := aggregate.PipelineGroup{Name: name, History: builds(statuses...)}
	if len(g.History) > 0 {
		g.Latest = g.History[0]
	}
	return g
}

func TestFailureStreak(t *testing.T) {
	tests := []struct {
		name    string
		history []status.BuildRecord
		want    int
	}{
		{"empty", nil, 0},
		{"passing", builds(status.Passed, status.Failed), 0},
		{"single failure", builds(status.Failed, status.Passed), 1},
		{"mixed failures", builds(status.Failed, status.Errored, status.Failed, status.Passed), 3},
		{"running skipped", builds(status.Running, status.Failed, status.Failed, status.Passed), 2},
		{"cancelled stops", builds(status.Failed, status.Cancelled, status.Failed), 1},
		{"all failed", builds(status.Failed, status.Failed), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FailureStreak(tt.history); got != tt.want {
				t.Errorf("FailureStreak() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestClassifyTier(t *testing.T) {
	stalePass := group("stale-pass", status.Passed)
	stalePass.Stale = true
	staleFail := group("stale-fail", status.Failed)
	staleFail.Stale = true
	staleRunning := group("stale-running", status.Running)
	staleRunning.Stale = true

	tests := []struct {
		name  string
		group aggregate.PipelineGroup
		want  int
	}{
		{"passed", group("main", status.Passed), TierHealthy},
		{"failed", group("main", status.Failed), TierBroken},
		{"errored", group("main", status.Errored), TierBroken},
		{"running", group("main", status.Running), TierInFlight},
		{"pending", group("main", status.Pending), TierInFlight},
		{"cancelled", group("main", status.Cancelled), TierInFlight},
		{"no data", aggregate.PipelineGroup{Name: "github:acme/web", Err: "timeout"}, TierDegraded},
		{"stale passed", stalePass, TierDegraded},
		{"stale failed stays broken", staleFail, TierBroken},
		{"stale running", staleRunning, TierDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyTier(tt.group); got != tt.want {
				t.Errorf("ClassifyTier() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRankGroups(t *testing.T) {
	unreachable := aggregate.PipelineGroup{Name: "github:acme/web", StaleFor: 1, Err: "timeout"}
	stale := group("release", status.Passed)
	stale.Stale, stale.StaleFor = true, 3

	tg := RankGroups([]aggregate.PipelineGroup{
		group("main", status.Passed),
		group("docs", status.Failed, status.Passed),
		group("api", status.Failed, status.Failed, status.Failed),
		group("feature", status.Running),
		unreachable,
		group("web", status.Errored, status.Failed),
		stale,
	})

	broken, degraded, inFlight := tg.Counts()
	if broken != 3 || degraded != 2 || inFlight != 1 {
		t.Fatalf("Counts() = %d, %d, %d, want 3, 2, 1", broken, degraded, inFlight)
	}

	flat := tg.FlattenByTier()
	want := []string{"api", "web", "docs", "release", "github:acme/web", "feature"}
	if len(flat) != len(want) {
		t.Fatalf("FlattenByTier() returned %d groups, want %d", len(flat), len(want))
	}
	for i, name := range want {
		if flat[i].Group.Name != name {
			t.Errorf("flat[%d] = %s, want %s", i, flat[i].Group.Name, name)
		}
		if flat[i].Rank != i+1 {
			t.Errorf("flat[%d].Rank = %d, want %d", i, flat[i].Rank, i+1)
		}
	}
	if flat[0].Streak != 3 {
		t.Errorf("api streak = %d, want 3", flat[0].Streak)
	}
}

func TestRankGroups_Empty(t *testing.T) {
	tg := RankGroups(nil)
	if flat := tg.FlattenByTier(); flat != nil {
		t.Errorf("FlattenByTier() = %v, want nil", flat)
	}
	tg = RankGroups([]aggregate.PipelineGroup{group("main", status.Passed)})
	if flat := tg.FlattenByTier(); flat != nil {
		t.Errorf("FlattenByTier() with only healthy groups = %v, want nil", flat)
	}
}

func TestRankGroups_NameBreaksTies(t *testing.T) {
	flat := RankGroups([]aggregate.PipelineGroup{
		group("zeta", status.Failed),
		group("alpha", status.Failed),
	}).FlattenByTier()

	if flat[0].Group.Name != "alpha" || flat[1].Group.Name != "zeta" {
		t.Errorf("order = %s, %s, want alpha, zeta", flat[0].Group.Name, flat[1].Group.Name)
	}
}
