package aggregate

import (
	"reflect"
	"testing"
	"time"

	"cistat/src/status"
)

var base = time.Date(2024, 5, 21, 10, 0, 0, 0, time.UTC)

func at(minutes int) *time.Time {
	t := base.Add(time.Duration(minutes) * time.Minute)
	return &t
}

func rec(id, branch string, st status.Status, started *time.Time) status.BuildRecord {
	return status.BuildRecord{ID: id, Project: "circleci:gh/acme/api", Branch: branch, Status: st, StartedAt: started}
}

func ids(records []status.BuildRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestAggregate_SortsAndSetsLatest(t *testing.T) {
	records := []status.BuildRecord{
		rec("1", "main", status.Passed, at(0)),
		rec("3", "main", status.Failed, at(20)),
		rec("2", "main", status.Passed, at(10)),
	}

	groups := Aggregate(records, Options{})
	if len(groups) != 1 {
		t.Fatalf("len(groups) = %d, want 1", len(groups))
	}
	g := groups[0]
	if got, want := ids(g.History), []string{"3", "2", "1"}; !reflect.DeepEqual(got, want) {
		t.Errorf("History = %v, want %v", got, want)
	}
	if g.Latest.ID != "3" {
		t.Errorf("Latest.ID = %q, want 3", g.Latest.ID)
	}
	if g.Project != "circleci:gh/acme/api" {
		t.Errorf("Project = %q", g.Project)
	}
}

func TestAggregate_TieBreak(t *testing.T) {
	tests := []struct {
		name    string
		records []status.BuildRecord
		want    []string
	}{
		{
			name: "numeric ids compare numerically",
			records: []status.BuildRecord{
				rec("9", "main", status.Passed, at(5)),
				rec("10", "main", status.Failed, at(5)),
				rec("8", "main", status.Passed, at(5)),
			},
			want: []string{"10", "9", "8"},
		},
		{
			name: "non numeric ids compare lexically",
			records: []status.BuildRecord{
				rec("b", "main", status.Passed, at(5)),
				rec("c", "main", status.Passed, at(5)),
				rec("a", "main", status.Passed, at(5)),
			},
			want: []string{"c", "b", "a"},
		},
		{
			name: "missing start time sorts last",
			records: []status.BuildRecord{
				rec("5", "main", status.Pending, nil),
				rec("3", "main", status.Passed, at(1)),
				rec("4", "main", status.Pending, nil),
			},
			want: []string{"3", "5", "4"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups := Aggregate(tt.records, Options{})
			if got := ids(groups[0].History); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("History = %v, want %v", got, tt.want)
			}

			reversed := make([]status.BuildRecord, len(tt.records))
			for i, r := range tt.records {
				reversed[len(tt.records)-1-i] = r
			}
			if got := ids(Aggregate(reversed, Options{})[0].History); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("reversed input History = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAggregate_Truncation(t *testing.T) {
	var records []status.BuildRecord
	for i := 0; i < 12; i++ {
		records = append(records, rec(string(rune('a'+i)), "main", status.Passed, at(i)))
	}

	groups := Aggregate(records, Options{Depth: 3})
	if got, want := ids(groups[0].History), []string{"l", "k", "j"}; !reflect.DeepEqual(got, want) {
		t.Errorf("History = %v, want %v", got, want)
	}

	if got := len(Aggregate(records, Options{})[0].History); got != DefaultDepth {
		t.Errorf("default depth history = %d, want %d", got, DefaultDepth)
	}
}

func TestAggregate_Order(t *testing.T) {
	records := []status.BuildRecord{
		rec("1", "zeta", status.Passed, at(0)),
		rec("2", "alpha", status.Passed, at(1)),
		rec("3", "main", status.Passed, at(2)),
		rec("4", "zeta", status.Failed, at(3)),
	}

	tests := []struct {
		order Order
		want  []string
	}{
		{OrderFirstSeen, []string{"zeta", "alpha", "main"}},
		{OrderAlphabetical, []string{"alpha", "main", "zeta"}},
	}
	for _, tt := range tests {
		t.Run(tt.order.String(), func(t *testing.T) {
			if got := Names(Aggregate(records, Options{Order: tt.order})); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("names = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAggregate_GroupKeys(t *testing.T) {
	a := rec("1", "main", status.Passed, at(0))
	a.Pipeline = "build"
	b := rec("2", "main", status.Passed, at(1))
	b.Project = "github:acme/web"
	c := rec("3", "dev", status.Passed, at(2))

	tests := []struct {
		key  GroupKey
		want []string
	}{
		{ByBranch, []string{"main", "dev"}},
		{ByProjectBranch, []string{"circleci:gh/acme/api@main", "github:acme/web@main", "circleci:gh/acme/api@dev"}},
		{ByPipeline, []string{"build", "main", "dev"}},
	}
	for _, tt := range tests {
		t.Run(tt.key.String(), func(t *testing.T) {
			got := Names(Aggregate([]status.BuildRecord{a, b, c}, Options{Key: tt.key}))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("names = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAggregate_Empty(t *testing.T) {
	if groups := Aggregate(nil, Options{}); len(groups) != 0 {
		t.Errorf("Aggregate(nil) = %v, want empty", groups)
	}
}

func TestParseOptions(t *testing.T) {
	if k, err := ParseGroupKey("pipeline"); err != nil || k != ByPipeline {
		t.Errorf("ParseGroupKey(pipeline) = %v, %v", k, err)
	}
	if _, err := ParseGroupKey("commit"); err == nil {
		t.Error("ParseGroupKey(commit) should fail")
	}
	if o, err := ParseOrder("alphabetical"); err != nil || o != OrderAlphabetical {
		t.Errorf("ParseOrder(alphabetical) = %v, %v", o, err)
	}
	if _, err := ParseOrder("random"); err == nil {
		t.Error("ParseOrder(random) should fail")
	}
}

func TestStableOrder(t *testing.T) {
	group := func(name string) PipelineGroup { return PipelineGroup{Name: name} }

	tests := []struct {
		name   string
		groups []string
		prior  []string
		want   []string
	}{
		{"no prior keeps current", []string{"b", "a"}, nil, []string{"b", "a"}},
		{"newest build moved", []string{"feature-x", "main"}, []string{"main", "feature-x"}, []string{"main", "feature-x"}},
		{"new names appended", []string{"new", "main", "dev"}, []string{"dev", "main"}, []string{"dev", "main", "new"}},
		{"vanished names skipped", []string{"main"}, []string{"gone", "main"}, []string{"main"}},
		{"several new keep current order", []string{"y", "main", "x"}, []string{"main"}, []string{"main", "y", "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var groups []PipelineGroup
			for _, n := range tt.groups {
				groups = append(groups, group(n))
			}
			if got := Names(StableOrder(groups, tt.prior)); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("StableOrder() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStableOrder_DoesNotReorderInput(t *testing.T) {
	groups := []PipelineGroup{{Name: "b"}, {Name: "a"}}
	StableOrder(groups, []string{"a", "b"})
	if groups[0].Name != "b" {
		t.Errorf("input reordered to %v", Names(groups))
	}
}

func TestSummarize(t *testing.T) {
	groups := Aggregate([]status.BuildRecord{
		rec("1", "main", status.Passed, at(0)),
		rec("2", "feature-x", status.Failed, at(1)),
		rec("3", "dev", status.Running, at(2)),
		rec("4", "ops", status.Errored, at(3)),
	}, Options{})
	groups[2].Stale = true
	groups = append(groups, PipelineGroup{Name: "circleci:gh/acme/gone", Err: "unavailable"})

	got := Summarize(groups)
	want := Summary{Total: 5, Passing: 1, Failing: 1, Running: 1, Errored: 2, Stale: 1}
	if got != want {
		t.Errorf("Summarize() = %+v, want %+v", got, want)
	}
	if got.Healthy() {
		t.Error("Healthy() = true with a failing group")
	}
}

func TestDiff(t *testing.T) {
	prev := Snapshot{Groups: Aggregate([]status.BuildRecord{
		rec("1", "main", status.Passed, at(0)),
		rec("2", "feature-x", status.Running, at(1)),
		rec("3", "old", status.Passed, at(2)),
	}, Options{})}

	next := Snapshot{Groups: Aggregate([]status.BuildRecord{
		rec("4", "main", status.Failed, at(10)),
		rec("2", "feature-x", status.Running, at(1)),
		rec("5", "new", status.Passed, at(11)),
	}, Options{})}

	got := Diff(prev, next)

	if !reflect.DeepEqual(got.Added, []string{"new"}) {
		t.Errorf("Added = %v, want [new]", got.Added)
	}
	if !reflect.DeepEqual(got.Removed, []string{"old"}) {
		t.Errorf("Removed = %v, want [old]", got.Removed)
	}
	if len(got.Transitions) != 1 {
		t.Fatalf("Transitions = %v, want 1", got.Transitions)
	}
	tr := got.Transitions[0]
	if tr.Group != "main" || tr.From != status.Passed || tr.To != status.Failed || tr.Build.ID != "4" {
		t.Errorf("Transition = %+v", tr)
	}

	if prev.Groups[0].Latest.Status != status.Passed {
		t.Error("Diff modified the previous snapshot")
	}
}

func TestDiff_IgnoresStale(t *testing.T) {
	prev := Snapshot{Groups: Aggregate([]status.BuildRecord{rec("1", "main", status.Passed, at(0))}, Options{})}
	next := Snapshot{Groups: Aggregate([]status.BuildRecord{rec("2", "main", status.Failed, at(1))}, Options{})}
	next.Groups[0].Stale = true

	if got := Diff(prev, next); !got.Empty() {
		t.Errorf("Diff() = %+v, want empty", got)
	}
}
