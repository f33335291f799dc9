package aggregate

import "cistat/src/status"

// Transition is a change of a group's latest status between two snapshots.
type Transition struct {
	Group string             `json:"group"`
	From  status.Status      `json:"from"`
	To    status.Status      `json:"to"`
	Build status.BuildRecord `json:"build"`
}

// Changes lists what differs between two snapshots.
type Changes struct {
	Added       []string     `json:"added,omitempty"`
	Removed     []string     `json:"removed,omitempty"`
	Transitions []Transition `json:"transitions,omitempty"`
}

// Empty reports whether nothing changed.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Transitions) == 0
}

// Diff compares two snapshots. Stale groups and groups without data never
// produce transitions since their state is not current.
func Diff(prev, next Snapshot) Changes {
	var changes Changes

	before := make(map[string]PipelineGroup, len(prev.Groups))
	for _, g := range prev.Groups {
		before[g.Name] = g
	}
	after := make(map[string]bool, len(next.Groups))

	for _, g := range next.Groups {
		after[g.Name] = true
		old, ok := before[g.Name]
		if !ok {
			changes.Added = append(changes.Added, g.Name)
			continue
		}
		if g.Stale || !g.HasData() || !old.HasData() {
			continue
		}
		if old.Latest.Status != g.Latest.Status {
			changes.Transitions = append(changes.Transitions, Transition{
				Group: g.Name,
				From:  old.Latest.Status,
				To:    g.Latest.Status,
				Build: g.Latest,
			})
		}
	}

	for _, g := range prev.Groups {
		if !after[g.Name] {
			changes.Removed = append(changes.Removed, g.Name)
		}
	}
	return changes
}
