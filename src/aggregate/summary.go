package aggregate

import "cistat/src/status"

// Summary counts groups by the state of their latest build.
type Summary struct {
	Total   int `json:"total"`
	Passing int `json:"passing"`
	Failing int `json:"failing"`
	Running int `json:"running"`
	Pending int `json:"pending"`
	Errored int `json:"errored"`
	Stale   int `json:"stale"`
}

// Healthy reports whether no group is failing or errored.
func (s Summary) Healthy() bool {
	return s.Failing == 0 && s.Errored == 0
}

// Summarize computes overall health. Groups without data count as errored.
func Summarize(groups []PipelineGroup) Summary {
	sum := Summary{Total: len(groups)}
	for _, g := range groups {
		if g.Stale {
			sum.Stale++
		}
		if !g.HasData() {
			sum.Errored++
			continue
		}
		switch g.Latest.Status {
		case status.Passed:
			sum.Passing++
		case status.Failed:
			sum.Failing++
		case status.Running:
			sum.Running++
		case status.Pending:
			sum.Pending++
		case status.Errored:
			sum.Errored++
		}
	}
	return sum
}
