// Package mcp exposes build status as MCP tools for LLM agents.
package mcp

import "time"

// StatusManifest is the build_status tool response. Groups that need
// attention are listed in full; healthy groups are summarized by name.
type StatusManifest struct {
	RequestID string      `json:"request_id"`
	TakenAt   time.Time   `json:"taken_at"`
	Summary   SummaryInfo `json:"summary"`
	Attention []GroupInfo `json:"attention"`
	Healthy   []string    `json:"healthy"`
	Problems  []string    `json:"problems,omitempty"`
	Dashboard string      `json:"dashboard"`
}

// SummaryInfo counts groups by state.
type SummaryInfo struct {
	Total   int  `json:"total"`
	Passing int  `json:"passing"`
	Failing int  `json:"failing"`
	Running int  `json:"running"`
	Pending int  `json:"pending"`
	Errored int  `json:"errored"`
	Stale   int  `json:"stale"`
	Healthy bool `json:"healthy"`
}

// GroupInfo is the latest state of one group. Rank orders the attention list;
// Tier is 1 for broken, 2 for stale or unreachable, 3 for in flight.
type GroupInfo struct {
	Rank     int    `json:"rank,omitempty"`
	Tier     int    `json:"tier,omitempty"`
	Streak   int    `json:"failure_streak,omitempty"`
	Name     string `json:"name"`
	Project  string `json:"project,omitempty"`
	Status   string `json:"status"`
	Number   int64  `json:"number,omitempty"`
	Commit   string `json:"commit,omitempty"`
	URL      string `json:"url,omitempty"`
	Started  string `json:"started_at,omitempty"`
	Stale    bool   `json:"stale,omitempty"`
	StaleFor int    `json:"stale_for,omitempty"`
	Error    string `json:"error,omitempty"`
	History  int    `json:"history_entries"`
}
