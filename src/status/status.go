// Package status defines the provider-independent build model and maps each
// provider's status vocabulary onto it.
package status

import (
	"fmt"
	"time"
)

// Status is the uniform outcome of a build.
type Status int

const (
	// Unknown is the zero value. Normalize never produces it; it marks
	// placeholder groups for projects that have never been fetched.
	Unknown Status = iota
	Pending
	Running
	Passed
	Failed
	Errored
	Cancelled
)

// Statuses lists every status Normalize can produce.
var Statuses = []Status{Pending, Running, Passed, Failed, Errored, Cancelled}

var statusNames = map[Status]string{
	Unknown:   "unknown",
	Pending:   "pending",
	Running:   "running",
	Passed:    "passed",
	Failed:    "failed",
	Errored:   "errored",
	Cancelled: "cancelled",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Terminal reports whether the build has finished.
func (s Status) Terminal() bool {
	switch s {
	case Passed, Failed, Errored, Cancelled:
		return true
	}
	return false
}

// MarshalText encodes the status by name so cached and published records stay readable.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name written by MarshalText.
func (s *Status) UnmarshalText(text []byte) error {
	for st, name := range statusNames {
		if name == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", string(text))
}

// ShortCommitLen is the length commits are truncated to.
const ShortCommitLen = 7

// BuildRecord is one CI run in provider-independent form.
// Records are built fresh on every fetch and never modified afterwards.
type BuildRecord struct {
	ID         string     `json:"id"`
	Number     int64      `json:"number,omitempty"`
	Project    string     `json:"project"`
	Provider   string     `json:"provider"`
	Branch     string     `json:"branch"`
	Pipeline   string     `json:"pipeline,omitempty"`
	Commit     string     `json:"commit,omitempty"`
	Status     Status     `json:"status"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	URL        string     `json:"url,omitempty"`

	// RawStatus and Diagnostic are set when the provider's status was not recognised.
	RawStatus  string `json:"raw_status,omitempty"`
	Diagnostic string `json:"diagnostic,omitempty"`
}

// Duration returns the wall time of the build. ok is false unless both
// timestamps are present.
func (r BuildRecord) Duration() (d time.Duration, ok bool) {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0, false
	}
	return r.FinishedAt.Sub(*r.StartedAt), true
}

// DurationSeconds is Duration in whole seconds.
func (r BuildRecord) DurationSeconds() (int64, bool) {
	d, ok := r.Duration()
	return int64(d / time.Second), ok
}

// Anomalous reports whether the record carries a normalization diagnostic.
func (r BuildRecord) Anomalous() bool {
	return r.Diagnostic != ""
}
