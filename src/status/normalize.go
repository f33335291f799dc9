package status

import (
	"fmt"
	"strings"
	"time"

	"cistat/src/provider"
	"cistat/src/sanitize"
)

// Normalize maps a raw provider build onto a BuildRecord.
//
// It never fails: an unrecognised status becomes Errored with the raw value and
// a diagnostic kept on the record. Timestamps are reconciled with the status so
// that Passed and Failed always carry FinishedAt and Pending and Running never do.
func Normalize(raw provider.RawBuild, kind provider.Kind) BuildRecord {
	rec := BuildRecord{
		ID:         raw.ID,
		Number:     raw.Number,
		Project:    raw.Project,
		Provider:   string(kind),
		Branch:     sanitize.Label(raw.Branch),
		Pipeline:   sanitize.Label(raw.Pipeline),
		Commit:     shortCommit(raw.Commit),
		StartedAt:  copyTime(raw.StartedAt),
		FinishedAt: copyTime(raw.FinishedAt),
		URL:        raw.URL,
	}

	key := strings.ToLower(strings.TrimSpace(raw.Status))
	table, known := vocabularies[kind]
	st, ok := table[key]
	switch {
	case !known:
		rec.Status = Errored
		rec.RawStatus = raw.Status
		rec.Diagnostic = fmt.Sprintf("unsupported provider %q", kind)
		return rec
	case !ok:
		rec.Status = Errored
		rec.RawStatus = raw.Status
		rec.Diagnostic = fmt.Sprintf("unrecognised %s status %q", kind, raw.Status)
		return rec
	}
	rec.Status = st

	switch st {
	case Pending, Running:
		rec.FinishedAt = nil
	case Passed, Failed:
		if rec.FinishedAt == nil {
			rec.RawStatus = raw.Status
			rec.Diagnostic = fmt.Sprintf("%s build reported %q without a finish time", kind, raw.Status)
			rec.Status = Errored
		}
	}

	return rec
}

// NormalizeAll normalizes a batch, preserving order.
func NormalizeAll(raws []provider.RawBuild, kind provider.Kind) []BuildRecord {
	out := make([]BuildRecord, len(raws))
	for i, raw := range raws {
		out[i] = Normalize(raw, kind)
	}
	return out
}

func shortCommit(sha string) string {
	sha = strings.TrimSpace(sha)
	if len(sha) > ShortCommitLen {
		return sha[:ShortCommitLen]
	}
	return sha
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
