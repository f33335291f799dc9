package status

import "cistat/src/provider"

// vocabularies maps every documented raw status of each provider onto Status.
// Keys are lower-case; Normalize lower-cases input before lookup.
var vocabularies = map[provider.Kind]map[string]Status{
	// CircleCI v1.1 "status" and "outcome" values.
	provider.KindCircleCI: {
		"retried":             Cancelled,
		"canceled":            Cancelled,
		"infrastructure_fail": Errored,
		"timedout":            Failed,
		"not_run":             Cancelled,
		"running":             Running,
		"failed":              Failed,
		"queued":              Pending,
		"scheduled":           Pending,
		"not_running":         Pending,
		"no_tests":            Passed,
		"fixed":               Passed,
		"success":             Passed,
	},

	// GitHub Actions workflow run status, or its conclusion once completed.
	provider.KindGitHub: {
		"queued":          Pending,
		"requested":       Pending,
		"waiting":         Pending,
		"pending":         Pending,
		"in_progress":     Running,
		"success":         Passed,
		"neutral":         Passed,
		"failure":         Failed,
		"timed_out":       Failed,
		"startup_failure": Errored,
		"action_required": Errored,
		"stale":           Errored,
		"cancelled":       Cancelled,
		"skipped":         Cancelled,
	},

	// Buildkite build states.
	provider.KindBuildkite: {
		"creating":  Pending,
		"scheduled": Pending,
		"waiting":   Pending,
		"blocked":   Pending,
		"running":   Running,
		"failing":   Running,
		"canceling": Running,
		"passed":    Passed,
		"failed":    Failed,
		"canceled":  Cancelled,
		"skipped":   Cancelled,
		"not_run":   Cancelled,
	},

	// GitLab pipeline statuses.
	provider.KindGitLab: {
		"created":              Pending,
		"waiting_for_resource": Pending,
		"preparing":            Pending,
		"pending":              Pending,
		"scheduled":            Pending,
		"manual":               Pending,
		"running":              Running,
		"success":              Passed,
		"failed":               Failed,
		"canceled":             Cancelled,
		"skipped":              Cancelled,
	},
}

// Vocabulary returns a copy of the raw status table for kind.
func Vocabulary(kind provider.Kind) map[string]Status {
	table := vocabularies[kind]
	out := make(map[string]Status, len(table))
	for k, v := range table {
		out[k] = v
	}
	return out
}
