package status

import (
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"cistat/src/provider"
)

type vocabEntry struct {
	kind provider.Kind
	raw  string
}

func vocabEntries() []interface{} {
	var entries []interface{}
	for _, kind := range provider.Kinds {
		keys := make([]string, 0)
		for raw := range vocabularies[kind] {
			keys = append(keys, raw)
		}
		sort.Strings(keys)
		for _, raw := range keys {
			entries = append(entries, vocabEntry{kind: kind, raw: raw})
		}
	}
	return entries
}

// Recognised statuses map to their table value; timestamps stay consistent with the status.
func TestNormalize_RecognisedProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("recognised statuses normalize to the table value", prop.ForAll(
		func(e vocabEntry, finished bool, offset int) bool {
			start := time.Date(2024, 5, 21, 10, 0, 0, 0, time.UTC)
			raw := provider.RawBuild{ID: "1", Status: e.raw, StartedAt: &start}
			if finished {
				end := start.Add(time.Duration(offset) * time.Second)
				raw.FinishedAt = &end
			}

			want := vocabularies[e.kind][e.raw]
			got := Normalize(raw, e.kind)
			again := Normalize(raw, e.kind)

			if got.Status != again.Status || got.Diagnostic != again.Diagnostic {
				return false
			}
			switch want {
			case Passed, Failed:
				if !finished {
					return got.Status == Errored && got.FinishedAt == nil
				}
				return got.Status == want && got.FinishedAt != nil
			case Pending, Running:
				return got.Status == want && got.FinishedAt == nil
			default:
				return got.Status == want
			}
		},
		gen.OneConstOf(vocabEntries()...),
		gen.Bool(),
		gen.IntRange(0, 7200),
	))

	properties.TestingRun(t)
}

// Unrecognised statuses always map to Errored and keep the raw value.
func TestNormalize_UnrecognisedProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("unrecognised statuses become errored", prop.ForAll(
		func(kind provider.Kind, raw string) bool {
			if _, ok := vocabularies[kind][strings.ToLower(strings.TrimSpace(raw))]; ok {
				return true
			}
			got := Normalize(provider.RawBuild{ID: "9", Status: raw}, kind)
			return got.Status == Errored && got.RawStatus == raw && got.Diagnostic != ""
		},
		gen.OneConstOf(provider.KindCircleCI, provider.KindGitHub, provider.KindBuildkite, provider.KindGitLab),
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
