//go:build integration

package githubactions

import (
	"context"
	"os"
	"testing"

	"cistat/src/provider"
	"cistat/src/status"
)

func TestGitHubActionsIntegration(t *testing.T) {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		t.Skip("GITHUB_TOKEN not set, skipping integration test")
	}

	selector := os.Getenv("TEST_GITHUB_PROJECT")
	if selector == "" {
		t.Skip("TEST_GITHUB_PROJECT not set, skipping integration test")
	}

	ref, err := provider.ParseProjectRef(selector, provider.KindGitHub)
	if err != nil {
		t.Fatalf("ParseProjectRef failed: %v", err)
	}

	raws, err := NewProvider(token).FetchRecentBuilds(context.Background(), ref, 10)
	if err != nil {
		t.Fatalf("FetchRecentBuilds failed: %v", err)
	}

	if len(raws) == 0 {
		t.Error("Expected runs, got 0")
	}
	for _, rec := range status.NormalizeAll(raws, provider.KindGitHub) {
		if rec.Anomalous() {
			t.Errorf("run %s: %s", rec.ID, rec.Diagnostic)
		}
	}

	t.Logf("Fetched %d runs for %s", len(raws), ref)
}
