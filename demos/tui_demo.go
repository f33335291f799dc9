// Demo program to showcase the cistat live view with simulated builds.
// Statuses change every few seconds; press r to refresh early and q to quit.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"time"

	"cistat/src/aggregate"
	"cistat/src/dashboard"
	"cistat/src/provider"
	"cistat/src/render"
	"cistat/src/tui"
)

// demoProvider invents a new build on one branch per call.
type demoProvider struct {
	mu     sync.Mutex
	calls  int
	builds []provider.RawBuild
}

var (
	demoBranches = []string{"main", "release-2.4", "feature/login", "fix/flaky-cache", "deps/bump-grpc"}
	demoOutcomes = []string{"success", "success", "success", "failure", "cancelled"}
)

func (p *demoProvider) Kind() provider.Kind { return provider.KindGitHub }

func (p *demoProvider) FetchRecentBuilds(ctx context.Context, ref provider.ProjectRef, limit int) ([]provider.RawBuild, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++

	// Finish whatever was running, then start something new.
	now := time.Now()
	for i := range p.builds {
		if p.builds[i].Status == "in_progress" {
			p.builds[i].Status = demoOutcomes[rand.Intn(len(demoOutcomes))]
			finished := now
			p.builds[i].FinishedAt = &finished
		}
	}

	if p.calls%4 == 0 {
		return nil, fmt.Errorf("%w: simulated outage", provider.ErrProviderUnavailable)
	}

	started := now.Add(-time.Duration(rand.Intn(300)) * time.Second)
	n := int64(len(p.builds) + 1)
	p.builds = append([]provider.RawBuild{{
		ID:        fmt.Sprintf("%d", n),
		Number:    n,
		Branch:    demoBranches[rand.Intn(len(demoBranches))],
		Commit:    fmt.Sprintf("%040x", rand.Int63()),
		Status:    "in_progress",
		StartedAt: &started,
		URL:       fmt.Sprintf("https://github.com/acme/web/actions/runs/%d", n),
	}}, p.builds...)

	if len(p.builds) > limit {
		p.builds = p.builds[:limit]
	}
	out := make([]provider.RawBuild, len(p.builds))
	copy(out, p.builds)
	return out, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ref, err := provider.ParseProjectRef("github:acme/web", provider.KindGitHub)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Launching cistat demo...")
	time.Sleep(500 * time.Millisecond) // Brief pause for effect

	disp := tui.NewDisplay()
	orch := dashboard.New(dashboard.Options{
		Projects:  []provider.ProjectRef{ref},
		Limit:     20,
		Aggregate: aggregate.Options{Key: aggregate.ByBranch, Depth: 8},
		Watch:     true,
		Interval:  3 * time.Second,
	}, map[provider.Kind]provider.Provider{provider.KindGitHub: &demoProvider{}}, disp,
		dashboard.WithTransitionHook(disp.StateChanged))

	if err := tui.Run(ctx, disp, orch, render.New(render.WithTrend(true))); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
