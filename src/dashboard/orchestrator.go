// Package dashboard drives the fetch, normalize, aggregate and render cycle
// and owns the watch-mode refresh loop.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"cistat/src/aggregate"
	"cistat/src/cache"
	"cistat/src/logger"
	"cistat/src/notify"
	"cistat/src/provider"
	"cistat/src/sanitize"
	"cistat/src/status"
)

const defaultConcurrency = 4

// Options is the resolved configuration of one orchestrator.
type Options struct {
	Projects    []provider.ProjectRef
	Limit       int
	Aggregate   aggregate.Options
	Watch       bool
	Interval    time.Duration
	Concurrency int

	// StaleLimit is the number of consecutive failed fetches after which a
	// project's stale groups are replaced by a placeholder. Zero never expires.
	StaleLimit int

	// BranchFilter, when set, drops builds on branches it rejects.
	BranchFilter func(branch string) bool
}

// Option configures optional collaborators.
type Option func(*Orchestrator)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

// WithCache seeds last known builds from store and saves every successful fetch.
func WithCache(store cache.Store) Option {
	return func(o *Orchestrator) { o.cache = store }
}

// WithNotifier reports transitions between consecutive snapshots.
func WithNotifier(n notify.Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// WithTransitionHook is called on every state change.
func WithTransitionHook(fn func(from, to State)) Option {
	return func(o *Orchestrator) { o.onTransition = fn }
}

// fetchResult is the outcome of one project's fetch in one cycle.
type fetchResult struct {
	records []status.BuildRecord
	err     error
}

// Orchestrator runs refresh cycles. It is not safe to call Run or RunOnce
// concurrently; State may be read from any goroutine.
type Orchestrator struct {
	opts      Options
	providers map[provider.Kind]provider.Provider
	display   Display

	clock        Clock
	cache        cache.Store
	notifier     notify.Notifier
	log          logger.Logger
	onTransition func(from, to State)

	mu      sync.Mutex
	state   State
	refresh chan struct{}

	lastGood map[string][]status.BuildRecord
	failures map[string]int
	order    []string
	prev     *aggregate.Snapshot
	cycle    int
	seeded   bool
}

// New creates an orchestrator in the Idle state.
func New(opts Options, providers map[provider.Kind]provider.Provider, display Display, options ...Option) *Orchestrator {
	o := &Orchestrator{
		opts:      opts,
		providers: providers,
		display:   display,
		clock:     RealClock(),
		log:       logger.NewSilentLogger(),
		state:     Idle,
		refresh:   make(chan struct{}, 1),
		lastGood:  make(map[string][]status.BuildRecord),
		failures:  make(map[string]int),
	}
	o.opts.Projects = provider.MergeRefs(opts.Projects)
	for _, opt := range options {
		opt(o)
	}
	return o
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	from := o.state
	o.state = s
	o.mu.Unlock()

	if from != s && o.onTransition != nil {
		o.onTransition(from, s)
	}
}

// Refresh ends the current interval wait early. Requests made while a cycle
// is running collapse into one refresh after it.
func (o *Orchestrator) Refresh() {
	select {
	case o.refresh <- struct{}{}:
	default:
	}
}

// Run executes one cycle, or loops until ctx is cancelled in watch mode.
// Cancellation is a clean stop and returns nil. A rejected request or a
// display failure stops the loop and is returned.
func (o *Orchestrator) Run(ctx context.Context) error {
	defer o.setState(Stopped)

	for {
		if _, err := o.runCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if !o.opts.Watch {
			o.setState(Idle)
			return nil
		}

		o.setState(WaitingForInterval)
		select {
		case <-ctx.Done():
			return nil
		case <-o.clock.After(o.interval()):
		case <-o.refresh:
		}
	}
}

// RunOnce executes a single cycle and returns the published snapshot.
func (o *Orchestrator) RunOnce(ctx context.Context) (aggregate.Snapshot, error) {
	defer o.setState(Stopped)

	snap, err := o.runCycle(ctx)
	if err != nil {
		return aggregate.Snapshot{}, err
	}
	o.setState(Idle)
	return snap, nil
}

func (o *Orchestrator) interval() time.Duration {
	if o.opts.Interval <= 0 {
		return 30 * time.Second
	}
	return o.opts.Interval
}

func (o *Orchestrator) runCycle(ctx context.Context) (aggregate.Snapshot, error) {
	o.setState(Fetching)
	o.seed(ctx)

	results, err := o.fetchAll(ctx)
	if err != nil {
		return aggregate.Snapshot{}, err
	}

	o.cycle++
	snap := o.assemble(ctx, results)

	o.setState(Rendering)
	if err := o.display.Show(snap); err != nil {
		return aggregate.Snapshot{}, err
	}

	o.publishChanges(ctx, snap)
	return snap, nil
}

// seed loads last known builds from the cache once, before the first fetch.
func (o *Orchestrator) seed(ctx context.Context) {
	if o.seeded || o.cache == nil {
		return
	}
	o.seeded = true

	for _, ref := range o.opts.Projects {
		key := ref.String()
		records, savedAt, err := o.cache.Load(ctx, key)
		if err != nil {
			if !errors.Is(err, cache.ErrNotFound) {
				o.log.Error("failed to read cache for %s: %v", key, err)
			}
			continue
		}
		o.lastGood[key] = o.filter(records)
		o.log.Debug("seeded %d builds for %s cached at %s", len(records), key, savedAt.Format(time.RFC3339))
	}
}

// fetchAll fetches every project concurrently. Transient failures are
// recorded per project; a rejected request or cancellation aborts the cycle.
func (o *Orchestrator) fetchAll(ctx context.Context) ([]fetchResult, error) {
	results := make([]fetchResult, len(o.opts.Projects))

	limit := o.opts.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, ref := range o.opts.Projects {
		g.Go(func() error {
			p, ok := o.providers[ref.Kind]
			if !ok {
				return fmt.Errorf("%w: no %s provider configured", provider.ErrConfiguration, ref.Kind)
			}

			raws, err := p.FetchRecentBuilds(gctx, ref, o.opts.Limit)
			if err != nil {
				if errors.Is(err, provider.ErrProviderRejected) || errors.Is(err, context.Canceled) {
					return fmt.Errorf("%s: %w", ref, err)
				}
				o.log.Debug("fetch %s failed: %v", ref, err)
				results[i] = fetchResult{err: err}
				return nil
			}

			records := o.filter(status.NormalizeAll(raws, ref.Kind))
			for j := range records {
				records[j].Project = ref.String()
				if records[j].Diagnostic != "" {
					o.log.Debug("%s build %s: %s", ref, records[j].ID, records[j].Diagnostic)
				}
			}
			results[i] = fetchResult{records: records}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (o *Orchestrator) filter(records []status.BuildRecord) []status.BuildRecord {
	if o.opts.BranchFilter == nil {
		return records
	}
	kept := records[:0:0]
	for _, rec := range records {
		if o.opts.BranchFilter(rec.Branch) {
			kept = append(kept, rec)
		}
	}
	return kept
}

// assemble merges this cycle's results with last known data into a snapshot.
func (o *Orchestrator) assemble(ctx context.Context, results []fetchResult) aggregate.Snapshot {
	now := o.clock.Now()

	var records []status.BuildRecord
	staleFor := make(map[string]int)
	var placeholders []aggregate.PipelineGroup
	var problems []string

	for i, ref := range o.opts.Projects {
		key := ref.String()
		res := results[i]

		if res.err == nil {
			o.failures[key] = 0
			o.lastGood[key] = res.records
			records = append(records, res.records...)
			o.save(ctx, key, res.records, now)
			continue
		}

		o.failures[key]++
		failures := o.failures[key]
		msg := sanitize.Label(res.err.Error())
		problems = append(problems, fmt.Sprintf("%s: %s", key, msg))

		last, ok := o.lastGood[key]
		expired := o.opts.StaleLimit > 0 && failures > o.opts.StaleLimit
		if ok && len(last) > 0 && !expired {
			staleFor[key] = failures
			records = append(records, last...)
			continue
		}

		placeholders = append(placeholders, aggregate.PipelineGroup{
			Name:     key,
			Project:  key,
			Stale:    ok && len(last) > 0,
			StaleFor: failures,
			Err:      msg,
		})
	}

	groups := aggregate.Aggregate(records, o.opts.Aggregate)
	for i := range groups {
		// A merged group is only as stale as the build it shows.
		if n, stale := staleFor[groups[i].Latest.Project]; stale {
			groups[i].Stale = true
			groups[i].StaleFor = n
		}
	}
	groups = append(groups, placeholders...)
	if o.opts.Aggregate.Order == aggregate.OrderAlphabetical {
		sort.SliceStable(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	} else {
		groups = aggregate.StableOrder(groups, o.order)
	}
	o.order = aggregate.Names(groups)

	return aggregate.Snapshot{
		Groups:   groups,
		TakenAt:  now,
		Cycle:    o.cycle,
		Problems: problems,
	}
}

func (o *Orchestrator) save(ctx context.Context, key string, records []status.BuildRecord, at time.Time) {
	if o.cache == nil {
		return
	}
	if err := o.cache.Save(ctx, key, records, at); err != nil {
		o.log.Error("failed to write cache for %s: %v", key, err)
	}
}

func (o *Orchestrator) publishChanges(ctx context.Context, snap aggregate.Snapshot) {
	prev := o.prev
	o.prev = &snap
	if prev == nil || o.notifier == nil {
		return
	}

	changes := aggregate.Diff(*prev, snap)
	if changes.Empty() {
		return
	}
	if err := o.notifier.Notify(ctx, changes); err != nil {
		o.log.Error("failed to send notifications: %v", err)
	}
}
