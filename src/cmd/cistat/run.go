package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"cistat/src/aggregate"
	"cistat/src/broker"
	"cistat/src/cache"
	"cistat/src/config"
	"cistat/src/dashboard"
	"cistat/src/logger"
	cistatmcp "cistat/src/mcp"
	"cistat/src/notify"
	"cistat/src/provider"
	"cistat/src/render"
	"cistat/src/tui"
)

func runStatus(ctx context.Context, opts config.LoadOptions, out io.Writer) error {
	cfg, err := config.Load(opts)
	if err != nil {
		return err
	}

	tty, isTTY := terminal(out)
	interactive := cfg.Watch && !cfg.Plain && isTTY

	// The interactive view owns the terminal; diagnostics would corrupt it.
	var log logger.Logger = logger.NewConsoleLogger(cfg.Verbose)
	if interactive {
		log = logger.NewSilentLogger()
	}

	providers, err := dashboard.NewProviders(cfg)
	if err != nil {
		return err
	}

	var filter func(string) bool
	if cfg.LocalBranches {
		branches, err := localBranches(ctx)
		if err != nil {
			return fmt.Errorf("%w: --local-branches: %v", provider.ErrConfiguration, err)
		}
		log.Debug("tracking %d local branches", len(branches))
		filter = branchFilter(branches)
	}

	options := []dashboard.Option{dashboard.WithLogger(log)}

	if cfg.Cache != "" {
		store, err := cache.Open(cfg.Cache)
		if err != nil {
			log.Error("cache disabled: %v", err)
		} else {
			defer store.Close()
			options = append(options, dashboard.WithCache(store))
		}
	}

	if cfg.Watch {
		notifiers := notify.Multi{notify.NewLogNotifier(log)}
		if len(cfg.Brokers) > 0 {
			b, err := broker.New(cfg.Brokers, log)
			if err != nil {
				return fmt.Errorf("%w: notify brokers: %v", provider.ErrConfiguration, err)
			}
			defer b.Close()
			notifiers = append(notifiers, notify.NewBrokerNotifier(b, cfg.NotifyTopic))
		}
		options = append(options, dashboard.WithNotifier(notifiers))
	}

	renderer := newRenderer(cfg, out, tty)
	dashOpts := dashboard.OptionsFromConfig(cfg, filter)

	if interactive {
		disp := tui.NewDisplay()
		options = append(options, dashboard.WithTransitionHook(disp.StateChanged))
		orch := dashboard.New(dashOpts, providers, disp, options...)
		return tui.Run(ctx, disp, orch, renderer, tea.WithOutput(tty))
	}

	disp := dashboard.NewWriterDisplay(out, renderer, cfg.Watch && isTTY)
	return dashboard.New(dashOpts, providers, disp, options...).Run(ctx)
}

// terminal returns out as a file when it is an interactive terminal.
func terminal(out io.Writer) (*os.File, bool) {
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(f.Fd()) {
		return nil, false
	}
	return f, true
}

func newRenderer(cfg *config.Config, out io.Writer, tty *os.File) *render.Renderer {
	profile := termenv.Ascii
	if !cfg.Plain {
		profile = termenv.NewOutput(out).EnvColorProfile()
	}

	opts := []render.Option{
		render.WithColorProfile(profile),
		render.WithTrend(cfg.Trend),
		render.WithAlign(cfg.Align),
	}
	if tty != nil {
		if width, _, err := term.GetSize(tty.Fd()); err == nil && width > 0 {
			opts = append(opts, render.WithWidth(width))
		}
	}
	return render.New(opts...)
}

func runMCP(ctx context.Context, f *flags, cmd *cobra.Command) error {
	base, err := f.loadOptions(cmd, nil)
	if err != nil {
		return err
	}
	base.AllowNoProjects = true
	if _, err := config.Load(base); err != nil {
		return err
	}

	log := logger.NewConsoleLogger(f.verbose)
	status := func(ctx context.Context, selectors []string, depth int) (aggregate.Snapshot, error) {
		opts := base
		opts.AllowNoProjects = false
		opts.Overrides.Selectors = selectors
		opts.Overrides.Depth = &depth
		watch := false
		opts.Overrides.Watch = &watch

		cfg, err := config.Load(opts)
		if err != nil {
			return aggregate.Snapshot{}, err
		}
		providers, err := dashboard.NewProviders(cfg)
		if err != nil {
			return aggregate.Snapshot{}, err
		}
		noop := dashboard.DisplayFunc(func(aggregate.Snapshot) error { return nil })
		orch := dashboard.New(dashboard.OptionsFromConfig(cfg, nil), providers, noop, dashboard.WithLogger(log))
		return orch.RunOnce(ctx)
	}

	log.Debug("serving MCP on stdio")
	return cistatmcp.NewServer(version, status).Run()
}

func runCacheClear(ctx context.Context, opts config.LoadOptions, out io.Writer) error {
	cfg, err := config.Load(opts)
	if err != nil {
		return err
	}
	if cfg.Cache == "" {
		return fmt.Errorf("%w: no cache configured (use --cache, CISTAT_CACHE or cache: in the config file)", provider.ErrConfiguration)
	}

	store, err := cache.Open(cfg.Cache)
	if err != nil {
		return err
	}
	defer store.Close()

	projects, err := store.Projects(ctx)
	if err != nil {
		return err
	}
	if err := store.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "Cleared %d cached projects from %s\n", len(projects), cfg.Cache)
	return nil
}

func runEvents(ctx context.Context, opts config.LoadOptions, out io.Writer) error {
	cfg, err := config.Load(opts)
	if err != nil {
		return err
	}
	if len(cfg.Brokers) == 0 {
		return fmt.Errorf("%w: no brokers configured (use --notify-brokers or CISTAT_BROKERS)", provider.ErrConfiguration)
	}

	log := logger.NewConsoleLogger(cfg.Verbose)
	b, err := broker.New(cfg.Brokers, log)
	if err != nil {
		return err
	}
	defer b.Close()

	events, err := notify.Subscribe(ctx, b, cfg.NotifyTopic, log)
	if err != nil {
		return err
	}
	log.Debug("listening on %s", cfg.NotifyTopic)
	return printEvents(events, out)
}

// printEvents writes one line per transition until events is closed.
func printEvents(events <-chan notify.TransitionEvent, out io.Writer) error {
	for ev := range events {
		if _, err := fmt.Fprintf(out, "%s  %s  %s\n", ev.At.Local().Format(time.DateTime), ev.Project, ev); err != nil {
			return err
		}
	}
	return nil
}
