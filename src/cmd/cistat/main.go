// Package main provides the cistat command: CI build status for the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	_ "golang.org/x/crypto/x509roots/fallback"

	_ "cistat/src/buildkite"
	_ "cistat/src/circleci"
	_ "cistat/src/githubactions"
	_ "cistat/src/gitlab"
	"cistat/src/provider"
)

var version = "dev"

// flags holds raw flag values; only flags the user changed become overrides.
type flags struct {
	configPath    string
	provider      string
	token         string
	watch         bool
	interval      string
	limit         int
	depth         int
	order         string
	groupBy       string
	trend         bool
	plain         bool
	align         string
	localBranches bool
	cache         string
	staleLimit    int
	brokers       string
	concurrency   int
	verbose       bool
}

func newRootCommand() *cobra.Command {
	f := &flags{}

	statusRun := func(cmd *cobra.Command, args []string) error {
		opts, err := f.loadOptions(cmd, args)
		if err != nil {
			return err
		}
		return runStatus(cmd.Context(), opts, cmd.OutOrStdout())
	}

	rootCmd := &cobra.Command{
		Use:   "cistat [selector...]",
		Short: "cistat - CI build status in your terminal",
		Long: `cistat fetches recent builds from CircleCI, GitHub Actions, Buildkite
and GitLab, and shows the latest status of every branch or pipeline.

Selectors have the form [provider:]slug[@branch,...], for example:
  circleci:gh/acme/api@main,release
  github:acme/web
  buildkite:acme/deploy@main
  gitlab:acme/platform/api

Tokens are read from CIRCLECI_TOKEN, GITHUB_TOKEN, BUILDKITE_API_TOKEN and
GITLAB_TOKEN, from the config file, or from --token.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          statusRun,
	}

	statusCmd := &cobra.Command{
		Use:   "status [selector...]",
		Short: "Show the latest build status (default command)",
		RunE:  statusRun,
	}

	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the build_status tool over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(cmd.Context(), f, cmd)
		},
	}

	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the build cache",
	}
	cacheClearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached build",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := f.loadOptions(cmd, nil)
			if err != nil {
				return err
			}
			opts.AllowNoProjects = true
			return runCacheClear(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}
	cacheCmd.AddCommand(cacheClearCmd)

	eventsCmd := &cobra.Command{
		Use:   "events",
		Short: "Print status transitions published by other cistat watchers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := f.loadOptions(cmd, nil)
			if err != nil {
				return err
			}
			opts.AllowNoProjects = true
			return runEvents(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	f.register(rootCmd)
	rootCmd.AddCommand(statusCmd, mcpCmd, cacheCmd, eventsCmd)
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", provider.WrapError(err))
	}
	os.Exit(exitCode(err))
}
