package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"reposync/pkg/config"
	"reposync/pkg/github"
)

// newAPIClient builds the provider used by sync and validate
var newAPIClient = func(cfg *config.Config) (github.APIClient, error) {
	return github.NewClientFromConfig(cfg)
}

// rateLimitReporter is implemented by providers that pace their API calls
type rateLimitReporter interface {
	RateLimitStats() github.RateLimiterStats
}

var syncCmd = newSyncCmd()

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Open pull requests that sync files to destination repositories",
		Long: `Read the sync configuration from the source repository and, for every sync
group, open a pull request on each destination repository carrying the
group's files.

The source repository, commit and run are taken from the GitHub Actions
environment (GITHUB_REPOSITORY, GITHUB_SHA, GITHUB_RUN_ID, GITHUB_SERVER_URL)
and can be overridden with flags.

A destination that already has an open sync branch is skipped, so re-running
on every push is safe.

Examples:
  # Inside a GitHub Actions workflow
  reposync sync

  # Preview which pull requests would be opened
  reposync sync --dry-run

  # Stop at the first failing sync group
  reposync sync --on-error fail-fast

  # Run outside of Actions
  reposync sync --repository acme/templates --sha 4f2c1e9`,
		Args: cobra.NoArgs,
		RunE: runSync,
	}

	flags := cmd.Flags()
	flags.String("config-file", "", "Path of the sync configuration inside the source repository (default .github/sync.yml)")
	flags.Bool("dry-run", false, "Log the pull requests that would be opened without calling GitHub")
	flags.String("on-error", "", "What to do when a sync group fails: continue or fail-fast (default continue)")
	flags.String("repository", "", "Source repository as owner/repo (env GITHUB_REPOSITORY)")
	flags.String("sha", "", "Source commit the files are read at (env GITHUB_SHA)")
	flags.String("run-id", "", "Workflow run that triggered the sync (env GITHUB_RUN_ID)")
	flags.String("server-url", "", "GitHub server URL used for links (env GITHUB_SERVER_URL)")

	return cmd
}

// bindRunFlags resolves run settings from flags, then the Actions
// environment, then the tool configuration.
func bindRunFlags(cmd *cobra.Command, cfg *config.Config) (*viper.Viper, error) {
	v := viper.New()

	bindings := []struct {
		key  string
		flag string
		env  string
	}{
		{key: "config_file", flag: "config-file"},
		{key: "dry_run", flag: "dry-run"},
		{key: "on_error", flag: "on-error"},
		{key: "repository", flag: "repository", env: "GITHUB_REPOSITORY"},
		{key: "sha", flag: "sha", env: "GITHUB_SHA"},
		{key: "run_id", flag: "run-id", env: "GITHUB_RUN_ID"},
		{key: "server_url", flag: "server-url", env: "GITHUB_SERVER_URL"},
	}

	for _, b := range bindings {
		if err := v.BindPFlag(b.key, cmd.Flags().Lookup(b.flag)); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", b.flag, err)
		}
		if b.env != "" {
			if err := v.BindEnv(b.key, b.env); err != nil {
				return nil, fmt.Errorf("failed to bind env %s: %w", b.env, err)
			}
		}
	}

	v.SetDefault("config_file", cfg.Sync.ConfigFile)
	v.SetDefault("on_error", cfg.Sync.OnError)

	return v, nil
}

// buildRunContext turns resolved run settings into a validated RunContext
func buildRunContext(v *viper.Viper) (github.RunContext, error) {
	repository := v.GetString("repository")
	if repository == "" {
		return github.RunContext{}, errors.New("source repository not specified: set GITHUB_REPOSITORY or use --repository")
	}

	source, err := github.ParseRepoRef(repository, "")
	if err != nil {
		return github.RunContext{}, fmt.Errorf("invalid source repository: %w", err)
	}

	policy, err := github.ParseFailurePolicy(v.GetString("on_error"))
	if err != nil {
		return github.RunContext{}, err
	}

	run := github.RunContext{
		Source:        source,
		SHA:           v.GetString("sha"),
		RunID:         v.GetString("run_id"),
		ServerURL:     v.GetString("server_url"),
		ConfigFile:    v.GetString("config_file"),
		DryRun:        v.GetBool("dry_run"),
		FailurePolicy: policy,
	}

	return run, run.Validate()
}

func runSync(cmd *cobra.Command, _ []string) error {
	cfg := currentConfig()
	log := currentLogger()

	v, err := bindRunFlags(cmd, cfg)
	if err != nil {
		return err
	}

	run, err := buildRunContext(v)
	if err != nil {
		return err
	}

	client, err := newAPIClient(cfg)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Authentication failed: %v\n\n", err)
		fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", github.GetAuthInstructions())
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	if run.DryRun {
		fmt.Fprintf(out, "🔍 Dry-run mode: no pull requests will be opened\n")
	}
	fmt.Fprintf(out, "🔄 Syncing files from %s (%s)\n", run.Source, v.GetString("config_file"))

	result, err := github.NewSyncer(client, run, log).Run(ctx)
	if result != nil {
		displaySyncResult(out, result)
	}
	if reporter, ok := client.(rateLimitReporter); ok {
		displayRateLimit(out, reporter.RateLimitStats())
	}
	if err != nil {
		var syncErr *github.SyncError
		if errors.As(err, &syncErr) {
			displaySyncFailures(out, syncErr)
			if syncErr.IsPartialFailure() {
				return fmt.Errorf("partial failure: %d sync groups succeeded, %d failed", len(syncErr.Succeeded), len(syncErr.Failed))
			}
		}
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Fprintf(out, "\n✅ Sync completed\n")
	return nil
}

// displaySyncResult prints one line per destination followed by the totals
func displaySyncResult(out io.Writer, result *github.SyncResult) {
	if len(result.Results) > 0 {
		fmt.Fprintf(out, "\n📋 Destinations:\n")
	}

	for _, r := range result.Results {
		switch r.Outcome.Kind {
		case github.OutcomeCreated:
			fmt.Fprintf(out, "  ✅ [group %d] %s: pull request #%d %s\n", r.Group, r.Destination, r.Outcome.Number, r.Outcome.URL)
		case github.OutcomeAlreadyExists:
			fmt.Fprintf(out, "  ⏭️  [group %d] %s: sync branch already exists\n", r.Group, r.Destination)
		case github.OutcomeNoChanges:
			fmt.Fprintf(out, "  ✓ [group %d] %s: already up to date\n", r.Group, r.Destination)
		case github.OutcomeDryRun:
			fmt.Fprintf(out, "  🔍 [group %d] %s: would open a pull request\n", r.Group, r.Destination)
		}
	}

	s := result.Summary
	fmt.Fprintf(out, "\n📊 Summary: %d groups, %d destinations, %d created, %d already open, %d up to date",
		s.Groups, s.Destinations, s.Created, s.AlreadyExists, s.NoChanges)
	if s.DryRun > 0 {
		fmt.Fprintf(out, ", %d dry-run", s.DryRun)
	}
	if s.FailedGroups > 0 {
		fmt.Fprintf(out, ", %d failed groups", s.FailedGroups)
	}
	fmt.Fprintln(out)
}

// displayRateLimit prints how much of the API budget the run left and how
// long calls were held back
func displayRateLimit(out io.Writer, stats github.RateLimiterStats) {
	fmt.Fprintf(out, "⏱️  Rate limit: %d requests remaining", stats.RemainingRequests)
	if stats.TotalWaits > 0 {
		fmt.Fprintf(out, ", %d calls delayed for %s", stats.TotalWaits, stats.TotalDelayTime.Round(time.Millisecond))
	}
	fmt.Fprintln(out)
}

func displaySyncFailures(out io.Writer, syncErr *github.SyncError) {
	fmt.Fprintf(out, "\n❌ %d sync groups failed:\n", len(syncErr.Failed))
	for _, f := range syncErr.Failed {
		hint := ""
		var ghErr *github.Error
		if errors.As(f.Err, &ghErr) && ghErr.IsRetryable() {
			hint = " (transient, re-running the workflow may succeed)"
		}

		if f.Destination.IsZero() {
			fmt.Fprintf(out, "  • group %d: %v%s\n", f.Group, f.Err, hint)
			continue
		}
		fmt.Fprintf(out, "  • group %d (%s): %v%s\n", f.Group, f.Destination, f.Err, hint)
	}
}

func currentConfig() *config.Config {
	if appConfig == nil {
		return config.DefaultConfig()
	}
	return appConfig
}

func currentLogger() *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
