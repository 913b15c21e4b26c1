package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roadmap-cli/roadmap/internal/config"
	"github.com/roadmap-cli/roadmap/internal/debug"
	"github.com/roadmap-cli/roadmap/internal/tracker"
	"github.com/roadmap-cli/roadmap/internal/types"
	"github.com/roadmap-cli/roadmap/internal/ui"
	"github.com/roadmap-cli/roadmap/internal/watch"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync local issues with the remote tracker",
	Long: `Compare local issue files, remote issues and the last synced baseline,
then push local changes, pull remote changes and resolve conflicts.

The first sync needs a baseline. Pass --baseline to seed it:
  local        local files are the agreed state; remote differences are pulled
  remote       remote issues are the agreed state; local differences are pushed
  interactive  choose per issue (needs a terminal)

Conflict resolution defaults to sync.conflict_strategy (auto-merge).
Use --force-local or --force-remote to override it for one run.`,
	RunE: runSync,
}

var (
	syncDryRun      bool
	syncPushOnly    bool
	syncPullOnly    bool
	syncForceLocal  bool
	syncForceRemote bool
	syncBaseline    string
	syncInteractive bool
	syncJSON        bool
	syncWatch       bool
)

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Show what would change without writing anything")
	syncCmd.Flags().BoolVar(&syncPushOnly, "push-only", false, "Only push local changes")
	syncCmd.Flags().BoolVar(&syncPullOnly, "pull-only", false, "Only pull remote changes")
	syncCmd.Flags().BoolVar(&syncForceLocal, "force-local", false, "Resolve conflicts with the local version")
	syncCmd.Flags().BoolVar(&syncForceRemote, "force-remote", false, "Resolve conflicts with the remote version")
	syncCmd.Flags().StringVar(&syncBaseline, "baseline", "", "Seed a missing baseline: local, remote or interactive")
	syncCmd.Flags().BoolVar(&syncInteractive, "interactive", false, "Choose the baseline per issue when none exists")
	syncCmd.Flags().BoolVar(&syncJSON, "json", false, "Print the sync report as JSON")
	syncCmd.Flags().BoolVar(&syncWatch, "watch", false, "Sync again whenever issue files change")
	syncCmd.MarkFlagsMutuallyExclusive("push-only", "pull-only")
	syncCmd.MarkFlagsMutuallyExclusive("force-local", "force-remote")
	rootCmd.AddCommand(syncCmd)
}

// syncOptions builds engine options from flags and config. Flags win.
func syncOptions() tracker.Options {
	strategy := types.BaselineStrategy(syncBaseline)
	if syncBaseline == "" {
		strategy = config.GetBaselineStrategy()
	}
	return tracker.Options{
		DryRun:           syncDryRun,
		PushOnly:         syncPushOnly,
		PullOnly:         syncPullOnly,
		ForceLocal:       syncForceLocal,
		ForceRemote:      syncForceRemote,
		ConflictStrategy: config.GetConflictStrategy(),
		BaselineStrategy: strategy,
		Interactive:      syncInteractive,
		NoBaselinePolicy: config.GetNoBaselinePolicy(),
	}
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := rootCtx
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	backend, err := a.newBackend()
	if err != nil {
		return err
	}

	opts := syncOptions()
	engine := tracker.NewEngine(backend, a.store, a.loader)
	engine.Logger = logger
	engine.OnMessage = func(msg string) { debug.PrintNormal("%s\n", msg) }
	engine.OnWarning = func(msg string) { logger.Warn(msg) }
	if opts.Interactive || opts.BaselineStrategy == types.BaselineInteractive {
		if ui.IsInputTerminal() {
			engine.Chooser = formChooser{}
		} else {
			logger.Warn("stdin is not a terminal; interactive baseline falls back to local")
		}
	}

	if !syncWatch {
		return syncOnce(ctx, a, engine, opts)
	}

	if err := syncOnce(ctx, a, engine, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	w := watch.New(a.paths.IssuesDir)
	w.OnError = func(err error) { logger.Warn("watcher error", "error", err) }
	debug.PrintNormal("Watching %s for changes... (Press Ctrl+C to exit)\n", a.paths.IssuesDir)
	return w.Run(ctx, func(ctx context.Context) {
		if err := syncOnce(ctx, a, engine, opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	})
}

// syncOnce runs one sync under the lock and prints its report.
func syncOnce(ctx context.Context, a *app, engine *tracker.Engine, opts tracker.Options) error {
	var report *tracker.SyncReport
	err := a.withLock(ctx, func() error {
		report = engine.Sync(ctx, opts)
		return nil
	})
	if err != nil {
		return err
	}

	if syncJSON {
		if err := writeJSON(report); err != nil {
			return err
		}
	} else if !debug.IsQuiet() || report.Failed() || len(report.Errors) > 0 {
		ui.RenderSyncReport(os.Stdout, report)
	}

	switch {
	case report.Failed():
		err := report.Err
		if err == nil {
			err = errors.New(report.Error)
		}
		return &exitError{code: 2, err: err}
	case len(report.Errors) > 0:
		return &exitError{code: 1, err: fmt.Errorf("%d issues failed to sync", len(report.Errors))}
	}
	return nil
}
