package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roadmap-cli/roadmap/internal/debug"
	"github.com/roadmap-cli/roadmap/internal/timeparsing"
	"github.com/roadmap-cli/roadmap/internal/ui"
)

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Inspect or reset the sync baseline",
}

var baselineShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the cached baseline",
	RunE:  runBaselineShow,
}

var baselineClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the cached baseline",
	Long: `Delete the cached baseline. The next sync rebuilds it from git history
as of the last sync time, or fails if no sync has happened yet.`,
	RunE: runBaselineClear,
}

var baselineRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the baseline from git history",
	Long: `Reconstruct the baseline from the issue files as committed at a point in time
and store it as the last sync.

--at accepts RFC3339 ("2024-03-01T09:00:00Z"), a date ("2024-03-01"),
a compact offset ("2d", "-3h") or natural language ("yesterday").
Without --at the last recorded sync time is used.`,
	RunE: runBaselineRebuild,
}

var (
	baselineJSON   bool
	baselineAt     string
	baselineDryRun bool
)

func init() {
	baselineShowCmd.Flags().BoolVar(&baselineJSON, "json", false, "Print the baseline as JSON")
	baselineRebuildCmd.Flags().StringVar(&baselineAt, "at", "", "Point in time to rebuild at")
	baselineRebuildCmd.Flags().BoolVar(&baselineDryRun, "dry-run", false, "Show the rebuilt baseline without saving it")
	baselineRebuildCmd.Flags().BoolVar(&baselineJSON, "json", false, "Print the rebuilt baseline as JSON")

	baselineCmd.AddCommand(baselineShowCmd, baselineClearCmd, baselineRebuildCmd)
	rootCmd.AddCommand(baselineCmd)
}

func runBaselineShow(cmd *cobra.Command, args []string) error {
	a, err := openApp(rootCtx)
	if err != nil {
		return err
	}
	state, err := a.cache.Get(rootCtx)
	if err != nil {
		return err
	}
	if baselineJSON {
		return writeJSON(state)
	}
	ui.RenderBaseline(os.Stdout, state)
	return nil
}

func runBaselineClear(cmd *cobra.Command, args []string) error {
	a, err := openApp(rootCtx)
	if err != nil {
		return err
	}
	return a.withLock(rootCtx, func() error {
		if err := a.cache.Clear(rootCtx); err != nil {
			return err
		}
		debug.PrintNormal("Baseline cache cleared\n")
		return nil
	})
}

func runBaselineRebuild(cmd *cobra.Command, args []string) error {
	a, err := openApp(rootCtx)
	if err != nil {
		return err
	}

	at, err := rebuildTime(a, time.Now())
	if err != nil {
		return err
	}

	return a.withLock(rootCtx, func() error {
		res, err := a.loader.RebuildAt(rootCtx, a.backend, at)
		if err != nil {
			return err
		}
		for _, e := range res.Errors {
			logger.Warn("skipped issue", "issue", e.IssueID, "error", e.Message())
		}
		if res.State == nil {
			return fmt.Errorf("no issue files in history at %s", at.Format(time.RFC3339))
		}
		if !baselineDryRun {
			if err := a.loader.Save(rootCtx, res.State); err != nil {
				return err
			}
		}
		if baselineJSON {
			return writeJSON(res.State)
		}
		ui.RenderBaseline(os.Stdout, res.State)
		return nil
	})
}

// rebuildTime resolves --at, defaulting to the recorded last sync.
func rebuildTime(a *app, now time.Time) (time.Time, error) {
	if baselineAt != "" {
		at, err := timeparsing.ParsePast(baselineAt, now)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --at: %w", err)
		}
		return at, nil
	}
	last, ok, err := a.meta.LastSync(rootCtx, a.backend)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, errors.New("no recorded sync; pass --at")
	}
	return last, nil
}

func writeJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
