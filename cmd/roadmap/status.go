package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roadmap-cli/roadmap/internal/config"
	"github.com/roadmap-cli/roadmap/internal/tracker"
	"github.com/roadmap-cli/roadmap/internal/types"
	"github.com/roadmap-cli/roadmap/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync configuration and local issue counts",
	RunE:  runStatus,
}

var statusJSON bool

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(statusCmd)
}

// statusInfo is the status command's JSON shape.
type statusInfo struct {
	Backend    string         `json:"backend"`
	Registered bool           `json:"registered"`
	Config     string         `json:"config,omitempty"`
	IssuesDir  string         `json:"issues_dir"`
	LastSync   *time.Time     `json:"last_sync,omitempty"`
	CacheAge   string         `json:"cache_age,omitempty"`
	CachedIDs  int            `json:"cached_issues"`
	Issues     int            `json:"issues"`
	Archived   int            `json:"archived"`
	ByStatus   map[string]int `json:"by_status"`
	Unlinked   int            `json:"unlinked"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := rootCtx
	a, err := openApp(ctx)
	if err != nil {
		return err
	}

	info := statusInfo{
		Backend:    a.backend,
		Registered: tracker.Get(a.backend) != nil,
		Config:     config.ConfigFileUsed(),
		IssuesDir:  a.paths.IssuesDir,
		ByStatus:   make(map[string]int),
	}

	if last, ok, err := a.meta.LastSync(ctx, a.backend); err != nil {
		logger.Warn("unreadable sync metadata", "error", err)
	} else if ok {
		info.LastSync = &last
	}
	if state, err := a.cache.Get(ctx); err != nil {
		logger.Warn("unreadable baseline cache", "error", err)
	} else if state != nil {
		info.CacheAge = time.Since(state.SavedAt).Round(time.Second).String()
		info.CachedIDs = state.Len()
	}

	issues, err := a.store.ListIncludingArchived(ctx)
	if err != nil {
		return err
	}
	for _, issue := range issues {
		if issue.Archived {
			info.Archived++
		} else {
			info.Issues++
		}
		status := issue.Status
		if status == "" {
			status = types.StatusTodo
		}
		info.ByStatus[string(status)]++
		if issue.RemoteRef == "" {
			info.Unlinked++
		}
	}

	if statusJSON {
		return writeJSON(info)
	}
	printStatus(info)
	return nil
}

func printStatus(info statusInfo) {
	fmt.Println(ui.RenderCategory("Status"))
	fmt.Println(ui.RenderSeparator())

	backend := info.Backend
	if !info.Registered {
		backend += " " + ui.RenderFail("(unknown backend)")
	}
	fmt.Printf("%sbackend:    %s\n", ui.Indent, backend)
	if info.Config != "" {
		fmt.Printf("%sconfig:     %s\n", ui.Indent, info.Config)
	}
	fmt.Printf("%sissues dir: %s\n", ui.Indent, info.IssuesDir)
	if info.LastSync != nil {
		fmt.Printf("%slast sync:  %s\n", ui.Indent, info.LastSync.Local().Format("2006-01-02 15:04:05"))
	} else {
		fmt.Printf("%slast sync:  %s\n", ui.Indent, ui.RenderWarn("never"))
	}
	if info.CacheAge != "" {
		fmt.Printf("%sbaseline:   %d issues, %s old\n", ui.Indent, info.CachedIDs, info.CacheAge)
	} else {
		fmt.Printf("%sbaseline:   %s\n", ui.Indent, ui.RenderMuted("not cached"))
	}
	fmt.Println()

	fmt.Printf("%sissues: %d active, %d archived, %d not yet synced\n", ui.Indent, info.Issues, info.Archived, info.Unlinked)
	for _, s := range types.AllStatuses() {
		if n := info.ByStatus[string(s)]; n > 0 {
			fmt.Printf("%s%s%-12s %d\n", ui.Indent, ui.Indent, s, n)
		}
	}
}
