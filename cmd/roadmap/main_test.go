package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadmap-cli/roadmap/internal/baseline"
	"github.com/roadmap-cli/roadmap/internal/config"
	"github.com/roadmap-cli/roadmap/internal/git"
	"github.com/roadmap-cli/roadmap/internal/merge"
	"github.com/roadmap-cli/roadmap/internal/tracker"
	"github.com/roadmap-cli/roadmap/internal/types"
)

// setupProject creates a project with the given config in a temp dir and
// loads it.
func setupProject(t *testing.T, yaml string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, config.DirName), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.DirName, config.FileName), []byte(yaml), 0o644))
	t.Chdir(dir)

	config.ResetForTesting()
	t.Cleanup(config.ResetForTesting)
	require.NoError(t, config.Initialize())

	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	rootCtx = context.Background()
	return dir
}

func resetSyncFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		syncDryRun, syncPushOnly, syncPullOnly = false, false, false
		syncForceLocal, syncForceRemote = false, false
		syncBaseline, syncInteractive = "", false
	})
}

func TestSyncOptions(t *testing.T) {
	setupProject(t, "sync:\n  conflict_strategy: keep-remote\n  baseline_strategy: local\n  no_baseline_policy: local\n")
	resetSyncFlags(t)

	opts := syncOptions()
	assert.Equal(t, types.ConflictKeepRemote, opts.ConflictStrategy)
	assert.Equal(t, types.BaselineLocal, opts.BaselineStrategy)
	assert.Equal(t, merge.PreferLocal, opts.NoBaselinePolicy)

	syncBaseline = "remote"
	syncForceLocal = true
	syncDryRun = true
	opts = syncOptions()
	assert.Equal(t, types.BaselineRemote, opts.BaselineStrategy)
	assert.True(t, opts.ForceLocal)
	assert.True(t, opts.DryRun)
}

func TestOpenAppOutsideGit(t *testing.T) {
	dir := setupProject(t, "sync:\n  backend: github\n")

	a, err := openApp(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "github", a.backend)
	assert.DirExists(t, filepath.Join(dir, ".roadmap", "state"))

	res, err := a.loader.Load(context.Background(), "github", true)
	require.NoError(t, err)
	assert.Nil(t, res.State)
	assert.Equal(t, baseline.SourceNone, res.Source)
}

func TestNewBackendMissingConfig(t *testing.T) {
	setupProject(t, "sync:\n  backend: github\n")
	t.Setenv("GITHUB_OWNER", "")

	a, err := openApp(context.Background())
	require.NoError(t, err)
	_, err = a.newBackend()
	assert.ErrorContains(t, err, "github.owner")
}

func TestNewBackendUnknown(t *testing.T) {
	setupProject(t, "sync:\n  backend: jira\n")

	a, err := openApp(context.Background())
	require.NoError(t, err)
	_, err = a.newBackend()
	assert.ErrorContains(t, err, "available: [github]")
}

func TestRebuildTime(t *testing.T) {
	setupProject(t, "")
	a, err := openApp(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { baselineAt = "" })

	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	_, err = rebuildTime(a, now)
	assert.ErrorContains(t, err, "no recorded sync")

	last := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, a.meta.SetLastSync(context.Background(), "github", last))
	got, err := rebuildTime(a, now)
	require.NoError(t, err)
	assert.True(t, got.Equal(last))

	baselineAt = "2d"
	got, err = rebuildTime(a, now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-48*time.Hour), got)

	baselineAt = "next week"
	_, err = rebuildTime(a, now)
	assert.Error(t, err)
}

func TestNoHistory(t *testing.T) {
	h := noHistory{err: git.ErrNotRepository}
	ctx := context.Background()

	_, err := h.HeadRef(ctx)
	assert.ErrorIs(t, err, git.ErrNotRepository)
	_, err = h.CommitAt(ctx, time.Now())
	assert.ErrorIs(t, err, git.ErrNotRepository)
	_, err = h.ChangedFilesSince(ctx, "abc", ".")
	assert.ErrorIs(t, err, git.ErrNotRepository)
	_, err = h.FileContentAtRef(ctx, "a.md", "abc")
	assert.ErrorIs(t, err, git.ErrNotRepository)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 1, exitCode(errors.New("boom")))
	assert.Equal(t, 2, exitCode(&exitError{code: 2, err: errors.New("auth")}))
}

func TestDescribeChoice(t *testing.T) {
	local := &types.Issue{ID: "abc12345", Title: "Same", Status: types.StatusTodo, Labels: []string{"a"}}
	remote := &types.RemoteIssue{ID: "abc12345", Title: "Same", Status: types.StatusDone, Labels: []string{"a"}}

	got := describeChoice(tracker.BaselineChoice{IssueID: "abc12345", Local: local, Remote: remote})
	assert.Contains(t, got, "status")
	assert.Contains(t, got, "local:  todo")
	assert.Contains(t, got, "remote: done")
	assert.NotContains(t, got, "title")
}
