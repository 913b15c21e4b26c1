package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/roadmap-cli/roadmap/internal/baseline"
	"github.com/roadmap-cli/roadmap/internal/config"
	"github.com/roadmap-cli/roadmap/internal/git"
	"github.com/roadmap-cli/roadmap/internal/lockfile"
	"github.com/roadmap-cli/roadmap/internal/storage"
	"github.com/roadmap-cli/roadmap/internal/storage/files"
	"github.com/roadmap-cli/roadmap/internal/telemetry"
	"github.com/roadmap-cli/roadmap/internal/tracker"
)

// app holds the collaborators every command shares.
type app struct {
	paths   config.Paths
	files   *files.Store
	store   storage.Storage
	cache   *baseline.FileCache
	meta    *baseline.FileMeta
	loader  *baseline.Loader
	backend string
}

// openApp resolves paths from config and builds the local side of a sync.
func openApp(ctx context.Context) (*app, error) {
	paths := config.GetPaths()
	for _, dir := range []string{paths.StateDir, paths.LockDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	fs, err := files.New(paths.IssuesDir, paths.ArchiveDir, logger)
	if err != nil {
		return nil, err
	}

	history := openHistory(ctx, paths.IssuesDir)
	cache := baseline.NewFileCache(paths.CachePath())
	meta := baseline.NewFileMeta(paths.MetaPath())

	a := &app{
		paths: paths,
		files: fs,
		store: telemetry.WrapStorage(fs),
		cache: cache,
		meta:  meta,
		loader: &baseline.Loader{
			Builder: &baseline.Builder{
				History: history,
				Parser:  fs,
				Dir:     fs.Dir(),
				MaxAge:  config.GetPositiveDuration("sync.cache_max_age", baseline.DefaultMaxAge),
				Logger:  logger,
			},
			Cache:  cache,
			Meta:   meta,
			Files:  fs,
			Logger: logger,
		},
		backend: config.GetSyncBackend(),
	}
	return a, nil
}

// newBackend creates the configured sync backend, instrumented.
func (a *app) newBackend() (tracker.SyncBackend, error) {
	cfg := tracker.NewConfig(a.backend, tracker.ConfigSourceFunc(config.GetString))
	b, err := tracker.NewBackend(a.backend, cfg, a.store)
	if err != nil {
		return nil, err
	}
	return tracker.WrapBackend(b), nil
}

// withLock runs fn under the exclusive sync lock.
func (a *app) withLock(ctx context.Context, fn func() error) error {
	timeout := config.GetPositiveDuration("sync.lock_timeout", lockfile.DefaultTimeout)
	return lockfile.WithExclusive(ctx, a.paths.LockDir, timeout, fn)
}

func openHistory(ctx context.Context, dir string) baseline.History {
	h, err := git.Open(ctx, dir, config.GetPositiveDuration("git.timeout", git.DefaultTimeout))
	if err != nil {
		logger.Debug("git history unavailable, baselines come from the cache only", "error", err)
		return noHistory{err: err}
	}
	return h
}

// noHistory stands in for git outside a work tree. Every query fails, so
// the loader falls back to the cache or reports no baseline.
type noHistory struct{ err error }

func (n noHistory) HeadRef(ctx context.Context) (string, error) { return "", n.err }

func (n noHistory) CommitAt(ctx context.Context, t time.Time) (string, error) { return "", n.err }

func (n noHistory) ChangedFilesSince(ctx context.Context, ref, path string) (git.PathSet, error) {
	return nil, n.err
}

func (n noHistory) FileContentAtRef(ctx context.Context, path, ref string) ([]byte, error) {
	return nil, n.err
}

// exitError carries a process exit code through cobra.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}
