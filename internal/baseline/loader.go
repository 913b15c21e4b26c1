package baseline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roadmap-cli/roadmap/internal/types"
)

// Source tells where a loaded baseline came from.
type Source string

const (
	SourceNone        Source = ""
	SourceCache       Source = "cache"
	SourceIncremental Source = "incremental"
	SourceHistory     Source = "history"
	SourceEnforced    Source = "enforced"
)

// FileLister lists issue file paths, active and archived.
type FileLister interface {
	Files(ctx context.Context) ([]string, error)
}

// Result is the outcome of a baseline load. State is nil when no baseline
// could be found or reconstructed.
type Result struct {
	State  *types.SyncState
	Source Source
	Errors []*types.IssueError
}

// Loader resolves the baseline for a sync: cache, then incremental refresh,
// then full reconstruction from history.
type Loader struct {
	Builder *Builder
	Cache   Cache
	Meta    Meta
	Files   FileLister
	Logger  *slog.Logger
	Now     func() time.Time
}

func (l *Loader) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func (l *Loader) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// Load returns the baseline for backend. In dry-run mode the cache is never
// written.
func (l *Loader) Load(ctx context.Context, backend string, dryRun bool) (*Result, error) {
	lastSync, synced, err := l.Meta.LastSync(ctx, backend)
	if err != nil {
		l.logger().Warn("ignoring unreadable sync metadata", "error", err)
		synced = false
	}

	cached, err := l.Cache.Get(ctx)
	if err != nil {
		l.logger().Warn("ignoring unreadable baseline cache", "error", err)
		cached = nil
	}
	if cached != nil && cached.Backend != "" && cached.Backend != backend {
		l.logger().Debug("baseline cache belongs to another backend", "cached", cached.Backend, "backend", backend)
		cached = nil
	}

	switch {
	case !synced && cached == nil:
		return &Result{Source: SourceNone}, nil
	case !synced:
		lastSync = cached.LastSync
	case cached != nil && !cached.LastSync.Equal(lastSync):
		l.logger().Debug("baseline cache predates last sync", "cached", cached.LastSync, "last_sync", lastSync)
		cached = nil
	}

	if cached != nil && !ShouldRebuildAll(cached, l.now().Sub(cached.SavedAt), l.Builder.MaxAge) {
		res, err := l.incremental(ctx, cached, dryRun)
		if err == nil {
			return res, nil
		}
		l.logger().Warn("incremental baseline refresh failed, rebuilding", "error", err)
	}

	res, err := l.rebuild(ctx, backend, lastSync, cached, dryRun)
	if err == nil {
		return res, nil
	}
	if cached != nil {
		l.logger().Warn("baseline rebuild failed, using cached baseline", "error", err)
		return &Result{State: cached, Source: SourceCache}, nil
	}
	l.logger().Warn("baseline rebuild failed", "error", err)
	return &Result{Source: SourceNone}, nil
}

func (l *Loader) incremental(ctx context.Context, cached *types.SyncState, dryRun bool) (*Result, error) {
	changed, ok := l.Builder.ChangedFiles(ctx, cached.Ref)
	if !ok {
		return nil, errors.New("change detection unavailable")
	}
	files, err := l.Files.Files(ctx)
	if err != nil {
		return nil, fmt.Errorf("list issue files: %w", err)
	}

	toUpdate, toRemove := IncrementalUpdate(files, changed, cached.Issues)
	if len(toUpdate) == 0 && len(toRemove) == 0 {
		return &Result{State: cached, Source: SourceCache}, nil
	}

	entries, failed, err := l.Builder.Reconstruct(ctx, cached.LastSync, toUpdate)
	if err != nil {
		return nil, err
	}

	state := cached.Clone()
	for _, id := range toRemove {
		delete(state.Issues, id)
	}
	mergeEntries(state, entries)
	l.refresh(ctx, state, dryRun)

	l.logger().Debug("baseline refreshed incrementally", "rebuilt", len(toUpdate), "removed", len(toRemove))
	return &Result{State: state, Source: SourceIncremental, Errors: failed}, nil
}

func (l *Loader) rebuild(ctx context.Context, backend string, at time.Time, cached *types.SyncState, dryRun bool) (*Result, error) {
	files, err := l.Files.Files(ctx)
	if err != nil {
		return nil, fmt.Errorf("list issue files: %w", err)
	}
	all := FilesToUpdate(files, nil, nil)

	entries, failed, err := l.Builder.Reconstruct(ctx, at, all)
	if err != nil {
		return nil, err
	}

	state := types.NewSyncState(backend, at)
	if cached != nil {
		// Cached snapshot entries win; gaps in history keep what was cached.
		for id, entry := range cached.Issues {
			if _, present := all[id]; !present {
				continue
			}
			if _, rebuilt := entries[id]; !rebuilt || entry.Origin == types.OriginSnapshot {
				state.Issues[id] = entry
			}
		}
	}
	for id, entry := range entries {
		if _, ok := state.Issues[id]; !ok {
			state.Issues[id] = entry
		}
	}
	if len(all) > 0 && state.Len() == 0 {
		// Issue files exist but none resolved at the sync time: this is not
		// a baseline, and caching it would skip enforcement on later runs.
		l.logger().Warn("history holds no issue at last sync", "at", at, "files", len(all))
		return &Result{Source: SourceNone, Errors: failed}, nil
	}
	l.refresh(ctx, state, dryRun)

	l.logger().Debug("baseline rebuilt from history", "issues", state.Len(), "at", at)
	return &Result{State: state, Source: SourceHistory, Errors: failed}, nil
}

// RebuildAt reconstructs the baseline as of at, ignoring the cache. State
// is nil when no issue file existed at that time.
func (l *Loader) RebuildAt(ctx context.Context, backend string, at time.Time) (*Result, error) {
	return l.rebuild(ctx, backend, at, nil, true)
}

// Save replaces the cached baseline and records the sync time.
func (l *Loader) Save(ctx context.Context, state *types.SyncState) error {
	if state.Ref == "" {
		if head, err := l.Builder.History.HeadRef(ctx); err == nil {
			state.Ref = head
		}
	}
	state.SavedAt = l.now()
	cacheErr := l.Cache.Save(ctx, state)
	metaErr := l.Meta.SetLastSync(ctx, state.Backend, state.LastSync)
	return errors.Join(cacheErr, metaErr)
}

// refresh stamps a rebuilt state with the current HEAD and writes it back.
func (l *Loader) refresh(ctx context.Context, state *types.SyncState, dryRun bool) {
	state.Ref = ""
	if head, err := l.Builder.History.HeadRef(ctx); err == nil {
		state.Ref = head
	}
	state.SavedAt = l.now()
	if dryRun {
		return
	}
	if err := l.Cache.Save(ctx, state); err != nil {
		l.logger().Warn("failed to update baseline cache", "error", err)
	}
}

// mergeEntries folds rebuilt entries into state. Snapshot entries are
// authoritative for their sync and are never replaced by history.
func mergeEntries(state *types.SyncState, rebuilt map[string]types.IssueBaseState) {
	for id, entry := range rebuilt {
		if cur, ok := state.Issues[id]; ok && cur.Origin == types.OriginSnapshot {
			continue
		}
		state.Issues[id] = entry
	}
}
