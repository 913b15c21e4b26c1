// Package baseline builds, caches and reconstructs the sync baseline: the
// last agreed state of every issue.
//
// A baseline is loaded from the file cache when it is fresh, refreshed
// incrementally when only a few issue files changed since it was cached, and
// otherwise reconstructed from git history at the recorded last sync time.
package baseline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/roadmap-cli/roadmap/internal/git"
	"github.com/roadmap-cli/roadmap/internal/storage/files"
	"github.com/roadmap-cli/roadmap/internal/types"
)

// DefaultMaxAge is how long a cached baseline may be refreshed
// incrementally before a full rebuild is forced.
const DefaultMaxAge = time.Hour

// History is the git history the builder reads from.
type History interface {
	HeadRef(ctx context.Context) (string, error)
	CommitAt(ctx context.Context, t time.Time) (string, error)
	ChangedFilesSince(ctx context.Context, ref, path string) (git.PathSet, error)
	FileContentAtRef(ctx context.Context, path, ref string) ([]byte, error)
}

// Parser turns historical file content into an issue.
type Parser interface {
	ParseIssue(content []byte, path string) (*types.Issue, error)
}

// IssueIDFromPath derives the issue id from an issue file name. Files that
// do not follow the naming convention are skipped.
func IssueIDFromPath(path string) (string, bool) {
	return files.IssueIDFromFilename(filepath.Base(path))
}

// ShouldRebuildAll reports whether a cached baseline is unusable for an
// incremental refresh: there is none, or it is older than maxAge.
func ShouldRebuildAll(cached *types.SyncState, age, maxAge time.Duration) bool {
	if cached == nil {
		return true
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return age > maxAge
}

// FilesToUpdate selects the issues whose baseline entry must be rebuilt:
// files that changed, plus issues the cache has never seen.
func FilesToUpdate(allFiles []string, changed git.PathSet, cached map[string]types.IssueBaseState) map[string]string {
	out := make(map[string]string)
	for _, path := range allFiles {
		id, ok := IssueIDFromPath(path)
		if !ok {
			continue
		}
		_, known := cached[id]
		if changed.Has(path) || !known {
			out[id] = path
		}
	}
	return out
}

// IncrementalUpdate returns the issues to rebuild and the cached ids whose
// files no longer exist.
func IncrementalUpdate(allFiles []string, changed git.PathSet, cached map[string]types.IssueBaseState) (map[string]string, []string) {
	toUpdate := FilesToUpdate(allFiles, changed, cached)

	present := make(map[string]struct{}, len(allFiles))
	for _, path := range allFiles {
		if id, ok := IssueIDFromPath(path); ok {
			present[id] = struct{}{}
		}
	}
	var toRemove []string
	for id := range cached {
		if _, ok := present[id]; !ok {
			toRemove = append(toRemove, id)
		}
	}
	return toUpdate, toRemove
}

// Builder reconstructs baseline entries from git history.
type Builder struct {
	History History
	Parser  Parser
	Dir     string // issues root, limits change detection
	MaxAge  time.Duration
	Logger  *slog.Logger
}

func (b *Builder) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

// ChangedFiles returns the issue files changed since ref. ok is false when
// the lookup failed, in which case callers must rebuild everything.
func (b *Builder) ChangedFiles(ctx context.Context, ref string) (git.PathSet, bool) {
	if ref == "" {
		return git.PathSet{}, false
	}
	changed, err := b.History.ChangedFilesSince(ctx, ref, b.Dir)
	if err != nil {
		b.logger().Warn("change detection failed, rebuilding baseline", "ref", ref, "error", err)
		return git.PathSet{}, false
	}
	return changed, true
}

// Reconstruct rebuilds the baseline entries of files (id -> path) as they
// were at time at. Issues with no version at that time are omitted; issues
// that fail to load are skipped and reported. The returned error is only
// set when the history itself is unavailable.
func (b *Builder) Reconstruct(ctx context.Context, at time.Time, files map[string]string) (map[string]types.IssueBaseState, []*types.IssueError, error) {
	entries := make(map[string]types.IssueBaseState, len(files))
	if len(files) == 0 {
		return entries, nil, nil
	}

	commit, err := b.History.CommitAt(ctx, at)
	if errors.Is(err, git.ErrNotFound) {
		// history starts after at: nothing existed yet
		return entries, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("history lookup at %s: %w", at.Format(time.RFC3339), err)
	}

	var failed []*types.IssueError
	for id, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		issue, err := b.issueAt(ctx, path, commit)
		if errors.Is(err, git.ErrNotFound) {
			continue
		}
		if err != nil {
			b.logger().Warn("skipping issue in baseline rebuild", "issue", id, "error", err)
			failed = append(failed, types.NewIssueError(id, types.StageBaseline, err))
			continue
		}
		if issue.ID != id {
			err := fmt.Errorf("file %s holds issue %q", filepath.Base(path), issue.ID)
			failed = append(failed, types.NewIssueError(id, types.StageBaseline, err))
			continue
		}
		entries[id] = types.BaseStateFromIssue(issue, at, types.OriginHistory)
	}
	return entries, failed, nil
}

func (b *Builder) issueAt(ctx context.Context, path, commit string) (*types.Issue, error) {
	content, err := b.History.FileContentAtRef(ctx, path, commit)
	if err != nil {
		return nil, err
	}
	issue, err := b.Parser.ParseIssue(content, path)
	if err != nil {
		return nil, fmt.Errorf("parse %s at %s: %w", filepath.Base(path), shortRef(commit), err)
	}
	return issue, nil
}

func shortRef(ref string) string {
	if len(ref) > 8 {
		return ref[:8]
	}
	return ref
}
