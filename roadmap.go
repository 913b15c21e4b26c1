// Package roadmap exposes the issue store and sync engine for programs that
// embed roadmap instead of shelling out to the CLI.
//
// Most callers need three things: a Storage over an issues directory, a
// SyncBackend (see NewBackend), and an Engine to run syncs between them.
package roadmap

import (
	"context"
	"path/filepath"

	"github.com/roadmap-cli/roadmap/internal/baseline"
	"github.com/roadmap-cli/roadmap/internal/git"
	"github.com/roadmap-cli/roadmap/internal/storage"
	"github.com/roadmap-cli/roadmap/internal/storage/files"
	"github.com/roadmap-cli/roadmap/internal/tracker"
	"github.com/roadmap-cli/roadmap/internal/types"

	// Sync backends register themselves.
	_ "github.com/roadmap-cli/roadmap/internal/tracker/adapters/github"
)

// Core types
type (
	Issue       = types.Issue
	RemoteIssue = types.RemoteIssue
	Status      = types.Status
	SyncState   = types.SyncState
	SyncReport  = tracker.SyncReport
	SyncOptions = tracker.Options
	SyncBackend = tracker.SyncBackend
	Engine      = tracker.Engine
)

// Status constants
const (
	StatusTodo       = types.StatusTodo
	StatusInProgress = types.StatusInProgress
	StatusBlocked    = types.StatusBlocked
	StatusReview     = types.StatusReview
	StatusDone       = types.StatusDone
)

// Conflict strategies
const (
	KeepLocal  = types.ConflictKeepLocal
	KeepRemote = types.ConflictKeepRemote
	AutoMerge  = types.ConflictAutoMerge
)

// Storage is the local issue store.
type Storage = storage.Storage

// OpenStore opens a markdown issue directory. archiveDir may be empty.
func OpenStore(issuesDir, archiveDir string) (Storage, error) {
	return files.New(issuesDir, archiveDir, nil)
}

// NewBackend creates a registered backend ("github"). lookup resolves
// fully qualified keys such as "github.token"; unset keys fall back to
// environment variables (GITHUB_TOKEN).
func NewBackend(name string, lookup func(key string) string, store Storage) (SyncBackend, error) {
	return tracker.NewBackend(name, tracker.NewConfig(name, tracker.ConfigSourceFunc(lookup)), store)
}

// NewEngine wires a sync engine that keeps its baseline under stateDir and
// reconstructs missing baselines from the git history of issuesDir.
func NewEngine(ctx context.Context, backend SyncBackend, issuesDir, stateDir string) (*Engine, error) {
	store, err := files.New(issuesDir, "", nil)
	if err != nil {
		return nil, err
	}
	history, err := git.Open(ctx, store.Dir(), 0)
	if err != nil {
		return nil, err
	}
	loader := &baseline.Loader{
		Builder: &baseline.Builder{History: history, Parser: store, Dir: store.Dir(), MaxAge: baseline.DefaultMaxAge},
		Cache:   baseline.NewFileCache(filepath.Join(stateDir, "baseline.json")),
		Meta:    baseline.NewFileMeta(filepath.Join(stateDir, "sync.json")),
		Files:   store,
	}
	return tracker.NewEngine(backend, store, loader), nil
}
