// Package tracker synchronizes the local issue store with a remote tracker.
//
// The Engine runs a staged pipeline: authenticate, fetch remote issues,
// load or enforce a baseline, classify every issue against it, resolve
// conflicts, apply changes and persist the new baseline. Backends plug in
// through the registry.
package tracker

import (
	"errors"
	"fmt"
	"time"

	"github.com/roadmap-cli/roadmap/internal/baseline"
	"github.com/roadmap-cli/roadmap/internal/merge"
	"github.com/roadmap-cli/roadmap/internal/types"
)

var (
	// ErrAuthentication wraps backend authentication failures.
	ErrAuthentication = errors.New("authentication failed")
	// ErrRemoteFetch wraps failures listing remote issues.
	ErrRemoteFetch = errors.New("failed to fetch remote issues")
	// ErrNoBaseline is returned when no baseline exists and none was requested.
	ErrNoBaseline = errors.New("no baseline: run with --baseline local|remote or --interactive to choose how the first sync starts")
	// ErrConflictingFlags is returned for mutually exclusive options.
	ErrConflictingFlags = errors.New("conflicting options")
	// ErrInternal wraps a panic recovered during a sync.
	ErrInternal = errors.New("internal error")
)

// Options configures one sync run.
type Options struct {
	DryRun   bool
	PushOnly bool
	PullOnly bool

	ForceLocal  bool
	ForceRemote bool
	// ConflictStrategy is the configured default, used when neither force
	// flag is set. Empty means auto-merge.
	ConflictStrategy types.ConflictStrategy

	BaselineStrategy types.BaselineStrategy
	Interactive      bool

	NoBaselinePolicy merge.NoBaselinePolicy
}

// ConflictStrategyFromFlags derives the conflict strategy from the force
// flags, falling back to def and then to auto-merge.
func ConflictStrategyFromFlags(forceLocal, forceRemote bool, def types.ConflictStrategy) (types.ConflictStrategy, error) {
	switch {
	case forceLocal && forceRemote:
		return "", fmt.Errorf("%w: --force-local and --force-remote", ErrConflictingFlags)
	case forceLocal:
		return types.ConflictKeepLocal, nil
	case forceRemote:
		return types.ConflictKeepRemote, nil
	case def.IsValid():
		return def, nil
	}
	return types.ConflictAutoMerge, nil
}

// Action is a planned or applied change to one issue.
type Action string

const (
	ActionPush         Action = "push"
	ActionPull         Action = "pull"
	ActionCreateRemote Action = "create-remote"
	ActionCreateLocal  Action = "create-local"
	ActionMerge        Action = "merge"
	ActionSkip         Action = "skip"
)

// Change describes what a sync does (or would do) to one issue.
type Change struct {
	IssueID   string        `json:"issue_id"`
	Class     merge.Class   `json:"class"`
	Action    Action        `json:"action"`
	Push      []types.Field `json:"push,omitempty"`
	Pull      []types.Field `json:"pull,omitempty"`
	Conflicts []types.Field `json:"conflicts,omitempty"`
}

// SyncReport is the outcome of a sync run. It is produced exactly once per
// run, including runs that fail.
type SyncReport struct {
	Backend string `json:"backend"`
	DryRun  bool   `json:"dry_run"`

	// Error is set when a stage failed fatally. Err holds the same failure
	// for errors.Is checks.
	Error string `json:"error,omitempty"`
	Err   error  `json:"-"`

	ConflictsDetected int `json:"conflicts_detected"`
	ConflictsResolved int `json:"conflicts_resolved"`
	IssuesUpdated     int `json:"issues_updated"`
	IssuesUpToDate    int `json:"issues_up_to_date"`
	Pushed            int `json:"pushed"`
	Pulled            int `json:"pulled"`
	Created           int `json:"created"`

	ConflictStrategy types.ConflictStrategy `json:"conflict_strategy,omitempty"`
	BaselineSource   baseline.Source        `json:"baseline_source,omitempty"`
	BaselineSaved    bool                   `json:"baseline_saved"`

	Changes  []Change            `json:"changes,omitempty"`
	Errors   []*types.IssueError `json:"errors,omitempty"`
	Warnings []string            `json:"warnings,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Failed reports whether a fatal stage failure ended the run.
func (r *SyncReport) Failed() bool {
	return r.Err != nil || r.Error != ""
}

func (r *SyncReport) fail(err error) *SyncReport {
	r.Err = err
	r.Error = err.Error()
	return r
}

// PushResult is the outcome of a batch push. Failing issues are reported
// individually; the rest of the batch still proceeds.
type PushResult struct {
	Pushed []string
	Errors []*types.IssueError
}
