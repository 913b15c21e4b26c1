package tracker

import (
	"context"

	"github.com/roadmap-cli/roadmap/internal/baseline"
	"github.com/roadmap-cli/roadmap/internal/types"
)

// SyncBackend is implemented by each remote tracker integration.
type SyncBackend interface {
	// Name returns the lowercase identifier (e.g. "github"). It keys the
	// baseline cache and sync metadata.
	Name() string

	// Authenticate verifies credentials and connectivity.
	Authenticate(ctx context.Context) error

	// GetIssues returns every remote issue keyed by local issue id.
	GetIssues(ctx context.Context) (map[string]*types.RemoteIssue, error)

	// PushIssue creates or updates the remote copy of issue.
	PushIssue(ctx context.Context, issue *types.Issue) error

	// PushIssues pushes a batch. Per-issue failures are collected in the
	// result rather than aborting the batch.
	PushIssues(ctx context.Context, issues []*types.Issue) PushResult

	// PullIssue copies the remote issue with the given id into the local store.
	PullIssue(ctx context.Context, id string) error
}

// BaselineProvider loads and persists the sync baseline. baseline.Loader
// implements it.
type BaselineProvider interface {
	Load(ctx context.Context, backend string, dryRun bool) (*baseline.Result, error)
	Save(ctx context.Context, state *types.SyncState) error
}

// BaselineChoice is an issue present on both sides with differing values
// and no baseline entry.
type BaselineChoice struct {
	IssueID string
	Local   *types.Issue
	Remote  *types.RemoteIssue
}

// BaselineChooser asks which side's version of each issue should seed the
// baseline. Returned values are BaselineLocal or BaselineRemote; ids left
// out default to local.
type BaselineChooser interface {
	ChooseBaseline(ctx context.Context, choices []BaselineChoice) (map[string]types.BaselineStrategy, error)
}

var _ BaselineProvider = (*baseline.Loader)(nil)

// PushAll pushes issues one at a time through b.PushIssue. Backends without
// a native batch call use it to implement PushIssues.
func PushAll(ctx context.Context, b SyncBackend, issues []*types.Issue) PushResult {
	var res PushResult
	for _, issue := range issues {
		if err := ctx.Err(); err != nil {
			res.Errors = append(res.Errors, types.NewIssueError(issue.ID, types.StagePush, err))
			continue
		}
		if err := b.PushIssue(ctx, issue); err != nil {
			res.Errors = append(res.Errors, types.NewIssueError(issue.ID, types.StagePush, err))
			continue
		}
		res.Pushed = append(res.Pushed, issue.ID)
	}
	return res
}
