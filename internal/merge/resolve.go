package merge

import (
	"errors"
	"fmt"

	"github.com/roadmap-cli/roadmap/internal/types"
)

// ErrMissingSide is returned when a record lacks the local or remote issue
// needed to resolve it.
var ErrMissingSide = errors.New("issue missing on one side")

// Resolver applies a ConflictStrategy to classified records.
type Resolver struct {
	Strategy types.ConflictStrategy
}

// NewResolver creates a resolver for strategy.
func NewResolver(strategy types.ConflictStrategy) *Resolver {
	return &Resolver{Strategy: strategy}
}

// ResolveBatch resolves every record and returns the merged issues in input
// order. Records that fail to resolve are left out of the result and
// reported instead. Inputs are never modified.
func (r *Resolver) ResolveBatch(records []Record) ([]*types.Issue, []*types.IssueError) {
	resolved := make([]*types.Issue, 0, len(records))
	var failed []*types.IssueError
	for _, rec := range records {
		issue, err := r.resolveSafe(rec)
		if err != nil {
			failed = append(failed, types.NewIssueError(rec.IssueID, types.StageResolve, err))
			continue
		}
		resolved = append(resolved, issue)
	}
	return resolved, failed
}

func (r *Resolver) resolveSafe(rec Record) (issue *types.Issue, err error) {
	defer func() {
		if p := recover(); p != nil {
			issue = nil
			err = fmt.Errorf("panic during resolution: %v", p)
		}
	}()
	return r.Resolve(rec)
}

// Resolve builds the merged issue for one record. Pull fields take the
// remote value, push fields keep the local value and conflicting fields
// follow the strategy.
func (r *Resolver) Resolve(rec Record) (*types.Issue, error) {
	if rec.Local == nil || rec.Remote == nil {
		return nil, ErrMissingSide
	}
	if len(rec.Conflicts) > 0 && !r.Strategy.IsValid() {
		return nil, fmt.Errorf("unknown conflict strategy %q", r.Strategy)
	}

	out := rec.Local.Clone()
	for _, f := range rec.Pull {
		out.SetField(f, rec.Remote.FieldValue(f))
	}
	for _, c := range rec.Conflicts {
		out.SetField(c.Field, r.resolveField(c, rec.Local, rec.Remote))
	}

	out.UpdatedAt = maxTime(rec.Local.UpdatedAt, rec.Remote.UpdatedAt)
	if out.RemoteRef == "" {
		out.RemoteRef = rec.Remote.RemoteRef
	}
	return out, nil
}

func (r *Resolver) resolveField(c FieldDelta, local *types.Issue, remote *types.RemoteIssue) types.Value {
	switch r.Strategy {
	case types.ConflictKeepLocal:
		return c.Local
	case types.ConflictKeepRemote:
		return c.Remote
	}

	if c.Field == types.FieldLabels {
		return types.Value{Labels: mergeLabels(c.Base.Labels, c.Local.Labels, c.Remote.Labels)}
	}
	return types.TextValue(mergeFieldByUpdatedAt(c.Base.Text, c.Local.Text, c.Remote.Text, local.UpdatedAt, remote.UpdatedAt))
}
