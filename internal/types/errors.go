package types

import (
	"encoding/json"
	"fmt"
)

// Stage names the sync step an IssueError happened in.
type Stage string

const (
	StageBaseline Stage = "baseline"
	StageResolve  Stage = "resolve"
	StageApply    Stage = "apply"
	StagePush     Stage = "push"
	StagePull     Stage = "pull"
)

// IssueError is a failure scoped to a single issue. It never aborts a sync;
// callers collect it and carry on with the remaining issues.
type IssueError struct {
	IssueID string `json:"issue_id"`
	Stage   Stage  `json:"stage"`
	Err     error  `json:"-"`
}

// NewIssueError wraps err for issue id at stage.
func NewIssueError(id string, stage Stage, err error) *IssueError {
	return &IssueError{IssueID: id, Stage: stage, Err: err}
}

func (e *IssueError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.IssueID, e.Err)
}

func (e *IssueError) Unwrap() error { return e.Err }

// Message returns the wrapped error text for reporting.
func (e *IssueError) Message() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// MarshalJSON includes the error text, which Err alone cannot carry.
func (e *IssueError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		IssueID string `json:"issue_id"`
		Stage   Stage  `json:"stage"`
		Error   string `json:"error"`
	}{e.IssueID, e.Stage, e.Message()})
}
