// Package types defines core data structures for the roadmap issue sync.
package types

import (
	"fmt"
	"strings"
	"time"
)

// Issue represents a work item as stored in the local issues directory.
type Issue struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Status    Status    `json:"status,omitempty"`
	Assignee  string    `json:"assignee,omitempty"`
	Milestone string    `json:"milestone,omitempty"`
	Labels    []string  `json:"labels,omitempty"`
	Content   string    `json:"content,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	RemoteRef string    `json:"remote_ref,omitempty"` // e.g. "github:owner/repo#12"
	Archived  bool      `json:"archived,omitempty"`
	Path      string    `json:"-"` // Internal: file the issue was loaded from
}

// Validate checks if the issue has valid field values
func (i *Issue) Validate() error {
	if i.ID == "" {
		return fmt.Errorf("id is required")
	}
	if strings.TrimSpace(i.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if len(i.Title) > 500 {
		return fmt.Errorf("title must be 500 characters or less (got %d)", len(i.Title))
	}
	if i.Status != "" && !i.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", i.Status)
	}
	return nil
}

// SetDefaults applies default values for fields omitted in issue files.
func (i *Issue) SetDefaults() {
	if i.Status == "" {
		i.Status = StatusTodo
	}
}

// Clone returns a deep copy of the issue.
func (i *Issue) Clone() *Issue {
	if i == nil {
		return nil
	}
	c := *i
	if i.Labels != nil {
		c.Labels = append([]string(nil), i.Labels...)
	}
	return &c
}

// FieldValue returns the current value of a tracked field.
func (i *Issue) FieldValue(f Field) Value {
	return fieldValue(f, i.Title, i.Status, i.Assignee, i.Milestone, i.Labels, i.Content)
}

// SetField overwrites a tracked field with v.
func (i *Issue) SetField(f Field, v Value) {
	switch f {
	case FieldTitle:
		i.Title = v.Text
	case FieldStatus:
		i.Status = Status(v.Text)
	case FieldAssignee:
		i.Assignee = v.Text
	case FieldMilestone:
		i.Milestone = v.Text
	case FieldLabels:
		i.Labels = v.Labels.Slice()
	case FieldContent:
		i.Content = v.Text
	}
}

// SameTrackedFields reports whether two issues agree on every tracked field.
func (i *Issue) SameTrackedFields(other *Issue) bool {
	for _, f := range TrackedFields {
		if !i.FieldValue(f).Equal(other.FieldValue(f)) {
			return false
		}
	}
	return true
}

// RemoteIssue is an issue as reported by a sync backend. ID is the local
// issue id the backend matched it to.
type RemoteIssue struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Status    Status    `json:"status,omitempty"`
	Assignee  string    `json:"assignee,omitempty"`
	Milestone string    `json:"milestone,omitempty"`
	Labels    []string  `json:"labels,omitempty"`
	Content   string    `json:"content,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	RemoteRef string    `json:"remote_ref,omitempty"`
	URL       string    `json:"url,omitempty"`
}

// FieldValue returns the current value of a tracked field.
func (r *RemoteIssue) FieldValue(f Field) Value {
	return fieldValue(f, r.Title, r.Status, r.Assignee, r.Milestone, r.Labels, r.Content)
}

// ToIssue converts the remote record into a local issue.
func (r *RemoteIssue) ToIssue() *Issue {
	return &Issue{
		ID:        r.ID,
		Title:     r.Title,
		Status:    r.Status,
		Assignee:  r.Assignee,
		Milestone: r.Milestone,
		Labels:    NewLabelSet(r.Labels...).Slice(),
		Content:   r.Content,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		RemoteRef: r.RemoteRef,
	}
}

// Status represents the workflow state of an issue
type Status string

// Issue status constants
const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusBlocked    Status = "blocked"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
)

// IsValid checks if the status value is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusBlocked, StatusReview, StatusDone:
		return true
	}
	return false
}

// IsClosed reports whether the status represents finished work.
func (s Status) IsClosed() bool {
	return s == StatusDone
}

// AllStatuses lists the built-in statuses in workflow order.
func AllStatuses() []Status {
	return []Status{StatusTodo, StatusInProgress, StatusBlocked, StatusReview, StatusDone}
}

// ConflictStrategy selects how true conflicts are resolved.
type ConflictStrategy string

const (
	ConflictKeepLocal  ConflictStrategy = "keep-local"
	ConflictKeepRemote ConflictStrategy = "keep-remote"
	ConflictAutoMerge  ConflictStrategy = "auto-merge"
)

// IsValid checks if the conflict strategy is known
func (s ConflictStrategy) IsValid() bool {
	switch s {
	case ConflictKeepLocal, ConflictKeepRemote, ConflictAutoMerge:
		return true
	}
	return false
}

// BaselineStrategy selects how a missing baseline is seeded.
type BaselineStrategy string

const (
	BaselineNone        BaselineStrategy = ""
	BaselineLocal       BaselineStrategy = "local"
	BaselineRemote      BaselineStrategy = "remote"
	BaselineInteractive BaselineStrategy = "interactive"
)

// IsValid checks if the baseline strategy is known. The empty strategy is valid.
func (s BaselineStrategy) IsValid() bool {
	switch s {
	case BaselineNone, BaselineLocal, BaselineRemote, BaselineInteractive:
		return true
	}
	return false
}
