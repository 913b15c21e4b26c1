package types

import "time"

// BaseOrigin records how a baseline entry was captured.
type BaseOrigin string

const (
	// OriginSnapshot entries were captured from a completed sync.
	OriginSnapshot BaseOrigin = "snapshot"
	// OriginHistory entries were reconstructed from git history.
	OriginHistory BaseOrigin = "history"
)

// IssueBaseState is the agreed state of one issue at the last successful
// sync. Entries are replaced wholesale, never patched field by field.
type IssueBaseState struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Status    Status     `json:"status,omitempty"`
	Assignee  string     `json:"assignee,omitempty"`
	Milestone string     `json:"milestone,omitempty"`
	Labels    []string   `json:"labels,omitempty"`
	Content   string     `json:"content,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	Origin    BaseOrigin `json:"origin,omitempty"`
}

// FieldValue returns the baseline value of a tracked field.
func (b *IssueBaseState) FieldValue(f Field) Value {
	return fieldValue(f, b.Title, b.Status, b.Assignee, b.Milestone, b.Labels, b.Content)
}

// BaseStateFromIssue captures a local issue as a baseline entry.
func BaseStateFromIssue(i *Issue, ts time.Time, origin BaseOrigin) IssueBaseState {
	return IssueBaseState{
		ID:        i.ID,
		Title:     i.Title,
		Status:    i.Status,
		Assignee:  i.Assignee,
		Milestone: i.Milestone,
		Labels:    NewLabelSet(i.Labels...).Slice(),
		Content:   i.Content,
		Timestamp: ts,
		Origin:    origin,
	}
}

// BaseStateFromRemote captures a remote issue as a baseline entry.
func BaseStateFromRemote(r *RemoteIssue, ts time.Time) IssueBaseState {
	return IssueBaseState{
		ID:        r.ID,
		Title:     r.Title,
		Status:    r.Status,
		Assignee:  r.Assignee,
		Milestone: r.Milestone,
		Labels:    NewLabelSet(r.Labels...).Slice(),
		Content:   r.Content,
		Timestamp: ts,
		Origin:    OriginSnapshot,
	}
}

// SyncState is the baseline: the last agreed snapshot of every issue known
// to either side at LastSync.
type SyncState struct {
	LastSync time.Time                 `json:"last_sync"`
	Backend  string                    `json:"backend"`
	Ref      string                    `json:"ref,omitempty"` // git HEAD when captured
	SavedAt  time.Time                 `json:"saved_at"`
	Issues   map[string]IssueBaseState `json:"issues"`
}

// NewSyncState returns an empty baseline for backend.
func NewSyncState(backend string, lastSync time.Time) *SyncState {
	return &SyncState{
		LastSync: lastSync,
		Backend:  backend,
		Issues:   make(map[string]IssueBaseState),
	}
}

// Get returns the baseline entry for id.
func (s *SyncState) Get(id string) (*IssueBaseState, bool) {
	if s == nil {
		return nil, false
	}
	b, ok := s.Issues[id]
	if !ok {
		return nil, false
	}
	return &b, true
}

// Len returns the number of issues in the baseline.
func (s *SyncState) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Issues)
}

// Clone returns a deep copy.
func (s *SyncState) Clone() *SyncState {
	if s == nil {
		return nil
	}
	c := *s
	c.Issues = make(map[string]IssueBaseState, len(s.Issues))
	for id, b := range s.Issues {
		if b.Labels != nil {
			b.Labels = append([]string(nil), b.Labels...)
		}
		c.Issues[id] = b
	}
	return &c
}

// Equal reports whether two baselines hold the same issue snapshots,
// ignoring capture metadata.
func (s *SyncState) Equal(o *SyncState) bool {
	if s.Len() != o.Len() {
		return false
	}
	if s == nil {
		return true
	}
	for id, b := range s.Issues {
		ob, ok := o.Issues[id]
		if !ok {
			return false
		}
		for _, f := range TrackedFields {
			if !b.FieldValue(f).Equal(ob.FieldValue(f)) {
				return false
			}
		}
	}
	return true
}
