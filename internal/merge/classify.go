package merge

import (
	"sort"

	"github.com/roadmap-cli/roadmap/internal/types"
)

// Class is the issue-level outcome of a three-way comparison.
type Class string

const (
	ClassUpToDate Class = "up-to-date"
	ClassUpdate   Class = "update"   // local changes need pushing
	ClassPull     Class = "pull"     // remote changes need pulling
	ClassMixed    Class = "mixed"    // disjoint local and remote changes
	ClassConflict Class = "conflict" // at least one field changed differently on both sides
)

// NoBaselinePolicy decides which side wins when an issue exists on both
// sides but has no baseline entry.
type NoBaselinePolicy string

const (
	PreferRemote NoBaselinePolicy = "remote"
	PreferLocal  NoBaselinePolicy = "local"
)

// IsValid checks if the policy is known
func (p NoBaselinePolicy) IsValid() bool {
	return p == PreferRemote || p == PreferLocal
}

// FieldDelta holds the three values of one tracked field.
type FieldDelta struct {
	Field  types.Field `json:"field"`
	Base   types.Value `json:"base"`
	Local  types.Value `json:"local"`
	Remote types.Value `json:"remote"`
}

// Record is the classification of a single issue.
type Record struct {
	IssueID    string
	Class      Class
	Create     bool // issue exists on one side only
	Push       []types.Field
	Pull       []types.Field
	Convergent []types.Field
	Conflicts  []FieldDelta

	Local  *types.Issue
	Remote *types.RemoteIssue
	Base   *types.IssueBaseState
}

// ConflictFields returns the names of the conflicting fields.
func (r *Record) ConflictFields() []types.Field {
	fields := make([]types.Field, 0, len(r.Conflicts))
	for _, c := range r.Conflicts {
		fields = append(fields, c.Field)
	}
	return fields
}

// Classifier performs three-way comparisons of local, remote and baseline state.
type Classifier struct {
	NoBaseline NoBaselinePolicy
}

// NewClassifier creates a classifier; an invalid policy falls back to PreferRemote.
func NewClassifier(policy NoBaselinePolicy) *Classifier {
	if !policy.IsValid() {
		policy = PreferRemote
	}
	return &Classifier{NoBaseline: policy}
}

// Classify returns exactly one record per issue known to either side,
// sorted by issue id.
func (c *Classifier) Classify(local []*types.Issue, remote map[string]*types.RemoteIssue, base *types.SyncState) []Record {
	byID := make(map[string]*types.Issue, len(local))
	for _, issue := range local {
		byID[issue.ID] = issue
	}

	ids := make([]string, 0, len(byID)+len(remote))
	for id := range byID {
		ids = append(ids, id)
	}
	for id := range remote {
		if _, ok := byID[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	records := make([]Record, 0, len(ids))
	for _, id := range ids {
		b, _ := base.Get(id)
		records = append(records, c.ClassifyIssue(id, byID[id], remote[id], b))
	}
	return records
}

// ClassifyIssue compares one issue. local and remote may be nil (but not both).
func (c *Classifier) ClassifyIssue(id string, local *types.Issue, remote *types.RemoteIssue, base *types.IssueBaseState) Record {
	rec := Record{IssueID: id, Local: local, Remote: remote, Base: base}

	switch {
	case local != nil && remote == nil:
		rec.Class = ClassUpdate
		rec.Create = true
		rec.Push = append(rec.Push, types.TrackedFields...)
		return rec
	case local == nil && remote != nil:
		rec.Class = ClassPull
		rec.Create = true
		rec.Pull = append(rec.Pull, types.TrackedFields...)
		return rec
	case local == nil && remote == nil:
		rec.Class = ClassUpToDate
		return rec
	}

	if base == nil {
		return c.classifyWithoutBaseline(rec)
	}

	for _, f := range types.TrackedFields {
		b := base.FieldValue(f)
		l := local.FieldValue(f)
		r := remote.FieldValue(f)

		localChanged := !l.Equal(b)
		remoteChanged := !r.Equal(b)

		switch {
		case !localChanged && !remoteChanged:
		case localChanged && !remoteChanged:
			rec.Push = append(rec.Push, f)
		case !localChanged && remoteChanged:
			rec.Pull = append(rec.Pull, f)
		case l.Equal(r):
			rec.Convergent = append(rec.Convergent, f)
		default:
			rec.Conflicts = append(rec.Conflicts, FieldDelta{Field: f, Base: b, Local: l, Remote: r})
		}
	}

	rec.Class = classOf(rec)
	return rec
}

func (c *Classifier) classifyWithoutBaseline(rec Record) Record {
	var differing []types.Field
	for _, f := range types.TrackedFields {
		if !rec.Local.FieldValue(f).Equal(rec.Remote.FieldValue(f)) {
			differing = append(differing, f)
		}
	}
	switch {
	case len(differing) == 0:
		rec.Class = ClassUpToDate
	case c.NoBaseline == PreferLocal:
		rec.Class = ClassUpdate
		rec.Push = differing
	default:
		rec.Class = ClassPull
		rec.Pull = differing
	}
	return rec
}

func classOf(rec Record) Class {
	switch {
	case len(rec.Conflicts) > 0:
		return ClassConflict
	case len(rec.Push) > 0 && len(rec.Pull) > 0:
		return ClassMixed
	case len(rec.Push) > 0:
		return ClassUpdate
	case len(rec.Pull) > 0:
		return ClassPull
	}
	return ClassUpToDate
}

// Summary counts records per class.
type Summary struct {
	UpToDate  int
	Update    int
	Pull      int
	Mixed     int
	Conflict  int
	Creations int
}

// Summarize tallies a classification result.
func Summarize(records []Record) Summary {
	var s Summary
	for _, r := range records {
		switch r.Class {
		case ClassUpToDate:
			s.UpToDate++
		case ClassUpdate:
			s.Update++
		case ClassPull:
			s.Pull++
		case ClassMixed:
			s.Mixed++
		case ClassConflict:
			s.Conflict++
		}
		if r.Create {
			s.Creations++
		}
	}
	return s
}
