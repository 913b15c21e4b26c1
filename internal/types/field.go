package types

import (
	"sort"
	"strings"
)

// Field names one of the tracked issue fields compared during sync.
type Field string

const (
	FieldStatus    Field = "status"
	FieldAssignee  Field = "assignee"
	FieldMilestone Field = "milestone"
	FieldLabels    Field = "labels"
	FieldContent   Field = "content"
	FieldTitle     Field = "title"
)

// TrackedFields is the fixed set of fields the classifier compares, in
// reporting order.
var TrackedFields = []Field{
	FieldStatus,
	FieldAssignee,
	FieldMilestone,
	FieldLabels,
	FieldContent,
	FieldTitle,
}

// Value is the value of one tracked field. Labels is only meaningful for
// FieldLabels; every other field uses Text.
type Value struct {
	Text   string
	Labels LabelSet
}

// TextValue wraps a scalar field value.
func TextValue(s string) Value { return Value{Text: s} }

// LabelsValue wraps a label field value.
func LabelsValue(labels ...string) Value { return Value{Labels: NewLabelSet(labels...)} }

// Equal compares two values. Labels compare as sets.
func (v Value) Equal(o Value) bool {
	return v.Text == o.Text && v.Labels.Equal(o.Labels)
}

func (v Value) String() string {
	if v.Labels != nil {
		return "[" + strings.Join(v.Labels, ", ") + "]"
	}
	return v.Text
}

func fieldValue(f Field, title string, status Status, assignee, milestone string, labels []string, content string) Value {
	switch f {
	case FieldTitle:
		return TextValue(title)
	case FieldStatus:
		return TextValue(string(status))
	case FieldAssignee:
		return TextValue(assignee)
	case FieldMilestone:
		return TextValue(milestone)
	case FieldLabels:
		return Value{Labels: NewLabelSet(labels...)}
	case FieldContent:
		return TextValue(content)
	}
	return Value{}
}

// LabelSet is a sorted, de-duplicated label list. Order and duplicates in
// the source never affect equality.
type LabelSet []string

// NewLabelSet normalizes labels into a set. Blank labels are dropped.
func NewLabelSet(labels ...string) LabelSet {
	seen := make(map[string]struct{}, len(labels))
	out := make(LabelSet, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Contains reports whether the set has label l.
func (s LabelSet) Contains(l string) bool {
	i := sort.SearchStrings(s, l)
	return i < len(s) && s[i] == l
}

// Equal compares two normalized sets.
func (s LabelSet) Equal(o LabelSet) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// Union returns every label in either set.
func (s LabelSet) Union(o LabelSet) LabelSet {
	all := make([]string, 0, len(s)+len(o))
	all = append(all, s...)
	all = append(all, o...)
	return NewLabelSet(all...)
}

// Slice returns a plain copy of the set, nil when empty.
func (s LabelSet) Slice() []string {
	if len(s) == 0 {
		return nil
	}
	return append([]string(nil), s...)
}
