package merge

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/roadmap-cli/roadmap/internal/types"
)

var (
	propStatuses = []types.Status{types.StatusTodo, types.StatusInProgress, types.StatusDone}
	propLabels   = []string{"a", "b", "c", "d"}
)

// labelsFromMask turns a 4-bit mask into a label list.
func labelsFromMask(mask int) []string {
	var out []string
	for i, l := range propLabels {
		if mask&(1<<i) != 0 {
			out = append(out, l)
		}
	}
	return out
}

// triple builds base/local/remote versions of one issue from generated
// status indexes and label masks.
func triple(bs, ls, rs, bl, ll, rl int) (*types.Issue, *types.RemoteIssue, *types.IssueBaseState) {
	base := baseIssue("0000000a")
	base.Status = propStatuses[bs]
	base.Labels = labelsFromMask(bl)

	local := base.Clone()
	local.Status = propStatuses[ls]
	local.Labels = labelsFromMask(ll)

	remote := remoteOf(base)
	remote.Status = propStatuses[rs]
	remote.Labels = labelsFromMask(rl)

	return local, remote, baseOf(base)
}

func propParameters() *gopter.TestParameters {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	return parameters
}

func TestClassifierProperties(t *testing.T) {
	properties := gopter.NewProperties(propParameters())
	c := NewClassifier(PreferRemote)
	status := gen.IntRange(0, len(propStatuses)-1)
	mask := gen.IntRange(0, 15)

	properties.Property("conflicts only where both sides changed differently", prop.ForAll(
		func(bs, ls, rs, bl, ll, rl int) bool {
			local, remote, base := triple(bs, ls, rs, bl, ll, rl)
			rec := c.ClassifyIssue(local.ID, local, remote, base)
			for _, d := range rec.Conflicts {
				if d.Local.Equal(d.Base) || d.Remote.Equal(d.Base) || d.Local.Equal(d.Remote) {
					return false
				}
			}
			return (len(rec.Conflicts) > 0) == (rec.Class == ClassConflict)
		},
		status, status, status, mask, mask, mask,
	))

	properties.Property("convergent edits are never conflicts", prop.ForAll(
		func(bs, vs, bl, vl int) bool {
			local, remote, base := triple(bs, vs, vs, bl, vl, vl)
			rec := c.ClassifyIssue(local.ID, local, remote, base)
			return rec.Class == ClassUpToDate && len(rec.Conflicts) == 0
		},
		status, status, mask, mask,
	))

	properties.Property("every field lands in exactly one bucket when changed", prop.ForAll(
		func(bs, ls, rs, bl, ll, rl int) bool {
			local, remote, base := triple(bs, ls, rs, bl, ll, rl)
			rec := c.ClassifyIssue(local.ID, local, remote, base)
			seen := map[types.Field]int{}
			for _, f := range rec.Push {
				seen[f]++
			}
			for _, f := range rec.Pull {
				seen[f]++
			}
			for _, f := range rec.Convergent {
				seen[f]++
			}
			for _, f := range rec.ConflictFields() {
				seen[f]++
			}
			for _, f := range types.TrackedFields {
				changed := !local.FieldValue(f).Equal(base.FieldValue(f)) || !remote.FieldValue(f).Equal(base.FieldValue(f))
				if changed && seen[f] != 1 || !changed && seen[f] != 0 {
					return false
				}
			}
			return true
		},
		status, status, status, mask, mask, mask,
	))

	properties.TestingRun(t)
}

func TestResolverProperties(t *testing.T) {
	properties := gopter.NewProperties(propParameters())
	c := NewClassifier(PreferRemote)
	status := gen.IntRange(0, len(propStatuses)-1)
	mask := gen.IntRange(0, 15)

	properties.Property("keep strategies take one side for every conflict", prop.ForAll(
		func(bs, ls, rs, bl, ll, rl int) bool {
			local, remote, base := triple(bs, ls, rs, bl, ll, rl)
			rec := c.ClassifyIssue(local.ID, local, remote, base)

			keepLocal, err := NewResolver(types.ConflictKeepLocal).Resolve(rec)
			if err != nil {
				return false
			}
			keepRemote, err := NewResolver(types.ConflictKeepRemote).Resolve(rec)
			if err != nil {
				return false
			}
			for _, d := range rec.Conflicts {
				if !keepLocal.FieldValue(d.Field).Equal(d.Local) || !keepRemote.FieldValue(d.Field).Equal(d.Remote) {
					return false
				}
			}
			return true
		},
		status, status, status, mask, mask, mask,
	))

	properties.Property("auto-merge keeps every label added on either side", prop.ForAll(
		func(bl, ll, rl int) bool {
			local, remote, base := triple(0, 0, 0, bl, ll, rl)
			rec := c.ClassifyIssue(local.ID, local, remote, base)
			got, err := NewResolver(types.ConflictAutoMerge).Resolve(rec)
			if err != nil {
				return false
			}
			merged := types.NewLabelSet(got.Labels...)
			baseSet := types.NewLabelSet(base.Labels...)
			for _, l := range append(append([]string{}, local.Labels...), remote.Labels...) {
				if !baseSet.Contains(l) && !merged.Contains(l) {
					return false
				}
			}
			return true
		},
		mask, mask, mask,
	))

	properties.Property("resolution is deterministic", prop.ForAll(
		func(bs, ls, rs, bl, ll, rl int) bool {
			local, remote, base := triple(bs, ls, rs, bl, ll, rl)
			rec := c.ClassifyIssue(local.ID, local, remote, base)
			r := NewResolver(types.ConflictAutoMerge)
			a, errA := r.Resolve(rec)
			b, errB := r.Resolve(rec)
			return errA == nil && errB == nil && a.SameTrackedFields(b)
		},
		status, status, status, mask, mask, mask,
	))

	properties.Property("mixed records apply both halves", prop.ForAll(
		func(bs, rs, bl, ll int) bool {
			// status changes remotely, labels change locally
			local, remote, base := triple(bs, bs, rs, bl, ll, bl)
			rec := c.ClassifyIssue(local.ID, local, remote, base)
			if rec.Class != ClassMixed {
				return true
			}
			got, err := NewResolver(types.ConflictAutoMerge).Resolve(rec)
			if err != nil {
				return false
			}
			return got.Status == remote.Status &&
				types.NewLabelSet(got.Labels...).Equal(types.NewLabelSet(local.Labels...))
		},
		status, status, mask, mask,
	))

	properties.TestingRun(t)
}
