package ui

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/roadmap-cli/roadmap/internal/merge"
	"github.com/roadmap-cli/roadmap/internal/tracker"
	"github.com/roadmap-cli/roadmap/internal/types"
)

// RenderClass colors a classification tag.
func RenderClass(c merge.Class) string {
	switch c {
	case merge.ClassUpToDate:
		return RenderMuted(string(c))
	case merge.ClassConflict:
		return RenderFail(string(c))
	case merge.ClassMixed:
		return RenderWarn(string(c))
	default:
		return RenderAccent(string(c))
	}
}

func icon(render func() string, plain string) string {
	if ShouldUseEmoji() {
		return render()
	}
	return plain
}

func fieldList(fields []types.Field) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return strings.Join(names, ",")
}

// RenderSyncReport writes a human readable summary of a sync run.
func RenderSyncReport(w io.Writer, r *tracker.SyncReport) {
	title := "Sync"
	if r.DryRun {
		title = "Sync (dry run)"
	}
	if r.Backend != "" {
		title += " with " + r.Backend
	}
	fmt.Fprintln(w, RenderCategory(title))
	fmt.Fprintln(w, RenderSeparator())

	changes := append([]tracker.Change(nil), r.Changes...)
	sort.Slice(changes, func(i, j int) bool { return changes[i].IssueID < changes[j].IssueID })
	for _, c := range changes {
		line := fmt.Sprintf("%s %-10s %-13s %s", icon(RenderInfoIcon, "*"), c.IssueID, string(c.Action), RenderClass(c.Class))
		if len(c.Push) > 0 {
			line += RenderMuted(" push=" + fieldList(c.Push))
		}
		if len(c.Pull) > 0 {
			line += RenderMuted(" pull=" + fieldList(c.Pull))
		}
		if len(c.Conflicts) > 0 {
			line += RenderWarn(" conflicts=" + fieldList(c.Conflicts))
		}
		fmt.Fprintln(w, line)
	}
	if len(changes) > 0 {
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "%supdated %d, up to date %d, conflicts %d (resolved %d)\n",
		Indent, r.IssuesUpdated, r.IssuesUpToDate, r.ConflictsDetected, r.ConflictsResolved)
	if !r.DryRun {
		fmt.Fprintf(w, "%spushed %d, pulled %d, created %d\n", Indent, r.Pushed, r.Pulled, r.Created)
	}
	if r.BaselineSource != "" {
		fmt.Fprintf(w, "%s%s\n", Indent, RenderMuted("baseline: "+string(r.BaselineSource)))
	}
	if !r.StartedAt.IsZero() && !r.FinishedAt.IsZero() {
		fmt.Fprintf(w, "%s%s\n", Indent, RenderMuted("took "+r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()))
	}

	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "%s %s\n", icon(RenderWarnIcon, "!"), RenderWarn(warning))
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "%s %s\n", icon(RenderFailIcon, "x"), RenderFail(e.Error()))
	}

	switch {
	case r.Failed():
		fmt.Fprintf(w, "%s %s\n", icon(RenderFailIcon, "x"), RenderFail("sync failed: "+r.Error))
	case len(r.Errors) > 0:
		fmt.Fprintf(w, "%s %s\n", icon(RenderWarnIcon, "!"), RenderWarn(fmt.Sprintf("sync finished with %d issue errors", len(r.Errors))))
	default:
		fmt.Fprintf(w, "%s %s\n", icon(RenderPassIcon, "ok"), RenderPass("sync complete"))
	}
}

// RenderBaseline writes the entries of a baseline, one per line.
func RenderBaseline(w io.Writer, state *types.SyncState) {
	if state == nil {
		fmt.Fprintln(w, RenderMuted("no baseline"))
		return
	}
	fmt.Fprintln(w, RenderCategory("Baseline"))
	fmt.Fprintln(w, RenderSeparator())
	fmt.Fprintf(w, "%sbackend:   %s\n", Indent, state.Backend)
	fmt.Fprintf(w, "%slast sync: %s\n", Indent, formatTime(state.LastSync))
	if state.Ref != "" {
		fmt.Fprintf(w, "%sref:       %s\n", Indent, state.Ref)
	}
	fmt.Fprintf(w, "%sissues:    %d\n\n", Indent, len(state.Issues))

	ids := make([]string, 0, len(state.Issues))
	for id := range state.Issues {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		entry := state.Issues[id]
		fmt.Fprintf(w, "%s %-10s %-12s %s\n", icon(RenderSkipIcon, "-"), id, string(entry.Status), entry.Title)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
