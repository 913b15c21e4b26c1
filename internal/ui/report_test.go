package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/roadmap-cli/roadmap/internal/merge"
	"github.com/roadmap-cli/roadmap/internal/tracker"
	"github.com/roadmap-cli/roadmap/internal/types"
)

func TestRenderSyncReport(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	ConfigureColor()

	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	r := &tracker.SyncReport{
		Backend:        "github",
		IssuesUpdated:  2,
		IssuesUpToDate: 5,
		Pushed:         1,
		Pulled:         1,
		Changes: []tracker.Change{
			{IssueID: "bbbbbbbb", Class: merge.ClassPull, Action: tracker.ActionPull, Pull: []types.Field{types.FieldTitle}},
			{IssueID: "aaaaaaaa", Class: merge.ClassUpdate, Action: tracker.ActionPush, Push: []types.Field{types.FieldStatus, types.FieldLabels}},
		},
		Warnings:   []string{"cache save failed"},
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
	}

	var buf bytes.Buffer
	RenderSyncReport(&buf, r)
	out := buf.String()

	for _, want := range []string{
		"SYNC WITH GITHUB",
		"push=status,labels",
		"pull=title",
		"updated 2, up to date 5",
		"pushed 1, pulled 1, created 0",
		"took 1.5s",
		"cache save failed",
		"sync complete",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "aaaaaaaa") > strings.Index(out, "bbbbbbbb") {
		t.Error("changes should be sorted by issue id")
	}
}

func TestRenderSyncReportFailure(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	ConfigureColor()

	r := &tracker.SyncReport{DryRun: true, Error: "authentication failed", Err: errors.New("authentication failed")}
	var buf bytes.Buffer
	RenderSyncReport(&buf, r)
	out := buf.String()

	if !strings.Contains(out, "DRY RUN") {
		t.Errorf("dry run not shown:\n%s", out)
	}
	if strings.Contains(out, "pushed") {
		t.Errorf("dry run should not show applied counts:\n%s", out)
	}
	if !strings.Contains(out, "sync failed: authentication failed") {
		t.Errorf("failure not shown:\n%s", out)
	}
}

func TestRenderBaseline(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	ConfigureColor()

	var buf bytes.Buffer
	RenderBaseline(&buf, nil)
	if !strings.Contains(buf.String(), "no baseline") {
		t.Errorf("nil baseline: %q", buf.String())
	}

	buf.Reset()
	state := types.NewSyncState("github", time.Time{})
	state.Issues["zzzzzzzz"] = types.IssueBaseState{ID: "zzzzzzzz", Title: "Later", Status: types.StatusDone}
	state.Issues["aaaaaaaa"] = types.IssueBaseState{ID: "aaaaaaaa", Title: "First", Status: types.StatusTodo}
	RenderBaseline(&buf, state)
	out := buf.String()
	if !strings.Contains(out, "last sync: never") || !strings.Contains(out, "issues:    2") {
		t.Errorf("header wrong:\n%s", out)
	}
	if strings.Index(out, "First") > strings.Index(out, "Later") {
		t.Error("entries should be sorted by id")
	}
}
