package files

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadmap-cli/roadmap/internal/storage"
	"github.com/roadmap-cli/roadmap/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	root := t.TempDir()
	s, err := New(filepath.Join(root, "issues"), filepath.Join(root, "archive"), nil)
	require.NoError(t, err)
	return s
}

func TestFormatParseRoundTrip(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	issue := &types.Issue{
		ID:        "0a1b2c3d",
		Title:     "Fix: the sync (again)",
		Status:    types.StatusInProgress,
		Assignee:  "alice",
		Milestone: "v1.2",
		Labels:    []string{"bug", "api"},
		Content:   "## Details\n\nSomething broke.",
		CreatedAt: created,
		UpdatedAt: created.Add(time.Hour),
		RemoteRef: "github:o/r#7",
	}

	data, err := FormatIssue(issue)
	require.NoError(t, err)

	got, err := ParseIssue(data, "/x/0a1b2c3d-fix.md")
	require.NoError(t, err)
	assert.True(t, issue.SameTrackedFields(got))
	assert.Equal(t, issue.RemoteRef, got.RemoteRef)
	assert.True(t, issue.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, issue.UpdatedAt.Equal(got.UpdatedAt))
	assert.Equal(t, []string{"api", "bug"}, got.Labels)
}

func TestParseIssue(t *testing.T) {
	tests := []struct {
		name    string
		content string
		path    string
		wantID  string
		wantErr bool
	}{
		{
			name:    "id from filename",
			content: "---\ntitle: Hello\n---\n\nbody\n",
			path:    "/x/0000abcd-hello.md",
			wantID:  "0000abcd",
		},
		{
			name:    "no body",
			content: "---\nid: 0000abcd\ntitle: Hello\n---\n",
			wantID:  "0000abcd",
		},
		{
			name:    "missing frontmatter",
			content: "just text",
			wantErr: true,
		},
		{
			name:    "unterminated",
			content: "---\nid: 0000abcd\ntitle: x\n",
			wantErr: true,
		},
		{
			name:    "bad yaml",
			content: "---\ntitle: [unclosed\n---\n",
			path:    "/x/0000abcd.md",
			wantErr: true,
		},
		{
			name:    "invalid status",
			content: "---\nid: 0000abcd\ntitle: x\nstatus: open\n---\n",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIssue([]byte(tt.content), tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.ID)
			assert.Equal(t, types.StatusTodo, got.Status)
		})
	}
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "0a1b2c3d-fix-the-sync-again.md", Filename("0a1b2c3d", "Fix: the sync (again)!"))
	assert.Equal(t, "0a1b2c3d.md", Filename("0a1b2c3d", "!!!"))

	id, ok := IssueIDFromFilename("0a1b2c3d-anything.md")
	assert.True(t, ok)
	assert.Equal(t, "0a1b2c3d", id)
	for _, bad := range []string{"README.md", "0A1B2C3D.md", "0a1b2c3.md", "0a1b2c3d.txt"} {
		_, ok := IssueIDFromFilename(bad)
		assert.False(t, ok, bad)
	}
}

func TestStoreSaveAndList(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	active := &types.Issue{ID: "0000000b", Title: "Active", Status: types.StatusTodo}
	archived := &types.Issue{ID: "0000000a", Title: "Old", Status: types.StatusDone, Archived: true}
	require.NoError(t, s.Save(ctx, active))
	require.NoError(t, s.Save(ctx, archived))

	// Non-conforming and broken files are skipped.
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "README.md"), []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "0000000f-broken.md"), []byte("nope"), 0o644))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "0000000b", list[0].ID)

	all, err := s.ListIncludingArchived(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "0000000a", all[0].ID)
	assert.True(t, all[0].Archived)

	files, err := s.Files(ctx)
	require.NoError(t, err)
	assert.Len(t, files, 3)
}

func TestStoreSaveKeepsExistingFile(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	issue := &types.Issue{ID: "0000000a", Title: "First title"}
	require.NoError(t, s.Save(ctx, issue))
	firstPath := issue.Path

	renamed := &types.Issue{ID: "0000000a", Title: "Second title", Status: types.StatusDone}
	require.NoError(t, s.Save(ctx, renamed))
	assert.Equal(t, firstPath, renamed.Path)

	got, err := s.Get(ctx, "0000000a")
	require.NoError(t, err)
	assert.Equal(t, "Second title", got.Title)
	assert.Equal(t, types.StatusDone, got.Status)

	_, err = s.Get(ctx, "0000ffff")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestStoreSaveRejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	err := s.Save(context.Background(), &types.Issue{ID: "0000000a"})
	assert.Error(t, err)
}
