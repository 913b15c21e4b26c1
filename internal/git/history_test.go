package git

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

// setupTestRepo creates a repository with deterministic commit dates.
func setupTestRepo(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir := t.TempDir()
	gitCmd(t, dir, time.Time{}, "init", "-q")
	gitCmd(t, dir, time.Time{}, "config", "user.email", "test@example.com")
	gitCmd(t, dir, time.Time{}, "config", "user.name", "Test")
	gitCmd(t, dir, time.Time{}, "config", "commit.gpgsign", "false")
	return dir
}

func gitCmd(t *testing.T, dir string, when time.Time, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = os.Environ()
	if !when.IsZero() {
		stamp := when.UTC().Format(time.RFC3339)
		cmd.Env = append(cmd.Env, "GIT_AUTHOR_DATE="+stamp, "GIT_COMMITTER_DATE="+stamp)
	}
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v failed: %v\n%s", args, err, out)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func commitAll(t *testing.T, dir string, when time.Time, msg string) {
	t.Helper()
	gitCmd(t, dir, when, "add", "-A")
	gitCmd(t, dir, when, "commit", "-q", "-m", msg)
}

func TestHistory(t *testing.T) {
	dir := setupTestRepo(t)
	ctx := context.Background()

	h, err := Open(ctx, dir, 0)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if _, err := h.HeadRef(ctx); !errors.Is(err, ErrNotFound) {
		t.Errorf("HeadRef on empty repo: err = %v, want ErrNotFound", err)
	}

	issues := filepath.Join(h.Root, "issues")
	first := filepath.Join(issues, "0000000a-first.md")
	second := filepath.Join(issues, "0000000b-second.md")

	t1 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	writeFile(t, first, "v1")
	commitAll(t, dir, t1, "first")
	c1, err := h.HeadRef(ctx)
	if err != nil {
		t.Fatalf("HeadRef failed: %v", err)
	}

	t2 := t1.Add(48 * time.Hour)
	writeFile(t, first, "v2")
	writeFile(t, second, "new")
	commitAll(t, dir, t2, "second")

	t.Run("CommitAt", func(t *testing.T) {
		got, err := h.CommitAt(ctx, t1.Add(time.Hour))
		if err != nil {
			t.Fatalf("CommitAt failed: %v", err)
		}
		if got != c1 {
			t.Errorf("CommitAt = %s, want %s", got, c1)
		}
		if _, err := h.CommitAt(ctx, t1.Add(-time.Hour)); !errors.Is(err, ErrNotFound) {
			t.Errorf("CommitAt before history: err = %v, want ErrNotFound", err)
		}
	})

	t.Run("FileContentAtRef", func(t *testing.T) {
		got, err := h.FileContentAtRef(ctx, first, c1)
		if err != nil {
			t.Fatalf("FileContentAtRef failed: %v", err)
		}
		if string(got) != "v1" {
			t.Errorf("content = %q, want v1", got)
		}
		if _, err := h.FileContentAtRef(ctx, second, c1); !errors.Is(err, ErrNotFound) {
			t.Errorf("missing file: err = %v, want ErrNotFound", err)
		}
	})

	t.Run("ChangedFilesSince", func(t *testing.T) {
		untracked := filepath.Join(issues, "0000000c-draft.md")
		writeFile(t, untracked, "draft")
		writeFile(t, filepath.Join(h.Root, "README.md"), "outside")

		changed, err := h.ChangedFilesSince(ctx, c1, issues)
		if err != nil {
			t.Fatalf("ChangedFilesSince failed: %v", err)
		}
		for _, p := range []string{first, second, untracked} {
			if !changed.Has(p) {
				t.Errorf("expected %s in changed set %v", filepath.Base(p), changed.Sorted())
			}
		}
		if changed.Has(filepath.Join(h.Root, "README.md")) {
			t.Error("change detection leaked outside the issues directory")
		}
		if _, err := h.ChangedFilesSince(ctx, "deadbeef", issues); err == nil {
			t.Error("expected error for unknown ref")
		}
	})
}

func TestOpenOutsideRepository(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	dir := t.TempDir()
	t.Setenv("GIT_CEILING_DIRECTORIES", filepath.Dir(dir))
	if _, err := Open(context.Background(), dir, time.Second); !errors.Is(err, ErrNotRepository) {
		t.Errorf("Open: err = %v, want ErrNotRepository", err)
	}
}

func TestPathSet(t *testing.T) {
	s := NewPathSet("/a/b/../c.md", "/x.md")
	if !s.Has("/a/c.md") {
		t.Error("Has should clean paths")
	}
	if got := s.Sorted(); len(got) != 2 || got[0] != "/a/c.md" {
		t.Errorf("Sorted() = %v", got)
	}
}
