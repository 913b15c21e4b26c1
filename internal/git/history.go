package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// History answers change-detection and point-in-time queries against a git
// work tree.
type History struct {
	Root    string // work tree root, symlinks resolved
	Timeout time.Duration
}

// Open finds the work tree containing dir.
func Open(ctx context.Context, dir string, timeout time.Duration) (*History, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	out, err := execContext(ctx, timeout, dir, "rev-parse", "--show-toplevel")
	if errors.Is(err, ErrGitNotAvailable) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotRepository, dir)
	}
	root := strings.TrimSpace(string(out))
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	return &History{Root: root, Timeout: timeout}, nil
}

func (h *History) run(ctx context.Context, args ...string) ([]byte, error) {
	return execContext(ctx, h.Timeout, h.Root, args...)
}

// HeadRef returns the commit HEAD points at, or ErrNotFound in a repository
// without commits.
func (h *History) HeadRef(ctx context.Context) (string, error) {
	out, err := h.run(ctx, "rev-parse", "--verify", "--quiet", "HEAD")
	if err != nil {
		return "", fmt.Errorf("HEAD: %w", ErrNotFound)
	}
	return strings.TrimSpace(string(out)), nil
}

// CommitAt returns the last commit made at or before t.
func (h *History) CommitAt(ctx context.Context, t time.Time) (string, error) {
	if _, err := h.HeadRef(ctx); err != nil {
		return "", err
	}
	out, err := h.run(ctx, "rev-list", "-1", "--before="+t.UTC().Format(time.RFC3339), "HEAD")
	if err != nil {
		return "", err
	}
	commit := strings.TrimSpace(string(out))
	if commit == "" {
		return "", fmt.Errorf("commit before %s: %w", t.Format(time.RFC3339), ErrNotFound)
	}
	return commit, nil
}

// ChangedFilesSince returns the files under path that differ between ref
// and the work tree, including untracked files. Paths are absolute.
func (h *History) ChangedFilesSince(ctx context.Context, ref, path string) (PathSet, error) {
	rel, err := h.rel(path)
	if err != nil {
		return nil, err
	}

	changed, err := h.run(ctx, "diff", "--name-only", "--no-renames", ref, "--", rel)
	if err != nil {
		return nil, err
	}
	untracked, err := h.run(ctx, "ls-files", "--others", "--exclude-standard", "--", rel)
	if err != nil {
		return nil, err
	}

	set := PathSet{}
	for _, line := range append(parseLines(changed), parseLines(untracked)...) {
		set.Add(filepath.Join(h.Root, filepath.FromSlash(line)))
	}
	return set, nil
}

// FileContentAtRef returns the content of path at ref, or ErrNotFound when
// the file did not exist there.
func (h *History) FileContentAtRef(ctx context.Context, path, ref string) ([]byte, error) {
	rel, err := h.rel(path)
	if err != nil {
		return nil, err
	}
	object := ref + ":" + filepath.ToSlash(rel)
	if _, err := h.run(ctx, "cat-file", "-e", object); err != nil {
		return nil, fmt.Errorf("%s: %w", object, ErrNotFound)
	}
	return h.run(ctx, "cat-file", "blob", object)
}

// rel converts path to a work-tree relative path. Only the parent directory
// is resolved through symlinks so deleted files still map correctly.
func (h *History) rel(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	dir, base := filepath.Dir(abs), filepath.Base(abs)
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		dir = resolved
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			dir, base = resolved, "."
		}
	}
	rel, err := filepath.Rel(h.Root, filepath.Join(dir, base))
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%s is outside the repository %s", path, h.Root)
	}
	return rel, nil
}
