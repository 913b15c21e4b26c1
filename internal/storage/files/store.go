// Package files implements the local issue store as a directory of markdown
// files with YAML frontmatter, one file per issue. Archived issues live in a
// separate directory with the same layout.
package files

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/roadmap-cli/roadmap/internal/storage"
	"github.com/roadmap-cli/roadmap/internal/types"
)

// Store reads and writes issue files.
type Store struct {
	dir        string
	archiveDir string
	logger     *slog.Logger
}

var _ storage.Storage = (*Store)(nil)

// New opens an issue directory, creating it if needed. archiveDir may be
// empty when archiving is not used.
func New(dir, archiveDir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	resolved, err := resolveDir(dir, true)
	if err != nil {
		return nil, fmt.Errorf("issues dir: %w", err)
	}
	s := &Store{dir: resolved, logger: logger}
	if archiveDir != "" {
		if s.archiveDir, err = resolveDir(archiveDir, false); err != nil {
			return nil, fmt.Errorf("archive dir: %w", err)
		}
	}
	return s, nil
}

func resolveDir(dir string, create bool) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	if create {
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return "", err
		}
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

// Dir returns the active issues directory.
func (s *Store) Dir() string { return s.dir }

// ArchiveDir returns the archive directory, or "".
func (s *Store) ArchiveDir() string { return s.archiveDir }

// ParseIssue implements baseline.Parser.
func (s *Store) ParseIssue(content []byte, path string) (*types.Issue, error) {
	return ParseIssue(content, path)
}

// List returns the active issues.
func (s *Store) List(ctx context.Context) ([]*types.Issue, error) {
	return s.load(ctx, false)
}

// ListIncludingArchived returns active and archived issues.
func (s *Store) ListIncludingArchived(ctx context.Context) ([]*types.Issue, error) {
	return s.load(ctx, true)
}

// Files returns the paths of every issue file, active and archived.
func (s *Store) Files(ctx context.Context) ([]string, error) {
	paths, err := issueFiles(s.dir)
	if err != nil {
		return nil, err
	}
	if s.archiveDir != "" {
		archived, err := issueFiles(s.archiveDir)
		if err != nil {
			return nil, err
		}
		paths = append(paths, archived...)
	}
	return paths, ctx.Err()
}

// Get returns one issue by id.
func (s *Store) Get(ctx context.Context, id string) (*types.Issue, error) {
	path, err := s.pathFor(id)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, fmt.Errorf("issue %s: %w", id, storage.ErrNotFound)
	}
	return s.readFile(path)
}

// Save writes an issue atomically. Existing issues keep their file; new
// issues get a file named after their id and title.
func (s *Store) Save(ctx context.Context, issue *types.Issue) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := issue.Validate(); err != nil {
		return fmt.Errorf("save %s: %w", issue.ID, err)
	}

	path := issue.Path
	if path == "" {
		existing, err := s.pathFor(issue.ID)
		if err != nil {
			return err
		}
		path = existing
	}
	if path == "" {
		dir := s.dir
		if issue.Archived && s.archiveDir != "" {
			dir = s.archiveDir
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		path = filepath.Join(dir, Filename(issue.ID, issue.Title))
	}

	data, err := FormatIssue(issue)
	if err != nil {
		return fmt.Errorf("format %s: %w", issue.ID, err)
	}
	if err := atomic.WriteFile(path, strings.NewReader(string(data))); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	// atomic.WriteFile doesn't set permissions for new files
	if err := os.Chmod(path, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", filepath.Base(path), err)
	}
	issue.Path = path
	return nil
}

func (s *Store) load(ctx context.Context, includeArchived bool) ([]*types.Issue, error) {
	issues, err := s.loadDir(ctx, s.dir, false)
	if err != nil {
		return nil, err
	}
	if includeArchived && s.archiveDir != "" {
		archived, err := s.loadDir(ctx, s.archiveDir, true)
		if err != nil {
			return nil, err
		}
		issues = append(issues, archived...)
	}
	sort.Slice(issues, func(i, j int) bool { return issues[i].ID < issues[j].ID })
	return issues, nil
}

func (s *Store) loadDir(ctx context.Context, dir string, archived bool) ([]*types.Issue, error) {
	paths, err := issueFiles(dir)
	if err != nil {
		return nil, err
	}
	issues := make([]*types.Issue, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		issue, err := s.readFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable issue file", "path", path, "error", err)
			continue
		}
		issue.Archived = archived
		issues = append(issues, issue)
	}
	return issues, nil
}

func (s *Store) readFile(path string) (*types.Issue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	issue, err := ParseIssue(data, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if s.archiveDir != "" && filepath.Dir(path) == s.archiveDir {
		issue.Archived = true
	}
	return issue, nil
}

func (s *Store) pathFor(id string) (string, error) {
	for _, dir := range []string{s.dir, s.archiveDir} {
		if dir == "" {
			continue
		}
		paths, err := issueFiles(dir)
		if err != nil {
			return "", err
		}
		for _, p := range paths {
			if fid, _ := IssueIDFromFilename(filepath.Base(p)); fid == id {
				return p, nil
			}
		}
	}
	return "", nil
}

// issueFiles lists the files in dir that follow the naming convention.
func issueFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := IssueIDFromFilename(e.Name()); ok {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return paths, nil
}

