package files

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roadmap-cli/roadmap/internal/types"
)

const frontmatterDelim = "---"

// frontmatter is the YAML header of an issue file.
type frontmatter struct {
	ID        string    `yaml:"id"`
	Title     string    `yaml:"title"`
	Status    string    `yaml:"status,omitempty"`
	Assignee  string    `yaml:"assignee,omitempty"`
	Milestone string    `yaml:"milestone,omitempty"`
	Labels    []string  `yaml:"labels,omitempty,flow"`
	Created   time.Time `yaml:"created,omitempty"`
	Updated   time.Time `yaml:"updated,omitempty"`
	Remote    string    `yaml:"remote,omitempty"`
}

var (
	fileIDRe  = regexp.MustCompile(`^([0-9a-f]{8})(?:-[^/]*)?\.md$`)
	slugStrip = regexp.MustCompile(`[^a-z0-9]+`)
)

// IssueIDFromFilename extracts the id from "<id>-<slug>.md" or "<id>.md".
func IssueIDFromFilename(name string) (string, bool) {
	m := fileIDRe.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Filename returns the canonical file name for an issue.
func Filename(id, title string) string {
	slug := strings.Trim(slugStrip.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if len(slug) > 40 {
		slug = strings.TrimRight(slug[:40], "-")
	}
	if slug == "" {
		return id + ".md"
	}
	return id + "-" + slug + ".md"
}

// ParseIssue reads an issue file. The id falls back to the file name when
// the header does not carry one.
func ParseIssue(content []byte, path string) (*types.Issue, error) {
	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	if !strings.HasPrefix(text, frontmatterDelim+"\n") {
		return nil, fmt.Errorf("missing frontmatter")
	}
	rest := text[len(frontmatterDelim)+1:]

	var header, body string
	switch {
	case strings.HasPrefix(rest, frontmatterDelim+"\n"):
		body = rest[len(frontmatterDelim)+1:]
	default:
		end := strings.Index(rest, "\n"+frontmatterDelim+"\n")
		if end < 0 {
			if !strings.HasSuffix(rest, "\n"+frontmatterDelim) {
				return nil, fmt.Errorf("unterminated frontmatter")
			}
			end = len(rest) - len(frontmatterDelim) - 1
			header = rest[:end]
		} else {
			header = rest[:end]
			body = rest[end+len(frontmatterDelim)+2:]
		}
	}

	var fm frontmatter
	if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
		return nil, fmt.Errorf("frontmatter: %w", err)
	}

	issue := &types.Issue{
		ID:        fm.ID,
		Title:     fm.Title,
		Status:    types.Status(fm.Status),
		Assignee:  fm.Assignee,
		Milestone: fm.Milestone,
		Labels:    types.NewLabelSet(fm.Labels...).Slice(),
		Content:   strings.TrimSpace(body),
		CreatedAt: fm.Created,
		UpdatedAt: fm.Updated,
		RemoteRef: fm.Remote,
		Path:      path,
	}
	if issue.ID == "" && path != "" {
		if id, ok := IssueIDFromFilename(filepath.Base(path)); ok {
			issue.ID = id
		}
	}
	issue.SetDefaults()
	if err := issue.Validate(); err != nil {
		return nil, err
	}
	return issue, nil
}

// FormatIssue renders an issue file.
func FormatIssue(issue *types.Issue) ([]byte, error) {
	fm := frontmatter{
		ID:        issue.ID,
		Title:     issue.Title,
		Status:    string(issue.Status),
		Assignee:  issue.Assignee,
		Milestone: issue.Milestone,
		Labels:    types.NewLabelSet(issue.Labels...).Slice(),
		Created:   issue.CreatedAt.UTC(),
		Updated:   issue.UpdatedAt.UTC(),
		Remote:    issue.RemoteRef,
	}
	header, err := yaml.Marshal(&fm)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(frontmatterDelim + "\n")
	buf.Write(header)
	buf.WriteString(frontmatterDelim + "\n")
	if content := strings.TrimSpace(issue.Content); content != "" {
		buf.WriteString("\n")
		buf.WriteString(content)
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}
