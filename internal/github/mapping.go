package github

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	gh "github.com/google/go-github/v68/github"

	"github.com/roadmap-cli/roadmap/internal/types"
)

// StatusLabelPrefix marks labels that carry the workflow status, e.g.
// "status:in-progress". They are not reported as issue labels.
const StatusLabelPrefix = "status:"

var refPattern = regexp.MustCompile(`^github:([^/\s]+)/([^#\s]+)#(\d+)$`)

// FormatRef builds the remote_ref stored on local issues.
func FormatRef(owner, repo string, number int) string {
	return fmt.Sprintf("github:%s/%s#%d", owner, repo, number)
}

// ParseRef splits a remote_ref produced by FormatRef.
func ParseRef(ref string) (owner, repo string, number int, ok bool) {
	m := refPattern.FindStringSubmatch(strings.TrimSpace(ref))
	if m == nil {
		return "", "", 0, false
	}
	n, err := strconv.Atoi(m[3])
	if err != nil || n <= 0 {
		return "", "", 0, false
	}
	return m[1], m[2], n, true
}

// StatusFromIssue derives the local status. A closed issue is always done;
// an open issue uses its status label, defaulting to todo.
func StatusFromIssue(issue *gh.Issue) types.Status {
	if issue.GetState() == "closed" {
		return types.StatusDone
	}
	for _, label := range issue.Labels {
		value, ok := strings.CutPrefix(strings.ToLower(label.GetName()), StatusLabelPrefix)
		if !ok {
			continue
		}
		value = strings.ReplaceAll(strings.TrimSpace(value), "_", "-")
		if s := types.Status(value); s.IsValid() && !s.IsClosed() {
			return s
		}
	}
	return types.StatusTodo
}

// LabelsFromIssue returns the issue's labels without status labels, sorted.
func LabelsFromIssue(issue *gh.Issue) []string {
	var names []string
	for _, label := range issue.Labels {
		name := label.GetName()
		if strings.HasPrefix(strings.ToLower(name), StatusLabelPrefix) {
			continue
		}
		names = append(names, name)
	}
	return types.NewLabelSet(names...).Slice()
}

// AssigneeFromIssue returns the first assignee's login.
func AssigneeFromIssue(issue *gh.Issue) string {
	if len(issue.Assignees) > 0 {
		return issue.Assignees[0].GetLogin()
	}
	return issue.GetAssignee().GetLogin()
}

// ToRemoteIssue converts a GitHub issue. The caller assigns ID.
func ToRemoteIssue(issue *gh.Issue, owner, repo string) *types.RemoteIssue {
	return &types.RemoteIssue{
		Title:     issue.GetTitle(),
		Status:    StatusFromIssue(issue),
		Assignee:  AssigneeFromIssue(issue),
		Milestone: issue.GetMilestone().GetTitle(),
		Labels:    LabelsFromIssue(issue),
		Content:   strings.TrimSpace(issue.GetBody()),
		CreatedAt: issue.GetCreatedAt().Time,
		UpdatedAt: issue.GetUpdatedAt().Time,
		RemoteRef: FormatRef(owner, repo, issue.GetNumber()),
		URL:       issue.GetHTMLURL(),
	}
}

// IssueRequest is the create/edit payload. Every field is always sent, so
// an issue without a milestone clears the remote one with an explicit null.
type IssueRequest struct {
	Title     string   `json:"title"`
	Body      string   `json:"body"`
	State     string   `json:"state"`
	Labels    []string `json:"labels"`
	Assignees []string `json:"assignees"`
	Milestone *int     `json:"milestone"`
}

// ToIssueRequest builds the create/edit payload for a local issue.
// milestone is the resolved milestone number, or 0 for none.
func ToIssueRequest(issue *types.Issue, milestone int) *IssueRequest {
	req := &IssueRequest{
		Title:     issue.Title,
		Body:      issue.Content,
		State:     "open",
		Labels:    types.NewLabelSet(issue.Labels...).Slice(),
		Assignees: []string{},
	}
	if issue.Status.IsClosed() {
		req.State = "closed"
	} else if issue.Status != "" && issue.Status != types.StatusTodo {
		req.Labels = append(req.Labels, StatusLabelPrefix+string(issue.Status))
	}
	sort.Strings(req.Labels)
	if req.Labels == nil {
		req.Labels = []string{}
	}
	if issue.Assignee != "" {
		req.Assignees = []string{issue.Assignee}
	}
	if milestone > 0 {
		req.Milestone = &milestone
	}
	return req
}
