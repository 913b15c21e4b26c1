// Package github wraps the GitHub REST API for issue sync.
//
// Rate-limited calls are retried with exponential backoff; all other API
// errors are returned immediately.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	gh "github.com/google/go-github/v68/github"

	"github.com/roadmap-cli/roadmap/internal/debug"
)

const (
	// DefaultTimeout is the HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// MaxPageSize is the number of issues fetched per page.
	MaxPageSize = 100

	// MaxPages bounds pagination against malformed Link headers.
	MaxPages = 1000

	// DefaultMaxRetryTime caps the total time spent retrying one call.
	DefaultMaxRetryTime = 2 * time.Minute
)

// ErrNotFound is returned when an issue or repository does not exist.
var ErrNotFound = errors.New("not found on GitHub")

// Client talks to one repository.
type Client struct {
	Owner string
	Repo  string

	gh           *gh.Client
	maxRetryTime time.Duration
	initialDelay time.Duration

	mu         sync.Mutex
	milestones map[string]int // title -> number
}

// NewClient creates a client for owner/repo. baseURL selects a GitHub
// Enterprise server; empty means api.github.com.
func NewClient(token, owner, repo, baseURL string) (*Client, error) {
	client := gh.NewClient(&http.Client{Timeout: DefaultTimeout})
	if token != "" {
		client = client.WithAuthToken(token)
	}
	if baseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub URL %q: %w", baseURL, err)
		}
	}
	return newClient(client, owner, repo), nil
}

// NewClientWithHTTPClient creates a client against an arbitrary API root.
// Tests use it with httptest servers.
func NewClientWithHTTPClient(httpClient *http.Client, apiURL, owner, repo string) (*Client, error) {
	client := gh.NewClient(httpClient)
	u, err := url.Parse(strings.TrimSuffix(apiURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid API URL %q: %w", apiURL, err)
	}
	client.BaseURL = u
	c := newClient(client, owner, repo)
	c.initialDelay = 10 * time.Millisecond
	c.maxRetryTime = 2 * time.Second
	return c, nil
}

// WithToken returns a client for the same repository that authenticates
// with token. The milestone cache is not shared.
func (c *Client) WithToken(token string) *Client {
	cp := newClient(c.gh.WithAuthToken(token), c.Owner, c.Repo)
	cp.maxRetryTime = c.maxRetryTime
	cp.initialDelay = c.initialDelay
	return cp
}

func newClient(client *gh.Client, owner, repo string) *Client {
	return &Client{
		Owner:        owner,
		Repo:         repo,
		gh:           client,
		maxRetryTime: DefaultMaxRetryTime,
		initialDelay: time.Second,
	}
}

// call runs fn, retrying while GitHub reports a rate limit.
func (c *Client) call(ctx context.Context, op string, fn func() (*gh.Response, error)) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialDelay
	b.MaxElapsedTime = c.maxRetryTime

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		resp, err := fn()
		if err == nil {
			return nil
		}
		if wait, limited := rateLimitWait(err); limited {
			if wait > 0 && wait <= c.maxRetryTime {
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return backoff.Permanent(ctx.Err())
				}
			}
			return err
		}
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return backoff.Permanent(fmt.Errorf("%s: %w", op, ErrNotFound))
		}
		return backoff.Permanent(fmt.Errorf("%s: %w", op, err))
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		debug.Logf("github %s rate limited (attempt %d), retrying in %s", op, attempt, next)
	})
	if err == nil {
		return nil
	}
	var rl *gh.RateLimitError
	var abuse *gh.AbuseRateLimitError
	if errors.As(err, &rl) || errors.As(err, &abuse) {
		return fmt.Errorf("%s: rate limited after %d attempts: %w", op, attempt, err)
	}
	return err
}

// rateLimitWait reports whether err is a rate limit and how long GitHub
// asked us to wait.
func rateLimitWait(err error) (time.Duration, bool) {
	var rl *gh.RateLimitError
	if errors.As(err, &rl) {
		return time.Until(rl.Rate.Reset.Time), true
	}
	var abuse *gh.AbuseRateLimitError
	if errors.As(err, &abuse) {
		return abuse.GetRetryAfter(), true
	}
	return 0, false
}

// Authenticate checks that the token can read the repository.
func (c *Client) Authenticate(ctx context.Context) error {
	return c.call(ctx, "get repository", func() (*gh.Response, error) {
		_, resp, err := c.gh.Repositories.Get(ctx, c.Owner, c.Repo)
		return resp, err
	})
}

// ListIssues returns every issue in the repository, open and closed.
// Pull requests are skipped.
func (c *Client) ListIssues(ctx context.Context) ([]*gh.Issue, error) {
	opts := &gh.IssueListByRepoOptions{
		State:       "all",
		Sort:        "created",
		Direction:   "asc",
		ListOptions: gh.ListOptions{PerPage: MaxPageSize},
	}

	var all []*gh.Issue
	for page := 0; page < MaxPages; page++ {
		var batch []*gh.Issue
		var next int
		err := c.call(ctx, "list issues", func() (*gh.Response, error) {
			issues, resp, err := c.gh.Issues.ListByRepo(ctx, c.Owner, c.Repo, opts)
			batch = issues
			if resp != nil {
				next = resp.NextPage
			}
			return resp, err
		})
		if err != nil {
			return nil, err
		}
		for _, issue := range batch {
			if issue.IsPullRequest() {
				continue
			}
			all = append(all, issue)
		}
		if next == 0 {
			return all, nil
		}
		opts.Page = next
	}
	return all, nil
}

// CreateIssue opens a new issue.
func (c *Client) CreateIssue(ctx context.Context, req *IssueRequest) (*gh.Issue, error) {
	return c.sendIssue(ctx, "create issue", http.MethodPost, fmt.Sprintf("repos/%s/%s/issues", c.Owner, c.Repo), req)
}

// EditIssue updates issue number.
func (c *Client) EditIssue(ctx context.Context, number int, req *IssueRequest) (*gh.Issue, error) {
	return c.sendIssue(ctx, fmt.Sprintf("edit issue #%d", number), http.MethodPatch,
		fmt.Sprintf("repos/%s/%s/issues/%d", c.Owner, c.Repo, number), req)
}

// sendIssue posts req as-is; gh.IssueRequest omits a cleared milestone.
func (c *Client) sendIssue(ctx context.Context, op, method, path string, req *IssueRequest) (*gh.Issue, error) {
	var issue *gh.Issue
	err := c.call(ctx, op, func() (*gh.Response, error) {
		httpReq, err := c.gh.NewRequest(method, path, req)
		if err != nil {
			return nil, err
		}
		out := new(gh.Issue)
		resp, err := c.gh.Do(ctx, httpReq, out)
		if err == nil {
			issue = out
		}
		return resp, err
	})
	return issue, err
}

// MilestoneNumber resolves a milestone title, creating the milestone when
// it does not exist yet.
func (c *Client) MilestoneNumber(ctx context.Context, title string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.milestones == nil {
		if err := c.loadMilestones(ctx); err != nil {
			return 0, err
		}
	}
	if n, ok := c.milestones[title]; ok {
		return n, nil
	}

	var created *gh.Milestone
	err := c.call(ctx, "create milestone", func() (*gh.Response, error) {
		m, resp, err := c.gh.Issues.CreateMilestone(ctx, c.Owner, c.Repo, &gh.Milestone{Title: gh.Ptr(title)})
		created = m
		return resp, err
	})
	if err != nil {
		return 0, err
	}
	c.milestones[title] = created.GetNumber()
	return created.GetNumber(), nil
}

func (c *Client) loadMilestones(ctx context.Context) error {
	opts := &gh.MilestoneListOptions{State: "all", ListOptions: gh.ListOptions{PerPage: MaxPageSize}}
	milestones := make(map[string]int)
	for page := 0; page < MaxPages; page++ {
		var batch []*gh.Milestone
		var next int
		err := c.call(ctx, "list milestones", func() (*gh.Response, error) {
			ms, resp, err := c.gh.Issues.ListMilestones(ctx, c.Owner, c.Repo, opts)
			batch = ms
			if resp != nil {
				next = resp.NextPage
			}
			return resp, err
		})
		if err != nil {
			return err
		}
		for _, m := range batch {
			milestones[m.GetTitle()] = m.GetNumber()
		}
		if next == 0 {
			break
		}
		opts.Page = next
	}
	c.milestones = milestones
	return nil
}
