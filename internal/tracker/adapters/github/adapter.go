// Package github registers the "github" sync backend.
//
// Local issues are matched to GitHub issues through their remote_ref
// ("github:owner/repo#12"). GitHub issues that no local issue references
// get a deterministic id derived from the ref, so repeated syncs map them
// to the same local file.
package github

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	gh "github.com/google/go-github/v68/github"
	"golang.org/x/sync/errgroup"

	ghclient "github.com/roadmap-cli/roadmap/internal/github"
	"github.com/roadmap-cli/roadmap/internal/idgen"
	"github.com/roadmap-cli/roadmap/internal/storage"
	"github.com/roadmap-cli/roadmap/internal/tracker"
	"github.com/roadmap-cli/roadmap/internal/types"
)

// pushConcurrency bounds parallel API writes during a batch push.
const pushConcurrency = 4

func init() {
	tracker.Register("github", New)
}

// Adapter implements tracker.SyncBackend on top of the GitHub REST client.
type Adapter struct {
	client *ghclient.Client
	store  storage.Storage

	mu     sync.Mutex
	remote map[string]*types.RemoteIssue // local id -> last fetched copy
}

var _ tracker.SyncBackend = (*Adapter)(nil)

// New builds an adapter from github.owner, github.repo, github.token and the
// optional github.url.
func New(cfg *tracker.Config, store storage.Storage) (tracker.SyncBackend, error) {
	owner, err := cfg.GetRequired("owner")
	if err != nil {
		return nil, err
	}
	repo, err := cfg.GetRequired("repo")
	if err != nil {
		return nil, err
	}
	token, err := cfg.GetRequired("token")
	if err != nil {
		return nil, err
	}
	client, err := ghclient.NewClient(token, owner, repo, cfg.Get("url"))
	if err != nil {
		return nil, err
	}
	return NewAdapter(client, store), nil
}

// NewAdapter wraps an existing client.
func NewAdapter(client *ghclient.Client, store storage.Storage) *Adapter {
	return &Adapter{client: client, store: store}
}

func (a *Adapter) Name() string { return "github" }

func (a *Adapter) Authenticate(ctx context.Context) error {
	if err := a.client.Authenticate(ctx); err != nil {
		return fmt.Errorf("%s/%s: %w", a.client.Owner, a.client.Repo, err)
	}
	return nil
}

// GetIssues fetches every issue in the repository and keys it by local id.
func (a *Adapter) GetIssues(ctx context.Context) (map[string]*types.RemoteIssue, error) {
	local, err := a.store.ListIncludingArchived(ctx)
	if err != nil {
		return nil, fmt.Errorf("indexing local issues: %w", err)
	}
	byRef := make(map[string]string, len(local))
	for _, issue := range local {
		if issue.RemoteRef != "" {
			byRef[issue.RemoteRef] = issue.ID
		}
	}

	issues, err := a.client.ListIssues(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*types.RemoteIssue, len(issues))
	for _, gi := range issues {
		ri := ghclient.ToRemoteIssue(gi, a.client.Owner, a.client.Repo)
		if id, ok := byRef[ri.RemoteRef]; ok {
			ri.ID = id
		} else {
			ri.ID = idgen.RemoteIssueID(ri.RemoteRef)
		}
		out[ri.ID] = ri
	}

	a.mu.Lock()
	a.remote = out
	a.mu.Unlock()
	return out, nil
}

// PushIssue edits the linked GitHub issue, or creates one and records its
// ref on the local issue.
func (a *Adapter) PushIssue(ctx context.Context, issue *types.Issue) error {
	milestone := 0
	if issue.Milestone != "" {
		n, err := a.client.MilestoneNumber(ctx, issue.Milestone)
		if err != nil {
			return err
		}
		milestone = n
	}
	req := ghclient.ToIssueRequest(issue, milestone)

	if _, _, number, ok := ghclient.ParseRef(issue.RemoteRef); ok {
		edited, err := a.client.EditIssue(ctx, number, req)
		if err != nil {
			return err
		}
		a.remember(issue.ID, edited)
		return nil
	}

	created, err := a.client.CreateIssue(ctx, req)
	if err != nil {
		return err
	}
	// Issues are created open; a done issue needs a second call to close.
	if issue.Status.IsClosed() && created.GetState() != "closed" {
		if created, err = a.client.EditIssue(ctx, created.GetNumber(), req); err != nil {
			return err
		}
	}

	linked := issue.Clone()
	linked.RemoteRef = ghclient.FormatRef(a.client.Owner, a.client.Repo, created.GetNumber())
	if err := a.store.Save(ctx, linked); err != nil {
		return fmt.Errorf("recording %s on %s: %w", linked.RemoteRef, issue.ID, err)
	}
	issue.RemoteRef = linked.RemoteRef
	a.remember(issue.ID, created)
	return nil
}

// PushIssues pushes up to pushConcurrency issues at once.
func (a *Adapter) PushIssues(ctx context.Context, issues []*types.Issue) tracker.PushResult {
	var (
		mu  sync.Mutex
		res tracker.PushResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pushConcurrency)
	for _, issue := range issues {
		g.Go(func() error {
			err := a.PushIssue(gctx, issue)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Errors = append(res.Errors, types.NewIssueError(issue.ID, types.StagePush, err))
			} else {
				res.Pushed = append(res.Pushed, issue.ID)
			}
			// Per-issue failures never cancel the rest of the batch.
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(res.Pushed)
	sort.Slice(res.Errors, func(i, j int) bool { return res.Errors[i].IssueID < res.Errors[j].IssueID })
	return res
}

// PullIssue writes the last fetched copy of id into the local store,
// keeping the local file location and creation time.
func (a *Adapter) PullIssue(ctx context.Context, id string) error {
	a.mu.Lock()
	ri, ok := a.remote[id]
	a.mu.Unlock()
	if !ok {
		return fmt.Errorf("issue %s was not fetched from GitHub", id)
	}

	pulled := ri.ToIssue()
	existing, err := a.store.Get(ctx, id)
	switch {
	case err == nil:
		pulled.Path = existing.Path
		pulled.Archived = existing.Archived
		if !existing.CreatedAt.IsZero() {
			pulled.CreatedAt = existing.CreatedAt
		}
	case errors.Is(err, storage.ErrNotFound):
	default:
		return err
	}
	pulled.SetDefaults()
	return a.store.Save(ctx, pulled)
}

// remember refreshes the cached remote copy after a successful write.
func (a *Adapter) remember(id string, issue *gh.Issue) {
	if issue == nil {
		return
	}
	ri := ghclient.ToRemoteIssue(issue, a.client.Owner, a.client.Repo)
	ri.ID = id
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.remote == nil {
		a.remote = make(map[string]*types.RemoteIssue)
	}
	a.remote[id] = ri
}
