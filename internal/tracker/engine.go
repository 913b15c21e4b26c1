package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roadmap-cli/roadmap/internal/baseline"
	"github.com/roadmap-cli/roadmap/internal/merge"
	"github.com/roadmap-cli/roadmap/internal/storage"
	"github.com/roadmap-cli/roadmap/internal/telemetry"
	"github.com/roadmap-cli/roadmap/internal/types"
)

const engineScopeName = "github.com/roadmap-cli/roadmap/tracker"

// Engine orchestrates synchronization between the local store and a backend.
type Engine struct {
	Backend  SyncBackend
	Store    storage.Storage
	Baseline BaselineProvider
	Chooser  BaselineChooser
	Logger   *slog.Logger
	Now      func() time.Time

	// Callbacks for UI feedback (optional).
	OnMessage func(msg string)
	OnWarning func(msg string)
}

// NewEngine creates a sync engine.
func NewEngine(backend SyncBackend, store storage.Storage, provider BaselineProvider) *Engine {
	return &Engine{
		Backend:  backend,
		Store:    store,
		Baseline: provider,
	}
}

// run carries the state of one Sync call between stages.
type run struct {
	opts     Options
	report   *SyncReport
	strategy types.ConflictStrategy

	local  []*types.Issue
	remote map[string]*types.RemoteIssue
	base   *types.SyncState

	records  []merge.Record
	resolved map[string]*types.Issue

	// unapplied holds ids whose changes did not reach both sides. Their
	// previous baseline entry is carried forward.
	unapplied map[string]bool
}

// Sync runs the full pipeline and always returns a report. Fatal stage
// failures, including a panic in a collaborator, are recorded in the
// report's Error; nothing is mutated before the apply stage.
func (e *Engine) Sync(ctx context.Context, opts Options) (report *SyncReport) {
	r := &run{
		opts: opts,
		report: &SyncReport{
			Backend:   e.Backend.Name(),
			DryRun:    opts.DryRun,
			StartedAt: e.now(),
		},
		resolved:  make(map[string]*types.Issue),
		unapplied: make(map[string]bool),
	}
	defer func() { r.report.FinishedAt = e.now() }()
	defer func() {
		if p := recover(); p != nil {
			e.logger().Error("sync panicked", "panic", p)
			report = r.report.fail(fmt.Errorf("%w: %v", ErrInternal, p))
		}
	}()

	ctx, span := e.tracer().Start(ctx, "sync",
		trace.WithAttributes(
			attribute.String("roadmap.backend", r.report.Backend),
			attribute.Bool("roadmap.dry_run", opts.DryRun),
		))
	defer span.End()

	if err := e.validate(r); err != nil {
		return e.failed(span, r, err)
	}

	stages := []struct {
		name string
		fn   func(context.Context, *run) error
	}{
		{"authenticate", e.authenticate},
		{"fetch", e.fetch},
		{"baseline", e.loadBaseline},
		{"classify", e.classify},
		{"resolve", e.resolve},
		{"apply", e.apply},
		{"persist", e.persist},
	}
	for _, stage := range stages {
		if err := e.stage(ctx, stage.name, r, stage.fn); err != nil {
			return e.failed(span, r, err)
		}
	}

	e.logger().Debug("sync complete",
		"backend", r.report.Backend,
		"updated", r.report.IssuesUpdated,
		"conflicts", r.report.ConflictsDetected,
		"errors", len(r.report.Errors))
	return r.report
}

func (e *Engine) validate(r *run) error {
	if r.opts.PushOnly && r.opts.PullOnly {
		return fmt.Errorf("%w: --push-only and --pull-only", ErrConflictingFlags)
	}
	strategy, err := ConflictStrategyFromFlags(r.opts.ForceLocal, r.opts.ForceRemote, r.opts.ConflictStrategy)
	if err != nil {
		return err
	}
	if !r.opts.BaselineStrategy.IsValid() {
		return fmt.Errorf("%w: unknown baseline strategy %q", ErrConflictingFlags, r.opts.BaselineStrategy)
	}
	r.strategy = strategy
	r.report.ConflictStrategy = strategy
	return nil
}

func (e *Engine) stage(ctx context.Context, name string, r *run, fn func(context.Context, *run) error) error {
	ctx, span := e.tracer().Start(ctx, "sync."+name)
	defer span.End()
	e.logger().Debug("sync stage", "stage", name)
	if err := fn(ctx, r); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (e *Engine) failed(span trace.Span, r *run, err error) *SyncReport {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	e.logger().Debug("sync failed", "error", err)
	return r.report.fail(err)
}

func (e *Engine) authenticate(ctx context.Context, r *run) error {
	if err := e.Backend.Authenticate(ctx); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrAuthentication, e.Backend.Name(), err)
	}
	return nil
}

func (e *Engine) fetch(ctx context.Context, r *run) error {
	remote, err := e.Backend.GetIssues(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRemoteFetch, err)
	}
	if remote == nil {
		remote = make(map[string]*types.RemoteIssue)
	}
	local, err := e.Store.ListIncludingArchived(ctx)
	if err != nil {
		return fmt.Errorf("list local issues: %w", err)
	}
	r.remote = remote
	r.local = local
	e.logger().Debug("fetched issues", "local", len(local), "remote", len(remote))
	return nil
}

func (e *Engine) loadBaseline(ctx context.Context, r *run) error {
	res, err := e.Baseline.Load(ctx, r.report.Backend, r.opts.DryRun)
	if err != nil {
		e.warn(r, "could not load baseline: %v", err)
		res = nil
	}
	if res != nil {
		r.report.Errors = append(r.report.Errors, res.Errors...)
		if res.State != nil {
			r.base = res.State
			r.report.BaselineSource = res.Source
			return nil
		}
	}
	return e.enforceBaseline(ctx, r)
}

// enforceBaseline seeds a baseline for a first sync. It never does so
// without an explicit strategy.
func (e *Engine) enforceBaseline(ctx context.Context, r *run) error {
	strategy := r.opts.BaselineStrategy
	if strategy == types.BaselineNone && r.opts.Interactive {
		strategy = types.BaselineInteractive
	}
	if strategy == types.BaselineInteractive && e.Chooser == nil {
		e.warn(r, "interactive baseline selection is unavailable; using local issues as the baseline")
		strategy = types.BaselineLocal
	}

	at := r.report.StartedAt
	state := types.NewSyncState(r.report.Backend, at)

	switch strategy {
	case types.BaselineNone:
		return ErrNoBaseline
	case types.BaselineLocal:
		for _, issue := range r.local {
			state.Issues[issue.ID] = types.BaseStateFromIssue(issue, at, types.OriginSnapshot)
		}
	case types.BaselineRemote:
		for id, issue := range r.remote {
			entry := types.BaseStateFromRemote(issue, at)
			entry.ID = id
			state.Issues[id] = entry
		}
	case types.BaselineInteractive:
		if err := e.chooseBaseline(ctx, r, state, at); err != nil {
			return err
		}
	}

	r.base = state
	r.report.BaselineSource = baseline.SourceEnforced
	e.logger().Debug("baseline enforced", "strategy", strategy, "issues", state.Len())
	return nil
}

func (e *Engine) chooseBaseline(ctx context.Context, r *run, state *types.SyncState, at time.Time) error {
	var choices []BaselineChoice
	for _, issue := range r.local {
		remote, ok := r.remote[issue.ID]
		if !ok || sameAsRemote(issue, remote) {
			state.Issues[issue.ID] = types.BaseStateFromIssue(issue, at, types.OriginSnapshot)
			continue
		}
		choices = append(choices, BaselineChoice{IssueID: issue.ID, Local: issue, Remote: remote})
	}
	if len(choices) == 0 {
		return nil
	}

	picked, err := e.Chooser.ChooseBaseline(ctx, choices)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNoBaseline, err)
	}
	for _, c := range choices {
		if picked[c.IssueID] == types.BaselineRemote {
			entry := types.BaseStateFromRemote(c.Remote, at)
			entry.ID = c.IssueID
			state.Issues[c.IssueID] = entry
			continue
		}
		state.Issues[c.IssueID] = types.BaseStateFromIssue(c.Local, at, types.OriginSnapshot)
	}
	return nil
}

func (e *Engine) classify(ctx context.Context, r *run) error {
	classifier := merge.NewClassifier(r.opts.NoBaselinePolicy)
	r.records = classifier.Classify(r.local, r.remote, r.base)

	s := merge.Summarize(r.records)
	r.report.ConflictsDetected = s.Conflict
	r.report.IssuesUpToDate = s.UpToDate
	r.report.IssuesUpdated = s.Update + s.Pull + s.Mixed + s.Conflict
	e.logger().Debug("classified issues",
		"up_to_date", s.UpToDate, "update", s.Update, "pull", s.Pull,
		"mixed", s.Mixed, "conflict", s.Conflict, "create", s.Creations)
	return nil
}

func (e *Engine) resolve(ctx context.Context, r *run) error {
	var pending []merge.Record
	for _, rec := range r.records {
		if rec.Class == merge.ClassConflict || rec.Class == merge.ClassMixed {
			pending = append(pending, rec)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	resolved, failed := merge.NewResolver(r.strategy).ResolveBatch(pending)
	for _, issue := range resolved {
		r.resolved[issue.ID] = issue
	}
	for _, f := range failed {
		r.unapplied[f.IssueID] = true
		e.logger().Warn("could not resolve issue", "issue", f.IssueID, "error", f.Err)
	}
	r.report.Errors = append(r.report.Errors, failed...)
	for _, rec := range pending {
		if rec.Class == merge.ClassConflict {
			if _, ok := r.resolved[rec.IssueID]; ok {
				r.report.ConflictsResolved++
			}
		}
	}
	return nil
}

// apply writes resolved issues locally, pushes one batch and pulls one
// issue at a time. In dry-run mode it only records the plan.
func (e *Engine) apply(ctx context.Context, r *run) error {
	var pushes []*types.Issue
	var pulls []string
	creates := make(map[string]bool)

	for _, rec := range r.records {
		change := Change{
			IssueID:   rec.IssueID,
			Class:     rec.Class,
			Push:      rec.Push,
			Pull:      rec.Pull,
			Conflicts: rec.ConflictFields(),
		}

		switch rec.Class {
		case merge.ClassUpToDate:
			continue

		case merge.ClassUpdate:
			change.Action = ActionPush
			if rec.Create {
				change.Action = ActionCreateRemote
			}
			if r.opts.PullOnly {
				change.Action = ActionSkip
				r.unapplied[rec.IssueID] = true
				break
			}
			pushes = append(pushes, rec.Local)
			creates[rec.IssueID] = rec.Create

		case merge.ClassPull:
			change.Action = ActionPull
			if rec.Create {
				change.Action = ActionCreateLocal
			}
			if r.opts.PushOnly {
				change.Action = ActionSkip
				r.unapplied[rec.IssueID] = true
				break
			}
			pulls = append(pulls, rec.IssueID)
			creates[rec.IssueID] = rec.Create

		case merge.ClassMixed, merge.ClassConflict:
			change.Action = ActionMerge
			issue, ok := r.resolved[rec.IssueID]
			if !ok {
				change.Action = ActionSkip
				break
			}
			if r.opts.PushOnly || r.opts.PullOnly {
				change.Action = ActionSkip
				r.unapplied[rec.IssueID] = true
				e.warn(r, "%s has changes on both sides; run a full sync to merge them", rec.IssueID)
				break
			}
			if r.opts.DryRun {
				break
			}
			if !issue.SameTrackedFields(rec.Local) {
				if err := e.Store.Save(ctx, issue); err != nil {
					r.unapplied[rec.IssueID] = true
					r.report.Errors = append(r.report.Errors, types.NewIssueError(rec.IssueID, types.StageApply, err))
					change.Action = ActionSkip
					break
				}
			}
			if !sameAsRemote(issue, rec.Remote) {
				pushes = append(pushes, issue)
			}
		}
		r.report.Changes = append(r.report.Changes, change)
	}

	if r.opts.DryRun {
		return nil
	}

	if len(pushes) > 0 {
		res := e.Backend.PushIssues(ctx, pushes)
		for _, id := range res.Pushed {
			r.report.Pushed++
			if creates[id] {
				r.report.Created++
			}
		}
		for _, f := range res.Errors {
			r.unapplied[f.IssueID] = true
			e.logger().Warn("push failed", "issue", f.IssueID, "error", f.Err)
		}
		r.report.Errors = append(r.report.Errors, res.Errors...)
		e.message("Pushed %d issue(s) to %s", len(res.Pushed), r.report.Backend)
	}

	for _, id := range pulls {
		if err := e.Backend.PullIssue(ctx, id); err != nil {
			r.unapplied[id] = true
			r.report.Errors = append(r.report.Errors, types.NewIssueError(id, types.StagePull, err))
			e.logger().Warn("pull failed", "issue", id, "error", err)
			continue
		}
		r.report.Pulled++
		if creates[id] {
			r.report.Created++
		}
	}
	if len(pulls) > 0 {
		e.message("Pulled %d issue(s) from %s", r.report.Pulled, r.report.Backend)
	}
	return nil
}

// persist snapshots the local store as the new baseline. Persist failures
// are warnings: the remote and local changes have already been applied.
func (e *Engine) persist(ctx context.Context, r *run) error {
	if r.opts.DryRun {
		return nil
	}

	local, err := e.Store.ListIncludingArchived(ctx)
	if err != nil {
		e.warn(r, "baseline not saved: list local issues: %v", err)
		return nil
	}

	at := r.report.StartedAt
	state := types.NewSyncState(r.report.Backend, at)
	for _, issue := range local {
		if r.unapplied[issue.ID] {
			continue
		}
		state.Issues[issue.ID] = types.BaseStateFromIssue(issue, at, types.OriginSnapshot)
	}
	for id := range r.unapplied {
		if prev, ok := r.base.Get(id); ok {
			state.Issues[id] = *prev
		}
	}

	if err := e.Baseline.Save(ctx, state); err != nil {
		e.warn(r, "baseline not saved: %v", err)
		return nil
	}
	r.report.BaselineSaved = true
	return nil
}

func (e *Engine) tracer() trace.Tracer {
	return telemetry.Tracer(engineScopeName)
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now().UTC()
}

func (e *Engine) message(format string, args ...interface{}) {
	if e.OnMessage != nil {
		e.OnMessage(fmt.Sprintf(format, args...))
	}
}

func (e *Engine) warn(r *run, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	r.report.Warnings = append(r.report.Warnings, msg)
	e.logger().Warn(msg)
	if e.OnWarning != nil {
		e.OnWarning(msg)
	}
}

// sameAsRemote reports whether every tracked field of issue matches remote.
func sameAsRemote(issue *types.Issue, remote *types.RemoteIssue) bool {
	if remote == nil {
		return false
	}
	for _, f := range types.TrackedFields {
		if !issue.FieldValue(f).Equal(remote.FieldValue(f)) {
			return false
		}
	}
	return true
}

// IsFatal reports whether err aborts a whole sync run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrAuthentication) ||
		errors.Is(err, ErrRemoteFetch) ||
		errors.Is(err, ErrNoBaseline) ||
		errors.Is(err, ErrConflictingFlags)
}
