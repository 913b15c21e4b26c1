package tracker

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/roadmap-cli/roadmap/internal/telemetry"
	"github.com/roadmap-cli/roadmap/internal/types"
)

const backendScopeName = "github.com/roadmap-cli/roadmap/backend"

// instrumentedBackend decorates a SyncBackend with spans and metrics.
type instrumentedBackend struct {
	inner  SyncBackend
	tracer trace.Tracer
	ops    metric.Int64Counter
	dur    metric.Float64Histogram
	errs   metric.Int64Counter
}

// WrapBackend returns b decorated with OTel instrumentation, or b itself
// when telemetry is disabled.
func WrapBackend(b SyncBackend) SyncBackend {
	if !telemetry.Enabled() {
		return b
	}
	return newInstrumentedBackend(b)
}

func newInstrumentedBackend(b SyncBackend) *instrumentedBackend {
	m := telemetry.Meter(backendScopeName)
	ops, _ := m.Int64Counter("roadmap.backend.operations",
		metric.WithDescription("Total backend operations executed"),
	)
	dur, _ := m.Float64Histogram("roadmap.backend.operation.duration",
		metric.WithDescription("Backend operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("roadmap.backend.errors",
		metric.WithDescription("Total backend operation errors"),
	)
	return &instrumentedBackend{
		inner:  b,
		tracer: telemetry.Tracer(backendScopeName),
		ops:    ops,
		dur:    dur,
		errs:   errs,
	}
}

func (b *instrumentedBackend) op(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	all := append([]attribute.KeyValue{
		attribute.String("roadmap.backend", b.inner.Name()),
		attribute.String("roadmap.backend.operation", name),
	}, attrs...)
	ctx, span := b.tracer.Start(ctx, "backend."+name,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	b.ops.Add(ctx, 1, metric.WithAttributes(all...))
	return ctx, span, time.Now()
}

func (b *instrumentedBackend) done(ctx context.Context, span trace.Span, start time.Time, err error) {
	b.dur.Record(ctx, float64(time.Since(start).Milliseconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		b.errs.Add(ctx, 1)
	}
	span.End()
}

func (b *instrumentedBackend) Name() string { return b.inner.Name() }

func (b *instrumentedBackend) Authenticate(ctx context.Context) error {
	ctx, span, t := b.op(ctx, "Authenticate")
	err := b.inner.Authenticate(ctx)
	b.done(ctx, span, t, err)
	return err
}

func (b *instrumentedBackend) GetIssues(ctx context.Context) (map[string]*types.RemoteIssue, error) {
	ctx, span, t := b.op(ctx, "GetIssues")
	v, err := b.inner.GetIssues(ctx)
	span.SetAttributes(attribute.Int("roadmap.issue.count", len(v)))
	b.done(ctx, span, t, err)
	return v, err
}

func (b *instrumentedBackend) PushIssue(ctx context.Context, issue *types.Issue) error {
	ctx, span, t := b.op(ctx, "PushIssue", attribute.String("roadmap.issue.id", issue.ID))
	err := b.inner.PushIssue(ctx, issue)
	b.done(ctx, span, t, err)
	return err
}

func (b *instrumentedBackend) PushIssues(ctx context.Context, issues []*types.Issue) PushResult {
	ctx, span, t := b.op(ctx, "PushIssues", attribute.Int("roadmap.issue.count", len(issues)))
	res := b.inner.PushIssues(ctx, issues)
	span.SetAttributes(attribute.Int("roadmap.push.failed", len(res.Errors)))
	if len(res.Errors) > 0 {
		b.errs.Add(ctx, int64(len(res.Errors)))
	}
	b.done(ctx, span, t, nil)
	return res
}

func (b *instrumentedBackend) PullIssue(ctx context.Context, id string) error {
	ctx, span, t := b.op(ctx, "PullIssue", attribute.String("roadmap.issue.id", id))
	err := b.inner.PullIssue(ctx, id)
	b.done(ctx, span, t, err)
	return err
}
