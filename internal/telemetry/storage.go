package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/roadmap-cli/roadmap/internal/storage"
	"github.com/roadmap-cli/roadmap/internal/types"
)

const storageScope = scope + "/storage"

// InstrumentedStorage records a span, an operation count and a latency
// sample for every call into the wrapped issue store.
type InstrumentedStorage struct {
	inner  storage.Storage
	tracer trace.Tracer

	calls    metric.Int64Counter
	failures metric.Int64Counter
	latency  metric.Float64Histogram
	byStatus metric.Int64Gauge
}

// WrapStorage instruments s when telemetry is enabled and returns it
// unchanged otherwise.
func WrapStorage(s storage.Storage) storage.Storage {
	if !Enabled() {
		return s
	}
	return newInstrumentedStorage(s)
}

func newInstrumentedStorage(s storage.Storage) *InstrumentedStorage {
	m := Meter(storageScope)
	is := &InstrumentedStorage{inner: s, tracer: Tracer(storageScope)}
	is.calls, _ = m.Int64Counter("roadmap.storage.calls",
		metric.WithDescription("Issue store calls"))
	is.failures, _ = m.Int64Counter("roadmap.storage.failures",
		metric.WithDescription("Issue store calls that returned an error"))
	is.latency, _ = m.Float64Histogram("roadmap.storage.latency",
		metric.WithDescription("Issue store call latency"),
		metric.WithUnit("ms"))
	is.byStatus, _ = m.Int64Gauge("roadmap.issues",
		metric.WithDescription("Local issues per status, sampled on full listings"))
	return is
}

// observe runs fn inside a span named after op.
func (s *InstrumentedStorage) observe(ctx context.Context, op string, fn func(context.Context) error, attrs ...attribute.KeyValue) {
	attrs = append(attrs, attribute.String("storage.op", op))
	set := metric.WithAttributes(attrs...)
	ctx, span := s.tracer.Start(ctx, "storage."+op, trace.WithAttributes(attrs...))
	defer span.End()

	began := time.Now()
	err := fn(ctx)
	s.calls.Add(ctx, 1, set)
	s.latency.Record(ctx, float64(time.Since(began).Microseconds())/1000, set)
	if err != nil {
		s.failures.Add(ctx, 1, set)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func issueAttr(id string) attribute.KeyValue { return attribute.String("roadmap.issue.id", id) }

func (s *InstrumentedStorage) List(ctx context.Context) (issues []*types.Issue, err error) {
	s.observe(ctx, "list", func(ctx context.Context) error {
		issues, err = s.inner.List(ctx)
		return err
	})
	return issues, err
}

func (s *InstrumentedStorage) ListIncludingArchived(ctx context.Context) (issues []*types.Issue, err error) {
	s.observe(ctx, "list_all", func(ctx context.Context) error {
		issues, err = s.inner.ListIncludingArchived(ctx)
		return err
	})
	if err == nil {
		s.sampleStatuses(ctx, issues)
	}
	return issues, err
}

func (s *InstrumentedStorage) Get(ctx context.Context, id string) (issue *types.Issue, err error) {
	s.observe(ctx, "get", func(ctx context.Context) error {
		issue, err = s.inner.Get(ctx, id)
		return err
	}, issueAttr(id))
	return issue, err
}

func (s *InstrumentedStorage) Save(ctx context.Context, issue *types.Issue) (err error) {
	s.observe(ctx, "save", func(ctx context.Context) error {
		err = s.inner.Save(ctx, issue)
		return err
	}, issueAttr(issue.ID), attribute.String("roadmap.issue.status", string(issue.Status)))
	return err
}

func (s *InstrumentedStorage) sampleStatuses(ctx context.Context, issues []*types.Issue) {
	n := make(map[types.Status]int64, len(types.AllStatuses()))
	for _, issue := range issues {
		n[issue.Status]++
	}
	for _, st := range types.AllStatuses() {
		s.byStatus.Record(ctx, n[st], metric.WithAttributes(attribute.String("roadmap.issue.status", string(st))))
	}
}
