// Package storage holds decorators shared by every QuoteRepository adapter:
// tracing and Prometheus metrics, and a read-through cache.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/quotebook/internal/domain"
	"github.com/jsamuelsen/quotebook/internal/ports"
)

const instrumentationName = "github.com/jsamuelsen/quotebook/storage"

// Operation outcomes recorded on quotebook_store_operations_total.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Metrics are the Prometheus collectors for store operations.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics creates the store collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quotebook_store_operations_total",
			Help: "Quote store operations by operation and outcome",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quotebook_store_operation_duration_seconds",
			Help:    "Quote store operation latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	if reg == nil {
		return m, nil
	}

	// A second registration (tests, restarts within one process) reuses the
	// collectors already known to reg.
	operations, err := register(reg, m.operations)
	if err != nil {
		return nil, err
	}

	duration, err := register(reg, m.duration)
	if err != nil {
		return nil, err
	}

	m.operations = operations
	m.duration = duration

	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}

	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(C); ok {
			return existing, nil
		}
	}

	return c, err
}

func (m *Metrics) observe(operation string, started time.Time, err error) {
	m.operations.WithLabelValues(operation, outcome(err)).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case domain.IsNotFound(err):
		return OutcomeNotFound
	default:
		return OutcomeError
	}
}

// Instrumented decorates a QuoteRepository with spans and metrics.
type Instrumented struct {
	next    ports.QuoteRepository
	metrics *Metrics
	tracer  trace.Tracer
}

var _ ports.QuoteRepository = (*Instrumented)(nil)

// NewInstrumented wraps next.
func NewInstrumented(next ports.QuoteRepository, metrics *Metrics) *Instrumented {
	return &Instrumented{
		next:    next,
		metrics: metrics,
		tracer:  otel.Tracer(instrumentationName),
	}
}

func (r *Instrumented) start(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	ctx, span := r.tracer.Start(ctx, "quotes."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(attrs, attribute.String("db.operation", operation))...),
	)

	return ctx, span, time.Now()
}

func (r *Instrumented) finish(span trace.Span, operation string, started time.Time, err error) {
	defer span.End()

	if r.metrics != nil {
		r.metrics.observe(operation, started, err)
	}

	if err != nil && !domain.IsNotFound(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// Insert implements ports.QuoteRepository.
func (r *Instrumented) Insert(ctx context.Context, author, text string) (*domain.Quote, error) {
	ctx, span, started := r.start(ctx, "insert")

	q, err := r.next.Insert(ctx, author, text)
	if err == nil {
		span.SetAttributes(attribute.String("quote.id", q.ID))
	}

	r.finish(span, "insert", started, err)

	return q, err
}

// Get implements ports.QuoteRepository.
func (r *Instrumented) Get(ctx context.Context, id string) (*domain.Quote, error) {
	ctx, span, started := r.start(ctx, "get", attribute.String("quote.id", id))

	q, err := r.next.Get(ctx, id)
	r.finish(span, "get", started, err)

	return q, err
}

// ListFrom implements ports.QuoteRepository.
func (r *Instrumented) ListFrom(ctx context.Context, watermark time.Time, limit int) ([]*domain.Quote, error) {
	ctx, span, started := r.start(ctx, "list",
		attribute.Int64("quote.watermark_ms", watermarkMillis(watermark)),
		attribute.Int("quote.limit", limit),
	)

	quotes, err := r.next.ListFrom(ctx, watermark, limit)
	if err == nil {
		span.SetAttributes(attribute.Int("quote.rows", len(quotes)))
	}

	r.finish(span, "list", started, err)

	return quotes, err
}

// Update implements ports.QuoteRepository.
func (r *Instrumented) Update(ctx context.Context, id, author, text string) (*domain.Quote, error) {
	ctx, span, started := r.start(ctx, "update", attribute.String("quote.id", id))

	q, err := r.next.Update(ctx, id, author, text)
	r.finish(span, "update", started, err)

	return q, err
}

// Delete implements ports.QuoteRepository.
func (r *Instrumented) Delete(ctx context.Context, id string) (*domain.Quote, error) {
	ctx, span, started := r.start(ctx, "delete", attribute.String("quote.id", id))

	q, err := r.next.Delete(ctx, id)
	r.finish(span, "delete", started, err)

	return q, err
}

// Clear implements ports.QuoteRepository.
func (r *Instrumented) Clear(ctx context.Context) error {
	ctx, span, started := r.start(ctx, "clear")

	err := r.next.Clear(ctx)
	r.finish(span, "clear", started, err)

	return err
}

func watermarkMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}

	return t.UnixMilli()
}
