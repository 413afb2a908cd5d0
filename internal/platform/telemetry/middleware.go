package telemetry

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/jsamuelsen/quotebook/telemetry"

	// TraceIDHeader carries the trace id back to the caller.
	TraceIDHeader = "X-Trace-ID"

	// probePrefix is the route prefix of health and metrics endpoints.
	probePrefix = "/-/"
)

// Metrics holds HTTP server metrics.
type Metrics struct {
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
	activeRequests  metric.Int64UpDownCounter
}

// NewMetrics creates the HTTP server instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	var (
		m    Metrics
		errs [3]error
	)

	m.requestDuration, errs[0] = meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Quote API request duration in seconds"),
		metric.WithUnit("s"),
	)
	m.requestTotal, errs[1] = meter.Int64Counter("http.server.request.total",
		metric.WithDescription("Quote API requests by route and status"),
	)
	m.activeRequests, errs[2] = meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("Quote API requests in flight"),
	)

	if err := errors.Join(errs[:]...); err != nil {
		return nil, err
	}

	return &m, nil
}

// Middleware returns the tracing and metrics handlers, in that order.
// Probe endpoints under /-/ are not traced.
//
//	engine.Use(telemetry.Middleware("quotebook")...)
func Middleware(serviceName string) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		TracingMiddleware(serviceName),
		MetricsMiddleware(),
	}
}

// TracingMiddleware returns the otelgin tracing middleware.
func TracingMiddleware(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName, otelgin.WithFilter(func(r *http.Request) bool {
		return !strings.HasPrefix(r.URL.Path, probePrefix)
	}))
}

// MetricsMiddleware records request metrics and echoes the trace id in the
// X-Trace-ID response header.
func MetricsMiddleware() gin.HandlerFunc {
	// A failure here leaves the middleware running without metrics.
	metrics, err := NewMetrics()
	if err != nil {
		otel.Handle(err)
	}

	return func(c *gin.Context) {
		start := time.Now()

		if span := trace.SpanFromContext(c.Request.Context()); span.SpanContext().HasTraceID() {
			c.Header(TraceIDHeader, span.SpanContext().TraceID().String())
		}

		if metrics == nil {
			c.Next()

			return
		}

		route := c.FullPath()
		active := metric.WithAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
		)

		metrics.activeRequests.Add(c.Request.Context(), 1, active)
		defer metrics.activeRequests.Add(c.Request.Context(), -1, active)

		c.Next()

		done := metric.WithAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", c.Writer.Status()),
		)

		metrics.requestDuration.Record(c.Request.Context(), time.Since(start).Seconds(), done)
		metrics.requestTotal.Add(c.Request.Context(), 1, done)
	}
}

// TraceID returns the active trace id, or "" when the request is not traced.
func TraceID(c *gin.Context) string {
	sc := trace.SpanFromContext(c.Request.Context()).SpanContext()
	if !sc.HasTraceID() {
		return ""
	}

	return sc.TraceID().String()
}
