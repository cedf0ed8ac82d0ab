package quill

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/quillorm/quill"
	meterName  = "github.com/quillorm/quill"
)

// Metrics holds the OpenTelemetry metric instruments.
type Metrics struct {
	QueryCount    metric.Int64Counter
	QueryDuration metric.Float64Histogram
	QueryErrors   metric.Int64Counter
}

// ObservabilityConfig holds logging, tracing, and metrics configuration.
type ObservabilityConfig struct {
	Logger             *slog.Logger
	Tracer             trace.Tracer
	Meter              metric.Meter
	Metrics            *Metrics
	SlowQueryThreshold time.Duration
	LogQueries         bool // Log all queries (debug mode)
}

// defaultObservabilityConfig returns a config with no logging/tracing/metrics.
func defaultObservabilityConfig() *ObservabilityConfig {
	return &ObservabilityConfig{
		SlowQueryThreshold: 200 * time.Millisecond,
	}
}

// WithLogger sets the structured logger for the database.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(d *Database) {
		d.obs.Logger = logger
	}
}

// WithTracer sets the OpenTelemetry tracer for the database.
func WithTracer(tracer trace.Tracer) DatabaseOption {
	return func(d *Database) {
		d.obs.Tracer = tracer
	}
}

// WithDefaultTracer uses the global OpenTelemetry tracer.
func WithDefaultTracer() DatabaseOption {
	return func(d *Database) {
		d.obs.Tracer = otel.Tracer(tracerName)
	}
}

// WithMeter sets the OpenTelemetry meter for metrics.
func WithMeter(meter metric.Meter) DatabaseOption {
	return func(d *Database) {
		d.obs.Meter = meter
		d.obs.Metrics = initMetrics(meter)
	}
}

// WithDefaultMeter uses the global OpenTelemetry meter.
func WithDefaultMeter() DatabaseOption {
	return func(d *Database) {
		meter := otel.Meter(meterName)
		d.obs.Meter = meter
		d.obs.Metrics = initMetrics(meter)
	}
}

// WithSlowQueryThreshold sets the slow query threshold for logging.
func WithSlowQueryThreshold(t time.Duration) DatabaseOption {
	return func(d *Database) {
		d.obs.SlowQueryThreshold = t
	}
}

// WithQueryLogging enables logging of all statements.
func WithQueryLogging(enabled bool) DatabaseOption {
	return func(d *Database) {
		d.obs.LogQueries = enabled
	}
}

// initMetrics creates all metric instruments.
func initMetrics(meter metric.Meter) *Metrics {
	queryCount, _ := meter.Int64Counter("quill.query.count",
		metric.WithDescription("Total number of SQL statements executed"),
		metric.WithUnit("{query}"),
	)

	queryDuration, _ := meter.Float64Histogram("quill.query.duration",
		metric.WithDescription("Statement execution duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
	)

	queryErrors, _ := meter.Int64Counter("quill.query.errors",
		metric.WithDescription("Total number of statement errors"),
		metric.WithUnit("{error}"),
	)

	return &Metrics{
		QueryCount:    queryCount,
		QueryDuration: queryDuration,
		QueryErrors:   queryErrors,
	}
}

// spanWrapper wraps a trace.Span to handle nil spans gracefully.
type spanWrapper struct {
	span trace.Span
}

func (w spanWrapper) End() {
	if w.span != nil {
		w.span.End()
	}
}

func (w spanWrapper) RecordError(err error) {
	if w.span != nil {
		w.span.RecordError(err)
	}
}

func (w spanWrapper) SetAttributes(kv ...attribute.KeyValue) {
	if w.span != nil {
		w.span.SetAttributes(kv...)
	}
}

// startSpan starts a new span if tracing is enabled.
func (d *Database) startSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, spanWrapper) {
	if d.obs.Tracer == nil {
		return ctx, spanWrapper{nil}
	}
	ctx, span := d.obs.Tracer.Start(ctx, name, opts...)
	return ctx, spanWrapper{span}
}

// recordMetrics records statement metrics if metrics are enabled.
func (d *Database) recordMetrics(ctx context.Context, operation string, duration time.Duration, err error) {
	if d.obs.Metrics == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("db.operation", operation),
		attribute.String("db.system", d.dialect.Name()),
	)

	d.obs.Metrics.QueryCount.Add(ctx, 1, attrs)
	d.obs.Metrics.QueryDuration.Record(ctx, float64(duration.Milliseconds()), attrs)

	if err != nil {
		d.obs.Metrics.QueryErrors.Add(ctx, 1, attrs)
	}
}

// logQuery logs one statement execution.
func (d *Database) logQuery(ctx context.Context, operation, query string, duration time.Duration, err error) {
	if d.obs.Logger == nil {
		return
	}

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.Duration("duration", duration),
	}

	if d.obs.LogQueries {
		attrs = append(attrs, slog.String("query", query))
	}

	if err != nil {
		d.obs.Logger.LogAttrs(ctx, slog.LevelError, "statement failed", append(attrs, slog.String("error", err.Error()))...)
		return
	}

	if duration > d.obs.SlowQueryThreshold {
		d.obs.Logger.LogAttrs(ctx, slog.LevelWarn, "slow statement", attrs...)
		return
	}

	if d.obs.LogQueries {
		d.obs.Logger.LogAttrs(ctx, slog.LevelDebug, "statement executed", attrs...)
	}
}
