package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"lwt/internal/lwt"
)

// Config holds configuration parameters for OpenTelemetry tracing setup.
// This includes service identification, the OTLP endpoint, sampling configuration,
// and batch processing settings for trace delivery.
type Config struct {
	Enabled        bool          `env:"ENABLED" envDefault:"false"`
	ServiceName    string        `env:"SERVICE_NAME" envDefault:"lwt-harness"`
	ServiceVersion string        `env:"SERVICE_VERSION" envDefault:"1.0.0"`
	JaegerEndpoint string        `env:"JAEGER_ENDPOINT" envDefault:"localhost:4318"`
	SampleRate     float64       `env:"SAMPLE_RATE" envDefault:"1.0"`
	BatchTimeout   time.Duration `env:"BATCH_TIMEOUT" envDefault:"1s"`
	ExportTimeout  time.Duration `env:"EXPORT_TIMEOUT" envDefault:"30s"`
	MaxExportBatch int           `env:"MAX_EXPORT_BATCH" envDefault:"512"`
	MaxQueueSize   int           `env:"MAX_QUEUE_SIZE" envDefault:"2048"`
}

// Tracer wraps the OpenTelemetry tracer with convenience methods for store
// and harness operations.
type Tracer struct {
	tracer trace.Tracer
	system string
}

// NewTracer creates and configures a new OpenTelemetry tracer with OTLP HTTP export.
// system is reported as db.system on store spans. When tracing is disabled the
// returned tracer records nothing and the cleanup function is a no-op.
func NewTracer(config Config, system string) (*Tracer, func(context.Context) error, error) {
	if !config.Enabled {
		return NewNoopTracer(system), func(context.Context) error { return nil }, nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			attribute.String("service.environment", "development"),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := otlptracehttp.New(
		context.Background(),
		otlptracehttp.WithEndpoint(config.JaegerEndpoint),
		otlptracehttp.WithInsecure(),
		otlptracehttp.WithTimeout(config.ExportTimeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	processor := sdktrace.NewBatchSpanProcessor(
		exporter,
		sdktrace.WithBatchTimeout(config.BatchTimeout),
		sdktrace.WithExportTimeout(config.ExportTimeout),
		sdktrace.WithMaxExportBatchSize(config.MaxExportBatch),
		sdktrace.WithMaxQueueSize(config.MaxQueueSize),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(processor),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(config.SampleRate)),
	)

	otel.SetTracerProvider(tp)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	cleanup := func(ctx context.Context) error {
		// Force flush all pending spans before shutdown
		if err := tp.ForceFlush(ctx); err != nil {
			return fmt.Errorf("failed to flush traces: %w", err)
		}
		return tp.Shutdown(ctx)
	}

	return &Tracer{tracer: tp.Tracer(config.ServiceName), system: system}, cleanup, nil
}

// NewNoopTracer returns a tracer that drops every span.
func NewNoopTracer(system string) *Tracer {
	return &Tracer{tracer: noop.NewTracerProvider().Tracer("lwt"), system: system}
}

// NewTracerFromProvider builds a tracer on an existing provider, e.g. one
// backed by an in-memory exporter.
func NewTracerFromProvider(tp trace.TracerProvider, system string) *Tracer {
	return &Tracer{tracer: tp.Tracer("lwt"), system: system}
}

// StartSpan creates a new tracing span with the specified name and options.
func (t *Tracer) StartSpan(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, spanName, opts...)
}

// RecordError records an error event on the active span and sets the span status to error.
func (t *Tracer) RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetStatus explicitly sets the status code and description for the active span.
func (t *Tracer) SetStatus(ctx context.Context, code codes.Code, description string) {
	span := trace.SpanFromContext(ctx)
	span.SetStatus(code, description)
}

// WithAttributes adds key-value attributes to the active span in the context.
func (t *Tracer) WithAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attrs...)
}

// StoreAttributes creates attributes for store operations.
func (t *Tracer) StoreAttributes(operation string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("db.operation", operation),
		attribute.String("db.system", t.system),
	}
}

// KeyAttributes identifies the record an operation touches.
func (t *Tracer) KeyAttributes(key string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("lwt.key", key),
	}
}

// ResultAttributes describes a conditional update outcome.
func (t *Tracer) ResultAttributes(r lwt.Result) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Bool("lwt.applied", r.Applied()),
	}
	if actual, ok := r.Actual(); ok {
		attrs = append(attrs, attribute.String("lwt.actual", actual))
	}
	return attrs
}

// ErrorAttributes creates attributes based on error state.
func (t *Tracer) ErrorAttributes(err error) []attribute.KeyValue {
	if err == nil {
		return []attribute.KeyValue{
			attribute.Bool("error", false),
		}
	}
	return []attribute.KeyValue{
		attribute.Bool("error", true),
		attribute.String("error.type", fmt.Sprintf("%T", err)),
		attribute.String("error.message", err.Error()),
	}
}
