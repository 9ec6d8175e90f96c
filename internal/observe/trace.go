// Package observe wires OpenTelemetry tracing for pipeline stages.
//
// Spans are recorded through the global tracer provider. Without a call to
// InitTracing the global provider is a no-op and spans cost nothing.
package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "Weaver"

// TracingConfig configures the tracer provider installed by InitTracing.
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	// Exporter receives finished spans. When nil spans are recorded but not exported.
	Exporter sdktrace.SpanExporter
}

// InitTracing installs an SDK tracer provider as the global provider and
// returns its shutdown function.
func InitTracing(cfg TracingConfig) func(context.Context) error {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "weaver"
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if cfg.Exporter != nil {
		opts = append(opts, sdktrace.WithSyncer(cfg.Exporter))
	}
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)

	return tp.Shutdown
}

// Tracer returns the pipeline tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan starts a span; the caller must end it.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// Logger enriches base with the trace and span ids found in ctx.
func Logger(ctx context.Context, base *slog.Logger) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		return base.With(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return base
}
