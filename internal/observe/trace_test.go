package observe

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// Not parallel: InitTracing replaces the global tracer provider.
func TestInitTracingExportsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	shutdown := InitTracing(TracingConfig{ServiceName: "weaver-test", ServiceVersion: "dev", Exporter: exporter})
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			t.Fatalf("shutdown: %v", err)
		}
	}()

	ctx, parent := StartSpan(context.Background(), "pipeline.run")
	_, child := StartSpan(ctx, "pipeline.collect")
	child.End()
	parent.End()

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Name != "pipeline.collect" || spans[1].Name != "pipeline.run" {
		t.Fatalf("unexpected span order: %s, %s", spans[0].Name, spans[1].Name)
	}
	if spans[0].Parent.SpanID() != spans[1].SpanContext.SpanID() {
		t.Fatal("child span not linked to parent")
	}

	var service string
	for _, kv := range spans[1].Resource.Attributes() {
		if kv.Key == "service.name" {
			service = kv.Value.AsString()
		}
	}
	if service != "weaver-test" {
		t.Fatalf("unexpected service name %q", service)
	}
}

func TestLoggerAddsTraceIDs(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	shutdown := InitTracing(TracingConfig{Exporter: exporter})
	defer func() { _ = shutdown(context.Background()) }()

	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	Logger(context.Background(), base).Info("outside")
	if strings.Contains(buf.String(), "trace_id") {
		t.Fatalf("unexpected trace id without span: %s", buf.String())
	}

	ctx, span := StartSpan(context.Background(), "pipeline.write")
	defer span.End()
	buf.Reset()
	Logger(ctx, base).Info("inside")
	if !strings.Contains(buf.String(), "trace_id="+span.SpanContext().TraceID().String()) {
		t.Fatalf("trace id missing: %s", buf.String())
	}
}

func TestLogExporterWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	shutdown := InitTracing(TracingConfig{Exporter: NewLogExporter(logger)})
	defer func() { _ = shutdown(context.Background()) }()

	_, span := StartSpan(context.Background(), "pipeline.enrich")
	span.SetAttributes(attribute.Int("articles", 3))
	span.End()

	out := buf.String()
	for _, want := range []string{`msg="span finished"`, "span=pipeline.enrich", "articles=3", "status=Unset"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %s", want, out)
		}
	}
}
