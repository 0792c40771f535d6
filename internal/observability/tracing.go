package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/JaimeStill/attest/internal/config"
	"github.com/JaimeStill/attest/pkg/graph"
)

// Tracer turns stage invocations into spans. Sibling branches of one run
// share the run span as parent when the caller started one.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer wraps t. A nil t uses the global provider.
func NewTracer(t trace.Tracer) *Tracer {
	if t == nil {
		t = otel.Tracer("github.com/JaimeStill/attest")
	}
	return &Tracer{tracer: t}
}

// Start opens a span outside the stage graph, such as the whole
// validation request.
func (t *Tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (t *Tracer) StageStarted(ctx context.Context, e graph.Event) context.Context {
	ctx, _ = t.tracer.Start(ctx, e.Graph+"/"+e.Stage,
		trace.WithAttributes(
			attribute.String("attest.run_id", e.RunID.String()),
			attribute.String("attest.graph", e.Graph),
			attribute.String("attest.stage", e.Stage),
			attribute.Int("attest.step", e.Step),
			attribute.Int("attest.branch", e.Branch),
		),
	)
	return ctx
}

func (t *Tracer) StageFinished(ctx context.Context, e graph.Event) {
	span := trace.SpanFromContext(ctx)
	if e.Err != nil {
		span.RecordError(e.Err)
		span.SetStatus(codes.Error, e.Err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// SetupTracing installs an OTLP/gRPC exporting tracer provider as the
// global provider. When tracing is disabled the global no-op provider is
// left in place. The returned function flushes and stops the exporter.
func SetupTracing(ctx context.Context, cfg *config.TracingConfig, version string) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("otlp exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", version),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}
