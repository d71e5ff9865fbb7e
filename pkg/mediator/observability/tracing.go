package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the mediator tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("mediator")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartRegisterSpan starts a span covering a registration and the
	// cascade of callbacks it triggers.
	StartRegisterSpan(ctx context.Context, name, kind string) (context.Context, trace.Span)

	// StartResolveSpan starts a span for invoking a resolved connection.
	StartResolveSpan(ctx context.Context, ref string, names []string) (context.Context, trace.Span)

	// StartReplaySpan starts a span for replaying the registry to a new subscription.
	StartReplaySpan(ctx context.Context, ref, filter string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
// A nil tr means the package tracer.
type otelSpanManager struct {
	tr trace.Tracer
}

func (m *otelSpanManager) activeTracer() trace.Tracer {
	if m.tr != nil {
		return m.tr
	}
	return tracer
}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// NewSpanManagerWithProvider returns a SpanManager that uses a tracer from
// the given provider instead of the global one.
func NewSpanManagerWithProvider(provider trace.TracerProvider) SpanManager {
	return &otelSpanManager{tr: provider.Tracer("mediator")}
}

// StartRegisterSpan starts a span for a registration.
func (m *otelSpanManager) StartRegisterSpan(ctx context.Context, name, kind string) (context.Context, trace.Span) {
	return m.activeTracer().Start(ctx, "mediator.register",
		trace.WithAttributes(
			attribute.String("mediator.name", name),
			attribute.String("mediator.kind", kind),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartResolveSpan starts a span for a resolved connection.
func (m *otelSpanManager) StartResolveSpan(ctx context.Context, ref string, names []string) (context.Context, trace.Span) {
	return m.activeTracer().Start(ctx, "mediator.resolve",
		trace.WithAttributes(
			attribute.String("mediator.ref", ref),
			attribute.StringSlice("mediator.names", names),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartReplaySpan starts a span for a subscription replay.
func (m *otelSpanManager) StartReplaySpan(ctx context.Context, ref, filter string) (context.Context, trace.Span) {
	return m.activeTracer().Start(ctx, "mediator.replay",
		trace.WithAttributes(
			attribute.String("mediator.ref", ref),
			attribute.String("mediator.filter", filter),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	EndSpanWithError(span, err)
}

// AddSpanEvent adds an event to the current span.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	AddSpanEvent(ctx, name, attrs...)
}

// EndSpanWithError completes a span, optionally recording an error.
func EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span in context.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
