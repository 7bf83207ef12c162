package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name used for every stage0 span.
const TracerName = "github.com/gxo-labs/stage0"

// StartSpan starts a span named name on tracer with the given attributes.
// A nil tracer yields a no-op span.
func StartSpan(ctx context.Context, tracer oteltrace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, oteltrace.Span) {
	if tracer == nil {
		tracer = oteltrace.NewNoopTracerProvider().Tracer(TracerName)
	}
	return tracer.Start(ctx, name, oteltrace.WithAttributes(attrs...))
}

// EndSpan records err on span (if any), sets the status, and ends it.
func EndSpan(span oteltrace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
