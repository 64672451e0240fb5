package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for tasklist spans.
var (
	AttrTaskID     = attribute.Key("tasklist.task.id")
	AttrStorageKey = attribute.Key("tasklist.storage.key")
	AttrTaskCount  = attribute.Key("tasklist.task.count")
	AttrOperation  = attribute.Key("tasklist.operation")
)

// StartSpan starts an internal span with common attributes.
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}
