// Package tracing provides OpenTelemetry distributed tracing setup and utilities.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// CacheOperation represents the type of cache operation being traced.
type CacheOperation string

const (
	// CacheOperationGet represents a cache read.
	CacheOperationGet CacheOperation = "get"
	// CacheOperationSet represents a cache write.
	CacheOperationSet CacheOperation = "set"
	// CacheOperationDelete represents a cache invalidation.
	CacheOperationDelete CacheOperation = "delete"
)

// StartCacheSpan creates a new span for a Redis cache operation.
// Returns the new context and a function to end the span.
//
// Example usage:
//
//	ctx, endSpan := tracing.StartCacheSpan(ctx, "tour:tour-1", tracing.CacheOperationGet)
//	defer endSpan(err)
//	// ... perform cache operation ...
func StartCacheSpan(ctx context.Context, key string, operation CacheOperation) (context.Context, func(error)) {
	tracer := otel.Tracer("tourhost/cache")

	ctx, span := tracer.Start(ctx, string(operation),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "redis"),
			attribute.String("db.operation", string(operation)),
		),
	)

	if key != "" {
		span.SetAttributes(attribute.String("db.redis.key", key))
	}

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// StartStorageSpan creates a new span for an object storage (R2) operation.
//
// Example usage:
//
//	ctx, endSpan := tracing.StartStorageSpan(ctx, "presign", key)
//	defer endSpan(err)
func StartStorageSpan(ctx context.Context, operation, key string) (context.Context, func(error)) {
	tracer := otel.Tracer("tourhost/storage")

	ctx, span := tracer.Start(ctx, operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("storage.system", "r2"),
			attribute.String("storage.operation", operation),
		),
	)

	if key != "" {
		span.SetAttributes(attribute.String("storage.key", key))
	}

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// StartSpan creates a new span for a general operation.
// Returns the new context and a function to end the span.
//
// Example usage:
//
//	ctx, endSpan := tracing.StartSpan(ctx, "build_navigation_hotspots")
//	defer endSpan(err)
//	// ... perform operation ...
func StartSpan(ctx context.Context, name string) (context.Context, func(error)) {
	tracer := otel.Tracer("tourhost")

	ctx, span := tracer.Start(ctx, name)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// AddEvent adds an event to the current span.
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SetAttributes sets attributes on the current span.
func SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attrs...)
}
