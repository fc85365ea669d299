package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartCacheSpan(t *testing.T) {
	// Create a test tracer with a span recorder
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(tracetest.NewSpanRecorder()))
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(context.Background())

	ctx := context.Background()

	tests := []struct {
		name      string
		key       string
		operation CacheOperation
	}{
		{"get with key", "tour:tour-1", CacheOperationGet},
		{"set with key", "tour:list", CacheOperationSet},
		{"delete with key", "tour:tour-2", CacheOperationDelete},
		{"get without key", "", CacheOperationGet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Create a new span recorder for each test
			spanRecorder := tracetest.NewSpanRecorder()
			tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanRecorder))
			otel.SetTracerProvider(tp)
			defer tp.Shutdown(context.Background())

			_, endSpan := StartCacheSpan(ctx, tt.key, tt.operation)
			endSpan(nil)

			spans := spanRecorder.Ended()
			if len(spans) != 1 {
				t.Fatalf("expected 1 span, got %d", len(spans))
			}

			span := spans[0]

			// Verify span name
			if span.Name() != string(tt.operation) {
				t.Errorf("expected span name %q, got %q", tt.operation, span.Name())
			}

			// Verify attributes
			attrs := span.Attributes()
			hasSystem := false
			hasOperation := false
			hasKey := false

			for _, attr := range attrs {
				switch attr.Key {
				case "db.system":
					hasSystem = true
					if attr.Value.AsString() != "redis" {
						t.Errorf("expected db.system=redis, got %s", attr.Value.AsString())
					}
				case "db.operation":
					hasOperation = true
					if attr.Value.AsString() != string(tt.operation) {
						t.Errorf("expected db.operation=%s, got %s", tt.operation, attr.Value.AsString())
					}
				case "db.redis.key":
					hasKey = true
					if attr.Value.AsString() != tt.key {
						t.Errorf("expected db.redis.key=%s, got %s", tt.key, attr.Value.AsString())
					}
				}
			}

			if !hasSystem {
				t.Error("missing db.system attribute")
			}
			if !hasOperation {
				t.Error("missing db.operation attribute")
			}
			if tt.key != "" && !hasKey {
				t.Error("missing db.redis.key attribute")
			}
			if tt.key == "" && hasKey {
				t.Error("unexpected db.redis.key attribute")
			}
		})
	}
}

func TestStartCacheSpan_WithError(t *testing.T) {
	spanRecorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanRecorder))
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(context.Background())

	ctx := context.Background()
	testErr := errors.New("redis error")

	_, endSpan := StartCacheSpan(ctx, "tour:tour-1", CacheOperationGet)
	endSpan(testErr)

	spans := spanRecorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	span := spans[0]

	// Verify error was recorded
	// Status code 2 is Error in OpenTelemetry
	if span.Status().Code.String() != "Error" {
		t.Errorf("expected error status, got %s", span.Status().Code.String())
	}

	if span.Status().Description != testErr.Error() {
		t.Errorf("expected error description %q, got %q", testErr.Error(), span.Status().Description)
	}
}

func TestStartStorageSpan(t *testing.T) {
	spanRecorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanRecorder))
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(context.Background())

	ctx := context.Background()

	_, endSpan := StartStorageSpan(ctx, "presign", "tours/tour-1/scenes/abc.jpg")
	endSpan(nil)

	spans := spanRecorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	span := spans[0]
	if span.Name() != "presign" {
		t.Errorf("expected span name presign, got %q", span.Name())
	}

	hasSystem := false
	hasKey := false
	for _, attr := range span.Attributes() {
		switch attr.Key {
		case "storage.system":
			hasSystem = true
			if attr.Value.AsString() != "r2" {
				t.Errorf("expected storage.system=r2, got %s", attr.Value.AsString())
			}
		case "storage.key":
			hasKey = true
			if attr.Value.AsString() != "tours/tour-1/scenes/abc.jpg" {
				t.Errorf("unexpected storage.key %s", attr.Value.AsString())
			}
		}
	}
	if !hasSystem {
		t.Error("missing storage.system attribute")
	}
	if !hasKey {
		t.Error("missing storage.key attribute")
	}
}

func TestStartSpan(t *testing.T) {
	spanRecorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanRecorder))
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(context.Background())

	ctx := context.Background()

	spanName := "build_navigation_hotspots"
	_, endSpan := StartSpan(ctx, spanName)
	endSpan(nil)

	spans := spanRecorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	span := spans[0]
	if span.Name() != spanName {
		t.Errorf("expected span name %q, got %q", spanName, span.Name())
	}

	// Verify success status (Unset is the default for successful operations)
	if span.Status().Code.String() != "Unset" && span.Status().Code.String() != "Ok" {
		t.Errorf("expected Unset or Ok status, got %s", span.Status().Code.String())
	}
}

func TestStartSpan_WithError(t *testing.T) {
	spanRecorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanRecorder))
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(context.Background())

	ctx := context.Background()
	testErr := errors.New("processing error")

	_, endSpan := StartSpan(ctx, "build_navigation_hotspots")
	endSpan(testErr)

	spans := spanRecorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	span := spans[0]

	// Verify error was recorded
	if span.Status().Code.String() != "Error" {
		t.Errorf("expected error status, got %s", span.Status().Code.String())
	}
}

func TestAddEvent(t *testing.T) {
	spanRecorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanRecorder))
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(context.Background())

	tracer := otel.Tracer("test")
	ctx, span := tracer.Start(context.Background(), "test-span")

	eventName := "cache_hit"
	AddEvent(ctx, eventName,
		attribute.String("cache_key", "tour:tour-1"),
		attribute.Int("ttl", 3600),
	)

	span.End()

	spans := spanRecorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	events := spans[0].Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	if events[0].Name != eventName {
		t.Errorf("expected event name %q, got %q", eventName, events[0].Name)
	}

	// Verify event attributes
	attrs := events[0].Attributes
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
}

func TestSetAttributes(t *testing.T) {
	spanRecorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanRecorder))
	otel.SetTracerProvider(tp)
	defer tp.Shutdown(context.Background())

	tracer := otel.Tracer("test")
	ctx, span := tracer.Start(context.Background(), "test-span")

	SetAttributes(ctx,
		attribute.String("client_id", "client-123"),
		attribute.String("endpoint", "/tours"),
	)

	span.End()

	spans := spanRecorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	attrs := spans[0].Attributes()
	if len(attrs) < 2 {
		t.Fatalf("expected at least 2 attributes, got %d", len(attrs))
	}

	// Verify specific attributes
	hasClientID := false
	hasEndpoint := false
	for _, attr := range attrs {
		switch attr.Key {
		case "client_id":
			hasClientID = true
			if attr.Value.AsString() != "client-123" {
				t.Errorf("expected client_id=client-123, got %s", attr.Value.AsString())
			}
		case "endpoint":
			hasEndpoint = true
			if attr.Value.AsString() != "/tours" {
				t.Errorf("expected endpoint=/tours, got %s", attr.Value.AsString())
			}
		}
	}

	if !hasClientID {
		t.Error("missing client_id attribute")
	}
	if !hasEndpoint {
		t.Error("missing endpoint attribute")
	}
}
