package emit

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTracer(t *testing.T) (*tracetest.InMemoryExporter, *OTelEmitter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return exporter, NewOTelEmitter(otel.Tracer("test"))
}

func TestOTelEmitter_Emit(t *testing.T) {
	exporter, emitter := setupTracer(t)

	emitter.Emit(Event{
		RunID:       "run-001",
		Computation: "fetch",
		Step:        3,
		Msg:         MsgStepExecuted,
		Level:       LevelVerbose,
		Meta: map[string]interface{}{
			"duration_ms": int64(25),
			"bytes":       128,
		},
	})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]

	if span.Name != MsgStepExecuted {
		t.Errorf("span name = %q, want %q", span.Name, MsgStepExecuted)
	}

	attrs := attributeMap(span.Attributes)
	if got := attrs["recovery.run_id"]; got != "run-001" {
		t.Errorf("run_id = %v, want run-001", got)
	}
	if got := attrs["recovery.computation"]; got != "fetch" {
		t.Errorf("computation = %v, want fetch", got)
	}
	if got := attrs["recovery.step"]; got != int64(3) {
		t.Errorf("step = %v, want 3", got)
	}
	if got := attrs["recovery.duration_ms"]; got != int64(25) {
		t.Errorf("duration_ms = %v, want 25", got)
	}
	if got := attrs["bytes"]; got != int64(128) {
		t.Errorf("bytes = %v, want 128", got)
	}

	if d := span.EndTime.Sub(span.StartTime).Milliseconds(); d != 25 {
		t.Errorf("expected span duration 25ms, got %dms", d)
	}
}

func TestOTelEmitter_ErrorStatus(t *testing.T) {
	exporter, emitter := setupTracer(t)

	emitter.Emit(Event{
		RunID:       "run-001",
		Computation: "parse",
		Msg:         MsgComputationFailed,
		Level:       LevelDebug,
		Meta:        map[string]interface{}{"error": "boom"},
	})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("expected error status, got %v", spans[0].Status.Code)
	}
	if spans[0].Status.Description != "boom" {
		t.Errorf("expected description boom, got %q", spans[0].Status.Description)
	}
}

func TestOTelEmitter_EmitBatch(t *testing.T) {
	exporter, emitter := setupTracer(t)

	err := emitter.EmitBatch(context.Background(), []Event{
		{RunID: "r", Msg: MsgComputationStart},
		{RunID: "r", Msg: MsgComputationComplete},
	})
	if err != nil {
		t.Fatalf("EmitBatch failed: %v", err)
	}
	if got := len(exporter.GetSpans()); got != 2 {
		t.Errorf("expected 2 spans, got %d", got)
	}
	if err := emitter.Flush(context.Background()); err != nil {
		t.Errorf("Flush failed: %v", err)
	}
}

func attributeMap(attrs []attribute.KeyValue) map[string]interface{} {
	m := make(map[string]interface{})
	for _, kv := range attrs {
		m[string(kv.Key)] = kv.Value.AsInterface()
	}
	return m
}
