package emit

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter implements Emitter by turning each event into an
// OpenTelemetry span.
//
// Each span has:
//   - Name: event.Msg (e.g. "step_executed")
//   - Attributes: recovery.run_id, recovery.computation, recovery.step,
//     recovery.level and every event.Meta entry
//   - Status: Error when event.Meta["error"] is a string
//
// Events are points in time, so spans are ended immediately. When the event
// carries "duration_ms", the span start is backdated by that duration.
//
// Usage:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
//	emitter := emit.NewOTelEmitter(otel.Tracer("recovery-go"))
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter creates an OTelEmitter using tracer.
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

// Emit creates and ends a span for the event.
func (o *OTelEmitter) Emit(event Event) {
	o.emit(context.Background(), event)
}

// EmitBatch creates one span per event under ctx.
func (o *OTelEmitter) EmitBatch(ctx context.Context, events []Event) error {
	for _, event := range events {
		o.emit(ctx, event)
	}
	return nil
}

func (o *OTelEmitter) emit(ctx context.Context, event Event) {
	end := time.Now()
	start := end
	if d, ok := durationMillis(event.Meta["duration_ms"]); ok {
		start = end.Add(-d)
	}

	_, span := o.tracer.Start(ctx, event.Msg, trace.WithTimestamp(start))

	span.SetAttributes(
		attribute.String("recovery.run_id", event.RunID),
		attribute.String("recovery.computation", event.Computation),
		attribute.Int("recovery.step", event.Step),
		attribute.String("recovery.level", event.Level.String()),
	)
	addMetadataAttributes(span, event.Meta)

	if msg, ok := event.Meta["error"].(string); ok {
		span.SetStatus(codes.Error, msg)
		span.RecordError(fmt.Errorf("%s", msg))
	}

	span.End(trace.WithTimestamp(end))
}

// Flush forces export of pending spans when the global provider supports it.
func (o *OTelEmitter) Flush(ctx context.Context) error {
	type flusher interface {
		ForceFlush(context.Context) error
	}

	if f, ok := otel.GetTracerProvider().(flusher); ok {
		return f.ForceFlush(ctx)
	}
	return nil
}

func addMetadataAttributes(span trace.Span, meta map[string]interface{}) {
	for key, value := range meta {
		attrKey := key
		switch key {
		case "duration_ms":
			attrKey = "recovery.duration_ms"
		case "recovered":
			attrKey = "recovery.recovered"
		case "location":
			attrKey = "recovery.location"
		}

		switch v := value.(type) {
		case string:
			span.SetAttributes(attribute.String(attrKey, v))
		case int:
			span.SetAttributes(attribute.Int(attrKey, v))
		case int64:
			span.SetAttributes(attribute.Int64(attrKey, v))
		case float64:
			span.SetAttributes(attribute.Float64(attrKey, v))
		case bool:
			span.SetAttributes(attribute.Bool(attrKey, v))
		case time.Duration:
			span.SetAttributes(attribute.Int64(attrKey, int64(v/time.Millisecond)))
		default:
			span.SetAttributes(attribute.String(attrKey, fmt.Sprintf("%v", v)))
		}
	}
}

func durationMillis(v interface{}) (time.Duration, bool) {
	switch d := v.(type) {
	case int64:
		return time.Duration(d) * time.Millisecond, true
	case int:
		return time.Duration(d) * time.Millisecond, true
	case float64:
		return time.Duration(d * float64(time.Millisecond)), true
	default:
		return 0, false
	}
}
