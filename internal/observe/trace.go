package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope for all jerseyvox spans.
const tracerName = "github.com/equiproom/jerseyvox"

// Tracer returns the jerseyvox tracer from the globally registered
// [trace.TracerProvider].
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan starts a span. The caller must call span.End() when done.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// StartTurnSpan starts the span covering one voice turn, tagged with the
// turn ID. Audit entries record the same ID as their actor, so a trace
// can be joined against the audit trail.
func StartTurnSpan(ctx context.Context, turnID string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "session.turn",
		trace.WithAttributes(attribute.String("turn_id", turnID)))
}

// CorrelationID returns the active trace ID, or the empty string when the
// context carries no span with a valid trace. The HTTP middleware exposes
// it as the X-Correlation-ID response header.
func CorrelationID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// Logger returns an [slog.Logger] carrying trace_id and span_id from the
// span context in ctx, so turn logs can be matched to traces. Without an
// active span it returns the default logger unchanged.
func Logger(ctx context.Context) *slog.Logger {
	l := slog.Default()
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		l = l.With(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return l
}
