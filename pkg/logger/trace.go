package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// TraceFields returns the trace_id/span_id pair of the span carried by ctx.
// Fields are omitted when ctx carries no valid span.
func TraceFields(ctx context.Context) []zap.Field {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}

	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}

// L returns the global logger enriched with the trace fields of ctx.
func L(ctx context.Context) *zap.Logger {
	return zap.L().With(TraceFields(ctx)...)
}
