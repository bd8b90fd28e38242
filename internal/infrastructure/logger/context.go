package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	requestKey
	eventKey
)

// EventRef names the domain event a delivery is handling
type EventRef struct {
	Type string
	ID   string
}

// Into stores log in ctx for Ctx to find
func Into(ctx context.Context, log *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}

// WithRequest tags ctx with the HTTP request id
func WithRequest(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestKey, requestID)
}

// WithEvent tags ctx with the event being delivered, so the postings and SQL
// statements it causes can be traced back to it.
func WithEvent(ctx context.Context, eventType, eventID string) context.Context {
	return context.WithValue(ctx, eventKey, EventRef{Type: eventType, ID: eventID})
}

// RequestID returns the id set by WithRequest, or ""
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestKey).(string)
	return id
}

// Event returns the ref set by WithEvent
func Event(ctx context.Context) (EventRef, bool) {
	ref, ok := ctx.Value(eventKey).(EventRef)
	return ref, ok
}

// Fields returns the correlation fields found in ctx: trace and span ids of
// the active span, the request id and the event being delivered.
func Fields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()))
	}
	if id := RequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if ref, ok := Event(ctx); ok {
		fields = append(fields, zap.String("event_type", ref.Type), zap.String("event_id", ref.ID))
	}
	return fields
}

// For returns log carrying the correlation fields of ctx. Without any, log
// itself is returned.
func For(ctx context.Context, log *zap.Logger) *zap.Logger {
	if log == nil {
		log = zap.NewNop()
	}
	if fields := Fields(ctx); len(fields) > 0 {
		return log.With(fields...)
	}
	return log
}

// Ctx is For applied to the logger stored in ctx; outside a request or a
// delivery it discards.
//
//	logger.Ctx(ctx).Info("movement posted", zap.String("period", "2024-03"))
func Ctx(ctx context.Context) *zap.Logger {
	log, _ := ctx.Value(loggerKey).(*zap.Logger)
	return For(ctx, log)
}
