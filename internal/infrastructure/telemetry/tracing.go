package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of ledger spans
const TracerName = "stockledger"

// Span attribute keys of ledger operations
const (
	AttrCategory       = attribute.Key("ledger.category")
	AttrLines          = attribute.Key("ledger.lines")
	AttrPeriodID       = attribute.Key("ledger.period_id")
	AttrPeriod         = attribute.Key("ledger.period")
	AttrNextPeriod     = attribute.Key("ledger.next_period")
	AttrCarriedForward = attribute.Key("ledger.carried_forward")
	AttrProductID      = attribute.Key("ledger.product_id")
)

// Span is a ledger operation span. Its status follows the error the operation
// returns:
//
//	func (p *Poster) Post(ctx context.Context) (err error) {
//		ctx, span := telemetry.Start(ctx, "ledger.post")
//		defer span.Finish(&err)
type Span struct {
	trace.Span
}

// Start opens an internal span on the global tracer provider
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, Span) {
	ctx, span := otel.Tracer(TracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	return ctx, Span{span}
}

// Annotate adds attributes learned while the operation ran
func (s Span) Annotate(attrs ...attribute.KeyValue) {
	s.SetAttributes(attrs...)
}

// Finish ends the span, recording *errp as its error when set
func (s Span) Finish(errp *error) {
	if errp != nil && *errp != nil {
		s.RecordError(*errp)
		s.SetStatus(codes.Error, (*errp).Error())
	} else {
		s.SetStatus(codes.Ok, "")
	}
	s.End()
}
