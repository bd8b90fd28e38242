package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
var (
	MetricCategory       = attribute.Key("category")
	MetricDirection      = attribute.Key("direction")
	MetricReferenceType  = attribute.Key("reference_type")
	MetricCarriedForward = attribute.Key("carried_forward")
)

// PeriodCloseBuckets are histogram boundaries for period close duration (seconds).
var PeriodCloseBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

// LedgerMetrics records posting and period close measurements.
type LedgerMetrics struct {
	movementsPosted     metric.Int64Counter
	duplicatePostings   metric.Int64Counter
	periodCloses        metric.Int64Counter
	periodCloseDuration metric.Float64Histogram
}

// NewLedgerMetrics creates the ledger instruments on meter
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	movements, err := meter.Int64Counter("ledger_movements_posted_total",
		metric.WithDescription("Stock movements posted to stock cards"),
		metric.WithUnit("{movement}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create counter ledger_movements_posted_total: %w", err)
	}
	duplicates, err := meter.Int64Counter("ledger_duplicate_postings_total",
		metric.WithDescription("Postings skipped because the reference was already posted"),
		metric.WithUnit("{posting}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create counter ledger_duplicate_postings_total: %w", err)
	}
	closes, err := meter.Int64Counter("ledger_period_closes_total",
		metric.WithDescription("Accounting periods closed"),
		metric.WithUnit("{period}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create counter ledger_period_closes_total: %w", err)
	}
	duration, err := meter.Float64Histogram("ledger_period_close_duration_seconds",
		metric.WithDescription("Time spent closing a period and rolling balances forward"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(PeriodCloseBuckets...))
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram ledger_period_close_duration_seconds: %w", err)
	}

	return &LedgerMetrics{
		movementsPosted:     movements,
		duplicatePostings:   duplicates,
		periodCloses:        closes,
		periodCloseDuration: duration,
	}, nil
}

// RecordMovement counts one posted movement
func (m *LedgerMetrics) RecordMovement(ctx context.Context, category, direction string) {
	m.movementsPosted.Add(ctx, 1, metric.WithAttributes(MetricCategory.String(category), MetricDirection.String(direction)))
}

// RecordDuplicate counts a posting rejected as already posted
func (m *LedgerMetrics) RecordDuplicate(ctx context.Context, referenceType string) {
	m.duplicatePostings.Add(ctx, 1, metric.WithAttributes(MetricReferenceType.String(referenceType)))
}

// RecordPeriodClose counts a close and records its duration
func (m *LedgerMetrics) RecordPeriodClose(ctx context.Context, duration time.Duration, carriedForward int) {
	m.periodCloses.Add(ctx, 1)
	m.periodCloseDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(MetricCarriedForward.Int(carriedForward)))
}
