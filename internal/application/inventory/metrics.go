package inventory

import (
	"context"
	"time"
)

// LedgerMetrics receives ledger business measurements
type LedgerMetrics interface {
	RecordMovement(ctx context.Context, category, direction string)
	RecordDuplicate(ctx context.Context, referenceType string)
	RecordPeriodClose(ctx context.Context, duration time.Duration, carriedForward int)
}

type noopMetrics struct{}

func (noopMetrics) RecordMovement(context.Context, string, string)        {}
func (noopMetrics) RecordDuplicate(context.Context, string)               {}
func (noopMetrics) RecordPeriodClose(context.Context, time.Duration, int) {}
