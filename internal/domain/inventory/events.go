package inventory

import (
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constants
const (
	AggregateTypePeriod      = "Period"
	AggregateTypeStockOut    = "StockOut"
	AggregateTypeStockOpname = "StockOpname"
)

// Event type constants
const (
	EventTypeStockOutApproved     = "StockOutApproved"
	EventTypeStockOpnameApproved  = "StockOpnameApproved"
	EventTypePeriodCloseRequested = "PeriodCloseRequested"
	EventTypePeriodClosed         = "PeriodClosed"
	EventTypePeriodStarted        = "PeriodStarted"
)

// StockOutLine is one product leaving the store on a stock-out document
type StockOutLine struct {
	LineID       uuid.UUID        `json:"line_id"`
	ProductID    uuid.UUID        `json:"product_id"`
	Unit         string           `json:"unit"`
	Quantity     decimal.Decimal  `json:"quantity"`
	BaseQuantity *decimal.Decimal `json:"base_quantity,omitempty"`
}

// StockOutApprovedEvent is published when a stock-out (damage, usage, transfer out) is approved.
// The movement lands in the month of OutDate.
type StockOutApprovedEvent struct {
	shared.EventHeader
	StockOutID     uuid.UUID      `json:"stock_out_id"`
	DocumentNumber string         `json:"document_number"`
	OutDate        time.Time      `json:"out_date"`
	ApprovedAt     *time.Time     `json:"approved_at,omitempty"`
	Lines          []StockOutLine `json:"lines"`
}

// NewStockOutApprovedEvent creates a new StockOutApprovedEvent
func NewStockOutApprovedEvent(stockOutID uuid.UUID, number string, outDate time.Time, approvedAt *time.Time, lines []StockOutLine) *StockOutApprovedEvent {
	return &StockOutApprovedEvent{
		EventHeader:    shared.NewEventHeader(EventTypeStockOutApproved, AggregateTypeStockOut, stockOutID),
		StockOutID:     stockOutID,
		DocumentNumber: number,
		OutDate:        outDate,
		ApprovedAt:     approvedAt,
		Lines:          lines,
	}
}

// StockOpnameLine is the counted result for one product
type StockOpnameLine struct {
	LineID          uuid.UUID       `json:"line_id"`
	ProductID       uuid.UUID       `json:"product_id"`
	Unit            string          `json:"unit"`
	SystemQuantity  decimal.Decimal `json:"system_quantity"`
	CountedQuantity decimal.Decimal `json:"counted_quantity"`
}

// Difference returns counted minus system quantity
func (l StockOpnameLine) Difference() decimal.Decimal {
	return l.CountedQuantity.Sub(l.SystemQuantity)
}

// StockOpnameApprovedEvent is published when a physical stock count is approved
type StockOpnameApprovedEvent struct {
	shared.EventHeader
	OpnameID       uuid.UUID         `json:"opname_id"`
	DocumentNumber string            `json:"document_number"`
	ApprovedAt     *time.Time        `json:"approved_at,omitempty"`
	Lines          []StockOpnameLine `json:"lines"`
}

// NewStockOpnameApprovedEvent creates a new StockOpnameApprovedEvent
func NewStockOpnameApprovedEvent(opnameID uuid.UUID, number string, approvedAt *time.Time, lines []StockOpnameLine) *StockOpnameApprovedEvent {
	return &StockOpnameApprovedEvent{
		EventHeader:    shared.NewEventHeader(EventTypeStockOpnameApproved, AggregateTypeStockOpname, opnameID),
		OpnameID:       opnameID,
		DocumentNumber: number,
		ApprovedAt:     approvedAt,
		Lines:          lines,
	}
}

// PeriodCloseRequestedEvent asks the ledger to close a period and roll it forward
type PeriodCloseRequestedEvent struct {
	shared.EventHeader
	PeriodID    uuid.UUID `json:"period_id"`
	RequestedBy string    `json:"requested_by,omitempty"`
}

// NewPeriodCloseRequestedEvent creates a new PeriodCloseRequestedEvent
func NewPeriodCloseRequestedEvent(periodID uuid.UUID, requestedBy string) *PeriodCloseRequestedEvent {
	return &PeriodCloseRequestedEvent{
		EventHeader: shared.NewEventHeader(EventTypePeriodCloseRequested, AggregateTypePeriod, periodID),
		PeriodID:    periodID,
		RequestedBy: requestedBy,
	}
}

// PeriodClosedEvent is raised inside the close transaction and delivered through the outbox
type PeriodClosedEvent struct {
	shared.EventHeader
	PeriodID       uuid.UUID `json:"period_id"`
	Month          int       `json:"month"`
	Year           int       `json:"year"`
	NextPeriodID   uuid.UUID `json:"next_period_id"`
	NextMonth      int       `json:"next_month"`
	NextYear       int       `json:"next_year"`
	CarriedForward int       `json:"carried_forward"`
}

// NewPeriodClosedEvent creates a new PeriodClosedEvent
func NewPeriodClosedEvent(closed, next *Period, carried int) *PeriodClosedEvent {
	return &PeriodClosedEvent{
		EventHeader:    shared.NewEventHeader(EventTypePeriodClosed, AggregateTypePeriod, closed.ID),
		PeriodID:       closed.ID,
		Month:          closed.Month,
		Year:           closed.Year,
		NextPeriodID:   next.ID,
		NextMonth:      next.Month,
		NextYear:       next.Year,
		CarriedForward: carried,
	}
}

// Key returns the closed period's month/year
func (e *PeriodClosedEvent) Key() PeriodKey {
	return PeriodKey{Month: e.Month, Year: e.Year}
}

// PeriodStartedEvent is raised when a period becomes the running one
type PeriodStartedEvent struct {
	shared.EventHeader
	PeriodID uuid.UUID `json:"period_id"`
	Month    int       `json:"month"`
	Year     int       `json:"year"`
}

// NewPeriodStartedEvent creates a new PeriodStartedEvent
func NewPeriodStartedEvent(p *Period) *PeriodStartedEvent {
	return &PeriodStartedEvent{
		EventHeader: shared.NewEventHeader(EventTypePeriodStarted, AggregateTypePeriod, p.ID),
		PeriodID:    p.ID,
		Month:       p.Month,
		Year:        p.Year,
	}
}
