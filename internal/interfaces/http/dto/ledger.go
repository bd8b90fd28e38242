package dto

import (
	"time"

	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OpenPeriodRequest registers a month
type OpenPeriodRequest struct {
	Month int `json:"month" binding:"required,min=1,max=12"`
	Year  int `json:"year" binding:"required,min=1900,max=9999"`
}

// PeriodResponse is the API view of a period
type PeriodResponse struct {
	ID           uuid.UUID  `json:"id"`
	Month        int        `json:"month"`
	Year         int        `json:"year"`
	Key          string     `json:"key"`
	Status       string     `json:"status"`
	Confirmation string     `json:"confirmation"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
	Tombstoned   bool       `json:"tombstoned"`
	TombstonedAt *time.Time `json:"tombstoned_at,omitempty"`
	Version      int        `json:"version"`
}

// ToPeriodResponse maps a period
func ToPeriodResponse(p *inventory.Period) PeriodResponse {
	return PeriodResponse{
		ID:           p.ID,
		Month:        p.Month,
		Year:         p.Year,
		Key:          p.Key().String(),
		Status:       string(p.Status),
		Confirmation: string(p.Confirmation),
		StartedAt:    p.StartedAt,
		ClosedAt:     p.ClosedAt,
		ConfirmedAt:  p.ConfirmedAt,
		Tombstoned:   p.Tombstoned,
		TombstonedAt: p.TombstonedAt,
		Version:      p.Version,
	}
}

// ToPeriodResponses maps a list of periods
func ToPeriodResponses(periods []inventory.Period) []PeriodResponse {
	out := make([]PeriodResponse, len(periods))
	for i := range periods {
		out[i] = ToPeriodResponse(&periods[i])
	}
	return out
}

// CloseResponse is the outcome of a period close
type CloseResponse struct {
	Closed         PeriodResponse `json:"closed"`
	Next           PeriodResponse `json:"next"`
	CarriedForward int            `json:"carried_forward"`
}

// ToCloseResponse maps a close result
func ToCloseResponse(r *inventoryapp.CloseResult) CloseResponse {
	return CloseResponse{
		Closed:         ToPeriodResponse(r.Closed),
		Next:           ToPeriodResponse(r.Next),
		CarriedForward: r.CarriedForward,
	}
}

// BalancesResponse is a beginning/in/out/ending quadruple
type BalancesResponse struct {
	Beginning decimal.Decimal `json:"beginning"`
	In        decimal.Decimal `json:"in"`
	Out       decimal.Decimal `json:"out"`
	Ending    decimal.Decimal `json:"ending"`
}

func toBalances(b inventory.Balances) BalancesResponse {
	return BalancesResponse{Beginning: b.Beginning, In: b.In, Out: b.Out, Ending: b.Ending}
}

// StockCardResponse is the API view of a stock card
type StockCardResponse struct {
	ID         uuid.UUID        `json:"id"`
	ProductID  uuid.UUID        `json:"product_id"`
	Period     string           `json:"period"`
	Unit       string           `json:"unit"`
	BaseUnit   string           `json:"base_unit"`
	Qty        BalancesResponse `json:"qty"`
	BaseQty    BalancesResponse `json:"base_qty"`
	Status     string           `json:"status"`
	EntryCount int              `json:"entry_count"`
	Version    int              `json:"version"`
}

// StockCardEntryResponse is the API view of a ledger entry
type StockCardEntryResponse struct {
	ID              uuid.UUID       `json:"id"`
	Sequence        int             `json:"sequence"`
	ReferenceType   string          `json:"reference_type"`
	ReferenceID     uuid.UUID       `json:"reference_id"`
	Category        string          `json:"category"`
	Direction       string          `json:"direction"`
	Unit            string          `json:"unit"`
	Quantity        decimal.Decimal `json:"quantity"`
	BaseQuantity    decimal.Decimal `json:"base_quantity"`
	Balance         decimal.Decimal `json:"balance"`
	BaseBalance     decimal.Decimal `json:"base_balance"`
	TransactionDate time.Time       `json:"transaction_date"`
	Note            string          `json:"note,omitempty"`
}

// LedgerHistoryResponse is a stock card with its entries
type LedgerHistoryResponse struct {
	Card    StockCardResponse        `json:"card"`
	Entries []StockCardEntryResponse `json:"entries"`
}

// ToStockCardResponse maps a stock card
func ToStockCardResponse(c *inventory.StockCard) StockCardResponse {
	return StockCardResponse{
		ID:         c.ID,
		ProductID:  c.ProductID,
		Period:     c.Key().String(),
		Unit:       c.Unit,
		BaseUnit:   c.BaseUnit,
		Qty:        toBalances(c.Qty),
		BaseQty:    toBalances(c.BaseQty),
		Status:     string(c.Status),
		EntryCount: c.EntryCount,
		Version:    c.Version,
	}
}

// ToLedgerHistoryResponse maps a card and its entries
func ToLedgerHistoryResponse(h *inventoryapp.LedgerHistory) LedgerHistoryResponse {
	entries := make([]StockCardEntryResponse, len(h.Entries))
	for i, e := range h.Entries {
		entries[i] = StockCardEntryResponse{
			ID:              e.ID,
			Sequence:        e.Sequence,
			ReferenceType:   string(e.Reference.Type),
			ReferenceID:     e.Reference.ID,
			Category:        string(e.Category),
			Direction:       string(e.Direction),
			Unit:            e.Unit,
			Quantity:        e.Quantity,
			BaseQuantity:    e.BaseQuantity,
			Balance:         e.Balance,
			BaseBalance:     e.BaseBalance,
			TransactionDate: e.TransactionDate,
			Note:            e.Note,
		}
	}
	return LedgerHistoryResponse{Card: ToStockCardResponse(h.Card), Entries: entries}
}

// CurrentStockResponse is the API view of an on-hand row
type CurrentStockResponse struct {
	ProductID    uuid.UUID       `json:"product_id"`
	Unit         string          `json:"unit"`
	Period       string          `json:"period"`
	Quantity     decimal.Decimal `json:"quantity"`
	BaseQuantity decimal.Decimal `json:"base_quantity"`
	Status       string          `json:"status"`
}

// ToCurrentStockResponse maps an on-hand row
func ToCurrentStockResponse(s *inventory.CurrentStock) CurrentStockResponse {
	return CurrentStockResponse{
		ProductID:    s.ProductID,
		Unit:         s.Unit,
		Period:       s.Key().String(),
		Quantity:     s.Quantity,
		BaseQuantity: s.BaseQuantity,
		Status:       string(s.Status),
	}
}

// CurrentStockQuery selects the unit and month of a current stock lookup
type CurrentStockQuery struct {
	PeriodQuery
	Unit string `form:"unit" binding:"omitempty,max=32"`
}

// ReconcileResponse is the outcome of a ledger replay
type ReconcileResponse struct {
	ProductID        uuid.UUID             `json:"product_id"`
	Period           string                `json:"period"`
	OK               bool                  `json:"ok"`
	LedgerConsistent bool                  `json:"ledger_consistent"`
	ReplayMatches    bool                  `json:"replay_matches"`
	ProjectionMatch  bool                  `json:"projection_match"`
	Card             BalancesResponse      `json:"card"`
	BaseCard         BalancesResponse      `json:"base_card"`
	Replayed         BalancesResponse      `json:"replayed"`
	BaseReplayed     BalancesResponse      `json:"base_replayed"`
	Stock            *CurrentStockResponse `json:"stock,omitempty"`
}

// ToReconcileResponse maps a reconcile report
func ToReconcileResponse(r *inventoryapp.ReconcileReport) ReconcileResponse {
	resp := ReconcileResponse{
		ProductID:        r.ProductID,
		Period:           r.Period.String(),
		OK:               r.OK(),
		LedgerConsistent: r.LedgerConsistent,
		ReplayMatches:    r.ReplayMatches,
		ProjectionMatch:  r.ProjectionMatch,
		Card:             toBalances(r.Card),
		BaseCard:         toBalances(r.BaseCard),
		Replayed:         toBalances(r.Replayed),
		BaseReplayed:     toBalances(r.BaseReplayed),
	}
	if r.Stock != nil {
		s := ToCurrentStockResponse(r.Stock)
		resp.Stock = &s
	}
	return resp
}

// ArchiveResponse reports where a month's workbook was stored
type ArchiveResponse struct {
	Period    string    `json:"period"`
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ToArchiveResponse converts an archive link
func ToArchiveResponse(key inventory.PeriodKey, link *inventoryapp.ArchiveLink) ArchiveResponse {
	return ArchiveResponse{
		Period:    key.String(),
		Key:       link.Key,
		URL:       link.URL,
		ExpiresAt: link.ExpiresAt,
	}
}

// EventAcceptedResponse acknowledges an inbound event
type EventAcceptedResponse struct {
	EventID   uuid.UUID `json:"event_id"`
	EventType string    `json:"event_type"`
}

// InboundEvent is the part of an inbound event checked before it is decoded.
// Unknown fields are ignored; the event serializer decodes the full payload.
type InboundEvent struct {
	ID    string        `json:"id" binding:"required,uuid"`
	Lines []InboundLine `json:"lines" binding:"omitempty,max=1000,dive"`
}

// InboundLine is a document line of an inbound event
type InboundLine struct {
	LineID          string           `json:"line_id" binding:"required,uuid"`
	ProductID       string           `json:"product_id" binding:"required,uuid"`
	Unit            string           `json:"unit" binding:"required,max=32"`
	Quantity        *decimal.Decimal `json:"quantity" binding:"omitempty,decimal_gte0"`
	BaseQuantity    *decimal.Decimal `json:"base_quantity" binding:"omitempty,decimal_gte0"`
	CountedQuantity *decimal.Decimal `json:"counted_quantity" binding:"omitempty,decimal_gte0"`
}
