package inventory

import (
	"context"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// StockOpnameApprovedHandler books the differences of an approved stock count.
// A matching count is still recorded, as a zero IN entry, so the card shows it was counted.
type StockOpnameApprovedHandler struct {
	poster *MovementPoster
}

// NewStockOpnameApprovedHandler creates a new StockOpnameApprovedHandler
func NewStockOpnameApprovedHandler(poster *MovementPoster) *StockOpnameApprovedHandler {
	return &StockOpnameApprovedHandler{poster: poster}
}

// EventTypes returns the event types this handler is interested in
func (h *StockOpnameApprovedHandler) EventTypes() []string {
	return []string{inventory.EventTypeStockOpnameApproved}
}

// Handle processes a StockOpnameApprovedEvent
func (h *StockOpnameApprovedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*inventory.StockOpnameApprovedEvent)
	if !ok {
		return unexpectedEvent(inventory.EventTypeStockOpnameApproved, event)
	}

	lines := make([]PostingLine, 0, len(e.Lines))
	for _, l := range e.Lines {
		lines = append(lines, opnameLine(l))
	}

	_, err := h.poster.Post(ctx, PostingDocument{
		Category:        inventory.CategoryStockTake,
		Target:          ActivePeriodTarget(),
		CreateStatus:    inventory.CardStatusStockTake,
		Guarded:         true,
		Projection:      ProjectionApply,
		TransactionDate: transactionDate(e.ApprovedAt),
		Note:            documentNote(NoteTagStockOpname, e.DocumentNumber),
		Lines:           lines,
	})
	return err
}

// opnameLine turns a counted line into a movement: overstock is IN, shortage is OUT,
// a match is IN with zero quantity.
func opnameLine(l inventory.StockOpnameLine) PostingLine {
	diff := l.Difference()
	line := PostingLine{
		Reference: inventory.StockOpnameLineRef(l.LineID),
		ProductID: l.ProductID,
		Unit:      l.Unit,
		Quantity:  diff.Abs(),
		Direction: inventory.DirectionIn,
	}
	if diff.IsNegative() {
		line.Direction = inventory.DirectionOut
	}
	if diff.IsZero() {
		zero := decimal.Zero
		line.BaseQuantity = &zero
	}
	return line
}

var _ shared.EventHandler = (*StockOpnameApprovedHandler)(nil)
