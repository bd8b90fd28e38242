package inventory

import (
	"context"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
)

// StockOutApprovedHandler books a stock-out into the month of its out date.
// That month must be a registered period that is not yet closed.
type StockOutApprovedHandler struct {
	poster *MovementPoster
}

// NewStockOutApprovedHandler creates a new StockOutApprovedHandler
func NewStockOutApprovedHandler(poster *MovementPoster) *StockOutApprovedHandler {
	return &StockOutApprovedHandler{poster: poster}
}

// EventTypes returns the event types this handler is interested in
func (h *StockOutApprovedHandler) EventTypes() []string {
	return []string{inventory.EventTypeStockOutApproved}
}

// Handle processes a StockOutApprovedEvent
func (h *StockOutApprovedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*inventory.StockOutApprovedEvent)
	if !ok {
		return unexpectedEvent(inventory.EventTypeStockOutApproved, event)
	}

	outDate := e.OutDate
	if outDate.IsZero() {
		outDate = transactionDate(e.ApprovedAt)
	}

	lines := make([]PostingLine, 0, len(e.Lines))
	for _, l := range e.Lines {
		lines = append(lines, PostingLine{
			Reference:    inventory.StockOutLineRef(l.LineID),
			ProductID:    l.ProductID,
			Unit:         l.Unit,
			Quantity:     l.Quantity,
			BaseQuantity: l.BaseQuantity,
			Direction:    inventory.DirectionOut,
		})
	}

	_, err := h.poster.Post(ctx, PostingDocument{
		Category:        inventory.CategoryStockOut,
		Target:          DocumentPeriodTarget(inventory.PeriodKeyOf(outDate), true),
		CreateStatus:    inventory.CardStatusRunning,
		Guarded:         true,
		Projection:      ProjectionApply,
		TransactionDate: transactionDate(e.ApprovedAt),
		Note:            documentNote(NoteTagStockOut, e.DocumentNumber),
		Lines:           lines,
	})
	return err
}

var _ shared.EventHandler = (*StockOutApprovedHandler)(nil)
