package inventory

import (
	"context"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/trade"
)

// GoodsReceiptApprovedHandler books received goods into the running period
type GoodsReceiptApprovedHandler struct {
	poster *MovementPoster
}

// NewGoodsReceiptApprovedHandler creates a new GoodsReceiptApprovedHandler
func NewGoodsReceiptApprovedHandler(poster *MovementPoster) *GoodsReceiptApprovedHandler {
	return &GoodsReceiptApprovedHandler{poster: poster}
}

// EventTypes returns the event types this handler is interested in
func (h *GoodsReceiptApprovedHandler) EventTypes() []string {
	return []string{trade.EventTypeGoodsReceiptApproved}
}

// Handle processes a GoodsReceiptApprovedEvent
func (h *GoodsReceiptApprovedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*trade.GoodsReceiptApprovedEvent)
	if !ok {
		return unexpectedEvent(trade.EventTypeGoodsReceiptApproved, event)
	}

	lines := make([]PostingLine, 0, len(e.Lines))
	for _, l := range e.Lines {
		lines = append(lines, PostingLine{
			Reference:    inventory.GoodsReceiptLineRef(l.LineID),
			ProductID:    l.ProductID,
			Unit:         l.Unit,
			Quantity:     l.Quantity,
			BaseQuantity: l.BaseQuantity,
			Direction:    inventory.DirectionIn,
		})
	}

	_, err := h.poster.Post(ctx, PostingDocument{
		Category:        inventory.CategoryGoodsReceipt,
		Target:          ActivePeriodTarget(),
		CreateStatus:    inventory.CardStatusRunning,
		Guarded:         true,
		Projection:      ProjectionApply,
		TransactionDate: transactionDate(e.ApprovedAt),
		Note:            documentNote(NoteTagGoodsReceipt, e.DocumentNumber),
		Lines:           lines,
	})
	return err
}

var _ shared.EventHandler = (*GoodsReceiptApprovedHandler)(nil)
