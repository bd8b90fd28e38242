package inventory

import (
	"context"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// PurchaseOrderApprovedHandler opens IN_PROGRESS stock cards for the products of an
// acknowledged purchase order. Nothing is received yet, so every line is a zero entry
// and current stock is left alone.
type PurchaseOrderApprovedHandler struct {
	poster *MovementPoster
}

// NewPurchaseOrderApprovedHandler creates a new PurchaseOrderApprovedHandler
func NewPurchaseOrderApprovedHandler(poster *MovementPoster) *PurchaseOrderApprovedHandler {
	return &PurchaseOrderApprovedHandler{poster: poster}
}

// EventTypes returns the event types this handler is interested in
func (h *PurchaseOrderApprovedHandler) EventTypes() []string {
	return []string{trade.EventTypePurchaseOrderApproved}
}

// Handle processes a PurchaseOrderApprovedEvent
func (h *PurchaseOrderApprovedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*trade.PurchaseOrderApprovedEvent)
	if !ok {
		return unexpectedEvent(trade.EventTypePurchaseOrderApproved, event)
	}

	ackAt := transactionDate(e.AcknowledgedAt)
	lines := make([]PostingLine, 0, len(e.Lines))
	for _, l := range e.Lines {
		zero := decimal.Zero
		lines = append(lines, PostingLine{
			Reference:    inventory.PurchaseOrderLineRef(l.LineID),
			ProductID:    l.ProductID,
			Unit:         l.Unit,
			Quantity:     decimal.Zero,
			BaseQuantity: &zero,
			Direction:    inventory.DirectionInProcess,
		})
	}

	_, err := h.poster.Post(ctx, PostingDocument{
		Category:        inventory.CategoryPurchase,
		Target:          DocumentPeriodTarget(inventory.PeriodKeyOf(ackAt), false),
		CreateStatus:    inventory.CardStatusInProgress,
		Projection:      ProjectionNone,
		TransactionDate: ackAt,
		Note:            documentNote(NoteTagPurchaseOrder, e.DocumentNumber),
		Lines:           lines,
	})
	return err
}

var _ shared.EventHandler = (*PurchaseOrderApprovedHandler)(nil)
