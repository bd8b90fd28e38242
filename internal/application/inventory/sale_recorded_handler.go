package inventory

import (
	"context"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/trade"
)

// SaleRecordedHandler books point-of-sale transactions out of the running period
type SaleRecordedHandler struct {
	poster *MovementPoster
}

// NewSaleRecordedHandler creates a new SaleRecordedHandler
func NewSaleRecordedHandler(poster *MovementPoster) *SaleRecordedHandler {
	return &SaleRecordedHandler{poster: poster}
}

// EventTypes returns the event types this handler is interested in
func (h *SaleRecordedHandler) EventTypes() []string {
	return []string{trade.EventTypeSaleRecorded}
}

// Handle processes a SaleRecordedEvent
func (h *SaleRecordedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*trade.SaleRecordedEvent)
	if !ok {
		return unexpectedEvent(trade.EventTypeSaleRecorded, event)
	}

	lines := make([]PostingLine, 0, len(e.Lines))
	for _, l := range e.Lines {
		lines = append(lines, PostingLine{
			Reference:    inventory.SaleLineRef(l.LineID),
			ProductID:    l.ProductID,
			Unit:         l.Unit,
			Quantity:     l.Quantity,
			BaseQuantity: l.BaseQuantity,
			Direction:    inventory.DirectionOut,
		})
	}

	_, err := h.poster.Post(ctx, PostingDocument{
		Category:        inventory.CategorySale,
		Target:          ActivePeriodTarget(),
		CreateStatus:    inventory.CardStatusRunning,
		Guarded:         true,
		Projection:      ProjectionApply,
		TransactionDate: transactionDate(e.RecordedAt),
		Note:            documentNote(NoteTagSale, e.DocumentNumber),
		Lines:           lines,
	})
	return err
}

var _ shared.EventHandler = (*SaleRecordedHandler)(nil)
