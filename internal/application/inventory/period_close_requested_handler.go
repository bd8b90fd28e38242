package inventory

import (
	"context"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
)

// PeriodCloseRequestedHandler runs the period close when it is requested by event
type PeriodCloseRequestedHandler struct {
	closer *PeriodCloser
}

// NewPeriodCloseRequestedHandler creates a new PeriodCloseRequestedHandler
func NewPeriodCloseRequestedHandler(closer *PeriodCloser) *PeriodCloseRequestedHandler {
	return &PeriodCloseRequestedHandler{closer: closer}
}

// EventTypes returns the event types this handler is interested in
func (h *PeriodCloseRequestedHandler) EventTypes() []string {
	return []string{inventory.EventTypePeriodCloseRequested}
}

// Handle processes a PeriodCloseRequestedEvent
func (h *PeriodCloseRequestedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*inventory.PeriodCloseRequestedEvent)
	if !ok {
		return unexpectedEvent(inventory.EventTypePeriodCloseRequested, event)
	}
	_, err := h.closer.Close(ctx, e.PeriodID)
	return err
}

var _ shared.EventHandler = (*PeriodCloseRequestedHandler)(nil)
