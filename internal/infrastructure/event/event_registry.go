package event

import (
	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/trade"
)

// RegisterAllEvents registers every event type the ledger consumes or raises.
// The outbox processor and the HTTP event intake both decode through this registry.
func RegisterAllEvents(serializer *EventSerializer) {
	// Catalog
	serializer.Register(catalog.EventTypeProductCreated, &catalog.ProductCreatedEvent{})

	// Trade documents
	serializer.Register(trade.EventTypePurchaseOrderApproved, &trade.PurchaseOrderApprovedEvent{})
	serializer.Register(trade.EventTypeGoodsReceiptApproved, &trade.GoodsReceiptApprovedEvent{})
	serializer.Register(trade.EventTypeSaleRecorded, &trade.SaleRecordedEvent{})

	// Inventory documents
	serializer.Register(inventory.EventTypeStockOutApproved, &inventory.StockOutApprovedEvent{})
	serializer.Register(inventory.EventTypeStockOpnameApproved, &inventory.StockOpnameApprovedEvent{})

	// Period lifecycle
	serializer.Register(inventory.EventTypePeriodCloseRequested, &inventory.PeriodCloseRequestedEvent{})
	serializer.Register(inventory.EventTypePeriodClosed, &inventory.PeriodClosedEvent{})
	serializer.Register(inventory.EventTypePeriodStarted, &inventory.PeriodStartedEvent{})
}
