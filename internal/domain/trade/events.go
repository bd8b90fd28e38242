package trade

import (
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constants
const (
	AggregateTypePurchaseOrder = "PurchaseOrder"
	AggregateTypeGoodsReceipt  = "GoodsReceipt"
	AggregateTypeSale          = "Sale"
)

// Event type constants
const (
	EventTypePurchaseOrderApproved = "PurchaseOrderApproved"
	EventTypeGoodsReceiptApproved  = "GoodsReceiptApproved"
	EventTypeSaleRecorded          = "SaleRecorded"
)

// LineItem is a product line of a trade document.
// BaseQuantity is optional; when absent the ledger derives it from the product's conversions.
type LineItem struct {
	LineID       uuid.UUID        `json:"line_id"`
	ProductID    uuid.UUID        `json:"product_id"`
	Unit         string           `json:"unit"`
	Quantity     decimal.Decimal  `json:"quantity"`
	BaseQuantity *decimal.Decimal `json:"base_quantity,omitempty"`
}

// PurchaseOrderApprovedEvent is published when a purchase order is acknowledged by the supplier
type PurchaseOrderApprovedEvent struct {
	shared.EventHeader
	PurchaseOrderID uuid.UUID  `json:"purchase_order_id"`
	DocumentNumber  string     `json:"document_number"`
	AcknowledgedAt  *time.Time `json:"acknowledged_at,omitempty"`
	Lines           []LineItem `json:"lines"`
}

// NewPurchaseOrderApprovedEvent creates a new PurchaseOrderApprovedEvent
func NewPurchaseOrderApprovedEvent(orderID uuid.UUID, number string, acknowledgedAt *time.Time, lines []LineItem) *PurchaseOrderApprovedEvent {
	return &PurchaseOrderApprovedEvent{
		EventHeader:     shared.NewEventHeader(EventTypePurchaseOrderApproved, AggregateTypePurchaseOrder, orderID),
		PurchaseOrderID: orderID,
		DocumentNumber:  number,
		AcknowledgedAt:  acknowledgedAt,
		Lines:           lines,
	}
}

// GoodsReceiptApprovedEvent is published when received goods are approved into stock
type GoodsReceiptApprovedEvent struct {
	shared.EventHeader
	GoodsReceiptID  uuid.UUID  `json:"goods_receipt_id"`
	PurchaseOrderID *uuid.UUID `json:"purchase_order_id,omitempty"`
	DocumentNumber  string     `json:"document_number"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	Lines           []LineItem `json:"lines"`
}

// NewGoodsReceiptApprovedEvent creates a new GoodsReceiptApprovedEvent
func NewGoodsReceiptApprovedEvent(receiptID uuid.UUID, number string, approvedAt *time.Time, lines []LineItem) *GoodsReceiptApprovedEvent {
	return &GoodsReceiptApprovedEvent{
		EventHeader:    shared.NewEventHeader(EventTypeGoodsReceiptApproved, AggregateTypeGoodsReceipt, receiptID),
		GoodsReceiptID: receiptID,
		DocumentNumber: number,
		ApprovedAt:     approvedAt,
		Lines:          lines,
	}
}

// SaleRecordedEvent is published when a point-of-sale transaction is settled
type SaleRecordedEvent struct {
	shared.EventHeader
	SaleID         uuid.UUID  `json:"sale_id"`
	DocumentNumber string     `json:"document_number"`
	RecordedAt     *time.Time `json:"recorded_at,omitempty"`
	Lines          []LineItem `json:"lines"`
}

// NewSaleRecordedEvent creates a new SaleRecordedEvent
func NewSaleRecordedEvent(saleID uuid.UUID, number string, recordedAt *time.Time, lines []LineItem) *SaleRecordedEvent {
	return &SaleRecordedEvent{
		EventHeader:    shared.NewEventHeader(EventTypeSaleRecorded, AggregateTypeSale, saleID),
		SaleID:         saleID,
		DocumentNumber: number,
		RecordedAt:     recordedAt,
		Lines:          lines,
	}
}
