package inventory

import (
	"fmt"

	"github.com/google/uuid"
)

// CardStatus is the lifecycle marker shared by stock cards and current stock rows
type CardStatus string

const (
	CardStatusMasterNew  CardStatus = "MASTER_NEW"
	CardStatusInProgress CardStatus = "IN_PROGRESS"
	CardStatusRunning    CardStatus = "RUNNING"
	CardStatusStockTake  CardStatus = "STOCK_TAKE"
	CardStatusEnded      CardStatus = "ENDED"
)

// IsValid checks if the status is a valid CardStatus
func (s CardStatus) IsValid() bool {
	switch s {
	case CardStatusMasterNew, CardStatusInProgress, CardStatusRunning, CardStatusStockTake, CardStatusEnded:
		return true
	}
	return false
}

// Direction tells how an entry affects the balance
type Direction string

const (
	DirectionIn        Direction = "IN"
	DirectionOut       Direction = "OUT"
	DirectionNewMaster Direction = "NEW-MASTER"
	DirectionInProcess Direction = "IN-PROCESS"
)

// IsValid checks if the direction is known
func (d Direction) IsValid() bool {
	switch d {
	case DirectionIn, DirectionOut, DirectionNewMaster, DirectionInProcess:
		return true
	}
	return false
}

// MovesStock reports whether entries with this direction change in/out totals
func (d Direction) MovesStock() bool {
	return d == DirectionIn || d == DirectionOut
}

// Category classifies the business event behind an entry
type Category string

const (
	CategoryMasterNew      Category = "MASTER_NEW"
	CategoryPurchase       Category = "PURCHASE"
	CategorySale           Category = "SALE"
	CategoryGoodsReceipt   Category = "GOODS_RECEIPT"
	CategoryStockOut       Category = "STOCK_OUT"
	CategoryStockTake      Category = "STOCK_TAKE"
	CategoryOpeningBalance Category = "OPENING_BALANCE"
)

// IsValid checks if the category is known
func (c Category) IsValid() bool {
	switch c {
	case CategoryMasterNew, CategoryPurchase, CategorySale, CategoryGoodsReceipt,
		CategoryStockOut, CategoryStockTake, CategoryOpeningBalance:
		return true
	}
	return false
}

// ReferenceType tags the kind of record an entry points back to
type ReferenceType string

const (
	ReferenceProduct           ReferenceType = "PRODUCT"
	ReferencePurchaseOrderLine ReferenceType = "PURCHASE_ORDER_LINE"
	ReferenceGoodsReceiptLine  ReferenceType = "GOODS_RECEIPT_LINE"
	ReferenceStockOutLine      ReferenceType = "STOCK_OUT_LINE"
	ReferenceSaleLine          ReferenceType = "SALE_LINE"
	ReferenceStockOpnameLine   ReferenceType = "STOCK_OPNAME_LINE"
	ReferenceStockCard         ReferenceType = "STOCK_CARD"
)

// IsValid checks if the reference type is known
func (t ReferenceType) IsValid() bool {
	switch t {
	case ReferenceProduct, ReferencePurchaseOrderLine, ReferenceGoodsReceiptLine, ReferenceStockOutLine,
		ReferenceSaleLine, ReferenceStockOpnameLine, ReferenceStockCard:
		return true
	}
	return false
}

// Reference identifies the source record of a ledger entry.
// Type and ID together are unique across the whole ledger.
type Reference struct {
	Type ReferenceType
	ID   uuid.UUID
}

// Validate checks that the reference is complete
func (r Reference) Validate() error {
	if !r.Type.IsValid() {
		return ErrInvalidMovement.WithMessage(fmt.Sprintf("Unknown reference type %q", r.Type))
	}
	if r.ID == uuid.Nil {
		return ErrInvalidMovement.WithMessage("Reference ID cannot be empty")
	}
	return nil
}

// String renders the reference as TYPE:id
func (r Reference) String() string {
	return string(r.Type) + ":" + r.ID.String()
}

// ProductRef references a catalog product
func ProductRef(id uuid.UUID) Reference { return Reference{Type: ReferenceProduct, ID: id} }

// PurchaseOrderLineRef references a purchase order line
func PurchaseOrderLineRef(id uuid.UUID) Reference {
	return Reference{Type: ReferencePurchaseOrderLine, ID: id}
}

// GoodsReceiptLineRef references a goods receipt line
func GoodsReceiptLineRef(id uuid.UUID) Reference {
	return Reference{Type: ReferenceGoodsReceiptLine, ID: id}
}

// StockOutLineRef references a stock-out line
func StockOutLineRef(id uuid.UUID) Reference { return Reference{Type: ReferenceStockOutLine, ID: id} }

// SaleLineRef references a sale transaction line
func SaleLineRef(id uuid.UUID) Reference { return Reference{Type: ReferenceSaleLine, ID: id} }

// StockOpnameLineRef references a stock count line
func StockOpnameLineRef(id uuid.UUID) Reference {
	return Reference{Type: ReferenceStockOpnameLine, ID: id}
}

// StockCardRef references the closed stock card an opening balance was carried from
func StockCardRef(id uuid.UUID) Reference { return Reference{Type: ReferenceStockCard, ID: id} }
