package catalog

import (
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeProduct = "Product"

// Event type constants
const (
	EventTypeProductCreated = "ProductCreated"
)

// ProductCreatedEvent is published when a new product is registered in the catalog.
// The ledger opens a MASTER_NEW stock card for the month the product was created in.
type ProductCreatedEvent struct {
	shared.EventHeader
	ProductID uuid.UUID `json:"product_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	BaseUnit  string    `json:"base_unit"`
	StockUnit string    `json:"stock_unit"`
	CreatedAt time.Time `json:"created_at"`

	Conversions []ConversionSpec `json:"conversions,omitempty"`
}

// ConversionSpec carries a unit conversion defined together with the product
type ConversionSpec struct {
	FromUnit string          `json:"from_unit"`
	ToUnit   string          `json:"to_unit"`
	Factor   decimal.Decimal `json:"factor"`
}

// NewProductCreatedEvent creates a new ProductCreatedEvent
func NewProductCreatedEvent(product *Product) *ProductCreatedEvent {
	return &ProductCreatedEvent{
		EventHeader: shared.NewEventHeader(EventTypeProductCreated, AggregateTypeProduct, product.ID),
		ProductID:   product.ID,
		Code:        product.Code,
		Name:        product.Name,
		BaseUnit:    product.BaseUnit,
		StockUnit:   product.StockUnit,
		CreatedAt:   product.CreatedAt,
	}
}
