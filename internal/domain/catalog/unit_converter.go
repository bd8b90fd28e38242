package catalog

import (
	"context"
	"fmt"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuantityScale is the number of decimal places quantities are stored with
const QuantityScale = 4

// ErrNoConversionPath is returned when two units of a product cannot be related
var ErrNoConversionPath = shared.NewDomainError("NO_CONVERSION_PATH", "No conversion path between units")

// NewNoConversionPathError describes the missing path
func NewNoConversionPathError(productID uuid.UUID, from, to string) error {
	return ErrNoConversionPath.WithMessage(
		fmt.Sprintf("No conversion path from %q to %q for product %s", from, to, productID),
	)
}

// ConversionTable resolves conversions for a single product.
// Resolution order: identical units, a direct record, an inverse record,
// then a two-hop path through the product's base unit.
type ConversionTable struct {
	productID uuid.UUID
	baseUnit  string
	factors   map[[2]string]decimal.Decimal
}

// NewConversionTable builds a table from a product's conversion records
func NewConversionTable(product *Product, conversions []UnitConversion) *ConversionTable {
	t := &ConversionTable{
		productID: product.ID,
		baseUnit:  product.BaseUnit,
		factors:   make(map[[2]string]decimal.Decimal, len(conversions)),
	}
	for _, c := range conversions {
		if c.Factor.IsPositive() {
			t.factors[[2]string{c.FromUnit, c.ToUnit}] = c.Factor
		}
	}
	return t
}

// BaseUnit returns the product's base unit
func (t *ConversionTable) BaseUnit() string {
	return t.baseUnit
}

// Convert converts qty from one unit to another
func (t *ConversionTable) Convert(from, to string, qty decimal.Decimal) (decimal.Decimal, error) {
	if from == to {
		return qty, nil
	}
	if out, ok := t.step(from, to, qty); ok {
		return out.Round(QuantityScale), nil
	}
	// qty * f(from→base) / f(to→base), each leg resolved directly or through its inverse
	if from != t.baseUnit && to != t.baseUnit {
		if inBase, ok := t.step(from, t.baseUnit, qty); ok {
			if out, ok := t.step(t.baseUnit, to, inBase); ok {
				return out.Round(QuantityScale), nil
			}
		}
	}
	return decimal.Zero, NewNoConversionPathError(t.productID, from, to)
}

// ConvertToBase converts qty from a unit to the base unit
func (t *ConversionTable) ConvertToBase(from string, qty decimal.Decimal) (decimal.Decimal, error) {
	return t.Convert(from, t.baseUnit, qty)
}

// ConvertFromBase converts a base-unit qty into another unit
func (t *ConversionTable) ConvertFromBase(to string, qty decimal.Decimal) (decimal.Decimal, error) {
	return t.Convert(t.baseUnit, to, qty)
}

func (t *ConversionTable) step(from, to string, qty decimal.Decimal) (decimal.Decimal, bool) {
	if from == to {
		return qty, true
	}
	if f, ok := t.factors[[2]string{from, to}]; ok {
		return qty.Mul(f), true
	}
	if f, ok := t.factors[[2]string{to, from}]; ok {
		return qty.Div(f), true
	}
	return decimal.Zero, false
}

// UnitConverter is the domain service that loads a product's conversion
// records and resolves quantities between its units.
type UnitConverter struct {
	products    ProductRepository
	conversions UnitConversionRepository
}

// NewUnitConverter creates a new UnitConverter
func NewUnitConverter(products ProductRepository, conversions UnitConversionRepository) *UnitConverter {
	return &UnitConverter{products: products, conversions: conversions}
}

// Table loads the conversion table of a product
func (c *UnitConverter) Table(ctx context.Context, productID uuid.UUID) (*Product, *ConversionTable, error) {
	product, err := c.products.FindByID(ctx, productID)
	if err != nil {
		return nil, nil, fmt.Errorf("load product %s: %w", productID, err)
	}
	records, err := c.conversions.FindByProductID(ctx, productID)
	if err != nil {
		return nil, nil, fmt.Errorf("load unit conversions for %s: %w", productID, err)
	}
	return product, NewConversionTable(product, records), nil
}

// Convert converts qty of a product from one unit to another
func (c *UnitConverter) Convert(ctx context.Context, productID uuid.UUID, from, to string, qty decimal.Decimal) (decimal.Decimal, error) {
	if from == to {
		return qty, nil
	}
	_, table, err := c.Table(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	return table.Convert(from, to, qty)
}

// ConvertToBase converts qty of a product into its base unit
func (c *UnitConverter) ConvertToBase(ctx context.Context, productID uuid.UUID, from string, qty decimal.Decimal) (decimal.Decimal, error) {
	_, table, err := c.Table(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	return table.ConvertToBase(from, qty)
}

// ConvertFromBase converts a base-unit qty of a product into another unit
func (c *UnitConverter) ConvertFromBase(ctx context.Context, productID uuid.UUID, to string, qty decimal.Decimal) (decimal.Decimal, error) {
	_, table, err := c.Table(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	return table.ConvertFromBase(to, qty)
}
