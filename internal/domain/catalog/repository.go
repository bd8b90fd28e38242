package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ProductRepository loads and stores products. FindByID returns
// shared.ErrNotFound for an unknown id.
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	Save(ctx context.Context, product *Product) error
}

// UnitConversionRepository stores the conversion records the unit converter
// walks when normalizing a movement quantity.
type UnitConversionRepository interface {
	FindByProductID(ctx context.Context, productID uuid.UUID) ([]UnitConversion, error)
	Save(ctx context.Context, conversion *UnitConversion) error
}
