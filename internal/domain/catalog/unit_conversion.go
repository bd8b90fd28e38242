package catalog

import (
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnitConversion states that one FromUnit equals Factor ToUnit for a product
// (e.g. 1 bottle = 500 ml).
type UnitConversion struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	FromUnit  string
	ToUnit    string
	Factor    decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUnitConversion creates a conversion record
func NewUnitConversion(productID uuid.UUID, fromUnit, toUnit string, factor decimal.Decimal) (*UnitConversion, error) {
	if err := validateUnit(fromUnit); err != nil {
		return nil, err
	}
	if err := validateUnit(toUnit); err != nil {
		return nil, err
	}
	if fromUnit == toUnit {
		return nil, shared.NewDomainError("INVALID_UNIT", "Conversion units must differ")
	}
	if err := validateConversionFactor(factor); err != nil {
		return nil, err
	}

	now := time.Now()
	return &UnitConversion{
		ID:        uuid.New(),
		ProductID: productID,
		FromUnit:  fromUnit,
		ToUnit:    toUnit,
		Factor:    factor,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// UpdateFactor changes the conversion factor
func (c *UnitConversion) UpdateFactor(factor decimal.Decimal) error {
	if err := validateConversionFactor(factor); err != nil {
		return err
	}
	c.Factor = factor
	c.UpdatedAt = time.Now()
	return nil
}

func validateConversionFactor(factor decimal.Decimal) error {
	if factor.IsNegative() {
		return shared.NewDomainError("INVALID_CONVERSION_RATE", "Conversion factor cannot be negative")
	}
	if factor.IsZero() {
		return shared.NewDomainError("INVALID_CONVERSION_RATE", "Conversion factor cannot be zero")
	}
	return nil
}
