package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Product is the ledger's view of a stock-keeping item. Movements arrive in
// any unit the product can convert; quantities are normalized to BaseUnit
// (e.g. "ml") and the stock card is kept in StockUnit (e.g. "bottle").
type Product struct {
	shared.Aggregate
	Code      string
	Name      string
	BaseUnit  string
	StockUnit string
}

var productCode = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

const (
	maxCodeLen = 50
	maxNameLen = 200
	maxUnitLen = 20
)

// NewProduct registers a product and raises ProductCreated. An empty
// stockUnit means the stock card is kept in the base unit.
func NewProduct(code, name, baseUnit, stockUnit string) (*Product, error) {
	if stockUnit == "" {
		stockUnit = baseUnit
	}
	if err := checkProduct(code, name, baseUnit, stockUnit); err != nil {
		return nil, err
	}

	p := &Product{
		Aggregate: shared.NewAggregate(),
		Code:      strings.ToUpper(code),
		Name:      name,
		BaseUnit:  baseUnit,
		StockUnit: stockUnit,
	}
	p.RaiseEvent(NewProductCreatedEvent(p))
	return p, nil
}

func checkProduct(code, name string, units ...string) error {
	switch {
	case code == "":
		return shared.NewDomainError("INVALID_CODE", "product code is required")
	case len(code) > maxCodeLen:
		return shared.NewDomainError("INVALID_CODE", fmt.Sprintf("product code is longer than %d characters", maxCodeLen))
	case !productCode.MatchString(code):
		return shared.NewDomainError("INVALID_CODE", "product code may only hold letters, digits, '_' and '-'")
	case name == "":
		return shared.NewDomainError("INVALID_NAME", "product name is required")
	case len(name) > maxNameLen:
		return shared.NewDomainError("INVALID_NAME", fmt.Sprintf("product name is longer than %d characters", maxNameLen))
	}
	for _, u := range units {
		if err := validateUnit(u); err != nil {
			return err
		}
	}
	return nil
}

func validateUnit(u string) error {
	if u == "" || len(u) > maxUnitLen {
		return shared.NewDomainError("INVALID_UNIT", fmt.Sprintf("unit %q must be 1 to %d characters", u, maxUnitLen))
	}
	return nil
}

// UsesSingleUnit reports whether the stock card is kept in the base unit
func (p *Product) UsesSingleUnit() bool {
	return p.StockUnit == p.BaseUnit
}

// DefineConversion adds a conversion to the pending ProductCreated event, so
// the conversion is stored with the product. Call it before the product is saved.
func (p *Product) DefineConversion(fromUnit, toUnit string, factor decimal.Decimal) (*UnitConversion, error) {
	conv, err := NewUnitConversion(p.ID, fromUnit, toUnit, factor)
	if err != nil {
		return nil, err
	}
	spec := ConversionSpec{FromUnit: fromUnit, ToUnit: toUnit, Factor: factor}
	for _, e := range p.PendingEvents() {
		if created, ok := e.(*ProductCreatedEvent); ok {
			created.Conversions = append(created.Conversions, spec)
		}
	}
	return conv, nil
}
