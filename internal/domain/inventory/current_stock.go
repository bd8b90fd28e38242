package inventory

import (
	"fmt"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CurrentStock is the on-hand projection of one product, unit and month.
// It only ever changes in the same transaction as the stock card it mirrors.
type CurrentStock struct {
	shared.Aggregate
	ProductID    uuid.UUID
	Unit         string
	Month        int
	Year         int
	Quantity     decimal.Decimal
	BaseQuantity decimal.Decimal
	Status       CardStatus
}

// NewCurrentStock creates a zero on-hand row
func NewCurrentStock(productID uuid.UUID, unit string, key PeriodKey, status CardStatus) (*CurrentStock, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if unit == "" {
		return nil, shared.NewDomainError("INVALID_UNIT", "Unit cannot be empty")
	}
	if !status.IsValid() || status == CardStatusEnded {
		return nil, shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Invalid initial stock status %q", status))
	}
	return &CurrentStock{
		Aggregate:    shared.NewAggregate(),
		ProductID:    productID,
		Unit:         unit,
		Month:        key.Month,
		Year:         key.Year,
		Quantity:     decimal.Zero,
		BaseQuantity: decimal.Zero,
		Status:       status,
	}, nil
}

// Key returns the row's month/year
func (s *CurrentStock) Key() PeriodKey {
	return PeriodKey{Month: s.Month, Year: s.Year}
}

// IsEnded reports whether the row belongs to a closed period
func (s *CurrentStock) IsEnded() bool {
	return s.Status == CardStatusEnded
}

// Adjust applies signed deltas
func (s *CurrentStock) Adjust(qty, baseQty decimal.Decimal) error {
	if s.IsEnded() {
		return ErrPeriodClosed.WithMessage(fmt.Sprintf("Current stock of %s for %s is ended", s.ProductID, s.Key()))
	}
	s.Quantity = s.Quantity.Add(qty)
	s.BaseQuantity = s.BaseQuantity.Add(baseQty)
	s.Touch(time.Now())
	return nil
}

// SeedOpening carries the closing quantity of the previous period into this row
func (s *CurrentStock) SeedOpening(from *CurrentStock) error {
	if from.ProductID != s.ProductID || from.Unit != s.Unit {
		return ErrInvalidMovement.WithMessage("Opening stock must come from the same product and unit")
	}
	if err := s.Adjust(from.Quantity, from.BaseQuantity); err != nil {
		return err
	}
	s.Status = CardStatusInProgress
	return nil
}

// End freezes the row when its period closes
func (s *CurrentStock) End() {
	if s.IsEnded() {
		return
	}
	s.Status = CardStatusEnded
	s.Touch(time.Now())
}

// Matches reports whether the row agrees with the ending balance of a card
func (s *CurrentStock) Matches(card *StockCard) bool {
	return s.Quantity.Equal(card.Qty.Ending) && s.BaseQuantity.Equal(card.BaseQty.Ending)
}
