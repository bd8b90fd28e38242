package inventory

import (
	"fmt"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Balances is a beginning/in/out/ending quadruple
type Balances struct {
	Beginning decimal.Decimal
	In        decimal.Decimal
	Out       decimal.Decimal
	Ending    decimal.Decimal
}

// Consistent reports whether ending = beginning + in - out
func (b Balances) Consistent() bool {
	return b.Ending.Equal(b.Beginning.Add(b.In).Sub(b.Out))
}

// Equal compares two quadruples by value
func (b Balances) Equal(other Balances) bool {
	return b.Beginning.Equal(other.Beginning) && b.In.Equal(other.In) &&
		b.Out.Equal(other.Out) && b.Ending.Equal(other.Ending)
}

func (b *Balances) recompute() {
	b.Ending = b.Beginning.Add(b.In).Sub(b.Out)
}

// Movement is a single quantity change requested against a stock card
type Movement struct {
	Direction       Direction
	Category        Category
	Quantity        decimal.Decimal
	BaseQuantity    decimal.Decimal
	Reference       Reference
	TransactionDate time.Time
	Note            string
}

// Validate checks the movement before it touches any balance
func (m Movement) Validate() error {
	if !m.Direction.IsValid() {
		return ErrInvalidMovement.WithMessage(fmt.Sprintf("Unknown direction %q", m.Direction))
	}
	if !m.Category.IsValid() {
		return ErrInvalidMovement.WithMessage(fmt.Sprintf("Unknown category %q", m.Category))
	}
	if m.Quantity.IsNegative() || m.BaseQuantity.IsNegative() {
		return ErrInvalidMovement.WithMessage("Movement quantity cannot be negative")
	}
	if !m.Direction.MovesStock() && (!m.Quantity.IsZero() || !m.BaseQuantity.IsZero()) {
		return ErrInvalidMovement.WithMessage(fmt.Sprintf("%s entries carry no quantity", m.Direction))
	}
	return m.Reference.Validate()
}

// Signed returns the quantity deltas the movement applies to on-hand stock
func (m Movement) Signed() (decimal.Decimal, decimal.Decimal) {
	switch m.Direction {
	case DirectionIn:
		return m.Quantity, m.BaseQuantity
	case DirectionOut:
		return m.Quantity.Neg(), m.BaseQuantity.Neg()
	}
	return decimal.Zero, decimal.Zero
}

// StockCard is the ledger account of one product for one month.
// It caches the running totals of its entries in the stocking unit and the base unit.
type StockCard struct {
	shared.Aggregate
	ProductID  uuid.UUID
	Month      int
	Year       int
	Unit       string
	BaseUnit   string
	Qty        Balances
	BaseQty    Balances
	Status     CardStatus
	EntryCount int
}

// NewStockCard creates a zero-balance card
func NewStockCard(productID uuid.UUID, key PeriodKey, unit, baseUnit string, status CardStatus) (*StockCard, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if unit == "" || baseUnit == "" {
		return nil, shared.NewDomainError("INVALID_UNIT", "Stock card units cannot be empty")
	}
	if !status.IsValid() || status == CardStatusEnded {
		return nil, shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Invalid initial card status %q", status))
	}
	return &StockCard{
		Aggregate: shared.NewAggregate(),
		ProductID: productID,
		Month:     key.Month,
		Year:      key.Year,
		Unit:      unit,
		BaseUnit:  baseUnit,
		Qty:       zeroBalances(),
		BaseQty:   zeroBalances(),
		Status:    status,
	}, nil
}

func zeroBalances() Balances {
	return Balances{Beginning: decimal.Zero, In: decimal.Zero, Out: decimal.Zero, Ending: decimal.Zero}
}

// Key returns the card's month/year
func (c *StockCard) Key() PeriodKey {
	return PeriodKey{Month: c.Month, Year: c.Year}
}

// IsEnded reports whether the card belongs to a closed period
func (c *StockCard) IsEnded() bool {
	return c.Status == CardStatusEnded
}

// Post applies a movement and returns the entry to append.
// The entry carries the balances as they stand after the movement.
func (c *StockCard) Post(m Movement) (*StockCardEntry, error) {
	if c.IsEnded() {
		return nil, ErrPeriodClosed.WithMessage(fmt.Sprintf("Stock card %s for %s is ended", c.ProductID, c.Key()))
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}

	switch m.Direction {
	case DirectionIn:
		c.Qty.In = c.Qty.In.Add(m.Quantity)
		c.BaseQty.In = c.BaseQty.In.Add(m.BaseQuantity)
	case DirectionOut:
		c.Qty.Out = c.Qty.Out.Add(m.Quantity)
		c.BaseQty.Out = c.BaseQty.Out.Add(m.BaseQuantity)
	}
	return c.appendEntry(m), nil
}

// SeedOpening sets the beginning balance carried from the previous period
// and returns the OPENING_BALANCE entry recording it.
func (c *StockCard) SeedOpening(from *StockCard, note string) (*StockCardEntry, error) {
	if c.IsEnded() {
		return nil, ErrPeriodClosed.WithMessage(fmt.Sprintf("Stock card %s for %s is ended", c.ProductID, c.Key()))
	}
	if from.ProductID != c.ProductID {
		return nil, ErrInvalidMovement.WithMessage("Opening balance must come from the same product")
	}
	if !c.Qty.Beginning.IsZero() || !c.BaseQty.Beginning.IsZero() {
		return nil, ErrInvalidMovement.WithMessage(fmt.Sprintf("Stock card %s for %s already has an opening balance", c.ProductID, c.Key()))
	}

	c.Qty.Beginning = from.Qty.Ending
	c.BaseQty.Beginning = from.BaseQty.Ending
	c.Status = CardStatusInProgress

	return c.appendEntry(Movement{
		Direction:       DirectionInProcess,
		Category:        CategoryOpeningBalance,
		Quantity:        from.Qty.Ending,
		BaseQuantity:    from.BaseQty.Ending,
		Reference:       StockCardRef(from.ID),
		TransactionDate: time.Now(),
		Note:            note,
	}), nil
}

// End freezes the card when its period closes
func (c *StockCard) End() {
	if c.IsEnded() {
		return
	}
	c.Status = CardStatusEnded
	c.Touch(time.Now())
}

func (c *StockCard) appendEntry(m Movement) *StockCardEntry {
	c.Qty.recompute()
	c.BaseQty.recompute()
	c.EntryCount++
	c.Touch(time.Now())

	txDate := m.TransactionDate
	if txDate.IsZero() {
		txDate = time.Now()
	}
	return &StockCardEntry{
		ID:              uuid.New(),
		StockCardID:     c.ID,
		ProductID:       c.ProductID,
		Month:           c.Month,
		Year:            c.Year,
		Sequence:        c.EntryCount,
		Reference:       m.Reference,
		Category:        m.Category,
		Direction:       m.Direction,
		Unit:            c.Unit,
		Quantity:        m.Quantity,
		BaseQuantity:    m.BaseQuantity,
		Balance:         c.Qty.Ending,
		BaseBalance:     c.BaseQty.Ending,
		TransactionDate: txDate,
		Note:            m.Note,
		CreatedAt:       time.Now(),
	}
}

// StockCardEntry is an immutable line of a stock card
type StockCardEntry struct {
	ID              uuid.UUID
	StockCardID     uuid.UUID
	ProductID       uuid.UUID
	Month           int
	Year            int
	Sequence        int
	Reference       Reference
	Category        Category
	Direction       Direction
	Unit            string
	Quantity        decimal.Decimal
	BaseQuantity    decimal.Decimal
	Balance         decimal.Decimal
	BaseBalance     decimal.Decimal
	TransactionDate time.Time
	Note            string
	CreatedAt       time.Time
}

// Replay rebuilds card balances from entries in sequence order.
// An OPENING_BALANCE entry sets the beginning, IN and OUT entries accumulate.
func Replay(entries []StockCardEntry) (Balances, Balances) {
	qty, base := zeroBalances(), zeroBalances()
	for _, e := range entries {
		switch {
		case e.Category == CategoryOpeningBalance:
			qty.Beginning = e.Quantity
			base.Beginning = e.BaseQuantity
		case e.Direction == DirectionIn:
			qty.In = qty.In.Add(e.Quantity)
			base.In = base.In.Add(e.BaseQuantity)
		case e.Direction == DirectionOut:
			qty.Out = qty.Out.Add(e.Quantity)
			base.Out = base.Out.Add(e.BaseQuantity)
		}
		qty.recompute()
		base.recompute()
	}
	return qty, base
}
