package models

import (
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PeriodModel is the persistence model for the Period aggregate root.
// RunningSlot is TRUE only while the period is RUNNING and NULL otherwise;
// its unique index lets the database hold at most one running period.
type PeriodModel struct {
	AggregateModel
	Month        int                          `gorm:"not null;uniqueIndex:idx_period_month_year,priority:2"`
	Year         int                          `gorm:"not null;uniqueIndex:idx_period_month_year,priority:1"`
	Status       inventory.PeriodStatus       `gorm:"type:varchar(20);not null;default:'OPEN';index"`
	Confirmation inventory.ConfirmationStatus `gorm:"type:varchar(20);not null;default:'PENDING'"`
	RunningSlot  *bool                        `gorm:"uniqueIndex:idx_period_running_slot"`
	StartedAt    *time.Time
	ClosedAt     *time.Time
	ConfirmedAt  *time.Time
	Tombstoned   bool `gorm:"not null;default:false"`
	TombstonedAt *time.Time
}

// TableName returns the table name for GORM
func (PeriodModel) TableName() string {
	return "periods"
}

// ToDomain converts the persistence model to a domain Period
func (m *PeriodModel) ToDomain() *inventory.Period {
	return &inventory.Period{
		Aggregate:    m.aggregate(),
		Month:        m.Month,
		Year:         m.Year,
		Status:       m.Status,
		Confirmation: m.Confirmation,
		StartedAt:    m.StartedAt,
		ClosedAt:     m.ClosedAt,
		ConfirmedAt:  m.ConfirmedAt,
		Tombstoned:   m.Tombstoned,
		TombstonedAt: m.TombstonedAt,
	}
}

// FromDomain populates the persistence model from a domain Period
func (m *PeriodModel) FromDomain(p *inventory.Period) {
	m.AggregateModel = aggregateModelOf(p.Aggregate)
	m.Month = p.Month
	m.Year = p.Year
	m.Status = p.Status
	m.Confirmation = p.Confirmation
	m.RunningSlot = nil
	if p.Status == inventory.PeriodStatusRunning {
		running := true
		m.RunningSlot = &running
	}
	m.StartedAt = p.StartedAt
	m.ClosedAt = p.ClosedAt
	m.ConfirmedAt = p.ConfirmedAt
	m.Tombstoned = p.Tombstoned
	m.TombstonedAt = p.TombstonedAt
}

// PeriodModelFromDomain creates a new persistence model from a domain Period
func PeriodModelFromDomain(p *inventory.Period) *PeriodModel {
	m := &PeriodModel{}
	m.FromDomain(p)
	return m
}

// StockCardModel is the persistence model for the StockCard aggregate root.
// One row per product and month.
type StockCardModel struct {
	AggregateModel
	ProductID     uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:idx_stock_card_product_period,priority:1"`
	Month         int                  `gorm:"not null;uniqueIndex:idx_stock_card_product_period,priority:3;index:idx_stock_card_period,priority:2"`
	Year          int                  `gorm:"not null;uniqueIndex:idx_stock_card_product_period,priority:2;index:idx_stock_card_period,priority:1"`
	Unit          string               `gorm:"type:varchar(20);not null"`
	BaseUnit      string               `gorm:"type:varchar(20);not null"`
	QtyBeginning  decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	QtyIn         decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	QtyOut        decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	QtyEnding     decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	BaseBeginning decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	BaseIn        decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	BaseOut       decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	BaseEnding    decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	Status        inventory.CardStatus `gorm:"type:varchar(20);not null"`
	EntryCount    int                  `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (StockCardModel) TableName() string {
	return "stock_cards"
}

// ToDomain converts the persistence model to a domain StockCard
func (m *StockCardModel) ToDomain() *inventory.StockCard {
	return &inventory.StockCard{
		Aggregate: m.aggregate(),
		ProductID: m.ProductID,
		Month:     m.Month,
		Year:      m.Year,
		Unit:      m.Unit,
		BaseUnit:  m.BaseUnit,
		Qty: inventory.Balances{
			Beginning: m.QtyBeginning,
			In:        m.QtyIn,
			Out:       m.QtyOut,
			Ending:    m.QtyEnding,
		},
		BaseQty: inventory.Balances{
			Beginning: m.BaseBeginning,
			In:        m.BaseIn,
			Out:       m.BaseOut,
			Ending:    m.BaseEnding,
		},
		Status:     m.Status,
		EntryCount: m.EntryCount,
	}
}

// FromDomain populates the persistence model from a domain StockCard
func (m *StockCardModel) FromDomain(c *inventory.StockCard) {
	m.AggregateModel = aggregateModelOf(c.Aggregate)
	m.ProductID = c.ProductID
	m.Month = c.Month
	m.Year = c.Year
	m.Unit = c.Unit
	m.BaseUnit = c.BaseUnit
	m.QtyBeginning = c.Qty.Beginning
	m.QtyIn = c.Qty.In
	m.QtyOut = c.Qty.Out
	m.QtyEnding = c.Qty.Ending
	m.BaseBeginning = c.BaseQty.Beginning
	m.BaseIn = c.BaseQty.In
	m.BaseOut = c.BaseQty.Out
	m.BaseEnding = c.BaseQty.Ending
	m.Status = c.Status
	m.EntryCount = c.EntryCount
}

// StockCardModelFromDomain creates a new persistence model from a domain StockCard
func StockCardModelFromDomain(c *inventory.StockCard) *StockCardModel {
	m := &StockCardModel{}
	m.FromDomain(c)
	return m
}

// StockCardEntryModel is the persistence model for an immutable stock card entry.
// The (reference_type, reference_id) index is what makes posting idempotent.
type StockCardEntryModel struct {
	ID              uuid.UUID               `gorm:"type:uuid;primary_key"`
	StockCardID     uuid.UUID               `gorm:"type:uuid;not null;uniqueIndex:idx_entry_card_sequence,priority:1"`
	Sequence        int                     `gorm:"not null;uniqueIndex:idx_entry_card_sequence,priority:2"`
	ProductID       uuid.UUID               `gorm:"type:uuid;not null;index"`
	Month           int                     `gorm:"not null"`
	Year            int                     `gorm:"not null"`
	ReferenceType   inventory.ReferenceType `gorm:"type:varchar(30);not null;uniqueIndex:idx_entry_reference,priority:1"`
	ReferenceID     uuid.UUID               `gorm:"type:uuid;not null;uniqueIndex:idx_entry_reference,priority:2"`
	Category        inventory.Category      `gorm:"type:varchar(30);not null"`
	Direction       inventory.Direction     `gorm:"type:varchar(20);not null"`
	Unit            string                  `gorm:"type:varchar(20);not null"`
	Quantity        decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	BaseQuantity    decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	Balance         decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	BaseBalance     decimal.Decimal         `gorm:"type:decimal(18,4);not null"`
	TransactionDate time.Time               `gorm:"not null"`
	Note            string                  `gorm:"type:varchar(500)"`
	CreatedAt       time.Time               `gorm:"not null"`
}

// TableName returns the table name for GORM
func (StockCardEntryModel) TableName() string {
	return "stock_card_entries"
}

// ToDomain converts the persistence model to a domain StockCardEntry
func (m *StockCardEntryModel) ToDomain() *inventory.StockCardEntry {
	return &inventory.StockCardEntry{
		ID:              m.ID,
		StockCardID:     m.StockCardID,
		ProductID:       m.ProductID,
		Month:           m.Month,
		Year:            m.Year,
		Sequence:        m.Sequence,
		Reference:       inventory.Reference{Type: m.ReferenceType, ID: m.ReferenceID},
		Category:        m.Category,
		Direction:       m.Direction,
		Unit:            m.Unit,
		Quantity:        m.Quantity,
		BaseQuantity:    m.BaseQuantity,
		Balance:         m.Balance,
		BaseBalance:     m.BaseBalance,
		TransactionDate: m.TransactionDate,
		Note:            m.Note,
		CreatedAt:       m.CreatedAt,
	}
}

// StockCardEntryModelFromDomain creates a new persistence model from a domain StockCardEntry
func StockCardEntryModelFromDomain(e *inventory.StockCardEntry) *StockCardEntryModel {
	return &StockCardEntryModel{
		ID:              e.ID,
		StockCardID:     e.StockCardID,
		Sequence:        e.Sequence,
		ProductID:       e.ProductID,
		Month:           e.Month,
		Year:            e.Year,
		ReferenceType:   e.Reference.Type,
		ReferenceID:     e.Reference.ID,
		Category:        e.Category,
		Direction:       e.Direction,
		Unit:            e.Unit,
		Quantity:        e.Quantity,
		BaseQuantity:    e.BaseQuantity,
		Balance:         e.Balance,
		BaseBalance:     e.BaseBalance,
		TransactionDate: e.TransactionDate,
		Note:            e.Note,
		CreatedAt:       e.CreatedAt,
	}
}

// CurrentStockModel is the persistence model for the on-hand projection
type CurrentStockModel struct {
	AggregateModel
	ProductID    uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:idx_current_stock_key,priority:1"`
	Unit         string               `gorm:"type:varchar(20);not null;uniqueIndex:idx_current_stock_key,priority:2"`
	Month        int                  `gorm:"not null;uniqueIndex:idx_current_stock_key,priority:4;index:idx_current_stock_period,priority:2"`
	Year         int                  `gorm:"not null;uniqueIndex:idx_current_stock_key,priority:3;index:idx_current_stock_period,priority:1"`
	Quantity     decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	BaseQuantity decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	Status       inventory.CardStatus `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (CurrentStockModel) TableName() string {
	return "current_stocks"
}

// ToDomain converts the persistence model to a domain CurrentStock
func (m *CurrentStockModel) ToDomain() *inventory.CurrentStock {
	return &inventory.CurrentStock{
		Aggregate:    m.aggregate(),
		ProductID:    m.ProductID,
		Unit:         m.Unit,
		Month:        m.Month,
		Year:         m.Year,
		Quantity:     m.Quantity,
		BaseQuantity: m.BaseQuantity,
		Status:       m.Status,
	}
}

// FromDomain populates the persistence model from a domain CurrentStock
func (m *CurrentStockModel) FromDomain(s *inventory.CurrentStock) {
	m.AggregateModel = aggregateModelOf(s.Aggregate)
	m.ProductID = s.ProductID
	m.Unit = s.Unit
	m.Month = s.Month
	m.Year = s.Year
	m.Quantity = s.Quantity
	m.BaseQuantity = s.BaseQuantity
	m.Status = s.Status
}

// CurrentStockModelFromDomain creates a new persistence model from a domain CurrentStock
func CurrentStockModelFromDomain(s *inventory.CurrentStock) *CurrentStockModel {
	m := &CurrentStockModel{}
	m.FromDomain(s)
	return m
}

// AllModels lists every table the ledger owns, in dependency order
func AllModels() []any {
	return []any{
		&ProductModel{},
		&UnitConversionModel{},
		&PeriodModel{},
		&StockCardModel{},
		&StockCardEntryModel{},
		&CurrentStockModel{},
		&OutboxEntryModel{},
	}
}
