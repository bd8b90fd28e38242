package models

import (
	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductModel is the ledger's read model of a catalog product.
// It is written by the ProductCreated consumer, never by users.
type ProductModel struct {
	AggregateModel
	Code      string `gorm:"type:varchar(50);not null;index:idx_product_code"`
	Name      string `gorm:"type:varchar(200);not null"`
	BaseUnit  string `gorm:"type:varchar(20);not null"`
	StockUnit string `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product entity.
// Pending domain events are not persisted and come back empty.
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		Aggregate: m.aggregate(),
		Code:      m.Code,
		Name:      m.Name,
		BaseUnit:  m.BaseUnit,
		StockUnit: m.StockUnit,
	}
}

// FromDomain populates the persistence model from a domain Product entity
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.AggregateModel = aggregateModelOf(p.Aggregate)
	m.Code = p.Code
	m.Name = p.Name
	m.BaseUnit = p.BaseUnit
	m.StockUnit = p.StockUnit
}

// ProductModelFromDomain creates a new persistence model from a domain Product entity
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}

// UnitConversionModel is the persistence model for a product's unit conversion record
type UnitConversionModel struct {
	BaseModel
	ProductID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_unit_conversion_pair,priority:1"`
	FromUnit  string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_unit_conversion_pair,priority:2"`
	ToUnit    string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_unit_conversion_pair,priority:3"`
	Factor    decimal.Decimal `gorm:"type:decimal(18,6);not null"`
}

// TableName returns the table name for GORM
func (UnitConversionModel) TableName() string {
	return "unit_conversions"
}

// ToDomain converts the persistence model to a domain UnitConversion
func (m *UnitConversionModel) ToDomain() *catalog.UnitConversion {
	return &catalog.UnitConversion{
		ID:        m.ID,
		ProductID: m.ProductID,
		FromUnit:  m.FromUnit,
		ToUnit:    m.ToUnit,
		Factor:    m.Factor,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain UnitConversion
func (m *UnitConversionModel) FromDomain(c *catalog.UnitConversion) {
	m.ID = c.ID
	m.ProductID = c.ProductID
	m.FromUnit = c.FromUnit
	m.ToUnit = c.ToUnit
	m.Factor = c.Factor
	m.CreatedAt = c.CreatedAt
	m.UpdatedAt = c.UpdatedAt
}

// UnitConversionModelFromDomain creates a new persistence model from a domain UnitConversion
func UnitConversionModelFromDomain(c *catalog.UnitConversion) *UnitConversionModel {
	m := &UnitConversionModel{}
	m.FromDomain(c)
	return m
}
