package persistence

import (
	"context"

	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductRepository implements catalog.ProductRepository using GORM.
// Writes join the caller's transaction when the context carries one.
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID finds a product by its ID
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var model models.ProductModel
	if err := dbFor(ctx, r.db).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// Save creates or updates a product. Redelivered ProductCreated events
// overwrite the read model with the same values.
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	return dbFor(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"code", "name", "base_unit", "stock_unit", "version", "updated_at"}),
		}).
		Create(models.ProductModelFromDomain(product)).Error
}

var _ catalog.ProductRepository = (*GormProductRepository)(nil)

// GormUnitConversionRepository implements catalog.UnitConversionRepository using GORM
type GormUnitConversionRepository struct {
	db *gorm.DB
}

// NewGormUnitConversionRepository creates a new GormUnitConversionRepository
func NewGormUnitConversionRepository(db *gorm.DB) *GormUnitConversionRepository {
	return &GormUnitConversionRepository{db: db}
}

// FindByProductID returns every conversion record of a product
func (r *GormUnitConversionRepository) FindByProductID(ctx context.Context, productID uuid.UUID) ([]catalog.UnitConversion, error) {
	var rows []models.UnitConversionModel
	if err := dbFor(ctx, r.db).
		Where("product_id = ?", productID).
		Order("from_unit ASC, to_unit ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	conversions := make([]catalog.UnitConversion, len(rows))
	for i := range rows {
		conversions[i] = *rows[i].ToDomain()
	}
	return conversions, nil
}

// Save creates a conversion or replaces the factor of an existing (product, from, to) pair
func (r *GormUnitConversionRepository) Save(ctx context.Context, conversion *catalog.UnitConversion) error {
	return dbFor(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "from_unit"}, {Name: "to_unit"}},
			DoUpdates: clause.AssignmentColumns([]string{"factor", "updated_at"}),
		}).
		Create(models.UnitConversionModelFromDomain(conversion)).Error
}

var _ catalog.UnitConversionRepository = (*GormUnitConversionRepository)(nil)
