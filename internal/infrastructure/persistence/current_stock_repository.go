package persistence

import (
	"context"
	"fmt"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCurrentStockRepository implements inventory.CurrentStockRepository using GORM
type GormCurrentStockRepository struct {
	db *gorm.DB
}

// NewGormCurrentStockRepository creates a new GormCurrentStockRepository
func NewGormCurrentStockRepository(db *gorm.DB) *GormCurrentStockRepository {
	return &GormCurrentStockRepository{db: db}
}

// FindByKey finds the row of a product and unit for a month
func (r *GormCurrentStockRepository) FindByKey(ctx context.Context, productID uuid.UUID, unit string, key inventory.PeriodKey) (*inventory.CurrentStock, error) {
	return r.findByKey(r.db.WithContext(ctx), productID, unit, key)
}

// FindByKeyForUpdate finds the row and locks it until the transaction ends
func (r *GormCurrentStockRepository) FindByKeyForUpdate(ctx context.Context, productID uuid.UUID, unit string, key inventory.PeriodKey) (*inventory.CurrentStock, error) {
	return r.findByKey(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), productID, unit, key)
}

func (r *GormCurrentStockRepository) findByKey(query *gorm.DB, productID uuid.UUID, unit string, key inventory.PeriodKey) (*inventory.CurrentStock, error) {
	var model models.CurrentStockModel
	if err := query.
		Where("product_id = ? AND unit = ? AND year = ? AND month = ?", productID, unit, key.Year, key.Month).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByProduct lists every unit row of a product for a month
func (r *GormCurrentStockRepository) FindByProduct(ctx context.Context, productID uuid.UUID, key inventory.PeriodKey) ([]inventory.CurrentStock, error) {
	return r.find(r.db.WithContext(ctx).
		Where("product_id = ? AND year = ? AND month = ?", productID, key.Year, key.Month).
		Order("unit ASC"))
}

// FindByPeriod lists every row of a month
func (r *GormCurrentStockRepository) FindByPeriod(ctx context.Context, key inventory.PeriodKey) ([]inventory.CurrentStock, error) {
	return r.find(r.db.WithContext(ctx).
		Where("year = ? AND month = ?", key.Year, key.Month).
		Order("product_id ASC, unit ASC"))
}

func (r *GormCurrentStockRepository) find(query *gorm.DB) ([]inventory.CurrentStock, error) {
	var rows []models.CurrentStockModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	stocks := make([]inventory.CurrentStock, len(rows))
	for i := range rows {
		stocks[i] = *rows[i].ToDomain()
	}
	return stocks, nil
}

// Create inserts a new row; losing the race for the key yields shared.ErrAlreadyExists
func (r *GormCurrentStockRepository) Create(ctx context.Context, stock *inventory.CurrentStock) error {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "unit"}, {Name: "year"}, {Name: "month"}},
			DoNothing: true,
		}).
		Create(models.CurrentStockModelFromDomain(stock))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrAlreadyExists.WithMessage(
			fmt.Sprintf("Current stock of %s in %s for %s already exists", stock.ProductID, stock.Unit, stock.Key()))
	}
	return nil
}

// Save persists a modified row with an optimistic version check
func (r *GormCurrentStockRepository) Save(ctx context.Context, stock *inventory.CurrentStock) error {
	result := r.db.WithContext(ctx).
		Model(&models.CurrentStockModel{}).
		Where("id = ? AND version = ?", stock.ID, stock.Version-1).
		Updates(map[string]any{
			"quantity":      stock.Quantity,
			"base_quantity": stock.BaseQuantity,
			"status":        stock.Status,
			"version":       stock.Version,
			"updated_at":    stock.UpdatedAt,
		})
	return versionedUpdate(result, fmt.Sprintf("Current stock of %s in %s", stock.ProductID, stock.Unit))
}

var _ inventory.CurrentStockRepository = (*GormCurrentStockRepository)(nil)
