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

// GormStockCardRepository implements inventory.StockCardRepository using GORM
type GormStockCardRepository struct {
	db *gorm.DB
}

// NewGormStockCardRepository creates a new GormStockCardRepository
func NewGormStockCardRepository(db *gorm.DB) *GormStockCardRepository {
	return &GormStockCardRepository{db: db}
}

// FindByID finds a stock card by its ID
func (r *GormStockCardRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.StockCard, error) {
	var model models.StockCardModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByKey finds the card of a product for a month
func (r *GormStockCardRepository) FindByKey(ctx context.Context, productID uuid.UUID, key inventory.PeriodKey) (*inventory.StockCard, error) {
	return r.findByKey(r.db.WithContext(ctx), productID, key)
}

// FindByKeyForUpdate finds the card and locks its row until the transaction ends
func (r *GormStockCardRepository) FindByKeyForUpdate(ctx context.Context, productID uuid.UUID, key inventory.PeriodKey) (*inventory.StockCard, error) {
	return r.findByKey(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), productID, key)
}

func (r *GormStockCardRepository) findByKey(query *gorm.DB, productID uuid.UUID, key inventory.PeriodKey) (*inventory.StockCard, error) {
	var model models.StockCardModel
	if err := query.
		Where("product_id = ? AND year = ? AND month = ?", productID, key.Year, key.Month).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByPeriod lists every card of a month ordered by product
func (r *GormStockCardRepository) FindByPeriod(ctx context.Context, key inventory.PeriodKey) ([]inventory.StockCard, error) {
	var rows []models.StockCardModel
	if err := r.db.WithContext(ctx).
		Where("year = ? AND month = ?", key.Year, key.Month).
		Order("product_id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	cards := make([]inventory.StockCard, len(rows))
	for i := range rows {
		cards[i] = *rows[i].ToDomain()
	}
	return cards, nil
}

// Create inserts a new card. Losing the race for the (product, month) slot yields shared.ErrAlreadyExists
// without aborting the surrounding transaction.
func (r *GormStockCardRepository) Create(ctx context.Context, card *inventory.StockCard) error {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "year"}, {Name: "month"}},
			DoNothing: true,
		}).
		Create(models.StockCardModelFromDomain(card))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrAlreadyExists.WithMessage(
			fmt.Sprintf("Stock card of %s for %s already exists", card.ProductID, card.Key()))
	}
	return nil
}

// Save persists a modified card with an optimistic version check
func (r *GormStockCardRepository) Save(ctx context.Context, card *inventory.StockCard) error {
	model := models.StockCardModelFromDomain(card)
	result := r.db.WithContext(ctx).
		Model(&models.StockCardModel{}).
		Where("id = ? AND version = ?", card.ID, card.Version-1).
		Updates(map[string]any{
			"qty_beginning":  model.QtyBeginning,
			"qty_in":         model.QtyIn,
			"qty_out":        model.QtyOut,
			"qty_ending":     model.QtyEnding,
			"base_beginning": model.BaseBeginning,
			"base_in":        model.BaseIn,
			"base_out":       model.BaseOut,
			"base_ending":    model.BaseEnding,
			"status":         model.Status,
			"entry_count":    model.EntryCount,
			"version":        model.Version,
			"updated_at":     model.UpdatedAt,
		})
	return versionedUpdate(result, fmt.Sprintf("Stock card of %s for %s", card.ProductID, card.Key()))
}

var _ inventory.StockCardRepository = (*GormStockCardRepository)(nil)
