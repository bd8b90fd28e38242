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

// GormStockCardEntryRepository is the append-only entry journal backed by GORM.
// Entries are never updated or deleted.
type GormStockCardEntryRepository struct {
	db *gorm.DB
}

// NewGormStockCardEntryRepository creates a new GormStockCardEntryRepository
func NewGormStockCardEntryRepository(db *gorm.DB) *GormStockCardEntryRepository {
	return &GormStockCardEntryRepository{db: db}
}

// Append inserts an entry. The (reference_type, reference_id) index turns a second posting of
// the same reference into inventory.ErrAlreadyPosted; a clash on the card sequence means a
// concurrent writer got there first.
func (r *GormStockCardEntryRepository) Append(ctx context.Context, entry *inventory.StockCardEntry) error {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "reference_type"}, {Name: "reference_id"}},
			DoNothing: true,
		}).
		Create(models.StockCardEntryModelFromDomain(entry))
	if result.Error != nil {
		if isDuplicateKey(result.Error) {
			return shared.ErrConcurrencyConflict.WithMessage(
				fmt.Sprintf("Stock card %s entry %d was written by another transaction", entry.StockCardID, entry.Sequence))
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return inventory.ErrAlreadyPosted.WithMessage(entry.Reference.String() + " has already been posted")
	}
	return nil
}

// ExistsByReference reports whether a reference has already been posted
func (r *GormStockCardEntryRepository) ExistsByReference(ctx context.Context, ref inventory.Reference) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.StockCardEntryModel{}).
		Where("reference_type = ? AND reference_id = ?", ref.Type, ref.ID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindByStockCard lists the entries of a card in sequence order
func (r *GormStockCardEntryRepository) FindByStockCard(ctx context.Context, stockCardID uuid.UUID) ([]inventory.StockCardEntry, error) {
	var rows []models.StockCardEntryModel
	if err := r.db.WithContext(ctx).
		Where("stock_card_id = ?", stockCardID).
		Order("sequence ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	entries := make([]inventory.StockCardEntry, len(rows))
	for i := range rows {
		entries[i] = *rows[i].ToDomain()
	}
	return entries, nil
}

// FindLatest returns the most recent entry of a card
func (r *GormStockCardEntryRepository) FindLatest(ctx context.Context, stockCardID uuid.UUID) (*inventory.StockCardEntry, error) {
	var model models.StockCardEntryModel
	if err := r.db.WithContext(ctx).
		Where("stock_card_id = ?", stockCardID).
		Order("sequence DESC").
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

var _ inventory.StockCardEntryRepository = (*GormStockCardEntryRepository)(nil)
