package persistence

import (
	"context"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPeriodRepository implements inventory.PeriodRepository using GORM
type GormPeriodRepository struct {
	db *gorm.DB
}

// NewGormPeriodRepository creates a new GormPeriodRepository
func NewGormPeriodRepository(db *gorm.DB) *GormPeriodRepository {
	return &GormPeriodRepository{db: db}
}

// FindByID finds a period by its ID, tombstoned or not
func (r *GormPeriodRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Period, error) {
	var model models.PeriodModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate finds a period and holds its row lock until the transaction ends
func (r *GormPeriodRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inventory.Period, error) {
	var model models.PeriodModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByKey finds the visible period of a month
func (r *GormPeriodRepository) FindByKey(ctx context.Context, key inventory.PeriodKey) (*inventory.Period, error) {
	return r.findByKey(ctx, r.db.WithContext(ctx), key)
}

// FindByKeyForShare finds the visible period of a month under a shared row lock
func (r *GormPeriodRepository) FindByKeyForShare(ctx context.Context, key inventory.PeriodKey) (*inventory.Period, error) {
	return r.findByKey(ctx, r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "SHARE"}), key)
}

func (r *GormPeriodRepository) findByKey(_ context.Context, query *gorm.DB, key inventory.PeriodKey) (*inventory.Period, error) {
	var model models.PeriodModel
	if err := query.
		Where("year = ? AND month = ? AND tombstoned = ?", key.Year, key.Month, false).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindRunning returns the running period
func (r *GormPeriodRepository) FindRunning(ctx context.Context) (*inventory.Period, error) {
	var model models.PeriodModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND tombstoned = ?", inventory.PeriodStatusRunning, false).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindAll lists periods newest first
func (r *GormPeriodRepository) FindAll(ctx context.Context, includeTombstoned bool) ([]inventory.Period, error) {
	query := r.db.WithContext(ctx).Model(&models.PeriodModel{})
	if !includeTombstoned {
		query = query.Where("tombstoned = ?", false)
	}

	var rows []models.PeriodModel
	if err := query.Order("year DESC, month DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	periods := make([]inventory.Period, len(rows))
	for i := range rows {
		periods[i] = *rows[i].ToDomain()
	}
	return periods, nil
}

// ExistsByKey reports whether a month is registered, including tombstoned rows
func (r *GormPeriodRepository) ExistsByKey(ctx context.Context, key inventory.PeriodKey) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PeriodModel{}).
		Where("year = ? AND month = ?", key.Year, key.Month).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a new period. A month that is already registered yields shared.ErrAlreadyExists.
func (r *GormPeriodRepository) Create(ctx context.Context, period *inventory.Period) error {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "year"}, {Name: "month"}},
			DoNothing: true,
		}).
		Create(models.PeriodModelFromDomain(period))
	if result.Error != nil {
		if isDuplicateKey(result.Error) {
			return inventory.ErrPeriodAlreadyRunning
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrAlreadyExists.WithMessage("Period " + period.Key().String() + " already exists")
	}
	return nil
}

// Save persists a modified period with an optimistic version check.
// Violating the running-slot index means another period is already running.
func (r *GormPeriodRepository) Save(ctx context.Context, period *inventory.Period) error {
	model := models.PeriodModelFromDomain(period)
	result := r.db.WithContext(ctx).
		Model(&models.PeriodModel{}).
		Where("id = ? AND version = ?", period.ID, period.Version-1).
		Updates(map[string]any{
			"status":        model.Status,
			"confirmation":  model.Confirmation,
			"running_slot":  model.RunningSlot,
			"started_at":    model.StartedAt,
			"closed_at":     model.ClosedAt,
			"confirmed_at":  model.ConfirmedAt,
			"tombstoned":    model.Tombstoned,
			"tombstoned_at": model.TombstonedAt,
			"version":       model.Version,
			"updated_at":    model.UpdatedAt,
		})
	if isDuplicateKey(result.Error) {
		return inventory.ErrPeriodAlreadyRunning.WithMessage(
			"Cannot start period " + period.Key().String() + ": another period is running")
	}
	return versionedUpdate(result, "Period "+period.Key().String())
}

var _ inventory.PeriodRepository = (*GormPeriodRepository)(nil)
