package inventory

import (
	"context"

	"github.com/google/uuid"
)

// PeriodRepository defines the interface for period persistence.
// Tombstoned periods are invisible to the key-based finders and FindRunning.
type PeriodRepository interface {
	// FindByID finds a period by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Period, error)

	// FindByIDForUpdate finds a period and locks its row until the transaction ends
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Period, error)

	// FindByKey finds the period of a month
	FindByKey(ctx context.Context, key PeriodKey) (*Period, error)

	// FindByKeyForShare finds the period of a month holding a shared row lock,
	// so that a concurrent close waits for in-flight postings
	FindByKeyForShare(ctx context.Context, key PeriodKey) (*Period, error)

	// FindRunning returns the single RUNNING period or shared.ErrNotFound
	FindRunning(ctx context.Context) (*Period, error)

	// FindAll lists periods newest first
	FindAll(ctx context.Context, includeTombstoned bool) ([]Period, error)

	// ExistsByKey reports whether a month is registered, tombstoned or not
	ExistsByKey(ctx context.Context, key PeriodKey) (bool, error)

	// Create inserts a new period
	Create(ctx context.Context, period *Period) error

	// Save persists a modified period with an optimistic version check
	Save(ctx context.Context, period *Period) error
}

// StockCardRepository defines the interface for stock card persistence
type StockCardRepository interface {
	// FindByID finds a stock card by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*StockCard, error)

	// FindByKey finds the card of a product for a month
	FindByKey(ctx context.Context, productID uuid.UUID, key PeriodKey) (*StockCard, error)

	// FindByKeyForUpdate finds the card and locks its row until the transaction ends
	FindByKeyForUpdate(ctx context.Context, productID uuid.UUID, key PeriodKey) (*StockCard, error)

	// FindByPeriod lists every card of a month
	FindByPeriod(ctx context.Context, key PeriodKey) ([]StockCard, error)

	// Create inserts a new card; a concurrent insert of the same key yields shared.ErrAlreadyExists
	Create(ctx context.Context, card *StockCard) error

	// Save persists a modified card with an optimistic version check
	Save(ctx context.Context, card *StockCard) error
}

// StockCardEntryRepository is the append-only journal of stock card entries
type StockCardEntryRepository interface {
	// Append inserts an entry; a reused reference yields ErrAlreadyPosted
	Append(ctx context.Context, entry *StockCardEntry) error

	// ExistsByReference reports whether a reference has already been posted
	ExistsByReference(ctx context.Context, ref Reference) (bool, error)

	// FindByStockCard lists the entries of a card in sequence order
	FindByStockCard(ctx context.Context, stockCardID uuid.UUID) ([]StockCardEntry, error)

	// FindLatest returns the most recent entry of a card
	FindLatest(ctx context.Context, stockCardID uuid.UUID) (*StockCardEntry, error)
}

// CurrentStockRepository defines the interface for the on-hand projection
type CurrentStockRepository interface {
	// FindByKey finds the row of a product and unit for a month
	FindByKey(ctx context.Context, productID uuid.UUID, unit string, key PeriodKey) (*CurrentStock, error)

	// FindByKeyForUpdate finds the row and locks it until the transaction ends
	FindByKeyForUpdate(ctx context.Context, productID uuid.UUID, unit string, key PeriodKey) (*CurrentStock, error)

	// FindByProduct lists every unit row of a product for a month
	FindByProduct(ctx context.Context, productID uuid.UUID, key PeriodKey) ([]CurrentStock, error)

	// FindByPeriod lists every row of a month
	FindByPeriod(ctx context.Context, key PeriodKey) ([]CurrentStock, error)

	// Create inserts a new row; a concurrent insert of the same key yields shared.ErrAlreadyExists
	Create(ctx context.Context, stock *CurrentStock) error

	// Save persists a modified row with an optimistic version check
	Save(ctx context.Context, stock *CurrentStock) error
}
