package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockProjection keeps the current stock rows in step with the ledger.
// It must run in the same transaction as the ledger write it mirrors.
type StockProjection struct{}

// NewStockProjection creates a new StockProjection
func NewStockProjection() *StockProjection {
	return &StockProjection{}
}

// Ensure returns the row for a product, unit and month, creating a zero row if needed
func (p *StockProjection) Ensure(ctx context.Context, repos TransactionalRepositories, productID uuid.UUID, unit string, key inventory.PeriodKey, status inventory.CardStatus) (*inventory.CurrentStock, error) {
	stock, err := repos.CurrentStocks().FindByKeyForUpdate(ctx, productID, unit, key)
	if err == nil {
		return stock, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("load current stock: %w", err)
	}

	stock, err = inventory.NewCurrentStock(productID, unit, key, status)
	if err != nil {
		return nil, err
	}
	if err := repos.CurrentStocks().Create(ctx, stock); err != nil {
		if !errors.Is(err, shared.ErrAlreadyExists) {
			return nil, fmt.Errorf("create current stock: %w", err)
		}
		return repos.CurrentStocks().FindByKeyForUpdate(ctx, productID, unit, key)
	}
	return stock, nil
}

// Adjust adds signed deltas to the row, creating it first if needed.
// Zero deltas leave an existing row untouched.
func (p *StockProjection) Adjust(ctx context.Context, repos TransactionalRepositories, productID uuid.UUID, unit string, key inventory.PeriodKey, status inventory.CardStatus, qty, baseQty decimal.Decimal) (*inventory.CurrentStock, error) {
	stock, err := p.Ensure(ctx, repos, productID, unit, key, status)
	if err != nil {
		return nil, err
	}
	if qty.IsZero() && baseQty.IsZero() {
		return stock, nil
	}
	if err := stock.Adjust(qty, baseQty); err != nil {
		return nil, err
	}
	if err := repos.CurrentStocks().Save(ctx, stock); err != nil {
		return nil, fmt.Errorf("save current stock: %w", err)
	}
	return stock, nil
}
