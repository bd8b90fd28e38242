package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	march2024 = inventory.PeriodKey{Month: 3, Year: 2024}
	april2024 = inventory.PeriodKey{Month: 4, Year: 2024}
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func at(key inventory.PeriodKey, day int) *time.Time {
	t := time.Date(key.Year, time.Month(key.Month), day, 9, 0, 0, 0, time.UTC)
	return &t
}

type ledgerFixture struct {
	store    *memLedger
	poster   *MovementPoster
	registry *PeriodRegistry
	closer   *PeriodCloser
	queries  *QueryService
	products *ProductCreatedHandler
}

func newLedgerFixture(t *testing.T, opts Options) *ledgerFixture {
	t.Helper()
	store := newMemLedger()
	scope := store.scope()
	logger := zap.NewNop()
	poster := NewMovementPoster(scope, store.converter(), opts, logger)
	registry := NewPeriodRegistry(scope, memPeriods{store}, logger)
	return &ledgerFixture{
		store:    store,
		poster:   poster,
		registry: registry,
		closer:   NewPeriodCloser(scope, nil, 0, opts, logger),
		queries:  NewQueryService(registry, memCards{store}, memEntries{store}, memStocks{store}),
		products: NewProductCreatedHandler(memProducts{store}, memConversions{store}, poster, logger),
	}
}

// registerWater creates a product kept in bottles of 500 ml, created in the given month
func (f *ledgerFixture) registerWater(t *testing.T, created inventory.PeriodKey) uuid.UUID {
	t.Helper()
	product, err := catalog.NewProduct("WATER", "Mineral water", "ml", "bottle")
	require.NoError(t, err)
	product.CreatedAt = *at(created, 1)
	_, err = product.DefineConversion("bottle", "ml", dec("500"))
	require.NoError(t, err)

	event := product.PendingEvents()[0].(*catalog.ProductCreatedEvent)
	event.CreatedAt = product.CreatedAt
	require.NoError(t, f.products.Handle(context.Background(), event))
	return product.ID
}

func (f *ledgerFixture) runPeriod(t *testing.T, key inventory.PeriodKey) *inventory.Period {
	t.Helper()
	ctx := context.Background()
	p, err := f.registry.OpenPeriod(ctx, key)
	require.NoError(t, err)
	p, err = f.registry.StartPeriod(ctx, p.ID)
	require.NoError(t, err)
	return p
}

func (f *ledgerFixture) receive(t *testing.T, productID uuid.UUID, qty string) uuid.UUID {
	t.Helper()
	lineID := uuid.New()
	event := newGoodsReceipt(productID, lineID, "bottle", qty)
	require.NoError(t, NewGoodsReceiptApprovedHandler(f.poster).Handle(context.Background(), event))
	return lineID
}

func (f *ledgerFixture) card(t *testing.T, productID uuid.UUID, key inventory.PeriodKey) *inventory.StockCard {
	t.Helper()
	card, err := memCards{f.store}.FindByKey(context.Background(), productID, key)
	require.NoError(t, err)
	return card
}

func (f *ledgerFixture) stock(t *testing.T, productID uuid.UUID, key inventory.PeriodKey) *inventory.CurrentStock {
	t.Helper()
	stock, err := memStocks{f.store}.FindByKey(context.Background(), productID, "bottle", key)
	require.NoError(t, err)
	return stock
}
