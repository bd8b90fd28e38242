package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// LedgerHistory is a stock card with its entries in posting order
type LedgerHistory struct {
	Card    *inventory.StockCard
	Entries []inventory.StockCardEntry
}

// ReconcileReport compares the cached card balances and current stock against a replay of the entries
type ReconcileReport struct {
	ProductID        uuid.UUID
	Period           inventory.PeriodKey
	Card             inventory.Balances
	BaseCard         inventory.Balances
	Replayed         inventory.Balances
	BaseReplayed     inventory.Balances
	Stock            *inventory.CurrentStock
	LedgerConsistent bool
	ReplayMatches    bool
	ProjectionMatch  bool
}

// OK reports whether every check passed
func (r *ReconcileReport) OK() bool {
	return r.LedgerConsistent && r.ReplayMatches && r.ProjectionMatch
}

// QueryService answers read-side questions about the ledger
type QueryService struct {
	registry      *PeriodRegistry
	stockCards    inventory.StockCardRepository
	entries       inventory.StockCardEntryRepository
	currentStocks inventory.CurrentStockRepository
}

// NewQueryService creates a new QueryService
func NewQueryService(
	registry *PeriodRegistry,
	stockCards inventory.StockCardRepository,
	entries inventory.StockCardEntryRepository,
	currentStocks inventory.CurrentStockRepository,
) *QueryService {
	return &QueryService{
		registry:      registry,
		stockCards:    stockCards,
		entries:       entries,
		currentStocks: currentStocks,
	}
}

// ActivePeriod returns the running period
func (s *QueryService) ActivePeriod(ctx context.Context) (*inventory.Period, error) {
	return s.registry.ActivePeriod(ctx)
}

// ResolvePeriod returns key if set, otherwise the running period's key
func (s *QueryService) ResolvePeriod(ctx context.Context, key *inventory.PeriodKey) (inventory.PeriodKey, error) {
	if key != nil {
		return *key, nil
	}
	p, err := s.registry.ActivePeriod(ctx)
	if err != nil {
		return inventory.PeriodKey{}, err
	}
	return p.Key(), nil
}

// CurrentStock returns the on-hand row of a product and unit
func (s *QueryService) CurrentStock(ctx context.Context, productID uuid.UUID, unit string, key inventory.PeriodKey) (*inventory.CurrentStock, error) {
	return s.currentStocks.FindByKey(ctx, productID, unit, key)
}

// CurrentStockByProduct returns every unit row of a product
func (s *QueryService) CurrentStockByProduct(ctx context.Context, productID uuid.UUID, key inventory.PeriodKey) ([]inventory.CurrentStock, error) {
	return s.currentStocks.FindByProduct(ctx, productID, key)
}

// LedgerHistory returns a product's card and its entries for a month
func (s *QueryService) LedgerHistory(ctx context.Context, productID uuid.UUID, key inventory.PeriodKey) (*LedgerHistory, error) {
	card, err := s.stockCards.FindByKey(ctx, productID, key)
	if err != nil {
		return nil, err
	}
	entries, err := s.entries.FindByStockCard(ctx, card.ID)
	if err != nil {
		return nil, fmt.Errorf("load entries of stock card %s: %w", card.ID, err)
	}
	return &LedgerHistory{Card: card, Entries: entries}, nil
}

// PeriodHistory returns every card of a month with its entries
func (s *QueryService) PeriodHistory(ctx context.Context, key inventory.PeriodKey) ([]LedgerHistory, error) {
	cards, err := s.stockCards.FindByPeriod(ctx, key)
	if err != nil {
		return nil, err
	}
	out := make([]LedgerHistory, 0, len(cards))
	for i := range cards {
		entries, err := s.entries.FindByStockCard(ctx, cards[i].ID)
		if err != nil {
			return nil, fmt.Errorf("load entries of stock card %s: %w", cards[i].ID, err)
		}
		out = append(out, LedgerHistory{Card: &cards[i], Entries: entries})
	}
	return out, nil
}

// Reconcile replays a card's entries and checks them against the cached
// balances and the current stock row of the card's unit.
func (s *QueryService) Reconcile(ctx context.Context, productID uuid.UUID, key inventory.PeriodKey) (*ReconcileReport, error) {
	history, err := s.LedgerHistory(ctx, productID, key)
	if err != nil {
		return nil, err
	}
	card := history.Card
	qty, base := inventory.Replay(history.Entries)

	report := &ReconcileReport{
		ProductID:        productID,
		Period:           key,
		Card:             card.Qty,
		BaseCard:         card.BaseQty,
		Replayed:         qty,
		BaseReplayed:     base,
		LedgerConsistent: card.Qty.Consistent() && card.BaseQty.Consistent(),
		ReplayMatches:    qty.Equal(card.Qty) && base.Equal(card.BaseQty),
	}

	stock, err := s.currentStocks.FindByKey(ctx, productID, card.Unit, key)
	switch {
	case err == nil:
		report.Stock = stock
		report.ProjectionMatch = stock.Matches(card)
	case errors.Is(err, shared.ErrNotFound):
		// A card without a projection row only holds zero placeholder entries.
		report.ProjectionMatch = card.Qty.Ending.IsZero() && card.BaseQty.Ending.IsZero()
	default:
		return nil, err
	}
	return report, nil
}
