package inventory

import (
	"context"
	"sort"
	"sync"

	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// memLedger is an in-memory ledger store with the same version and uniqueness
// rules as the database repositories. Values are copied in and out so that only
// Create and Save change stored state.
type memLedger struct {
	mu          sync.Mutex
	periods     map[uuid.UUID]inventory.Period
	cards       map[uuid.UUID]inventory.StockCard
	entries     []inventory.StockCardEntry
	stocks      map[uuid.UUID]inventory.CurrentStock
	products    map[uuid.UUID]catalog.Product
	conversions map[uuid.UUID][]catalog.UnitConversion
	events      []shared.DomainEvent
}

func newMemLedger() *memLedger {
	return &memLedger{
		periods:     make(map[uuid.UUID]inventory.Period),
		cards:       make(map[uuid.UUID]inventory.StockCard),
		stocks:      make(map[uuid.UUID]inventory.CurrentStock),
		products:    make(map[uuid.UUID]catalog.Product),
		conversions: make(map[uuid.UUID][]catalog.UnitConversion),
	}
}

func (m *memLedger) scope() *NoOpTransactionScope {
	return NewNoOpTransactionScope(memPeriods{m}, memCards{m}, memEntries{m}, memStocks{m}, memEvents{m})
}

func (m *memLedger) converter() *catalog.UnitConverter {
	return catalog.NewUnitConverter(memProducts{m}, memConversions{m})
}

func (m *memLedger) recorded(eventType string) []shared.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []shared.DomainEvent
	for _, e := range m.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

type memPeriods struct{ m *memLedger }

func (r memPeriods) FindByID(_ context.Context, id uuid.UUID) (*inventory.Period, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.periods[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &p, nil
}

func (r memPeriods) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*inventory.Period, error) {
	return r.FindByID(ctx, id)
}

func (r memPeriods) FindByKey(_ context.Context, key inventory.PeriodKey) (*inventory.Period, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, p := range r.m.periods {
		if p.Key() == key && !p.Tombstoned {
			return &p, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r memPeriods) FindByKeyForShare(ctx context.Context, key inventory.PeriodKey) (*inventory.Period, error) {
	return r.FindByKey(ctx, key)
}

func (r memPeriods) FindRunning(_ context.Context) (*inventory.Period, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, p := range r.m.periods {
		if p.IsRunning() {
			return &p, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r memPeriods) FindAll(_ context.Context, includeTombstoned bool) ([]inventory.Period, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]inventory.Period, 0, len(r.m.periods))
	for _, p := range r.m.periods {
		if p.Tombstoned && !includeTombstoned {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[j].Key().Before(out[i].Key()) })
	return out, nil
}

func (r memPeriods) ExistsByKey(_ context.Context, key inventory.PeriodKey) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, p := range r.m.periods {
		if p.Key() == key {
			return true, nil
		}
	}
	return false, nil
}

func (r memPeriods) Create(_ context.Context, period *inventory.Period) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, p := range r.m.periods {
		if p.Key() == period.Key() {
			return shared.ErrAlreadyExists
		}
	}
	r.m.periods[period.ID] = *period
	return nil
}

func (r memPeriods) Save(_ context.Context, period *inventory.Period) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	stored, ok := r.m.periods[period.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Version != period.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	if period.IsRunning() {
		for id, p := range r.m.periods {
			if id != period.ID && p.IsRunning() {
				return shared.ErrAlreadyExists
			}
		}
	}
	r.m.periods[period.ID] = *period
	return nil
}

type memCards struct{ m *memLedger }

func (r memCards) FindByID(_ context.Context, id uuid.UUID) (*inventory.StockCard, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.cards[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &c, nil
}

func (r memCards) FindByKey(_ context.Context, productID uuid.UUID, key inventory.PeriodKey) (*inventory.StockCard, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, c := range r.m.cards {
		if c.ProductID == productID && c.Key() == key {
			return &c, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r memCards) FindByKeyForUpdate(ctx context.Context, productID uuid.UUID, key inventory.PeriodKey) (*inventory.StockCard, error) {
	return r.FindByKey(ctx, productID, key)
}

func (r memCards) FindByPeriod(_ context.Context, key inventory.PeriodKey) ([]inventory.StockCard, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []inventory.StockCard
	for _, c := range r.m.cards {
		if c.Key() == key {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID.String() < out[j].ProductID.String() })
	return out, nil
}

func (r memCards) Create(_ context.Context, card *inventory.StockCard) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, c := range r.m.cards {
		if c.ProductID == card.ProductID && c.Key() == card.Key() {
			return shared.ErrAlreadyExists
		}
	}
	r.m.cards[card.ID] = *card
	return nil
}

func (r memCards) Save(_ context.Context, card *inventory.StockCard) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	stored, ok := r.m.cards[card.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Version != card.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.m.cards[card.ID] = *card
	return nil
}

type memEntries struct{ m *memLedger }

func (r memEntries) Append(_ context.Context, entry *inventory.StockCardEntry) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, e := range r.m.entries {
		if e.Reference == entry.Reference {
			return inventory.ErrAlreadyPosted
		}
		if e.StockCardID == entry.StockCardID && e.Sequence == entry.Sequence {
			return shared.ErrConcurrencyConflict
		}
	}
	r.m.entries = append(r.m.entries, *entry)
	return nil
}

func (r memEntries) ExistsByReference(_ context.Context, ref inventory.Reference) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, e := range r.m.entries {
		if e.Reference == ref {
			return true, nil
		}
	}
	return false, nil
}

func (r memEntries) FindByStockCard(_ context.Context, stockCardID uuid.UUID) ([]inventory.StockCardEntry, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []inventory.StockCardEntry
	for _, e := range r.m.entries {
		if e.StockCardID == stockCardID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (r memEntries) FindLatest(ctx context.Context, stockCardID uuid.UUID) (*inventory.StockCardEntry, error) {
	entries, _ := r.FindByStockCard(ctx, stockCardID)
	if len(entries) == 0 {
		return nil, shared.ErrNotFound
	}
	return &entries[len(entries)-1], nil
}

type memStocks struct{ m *memLedger }

func (r memStocks) FindByKey(_ context.Context, productID uuid.UUID, unit string, key inventory.PeriodKey) (*inventory.CurrentStock, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, s := range r.m.stocks {
		if s.ProductID == productID && s.Unit == unit && s.Key() == key {
			return &s, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r memStocks) FindByKeyForUpdate(ctx context.Context, productID uuid.UUID, unit string, key inventory.PeriodKey) (*inventory.CurrentStock, error) {
	return r.FindByKey(ctx, productID, unit, key)
}

func (r memStocks) FindByProduct(_ context.Context, productID uuid.UUID, key inventory.PeriodKey) ([]inventory.CurrentStock, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []inventory.CurrentStock
	for _, s := range r.m.stocks {
		if s.ProductID == productID && s.Key() == key {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r memStocks) FindByPeriod(_ context.Context, key inventory.PeriodKey) ([]inventory.CurrentStock, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []inventory.CurrentStock
	for _, s := range r.m.stocks {
		if s.Key() == key {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID.String() < out[j].ProductID.String() })
	return out, nil
}

func (r memStocks) Create(_ context.Context, stock *inventory.CurrentStock) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, s := range r.m.stocks {
		if s.ProductID == stock.ProductID && s.Unit == stock.Unit && s.Key() == stock.Key() {
			return shared.ErrAlreadyExists
		}
	}
	r.m.stocks[stock.ID] = *stock
	return nil
}

func (r memStocks) Save(_ context.Context, stock *inventory.CurrentStock) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	stored, ok := r.m.stocks[stock.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Version != stock.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.m.stocks[stock.ID] = *stock
	return nil
}

type memEvents struct{ m *memLedger }

func (r memEvents) Record(_ context.Context, events ...shared.DomainEvent) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.events = append(r.m.events, events...)
	return nil
}

type memProducts struct{ m *memLedger }

func (r memProducts) FindByID(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	p, ok := r.m.products[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &p, nil
}

func (r memProducts) Save(_ context.Context, product *catalog.Product) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.products[product.ID] = *product
	return nil
}

type memConversions struct{ m *memLedger }

func (r memConversions) FindByProductID(_ context.Context, productID uuid.UUID) ([]catalog.UnitConversion, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return append([]catalog.UnitConversion(nil), r.m.conversions[productID]...), nil
}

func (r memConversions) Save(_ context.Context, conversion *catalog.UnitConversion) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	list := r.m.conversions[conversion.ProductID]
	for i := range list {
		if list[i].FromUnit == conversion.FromUnit && list[i].ToUnit == conversion.ToUnit {
			list[i] = *conversion
			return nil
		}
	}
	r.m.conversions[conversion.ProductID] = append(list, *conversion)
	return nil
}
