package inventory

import (
	"context"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
)

// TransactionScope provides transactional access to ledger repositories.
// Everything done through the repositories handed to fn commits or rolls back together.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error

	// Joined reports whether Execute would run inside a transaction the caller already owns.
	// Retrying a conflict is only possible when the scope owns the transaction.
	Joined(ctx context.Context) bool

	// Atomic runs fn in one transaction carried by fn's context. Execute calls and
	// context-aware repositories used with that context join it.
	Atomic(ctx context.Context, fn func(ctx context.Context) error) error
}

// TransactionalRepositories provides access to all ledger repositories within a transaction.
// All repositories returned share the same underlying database transaction.
type TransactionalRepositories interface {
	// Periods returns the period repository scoped to the current transaction
	Periods() inventory.PeriodRepository
	// StockCards returns the stock card repository scoped to the current transaction
	StockCards() inventory.StockCardRepository
	// Entries returns the stock card entry journal scoped to the current transaction
	Entries() inventory.StockCardEntryRepository
	// CurrentStocks returns the projection repository scoped to the current transaction
	CurrentStocks() inventory.CurrentStockRepository
	// Events returns the outbox writer scoped to the current transaction
	Events() EventRecorder
}

// EventRecorder stores domain events for delivery after the transaction commits
type EventRecorder interface {
	Record(ctx context.Context, events ...shared.DomainEvent) error
}

// NoOpTransactionScope is a transaction scope that doesn't actually use transactions.
// This is useful for testing with repository mocks.
type NoOpTransactionScope struct {
	periods       inventory.PeriodRepository
	stockCards    inventory.StockCardRepository
	entries       inventory.StockCardEntryRepository
	currentStocks inventory.CurrentStockRepository
	events        EventRecorder
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	periods inventory.PeriodRepository,
	stockCards inventory.StockCardRepository,
	entries inventory.StockCardEntryRepository,
	currentStocks inventory.CurrentStockRepository,
	events EventRecorder,
) *NoOpTransactionScope {
	if events == nil {
		events = discardRecorder{}
	}
	return &NoOpTransactionScope{
		periods:       periods,
		stockCards:    stockCards,
		entries:       entries,
		currentStocks: currentStocks,
		events:        events,
	}
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Joined always reports false
func (s *NoOpTransactionScope) Joined(context.Context) bool { return false }

// Atomic calls fn directly
func (s *NoOpTransactionScope) Atomic(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Periods returns the period repository.
func (s *NoOpTransactionScope) Periods() inventory.PeriodRepository { return s.periods }

// StockCards returns the stock card repository.
func (s *NoOpTransactionScope) StockCards() inventory.StockCardRepository { return s.stockCards }

// Entries returns the entry journal.
func (s *NoOpTransactionScope) Entries() inventory.StockCardEntryRepository { return s.entries }

// CurrentStocks returns the projection repository.
func (s *NoOpTransactionScope) CurrentStocks() inventory.CurrentStockRepository {
	return s.currentStocks
}

// Events returns the event recorder.
func (s *NoOpTransactionScope) Events() EventRecorder { return s.events }

type discardRecorder struct{}

func (discardRecorder) Record(context.Context, ...shared.DomainEvent) error { return nil }

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
