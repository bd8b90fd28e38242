package persistence

import (
	"context"

	appinv "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"gorm.io/gorm"
)

type txContextKey struct{}

// ContextWithTx attaches a caller-owned transaction to ctx. Ledger work started with
// the returned context runs inside tx as a savepoint, so the caller's own writes and
// the posting commit or roll back together.
func ContextWithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// TxFromContext returns the transaction attached by ContextWithTx
func TxFromContext(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(txContextKey{}).(*gorm.DB)
	return tx, ok && tx != nil
}

// dbFor returns the caller's transaction when there is one, db otherwise
func dbFor(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := TxFromContext(ctx); ok {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// OutboxWriter stores domain events in the outbox through the given transaction
type OutboxWriter interface {
	Append(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error
}

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db     *gorm.DB
	outbox OutboxWriter
}

// NewGormTransactionScope creates a new GormTransactionScope.
// A nil outbox drops recorded events.
func NewGormTransactionScope(db *gorm.DB, outbox OutboxWriter) *GormTransactionScope {
	return &GormTransactionScope{db: db, outbox: outbox}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// Inside a caller-owned transaction the work becomes a savepoint of it.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appinv.TransactionalRepositories) error) error {
	run := func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx, outbox: s.outbox})
	}
	if tx, ok := TxFromContext(ctx); ok {
		return tx.WithContext(ctx).Transaction(run)
	}
	return s.db.WithContext(ctx).Transaction(run)
}

// Joined reports whether ctx carries a caller-owned transaction
func (s *GormTransactionScope) Joined(ctx context.Context) bool {
	_, ok := TxFromContext(ctx)
	return ok
}

// Atomic opens a transaction, or a savepoint of the caller's, and hands fn a
// context carrying it. Catalog repositories and nested Execute calls made with
// that context write through the same transaction.
func (s *GormTransactionScope) Atomic(ctx context.Context, fn func(ctx context.Context) error) error {
	return dbFor(ctx, s.db).Transaction(func(tx *gorm.DB) error {
		return fn(ContextWithTx(ctx, tx))
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx     *gorm.DB
	outbox OutboxWriter
}

// Periods returns the period repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Periods() inventory.PeriodRepository {
	return NewGormPeriodRepository(r.tx)
}

// StockCards returns the stock card repository scoped to the current transaction.
func (r *gormTransactionalRepositories) StockCards() inventory.StockCardRepository {
	return NewGormStockCardRepository(r.tx)
}

// Entries returns the entry journal scoped to the current transaction.
func (r *gormTransactionalRepositories) Entries() inventory.StockCardEntryRepository {
	return NewGormStockCardEntryRepository(r.tx)
}

// CurrentStocks returns the projection repository scoped to the current transaction.
func (r *gormTransactionalRepositories) CurrentStocks() inventory.CurrentStockRepository {
	return NewGormCurrentStockRepository(r.tx)
}

// Events returns the outbox recorder scoped to the current transaction.
func (r *gormTransactionalRepositories) Events() appinv.EventRecorder {
	return txOutboxRecorder{tx: r.tx, outbox: r.outbox}
}

type txOutboxRecorder struct {
	tx     *gorm.DB
	outbox OutboxWriter
}

func (r txOutboxRecorder) Record(ctx context.Context, events ...shared.DomainEvent) error {
	if r.outbox == nil || len(events) == 0 {
		return nil
	}
	return r.outbox.Append(ctx, r.tx, events...)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appinv.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appinv.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
