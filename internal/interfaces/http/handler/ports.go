package handler

import (
	"context"

	"github.com/erp/stockledger/internal/application/event"
	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// PeriodService is the period registry as seen by the HTTP layer
type PeriodService interface {
	ActivePeriod(ctx context.Context) (*inventory.Period, error)
	ListPeriods(ctx context.Context, includeTombstoned bool) ([]inventory.Period, error)
	OpenPeriod(ctx context.Context, key inventory.PeriodKey) (*inventory.Period, error)
	StartPeriod(ctx context.Context, id uuid.UUID) (*inventory.Period, error)
	ConfirmPeriod(ctx context.Context, id uuid.UUID) (*inventory.Period, error)
	TombstonePeriod(ctx context.Context, id uuid.UUID) (*inventory.Period, error)
}

// PeriodCloseService seals a running period
type PeriodCloseService interface {
	Close(ctx context.Context, periodID uuid.UUID) (*inventoryapp.CloseResult, error)
}

// LedgerQueryService answers read-side ledger questions
type LedgerQueryService interface {
	ResolvePeriod(ctx context.Context, key *inventory.PeriodKey) (inventory.PeriodKey, error)
	CurrentStock(ctx context.Context, productID uuid.UUID, unit string, key inventory.PeriodKey) (*inventory.CurrentStock, error)
	CurrentStockByProduct(ctx context.Context, productID uuid.UUID, key inventory.PeriodKey) ([]inventory.CurrentStock, error)
	LedgerHistory(ctx context.Context, productID uuid.UUID, key inventory.PeriodKey) (*inventoryapp.LedgerHistory, error)
	Reconcile(ctx context.Context, productID uuid.UUID, key inventory.PeriodKey) (*inventoryapp.ReconcileReport, error)
}

// StockCardExporter renders stock cards as workbooks
type StockCardExporter interface {
	Export(ctx context.Context, key inventory.PeriodKey) ([]byte, error)
	ExportStockCard(ctx context.Context, productID uuid.UUID, key inventory.PeriodKey) ([]byte, error)
	Archive(ctx context.Context, key inventory.PeriodKey) (*inventoryapp.ArchiveLink, error)
	FindArchive(ctx context.Context, key inventory.PeriodKey) (*inventoryapp.ArchiveLink, error)
}

// EventDecoder turns an inbound payload into a registered domain event
type EventDecoder interface {
	IsRegistered(eventType string) bool
	Deserialize(eventType string, data []byte) (shared.DomainEvent, error)
}

// DeliveryAdmin inspects and requeues outbox entries
type DeliveryAdmin interface {
	ListDead(ctx context.Context, page, pageSize int) (*event.DeadLetterPage, error)
	Get(ctx context.Context, id uuid.UUID) (*event.Delivery, error)
	Redeliver(ctx context.Context, id uuid.UUID) (*event.Delivery, error)
	RedeliverAll(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (*event.DeliveryStats, error)
}

var (
	_ PeriodService      = (*inventoryapp.PeriodRegistry)(nil)
	_ PeriodCloseService = (*inventoryapp.PeriodCloser)(nil)
	_ LedgerQueryService = (*inventoryapp.QueryService)(nil)
	_ StockCardExporter  = (*inventoryapp.StockCardArchiver)(nil)
	_ DeliveryAdmin      = (*event.DeliveryService)(nil)
)
