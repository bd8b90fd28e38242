package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// WorkbookContentType is the MIME type of rendered stock card workbooks
const WorkbookContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WorkbookRenderer renders stock card histories of one month into a spreadsheet
type WorkbookRenderer interface {
	Render(key inventory.PeriodKey, histories []LedgerHistory) ([]byte, error)
}

// ArchiveStorage stores rendered archives and hands out time-limited links to them
type ArchiveStorage interface {
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error
	ObjectExists(ctx context.Context, storageKey string) (bool, error)
	// GenerateDownloadURL presigns a download; a non-positive expiresIn uses the storage default
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
}

// ArchiveLink locates a stored month archive
type ArchiveLink struct {
	Key       string
	URL       string
	ExpiresAt time.Time
}

// DefaultArchivePrefix is used when no archive prefix is configured
const DefaultArchivePrefix = "stock-cards"

// ArchiveKey returns the storage key of a month's stock card archive
func ArchiveKey(prefix string, key inventory.PeriodKey) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultArchivePrefix
	}
	return fmt.Sprintf("%s/%s.xlsx", prefix, key)
}

// StockCardArchiver writes the stock cards of a closed month to object storage
type StockCardArchiver struct {
	queries  *QueryService
	renderer WorkbookRenderer
	storage  ArchiveStorage
	prefix   string
	logger   *zap.Logger
}

// NewStockCardArchiver creates a new StockCardArchiver
func NewStockCardArchiver(queries *QueryService, renderer WorkbookRenderer, storage ArchiveStorage, prefix string, logger *zap.Logger) *StockCardArchiver {
	return &StockCardArchiver{queries: queries, renderer: renderer, storage: storage, prefix: prefix, logger: logger}
}

// Export renders the stock cards of a month without storing them
func (a *StockCardArchiver) Export(ctx context.Context, key inventory.PeriodKey) ([]byte, error) {
	histories, err := a.queries.PeriodHistory(ctx, key)
	if err != nil {
		return nil, err
	}
	data, err := a.renderer.Render(key, histories)
	if err != nil {
		return nil, fmt.Errorf("render stock cards of %s: %w", key, err)
	}
	return data, nil
}

// ExportStockCard renders a single product's stock card of a month
func (a *StockCardArchiver) ExportStockCard(ctx context.Context, productID uuid.UUID, key inventory.PeriodKey) ([]byte, error) {
	history, err := a.queries.LedgerHistory(ctx, productID, key)
	if err != nil {
		return nil, err
	}
	data, err := a.renderer.Render(key, []LedgerHistory{*history})
	if err != nil {
		return nil, fmt.Errorf("render stock card of %s in %s: %w", productID, key, err)
	}
	return data, nil
}

// Archive renders and uploads the stock cards of a month, replacing an earlier
// archive of the same month, and returns a download link to it.
func (a *StockCardArchiver) Archive(ctx context.Context, key inventory.PeriodKey) (_ *ArchiveLink, err error) {
	ctx, span := telemetry.Start(ctx, "ledger.archive_period", telemetry.AttrPeriod.String(key.String()))
	defer span.Finish(&err)

	data, err := a.Export(ctx, key)
	if err != nil {
		return nil, err
	}
	storageKey := ArchiveKey(a.prefix, key)
	if err := a.storage.Upload(ctx, storageKey, data, WorkbookContentType); err != nil {
		return nil, fmt.Errorf("upload %s: %w", storageKey, err)
	}
	span.Annotate(attribute.Int("ledger.archive_bytes", len(data)))
	a.logger.Info("stock cards archived",
		zap.String("period", key.String()),
		zap.String("key", storageKey),
		zap.Int("bytes", len(data)),
	)
	return a.link(ctx, storageKey)
}

// FindArchive returns a fresh download link to the stored archive of a month
func (a *StockCardArchiver) FindArchive(ctx context.Context, key inventory.PeriodKey) (*ArchiveLink, error) {
	storageKey := ArchiveKey(a.prefix, key)
	exists, err := a.storage.ObjectExists(ctx, storageKey)
	if err != nil {
		return nil, fmt.Errorf("look up %s: %w", storageKey, err)
	}
	if !exists {
		return nil, shared.ErrNotFound.WithMessage(fmt.Sprintf("no stock card archive for %s", key))
	}
	return a.link(ctx, storageKey)
}

func (a *StockCardArchiver) link(ctx context.Context, storageKey string) (*ArchiveLink, error) {
	url, expiresAt, err := a.storage.GenerateDownloadURL(ctx, storageKey, 0)
	if err != nil {
		return nil, fmt.Errorf("link %s: %w", storageKey, err)
	}
	return &ArchiveLink{Key: storageKey, URL: url, ExpiresAt: expiresAt}, nil
}

// EventTypes returns the event types this handler is interested in
func (a *StockCardArchiver) EventTypes() []string {
	return []string{inventory.EventTypePeriodClosed}
}

// Handle archives the month a PeriodClosedEvent sealed
func (a *StockCardArchiver) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*inventory.PeriodClosedEvent)
	if !ok {
		return unexpectedEvent(inventory.EventTypePeriodClosed, event)
	}
	_, err := a.Archive(ctx, e.Key())
	return err
}

var _ shared.EventHandler = (*StockCardArchiver)(nil)
