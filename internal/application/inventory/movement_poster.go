package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/stockledger/internal/domain/catalog"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ConversionResolver loads a product together with its unit conversion table
type ConversionResolver interface {
	Table(ctx context.Context, productID uuid.UUID) (*catalog.Product, *catalog.ConversionTable, error)
}

// PeriodTarget selects the period a document posts into
type PeriodTarget struct {
	// Active posts into the running period
	Active bool
	// Key is used when Active is false
	Key inventory.PeriodKey
	// RequireRegistered fails with ErrPeriodNotFound when Key has no period row
	RequireRegistered bool
}

// ActivePeriodTarget posts into the running period
func ActivePeriodTarget() PeriodTarget {
	return PeriodTarget{Active: true}
}

// DocumentPeriodTarget posts into the month a document is dated in
func DocumentPeriodTarget(key inventory.PeriodKey, requireRegistered bool) PeriodTarget {
	return PeriodTarget{Key: key, RequireRegistered: requireRegistered}
}

// ProjectionMode tells the poster how a document affects current stock
type ProjectionMode int

const (
	// ProjectionNone leaves current stock alone
	ProjectionNone ProjectionMode = iota
	// ProjectionEnsure creates a zero row if none exists
	ProjectionEnsure
	// ProjectionApply adds the signed movement quantities
	ProjectionApply
)

// PostingLine is one product line of a document, in the document's unit
type PostingLine struct {
	Reference    inventory.Reference
	ProductID    uuid.UUID
	Unit         string
	Quantity     decimal.Decimal
	BaseQuantity *decimal.Decimal
	Direction    inventory.Direction
}

// PostingDocument is everything the poster needs to book a source document
type PostingDocument struct {
	Category        inventory.Category
	Target          PeriodTarget
	CreateStatus    inventory.CardStatus
	Guarded         bool
	Projection      ProjectionMode
	TransactionDate time.Time
	Note            string
	Lines           []PostingLine
}

// PostedMovement is the outcome of one line
type PostedMovement struct {
	Card  *inventory.StockCard
	Entry *inventory.StockCardEntry
	Stock *inventory.CurrentStock
}

// PostingResult is the outcome of a document
type PostingResult struct {
	Period    inventory.PeriodKey
	Movements []PostedMovement
}

type resolvedLine struct {
	PostingLine
	stockUnit string
	baseUnit  string
	stockQty  decimal.Decimal
	baseQty   decimal.Decimal
}

// MovementPoster books a whole document as one atomic unit: every line's card,
// entry and current stock change commit together or not at all.
type MovementPoster struct {
	scope      TransactionScope
	converter  ConversionResolver
	ledger     *StockLedger
	projection *StockProjection
	opts       Options
	metrics    LedgerMetrics
	logger     *zap.Logger
}

// NewMovementPoster creates a new MovementPoster
func NewMovementPoster(scope TransactionScope, converter ConversionResolver, opts Options, logger *zap.Logger) *MovementPoster {
	return &MovementPoster{
		scope:      scope,
		converter:  converter,
		ledger:     NewStockLedger(),
		projection: NewStockProjection(),
		opts:       opts.normalized(),
		metrics:    noopMetrics{},
		logger:     logger,
	}
}

// SetMetrics sets the ledger metrics sink
func (p *MovementPoster) SetMetrics(m LedgerMetrics) {
	if m != nil {
		p.metrics = m
	}
}

// Options returns the effective ledger options
func (p *MovementPoster) Options() Options {
	return p.opts
}

// Post books a document
func (p *MovementPoster) Post(ctx context.Context, doc PostingDocument) (result *PostingResult, err error) {
	ctx, span := telemetry.Start(ctx, "ledger.post",
		telemetry.AttrCategory.String(string(doc.Category)),
		telemetry.AttrLines.Int(len(doc.Lines)),
	)
	defer span.Finish(&err)

	if len(doc.Lines) == 0 {
		return &PostingResult{}, nil
	}

	lines, err := p.resolve(ctx, doc.Lines)
	if err != nil {
		return nil, err
	}

	txDate := doc.TransactionDate
	if txDate.IsZero() {
		txDate = time.Now()
	}
	createIfMissing := !doc.Guarded || p.opts.Policy == PolicyOpenOnFirstTouch

	err = executeWithRetry(ctx, p.scope, p.opts.MaxRetries, func(repos TransactionalRepositories) error {
		key, err := p.lockPeriod(ctx, repos, doc.Target)
		if err != nil {
			return err
		}
		result = &PostingResult{Period: key, Movements: make([]PostedMovement, 0, len(lines))}

		for _, line := range lines {
			card, entry, err := p.ledger.RecordMovement(ctx, repos, MovementRequest{
				ProductID:       line.ProductID,
				Unit:            line.stockUnit,
				BaseUnit:        line.baseUnit,
				Period:          key,
				CreateStatus:    doc.CreateStatus,
				CreateIfMissing: createIfMissing,
				Movement: inventory.Movement{
					Direction:       line.Direction,
					Category:        doc.Category,
					Quantity:        line.stockQty,
					BaseQuantity:    line.baseQty,
					Reference:       line.Reference,
					TransactionDate: txDate,
					Note:            doc.Note,
				},
			})
			if err != nil {
				return err
			}

			posted := PostedMovement{Card: card, Entry: entry}
			switch doc.Projection {
			case ProjectionEnsure:
				posted.Stock, err = p.projection.Ensure(ctx, repos, card.ProductID, card.Unit, key, card.Status)
			case ProjectionApply:
				qty, base := inventory.Movement{Direction: entry.Direction, Quantity: entry.Quantity, BaseQuantity: entry.BaseQuantity}.Signed()
				posted.Stock, err = p.projection.Adjust(ctx, repos, card.ProductID, card.Unit, key, card.Status, qty, base)
			}
			if err != nil {
				return err
			}
			result.Movements = append(result.Movements, posted)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, inventory.ErrAlreadyPosted) {
			p.metrics.RecordDuplicate(ctx, string(lines[0].Reference.Type))
		}
		p.logger.Warn("document posting failed",
			zap.String("category", string(doc.Category)),
			zap.String("note", doc.Note),
			zap.Error(err),
		)
		return nil, err
	}

	span.Annotate(telemetry.AttrPeriod.String(result.Period.String()))
	for _, m := range result.Movements {
		p.metrics.RecordMovement(ctx, string(m.Entry.Category), string(m.Entry.Direction))
	}
	p.logger.Info("document posted",
		zap.String("category", string(doc.Category)),
		zap.String("period", result.Period.String()),
		zap.String("note", doc.Note),
		zap.Int("lines", len(result.Movements)),
	)
	return result, nil
}

func (p *MovementPoster) resolve(ctx context.Context, lines []PostingLine) ([]resolvedLine, error) {
	type loaded struct {
		product *catalog.Product
		table   *catalog.ConversionTable
	}
	cache := make(map[uuid.UUID]loaded)
	out := make([]resolvedLine, 0, len(lines))

	for _, line := range lines {
		if line.Quantity.IsNegative() || (line.BaseQuantity != nil && line.BaseQuantity.IsNegative()) {
			return nil, inventory.ErrInvalidMovement.WithMessage(
				fmt.Sprintf("Line %s has a negative quantity", line.Reference))
		}
		if line.Quantity.IsZero() && line.BaseQuantity != nil && !line.BaseQuantity.IsZero() {
			return nil, inventory.ErrInvalidMovement.WithMessage(
				fmt.Sprintf("Line %s has a base quantity but no quantity", line.Reference))
		}
		l, ok := cache[line.ProductID]
		if !ok {
			product, table, err := p.converter.Table(ctx, line.ProductID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return nil, inventory.ErrInvalidMovement.WithMessage(
						fmt.Sprintf("Product %s is not known to the ledger", line.ProductID))
				}
				return nil, err
			}
			l = loaded{product: product, table: table}
			cache[line.ProductID] = l
		}

		resolved := resolvedLine{
			PostingLine: line,
			stockUnit:   l.product.StockUnit,
			baseUnit:    l.product.BaseUnit,
			stockQty:    decimal.Zero,
			baseQty:     decimal.Zero,
		}
		if line.BaseQuantity != nil {
			resolved.baseQty = *line.BaseQuantity
		}
		// Zero lines need no conversion path.
		if line.Quantity.IsZero() {
			out = append(out, resolved)
			continue
		}

		stockQty, err := l.table.Convert(line.Unit, l.product.StockUnit, line.Quantity)
		if err != nil {
			return nil, err
		}
		resolved.stockQty = stockQty
		if line.BaseQuantity == nil {
			if resolved.baseQty, err = l.table.ConvertToBase(line.Unit, line.Quantity); err != nil {
				return nil, err
			}
		}
		out = append(out, resolved)
	}
	return out, nil
}

// lockPeriod resolves the target period and holds a shared lock on its row
// so that a close cannot interleave with the posting.
func (p *MovementPoster) lockPeriod(ctx context.Context, repos TransactionalRepositories, target PeriodTarget) (inventory.PeriodKey, error) {
	if target.Active {
		running, err := repos.Periods().FindRunning(ctx)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return inventory.PeriodKey{}, inventory.ErrNoActivePeriod
			}
			return inventory.PeriodKey{}, fmt.Errorf("find running period: %w", err)
		}
		locked, err := repos.Periods().FindByKeyForShare(ctx, running.Key())
		if err != nil {
			return inventory.PeriodKey{}, fmt.Errorf("lock running period: %w", err)
		}
		if !locked.IsRunning() {
			return inventory.PeriodKey{}, inventory.ErrNoActivePeriod
		}
		return locked.Key(), nil
	}

	period, err := repos.Periods().FindByKeyForShare(ctx, target.Key)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			if target.RequireRegistered {
				return inventory.PeriodKey{}, inventory.ErrPeriodNotFound.WithMessage(
					fmt.Sprintf("Period %s is not registered", target.Key))
			}
			return target.Key, nil
		}
		return inventory.PeriodKey{}, fmt.Errorf("lock period %s: %w", target.Key, err)
	}
	if err := period.CheckWritable(); err != nil {
		return inventory.PeriodKey{}, err
	}
	return period.Key(), nil
}
