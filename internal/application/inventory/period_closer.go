package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PeriodLocker serializes period closes across service instances
type PeriodLocker interface {
	// Lock blocks until the named lock is held or ctx is done.
	// The returned function releases the lock.
	Lock(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, error)
}

// PeriodCloseLockName is the lock every close takes
const PeriodCloseLockName = "ledger:period-close"

// CloseResult is the outcome of a period close
type CloseResult struct {
	Closed         *inventory.Period
	Next           *inventory.Period
	CarriedForward int
}

// PeriodCloser seals a running period and seeds the next one from its ending balances.
// The whole close is a single transaction.
type PeriodCloser struct {
	scope   TransactionScope
	locker  PeriodLocker
	lockTTL time.Duration
	opts    Options
	metrics LedgerMetrics
	logger  *zap.Logger
}

// NewPeriodCloser creates a new PeriodCloser
func NewPeriodCloser(scope TransactionScope, locker PeriodLocker, lockTTL time.Duration, opts Options, logger *zap.Logger) *PeriodCloser {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	return &PeriodCloser{
		scope:   scope,
		locker:  locker,
		lockTTL: lockTTL,
		opts:    opts.normalized(),
		metrics: noopMetrics{},
		logger:  logger,
	}
}

// SetMetrics sets the ledger metrics sink
func (c *PeriodCloser) SetMetrics(m LedgerMetrics) {
	if m != nil {
		c.metrics = m
	}
}

// Close closes the period with the given id
func (c *PeriodCloser) Close(ctx context.Context, periodID uuid.UUID) (result *CloseResult, err error) {
	ctx, span := telemetry.Start(ctx, "ledger.close_period", telemetry.AttrPeriodID.String(periodID.String()))
	defer span.Finish(&err)
	started := time.Now()

	if c.locker != nil {
		release, err := c.locker.Lock(ctx, PeriodCloseLockName, c.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire period close lock: %w", err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				c.logger.Warn("failed to release period close lock", zap.Error(err))
			}
		}()
	}

	err = c.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		result, err = c.close(ctx, repos, periodID)
		return err
	})
	if err != nil {
		c.logger.Error("period close failed", zap.String("period_id", periodID.String()), zap.Error(err))
		return nil, err
	}

	c.metrics.RecordPeriodClose(ctx, time.Since(started), result.CarriedForward)
	span.Annotate(
		telemetry.AttrPeriod.String(result.Closed.Key().String()),
		telemetry.AttrNextPeriod.String(result.Next.Key().String()),
		telemetry.AttrCarriedForward.Int(result.CarriedForward),
	)
	c.logger.Info("period closed",
		zap.String("period", result.Closed.Key().String()),
		zap.String("next_period", result.Next.Key().String()),
		zap.Int("carried_forward", result.CarriedForward),
		zap.Duration("duration", time.Since(started)),
	)
	return result, nil
}

func (c *PeriodCloser) close(ctx context.Context, repos TransactionalRepositories, periodID uuid.UUID) (*CloseResult, error) {
	closing, err := repos.Periods().FindByIDForUpdate(ctx, periodID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, inventory.ErrPeriodNotFound.WithMessage(fmt.Sprintf("Period %s not found", periodID))
		}
		return nil, err
	}
	if closing.Tombstoned {
		return nil, inventory.ErrPeriodNotFound.WithMessage(fmt.Sprintf("Period %s is tombstoned", closing.Key()))
	}
	if err := closing.Close(); err != nil {
		return nil, err
	}
	if err := repos.Periods().Save(ctx, closing); err != nil {
		return nil, fmt.Errorf("save closed period: %w", err)
	}

	next, err := c.nextPeriod(ctx, repos, closing.Key().Next())
	if err != nil {
		return nil, err
	}

	carried, err := c.rollForward(ctx, repos, closing)
	if err != nil {
		return nil, err
	}

	if c.opts.AutoStartNextPeriod && next.Status == inventory.PeriodStatusOpen {
		if err := startPeriod(ctx, repos, next); err != nil {
			return nil, fmt.Errorf("start period %s: %w", next.Key(), err)
		}
	}

	if err := repos.Events().Record(ctx, inventory.NewPeriodClosedEvent(closing, next, carried)); err != nil {
		return nil, fmt.Errorf("record period closed event: %w", err)
	}
	return &CloseResult{Closed: closing, Next: next, CarriedForward: carried}, nil
}

// nextPeriod returns the OPEN period of the following month, creating it if needed
func (c *PeriodCloser) nextPeriod(ctx context.Context, repos TransactionalRepositories, key inventory.PeriodKey) (*inventory.Period, error) {
	next, err := repos.Periods().FindByKey(ctx, key)
	if err == nil {
		if next.IsClosed() {
			return nil, inventory.ErrPeriodClosed.WithMessage(fmt.Sprintf("Next period %s is already closed", key))
		}
		return next, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	next, err = inventory.NewPeriod(key)
	if err != nil {
		return nil, err
	}
	if err := repos.Periods().Create(ctx, next); err != nil {
		return nil, fmt.Errorf("create period %s: %w", key, err)
	}
	return next, nil
}

// rollForward ends every card and current stock row of the closing month and seeds
// the following month from them. Only products with a current stock row are carried.
func (c *PeriodCloser) rollForward(ctx context.Context, repos TransactionalRepositories, closing *inventory.Period) (int, error) {
	key := closing.Key()
	nextKey := key.Next()
	note := fmt.Sprintf("%s from period %s", NoteTagOpeningBalance, key)

	cards, err := repos.StockCards().FindByPeriod(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("load stock cards of %s: %w", key, err)
	}
	stocks, err := repos.CurrentStocks().FindByPeriod(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("load current stock of %s: %w", key, err)
	}

	byProduct := make(map[uuid.UUID]*inventory.StockCard, len(cards))
	for i := range cards {
		byProduct[cards[i].ProductID] = &cards[i]
	}

	for i := range stocks {
		card := byProduct[stocks[i].ProductID]
		if card != nil && card.Unit == stocks[i].Unit && !stocks[i].Matches(card) {
			return 0, inventory.ErrProjectionDrift.WithMessage(fmt.Sprintf(
				"Current stock of %s in %s is %s/%s but the stock card ends at %s/%s",
				card.ProductID, key, stocks[i].Quantity, stocks[i].BaseQuantity, card.Qty.Ending, card.BaseQty.Ending))
		}
	}

	for i := range cards {
		if cards[i].IsEnded() {
			continue
		}
		cards[i].End()
		if err := repos.StockCards().Save(ctx, &cards[i]); err != nil {
			return 0, fmt.Errorf("end stock card %s: %w", cards[i].ID, err)
		}
	}
	for i := range stocks {
		if stocks[i].IsEnded() {
			continue
		}
		stocks[i].End()
		if err := repos.CurrentStocks().Save(ctx, &stocks[i]); err != nil {
			return 0, fmt.Errorf("end current stock %s: %w", stocks[i].ID, err)
		}
	}

	seeded := make(map[uuid.UUID]bool, len(stocks))
	for i := range stocks {
		stock := &stocks[i]
		card := byProduct[stock.ProductID]

		if card != nil && !seeded[card.ProductID] {
			if err := c.seedCard(ctx, repos, card, nextKey, note); err != nil {
				return 0, err
			}
			seeded[card.ProductID] = true
		} else if card == nil {
			c.logger.Warn("current stock without stock card carried forward",
				zap.String("product_id", stock.ProductID.String()),
				zap.String("period", key.String()),
			)
		}

		if err := c.seedStock(ctx, repos, stock, nextKey); err != nil {
			return 0, err
		}
	}
	return len(seeded), nil
}

func (c *PeriodCloser) seedCard(ctx context.Context, repos TransactionalRepositories, from *inventory.StockCard, nextKey inventory.PeriodKey, note string) error {
	next, err := repos.StockCards().FindByKeyForUpdate(ctx, from.ProductID, nextKey)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("load next stock card: %w", err)
		}
		next, err = inventory.NewStockCard(from.ProductID, nextKey, from.Unit, from.BaseUnit, inventory.CardStatusInProgress)
		if err != nil {
			return err
		}
		if err := repos.StockCards().Create(ctx, next); err != nil {
			return fmt.Errorf("create next stock card: %w", err)
		}
	}

	entry, err := next.SeedOpening(from, note)
	if err != nil {
		return err
	}
	if err := repos.StockCards().Save(ctx, next); err != nil {
		return fmt.Errorf("save next stock card: %w", err)
	}
	if err := repos.Entries().Append(ctx, entry); err != nil {
		return fmt.Errorf("append opening balance: %w", err)
	}
	return nil
}

func (c *PeriodCloser) seedStock(ctx context.Context, repos TransactionalRepositories, from *inventory.CurrentStock, nextKey inventory.PeriodKey) error {
	next, err := repos.CurrentStocks().FindByKeyForUpdate(ctx, from.ProductID, from.Unit, nextKey)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("load next current stock: %w", err)
		}
		next, err = inventory.NewCurrentStock(from.ProductID, from.Unit, nextKey, inventory.CardStatusInProgress)
		if err != nil {
			return err
		}
		if err := repos.CurrentStocks().Create(ctx, next); err != nil {
			return fmt.Errorf("create next current stock: %w", err)
		}
	}

	if err := next.SeedOpening(from); err != nil {
		return err
	}
	if err := repos.CurrentStocks().Save(ctx, next); err != nil {
		return fmt.Errorf("save next current stock: %w", err)
	}
	return nil
}
