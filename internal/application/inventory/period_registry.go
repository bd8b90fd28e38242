package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PeriodRegistry tracks accounting periods and the single running one
type PeriodRegistry struct {
	scope   TransactionScope
	periods inventory.PeriodRepository
	logger  *zap.Logger
}

// NewPeriodRegistry creates a new PeriodRegistry
func NewPeriodRegistry(scope TransactionScope, periods inventory.PeriodRepository, logger *zap.Logger) *PeriodRegistry {
	return &PeriodRegistry{scope: scope, periods: periods, logger: logger}
}

// ActivePeriod returns the running period or ErrNoActivePeriod
func (r *PeriodRegistry) ActivePeriod(ctx context.Context) (*inventory.Period, error) {
	p, err := r.periods.FindRunning(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, inventory.ErrNoActivePeriod
		}
		return nil, err
	}
	return p, nil
}

// IsActive reports whether the given month is the running period
func (r *PeriodRegistry) IsActive(ctx context.Context, key inventory.PeriodKey) (bool, error) {
	p, err := r.ActivePeriod(ctx)
	if err != nil {
		if errors.Is(err, inventory.ErrNoActivePeriod) {
			return false, nil
		}
		return false, err
	}
	return p.Key() == key, nil
}

// FindByKey returns the period of a month
func (r *PeriodRegistry) FindByKey(ctx context.Context, key inventory.PeriodKey) (*inventory.Period, error) {
	p, err := r.periods.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, inventory.ErrPeriodNotFound.WithMessage(fmt.Sprintf("Period %s not found", key))
		}
		return nil, err
	}
	return p, nil
}

// ListPeriods lists periods newest first
func (r *PeriodRegistry) ListPeriods(ctx context.Context, includeTombstoned bool) ([]inventory.Period, error) {
	return r.periods.FindAll(ctx, includeTombstoned)
}

// OpenPeriod registers a month as an OPEN period
func (r *PeriodRegistry) OpenPeriod(ctx context.Context, key inventory.PeriodKey) (*inventory.Period, error) {
	period, err := inventory.NewPeriod(key)
	if err != nil {
		return nil, err
	}

	err = r.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		exists, err := repos.Periods().ExistsByKey(ctx, key)
		if err != nil {
			return err
		}
		if exists {
			return shared.ErrAlreadyExists.WithMessage(fmt.Sprintf("Period %s already exists", key))
		}
		return repos.Periods().Create(ctx, period)
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("period opened", zap.String("period", key.String()), zap.String("period_id", period.ID.String()))
	return period, nil
}

// StartPeriod makes an OPEN period the running one
func (r *PeriodRegistry) StartPeriod(ctx context.Context, id uuid.UUID) (*inventory.Period, error) {
	var period *inventory.Period
	err := r.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		period, err = r.lockByID(ctx, repos, id)
		if err != nil {
			return err
		}
		return startPeriod(ctx, repos, period)
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("period started", zap.String("period", period.Key().String()))
	return period, nil
}

// startPeriod runs inside a transaction so the single-running check and the update are atomic
func startPeriod(ctx context.Context, repos TransactionalRepositories, period *inventory.Period) error {
	running, err := repos.Periods().FindRunning(ctx)
	switch {
	case err == nil && running.ID != period.ID:
		return inventory.ErrPeriodAlreadyRunning.WithMessage(
			fmt.Sprintf("Period %s is already running", running.Key()))
	case err != nil && !errors.Is(err, shared.ErrNotFound):
		return err
	}

	if err := period.Start(); err != nil {
		return err
	}
	if err := repos.Periods().Save(ctx, period); err != nil {
		return err
	}
	return repos.Events().Record(ctx, period.PullEvents()...)
}

// ConfirmPeriod marks a closed period as reviewed
func (r *PeriodRegistry) ConfirmPeriod(ctx context.Context, id uuid.UUID) (*inventory.Period, error) {
	return r.mutate(ctx, id, (*inventory.Period).Confirm)
}

// TombstonePeriod retires a period that is not running
func (r *PeriodRegistry) TombstonePeriod(ctx context.Context, id uuid.UUID) (*inventory.Period, error) {
	p, err := r.mutate(ctx, id, (*inventory.Period).Tombstone)
	if err == nil {
		r.logger.Info("period tombstoned", zap.String("period", p.Key().String()))
	}
	return p, err
}

func (r *PeriodRegistry) mutate(ctx context.Context, id uuid.UUID, fn func(*inventory.Period) error) (*inventory.Period, error) {
	var period *inventory.Period
	err := r.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		period, err = r.lockByID(ctx, repos, id)
		if err != nil {
			return err
		}
		version := period.Version
		if err := fn(period); err != nil {
			return err
		}
		if period.Version == version {
			return nil
		}
		return repos.Periods().Save(ctx, period)
	})
	if err != nil {
		return nil, err
	}
	return period, nil
}

func (r *PeriodRegistry) lockByID(ctx context.Context, repos TransactionalRepositories, id uuid.UUID) (*inventory.Period, error) {
	period, err := repos.Periods().FindByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, inventory.ErrPeriodNotFound.WithMessage(fmt.Sprintf("Period %s not found", id))
		}
		return nil, err
	}
	return period, nil
}
