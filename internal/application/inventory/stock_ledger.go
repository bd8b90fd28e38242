package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// MovementRequest asks the ledger to record one movement on a product's card
type MovementRequest struct {
	ProductID uuid.UUID
	Unit      string
	BaseUnit  string
	Period    inventory.PeriodKey
	// CreateStatus is the status of a card created by this request
	CreateStatus inventory.CardStatus
	// CreateIfMissing allows the card to be opened by this request
	CreateIfMissing bool
	Movement        inventory.Movement
}

// StockLedger records movements on stock cards.
// Callers provide the transaction; the ledger never opens one itself.
type StockLedger struct{}

// NewStockLedger creates a new StockLedger
func NewStockLedger() *StockLedger {
	return &StockLedger{}
}

// RecordMovement fetches or creates the card, applies the movement, persists the
// card and appends the entry carrying the post-update balances.
func (l *StockLedger) RecordMovement(ctx context.Context, repos TransactionalRepositories, req MovementRequest) (*inventory.StockCard, *inventory.StockCardEntry, error) {
	posted, err := repos.Entries().ExistsByReference(ctx, req.Movement.Reference)
	if err != nil {
		return nil, nil, fmt.Errorf("check reference %s: %w", req.Movement.Reference, err)
	}
	if posted {
		return nil, nil, alreadyPosted(req.Movement.Reference)
	}

	card, err := l.fetchOrCreate(ctx, repos, req)
	if err != nil {
		return nil, nil, err
	}
	if card.Unit != req.Unit {
		return nil, nil, inventory.ErrInvalidMovement.WithMessage(
			fmt.Sprintf("Stock card of %s is kept in %q, movement is in %q", req.ProductID, card.Unit, req.Unit))
	}

	entry, err := card.Post(req.Movement)
	if err != nil {
		return nil, nil, err
	}
	if err := repos.StockCards().Save(ctx, card); err != nil {
		return nil, nil, fmt.Errorf("save stock card: %w", err)
	}
	if err := repos.Entries().Append(ctx, entry); err != nil {
		if errors.Is(err, inventory.ErrAlreadyPosted) {
			return nil, nil, alreadyPosted(req.Movement.Reference)
		}
		return nil, nil, fmt.Errorf("append stock card entry: %w", err)
	}
	return card, entry, nil
}

func (l *StockLedger) fetchOrCreate(ctx context.Context, repos TransactionalRepositories, req MovementRequest) (*inventory.StockCard, error) {
	card, err := repos.StockCards().FindByKeyForUpdate(ctx, req.ProductID, req.Period)
	if err == nil {
		return card, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("load stock card: %w", err)
	}
	if !req.CreateIfMissing {
		return nil, inventory.ErrAccountNotOpen.WithMessage(
			fmt.Sprintf("Product %s has no open stock card for %s", req.ProductID, req.Period))
	}

	card, err = inventory.NewStockCard(req.ProductID, req.Period, req.Unit, req.BaseUnit, req.CreateStatus)
	if err != nil {
		return nil, err
	}
	if err := repos.StockCards().Create(ctx, card); err != nil {
		if !errors.Is(err, shared.ErrAlreadyExists) {
			return nil, fmt.Errorf("create stock card: %w", err)
		}
		// Lost the race to open the card; use the winner's row.
		return repos.StockCards().FindByKeyForUpdate(ctx, req.ProductID, req.Period)
	}
	return card, nil
}

// alreadyPosted describes a reference that is already in the ledger
func alreadyPosted(ref inventory.Reference) error {
	return inventory.ErrAlreadyPosted.WithMessage(fmt.Sprintf("%s has already been posted", ref))
}
