package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/stockledger/internal/domain/shared"
)

// PostingPolicy decides what happens when a movement targets a product with no stock card yet
type PostingPolicy string

const (
	// PolicyRequireOpenAccount rejects movements with ErrAccountNotOpen unless the
	// product already has a card in the target period.
	PolicyRequireOpenAccount PostingPolicy = "require_open_account"
	// PolicyOpenOnFirstTouch creates the card on the first movement.
	PolicyOpenOnFirstTouch PostingPolicy = "open_on_first_touch"
)

// IsValid checks if the policy is known
func (p PostingPolicy) IsValid() bool {
	return p == PolicyRequireOpenAccount || p == PolicyOpenOnFirstTouch
}

// Options configures the ledger services
type Options struct {
	Policy              PostingPolicy
	MaxRetries          int
	AutoStartNextPeriod bool
}

// DefaultOptions returns the default ledger options
func DefaultOptions() Options {
	return Options{
		Policy:     PolicyRequireOpenAccount,
		MaxRetries: 3,
	}
}

func (o Options) normalized() Options {
	if !o.Policy.IsValid() {
		o.Policy = PolicyRequireOpenAccount
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	return o
}

// executeWithRetry runs fn in a transaction and retries it when an optimistic
// version check fails. A transaction joined from the caller is never retried.
func executeWithRetry(ctx context.Context, scope TransactionScope, maxRetries int, fn func(repos TransactionalRepositories) error) error {
	attempts := maxRetries + 1
	if scope.Joined(ctx) {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = scope.Execute(ctx, fn)
		if err == nil || !errors.Is(err, shared.ErrConcurrencyConflict) {
			return err
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", attempts, err)
}
