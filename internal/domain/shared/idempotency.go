package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which events a handler has taken on, so that a
// redelivered event is acknowledged instead of being posted twice.
type IdempotencyStore interface {
	// Claim takes key for ttl and reports whether this call took it. A false
	// result means another delivery of the same event got there first.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Release gives key back so a failed event can be delivered again
	Release(ctx context.Context, key string) error
	Close() error
}

// IdempotencyConfig controls duplicate suppression in front of event handlers
type IdempotencyConfig struct {
	// TTL must outlast the outbox retry window, otherwise a slow redelivery
	// is no longer recognized
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig remembers claims for a day
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
