// Package cache holds the Redis client and the idempotency stores that sit in
// front of the ledger's event handlers.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const dialTimeout = 5 * time.Second

// Connect returns a client for cfg after a successful PING. It returns a nil
// client and nil error when Redis is disabled. The client is shared by the
// idempotency store, the period-close lock and the rate limiter.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// NewIdempotencyStore claims events in Redis when a client is available. Without
// one, claims are only visible to this process and a duplicate delivery to
// another instance is stopped by the ledger's reference guard instead.
func NewIdempotencyStore(client redis.UniversalClient, log *zap.Logger) shared.IdempotencyStore {
	if client != nil {
		return NewRedisIdempotencyStore(client, "")
	}
	if log != nil {
		log.Info("idempotency claims kept in process")
	}
	return NewInMemoryIdempotencyStore()
}
