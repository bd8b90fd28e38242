package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrNotObtained is returned when the lock is still held elsewhere after waiting
var ErrNotObtained = errors.New("lock not obtained")

const defaultRetryInterval = 100 * time.Millisecond

// RedisLocker obtains locks through bsm/redislock.
// A caller blocks, retrying at a fixed interval, for at most one TTL before giving up.
type RedisLocker struct {
	client        *redislock.Client
	prefix        string
	retryInterval time.Duration
	logger        *zap.Logger
}

// NewRedisLocker creates a locker on a shared Redis client
func NewRedisLocker(rdb redis.UniversalClient, logger *zap.Logger) *RedisLocker {
	return &RedisLocker{
		client:        redislock.New(rdb),
		prefix:        "ledger:lock:",
		retryInterval: defaultRetryInterval,
		logger:        logger,
	}
}

// Lock obtains the named lock and returns its release function
func (l *RedisLocker) Lock(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("lock %s: ttl must be positive", name)
	}
	attempts := max(int(ttl/l.retryInterval), 1)
	opts := &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(l.retryInterval), attempts),
	}

	key := l.prefix + name
	held, err := l.client.Obtain(ctx, key, ttl, opts)
	if errors.Is(err, redislock.ErrNotObtained) {
		l.logger.Warn("could not obtain redis lock", zap.String("lock", key), zap.Duration("ttl", ttl))
		return nil, fmt.Errorf("%w: %s", ErrNotObtained, name)
	}
	if err != nil {
		return nil, fmt.Errorf("obtain lock %s: %w", name, err)
	}

	return func(ctx context.Context) error {
		err := held.Release(ctx)
		if errors.Is(err, redislock.ErrLockNotHeld) {
			// TTL expired before release; another holder may already own it
			l.logger.Warn("redis lock expired before release", zap.String("lock", key))
			return nil
		}
		return err
	}, nil
}
