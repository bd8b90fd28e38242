package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/erp/stockledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
)

// RateLimitKeyPrefix namespaces limiter keys in the store
const RateLimitKeyPrefix = "ledger:ratelimit"

// NewRateLimiter creates a limiter allowing requests per window.
// With a redis client the counters are shared across instances, otherwise they live in memory.
func NewRateLimiter(requests int, window time.Duration, client redis.UniversalClient) (*limiter.Limiter, error) {
	if requests <= 0 || window <= 0 {
		return nil, fmt.Errorf("invalid rate limit %d per %s", requests, window)
	}
	rate := limiter.Rate{Period: window, Limit: int64(requests)}

	if client == nil {
		store := memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          RateLimitKeyPrefix,
			CleanUpInterval: 2 * window,
		})
		return limiter.New(store, rate), nil
	}

	store, err := redisstore.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:   RateLimitKeyPrefix,
		MaxRetry: 3,
	})
	if err != nil {
		return nil, fmt.Errorf("create redis rate limit store: %w", err)
	}
	return limiter.New(store, rate), nil
}

// RateLimit returns a middleware limiting requests per client IP
func RateLimit(l *limiter.Limiter, logger *zap.Logger) gin.HandlerFunc {
	return RateLimitByKey(l, logger, func(c *gin.Context) string { return c.ClientIP() })
}

// RateLimitByKey returns a rate limiting middleware with a custom key extractor.
// A store failure lets the request through.
func RateLimitByKey(l *limiter.Limiter, logger *zap.Logger, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFunc(c)

		lc, err := l.Get(c.Request.Context(), key)
		if err != nil {
			logger.Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lc.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lc.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(lc.Reset, 10))

		if lc.Reached {
			logger.Warn("rate limit exceeded", zap.String("key", key), zap.Int64("limit", lc.Limit))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRateLimited,
				"Too many requests. Please try again later.",
				GetRequestID(c),
			))
			return
		}

		c.Next()
	}
}
