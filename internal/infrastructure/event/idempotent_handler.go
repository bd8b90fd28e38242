package event

import (
	"context"
	"sync/atomic"

	"github.com/erp/stockledger/internal/domain/shared"
	"go.uber.org/zap"
)

// DeliveryCounters counts what happened to events reaching idempotent handlers.
// One set is usually shared by every wrapped handler of the process.
type DeliveryCounters struct {
	handled atomic.Int64
	skipped atomic.Int64
	failed  atomic.Int64
}

// DeliveryStats is a point-in-time copy of DeliveryCounters
type DeliveryStats struct {
	Handled int64 `json:"handled"`
	Skipped int64 `json:"skipped"`
	Failed  int64 `json:"failed"`
}

// Snapshot reads the counters
func (c *DeliveryCounters) Snapshot() DeliveryStats {
	return DeliveryStats{
		Handled: c.handled.Load(),
		Skipped: c.skipped.Load(),
		Failed:  c.failed.Load(),
	}
}

// IdempotentHandler lets each event through to the wrapped handler at most once
// successfully. A redelivered event that already posted is acknowledged without
// touching the ledger. A failed event gives its claim back, because the posting
// was rolled back and the outbox retry must still reach the handler.
type IdempotentHandler struct {
	next     shared.EventHandler
	store    shared.IdempotencyStore
	config   shared.IdempotencyConfig
	logger   *zap.Logger
	counters *DeliveryCounters
}

// IdempotentHandlerOption configures an IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// WithIdempotencyConfig sets the claim TTL and whether claims are taken at all
func WithIdempotencyConfig(config shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.config = config
	}
}

// WithDeliveryCounters makes the handler count into c instead of its own counters
func WithDeliveryCounters(c *DeliveryCounters) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.counters = c
	}
}

func NewIdempotentHandler(next shared.EventHandler, store shared.IdempotencyStore, logger *zap.Logger, opts ...IdempotentHandlerOption) *IdempotentHandler {
	h := &IdempotentHandler{
		next:     next,
		store:    store,
		config:   shared.DefaultIdempotencyConfig(),
		logger:   logger,
		counters: &DeliveryCounters{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *IdempotentHandler) EventTypes() []string {
	return h.next.EventTypes()
}

// claimKey scopes a claim to one event type so two handlers never share one
func claimKey(event shared.DomainEvent) string {
	return event.EventType() + ":" + event.EventID().String()
}

func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.next.Handle(ctx, event)
	}

	key := claimKey(event)
	log := h.logger.With(
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
	)

	claimed, err := h.store.Claim(ctx, key, h.config.TTL)
	if err != nil {
		// The ledger's reference guard still rejects a real double posting.
		log.Warn("idempotency store unavailable, delivering unguarded", zap.Error(err))
	} else if !claimed {
		h.counters.skipped.Add(1)
		log.Debug("event already delivered")
		return nil
	}

	if err := h.next.Handle(ctx, event); err != nil {
		h.counters.failed.Add(1)
		log.Error("event handler failed", zap.Error(err))
		if claimed {
			if releaseErr := h.store.Release(context.WithoutCancel(ctx), key); releaseErr != nil {
				log.Warn("claim not released, redelivery will be skipped until it expires", zap.Error(releaseErr))
			}
		}
		return err
	}

	h.counters.handled.Add(1)
	return nil
}

// Counters returns the counters this handler records into
func (h *IdempotentHandler) Counters() *DeliveryCounters {
	return h.counters
}

// WrapHandlersWithIdempotency wraps each handler with the same store and options
func WrapHandlersWithIdempotency(handlers []shared.EventHandler, store shared.IdempotencyStore, logger *zap.Logger, opts ...IdempotentHandlerOption) []shared.EventHandler {
	wrapped := make([]shared.EventHandler, len(handlers))
	for i, h := range handlers {
		wrapped[i] = NewIdempotentHandler(h, store, logger, opts...)
	}
	return wrapped
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
