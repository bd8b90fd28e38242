package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// ErrBusStopped is returned by Publish once Stop has been called
var ErrBusStopped = errors.New("event bus stopped")

// InMemoryEventBus dispatches events to subscribed handlers on the publishing
// goroutine. Handler failures are joined and returned so the outbox processor can
// schedule a retry and the intake endpoint can report the failure.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	stopped  atomic.Bool
	inflight sync.WaitGroup
}

// NewInMemoryEventBus creates a bus with no subscribers
func NewInMemoryEventBus(log *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   log.Named("event_bus"),
	}
}

// Publish delivers each event to every handler subscribed to its type. A failing
// or panicking handler does not stop delivery to the others.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if b.stopped.Load() {
		return ErrBusStopped
	}
	b.inflight.Add(1)
	defer b.inflight.Done()

	var errs []error
	for _, event := range events {
		eventCtx := logger.WithEvent(ctx, event.EventType(), event.EventID().String())
		for _, handler := range b.registry.Handlers(event.EventType()) {
			err := b.dispatch(eventCtx, handler, event)
			if err == nil {
				continue
			}
			logger.For(eventCtx, b.logger).Error("event handler failed",
				zap.String("aggregate_id", event.AggregateID().String()),
				zap.String("handler", fmt.Sprintf("%T", handler)),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", event.EventType(), err))
		}
	}
	return errors.Join(errs...)
}

// Subscribe registers handler for eventTypes, falling back to the handler's own list
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed",
		zap.String("handler", fmt.Sprintf("%T", handler)),
		zap.Strings("event_types", eventTypes),
	)
}

func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// HasHandlers reports whether anything is subscribed to the event type
func (b *InMemoryEventBus) HasHandlers(eventType string) bool {
	return len(b.registry.Handlers(eventType)) > 0
}

func (b *InMemoryEventBus) Start(ctx context.Context) error {
	b.stopped.Store(false)
	b.logger.Info("event bus started", zap.Strings("event_types", b.registry.Types()))
	return nil
}

// Stop refuses new publishes and waits for in-flight ones until ctx is done
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.stopped.Store(true)

	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("event bus stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event bus stop: %w", ctx.Err())
	}
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler.Handle(ctx, event)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
