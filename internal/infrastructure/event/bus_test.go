package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// testEvent implements DomainEvent for testing
type testEvent struct {
	shared.EventHeader
	Data string `json:"data"`
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		EventHeader: shared.NewEventHeader(eventType, "TestAggregate", uuid.New()),
		Data:        "test data",
	}
}

// testHandler implements EventHandler for testing
type testHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	mu         sync.Mutex
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{
		eventTypes: eventTypes,
		handled:    make([]shared.DomainEvent, 0),
	}
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) setError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

func (h *testHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	tests := []struct {
		name      string
		subscribe func(bus *InMemoryEventBus) []*testHandler
		events    []shared.DomainEvent
		want      []int
	}{
		{
			name: "single handler",
			subscribe: func(bus *InMemoryEventBus) []*testHandler {
				h := newTestHandler("StockCardPosted")
				bus.Subscribe(h)
				return []*testHandler{h}
			},
			events: []shared.DomainEvent{newTestEvent("StockCardPosted")},
			want:   []int{1},
		},
		{
			name: "events delivered in order",
			subscribe: func(bus *InMemoryEventBus) []*testHandler {
				h := newTestHandler("StockCardPosted")
				bus.Subscribe(h)
				return []*testHandler{h}
			},
			events: []shared.DomainEvent{newTestEvent("StockCardPosted"), newTestEvent("StockCardPosted")},
			want:   []int{2},
		},
		{
			name: "fan out to every subscriber",
			subscribe: func(bus *InMemoryEventBus) []*testHandler {
				a, b := newTestHandler("PeriodClosed"), newTestHandler("PeriodClosed")
				bus.Subscribe(a)
				bus.Subscribe(b)
				return []*testHandler{a, b}
			},
			events: []shared.DomainEvent{newTestEvent("PeriodClosed")},
			want:   []int{1, 1},
		},
		{
			name: "wildcard sees every type",
			subscribe: func(bus *InMemoryEventBus) []*testHandler {
				h := newTestHandler()
				bus.Subscribe(h)
				return []*testHandler{h}
			},
			events: []shared.DomainEvent{newTestEvent("SaleRecorded"), newTestEvent("PeriodClosed")},
			want:   []int{2},
		},
		{
			name: "explicit types override the handler's own",
			subscribe: func(bus *InMemoryEventBus) []*testHandler {
				h := newTestHandler("SaleRecorded")
				bus.Subscribe(h, "StockOutApproved")
				return []*testHandler{h}
			},
			events: []shared.DomainEvent{newTestEvent("SaleRecorded"), newTestEvent("StockOutApproved")},
			want:   []int{1},
		},
		{
			name: "unmatched type is dropped",
			subscribe: func(bus *InMemoryEventBus) []*testHandler {
				h := newTestHandler("OtherEvent")
				bus.Subscribe(h)
				return []*testHandler{h}
			},
			events: []shared.DomainEvent{newTestEvent("StockCardPosted")},
			want:   []int{0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := NewInMemoryEventBus(zap.NewNop())
			handlers := tt.subscribe(bus)

			require.NoError(t, bus.Publish(context.Background(), tt.events...))
			for i, h := range handlers {
				assert.Len(t, h.getHandled(), tt.want[i])
			}
		})
	}
}

func TestInMemoryEventBus_Publish_HandlerError(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	failing := newTestHandler("GoodsReceiptApproved")
	failing.setError(errors.New("no active period"))
	healthy := newTestHandler("GoodsReceiptApproved")
	bus.Subscribe(failing)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), newTestEvent("GoodsReceiptApproved"))

	assert.ErrorContains(t, err, "GoodsReceiptApproved: no active period")
	assert.Len(t, failing.getHandled(), 1)
	assert.Len(t, healthy.getHandled(), 1, "later handlers still run")
}

// refRecorder remembers which event its deliveries were tagged with
type refRecorder struct {
	refs []logger.EventRef
}

func (r *refRecorder) Handle(ctx context.Context, _ shared.DomainEvent) error {
	ref, _ := logger.Event(ctx)
	r.refs = append(r.refs, ref)
	return errors.New("period closed")
}
func (r *refRecorder) EventTypes() []string { return []string{"SaleRecorded"} }

func TestInMemoryEventBus_Publish_TagsDeliveryContext(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	bus := NewInMemoryEventBus(zap.New(core))
	recorder := &refRecorder{}
	bus.Subscribe(recorder)

	first, second := newTestEvent("SaleRecorded"), newTestEvent("SaleRecorded")
	require.Error(t, bus.Publish(context.Background(), first, second))

	assert.Equal(t, []logger.EventRef{
		{Type: "SaleRecorded", ID: first.EventID().String()},
		{Type: "SaleRecorded", ID: second.EventID().String()},
	}, recorder.refs)

	failures := logs.FilterMessage("event handler failed").All()
	require.Len(t, failures, 2)
	assert.Equal(t, second.EventID().String(), failures[1].ContextMap()["event_id"])
}

type panickingHandler struct{}

func (panickingHandler) Handle(context.Context, shared.DomainEvent) error { panic("boom") }
func (panickingHandler) EventTypes() []string                             { return []string{"TestEvent"} }

func TestInMemoryEventBus_Publish_HandlerPanic(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(panickingHandler{})
	handler := newTestHandler("TestEvent")
	bus.Subscribe(handler)

	err := bus.Publish(context.Background(), newTestEvent("TestEvent"))
	assert.ErrorContains(t, err, "panicked")
	assert.Len(t, handler.getHandled(), 1)
	assert.True(t, bus.HasHandlers("TestEvent"))
	assert.False(t, bus.HasHandlers("OtherEvent"))
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler("TestEvent")
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("TestEvent")))
	bus.Unsubscribe(handler)
	require.NoError(t, bus.Publish(context.Background(), newTestEvent("TestEvent")))

	assert.Len(t, handler.getHandled(), 1)
	assert.False(t, bus.HasHandlers("TestEvent"))
}

type blockingHandler struct {
	entered chan struct{}
	release chan struct{}
}

func (h *blockingHandler) Handle(context.Context, shared.DomainEvent) error {
	close(h.entered)
	<-h.release
	return nil
}

func (h *blockingHandler) EventTypes() []string { return []string{"PeriodClosed"} }

func TestInMemoryEventBus_Stop(t *testing.T) {
	t.Run("rejects publishes after stop", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		require.NoError(t, bus.Start(context.Background()))
		require.NoError(t, bus.Stop(context.Background()))

		err := bus.Publish(context.Background(), newTestEvent("TestEvent"))
		assert.ErrorIs(t, err, ErrBusStopped)

		require.NoError(t, bus.Start(context.Background()))
		assert.NoError(t, bus.Publish(context.Background(), newTestEvent("TestEvent")))
	})

	t.Run("waits for in-flight dispatch", func(t *testing.T) {
		bus := NewInMemoryEventBus(zap.NewNop())
		h := &blockingHandler{entered: make(chan struct{}), release: make(chan struct{})}
		bus.Subscribe(h)

		published := make(chan error, 1)
		go func() { published <- bus.Publish(context.Background(), newTestEvent("PeriodClosed")) }()
		<-h.entered

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, bus.Stop(ctx), context.DeadlineExceeded)

		close(h.release)
		require.NoError(t, <-published)
		assert.NoError(t, bus.Stop(context.Background()))
	})
}
