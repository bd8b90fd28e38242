package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockPeriodLocker struct {
	mock.Mock
}

func (m *MockPeriodLocker) Lock(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, error) {
	args := m.Called(ctx, name, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func(context.Context) error), args.Error(1)
}

type MockLedgerMetrics struct {
	mock.Mock
}

func (m *MockLedgerMetrics) RecordMovement(ctx context.Context, category, direction string) {
	m.Called(ctx, category, direction)
}

func (m *MockLedgerMetrics) RecordDuplicate(ctx context.Context, referenceType string) {
	m.Called(ctx, referenceType)
}

func (m *MockLedgerMetrics) RecordPeriodClose(ctx context.Context, duration time.Duration, carriedForward int) {
	m.Called(ctx, duration, carriedForward)
}

func TestPeriodCloser_RollsForwardWorkedExample(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, DefaultOptions())
	productID := f.registerWater(t, march2024)
	march := f.runPeriod(t, march2024)

	f.receive(t, productID, "10")
	card := f.card(t, productID, march2024)
	assert.True(t, card.Qty.Ending.Equal(dec("10")))
	assert.True(t, card.BaseQty.Ending.Equal(dec("5000")))
	assert.True(t, f.stock(t, productID, march2024).Quantity.Equal(dec("10")))

	out := inventory.NewStockOutApprovedEvent(uuid.New(), "SO-0001", *at(march2024, 12), nil, []inventory.StockOutLine{{
		LineID: uuid.New(), ProductID: productID, Unit: "bottle", Quantity: dec("3"),
	}})
	require.NoError(t, NewStockOutApprovedHandler(f.poster).Handle(ctx, out))

	card = f.card(t, productID, march2024)
	assert.True(t, card.Qty.Out.Equal(dec("3")))
	assert.True(t, card.BaseQty.Out.Equal(dec("1500")))
	assert.True(t, card.Qty.Ending.Equal(dec("7")))
	assert.True(t, card.BaseQty.Ending.Equal(dec("3500")))
	assert.True(t, f.stock(t, productID, march2024).Quantity.Equal(dec("7")))

	result, err := f.closer.Close(ctx, march.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.CarriedForward)
	assert.Equal(t, inventory.PeriodStatusClosed, result.Closed.Status)
	assert.Equal(t, april2024, result.Next.Key())
	assert.Equal(t, inventory.PeriodStatusOpen, result.Next.Status)

	closed := f.card(t, productID, march2024)
	assert.Equal(t, inventory.CardStatusEnded, closed.Status)
	assert.Equal(t, inventory.CardStatusEnded, f.stock(t, productID, march2024).Status)

	next := f.card(t, productID, april2024)
	assert.Equal(t, inventory.CardStatusInProgress, next.Status)
	assert.True(t, next.Qty.Beginning.Equal(dec("7")))
	assert.True(t, next.BaseQty.Beginning.Equal(dec("3500")))
	assert.True(t, next.Qty.Ending.Equal(dec("7")))
	assert.True(t, next.BaseQty.Ending.Equal(dec("3500")))
	assert.True(t, f.stock(t, productID, april2024).Quantity.Equal(dec("7")))
	assert.True(t, f.stock(t, productID, april2024).BaseQuantity.Equal(dec("3500")))

	history, err := f.queries.LedgerHistory(ctx, productID, april2024)
	require.NoError(t, err)
	require.Len(t, history.Entries, 1)
	opening := history.Entries[0]
	assert.Equal(t, inventory.CategoryOpeningBalance, opening.Category)
	assert.Equal(t, inventory.StockCardRef(closed.ID), opening.Reference)
	assert.Equal(t, "OPENING BALANCE from period 2024-03", opening.Note)

	events := f.store.recorded(inventory.EventTypePeriodClosed)
	require.Len(t, events, 1)
	closedEvent := events[0].(*inventory.PeriodClosedEvent)
	assert.Equal(t, march.ID, closedEvent.PeriodID)
	assert.Equal(t, march2024, closedEvent.Key())
	assert.Equal(t, 1, closedEvent.CarriedForward)

	_, err = f.registry.ActivePeriod(ctx)
	assert.ErrorIs(t, err, inventory.ErrNoActivePeriod)
}

func TestPeriodCloser_AutoStartsNextPeriod(t *testing.T) {
	opts := DefaultOptions()
	opts.AutoStartNextPeriod = true
	f := newLedgerFixture(t, opts)
	productID := f.registerWater(t, march2024)
	march := f.runPeriod(t, march2024)
	f.receive(t, productID, "2")

	result, err := f.closer.Close(context.Background(), march.ID)
	require.NoError(t, err)
	assert.Equal(t, inventory.PeriodStatusRunning, result.Next.Status)

	active, err := f.registry.ActivePeriod(context.Background())
	require.NoError(t, err)
	assert.Equal(t, april2024, active.Key())
	assert.Len(t, f.store.recorded(inventory.EventTypePeriodStarted), 2)

	// Goods received after the close land in April on top of the carried balance.
	f.receive(t, productID, "5")
	assert.True(t, f.card(t, productID, april2024).Qty.Ending.Equal(dec("7")))
}

func TestPeriodCloser_ReusesRegisteredNextPeriod(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, DefaultOptions())
	f.registerWater(t, march2024)
	march := f.runPeriod(t, march2024)
	april, err := f.registry.OpenPeriod(ctx, april2024)
	require.NoError(t, err)

	result, err := f.closer.Close(ctx, march.ID)
	require.NoError(t, err)
	assert.Equal(t, april.ID, result.Next.ID)
}

func TestPeriodCloser_ClosedTwice(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, DefaultOptions())
	march := f.runPeriod(t, march2024)

	_, err := f.closer.Close(ctx, march.ID)
	require.NoError(t, err)
	_, err = f.closer.Close(ctx, march.ID)
	assert.ErrorIs(t, err, inventory.ErrPeriodClosed)
}

func TestPeriodCloser_OpenPeriodCannotClose(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, DefaultOptions())
	p, err := f.registry.OpenPeriod(ctx, march2024)
	require.NoError(t, err)

	_, err = f.closer.Close(ctx, p.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestPeriodCloser_UnknownPeriod(t *testing.T) {
	f := newLedgerFixture(t, DefaultOptions())
	_, err := f.closer.Close(context.Background(), uuid.New())
	assert.ErrorIs(t, err, inventory.ErrPeriodNotFound)
}

func TestPeriodCloser_RefusesProjectionDrift(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, DefaultOptions())
	productID := f.registerWater(t, march2024)
	march := f.runPeriod(t, march2024)
	f.receive(t, productID, "10")

	stock := f.stock(t, productID, march2024)
	require.NoError(t, stock.Adjust(dec("1"), dec("500")))
	require.NoError(t, memStocks{f.store}.Save(ctx, stock))

	_, err := f.closer.Close(ctx, march.ID)
	assert.ErrorIs(t, err, inventory.ErrProjectionDrift)
}

func TestPeriodCloser_TakesLockAndRecordsMetrics(t *testing.T) {
	ctx := context.Background()
	f := newLedgerFixture(t, DefaultOptions())
	march := f.runPeriod(t, march2024)

	released := false
	locker := new(MockPeriodLocker)
	locker.On("Lock", mock.Anything, PeriodCloseLockName, time.Minute).
		Return(func(context.Context) error { released = true; return nil }, nil)
	metrics := new(MockLedgerMetrics)
	metrics.On("RecordPeriodClose", mock.Anything, mock.Anything, 0).Return()

	closer := NewPeriodCloser(f.store.scope(), locker, time.Minute, DefaultOptions(), zap.NewNop())
	closer.SetMetrics(metrics)

	_, err := closer.Close(ctx, march.ID)
	require.NoError(t, err)
	assert.True(t, released)
	locker.AssertExpectations(t)
	metrics.AssertExpectations(t)
}

func TestPeriodCloser_LockFailure(t *testing.T) {
	f := newLedgerFixture(t, DefaultOptions())
	march := f.runPeriod(t, march2024)

	locker := new(MockPeriodLocker)
	locker.On("Lock", mock.Anything, PeriodCloseLockName, mock.Anything).Return(nil, errors.New("redis down"))
	closer := NewPeriodCloser(f.store.scope(), locker, 0, DefaultOptions(), zap.NewNop())

	_, err := closer.Close(context.Background(), march.ID)
	assert.ErrorContains(t, err, "redis down")

	p, err := f.registry.ActivePeriod(context.Background())
	require.NoError(t, err)
	assert.Equal(t, march.ID, p.ID)
}

func TestPeriodCloseRequestedHandler_Handle(t *testing.T) {
	f := newLedgerFixture(t, DefaultOptions())
	march := f.runPeriod(t, march2024)
	handler := NewPeriodCloseRequestedHandler(f.closer)

	assert.Equal(t, []string{inventory.EventTypePeriodCloseRequested}, handler.EventTypes())
	require.NoError(t, handler.Handle(context.Background(), inventory.NewPeriodCloseRequestedEvent(march.ID, "admin")))

	closed, err := memPeriods{f.store}.FindByID(context.Background(), march.ID)
	require.NoError(t, err)
	assert.True(t, closed.IsClosed())
}
