package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/erp/stockledger/internal/application/event"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/interfaces/http/dto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockDeliveries struct {
	mock.Mock
}

func (m *mockDeliveries) ListDead(ctx context.Context, page, pageSize int) (*event.DeadLetterPage, error) {
	args := m.Called(ctx, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.DeadLetterPage), args.Error(1)
}

func (m *mockDeliveries) Get(ctx context.Context, id uuid.UUID) (*event.Delivery, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Delivery), args.Error(1)
}

func (m *mockDeliveries) Redeliver(ctx context.Context, id uuid.UUID) (*event.Delivery, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.Delivery), args.Error(1)
}

func (m *mockDeliveries) RedeliverAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockDeliveries) Stats(ctx context.Context) (*event.DeliveryStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.DeliveryStats), args.Error(1)
}

func deadDelivery() event.Delivery {
	now := time.Now()
	return event.Delivery{
		ID:            uuid.New(),
		EventID:       uuid.New(),
		EventType:     "PeriodClosed",
		AggregateID:   uuid.New(),
		AggregateType: "Period",
		Status:        shared.OutboxStatusDead,
		RetryCount:    5,
		MaxRetries:    5,
		LastError:     "s3: access denied",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestDeliveryHandler_ListDead(t *testing.T) {
	t.Run("passes paging through", func(t *testing.T) {
		deliveries := new(mockDeliveries)
		h := NewDeliveryHandler(deliveries)
		d := deadDelivery()
		deliveries.On("ListDead", mock.Anything, 2, 10).
			Return(&event.DeadLetterPage{Entries: []event.Delivery{d}, Total: 11, Page: 2, PageSize: 10, TotalPages: 2}, nil)

		w := serve(http.MethodGet, "/system/outbox/dead", "/system/outbox/dead?page=2&page_size=10", nil, h.ListDead)

		assert.Equal(t, http.StatusOK, w.Code)
		data := dataMap(t, decodeResponse(t, w))
		assert.EqualValues(t, 11, data["total"])
		entries := data["entries"].([]any)
		require.Len(t, entries, 1)
		assert.Equal(t, "DEAD", entries[0].(map[string]any)["status"])
		assert.Equal(t, "s3: access denied", entries[0].(map[string]any)["last_error"])
	})

	t.Run("page size over limit", func(t *testing.T) {
		deliveries := new(mockDeliveries)
		h := NewDeliveryHandler(deliveries)

		w := serve(http.MethodGet, "/system/outbox/dead", "/system/outbox/dead?page_size=500", nil, h.ListDead)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		deliveries.AssertNotCalled(t, "ListDead", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestDeliveryHandler_Redeliver(t *testing.T) {
	t.Run("requeues dead entry", func(t *testing.T) {
		deliveries := new(mockDeliveries)
		h := NewDeliveryHandler(deliveries)
		d := deadDelivery()
		d.Status = shared.OutboxStatusPending
		d.RetryCount = 0
		deliveries.On("Redeliver", mock.Anything, d.ID).Return(&d, nil)

		w := serve(http.MethodPost, "/system/outbox/entries/:id/retry",
			"/system/outbox/entries/"+d.ID.String()+"/retry", nil, h.Redeliver)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "PENDING", dataMap(t, decodeResponse(t, w))["status"])
	})

	t.Run("entry not dead", func(t *testing.T) {
		deliveries := new(mockDeliveries)
		h := NewDeliveryHandler(deliveries)
		id := uuid.New()
		deliveries.On("Redeliver", mock.Anything, id).Return(nil, shared.ErrInvalidState.WithMessage("Outbox entry is SENT"))

		w := serve(http.MethodPost, "/system/outbox/entries/:id/retry",
			"/system/outbox/entries/"+id.String()+"/retry", nil, h.Redeliver)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidState, decodeResponse(t, w).Error.Code)
	})
}

func TestDeliveryHandler_GetAndStats(t *testing.T) {
	deliveries := new(mockDeliveries)
	h := NewDeliveryHandler(deliveries)
	missing := uuid.New()
	deliveries.On("Get", mock.Anything, missing).Return(nil, shared.ErrNotFound)
	deliveries.On("Stats", mock.Anything).Return(&event.DeliveryStats{Pending: 1, Dead: 2, Total: 3}, nil)
	deliveries.On("RedeliverAll", mock.Anything).Return(int64(2), nil)

	w := serve(http.MethodGet, "/system/outbox/entries/:id", "/system/outbox/entries/"+missing.String(), nil, h.Get)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(http.MethodGet, "/system/outbox/stats", "/system/outbox/stats", nil, h.Stats)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, dataMap(t, decodeResponse(t, w))["dead"])

	w = serve(http.MethodPost, "/system/outbox/dead/retry", "/system/outbox/dead/retry", nil, h.RedeliverAll)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, dataMap(t, decodeResponse(t, w))["count"])
}
