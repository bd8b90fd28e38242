package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/interfaces/http/dto"
	"github.com/erp/stockledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := middleware.SetupValidator(); err != nil {
		panic(err)
	}
}

type mockPeriodService struct {
	mock.Mock
}

func (m *mockPeriodService) ActivePeriod(ctx context.Context) (*inventory.Period, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.Period), args.Error(1)
}

func (m *mockPeriodService) ListPeriods(ctx context.Context, includeTombstoned bool) ([]inventory.Period, error) {
	args := m.Called(ctx, includeTombstoned)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.Period), args.Error(1)
}

func (m *mockPeriodService) OpenPeriod(ctx context.Context, key inventory.PeriodKey) (*inventory.Period, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.Period), args.Error(1)
}

func (m *mockPeriodService) StartPeriod(ctx context.Context, id uuid.UUID) (*inventory.Period, error) {
	return m.periodCall("StartPeriod", ctx, id)
}

func (m *mockPeriodService) ConfirmPeriod(ctx context.Context, id uuid.UUID) (*inventory.Period, error) {
	return m.periodCall("ConfirmPeriod", ctx, id)
}

func (m *mockPeriodService) TombstonePeriod(ctx context.Context, id uuid.UUID) (*inventory.Period, error) {
	return m.periodCall("TombstonePeriod", ctx, id)
}

func (m *mockPeriodService) periodCall(method string, ctx context.Context, id uuid.UUID) (*inventory.Period, error) {
	args := m.MethodCalled(method, ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.Period), args.Error(1)
}

type mockPeriodCloser struct {
	mock.Mock
}

func (m *mockPeriodCloser) Close(ctx context.Context, periodID uuid.UUID) (*inventoryapp.CloseResult, error) {
	args := m.Called(ctx, periodID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.CloseResult), args.Error(1)
}

type mockLedgerQueries struct {
	mock.Mock
}

func (m *mockLedgerQueries) ResolvePeriod(ctx context.Context, key *inventory.PeriodKey) (inventory.PeriodKey, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(inventory.PeriodKey), args.Error(1)
}

func (m *mockLedgerQueries) CurrentStock(ctx context.Context, productID uuid.UUID, unit string, key inventory.PeriodKey) (*inventory.CurrentStock, error) {
	args := m.Called(ctx, productID, unit, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.CurrentStock), args.Error(1)
}

func (m *mockLedgerQueries) CurrentStockByProduct(ctx context.Context, productID uuid.UUID, key inventory.PeriodKey) ([]inventory.CurrentStock, error) {
	args := m.Called(ctx, productID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.CurrentStock), args.Error(1)
}

func (m *mockLedgerQueries) LedgerHistory(ctx context.Context, productID uuid.UUID, key inventory.PeriodKey) (*inventoryapp.LedgerHistory, error) {
	args := m.Called(ctx, productID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.LedgerHistory), args.Error(1)
}

func (m *mockLedgerQueries) Reconcile(ctx context.Context, productID uuid.UUID, key inventory.PeriodKey) (*inventoryapp.ReconcileReport, error) {
	args := m.Called(ctx, productID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.ReconcileReport), args.Error(1)
}

type mockExporter struct {
	mock.Mock
}

func (m *mockExporter) Export(ctx context.Context, key inventory.PeriodKey) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockExporter) ExportStockCard(ctx context.Context, productID uuid.UUID, key inventory.PeriodKey) ([]byte, error) {
	args := m.Called(ctx, productID, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockExporter) Archive(ctx context.Context, key inventory.PeriodKey) (*inventoryapp.ArchiveLink, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.ArchiveLink), args.Error(1)
}

func (m *mockExporter) FindArchive(ctx context.Context, key inventory.PeriodKey) (*inventoryapp.ArchiveLink, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.ArchiveLink), args.Error(1)
}

type mockDecoder struct {
	mock.Mock
}

func (m *mockDecoder) IsRegistered(eventType string) bool {
	return m.Called(eventType).Bool(0)
}

func (m *mockDecoder) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	args := m.Called(eventType, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(shared.DomainEvent), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// serve runs one request through a bare engine with route registered at pattern
func serve(method, pattern, target string, body io.Reader, h gin.HandlerFunc) *httptest.ResponseRecorder {
	engine := gin.New()
	engine.Handle(method, pattern, h)
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func dataMap(t *testing.T, resp dto.Response) map[string]any {
	t.Helper()
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data is %T", resp.Data)
	return data
}

func runningPeriod(t *testing.T, month, year int) *inventory.Period {
	t.Helper()
	key, err := inventory.NewPeriodKey(month, year)
	require.NoError(t, err)
	p, err := inventory.NewPeriod(key)
	require.NoError(t, err)
	require.NoError(t, p.Start())
	return p
}
