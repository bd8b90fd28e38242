package handler

import (
	"fmt"
	"net/http"

	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StockCardHandler serves ledger reads: stock cards, current stock, reconcile and workbook exports
type StockCardHandler struct {
	BaseHandler
	queries  LedgerQueryService
	exporter StockCardExporter
	archive  bool
	logger   *zap.Logger
}

// NewStockCardHandler creates a new StockCardHandler.
// archive enables the upload endpoint; it is off when no object storage is configured.
func NewStockCardHandler(queries LedgerQueryService, exporter StockCardExporter, archive bool, logger *zap.Logger) *StockCardHandler {
	return &StockCardHandler{queries: queries, exporter: exporter, archive: archive, logger: logger}
}

// resolvePeriod reads month/year from the query string, defaulting to the running period
func (h *StockCardHandler) resolvePeriod(c *gin.Context, q dto.PeriodQuery) (inventory.PeriodKey, bool) {
	var key *inventory.PeriodKey
	if !q.IsZero() {
		k, err := inventory.NewPeriodKey(q.Month, q.Year)
		if err != nil {
			h.HandleError(c, err)
			return inventory.PeriodKey{}, false
		}
		key = &k
	}
	resolved, err := h.queries.ResolvePeriod(c.Request.Context(), key)
	if err != nil {
		h.HandleError(c, err)
		return inventory.PeriodKey{}, false
	}
	return resolved, true
}

func (h *StockCardHandler) productAndPeriod(c *gin.Context) (uuid.UUID, inventory.PeriodKey, bool) {
	productID, ok := h.bindUUIDParam(c, "product_id")
	if !ok {
		return uuid.Nil, inventory.PeriodKey{}, false
	}
	var q dto.PeriodQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.ValidationError(c, err)
		return uuid.Nil, inventory.PeriodKey{}, false
	}
	key, ok := h.resolvePeriod(c, q)
	return productID, key, ok
}

// History handles GET /stock-cards/:product_id?month&year
func (h *StockCardHandler) History(c *gin.Context) {
	productID, key, ok := h.productAndPeriod(c)
	if !ok {
		return
	}
	history, err := h.queries.LedgerHistory(c.Request.Context(), productID, key)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToLedgerHistoryResponse(history))
}

// Reconcile handles GET /stock-cards/:product_id/reconcile?month&year
func (h *StockCardHandler) Reconcile(c *gin.Context) {
	productID, key, ok := h.productAndPeriod(c)
	if !ok {
		return
	}
	report, err := h.queries.Reconcile(c.Request.Context(), productID, key)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !report.OK() {
		h.logger.Warn("stock card does not reconcile",
			zap.String("product_id", productID.String()),
			zap.String("period", key.String()),
			zap.Bool("ledger_consistent", report.LedgerConsistent),
			zap.Bool("replay_matches", report.ReplayMatches),
			zap.Bool("projection_match", report.ProjectionMatch),
		)
	}
	h.Success(c, dto.ToReconcileResponse(report))
}

// ExportStockCard handles GET /stock-cards/:product_id/export?month&year
func (h *StockCardHandler) ExportStockCard(c *gin.Context) {
	productID, key, ok := h.productAndPeriod(c)
	if !ok {
		return
	}
	data, err := h.exporter.ExportStockCard(c.Request.Context(), productID, key)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.workbook(c, fmt.Sprintf("stock-card-%s-%s.xlsx", productID, key), data)
}

// CurrentStock handles GET /current-stock/:product_id?unit&month&year.
// Without a unit every unit row of the product is returned.
func (h *StockCardHandler) CurrentStock(c *gin.Context) {
	productID, ok := h.bindUUIDParam(c, "product_id")
	if !ok {
		return
	}
	var q dto.CurrentStockQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.ValidationError(c, err)
		return
	}
	key, ok := h.resolvePeriod(c, q.PeriodQuery)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if q.Unit != "" {
		stock, err := h.queries.CurrentStock(ctx, productID, q.Unit, key)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, dto.ToCurrentStockResponse(stock))
		return
	}

	stocks, err := h.queries.CurrentStockByProduct(ctx, productID, key)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := make([]dto.CurrentStockResponse, len(stocks))
	for i := range stocks {
		out[i] = dto.ToCurrentStockResponse(&stocks[i])
	}
	h.Success(c, out)
}

// ExportPeriod handles GET /ledger/export?month&year
func (h *StockCardHandler) ExportPeriod(c *gin.Context) {
	var q dto.PeriodQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.ValidationError(c, err)
		return
	}
	key, ok := h.resolvePeriod(c, q)
	if !ok {
		return
	}
	data, err := h.exporter.Export(c.Request.Context(), key)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.workbook(c, fmt.Sprintf("stock-cards-%s.xlsx", key), data)
}

// ArchivePeriod handles POST /ledger/archive?month&year.
// It re-runs the archive a period close triggers, for months whose delivery failed.
func (h *StockCardHandler) ArchivePeriod(c *gin.Context) {
	key, ok := h.archivePeriod(c)
	if !ok {
		return
	}
	link, err := h.exporter.Archive(c.Request.Context(), key)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToArchiveResponse(key, link))
}

// GetArchive handles GET /ledger/archive?month&year with a fresh download link
func (h *StockCardHandler) GetArchive(c *gin.Context) {
	key, ok := h.archivePeriod(c)
	if !ok {
		return
	}
	link, err := h.exporter.FindArchive(c.Request.Context(), key)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToArchiveResponse(key, link))
}

func (h *StockCardHandler) archivePeriod(c *gin.Context) (inventory.PeriodKey, bool) {
	if !h.archive {
		h.Error(c, http.StatusNotImplemented, dto.ErrCodeBusinessRule, "Object storage is not configured")
		return inventory.PeriodKey{}, false
	}
	var q dto.PeriodQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.ValidationError(c, err)
		return inventory.PeriodKey{}, false
	}
	return h.resolvePeriod(c, q)
}

func (h *StockCardHandler) workbook(c *gin.Context, filename string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, inventoryapp.WorkbookContentType, data)
}
