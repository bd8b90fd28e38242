package handler

import (
	"strconv"

	"github.com/erp/stockledger/internal/domain/inventory"
	"github.com/erp/stockledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PeriodHandler exposes the period lifecycle
type PeriodHandler struct {
	BaseHandler
	periods PeriodService
	closer  PeriodCloseService
	logger  *zap.Logger
}

// NewPeriodHandler creates a new PeriodHandler
func NewPeriodHandler(periods PeriodService, closer PeriodCloseService, logger *zap.Logger) *PeriodHandler {
	return &PeriodHandler{periods: periods, closer: closer, logger: logger}
}

// Active handles GET /periods/active
func (h *PeriodHandler) Active(c *gin.Context) {
	period, err := h.periods.ActivePeriod(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToPeriodResponse(period))
}

// List handles GET /periods?include_tombstoned=true
func (h *PeriodHandler) List(c *gin.Context) {
	includeTombstoned, _ := strconv.ParseBool(c.Query("include_tombstoned"))
	periods, err := h.periods.ListPeriods(c.Request.Context(), includeTombstoned)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToPeriodResponses(periods))
}

// Open handles POST /periods
func (h *PeriodHandler) Open(c *gin.Context) {
	var req dto.OpenPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	key, err := inventory.NewPeriodKey(req.Month, req.Year)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	period, err := h.periods.OpenPeriod(c.Request.Context(), key)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToPeriodResponse(period))
}

// Start handles POST /periods/:id/start
func (h *PeriodHandler) Start(c *gin.Context) {
	id, ok := h.bindUUIDParam(c, "id")
	if !ok {
		return
	}
	period, err := h.periods.StartPeriod(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToPeriodResponse(period))
}

// Close handles POST /periods/:id/close
func (h *PeriodHandler) Close(c *gin.Context) {
	id, ok := h.bindUUIDParam(c, "id")
	if !ok {
		return
	}
	result, err := h.closer.Close(c.Request.Context(), id)
	if err != nil {
		h.logger.Warn("period close failed", zap.String("period_id", id.String()), zap.Error(err))
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToCloseResponse(result))
}

// Confirm handles POST /periods/:id/confirm
func (h *PeriodHandler) Confirm(c *gin.Context) {
	id, ok := h.bindUUIDParam(c, "id")
	if !ok {
		return
	}
	period, err := h.periods.ConfirmPeriod(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToPeriodResponse(period))
}

// Tombstone handles DELETE /periods/:id
func (h *PeriodHandler) Tombstone(c *gin.Context) {
	id, ok := h.bindUUIDParam(c, "id")
	if !ok {
		return
	}
	period, err := h.periods.TombstonePeriod(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToPeriodResponse(period))
}
