package handler

import (
	"github.com/erp/stockledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// DeliveryHandler lets operators inspect the outbox and requeue entries that exhausted their retries,
// typically period archives that could not reach object storage.
type DeliveryHandler struct {
	BaseHandler
	deliveries DeliveryAdmin
}

// NewDeliveryHandler creates a new DeliveryHandler
func NewDeliveryHandler(deliveries DeliveryAdmin) *DeliveryHandler {
	return &DeliveryHandler{deliveries: deliveries}
}

// ListDead handles GET /system/outbox/dead?page&page_size
func (h *DeliveryHandler) ListDead(c *gin.Context) {
	var q dto.DeadLetterQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.ValidationError(c, err)
		return
	}
	page, err := h.deliveries.ListDead(c.Request.Context(), q.Page, q.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToDeadLetterPageResponse(page))
}

// Get handles GET /system/outbox/entries/:id
func (h *DeliveryHandler) Get(c *gin.Context) {
	id, ok := h.bindUUIDParam(c, "id")
	if !ok {
		return
	}
	d, err := h.deliveries.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToDeliveryResponse(d))
}

// Redeliver handles POST /system/outbox/entries/:id/retry
func (h *DeliveryHandler) Redeliver(c *gin.Context) {
	id, ok := h.bindUUIDParam(c, "id")
	if !ok {
		return
	}
	d, err := h.deliveries.Redeliver(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToDeliveryResponse(d))
}

// RedeliverAll handles POST /system/outbox/dead/retry
func (h *DeliveryHandler) RedeliverAll(c *gin.Context) {
	count, err := h.deliveries.RedeliverAll(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.RedeliverAllResponse{Count: count})
}

// Stats handles GET /system/outbox/stats
func (h *DeliveryHandler) Stats(c *gin.Context) {
	stats, err := h.deliveries.Stats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToDeliveryStatsResponse(stats))
}
