package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/erp/stockledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventHandler accepts events from upstream approval flows and dispatches them
// synchronously, so the caller learns whether the ledger accepted them.
type EventHandler struct {
	BaseHandler
	decoder   EventDecoder
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(decoder EventDecoder, publisher shared.EventPublisher, log *zap.Logger) *EventHandler {
	return &EventHandler{decoder: decoder, publisher: publisher, logger: log}
}

// Intake handles POST /events/:type
func (h *EventHandler) Intake(c *gin.Context) {
	eventType := c.Param("type")
	if !h.decoder.IsRegistered(eventType) {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeUnknownEvent, "Unknown event type: "+eventType)
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodePayloadTooLarge, "Request body exceeds maximum allowed size")
			return
		}
		h.BadRequest(c, "Failed to read request body")
		return
	}

	var envelope dto.InboundEvent
	if err := binding.JSON.BindBody(body, &envelope); err != nil {
		h.ValidationError(c, err)
		return
	}

	event, err := h.decoder.Deserialize(eventType, body)
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, err.Error())
		return
	}
	if event.EventID() == uuid.Nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidationRequired, "Event id is required")
		return
	}

	ctx := logger.WithEvent(c.Request.Context(), eventType, event.EventID().String())
	log := logger.For(ctx, h.logger)
	if err := h.publisher.Publish(ctx, event); err != nil {
		log.Warn("inbound event rejected", zap.Error(err))
		h.HandleError(c, err)
		return
	}

	log.Info("inbound event accepted")
	h.Success(c, dto.EventAcceptedResponse{EventID: event.EventID(), EventType: eventType})
}
