package dto

import (
	"time"

	"github.com/erp/stockledger/internal/application/event"
	"github.com/google/uuid"
)

// DeadLetterQuery pages through dead letter entries
type DeadLetterQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// DeliveryResponse is an outbox entry as shown to operators
type DeliveryResponse struct {
	ID            uuid.UUID  `json:"id"`
	EventID       uuid.UUID  `json:"event_id"`
	EventType     string     `json:"event_type"`
	AggregateID   uuid.UUID  `json:"aggregate_id"`
	AggregateType string     `json:"aggregate_type"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retry_count"`
	MaxRetries    int        `json:"max_retries"`
	LastError     string     `json:"last_error,omitempty"`
	NextRetryAt   *time.Time `json:"next_retry_at,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	DeadAt        *time.Time `json:"dead_at,omitempty"`
	Redeliveries  int        `json:"redeliveries"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// DeadLetterPageResponse is a page of dead letter entries
type DeadLetterPageResponse struct {
	Entries    []DeliveryResponse `json:"entries"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalPages int                `json:"total_pages"`
}

// DeliveryStatsResponse counts outbox entries per status
type DeliveryStatsResponse struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}

// RedeliverAllResponse reports how many entries were requeued
type RedeliverAllResponse struct {
	Count int64 `json:"count"`
}

// ToDeliveryResponse maps an outbox entry
func ToDeliveryResponse(d *event.Delivery) DeliveryResponse {
	return DeliveryResponse{
		ID:            d.ID,
		EventID:       d.EventID,
		EventType:     d.EventType,
		AggregateID:   d.AggregateID,
		AggregateType: d.AggregateType,
		Status:        string(d.Status),
		RetryCount:    d.RetryCount,
		MaxRetries:    d.MaxRetries,
		LastError:     d.LastError,
		NextRetryAt:   d.NextRetryAt,
		ProcessedAt:   d.ProcessedAt,
		DeadAt:        d.DeadAt,
		Redeliveries:  d.Redeliveries,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// ToDeadLetterPageResponse maps a page of dead letter entries
func ToDeadLetterPageResponse(p *event.DeadLetterPage) DeadLetterPageResponse {
	entries := make([]DeliveryResponse, len(p.Entries))
	for i := range p.Entries {
		entries[i] = ToDeliveryResponse(&p.Entries[i])
	}
	return DeadLetterPageResponse{
		Entries:    entries,
		Total:      p.Total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: p.TotalPages,
	}
}

// ToDeliveryStatsResponse maps outbox counts
func ToDeliveryStatsResponse(s *event.DeliveryStats) DeliveryStatsResponse {
	return DeliveryStatsResponse(*s)
}
