package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is what the outbox stores and the bus routes. Handlers use
// EventID for deduplication and EventType for dispatch.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
}

// VersionedEvent is implemented by events whose payload shape has changed
// over time; the serializer upgrades old payloads to SchemaVersion.
type VersionedEvent interface {
	DomainEvent
	SchemaVersion() int
}

// EventHeader is embedded by every ledger event. Its JSON keys are part of
// the stored outbox payload and must stay stable.
type EventHeader struct {
	ID            uuid.UUID `json:"id"`
	Type          string    `json:"type"`
	At            time.Time `json:"timestamp"`
	Aggregate     uuid.UUID `json:"aggregate_id"`
	AggregateKind string    `json:"aggregate_type"`
	Schema        int       `json:"schema_version,omitempty"`
}

// NewEventHeader stamps a fresh eventType event raised by aggregate id
func NewEventHeader(eventType, aggregateKind string, id uuid.UUID) EventHeader {
	return EventHeader{
		ID:            uuid.New(),
		Type:          eventType,
		At:            time.Now(),
		Aggregate:     id,
		AggregateKind: aggregateKind,
		Schema:        1,
	}
}

func (h *EventHeader) EventID() uuid.UUID     { return h.ID }
func (h *EventHeader) EventType() string      { return h.Type }
func (h *EventHeader) OccurredAt() time.Time  { return h.At }
func (h *EventHeader) AggregateID() uuid.UUID { return h.Aggregate }
func (h *EventHeader) AggregateType() string  { return h.AggregateKind }

// SchemaVersion reports 1 for payloads written before versioning existed
func (h *EventHeader) SchemaVersion() int {
	return max(h.Schema, 1)
}
