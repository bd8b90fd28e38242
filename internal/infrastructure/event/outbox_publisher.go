package event

import (
	"context"
	"fmt"

	"github.com/erp/stockledger/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxPublisher appends domain events to the outbox through the caller's
// transaction. An event only becomes deliverable once the ledger rows that
// raised it have committed.
type OutboxPublisher struct {
	serializer *EventSerializer
	maxRetries int
}

// NewOutboxPublisher stamps new entries with maxRetries delivery attempts,
// or shared.DefaultMaxRetries when maxRetries is not positive.
func NewOutboxPublisher(serializer *EventSerializer, maxRetries int) *OutboxPublisher {
	if maxRetries <= 0 {
		maxRetries = shared.DefaultMaxRetries
	}
	return &OutboxPublisher{serializer: serializer, maxRetries: maxRetries}
}

// Append serializes events and inserts them with tx. Every event is encoded
// before anything is written, so an unknown type leaves tx untouched.
func (p *OutboxPublisher) Append(ctx context.Context, tx *gorm.DB, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	entries := make([]*shared.OutboxEntry, len(events))
	for i, ev := range events {
		entry, err := p.entryFor(ev)
		if err != nil {
			return err
		}
		entries[i] = entry
	}
	return NewGormOutboxRepository(tx).Save(ctx, entries...)
}

func (p *OutboxPublisher) entryFor(ev shared.DomainEvent) (*shared.OutboxEntry, error) {
	if !p.serializer.IsRegistered(ev.EventType()) {
		return nil, fmt.Errorf("outbox: event type %s is not registered", ev.EventType())
	}
	payload, err := p.serializer.Serialize(ev)
	if err != nil {
		return nil, fmt.Errorf("outbox: serialize %s %s: %w", ev.EventType(), ev.EventID(), err)
	}
	entry := shared.NewOutboxEntry(ev, payload)
	entry.MaxRetries = p.maxRetries
	return entry, nil
}
