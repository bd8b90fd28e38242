package shared

import (
	"time"

	"github.com/google/uuid"
)

// Aggregate holds what every ledger aggregate shares: identity, audit
// timestamps, the optimistic-lock version and the events raised since it was
// loaded. Repositories compare Version on save; a stale copy fails with
// ErrConcurrencyConflict.
type Aggregate struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int

	events []DomainEvent
}

// NewAggregate starts a fresh aggregate at version 1
func NewAggregate() Aggregate {
	now := time.Now()
	return Aggregate{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

// Touch records a state change made at now and bumps the version
func (a *Aggregate) Touch(now time.Time) {
	a.UpdatedAt = now
	a.Version++
}

// RaiseEvent queues an event to be written to the outbox with the aggregate
func (a *Aggregate) RaiseEvent(event DomainEvent) {
	a.events = append(a.events, event)
}

// PendingEvents returns the queued events without clearing them
func (a *Aggregate) PendingEvents() []DomainEvent {
	return a.events
}

// PullEvents returns the queued events and clears the queue
func (a *Aggregate) PullEvents() []DomainEvent {
	events := a.events
	a.events = nil
	return events
}
