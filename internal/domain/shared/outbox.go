package shared

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus is the delivery state of an outbox entry
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
	OutboxStatusDead       OutboxStatus = "DEAD"
)

const (
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = time.Second
	MaxBackoff         = 5 * time.Minute
)

// OutboxEntry is a domain event stored in the same transaction as the ledger
// rows that raised it. The processor claims due entries and hands them to the bus.
type OutboxEntry struct {
	ID            uuid.UUID
	EventID       uuid.UUID
	EventType     string
	AggregateID   uuid.UUID
	AggregateType string
	Payload       []byte

	Status       OutboxStatus
	RetryCount   int
	MaxRetries   int
	LastError    string
	NextRetryAt  *time.Time
	ProcessedAt  *time.Time
	DeadAt       *time.Time
	Redeliveries int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewOutboxEntry wraps a serialized event as a pending entry
func NewOutboxEntry(event DomainEvent, payload []byte) *OutboxEntry {
	now := time.Now()
	return &OutboxEntry{
		ID:            uuid.New(),
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		Payload:       payload,
		Status:        OutboxStatusPending,
		MaxRetries:    DefaultMaxRetries,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// RetryBackoff doubles from DefaultBaseBackoff per failed attempt (1-based)
// and never exceeds MaxBackoff.
func RetryBackoff(attempt int) time.Duration {
	attempt = max(attempt, 1)
	if attempt > 20 {
		return MaxBackoff
	}
	return min(DefaultBaseBackoff<<uint(attempt-1), MaxBackoff)
}

// Due reports whether the processor should pick the entry up at now
func (e *OutboxEntry) Due(now time.Time) bool {
	switch e.Status {
	case OutboxStatusPending:
		return true
	case OutboxStatusFailed:
		return e.NextRetryAt == nil || !e.NextRetryAt.After(now)
	default:
		return false
	}
}

// IsDead reports whether the entry ran out of attempts
func (e *OutboxEntry) IsDead() bool {
	return e.Status == OutboxStatusDead
}

// MarkSent records a successful delivery
func (e *OutboxEntry) MarkSent() {
	now := time.Now()
	e.Status = OutboxStatusSent
	e.ProcessedAt = &now
	e.UpdatedAt = now
}

// MarkFailed uses up one attempt. Once MaxRetries attempts are spent the entry
// is dead-lettered; otherwise the next attempt is scheduled after RetryBackoff.
func (e *OutboxEntry) MarkFailed(reason string) {
	now := time.Now()
	e.RetryCount++
	e.LastError = reason
	e.UpdatedAt = now

	if e.RetryCount < e.MaxRetries {
		next := now.Add(RetryBackoff(e.RetryCount))
		e.Status = OutboxStatusFailed
		e.NextRetryAt = &next
		return
	}
	e.Status = OutboxStatusDead
	e.NextRetryAt = nil
	e.DeadAt = &now
}

// Redeliver requeues a dead entry with a fresh attempt budget. LastError stays
// until the next attempt replaces it.
func (e *OutboxEntry) Redeliver() error {
	if !e.IsDead() {
		return ErrInvalidState.WithMessage(fmt.Sprintf("outbox entry %s is %s, only dead entries can be redelivered", e.ID, e.Status))
	}
	e.Status = OutboxStatusPending
	e.RetryCount = 0
	e.NextRetryAt = nil
	e.DeadAt = nil
	e.Redeliveries++
	e.UpdatedAt = time.Now()
	return nil
}

// OutboxRepository persists outbox entries
type OutboxRepository interface {
	Save(ctx context.Context, entries ...*OutboxEntry) error
	// FindDue returns pending entries plus failed entries whose retry is due at now
	FindDue(ctx context.Context, now time.Time, limit int) ([]*OutboxEntry, error)
	// Claim moves entries to PROCESSING and returns the ones this caller won
	Claim(ctx context.Context, ids []uuid.UUID) ([]*OutboxEntry, error)
	Update(ctx context.Context, entry *OutboxEntry) error
	// PurgeSent removes entries delivered before the given time
	PurgeSent(ctx context.Context, before time.Time) (int64, error)
	// FindDead returns one page of dead-lettered entries and the total count
	FindDead(ctx context.Context, page, pageSize int) ([]*OutboxEntry, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*OutboxEntry, error)
	CountByStatus(ctx context.Context) (map[OutboxStatus]int64, error)
}
