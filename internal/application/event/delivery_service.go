// Package event exposes the transactional outbox to operators: the events the
// ledger still owes to its subscribers, the ones that exhausted their retries,
// and the means to send those again.
package event

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Delivery is one outbox entry as reported to operators
type Delivery struct {
	ID            uuid.UUID
	EventID       uuid.UUID
	EventType     string
	AggregateID   uuid.UUID
	AggregateType string
	Status        shared.OutboxStatus
	RetryCount    int
	MaxRetries    int
	LastError     string
	NextRetryAt   *time.Time
	ProcessedAt   *time.Time
	DeadAt        *time.Time
	Redeliveries  int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DeadLetterPage is one page of entries that exhausted their retries
type DeadLetterPage struct {
	Entries    []Delivery
	Total      int64
	Page       int
	PageSize   int
	TotalPages int
}

// DeliveryStats counts outbox entries per status
type DeliveryStats struct {
	Pending    int64
	Processing int64
	Sent       int64
	Failed     int64
	Dead       int64
	Total      int64
}

// DeliveryService inspects and redelivers outbox entries
type DeliveryService struct {
	repo   shared.OutboxRepository
	logger *zap.Logger
}

// NewDeliveryService creates a new DeliveryService
func NewDeliveryService(repo shared.OutboxRepository, logger *zap.Logger) *DeliveryService {
	return &DeliveryService{repo: repo, logger: logger}
}

// ListDead returns a page of dead letter entries. Out of range paging falls back to the defaults.
func (s *DeliveryService) ListDead(ctx context.Context, page, pageSize int) (*DeadLetterPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	entries, total, err := s.repo.FindDead(ctx, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("find dead letter entries: %w", err)
	}

	out := &DeadLetterPage{
		Entries:    make([]Delivery, len(entries)),
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}
	for i, e := range entries {
		out.Entries[i] = toDelivery(e)
	}
	return out, nil
}

// Get returns a single outbox entry
func (s *DeliveryService) Get(ctx context.Context, id uuid.UUID) (*Delivery, error) {
	entry, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	d := toDelivery(entry)
	return &d, nil
}

// Redeliver puts a dead letter entry back in the queue with a fresh retry budget
func (s *DeliveryService) Redeliver(ctx context.Context, id uuid.UUID) (*Delivery, error) {
	entry, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := entry.Redeliver(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, entry); err != nil {
		return nil, fmt.Errorf("update outbox entry %s: %w", id, err)
	}

	s.logger.Info("dead letter entry queued for redelivery",
		zap.String("id", id.String()),
		zap.String("event_type", entry.EventType),
		zap.String("event_id", entry.EventID.String()),
	)
	d := toDelivery(entry)
	return &d, nil
}

// RedeliverAll requeues every dead letter entry and returns how many were requeued.
// Requeued entries leave the dead set, so the first page is read until it comes back empty.
func (s *DeliveryService) RedeliverAll(ctx context.Context) (int64, error) {
	var count int64
	for {
		entries, _, err := s.repo.FindDead(ctx, 1, maxPageSize)
		if err != nil {
			return count, fmt.Errorf("find dead letter entries: %w", err)
		}
		if len(entries) == 0 {
			break
		}

		progressed := false
		for _, entry := range entries {
			if err := entry.Redeliver(); err != nil {
				continue
			}
			if err := s.repo.Update(ctx, entry); err != nil {
				s.logger.Error("failed to requeue dead letter entry", zap.String("id", entry.ID.String()), zap.Error(err))
				continue
			}
			progressed = true
			count++
		}
		if !progressed || len(entries) < maxPageSize {
			break
		}
	}

	s.logger.Info("dead letter entries queued for redelivery", zap.Int64("count", count))
	return count, nil
}

// Stats counts entries per status
func (s *DeliveryService) Stats(ctx context.Context) (*DeliveryStats, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count outbox entries: %w", err)
	}

	stats := &DeliveryStats{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
	}
	for _, n := range counts {
		stats.Total += n
	}
	return stats, nil
}

func (s *DeliveryService) find(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find outbox entry %s: %w", id, err)
	}
	if entry == nil {
		return nil, shared.ErrNotFound.WithMessage(fmt.Sprintf("Outbox entry %s not found", id))
	}
	return entry, nil
}

func toDelivery(e *shared.OutboxEntry) Delivery {
	return Delivery{
		ID:            e.ID,
		EventID:       e.EventID,
		EventType:     e.EventType,
		AggregateID:   e.AggregateID,
		AggregateType: e.AggregateType,
		Status:        e.Status,
		RetryCount:    e.RetryCount,
		MaxRetries:    e.MaxRetries,
		LastError:     e.LastError,
		NextRetryAt:   e.NextRetryAt,
		ProcessedAt:   e.ProcessedAt,
		DeadAt:        e.DeadAt,
		Redeliveries:  e.Redeliveries,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}
