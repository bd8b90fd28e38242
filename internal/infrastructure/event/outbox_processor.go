package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OutboxProcessorConfig tunes the delivery and cleanup loops
type OutboxProcessorConfig struct {
	BatchSize        int
	PollInterval     time.Duration
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:        100,
		PollInterval:     5 * time.Second,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// withDefaults fills unset fields from DefaultOutboxProcessorConfig
func (c OutboxProcessorConfig) withDefaults() OutboxProcessorConfig {
	d := DefaultOutboxProcessorConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = d.CleanupInterval
	}
	if c.CleanupRetention <= 0 {
		c.CleanupRetention = d.CleanupRetention
	}
	return c
}

// BatchResult counts the outcome of one delivery pass
type BatchResult struct {
	Claimed   int
	Delivered int
	Retrying  int
	Dead      int
	Requeued  int
}

// OutboxProcessor moves committed outbox entries onto the in-process bus. Events
// such as PeriodClosed are written in the posting transaction and only reach their
// handlers here, after the commit. A failing handler leaves the entry FAILED with
// a backoff until its retry budget is spent and it is dead-lettered.
type OutboxProcessor struct {
	repo       shared.OutboxRepository
	bus        shared.EventPublisher
	serializer *EventSerializer
	config     OutboxProcessorConfig
	logger     *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewOutboxProcessor(repo shared.OutboxRepository, bus shared.EventPublisher, serializer *EventSerializer, config OutboxProcessorConfig, logger *zap.Logger) *OutboxProcessor {
	return &OutboxProcessor{
		repo:       repo,
		bus:        bus,
		serializer: serializer,
		config:     config.withDefaults(),
		logger:     logger,
	}
}

// Start runs the loops in the background until Stop or until ctx is cancelled
func (p *OutboxProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return errors.New("outbox processor already started")
	}

	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.run(ctx)

	p.logger.Info("outbox processor started",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval),
		zap.Bool("cleanup", p.config.CleanupEnabled),
	)
	return nil
}

// Stop ends the loops, waiting for an in-flight batch to finish or ctx to expire
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	select {
	case <-done:
		p.logger.Info("outbox processor stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("outbox processor stop: %w", ctx.Err())
	}
}

func (p *OutboxProcessor) run(ctx context.Context) {
	defer close(p.done)

	poll := time.NewTicker(p.config.PollInterval)
	defer poll.Stop()

	// a nil channel never fires, which keeps cleanup off when disabled
	var cleanupC <-chan time.Time
	if p.config.CleanupEnabled {
		cleanup := time.NewTicker(p.config.CleanupInterval)
		defer cleanup.Stop()
		cleanupC = cleanup.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-poll.C:
			p.ProcessOnce(ctx)
		case <-cleanupC:
			p.Cleanup(ctx)
		}
	}
}

// ProcessOnce claims one batch of due entries and delivers them
func (p *OutboxProcessor) ProcessOnce(ctx context.Context) BatchResult {
	due, err := p.repo.FindDue(ctx, time.Now(), p.config.BatchSize)
	if err != nil {
		p.logger.Error("outbox: list due entries", zap.Error(err))
		return BatchResult{}
	}

	result := p.deliver(ctx, due)
	if result.Claimed > 0 {
		p.logger.Debug("outbox batch delivered",
			zap.Int("claimed", result.Claimed),
			zap.Int("delivered", result.Delivered),
			zap.Int("retrying", result.Retrying),
			zap.Int("dead", result.Dead),
			zap.Int("requeued", result.Requeued),
		)
	}
	return result
}

func (p *OutboxProcessor) deliver(ctx context.Context, due []*shared.OutboxEntry) BatchResult {
	var result BatchResult
	if len(due) == 0 {
		return result
	}

	ids := make([]uuid.UUID, len(due))
	for i, e := range due {
		ids[i] = e.ID
	}
	claimed, err := p.repo.Claim(ctx, ids)
	if err != nil {
		p.logger.Error("outbox: claim entries", zap.Error(err))
		return result
	}
	result.Claimed = len(claimed)

	for _, entry := range claimed {
		switch p.deliverEntry(ctx, entry) {
		case shared.OutboxStatusSent:
			result.Delivered++
		case shared.OutboxStatusFailed:
			result.Retrying++
		case shared.OutboxStatusDead:
			result.Dead++
		case shared.OutboxStatusPending:
			result.Requeued++
		}
	}
	return result
}

// deliverEntry publishes one claimed entry and writes back its new status
func (p *OutboxProcessor) deliverEntry(ctx context.Context, entry *shared.OutboxEntry) shared.OutboxStatus {
	log := p.logger.With(
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
	)

	event, err := p.serializer.Deserialize(entry.EventType, entry.Payload)
	if err == nil {
		err = p.bus.Publish(ctx, event)
	}

	switch {
	case err == nil:
		entry.MarkSent()
	case errors.Is(err, ErrBusStopped):
		// shutting down; the attempt does not count against the retry budget
		entry.Status = shared.OutboxStatusPending
		log.Info("bus stopped, entry returned to the queue")
	default:
		entry.MarkFailed(err.Error())
		if entry.IsDead() {
			log.Warn("event dead-lettered",
				zap.String("aggregate_type", entry.AggregateType),
				zap.String("aggregate_id", entry.AggregateID.String()),
				zap.Int("attempts", entry.RetryCount),
				zap.String("last_error", entry.LastError),
			)
		} else {
			log.Error("event delivery failed",
				zap.Int("attempt", entry.RetryCount),
				zap.Timep("next_retry_at", entry.NextRetryAt),
				zap.Error(err),
			)
		}
	}

	// the write-back must land even if shutdown cancelled ctx mid-delivery
	if err := p.repo.Update(context.WithoutCancel(ctx), entry); err != nil {
		log.Error("outbox: write back entry", zap.String("status", string(entry.Status)), zap.Error(err))
	}
	return entry.Status
}

// Cleanup deletes delivered entries older than the retention and returns how many went
func (p *OutboxProcessor) Cleanup(ctx context.Context) int64 {
	cutoff := time.Now().Add(-p.config.CleanupRetention)
	deleted, err := p.repo.PurgeSent(ctx, cutoff)
	if err != nil {
		p.logger.Error("outbox: delete delivered entries", zap.Error(err))
		return 0
	}
	if deleted > 0 {
		p.logger.Info("delivered outbox entries removed", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	}
	return deleted
}
