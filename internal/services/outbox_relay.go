package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"field-dispatch/internal/events"
	"field-dispatch/internal/repositories"
	"field-dispatch/pkg/config"
	"field-dispatch/pkg/eventbus"
)

const relayBatchSize = 100

// OutboxRelay re-publishes outbox rows whose side effects never completed,
// typically because the process stopped between commit and delivery.
type OutboxRelay struct {
	outboxRepo repositories.OutboxRepositoryInterface
	bus        *eventbus.Bus
	cfg        config.DispatchConfig
	logger     *zap.Logger
	now        func() time.Time
}

func NewOutboxRelay(outboxRepo repositories.OutboxRepositoryInterface, bus *eventbus.Bus, cfg config.DispatchConfig, logger *zap.Logger) *OutboxRelay {
	return &OutboxRelay{
		outboxRepo: outboxRepo,
		bus:        bus,
		cfg:        cfg,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Run polls until ctx is cancelled.
func (r *OutboxRelay) Run(ctx context.Context) {
	interval := r.cfg.RelayInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("outbox relay started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("outbox relay stopped")
			return
		case <-ticker.C:
			if _, err := r.RelayOnce(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error("outbox relay pass failed", zap.Error(err))
			}
		}
	}
}

// RelayOnce claims one batch of stale rows and returns how many were
// handed to the bus. Every claim counts as an attempt, so a row is given up
// after MaxAttempts passes even if its listener never settles it. Rows that
// cannot be decoded are marked failed.
func (r *OutboxRelay) RelayOnce(ctx context.Context) (int, error) {
	pending, err := r.outboxRepo.ClaimPending(ctx, r.now().Add(-r.cfg.RelayGrace), r.cfg.MaxAttempts, relayBatchSize)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, msg := range pending {
		event, err := events.DecodeTaskEvent(msg.EventType, msg.Payload)
		if err != nil {
			r.logger.Error("outbox message is not decodable", zap.String("outbox_id", msg.ID.String()), zap.Error(err))
			if markErr := r.outboxRepo.MarkFailed(ctx, msg.ID, err.Error()); markErr != nil {
				return published, markErr
			}
			continue
		}
		event.OutboxID = msg.ID
		r.bus.Publish(ctx, event)
		published++
	}

	if published > 0 {
		r.logger.Info("outbox messages re-published", zap.Int("count", published))
	}
	return published, nil
}
