package relay

import (
	"context"
	"log/slog"
	"time"

	"paystream/internal/bus"
	"paystream/internal/metrics"
	"paystream/internal/store"
)

// OutboxSource is the read-and-mark side of the outbox table. The relay never
// touches payloads or inserts rows.
type OutboxSource interface {
	FetchUnpublished(ctx context.Context, limit int) ([]store.OutboxRecord, error)
	MarkPublished(ctx context.Context, id string) error
}

// Relay pumps unpublished outbox rows to the message bus on a fixed interval.
// Publish happens before mark: a crash in between republishes the row on the
// next tick, so delivery is at-least-once and consumers must be idempotent.
type Relay struct {
	outbox    OutboxSource
	publisher bus.Publisher
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

func New(outbox OutboxSource, publisher bus.Publisher, interval time.Duration, batchSize int, logger *slog.Logger) *Relay {
	return &Relay{
		outbox:    outbox,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Pump(ctx); err != nil {
				r.logger.Error("outbox pump failed", "error", err)
			}
		}
	}
}

// Pump publishes one batch, oldest first, keyed by the row's account id so
// the bus preserves per-account order.
func (r *Relay) Pump(ctx context.Context) error {
	batch, err := r.outbox.FetchUnpublished(ctx, r.batchSize)
	if err != nil {
		return err
	}
	for _, rec := range batch {
		key := rec.AggregateID
		if rec.KeyAccountID != nil {
			key = *rec.KeyAccountID
		}
		if err := r.publisher.Publish(ctx, rec.EventType, key, rec.Payload); err != nil {
			metrics.OutboxPublishErrors.Inc()
			// Leave the row unpublished; the next tick retries it.
			return err
		}
		if err := r.outbox.MarkPublished(ctx, rec.ID); err != nil {
			return err
		}
		metrics.OutboxPublishedTotal.Inc()
	}
	return nil
}
