package worker

import (
	"context"
	"log/slog"
	"time"

	"storefront-api/internal/infrastructure/broker"
	"storefront-api/internal/repo"
	"storefront-api/internal/telemetry"
)

// OutboxRelay moves committed outbox events to the broker.
type OutboxRelay struct {
	store      repo.Store
	publisher  broker.Publisher
	interval   time.Duration
	batchSize  int
	maxRetries int
	metrics    *telemetry.Metrics
	log        *slog.Logger
}

func NewOutboxRelay(
	store repo.Store,
	publisher broker.Publisher,
	interval time.Duration,
	batchSize int,
	maxRetries int,
	metrics *telemetry.Metrics,
	log *slog.Logger,
) *OutboxRelay {
	return &OutboxRelay{
		store:      store,
		publisher:  publisher,
		interval:   interval,
		batchSize:  batchSize,
		maxRetries: maxRetries,
		metrics:    metrics,
		log:        log,
	}
}

// Start runs the relay in the background. The returned stop cancels it and
// waits until any in-flight batch has finished.
func (r *OutboxRelay) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

func (r *OutboxRelay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info("outbox relay started", "interval", r.interval, "batch_size", r.batchSize)

	for {
		select {
		case <-ctx.Done():
			r.log.Info("outbox relay stopped")
			return
		case <-ticker.C:
			if _, err := r.Process(ctx); err != nil {
				r.log.Error("outbox relay pass failed", "err", err)
			}
		}
	}
}

// Process publishes one batch in id order. Rows stay locked until the batch is
// marked, so concurrent relays never publish the same event twice in one pass.
func (r *OutboxRelay) Process(ctx context.Context) (int, error) {
	var published int
	err := r.store.WithinTx(ctx, func(tx repo.Repos) error {
		published = 0
		events, err := tx.Outbox().LockPending(ctx, r.batchSize)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		sent := make([]int64, 0, len(events))
		// An aggregate whose event failed keeps its later events pending for the next pass.
		held := make(map[string]bool)
		for _, ev := range events {
			if held[ev.AggregateID] {
				continue
			}
			if err := r.publisher.Publish(ctx, ev); err != nil {
				held[ev.AggregateID] = true
				r.metrics.OutboxFailed.Inc()
				r.log.Warn("outbox publish failed",
					"event_id", ev.ID,
					"type", ev.Type,
					"attempt", ev.RetryCount+1,
					"err", err,
				)
				if err := tx.Outbox().MarkFailed(ctx, ev.ID, err.Error(), r.maxRetries); err != nil {
					return err
				}
				continue
			}
			sent = append(sent, ev.ID)
		}
		if err := tx.Outbox().MarkSent(ctx, sent); err != nil {
			return err
		}
		published = len(sent)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if published > 0 {
		r.metrics.OutboxPublished.Add(float64(published))
		r.log.Debug("outbox batch published", "count", published)
	}
	return published, nil
}
