// Package broker delivers outbox events to downstream consumers.
package broker

import (
	"context"
	"log/slog"

	"storefront-api/internal/domain"
)

type Publisher interface {
	Publish(ctx context.Context, ev domain.OutboxEvent) error
	Close() error
}

// LogPublisher writes events to the log. It stands in for Kafka when no brokers are configured.
type LogPublisher struct {
	log *slog.Logger
}

func NewLogPublisher(log *slog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(ctx context.Context, ev domain.OutboxEvent) error {
	p.log.InfoContext(ctx, "event published",
		"event_id", ev.ID,
		"type", ev.Type,
		"aggregate_id", ev.AggregateID,
		"payload", string(ev.Payload),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
