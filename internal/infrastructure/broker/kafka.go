package broker

import (
	"context"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"

	"storefront-api/internal/domain"
	"storefront-api/internal/telemetry"
)

// Producer is the subset of *kafka.Writer the publisher needs.
type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	producer Producer
	topic    string
}

func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

func NewKafkaPublisher(producer Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

// Publish keys messages by aggregate id so all events of one order land on one partition.
func (p *KafkaPublisher) Publish(ctx context.Context, ev domain.OutboxEvent) error {
	headers := []kafka.Header{
		{Key: "event_type", Value: []byte(ev.Type)},
		{Key: "event_id", Value: []byte(strconv.FormatInt(ev.ID, 10))},
	}
	if ev.Traceparent != "" {
		headers = append(headers, kafka.Header{Key: telemetry.TraceparentHeader, Value: []byte(ev.Traceparent)})
	}
	msg := kafka.Message{
		Topic:   p.topic,
		Key:     []byte(ev.AggregateID),
		Value:   ev.Payload,
		Headers: headers,
		Time:    ev.CreatedAt,
	}
	if err := p.producer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish event %d: %w", ev.ID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
