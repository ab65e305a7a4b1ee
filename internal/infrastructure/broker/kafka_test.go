package broker

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-api/internal/domain"
	"storefront-api/internal/logging"
)

type fakeProducer struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeProducer) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeProducer) Close() error {
	f.closed = true
	return nil
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestKafkaPublisher(t *testing.T) {
	fp := &fakeProducer{}
	p := NewKafkaPublisher(fp, "order.events")
	ev := domain.OutboxEvent{
		ID:          42,
		AggregateID: "order-1",
		Type:        domain.EventOrderCreated,
		Payload:     []byte(`{"orderId":"order-1"}`),
		Traceparent: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
		CreatedAt:   time.Now(),
	}

	require.NoError(t, p.Publish(context.Background(), ev))
	require.Len(t, fp.msgs, 1)
	msg := fp.msgs[0]
	assert.Equal(t, "order.events", msg.Topic)
	assert.Equal(t, "order-1", string(msg.Key))
	assert.Equal(t, ev.Payload, msg.Value)
	assert.Equal(t, domain.EventOrderCreated, header(msg, "event_type"))
	assert.Equal(t, "42", header(msg, "event_id"))
	assert.Equal(t, ev.Traceparent, header(msg, "traceparent"))

	require.NoError(t, p.Close())
	assert.True(t, fp.closed)
}

func TestKafkaPublisherError(t *testing.T) {
	down := errors.New("leader not available")
	p := NewKafkaPublisher(&fakeProducer{err: down}, "order.events")

	err := p.Publish(context.Background(), domain.OutboxEvent{ID: 7})
	assert.ErrorIs(t, err, down)
	assert.Contains(t, err.Error(), "event 7")
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(logging.NewWithWriter(&buf, "info"))

	require.NoError(t, p.Publish(context.Background(), domain.OutboxEvent{ID: 1, Type: domain.EventOrderStatusChanged}))
	assert.Contains(t, buf.String(), `"type":"order.status_changed"`)
	assert.NoError(t, p.Close())
}
