package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-api/internal/domain"
	"storefront-api/internal/logging"
	"storefront-api/internal/repo/repotest"
	"storefront-api/internal/telemetry"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events  []domain.OutboxEvent
	failOn  map[string]error
	failIDs map[int64]error
}

func (p *recordingPublisher) Publish(ctx context.Context, ev domain.OutboxEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failOn[ev.AggregateID]; err != nil {
		return err
	}
	if err := p.failIDs[ev.ID]; err != nil {
		return err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func enqueue(t *testing.T, store *repotest.Store, aggregateID string) int64 {
	t.Helper()
	return enqueueType(t, store, aggregateID, domain.EventOrderCreated)
}

func enqueueType(t *testing.T, store *repotest.Store, aggregateID, eventType string) int64 {
	t.Helper()
	ev := &domain.OutboxEvent{
		AggregateType: "order",
		AggregateID:   aggregateID,
		Type:          eventType,
		Payload:       []byte(`{}`),
	}
	require.NoError(t, store.Outbox().Enqueue(context.Background(), ev))
	return ev.ID
}

func newRelay(store *repotest.Store, pub *recordingPublisher, batch, maxRetries int) *OutboxRelay {
	return NewOutboxRelay(store, pub, 10*time.Millisecond, batch, maxRetries, telemetry.NewMetrics(), logging.Discard())
}

func TestOutboxRelayPublishesInBatches(t *testing.T) {
	store := repotest.New()
	pub := &recordingPublisher{}
	for _, id := range []string{"a", "b", "c"} {
		enqueue(t, store, id)
	}
	relay := newRelay(store, pub, 2, 3)

	n, err := relay.Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = relay.Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = relay.Process(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Len(t, store.Events("sent"), 3)
	assert.Equal(t, "a", pub.events[0].AggregateID)
}

func TestOutboxRelayRetriesThenParks(t *testing.T) {
	store := repotest.New()
	pub := &recordingPublisher{failOn: map[string]error{"bad": errors.New("broker down")}}
	enqueue(t, store, "bad")
	enqueue(t, store, "good")
	relay := newRelay(store, pub, 10, 2)

	n, err := relay.Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, store.Events("pending"), 1)
	assert.Equal(t, 1, store.Events("pending")[0].RetryCount)

	_, err = relay.Process(context.Background())
	require.NoError(t, err)
	assert.Empty(t, store.Events("pending"))
	require.Len(t, store.Events("failed"), 1)
	assert.Equal(t, "bad", store.Events("failed")[0].AggregateID)
}

func TestOutboxRelayHoldsLaterEventsOfFailedOrder(t *testing.T) {
	store := repotest.New()
	created := enqueue(t, store, "o1")
	enqueue(t, store, "o2")
	enqueueType(t, store, "o1", domain.EventOrderStatusChanged)
	pub := &recordingPublisher{failIDs: map[int64]error{created: errors.New("broker down")}}
	relay := newRelay(store, pub, 10, 5)

	n, err := relay.Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "o2", pub.events[0].AggregateID)

	pending := store.Events("pending")
	require.Len(t, pending, 2)
	assert.Equal(t, 1, pending[0].RetryCount)
	assert.Zero(t, pending[1].RetryCount)

	delete(pub.failIDs, created)
	n, err = relay.Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, pub.events, 3)
	assert.Equal(t, domain.EventOrderCreated, pub.events[1].Type)
	assert.Equal(t, domain.EventOrderStatusChanged, pub.events[2].Type)
}

func TestOutboxRelayStoreFailure(t *testing.T) {
	store := repotest.New()
	enqueue(t, store, "a")
	store.FailOn(repotest.OpLockOutbox, errors.New("db down"))

	_, err := newRelay(store, &recordingPublisher{}, 10, 3).Process(context.Background())
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Len(t, store.Events("pending"), 1)
}

func TestOutboxRelayRunStopsWithContext(t *testing.T) {
	store := repotest.New()
	pub := &recordingPublisher{}
	enqueue(t, store, "a")
	relay := newRelay(store, pub, 10, 3)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		relay.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}

type blockingPublisher struct {
	entered chan struct{}
	release chan struct{}
	mu      sync.Mutex
	done    bool
}

func (p *blockingPublisher) Publish(ctx context.Context, ev domain.OutboxEvent) error {
	close(p.entered)
	<-p.release
	p.mu.Lock()
	p.done = true
	p.mu.Unlock()
	return nil
}

func (p *blockingPublisher) Close() error { return nil }

func TestOutboxRelayStopWaitsForInFlightBatch(t *testing.T) {
	store := repotest.New()
	enqueue(t, store, "a")
	pub := &blockingPublisher{entered: make(chan struct{}), release: make(chan struct{})}
	relay := NewOutboxRelay(store, pub, 5*time.Millisecond, 10, 3, telemetry.NewMetrics(), logging.Discard())

	stop := relay.Start(context.Background())
	select {
	case <-pub.entered:
	case <-time.After(time.Second):
		t.Fatal("relay never published")
	}

	stopped := make(chan struct{})
	go func() {
		stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("stop returned while a batch was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(pub.release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("stop did not return")
	}
	pub.mu.Lock()
	assert.True(t, pub.done)
	pub.mu.Unlock()
	assert.Len(t, store.Events("sent"), 1)
}
