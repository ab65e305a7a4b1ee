package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestMemoryLimiterWindow(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Date(2026, 1, 1, 12, 0, 10, 0, time.UTC)}
	l := NewMemoryLimiter(2, time.Minute)
	l.now = c.now

	for i := 0; i < 2; i++ {
		d, err := l.Allow(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}

	d, err := l.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 50*time.Second, d.RetryAfter)
	assert.Zero(t, d.Remaining)

	other, err := l.Allow(ctx, "user-2")
	require.NoError(t, err)
	assert.True(t, other.Allowed)
	assert.Equal(t, 1, other.Remaining)

	c.t = c.t.Add(time.Minute)
	d, err = l.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, d.Allowed, "new window resets the counter")
}

func TestMemoryLimiterSweep(t *testing.T) {
	ctx := context.Background()
	c := &clock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	l := NewMemoryLimiter(5, time.Minute)
	l.now = c.now

	_, _ = l.Allow(ctx, "a")
	_, _ = l.Allow(ctx, "b")
	assert.Zero(t, l.Sweep())

	c.t = c.t.Add(2 * time.Minute)
	_, _ = l.Allow(ctx, "b")
	assert.Equal(t, 1, l.Sweep())
}

func TestDecideMinimumRetryAfter(t *testing.T) {
	now := time.Now()
	d := decide(3, 2, now.Add(10*time.Millisecond), now)
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Second, d.RetryAfter)
}
