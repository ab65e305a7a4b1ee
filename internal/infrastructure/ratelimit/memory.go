package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int64
}

// MemoryLimiter keeps counters in process. It is used when no Redis is configured.
type MemoryLimiter struct {
	mu      sync.RWMutex
	windows map[string]window
	limit   int
	size    time.Duration
	now     func() time.Time
}

func NewMemoryLimiter(limit int, size time.Duration) *MemoryLimiter {
	return &MemoryLimiter{windows: make(map[string]window), limit: limit, size: size, now: time.Now}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	now := l.now()
	start := now.Truncate(l.size)

	l.mu.Lock()
	w, ok := l.windows[key]
	if !ok || !w.start.Equal(start) {
		w = window{start: start}
	}
	w.count++
	l.windows[key] = w
	l.mu.Unlock()

	return decide(w.count, l.limit, start.Add(l.size), now), nil
}

// Sweep drops counters from windows that have already closed.
func (l *MemoryLimiter) Sweep() int {
	current := l.now().Truncate(l.size)

	l.mu.RLock()
	var stale []string
	for key, w := range l.windows {
		if w.start.Before(current) {
			stale = append(stale, key)
		}
	}
	l.mu.RUnlock()
	if len(stale) == 0 {
		return 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, key := range stale {
		if w, ok := l.windows[key]; ok && w.start.Before(current) {
			delete(l.windows, key)
		}
	}
	return len(stale)
}

// Run sweeps on every tick until ctx is done.
func (l *MemoryLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.size)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}
