// Package ratelimit implements fixed-window request limiting.
package ratelimit

import (
	"context"
	"time"
)

type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type Limiter interface {
	// Allow counts one request for key in the current window.
	Allow(ctx context.Context, key string) (Decision, error)
}

func decide(count int64, limit int, windowEnd, now time.Time) Decision {
	d := Decision{Limit: limit, Allowed: count <= int64(limit)}
	if d.Allowed {
		d.Remaining = limit - int(count)
		return d
	}
	d.RetryAfter = windowEnd.Sub(now)
	if d.RetryAfter < time.Second {
		d.RetryAfter = time.Second
	}
	return d
}
