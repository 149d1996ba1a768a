package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter throttles outbound danmaku sends with a token bucket.
// Overlay clients render lines at a human pace, so a chat storm can be
// smoothed here instead of flooding the endpoint.
type Limiter struct {
	l *rate.Limiter
}

// New creates a Limiter allowing perSec sends per second.
// perSec <= 0 disables throttling.
func New(perSec float64) *Limiter {
	if perSec <= 0 {
		return &Limiter{l: rate.NewLimiter(rate.Inf, 0)}
	}
	burst := int(perSec)
	if burst < 1 {
		burst = 1
	}
	return &Limiter{l: rate.NewLimiter(rate.Limit(perSec), burst)}
}

// Wait blocks until a send is allowed. A nil Limiter never blocks.
// Returns a non-nil error only if ctx is cancelled while waiting.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.l.Wait(ctx)
}
