// Package ratelimiter throttles per-connection request rates with a token
// bucket.
package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter wraps golang.org/x/time/rate with the two knobs the
// connection loop needs: a sustained rate and a burst capacity. The
// limiter is safe for concurrent use, though the server creates one per
// connection.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New builds a limiter allowing requestsPerSecond sustained with bursts of
// up to burst requests. A zero rate disables throttling entirely; a zero
// burst with a non-zero rate defaults to one second's worth of tokens so
// the limiter never deadlocks on its first request.
func New(requestsPerSecond, burst uint) *RateLimiter {
	if requestsPerSecond == 0 {
		return &RateLimiter{limiter: rate.NewLimiter(rate.Inf, 0)}
	}
	if burst == 0 {
		burst = requestsPerSecond
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst)),
	}
}

// Wait blocks until a token is available or the context ends. The
// connection loop calls this after reading each record and before
// dispatching it, so an over-rate client is slowed down rather than
// disconnected.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
