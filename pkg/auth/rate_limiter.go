package auth

import (
	"context"
	"sync"
	"time"
)

/*
RateLimiter is a token bucket shared by the outbound calls of one upstream
client, keeping a server under the request budget of the API it wraps.
*/
type RateLimiter struct {
	mu       sync.Mutex
	rate     float64 // tokens per second
	capacity float64 // maximum token capacity
	tokens   float64 // current token count
	last     time.Time
}

/*
NewRateLimiter allows rate operations per interval. A non-positive rate or
interval returns nil, and a nil limiter never blocks.
*/
func NewRateLimiter(rate int64, interval time.Duration) *RateLimiter {
	if rate <= 0 || interval <= 0 {
		return nil
	}

	return &RateLimiter{
		rate:     float64(rate) / interval.Seconds(),
		capacity: float64(rate),
		tokens:   float64(rate),
		last:     time.Now(),
	}
}

func (rl *RateLimiter) refill(now time.Time) {
	elapsed := now.Sub(rl.last).Seconds()
	rl.last = now
	rl.tokens = min(rl.capacity, rl.tokens+elapsed*rl.rate)
}

// Allow consumes a token if one is available.
func (rl *RateLimiter) Allow() bool {
	if rl == nil {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill(time.Now())

	if rl.tokens < 1.0 {
		return false
	}

	rl.tokens--

	return true
}

// WaitTime returns the time to wait before the next token is available.
func (rl *RateLimiter) WaitTime() time.Duration {
	if rl == nil {
		return 0
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill(time.Now())

	if rl.tokens >= 1.0 {
		return 0
	}

	return time.Duration((1.0 - rl.tokens) / rl.rate * float64(time.Second))
}

/*
Wait blocks until a token is available or the context ends.
*/
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		if rl.Allow() {
			return nil
		}

		timer := time.NewTimer(rl.WaitTime())

		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
