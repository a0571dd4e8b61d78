package authz

import (
	"sync"
	"time"
)

// rateLimiter is a token bucket refilled at rate tokens per second with a
// burst capacity of one second's worth. A rate of 0 disables limiting.
type rateLimiter struct {
	mu     sync.Mutex
	rate   float64
	tokens float64
	last   time.Time
	now    func() time.Time
}

func newRateLimiter(rate int, now func() time.Time) *rateLimiter {
	if now == nil {
		now = time.Now
	}
	return &rateLimiter{
		rate:   float64(rate),
		tokens: float64(rate),
		last:   now(),
		now:    now,
	}
}

func (l *rateLimiter) allow() bool {
	if l.rate <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.tokens += now.Sub(l.last).Seconds() * l.rate
	if l.tokens > l.rate {
		l.tokens = l.rate
	}
	l.last = now

	if l.tokens < 1 {
		return false
	}
	l.tokens--
	return true
}
