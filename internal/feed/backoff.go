package feed

import (
	"math"
	"time"
)

// Backoff is a capped exponential reconnect policy with proportional jitter.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
	// Jitter spreads each delay by up to ±Jitter of its value, within [0,1].
	Jitter float64
	// MaxRetries bounds consecutive failed attempts. Zero retries forever.
	MaxRetries int
}

// Delay returns the wait before reconnect attempt n (starting at 0). r is a
// uniform sample in [0,1).
func (b Backoff) Delay(n int, r float64) time.Duration {
	base := b.Base
	if base <= 0 {
		base = 5 * time.Second
	}
	limit := b.Max
	if limit < base {
		limit = base
	}

	d := float64(base) * math.Pow(2, float64(n))
	if d > float64(limit) {
		d = float64(limit)
	}
	if b.Jitter > 0 {
		d += d * b.Jitter * (2*r - 1)
	}
	if d > float64(limit) {
		d = float64(limit)
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// Exhausted reports whether attempt n exceeds MaxRetries.
func (b Backoff) Exhausted(n int) bool {
	return b.MaxRetries > 0 && n >= b.MaxRetries
}
