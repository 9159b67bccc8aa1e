package transport

import (
	"math"
	"math/rand"
	"time"
)

// RetryPolicy controls the delay between reconnect attempts. The default
// is a fixed delay, matching the upstream server's expectations; capped
// exponential backoff with jitter is available as an opt-in.
type RetryPolicy struct {
	FixedDelay time.Duration
	Backoff    bool
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	attempt     int
	connectedAt time.Time
}

// DefaultRetryPolicy reconnects every 5 seconds, indefinitely.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{FixedDelay: 5 * time.Second}
}

// NextDelay returns how long to wait before the next attempt.
func (r *RetryPolicy) NextDelay() time.Duration {
	if !r.Backoff {
		if r.FixedDelay <= 0 {
			return 5 * time.Second
		}
		return r.FixedDelay
	}

	base := r.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	max := r.MaxDelay
	if max <= 0 {
		max = 30 * time.Second
	}

	// A connection that held for a minute resets the ladder.
	if !r.connectedAt.IsZero() && time.Since(r.connectedAt) > time.Minute {
		r.attempt = 0
	}

	jitter := time.Duration(rand.Float64() * float64(base) * 0.5)
	delay := time.Duration(math.Min(
		float64(base)*math.Pow(2, float64(r.attempt))+float64(jitter),
		float64(max),
	))
	r.attempt++
	return delay
}

// MarkConnected records a successful connection.
func (r *RetryPolicy) MarkConnected() {
	r.connectedAt = time.Now()
}
