// Package watch holds the long-lived external watchers (gRPC health-watch,
// systemd unit-state) that emit HealthFrames into the spine, plus the
// shared retry/backoff policy they both use.
package watch

import "time"

// Backoff implements the exponential-with-cap retry policy shared by every
// watcher: start at Base, double on each failure, cap at Max, reset to Base
// after a successful connect/open.
type Backoff struct {
	Base    time.Duration
	Max     time.Duration
	attempt int
}

// NewBackoff constructs a Backoff starting at base, capped at max.
func NewBackoff(base, max time.Duration) *Backoff {
	return &Backoff{Base: base, Max: max}
}

// Next returns the delay for the current attempt and advances the attempt
// counter.
func (b *Backoff) Next() time.Duration {
	d := b.Base << b.attempt
	if d <= 0 || d > b.Max {
		d = b.Max
	}
	b.attempt++
	return d
}

// Reset returns the attempt counter to zero, used after a successful
// connect/open.
func (b *Backoff) Reset() {
	b.attempt = 0
}

// DefaultBackoff returns the watcher policy's documented values: 250ms base,
// 15s cap.
func DefaultBackoff() *Backoff {
	return NewBackoff(250*time.Millisecond, 15*time.Second)
}
