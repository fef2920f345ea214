// Package otp implements the resend cooldown shown on the verification
// screen.
package otp

import (
	"context"
	"sync"
	"time"
)

const DefaultInterval = 60 * time.Second

// Countdown counts whole seconds down to zero, at which point a resend is
// allowed.
type Countdown struct {
	mu        sync.Mutex
	start     int
	remaining int
}

func NewCountdown(interval time.Duration) *Countdown {
	seconds := int(interval / time.Second)
	if seconds <= 0 {
		seconds = int(DefaultInterval / time.Second)
	}
	return &Countdown{start: seconds, remaining: seconds}
}

// Resume builds a countdown for a code sent at sentAt, already advanced by
// the whole seconds elapsed until now.
func Resume(interval time.Duration, sentAt time.Time, now time.Time) *Countdown {
	c := NewCountdown(interval)
	elapsed := int(now.Sub(sentAt) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	c.remaining = max(c.start-elapsed, 0)
	return c
}

// Tick advances the countdown by one second and returns the seconds left.
func (c *Countdown) Tick() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.remaining > 0 {
		c.remaining--
	}
	return c.remaining
}

func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

func (c *Countdown) CanResend() bool {
	return c.Remaining() == 0
}

// Reset restarts the countdown after a successful resend.
func (c *Countdown) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remaining = c.start
}

// Run ticks once per value received on ticks until the countdown reaches zero
// or ctx ends. It returns true when a resend became available.
func (c *Countdown) Run(ctx context.Context, ticks <-chan time.Time) bool {
	if c.CanResend() {
		return true
	}
	for {
		select {
		case <-ctx.Done():
			return false
		case _, ok := <-ticks:
			if !ok {
				return c.CanResend()
			}
			if c.Tick() == 0 {
				return true
			}
		}
	}
}
