// Package humanize provides jittered timing for browser interactions so that
// polling and clicking do not happen on a machine-perfect cadence.
package humanize

import (
	"context"
	"math/rand"
	"time"
)

// Timing produces randomized delays within configured ranges.
type Timing struct {
	pollMin  time.Duration
	pollMax  time.Duration
	clickMin time.Duration
	clickMax time.Duration
}

// NewTiming returns a Timing with defaults suited to challenge polling and
// carousel stepping.
func NewTiming() *Timing {
	return &Timing{
		pollMin:  500 * time.Millisecond,
		pollMax:  1100 * time.Millisecond,
		clickMin: 250 * time.Millisecond,
		clickMax: 700 * time.Millisecond,
	}
}

// PollInterval returns a randomized interval between challenge polls.
func (t *Timing) PollInterval() time.Duration {
	return randomBetween(t.pollMin, t.pollMax)
}

// ClickDelay returns a randomized pause before or after a click.
func (t *Timing) ClickDelay() time.Duration {
	return randomBetween(t.clickMin, t.clickMax)
}

// Sleep sleeps for d or until the context is canceled. Returns true if the
// sleep ran to completion.
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func randomBetween(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}
