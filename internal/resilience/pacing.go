package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Pacer computes the delay before the next scheduled attempt. The default is
// a fixed cadence; bounded exponential backoff can be enabled for deployments
// that want to shed load during prolonged outages. Backoff keys off the
// consecutive soft-failure streak, so a single healthy-but-pending response
// resets the cadence.
type Pacer struct {
	// Interval is the base delay between attempts. Default: 3s.
	Interval time.Duration

	// Backoff enables bounded exponential growth on consecutive soft failures.
	Backoff bool

	// Multiplier scales the delay per consecutive soft failure. Default: 2.0.
	Multiplier float64

	// MaxDelay caps the backoff delay. Default: 30s.
	MaxDelay time.Duration

	// JitterFraction adds random jitter as a fraction of the computed delay
	// (0.0 = no jitter, 0.5 = ±50%).
	JitterFraction float64
}

// Delay returns the wait before the next attempt given the current streak of
// consecutive soft failures.
func (p Pacer) Delay(softFailStreak int) time.Duration {
	interval := p.Interval
	if interval <= 0 {
		interval = 3 * time.Second
	}

	delay := float64(interval)
	if p.Backoff && softFailStreak > 0 {
		mult := p.Multiplier
		if mult <= 0 {
			mult = 2.0
		}
		maxDelay := p.MaxDelay
		if maxDelay <= 0 {
			maxDelay = 30 * time.Second
		}
		delay = float64(interval) * math.Pow(mult, float64(softFailStreak))
		if delay > float64(maxDelay) {
			delay = float64(maxDelay)
		}
	}

	if p.JitterFraction > 0 {
		jitterRange := delay * p.JitterFraction
		jitter := (rand.Float64()*2 - 1) * jitterRange // [-jitterRange, +jitterRange]
		delay += jitter
	}

	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// Wait blocks for d or until ctx is cancelled, whichever comes first. It
// returns ctx.Err() on cancellation so callers can stop scheduling.
func Wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
