package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Pacer enforces a minimum gap between consecutive requests. The fetch
// loop calls Wait before every request; the first call returns
// immediately, later calls block until the gap since the previous
// request has elapsed.
type Pacer interface {
	// Wait blocks until the next request may be issued, or until the
	// context is cancelled.
	Wait(ctx context.Context) error
	// Reset forgets the previous request, so the next Wait returns
	// immediately.
	Reset()
}

// RandomPacer spaces requests by a uniformly random delay drawn from
// [min, max] for each request. Randomizing the gap avoids the
// fixed-cadence signature that automated-behavior detection looks for.
type RandomPacer struct {
	min  time.Duration
	max  time.Duration
	rng  *rand.Rand
	last time.Time
	mu   sync.Mutex
}

// NewRandomPacer creates a pacer with the given delay bounds. A max
// below min is raised to min.
func NewRandomPacer(min, max time.Duration) *RandomPacer {
	if max < min {
		max = min
	}
	return &RandomPacer{
		min: min,
		max: max,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewFixedPacer creates a pacer with a constant inter-request delay.
func NewFixedPacer(delay time.Duration) *RandomPacer {
	return NewRandomPacer(delay, delay)
}

// Wait blocks until the randomized gap since the previous request has
// elapsed. The gap is measured from the previous request's start, so
// time spent on the request itself counts toward it.
func (p *RandomPacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	var remaining time.Duration
	if !p.last.IsZero() {
		gap := p.min
		if p.max > p.min {
			gap += time.Duration(p.rng.Int63n(int64(p.max-p.min) + 1))
		}
		remaining = gap - time.Since(p.last)
	}
	p.mu.Unlock()

	if remaining > 0 {
		timer := time.NewTimer(remaining)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	p.mu.Lock()
	p.last = time.Now()
	p.mu.Unlock()
	return nil
}

// Reset clears the pacing state.
func (p *RandomPacer) Reset() {
	p.mu.Lock()
	p.last = time.Time{}
	p.mu.Unlock()
}
