// Package clock drives Tick-based components from wall time or from a
// simulated timeline.
package clock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// DefaultRate is the tick rate used when none is configured.
const DefaultRate = 60

var ErrInvalidRate = errors.New("tick rate must be a positive number")

// Tickable advances by dt seconds.
type Tickable interface {
	Tick(dt float64)
}

// TickFunc adapts a function to Tickable.
type TickFunc func(dt float64)

func (f TickFunc) Tick(dt float64) { f(dt) }

// Ticker calls Tick at a fixed rate, passing the measured elapsed time.
type Ticker struct {
	target   Tickable
	interval time.Duration
	now      func() time.Time
	last     time.Time
}

// NewTicker builds a ticker firing rate times per second.
func NewTicker(target Tickable, rate float64) (*Ticker, error) {
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidRate, rate)
	}
	return &Ticker{
		target:   target,
		interval: time.Duration(float64(time.Second) / rate),
		now:      time.Now,
	}, nil
}

// Interval is the time between ticks.
func (t *Ticker) Interval() time.Duration {
	return t.interval
}

// Run ticks until ctx is done and returns ctx.Err().
func (t *Ticker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.last = t.now()
	slog.Debug("clock started", "interval", t.interval)

	for {
		select {
		case <-ctx.Done():
			slog.Debug("clock stopped", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			t.Step()
		}
	}
}

// Step delivers the time elapsed since the previous step and returns it.
// The first step after construction delivers zero.
func (t *Ticker) Step() float64 {
	now := t.now()
	if t.last.IsZero() {
		t.last = now
	}
	dt := now.Sub(t.last).Seconds()
	t.last = now
	if dt < 0 {
		dt = 0
	}
	t.target.Tick(dt)
	return dt
}

// Simulate advances target through total seconds of virtual time in fixed
// steps, finishing with a partial step if needed. It returns the number of
// ticks delivered.
func Simulate(target Tickable, total, step float64) int {
	if total <= 0 || step <= 0 || math.IsNaN(total) || math.IsNaN(step) || math.IsInf(total, 0) {
		return 0
	}
	n := 0
	for remaining := total; remaining > 1e-12; remaining -= step {
		target.Tick(math.Min(step, remaining))
		n++
	}
	return n
}
