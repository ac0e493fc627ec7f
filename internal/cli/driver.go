package cli

import (
	"context"
	"errors"
	"math"
	"time"

	"segue.click/internal/clock"
	"segue.click/internal/jukebox"
)

// settleLimit bounds how long Settle waits for transitions to finish.
const settleLimit = 120.0

// driver advances a jukebox through time, either on the wall clock or on a
// simulated timeline.
type driver struct {
	jb       *jukebox.Jukebox
	rate     float64
	simulate bool
	elapsed  float64
}

func (d *driver) step() float64 {
	if d.rate <= 0 {
		return 1.0 / clock.DefaultRate
	}
	return 1 / d.rate
}

// Wait advances seconds of time. A cancelled ctx stops a wall-clock wait
// early and is returned.
func (d *driver) Wait(ctx context.Context, seconds float64) error {
	if seconds <= 0 || math.IsNaN(seconds) {
		return ctx.Err()
	}
	if d.simulate {
		clock.Simulate(d.jb, seconds, d.step())
		d.elapsed += seconds
		return ctx.Err()
	}

	waitCtx, cancel := context.WithTimeout(ctx, time.Duration(seconds*float64(time.Second)))
	defer cancel()
	start := time.Now()
	err := d.Forever(waitCtx)
	d.elapsed += time.Since(start).Seconds()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// Forever ticks on the wall clock until ctx is done.
func (d *driver) Forever(ctx context.Context) error {
	ticker, err := clock.NewTicker(d.jb, 1/d.step())
	if err != nil {
		return err
	}
	return ticker.Run(ctx)
}

// Settle waits until no music transition is running.
func (d *driver) Settle(ctx context.Context) error {
	if d.simulate {
		d.elapsed += d.jb.Settle(d.step(), settleLimit)
		return ctx.Err()
	}
	for spent := 0.0; spent < settleLimit; {
		tr := d.jb.Status().BGM.Transition
		if tr == nil {
			return nil
		}
		wait := tr.Remaining + d.step()
		if err := d.Wait(ctx, wait); err != nil {
			return err
		}
		spent += wait
	}
	return nil
}
