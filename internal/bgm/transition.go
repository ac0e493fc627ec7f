// Package bgm drives the background music channel: one current track, one
// optional in-flight volume transition, and the rules for superseding it.
package bgm

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"segue.click/internal/audio"
)

// ErrInvalidDuration is returned for transition durations that are not
// finite and positive.
var ErrInvalidDuration = errors.New("transition duration must be a positive number of seconds")

// Kind is the shape of a transition.
type Kind int

const (
	FadeOut Kind = iota
	FadeIn
	Crossfade
)

func (k Kind) String() string {
	switch k {
	case FadeOut:
		return "fade_out"
	case FadeIn:
		return "fade_in"
	case Crossfade:
		return "crossfade"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Transition is a time-bounded volume change. For fades Channel is the
// channel being faded. For a crossfade Channel is the outgoing channel, faded
// from StartVolume to 0, while Incoming rises from 0 to TargetVolume.
type Transition struct {
	Kind         Kind
	StartVolume  float64
	TargetVolume float64
	Duration     float64
	Elapsed      float64

	Channel  audio.Channel
	Incoming audio.Channel

	onComplete []func(*Transition)
	onCancel   []func(*Transition)
	released   bool
}

// ValidateDuration reports ErrInvalidDuration unless d is finite and positive.
func ValidateDuration(d float64) error {
	if math.IsNaN(d) || math.IsInf(d, 0) || d <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidDuration, d)
	}
	return nil
}

// NewFade builds a FadeIn or FadeOut on ch.
func NewFade(kind Kind, ch audio.Channel, from, to, duration float64) (*Transition, error) {
	if kind != FadeIn && kind != FadeOut {
		return nil, fmt.Errorf("NewFade: unsupported kind %s", kind)
	}
	if err := ValidateDuration(duration); err != nil {
		return nil, err
	}
	return &Transition{
		Kind:         kind,
		StartVolume:  audio.ClampVolume(from),
		TargetVolume: audio.ClampVolume(to),
		Duration:     duration,
		Channel:      ch,
	}, nil
}

// NewCrossfade builds a crossfade from outgoing (currently at from) to
// incoming (rising to to).
func NewCrossfade(outgoing, incoming audio.Channel, from, to, duration float64) (*Transition, error) {
	if err := ValidateDuration(duration); err != nil {
		return nil, err
	}
	if incoming == nil {
		return nil, errors.New("NewCrossfade: incoming channel is required")
	}
	return &Transition{
		Kind:         Crossfade,
		StartVolume:  audio.ClampVolume(from),
		TargetVolume: audio.ClampVolume(to),
		Duration:     duration,
		Channel:      outgoing,
		Incoming:     incoming,
	}, nil
}

// OnComplete registers fn to run after the transition finalizes naturally.
func (t *Transition) OnComplete(fn func(*Transition)) *Transition {
	t.onComplete = append(t.onComplete, fn)
	return t
}

// OnCancel registers fn to run when the transition is superseded.
func (t *Transition) OnCancel(fn func(*Transition)) *Transition {
	t.onCancel = append(t.onCancel, fn)
	return t
}

// Progress returns elapsed/duration clamped to [0,1].
func (t *Transition) Progress() float64 {
	p := t.Elapsed / t.Duration
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}

// Remaining returns the seconds left before the transition finalizes.
func (t *Transition) Remaining() float64 {
	return math.Max(t.Duration-t.Elapsed, 0)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// apply writes the interpolated volumes for progress p.
func (t *Transition) apply(p float64) {
	switch t.Kind {
	case Crossfade:
		if t.Channel != nil {
			t.Channel.SetVolume(lerp(t.StartVolume, 0, p))
		}
		t.Incoming.SetVolume(lerp(0, t.TargetVolume, p))
	default:
		if t.Channel != nil {
			t.Channel.SetVolume(lerp(t.StartVolume, t.TargetVolume, p))
		}
	}
}

// finalize lands the transition on its end state and runs completion hooks.
func (t *Transition) finalize() {
	switch t.Kind {
	case FadeOut:
		if t.Channel != nil {
			t.Channel.SetVolume(t.TargetVolume)
			if t.TargetVolume <= 0 {
				if err := t.Channel.Stop(); err != nil {
					slog.Warn("failed to stop channel after fade out", "error", err)
				}
			}
		}
	case FadeIn:
		if t.Channel != nil {
			t.Channel.SetVolume(t.TargetVolume)
		}
	case Crossfade:
		t.Incoming.SetVolume(t.TargetVolume)
		if t.Channel != nil {
			t.Channel.SetVolume(0)
			if err := t.Channel.Stop(); err != nil {
				slog.Warn("failed to stop outgoing channel", "error", err)
			}
			if err := t.Channel.Close(); err != nil {
				slog.Warn("failed to release outgoing channel", "error", err)
			}
		}
	}

	for _, fn := range t.onComplete {
		fn(t)
	}
}

// cancel drops the transition where it stands. A crossfade gives back its
// incoming channel; nothing else is undone.
func (t *Transition) cancel() {
	if t.Kind == Crossfade && !t.released {
		t.released = true
		if err := t.Incoming.Stop(); err != nil {
			slog.Debug("failed to stop cancelled incoming channel", "error", err)
		}
		if err := t.Incoming.Close(); err != nil {
			slog.Warn("failed to release cancelled incoming channel", "error", err)
		}
	}

	for _, fn := range t.onCancel {
		fn(t)
	}
}
