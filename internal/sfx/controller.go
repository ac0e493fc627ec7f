// Package sfx plays fire-and-forget sound effects on a one-shot player. It
// never touches the music channel.
package sfx

import (
	"fmt"
	"log/slog"

	"segue.click/internal/audio"
	"segue.click/internal/event"
)

// Controller plays clips at a default volume or a per-call override.
type Controller struct {
	player audio.OneShotPlayer
	volume float64
	events *event.Dispatcher
}

// Option configures a Controller.
type Option func(*Controller)

// WithVolume sets the default one-shot volume.
func WithVolume(v float64) Option {
	return func(c *Controller) {
		c.volume = audio.ClampVolume(v)
	}
}

// WithEventHook adds an observer for one-shot events.
func WithEventHook(hook event.Hook) Option {
	return func(c *Controller) {
		c.events.Add(hook)
	}
}

// NewController wraps player. The default volume is 1.
func NewController(player audio.OneShotPlayer, opts ...Option) *Controller {
	c := &Controller{
		player: player,
		volume: 1,
		events: event.NewDispatcher(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Play plays clip at the default volume. An unset clip is ignored.
func (c *Controller) Play(clip audio.Track) error {
	return c.play(clip, c.volume, "")
}

// PlayWithVolume plays clip at volume, clamped to [0,1]. The override applies
// to this clip only.
func (c *Controller) PlayWithVolume(clip audio.Track, volume float64) error {
	return c.play(clip, audio.ClampVolume(volume), "override")
}

func (c *Controller) play(clip audio.Track, volume float64, detail string) error {
	if !clip.IsSet() {
		return nil
	}

	if err := c.player.PlayOneShot(clip, volume); err != nil {
		slog.Error("one-shot failed", "clip", clip, "volume", volume, "error", err)
		c.events.Emit(event.Event{
			Source: event.SourceSFX,
			Kind:   event.KindError,
			Track:  string(clip),
			Volume: volume,
			Detail: err.Error(),
		})
		return fmt.Errorf("play clip %q: %w", clip, err)
	}

	slog.Debug("one-shot played", "clip", clip, "volume", volume)
	c.events.Emit(event.Event{
		Source: event.SourceSFX,
		Kind:   event.KindOneShot,
		Track:  string(clip),
		Volume: volume,
		Detail: detail,
	})
	return nil
}

// SetVolume changes the default volume.
func (c *Controller) SetVolume(v float64) {
	c.volume = audio.ClampVolume(v)
}

// Volume returns the default volume.
func (c *Controller) Volume() float64 {
	return c.volume
}

// Close releases the player.
func (c *Controller) Close() error {
	return c.player.Close()
}
