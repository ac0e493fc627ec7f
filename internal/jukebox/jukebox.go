// Package jukebox is the single entry point a host uses for music and sound
// effects. One Jukebox is built per process and passed around explicitly or
// through a context.Context.
package jukebox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"segue.click/internal/audio"
	"segue.click/internal/bgm"
	"segue.click/internal/event"
	"segue.click/internal/sfx"
)

// DefaultCrossfadeDuration is used by CrossfadeBGM.
const DefaultCrossfadeDuration = 1.0

var ErrClosed = errors.New("jukebox is closed")

// Jukebox serializes access to the music and effects controllers. All methods
// are safe for concurrent use, so a clock goroutine may call Tick while
// another goroutine issues playback commands.
type Jukebox struct {
	mu sync.Mutex

	music   *bgm.Controller
	effects *sfx.Controller

	crossfade float64
	closers   []io.Closer
	closed    bool
}

type settings struct {
	crossfade  float64
	bgmOptions []bgm.Option
	sfxOptions []sfx.Option
	closers    []io.Closer
}

// Option configures New.
type Option func(*settings)

// WithCrossfadeDuration sets the duration CrossfadeBGM uses.
func WithCrossfadeDuration(seconds float64) Option {
	return func(s *settings) {
		s.crossfade = seconds
	}
}

// WithBGMOptions forwards options to the music controller.
func WithBGMOptions(opts ...bgm.Option) Option {
	return func(s *settings) {
		s.bgmOptions = append(s.bgmOptions, opts...)
	}
}

// WithSFXOptions forwards options to the effects controller.
func WithSFXOptions(opts ...sfx.Option) Option {
	return func(s *settings) {
		s.sfxOptions = append(s.sfxOptions, opts...)
	}
}

// WithEventHook observes both controllers.
func WithEventHook(hook event.Hook) Option {
	return func(s *settings) {
		s.bgmOptions = append(s.bgmOptions, bgm.WithEventHook(hook))
		s.sfxOptions = append(s.sfxOptions, sfx.WithEventHook(hook))
	}
}

// WithCloser registers a resource released by Close after the controllers.
func WithCloser(c io.Closer) Option {
	return func(s *settings) {
		if c != nil {
			s.closers = append(s.closers, c)
		}
	}
}

// New builds a jukebox over a music channel source and a one-shot player.
func New(music bgm.ChannelSource, effects audio.OneShotPlayer, opts ...Option) (*Jukebox, error) {
	s := settings{crossfade: DefaultCrossfadeDuration}
	for _, opt := range opts {
		opt(&s)
	}

	if err := bgm.ValidateDuration(s.crossfade); err != nil {
		return nil, fmt.Errorf("crossfade duration: %w", err)
	}

	controller, err := bgm.NewController(music, s.bgmOptions...)
	if err != nil {
		return nil, err
	}

	return &Jukebox{
		music:     controller,
		effects:   sfx.NewController(effects, s.sfxOptions...),
		crossfade: s.crossfade,
		closers:   s.closers,
	}, nil
}

// NewFromBackends builds a jukebox whose music uses set.BGM and whose effects
// use set.SFX. Close releases the backends.
func NewFromBackends(set *audio.BackendSet, opts ...Option) (*Jukebox, error) {
	player, err := set.SFX.NewOneShotPlayer()
	if err != nil {
		return nil, fmt.Errorf("create one-shot player: %w", err)
	}

	opts = append(opts, WithCloser(set))
	j, err := New(set.BGM, player, opts...)
	if err != nil {
		_ = player.Close()
		return nil, err
	}

	slog.Info("jukebox ready", "bgm_backend", set.BGM.Name(), "sfx_backend", set.SFX.Name())
	return j, nil
}

func (j *Jukebox) do(fn func() error) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}
	return fn()
}

// PlaySound plays a one-shot clip at the effects volume.
func (j *Jukebox) PlaySound(clip audio.Track) error {
	return j.do(func() error { return j.effects.Play(clip) })
}

// PlaySoundWithVolume plays a one-shot clip at volume.
func (j *Jukebox) PlaySoundWithVolume(clip audio.Track, volume float64) error {
	return j.do(func() error { return j.effects.PlayWithVolume(clip, volume) })
}

// SetSoundVolume sets the default one-shot volume.
func (j *Jukebox) SetSoundVolume(volume float64) error {
	return j.do(func() error {
		j.effects.SetVolume(volume)
		return nil
	})
}

// PlayBGM fades the music to track.
func (j *Jukebox) PlayBGM(track audio.Track) error {
	return j.do(func() error { return j.music.Play(track) })
}

// StopBGM fades the music out.
func (j *Jukebox) StopBGM() error {
	return j.do(j.music.Stop)
}

func (j *Jukebox) PauseBGM() error {
	return j.do(func() error {
		j.music.Pause()
		return nil
	})
}

func (j *Jukebox) ResumeBGM() error {
	return j.do(func() error {
		j.music.Resume()
		return nil
	})
}

// SetBGMVolume sets the music base volume.
func (j *Jukebox) SetBGMVolume(volume float64) error {
	return j.do(func() error {
		j.music.SetVolume(volume)
		return nil
	})
}

// GetBGMVolume returns the music base volume.
func (j *Jukebox) GetBGMVolume() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.music.GetVolume()
}

// IsBGMPlaying reports whether the music channel is playing. A closed
// jukebox is never playing.
func (j *Jukebox) IsBGMPlaying() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return !j.closed && j.music.IsPlaying()
}

// RestartBGM replays the current track from the start.
func (j *Jukebox) RestartBGM() error {
	return j.do(j.music.Restart)
}

// CrossfadeBGM crossfades to track over the default duration.
func (j *Jukebox) CrossfadeBGM(track audio.Track) error {
	return j.CrossfadeBGMWithDuration(track, j.crossfade)
}

// CrossfadeBGMWithDuration crossfades to track over seconds.
func (j *Jukebox) CrossfadeBGMWithDuration(track audio.Track, seconds float64) error {
	return j.do(func() error { return j.music.Crossfade(track, seconds) })
}

// Tick advances transitions by dt seconds. It does nothing once closed.
func (j *Jukebox) Tick(dt float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return
	}
	j.music.Tick(dt)
}

// Status is a snapshot of the jukebox.
type Status struct {
	BGM       bgm.Status
	SFXVolume float64
	Closed    bool
}

func (j *Jukebox) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Status{
		BGM:       j.music.Status(),
		SFXVolume: j.effects.Volume(),
		Closed:    j.closed,
	}
}

// Settle ticks in steps of step seconds until no transition is running,
// giving up after limit seconds. It returns the simulated time spent.
func (j *Jukebox) Settle(step, limit float64) float64 {
	spent := 0.0
	for spent < limit {
		j.mu.Lock()
		idle := j.closed || j.music.Active() == nil
		if !idle {
			j.music.Tick(step)
		}
		j.mu.Unlock()
		if idle {
			break
		}
		spent += step
	}
	return spent
}

// Close releases the controllers and registered resources. Later calls
// return nil; other operations return ErrClosed.
func (j *Jukebox) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true

	errs := []error{j.music.Close(), j.effects.Close()}
	for i := len(j.closers) - 1; i >= 0; i-- {
		errs = append(errs, j.closers[i].Close())
	}
	slog.Debug("jukebox closed")
	return errors.Join(errs...)
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying j.
func NewContext(ctx context.Context, j *Jukebox) context.Context {
	return context.WithValue(ctx, contextKey{}, j)
}

// FromContext returns the jukebox stored in ctx, if any.
func FromContext(ctx context.Context) (*Jukebox, bool) {
	j, ok := ctx.Value(contextKey{}).(*Jukebox)
	return j, ok && j != nil
}
