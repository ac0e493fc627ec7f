package bgm

import (
	"fmt"
	"log/slog"

	"segue.click/internal/audio"
	"segue.click/internal/event"
)

// DefaultFadeDuration is the Play/Stop fade length in seconds.
const DefaultFadeDuration = 1.0

// ChannelSource allocates music channels.
type ChannelSource interface {
	NewChannel() (audio.Channel, error)
}

// State is the controller's playback state. Paused is tracked separately.
type State int

const (
	Idle State = iota
	Playing
	FadingOut
	FadingIn
	Crossfading
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case FadingOut:
		return "fading_out"
	case FadingIn:
		return "fading_in"
	case Crossfading:
		return "crossfading"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// TransitionStatus describes the running transition.
type TransitionStatus struct {
	Kind      Kind
	Progress  float64
	Remaining float64
	Target    float64
}

// Status is a snapshot of the controller.
type Status struct {
	State         State
	Paused        bool
	Track         audio.Track
	Incoming      audio.Track
	BaseVolume    float64
	ChannelVolume float64
	Transition    *TransitionStatus
}

// Controller owns the primary music channel and the transition scheduler.
// It is not safe for concurrent use; callers serialize access.
type Controller struct {
	channels  ChannelSource
	primary   audio.Channel
	scheduler *Scheduler
	events    *event.Dispatcher

	current       audio.Track
	incomingTrack audio.Track
	baseVolume    float64
	paused        bool

	fadeDuration float64
	retarget     bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithFadeDuration sets the Play/Stop fade length in seconds.
func WithFadeDuration(seconds float64) Option {
	return func(c *Controller) {
		c.fadeDuration = seconds
	}
}

// WithEventHook adds an observer for playback events.
func WithEventHook(hook event.Hook) Option {
	return func(c *Controller) {
		c.events.Add(hook)
	}
}

// WithRetargetOnSetVolume makes SetVolume move the target of a running
// fade-in or crossfade instead of writing the channel volume directly.
func WithRetargetOnSetVolume(enabled bool) Option {
	return func(c *Controller) {
		c.retarget = enabled
	}
}

// NewController allocates the primary channel from channels. The base volume
// starts at that channel's initial volume.
func NewController(channels ChannelSource, opts ...Option) (*Controller, error) {
	c := &Controller{
		channels:     channels,
		scheduler:    NewScheduler(),
		events:       event.NewDispatcher(),
		fadeDuration: DefaultFadeDuration,
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := ValidateDuration(c.fadeDuration); err != nil {
		return nil, fmt.Errorf("fade duration: %w", err)
	}

	primary, err := channels.NewChannel()
	if err != nil {
		return nil, fmt.Errorf("allocate music channel: %w", err)
	}
	primary.SetLoop(true)

	c.primary = primary
	c.baseVolume = audio.ClampVolume(primary.GetVolume())

	slog.Debug("bgm controller created",
		"fade_duration", c.fadeDuration,
		"base_volume", c.baseVolume,
		"retarget_on_set_volume", c.retarget)

	return c, nil
}

func (c *Controller) emit(kind event.Kind, track audio.Track, volume, duration float64, detail string) {
	c.events.Emit(event.Event{
		Source:   event.SourceBGM,
		Kind:     kind,
		Track:    string(track),
		Volume:   volume,
		Duration: duration,
		Detail:   detail,
	})
}

// start installs t, reporting whatever it supersedes.
func (c *Controller) start(t *Transition) {
	t.OnComplete(func(done *Transition) {
		slog.Debug("transition complete", "kind", done.Kind, "track", c.current)
		c.emit(event.KindTransitionComplete, c.current, done.TargetVolume, done.Duration, done.Kind.String())
	})
	t.OnCancel(func(cancelled *Transition) {
		slog.Debug("transition cancelled",
			"kind", cancelled.Kind,
			"progress", cancelled.Progress())
		c.emit(event.KindTransitionCancel, c.current, c.primary.GetVolume(), cancelled.Elapsed, cancelled.Kind.String())
	})
	c.scheduler.Start(t)
}

// settled reports whether nothing is moving the music away from the current track.
func (c *Controller) settled() bool {
	active := c.scheduler.Active()
	return active == nil || active.Kind == FadeIn
}

// fadeBackIn returns to the current track from whatever volume it reached.
func (c *Controller) fadeBackIn(duration float64) error {
	t, err := NewFade(FadeIn, c.primary, c.primary.GetVolume(), c.baseVolume, duration)
	if err != nil {
		return err
	}
	c.start(t)
	c.emit(event.KindPlay, c.current, c.baseVolume, duration, "resume_fade")
	return nil
}

// Play fades track in from silence. Replaying the current track while it
// plays is a no-op, unless it is fading out, in which case it fades back in.
func (c *Controller) Play(track audio.Track) error {
	if !track.IsSet() {
		return nil
	}

	if track == c.current && c.primary.IsPlaying() {
		if c.settled() {
			slog.Debug("track already playing", "track", track)
			return nil
		}
		return c.fadeBackIn(c.fadeDuration)
	}

	t, err := NewFade(FadeIn, c.primary, 0, c.baseVolume, c.fadeDuration)
	if err != nil {
		return err
	}

	if err := c.primary.Load(track); err != nil {
		c.emit(event.KindError, track, 0, 0, err.Error())
		return fmt.Errorf("load %q: %w", track, err)
	}
	// The primary now holds track, so nothing in flight applies to it anymore.
	c.scheduler.Cancel()
	c.primary.SetVolume(0)
	if err := c.primary.Play(); err != nil {
		c.emit(event.KindError, track, 0, 0, err.Error())
		return fmt.Errorf("play %q: %w", track, err)
	}
	c.current = track
	c.paused = false

	c.start(t)
	slog.Info("bgm play", "track", track, "fade", c.fadeDuration, "target_volume", c.baseVolume)
	c.emit(event.KindPlay, track, c.baseVolume, c.fadeDuration, "")
	return nil
}

// Stop fades the music out. The current track is kept for Restart.
func (c *Controller) Stop() error {
	t, err := NewFade(FadeOut, c.primary, c.primary.GetVolume(), 0, c.fadeDuration)
	if err != nil {
		return err
	}
	t.OnComplete(func(*Transition) {
		c.paused = false
	})
	c.start(t)
	slog.Info("bgm stop", "track", c.current, "fade", c.fadeDuration)
	c.emit(event.KindStop, c.current, 0, c.fadeDuration, "")
	return nil
}

// Pause silences the channels without touching the running transition.
func (c *Controller) Pause() {
	c.primary.Pause()
	if active := c.scheduler.Active(); active != nil && active.Kind == Crossfade {
		active.Incoming.Pause()
	}
	c.paused = true
	c.emit(event.KindPause, c.current, c.primary.GetVolume(), 0, "")
}

// Resume undoes Pause.
func (c *Controller) Resume() {
	c.primary.Resume()
	if active := c.scheduler.Active(); active != nil && active.Kind == Crossfade {
		active.Incoming.Resume()
	}
	c.paused = false
	c.emit(event.KindResume, c.current, c.primary.GetVolume(), 0, "")
}

// SetVolume clamps and stores the base volume and applies it to the channel.
// A running transition keeps its own target unless retargeting is enabled.
func (c *Controller) SetVolume(v float64) {
	v = audio.ClampVolume(v)
	c.baseVolume = v

	if c.retarget {
		if active := c.scheduler.Active(); active != nil && (active.Kind == FadeIn || active.Kind == Crossfade) {
			active.TargetVolume = v
			c.emit(event.KindVolume, c.current, v, 0, "retarget")
			return
		}
	}

	c.primary.SetVolume(v)
	c.emit(event.KindVolume, c.current, v, 0, "")
}

// GetVolume returns the base volume.
func (c *Controller) GetVolume() float64 {
	return c.baseVolume
}

// IsPlaying reports the primary channel's playing flag.
func (c *Controller) IsPlaying() bool {
	return c.primary.IsPlaying()
}

// Restart replays the current track from the start at the channel's present
// volume, without a fade. It is a no-op before anything was played.
func (c *Controller) Restart() error {
	if !c.current.IsSet() {
		return nil
	}
	if err := c.primary.Stop(); err != nil {
		return fmt.Errorf("restart %q: %w", c.current, err)
	}
	if err := c.primary.Load(c.current); err != nil {
		c.emit(event.KindError, c.current, 0, 0, err.Error())
		return fmt.Errorf("restart %q: %w", c.current, err)
	}
	if err := c.primary.Play(); err != nil {
		c.emit(event.KindError, c.current, 0, 0, err.Error())
		return fmt.Errorf("restart %q: %w", c.current, err)
	}
	c.paused = false
	c.emit(event.KindRestart, c.current, c.primary.GetVolume(), 0, "")
	return nil
}

// Crossfade fades track in on a second channel while the current one fades
// out. When it completes the second channel becomes primary.
func (c *Controller) Crossfade(track audio.Track, duration float64) error {
	if !track.IsSet() {
		return nil
	}
	if err := ValidateDuration(duration); err != nil {
		return err
	}

	if track == c.current && c.primary.IsPlaying() {
		if c.settled() {
			return nil
		}
		return c.fadeBackIn(duration)
	}

	incoming, err := c.channels.NewChannel()
	if err != nil {
		return fmt.Errorf("allocate crossfade channel: %w", err)
	}
	incoming.SetLoop(true)
	incoming.SetVolume(0)
	if err := incoming.Load(track); err != nil {
		_ = incoming.Close()
		c.emit(event.KindError, track, 0, 0, err.Error())
		return fmt.Errorf("load %q: %w", track, err)
	}
	if err := incoming.Play(); err != nil {
		_ = incoming.Close()
		c.emit(event.KindError, track, 0, 0, err.Error())
		return fmt.Errorf("play %q: %w", track, err)
	}
	if c.paused {
		incoming.Pause()
	}

	t, err := NewCrossfade(c.primary, incoming, c.primary.GetVolume(), c.baseVolume, duration)
	if err != nil {
		_ = incoming.Close()
		return err
	}
	t.OnComplete(func(done *Transition) {
		c.primary = done.Incoming
		c.current = track
		c.incomingTrack = audio.NoTrack
	})
	t.OnCancel(func(*Transition) {
		c.incomingTrack = audio.NoTrack
	})

	from := c.current
	c.start(t)
	c.incomingTrack = track

	slog.Info("bgm crossfade", "from", from, "to", track, "duration", duration)
	c.emit(event.KindCrossfade, track, c.baseVolume, duration, string(from))
	return nil
}

// Tick advances the running transition by dt seconds.
func (c *Controller) Tick(dt float64) {
	c.scheduler.Tick(dt)
}

// Current returns the current track.
func (c *Controller) Current() audio.Track {
	return c.current
}

// Active returns the running transition or nil.
func (c *Controller) Active() *Transition {
	return c.scheduler.Active()
}

// Channel returns the primary channel.
func (c *Controller) Channel() audio.Channel {
	return c.primary
}

// FadeDuration returns the configured Play/Stop fade length.
func (c *Controller) FadeDuration() float64 {
	return c.fadeDuration
}

// Status snapshots the controller.
func (c *Controller) Status() Status {
	s := Status{
		Paused:        c.paused,
		Track:         c.current,
		Incoming:      c.incomingTrack,
		BaseVolume:    c.baseVolume,
		ChannelVolume: c.primary.GetVolume(),
	}

	active := c.scheduler.Active()
	switch {
	case active != nil:
		s.Transition = &TransitionStatus{
			Kind:      active.Kind,
			Progress:  active.Progress(),
			Remaining: active.Remaining(),
			Target:    active.TargetVolume,
		}
		switch active.Kind {
		case FadeOut:
			s.State = FadingOut
		case FadeIn:
			s.State = FadingIn
		case Crossfade:
			s.State = Crossfading
		}
	case c.primary.IsPlaying() || c.paused && c.current.IsSet():
		s.State = Playing
	default:
		s.State = Idle
	}
	return s
}

// Close cancels any transition and releases the primary channel.
func (c *Controller) Close() error {
	c.scheduler.Cancel()
	return c.primary.Close()
}
