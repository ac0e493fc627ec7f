//go:build cgo

package audio

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"
)

const beepSampleRate = beep.SampleRate(OutputSampleRate)

var (
	speakerOnce    sync.Once
	speakerInitErr error
	speakerMixer   *beep.Mixer
)

// initSpeaker starts the speaker with a single mixer every backend feeds.
func initSpeaker() (*beep.Mixer, error) {
	speakerOnce.Do(func() {
		speakerInitErr = speaker.Init(beepSampleRate, beepSampleRate.N(100*time.Millisecond))
		if speakerInitErr == nil {
			speakerMixer = &beep.Mixer{}
			speaker.Play(speakerMixer)
		}
	})
	return speakerMixer, speakerInitErr
}

// BeepBackend renders every channel into the beep speaker mixer.
// Channel state is only touched under speaker.Lock.
type BeepBackend struct {
	loader   *TrackLoader
	mixer    *beep.Mixer
	channels channelSet[*beepChannel]
}

// NewBeepBackend initializes the speaker on first use.
func NewBeepBackend(loader *TrackLoader) (*BeepBackend, error) {
	mixer, err := initSpeaker()
	if err != nil {
		return nil, fmt.Errorf("%w: beep speaker: %w", ErrBackendNotAvailable, err)
	}
	return &BeepBackend{loader: loader, mixer: mixer}, nil
}

func (b *BeepBackend) Name() string {
	return KindBeep
}

func (b *BeepBackend) NewChannel() (Channel, error) {
	src := &pcmSource{}
	ctrl := &beep.Ctrl{Streamer: src, Paused: true}
	ch := &beepChannel{
		backend: b,
		src:     src,
		ctrl:    ctrl,
		gain:    &effects.Gain{Streamer: ctrl, Gain: 0},
		volume:  1,
	}
	if err := b.channels.add(ch); err != nil {
		return nil, err
	}

	speaker.Lock()
	b.mixer.Add(ch)
	speaker.Unlock()
	return ch, nil
}

func (b *BeepBackend) NewOneShotPlayer() (OneShotPlayer, error) {
	if b.channels.isClosed() {
		return nil, ErrBackendClosed
	}
	return &beepOneShotPlayer{backend: b}, nil
}

// Close detaches every channel from the mixer. The speaker keeps running.
func (b *BeepBackend) Close() error {
	open, ok := b.channels.shutdown()
	if !ok {
		return nil
	}
	for _, ch := range open {
		_ = ch.Close()
	}
	return nil
}

// pcmSource streams a PCM buffer as a beep.StreamSeeker.
type pcmSource struct {
	pcm  *PCM
	pos  int // frame index
	loop bool
}

func (s *pcmSource) Stream(samples [][2]float64) (int, bool) {
	if s.pcm == nil || s.pcm.Frames() == 0 {
		return 0, false
	}
	frames := s.pcm.Frames()
	ch := s.pcm.Channels
	n := 0
	for n < len(samples) {
		if s.pos >= frames {
			if !s.loop {
				break
			}
			s.pos = 0
		}
		left := float64(s.pcm.Samples[s.pos*ch]) / 32768
		right := left
		if ch > 1 {
			right = float64(s.pcm.Samples[s.pos*ch+1]) / 32768
		}
		samples[n] = [2]float64{left, right}
		s.pos++
		n++
	}
	return n, n > 0
}

func (s *pcmSource) Err() error { return nil }

func (s *pcmSource) Len() int { return s.pcm.Frames() }

func (s *pcmSource) Position() int { return s.pos }

func (s *pcmSource) Seek(p int) error {
	if p < 0 || p > s.Len() {
		return fmt.Errorf("seek position %d out of range [0, %d]", p, s.Len())
	}
	s.pos = p
	return nil
}

type beepChannel struct {
	backend *BeepBackend
	src     *pcmSource
	ctrl    *beep.Ctrl
	gain    *effects.Gain

	volume float64
	active bool
	closed bool
}

// Stream feeds the mixer. It pads with silence so the channel stays in the
// mixer between tracks and reports false only once closed.
func (c *beepChannel) Stream(samples [][2]float64) (int, bool) {
	if c.closed {
		return 0, false
	}
	n := 0
	if c.active {
		n, _ = c.gain.Stream(samples)
		if n < len(samples) && !c.ctrl.Paused {
			c.active = false
		}
	}
	clear(samples[n:])
	return len(samples), true
}

func (c *beepChannel) Err() error { return nil }

func (c *beepChannel) Load(track Track) error {
	pcm, err := c.backend.loader.LoadFormat(track, OutputSampleRate, OutputChannels)
	if err != nil {
		return err
	}
	speaker.Lock()
	defer speaker.Unlock()
	if c.closed {
		return ErrChannelClosed
	}
	c.src.pcm = pcm
	c.src.pos = 0
	c.active = false
	c.ctrl.Paused = true
	slog.Debug("beep channel loaded", "track", track, "duration", pcm.Duration())
	return nil
}

func (c *beepChannel) Play() error {
	speaker.Lock()
	defer speaker.Unlock()
	if c.closed {
		return ErrChannelClosed
	}
	if c.src.pcm == nil {
		return ErrNoTrackLoaded
	}
	c.src.pos = 0
	c.ctrl.Paused = false
	c.active = true
	return nil
}

func (c *beepChannel) Stop() error {
	speaker.Lock()
	defer speaker.Unlock()
	if c.closed {
		return ErrChannelClosed
	}
	c.src.pos = 0
	c.ctrl.Paused = true
	c.active = false
	return nil
}

func (c *beepChannel) Pause() {
	speaker.Lock()
	defer speaker.Unlock()
	if c.active {
		c.ctrl.Paused = true
	}
}

func (c *beepChannel) Resume() {
	speaker.Lock()
	defer speaker.Unlock()
	if c.active {
		c.ctrl.Paused = false
	}
}

func (c *beepChannel) SetVolume(volume float64) {
	speaker.Lock()
	defer speaker.Unlock()
	c.volume = ClampVolume(volume)
	c.gain.Gain = c.volume - 1
}

func (c *beepChannel) GetVolume() float64 {
	speaker.Lock()
	defer speaker.Unlock()
	return c.volume
}

func (c *beepChannel) IsPlaying() bool {
	speaker.Lock()
	defer speaker.Unlock()
	return c.active && !c.ctrl.Paused && !c.closed
}

func (c *beepChannel) SetLoop(loop bool) {
	speaker.Lock()
	defer speaker.Unlock()
	c.src.loop = loop
}

func (c *beepChannel) IsLooping() bool {
	speaker.Lock()
	defer speaker.Unlock()
	return c.src.loop
}

// Close drops the channel from the mixer on its next pass.
func (c *beepChannel) Close() error {
	speaker.Lock()
	c.closed = true
	c.active = false
	c.src.pcm = nil
	speaker.Unlock()
	c.backend.channels.remove(c)
	return nil
}

type beepOneShotPlayer struct {
	backend *BeepBackend
}

// PlayOneShot resamples the clip to the speaker rate and adds it to the mixer,
// which drops it when drained.
func (p *beepOneShotPlayer) PlayOneShot(clip Track, volume float64) error {
	if p.backend.channels.isClosed() {
		return ErrBackendClosed
	}

	pcm, err := p.backend.loader.Load(clip)
	if err != nil {
		return err
	}

	var streamer beep.Streamer = &pcmSource{pcm: pcm}
	if sr := beep.SampleRate(pcm.SampleRate); sr != beepSampleRate {
		streamer = beep.Resample(4, sr, beepSampleRate, streamer)
	}
	gain := &effects.Gain{Streamer: streamer, Gain: ClampVolume(volume) - 1}

	speaker.Lock()
	p.backend.mixer.Add(beep.Seq(gain, beep.Callback(func() {
		slog.Debug("one-shot finished", "clip", clip)
	})))
	speaker.Unlock()
	return nil
}

func (p *beepOneShotPlayer) Close() error {
	return nil
}
