package audio

import (
	"fmt"
	"sync"
)

// MemoryChannel is a Channel that keeps state in memory and produces no
// sound. It backs the "null" backend and the controller tests.
type MemoryChannel struct {
	mu       sync.Mutex
	id       int
	track    Track
	volume   float64
	loop     bool
	started  bool
	paused   bool
	closed   bool
	validate func(Track) error

	// LoadErr and PlayErr, when set, are returned by Load and Play.
	LoadErr error
	PlayErr error

	calls []string
}

// NewMemoryChannel creates a silent channel at full volume.
func NewMemoryChannel() *MemoryChannel {
	return &MemoryChannel{volume: 1}
}

func (c *MemoryChannel) record(call string) {
	c.calls = append(c.calls, call)
}

// ID is the creation index assigned by MemoryBackend, or 0.
func (c *MemoryChannel) ID() int {
	return c.id
}

func (c *MemoryChannel) Load(track Track) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("load:" + string(track))
	if c.closed {
		return ErrChannelClosed
	}
	if c.LoadErr != nil {
		return c.LoadErr
	}
	if !track.IsSet() {
		return fmt.Errorf("%w: empty track", ErrTrackNotFound)
	}
	if c.validate != nil {
		if err := c.validate(track); err != nil {
			return err
		}
	}
	c.track = track
	c.started = false
	c.paused = false
	return nil
}

func (c *MemoryChannel) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("play")
	if c.closed {
		return ErrChannelClosed
	}
	if c.PlayErr != nil {
		return c.PlayErr
	}
	if !c.track.IsSet() {
		return ErrNoTrackLoaded
	}
	c.started = true
	c.paused = false
	return nil
}

func (c *MemoryChannel) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("stop")
	if c.closed {
		return ErrChannelClosed
	}
	c.started = false
	c.paused = false
	return nil
}

func (c *MemoryChannel) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("pause")
	if c.started {
		c.paused = true
	}
}

func (c *MemoryChannel) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("resume")
	c.paused = false
}

func (c *MemoryChannel) SetVolume(volume float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.volume = ClampVolume(volume)
}

func (c *MemoryChannel) GetVolume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

func (c *MemoryChannel) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started && !c.paused && !c.closed
}

// IsPaused reports whether the channel holds a paused track.
func (c *MemoryChannel) IsPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started && c.paused
}

func (c *MemoryChannel) SetLoop(loop bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loop = loop
}

func (c *MemoryChannel) IsLooping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loop
}

func (c *MemoryChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.record("close")
	c.closed = true
	c.started = false
	return nil
}

// Track returns the loaded track.
func (c *MemoryChannel) Track() Track {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.track
}

// Closed reports whether Close was called.
func (c *MemoryChannel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Finish simulates a non-looping track running out.
func (c *MemoryChannel) Finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loop {
		c.started = false
	}
}

// Calls returns the recorded method calls in order.
func (c *MemoryChannel) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

// OneShot is a clip played by MemoryOneShotPlayer.
type OneShot struct {
	Clip   Track
	Volume float64
}

// MemoryOneShotPlayer records the clips it is asked to play.
type MemoryOneShotPlayer struct {
	mu       sync.Mutex
	shots    []OneShot
	closed   bool
	validate func(Track) error

	// PlayErr, when set, is returned by PlayOneShot.
	PlayErr error
}

// NewMemoryOneShotPlayer creates an empty recorder.
func NewMemoryOneShotPlayer() *MemoryOneShotPlayer {
	return &MemoryOneShotPlayer{}
}

func (p *MemoryOneShotPlayer) PlayOneShot(clip Track, volume float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrBackendClosed
	}
	if p.PlayErr != nil {
		return p.PlayErr
	}
	if p.validate != nil {
		if err := p.validate(clip); err != nil {
			return err
		}
	}
	p.shots = append(p.shots, OneShot{Clip: clip, Volume: ClampVolume(volume)})
	return nil
}

// Shots returns the recorded clips in play order.
func (p *MemoryOneShotPlayer) Shots() []OneShot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]OneShot(nil), p.shots...)
}

func (p *MemoryOneShotPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// MemoryBackend hands out memory channels and remembers them in order.
type MemoryBackend struct {
	mu       sync.Mutex
	channels []*MemoryChannel
	players  []*MemoryOneShotPlayer
	closed   bool
	validate func(Track) error

	// ChannelErr, when set, makes NewChannel fail.
	ChannelErr error
}

// NewMemoryBackend creates a backend that accepts any track name.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// NewNullBackend creates a silent backend that still checks each track
// resolves through loader, so scripts fail the same way they would on a device.
func NewNullBackend(loader *TrackLoader) *MemoryBackend {
	b := NewMemoryBackend()
	if loader != nil {
		b.validate = func(t Track) error {
			_, err := loader.Resolve(t)
			return err
		}
	}
	return b
}

func (b *MemoryBackend) Name() string {
	return KindNull
}

func (b *MemoryBackend) NewChannel() (Channel, error) {
	ch, err := b.NewMemoryChannel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// NewMemoryChannel is NewChannel with the concrete type.
func (b *MemoryBackend) NewMemoryChannel() (*MemoryChannel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBackendClosed
	}
	if b.ChannelErr != nil {
		return nil, b.ChannelErr
	}
	ch := NewMemoryChannel()
	ch.validate = b.validate
	b.channels = append(b.channels, ch)
	ch.id = len(b.channels)
	return ch, nil
}

func (b *MemoryBackend) NewOneShotPlayer() (OneShotPlayer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBackendClosed
	}
	p := NewMemoryOneShotPlayer()
	p.validate = b.validate
	b.players = append(b.players, p)
	return p, nil
}

// Channels returns every channel created so far.
func (b *MemoryBackend) Channels() []*MemoryChannel {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*MemoryChannel(nil), b.channels...)
}

// Players returns every one-shot player created so far.
func (b *MemoryBackend) Players() []*MemoryOneShotPlayer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*MemoryOneShotPlayer(nil), b.players...)
}

// OpenChannels counts channels that have not been closed.
func (b *MemoryBackend) OpenChannels() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, ch := range b.channels {
		if !ch.Closed() {
			n++
		}
	}
	return n
}

func (b *MemoryBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
