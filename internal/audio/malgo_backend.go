//go:build cgo

package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gen2brain/malgo"
)

// MalgoBackend plays through miniaudio. Each channel and each one-shot owns
// its own playback device, mixed by the OS.
type MalgoBackend struct {
	loader *TrackLoader
	ctx    *malgo.AllocatedContext

	mu       sync.Mutex
	closed   bool
	channels map[*malgoChannel]struct{}
	shots    sync.WaitGroup
	quit     chan struct{}
}

// NewMalgoBackend initializes a miniaudio context.
func NewMalgoBackend(loader *TrackLoader) (*MalgoBackend, error) {
	slog.Debug("initializing malgo context")

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		slog.Debug("malgo internal", "message", message)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: malgo: %w", ErrBackendNotAvailable, err)
	}

	return &MalgoBackend{
		loader:   loader,
		ctx:      ctx,
		channels: make(map[*malgoChannel]struct{}),
		quit:     make(chan struct{}),
	}, nil
}

func (b *MalgoBackend) Name() string {
	return KindMalgo
}

func (b *MalgoBackend) newDevice(stream *pcmStream, done func()) (*malgo.Device, error) {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = OutputChannels
	deviceConfig.SampleRate = OutputSampleRate
	deviceConfig.Alsa.NoMMap = 1

	onSamples := func(pOutputSample, _ []byte, _ uint32) {
		n := stream.fill(pOutputSample)
		if done != nil && n < len(pOutputSample) && stream.finished() {
			done()
		}
	}

	device, err := malgo.InitDevice(b.ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onSamples})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize playback device: %w", err)
	}
	return device, nil
}

func (b *MalgoBackend) NewChannel() (Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBackendClosed
	}

	stream := newPCMStream(1)
	device, err := b.newDevice(stream, nil)
	if err != nil {
		return nil, err
	}

	ch := &malgoChannel{backend: b, device: device, stream: stream}
	b.channels[ch] = struct{}{}
	slog.Debug("malgo channel created", "open_channels", len(b.channels))
	return ch, nil
}

func (b *MalgoBackend) forget(ch *malgoChannel) {
	b.mu.Lock()
	delete(b.channels, ch)
	b.mu.Unlock()
}

func (b *MalgoBackend) NewOneShotPlayer() (OneShotPlayer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBackendClosed
	}
	return &malgoOneShotPlayer{backend: b, stop: make(chan struct{})}, nil
}

// Close releases every channel and waits for in-flight one-shots.
func (b *MalgoBackend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.quit)
	channels := make([]*malgoChannel, 0, len(b.channels))
	for ch := range b.channels {
		channels = append(channels, ch)
	}
	b.mu.Unlock()

	var errs []error
	for _, ch := range channels {
		errs = append(errs, ch.Close())
	}
	b.shots.Wait()

	if err := b.ctx.Uninit(); err != nil {
		errs = append(errs, err)
	}
	b.ctx.Free()

	slog.Debug("malgo backend closed")
	return errors.Join(errs...)
}

type malgoChannel struct {
	backend *MalgoBackend
	device  *malgo.Device
	stream  *pcmStream

	mu      sync.Mutex
	started bool
	closed  bool
}

func (c *malgoChannel) Load(track Track) error {
	if c.isClosed() {
		return ErrChannelClosed
	}
	pcm, err := c.backend.loader.LoadFormat(track, OutputSampleRate, OutputChannels)
	if err != nil {
		return err
	}
	c.stream.setPCM(pcm)
	return nil
}

func (c *malgoChannel) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrChannelClosed
	}
	if !c.stream.loaded() {
		return ErrNoTrackLoaded
	}
	c.stream.start()
	if !c.started {
		if err := c.device.Start(); err != nil {
			return fmt.Errorf("failed to start playback: %w", err)
		}
		c.started = true
	}
	return nil
}

func (c *malgoChannel) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrChannelClosed
	}
	c.stream.stop()
	if c.started {
		c.started = false
		return c.device.Stop()
	}
	return nil
}

func (c *malgoChannel) Pause()                   { c.stream.setPaused(true) }
func (c *malgoChannel) Resume()                  { c.stream.setPaused(false) }
func (c *malgoChannel) SetVolume(volume float64) { c.stream.setVolume(volume) }
func (c *malgoChannel) GetVolume() float64       { return c.stream.getVolume() }
func (c *malgoChannel) IsPlaying() bool          { return c.stream.playing() }
func (c *malgoChannel) SetLoop(loop bool)        { c.stream.setLoop(loop) }
func (c *malgoChannel) IsLooping() bool          { return c.stream.isLooping() }

func (c *malgoChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *malgoChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.stream.stop()
	var err error
	if c.started {
		err = c.device.Stop()
	}
	c.device.Uninit()
	c.mu.Unlock()

	c.backend.forget(c)
	return err
}

type malgoOneShotPlayer struct {
	backend *MalgoBackend
	stop    chan struct{}
	once    sync.Once
}

// PlayOneShot opens a dedicated device that is torn down when the clip ends.
func (p *malgoOneShotPlayer) PlayOneShot(clip Track, volume float64) error {
	select {
	case <-p.stop:
		return ErrBackendClosed
	default:
	}

	pcm, err := p.backend.loader.LoadFormat(clip, OutputSampleRate, OutputChannels)
	if err != nil {
		return err
	}

	stream := newPCMStream(volume)
	stream.setPCM(pcm)
	stream.start()

	done := make(chan struct{})
	var doneOnce sync.Once
	device, err := p.backend.newDevice(stream, func() { doneOnce.Do(func() { close(done) }) })
	if err != nil {
		return err
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("failed to start playback: %w", err)
	}

	p.backend.shots.Add(1)
	go func() {
		defer p.backend.shots.Done()
		select {
		case <-done:
		case <-p.stop:
		case <-p.backend.quit:
		}
		_ = device.Stop()
		device.Uninit()
		slog.Debug("one-shot finished", "clip", clip)
	}()

	return nil
}

func (p *malgoOneShotPlayer) Close() error {
	p.once.Do(func() { close(p.stop) })
	return nil
}
