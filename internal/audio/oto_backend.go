//go:build cgo

package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// oto allows one context per process.
var (
	otoCtx     *oto.Context
	otoOnce    sync.Once
	otoInitErr error
)

func getOtoContext() (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   OutputSampleRate,
			ChannelCount: OutputChannels,
			Format:       oto.FormatSignedInt16LE,
		}
		var readyChan chan struct{}
		otoCtx, readyChan, otoInitErr = oto.NewContext(op)
		if otoInitErr == nil {
			<-readyChan
		}
	})
	return otoCtx, otoInitErr
}

// OtoBackend mixes every channel through the shared oto context.
type OtoBackend struct {
	loader *TrackLoader
	ctx    *oto.Context

	mu       sync.Mutex
	closed   bool
	channels map[*otoChannel]struct{}
	quit     chan struct{}
	shots    sync.WaitGroup
}

// NewOtoBackend attaches to the process-wide oto context.
func NewOtoBackend(loader *TrackLoader) (*OtoBackend, error) {
	ctx, err := getOtoContext()
	if err != nil {
		return nil, fmt.Errorf("%w: oto: %w", ErrBackendNotAvailable, err)
	}
	slog.Debug("oto context ready", "sample_rate", OutputSampleRate)
	return &OtoBackend{
		loader:   loader,
		ctx:      ctx,
		channels: make(map[*otoChannel]struct{}),
		quit:     make(chan struct{}),
	}, nil
}

func (b *OtoBackend) Name() string {
	return KindOto
}

func (b *OtoBackend) NewChannel() (Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBackendClosed
	}
	stream := newPCMStream(1)
	ch := &otoChannel{
		backend: b,
		stream:  stream,
		player:  b.ctx.NewPlayer(stream),
	}
	b.channels[ch] = struct{}{}
	return ch, nil
}

func (b *OtoBackend) NewOneShotPlayer() (OneShotPlayer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBackendClosed
	}
	return &otoOneShotPlayer{backend: b}, nil
}

// Close stops every channel. The oto context itself lives until exit.
func (b *OtoBackend) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.quit)
	channels := make([]*otoChannel, 0, len(b.channels))
	for ch := range b.channels {
		channels = append(channels, ch)
	}
	b.mu.Unlock()

	var errs []error
	for _, ch := range channels {
		errs = append(errs, ch.Close())
	}
	b.shots.Wait()
	return errors.Join(errs...)
}

type otoChannel struct {
	backend *OtoBackend
	stream  *pcmStream
	player  *oto.Player

	mu      sync.Mutex
	started bool
	closed  bool
}

func (c *otoChannel) Load(track Track) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrChannelClosed
	}
	pcm, err := c.backend.loader.LoadFormat(track, OutputSampleRate, OutputChannels)
	if err != nil {
		return err
	}
	c.stream.setPCM(pcm)
	return nil
}

func (c *otoChannel) Play() error {
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
		c.player.Play()
		c.started = true
	}
	return nil
}

func (c *otoChannel) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrChannelClosed
	}
	c.stream.stop()
	return nil
}

func (c *otoChannel) Pause()                   { c.stream.setPaused(true) }
func (c *otoChannel) Resume()                  { c.stream.setPaused(false) }
func (c *otoChannel) SetVolume(volume float64) { c.stream.setVolume(volume) }
func (c *otoChannel) GetVolume() float64       { return c.stream.getVolume() }
func (c *otoChannel) IsPlaying() bool          { return c.stream.playing() }
func (c *otoChannel) SetLoop(loop bool)        { c.stream.setLoop(loop) }
func (c *otoChannel) IsLooping() bool          { return c.stream.isLooping() }

func (c *otoChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.stream.stop()
	c.player.Pause()
	err := c.player.Close()
	c.mu.Unlock()

	c.backend.mu.Lock()
	delete(c.backend.channels, c)
	c.backend.mu.Unlock()
	return err
}

type otoOneShotPlayer struct {
	backend *OtoBackend
}

// PlayOneShot starts a player on its own stream and closes it once drained.
func (p *otoOneShotPlayer) PlayOneShot(clip Track, volume float64) error {
	select {
	case <-p.backend.quit:
		return ErrBackendClosed
	default:
	}

	pcm, err := p.backend.loader.LoadFormat(clip, OutputSampleRate, OutputChannels)
	if err != nil {
		return err
	}

	stream := newPCMStream(volume)
	stream.eof = true
	stream.setPCM(pcm)
	stream.start()

	player := p.backend.ctx.NewPlayer(stream)
	player.Play()

	p.backend.shots.Add(1)
	go func() {
		defer p.backend.shots.Done()
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for player.IsPlaying() {
			select {
			case <-p.backend.quit:
				player.Pause()
				_ = player.Close()
				return
			case <-ticker.C:
			}
		}
		_ = player.Close()
	}()
	return nil
}

func (p *otoOneShotPlayer) Close() error {
	return nil
}
