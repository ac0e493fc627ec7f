//go:build cgo

package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/audio/vorbis"
)

var (
	ebitenOnce sync.Once
	ebitenCtx  *audio.Context
)

func getEbitenContext() *audio.Context {
	ebitenOnce.Do(func() {
		if ctx := audio.CurrentContext(); ctx != nil {
			ebitenCtx = ctx
			return
		}
		ebitenCtx = audio.NewContext(OutputSampleRate)
	})
	return ebitenCtx
}

// EbitenBackend plays through an ebiten audio context, sharing the one a
// host game may already have created. It is the only backend that decodes
// Ogg Vorbis.
type EbitenBackend struct {
	loader   *TrackLoader
	ctx      *audio.Context
	channels channelSet[*ebitenChannel]
}

// NewEbitenBackend attaches to the process-wide ebiten audio context.
func NewEbitenBackend(loader *TrackLoader) (*EbitenBackend, error) {
	return &EbitenBackend{loader: loader, ctx: getEbitenContext()}, nil
}

func (b *EbitenBackend) Name() string {
	return KindEbiten
}

// decode returns the track as 16-bit stereo PCM at the context rate.
func (b *EbitenBackend) decode(track Track) ([]byte, error) {
	path, err := b.loader.Resolve(track)
	if err != nil {
		return nil, err
	}

	if ext := strings.ToLower(filepath.Ext(path)); ext == ".ogg" || ext == ".oga" {
		data, _, err := b.loader.ReadFile(track)
		if err != nil {
			return nil, err
		}
		stream, err := vorbis.DecodeWithSampleRate(b.ctx.SampleRate(), bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode ogg %q: %w", path, err)
		}
		pcm, err := io.ReadAll(stream)
		if err != nil {
			return nil, fmt.Errorf("read ogg %q: %w", path, err)
		}
		return pcm, nil
	}

	pcm, err := b.loader.LoadFormat(track, b.ctx.SampleRate(), OutputChannels)
	if err != nil {
		return nil, err
	}
	return pcm.Bytes(), nil
}

func (b *EbitenBackend) NewChannel() (Channel, error) {
	ch := &ebitenChannel{backend: b, volume: 1}
	if err := b.channels.add(ch); err != nil {
		return nil, err
	}
	return ch, nil
}

func (b *EbitenBackend) NewOneShotPlayer() (OneShotPlayer, error) {
	if b.channels.isClosed() {
		return nil, ErrBackendClosed
	}
	return &ebitenOneShotPlayer{backend: b}, nil
}

func (b *EbitenBackend) Close() error {
	open, ok := b.channels.shutdown()
	if !ok {
		return nil
	}
	var errs []error
	for _, ch := range open {
		errs = append(errs, ch.Close())
	}
	return errors.Join(errs...)
}

type ebitenChannel struct {
	backend *EbitenBackend

	mu     sync.Mutex
	data   []byte
	player *audio.Player
	volume float64
	loop   bool
	paused bool
	closed bool
}

// rebuild recreates the player for the current data and loop setting.
func (c *ebitenChannel) rebuild() error {
	if c.player != nil {
		c.player.Pause()
		_ = c.player.Close()
		c.player = nil
	}
	if c.data == nil {
		return nil
	}

	var player *audio.Player
	if c.loop {
		loop := audio.NewInfiniteLoop(bytes.NewReader(c.data), int64(len(c.data)))
		p, err := c.backend.ctx.NewPlayer(loop)
		if err != nil {
			return fmt.Errorf("create looping player: %w", err)
		}
		player = p
	} else {
		player = c.backend.ctx.NewPlayerFromBytes(c.data)
	}
	player.SetVolume(c.volume)
	c.player = player
	c.paused = false
	return nil
}

func (c *ebitenChannel) Load(track Track) error {
	data, err := c.backend.decode(track)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrChannelClosed
	}
	prev := c.data
	c.data = data
	if err := c.rebuild(); err != nil {
		c.data = prev
		_ = c.rebuild()
		return err
	}
	slog.Debug("ebiten channel loaded", "track", track, "bytes", len(data))
	return nil
}

func (c *ebitenChannel) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrChannelClosed
	}
	if c.player == nil {
		return ErrNoTrackLoaded
	}
	if err := c.player.Rewind(); err != nil {
		return fmt.Errorf("rewind: %w", err)
	}
	c.paused = false
	c.player.Play()
	return nil
}

func (c *ebitenChannel) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrChannelClosed
	}
	c.paused = false
	if c.player == nil {
		return nil
	}
	c.player.Pause()
	return c.player.Rewind()
}

func (c *ebitenChannel) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.player != nil && c.player.IsPlaying() {
		c.player.Pause()
		c.paused = true
	}
}

func (c *ebitenChannel) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.player != nil && c.paused {
		c.player.Play()
		c.paused = false
	}
}

func (c *ebitenChannel) SetVolume(volume float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.volume = ClampVolume(volume)
	if c.player != nil {
		c.player.SetVolume(c.volume)
	}
}

func (c *ebitenChannel) GetVolume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

func (c *ebitenChannel) IsPlaying() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.player != nil && c.player.IsPlaying()
}

func (c *ebitenChannel) SetLoop(loop bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loop == loop {
		return
	}
	c.loop = loop
	if err := c.rebuild(); err != nil {
		slog.Warn("failed to rebuild player after loop change", "error", err)
	}
}

func (c *ebitenChannel) IsLooping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loop
}

func (c *ebitenChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.data = nil
	c.backend.channels.remove(c)
	if c.player != nil {
		c.player.Pause()
		err := c.player.Close()
		c.player = nil
		return err
	}
	return nil
}

type ebitenOneShotPlayer struct {
	backend *EbitenBackend

	mu      sync.Mutex
	players []*audio.Player
}

// PlayOneShot starts an independent player and prunes the ones that finished.
func (p *ebitenOneShotPlayer) PlayOneShot(clip Track, volume float64) error {
	data, err := p.backend.decode(clip)
	if err != nil {
		return err
	}

	player := p.backend.ctx.NewPlayerFromBytes(data)
	player.SetVolume(ClampVolume(volume))
	player.Play()

	p.mu.Lock()
	defer p.mu.Unlock()
	active := p.players[:0]
	for _, old := range p.players {
		if old.IsPlaying() {
			active = append(active, old)
			continue
		}
		_ = old.Close()
	}
	p.players = append(active, player)
	return nil
}

func (p *ebitenOneShotPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, player := range p.players {
		player.Pause()
		_ = player.Close()
	}
	p.players = nil
	return nil
}
