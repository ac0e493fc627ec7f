package audio

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/spf13/afero"
)

// TrackResolver maps a track name to a file path.
type TrackResolver interface {
	ResolveTrack(track Track) (string, error)
}

// PathResolver treats every track as a file path, with extension fallback.
type PathResolver struct {
	files *FileResolver
}

// NewPathResolver creates a resolver that looks tracks up directly on fs.
func NewPathResolver(fs afero.Fs) *PathResolver {
	return &PathResolver{files: NewFileResolver(fs, nil)}
}

func (p *PathResolver) ResolveTrack(track Track) (string, error) {
	if !track.IsSet() {
		return "", ErrTrackNotFound
	}
	return p.files.ResolveWithExtensions(string(track))
}

type cacheKey struct {
	track      Track
	sampleRate int
	channels   int
}

// TrackLoader turns tracks into PCM ready for a device, caching the result
// per output format.
type TrackLoader struct {
	fs        afero.Fs
	resolver  TrackResolver
	registry  *DecoderRegistry
	resampler Resampler

	mu    sync.RWMutex
	cache map[cacheKey]*PCM
}

// NewTrackLoader creates a loader. Nil arguments take defaults: the OS
// filesystem, direct path resolution and the default decoder registry.
func NewTrackLoader(fs afero.Fs, resolver TrackResolver, registry *DecoderRegistry) *TrackLoader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if resolver == nil {
		resolver = NewPathResolver(fs)
	}
	if registry == nil {
		registry = NewDefaultRegistry()
	}
	return &TrackLoader{
		fs:        fs,
		resolver:  resolver,
		registry:  registry,
		resampler: NewLinearResampler(),
		cache:     make(map[cacheKey]*PCM),
	}
}

// Resolve returns the file path behind a track.
func (l *TrackLoader) Resolve(track Track) (string, error) {
	if !track.IsSet() {
		return "", fmt.Errorf("%w: empty track", ErrTrackNotFound)
	}
	path, err := l.resolver.ResolveTrack(track)
	if err != nil {
		return "", fmt.Errorf("resolve track %q: %w", track, err)
	}
	return path, nil
}

// ReadFile resolves a track and returns its raw bytes and path.
func (l *TrackLoader) ReadFile(track Track) ([]byte, string, error) {
	path, err := l.Resolve(track)
	if err != nil {
		return nil, "", err
	}
	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return nil, path, fmt.Errorf("read track %q: %w", track, err)
	}
	return data, path, nil
}

// Load decodes a track in its native format. Results are not cached.
func (l *TrackLoader) Load(track Track) (*PCM, error) {
	data, path, err := l.ReadFile(track)
	if err != nil {
		return nil, err
	}
	return l.registry.DecodeBytes(path, data)
}

// LoadFormat decodes a track and converts it to the given sample rate and
// channel count. Converted PCM is cached and shared; callers must not
// modify the returned samples.
func (l *TrackLoader) LoadFormat(track Track, sampleRate, channels int) (*PCM, error) {
	key := cacheKey{track: track, sampleRate: sampleRate, channels: channels}

	l.mu.RLock()
	pcm, ok := l.cache[key]
	l.mu.RUnlock()
	if ok {
		return pcm, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if pcm, ok := l.cache[key]; ok {
		return pcm, nil
	}

	src, err := l.Load(track)
	if err != nil {
		return nil, err
	}

	out := src.WithChannels(channels)
	if sampleRate > 0 && out.SampleRate != sampleRate {
		samples, err := l.resampler.Resample(out.Samples, out.SampleRate, sampleRate, out.Channels)
		if err != nil {
			return nil, fmt.Errorf("resample track %q: %w", track, err)
		}
		out = &PCM{Samples: samples, Channels: out.Channels, SampleRate: sampleRate}
	}

	l.cache[key] = out
	slog.Debug("track cached",
		"track", track,
		"sample_rate", sampleRate,
		"channels", out.Channels,
		"duration", out.Duration())

	return out, nil
}

// Preload fills the cache for the given tracks, stopping at the first failure.
func (l *TrackLoader) Preload(sampleRate, channels int, tracks ...Track) error {
	for _, track := range tracks {
		if _, err := l.LoadFormat(track, sampleRate, channels); err != nil {
			return err
		}
	}
	return nil
}

// Purge empties the cache.
func (l *TrackLoader) Purge() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[cacheKey]*PCM)
}

// Cached returns the number of cached entries.
func (l *TrackLoader) Cached() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.cache)
}
