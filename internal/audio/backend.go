package audio

import (
	"errors"
	"math"
)

// Common errors for backends and channels
var (
	ErrBackendNotAvailable  = errors.New("audio backend not available")
	ErrBackendClosed        = errors.New("audio backend is closed")
	ErrChannelClosed        = errors.New("audio channel is closed")
	ErrNoTrackLoaded        = errors.New("no track loaded on channel")
	ErrTrackNotFound        = errors.New("track not found")
	ErrChannelsNotSupported = errors.New("backend does not support music channels")
)

// Track identifies a playable asset. It is compared by value and resolved to
// a file by the track library. The empty Track means "no track".
type Track string

// NoTrack is the unset track.
const NoTrack Track = ""

// IsSet reports whether the track refers to anything.
func (t Track) IsSet() bool {
	return t != NoTrack
}

func (t Track) String() string {
	return string(t)
}

// Channel is a single audio output path that holds and plays one track at a
// time. Implementations clamp every volume they store to [0,1].
type Channel interface {
	// Load replaces the channel's track. On failure the previous track stays loaded.
	Load(track Track) error
	// Play starts the loaded track from the beginning.
	Play() error
	// Stop halts playback and rewinds.
	Stop() error
	Pause()
	Resume()

	SetVolume(volume float64)
	GetVolume() float64

	// IsPlaying is false while paused or after a non-looping track ends.
	IsPlaying() bool
	SetLoop(loop bool)
	IsLooping() bool

	// Close releases the channel's device resources. Closing twice is a no-op.
	Close() error
}

// OneShotPlayer plays fire-and-forget clips that may overlap each other.
type OneShotPlayer interface {
	PlayOneShot(clip Track, volume float64) error
	Close() error
}

// Backend creates channels and one-shot players bound to one output system.
type Backend interface {
	Name() string
	NewChannel() (Channel, error)
	NewOneShotPlayer() (OneShotPlayer, error)
	Close() error
}

// ClampVolume limits v to [0,1]. NaN maps to 0.
func ClampVolume(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
