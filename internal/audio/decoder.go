package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Common decoder errors
var (
	ErrInvalidData       = errors.New("invalid audio data")
	ErrReadFailure       = errors.New("failed to read audio data")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// PCM is decoded audio as interleaved signed 16-bit samples.
type PCM struct {
	Samples    []int16
	Channels   int
	SampleRate int
}

// Frames returns the number of sample frames.
func (p *PCM) Frames() int {
	if p == nil || p.Channels <= 0 {
		return 0
	}
	return len(p.Samples) / p.Channels
}

// Duration returns the playback length.
func (p *PCM) Duration() time.Duration {
	if p == nil || p.SampleRate <= 0 {
		return 0
	}
	return time.Duration(p.Frames()) * time.Second / time.Duration(p.SampleRate)
}

// Bytes encodes the samples as little-endian 16-bit PCM.
func (p *PCM) Bytes() []byte {
	out := make([]byte, len(p.Samples)*2)
	for i, s := range p.Samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// WithChannels converts mono and stereo audio to the requested layout.
// Extra source channels beyond the second are dropped when folding to stereo.
func (p *PCM) WithChannels(channels int) *PCM {
	if channels <= 0 || channels == p.Channels {
		return p
	}
	frames := p.Frames()
	out := &PCM{
		Samples:    make([]int16, frames*channels),
		Channels:   channels,
		SampleRate: p.SampleRate,
	}
	for f := 0; f < frames; f++ {
		src := p.Samples[f*p.Channels : (f+1)*p.Channels]
		for ch := 0; ch < channels; ch++ {
			switch {
			case channels == 1:
				var sum int
				for _, s := range src {
					sum += int(s)
				}
				out.Samples[f] = int16(sum / len(src))
			case ch < len(src):
				out.Samples[f*channels+ch] = src[ch]
			default:
				out.Samples[f*channels+ch] = src[len(src)-1]
			}
		}
	}
	return out
}

// Decoder turns one container format into PCM.
type Decoder interface {
	Decode(reader io.Reader) (*PCM, error)
	// CanDecode matches filename by extension only.
	CanDecode(filename string) bool
	FormatName() string
}

// codec implements the naming half of Decoder.
type codec struct {
	name string
	exts []string
}

func (f codec) FormatName() string {
	return f.name
}

func (f codec) CanDecode(filename string) bool {
	return slices.Contains(f.exts, strings.ToLower(filepath.Ext(filename)))
}

// buffer reads r fully for decoders that need to seek.
func (f codec) buffer(r io.Reader) (*bytes.Reader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrReadFailure, f.name, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty %s data", ErrInvalidData, f.name)
	}
	return bytes.NewReader(data), nil
}

func (f codec) invalid(what string, args ...any) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidData, f.name, fmt.Sprintf(what, args...))
}

// checkDepth accepts the integer bit depths toInt16 can narrow.
func (f codec) checkDepth(bits int) error {
	switch bits {
	case 8, 16, 24, 32:
		return nil
	}
	return fmt.Errorf("%w: %s with %d-bit samples", ErrUnsupportedFormat, f.name, bits)
}

// toInt16 narrows a sample of the given bit depth to 16 bits.
func toInt16(v int, bitDepth int) int16 {
	switch {
	case bitDepth == 8:
		// 8-bit PCM is unsigned
		return int16((v - 128) << 8)
	case bitDepth > 16:
		return int16(v >> (bitDepth - 16))
	default:
		return int16(v)
	}
}
