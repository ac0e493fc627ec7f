package audio

import (
	"encoding/binary"
	"errors"
	"io"
	"log/slog"

	"github.com/hajimehoshi/go-mp3"
)

// Mp3Decoder decodes MPEG-1/2 layer III. go-mp3 always yields 16-bit stereo.
type Mp3Decoder struct {
	codec
}

func NewMp3Decoder() *Mp3Decoder {
	return &Mp3Decoder{codec{name: "MP3", exts: []string{".mp3", ".mpeg"}}}
}

func (d *Mp3Decoder) Decode(reader io.Reader) (*PCM, error) {
	dec, err := mp3.NewDecoder(reader)
	if err != nil {
		return nil, d.invalid("stream: %v", err)
	}
	if dec.SampleRate() <= 0 {
		return nil, d.invalid("sample rate %d", dec.SampleRate())
	}

	raw, err := io.ReadAll(dec)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Join(ErrReadFailure, err)
	}
	if len(raw) < 4 {
		return nil, d.invalid("file has no samples")
	}

	pcm := &PCM{
		Samples:    make([]int16, len(raw)/2),
		Channels:   2,
		SampleRate: dec.SampleRate(),
	}
	for i := range pcm.Samples {
		pcm.Samples[i] = int16(binary.LittleEndian.Uint16(raw[2*i:]))
	}

	slog.Debug("mp3 decoded", "frames", pcm.Frames(), "sample_rate", pcm.SampleRate)
	return pcm, nil
}
