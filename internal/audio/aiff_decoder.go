package audio

import (
	"errors"
	"io"
	"log/slog"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
)

// AiffDecoder decodes uncompressed AIFF.
type AiffDecoder struct {
	codec
}

func NewAiffDecoder() *AiffDecoder {
	return &AiffDecoder{codec{name: "AIFF", exts: []string{".aiff", ".aif"}}}
}

func (d *AiffDecoder) Decode(reader io.Reader) (*PCM, error) {
	data, err := d.buffer(reader)
	if err != nil {
		return nil, err
	}

	dec := aiff.NewDecoder(data)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return nil, d.invalid("header")
	}
	bits := int(dec.SampleBitDepth())
	if dec.NumChans == 0 || dec.SampleRate == 0 || bits == 0 {
		return nil, d.invalid("format with %d channels at %d Hz", dec.NumChans, dec.SampleRate)
	}
	if err := d.checkDepth(bits); err != nil {
		return nil, err
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, errors.Join(ErrReadFailure, err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, d.invalid("file has no samples")
	}

	pcm := &PCM{
		Samples:    narrowSigned(buf, bits),
		Channels:   int(dec.NumChans),
		SampleRate: int(dec.SampleRate),
	}
	slog.Debug("aiff decoded",
		"frames", pcm.Frames(),
		"channels", pcm.Channels,
		"sample_rate", pcm.SampleRate,
		"source_bits", bits)
	return pcm, nil
}

// narrowSigned converts a go-audio buffer to 16 bits. 8-bit AIFF is signed,
// so it is shifted, not re-centered like 8-bit WAV.
func narrowSigned(buf *goaudio.IntBuffer, bits int) []int16 {
	out := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		if bits == 8 {
			out[i] = int16(v << 8)
		} else {
			out[i] = toInt16(v, bits)
		}
	}
	return out
}
