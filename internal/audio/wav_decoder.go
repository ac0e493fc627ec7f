package audio

import (
	"errors"
	"io"
	"log/slog"

	"github.com/youpy/go-wav"
)

// WavDecoder decodes RIFF WAVE files with integer samples.
type WavDecoder struct {
	codec
}

func NewWavDecoder() *WavDecoder {
	return &WavDecoder{codec{name: "WAV", exts: []string{".wav", ".wave"}}}
}

func (d *WavDecoder) Decode(reader io.Reader) (*PCM, error) {
	// go-wav wants a ReadSeeker
	data, err := d.buffer(reader)
	if err != nil {
		return nil, err
	}

	r := wav.NewReader(data)
	info, err := r.Format()
	if err != nil {
		return nil, d.invalid("header: %v", err)
	}
	if info.NumChannels == 0 || info.SampleRate == 0 {
		return nil, d.invalid("format with %d channels at %d Hz", info.NumChannels, info.SampleRate)
	}
	bits := int(info.BitsPerSample)
	if err := d.checkDepth(bits); err != nil {
		return nil, err
	}

	pcm := &PCM{Channels: int(info.NumChannels), SampleRate: int(info.SampleRate)}
	for {
		frames, err := r.ReadSamples()
		if errors.Is(err, io.EOF) || (err == nil && len(frames) == 0) {
			break
		}
		if err != nil {
			return nil, errors.Join(ErrReadFailure, err)
		}
		for _, frame := range frames {
			for ch := 0; ch < pcm.Channels; ch++ {
				v := 0
				if ch < len(frame.Values) {
					v = frame.Values[ch]
				}
				pcm.Samples = append(pcm.Samples, toInt16(v, bits))
			}
		}
	}
	if len(pcm.Samples) == 0 {
		return nil, d.invalid("file has no samples")
	}

	slog.Debug("wav decoded",
		"frames", pcm.Frames(),
		"channels", pcm.Channels,
		"sample_rate", pcm.SampleRate,
		"source_bits", bits)
	return pcm, nil
}
