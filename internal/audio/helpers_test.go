package audio

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/spf13/afero"
)

// encodeWAV builds a canonical PCM WAV file.
func encodeWAV(t *testing.T, sampleRate, channels, bits int, samples []int) []byte {
	t.Helper()

	bytesPerSample := bits / 8
	dataSize := len(samples) * bytesPerSample

	var buf bytes.Buffer
	w := func(v any) {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			t.Fatalf("encode wav: %v", err)
		}
	}

	buf.WriteString("RIFF")
	w(uint32(36 + dataSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	w(uint32(16))
	w(uint16(1))
	w(uint16(channels))
	w(uint32(sampleRate))
	w(uint32(sampleRate * channels * bytesPerSample))
	w(uint16(channels * bytesPerSample))
	w(uint16(bits))
	buf.WriteString("data")
	w(uint32(dataSize))
	for _, s := range samples {
		switch bits {
		case 8:
			w(uint8(s))
		case 16:
			w(int16(s))
		}
	}
	return buf.Bytes()
}

// writeWAV stores a short 16-bit stereo tone in fs.
func writeWAV(t *testing.T, fs afero.Fs, path string, sampleRate int, frames int) {
	t.Helper()
	samples := make([]int, frames*2)
	for i := range samples {
		samples[i] = (i % 64) * 256
	}
	if err := afero.WriteFile(fs, path, encodeWAV(t, sampleRate, 2, 16, samples), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
