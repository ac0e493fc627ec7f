package audio

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplesOf(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return out
}

func TestPCMStreamSilentUntilStarted(t *testing.T) {
	s := newPCMStream(1)
	s.setPCM(&PCM{Samples: []int16{100, 200}, Channels: 1, SampleRate: 8000})

	buf := []byte{1, 1, 1, 1}
	assert.Equal(t, 0, s.fill(buf))
	assert.Equal(t, []int16{0, 0}, samplesOf(buf))
	assert.False(t, s.playing())
}

func TestPCMStreamEndsWithoutLoop(t *testing.T) {
	s := newPCMStream(1)
	s.setPCM(&PCM{Samples: []int16{100, 200}, Channels: 1, SampleRate: 8000})
	s.start()

	buf := make([]byte, 8)
	assert.Equal(t, 4, s.fill(buf))
	assert.Equal(t, []int16{100, 200, 0, 0}, samplesOf(buf))
	assert.True(t, s.finished())
	assert.False(t, s.playing())
}

func TestPCMStreamLoops(t *testing.T) {
	s := newPCMStream(1)
	s.setLoop(true)
	s.setPCM(&PCM{Samples: []int16{1, 2, 3}, Channels: 1, SampleRate: 8000})
	s.start()

	buf := make([]byte, 14)
	assert.Equal(t, 14, s.fill(buf))
	assert.Equal(t, []int16{1, 2, 3, 1, 2, 3, 1}, samplesOf(buf))
	assert.True(t, s.playing())
}

func TestPCMStreamPauseAndVolume(t *testing.T) {
	s := newPCMStream(0.5)
	s.setPCM(&PCM{Samples: []int16{1000, 2000, 3000}, Channels: 1, SampleRate: 8000})
	s.start()

	buf := make([]byte, 2)
	s.fill(buf)
	assert.Equal(t, []int16{500}, samplesOf(buf))

	s.setPaused(true)
	assert.True(t, s.isPaused())
	assert.False(t, s.playing())
	assert.Equal(t, 0, s.fill(buf))

	s.setPaused(false)
	s.fill(buf)
	assert.Equal(t, []int16{1000}, samplesOf(buf), "resume continues where it paused")
}

func TestPCMStreamPauseIgnoredWhenStopped(t *testing.T) {
	s := newPCMStream(1)
	s.setPaused(true)
	assert.False(t, s.isPaused())
}

func TestPCMStreamReadEOF(t *testing.T) {
	s := newPCMStream(1)
	s.eof = true
	s.setPCM(&PCM{Samples: []int16{7}, Channels: 1, SampleRate: 8000})
	s.start()

	data, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, []int16{7}, samplesOf(data))
}

func TestPCMStreamReadPadsForever(t *testing.T) {
	s := newPCMStream(1)
	buf := make([]byte, 16)
	n, err := s.Read(buf)
	assert.NoError(t, err)
	assert.Equal(t, len(buf), n)
}
