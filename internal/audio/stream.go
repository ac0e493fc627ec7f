package audio

import (
	"encoding/binary"
	"io"
	"sync"
)

// Device output format shared by the pull-based backends.
const (
	OutputSampleRate = 44100
	OutputChannels   = 2
)

// pcmStream is a cursor over decoded PCM that device callbacks pull from.
// Its zero value is silent. All methods are safe for concurrent use.
type pcmStream struct {
	mu     sync.Mutex
	pcm    *PCM
	pos    int // sample index into pcm.Samples
	loop   bool
	volume float64
	paused bool
	active bool

	// eof makes Read report io.EOF once a non-looping stream ends
	// instead of padding with silence forever.
	eof bool
}

func newPCMStream(volume float64) *pcmStream {
	return &pcmStream{volume: ClampVolume(volume)}
}

// setPCM swaps the content and rewinds. Playback state is reset to stopped.
func (s *pcmStream) setPCM(pcm *PCM) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pcm = pcm
	s.pos = 0
	s.active = false
	s.paused = false
}

func (s *pcmStream) loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pcm != nil
}

func (s *pcmStream) start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos = 0
	s.active = s.pcm != nil
	s.paused = false
}

func (s *pcmStream) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos = 0
	s.active = false
	s.paused = false
}

func (s *pcmStream) setPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.paused = paused
}

func (s *pcmStream) isPaused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active && s.paused
}

func (s *pcmStream) playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active && !s.paused
}

func (s *pcmStream) finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.active
}

func (s *pcmStream) setVolume(v float64) {
	s.mu.Lock()
	s.volume = ClampVolume(v)
	s.mu.Unlock()
}

func (s *pcmStream) getVolume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

func (s *pcmStream) setLoop(loop bool) {
	s.mu.Lock()
	s.loop = loop
	s.mu.Unlock()
}

func (s *pcmStream) isLooping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loop
}

// fill writes S16LE audio into out and zeroes whatever it cannot cover.
// It returns the number of bytes that carried real audio.
func (s *pcmStream) fill(out []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	written := 0
	if s.active && !s.paused && s.pcm != nil && len(s.pcm.Samples) > 0 {
		samples := s.pcm.Samples
		for written+1 < len(out) {
			if s.pos >= len(samples) {
				if !s.loop {
					s.active = false
					break
				}
				s.pos = 0
			}
			v := samples[s.pos]
			if s.volume < 1 {
				v = clipInt16(float64(v) * s.volume)
			}
			binary.LittleEndian.PutUint16(out[written:], uint16(v))
			written += 2
			s.pos++
		}
	}

	clear(out[written:])
	return written
}

// Read implements io.Reader for pull-based players.
func (s *pcmStream) Read(p []byte) (int, error) {
	n := s.fill(p)
	if s.eof && n == 0 && s.finished() {
		return 0, io.EOF
	}
	if s.eof {
		return n, nil
	}
	return len(p), nil
}
