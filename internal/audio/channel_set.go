package audio

import "sync"

// channelSet tracks the open channels of a backend. Channels remove
// themselves on Close so a long session does not accumulate released ones.
type channelSet[C comparable] struct {
	mu     sync.Mutex
	closed bool
	open   map[C]struct{}
}

// add registers ch, failing once the backend is closed.
func (s *channelSet[C]) add(ch C) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrBackendClosed
	}
	if s.open == nil {
		s.open = make(map[C]struct{})
	}
	s.open[ch] = struct{}{}
	return nil
}

func (s *channelSet[C]) remove(ch C) {
	s.mu.Lock()
	delete(s.open, ch)
	s.mu.Unlock()
}

func (s *channelSet[C]) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *channelSet[C]) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.open)
}

// shutdown marks the set closed and hands back the channels still open,
// for the caller to close outside the lock. ok is false on a second call.
func (s *channelSet[C]) shutdown() (remaining []C, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false
	}
	s.closed = true
	for ch := range s.open {
		remaining = append(remaining, ch)
	}
	s.open = nil
	return remaining, true
}
