package bgm

import "math"

// Scheduler runs at most one transition. It is not safe for concurrent use.
type Scheduler struct {
	active *Transition
}

// NewScheduler returns an idle scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Start cancels the active transition, if any, and installs t. The cancelled
// transition is returned so callers can report it.
func (s *Scheduler) Start(t *Transition) *Transition {
	cancelled := s.Cancel()
	s.active = t
	return cancelled
}

// Cancel drops the active transition without running its completion hooks.
func (s *Scheduler) Cancel() *Transition {
	prev := s.active
	if prev == nil {
		return nil
	}
	s.active = nil
	prev.cancel()
	return prev
}

// Tick advances the active transition by dt seconds and returns it if it
// finished on this tick. Negative and non-finite steps are ignored.
func (s *Scheduler) Tick(dt float64) *Transition {
	t := s.active
	if t == nil || math.IsNaN(dt) || math.IsInf(dt, 0) || dt < 0 {
		return nil
	}

	t.Elapsed += dt
	p := t.Progress()
	t.apply(p)
	if p < 1 {
		return nil
	}

	// Cleared before finalize so completion hooks may start a new transition.
	s.active = nil
	t.finalize()
	return t
}

// Active returns the running transition or nil.
func (s *Scheduler) Active() *Transition {
	return s.active
}

// Idle reports whether no transition is running.
func (s *Scheduler) Idle() bool {
	return s.active == nil
}
