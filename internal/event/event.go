// Package event carries playback notifications from the music and effect
// controllers to observers such as the tracking journal.
package event

import "time"

// Source identifies which controller emitted an event.
type Source string

const (
	SourceBGM Source = "bgm"
	SourceSFX Source = "sfx"
)

// Kind names what happened.
type Kind string

const (
	KindPlay               Kind = "play"
	KindStop               Kind = "stop"
	KindPause              Kind = "pause"
	KindResume             Kind = "resume"
	KindVolume             Kind = "volume"
	KindRestart            Kind = "restart"
	KindCrossfade          Kind = "crossfade"
	KindTransitionComplete Kind = "transition_complete"
	KindTransitionCancel   Kind = "transition_cancel"
	KindOneShot            Kind = "one_shot"
	KindError              Kind = "error"
)

// Event is a single playback notification.
type Event struct {
	Time     time.Time
	Source   Source
	Kind     Kind
	Track    string
	Volume   float64
	Duration float64 // seconds, zero when not applicable
	Detail   string
}

// Hook receives events synchronously on the caller's goroutine.
type Hook func(Event)

// Dispatcher fans an event out to a list of hooks.
type Dispatcher struct {
	hooks []Hook
	now   func() time.Time
}

// NewDispatcher returns a dispatcher bound to the given hooks. Nil hooks are skipped.
func NewDispatcher(hooks ...Hook) *Dispatcher {
	d := &Dispatcher{now: time.Now}
	for _, h := range hooks {
		d.Add(h)
	}
	return d
}

// Add registers another hook.
func (d *Dispatcher) Add(h Hook) {
	if h == nil {
		return
	}
	d.hooks = append(d.hooks, h)
}

// Len reports the number of registered hooks.
func (d *Dispatcher) Len() int {
	return len(d.hooks)
}

// Emit stamps the event with the current time when unset and delivers it.
func (d *Dispatcher) Emit(e Event) {
	if d == nil || len(d.hooks) == 0 {
		return
	}
	if e.Time.IsZero() {
		e.Time = d.now()
	}
	for _, h := range d.hooks {
		h(e)
	}
}
