package tracking

import (
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"segue.click/internal/event"
)

// Recorder journals playback events for one session. The first write error
// disables it so playback never depends on the journal.
type Recorder struct {
	mu        sync.Mutex
	db        *sql.DB
	sessionID string
	disabled  bool
	recorded  int
}

// NewRecorder creates a recorder. An empty sessionID gets a random UUID.
func NewRecorder(db *sql.DB, sessionID string) *Recorder {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return &Recorder{
		db:        db,
		sessionID: sessionID,
	}
}

// Record stores e
func (r *Recorder) Record(e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.disabled {
		return
	}

	ts := e.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := r.db.Exec(`
		INSERT INTO audio_events (timestamp, session_id, source, kind, track, volume, duration, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ts.Unix(),
		r.sessionID,
		string(e.Source),
		string(e.Kind),
		e.Track,
		e.Volume,
		e.Duration,
		e.Detail)
	if err != nil {
		slog.Warn("event tracking failed, disabling", "error", err, "kind", e.Kind, "track", e.Track)
		r.disabled = true
		return
	}

	r.recorded++
	slog.Debug("event recorded", "session_id", r.sessionID, "kind", e.Kind, "track", e.Track)
}

// Hook returns Record as an event.Hook
func (r *Recorder) Hook() event.Hook {
	return r.Record
}

// SessionID returns the session identifier stored with every event
func (r *Recorder) SessionID() string {
	return r.sessionID
}

// Disabled reports whether a write error switched the recorder off
func (r *Recorder) Disabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disabled
}

// Recorded returns the number of events written
func (r *Recorder) Recorded() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recorded
}
