package tracking

import (
	"bytes"
	"database/sql"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segue.click/internal/event"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDatabaseCreatesFileAndSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "events.db")
	db, err := NewDatabase(dbPath)
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "database file should exist")

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM audio_events").Scan(&count))
	assert.Equal(t, 0, count)

	for _, idx := range []string{"idx_events_timestamp", "idx_events_session", "idx_events_track", "idx_events_kind"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&name)
		assert.NoError(t, err, "index %s", idx)
	}

	// Reopening keeps the schema.
	db2, err := NewDatabase(dbPath)
	require.NoError(t, err)
	db2.Close()
}

func TestNewDatabaseSchemaVersion(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "events.db")
	db, err := NewDatabase(dbPath)
	require.NoError(t, err)

	var version int
	require.NoError(t, db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, SchemaVersion, version)

	_, err = db.Exec("PRAGMA user_version = 99")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = NewDatabase(dbPath)
	assert.ErrorIs(t, err, ErrSchemaTooNew)
}

func TestNewDatabaseInMemory(t *testing.T) {
	db, err := NewDatabase(":memory:")
	require.NoError(t, err)
	defer db.Close()

	r := NewRecorder(db, "mem")
	r.Record(event.Event{Source: event.SourceBGM, Kind: event.KindPlay, Track: "menu"})

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM audio_events").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestRecorder(t *testing.T) {
	db := setupTestDB(t)
	r := NewRecorder(db, "")
	assert.Len(t, r.SessionID(), 36, "empty session ids become UUIDs")

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	hook := r.Hook()
	hook(event.Event{Time: at, Source: event.SourceBGM, Kind: event.KindCrossfade, Track: "battle", Volume: 0.8, Duration: 2, Detail: "menu"})
	hook(event.Event{Source: event.SourceSFX, Kind: event.KindOneShot, Track: "click", Volume: 1})

	assert.Equal(t, 2, r.Recorded())

	var (
		ts       int64
		session  string
		source   string
		kind     string
		track    string
		volume   float64
		duration float64
		detail   string
	)
	err := db.QueryRow(`SELECT timestamp, session_id, source, kind, track, volume, duration, detail
		FROM audio_events ORDER BY id LIMIT 1`).Scan(&ts, &session, &source, &kind, &track, &volume, &duration, &detail)
	require.NoError(t, err)
	assert.Equal(t, at.Unix(), ts)
	assert.Equal(t, r.SessionID(), session)
	assert.Equal(t, "bgm", source)
	assert.Equal(t, "crossfade", kind)
	assert.Equal(t, "battle", track)
	assert.Equal(t, 0.8, volume)
	assert.Equal(t, 2.0, duration)
	assert.Equal(t, "menu", detail)
}

func TestRecorderDisablesOnError(t *testing.T) {
	db := setupTestDB(t)
	r := NewRecorder(db, "s")

	require.NoError(t, db.Close())
	r.Record(event.Event{Source: event.SourceBGM, Kind: event.KindPlay, Track: "menu"})
	assert.True(t, r.Disabled())
	assert.Equal(t, 0, r.Recorded())

	// Later events are dropped silently.
	r.Record(event.Event{Source: event.SourceBGM, Kind: event.KindStop})
	assert.True(t, r.Disabled())
}

func TestSlogHook(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hook := NewSlogHook(logger).Hook()

	hook(event.Event{Source: event.SourceSFX, Kind: event.KindOneShot, Track: "click"})
	out := buf.String()
	for _, want := range []string{"level=DEBUG", "playback event", "source=sfx", "kind=one_shot", "track=click", "volume=0"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
	assert.NotContains(t, out, "detail=", "empty attributes are left out")

	buf.Reset()
	hook(event.Event{Source: event.SourceBGM, Kind: event.KindError, Track: "nope", Detail: "not found"})
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), `detail="not found"`)

	buf.Reset()
	hook(event.Event{Source: event.SourceBGM, Kind: event.KindPause, Track: "menu"})
	assert.NotContains(t, buf.String(), "volume=")

	assert.NotNil(t, NewSlogHook(nil).logger)
}

func TestSlogHookRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	hook := NewSlogHook(logger).Hook()

	hook(event.Event{Source: event.SourceBGM, Kind: event.KindPlay, Track: "menu"})
	assert.Empty(t, buf.String())

	hook(event.Event{Source: event.SourceBGM, Kind: event.KindError, Track: "menu"})
	assert.Contains(t, buf.String(), "kind=error")
}

func seedEvents(t *testing.T, db *sql.DB, now time.Time) {
	t.Helper()
	insert := func(age time.Duration, session, source, kind, track string, volume float64) {
		_, err := db.Exec(`INSERT INTO audio_events (timestamp, session_id, source, kind, track, volume)
			VALUES (?, ?, ?, ?, ?, ?)`, now.Add(-age).Unix(), session, source, kind, track, volume)
		require.NoError(t, err)
	}

	insert(10*time.Minute, "s1", "bgm", "play", "menu", 0.1)
	insert(9*time.Minute, "s1", "sfx", "one_shot", "click", 1)
	insert(8*time.Minute, "s1", "sfx", "one_shot", "click", 0.5)
	insert(7*time.Minute, "s1", "bgm", "crossfade", "battle", 0.3)
	insert(6*time.Minute, "s1", "bgm", "transition_complete", "battle", 0.3)
	insert(48*time.Hour, "s0", "bgm", "play", "menu", 0.3)
	insert(72*time.Hour, "s0", "bgm", "error", "missing", 0)
}

func TestGetTrackUsage(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	seedEvents(t, db, now)

	usage, err := GetTrackUsage(db, QueryFilter{Now: now})
	require.NoError(t, err)
	require.Len(t, usage, 3)
	assert.Equal(t, "click", usage[0].Track)
	assert.Equal(t, 2, usage[0].Plays)
	assert.InDelta(t, 0.75, usage[0].AvgVolume, 1e-9)
	assert.Equal(t, "menu", usage[1].Track)
	assert.Equal(t, 2, usage[1].Plays)
	assert.Equal(t, now.Add(-10*time.Minute).Unix(), usage[1].LastPlayed.Unix())

	recent, err := GetTrackUsage(db, QueryFilter{Now: now, Days: 1, Source: "bgm"})
	require.NoError(t, err)
	require.Len(t, recent, 2)
	for _, u := range recent {
		assert.Equal(t, 1, u.Plays, "track %s", u.Track)
	}

	limited, err := GetTrackUsage(db, QueryFilter{Now: now, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	_, err = GetTrackUsage(nil, QueryFilter{})
	assert.Error(t, err)
}

func TestGetEventCountsAndSummary(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	seedEvents(t, db, now)

	counts, err := GetEventCounts(db, QueryFilter{Now: now})
	require.NoError(t, err)
	require.NotEmpty(t, counts)
	assert.Equal(t, EventCount{Source: "bgm", Kind: "play", Count: 2}, counts[0])

	sfxOnly, err := GetEventCounts(db, QueryFilter{Now: now, Source: "sfx"})
	require.NoError(t, err)
	assert.Equal(t, []EventCount{{Source: "sfx", Kind: "one_shot", Count: 2}}, sfxOnly)

	summary, err := GetUsageSummary(db, QueryFilter{Now: now})
	require.NoError(t, err)
	assert.Equal(t, &UsageSummary{TotalEvents: 7, UniqueTracks: 4, Sessions: 2, Errors: 1}, summary)

	session, err := GetUsageSummary(db, QueryFilter{Now: now, SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, 5, session.TotalEvents)
	assert.Equal(t, 0, session.Errors)
}

func TestBuildWhereClause(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		filter   QueryFilter
		want     string
		wantArgs int
	}{
		{"empty", QueryFilter{}, "", 0},
		{"days", QueryFilter{Days: 7, Now: now}, "timestamp >= ? AND timestamp <= ?", 2},
		{"all preset", QueryFilter{DatePreset: "all", Now: now}, "timestamp <= ?", 1},
		{"content", QueryFilter{Source: "bgm", Kind: "play", Track: "menu", SessionID: "s"},
			"source = ? AND kind = ? AND track = ? AND session_id = ?", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clause, args := tt.filter.BuildWhereClause()
			if clause != tt.want {
				t.Errorf("clause = %q, want %q", clause, tt.want)
			}
			if len(args) != tt.wantArgs {
				t.Errorf("args = %v, want %d", args, tt.wantArgs)
			}
		})
	}
}

func TestParseDatePreset(t *testing.T) {
	now := time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC) // Wednesday

	tests := []struct {
		preset    string
		wantStart time.Time
		wantEnd   time.Time
	}{
		{"today", time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), now},
		{"yesterday", time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"week", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), now},
		{"last-week", time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)},
		{"month", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), now},
		{"last-month", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"all", time.Time{}, now},
	}

	for _, tt := range tests {
		t.Run(tt.preset, func(t *testing.T) {
			start, end, err := ParseDatePreset(tt.preset, now)
			require.NoError(t, err)
			assert.True(t, start.Equal(tt.wantStart), "start = %v, want %v", start, tt.wantStart)
			assert.True(t, end.Equal(tt.wantEnd), "end = %v, want %v", end, tt.wantEnd)
		})
	}

	_, _, err := ParseDatePreset("fortnight", now)
	assert.ErrorIs(t, err, ErrUnknownPreset)
	assert.Contains(t, err.Error(), "last-month")

	start, _, err := ParseDatePreset("this-week", now)
	require.NoError(t, err)
	assert.Equal(t, 2, start.Day(), "aliases resolve to their preset")
}

func TestApplyTimeFilterPriority(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	start := now.Add(-time.Hour)

	q := QueryFilter{DatePreset: "today", StartTime: &start, Days: 30}
	s, e := q.ApplyTimeFilter(now)
	assert.Equal(t, beginningOfDay(now).Unix(), s, "preset wins")
	assert.Equal(t, now.Unix(), e)

	q = QueryFilter{StartTime: &start, Days: 30}
	s, _ = q.ApplyTimeFilter(now)
	assert.Equal(t, start.Unix(), s, "explicit start beats days")

	end := now.Add(-30 * time.Minute)
	q = QueryFilter{EndTime: &end}
	s, e = q.ApplyTimeFilter(now)
	assert.Equal(t, int64(0), s, "end alone has no lower bound")
	assert.Equal(t, end.Unix(), e)

	q = QueryFilter{DatePreset: "bogus"}
	s, _ = q.ApplyTimeFilter(now)
	assert.Equal(t, int64(0), s)
}

func TestParseNaturalDate(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

	got, err := ParseNaturalDate("yesterday", now)
	require.NoError(t, err)
	assert.True(t, got.Before(now), "yesterday should be in the past: %v", got)
}
