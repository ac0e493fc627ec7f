package tracking

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrSchemaTooNew means the journal was written by a newer segue.
var ErrSchemaTooNew = errors.New("event journal schema is newer than this build")

// migrations[i] upgrades the journal from user_version i to i+1.
var migrations = []string{
	`CREATE TABLE audio_events (
		id         INTEGER PRIMARY KEY,
		timestamp  INTEGER NOT NULL,
		session_id TEXT    NOT NULL,
		source     TEXT    NOT NULL CHECK (source IN ('bgm', 'sfx')),
		kind       TEXT    NOT NULL,
		track      TEXT    NOT NULL DEFAULT '',
		volume     REAL    NOT NULL DEFAULT 0,
		duration   REAL    NOT NULL DEFAULT 0,
		detail     TEXT    NOT NULL DEFAULT ''
	);
	CREATE INDEX idx_events_timestamp ON audio_events(timestamp DESC);
	CREATE INDEX idx_events_session ON audio_events(session_id);
	CREATE INDEX idx_events_track ON audio_events(track);
	CREATE INDEX idx_events_kind ON audio_events(source, kind);`,
}

// SchemaVersion is the journal version this build writes.
var SchemaVersion = len(migrations)

const memoryPath = ":memory:"

// NewDatabase opens the SQLite event journal at dbPath, creating parent
// directories, and migrates it to SchemaVersion.
func NewDatabase(dbPath string) (*sql.DB, error) {
	inMemory := dbPath == memoryPath
	if !inMemory {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if inMemory {
		// each pooled connection would see its own empty database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA temp_store = MEMORY",
	}
	if !inMemory {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version > SchemaVersion {
		return fmt.Errorf("%w: found %d, want %d", ErrSchemaTooNew, version, SchemaVersion)
	}

	for v := version; v < SchemaVersion; v++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", v+1, err)
		}
		if _, err := tx.Exec(migrations[v]); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to apply migration %d: %w", v+1, err)
		}
		// PRAGMA takes no bind parameters
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", v+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record schema version %d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", v+1, err)
		}
		slog.Debug("event journal migrated", "version", v+1)
	}
	return nil
}
