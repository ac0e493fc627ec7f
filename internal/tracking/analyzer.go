package tracking

import (
	"database/sql"
	"fmt"
	"time"
)

// TrackUsage summarizes how often a track was started
type TrackUsage struct {
	Track      string    `json:"track"`
	Source     string    `json:"source"`
	Plays      int       `json:"plays"`
	AvgVolume  float64   `json:"avg_volume"`
	LastPlayed time.Time `json:"last_played"`
}

// EventCount is the number of events of one kind
type EventCount struct {
	Source string `json:"source"`
	Kind   string `json:"kind"`
	Count  int    `json:"count"`
}

// UsageSummary holds totals over the filtered events
type UsageSummary struct {
	TotalEvents  int `json:"total_events"`
	UniqueTracks int `json:"unique_tracks"`
	Sessions     int `json:"sessions"`
	Errors       int `json:"errors"`
}

// startKinds are the events that begin playback of a track
const startKinds = "('play', 'crossfade', 'one_shot')"

func where(filter QueryFilter, extra string) (string, []interface{}) {
	clause, args := filter.BuildWhereClause()
	switch {
	case clause != "" && extra != "":
		return " WHERE " + extra + " AND " + clause, args
	case clause != "":
		return " WHERE " + clause, args
	case extra != "":
		return " WHERE " + extra, args
	default:
		return "", args
	}
}

func limit(filter QueryFilter) string {
	if filter.Limit > 0 {
		return fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	return ""
}

// GetTrackUsage returns tracks ordered by how often they were started
func GetTrackUsage(db *sql.DB, filter QueryFilter) ([]TrackUsage, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	whereClause, args := where(filter, "kind IN "+startKinds+" AND track != ''")
	query := `
		SELECT track, source, COUNT(*) AS plays, AVG(volume), MAX(timestamp)
		FROM audio_events` + whereClause + `
		GROUP BY track, source
		ORDER BY plays DESC, track ASC` + limit(filter)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query track usage: %w", err)
	}
	defer rows.Close()

	var results []TrackUsage
	for rows.Next() {
		var u TrackUsage
		var last int64
		if err := rows.Scan(&u.Track, &u.Source, &u.Plays, &u.AvgVolume, &last); err != nil {
			return nil, fmt.Errorf("failed to scan track usage row: %w", err)
		}
		u.LastPlayed = time.Unix(last, 0)
		results = append(results, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating track usage rows: %w", err)
	}
	return results, nil
}

// GetEventCounts returns event totals grouped by source and kind
func GetEventCounts(db *sql.DB, filter QueryFilter) ([]EventCount, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	whereClause, args := where(filter, "")
	query := `
		SELECT source, kind, COUNT(*) AS n
		FROM audio_events` + whereClause + `
		GROUP BY source, kind
		ORDER BY n DESC, source ASC, kind ASC` + limit(filter)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query event counts: %w", err)
	}
	defer rows.Close()

	var results []EventCount
	for rows.Next() {
		var c EventCount
		if err := rows.Scan(&c.Source, &c.Kind, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan event count row: %w", err)
		}
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event count rows: %w", err)
	}
	return results, nil
}

// GetUsageSummary returns totals over the filtered events
func GetUsageSummary(db *sql.DB, filter QueryFilter) (*UsageSummary, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	whereClause, args := where(filter, "")
	query := `
		SELECT
			COUNT(*),
			COUNT(DISTINCT NULLIF(track, '')),
			COUNT(DISTINCT session_id),
			COALESCE(SUM(CASE WHEN kind = 'error' THEN 1 ELSE 0 END), 0)
		FROM audio_events` + whereClause

	var s UsageSummary
	if err := db.QueryRow(query, args...).Scan(&s.TotalEvents, &s.UniqueTracks, &s.Sessions, &s.Errors); err != nil {
		return nil, fmt.Errorf("failed to query usage summary: %w", err)
	}
	return &s, nil
}
