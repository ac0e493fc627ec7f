package tracking

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/tj/go-naturaldate"
)

// ErrUnknownPreset is returned for date presets not in DatePresets.
var ErrUnknownPreset = errors.New("unknown date preset")

// QueryFilter selects journal rows for the analyzer.
type QueryFilter struct {
	// Time filters, in priority order: DatePreset, Start/End, Days
	StartTime  *time.Time // inclusive
	EndTime    *time.Time // inclusive
	Days       int        // last N days
	DatePreset string     // see DatePresets

	Source    string // bgm or sfx
	Kind      string // event kind, e.g. play, crossfade, one_shot
	Track     string
	SessionID string

	Limit int // 0 = no limit

	// Now is the reference time for relative filters; zero means time.Now
	Now time.Time
}

func (q *QueryFilter) now() time.Time {
	if q.Now.IsZero() {
		return time.Now()
	}
	return q.Now
}

func (q *QueryFilter) hasTimeFilter() bool {
	return q.StartTime != nil || q.EndTime != nil || q.Days > 0 || q.DatePreset != ""
}

// ApplyTimeFilter resolves the time options to Unix bounds. A zero start
// means no lower bound.
func (q *QueryFilter) ApplyTimeFilter(now time.Time) (startUnix, endUnix int64) {
	switch {
	case q.DatePreset != "":
		start, end, err := ParseDatePreset(q.DatePreset, now)
		if err != nil {
			slog.Warn("invalid date preset, using no time filter", "preset", q.DatePreset, "error", err)
			return 0, now.Unix()
		}
		return unixOrZero(start), end.Unix()
	case q.StartTime != nil || q.EndTime != nil:
		end := now
		if q.EndTime != nil {
			end = *q.EndTime
		}
		var start time.Time
		if q.StartTime != nil {
			start = *q.StartTime
		}
		return unixOrZero(start), end.Unix()
	case q.Days > 0:
		return now.AddDate(0, 0, -q.Days).Unix(), now.Unix()
	default:
		return 0, now.Unix()
	}
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

// clauses accumulates ANDed conditions with their bind arguments.
type clauses struct {
	parts []string
	args  []interface{}
}

func (c *clauses) add(cond string, arg interface{}) {
	c.parts = append(c.parts, cond)
	c.args = append(c.args, arg)
}

// equal adds column = value unless value is empty.
func (c *clauses) equal(column, value string) {
	if value != "" {
		c.add(column+" = ?", value)
	}
}

// BuildWhereClause returns the filter as a SQL condition without the WHERE
// keyword, and its arguments.
func (q *QueryFilter) BuildWhereClause() (string, []interface{}) {
	var c clauses
	if q.hasTimeFilter() {
		start, end := q.ApplyTimeFilter(q.now())
		if start > 0 {
			c.add("timestamp >= ?", start)
		}
		c.add("timestamp <= ?", end)
	}
	c.equal("source", q.Source)
	c.equal("kind", q.Kind)
	c.equal("track", q.Track)
	c.equal("session_id", q.SessionID)

	clause := strings.Join(c.parts, " AND ")
	slog.Debug("built where clause", "clause", clause, "arg_count", len(c.args))
	return clause, c.args
}

type presetRange func(now time.Time) (start, end time.Time)

var datePresets = map[string]presetRange{
	"today": func(now time.Time) (time.Time, time.Time) {
		return beginningOfDay(now), now
	},
	"yesterday": func(now time.Time) (time.Time, time.Time) {
		return beginningOfDay(now.AddDate(0, 0, -1)), beginningOfDay(now)
	},
	"week": func(now time.Time) (time.Time, time.Time) {
		return beginningOfWeek(now), now
	},
	"last-week": func(now time.Time) (time.Time, time.Time) {
		monday := beginningOfWeek(now)
		return monday.AddDate(0, 0, -7), monday
	},
	"month": func(now time.Time) (time.Time, time.Time) {
		return beginningOfMonth(now), now
	},
	"last-month": func(now time.Time) (time.Time, time.Time) {
		first := beginningOfMonth(now)
		return first.AddDate(0, -1, 0), first
	},
	"all": func(now time.Time) (time.Time, time.Time) {
		return time.Time{}, now
	},
}

var presetAliases = map[string]string{
	"this-week":  "week",
	"this-month": "month",
	"all-time":   "all",
}

// DatePresets lists the accepted preset names, without aliases.
func DatePresets() []string {
	names := make([]string, 0, len(datePresets))
	for name := range datePresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseDatePreset returns the time range a preset covers relative to now.
// "all" has a zero start.
func ParseDatePreset(preset string, now time.Time) (start, end time.Time, err error) {
	if alias, ok := presetAliases[preset]; ok {
		preset = alias
	}
	fn, ok := datePresets[preset]
	if !ok {
		return time.Time{}, time.Time{}, fmt.Errorf("%w %q (valid: %s)", ErrUnknownPreset, preset, strings.Join(DatePresets(), ", "))
	}
	start, end = fn(now)
	return start, end, nil
}

// ParseNaturalDate parses phrases such as "3 days ago" relative to now.
func ParseNaturalDate(naturalDate string, now time.Time) (time.Time, error) {
	result, err := naturaldate.Parse(naturalDate, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date %q: %w", naturalDate, err)
	}
	slog.Debug("parsed natural language date", "input", naturalDate, "result", result)
	return result, nil
}

func beginningOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// beginningOfWeek returns Monday 00:00 of t's week.
func beginningOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return beginningOfDay(t.AddDate(0, 0, -offset))
}

func beginningOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
