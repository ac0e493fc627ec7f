package config

import (
	"log/slog"
	"strconv"
)

// EventTrackingConfig controls the playback event journal
type EventTrackingConfig struct {
	Enabled      bool   `json:"enabled"`
	DatabasePath string `json:"database_path"` // empty = XDG state path
	// SessionLabel names the session in the journal instead of a random
	// UUID, so runs of one scene or level group together under analyze --session.
	SessionLabel string `json:"session_label,omitempty"`
}

// GetDefaultEventTrackingConfig returns journaling on, at the default path
func GetDefaultEventTrackingConfig() *EventTrackingConfig {
	return &EventTrackingConfig{Enabled: true}
}

// applyEventTrackingOverrides reads SEGUE_EVENT_TRACKING, SEGUE_EVENT_DB and
// SEGUE_SESSION onto a copy of config.
func applyEventTrackingOverrides(config *EventTrackingConfig, getenv func(string) string) *EventTrackingConfig {
	result := *config

	if v := getenv("SEGUE_EVENT_TRACKING"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("invalid SEGUE_EVENT_TRACKING environment variable", "value", v, "error", err)
		} else {
			result.Enabled = enabled
		}
	}
	if v := getenv("SEGUE_EVENT_DB"); v != "" {
		result.DatabasePath = v
	}
	if v := getenv("SEGUE_SESSION"); v != "" {
		result.SessionLabel = v
	}

	slog.Debug("event tracking settings",
		"enabled", result.Enabled,
		"database_path", result.DatabasePath,
		"session_label", result.SessionLabel)
	return &result
}
