package tracking

import (
	"context"
	"log/slog"

	"segue.click/internal/event"
)

// SlogHook mirrors playback events into a logger. Errors log at warn,
// everything else at debug.
type SlogHook struct {
	logger *slog.Logger
}

// NewSlogHook logs to logger, or to slog.Default when it is nil.
func NewSlogHook(logger *slog.Logger) *SlogHook {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogHook{logger: logger}
}

func (s *SlogHook) Hook() event.Hook {
	return s.log
}

func (s *SlogHook) log(e event.Event) {
	level := slog.LevelDebug
	if e.Kind == event.KindError {
		level = slog.LevelWarn
	}
	if !s.logger.Enabled(context.Background(), level) {
		return
	}

	attrs := []slog.Attr{
		slog.String("source", string(e.Source)),
		slog.String("kind", string(e.Kind)),
	}
	if e.Track != "" {
		attrs = append(attrs, slog.String("track", e.Track))
	}
	if e.Kind != event.KindPause && e.Kind != event.KindResume {
		attrs = append(attrs, slog.Float64("volume", e.Volume))
	}
	if e.Duration > 0 {
		attrs = append(attrs, slog.Float64("duration", e.Duration))
	}
	if e.Detail != "" {
		attrs = append(attrs, slog.String("detail", e.Detail))
	}
	s.logger.LogAttrs(context.Background(), level, "playback event", attrs...)
}
