// Package library resolves track names to audio files through configurable
// mapping strategies.
package library

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/afero"

	"segue.click/internal/audio"
)

// PathMapper maps a track name to candidate file paths
type PathMapper interface {
	MapPath(name string) ([]string, error)
	GetName() string
	GetType() string
}

// Resolver resolves tracks by trying the name as a path, then every
// mapper's candidates in order. Each candidate also gets extension fallback.
type Resolver struct {
	mappers []PathMapper
	files   *audio.FileResolver
}

// NewResolver creates a resolver over fs. A nil fs means the OS filesystem.
func NewResolver(fs afero.Fs, mappers ...PathMapper) *Resolver {
	for _, m := range mappers {
		slog.Debug("library mapper registered", "mapper_name", m.GetName(), "mapper_type", m.GetType())
	}
	return &Resolver{
		mappers: mappers,
		files:   audio.NewFileResolver(fs, nil),
	}
}

// Open builds the standard resolver: an optional JSON library file followed
// by the given directories.
func Open(fs afero.Fs, libraryFile string, dirs []string) (*Resolver, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	var mappers []PathMapper
	if libraryFile != "" {
		m, err := LoadJSONMapper(fs, libraryFile)
		if err != nil {
			return nil, err
		}
		mappers = append(mappers, m)
	}
	if len(dirs) > 0 {
		mappers = append(mappers, NewDirectoryMapper("library", dirs))
	}
	return NewResolver(fs, mappers...), nil
}

// ResolveTrack implements audio.TrackResolver.
func (r *Resolver) ResolveTrack(track audio.Track) (string, error) {
	if !track.IsSet() {
		return "", fmt.Errorf("%w: empty track name", audio.ErrTrackNotFound)
	}
	name := string(track)

	candidates := []string{name}
	if path, err := r.files.ResolveWithExtensions(name); err == nil {
		slog.Debug("track resolved as path", "track", name, "resolved_path", path)
		return path, nil
	}

	for _, m := range r.mappers {
		mapped, err := m.MapPath(name)
		if err != nil {
			return "", fmt.Errorf("path mapping failed: %w", err)
		}
		for i, candidate := range mapped {
			candidates = append(candidates, candidate)
			path, err := r.files.ResolveWithExtensions(candidate)
			if err == nil {
				slog.Debug("track resolved",
					"track", name,
					"resolved_path", path,
					"mapper_type", m.GetType(),
					"candidate_index", i)
				return path, nil
			}
		}
	}

	slog.Warn("track not resolved", "track", name, "candidates_checked", len(candidates))
	return "", &FileNotFoundError{Track: name, Paths: candidates}
}

// ResolveWithFallback returns the first of tracks that resolves
func (r *Resolver) ResolveWithFallback(tracks ...audio.Track) (string, error) {
	if len(tracks) == 0 {
		return "", errors.New("no fallback tracks provided")
	}
	var lastErr error
	for _, t := range tracks {
		path, err := r.ResolveTrack(t)
		if err == nil {
			return path, nil
		}
		lastErr = err
	}
	return "", lastErr
}

// Mappers returns the configured mappers in priority order
func (r *Resolver) Mappers() []PathMapper {
	return r.mappers
}

// FileNotFoundError reports a track that matched no file
type FileNotFoundError struct {
	Track string
	Paths []string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("track not found: %s (searched: %s)", e.Track, strings.Join(e.Paths, ", "))
}

// Is lets errors.Is match audio.ErrTrackNotFound.
func (e *FileNotFoundError) Is(target error) bool {
	return target == audio.ErrTrackNotFound
}

// IsFileNotFoundError checks if an error is a FileNotFoundError
func IsFileNotFoundError(err error) bool {
	var nf *FileNotFoundError
	return errors.As(err, &nf)
}
