package library

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"

	"github.com/spf13/afero"
)

// JSONMapper serves the entries of a library file: a JSON object from track
// name to file path.
type JSONMapper struct {
	file    string
	entries map[string]string
}

// LoadJSONMapper reads the library file at path. Relative entries are
// anchored at the file's directory; empty entries are kept but map to nothing.
func LoadJSONMapper(fs afero.Fs, path string) (*JSONMapper, error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read library file: %w", err)
	}

	entries := make(map[string]string)
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse library file %s: %w", path, err)
	}

	base := filepath.Dir(path)
	for name, target := range entries {
		if target == "" || filepath.IsAbs(target) {
			continue
		}
		entries[name] = filepath.Join(base, target)
	}

	slog.Info("library file loaded", "path", path, "tracks", len(entries))
	return &JSONMapper{file: filepath.Base(path), entries: entries}, nil
}

func (j *JSONMapper) MapPath(name string) ([]string, error) {
	target := j.entries[name]
	if target == "" {
		return nil, nil
	}
	return []string{target}, nil
}

// Names lists the track names in sorted order
func (j *JSONMapper) Names() []string {
	return slices.Sorted(maps.Keys(j.entries))
}

func (j *JSONMapper) GetName() string { return j.file }

func (j *JSONMapper) GetType() string { return "json" }
