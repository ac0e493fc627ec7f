package library

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"segue.click/internal/audio"
)

// Entry is one track found by Scan
type Entry struct {
	Name string // slash-separated path below the scanned directory, without extension
	Path string // path relative to the scanned directory
}

func isAudioFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range audio.DefaultExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Scan walks dir and returns every audio file sorted by name. When several
// files share a name, the extension listed first in audio.DefaultExtensions wins.
func Scan(fs afero.Fs, dir string) ([]Entry, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}

	rank := func(path string) int {
		ext := strings.ToLower(filepath.Ext(path))
		for i, e := range audio.DefaultExtensions {
			if e == ext {
				return i
			}
		}
		return len(audio.DefaultExtensions)
	}

	byName := make(map[string]string)
	err := afero.Walk(fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !isAudioFile(path) {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))
		if prev, ok := byName[name]; !ok || rank(rel) < rank(prev) {
			byName[name] = rel
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}

	entries := make([]Entry, 0, len(byName))
	for name, rel := range byName {
		entries = append(entries, Entry{Name: name, Path: rel})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	slog.Debug("library directory scanned", "dir", dir, "tracks", len(entries))
	return entries, nil
}

// WriteJSON stores entries as a library file readable by LoadJSONMapper.
// Paths stay relative, so the file should sit in the scanned directory.
func WriteJSON(fs afero.Fs, path string, entries []Entry) error {
	mapping := make(map[string]string, len(entries))
	for _, e := range entries {
		mapping[e.Name] = filepath.ToSlash(e.Path)
	}
	data, err := json.MarshalIndent(mapping, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal library: %w", err)
	}
	if err := afero.WriteFile(fs, path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write library file: %w", err)
	}
	slog.Info("library file written", "path", path, "tracks", len(entries))
	return nil
}
