package config

import (
	"log/slog"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/afero"
)

const appDir = "segue"

// libraryKinds are the per-user asset folders under the data directories.
var libraryKinds = []string{"music", "sfx"}

// XDGDirs locates segue's files under the XDG base directories.
type XDGDirs struct {
	fs afero.Fs
}

func NewXDGDirs(fs afero.Fs) *XDGDirs {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &XDGDirs{fs: fs}
}

// under joins segue's directory and elem onto base, skipping empty parts.
func under(base string, elem ...string) string {
	parts := []string{base, appDir}
	for _, e := range elem {
		if e != "" {
			parts = append(parts, e)
		}
	}
	return filepath.Join(parts...)
}

// GetConfigPaths returns where filename may live, user directory first.
func (x *XDGDirs) GetConfigPaths(filename string) []string {
	paths := []string{under(xdg.ConfigHome, filename)}
	for _, dir := range xdg.ConfigDirs {
		paths = append(paths, under(dir, filename))
	}
	return paths
}

// GetLibraryPaths returns the music and sfx folders of the user data dir,
// then of each system data dir.
func (x *XDGDirs) GetLibraryPaths() []string {
	var paths []string
	for _, base := range append([]string{xdg.DataHome}, xdg.DataDirs...) {
		for _, kind := range libraryKinds {
			paths = append(paths, under(base, kind))
		}
	}
	return paths
}

// ExistingLibraryPaths is GetLibraryPaths without the folders that do not exist.
func (x *XDGDirs) ExistingLibraryPaths() []string {
	var found []string
	for _, p := range x.GetLibraryPaths() {
		if ok, _ := afero.DirExists(x.fs, p); ok {
			found = append(found, p)
		}
	}
	slog.Debug("library folders found", "count", len(found))
	return found
}

// GetCachePath returns segue's cache directory, or a subdirectory of it.
func (x *XDGDirs) GetCachePath(purpose string) string {
	return under(xdg.CacheHome, purpose)
}

// GetStatePath returns segue's state directory, or a subdirectory of it.
// The event journal lives here because it should survive cache cleanup.
func (x *XDGDirs) GetStatePath(purpose string) string {
	return under(xdg.StateHome, purpose)
}
