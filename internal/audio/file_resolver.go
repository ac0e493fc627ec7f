package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"
)

// DefaultExtensions lists audio extensions in lookup priority order.
var DefaultExtensions = []string{".wav", ".mp3", ".ogg", ".aiff", ".aif"}

var errEmptyPath = errors.New("base path cannot be empty")

// FileResolver finds the file behind an extensionless track path.
type FileResolver struct {
	fs   afero.Fs
	exts []string
}

// NewFileResolver creates a resolver over fs trying extensions in order.
// A nil fs means the OS filesystem and no extensions means DefaultExtensions.
func NewFileResolver(fs afero.Fs, extensions []string) *FileResolver {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	exts := make([]string, len(extensions))
	for i, ext := range extensions {
		exts[i] = "." + strings.ToLower(strings.TrimPrefix(ext, "."))
	}
	return &FileResolver{fs: fs, exts: exts}
}

// ResolveWithExtensions returns basePath when it names a file. Otherwise a
// path without a known audio extension is tried with each extension in turn.
func (f *FileResolver) ResolveWithExtensions(basePath string) (string, error) {
	if basePath == "" {
		return "", errEmptyPath
	}
	if f.isFile(basePath) {
		return basePath, nil
	}
	if slices.Contains(f.exts, strings.ToLower(filepath.Ext(basePath))) {
		return "", fmt.Errorf("%w: %s", ErrTrackNotFound, basePath)
	}

	for _, ext := range f.exts {
		if candidate := basePath + ext; f.isFile(candidate) {
			slog.Debug("file resolved", "base_path", basePath, "resolved_path", candidate)
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: no file for %s with extensions %v", ErrTrackNotFound, basePath, f.exts)
}

func (f *FileResolver) isFile(path string) bool {
	info, err := f.fs.Stat(path)
	return err == nil && !info.IsDir()
}
