package library

import (
	"log/slog"
	"path/filepath"
	"strings"
)

// DirectoryMapper looks for a track name under each of its folders in order.
type DirectoryMapper struct {
	name string
	dirs []string
}

func NewDirectoryMapper(name string, dirs []string) *DirectoryMapper {
	slog.Debug("creating directory mapper", "name", name, "dirs", dirs)
	return &DirectoryMapper{name: name, dirs: dirs}
}

// MapPath joins name onto every folder. Names that would leave the folders
// map to nothing.
func (d *DirectoryMapper) MapPath(name string) ([]string, error) {
	rel, ok := localName(name)
	if !ok {
		return nil, nil
	}
	candidates := make([]string, len(d.dirs))
	for i, dir := range d.dirs {
		candidates[i] = filepath.Join(dir, rel)
	}
	return candidates, nil
}

func (d *DirectoryMapper) GetName() string { return d.name }

func (d *DirectoryMapper) GetType() string { return "directory" }

// localName strips control characters from name and reports whether what is
// left stays inside a folder it is joined to.
func localName(name string) (string, bool) {
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	if name == "" {
		return "", false
	}
	if !filepath.IsLocal(name) {
		slog.Warn("rejecting track name outside the library", "name", name)
		return "", false
	}
	return filepath.Clean(name), true
}
