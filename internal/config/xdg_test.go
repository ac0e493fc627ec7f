package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func TestXDGConfigPaths(t *testing.T) {
	x := NewXDGDirs(afero.NewMemMapFs())

	paths := x.GetConfigPaths("config.json")
	if len(paths) == 0 {
		t.Fatal("GetConfigPaths returned no paths")
	}
	for _, p := range paths {
		if !filepath.IsAbs(p) {
			t.Errorf("path %q should be absolute", p)
		}
		if !strings.HasSuffix(p, filepath.Join("segue", "config.json")) {
			t.Errorf("path %q should end in segue/config.json", p)
		}
	}

	dirs := x.GetConfigPaths("")
	if !strings.HasSuffix(dirs[0], "segue") {
		t.Errorf("directory path %q should end in segue", dirs[0])
	}
}

func TestXDGLibraryPaths(t *testing.T) {
	x := NewXDGDirs(nil)
	paths := x.GetLibraryPaths()
	if len(paths)%2 != 0 || len(paths) == 0 {
		t.Fatalf("expected music and sfx per data dir, got %v", paths)
	}
	if !strings.HasSuffix(paths[0], filepath.Join("segue", "music")) || !strings.HasSuffix(paths[1], filepath.Join("segue", "sfx")) {
		t.Errorf("unexpected user library paths %q, %q", paths[0], paths[1])
	}
}

func TestXDGExistingLibraryPaths(t *testing.T) {
	fs := afero.NewMemMapFs()
	x := NewXDGDirs(fs)

	if got := x.ExistingLibraryPaths(); len(got) != 0 {
		t.Fatalf("empty filesystem should have no library folders, got %v", got)
	}

	sfx := x.GetLibraryPaths()[1]
	if err := fs.MkdirAll(sfx, 0o755); err != nil {
		t.Fatal(err)
	}
	got := x.ExistingLibraryPaths()
	if len(got) != 1 || got[0] != sfx {
		t.Errorf("ExistingLibraryPaths() = %v, want [%s]", got, sfx)
	}
}

func TestXDGCacheAndStatePaths(t *testing.T) {
	x := NewXDGDirs(nil)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"cache root", x.GetCachePath(""), "segue"},
		{"cache logs", x.GetCachePath("logs"), filepath.Join("segue", "logs")},
		{"state root", x.GetStatePath(""), "segue"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !filepath.IsAbs(tt.got) || !strings.HasSuffix(tt.got, tt.want) {
				t.Errorf("path %q should be absolute and end in %s", tt.got, tt.want)
			}
		})
	}
	if x.GetCachePath("") == x.GetStatePath("") {
		t.Error("cache and state directories should differ")
	}
}
