package config

import (
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

// MockXDGDirs points config discovery at fixed paths
type MockXDGDirs struct {
	configPaths  []string
	libraryPaths []string
	cacheDir     string
	stateDir     string
}

func (m *MockXDGDirs) GetConfigPaths(filename string) []string { return m.configPaths }
func (m *MockXDGDirs) GetLibraryPaths() []string { return m.libraryPaths }
func (m *MockXDGDirs) ExistingLibraryPaths() []string { return m.libraryPaths }

func (m *MockXDGDirs) GetCachePath(purpose string) string {
	return filepath.Join(m.cacheDir, purpose)
}

func (m *MockXDGDirs) GetStatePath(purpose string) string {
	return filepath.Join(m.stateDir, purpose)
}

func newTestManager(env map[string]string) (*ConfigManager, afero.Fs) {
	fs := afero.NewMemMapFs()
	cm := NewConfigManagerWithFilesystem(fs)
	cm.xdg = &MockXDGDirs{
		configPaths: []string{"/home/user/.config/segue/config.json", "/etc/xdg/segue/config.json"},
		cacheDir:    "/home/user/.cache/segue",
		stateDir:    "/home/user/.local/state/segue",
	}
	cm.getenv = func(key string) string { return env[key] }
	return cm, fs
}

func TestDefaultConfigIsValid(t *testing.T) {
	cm, _ := newTestManager(nil)
	config := cm.GetDefaultConfig()

	if err := cm.ValidateConfig(config); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if config.FadeDuration != 1.0 {
		t.Errorf("default fade duration = %v, want 1.0", config.FadeDuration)
	}
	if config.CrossfadeDuration != 1.0 {
		t.Errorf("default crossfade duration = %v, want 1.0", config.CrossfadeDuration)
	}
	if config.AudioBackend != "auto" {
		t.Errorf("default backend = %q, want auto", config.AudioBackend)
	}
	if config.EventTracking == nil || !config.EventTracking.Enabled {
		t.Error("event tracking should be enabled by default")
	}
}

func TestLoadFromFileKeepsDefaultsForMissingKeys(t *testing.T) {
	cm, fs := newTestManager(nil)
	path := "/cfg/config.json"
	if err := afero.WriteFile(fs, path, []byte(`{"volume": 0.4, "bgm_fade_duration": 2.5}`), 0644); err != nil {
		t.Fatal(err)
	}

	config, err := cm.LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if config.Volume != 0.4 {
		t.Errorf("volume = %v, want 0.4", config.Volume)
	}
	if config.FadeDuration != 2.5 {
		t.Errorf("fade = %v, want 2.5", config.FadeDuration)
	}
	if config.SFXVolume != 1.0 {
		t.Errorf("sfx_volume should keep its default, got %v", config.SFXVolume)
	}
	if config.FileLogging == nil || config.FileLogging.MaxSizeMB != 10 {
		t.Errorf("file logging defaults lost: %+v", config.FileLogging)
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	cm, fs := newTestManager(nil)

	if _, err := cm.LoadFromFile("/missing.json"); err == nil {
		t.Error("expected error for a missing file")
	}

	_ = afero.WriteFile(fs, "/bad.json", []byte(`{"volume":`), 0644)
	if _, err := cm.LoadFromFile("/bad.json"); err == nil || !strings.Contains(err.Error(), "parse") {
		t.Errorf("expected parse error, got %v", err)
	}

	_ = afero.WriteFile(fs, "/invalid.json", []byte(`{"volume": 3}`), 0644)
	if _, err := cm.LoadFromFile("/invalid.json"); err == nil || !strings.Contains(err.Error(), "volume") {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestLoadConfigDiscovery(t *testing.T) {
	cm, fs := newTestManager(nil)

	config, err := cm.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig without files: %v", err)
	}
	if config.Volume != 1.0 {
		t.Errorf("expected defaults without a config file, got volume %v", config.Volume)
	}

	_ = afero.WriteFile(fs, "/etc/xdg/segue/config.json", []byte(`{"volume": 0.2}`), 0644)
	_ = afero.WriteFile(fs, "/home/user/.config/segue/config.json", []byte(`{"volume": 0.7}`), 0644)

	config, err = cm.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if config.Volume != 0.7 {
		t.Errorf("user config should win, got volume %v", config.Volume)
	}
}

func TestSaveAndReload(t *testing.T) {
	cm, _ := newTestManager(nil)
	config := cm.GetDefaultConfig()
	config.Volume = 0.3
	config.LibraryPaths = []string{"/music"}
	config.RetargetOnSetVolume = true

	path := "/home/user/.config/segue/config.json"
	if err := cm.SaveToFile(config, path); err != nil {
		t.Fatalf("SaveToFile: %v", err)
	}

	loaded, err := cm.LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if loaded.Volume != 0.3 || !loaded.RetargetOnSetVolume || len(loaded.LibraryPaths) != 1 {
		t.Errorf("round trip lost values: %+v", loaded)
	}

	config.Volume = -1
	if err := cm.SaveToFile(config, path); err == nil {
		t.Error("saving an invalid config should fail")
	}
}

func TestValidateConfigCollectsErrors(t *testing.T) {
	cm, _ := newTestManager(nil)

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr []string
	}{
		{"valid", func(*Config) {}, nil},
		{"volume", func(c *Config) { c.Volume = 1.5 }, []string{"volume must be"}},
		{"sfx volume", func(c *Config) { c.SFXVolume = -0.1 }, []string{"sfx_volume"}},
		{"fade", func(c *Config) { c.FadeDuration = 0 }, []string{"bgm_fade_duration"}},
		{"crossfade", func(c *Config) { c.CrossfadeDuration = -2 }, []string{"crossfade_duration"}},
		{"tick rate", func(c *Config) { c.TickRate = 0 }, []string{"tick_rate"}},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, []string{"invalid log level"}},
		{"backend", func(c *Config) { c.AudioBackend = "alsa" }, []string{"invalid audio backend"}},
		{"system command music", func(c *Config) { c.AudioBackend = "system_command" }, []string{"cannot play music"}},
		{"sfx backend", func(c *Config) { c.SFXBackend = "nope" }, []string{"invalid sfx backend"}},
		{"file logging", func(c *Config) { c.FileLogging.MaxBackups = -1 }, []string{"max_backups"}},
		{"several", func(c *Config) {
			c.Volume = 2
			c.FadeDuration = -1
		}, []string{"volume must be", "bgm_fade_duration"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := cm.GetDefaultConfig()
			tt.mutate(config)
			err := cm.ValidateConfig(config)

			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q should mention %q", err, want)
				}
			}
		})
	}
}

func TestMergeConfigs(t *testing.T) {
	cm, _ := newTestManager(nil)
	base := cm.GetDefaultConfig()

	merged := cm.MergeConfigs(base, &Config{Volume: 0.5, AudioBackend: "null", LibraryFile: "/lib.json"})
	if merged.Volume != 0.5 || merged.AudioBackend != "null" || merged.LibraryFile != "/lib.json" {
		t.Errorf("overrides not applied: %+v", merged)
	}
	if merged.FadeDuration != base.FadeDuration {
		t.Errorf("zero override should keep base fade, got %v", merged.FadeDuration)
	}
	if base.Volume != 1.0 {
		t.Error("MergeConfigs must not modify base")
	}
}

func TestApplyEnvironmentOverrides(t *testing.T) {
	cm, _ := newTestManager(map[string]string{
		"SEGUE_VOLUME":         "0.25",
		"SEGUE_BACKEND":        "null",
		"SEGUE_LOG_LEVEL":      "debug",
		"SEGUE_FADE_DURATION":  "3",
		"SEGUE_EVENT_TRACKING": "false",
	})
	base := cm.GetDefaultConfig()
	result := cm.ApplyEnvironmentOverrides(base)

	if result.Volume != 0.25 {
		t.Errorf("volume = %v", result.Volume)
	}
	if result.AudioBackend != "null" {
		t.Errorf("backend = %q", result.AudioBackend)
	}
	if result.LogLevel != "debug" {
		t.Errorf("log level = %q", result.LogLevel)
	}
	if result.FadeDuration != 3 {
		t.Errorf("fade = %v", result.FadeDuration)
	}
	if result.EventTracking.Enabled {
		t.Error("SEGUE_EVENT_TRACKING=false should disable tracking")
	}
	if !base.EventTracking.Enabled {
		t.Error("overrides must not modify the input config")
	}
}

func TestApplyEnvironmentOverridesIgnoresInvalid(t *testing.T) {
	cm, _ := newTestManager(map[string]string{
		"SEGUE_VOLUME":         "loud",
		"SEGUE_BACKEND":        "alsa",
		"SEGUE_FADE_DURATION":  "-1",
		"SEGUE_EVENT_TRACKING": "maybe",
	})
	result := cm.ApplyEnvironmentOverrides(cm.GetDefaultConfig())

	if result.Volume != 1.0 || result.AudioBackend != "auto" || result.FadeDuration != 1.0 {
		t.Errorf("invalid env values should be ignored: %+v", result)
	}
	if !result.EventTracking.Enabled {
		t.Error("invalid SEGUE_EVENT_TRACKING should keep the default")
	}
}

func TestEventTrackingEnvironmentOverrides(t *testing.T) {
	cm, _ := newTestManager(map[string]string{
		"SEGUE_EVENT_DB": "/tmp/journal.db",
		"SEGUE_SESSION":  "level-3",
	})
	base := cm.GetDefaultConfig()
	result := cm.ApplyEnvironmentOverrides(base)

	if result.EventTracking.DatabasePath != "/tmp/journal.db" {
		t.Errorf("database path = %q", result.EventTracking.DatabasePath)
	}
	if result.EventTracking.SessionLabel != "level-3" {
		t.Errorf("session label = %q", result.EventTracking.SessionLabel)
	}
	if got := cm.ResolveDatabasePath(result.EventTracking); got != "/tmp/journal.db" {
		t.Errorf("resolved database path = %q", got)
	}
	if base.EventTracking.SessionLabel != "" {
		t.Error("overrides must not modify the input config")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestResolvePaths(t *testing.T) {
	cm, _ := newTestManager(nil)

	if got := cm.ResolveLogFilePath(""); got != "/home/user/.cache/segue/logs/segue.log" {
		t.Errorf("default log path = %q", got)
	}
	if got := cm.ResolveLogFilePath("/tmp/x.log"); got != "/tmp/x.log" {
		t.Errorf("explicit log path = %q", got)
	}
	if got := cm.ResolveDatabasePath(nil); got != "/home/user/.local/state/segue/events.db" {
		t.Errorf("default db path = %q", got)
	}
	if got := cm.ResolveDatabasePath(&EventTrackingConfig{DatabasePath: "/data/e.db"}); got != "/data/e.db" {
		t.Errorf("explicit db path = %q", got)
	}
}
