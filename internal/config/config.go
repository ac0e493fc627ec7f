package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"segue.click/internal/audio"
)

// FileLoggingConfig controls the rotating log file
type FileLoggingConfig struct {
	Enabled    bool   `json:"enabled"`      // Whether file logging is enabled
	Filename   string `json:"filename"`     // Log file path (empty = XDG cache path)
	MaxSizeMB  int    `json:"max_size_mb"`  // Max file size in MB before rotation
	MaxBackups int    `json:"max_backups"`  // Max number of backup files to keep
	MaxAgeDays int    `json:"max_age_days"` // Max age in days before deletion
	Compress   bool   `json:"compress"`     // Whether to compress rotated files
	Verbose    bool   `json:"verbose"`      // Write debug records to the file regardless of log_level
}

// Config is the user configuration read from config.json
type Config struct {
	Volume              float64              `json:"volume"`                 // Initial music volume (0.0 to 1.0)
	SFXVolume           float64              `json:"sfx_volume"`             // Default one-shot volume
	FadeDuration        float64              `json:"bgm_fade_duration"`      // Play/Stop fade in seconds
	CrossfadeDuration   float64              `json:"crossfade_duration"`     // Default crossfade in seconds
	RetargetOnSetVolume bool                 `json:"retarget_on_set_volume"` // SetVolume moves in-flight fade targets
	AudioBackend        string               `json:"audio_backend"`          // Music backend kind
	SFXBackend          string               `json:"sfx_backend"`            // Optional effects backend kind
	TickRate            float64              `json:"tick_rate"`              // Clock ticks per second
	LibraryPaths        []string             `json:"library_paths"`          // Directories searched for tracks
	LibraryFile         string               `json:"library_file"`           // JSON track library
	LogLevel            string               `json:"log_level"`              // Log level (debug, info, warn, error)
	FileLogging         *FileLoggingConfig   `json:"file_logging,omitempty"`
	EventTracking       *EventTrackingConfig `json:"event_tracking,omitempty"`
}

// XDGInterface locates configuration, library, cache and state directories
type XDGInterface interface {
	GetConfigPaths(filename string) []string
	GetLibraryPaths() []string
	ExistingLibraryPaths() []string
	GetCachePath(purpose string) string
	GetStatePath(purpose string) string
}

// ConfigManager reads, writes and checks configuration on an afero filesystem
type ConfigManager struct {
	xdg    XDGInterface
	fs     afero.Fs
	getenv func(string) string
}

// NewConfigManager creates a configuration manager on the OS filesystem
func NewConfigManager() *ConfigManager {
	return NewConfigManagerWithFilesystem(afero.NewOsFs())
}

// NewConfigManagerWithFilesystem creates a configuration manager on fs
func NewConfigManagerWithFilesystem(fs afero.Fs) *ConfigManager {
	slog.Debug("config manager ready")
	return &ConfigManager{
		xdg:    NewXDGDirs(fs),
		fs:     fs,
		getenv: os.Getenv,
	}
}

// XDG returns the directory helper used by the manager
func (cm *ConfigManager) XDG() XDGInterface {
	return cm.xdg
}

// GetDefaultConfig returns a fresh copy of the built-in defaults
func (cm *ConfigManager) GetDefaultConfig() *Config {
	defaultConfig := &Config{
		Volume:              1.0,
		SFXVolume:           1.0,
		FadeDuration:        1.0,
		CrossfadeDuration:   1.0,
		RetargetOnSetVolume: false,
		AudioBackend:        audio.KindAuto,
		SFXBackend:          "",
		TickRate:            60,
		LibraryPaths:        []string{}, // XDG paths will be used
		LogLevel:            "warn",
		FileLogging: &FileLoggingConfig{
			Enabled:    true,
			Filename:   "", // Empty = XDG cache path
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
		EventTracking: GetDefaultEventTrackingConfig(),
	}

	slog.Debug("default config",
		"volume", defaultConfig.Volume,
		"fade_duration", defaultConfig.FadeDuration,
		"audio_backend", defaultConfig.AudioBackend,
		"log_level", defaultConfig.LogLevel)

	return defaultConfig
}

// LoadFromFile loads configuration from a specific file. Keys missing from the
// file keep their default values.
func (cm *ConfigManager) LoadFromFile(filePath string) (*Config, error) {
	slog.Debug("reading config", "file_path", filePath)

	data, err := afero.ReadFile(cm.fs, filePath)
	if err != nil {
		slog.Error("failed to read config file", "file_path", filePath, "error", err)
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := cm.GetDefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		slog.Error("failed to parse config JSON", "file_path", filePath, "error", err)
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cm.ValidateConfig(config); err != nil {
		return nil, err
	}

	slog.Debug("config loaded",
		"file_path", filePath,
		"volume", config.Volume,
		"audio_backend", config.AudioBackend)

	return config, nil
}

// SaveToFile validates config and writes it as indented JSON
func (cm *ConfigManager) SaveToFile(config *Config, filePath string) error {
	slog.Debug("writing config", "file_path", filePath)

	if err := cm.ValidateConfig(config); err != nil {
		return fmt.Errorf("cannot save invalid config: %w", err)
	}

	dir := filepath.Dir(filePath)
	if err := cm.fs.MkdirAll(dir, 0755); err != nil {
		slog.Error("failed to create config directory", "directory", dir, "error", err)
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := afero.WriteFile(cm.fs, filePath, data, 0644); err != nil {
		slog.Error("failed to write config file", "file_path", filePath, "error", err)
		return fmt.Errorf("failed to write config file: %w", err)
	}

	slog.Info("config written", "file_path", filePath)
	return nil
}

// LoadConfig loads the first config.json found on the XDG config path, or
// the defaults when there is none
func (cm *ConfigManager) LoadConfig() (*Config, error) {
	configPaths := cm.xdg.GetConfigPaths("config.json")
	slog.Debug("looking for config file", "paths", configPaths)

	for i, configPath := range configPaths {
		if _, err := cm.fs.Stat(configPath); err == nil {
			slog.Debug("found config file", "path_index", i, "path", configPath)
			return cm.LoadFromFile(configPath)
		}
	}

	slog.Debug("no config file, using defaults")
	return cm.GetDefaultConfig(), nil
}

func finitePositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

func unitRange(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

// problems collects validation failures so they can be reported together
type problems []string

func (p *problems) check(ok bool, format string, args ...any) {
	if !ok {
		*p = append(*p, fmt.Sprintf(format, args...))
	}
}

// ValidateConfig reports every invalid field of config in one error
func (cm *ConfigManager) ValidateConfig(config *Config) error {
	var p problems

	p.check(unitRange(config.Volume), "volume must be between 0.0 and 1.0, got %v", config.Volume)
	p.check(unitRange(config.SFXVolume), "sfx_volume must be between 0.0 and 1.0, got %v", config.SFXVolume)
	p.check(finitePositive(config.FadeDuration), "bgm_fade_duration must be a positive number of seconds, got %v", config.FadeDuration)
	p.check(finitePositive(config.CrossfadeDuration), "crossfade_duration must be a positive number of seconds, got %v", config.CrossfadeDuration)
	p.check(finitePositive(config.TickRate), "tick_rate must be positive, got %v", config.TickRate)

	if config.LogLevel != "" {
		_, err := ParseLogLevel(config.LogLevel)
		p.check(err == nil, "%v", err)
	}

	backends := strings.Join(audio.SupportedBackends(), ", ")
	p.check(audio.IsValidBackendType(config.AudioBackend),
		"invalid audio backend '%s', must be one of: %s", config.AudioBackend, backends)
	p.check(config.AudioBackend != audio.KindSystemCommand,
		"audio backend 'system_command' cannot play music; use it as sfx_backend")
	p.check(audio.IsValidBackendType(config.SFXBackend),
		"invalid sfx backend '%s', must be one of: %s", config.SFXBackend, backends)

	if fl := config.FileLogging; fl != nil {
		p.check(fl.MaxSizeMB >= 0, "file_logging.max_size_mb must be >= 0, got %d", fl.MaxSizeMB)
		p.check(fl.MaxBackups >= 0, "file_logging.max_backups must be >= 0, got %d", fl.MaxBackups)
		p.check(fl.MaxAgeDays >= 0, "file_logging.max_age_days must be >= 0, got %d", fl.MaxAgeDays)
	}

	if len(p) > 0 {
		msg := strings.Join(p, "; ")
		slog.Error("invalid configuration", "problems", msg)
		return fmt.Errorf("config validation failed: %s", msg)
	}
	return nil
}

// MergeConfigs merges two configurations, with override taking precedence.
// Only non-zero override values apply.
func (cm *ConfigManager) MergeConfigs(base, override *Config) *Config {
	merged := *base

	if override.Volume != 0.0 {
		merged.Volume = override.Volume
	}
	if override.SFXVolume != 0.0 {
		merged.SFXVolume = override.SFXVolume
	}
	if override.FadeDuration != 0.0 {
		merged.FadeDuration = override.FadeDuration
	}
	if override.CrossfadeDuration != 0.0 {
		merged.CrossfadeDuration = override.CrossfadeDuration
	}
	if override.RetargetOnSetVolume {
		merged.RetargetOnSetVolume = true
	}
	if override.AudioBackend != "" {
		merged.AudioBackend = override.AudioBackend
	}
	if override.SFXBackend != "" {
		merged.SFXBackend = override.SFXBackend
	}
	if override.TickRate != 0 {
		merged.TickRate = override.TickRate
	}
	if len(override.LibraryPaths) > 0 {
		merged.LibraryPaths = override.LibraryPaths
	}
	if override.LibraryFile != "" {
		merged.LibraryFile = override.LibraryFile
	}
	if override.LogLevel != "" {
		merged.LogLevel = override.LogLevel
	}
	if override.FileLogging != nil {
		merged.FileLogging = override.FileLogging
	}
	if override.EventTracking != nil {
		merged.EventTracking = override.EventTracking
	}

	slog.Debug("configurations merged")
	return &merged
}

// ApplyEnvironmentOverrides applies SEGUE_* environment variables to a copy of config
func (cm *ConfigManager) ApplyEnvironmentOverrides(config *Config) *Config {
	result := *config

	if volStr := cm.getenv("SEGUE_VOLUME"); volStr != "" {
		if vol, err := strconv.ParseFloat(volStr, 64); err == nil {
			result.Volume = vol
			slog.Debug("applied volume override from environment", "value", vol)
		} else {
			slog.Warn("invalid SEGUE_VOLUME environment variable", "value", volStr, "error", err)
		}
	}

	if fadeStr := cm.getenv("SEGUE_FADE_DURATION"); fadeStr != "" {
		if fade, err := strconv.ParseFloat(fadeStr, 64); err == nil && finitePositive(fade) {
			result.FadeDuration = fade
			slog.Debug("applied fade duration override from environment", "value", fade)
		} else {
			slog.Warn("invalid SEGUE_FADE_DURATION environment variable", "value", fadeStr)
		}
	}

	if logLevel := cm.getenv("SEGUE_LOG_LEVEL"); logLevel != "" {
		result.LogLevel = logLevel
		slog.Debug("applied log level override from environment", "value", logLevel)
	}

	if backend := cm.getenv("SEGUE_BACKEND"); backend != "" {
		if audio.IsValidBackendType(backend) {
			result.AudioBackend = backend
			slog.Debug("applied audio backend override from environment", "value", backend)
		} else {
			slog.Warn("invalid SEGUE_BACKEND environment variable", "value", backend)
		}
	}

	tracking := GetDefaultEventTrackingConfig()
	if config.EventTracking != nil {
		tracking = config.EventTracking
	}
	result.EventTracking = applyEventTrackingOverrides(tracking, cm.getenv)

	return &result
}

// ParseLogLevel maps a config log level to a slog.Level
func ParseLogLevel(logLevel string) (slog.Level, error) {
	switch strings.ToLower(logLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level '%s', must be one of: debug, info, warn, error", logLevel)
	}
}

// ResolveLogFilePath resolves the log file path using XDG cache directory when filename is empty
func (cm *ConfigManager) ResolveLogFilePath(filename string) string {
	if filename != "" {
		return filename
	}
	return filepath.Join(cm.xdg.GetCachePath("logs"), "segue.log")
}

// ResolveDatabasePath resolves the event journal path, defaulting to the XDG state directory
func (cm *ConfigManager) ResolveDatabasePath(tracking *EventTrackingConfig) string {
	if tracking != nil && tracking.DatabasePath != "" {
		return tracking.DatabasePath
	}
	return filepath.Join(cm.xdg.GetStatePath(""), "events.db")
}
