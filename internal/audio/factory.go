package audio

import (
	"errors"
	"fmt"
	"log/slog"
)

// Backend kinds accepted by the factory and the config file.
const (
	KindAuto          = "auto"
	KindMalgo         = "malgo"
	KindOto           = "oto"
	KindBeep          = "beep"
	KindEbiten        = "ebiten"
	KindSystemCommand = "system_command"
	KindNull          = "null"
)

// Factory errors
var (
	ErrInvalidBackendType    = errors.New("invalid backend type")
	ErrBackendCreationFailed = errors.New("backend creation failed")
	ErrCGORequired           = errors.New("audio device backends require a cgo-enabled build (CGO_ENABLED=1 and a C toolchain)")
)

// Constructor builds a backend that decodes tracks through loader.
type Constructor func(loader *TrackLoader) (Backend, error)

// BackendFactory creates backends by kind with platform detection for "auto".
type BackendFactory struct {
	loader        *TrackLoader
	isWSLFunc     func() bool
	commandExists func(string) bool
	constructors  map[string]Constructor
}

// NewBackendFactory creates a factory with real platform detection.
func NewBackendFactory(loader *TrackLoader) *BackendFactory {
	return NewBackendFactoryWithDependencies(loader, IsWSL, CommandExists)
}

// NewBackendFactoryWithDependencies creates a factory with injected platform probes.
func NewBackendFactoryWithDependencies(loader *TrackLoader, isWSLFunc func() bool, commandExists func(string) bool) *BackendFactory {
	if loader == nil {
		loader = NewTrackLoader(nil, nil, nil)
	}
	f := &BackendFactory{
		loader:        loader,
		isWSLFunc:     isWSLFunc,
		commandExists: commandExists,
	}
	f.constructors = map[string]Constructor{
		KindMalgo:  func(l *TrackLoader) (Backend, error) { return NewMalgoBackend(l) },
		KindOto:    func(l *TrackLoader) (Backend, error) { return NewOtoBackend(l) },
		KindBeep:   func(l *TrackLoader) (Backend, error) { return NewBeepBackend(l) },
		KindEbiten: func(l *TrackLoader) (Backend, error) { return NewEbitenBackend(l) },
		KindNull:   func(l *TrackLoader) (Backend, error) { return NewNullBackend(l), nil },
		KindSystemCommand: func(l *TrackLoader) (Backend, error) {
			cmd := firstCommand(f.commandExists)
			if cmd == "" {
				return nil, fmt.Errorf("%w: no system audio commands found", ErrBackendNotAvailable)
			}
			return NewSystemCommandBackend(l, cmd), nil
		},
	}
	return f
}

// Register installs or replaces the constructor for kind.
func (f *BackendFactory) Register(kind string, ctor Constructor) {
	f.constructors[kind] = ctor
}

// Loader returns the loader handed to every backend.
func (f *BackendFactory) Loader() *TrackLoader {
	return f.loader
}

// SupportedBackends lists every kind the factory accepts.
func SupportedBackends() []string {
	return []string{KindAuto, KindMalgo, KindOto, KindBeep, KindEbiten, KindSystemCommand, KindNull}
}

// IsValidBackendType reports whether kind is supported. Empty means auto.
func IsValidBackendType(kind string) bool {
	if kind == "" {
		return true
	}
	for _, k := range SupportedBackends() {
		if k == kind {
			return true
		}
	}
	return false
}

// ResolveKinds replaces "auto" with concrete kinds. Effects follow the music
// backend unless platform detection prefers something else.
func (f *BackendFactory) ResolveKinds(bgmKind, sfxKind string) (string, string, error) {
	if bgmKind == "" {
		bgmKind = KindAuto
	}
	if sfxKind == "" {
		sfxKind = KindAuto
	}
	for _, k := range []string{bgmKind, sfxKind} {
		if !IsValidBackendType(k) {
			return "", "", fmt.Errorf("%w: %s", ErrInvalidBackendType, k)
		}
	}
	if bgmKind == KindSystemCommand {
		return "", "", fmt.Errorf("%w: %s cannot play music", ErrChannelsNotSupported, bgmKind)
	}

	detectedBGM, detectedSFX := platformKinds(f.isWSLFunc(), f.commandExists)
	if bgmKind == KindAuto {
		bgmKind = detectedBGM
	}
	if sfxKind == KindAuto {
		sfxKind = bgmKind
		if detectedSFX == KindSystemCommand && bgmKind != KindNull {
			sfxKind = detectedSFX
		}
	}

	slog.Debug("backend kinds resolved", "bgm", bgmKind, "sfx", sfxKind)
	return bgmKind, sfxKind, nil
}

// CreateBackend creates one backend of a concrete or auto kind.
func (f *BackendFactory) CreateBackend(kind string) (Backend, error) {
	if kind == "" || kind == KindAuto {
		resolved, _, err := f.ResolveKinds(KindAuto, KindAuto)
		if err != nil {
			return nil, err
		}
		kind = resolved
	}

	ctor, ok := f.constructors[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidBackendType, kind)
	}

	slog.Debug("creating audio backend", "type", kind)
	backend, err := ctor(f.loader)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBackendCreationFailed, kind, err)
	}
	return backend, nil
}

// BackendSet holds the music and effects backends. They may be the same value.
type BackendSet struct {
	BGM Backend
	SFX Backend
}

// Close closes each distinct backend once.
func (s *BackendSet) Close() error {
	var errs []error
	if s.BGM != nil {
		errs = append(errs, s.BGM.Close())
	}
	if s.SFX != nil && s.SFX != s.BGM {
		errs = append(errs, s.SFX.Close())
	}
	return errors.Join(errs...)
}

// CreateBackends builds the music and effects backends, sharing one instance
// when both resolve to the same kind.
func (f *BackendFactory) CreateBackends(bgmKind, sfxKind string) (*BackendSet, error) {
	bgmKind, sfxKind, err := f.ResolveKinds(bgmKind, sfxKind)
	if err != nil {
		return nil, err
	}

	bgm, err := f.CreateBackend(bgmKind)
	if err != nil {
		return nil, err
	}
	set := &BackendSet{BGM: bgm, SFX: bgm}
	if sfxKind == bgmKind {
		return set, nil
	}

	sfx, err := f.CreateBackend(sfxKind)
	if err != nil {
		slog.Warn("effects backend unavailable, sharing music backend", "sfx", sfxKind, "error", err)
		return set, nil
	}
	set.SFX = sfx
	return set, nil
}
