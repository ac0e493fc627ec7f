package audio

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileResolverWithExtensions(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/music/theme.mp3", []byte("x"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/music/theme.ogg", []byte("x"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/music/exact.wav", []byte("x"), 0o644))
	require.NoError(t, fs.MkdirAll("/music/folder.wav", 0o755))

	resolver := NewFileResolver(fs, nil)

	testCases := []struct {
		name    string
		base    string
		want    string
		wantErr bool
	}{
		{"extension priority", "/music/theme", "/music/theme.mp3", false},
		{"exact path", "/music/exact.wav", "/music/exact.wav", false},
		{"missing with extension", "/music/exact.mp3", "", true},
		{"directory is not a file", "/music/folder", "", true},
		{"empty", "", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := resolver.ResolveWithExtensions(tc.base)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTrackLoaderLoadFormatCaches(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeWAV(t, fs, "/music/menu.wav", 22050, 100)

	loader := NewTrackLoader(fs, nil, nil)

	pcm, err := loader.LoadFormat("/music/menu", OutputSampleRate, OutputChannels)
	require.NoError(t, err)
	assert.Equal(t, OutputSampleRate, pcm.SampleRate)
	assert.Equal(t, OutputChannels, pcm.Channels)
	assert.Equal(t, 200, pcm.Frames(), "22.05kHz doubled to 44.1kHz")
	assert.Equal(t, 1, loader.Cached())

	again, err := loader.LoadFormat("/music/menu", OutputSampleRate, OutputChannels)
	require.NoError(t, err)
	assert.Same(t, pcm, again)

	_, err = loader.LoadFormat("/music/menu", 22050, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, loader.Cached(), "cache is keyed by output format")

	loader.Purge()
	assert.Equal(t, 0, loader.Cached())
}

func TestTrackLoaderMissingTrack(t *testing.T) {
	loader := NewTrackLoader(afero.NewMemMapFs(), nil, nil)

	_, err := loader.LoadFormat("nowhere", OutputSampleRate, OutputChannels)
	assert.True(t, errors.Is(err, ErrTrackNotFound), "got %v", err)

	_, err = loader.Resolve(NoTrack)
	assert.ErrorIs(t, err, ErrTrackNotFound)
	assert.Equal(t, 0, loader.Cached())
}

func TestTrackLoaderPreload(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeWAV(t, fs, "/a.wav", OutputSampleRate, 10)
	writeWAV(t, fs, "/b.wav", OutputSampleRate, 10)

	loader := NewTrackLoader(fs, nil, nil)
	require.NoError(t, loader.Preload(OutputSampleRate, OutputChannels, "/a", "/b"))
	assert.Equal(t, 2, loader.Cached())

	assert.Error(t, loader.Preload(OutputSampleRate, OutputChannels, "/missing"))
}

type mapResolver map[Track]string

func (m mapResolver) ResolveTrack(track Track) (string, error) {
	if path, ok := m[track]; ok {
		return path, nil
	}
	return "", ErrTrackNotFound
}

func TestTrackLoaderCustomResolver(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeWAV(t, fs, "/assets/bgm/boss_v2.wav", OutputSampleRate, 10)

	loader := NewTrackLoader(fs, mapResolver{"boss": "/assets/bgm/boss_v2.wav"}, nil)

	path, err := loader.Resolve("boss")
	require.NoError(t, err)
	assert.Equal(t, "/assets/bgm/boss_v2.wav", path)

	pcm, err := loader.Load("boss")
	require.NoError(t, err)
	assert.Equal(t, 10, pcm.Frames())
}
