package bgm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segue.click/internal/audio"
)

func playingChannel(t *testing.T, track audio.Track, volume float64) *audio.MemoryChannel {
	t.Helper()
	ch := audio.NewMemoryChannel()
	require.NoError(t, ch.Load(track))
	require.NoError(t, ch.Play())
	ch.SetVolume(volume)
	return ch
}

func TestNewFadeRejectsBadDurations(t *testing.T) {
	ch := audio.NewMemoryChannel()
	for _, d := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := NewFade(FadeIn, ch, 0, 1, d)
		assert.ErrorIs(t, err, ErrInvalidDuration, "duration %v", d)

		_, err = NewCrossfade(ch, audio.NewMemoryChannel(), 1, 1, d)
		assert.ErrorIs(t, err, ErrInvalidDuration, "duration %v", d)
	}

	_, err := NewFade(Crossfade, ch, 0, 1, 1)
	assert.Error(t, err)
}

func TestFadeInterpolatesLinearly(t *testing.T) {
	ch := playingChannel(t, "menu", 0)
	tr, err := NewFade(FadeIn, ch, 0, 0.8, 2)
	require.NoError(t, err)

	s := NewScheduler()
	s.Start(tr)

	assert.Nil(t, s.Tick(0.5))
	assert.InDelta(t, 0.2, ch.GetVolume(), 1e-9)
	assert.InDelta(t, 0.25, tr.Progress(), 1e-9)
	assert.InDelta(t, 1.5, tr.Remaining(), 1e-9)

	assert.Nil(t, s.Tick(1.0))
	assert.InDelta(t, 0.6, ch.GetVolume(), 1e-9)

	done := s.Tick(0.5)
	assert.Same(t, tr, done)
	assert.InDelta(t, 0.8, ch.GetVolume(), 1e-9)
	assert.True(t, s.Idle())
	assert.True(t, ch.IsPlaying(), "fade in leaves the channel playing")
}

func TestFadeOutStopsAtZero(t *testing.T) {
	ch := playingChannel(t, "menu", 1)
	tr, err := NewFade(FadeOut, ch, 1, 0, 1)
	require.NoError(t, err)

	s := NewScheduler()
	s.Start(tr)
	s.Tick(5)

	assert.Equal(t, 0.0, ch.GetVolume())
	assert.False(t, ch.IsPlaying())
	assert.Nil(t, s.Active())
}

func TestSchedulerIgnoresBadSteps(t *testing.T) {
	ch := playingChannel(t, "menu", 0)
	tr, err := NewFade(FadeIn, ch, 0, 1, 1)
	require.NoError(t, err)

	s := NewScheduler()
	s.Start(tr)

	for _, dt := range []float64{-0.5, math.NaN(), math.Inf(1), math.Inf(-1)} {
		assert.Nil(t, s.Tick(dt))
	}
	assert.Equal(t, 0.0, tr.Elapsed)
	assert.Same(t, tr, s.Active())

	s.Tick(0)
	assert.Same(t, tr, s.Active(), "a zero step keeps the transition running")

	// Idle scheduler is a no-op.
	assert.Nil(t, NewScheduler().Tick(1))
}

func TestSchedulerStartCancelsPrevious(t *testing.T) {
	out := playingChannel(t, "a", 1)
	in := playingChannel(t, "b", 0)

	xf, err := NewCrossfade(out, in, 1, 1, 2)
	require.NoError(t, err)

	var cancelled, completed int
	xf.OnCancel(func(*Transition) { cancelled++ })
	xf.OnComplete(func(*Transition) { completed++ })

	s := NewScheduler()
	s.Start(xf)
	s.Tick(1)

	fade, err := NewFade(FadeOut, out, out.GetVolume(), 0, 1)
	require.NoError(t, err)
	prev := s.Start(fade)

	assert.Same(t, xf, prev)
	assert.Same(t, fade, s.Active())
	assert.Equal(t, 1, cancelled)
	assert.Equal(t, 0, completed)
	assert.True(t, in.Closed(), "cancelling a crossfade releases the incoming channel")
	assert.False(t, out.Closed())
	assert.InDelta(t, 0.5, out.GetVolume(), 1e-9, "cancel leaves volumes where they stood")
	assert.Equal(t, []string{"load:b", "play", "stop", "close"}, in.Calls())
}

func TestCrossfadeFinalizeReleasesOutgoing(t *testing.T) {
	out := playingChannel(t, "a", 0.8)
	in := playingChannel(t, "b", 0)

	xf, err := NewCrossfade(out, in, 0.8, 0.8, 2)
	require.NoError(t, err)

	s := NewScheduler()
	s.Start(xf)

	s.Tick(1)
	assert.InDelta(t, 0.4, out.GetVolume(), 1e-9)
	assert.InDelta(t, 0.4, in.GetVolume(), 1e-9)

	require.Same(t, xf, s.Tick(1))
	assert.InDelta(t, 0.8, in.GetVolume(), 1e-9)
	assert.Equal(t, 0.0, out.GetVolume())
	assert.True(t, out.Closed())
	assert.False(t, in.Closed())
	assert.True(t, in.IsPlaying())
}

func TestCompletionHookMayStartNext(t *testing.T) {
	ch := playingChannel(t, "menu", 0)
	first, err := NewFade(FadeIn, ch, 0, 1, 1)
	require.NoError(t, err)
	second, err := NewFade(FadeOut, ch, 1, 0, 1)
	require.NoError(t, err)

	s := NewScheduler()
	first.OnComplete(func(*Transition) { s.Start(second) })
	s.Start(first)

	s.Tick(1)
	assert.Same(t, second, s.Active())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "fade_out", FadeOut.String())
	assert.Equal(t, "fade_in", FadeIn.String())
	assert.Equal(t, "crossfade", Crossfade.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}
