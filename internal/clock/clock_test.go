package clock

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTickerValidatesRate(t *testing.T) {
	for _, rate := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		_, err := NewTicker(TickFunc(func(float64) {}), rate)
		assert.ErrorIs(t, err, ErrInvalidRate, "rate %v", rate)
	}

	tk, err := NewTicker(TickFunc(func(float64) {}), 50)
	require.NoError(t, err)
	assert.Equal(t, 20*time.Millisecond, tk.Interval())
}

func TestStepMeasuresElapsedTime(t *testing.T) {
	var got []float64
	tk, err := NewTicker(TickFunc(func(dt float64) { got = append(got, dt) }), DefaultRate)
	require.NoError(t, err)

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	now := base
	tk.now = func() time.Time { return now }

	tk.Step()
	now = now.Add(250 * time.Millisecond)
	tk.Step()
	now = now.Add(time.Second)
	tk.Step()
	now = now.Add(-time.Second) // clock went backwards
	tk.Step()

	require.Len(t, got, 4)
	assert.Equal(t, 0.0, got[0])
	assert.InDelta(t, 0.25, got[1], 1e-9)
	assert.InDelta(t, 1.0, got[2], 1e-9)
	assert.Equal(t, 0.0, got[3])
}

func TestRunStopsOnCancel(t *testing.T) {
	var mu sync.Mutex
	ticks := 0
	tk, err := NewTicker(TickFunc(func(float64) {
		mu.Lock()
		ticks++
		mu.Unlock()
	}), 1000)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = tk.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	mu.Lock()
	defer mu.Unlock()
	assert.Greater(t, ticks, 0)
}

func TestSimulate(t *testing.T) {
	tests := []struct {
		name      string
		total     float64
		step      float64
		wantTicks int
	}{
		{"exact", 1, 0.25, 4},
		{"partial final step", 1, 0.3, 4},
		{"zero total", 0, 0.1, 0},
		{"bad step", 1, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum := 0.0
			n := Simulate(TickFunc(func(dt float64) { sum += dt }), tt.total, tt.step)
			assert.Equal(t, tt.wantTicks, n)
			if tt.wantTicks > 0 {
				assert.InDelta(t, tt.total, sum, 1e-9)
			}
		})
	}
}
