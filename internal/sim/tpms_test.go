package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivesim/recorder/internal/rng"
)

func TestTPMS_CheckAllFlagsUnsafeTires(t *testing.T) {
	tp := NewTPMS(30.0, []float64{32.0, 28.5, 31.0, 29.0}, rng.NewSeeded(1))

	tp.CheckAll()

	assert.True(t, tp.DTCTriggered())

	wantSafe := []bool{true, false, true, false}
	for i, want := range wantSafe {
		assert.Equal(t, want, tp.safe[i], "tire %d", i+1)
	}
}

func TestTPMS_CheckAllIsIdempotent(t *testing.T) {
	tp := NewTPMS(30.0, []float64{32.0, 28.5, 31.0, 29.0}, rng.NewSeeded(1))

	tp.CheckAll()
	first := append([]bool(nil), tp.safe...)
	firstDTC := tp.DTCTriggered()

	tp.CheckAll()
	assert.Equal(t, first, tp.safe)
	assert.Equal(t, firstDTC, tp.DTCTriggered())
}

func TestTPMS_DTCResetsWhenPressuresRecover(t *testing.T) {
	tp := NewTPMS(30.0, []float64{29.0}, rng.NewSeeded(1))

	tp.CheckAll()
	require.True(t, tp.DTCTriggered())

	tp.AdjustPressure(0, 2.0)
	tp.CheckAll()
	assert.False(t, tp.DTCTriggered())
}

func TestTPMS_AdjustPressureAppliesDeltasExactly(t *testing.T) {
	tp := NewTPMS(30.0, []float64{32.0}, rng.NewSeeded(1))

	tp.AdjustPressure(0, 0.3)
	assert.Equal(t, 32.3, tp.Pressures()[0])

	tp.AdjustPressure(0, -0.7)
	assert.Equal(t, 32.3-0.7, tp.Pressures()[0])
	assert.InDelta(t, 31.6, tp.Pressures()[0], 1e-9)
}

func TestTPMS_TickDeltaIsDeterministicWithInjectedSource(t *testing.T) {
	// Uniform over [-0.5, 0.5): a draw of 0.8 yields a delta of +0.3.
	src := rng.NewSequence(0.8)
	tp := NewTPMS(30.0, []float64{32.0}, src)

	snap := tp.Tick(1.0)
	assert.InDelta(t, 32.3, snap.Channels["tire_1_psi"], 1e-9)

	// Same sequence, same result.
	tp2 := NewTPMS(30.0, []float64{32.0}, rng.NewSequence(0.8))
	snap2 := tp2.Tick(1.0)
	assert.Equal(t, snap.Channels["tire_1_psi"], snap2.Channels["tire_1_psi"])
}

func TestTPMS_TickDiagnosticsPerTire(t *testing.T) {
	// Draws of 0.5 mean zero delta: pressures stay put.
	src := rng.NewSequence(0.5)
	tp := NewTPMS(30.0, []float64{32.0, 28.5, 31.0, 29.0}, src)

	snap := tp.Tick(1.0)

	require.Len(t, snap.Diagnostics, 4)
	assert.False(t, snap.Diagnostics[0].Triggered)
	assert.True(t, snap.Diagnostics[1].Triggered)
	assert.False(t, snap.Diagnostics[2].Triggered)
	assert.True(t, snap.Diagnostics[3].Triggered)
	assert.True(t, snap.Triggered())

	assert.Equal(t, "Tire 1: Pressure is safe (32.00 PSI)", snap.Diagnostics[0].Message)
	assert.Equal(t, "Tire 2: WARNING! Pressure is unsafe (28.50 PSI)", snap.Diagnostics[1].Message)
}

func TestTPMS_PressuresAreUnclamped(t *testing.T) {
	// Every draw is 0: maximal negative delta of -0.5 each tick. The
	// pressure drifts below zero without bound; the reference system
	// behaves this way.
	src := rng.NewSequence(0.0)
	tp := NewTPMS(30.0, []float64{1.0}, src)

	for i := 0; i < 10; i++ {
		tp.Tick(1.0)
	}

	assert.InDelta(t, -4.0, tp.Pressures()[0], 1e-9)
}
