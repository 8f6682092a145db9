package sim

import (
	"fmt"

	"github.com/drivesim/recorder/internal/rng"
)

// Tire pressure delta interval per tick, PSI.
const (
	tpmsDeltaMin = -0.5
	tpmsDeltaMax = 0.5
)

// TPMS is the tire-pressure monitoring simulator. Each tick perturbs every
// tire's pressure by a uniform delta and recomputes the per-tire safety
// flags and the aggregate DTC.
//
// Pressures are intentionally unclamped and can drift below zero over a
// long run; the source system behaves this way, unlike every other variant,
// and the behavior is preserved rather than silently corrected.
type TPMS struct {
	pressures    []float64
	safe         []bool
	safePressure float64
	dtcTriggered bool

	src     rng.Source
	seq     uint
	elapsed float64
}

// NewTPMS creates a monitor over the given initial tire pressures. All
// tires start flagged safe until the first check.
func NewTPMS(safePressure float64, pressures []float64, src rng.Source) *TPMS {
	t := &TPMS{
		pressures:    append([]float64(nil), pressures...),
		safe:         make([]bool, len(pressures)),
		safePressure: safePressure,
		src:          src,
	}
	for i := range t.safe {
		t.safe[i] = true
	}
	return t
}

func (t *TPMS) Name() string { return "tpms" }

// AdjustPressure adds delta to the pressure of tire i.
func (t *TPMS) AdjustPressure(i int, delta float64) {
	t.pressures[i] += delta
}

// CheckAll recomputes every tire's safety flag against the safe pressure
// and derives the aggregate DTC. The DTC is reset before the scan; it is a
// pure function of the current pressures.
func (t *TPMS) CheckAll() {
	t.dtcTriggered = false
	for i, p := range t.pressures {
		t.safe[i] = p >= t.safePressure
		if !t.safe[i] {
			t.dtcTriggered = true
		}
	}
}

// DTCTriggered reports whether any tire was below the safe pressure at the
// last check.
func (t *TPMS) DTCTriggered() bool { return t.dtcTriggered }

// Pressures returns a copy of the current tire pressures.
func (t *TPMS) Pressures() []float64 {
	return append([]float64(nil), t.pressures...)
}

// Tick perturbs every tire's pressure and re-runs the safety check.
func (t *TPMS) Tick(dt float64) Snapshot {
	for i := range t.pressures {
		t.pressures[i] += rng.Uniform(t.src, tpmsDeltaMin, tpmsDeltaMax)
	}
	t.CheckAll()

	t.seq++
	t.elapsed += dt
	return t.snapshot()
}

// Done always returns false; the monitor runs until stopped by the caller.
func (t *TPMS) Done() bool { return false }

func (t *TPMS) snapshot() Snapshot {
	channels := make(map[string]float64, len(t.pressures))
	diagnostics := make([]Diagnostic, len(t.pressures))

	for i, p := range t.pressures {
		name := tireChannel(i)
		channels[name] = p

		msg := fmt.Sprintf("Tire %d: Pressure is safe (%.2f PSI)", i+1, p)
		if !t.safe[i] {
			msg = fmt.Sprintf("Tire %d: WARNING! Pressure is unsafe (%.2f PSI)", i+1, p)
		}
		diagnostics[i] = Diagnostic{
			Channel:   name,
			Triggered: !t.safe[i],
			Message:   msg,
		}
	}

	return Snapshot{
		Seq:         t.seq,
		Elapsed:     t.elapsed,
		Channels:    channels,
		Diagnostics: diagnostics,
	}
}

func tireChannel(i int) string {
	return fmt.Sprintf("tire_%d_psi", i+1)
}
