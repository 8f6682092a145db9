package sim

import "github.com/drivesim/recorder/internal/rng"

// Climate channel names.
const (
	ChanCabinC    = "cabin_c"
	ChanSetpointC = "setpoint_c"
	ChanExternalC = "external_c"
)

const (
	// climateStep is the temperature change applied per tick while the
	// cabin is off the setpoint, degrees C.
	climateStep = 0.5

	// climateEpsilon is the convergence band around the setpoint.
	climateEpsilon = 0.1

	// climateShiftChance is the per-tick probability that external
	// conditions change and the setpoint is resampled.
	climateShiftChance = 0.2

	climateSetpointMin = 18.0
	climateSetpointMax = 26.0
	climateDriftMin    = -0.5
	climateDriftMax    = 0.5
)

// Climate models a cabin climate controller: the cabin temperature moves
// toward the setpoint by a fixed step per tick, while external conditions
// occasionally drift and resample the setpoint.
type Climate struct {
	cabin    float64
	setpoint float64
	external float64

	src     rng.Source
	seq     uint
	elapsed float64
}

// NewClimate creates a controller with the cabin at initial temperature and
// the setpoint equal to it. src drives external condition shifts.
func NewClimate(initial, external float64, src rng.Source) *Climate {
	return &Climate{
		cabin:    initial,
		setpoint: initial,
		external: external,
		src:      src,
	}
}

func (c *Climate) Name() string { return "climate" }

// SetSetpoint overrides the desired cabin temperature.
func (c *Climate) SetSetpoint(t float64) {
	c.setpoint = t
}

func (c *Climate) Cabin() float64    { return c.cabin }
func (c *Climate) Setpoint() float64 { return c.setpoint }

// Tick steps the cabin temperature toward the setpoint, then lets external
// conditions shift with a small probability.
func (c *Climate) Tick(dt float64) Snapshot {
	switch {
	case c.cabin < c.setpoint:
		c.cabin += climateStep
	case c.cabin > c.setpoint:
		c.cabin -= climateStep
	}

	if rng.Chance(c.src, climateShiftChance) {
		c.external += rng.Uniform(c.src, climateDriftMin, climateDriftMax)
		c.setpoint = rng.Uniform(c.src, climateSetpointMin, climateSetpointMax)
	}

	c.seq++
	c.elapsed += dt
	return c.snapshot()
}

// Done reports convergence: the cabin is within epsilon of the setpoint.
func (c *Climate) Done() bool {
	return abs(c.cabin-c.setpoint) < climateEpsilon
}

func (c *Climate) snapshot() Snapshot {
	reached := c.cabin == c.setpoint

	msg := "Cooling down"
	if c.cabin < c.setpoint {
		msg = "Heating up"
	} else if reached {
		msg = "Desired temperature reached"
	}

	return Snapshot{
		Seq:     c.seq,
		Elapsed: c.elapsed,
		Channels: map[string]float64{
			ChanCabinC:    c.cabin,
			ChanSetpointC: c.setpoint,
			ChanExternalC: c.external,
		},
		Diagnostics: []Diagnostic{
			{Channel: ChanCabinC, Triggered: reached, Message: msg},
		},
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
