package sim

import "github.com/drivesim/recorder/internal/rng"

// Road vehicle channel names.
const (
	ChanSlopeDeg      = "slope_deg"
	ChanTireCondition = "tire_condition"
	ChanTraction      = "traction"
	ChanStoppingM     = "stopping_m"
)

// Road vehicle update intervals and clamps.
const (
	vehicleSpeedDeltaMin = -10.0
	vehicleSpeedDeltaMax = 10.0
	vehicleSpeedMin      = 0.0
	vehicleSpeedMax      = 150.0

	vehicleSlopeDeltaMin = -5.0
	vehicleSlopeDeltaMax = 5.0
	vehicleSlopeMin      = -10.0
	vehicleSlopeMax      = 10.0

	vehicleWearMin          = -0.02
	vehicleWearMax          = 0.0
	vehicleTireConditionMin = 0.5
	vehicleTireConditionMax = 1.0

	gravity = 9.81
)

// Surface is the sampled road surface condition.
type Surface int

const (
	SurfaceDry Surface = iota
	SurfaceWet
	SurfaceIcy
)

func (s Surface) String() string {
	switch s {
	case SurfaceDry:
		return "Dry"
	case SurfaceWet:
		return "Wet"
	case SurfaceIcy:
		return "Icy"
	default:
		return "Unknown"
	}
}

// BaseTraction returns the traction coefficient of the surface before
// adjusting for slope and tire wear.
func (s Surface) BaseTraction() float64 {
	switch s {
	case SurfaceWet:
		return 0.7
	case SurfaceIcy:
		return 0.3
	default:
		return 1.0
	}
}

// Vehicle models a car on a changing road: speed, slope and tire condition
// each random-walk inside a clamped interval, the surface resamples every
// tick, and the stopping distance is derived from the result.
type Vehicle struct {
	speed             float64 // km/h
	brakingEfficiency float64
	tireCondition     float64
	roadSlope         float64 // degrees
	surface           Surface

	src     rng.Source
	seq     uint
	elapsed float64
}

// NewVehicle creates a vehicle at 50 km/h on a flat dry road with slightly
// worn tires, matching the reference starting state.
func NewVehicle(src rng.Source) *Vehicle {
	return &Vehicle{
		speed:             50.0,
		brakingEfficiency: 0.9,
		tireCondition:     0.9,
		roadSlope:         0.0,
		surface:           SurfaceDry,
		src:               src,
	}
}

func (v *Vehicle) Name() string { return "vehicle" }

func (v *Vehicle) Speed() float64         { return v.speed }
func (v *Vehicle) RoadSlope() float64     { return v.roadSlope }
func (v *Vehicle) TireCondition() float64 { return v.tireCondition }
func (v *Vehicle) Surface() Surface       { return v.surface }

// UpdateSpeed random-walks the speed, clamped to [0, 150] km/h.
func (v *Vehicle) UpdateSpeed() {
	delta := rng.Uniform(v.src, vehicleSpeedDeltaMin, vehicleSpeedDeltaMax)
	v.speed = clamp(v.speed+delta, vehicleSpeedMin, vehicleSpeedMax)
}

// UpdateRoadSlope random-walks the slope, clamped to [-10, 10] degrees.
func (v *Vehicle) UpdateRoadSlope() {
	delta := rng.Uniform(v.src, vehicleSlopeDeltaMin, vehicleSlopeDeltaMax)
	v.roadSlope = clamp(v.roadSlope+delta, vehicleSlopeMin, vehicleSlopeMax)
}

// UpdateTireCondition wears the tires by a uniform amount per tick,
// clamped to [0.5, 1.0].
func (v *Vehicle) UpdateTireCondition() {
	wear := rng.Uniform(v.src, vehicleWearMin, vehicleWearMax)
	v.tireCondition = clamp(v.tireCondition+wear, vehicleTireConditionMin, vehicleTireConditionMax)
}

// AdjustForCondition scales the base traction by tire condition and slope.
// Uphill reduces effective traction, downhill increases it.
func (v *Vehicle) AdjustForCondition(traction float64) float64 {
	adjusted := traction * v.tireCondition

	if v.roadSlope > 0 {
		adjusted *= 1.0 - v.roadSlope/45.0
	} else if v.roadSlope < 0 {
		adjusted *= 1.0 + (-v.roadSlope)/45.0
	}

	return adjusted
}

// StoppingDistance estimates the braking distance in meters at the current
// speed for the given effective traction.
func (v *Vehicle) StoppingDistance(traction float64) float64 {
	velocity := v.speed / 3.6 // km/h to m/s
	return (velocity * velocity) / (2.0 * traction * gravity * v.brakingEfficiency)
}

// Tick resamples the road surface, random-walks speed, slope and tire
// condition, and derives traction and stopping distance.
func (v *Vehicle) Tick(dt float64) Snapshot {
	v.surface = v.sampleSurface()

	v.UpdateSpeed()
	v.UpdateRoadSlope()
	v.UpdateTireCondition()

	traction := v.AdjustForCondition(v.surface.BaseTraction())
	stopping := v.StoppingDistance(traction)

	v.seq++
	v.elapsed += dt

	return Snapshot{
		Seq:     v.seq,
		Elapsed: v.elapsed,
		Channels: map[string]float64{
			ChanSpeedKmh:      v.speed,
			ChanSlopeDeg:      v.roadSlope,
			ChanTireCondition: v.tireCondition,
			ChanTraction:      traction,
			ChanStoppingM:     stopping,
		},
	}
}

// Done always returns false; run length is caller-controlled.
func (v *Vehicle) Done() bool { return false }

func (v *Vehicle) sampleSurface() Surface {
	switch int(v.src.Float64() * 3) {
	case 0:
		return SurfaceDry
	case 1:
		return SurfaceWet
	default:
		return SurfaceIcy
	}
}
