package sim

import "github.com/drivesim/recorder/internal/rng"

// Odometer channel names.
const (
	ChanOdometerKm = "odometer_km"
	ChanTripKm     = "trip_km"
	ChanFuelL      = "fuel_l"
	ChanSpeedKmh   = "speed_kmh"
)

// Odometer speed draw interval, km/h.
const (
	odometerSpeedMin = 40.0
	odometerSpeedMax = 120.0
)

// Odometer accumulates driven distance and fuel use. Drive is the pure
// accumulator rule; Tick draws a random cruising speed and applies it for
// the elapsed interval.
type Odometer struct {
	totalKm        float64
	tripKm         float64
	fuelL          float64
	fuelEfficiency float64 // km per liter
	lastSpeed      float64

	src     rng.Source
	seq     uint
	elapsed float64
}

// NewOdometer creates an odometer with zeroed accumulators.
// fuelEfficiency is in km per liter. src feeds the per-tick speed draw.
func NewOdometer(fuelEfficiency float64, src rng.Source) *Odometer {
	return &Odometer{
		fuelEfficiency: fuelEfficiency,
		src:            src,
	}
}

func (o *Odometer) Name() string { return "odometer" }

// Drive adds speed*hours to both accumulators and the proportional fuel
// burn. Pure function of its inputs; no randomness.
func (o *Odometer) Drive(speed, hours float64) {
	distance := speed * hours
	o.totalKm += distance
	o.tripKm += distance
	o.fuelL += distance / o.fuelEfficiency
	o.lastSpeed = speed
}

// ResetTrip zeroes the trip accumulator. The total is unaffected.
func (o *Odometer) ResetTrip() {
	o.tripKm = 0
}

func (o *Odometer) TotalKm() float64 { return o.totalKm }
func (o *Odometer) TripKm() float64  { return o.tripKm }
func (o *Odometer) FuelL() float64   { return o.fuelL }

// Tick drives for dt hours at a random speed in [40,120) km/h.
func (o *Odometer) Tick(dt float64) Snapshot {
	speed := rng.Uniform(o.src, odometerSpeedMin, odometerSpeedMax)
	o.Drive(speed, dt)

	o.seq++
	o.elapsed += dt
	return o.snapshot()
}

// Done always returns false; the odometer run length is caller-controlled.
func (o *Odometer) Done() bool { return false }

func (o *Odometer) snapshot() Snapshot {
	return Snapshot{
		Seq:     o.seq,
		Elapsed: o.elapsed,
		Channels: map[string]float64{
			ChanOdometerKm: o.totalKm,
			ChanTripKm:     o.tripKm,
			ChanFuelL:      o.fuelL,
			ChanSpeedKmh:   o.lastSpeed,
		},
	}
}
