// Package track integrates a planar route from a vehicle's speed channel.
// Positions are tracked in EPSG:3857 meters so each tick's travelled
// distance can be added directly; export reprojects to EPSG:4326.
package track

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"

	"github.com/drivesim/recorder/internal/rng"
	"github.com/drivesim/recorder/internal/sim"
)

// Heading drifts by at most this many degrees per tick.
const maxTurnDeg = 15.0

// ErrTooFewPoints is returned when a line needs at least two positions.
var ErrTooFewPoints = errors.New("track needs at least 2 points")

// Tracker accumulates a route from speed snapshots. It starts at an
// EPSG:4326 origin, walks its heading randomly, and advances by the
// distance implied by speed and tick duration.
type Tracker struct {
	mu          sync.Mutex
	src         rng.Source
	headingDeg  float64
	lastElapsed float64

	// planar EPSG:3857 positions, origin included
	xs, ys []float64
}

// New creates a Tracker starting at the given EPSG:4326 origin.
func New(originLon, originLat float64, src rng.Source) *Tracker {
	to3857 := wgs84.EPSG().Transform(4326, 3857)
	x, y, _ := to3857(originLon, originLat, 0)

	return &Tracker{
		src: src,
		xs:  []float64{x},
		ys:  []float64{y},
	}
}

// Observe advances the track by one snapshot. The snapshot must carry a
// speed_kmh channel; elapsed time between snapshots sets the distance.
func (t *Tracker) Observe(s sim.Snapshot) error {
	speed, ok := s.Channels["speed_kmh"]
	if !ok {
		return fmt.Errorf("snapshot %d has no speed_kmh channel", s.Seq)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	dt := s.Elapsed - t.lastElapsed
	t.lastElapsed = s.Elapsed
	if dt <= 0 {
		return nil
	}

	t.headingDeg += rng.Uniform(t.src, -maxTurnDeg, maxTurnDeg)

	// compass heading: 0 = north, clockwise
	distanceM := speed * dt * 1000
	rad := t.headingDeg * math.Pi / 180
	x := t.xs[len(t.xs)-1] + distanceM*math.Sin(rad)
	y := t.ys[len(t.ys)-1] + distanceM*math.Cos(rad)

	t.xs = append(t.xs, x)
	t.ys = append(t.ys, y)
	return nil
}

// Points returns the number of positions recorded, origin included.
func (t *Tracker) Points() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.xs)
}

// LineString returns the route as an EPSG:3857 line.
func (t *Tracker) LineString() (geom.LineString, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.line(false)
}

// WGS84 returns the route reprojected to EPSG:4326.
func (t *Tracker) WGS84() (geom.LineString, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.line(true)
}

func (t *Tracker) line(reproject bool) (geom.LineString, error) {
	if len(t.xs) < 2 {
		return geom.LineString{}, ErrTooFewPoints
	}

	to4326 := wgs84.EPSG().Transform(3857, 4326)

	flat := make([]float64, 0, len(t.xs)*2)
	for i := range t.xs {
		x, y := t.xs[i], t.ys[i]
		if reproject {
			x, y, _ = to4326(x, y, 0)
		}
		flat = append(flat, x, y)
	}

	seq := geom.NewSequence(flat, geom.DimXY)
	return geom.NewLineString(seq), nil
}

// WKT returns the EPSG:4326 route in WKT form.
func (t *Tracker) WKT() (string, error) {
	ls, err := t.WGS84()
	if err != nil {
		return "", err
	}
	return ls.AsText(), nil
}

// GeoJSON returns the EPSG:4326 route as a GeoJSON geometry.
func (t *Tracker) GeoJSON() ([]byte, error) {
	ls, err := t.WGS84()
	if err != nil {
		return nil, err
	}
	return json.Marshal(ls.AsGeometry())
}
