package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivesim/recorder/internal/rng"
	"github.com/drivesim/recorder/internal/sim"
)

func snapshot(seq uint, elapsed, speed float64) sim.Snapshot {
	return sim.Snapshot{
		Seq:      seq,
		Elapsed:  elapsed,
		Channels: map[string]float64{"speed_kmh": speed},
	}
}

func TestTracker_AccumulatesPoints(t *testing.T) {
	tr := New(13.405, 52.52, rng.NewSeeded(1))

	require.Equal(t, 1, tr.Points())

	require.NoError(t, tr.Observe(snapshot(1, 0.5, 60)))
	require.NoError(t, tr.Observe(snapshot(2, 1.0, 80)))

	assert.Equal(t, 3, tr.Points())
}

func TestTracker_MissingSpeedChannel(t *testing.T) {
	tr := New(0, 0, rng.NewSeeded(1))

	err := tr.Observe(sim.Snapshot{Seq: 1, Elapsed: 0.5, Channels: map[string]float64{"cabin_c": 20}})
	assert.Error(t, err)
	assert.Equal(t, 1, tr.Points())
}

func TestTracker_ZeroElapsedAddsNothing(t *testing.T) {
	tr := New(0, 0, rng.NewSeeded(1))

	require.NoError(t, tr.Observe(snapshot(1, 0, 60)))
	assert.Equal(t, 1, tr.Points())
}

func TestTracker_StraightLineDistance(t *testing.T) {
	// Sequence(0.5) keeps every turn draw at the interval midpoint, so the
	// heading stays 0 (due north) and distance accumulates on the y axis.
	tr := New(0, 0, rng.NewSequence(0.5))

	require.NoError(t, tr.Observe(snapshot(1, 0.5, 60)))
	require.NoError(t, tr.Observe(snapshot(2, 1.0, 60)))

	ls, err := tr.LineString()
	require.NoError(t, err)

	seq := ls.Coordinates()
	require.Equal(t, 3, seq.Length())

	first := seq.GetXY(0)
	last := seq.GetXY(2)
	assert.InDelta(t, 0, last.X-first.X, 1e-9)
	assert.InDelta(t, 60000, last.Y-first.Y, 1e-6)
}

func TestTracker_LineNeedsTwoPoints(t *testing.T) {
	tr := New(0, 0, rng.NewSeeded(1))

	_, err := tr.LineString()
	assert.ErrorIs(t, err, ErrTooFewPoints)

	_, err = tr.WKT()
	assert.ErrorIs(t, err, ErrTooFewPoints)
}

func TestTracker_WGS84RoundTripsOrigin(t *testing.T) {
	tr := New(13.405, 52.52, rng.NewSequence(0.5))

	require.NoError(t, tr.Observe(snapshot(1, 0.5, 50)))
	require.NoError(t, tr.Observe(snapshot(2, 1.0, 50)))

	ls, err := tr.WGS84()
	require.NoError(t, err)

	origin := ls.Coordinates().GetXY(0)
	assert.InDelta(t, 13.405, origin.X, 1e-6)
	assert.InDelta(t, 52.52, origin.Y, 1e-6)
}

func TestTracker_Exports(t *testing.T) {
	tr := New(13.405, 52.52, rng.NewSeeded(7))

	require.NoError(t, tr.Observe(snapshot(1, 0.5, 90)))
	require.NoError(t, tr.Observe(snapshot(2, 1.0, 90)))

	wkt, err := tr.WKT()
	require.NoError(t, err)
	assert.Contains(t, wkt, "LINESTRING")

	gj, err := tr.GeoJSON()
	require.NoError(t, err)
	assert.Contains(t, string(gj), `"LineString"`)
}
