// Package sim implements the tick-based vehicle simulators. Each simulator
// owns a small set of continuous channels, advances them once per Tick, and
// returns a Snapshot of the result. Simulators never perform I/O; reporting
// and recording are engine observers.
package sim

import "sort"

// Diagnostic is a derived safety flag computed from the current channel
// values against a static threshold. It is a memoryless function of the
// snapshot it belongs to and is recomputed fully on every tick.
type Diagnostic struct {
	Channel   string `json:"channel"`
	Triggered bool   `json:"triggered"`
	Message   string `json:"message"`
}

// Snapshot is the full set of channel values after one tick, plus any
// diagnostics derived from them. Snapshots are plain values; observers may
// retain them without aliasing simulator state.
type Snapshot struct {
	// Seq is the tick count at which this snapshot was taken, starting at 1.
	Seq uint `json:"seq"`

	// Elapsed is simulated time since construction, in hours.
	Elapsed float64 `json:"elapsed"`

	Channels    map[string]float64 `json:"channels"`
	Diagnostics []Diagnostic       `json:"diagnostics,omitempty"`
}

// ChannelNames returns the snapshot's channel names in sorted order, so
// observers can produce stable output from the map.
func (s Snapshot) ChannelNames() []string {
	names := make([]string, 0, len(s.Channels))
	for name := range s.Channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Triggered reports whether any diagnostic in the snapshot fired.
func (s Snapshot) Triggered() bool {
	for _, d := range s.Diagnostics {
		if d.Triggered {
			return true
		}
	}
	return false
}

// Simulator is a tick-based physical-state simulator. Tick advances owned
// state by dt simulated hours and returns a snapshot of the new state.
// Done reports whether the simulator has reached a terminal condition;
// simulators without one always return false.
type Simulator interface {
	Name() string
	Tick(dt float64) Snapshot
	Done() bool
}

// clamp bounds v to the closed interval [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
