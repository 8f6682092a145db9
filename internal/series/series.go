// Package series collects per-channel (elapsed, value) sequences from a
// run's snapshots, for charting after the run ends.
package series

import (
	"sync"

	"github.com/drivesim/recorder/internal/sim"
)

// Point is one sample on a channel's time series. X is elapsed simulated
// hours, Y the channel value.
type Point struct {
	X float64
	Y float64
}

// Collector accumulates one series per channel across a run.
type Collector struct {
	mu     sync.Mutex
	series map[string][]Point
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{
		series: make(map[string][]Point),
	}
}

// Observe appends the snapshot's channel values to their series.
func (c *Collector) Observe(s sim.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name, value := range s.Channels {
		c.series[name] = append(c.series[name], Point{X: s.Elapsed, Y: value})
	}
	return nil
}

// Series returns a copy of the collected series for the named channel,
// or nil if the channel was never observed.
func (c *Collector) Series(name string) []Point {
	c.mu.Lock()
	defer c.mu.Unlock()

	src := c.series[name]
	if src == nil {
		return nil
	}
	out := make([]Point, len(src))
	copy(out, src)
	return out
}

// Channels returns the names of all collected channels.
func (c *Collector) Channels() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.series))
	for name := range c.series {
		names = append(names, name)
	}
	return names
}

// Len returns the number of samples collected for the named channel.
func (c *Collector) Len(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.series[name])
}
