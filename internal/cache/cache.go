// Package cache holds the most recent snapshot per simulator. The monitor
// and status output read from here instead of reaching into simulator
// state, which only the engine goroutine may touch.
package cache

import (
	"sync"

	"github.com/drivesim/recorder/internal/sim"
)

// SnapshotCache stores the latest snapshot for each simulator by name.
type SnapshotCache struct {
	mu     sync.RWMutex
	latest map[string]sim.Snapshot
}

func NewSnapshotCache() *SnapshotCache {
	return &SnapshotCache{
		latest: make(map[string]sim.Snapshot),
	}
}

// Put records the latest snapshot for a simulator.
func (c *SnapshotCache) Put(name string, snap sim.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest[name] = snap
}

// Get returns the latest snapshot for a simulator, if one exists.
func (c *SnapshotCache) Get(name string) (sim.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.latest[name]
	return snap, ok
}

// Names returns the simulators that have reported at least one snapshot.
func (c *SnapshotCache) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.latest))
	for name := range c.latest {
		names = append(names, name)
	}
	return names
}

// Reset clears all cached snapshots.
func (c *SnapshotCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest = make(map[string]sim.Snapshot)
}
