// Package memory implements the storage.Backend interface by accumulating
// snapshots in memory and exporting the run to a JSON file when it ends.
package memory

import (
	"sync"
	"time"

	"github.com/drivesim/recorder/internal/config"
	"github.com/drivesim/recorder/internal/model"
	"github.com/drivesim/recorder/internal/sim"
)

// Backend stores run data in memory and exports to JSON.
type Backend struct {
	cfg config.MemoryConfig

	run       *model.Run
	snapshots []sim.Snapshot

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend.
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg: cfg,
	}
}

// Init initializes the backend.
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources.
func (b *Backend) Close() error {
	return nil
}

// StartRun begins recording a new run, discarding any previous data.
func (b *Backend) StartRun(run *model.Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.run = run
	b.snapshots = nil
	b.lastExportPath = ""
	return nil
}

// RecordSnapshot appends one tick's snapshot.
func (b *Backend) RecordSnapshot(s sim.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.snapshots = append(b.snapshots, s)
	return nil
}

// EndRun finalizes the run and exports it to disk.
func (b *Backend) EndRun(endTime time.Time, tickCount uint) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return errNoActiveRun
	}

	b.run.EndTime = endTime
	b.run.TickCount = tickCount

	return b.exportJSON()
}

// SnapshotCount returns the number of snapshots recorded so far.
func (b *Backend) SnapshotCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.snapshots)
}
