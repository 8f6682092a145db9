// Package storage defines the backend interface for persisting recorded
// runs, and a factory selecting the backend from configuration.
package storage

import (
	"time"

	"github.com/drivesim/recorder/internal/model"
	"github.com/drivesim/recorder/internal/sim"
)

// Backend is the interface all storage implementations must satisfy.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Run management
	StartRun(run *model.Run) error
	EndRun(endTime time.Time, tickCount uint) error

	// State recording
	RecordSnapshot(s sim.Snapshot) error
}

// Uploadable is an optional interface for storage backends that produce
// files suitable for upload to a fleet dashboard.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() model.UploadMetadata
}
