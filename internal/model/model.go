// Package model defines the database schema for recorded simulation runs.
package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DatabaseModels lists every struct migrated into the database schema.
var DatabaseModels = []interface{}{
	&RecorderInfo{},
	&Run{},
	&SnapshotRecord{},
	&RunPerformance{},
}

// RecorderInfo contains instance-level information about this recorder.
type RecorderInfo struct {
	gorm.Model
	InstanceName string `json:"instanceName" gorm:"size:127"`
	Description  string `json:"description" gorm:"size:255"`
}

func (*RecorderInfo) TableName() string {
	return "recorder_infos"
}

// Run is one execution of a simulator: its metadata plus the parameters
// needed to reproduce it.
type Run struct {
	ID           uint      `json:"id" gorm:"primarykey"`
	Name         string    `json:"name" gorm:"size:127"`
	Simulator    string    `json:"simulator" gorm:"size:63;index:idx_runs_simulator"`
	Seed         int64     `json:"seed"`
	TickInterval float64   `json:"tickInterval"` // simulated hours per tick
	StartTime    time.Time `json:"startTime" gorm:"index:idx_runs_start_time"`
	EndTime      time.Time `json:"endTime"`
	TickCount    uint      `json:"tickCount"`
}

func (*Run) TableName() string {
	return "runs"
}

// SnapshotRecord is one tick's channel values and diagnostics. Channels and
// diagnostics are stored as JSON so every simulator variant shares one
// table regardless of its channel set.
type SnapshotRecord struct {
	ID          uint           `json:"id" gorm:"primarykey"`
	RunID       uint           `json:"runId" gorm:"index:idx_snapshots_run_id"`
	Run         Run            `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	Seq         uint           `json:"seq"`
	Elapsed     float64        `json:"elapsed"`
	Time        time.Time      `json:"time" gorm:"index:idx_snapshots_time"`
	Channels    datatypes.JSON `json:"channels"`
	Diagnostics datatypes.JSON `json:"diagnostics"`
	Triggered   bool           `json:"triggered"`
}

func (*SnapshotRecord) TableName() string {
	return "snapshot_records"
}

// UploadMetadata describes an exported run file for the upload client.
// Not a database model.
type UploadMetadata struct {
	RunName   string    `json:"runName"`
	Simulator string    `json:"simulator"`
	StartTime time.Time `json:"startTime"`
	TickCount uint      `json:"tickCount"`
}

// RunPerformance captures recorder performance samples taken by the
// monitor while a run is active.
type RunPerformance struct {
	Time                time.Time `json:"time" gorm:"index:idx_runperformance_time"`
	RunID               uint      `json:"runId" gorm:"index:idx_runperformance_run_id"`
	QueueLength         uint16    `json:"queueLength"`
	LastWriteDurationMs float32   `json:"lastWriteDurationMs"`
}

func (*RunPerformance) TableName() string {
	return "run_performances"
}
