// Package db implements the storage.Backend interface using GORM with an
// internal queue and a background writer goroutine. Postgres is used when
// reachable, with an automatic SQLite fallback via database.Manager.
package db

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/drivesim/recorder/internal/database"
	"github.com/drivesim/recorder/internal/logging"
	"github.com/drivesim/recorder/internal/model"
	"github.com/drivesim/recorder/internal/queue"
	"github.com/drivesim/recorder/internal/sim"
)

// How often the background writer drains the snapshot queue.
const writeInterval = 2 * time.Second

// How often the in-memory SQLite fallback is vacuumed to disk.
const dumpInterval = 3 * time.Minute

// Dependencies holds all dependencies for the db storage backend.
type Dependencies struct {
	DB         *gorm.DB
	LogManager *logging.SlogManager

	// Directory for disk dumps of the in-memory fallback database.
	LocalDBDir string
}

// Backend implements storage.Backend with queue-based batch writes.
type Backend struct {
	deps Dependencies

	snapshots *queue.Queue[model.SnapshotRecord]
	perf      *queue.Queue[model.RunPerformance]

	runID    atomic.Uint64
	stopChan chan struct{}
	dbReady  bool

	// set when the backend established its own SQLite fallback connection
	mgr *database.Manager

	// nanoseconds of the last batch write, for the monitor
	lastWriteDuration atomic.Int64
}

// New creates a new db storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{
		deps: deps,
	}
}

// Init creates internal queues, connects and migrates the database, and
// starts the writer goroutine. If no DB was injected via Dependencies it
// establishes its own connection, falling back to SQLite.
func (b *Backend) Init() error {
	b.snapshots = queue.New[model.SnapshotRecord]()
	b.perf = queue.New[model.RunPerformance]()
	b.stopChan = make(chan struct{})

	if b.deps.DB == nil {
		mgr := database.NewManager(zerolog.Nop())
		if err := mgr.Connect(); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		if mgr.ShouldSaveLocal {
			b.prepareLocal(mgr)
		}
		if err := mgr.Setup(); err != nil {
			return fmt.Errorf("failed to setup database: %w", err)
		}
		b.deps.DB = mgr.DB
		b.mgr = mgr
	} else {
		if err := b.deps.DB.AutoMigrate(model.DatabaseModels...); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	b.dbReady = true

	b.startDBWriter()
	return nil
}

// Close flushes outstanding writes and stops the writer goroutine.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		b.stopChan = nil
	}
	b.flush()
	return nil
}

// StartRun inserts the run row synchronously so snapshots can reference it.
func (b *Backend) StartRun(run *model.Run) error {
	if err := b.deps.DB.Create(run).Error; err != nil {
		b.log("StartRun", fmt.Sprintf("Failed to insert run: %v", err), "ERROR")
		return fmt.Errorf("failed to insert run: %w", err)
	}

	b.runID.Store(uint64(run.ID))
	return nil
}

// EndRun flushes the queue and stamps the run row with its final state.
func (b *Backend) EndRun(endTime time.Time, tickCount uint) error {
	b.flush()

	runID := uint(b.runID.Load())
	if runID == 0 {
		return fmt.Errorf("no active run")
	}

	err := b.deps.DB.Model(&model.Run{}).Where("id = ?", runID).
		Updates(map[string]any{
			"end_time":   endTime,
			"tick_count": tickCount,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to finalize run: %w", err)
	}

	b.dumpLocal()
	return nil
}

// prepareLocal picks the disk dump file for the in-memory fallback and
// reports any dumps left behind by earlier sessions.
func (b *Backend) prepareLocal(mgr *database.Manager) {
	dir := b.deps.LocalDBDir
	if dir == "" {
		dir = "."
	}
	mgr.SqliteFilePath = filepath.Join(dir,
		fmt.Sprintf("drivesim_%s.db", time.Now().Format("20060102_150405")))

	if paths, err := database.GetBackupDBPaths(dir); err == nil && len(paths) > 0 {
		b.log("Init", fmt.Sprintf("Found %d local DB dumps from earlier sessions in %s",
			len(paths), dir), "INFO")
	}
}

// dumpLocal vacuums the in-memory fallback database to its disk file. A
// no-op when a remote database is connected.
func (b *Backend) dumpLocal() {
	if b.mgr == nil || !b.mgr.ShouldSaveLocal {
		return
	}
	if err := b.mgr.DumpMemoryToDisk(); err != nil {
		b.log("dumpLocal", fmt.Sprintf("Error dumping memory DB to disk: %v", err), "ERROR")
	}
}

// RecordSnapshot converts a snapshot to its DB form and queues it.
func (b *Backend) RecordSnapshot(s sim.Snapshot) error {
	rec, err := toRecord(s)
	if err != nil {
		return err
	}
	b.snapshots.Push(rec)
	return nil
}

// RecordPerformance queues a monitor performance sample.
func (b *Backend) RecordPerformance(p model.RunPerformance) error {
	b.perf.Push(p)
	return nil
}

// QueueLength returns the number of snapshots waiting to be written.
func (b *Backend) QueueLength() int {
	if b.snapshots == nil {
		return 0
	}
	return b.snapshots.Len()
}

// LastWriteDuration returns how long the most recent batch write took.
func (b *Backend) LastWriteDuration() time.Duration {
	return time.Duration(b.lastWriteDuration.Load())
}

func toRecord(s sim.Snapshot) (model.SnapshotRecord, error) {
	channels, err := json.Marshal(s.Channels)
	if err != nil {
		return model.SnapshotRecord{}, fmt.Errorf("failed to marshal channels: %w", err)
	}

	var diagnostics []byte
	if len(s.Diagnostics) > 0 {
		diagnostics, err = json.Marshal(s.Diagnostics)
		if err != nil {
			return model.SnapshotRecord{}, fmt.Errorf("failed to marshal diagnostics: %w", err)
		}
	}

	return model.SnapshotRecord{
		Seq:         s.Seq,
		Elapsed:     s.Elapsed,
		Time:        time.Now(),
		Channels:    datatypes.JSON(channels),
		Diagnostics: datatypes.JSON(diagnostics),
		Triggered:   s.Triggered(),
	}, nil
}

func (b *Backend) log(functionName, data, level string) {
	if b.deps.LogManager != nil {
		b.deps.LogManager.WriteLog(functionName, data, level)
	}
}

// writeQueue writes all items from a queue to the database in a transaction.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log func(string, string, string), prepare func([]T)) {
	if q.Empty() {
		return
	}

	tx := db.Begin()
	items := q.Drain()
	if prepare != nil {
		prepare(items)
	}
	if err := tx.Create(&items).Error; err != nil {
		log("dbWriter", fmt.Sprintf("Error creating %s: %v", name, err), "ERROR")
		tx.Rollback()
		q.Push(items...)
		return
	}

	tx.Commit()
}

// flush drains both queues into the database once.
func (b *Backend) flush() {
	if !b.dbReady {
		return
	}

	runID := uint(b.runID.Load())

	stampSnapshots := func(items []model.SnapshotRecord) {
		for i := range items {
			items[i].RunID = runID
		}
	}
	stampPerf := func(items []model.RunPerformance) {
		for i := range items {
			items[i].RunID = runID
		}
	}

	hadWork := !b.snapshots.Empty() || !b.perf.Empty()

	start := time.Now()
	writeQueue(b.deps.DB, b.snapshots, "snapshots", b.log, stampSnapshots)
	writeQueue(b.deps.DB, b.perf, "performance samples", b.log, stampPerf)
	if hadWork {
		b.lastWriteDuration.Store(int64(time.Since(start)))
	}
}

// startDBWriter starts the goroutine that periodically drains the queues
// and, on the SQLite fallback, dumps the in-memory database to disk.
func (b *Backend) startDBWriter() {
	stop := b.stopChan
	go func() {
		ticker := time.NewTicker(writeInterval)
		defer ticker.Stop()
		dump := time.NewTicker(dumpInterval)
		defer dump.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				b.flush()
			case <-dump.C:
				b.dumpLocal()
			}
		}
	}()
}
