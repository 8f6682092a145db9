package db

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drivesim/recorder/internal/database"
	"github.com/drivesim/recorder/internal/model"
	"github.com/drivesim/recorder/internal/sim"
)

func newTestBackend(t *testing.T) *Backend {
	mgr := database.NewManager(zerolog.Nop())
	gdb, err := mgr.GetSqliteDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	b := New(Dependencies{DB: gdb})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func testSnapshot(seq uint) sim.Snapshot {
	return sim.Snapshot{
		Seq:      seq,
		Elapsed:  float64(seq) * 0.5,
		Channels: map[string]float64{"cabin_c": 20 + float64(seq)*0.5},
		Diagnostics: []sim.Diagnostic{
			{Channel: "cabin_c", Triggered: false, Message: "Heating up"},
		},
	}
}

func TestBackend_StartRunAssignsID(t *testing.T) {
	b := newTestBackend(t)

	run := &model.Run{Name: "climate test", Simulator: "climate", StartTime: time.Now().UTC()}
	require.NoError(t, b.StartRun(run))
	assert.NotZero(t, run.ID)
}

func TestBackend_SnapshotsFlushedOnEndRun(t *testing.T) {
	b := newTestBackend(t)

	run := &model.Run{Name: "flush test", Simulator: "climate", StartTime: time.Now().UTC()}
	require.NoError(t, b.StartRun(run))

	for i := uint(1); i <= 5; i++ {
		require.NoError(t, b.RecordSnapshot(testSnapshot(i)))
	}
	assert.Equal(t, 5, b.QueueLength())

	require.NoError(t, b.EndRun(time.Now().UTC(), 5))
	assert.Equal(t, 0, b.QueueLength())

	var count int64
	require.NoError(t, b.deps.DB.Model(&model.SnapshotRecord{}).
		Where("run_id = ?", run.ID).Count(&count).Error)
	assert.Equal(t, int64(5), count)

	var got model.Run
	require.NoError(t, b.deps.DB.First(&got, run.ID).Error)
	assert.Equal(t, uint(5), got.TickCount)
	assert.False(t, got.EndTime.IsZero())

	assert.Greater(t, b.LastWriteDuration(), time.Duration(0))
}

func TestBackend_SnapshotRecordContents(t *testing.T) {
	b := newTestBackend(t)

	run := &model.Run{Name: "contents", Simulator: "climate", StartTime: time.Now().UTC()}
	require.NoError(t, b.StartRun(run))
	require.NoError(t, b.RecordSnapshot(testSnapshot(1)))
	require.NoError(t, b.EndRun(time.Now().UTC(), 1))

	var rec model.SnapshotRecord
	require.NoError(t, b.deps.DB.Where("run_id = ?", run.ID).First(&rec).Error)

	assert.Equal(t, uint(1), rec.Seq)
	assert.Equal(t, 0.5, rec.Elapsed)
	assert.JSONEq(t, `{"cabin_c":20.5}`, string(rec.Channels))
	assert.Contains(t, string(rec.Diagnostics), "Heating up")
	assert.False(t, rec.Triggered)
}

func TestBackend_EndRunWithoutStart(t *testing.T) {
	b := newTestBackend(t)
	assert.Error(t, b.EndRun(time.Now().UTC(), 0))
}

func TestBackend_RecordPerformance(t *testing.T) {
	b := newTestBackend(t)

	run := &model.Run{Name: "perf", Simulator: "tpms", StartTime: time.Now().UTC()}
	require.NoError(t, b.StartRun(run))

	require.NoError(t, b.RecordPerformance(model.RunPerformance{
		Time:                time.Now().UTC(),
		QueueLength:         3,
		LastWriteDurationMs: 1.5,
	}))
	require.NoError(t, b.EndRun(time.Now().UTC(), 0))

	var perf model.RunPerformance
	require.NoError(t, b.deps.DB.Where("run_id = ?", run.ID).First(&perf).Error)
	assert.Equal(t, uint16(3), perf.QueueLength)
}

func TestBackend_PrepareLocalSetsDumpPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old_session.db"), []byte("x"), 0644))

	b := New(Dependencies{LocalDBDir: dir})
	mgr := database.NewManager(zerolog.Nop())
	mgr.ShouldSaveLocal = true
	b.prepareLocal(mgr)

	assert.Equal(t, dir, filepath.Dir(mgr.SqliteFilePath))
	assert.True(t, strings.HasPrefix(filepath.Base(mgr.SqliteFilePath), "drivesim_"))
	assert.True(t, strings.HasSuffix(mgr.SqliteFilePath, ".db"))
}

func TestBackend_EndRunDumpsLocalDB(t *testing.T) {
	mgr := database.NewManager(zerolog.Nop())
	gdb, err := mgr.GetSqliteDB("")
	require.NoError(t, err)
	mgr.DB = gdb
	mgr.ShouldSaveLocal = true
	mgr.SqliteFilePath = filepath.Join(t.TempDir(), "drivesim_dump.db")

	b := New(Dependencies{DB: gdb})
	require.NoError(t, b.Init())
	b.mgr = mgr
	t.Cleanup(func() { _ = b.Close() })

	run := &model.Run{Name: "local run", Simulator: "odometer", StartTime: time.Now().UTC()}
	require.NoError(t, b.StartRun(run))
	require.NoError(t, b.RecordSnapshot(testSnapshot(1)))
	require.NoError(t, b.EndRun(time.Now().UTC(), 1))

	// the dump must be a readable database holding the finished run
	dumped, err := database.NewManager(zerolog.Nop()).GetSqliteDB(mgr.SqliteFilePath)
	require.NoError(t, err)
	var got model.Run
	require.NoError(t, dumped.First(&got).Error)
	assert.Equal(t, "local run", got.Name)
	assert.Equal(t, uint(1), got.TickCount)
}
