package logging

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func TestLogFilePath(t *testing.T) {
	start := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	got := LogFilePath("/var/log/drivesim", "drivesim", start)
	assert.Equal(t, filepath.Join("/var/log/drivesim", "drivesim.20260314_092653.log"), got)
}

func TestMultiHandler_FansOutToAllHandlers(t *testing.T) {
	var a, b bytes.Buffer
	mh := NewMultiHandler(
		slog.NewTextHandler(&a, nil),
		slog.NewTextHandler(&b, nil),
	)

	logger := slog.New(mh)
	logger.Info("tick complete", "seq", 3)

	assert.Contains(t, a.String(), "tick complete")
	assert.Contains(t, b.String(), "tick complete")
	assert.Contains(t, a.String(), "seq=3")
}

func TestMultiHandler_SkipsNilHandlers(t *testing.T) {
	var buf bytes.Buffer
	mh := NewMultiHandler(nil, slog.NewTextHandler(&buf, nil), nil)

	slog.New(mh).Info("hello")
	assert.Contains(t, buf.String(), "hello")
}

func TestMultiHandler_EnabledIfAnyEnabled(t *testing.T) {
	var buf bytes.Buffer
	debugOnly := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelError})
	infoHandler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})

	mh := NewMultiHandler(debugOnly, infoHandler)
	assert.True(t, mh.Enabled(context.Background(), slog.LevelInfo))

	onlyError := NewMultiHandler(debugOnly)
	assert.False(t, onlyError.Enabled(context.Background(), slog.LevelInfo))
}

func TestContextHandler_InjectsDynamicAttrs(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, nil)

	tick := uint(0)
	h := NewContextHandler(inner, func() []slog.Attr {
		return []slog.Attr{slog.Uint64("tick", uint64(tick))}
	})

	logger := slog.New(h)

	tick = 7
	logger.Info("snapshot recorded")
	assert.Contains(t, buf.String(), "tick=7")

	buf.Reset()
	tick = 8
	logger.Info("snapshot recorded")
	assert.Contains(t, buf.String(), "tick=8")
}

func TestSlogManager_SetupWritesToFileAndConsole(t *testing.T) {
	var file bytes.Buffer

	m := NewSlogManager()
	m.Setup(&file, "debug", nil, "")

	m.Logger().Debug("engine started", "simulator", "tpms")
	assert.Contains(t, file.String(), "engine started")
	assert.Contains(t, file.String(), "simulator=tpms")
}

func TestSlogManager_LevelFiltersRecords(t *testing.T) {
	var file bytes.Buffer

	m := NewSlogManager()
	m.Setup(&file, "warn", nil, "")
	file.Reset()

	m.Logger().Info("should be dropped")
	assert.NotContains(t, file.String(), "should be dropped")

	m.Logger().Warn("kept")
	assert.Contains(t, file.String(), "kept")
}

func TestSlogManager_RunContextAttrs(t *testing.T) {
	var file bytes.Buffer

	m := NewSlogManager()
	m.GetRunName = func() string { return "night-drive" }
	m.GetTickCount = func() uint { return 12 }
	m.Setup(&file, "info", nil, "")

	m.Logger().Info("checkpoint")
	assert.Contains(t, file.String(), "run=night-drive")
	assert.Contains(t, file.String(), "tick=12")
}

func TestSlogManager_WriteLogLevels(t *testing.T) {
	var file bytes.Buffer

	m := NewSlogManager()
	m.Setup(&file, "debug", nil, "")
	file.Reset()

	m.WriteLog("startRun", "run begins", "INFO")
	m.WriteLog("startRun", "low detail", "DEBUG")
	m.WriteLog("startRun", "bad state", "ERROR")

	out := file.String()
	assert.Contains(t, out, "run begins")
	assert.Contains(t, out, "low detail")
	assert.Contains(t, out, "bad state")
	assert.Contains(t, out, "function=startRun")
}

func TestSlogManager_LoggerBeforeSetup(t *testing.T) {
	m := NewSlogManager()
	require.NotNil(t, m.Logger())
}

func TestSlogManager_Flush(t *testing.T) {
	m := NewSlogManager()
	require.NoError(t, m.Flush(context.Background()))

	var file bytes.Buffer
	m.Setup(&file, "info", sdklog.NewLoggerProvider(), "")
	require.NoError(t, m.Flush(context.Background()))
}

func TestEngineLogger_FormatsFields(t *testing.T) {
	var buf bytes.Buffer
	zl := zerolog.New(&buf)

	l := NewEngineLogger(zl)
	l.Info("observer attached", "name", "console", "buffered", true)

	out := buf.String()
	assert.Contains(t, out, `"name":"console"`)
	assert.Contains(t, out, `"buffered":true`)
	assert.Contains(t, out, "observer attached")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"Warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in), tt.in)
	}
}
