// Command drivesim runs one simulator variant through the tick engine,
// recording every snapshot to the configured storage backend and the
// optional telemetry sinks.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/drivesim/recorder/internal/api"
	"github.com/drivesim/recorder/internal/cache"
	"github.com/drivesim/recorder/internal/chart"
	"github.com/drivesim/recorder/internal/config"
	"github.com/drivesim/recorder/internal/engine"
	"github.com/drivesim/recorder/internal/influx"
	"github.com/drivesim/recorder/internal/logging"
	"github.com/drivesim/recorder/internal/model"
	"github.com/drivesim/recorder/internal/monitor"
	intOtel "github.com/drivesim/recorder/internal/otel"
	"github.com/drivesim/recorder/internal/report"
	"github.com/drivesim/recorder/internal/rng"
	"github.com/drivesim/recorder/internal/run"
	"github.com/drivesim/recorder/internal/series"
	"github.com/drivesim/recorder/internal/sim"
	"github.com/drivesim/recorder/internal/storage"
	"github.com/drivesim/recorder/internal/storage/db"
	"github.com/drivesim/recorder/internal/track"
)

// Version can be set at build time via ldflags.
var (
	Version   = "0.0.1"
	BuildDate = "unknown"
)

const binaryName = "drivesim"

// global state shared between setup and shutdown
var (
	SlogManager  *logging.SlogManager
	Logger       *slog.Logger
	OTelProvider *intOtel.Provider

	RunContext    = run.NewContext()
	SnapshotCache = cache.NewSnapshotCache()
	SessionStart  = time.Now()

	storageBackend storage.Backend
)

func main() {
	if err := realMain(); err != nil {
		fmt.Fprintln(os.Stderr, "drivesim:", err)
		os.Exit(1)
	}
}

func realMain() error {
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, "info", nil, "")
	Logger = SlogManager.Logger()

	if err := config.Load("."); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config")
	}

	// logs dir and session log file
	logsDir := viper.GetString("logsDir")
	if _, err := os.Stat(logsDir); os.IsNotExist(err) {
		os.Mkdir(logsDir, 0755)
	}

	logFilePath := logging.LogFilePath(logsDir, binaryName, SessionStart)
	logFile, err := os.OpenFile(logFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", logFilePath)
	}
	defer logFile.Close()

	// OTel provider if enabled (after log file is created)
	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    logFile,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
		}
	}

	// re-setup logging with file output, optional OTel, optional Graylog
	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	graylogAddr := ""
	if viper.GetBool("graylog.enabled") {
		graylogAddr = viper.GetString("graylog.address")
	}
	SlogManager.Setup(logFile, viper.GetString("logLevel"), otelLogProvider, graylogAddr)
	Logger = SlogManager.Logger()
	Logger.Info("Logging to file", "path", logFilePath, "version", Version, "buildDate", BuildDate)

	SlogManager.GetRunName = func() string {
		if r := RunContext.Get(); !r.StartTime.IsZero() {
			return r.Name
		}
		return ""
	}
	SlogManager.GetTickCount = func() uint {
		return RunContext.Get().TickCount
	}

	return record()
}

// record sets up the simulator, engine, and sinks, and drives one run.
func record() error {
	seed := viper.GetInt64("engine.seed")
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	variant := viper.GetString("sim.variant")

	simulator, err := buildSimulator(variant, seed)
	if err != nil {
		return err
	}

	tickHours := viper.GetFloat64("engine.tickHours")

	zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()
	eng, err := engine.New(simulator, tickHours, logging.NewEngineLogger(zl))
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	// storage
	storageBackend, err = storage.NewBackend(config.GetStorageConfig(), storage.Dependencies{
		LogManager: SlogManager,
		LocalDBDir: viper.GetString("logsDir"),
	})
	if err != nil {
		return fmt.Errorf("creating storage backend: %w", err)
	}
	if err := storageBackend.Init(); err != nil {
		return fmt.Errorf("initializing storage backend: %w", err)
	}
	defer storageBackend.Close()

	currentRun := &model.Run{
		Name:         fmt.Sprintf("%s %s", variant, SessionStart.Format("2006-01-02 15:04:05")),
		Simulator:    simulator.Name(),
		Seed:         seed,
		TickInterval: tickHours,
		StartTime:    SessionStart,
	}
	if err := storageBackend.StartRun(currentRun); err != nil {
		return fmt.Errorf("starting run: %w", err)
	}
	RunContext.Set(currentRun)
	Logger.Info("Run started", "simulator", simulator.Name(), "seed", seed)

	// observers
	eng.Attach("recorder", func(s sim.Snapshot) error {
		RunContext.SetTickCount(s.Seq)
		SnapshotCache.Put(simulator.Name(), s)
		return storageBackend.RecordSnapshot(s)
	})

	eng.Attach("console", report.New(simulator.Name(), os.Stdout).Observe)

	var collector *series.Collector
	if viper.GetBool("chart.enabled") {
		collector = series.NewCollector()
		eng.Attach("series", collector.Observe)
	}

	var tracker *track.Tracker
	if viper.GetBool("track.enabled") && hasSpeedChannel(variant) {
		tracker = track.New(
			viper.GetFloat64("track.originLon"),
			viper.GetFloat64("track.originLat"),
			rng.NewSeeded(seed+1),
		)
		eng.Attach("track", tracker.Observe)
	}

	influxManager := setupInflux(currentRun, simulator.Name(), eng)
	if influxManager != nil {
		defer influxManager.Close()
	}

	// monitor
	monitorDeps := monitor.Dependencies{
		LogManager: SlogManager,
		RunContext: RunContext,
		Cache:      SnapshotCache,
		StatusDir:  viper.GetString("logsDir"),
	}
	var dbBackend *db.Backend
	if b, ok := storageBackend.(*db.Backend); ok {
		dbBackend = b
		monitorDeps.QueueLength = dbBackend.QueueLength
		monitorDeps.LastWriteDuration = dbBackend.LastWriteDuration
	}
	if dbBackend != nil || influxManager != nil {
		monitorDeps.Sink = performanceSink(currentRun.Name, dbBackend, influxManager)
	}
	monitorService := monitor.NewService(monitorDeps)
	if err := monitorService.Start(); err != nil {
		Logger.Error("Failed to start status monitor", "error", err)
	}
	defer monitorService.Stop()

	// run
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []engine.RunOption{
		engine.MaxTicks(uint(viper.GetInt("engine.maxTicks"))),
	}
	if variant == "climate" {
		opts = append(opts, engine.UntilDone())
	}
	if ms := viper.GetInt("engine.intervalMs"); ms > 0 {
		opts = append(opts, engine.Interval(time.Duration(ms)*time.Millisecond))
	}

	ticks, runErr := eng.Run(ctx, opts...)
	if runErr != nil && runErr != context.Canceled {
		return fmt.Errorf("engine run: %w", runErr)
	}
	eng.Close()
	Logger.Info("Run finished", "ticks", ticks)

	if err := storageBackend.EndRun(time.Now(), ticks); err != nil {
		return fmt.Errorf("ending run: %w", err)
	}

	finalizeOutputs(currentRun, collector, tracker)
	uploadExport()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := SlogManager.Flush(flushCtx); err != nil {
		Logger.Error("Log flush failed", "error", err)
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(flushCtx); err != nil {
			Logger.Error("OTel shutdown failed", "error", err)
		}
	}

	return nil
}

// performanceSink fans monitor samples out to the db backend and InfluxDB,
// whichever are configured.
func performanceSink(runName string, dbBackend *db.Backend, influxManager *influx.Manager) func(model.RunPerformance) {
	return func(p model.RunPerformance) {
		if dbBackend != nil {
			if err := dbBackend.RecordPerformance(p); err != nil {
				Logger.Error("Failed to record performance sample", "error", err)
			}
		}
		if influxManager != nil {
			lastWrite := time.Duration(float64(p.LastWriteDurationMs) * float64(time.Millisecond))
			point := influx.PerformancePoint(runName, int(p.QueueLength), lastWrite, p.Time)
			if err := influxManager.WritePoint(context.Background(), influx.BucketPerformance, point); err != nil {
				Logger.Error("Failed to ship performance sample to InfluxDB", "error", err)
			}
		}
	}
}

// buildSimulator constructs the configured simulator variant.
func buildSimulator(variant string, seed int64) (sim.Simulator, error) {
	src := rng.NewSeeded(seed)

	switch variant {
	case "odometer":
		return sim.NewOdometer(viper.GetFloat64("sim.odometer.fuelEfficiency"), src), nil
	case "climate":
		c := sim.NewClimate(
			viper.GetFloat64("sim.climate.initial"),
			viper.GetFloat64("sim.climate.external"),
			src,
		)
		c.SetSetpoint(viper.GetFloat64("sim.climate.setpoint"))
		return c, nil
	case "tpms":
		pressures := floats(viper.Get("sim.tpms.pressures"))
		return sim.NewTPMS(viper.GetFloat64("sim.tpms.safePressure"), pressures, src), nil
	case "vehicle":
		return sim.NewVehicle(src), nil
	default:
		return nil, fmt.Errorf("unknown simulator variant: %s", variant)
	}
}

// hasSpeedChannel reports whether the variant emits speed_kmh, which the
// route tracker integrates.
func hasSpeedChannel(variant string) bool {
	return variant == "vehicle" || variant == "odometer"
}

// floats coerces a viper slice value to []float64.
func floats(v any) []float64 {
	switch vals := v.(type) {
	case []float64:
		return vals
	case []any:
		out := make([]float64, 0, len(vals))
		for _, item := range vals {
			if f, ok := item.(float64); ok {
				out = append(out, f)
			}
		}
		return out
	default:
		return nil
	}
}

// setupInflux connects the InfluxDB manager and attaches its observer.
// Returns nil when influx is disabled or the connection setup fails.
func setupInflux(currentRun *model.Run, simName string, eng *engine.Engine) *influx.Manager {
	if !viper.GetBool("influx.enabled") {
		return nil
	}

	backupPath := filepath.Join(viper.GetString("logsDir"),
		fmt.Sprintf("influx_backup_%s.gz", SessionStart.Format("20060102_150405")))

	zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()
	mgr := influx.NewManager(zl, backupPath)
	if err := mgr.Connect(); err != nil {
		Logger.Error("Failed to connect to InfluxDB", "error", err)
		return nil
	}

	eng.Attach("influx", func(s sim.Snapshot) error {
		point := influx.SnapshotPoint(currentRun.Name, simName, s, time.Now())
		return mgr.WritePoint(context.Background(), influx.BucketRunData, point)
	}, engine.Buffered(512))

	return mgr
}

// finalizeOutputs renders charts and writes the route trace after a run.
func finalizeOutputs(currentRun *model.Run, collector *series.Collector, tracker *track.Tracker) {
	baseName := strings.ReplaceAll(currentRun.Name, " ", "_")
	baseName = strings.ReplaceAll(baseName, ":", "_")

	if collector != nil {
		chartPath := filepath.Join(viper.GetString("chart.outputDir"), baseName+".png")
		channels := collector.Channels()
		if currentRun.Simulator == "odometer" {
			// the odometer chart tracks the accumulator totals; instantaneous
			// speed is on a different scale and drowns out the fuel series
			channels = chart.Exclude(channels, "speed_kmh")
		}
		if err := chart.RenderRun(collector, channels, currentRun.Name, chartPath); err != nil {
			Logger.Error("Failed to render chart", "error", err, "path", chartPath)
			os.Exit(1)
		}
		Logger.Info("Chart written", "path", chartPath)
	}

	if tracker != nil {
		geojson, err := tracker.GeoJSON()
		if err != nil {
			Logger.Error("Failed to build route trace", "error", err)
			return
		}
		tracePath := filepath.Join(viper.GetString("chart.outputDir"), baseName+".geojson")
		if err := os.WriteFile(tracePath, geojson, 0644); err != nil {
			Logger.Error("Failed to write route trace", "error", err, "path", tracePath)
			return
		}
		Logger.Info("Route trace written", "path", tracePath, "points", tracker.Points())
	}
}

// uploadExport sends the exported run file to the fleet dashboard when
// uploads are enabled and the backend produced a file.
func uploadExport() {
	if !viper.GetBool("api.upload") {
		return
	}

	uploadable, ok := storageBackend.(storage.Uploadable)
	if !ok || uploadable.GetExportedFilePath() == "" {
		Logger.Warn("Upload enabled but storage backend produced no export file")
		return
	}

	client := api.New(viper.GetString("api.serverUrl"), viper.GetString("api.apiKey"))
	if err := client.Healthcheck(); err != nil {
		Logger.Error("Dashboard healthcheck failed, skipping upload", "error", err)
		return
	}

	path := uploadable.GetExportedFilePath()
	if err := client.Upload(path, uploadable.GetExportMetadata()); err != nil {
		Logger.Error("Upload failed", "error", err, "path", path)
		return
	}
	Logger.Info("Run uploaded", "path", path)
}
