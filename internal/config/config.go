// Package config loads recorder configuration from a JSON file via viper,
// with defaults that give a runnable zero-config demo.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// MemoryConfig holds in-memory/JSON storage backend settings.
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// StorageConfig selects and configures the snapshot storage backend.
type StorageConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// Load reads configuration from drivesim.cfg.json in configDir and sets
// default values for every key.
func Load(configDir string) error {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")
	viper.SetDefault("instanceName", "drivesim")

	// Engine defaults: one simulated day in 30-minute ticks, no pacing.
	viper.SetDefault("engine.maxTicks", 48)
	viper.SetDefault("engine.tickHours", 0.5)
	viper.SetDefault("engine.intervalMs", 0)
	viper.SetDefault("engine.seed", 0) // 0 means derive from wall clock

	// Simulator parameters, matching the reference systems.
	viper.SetDefault("sim.variant", "odometer")
	viper.SetDefault("sim.odometer.fuelEfficiency", 15.0)
	viper.SetDefault("sim.climate.initial", 20.0)
	viper.SetDefault("sim.climate.external", 15.0)
	viper.SetDefault("sim.climate.setpoint", 25.0)
	viper.SetDefault("sim.tpms.safePressure", 30.0)
	viper.SetDefault("sim.tpms.pressures", []float64{32.0, 32.0, 32.0, 32.0})

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./runs")
	viper.SetDefault("storage.memory.compressOutput", true)

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "drivesim")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "drivesim-metrics")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")
	viper.SetDefault("api.upload", false)

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "drivesim")
	viper.SetDefault("otel.batchTimeoutSec", 5)
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", false)

	viper.SetDefault("chart.enabled", true)
	viper.SetDefault("chart.outputDir", ".")

	viper.SetDefault("track.enabled", true)
	viper.SetDefault("track.originLon", 13.405) // route trace origin, EPSG:4326
	viper.SetDefault("track.originLat", 52.52)

	viper.SetConfigName("drivesim.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	// A missing config file is fine: defaults cover a full demo run.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %v", err)
		}
	}

	return nil
}

// GetStorageConfig returns the storage backend configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: time.Duration(viper.GetInt("otel.batchTimeoutSec")) * time.Second,
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetFloat64 returns a float config value.
func GetFloat64(key string) float64 {
	return viper.GetFloat64(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
