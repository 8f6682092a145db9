package memory

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/drivesim/recorder/internal/model"
	"github.com/drivesim/recorder/internal/sim"
)

var errNoActiveRun = errors.New("no active run")

// RunExport is the root JSON structure written when a run ends.
type RunExport struct {
	FormatVersion int            `json:"formatVersion"`
	RunName       string         `json:"runName"`
	Simulator     string         `json:"simulator"`
	Seed          int64          `json:"seed"`
	TickInterval  float64        `json:"tickInterval"`
	StartTime     time.Time      `json:"startTime"`
	EndTime       time.Time      `json:"endTime"`
	TickCount     uint           `json:"tickCount"`
	Channels      []string       `json:"channels"`
	Snapshots     []sim.Snapshot `json:"snapshots"`
}

const formatVersion = 1

// exportJSON writes the run data to a JSON file, gzipped when configured.
// Caller holds the lock.
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	runName := strings.ReplaceAll(b.run.Name, " ", "_")
	runName = strings.ReplaceAll(runName, ":", "_")
	timestamp := b.run.StartTime.Format("20060102_150405")

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("%s_%s.json.gz", runName, timestamp)
	} else {
		filename = fmt.Sprintf("%s_%s.json", runName, timestamp)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if b.cfg.CompressOutput {
		if err := b.writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := b.writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() RunExport {
	// channel set is the union across snapshots; variants with a terminal
	// state may stop before every channel has appeared
	seen := make(map[string]struct{})
	for _, s := range b.snapshots {
		for name := range s.Channels {
			seen[name] = struct{}{}
		}
	}
	channels := make([]string, 0, len(seen))
	for name := range seen {
		channels = append(channels, name)
	}
	sort.Strings(channels)

	snapshots := b.snapshots
	if snapshots == nil {
		snapshots = make([]sim.Snapshot, 0)
	}

	return RunExport{
		FormatVersion: formatVersion,
		RunName:       b.run.Name,
		Simulator:     b.run.Simulator,
		Seed:          b.run.Seed,
		TickInterval:  b.run.TickInterval,
		StartTime:     b.run.StartTime,
		EndTime:       b.run.EndTime,
		TickCount:     b.run.TickCount,
		Channels:      channels,
		Snapshots:     snapshots,
	}
}

func (b *Backend) writeJSON(path string, data RunExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(data); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}

func (b *Backend) writeGzipJSON(path string, data RunExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}

// GetExportedFilePath returns the path of the last exported run file.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata describes the last exported run for the upload client.
func (b *Backend) GetExportMetadata() model.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.run == nil {
		return model.UploadMetadata{}
	}
	return model.UploadMetadata{
		RunName:   b.run.Name,
		Simulator: b.run.Simulator,
		StartTime: b.run.StartTime,
		TickCount: b.run.TickCount,
	}
}
