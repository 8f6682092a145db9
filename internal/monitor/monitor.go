// Package monitor runs a periodic status goroutine: it writes a status
// file with run progress and recorder health, and hands performance
// samples to an optional sink.
package monitor

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/drivesim/recorder/internal/cache"
	"github.com/drivesim/recorder/internal/logging"
	"github.com/drivesim/recorder/internal/model"
	"github.com/drivesim/recorder/internal/run"
)

// Dependencies holds all dependencies for the monitor service.
type Dependencies struct {
	LogManager *logging.SlogManager
	RunContext *run.Context
	Cache      *cache.SnapshotCache
	StatusDir  string

	// Interval between samples; zero means one second.
	Interval time.Duration

	// Optional hooks into the storage backend. Nil when the backend has
	// no write queue.
	QueueLength       func() int
	LastWriteDuration func() time.Duration

	// Optional sink for performance samples (db backend, influx).
	Sink func(model.RunPerformance)
}

// Service manages status monitoring.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a new monitor service.
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Status returns the current status lines and a performance sample.
func (s *Service) Status() ([]string, model.RunPerformance) {
	r := s.deps.RunContext.Get()

	perf := model.RunPerformance{
		Time:  time.Now(),
		RunID: r.ID,
	}
	if s.deps.QueueLength != nil {
		perf.QueueLength = uint16(s.deps.QueueLength())
	}
	if s.deps.LastWriteDuration != nil {
		perf.LastWriteDurationMs = float32(s.deps.LastWriteDuration().Microseconds()) / 1000.0
	}

	output := []string{
		fmt.Sprintf("run: %s (%s)", r.Name, r.Simulator),
		fmt.Sprintf("ticks: %d", r.TickCount),
		fmt.Sprintf("queue: %d", perf.QueueLength),
		fmt.Sprintf("last write: %.3fms", perf.LastWriteDurationMs),
	}

	for _, name := range s.deps.Cache.Names() {
		if snap, ok := s.deps.Cache.Get(name); ok {
			line := fmt.Sprintf("%s: tick %d", name, snap.Seq)
			if snap.Triggered() {
				line += " [diagnostic triggered]"
			}
			output = append(output, line)
		}
	}

	return output, perf
}

// Start starts the status monitor goroutine.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	go func() {
		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting status monitor goroutine", "function", "startStatusMonitor")

		statusFile, err := os.Create(filepath.Join(s.deps.StatusDir, "status.txt"))
		if err != nil {
			logger.Error("Error creating status file", "error", err)
		}
		defer statusFile.Close()

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
				r := s.deps.RunContext.Get()
				if r.StartTime.IsZero() {
					continue
				}

				statusStr, perf := s.Status()

				if statusFile != nil {
					statusFile.Truncate(0)
					statusFile.Seek(0, 0)
					for _, line := range statusStr {
						statusFile.WriteString(line + "\n")
					}
				}

				if s.deps.Sink != nil {
					s.deps.Sink(perf)
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor. Safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		s.isRunning = false
		close(s.stopChan)
	}
}
