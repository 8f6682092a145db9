// Package engine drives a simulator through its tick loop and fans each
// snapshot out to registered observers. Observers are synchronous by
// default; per-observer options add buffering and debug logging.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/drivesim/recorder/internal/sim"
)

// Observer consumes one snapshot per tick.
type Observer func(sim.Snapshot) error

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures observer attachment.
type Option func(*obsConfig)

type obsConfig struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered makes the observer async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *obsConfig) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered observer block when its queue is full instead
// of dropping snapshots.
func Blocking() Option {
	return func(c *obsConfig) {
		c.blocking = true
	}
}

// Logged adds debug logging around the observer.
func Logged() Option {
	return func(c *obsConfig) {
		c.logged = true
	}
}

// RunOption configures a single Run call.
type RunOption func(*runConfig)

type runConfig struct {
	maxTicks  uint
	untilDone bool
	interval  time.Duration
}

// MaxTicks bounds the run to at most n ticks.
func MaxTicks(n uint) RunOption {
	return func(c *runConfig) {
		c.maxTicks = n
	}
}

// UntilDone stops the run once the simulator reports a terminal state.
// Combine with MaxTicks so a simulator that never terminates cannot run
// unbounded.
func UntilDone() RunOption {
	return func(c *runConfig) {
		c.untilDone = true
	}
}

// Interval paces the run in wall-clock time; zero runs flat out.
func Interval(d time.Duration) RunOption {
	return func(c *runConfig) {
		c.interval = d
	}
}

// Engine owns one simulator and the observers attached to it.
type Engine struct {
	simulator sim.Simulator
	tickHours float64
	logger    Logger

	observers []Observer

	// OTEL metrics
	bufferSize metric.Int64ObservableGauge
	processed  metric.Int64Counter
	dropped    metric.Int64Counter

	// Track buffers for gauge callback, and workers for Close
	mu      sync.RWMutex
	buffers map[string]chan sim.Snapshot
	workers sync.WaitGroup
}

// New creates an Engine for the given simulator. tickHours is the amount
// of simulated time each tick advances. Uses the global OTel meter for
// metrics (no-op if not configured).
func New(simulator sim.Simulator, tickHours float64, logger Logger) (*Engine, error) {
	if tickHours <= 0 {
		return nil, fmt.Errorf("tick duration must be positive, got %v", tickHours)
	}

	e := &Engine{
		simulator: simulator,
		tickHours: tickHours,
		logger:    logger,
		buffers:   make(map[string]chan sim.Snapshot),
	}

	m := meter()

	var err error

	e.bufferSize, err = m.Int64ObservableGauge(
		"engine.buffer.size",
		metric.WithDescription("Current number of snapshots queued per observer"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating buffer size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			e.mu.RLock()
			defer e.mu.RUnlock()
			for name, buf := range e.buffers {
				o.ObserveInt64(e.bufferSize, int64(len(buf)),
					metric.WithAttributes(attribute.String("observer", name)))
			}
			return nil
		},
		e.bufferSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering buffer callback: %w", err)
	}

	e.processed, err = m.Int64Counter(
		"engine.snapshots.processed",
		metric.WithDescription("Total snapshots delivered to observers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	e.dropped, err = m.Int64Counter(
		"engine.snapshots.dropped",
		metric.WithDescription("Total snapshots dropped due to full observer queues"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return e, nil
}

// Simulator returns the simulator the engine drives.
func (e *Engine) Simulator() sim.Simulator {
	return e.simulator
}

// Attach registers an observer under the given name with optional
// configuration. Must be called before Run.
func (e *Engine) Attach(name string, o Observer, opts ...Option) {
	cfg := &obsConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	observer := o

	if cfg.bufferSize > 0 {
		observer = e.withBuffer(name, cfg.bufferSize, cfg.blocking, observer)
	}

	if cfg.logged {
		observer = e.withLogging(name, observer)
	}

	e.observers = append(e.observers, observer)
}

// Run advances the simulator tick by tick, delivering each snapshot to
// every observer, until a stop condition from opts is met or ctx is
// cancelled. Returns the number of ticks completed.
func (e *Engine) Run(ctx context.Context, opts ...RunOption) (uint, error) {
	cfg := &runConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.maxTicks == 0 && !cfg.untilDone {
		return 0, fmt.Errorf("run needs a stop condition: MaxTicks or UntilDone")
	}

	var pacer *time.Ticker
	if cfg.interval > 0 {
		pacer = time.NewTicker(cfg.interval)
		defer pacer.Stop()
	}

	e.logger.Info("run starting",
		"simulator", e.simulator.Name(),
		"maxTicks", cfg.maxTicks,
		"untilDone", cfg.untilDone,
		"interval", cfg.interval)

	var ticks uint
	for {
		if pacer != nil {
			select {
			case <-ctx.Done():
				return ticks, ctx.Err()
			case <-pacer.C:
			}
		} else {
			select {
			case <-ctx.Done():
				return ticks, ctx.Err()
			default:
			}
		}

		snapshot := e.simulator.Tick(e.tickHours)
		ticks++

		for _, o := range e.observers {
			if err := o(snapshot); err != nil {
				e.logger.Error("observer failed",
					"simulator", e.simulator.Name(),
					"seq", snapshot.Seq,
					"error", err)
			}
		}

		if cfg.untilDone && e.simulator.Done() {
			e.logger.Info("run reached terminal state", "ticks", ticks)
			break
		}
		if cfg.maxTicks > 0 && ticks >= cfg.maxTicks {
			break
		}
	}

	return ticks, nil
}

// Close shuts down buffered observers and waits for their queues to
// drain. The engine must not be run again after Close.
func (e *Engine) Close() {
	e.mu.Lock()
	for name, buf := range e.buffers {
		close(buf)
		delete(e.buffers, name)
	}
	e.mu.Unlock()

	e.workers.Wait()
}

func (e *Engine) withBuffer(name string, size int, blocking bool, o Observer) Observer {
	buffer := make(chan sim.Snapshot, size)

	e.mu.Lock()
	e.buffers[name] = buffer
	e.mu.Unlock()

	obsAttr := attribute.String("observer", name)

	e.workers.Add(1)
	go func() {
		defer e.workers.Done()
		for s := range buffer {
			if err := o(s); err != nil {
				e.logger.Error("buffered observer failed", "observer", name, "seq", s.Seq, "error", err)
			}
			e.processed.Add(context.Background(), 1, metric.WithAttributes(obsAttr))
		}
	}()

	if blocking {
		return func(s sim.Snapshot) error {
			buffer <- s
			return nil
		}
	}

	return func(s sim.Snapshot) error {
		select {
		case buffer <- s:
			return nil
		default:
			e.dropped.Add(context.Background(), 1, metric.WithAttributes(obsAttr))
			return fmt.Errorf("observer queue full: %s", name)
		}
	}
}

func (e *Engine) withLogging(name string, o Observer) Observer {
	return func(s sim.Snapshot) error {
		start := time.Now()
		e.logger.Debug("delivering snapshot", "observer", name, "seq", s.Seq)

		err := o(s)

		if err != nil {
			e.logger.Error("snapshot delivery failed", "observer", name, "seq", s.Seq, "duration", time.Since(start), "error", err)
		} else {
			e.logger.Debug("snapshot delivered", "observer", name, "seq", s.Seq, "duration", time.Since(start))
		}

		return err
	}
}
