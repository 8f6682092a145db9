// Package run holds the current-run context shared between the engine,
// the monitor, and logging.
package run

import (
	"sync"

	"github.com/drivesim/recorder/internal/model"
)

// Context holds the run currently being recorded.
type Context struct {
	mu  sync.RWMutex
	run *model.Run
}

// NewContext creates a Context with a placeholder run.
func NewContext() *Context {
	return &Context{
		run: &model.Run{Name: "No run active"},
	}
}

// Get returns the current run.
func (c *Context) Get() *model.Run {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.run
}

// Set replaces the current run.
func (c *Context) Set(r *model.Run) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.run = r
}

// SetTickCount updates the tick counter on the current run.
func (c *Context) SetTickCount(n uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.run.TickCount = n
}
