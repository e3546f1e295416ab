// Package engine provides the timestep loop that drives one or more cities.
package engine

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// RunConfig holds the parameters of one run.
type RunConfig struct {
	Timesteps int   // Upper bound on timesteps per run
	Seed      int64 // 0 means draw one at startup
}

// DefaultRunConfig returns 200 timesteps with an unresolved seed.
func DefaultRunConfig() RunConfig {
	return RunConfig{Timesteps: 200}
}

// Engine drives the simulation forward one timestep at a time. Execution is
// synchronous: a tick completes in full before the next begins.
type Engine struct {
	Tick     int // Next timestep to run
	MaxTicks int // Run stops after this many timesteps

	running atomic.Bool

	// OnTick runs every timestep; an error aborts the run.
	OnTick func(tick int) error
	// Done reports whether the run can halt early after a tick.
	Done func() bool
}

// NewEngine creates an engine that runs at most maxTicks timesteps.
func NewEngine(maxTicks int) *Engine {
	return &Engine{MaxTicks: maxTicks}
}

// Run steps until MaxTicks, Done, Stop, or an error.
func (e *Engine) Run() error {
	e.running.Store(true)
	slog.Info("simulation engine started", "tick", e.Tick, "max_ticks", e.MaxTicks)

	for e.running.Load() && e.Tick < e.MaxTicks {
		if err := e.step(); err != nil {
			e.running.Store(false)
			return fmt.Errorf("tick %d: %w", e.Tick-1, err)
		}
		if e.Done != nil && e.Done() {
			slog.Info("all cities free of infection", "tick", e.Tick-1)
			break
		}
	}

	e.running.Store(false)
	slog.Info("simulation engine stopped", "tick", e.Tick)
	return nil
}

// Stop halts the loop after the current tick. Safe to call from another
// goroutine.
func (e *Engine) Stop() {
	e.running.Store(false)
}

// Running reports whether Run is in progress.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// step advances the simulation by one tick.
func (e *Engine) step() error {
	tick := e.Tick
	e.Tick++
	if e.OnTick == nil {
		return nil
	}
	return e.OnTick(tick)
}

// SimTime returns a human-readable label for a timestep.
func SimTime(tick int) string {
	return fmt.Sprintf("Day %d", tick)
}
