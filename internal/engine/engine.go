// Package engine provides the real-time heartbeat that drives vitality decay
// and periodic persistence.
package engine

import (
	"log/slog"
	"time"

	"go.uber.org/atomic"
)

// TickSchedule defines when each system runs relative to the tick counter.
const (
	TicksPerDecay   = 10 // vitality decay fires every 10 ticks (10 seconds)
	TicksPerPersist = 10 // base stats are written back on the same cadence
)

// Engine drives the pet loop forward. Speed and the stop flag are written
// from HTTP and signal goroutines while the loop reads them, so both are
// atomics.
type Engine struct {
	tick    atomic.Uint64
	speed   atomic.Float64 // multiplier: 1.0 = real-time, 0 = paused
	running atomic.Bool

	Interval time.Duration // Base tick interval (default 1 second)

	// Callbacks for each tick layer — populated during setup.
	OnTick    func(tick uint64) // Every tick (fast UI-facing updates)
	OnDecay   func(tick uint64) // Every TicksPerDecay ticks
	OnPersist func(tick uint64) // Every TicksPerPersist ticks
}

// NewEngine creates a pet engine with default settings.
func NewEngine() *Engine {
	e := &Engine{Interval: time.Second}
	e.speed.Store(1.0)
	return e
}

// TickCount returns the monotonic tick counter.
func (e *Engine) TickCount() uint64 {
	return e.tick.Load()
}

// Speed returns the current speed multiplier.
func (e *Engine) Speed() float64 {
	return e.speed.Load()
}

// SetSpeed changes the speed multiplier; 0 pauses the loop.
func (e *Engine) SetSpeed(v float64) {
	e.speed.Store(v)
}

// Running reports whether the loop is active.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Run starts the pet loop. Blocks until Stop() is called.
func (e *Engine) Run() {
	e.running.Store(true)
	slog.Info("pet engine started", "tick", e.tick.Load(), "speed", e.speed.Load())

	for e.running.Load() {
		speed := e.speed.Load()
		if speed <= 0 {
			// Paused — sleep briefly and check again.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()

		e.step()

		// Sleep for the remainder of the tick interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	slog.Info("pet engine stopped", "tick", e.tick.Load())
}

// Stop halts the pet loop.
func (e *Engine) Stop() {
	e.running.Store(false)
}

// step advances the loop by one tick.
func (e *Engine) step() {
	tick := e.tick.Add(1)

	// Every tick: fast updates (happy-window expiry, UI state).
	if e.OnTick != nil {
		e.OnTick(tick)
	}

	// Every decay interval: vitality counters drop and poos may spawn.
	if tick%TicksPerDecay == 0 && e.OnDecay != nil {
		e.OnDecay(tick)
	}

	// Every persist interval: write base stats back to the store.
	if tick%TicksPerPersist == 0 && e.OnPersist != nil {
		e.OnPersist(tick)
	}
}

// Uptime returns a human-readable elapsed-time string from a tick number.
func Uptime(tick uint64) time.Duration {
	return time.Duration(tick) * time.Second
}
