// Package sim drives the foraging simulation: the tick loop, the
// per-tick update order, competition resolution, and aggregate stats.
package sim

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultDt is the simulation time advanced per tick, in time units.
const DefaultDt = 0.1

// Engine drives the simulation forward on a fixed tick schedule.
type Engine struct {
	mu       sync.Mutex
	tick     uint64
	speed    float64 // multiplier: 1.0 = real-time, 0 = paused
	running  bool
	Interval time.Duration // base tick interval
	Dt       float64       // sim time per tick

	// OnTick runs every tick with the tick counter and sim time.
	OnTick func(tick uint64, now, dt float64)
}

// NewEngine creates an engine with default settings.
func NewEngine() *Engine {
	return &Engine{
		speed:    1.0,
		Interval: 100 * time.Millisecond,
		Dt:       DefaultDt,
	}
}

// Tick returns the current tick counter.
func (e *Engine) Tick() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// Now returns the current simulation time in time units.
func (e *Engine) Now() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return float64(e.tick) * e.Dt
}

// Speed returns the current speed multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the speed multiplier. Zero or below pauses.
func (e *Engine) SetSpeed(s float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s < 0 {
		s = 0
	}
	e.speed = s
}

// Running reports whether the loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Run starts the simulation loop. Blocks until Stop is called.
func (e *Engine) Run() {
	e.mu.Lock()
	e.running = true
	e.mu.Unlock()
	slog.Info("simulation engine started", "tick", e.Tick(), "speed", e.Speed())

	for e.Running() {
		sp := e.Speed()
		if sp <= 0 {
			// Paused. Sleep briefly and check again.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()
		e.step()

		// Sleep for the remainder of the tick interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / sp)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	slog.Info("simulation engine stopped", "tick", e.Tick())
}

// Stop halts the simulation loop.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.running = false
	e.mu.Unlock()
}

// Step advances the simulation by exactly one tick. Exposed for
// headless and test drivers.
func (e *Engine) Step() { e.step() }

func (e *Engine) step() {
	e.mu.Lock()
	e.tick++
	tick := e.tick
	dt := e.Dt
	e.mu.Unlock()

	if e.OnTick != nil {
		e.OnTick(tick, float64(tick)*dt, dt)
	}
}
