// Package engine provides the tick-based simulation loop. One tick is
// one simulated day; month and year boundaries fire on top of it.
package engine

import (
	"fmt"
	"log/slog"
	"time"
)

// Engine drives the simulation forward.
type Engine struct {
	Tick     uint64        // current day counter (monotonic, never resets)
	Speed    float64       // multiplier: 1.0 = real-time, 0 = paused
	Interval time.Duration // base tick interval
	Running  bool

	DaysPerMonth int
	DaysPerYear  int

	// Callbacks for each tick layer, populated during setup.
	OnDay   func(day uint64)
	OnMonth func(day uint64)
	OnYear  func(day uint64)
}

// NewEngine creates a simulation engine with default settings.
func NewEngine(daysPerMonth, daysPerYear int) *Engine {
	return &Engine{
		Speed:        1.0,
		Interval:     time.Second,
		DaysPerMonth: daysPerMonth,
		DaysPerYear:  daysPerYear,
	}
}

// Run starts the simulation loop. Blocks until Stop() is called.
func (e *Engine) Run() {
	e.Running = true
	slog.Info("simulation engine started", "day", e.Tick, "speed", e.Speed)

	for e.Running {
		if e.Speed <= 0 {
			// Paused: sleep briefly and check again.
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()

		e.Step()

		// Sleep for the remainder of the tick interval, adjusted for speed.
		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / e.Speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	slog.Info("simulation engine stopped", "day", e.Tick)
}

// Stop halts the simulation loop.
func (e *Engine) Stop() {
	e.Running = false
}

// Step advances the simulation by one day. Exported so headless runs
// and tests can drive the clock without the wall-time loop.
func (e *Engine) Step() {
	e.Tick++

	if e.OnDay != nil {
		e.OnDay(e.Tick)
	}
	if e.DaysPerMonth > 0 && e.Tick%uint64(e.DaysPerMonth) == 0 && e.OnMonth != nil {
		e.OnMonth(e.Tick)
	}
	if e.DaysPerYear > 0 && e.Tick%uint64(e.DaysPerYear) == 0 && e.OnYear != nil {
		e.OnYear(e.Tick)
	}
}

// SimTime renders a day counter as a calendar string.
func (e *Engine) SimTime(day uint64) string {
	if e.DaysPerMonth <= 0 || e.DaysPerYear <= 0 {
		return fmt.Sprintf("Day %d", day)
	}
	d := day % uint64(e.DaysPerMonth)
	if d == 0 {
		d = uint64(e.DaysPerMonth)
	}
	month := (day - 1) / uint64(e.DaysPerMonth) % (uint64(e.DaysPerYear) / uint64(e.DaysPerMonth))
	year := (day-1)/uint64(e.DaysPerYear) + 1
	return fmt.Sprintf("Year %d, Month %d, Day %d", year, month+1, d)
}
