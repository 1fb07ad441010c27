package telemetry

import (
	"github.com/pthm-cable/pbf/components"
	"github.com/pthm-cable/pbf/systems"
)

// Collector accumulates per-step solver stats within windows and produces WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationSteps int64
	dt                  float32

	// Current window tracking
	windowStartStep int64

	// Counters for current window
	steps          int
	clamped        int
	resets         int
	maxDensityErr  float32
	neighborsTotal float64

	// Scratch for distributions
	densityErrs []float64
	speeds      []float64
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per step (used for step-to-time conversion)
func NewCollector(windowDurationSec float64, dt float32) *Collector {
	stepsPerWindow := int64(windowDurationSec / float64(dt))
	if stepsPerWindow < 1 {
		stepsPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationSteps: stepsPerWindow,
		dt:                  dt,
	}
}

// Record adds the stats of one completed solver step.
func (c *Collector) Record(s systems.StepStats) {
	c.steps++
	c.clamped += s.Clamped
	c.resets += s.Resets
	if s.MaxDensityError > c.maxDensityErr {
		c.maxDensityErr = s.MaxDensityError
	}
	c.neighborsTotal += float64(s.MeanNeighbors)
}

// ShouldFlush returns true if enough steps have passed to flush the window.
func (c *Collector) ShouldFlush(currentStep int64) bool {
	return currentStep-c.windowStartStep >= c.windowDurationSteps
}

// Sample is the particle state read at the end of a window.
type Sample struct {
	Velocities    []components.Vec2
	Densities     []float32
	RestDensity   float32
	KineticEnergy float64
	MomentumX     float64
	MomentumY     float64
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentStep int64, s Sample) WindowStats {
	c.densityErrs = c.densityErrs[:0]
	if s.RestDensity > 0 {
		for _, rho := range s.Densities {
			e := float64(rho/s.RestDensity - 1)
			if e < 0 {
				e = -e
			}
			c.densityErrs = append(c.densityErrs, e)
		}
	}
	c.speeds = c.speeds[:0]
	for _, v := range s.Velocities {
		c.speeds = append(c.speeds, float64(v.Len()))
	}

	dens := Summarize(c.densityErrs)
	speed := Summarize(c.speeds)

	var meanNeighbors float64
	if c.steps > 0 {
		meanNeighbors = c.neighborsTotal / float64(c.steps)
	}

	stats := WindowStats{
		WindowStartStep: c.windowStartStep,
		WindowEndStep:   currentStep,
		SimTimeSec:      float64(currentStep) * float64(c.dt),

		Particles: len(s.Velocities),
		Steps:     c.steps,
		Clamped:   c.clamped,
		Resets:    c.resets,

		SolverMaxDensityError: float64(c.maxDensityErr),
		MeanNeighbors:         meanNeighbors,

		DensityErrorMean: dens.Mean,
		DensityErrorP50:  dens.P50,
		DensityErrorP90:  dens.P90,
		DensityErrorMax:  dens.Max,

		SpeedMean: speed.Mean,
		SpeedStd:  speed.Std,
		SpeedP90:  speed.P90,
		SpeedMax:  speed.Max,

		KineticEnergy: s.KineticEnergy,
		MomentumX:     s.MomentumX,
		MomentumY:     s.MomentumY,
	}

	// Reset for next window
	c.windowStartStep = currentStep
	c.steps = 0
	c.clamped = 0
	c.resets = 0
	c.maxDensityErr = 0
	c.neighborsTotal = 0

	return stats
}

// Restart discards the current window and begins a new one at step.
func (c *Collector) Restart(step int64) {
	c.windowStartStep = step
	c.steps = 0
	c.clamped = 0
	c.resets = 0
	c.maxDensityErr = 0
	c.neighborsTotal = 0
}

// WindowDurationSteps returns the number of steps per window.
func (c *Collector) WindowDurationSteps() int64 {
	return c.windowDurationSteps
}
