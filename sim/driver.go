package sim

import (
	"fmt"
	"time"

	"github.com/pthm-cable/pbf/config"
	"github.com/pthm-cable/pbf/systems"
)

// StepObserver is notified around every Update the driver runs.
type StepObserver interface {
	BeforeStep()
	AfterStep(step int64, stats systems.StepStats)
}

// Driver decides how many Updates to run per frame.
//
// In config.RunModeSteps every Advance runs a fixed number of steps. In
// config.RunModeRealtime elapsed wall time is accumulated and consumed in
// dt-sized steps, at most maxSubsteps per Advance; backlog beyond that is
// dropped so a slow frame cannot snowball.
type Driver struct {
	sim            *Simulator
	mode           string
	stepsPerUpdate int
	maxSubsteps    int
	maxSteps       int64

	accumulator float64
	dropped     float64

	observer StepObserver
}

// NewDriver creates a driver for sim using the run section of a config.
func NewDriver(sim *Simulator, run config.RunConfig) (*Driver, error) {
	if sim == nil {
		return nil, fmt.Errorf("%w: nil simulator", ErrInvalidConfig)
	}
	switch run.Mode {
	case config.RunModeSteps, config.RunModeRealtime:
	default:
		return nil, fmt.Errorf("%w: unknown run mode %q", ErrInvalidConfig, run.Mode)
	}
	if run.StepsPerUpdate < 1 || run.MaxSubsteps < 1 {
		return nil, fmt.Errorf("%w: steps per update and max substeps must be >= 1", ErrInvalidConfig)
	}
	return &Driver{
		sim:            sim,
		mode:           run.Mode,
		stepsPerUpdate: run.StepsPerUpdate,
		maxSubsteps:    run.MaxSubsteps,
		maxSteps:       int64(run.MaxSteps),
	}, nil
}

// Advance runs the steps due for a frame that took elapsed wall time and
// returns how many ran. It stops early on error or when the step limit is hit.
func (d *Driver) Advance(elapsed time.Duration) (int, error) {
	n := d.stepsPerUpdate
	if d.mode == config.RunModeRealtime {
		dt := float64(d.sim.DT())
		d.accumulator += elapsed.Seconds()
		n = int(d.accumulator / dt)
		if n > d.maxSubsteps {
			d.dropped += float64(n-d.maxSubsteps) * dt
			n = d.maxSubsteps
			d.accumulator = 0
		} else {
			d.accumulator -= float64(n) * dt
		}
	}

	for i := 0; i < n; i++ {
		if d.Done() {
			return i, nil
		}
		if err := d.step(); err != nil {
			return i, err
		}
	}
	return n, nil
}

// StepOnce runs a single Update regardless of mode, e.g. while paused.
func (d *Driver) StepOnce() error {
	if d.Done() {
		return nil
	}
	return d.step()
}

func (d *Driver) step() error {
	if d.observer != nil {
		d.observer.BeforeStep()
	}
	if err := d.sim.Update(); err != nil {
		return err
	}
	if d.observer != nil {
		d.observer.AfterStep(d.sim.Step(), d.sim.LastStats())
	}
	return nil
}

// Observe registers o to be called around each step. nil removes it.
func (d *Driver) Observe(o StepObserver) {
	d.observer = o
}

// Mode returns the run mode.
func (d *Driver) Mode() string {
	return d.mode
}

// ResetClock discards accumulated wall time, e.g. after a pause.
func (d *Driver) ResetClock() {
	d.accumulator = 0
}

// Done reports whether the configured step limit has been reached.
func (d *Driver) Done() bool {
	return d.maxSteps > 0 && d.sim.Step() >= d.maxSteps
}

// Dropped returns the wall time discarded by the substep cap, in seconds.
func (d *Driver) Dropped() float64 {
	return d.dropped
}

// SetStepsPerUpdate changes the fixed step count used in steps mode.
func (d *Driver) SetStepsPerUpdate(n int) {
	if n >= 1 {
		d.stepsPerUpdate = n
	}
}

// StepsPerUpdate returns the fixed step count used in steps mode.
func (d *Driver) StepsPerUpdate() int {
	return d.stepsPerUpdate
}
