package telemetry

import (
	"math"
	"testing"

	"github.com/pthm-cable/pbf/components"
	"github.com/pthm-cable/pbf/systems"
)

func TestCollector_WindowLength(t *testing.T) {
	tests := []struct {
		name   string
		window float64
		dt     float32
		want   int64
	}{
		{"one second at 100hz", 1.0, 0.01, 100},
		{"window shorter than dt", 0.001, 0.01, 1},
		{"half second at 50hz", 0.5, 0.02, 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCollector(tt.window, tt.dt)
			// Float truncation may lose one step.
			if got := c.WindowDurationSteps(); got != tt.want && got != tt.want-1 {
				t.Errorf("WindowDurationSteps() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCollector_ShouldFlush(t *testing.T) {
	c := NewCollector(0.05, 0.01)
	n := c.WindowDurationSteps()

	if c.ShouldFlush(n - 1) {
		t.Error("flush requested before window elapsed")
	}
	if !c.ShouldFlush(n) {
		t.Error("flush not requested at window end")
	}

	c.Flush(n, Sample{})
	if c.ShouldFlush(n + 1) {
		t.Error("flush requested right after previous flush")
	}
	if !c.ShouldFlush(2 * n) {
		t.Error("flush not requested at second window end")
	}
}

func TestCollector_Flush(t *testing.T) {
	c := NewCollector(1.0, 0.01)

	c.Record(systems.StepStats{Clamped: 2, MaxDensityError: 0.01, MeanNeighbors: 6})
	c.Record(systems.StepStats{Clamped: 3, Resets: 1, MaxDensityError: 0.04, MeanNeighbors: 8})

	s := c.Flush(100, Sample{
		Velocities: []components.Vec2{
			{X: 3, Y: 4},
			{X: 0, Y: 0},
		},
		Densities:     []float32{1000, 1100},
		RestDensity:   1000,
		KineticEnergy: 12.5,
		MomentumX:     3,
		MomentumY:     4,
	})

	if s.WindowStartStep != 0 || s.WindowEndStep != 100 {
		t.Errorf("window = [%d, %d], want [0, 100]", s.WindowStartStep, s.WindowEndStep)
	}
	if math.Abs(s.SimTimeSec-1.0) > 1e-6 {
		t.Errorf("SimTimeSec = %v, want 1.0", s.SimTimeSec)
	}
	if s.Steps != 2 || s.Clamped != 5 || s.Resets != 1 {
		t.Errorf("counters = steps %d clamped %d resets %d, want 2 5 1", s.Steps, s.Clamped, s.Resets)
	}
	if math.Abs(s.SolverMaxDensityError-0.04) > 1e-6 {
		t.Errorf("SolverMaxDensityError = %v, want 0.04", s.SolverMaxDensityError)
	}
	if math.Abs(s.MeanNeighbors-7) > 1e-9 {
		t.Errorf("MeanNeighbors = %v, want 7", s.MeanNeighbors)
	}
	if math.Abs(s.DensityErrorMax-0.1) > 1e-5 || math.Abs(s.DensityErrorMean-0.05) > 1e-5 {
		t.Errorf("density error mean %v max %v, want 0.05 0.1", s.DensityErrorMean, s.DensityErrorMax)
	}
	if math.Abs(s.SpeedMax-5) > 1e-6 || math.Abs(s.SpeedMean-2.5) > 1e-6 {
		t.Errorf("speed mean %v max %v, want 2.5 5", s.SpeedMean, s.SpeedMax)
	}
	if s.Particles != 2 || s.KineticEnergy != 12.5 || s.MomentumY != 4 {
		t.Errorf("sample passthrough mismatch: %+v", s)
	}

	next := c.Flush(200, Sample{})
	if next.WindowStartStep != 100 || next.Steps != 0 || next.Clamped != 0 || next.SolverMaxDensityError != 0 {
		t.Errorf("counters not reset after flush: %+v", next)
	}
}

func TestCollector_Restart(t *testing.T) {
	c := NewCollector(1.0, 0.01)
	c.Record(systems.StepStats{Clamped: 7})
	c.Restart(0)

	s := c.Flush(100, Sample{})
	if s.Clamped != 0 || s.Steps != 0 {
		t.Errorf("restart kept counters: %+v", s)
	}
}
