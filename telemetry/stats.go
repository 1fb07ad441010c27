package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a window of solver steps.
type WindowStats struct {
	WindowStartStep int64   `csv:"-"`
	WindowEndStep   int64   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	Particles int `csv:"particles"`
	Steps     int `csv:"steps"`

	// Events during window
	Clamped int `csv:"clamped"` // Boundary clamps summed over steps
	Resets  int `csv:"resets"`  // Particles frozen after non-finite state

	// Solver-reported compression, worst step in window
	SolverMaxDensityError float64 `csv:"solver_max_density_error"`
	MeanNeighbors         float64 `csv:"mean_neighbors"`

	// |rho/rho0 - 1| distribution (sampled at window end)
	DensityErrorMean float64 `csv:"density_error_mean"`
	DensityErrorP50  float64 `csv:"density_error_p50"`
	DensityErrorP90  float64 `csv:"density_error_p90"`
	DensityErrorMax  float64 `csv:"density_error_max"`

	// Speed distribution (sampled at window end)
	SpeedMean float64 `csv:"speed_mean"`
	SpeedStd  float64 `csv:"speed_std"`
	SpeedP90  float64 `csv:"speed_p90"`
	SpeedMax  float64 `csv:"speed_max"`

	KineticEnergy float64 `csv:"kinetic_energy"`
	MomentumX     float64 `csv:"momentum_x"`
	MomentumY     float64 `csv:"momentum_y"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// Summary describes a sample distribution.
type Summary struct {
	Mean, Std     float64
	P10, P50, P90 float64
	Max           float64
}

// Summarize calculates mean, population std, percentiles and max.
// values is not modified. An empty slice yields a zero Summary.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean, std := stat.PopMeanStdDev(sorted, nil)
	return Summary{
		Mean: mean,
		Std:  std,
		P10:  Percentile(sorted, 0.10),
		P50:  Percentile(sorted, 0.50),
		P90:  Percentile(sorted, 0.90),
		Max:  floats.Max(sorted),
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_start", s.WindowStartStep),
		slog.Int64("window_end", s.WindowEndStep),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("particles", s.Particles),
		slog.Int("steps", s.Steps),
		slog.Int("clamped", s.Clamped),
		slog.Int("resets", s.Resets),
		slog.Float64("solver_max_density_error", s.SolverMaxDensityError),
		slog.Float64("mean_neighbors", s.MeanNeighbors),
		slog.Float64("density_error_mean", s.DensityErrorMean),
		slog.Float64("density_error_p50", s.DensityErrorP50),
		slog.Float64("density_error_p90", s.DensityErrorP90),
		slog.Float64("density_error_max", s.DensityErrorMax),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_std", s.SpeedStd),
		slog.Float64("speed_p90", s.SpeedP90),
		slog.Float64("speed_max", s.SpeedMax),
		slog.Float64("kinetic_energy", s.KineticEnergy),
		slog.Float64("momentum_x", s.MomentumX),
		slog.Float64("momentum_y", s.MomentumY),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndStep,
		"sim_time", s.SimTimeSec,
		"particles", s.Particles,
		"clamped", s.Clamped,
		"resets", s.Resets,
		"solver_max_density_error", s.SolverMaxDensityError,
		"mean_neighbors", s.MeanNeighbors,
		"density_error_mean", s.DensityErrorMean,
		"density_error_p90", s.DensityErrorP90,
		"density_error_max", s.DensityErrorMax,
		"speed_mean", s.SpeedMean,
		"speed_p90", s.SpeedP90,
		"kinetic_energy", s.KineticEnergy,
		"momentum_x", s.MomentumX,
		"momentum_y", s.MomentumY,
	)
}
