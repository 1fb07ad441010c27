package main

import (
	"log/slog"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/pbf/config"
	"github.com/pthm-cable/pbf/sim"
	"github.com/pthm-cable/pbf/telemetry"
)

// Fitness weights (lower fitness = better).
const (
	failurePenalty  = 1e3  // solver error or config the simulator rejects
	resetPenalty    = 0.1  // per frozen particle
	peakWeight      = 0.5  // worst per-step compression
	settleWeight    = 0.05 // mean speed in the last window
	warmupWindows   = 1    // skip the initial collapse
	evalStatsWindow = 0.5  // simulated seconds per stats window
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params      *ParamVector
	maxSteps    int64
	counts      []int // particle counts evaluated per parameter vector
	baseConfig  *config.Config
	statsWindow float64

	mu          sync.Mutex
	lastQuality float64 // mean density error from the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxSteps int64, counts []int, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxSteps:    maxSteps,
		counts:      counts,
		baseConfig:  baseCfg,
		statsWindow: evalStatsWindow,
	}
}

// LastQuality returns the mean density error from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// runResult holds the results from a single simulation run.
type runResult struct {
	windows []telemetry.WindowStats
	steps   int64
	failed  bool
}

// Evaluate computes fitness for raw parameter values (lower = better),
// averaged over every configured particle count.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	fitness := make([]float64, len(fe.counts))
	quality := make([]float64, len(fe.counts))

	var wg sync.WaitGroup
	for i, n := range fe.counts {
		wg.Add(1)
		go func(idx, count int) {
			defer wg.Done()
			r := fe.runSimulation(x, count)
			fitness[idx] = computeFitness(r)
			quality[idx] = meanDensityError(r.windows)
		}(i, n)
	}
	wg.Wait()

	fe.mu.Lock()
	fe.lastQuality = stat.Mean(quality, nil)
	fe.mu.Unlock()

	return stat.Mean(fitness, nil)
}

// runSimulation executes a single headless simulation run of maxSteps steps.
func (fe *FitnessEvaluator) runSimulation(x []float64, count int) *runResult {
	cfg := fe.copyConfig()
	cfg.Particles.Count = count
	fe.params.ApplyToConfig(cfg, x)

	result := &runResult{}
	s, err := sim.NewFromConfig(cfg, sim.WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		result.failed = true
		return result
	}

	collector := telemetry.NewCollector(fe.statsWindow, cfg.Derived.DT32)
	var sample telemetry.Sample
	var flushedAt int64
	flush := func(step int64) {
		sample.Velocities = s.Velocities(sample.Velocities)
		sample.Densities = s.Densities(sample.Densities)
		sample.RestDensity = s.Params().Solver.RestDensity
		sample.KineticEnergy = float64(s.KineticEnergy())
		sample.MomentumX, sample.MomentumY = s.Momentum()
		result.windows = append(result.windows, collector.Flush(step, sample))
		flushedAt = step
	}

	for s.Step() < fe.maxSteps {
		if err := s.Update(); err != nil {
			result.failed = true
			break
		}
		collector.Record(s.LastStats())

		if step := s.Step(); collector.ShouldFlush(step) {
			flush(step)
		}
	}
	// Runs shorter than a window still get scored on the steps they ran.
	if !result.failed && s.Step() > flushedAt {
		flush(s.Step())
	}
	result.steps = s.Step()
	return result
}

// copyConfig returns an independent copy of the base config.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	// Config holds only value sections, so a struct copy is deep.
	cfg := *fe.baseConfig
	return &cfg
}

// computeFitness scores a run: typical compression plus weighted peak
// compression, frozen particles and residual motion. Failed runs get a
// flat penalty.
func computeFitness(r *runResult) float64 {
	if r.failed || len(r.windows) == 0 {
		return failurePenalty
	}

	valid := r.windows
	if len(valid) > warmupWindows {
		valid = valid[warmupWindows:]
	}

	p90 := make([]float64, len(valid))
	peak := make([]float64, len(valid))
	var resets int
	for i, w := range valid {
		p90[i] = w.DensityErrorP90
		peak[i] = w.SolverMaxDensityError
		resets += w.Resets
	}
	for _, w := range r.windows[:len(r.windows)-len(valid)] {
		resets += w.Resets
	}

	last := r.windows[len(r.windows)-1]
	return stat.Mean(p90, nil) +
		peakWeight*stat.Mean(peak, nil) +
		resetPenalty*float64(resets) +
		settleWeight*last.SpeedMean
}

// meanDensityError averages the per-window mean |rho/rho0 - 1|.
func meanDensityError(windows []telemetry.WindowStats) float64 {
	if len(windows) == 0 {
		return 0
	}
	v := make([]float64, len(windows))
	for i, w := range windows {
		v[i] = w.DensityErrorMean
	}
	return stat.Mean(v, nil)
}
