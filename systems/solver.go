package systems

import (
	"fmt"
	"math"

	"github.com/pthm-cable/pbf/components"
)

// Phase names reported to a PhaseTimer during Step.
const (
	PhasePredict     = "predict"
	PhaseSpatialGrid = "spatial_grid"
	PhaseConstraints = "constraints"
	PhaseFinalize    = "finalize"
)

// PhaseTimer receives phase boundaries from the solver.
type PhaseTimer interface {
	StartPhase(phase string)
}

// SolverParams are the tunables of a Solver.
type SolverParams struct {
	Iterations      int     // constraint iterations per step
	SmoothingRadius float32 // kernel support h
	RestDensity     float32 // rho0
	Epsilon         float32 // relaxation added to the lambda denominator
	Viscosity       float32 // XSPH blend weight in [0, 1]
	Gravity         components.Vec2

	// Tensile instability correction: s_corr = -K * (W(r)/W(DeltaQ*h))^N.
	// s_corr is added to lambda, so K is on lambda's scale (around 1e-4
	// for the default lattice); it is purely repulsive and a free surface
	// drifts apart at rest when K is much larger.
	TensileK      float32
	TensileN      int
	TensileDeltaQ float32 // fraction of h

	ParticleSpacing float32 // lattice spacing used to calibrate particle mass
	ParticleRadius  float32 // particles are kept this far inside the domain
}

// Validate reports the first parameter outside its valid range.
func (p SolverParams) Validate() error {
	switch {
	case p.Iterations < 0:
		return fmt.Errorf("%w: iterations must be >= 0, got %d", ErrInvalidParams, p.Iterations)
	case !(p.SmoothingRadius > 0):
		return fmt.Errorf("%w: smoothing radius must be positive, got %v", ErrInvalidParams, p.SmoothingRadius)
	case !(p.RestDensity > 0):
		return fmt.Errorf("%w: rest density must be positive, got %v", ErrInvalidParams, p.RestDensity)
	case !(p.Epsilon > 0):
		return fmt.Errorf("%w: epsilon must be positive, got %v", ErrInvalidParams, p.Epsilon)
	case !(p.Viscosity >= 0 && p.Viscosity <= 1):
		return fmt.Errorf("%w: viscosity must be in [0, 1], got %v", ErrInvalidParams, p.Viscosity)
	case !(p.TensileK >= 0):
		return fmt.Errorf("%w: tensile k must be >= 0, got %v", ErrInvalidParams, p.TensileK)
	case p.TensileN < 1:
		return fmt.Errorf("%w: tensile n must be >= 1, got %d", ErrInvalidParams, p.TensileN)
	case !(p.TensileDeltaQ > 0 && p.TensileDeltaQ < 1):
		return fmt.Errorf("%w: tensile delta q must be in (0, 1), got %v", ErrInvalidParams, p.TensileDeltaQ)
	case !(p.ParticleSpacing > 0):
		return fmt.Errorf("%w: particle spacing must be positive, got %v", ErrInvalidParams, p.ParticleSpacing)
	case !(p.ParticleRadius >= 0):
		return fmt.Errorf("%w: particle radius must be >= 0, got %v", ErrInvalidParams, p.ParticleRadius)
	case !p.Gravity.IsFinite():
		return fmt.Errorf("%w: gravity must be finite, got %v", ErrInvalidParams, p.Gravity)
	}
	return nil
}

// StepStats summarizes one solver step.
type StepStats struct {
	Clamped          int     // boundary clamps (per axis) during the step
	Resets           int     // particles frozen after non-finite state
	MaxDensityError  float32 // max(rho/rho0 - 1) after the last iteration
	MeanDensityError float32 // mean |rho/rho0 - 1| after the last iteration
	MeanNeighbors    float32 // mean neighbor count, self excluded
}

// Solver advances a particle store with Position Based Fluids.
type Solver struct {
	params  SolverParams
	kernel  Kernel
	mass    float32
	scorrW  float32 // W(DeltaQ * h)
	contact components.Bounds
	grid    *SpatialGrid

	neighbors [][]int
	step      int64
	perf      PhaseTimer
}

// NewSolver creates a solver for n particles moving inside the grid's
// bounds. The grid cell size must be at least twice the smoothing radius.
func NewSolver(params SolverParams, grid *SpatialGrid, n int) (*Solver, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if grid == nil {
		return nil, fmt.Errorf("%w: nil grid", ErrInvalidParams)
	}
	if grid.cellSize < 2*params.SmoothingRadius {
		return nil, fmt.Errorf("%w: cell size %v is below twice the smoothing radius %v",
			ErrInvalidParams, grid.cellSize, params.SmoothingRadius)
	}

	s := &Solver{
		grid:      grid,
		neighbors: make([][]int, n),
	}
	for i := range s.neighbors {
		s.neighbors[i] = make([]int, 0, 16)
	}
	s.setParams(params)
	return s, nil
}

// SetParams replaces the solver tunables. The smoothing radius may change
// only while it still fits the grid.
func (s *Solver) SetParams(params SolverParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if s.grid.cellSize < 2*params.SmoothingRadius {
		return fmt.Errorf("%w: cell size %v is below twice the smoothing radius %v",
			ErrInvalidParams, s.grid.cellSize, params.SmoothingRadius)
	}
	s.setParams(params)
	return nil
}

func (s *Solver) setParams(params SolverParams) {
	s.params = params
	s.kernel = NewKernel(params.SmoothingRadius)
	s.mass = params.RestDensity / s.kernel.LatticeSum(params.ParticleSpacing)
	dq := params.TensileDeltaQ * params.SmoothingRadius
	s.scorrW = s.kernel.Poly6(dq * dq)
	s.contact = s.grid.bounds.Inset(params.ParticleRadius)
}

// SetPerf attaches a phase timer. Pass nil to disable timing.
func (s *Solver) SetPerf(p PhaseTimer) {
	s.perf = p
}

// SetStep sets the step number reported in SimulationError, e.g. after the
// caller rewinds or restores its own counter.
func (s *Solver) SetStep(step int64) {
	s.step = step
}

// Params returns the current tunables.
func (s *Solver) Params() SolverParams { return s.params }

// Mass returns the calibrated per-particle mass.
func (s *Solver) Mass() float32 { return s.mass }

// Kernel returns the smoothing kernel in use.
func (s *Solver) Kernel() Kernel { return s.kernel }

// ContactBounds returns the region particle centers are confined to.
func (s *Solver) ContactBounds() components.Bounds { return s.contact }

// Grid returns the spatial grid the solver rebuilds each step.
func (s *Solver) Grid() *SpatialGrid { return s.grid }

// Step advances the store by dt. A non-finite start-of-step position is
// fatal and leaves the store untouched; any other non-finite value freezes
// the affected particle for this step.
func (s *Solver) Step(st *components.Store, dt float32) (StepStats, error) {
	var stats StepStats
	for i, p := range st.Position {
		if !p.IsFinite() {
			return stats, &SimulationError{Step: s.step, Particle: i, Wrapped: ErrNumericalCorruption}
		}
	}

	s.startPhase(PhasePredict)
	s.predict(st, dt, &stats)

	s.startPhase(PhaseSpatialGrid)
	s.grid.Rebuild(st.Predicted)

	s.startPhase(PhaseConstraints)
	for it := 0; it < s.params.Iterations; it++ {
		s.gatherNeighbors(st)
		s.computeLambdas(st)
		s.computeDeltas(st)
		s.applyDeltas(st, &stats)
	}

	s.startPhase(PhaseFinalize)
	s.finalize(st, dt, &stats)

	s.step++
	return stats, nil
}

func (s *Solver) startPhase(phase string) {
	if s.perf != nil {
		s.perf.StartPhase(phase)
	}
}

// predict integrates gravity and moves predicted positions, clamping at the
// boundary and zeroing the velocity component that hit it.
func (s *Solver) predict(st *components.Store, dt float32, stats *StepStats) {
	g := s.params.Gravity
	for i := range st.Position {
		v := st.Velocity[i].Add(g.Scale(dt))
		p := st.Position[i].Add(v.Scale(dt))
		if !p.IsFinite() || !v.IsFinite() {
			st.Predicted[i] = st.Position[i]
			st.Velocity[i] = components.Vec2{}
			stats.Resets++
			continue
		}

		p, cx, cy := s.contact.Clamp(p)
		if cx {
			v.X = 0
			stats.Clamped++
		}
		if cy {
			v.Y = 0
			stats.Clamped++
		}
		st.Predicted[i] = p
		st.Velocity[i] = v
	}
}

// gatherNeighbors refreshes every particle's neighbor list (self included)
// from the current predicted positions.
func (s *Solver) gatherNeighbors(st *components.Store) {
	h := s.params.SmoothingRadius
	for i, p := range st.Predicted {
		s.neighbors[i] = s.grid.QueryRadiusInto(s.neighbors[i][:0], p, h)
	}
}

// computeLambdas evaluates density and the constraint multiplier per particle.
func (s *Solver) computeLambdas(st *components.Store) {
	rho0 := s.params.RestDensity
	gradScale := s.mass / rho0

	for i, pi := range st.Predicted {
		var rho, sumGrad2 float32
		var gradI components.Vec2
		for _, j := range s.neighbors[i] {
			d := pi.Sub(st.Predicted[j])
			r2 := d.LenSq()
			rho += s.mass * s.kernel.Poly6(r2)
			if j == i {
				continue
			}
			grad := s.kernel.SpikyGrad(d, sqrt32(r2)).Scale(gradScale)
			sumGrad2 += grad.LenSq()
			gradI = gradI.Add(grad)
		}
		sumGrad2 += gradI.LenSq()
		st.Density[i] = rho

		c := rho/rho0 - 1
		if !(c > 0) {
			// Under-dense, isolated or NaN: no correction.
			st.Lambda[i] = 0
			continue
		}
		lambda := -c / (sumGrad2 + s.params.Epsilon)
		if !isFinite32(lambda) {
			lambda = 0
		}
		st.Lambda[i] = lambda
	}
}

// computeDeltas evaluates the position correction for every particle before
// any of them is applied.
func (s *Solver) computeDeltas(st *components.Store) {
	scale := s.mass / s.params.RestDensity
	for i, pi := range st.Predicted {
		var delta components.Vec2
		li := st.Lambda[i]
		for _, j := range s.neighbors[i] {
			if j == i {
				continue
			}
			d := pi.Sub(st.Predicted[j])
			r2 := d.LenSq()
			if r2 >= s.kernel.H2 {
				continue
			}
			coef := li + st.Lambda[j] + s.tensileCorrection(r2)
			delta = delta.Add(s.kernel.SpikyGrad(d, sqrt32(r2)).Scale(coef))
		}
		st.Delta[i] = delta.Scale(scale)
	}
}

// tensileCorrection returns s_corr for squared distance r2.
func (s *Solver) tensileCorrection(r2 float32) float32 {
	if s.params.TensileK == 0 || s.scorrW == 0 {
		return 0
	}
	ratio := s.kernel.Poly6(r2) / s.scorrW
	corr := ratio
	for n := 1; n < s.params.TensileN; n++ {
		corr *= ratio
	}
	return -s.params.TensileK * corr
}

// applyDeltas moves predicted positions and re-clamps them.
func (s *Solver) applyDeltas(st *components.Store, stats *StepStats) {
	for i, d := range st.Delta {
		if !d.IsFinite() {
			continue
		}
		p, cx, cy := s.contact.Clamp(st.Predicted[i].Add(d))
		if cx {
			stats.Clamped++
		}
		if cy {
			stats.Clamped++
		}
		st.Predicted[i] = p
	}
}

// finalize derives velocities, applies XSPH smoothing and commits positions.
func (s *Solver) finalize(st *components.Store, dt float32, stats *StepStats) {
	invDt := 1 / dt
	for i := range st.Position {
		st.Velocity[i] = st.Predicted[i].Sub(st.Position[i]).Scale(invDt)
	}

	if s.params.Viscosity > 0 {
		if s.params.Iterations == 0 {
			s.gatherNeighbors(st)
		}
		s.smoothVelocities(st)
	}

	s.collectDensityStats(st, stats)

	for i := range st.Position {
		if !st.Predicted[i].IsFinite() || !st.Velocity[i].IsFinite() {
			st.Predicted[i] = st.Position[i]
			st.Velocity[i] = components.Vec2{}
			stats.Resets++
			continue
		}
		st.Position[i] = st.Predicted[i]
	}
}

// smoothVelocities blends each velocity toward the kernel-weighted average
// of its neighbors' velocities.
func (s *Solver) smoothVelocities(st *components.Store) {
	c := s.params.Viscosity
	for i, pi := range st.Predicted {
		vi := st.Velocity[i]
		var sum components.Vec2
		var wsum float32
		for _, j := range s.neighbors[i] {
			if j == i {
				continue
			}
			w := s.kernel.Poly6(pi.Sub(st.Predicted[j]).LenSq())
			sum = sum.Add(st.Velocity[j].Scale(w))
			wsum += w
		}
		if wsum > 0 {
			avg := sum.Scale(1 / wsum)
			vi = vi.Add(avg.Sub(vi).Scale(c))
		}
		st.Smoothed[i] = vi
	}
	copy(st.Velocity, st.Smoothed)
}

func (s *Solver) collectDensityStats(st *components.Store, stats *StepStats) {
	n := st.Len()
	if n == 0 || s.params.Iterations == 0 {
		return
	}
	rho0 := s.params.RestDensity
	var sumErr float32
	var sumNeighbors int
	for i, rho := range st.Density {
		e := rho/rho0 - 1
		if e > stats.MaxDensityError {
			stats.MaxDensityError = e
		}
		if e < 0 {
			e = -e
		}
		sumErr += e
		sumNeighbors += len(s.neighbors[i]) - 1
	}
	stats.MeanDensityError = sumErr / float32(n)
	stats.MeanNeighbors = float32(sumNeighbors) / float32(n)
}

// DensityAt returns the SPH density at p from the store's current positions,
// using the grid as of the last Rebuild.
func (s *Solver) DensityAt(st *components.Store, p components.Vec2) float32 {
	var rho float32
	for j := range s.grid.Neighbors(p, s.params.SmoothingRadius) {
		rho += s.mass * s.kernel.Poly6(p.Sub(st.Predicted[j]).LenSq())
	}
	return rho
}

func sqrt32(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}

func isFinite32(x float32) bool {
	return !math.IsNaN(float64(x)) && !math.IsInf(float64(x), 0)
}
