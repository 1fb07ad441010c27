// Package sim drives the fluid solver: it owns the particle store and the
// spatial grid, seeds the initial layout and publishes completed steps.
package sim

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/pthm-cable/pbf/components"
	"github.com/pthm-cable/pbf/config"
	"github.com/pthm-cable/pbf/systems"
)

// Simulator advances a fixed set of particles one solver step per Update.
// Read accessors return copies; callers never see the live store.
type Simulator struct {
	params Params
	store  *components.Store
	solver *systems.Solver
	seed   []components.Vec2

	step int64
	last systems.StepStats

	logger *slog.Logger
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithLogger sets the logger used for step warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) { s.logger = l }
}

// WithPhaseTimer attaches a timer that receives solver phase boundaries.
func WithPhaseTimer(t systems.PhaseTimer) Option {
	return func(s *Simulator) { s.solver.SetPerf(t) }
}

// New validates p, allocates the particle store and seeds positions on a
// lattice centered in the domain with zero velocities.
func New(p Params, opts ...Option) (*Simulator, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	grid, err := systems.NewSpatialGrid(p.Bounds, p.EffectiveCellSize())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	solver, err := systems.NewSolver(p.Solver, grid, p.Count)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	s := &Simulator{
		params: p,
		store:  components.NewStore(p.Count),
		solver: solver,
		seed:   make([]components.Vec2, p.Count),
		logger: slog.Default(),
	}
	if err := seedLattice(s.seed, p.Solver.ParticleSpacing, solver.ContactBounds()); err != nil {
		return nil, err
	}
	copy(s.store.Position, s.seed)

	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NewFromConfig builds a Simulator from a loaded configuration.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Simulator, error) {
	return New(ParamsFromConfig(cfg), opts...)
}

// Update advances the simulation by exactly one step of dt. On error the
// step counter does not advance.
func (s *Simulator) Update() error {
	stats, err := s.solver.Step(s.store, s.params.DT)
	if err != nil {
		var simErr *systems.SimulationError
		if errors.As(err, &simErr) {
			s.logger.Error("simulation corrupted", "step", s.step, "particle", simErr.Particle, "error", err)
		}
		return err
	}

	s.step++
	s.last = stats
	if stats.Resets > 0 {
		s.logger.Warn("particles frozen after non-finite state",
			"step", s.step,
			"count", stats.Resets,
		)
	}
	return nil
}

// Reset restores the seeded lattice with zero velocities and step 0.
func (s *Simulator) Reset() {
	copy(s.store.Position, s.seed)
	copy(s.store.Predicted, s.seed)
	clear(s.store.Velocity)
	clear(s.store.Density)
	clear(s.store.Lambda)
	s.step = 0
	s.solver.SetStep(0)
	s.last = systems.StepStats{}
}

// Restore replaces the particle state and step counter, e.g. from a saved
// snapshot. Every position must be finite and inside the contact bounds.
func (s *Simulator) Restore(step int64, pos, vel []components.Vec2) error {
	n := s.store.Len()
	if len(pos) != n || len(vel) != n {
		return fmt.Errorf("%w: restore needs %d particles, got %d positions and %d velocities",
			ErrInvalidConfig, n, len(pos), len(vel))
	}
	if step < 0 {
		return fmt.Errorf("%w: restore step %d is negative", ErrInvalidConfig, step)
	}
	contact := s.solver.ContactBounds()
	for i := range pos {
		if !pos[i].IsFinite() || !vel[i].IsFinite() || !contact.Contains(pos[i]) {
			return fmt.Errorf("%w: restore particle %d at %v", ErrInvalidConfig, i, pos[i])
		}
	}

	copy(s.store.Position, pos)
	copy(s.store.Predicted, pos)
	copy(s.store.Velocity, vel)
	clear(s.store.Density)
	clear(s.store.Lambda)
	s.step = step
	s.solver.SetStep(step)
	s.last = systems.StepStats{}
	return nil
}

// Reconfigure replaces the solver tunables for subsequent steps. The
// particle count, dt and domain are fixed for the simulator's lifetime.
func (s *Simulator) Reconfigure(sp systems.SolverParams) error {
	if err := s.solver.SetParams(sp); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	s.params.Solver = sp
	return nil
}

// Positions returns a copy of the particle positions after the last
// completed Update.
func (s *Simulator) Positions() []components.Vec2 {
	return s.store.CopyPositions(nil)
}

// CopyPositions is Positions without allocating when dst has capacity.
func (s *Simulator) CopyPositions(dst []components.Vec2) []components.Vec2 {
	return s.store.CopyPositions(dst)
}

// PositionBuffer writes positions as N contiguous (x, y, 0) float32 records.
func (s *Simulator) PositionBuffer(dst []float32) []float32 {
	return s.store.FlattenPositions(dst)
}

// Velocities appends a copy of particle velocities to dst[:0].
func (s *Simulator) Velocities(dst []components.Vec2) []components.Vec2 {
	return append(dst[:0], s.store.Velocity...)
}

// Densities appends a copy of the last computed densities to dst[:0].
func (s *Simulator) Densities(dst []float32) []float32 {
	return append(dst[:0], s.store.Density...)
}

// Grid describes the spatial grid for debug visualization.
func (s *Simulator) Grid() systems.GridDescription {
	return s.solver.Grid().Describe()
}

// Momentum returns the total momentum of the system.
func (s *Simulator) Momentum() (x, y float64) {
	x, y = s.store.Momentum()
	m := float64(s.solver.Mass())
	return x * m, y * m
}

// KineticEnergy returns the total kinetic energy of the system.
func (s *Simulator) KineticEnergy() float32 {
	return s.store.KineticEnergy(s.solver.Mass())
}

// Len returns the particle count.
func (s *Simulator) Len() int { return s.store.Len() }

// Step returns the number of completed updates.
func (s *Simulator) Step() int64 { return s.step }

// Time returns simulated seconds: Step() * dt.
func (s *Simulator) Time() float64 { return float64(s.step) * float64(s.params.DT) }

// DT returns the fixed step length.
func (s *Simulator) DT() float32 { return s.params.DT }

// Params returns the parameters in effect.
func (s *Simulator) Params() Params { return s.params }

// Mass returns the calibrated particle mass.
func (s *Simulator) Mass() float32 { return s.solver.Mass() }

// ContactBounds returns the region particle centers are confined to.
func (s *Simulator) ContactBounds() components.Bounds { return s.solver.ContactBounds() }

// LastStats returns the statistics of the most recent Update.
func (s *Simulator) LastStats() systems.StepStats { return s.last }
