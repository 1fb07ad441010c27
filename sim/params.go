package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/pthm-cable/pbf/components"
	"github.com/pthm-cable/pbf/config"
	"github.com/pthm-cable/pbf/systems"
)

// ErrInvalidConfig indicates parameters a Simulator cannot be built from.
var ErrInvalidConfig = errors.New("pbf: invalid simulator configuration")

// Params fully describes a simulation run.
type Params struct {
	Count    int               // particle count N
	DT       float32           // seconds per Update
	Bounds   components.Bounds // domain
	CellSize float32           // grid cell side; 0 means 2 * smoothing radius
	Solver   systems.SolverParams
}

// NewParams returns parameters for n particles of the given radius, with
// solver tunables derived from the radius: lattice spacing 2r and
// smoothing radius 4r.
func NewParams(n int, radius, dt float32, gravity components.Vec2, bounds components.Bounds) Params {
	return Params{
		Count:  n,
		DT:     dt,
		Bounds: bounds,
		Solver: systems.SolverParams{
			Iterations:      4,
			SmoothingRadius: 4 * radius,
			RestDensity:     1000,
			Epsilon:         5,
			Viscosity:       0.05,
			Gravity:         gravity,
			TensileK:        1e-4,
			TensileN:        4,
			TensileDeltaQ:   0.2,
			ParticleSpacing: 2 * radius,
			ParticleRadius:  radius,
		},
	}
}

// ParamsFromConfig maps a loaded configuration onto simulation parameters.
func ParamsFromConfig(cfg *config.Config) Params {
	return Params{
		Count:    cfg.Particles.Count,
		DT:       cfg.Derived.DT32,
		Bounds:   cfg.Derived.Bounds,
		CellSize: cfg.Derived.CellSize,
		Solver: systems.SolverParams{
			Iterations:      cfg.Solver.Iterations,
			SmoothingRadius: float32(cfg.Solver.SmoothingRadius),
			RestDensity:     float32(cfg.Solver.RestDensity),
			Epsilon:         float32(cfg.Solver.Epsilon),
			Viscosity:       float32(cfg.Solver.Viscosity),
			Gravity:         cfg.Derived.Gravity,
			TensileK:        float32(cfg.Solver.Tensile.K),
			TensileN:        cfg.Solver.Tensile.N,
			TensileDeltaQ:   float32(cfg.Solver.Tensile.DeltaQ),
			ParticleSpacing: float32(cfg.Particles.Spacing),
			ParticleRadius:  float32(cfg.Particles.Radius),
		},
	}
}

// EffectiveCellSize returns the grid cell side these parameters produce.
func (p Params) EffectiveCellSize() float32 {
	if p.CellSize == 0 {
		return 2 * p.Solver.SmoothingRadius
	}
	return p.CellSize
}

// validate checks the construction-time parameters. Solver tunables are
// checked by the solver itself.
func (p Params) validate() error {
	switch {
	case p.Count <= 0:
		return fmt.Errorf("%w: particle count must be positive, got %d", ErrInvalidConfig, p.Count)
	case !(p.DT > 0) || math.IsInf(float64(p.DT), 0):
		return fmt.Errorf("%w: dt must be positive, got %v", ErrInvalidConfig, p.DT)
	case p.CellSize < 0 || math.IsNaN(float64(p.CellSize)):
		return fmt.Errorf("%w: cell size must be positive, got %v", ErrInvalidConfig, p.CellSize)
	case p.Bounds.Empty():
		return fmt.Errorf("%w: empty domain %v", ErrInvalidConfig, p.Bounds)
	}
	return nil
}

// latticeDims returns the seed lattice shape for n particles: ceil(sqrt(n))
// columns and as many rows as needed.
func latticeDims(n int) (cols, rows int) {
	cols = int(math.Ceil(math.Sqrt(float64(n))))
	if cols < 1 {
		cols = 1
	}
	rows = (n + cols - 1) / cols
	return cols, rows
}

// seedLattice fills dst with a row-major lattice centered in region, rows
// growing upward. It fails if the lattice does not fit.
func seedLattice(dst []components.Vec2, spacing float32, region components.Bounds) error {
	cols, rows := latticeDims(len(dst))
	w := float32(cols-1) * spacing
	h := float32(rows-1) * spacing
	if w > region.Width() || h > region.Height() {
		return fmt.Errorf("%w: %dx%d lattice at spacing %v does not fit the domain", ErrInvalidConfig, cols, rows, spacing)
	}

	c := region.Center()
	origin := components.Vec2{X: c.X - w/2, Y: c.Y - h/2}
	for i := range dst {
		col, row := i%cols, i/cols
		dst[i] = components.Vec2{
			X: origin.X + float32(col)*spacing,
			Y: origin.Y + float32(row)*spacing,
		}
	}
	return nil
}
