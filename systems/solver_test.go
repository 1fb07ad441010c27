package systems

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/pbf/components"
)

func testParams() SolverParams {
	return SolverParams{
		Iterations:      4,
		SmoothingRadius: 0.12,
		RestDensity:     1000,
		Epsilon:         5,
		Viscosity:       0.05,
		Gravity:         components.Vec2{Y: -9.81},
		TensileK:        1e-4,
		TensileN:        4,
		TensileDeltaQ:   0.2,
		ParticleSpacing: 0.06,
		ParticleRadius:  0.03,
	}
}

func newTestSolver(t testing.TB, params SolverParams, n int) *Solver {
	t.Helper()
	g, err := NewSpatialGrid(testBounds, 2*params.SmoothingRadius)
	require.NoError(t, err)
	s, err := NewSolver(params, g, n)
	require.NoError(t, err)
	return s
}

// latticeStore builds a cols x rows block centered on the origin.
func latticeStore(cols, rows int, spacing float32) *components.Store {
	st := components.NewStore(cols * rows)
	ox := -float32(cols-1) * spacing / 2
	oy := -float32(rows-1) * spacing / 2
	for j := 0; j < rows; j++ {
		for i := 0; i < cols; i++ {
			st.Position[j*cols+i] = components.Vec2{X: ox + float32(i)*spacing, Y: oy + float32(j)*spacing}
		}
	}
	return st
}

func TestSolverParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *SolverParams)
	}{
		{"negative iterations", func(p *SolverParams) { p.Iterations = -1 }},
		{"zero smoothing radius", func(p *SolverParams) { p.SmoothingRadius = 0 }},
		{"zero rest density", func(p *SolverParams) { p.RestDensity = 0 }},
		{"zero epsilon", func(p *SolverParams) { p.Epsilon = 0 }},
		{"viscosity above one", func(p *SolverParams) { p.Viscosity = 1.5 }},
		{"negative tensile k", func(p *SolverParams) { p.TensileK = -0.1 }},
		{"zero tensile n", func(p *SolverParams) { p.TensileN = 0 }},
		{"delta q of one", func(p *SolverParams) { p.TensileDeltaQ = 1 }},
		{"zero spacing", func(p *SolverParams) { p.ParticleSpacing = 0 }},
		{"NaN gravity", func(p *SolverParams) { p.Gravity.Y = float32(math.NaN()) }},
	}
	assert.NoError(t, testParams().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams()
			tt.mutate(&p)
			assert.ErrorIs(t, p.Validate(), ErrInvalidParams)
		})
	}
}

func TestNewSolverRequiresWideCells(t *testing.T) {
	g, err := NewSpatialGrid(testBounds, 0.2)
	require.NoError(t, err)
	_, err = NewSolver(testParams(), g, 10)
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = NewSolver(testParams(), nil, 10)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestSetParamsKeepsGridInvariant(t *testing.T) {
	s := newTestSolver(t, testParams(), 1)

	p := testParams()
	p.SmoothingRadius = 0.2
	assert.ErrorIs(t, s.SetParams(p), ErrInvalidParams)
	assert.Equal(t, float32(0.12), s.Params().SmoothingRadius)

	p = testParams()
	p.Iterations = 8
	require.NoError(t, s.SetParams(p))
	assert.Equal(t, 8, s.Params().Iterations)
}

func TestDensityAtRestUnderFullPacking(t *testing.T) {
	p := testParams()
	p.Gravity = components.Vec2{}
	p.Iterations = 1
	s := newTestSolver(t, p, 11*11)

	st := latticeStore(11, 11, p.ParticleSpacing)
	_, err := s.Step(st, 0.01)
	require.NoError(t, err)

	center := 5*11 + 5
	assert.InEpsilon(t, p.RestDensity, st.Density[center], 1e-3)
	assert.InDelta(t, 0, st.Lambda[center], 1e-6)

	// Edge particles see fewer neighbors and stay below rest density.
	assert.Less(t, st.Density[0], p.RestDensity)
}

func TestSingleParticleFreeFall(t *testing.T) {
	p := testParams()
	s := newTestSolver(t, p, 1)

	st := components.NewStore(1)
	const y0 = 4.0
	st.Position[0] = components.Vec2{X: 0.5, Y: y0}
	const dt = 0.01

	// Drive the iteration stages directly to observe every iteration.
	for step := 1; step <= 50; step++ {
		var stats StepStats
		s.predict(st, dt, &stats)
		s.grid.Rebuild(st.Predicted)
		for it := 0; it < p.Iterations; it++ {
			s.gatherNeighbors(st)
			s.computeLambdas(st)
			s.computeDeltas(st)
			require.Equal(t, float32(0), st.Lambda[0], "step %d iteration %d", step, it)
			require.Equal(t, components.Vec2{}, st.Delta[0], "step %d iteration %d", step, it)
			s.applyDeltas(st, &stats)
		}
		s.finalize(st, dt, &stats)

		n := float64(step)
		wantV := -9.81 * dt * n
		wantY := y0 - 9.81*dt*dt*n*(n+1)/2
		assert.InDelta(t, 0.5, st.Position[0].X, 1e-6)
		assert.InDelta(t, wantY, st.Position[0].Y, 1e-3, "step %d", step)
		assert.InDelta(t, wantV, st.Velocity[0].Y, 5e-3, "step %d", step)
		assert.Zero(t, stats.Clamped)
	}

	// Keep falling until it rests on the floor.
	for step := 0; step < 200; step++ {
		_, err := s.Step(st, dt)
		require.NoError(t, err)
	}
	floor := s.ContactBounds().Min.Y
	assert.Equal(t, floor, st.Position[0].Y)
	assert.Equal(t, float32(0), st.Velocity[0].Y)
	assert.InDelta(t, -5+p.ParticleRadius, floor, 1e-6)
}

func TestMomentumConservedWithoutGravityOrViscosity(t *testing.T) {
	p := testParams()
	p.Gravity = components.Vec2{}
	p.Viscosity = 0
	s := newTestSolver(t, p, 64)

	// Block at rest spacing with a swirl of velocities.
	st := latticeStore(8, 8, p.ParticleSpacing)
	for i := range st.Velocity {
		fi := float64(i)
		st.Velocity[i] = components.Vec2{
			X: float32(0.3 * math.Sin(fi)),
			Y: float32(0.2 * math.Cos(1.7*fi)),
		}
	}
	px0, py0 := st.Momentum()

	for step := 0; step < 20; step++ {
		stats, err := s.Step(st, 0.01)
		require.NoError(t, err)
		require.Zero(t, stats.Clamped)
		require.Zero(t, stats.Resets)
	}

	px, py := st.Momentum()
	assert.InDelta(t, px0, px, 5e-3)
	assert.InDelta(t, py0, py, 5e-3)
}

func TestRestLatticeStaysAtRest(t *testing.T) {
	p := testParams()
	p.Gravity = components.Vec2{}
	s := newTestSolver(t, p, 64)
	st := latticeStore(8, 8, p.ParticleSpacing)

	maxSpeed := func() float32 {
		var m float32
		for _, v := range st.Velocity {
			m = max(m, v.Len())
		}
		return m
	}

	_, err := s.Step(st, 0.01)
	require.NoError(t, err)
	assert.Less(t, maxSpeed(), float32(0.05))

	for step := 0; step < 20; step++ {
		stats, err := s.Step(st, 0.01)
		require.NoError(t, err)
		require.Zero(t, stats.Clamped, "step %d", step)
	}
	assert.Less(t, maxSpeed(), float32(0.5))
}

func TestTensileCorrectionIsRepulsive(t *testing.T) {
	p := testParams()
	p.Gravity = components.Vec2{}
	p.Viscosity = 0

	// Two particles at rest spacing are under-dense, so only s_corr acts.
	run := func(k float32) float32 {
		p.TensileK = k
		s := newTestSolver(t, p, 2)
		st := latticeStore(2, 1, p.ParticleSpacing)
		_, err := s.Step(st, 0.01)
		require.NoError(t, err)
		return st.Position[1].X - st.Position[0].X
	}

	assert.InDelta(t, p.ParticleSpacing, run(0), 1e-6)
	gap := run(1e-4)
	assert.Greater(t, gap, p.ParticleSpacing)
	assert.Less(t, gap-p.ParticleSpacing, float32(1e-3))
}

func TestBoundaryContainment(t *testing.T) {
	p := testParams()
	s := newTestSolver(t, p, 100)

	st := latticeStore(10, 10, p.ParticleSpacing)
	for i := range st.Velocity {
		sign := float32(1)
		if i%2 == 0 {
			sign = -1
		}
		st.Velocity[i] = components.Vec2{X: sign * 1e4, Y: -sign * 3e3}
	}

	for step := 0; step < 20; step++ {
		_, err := s.Step(st, 0.01)
		require.NoError(t, err)
		for i, pos := range st.Position {
			require.True(t, testBounds.Contains(pos), "step %d particle %d at %v", step, i, pos)
			require.True(t, s.ContactBounds().Contains(pos), "step %d particle %d at %v", step, i, pos)
		}
	}
}

func TestXSPHBlendsTowardNeighbors(t *testing.T) {
	p := testParams()
	p.Gravity = components.Vec2{}
	p.TensileK = 0
	p.Viscosity = 0.5
	s := newTestSolver(t, p, 2)

	st := components.NewStore(2)
	st.Position[0] = components.Vec2{X: -0.03}
	st.Position[1] = components.Vec2{X: 0.03}
	st.Velocity[0] = components.Vec2{X: 1}
	st.Velocity[1] = components.Vec2{X: -1}

	_, err := s.Step(st, 0.01)
	require.NoError(t, err)
	assert.InDelta(t, 0, st.Velocity[0].X, 1e-4)
	assert.InDelta(t, 0, st.Velocity[1].X, 1e-4)
}

func TestNonFiniteVelocityFreezesParticle(t *testing.T) {
	s := newTestSolver(t, testParams(), 1)

	st := components.NewStore(1)
	start := components.Vec2{X: 1, Y: 1}
	st.Position[0] = start
	st.Velocity[0] = components.Vec2{X: float32(math.NaN())}

	stats, err := s.Step(st, 0.01)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Resets)
	assert.Equal(t, start, st.Position[0])
	assert.Equal(t, components.Vec2{}, st.Velocity[0])

	// The next step proceeds normally.
	stats, err = s.Step(st, 0.01)
	require.NoError(t, err)
	assert.Zero(t, stats.Resets)
	assert.Less(t, st.Position[0].Y, start.Y)
}

func TestNonFinitePositionIsFatal(t *testing.T) {
	s := newTestSolver(t, testParams(), 3)

	st := latticeStore(3, 1, 0.06)
	st.Position[2] = components.Vec2{X: float32(math.Inf(1))}
	before := st.CopyPositions(nil)

	_, err := s.Step(st, 0.01)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNumericalCorruption)

	var simErr *SimulationError
	require.True(t, errors.As(err, &simErr))
	assert.Equal(t, 2, simErr.Particle)
	assert.Equal(t, int64(0), simErr.Step)
	assert.Equal(t, before, st.Position)
}

type recordingTimer struct{ phases []string }

func (r *recordingTimer) StartPhase(phase string) { r.phases = append(r.phases, phase) }

func TestStepReportsPhases(t *testing.T) {
	s := newTestSolver(t, testParams(), 4)
	rec := &recordingTimer{}
	s.SetPerf(rec)

	_, err := s.Step(latticeStore(2, 2, 0.06), 0.01)
	require.NoError(t, err)
	assert.Equal(t, []string{PhasePredict, PhaseSpatialGrid, PhaseConstraints, PhaseFinalize}, rec.phases)
}

func TestDensityAt(t *testing.T) {
	p := testParams()
	p.Gravity = components.Vec2{}
	p.Iterations = 0
	s := newTestSolver(t, p, 11*11)
	st := latticeStore(11, 11, p.ParticleSpacing)
	_, err := s.Step(st, 0.01)
	require.NoError(t, err)

	assert.InEpsilon(t, p.RestDensity, s.DensityAt(st, components.Vec2{}), 1e-3)
	assert.Zero(t, s.DensityAt(st, components.Vec2{X: 4, Y: 4}))
}

func BenchmarkSolverStep(b *testing.B) {
	p := testParams()
	s := newTestSolver(b, p, 40*25)
	st := latticeStore(40, 25, p.ParticleSpacing)

	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		if _, err := s.Step(st, 0.01); err != nil {
			b.Fatal(err)
		}
	}
}
