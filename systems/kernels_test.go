package systems

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pthm-cable/pbf/components"
)

// radialIntegral integrates f over the disk of radius h with the midpoint rule.
func radialIntegral(h float32, f func(r float32) float32) float64 {
	const steps = 20000
	dr := float64(h) / steps
	var sum float64
	for i := 0; i < steps; i++ {
		r := (float64(i) + 0.5) * dr
		sum += 2 * math.Pi * r * float64(f(float32(r))) * dr
	}
	return sum
}

func TestKernelsNormalized(t *testing.T) {
	for _, h := range []float32{0.1, 0.12, 1} {
		k := NewKernel(h)
		poly6 := radialIntegral(h, func(r float32) float32 { return k.Poly6(r * r) })
		spiky := radialIntegral(h, k.Spiky)
		assert.InDelta(t, 1.0, poly6, 1e-3, "poly6 h=%v", h)
		assert.InDelta(t, 1.0, spiky, 1e-3, "spiky h=%v", h)
	}
}

func TestKernelSupport(t *testing.T) {
	k := NewKernel(0.12)
	assert.Zero(t, k.Poly6(k.H2))
	assert.Zero(t, k.Poly6(1))
	assert.Zero(t, k.Spiky(k.H))
	assert.Greater(t, k.Poly6(0), k.Poly6(0.001))

	assert.Equal(t, components.Vec2{}, k.SpikyGrad(components.Vec2{}, 0))
	assert.Equal(t, components.Vec2{}, k.SpikyGrad(components.Vec2{X: 0.2}, 0.2))
}

func TestSpikyGradPointsTowardNeighbor(t *testing.T) {
	k := NewKernel(0.12)
	d := components.Vec2{X: 0.03, Y: -0.04} // p_i - p_j
	g := k.SpikyGrad(d, d.Len())
	assert.Less(t, g.Dot(d), float32(0))

	// Antisymmetric in the pair.
	back := k.SpikyGrad(d.Scale(-1), d.Len())
	assert.Equal(t, g.Scale(-1), back)
}

func TestLatticeSum(t *testing.T) {
	k := NewKernel(0.12)
	s := float32(0.06)

	// Origin, four axis neighbors at s and four diagonals at s*sqrt(2);
	// the points at 2s sit on the support boundary and contribute nothing.
	want := k.Poly6(0) + 4*k.Poly6(s*s) + 4*k.Poly6(2*s*s)
	assert.InEpsilon(t, want, k.LatticeSum(s), 1e-5)
	assert.Zero(t, k.LatticeSum(0))
}
