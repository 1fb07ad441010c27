package systems

import (
	"math"

	"github.com/pthm-cable/pbf/components"
)

// Kernel evaluates 2D SPH smoothing kernels for a fixed support radius h.
// Coefficients are normalized so each kernel integrates to 1 over the disk.
type Kernel struct {
	H  float32
	H2 float32

	poly6Coef     float32 // 4 / (pi h^8)
	spikyCoef     float32 // 10 / (pi h^5)
	spikyGradCoef float32 // -30 / (pi h^5)
}

// NewKernel precomputes kernel coefficients for support radius h.
func NewKernel(h float32) Kernel {
	hd := float64(h)
	return Kernel{
		H:             h,
		H2:            h * h,
		poly6Coef:     float32(4 / (math.Pi * math.Pow(hd, 8))),
		spikyCoef:     float32(10 / (math.Pi * math.Pow(hd, 5))),
		spikyGradCoef: float32(-30 / (math.Pi * math.Pow(hd, 5))),
	}
}

// Poly6 returns the poly6 kernel value for squared distance r2.
func (k Kernel) Poly6(r2 float32) float32 {
	if r2 >= k.H2 || r2 < 0 {
		return 0
	}
	d := k.H2 - r2
	return k.poly6Coef * d * d * d
}

// Spiky returns the spiky kernel value at distance r.
func (k Kernel) Spiky(r float32) float32 {
	if r >= k.H || r < 0 {
		return 0
	}
	d := k.H - r
	return k.spikyCoef * d * d * d
}

// SpikyGrad returns the gradient of the spiky kernel with respect to p_i,
// where d = p_i - p_j and r = |d|. The gradient is zero at r = 0 and beyond h.
func (k Kernel) SpikyGrad(d components.Vec2, r float32) components.Vec2 {
	if r >= k.H || r <= 1e-6 {
		return components.Vec2{}
	}
	w := k.H - r
	return d.Scale(k.spikyGradCoef * w * w / r)
}

// LatticeSum returns the sum of Poly6 over every point of an infinite square
// lattice with the given spacing, origin included. A particle of mass
// rho0/LatticeSum(s) in such a lattice sees exactly rho0.
func (k Kernel) LatticeSum(spacing float32) float32 {
	if spacing <= 0 {
		return 0
	}
	reach := int(math.Ceil(float64(k.H / spacing)))
	var sum float32
	for j := -reach; j <= reach; j++ {
		for i := -reach; i <= reach; i++ {
			x := float32(i) * spacing
			y := float32(j) * spacing
			sum += k.Poly6(x*x + y*y)
		}
	}
	return sum
}
