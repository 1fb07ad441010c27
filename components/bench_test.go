package components

import (
	"testing"

	"gonum.org/v1/gonum/blas/blas32"
)

const benchParticles = 4096

func benchStore() *Store {
	s := NewStore(benchParticles)
	for i := range s.Velocity {
		s.Velocity[i] = Vec2{float32(i) * 0.001, float32(i) * -0.002}
	}
	return s
}

// Kinetic energy with a plain loop
func BenchmarkKineticEnergyScalar(b *testing.B) {
	s := benchStore()
	var sink float32

	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		var sum float32
		for _, v := range s.Velocity {
			sum += v.LenSq()
		}
		sink = 0.5 * sum
	}
	_ = sink
}

// Kinetic energy through blas32.Dot on the flattened velocities
func BenchmarkKineticEnergyBLAS(b *testing.B) {
	s := benchStore()
	var sink float32

	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		sink = s.KineticEnergy(1)
	}
	_ = sink
}

// XSPH-style blend v = (1-c)*v + c*avg, scalar
func BenchmarkVelocityBlendScalar(b *testing.B) {
	s := benchStore()
	avg := make([]Vec2, benchParticles)
	c := float32(0.05)

	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		for i := range s.Velocity {
			s.Velocity[i] = s.Velocity[i].Scale(1 - c).Add(avg[i].Scale(c))
		}
	}
}

// Same blend with blas32
func BenchmarkVelocityBlendBLAS(b *testing.B) {
	s := benchStore()
	avg := make([]Vec2, benchParticles)
	c := float32(0.05)

	vel := blas32.Vector{N: 2 * benchParticles, Inc: 1, Data: flatten(s.Velocity)}
	va := blas32.Vector{N: 2 * benchParticles, Inc: 1, Data: flatten(avg)}

	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		blas32.Scal(1-c, vel)
		blas32.Axpy(c, va, vel)
	}
}
