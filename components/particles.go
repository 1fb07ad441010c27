package components

import (
	"unsafe"

	"gonum.org/v1/gonum/blas/blas32"
)

// Store holds per-particle state as parallel arrays. Particle identity is the
// array index; all slices have the same fixed length.
type Store struct {
	Position  []Vec2
	Predicted []Vec2
	Velocity  []Vec2
	Density   []float32
	Lambda    []float32

	// Scratch buffers reused across steps.
	Delta    []Vec2
	Smoothed []Vec2
}

// NewStore allocates a store for n particles. All state starts zeroed.
func NewStore(n int) *Store {
	return &Store{
		Position:  make([]Vec2, n),
		Predicted: make([]Vec2, n),
		Velocity:  make([]Vec2, n),
		Density:   make([]float32, n),
		Lambda:    make([]float32, n),
		Delta:     make([]Vec2, n),
		Smoothed:  make([]Vec2, n),
	}
}

// Len returns the particle count.
func (s *Store) Len() int {
	return len(s.Position)
}

// CopyPositions appends a copy of all positions to dst[:0] and returns it.
func (s *Store) CopyPositions(dst []Vec2) []Vec2 {
	return append(dst[:0], s.Position...)
}

// FlattenPositions writes positions as contiguous (x, y, 0) records into
// dst, growing it if needed, and returns the 3N-long slice.
func (s *Store) FlattenPositions(dst []float32) []float32 {
	n := 3 * len(s.Position)
	if cap(dst) < n {
		dst = make([]float32, n)
	}
	dst = dst[:n]
	for i, p := range s.Position {
		dst[3*i] = p.X
		dst[3*i+1] = p.Y
		dst[3*i+2] = 0
	}
	return dst
}

// Momentum returns the summed velocity of all particles (unit mass).
func (s *Store) Momentum() (x, y float64) {
	for _, v := range s.Velocity {
		x += float64(v.X)
		y += float64(v.Y)
	}
	return x, y
}

// KineticEnergy returns 0.5 * mass * sum(|v|^2).
func (s *Store) KineticEnergy(mass float32) float32 {
	if len(s.Velocity) == 0 {
		return 0
	}
	v := blas32.Vector{N: 2 * len(s.Velocity), Inc: 1, Data: flatten(s.Velocity)}
	return 0.5 * mass * blas32.Dot(v, v)
}

// flatten views a Vec2 slice as interleaved float32 components without copying.
func flatten(v []Vec2) []float32 {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice(&v[0].X, 2*len(v))
}
