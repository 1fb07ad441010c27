// Package components defines the particle data types shared by the solver,
// the simulator and the viewer.
package components

import "math"

// Vec2 is a 2D vector in simulation units.
type Vec2 struct {
	X, Y float32
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

// Scale returns v * s.
func (v Vec2) Scale(s float32) Vec2 { return Vec2{v.X * s, v.Y * s} }

// Dot returns the dot product of v and o.
func (v Vec2) Dot(o Vec2) float32 { return v.X*o.X + v.Y*o.Y }

// LenSq returns the squared length of v.
func (v Vec2) LenSq() float32 { return v.X*v.X + v.Y*v.Y }

// Len returns the length of v.
func (v Vec2) Len() float32 { return float32(math.Sqrt(float64(v.LenSq()))) }

// IsFinite reports whether both components are neither NaN nor infinite.
func (v Vec2) IsFinite() bool {
	return !math.IsNaN(float64(v.X)) && !math.IsInf(float64(v.X), 0) &&
		!math.IsNaN(float64(v.Y)) && !math.IsInf(float64(v.Y), 0)
}

// Bounds is an axis-aligned rectangle [Min, Max].
type Bounds struct {
	Min, Max Vec2
}

// Width returns the horizontal extent.
func (b Bounds) Width() float32 { return b.Max.X - b.Min.X }

// Height returns the vertical extent.
func (b Bounds) Height() float32 { return b.Max.Y - b.Min.Y }

// Center returns the midpoint of the rectangle.
func (b Bounds) Center() Vec2 {
	return Vec2{(b.Min.X + b.Max.X) / 2, (b.Min.Y + b.Max.Y) / 2}
}

// Empty reports whether the rectangle has no positive area (or is NaN).
func (b Bounds) Empty() bool {
	return !(b.Max.X > b.Min.X) || !(b.Max.Y > b.Min.Y)
}

// Inset shrinks the rectangle by d on every side. If the result would be
// inverted along an axis, that axis collapses to its midpoint.
func (b Bounds) Inset(d float32) Bounds {
	out := Bounds{
		Min: Vec2{b.Min.X + d, b.Min.Y + d},
		Max: Vec2{b.Max.X - d, b.Max.Y - d},
	}
	if out.Min.X > out.Max.X {
		mid := (b.Min.X + b.Max.X) / 2
		out.Min.X, out.Max.X = mid, mid
	}
	if out.Min.Y > out.Max.Y {
		mid := (b.Min.Y + b.Max.Y) / 2
		out.Min.Y, out.Max.Y = mid, mid
	}
	return out
}

// Contains reports whether p lies within the rectangle, edges included.
func (b Bounds) Contains(p Vec2) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// Clamp returns p limited to the rectangle, and which axes were clamped.
func (b Bounds) Clamp(p Vec2) (out Vec2, clampedX, clampedY bool) {
	out = p
	if out.X < b.Min.X {
		out.X, clampedX = b.Min.X, true
	} else if out.X > b.Max.X {
		out.X, clampedX = b.Max.X, true
	}
	if out.Y < b.Min.Y {
		out.Y, clampedY = b.Min.Y, true
	} else if out.Y > b.Max.Y {
		out.Y, clampedY = b.Max.Y, true
	}
	return out, clampedX, clampedY
}
