package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/pbf/camera"
	"github.com/pthm-cable/pbf/components"
)

// ColorMode selects what particle color encodes.
type ColorMode int

const (
	ColorByDensity ColorMode = iota // |rho/rho0 - 1|
	ColorBySpeed
)

func (m ColorMode) String() string {
	if m == ColorBySpeed {
		return "speed"
	}
	return "density"
}

// Next cycles to the following mode.
func (m ColorMode) Next() ColorMode {
	return (m + 1) % 2
}

var (
	restColor = rl.Color{R: 60, G: 130, B: 220, A: 255}
	hotColor  = rl.Color{R: 240, G: 240, B: 255, A: 255}
)

// ParticleRenderer draws fluid particles as filled circles.
type ParticleRenderer struct {
	Mode ColorMode

	// Values at or above these map to the hot color
	DensityScale float32
	SpeedScale   float32
}

// NewParticleRenderer creates a new particle renderer.
func NewParticleRenderer() *ParticleRenderer {
	return &ParticleRenderer{
		DensityScale: 0.1,
		SpeedScale:   3.0,
	}
}

// Draw renders every visible particle. densities and velocities may be
// shorter than positions (e.g. before the first step); missing values draw
// in the rest color.
func (r *ParticleRenderer) Draw(cam *camera.Camera, positions, velocities []components.Vec2, densities []float32, restDensity, radius float32) {
	px := radius * cam.PixelsPerUnit()
	if px < 1 {
		px = 1
	}

	for i, p := range positions {
		if !cam.IsVisible(p.X, p.Y, radius) {
			continue
		}
		var t float32
		switch r.Mode {
		case ColorByDensity:
			if i < len(densities) && restDensity > 0 {
				t = abs32(densities[i]/restDensity-1) / r.DensityScale
			}
		case ColorBySpeed:
			if i < len(velocities) {
				t = velocities[i].Len() / r.SpeedScale
			}
		}
		sx, sy := cam.WorldToScreen(p.X, p.Y)
		rl.DrawCircleV(rl.Vector2{X: sx, Y: sy}, px, lerpColor(restColor, hotColor, t))
	}
}

// lerpColor blends a toward b by t in [0, 1].
func lerpColor(a, b rl.Color, t float32) rl.Color {
	if t < 0 || t != t {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	mix := func(x, y uint8) uint8 {
		return uint8(float32(x) + (float32(y)-float32(x))*t)
	}
	return rl.Color{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
