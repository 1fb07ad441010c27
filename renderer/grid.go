package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/pbf/camera"
	"github.com/pthm-cable/pbf/systems"
)

var gridColor = rl.Color{R: 90, G: 100, B: 110, A: 120}

// GridRenderer draws the spatial grid for debugging.
type GridRenderer struct {
	vertices []float32
}

// NewGridRenderer creates a new grid renderer.
func NewGridRenderer() *GridRenderer {
	return &GridRenderer{}
}

// Draw renders cell boundaries as lines and grid vertices as points.
func (g *GridRenderer) Draw(cam *camera.Camera, desc systems.GridDescription) {
	x0, y0 := cam.WorldToScreen(desc.Min.X, desc.Min.Y)
	x1, y1 := cam.WorldToScreen(desc.Max.X, desc.Max.Y)

	for c := 0; c <= desc.Cols; c++ {
		wx := min(desc.Min.X+float32(c)*desc.CellSize, desc.Max.X)
		sx, _ := cam.WorldToScreen(wx, 0)
		rl.DrawLineV(rl.Vector2{X: sx, Y: y0}, rl.Vector2{X: sx, Y: y1}, gridColor)
	}
	for r := 0; r <= desc.Rows; r++ {
		wy := min(desc.Min.Y+float32(r)*desc.CellSize, desc.Max.Y)
		_, sy := cam.WorldToScreen(0, wy)
		rl.DrawLineV(rl.Vector2{X: x0, Y: sy}, rl.Vector2{X: x1, Y: sy}, gridColor)
	}

	g.vertices = desc.Vertices(g.vertices[:0])
	for i := 0; i+2 < len(g.vertices); i += 3 {
		sx, sy := cam.WorldToScreen(g.vertices[i], g.vertices[i+1])
		rl.DrawCircleV(rl.Vector2{X: sx, Y: sy}, 1.5, gridColor)
	}
}
