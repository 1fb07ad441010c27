package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/pbf/camera"
	"github.com/pthm-cable/pbf/components"
)

var (
	domainFill   = rl.Color{R: 18, G: 22, B: 28, A: 255}
	domainBorder = rl.Color{R: 120, G: 130, B: 140, A: 255}
	contactLine  = rl.Color{R: 70, G: 80, B: 90, A: 255}
)

// DomainRenderer draws the simulation box and the region particle
// centers are confined to.
type DomainRenderer struct{}

// NewDomainRenderer creates a new domain renderer.
func NewDomainRenderer() *DomainRenderer {
	return &DomainRenderer{}
}

// Draw fills the domain and outlines both rectangles.
func (d *DomainRenderer) Draw(cam *camera.Camera, domain, contact components.Bounds) {
	rect := screenRect(cam, domain)
	rl.DrawRectangleRec(rect, domainFill)
	rl.DrawRectangleLinesEx(rect, 2, domainBorder)
	if contact != domain {
		rl.DrawRectangleLinesEx(screenRect(cam, contact), 1, contactLine)
	}
}

// screenRect maps world bounds to a screen rectangle (top-left origin).
func screenRect(cam *camera.Camera, b components.Bounds) rl.Rectangle {
	x0, y0 := cam.WorldToScreen(b.Min.X, b.Max.Y)
	x1, y1 := cam.WorldToScreen(b.Max.X, b.Min.Y)
	return rl.Rectangle{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}
