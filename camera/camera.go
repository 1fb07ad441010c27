// Package camera maps the bounded simulation domain onto a screen viewport.
// World y points up; screen y points down.
package camera

import "github.com/pthm-cable/pbf/components"

// Camera controls the viewport into the simulation world.
// Supports pan and zoom, with the view center kept inside the domain.
type Camera struct {
	// Position is the camera center in world coordinates
	X, Y float32

	// Zoom level relative to Scale (1.0 = whole domain fits)
	Zoom float32

	// Scale is pixels per world unit at zoom 1
	Scale float32

	// Viewport rectangle on screen
	OffsetX, OffsetY     float32
	ViewportW, ViewportH float32

	// World is the simulation domain
	World components.Bounds

	// Zoom constraints
	MinZoom, MaxZoom float32
}

// New creates a camera centered on the domain, scaled so it fits the viewport.
// maxScale caps pixels per world unit (0 = no cap).
func New(offsetX, offsetY, viewportW, viewportH float32, world components.Bounds, maxScale float32) *Camera {
	c := &Camera{
		OffsetX:   offsetX,
		OffsetY:   offsetY,
		ViewportW: viewportW,
		ViewportH: viewportH,
		World:     world,
		MinZoom:   0.5,
		MaxZoom:   8.0,
	}
	c.fit(maxScale)
	c.Reset()
	return c
}

// fit picks the largest scale that shows the whole domain.
func (c *Camera) fit(maxScale float32) {
	w, h := c.World.Width(), c.World.Height()
	if w <= 0 || h <= 0 {
		c.Scale = 1
		return
	}
	sx := c.ViewportW / w
	sy := c.ViewportH / h
	c.Scale = min(sx, sy)
	if maxScale > 0 && c.Scale > maxScale {
		c.Scale = maxScale
	}
	if c.Scale <= 0 {
		c.Scale = 1
	}
}

// PixelsPerUnit returns the current screen pixels per world unit.
func (c *Camera) PixelsPerUnit() float32 {
	return c.Scale * c.Zoom
}

// WorldToScreen converts world coordinates to screen coordinates.
func (c *Camera) WorldToScreen(wx, wy float32) (sx, sy float32) {
	k := c.PixelsPerUnit()
	sx = c.OffsetX + c.ViewportW/2 + (wx-c.X)*k
	sy = c.OffsetY + c.ViewportH/2 - (wy-c.Y)*k
	return sx, sy
}

// ScreenToWorld converts screen coordinates to world coordinates.
func (c *Camera) ScreenToWorld(sx, sy float32) (wx, wy float32) {
	k := c.PixelsPerUnit()
	wx = c.X + (sx-c.OffsetX-c.ViewportW/2)/k
	wy = c.Y - (sy-c.OffsetY-c.ViewportH/2)/k
	return wx, wy
}

// InViewport reports whether a screen point lies inside the viewport rectangle.
func (c *Camera) InViewport(sx, sy float32) bool {
	return sx >= c.OffsetX && sx <= c.OffsetX+c.ViewportW &&
		sy >= c.OffsetY && sy <= c.OffsetY+c.ViewportH
}

// IsVisible returns true if a circle at (wx, wy) with given world radius
// could be visible on screen (conservative check for culling).
func (c *Camera) IsVisible(wx, wy, radius float32) bool {
	minX, minY, maxX, maxY := c.VisibleWorldBounds()
	return wx+radius >= minX && wx-radius <= maxX &&
		wy+radius >= minY && wy-radius <= maxY
}

// Resize updates the viewport rectangle and refits the scale.
func (c *Camera) Resize(offsetX, offsetY, viewportW, viewportH, maxScale float32) {
	if offsetX == c.OffsetX && offsetY == c.OffsetY &&
		viewportW == c.ViewportW && viewportH == c.ViewportH {
		return
	}
	c.OffsetX, c.OffsetY = offsetX, offsetY
	c.ViewportW, c.ViewportH = viewportW, viewportH
	c.fit(maxScale)
}

// Pan moves the camera by the given delta in screen pixels.
// Dragging right or down moves the view the same way on screen.
func (c *Camera) Pan(dx, dy float32) {
	k := c.PixelsPerUnit()
	c.X += dx / k
	c.Y -= dy / k
	c.X = clamp(c.X, c.World.Min.X, c.World.Max.X)
	c.Y = clamp(c.Y, c.World.Min.Y, c.World.Max.Y)
}

// SetZoom sets the zoom level, clamped to min/max.
func (c *Camera) SetZoom(zoom float32) {
	c.Zoom = clamp(zoom, c.MinZoom, c.MaxZoom)
}

// ZoomBy multiplies the current zoom by the given factor.
func (c *Camera) ZoomBy(factor float32) {
	c.SetZoom(c.Zoom * factor)
}

// Reset returns the camera to the domain center at zoom 1.
func (c *Camera) Reset() {
	center := c.World.Center()
	c.X, c.Y = center.X, center.Y
	c.Zoom = 1.0
}

// VisibleWorldBounds returns the world-coordinate bounds of the visible area.
func (c *Camera) VisibleWorldBounds() (minX, minY, maxX, maxY float32) {
	k := c.PixelsPerUnit()
	halfW := c.ViewportW / (2 * k)
	halfH := c.ViewportH / (2 * k)

	minX = c.X - halfW
	maxX = c.X + halfW
	minY = c.Y - halfH
	maxY = c.Y + halfH
	return
}

// clamp restricts a value to a range.
func clamp(x, lo, hi float32) float32 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
