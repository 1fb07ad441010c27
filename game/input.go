package game

import (
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// frameTime returns the last frame's duration.
func frameTime() time.Duration {
	return time.Duration(float64(rl.GetFrameTime()) * float64(time.Second))
}

// handleInput processes keyboard input.
func (g *Game) handleInput() {
	g.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	if rl.IsKeyPressed(rl.KeySpace) {
		g.togglePause()
	}
	if rl.IsKeyPressed(rl.KeyN) {
		g.stepOnce()
	}
	if rl.IsKeyPressed(rl.KeyR) {
		g.reset()
	}
	if rl.IsKeyPressed(rl.KeyG) {
		g.showGrid = !g.showGrid
	}
	if rl.IsKeyPressed(rl.KeyC) {
		g.particleRenderer.Mode = g.particleRenderer.Mode.Next()
	}
	if rl.IsKeyPressed(rl.KeyS) {
		g.saveSnapshot(nil, g.manualSnapshotDir())
	}

	// Steps-per-update control with < > keys (comma and period)
	if rl.IsKeyPressed(rl.KeyComma) {
		g.driver.SetStepsPerUpdate(g.driver.StepsPerUpdate() - 1)
	}
	if rl.IsKeyPressed(rl.KeyPeriod) && g.driver.StepsPerUpdate() < maxStepsPerUpdate {
		g.driver.SetStepsPerUpdate(g.driver.StepsPerUpdate() + 1)
	}

	g.handleCameraInput()
}

// togglePause flips the pause state; resuming discards wall time accumulated meanwhile.
func (g *Game) togglePause() {
	if g.err != nil {
		return
	}
	g.paused = !g.paused
	if !g.paused {
		g.driver.ResetClock()
	}
}

// manualSnapshotDir is where user-requested snapshots go.
func (g *Game) manualSnapshotDir() string {
	if g.snapshotDir != "" {
		return g.snapshotDir
	}
	return "snapshots"
}

// handleResize checks for window resize and propagates new dimensions.
func (g *Game) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	if w == g.screenWidth && h == g.screenHeight {
		return
	}
	g.screenWidth = w
	g.screenHeight = h

	panelW := float32(g.panel.Width())
	g.camera.Resize(panelW, 0, w-panelW, h, float32(g.cfg.Viewer.PixelsPerUnit))
	g.panel.Resize(int32(h))
}

// handleCameraInput processes camera pan/zoom controls.
func (g *Game) handleCameraInput() {
	// Pan speed scales inversely with zoom for natural feel
	panSpeed := float32(8.0) / g.camera.Zoom

	if rl.IsKeyDown(rl.KeyRight) {
		g.camera.Pan(panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		g.camera.Pan(-panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyDown) {
		g.camera.Pan(0, panSpeed)
	}
	if rl.IsKeyDown(rl.KeyUp) {
		g.camera.Pan(0, -panSpeed)
	}

	// Mouse wheel zoom, only over the viewport so panel sliders stay usable
	mouse := rl.GetMousePosition()
	if wheel := rl.GetMouseWheelMove(); wheel != 0 && g.camera.InViewport(mouse.X, mouse.Y) {
		g.camera.ZoomBy(1 + wheel*0.1)
	}

	// Drag with the right mouse button to pan
	if rl.IsMouseButtonDown(rl.MouseButtonRight) {
		d := rl.GetMouseDelta()
		g.camera.Pan(-d.X, -d.Y)
	}

	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		g.camera.ZoomBy(1.25)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		g.camera.ZoomBy(0.8)
	}

	if rl.IsKeyPressed(rl.KeyHome) {
		g.camera.Reset()
	}
}
