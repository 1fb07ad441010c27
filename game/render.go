package game

import (
	"fmt"
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/pbf/ui"
)

const maxStepsPerUpdate = ui.MaxStepsPerUpdate

var backgroundColor = rl.Color{R: 10, G: 12, B: 16, A: 255}

// Draw renders the domain, particles and side panel, and applies panel actions.
func (g *Game) Draw() {
	rl.BeginDrawing()
	defer rl.EndDrawing()

	rl.ClearBackground(backgroundColor)

	g.domainRenderer.Draw(g.camera, g.cfg.Derived.Bounds, g.sim.ContactBounds())
	if g.showGrid {
		g.gridRenderer.Draw(g.camera, g.sim.Grid())
	}

	g.positions = g.sim.CopyPositions(g.positions)
	g.velocities = g.sim.Velocities(g.velocities)
	g.densities = g.sim.Densities(g.densities)
	sp := g.sim.Params().Solver
	g.particleRenderer.Draw(g.camera, g.positions, g.velocities, g.densities, sp.RestDensity, sp.ParticleRadius)

	g.applyPanel(g.panel.Draw(g.controls(), g.readout()))

	if g.err != nil {
		msg := fmt.Sprintf("stopped: %v  (R to reset)", g.err)
		rl.DrawText(msg, int32(g.camera.OffsetX)+10, int32(g.screenHeight)-24, 14, rl.Red)
	}
}

// controls snapshots the editable state for the panel.
func (g *Game) controls() ui.Controls {
	sp := g.sim.Params().Solver
	return ui.Controls{
		Paused:         g.paused,
		ShowGrid:       g.showGrid,
		ColorMode:      g.particleRenderer.Mode.String(),
		StepsPerUpdate: g.driver.StepsPerUpdate(),
		Iterations:     sp.Iterations,
		Viscosity:      sp.Viscosity,
		Epsilon:        sp.Epsilon,
		TensileK:       sp.TensileK,
	}
}

// readout gathers the stats shown on the panel.
func (g *Game) readout() ui.Readout {
	last := g.sim.LastStats()
	perf := g.perfCollector.Stats()
	return ui.Readout{
		Step:             g.sim.Step(),
		SimTime:          g.sim.Time(),
		Particles:        g.sim.Len(),
		Mode:             g.driver.Mode(),
		FPS:              perf.FPS,
		StepsPerSec:      perf.StepsPerSecond,
		Dropped:          g.driver.Dropped(),
		MaxDensityError:  last.MaxDensityError,
		MeanDensityError: last.MeanDensityError,
		MeanNeighbors:    last.MeanNeighbors,
		Clamped:          last.Clamped,
		Resets:           last.Resets,
		KineticEnergy:    g.sim.KineticEnergy(),
	}
}

// applyPanel carries out what the user did on the panel.
func (g *Game) applyPanel(act ui.Actions) {
	if act.TogglePause {
		g.togglePause()
	}
	if act.StepOnce {
		g.stepOnce()
	}
	if act.Reset {
		g.reset()
	}
	if act.ToggleGrid {
		g.showGrid = !g.showGrid
	}
	if act.CycleColor {
		g.particleRenderer.Mode = g.particleRenderer.Mode.Next()
	}
	if act.Snapshot {
		g.saveSnapshot(nil, g.manualSnapshotDir())
	}
	if act.StepsChanged {
		g.driver.SetStepsPerUpdate(act.Controls.StepsPerUpdate)
	}
	if act.SolverChanged {
		sp := g.sim.Params().Solver
		sp.Iterations = act.Controls.Iterations
		sp.Viscosity = act.Controls.Viscosity
		sp.Epsilon = act.Controls.Epsilon
		sp.TensileK = act.Controls.TensileK
		if err := g.sim.Reconfigure(sp); err != nil {
			slog.Warn("rejected solver parameters", "error", err)
		}
	}
}
