package game

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/pbf/systems"
	"github.com/pthm-cable/pbf/telemetry"
)

// BeforeStep starts step timing. It implements sim.StepObserver.
func (g *Game) BeforeStep() {
	g.perfCollector.StartStep()
}

// AfterStep records the step's stats and flushes a telemetry window when due.
func (g *Game) AfterStep(step int64, stats systems.StepStats) {
	g.perfCollector.StartPhase(telemetry.PhaseTelemetry)
	g.collector.Record(stats)
	g.flushTelemetry(step)
	g.perfCollector.EndStep()
}

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (g *Game) flushTelemetry(step int64) {
	if !g.collector.ShouldFlush(step) {
		return
	}

	g.velocities = g.sim.Velocities(g.velocities)
	g.densities = g.sim.Densities(g.densities)
	momX, momY := g.sim.Momentum()

	stats := g.collector.Flush(step, telemetry.Sample{
		Velocities:    g.velocities,
		Densities:     g.densities,
		RestDensity:   g.sim.Params().Solver.RestDensity,
		KineticEnergy: float64(g.sim.KineticEnergy()),
		MomentumX:     momX,
		MomentumY:     momY,
	})
	perfStats := g.perfCollector.Stats()
	g.lastWindow = stats

	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := g.outputManager.WriteTelemetry(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if err := g.outputManager.WritePerf(perfStats, stats.WindowEndStep); err != nil {
		slog.Error("failed to write perf", "error", err)
	}

	for _, bm := range g.bookmarkDetector.Check(stats) {
		if g.logStats {
			bm.LogBookmark()
		}
		if err := g.outputManager.WriteBookmark(bm); err != nil {
			slog.Error("failed to write bookmark", "error", err)
		}
		if g.snapshotDir != "" {
			g.saveSnapshot(&bm, g.snapshotDir)
		}
	}
}

// saveSnapshot writes the current particle state to dir.
func (g *Game) saveSnapshot(bookmark *telemetry.Bookmark, dir string) {
	g.positions = g.sim.CopyPositions(g.positions)
	g.velocities = g.sim.Velocities(g.velocities)

	snapshot := telemetry.NewSnapshot(g.sim.Step(), g.sim.DT(), g.cfg.Derived.Bounds, g.positions, g.velocities)
	snapshot.Bookmark = bookmark

	path, err := telemetry.SaveSnapshot(snapshot, dir)
	if err != nil {
		slog.Error("failed to save snapshot", "error", err)
		return
	}
	slog.Info("snapshot saved", "path", path, "step", snapshot.Step)
}

// resume restores particle state from a snapshot file.
func (g *Game) resume(path string) error {
	snapshot, err := telemetry.LoadSnapshot(path)
	if err != nil {
		return err
	}
	if err := snapshot.Check(g.sim.Len(), g.sim.DT(), g.cfg.Derived.Bounds); err != nil {
		return fmt.Errorf("resuming from %s: %w", path, err)
	}
	pos, vel := snapshot.State()
	if err := g.sim.Restore(snapshot.Step, pos, vel); err != nil {
		return fmt.Errorf("resuming from %s: %w", path, err)
	}
	g.collector.Restart(snapshot.Step)
	slog.Info("resumed from snapshot", "path", path, "step", snapshot.Step)
	return nil
}
