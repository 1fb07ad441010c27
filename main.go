package main

import (
	"flag"
	"log/slog"
	"os"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/pbf/config"
	"github.com/pthm-cable/pbf/game"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in simulated seconds (0 = use config)")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for snapshot files (empty = <output-dir>/snapshots)")
	resume := flag.String("resume", "", "Snapshot file to resume from")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	maxSteps := flag.Int("max-steps", 0, "Stop after N steps (0 = use config)")
	stepsPerUpdate := flag.Int("steps-per-update", 0, "Solver steps per update call (0 = use config)")
	realtime := flag.Bool("realtime", false, "Pace steps to wall-clock time in the viewer")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	if *maxSteps > 0 {
		cfg.Run.MaxSteps = *maxSteps
	}
	if *realtime {
		cfg.Run.Mode = config.RunModeRealtime
	}

	opts := game.Options{
		Config:         cfg,
		LogStats:       *logStats,
		StatsWindowSec: *statsWindow,
		OutputDir:      *outputDir,
		SnapshotDir:    *snapshotDir,
		ResumeFrom:     *resume,
		Headless:       *headless,
		StepsPerUpdate: *stepsPerUpdate,
	}

	if *headless {
		os.Exit(runHeadless(opts))
	}

	os.Exit(runGraphical(opts))
}

// runGraphical opens the viewer window and runs until it is closed or the
// step limit is reached, returning the exit code.
func runGraphical(opts game.Options) int {
	cfg := opts.Config

	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "PBF Fluid")
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	g, err := game.NewGameWithOptions(opts)
	if err != nil {
		slog.Error("failed to start", "error", err)
		return 1
	}
	defer g.Unload()

	for !rl.WindowShouldClose() {
		g.Update()
		g.Draw()

		if cfg.Run.MaxSteps > 0 && g.Step() >= int64(cfg.Run.MaxSteps) {
			slog.Info("max steps reached", "step", g.Step())
			break
		}
	}
	return 0
}

// runHeadless steps the simulation until the step limit and returns the exit code.
func runHeadless(opts game.Options) int {
	cfg := opts.Config
	if cfg.Run.MaxSteps == 0 {
		slog.Warn("headless run without max_steps will not stop on its own")
	}

	g, err := game.NewGameWithOptions(opts)
	if err != nil {
		slog.Error("failed to start", "error", err)
		return 1
	}
	defer g.Unload()

	slog.Info("starting headless simulation",
		"particles", cfg.Particles.Count,
		"dt", cfg.Solver.DT,
		"iterations", cfg.Solver.Iterations,
		"max_steps", cfg.Run.MaxSteps,
		"steps_per_update", opts.StepsPerUpdate,
	)

	for !g.Done() {
		if err := g.UpdateHeadless(); err != nil {
			return 1
		}
	}
	slog.Info("headless run finished",
		"step", g.Step(),
		"sim_time", g.Sim().Time(),
		"kinetic_energy", g.Sim().KineticEnergy(),
	)
	return 0
}
