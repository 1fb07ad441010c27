// Package game wires the simulator to its drivers, telemetry and viewer.
package game

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/pbf/camera"
	"github.com/pthm-cable/pbf/components"
	"github.com/pthm-cable/pbf/config"
	"github.com/pthm-cable/pbf/renderer"
	"github.com/pthm-cable/pbf/sim"
	"github.com/pthm-cable/pbf/telemetry"
	"github.com/pthm-cable/pbf/ui"
)

// Options configures a Game.
type Options struct {
	Config         *config.Config // nil = config.Cfg()
	LogStats       bool           // log window and perf stats via slog
	StatsWindowSec float64        // 0 = use config
	OutputDir      string         // CSV logs and config copy (empty = disabled)
	SnapshotDir    string         // bookmark snapshots (empty = OutputDir/snapshots)
	ResumeFrom     string         // snapshot file to restore before the first step
	Headless       bool
	StepsPerUpdate int // 0 = use config
	StatsCallback  func(telemetry.WindowStats)
}

// Game holds the simulation and everything that observes or displays it.
type Game struct {
	cfg    *config.Config
	sim    *sim.Simulator
	driver *sim.Driver

	// Telemetry
	perfCollector    *telemetry.PerfCollector
	collector        *telemetry.Collector
	bookmarkDetector *telemetry.BookmarkDetector
	outputManager    *telemetry.OutputManager
	statsCallback    func(telemetry.WindowStats)
	logStats         bool
	snapshotDir      string
	lastWindow       telemetry.WindowStats

	// Rendering (nil in headless mode)
	camera           *camera.Camera
	domainRenderer   *renderer.DomainRenderer
	gridRenderer     *renderer.GridRenderer
	particleRenderer *renderer.ParticleRenderer
	panel            *ui.ControlPanel

	// Scratch buffers reused across frames and windows
	positions  []components.Vec2
	velocities []components.Vec2
	densities  []float32

	// State
	headless bool
	paused   bool
	showGrid bool
	err      error // fatal simulation error; stepping stops once set

	// Window dimensions
	screenWidth, screenHeight float32
}

// NewGameWithOptions creates a game. In graphical mode the raylib window
// must already be open.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Cfg()
	}
	if opts.StepsPerUpdate > 0 {
		c := *cfg
		c.Run.StepsPerUpdate = opts.StepsPerUpdate
		cfg = &c
	}

	perf := telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow)
	s, err := sim.NewFromConfig(cfg, sim.WithPhaseTimer(perf), sim.WithLogger(slog.Default()))
	if err != nil {
		return nil, fmt.Errorf("creating simulator: %w", err)
	}
	driver, err := sim.NewDriver(s, cfg.Run)
	if err != nil {
		return nil, fmt.Errorf("creating driver: %w", err)
	}

	statsWindow := cfg.Telemetry.StatsWindow
	if opts.StatsWindowSec > 0 {
		statsWindow = opts.StatsWindowSec
	}

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("creating output: %w", err)
	}
	if err := om.WriteConfig(cfg); err != nil {
		om.Close()
		return nil, fmt.Errorf("writing config: %w", err)
	}

	g := &Game{
		cfg:              cfg,
		sim:              s,
		driver:           driver,
		perfCollector:    perf,
		collector:        telemetry.NewCollector(statsWindow, cfg.Derived.DT32),
		bookmarkDetector: telemetry.NewBookmarkDetector(10),
		outputManager:    om,
		statsCallback:    opts.StatsCallback,
		logStats:         opts.LogStats,
		snapshotDir:      opts.SnapshotDir,
		headless:         opts.Headless,
		showGrid:         cfg.Viewer.ShowGrid,
		screenWidth:      cfg.Derived.ScreenW32,
		screenHeight:     cfg.Derived.ScreenH32,
	}
	if g.snapshotDir == "" {
		g.snapshotDir = om.SnapshotDir()
	}
	driver.Observe(g)

	if opts.ResumeFrom != "" {
		if err := g.resume(opts.ResumeFrom); err != nil {
			om.Close()
			return nil, err
		}
	}

	if !g.headless {
		g.initViewer()
	}
	return g, nil
}

// initViewer creates the camera, renderers and panel.
func (g *Game) initViewer() {
	panelW := int32(g.cfg.Viewer.PanelWidth)
	g.panel = ui.NewControlPanel(0, 0, panelW, int32(g.screenHeight))
	g.camera = camera.New(float32(panelW), 0, g.screenWidth-float32(panelW), g.screenHeight,
		g.cfg.Derived.Bounds, float32(g.cfg.Viewer.PixelsPerUnit))
	g.domainRenderer = renderer.NewDomainRenderer()
	g.gridRenderer = renderer.NewGridRenderer()
	g.particleRenderer = renderer.NewParticleRenderer()
}

// Update handles input and advances the simulation by one frame's worth of steps.
func (g *Game) Update() {
	g.handleInput()
	g.perfCollector.RecordFrame()

	if g.paused || g.err != nil {
		return
	}
	if _, err := g.driver.Advance(frameTime()); err != nil {
		g.fail(err)
	}
}

// UpdateHeadless runs StepsPerUpdate steps without graphics.
func (g *Game) UpdateHeadless() error {
	if g.err != nil {
		return g.err
	}
	for i := 0; i < g.driver.StepsPerUpdate() && !g.driver.Done(); i++ {
		if err := g.driver.StepOnce(); err != nil {
			g.fail(err)
			return err
		}
	}
	return nil
}

// fail records a fatal simulation error and pauses.
func (g *Game) fail(err error) {
	g.err = err
	g.paused = true
	slog.Error("simulation stopped", "step", g.sim.Step(), "error", err)
}

// stepOnce advances exactly one step, e.g. while paused.
func (g *Game) stepOnce() {
	if g.err != nil {
		return
	}
	if err := g.driver.StepOnce(); err != nil {
		g.fail(err)
	}
}

// reset restores the seeded state and restarts telemetry windows.
func (g *Game) reset() {
	g.sim.Reset()
	g.driver.ResetClock()
	g.collector.Restart(0)
	g.bookmarkDetector.Reset()
	g.lastWindow = telemetry.WindowStats{}
	g.err = nil
	slog.Info("simulation reset")
}

// Step returns the number of completed simulation steps.
func (g *Game) Step() int64 {
	return g.sim.Step()
}

// Done reports whether the run has reached its step limit or failed.
func (g *Game) Done() bool {
	return g.err != nil || g.driver.Done()
}

// Err returns the fatal simulation error, if any.
func (g *Game) Err() error {
	return g.err
}

// Sim exposes the simulator for read access.
func (g *Game) Sim() *sim.Simulator {
	return g.sim
}

// Unload flushes and closes output files.
func (g *Game) Unload() {
	if err := g.outputManager.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}
}
