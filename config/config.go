// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/pbf/components"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is wrapped by every error returned from Validate.
var ErrInvalid = errors.New("invalid config")

// Run modes.
const (
	RunModeSteps    = "steps"    // fixed number of solver steps per frame
	RunModeRealtime = "realtime" // steps follow wall-clock time through an accumulator
)

// Config holds all simulation configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Domain    DomainConfig    `yaml:"domain"`
	Particles ParticlesConfig `yaml:"particles"`
	Solver    SolverConfig    `yaml:"solver"`
	Run       RunConfig       `yaml:"run"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Viewer    ViewerConfig    `yaml:"viewer"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// DomainConfig holds the simulation box in world units.
type DomainConfig struct {
	MinX float64 `yaml:"min_x"`
	MinY float64 `yaml:"min_y"`
	MaxX float64 `yaml:"max_x"`
	MaxY float64 `yaml:"max_y"`
}

// ParticlesConfig holds particle count and initial layout.
type ParticlesConfig struct {
	Count   int     `yaml:"count"`   // Fixed for the lifetime of a simulator
	Radius  float64 `yaml:"radius"`  // Particle centers stay this far inside the domain
	Spacing float64 `yaml:"spacing"` // Seed lattice spacing, also the rest packing distance
}

// SolverConfig holds the PBF solver parameters.
type SolverConfig struct {
	DT              float64       `yaml:"dt"`               // Seconds per step
	Iterations      int           `yaml:"iterations"`       // Constraint iterations per step
	SmoothingRadius float64       `yaml:"smoothing_radius"` // Kernel support h
	CellSize        float64       `yaml:"cell_size"`        // Grid cell side (0 = 2 * smoothing_radius)
	RestDensity     float64       `yaml:"rest_density"`
	Epsilon         float64       `yaml:"epsilon"`   // Relaxation in the lambda denominator
	Viscosity       float64       `yaml:"viscosity"` // XSPH blend weight in [0, 1]
	GravityX        float64       `yaml:"gravity_x"`
	GravityY        float64       `yaml:"gravity_y"`
	Tensile         TensileConfig `yaml:"tensile"`
}

// TensileConfig holds the artificial pressure term s_corr = -k (W(r)/W(dq*h))^n.
type TensileConfig struct {
	K      float64 `yaml:"k"`
	N      int     `yaml:"n"`
	DeltaQ float64 `yaml:"delta_q"` // Fraction of smoothing_radius
}

// RunConfig controls how solver steps are driven.
type RunConfig struct {
	Mode           string `yaml:"mode"`             // "steps" or "realtime"
	StepsPerUpdate int    `yaml:"steps_per_update"` // Steps per frame in "steps" mode
	MaxSubsteps    int    `yaml:"max_substeps"`     // Cap per frame in "realtime" mode
	MaxSteps       int    `yaml:"max_steps"`        // Stop after N steps (0 = unlimited)
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"` // Simulated seconds per stats window
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// ViewerConfig holds settings for the interactive viewer.
type ViewerConfig struct {
	ShowGrid      bool    `yaml:"show_grid"`
	PixelsPerUnit float64 `yaml:"pixels_per_unit"`
	PanelWidth    int     `yaml:"panel_width"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32      float32           // Solver.DT as float32
	CellSize  float32           // Effective grid cell size
	Bounds    components.Bounds // Domain as world bounds
	Gravity   components.Vec2
	ScreenW32 float32
	ScreenH32 float32
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Recompute refreshes derived values after fields were changed in code.
func (c *Config) Recompute() {
	c.computeDerived()
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.DT32 = float32(c.Solver.DT)
	c.Derived.ScreenW32 = float32(c.Screen.Width)
	c.Derived.ScreenH32 = float32(c.Screen.Height)

	cell := c.Solver.CellSize
	if cell == 0 {
		cell = 2 * c.Solver.SmoothingRadius
	}
	c.Derived.CellSize = float32(cell)

	c.Derived.Bounds = components.Bounds{
		Min: components.Vec2{X: float32(c.Domain.MinX), Y: float32(c.Domain.MinY)},
		Max: components.Vec2{X: float32(c.Domain.MaxX), Y: float32(c.Domain.MaxY)},
	}
	c.Derived.Gravity = components.Vec2{X: float32(c.Solver.GravityX), Y: float32(c.Solver.GravityY)}
}

// Validate reports every configuration error at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
		}
	}

	check(c.Particles.Count > 0, "particles.count must be positive, got %d", c.Particles.Count)
	check(c.Particles.Radius >= 0, "particles.radius must be >= 0, got %v", c.Particles.Radius)
	check(c.Particles.Spacing > 0, "particles.spacing must be positive, got %v", c.Particles.Spacing)

	check(c.Solver.DT > 0, "solver.dt must be positive, got %v", c.Solver.DT)
	check(c.Solver.Iterations >= 0, "solver.iterations must be >= 0, got %d", c.Solver.Iterations)
	check(c.Solver.SmoothingRadius > 0, "solver.smoothing_radius must be positive, got %v", c.Solver.SmoothingRadius)
	check(c.Solver.CellSize >= 0, "solver.cell_size must be positive (or 0 for default), got %v", c.Solver.CellSize)
	check(c.Solver.CellSize == 0 || c.Solver.CellSize >= 2*c.Solver.SmoothingRadius,
		"solver.cell_size %v must be at least 2 * smoothing_radius", c.Solver.CellSize)
	check(c.Solver.RestDensity > 0, "solver.rest_density must be positive, got %v", c.Solver.RestDensity)
	check(c.Solver.Epsilon > 0, "solver.epsilon must be positive, got %v", c.Solver.Epsilon)
	check(c.Solver.Viscosity >= 0 && c.Solver.Viscosity <= 1, "solver.viscosity must be in [0, 1], got %v", c.Solver.Viscosity)
	check(c.Solver.Tensile.K >= 0, "solver.tensile.k must be >= 0, got %v", c.Solver.Tensile.K)
	check(c.Solver.Tensile.N >= 1, "solver.tensile.n must be >= 1, got %d", c.Solver.Tensile.N)
	check(c.Solver.Tensile.DeltaQ > 0 && c.Solver.Tensile.DeltaQ < 1, "solver.tensile.delta_q must be in (0, 1), got %v", c.Solver.Tensile.DeltaQ)

	check(c.Domain.MaxX > c.Domain.MinX && c.Domain.MaxY > c.Domain.MinY,
		"domain [%v,%v]-[%v,%v] is empty", c.Domain.MinX, c.Domain.MinY, c.Domain.MaxX, c.Domain.MaxY)

	check(c.Run.Mode == RunModeSteps || c.Run.Mode == RunModeRealtime, "run.mode must be %q or %q, got %q",
		RunModeSteps, RunModeRealtime, c.Run.Mode)
	check(c.Run.StepsPerUpdate >= 1, "run.steps_per_update must be >= 1, got %d", c.Run.StepsPerUpdate)
	check(c.Run.MaxSubsteps >= 1, "run.max_substeps must be >= 1, got %d", c.Run.MaxSubsteps)
	check(c.Run.MaxSteps >= 0, "run.max_steps must be >= 0, got %d", c.Run.MaxSteps)

	check(c.Telemetry.StatsWindow > 0, "telemetry.stats_window must be positive, got %v", c.Telemetry.StatsWindow)

	return errors.Join(errs...)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
