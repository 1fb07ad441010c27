package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
)

// Slider ranges for live-tunable solver parameters.
const (
	MinIterations, MaxIterations = 1, 20
	MinEpsilon, MaxEpsilon       = 0.1, 50
	MinTensileK, MaxTensileK     = 0, 1e-3
	MaxStepsPerUpdate            = 16
)

// Controls is the editable state shown by the panel.
type Controls struct {
	Paused         bool
	ShowGrid       bool
	ColorMode      string
	StepsPerUpdate int
	Iterations     int
	Viscosity      float32
	Epsilon        float32
	TensileK       float32
}

// Actions reports what the user did on the panel this frame.
type Actions struct {
	TogglePause bool
	StepOnce    bool
	Reset       bool
	ToggleGrid  bool
	CycleColor  bool
	Snapshot    bool

	// SolverChanged is set when any solver slider moved; Controls then
	// carries the new values.
	SolverChanged bool
	StepsChanged  bool
	Controls      Controls
}

// Readout is the read-only state shown below the controls.
type Readout struct {
	Step        int64
	SimTime     float64
	Particles   int
	Mode        string
	FPS         float64
	StepsPerSec float64
	Dropped     float64

	MaxDensityError  float32
	MeanDensityError float32
	MeanNeighbors    float32
	Clamped          int
	Resets           int
	KineticEnergy    float32
}

// ControlPanel renders the left-side panel.
type ControlPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	height   int32
}

// NewControlPanel creates a new control panel.
func NewControlPanel(x, y, width, height int32) *ControlPanel {
	return &ControlPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		height:   height,
	}
}

// Width returns the panel width in pixels.
func (p *ControlPanel) Width() int32 { return p.width }

// Resize updates the panel height, e.g. after a window resize.
func (p *ControlPanel) Resize(height int32) { p.height = height }

// Draw renders controls and readout, returning the user's actions.
func (p *ControlPanel) Draw(c Controls, stats Readout) Actions {
	r := p.renderer
	th := r.Theme
	r.DrawPanel(p.x, p.y, p.width, p.height)

	pad := th.Padding
	x := p.x + pad
	y := p.y + pad
	inner := p.width - 2*pad
	fx := float32(x)
	half := float32(inner-pad) / 2

	act := Actions{Controls: c}

	rl.DrawText("PBF Fluid", x, y, 18, rl.White)
	y += 26

	y = r.DrawSectionHeader(x, y, "Run")
	pauseLabel := "Pause"
	if c.Paused {
		pauseLabel = "Resume"
	}
	if gui.Button(rl.Rectangle{X: fx, Y: float32(y), Width: half, Height: th.ControlHeight + 4}, pauseLabel) {
		act.TogglePause = true
	}
	if gui.Button(rl.Rectangle{X: fx + half + float32(pad), Y: float32(y), Width: half, Height: th.ControlHeight + 4}, "Step") {
		act.StepOnce = true
	}
	y += int32(th.ControlHeight) + 10
	if gui.Button(rl.Rectangle{X: fx, Y: float32(y), Width: half, Height: th.ControlHeight + 4}, "Reset") {
		act.Reset = true
	}
	if gui.Button(rl.Rectangle{X: fx + half + float32(pad), Y: float32(y), Width: half, Height: th.ControlHeight + 4}, "Snapshot") {
		act.Snapshot = true
	}
	y += int32(th.ControlHeight) + 10
	gridLabel := "Grid: off"
	if c.ShowGrid {
		gridLabel = "Grid: on"
	}
	if gui.Button(rl.Rectangle{X: fx, Y: float32(y), Width: half, Height: th.ControlHeight + 4}, gridLabel) {
		act.ToggleGrid = true
	}
	if gui.Button(rl.Rectangle{X: fx + half + float32(pad), Y: float32(y), Width: half, Height: th.ControlHeight + 4}, "Color: "+c.ColorMode) {
		act.CycleColor = true
	}
	y += int32(th.ControlHeight) + 14

	y = r.DrawSectionHeader(x, y, "Solver")
	var steps, iters float32
	y, steps = p.slider(x, y, inner, "Steps/frame", fmt.Sprintf("%d", c.StepsPerUpdate), float32(c.StepsPerUpdate), 1, MaxStepsPerUpdate)
	y, iters = p.slider(x, y, inner, "Iterations", fmt.Sprintf("%d", c.Iterations), float32(c.Iterations), MinIterations, MaxIterations)
	var visc, eps, tk float32
	y, visc = p.slider(x, y, inner, "Viscosity", fmt.Sprintf("%.3f", c.Viscosity), c.Viscosity, 0, 1)
	y, eps = p.slider(x, y, inner, "Epsilon", fmt.Sprintf("%.2f", c.Epsilon), c.Epsilon, MinEpsilon, MaxEpsilon)
	y, tk = p.slider(x, y, inner, "Tensile k", fmt.Sprintf("%.1e", c.TensileK), c.TensileK, MinTensileK, MaxTensileK)

	if n := int(steps + 0.5); n != c.StepsPerUpdate {
		act.Controls.StepsPerUpdate = n
		act.StepsChanged = true
	}
	if n := int(iters + 0.5); n != c.Iterations {
		act.Controls.Iterations = n
		act.SolverChanged = true
	}
	if visc != c.Viscosity || eps != c.Epsilon || tk != c.TensileK {
		act.Controls.Viscosity = visc
		act.Controls.Epsilon = eps
		act.Controls.TensileK = tk
		act.SolverChanged = true
	}

	y += 6
	p.drawReadout(x, y, inner, stats)
	return act
}

// slider draws a labelled raygui slider and returns the next Y and the new value.
func (p *ControlPanel) slider(x, y, width int32, label, valueText string, value, lo, hi float32) (int32, float32) {
	r := p.renderer
	th := r.Theme
	rl.DrawText(label, x, y, th.FontSize, th.LabelColor)
	valueW := rl.MeasureText(valueText, th.FontSize)
	rl.DrawText(valueText, x+width-valueW, y, th.FontSize, th.ValueColor)
	y += th.LineHeight

	v := gui.SliderBar(
		rl.Rectangle{X: float32(x), Y: float32(y), Width: float32(width), Height: th.ControlHeight - 6},
		"", "",
		value, lo, hi,
	)
	return y + int32(th.ControlHeight) + 2, v
}

func (p *ControlPanel) drawReadout(x, y, width int32, s Readout) int32 {
	r := p.renderer
	y = r.DrawSectionHeader(x, y, "Stats")
	y = r.DrawLabelValue(x, y, "Step", fmt.Sprintf("%d", s.Step))
	y = r.DrawLabelValue(x, y, "Sim time", fmt.Sprintf("%.2f s", s.SimTime))
	y = r.DrawLabelValue(x, y, "Particles", fmt.Sprintf("%d", s.Particles))
	y = r.DrawLabelValue(x, y, "Mode", s.Mode)
	y = r.DrawLabelValue(x, y, "FPS", fmt.Sprintf("%.0f", s.FPS))
	y = r.DrawLabelValue(x, y, "Steps/s", fmt.Sprintf("%.0f", s.StepsPerSec))
	y = r.DrawWarnValue(x, y, "Dropped", fmt.Sprintf("%.2f s", s.Dropped), s.Dropped > 0)
	y += 4
	y = r.DrawLevelBar(x, y, "Max compr.", s.MaxDensityError, 0.1, width)
	y = r.DrawLevelBar(x, y, "Mean |err|", s.MeanDensityError, 0.1, width)
	y = r.DrawLabelValue(x, y, "Neighbors", fmt.Sprintf("%.1f", s.MeanNeighbors))
	y = r.DrawLabelValue(x, y, "Clamped", fmt.Sprintf("%d", s.Clamped))
	y = r.DrawWarnValue(x, y, "Frozen", fmt.Sprintf("%d", s.Resets), s.Resets > 0)
	y = r.DrawLabelValue(x, y, "Kinetic E", fmt.Sprintf("%.3g", s.KineticEnergy))
	y += 6
	rl.DrawText("Space pause  N step  R reset", x, y, 10, r.Theme.LabelColor)
	y += 12
	rl.DrawText("G grid  C color  S snapshot  , . speed", x, y, 10, r.Theme.LabelColor)
	return y + 12
}
