package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pthm-cable/pbf/components"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// ErrSnapshotMismatch is returned when a snapshot does not fit the running simulation.
var ErrSnapshotMismatch = errors.New("snapshot does not match simulation")

// Snapshot holds the particle state needed to resume a run.
type Snapshot struct {
	Version int     `json:"version"`
	Step    int64   `json:"step"`
	DT      float32 `json:"dt"`

	MinX float32 `json:"min_x"`
	MinY float32 `json:"min_y"`
	MaxX float32 `json:"max_x"`
	MaxY float32 `json:"max_y"`

	Particles []ParticleState `json:"particles"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// ParticleState holds one particle's committed state.
type ParticleState struct {
	X  float32 `json:"x"`
	Y  float32 `json:"y"`
	VX float32 `json:"vx"`
	VY float32 `json:"vy"`
}

// NewSnapshot captures positions and velocities. The slices must have equal length.
func NewSnapshot(step int64, dt float32, bounds components.Bounds, pos, vel []components.Vec2) *Snapshot {
	s := &Snapshot{
		Version:   SnapshotVersion,
		Step:      step,
		DT:        dt,
		MinX:      bounds.Min.X,
		MinY:      bounds.Min.Y,
		MaxX:      bounds.Max.X,
		MaxY:      bounds.Max.Y,
		Particles: make([]ParticleState, len(pos)),
	}
	for i := range pos {
		s.Particles[i] = ParticleState{X: pos[i].X, Y: pos[i].Y, VX: vel[i].X, VY: vel[i].Y}
	}
	return s
}

// State splits the snapshot back into position and velocity slices.
func (s *Snapshot) State() (pos, vel []components.Vec2) {
	pos = make([]components.Vec2, len(s.Particles))
	vel = make([]components.Vec2, len(s.Particles))
	for i, p := range s.Particles {
		pos[i] = components.Vec2{X: p.X, Y: p.Y}
		vel[i] = components.Vec2{X: p.VX, Y: p.VY}
	}
	return pos, vel
}

// Bounds returns the domain the snapshot was taken in.
func (s *Snapshot) Bounds() components.Bounds {
	return components.Bounds{
		Min: components.Vec2{X: s.MinX, Y: s.MinY},
		Max: components.Vec2{X: s.MaxX, Y: s.MaxY},
	}
}

// Check reports whether the snapshot can be restored into a simulation
// with the given particle count, step length and domain.
func (s *Snapshot) Check(count int, dt float32, bounds components.Bounds) error {
	switch {
	case s.Version != SnapshotVersion:
		return fmt.Errorf("%w: version %d, want %d", ErrSnapshotMismatch, s.Version, SnapshotVersion)
	case len(s.Particles) != count:
		return fmt.Errorf("%w: %d particles, want %d", ErrSnapshotMismatch, len(s.Particles), count)
	case s.DT != dt:
		return fmt.Errorf("%w: dt %v, want %v", ErrSnapshotMismatch, s.DT, dt)
	case s.Bounds() != bounds:
		return fmt.Errorf("%w: domain %v, want %v", ErrSnapshotMismatch, s.Bounds(), bounds)
	}
	return nil
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	name := fmt.Sprintf("snapshot_%d", snapshot.Step)
	if snapshot.Bookmark != nil {
		sanitized := strings.ReplaceAll(string(snapshot.Bookmark.Type), " ", "_")
		name = fmt.Sprintf("snapshot_%d_%s", snapshot.Step, sanitized)
	}
	path := filepath.Join(dir, name+".json")

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snapshot, nil
}
