package telemetry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/pbf/components"
)

var snapshotBounds = components.Bounds{
	Min: components.Vec2{X: -5, Y: -5},
	Max: components.Vec2{X: 5, Y: 5},
}

func TestSnapshotSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()

	pos := []components.Vec2{{X: 0.1, Y: -4.97}, {X: 1.25, Y: 0.333}}
	vel := []components.Vec2{{X: 0.5, Y: -0.3}, {X: 0, Y: -9.81}}
	snapshot := NewSnapshot(1000, 0.01, snapshotBounds, pos, vel)
	snapshot.Bookmark = &Bookmark{Type: BookmarkSettled, Step: 1000, Description: "test"}

	path, err := SaveSnapshot(snapshot, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("Snapshot file not created at %s", path)
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}

	if loaded.Version != SnapshotVersion || loaded.Step != 1000 || loaded.DT != 0.01 {
		t.Errorf("header mismatch: %+v", loaded)
	}
	if err := loaded.Check(2, 0.01, snapshotBounds); err != nil {
		t.Errorf("Check on matching simulation: %v", err)
	}

	gotPos, gotVel := loaded.State()
	for i := range pos {
		if gotPos[i] != pos[i] || gotVel[i] != vel[i] {
			t.Errorf("particle %d: got %v %v, want %v %v", i, gotPos[i], gotVel[i], pos[i], vel[i])
		}
	}
	if loaded.Bookmark == nil || loaded.Bookmark.Type != BookmarkSettled {
		t.Errorf("Bookmark not loaded: %+v", loaded.Bookmark)
	}
}

func TestSnapshotCheck(t *testing.T) {
	s := NewSnapshot(0, 0.01, snapshotBounds, make([]components.Vec2, 3), make([]components.Vec2, 3))

	other := snapshotBounds
	other.Max.X = 6

	tests := []struct {
		name   string
		count  int
		dt     float32
		bounds components.Bounds
	}{
		{"count", 4, 0.01, snapshotBounds},
		{"dt", 3, 0.02, snapshotBounds},
		{"domain", 3, 0.01, other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Check(tt.count, tt.dt, tt.bounds)
			if !errors.Is(err, ErrSnapshotMismatch) {
				t.Errorf("Check() = %v, want ErrSnapshotMismatch", err)
			}
		})
	}
}

func TestSnapshotFilename(t *testing.T) {
	tmpDir := t.TempDir()

	snapshot := &Snapshot{
		Version:  SnapshotVersion,
		Step:     5000,
		Bookmark: &Bookmark{Type: BookmarkEnergySpike, Step: 5000},
	}
	path, err := SaveSnapshot(snapshot, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if expected := filepath.Join(tmpDir, "snapshot_5000_energy_spike.json"); path != expected {
		t.Errorf("Path mismatch: got %s, want %s", path, expected)
	}

	path, err = SaveSnapshot(&Snapshot{Version: SnapshotVersion, Step: 3000}, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if expected := filepath.Join(tmpDir, "snapshot_3000.json"); path != expected {
		t.Errorf("Path mismatch: got %s, want %s", path, expected)
	}
}

func TestLoadSnapshotMissing(t *testing.T) {
	if _, err := LoadSnapshot(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing snapshot")
	}
}
