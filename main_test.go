package main

import (
	"path/filepath"
	"testing"

	"github.com/pthm-cable/pbf/config"
	"github.com/pthm-cable/pbf/game"
)

func TestRunHeadlessExitCodes(t *testing.T) {
	cfg := config.Default()
	cfg.Particles.Count = 16
	cfg.Run.MaxSteps = 5

	if code := runHeadless(game.Options{Config: cfg, Headless: true}); code != 0 {
		t.Errorf("clean run exit code = %d, want 0", code)
	}

	missing := filepath.Join(t.TempDir(), "missing.json")
	if code := runHeadless(game.Options{Config: cfg, Headless: true, ResumeFrom: missing}); code != 1 {
		t.Errorf("failed start exit code = %d, want 1", code)
	}
}
