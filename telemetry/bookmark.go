package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkCompressionSpike BookmarkType = "compression_spike"
	BookmarkEnergySpike      BookmarkType = "energy_spike"
	BookmarkParticleReset    BookmarkType = "particle_reset"
	BookmarkSettled          BookmarkType = "settled"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type" json:"type"`
	Step        int64        `csv:"step" json:"step"`
	Description string       `csv:"description" json:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"step", b.Step,
		"description", b.Description,
	)
}

// BookmarkDetector detects notable moments in the fluid's evolution.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	calmWindows int  // consecutive windows with a slow, steady fluid
	settled     bool // settled bookmark already emitted since last motion
}

// Thresholds for bookmark detection.
const (
	compressionFloor = 0.05 // density error worth reporting
	energyFloor      = 1e-3 // kinetic energy below this is treated as rest
	settledSpeed     = 0.05 // mean speed of a settled fluid, world units/s
	settledWindows   = 5
)

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 5 {
		historySize = 5
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if b := bd.checkParticleReset(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if bd.historyFull || bd.historyIdx > 0 {
		if b := bd.checkCompressionSpike(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkEnergySpike(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}
	if b := bd.checkSettled(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	bd.addToHistory(stats)
	return bookmarks
}

// Reset clears history, for use after the simulation is restarted.
func (bd *BookmarkDetector) Reset() {
	clear(bd.history)
	bd.historyIdx = 0
	bd.historyFull = false
	bd.calmWindows = 0
	bd.settled = false
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkParticleReset(stats WindowStats) *Bookmark {
	if stats.Resets == 0 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkParticleReset,
		Step:        stats.WindowEndStep,
		Description: fmt.Sprintf("%d particle(s) frozen after non-finite state", stats.Resets),
	}
}

func (bd *BookmarkDetector) checkCompressionSpike(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total float64
	for _, h := range history {
		total += h.SolverMaxDensityError
	}
	avg := total / float64(len(history))

	cur := stats.SolverMaxDensityError
	if cur > compressionFloor && cur > avg*2.0 {
		return &Bookmark{
			Type:        BookmarkCompressionSpike,
			Step:        stats.WindowEndStep,
			Description: fmt.Sprintf("Max density error %.3f is above 2x average (%.3f)", cur, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkEnergySpike(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}

	var total float64
	for _, h := range history {
		total += h.KineticEnergy
	}
	avg := total / float64(len(history))
	if avg < energyFloor {
		return nil
	}

	if stats.KineticEnergy > avg*3.0 {
		return &Bookmark{
			Type:        BookmarkEnergySpike,
			Step:        stats.WindowEndStep,
			Description: fmt.Sprintf("Kinetic energy %.3g is %.1fx average (%.3g)", stats.KineticEnergy, stats.KineticEnergy/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkSettled(stats WindowStats) *Bookmark {
	if stats.SpeedMean >= settledSpeed {
		bd.calmWindows = 0
		bd.settled = false
		return nil
	}

	bd.calmWindows++
	if bd.calmWindows < settledWindows || bd.settled {
		return nil
	}
	bd.settled = true
	return &Bookmark{
		Type:        BookmarkSettled,
		Step:        stats.WindowEndStep,
		Description: fmt.Sprintf("Fluid settled: mean speed %.4f over %d windows", stats.SpeedMean, settledWindows),
	}
}
