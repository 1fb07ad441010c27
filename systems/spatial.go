// Package systems provides the fluid solver and its spatial index.
package systems

import (
	"fmt"
	"iter"
	"math"

	"github.com/pthm-cable/pbf/components"
)

// SpatialGrid buckets particle indices into square cells over a bounded
// domain. Positions outside the domain land in the nearest edge cell.
type SpatialGrid struct {
	bounds   components.Bounds
	cellSize float32
	invCell  float32
	cols     int
	rows     int
	cells    [][]int // flat row-major grid of particle indices

	positions []components.Vec2 // positions from the last Rebuild
}

// GridDescription is a read-only summary of a grid's layout.
type GridDescription struct {
	Min, Max components.Vec2
	CellSize float32
	Cols     int
	Rows     int
}

// NewSpatialGrid creates a grid covering bounds with the given cell size.
func NewSpatialGrid(bounds components.Bounds, cellSize float32) (*SpatialGrid, error) {
	if !(cellSize > 0) || math.IsInf(float64(cellSize), 0) {
		return nil, fmt.Errorf("%w: cell size must be positive, got %v", ErrInvalidParams, cellSize)
	}
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: empty grid bounds %v", ErrInvalidParams, bounds)
	}

	cols := int(math.Ceil(float64(bounds.Width() / cellSize)))
	rows := int(math.Ceil(float64(bounds.Height() / cellSize)))
	cols = max(cols, 1)
	rows = max(rows, 1)

	cells := make([][]int, cols*rows)
	for i := range cells {
		cells[i] = make([]int, 0, 8) // pre-allocate small capacity
	}

	return &SpatialGrid{
		bounds:   bounds,
		cellSize: cellSize,
		invCell:  1 / cellSize,
		cols:     cols,
		rows:     rows,
		cells:    cells,
	}, nil
}

// Clear removes all indices from the grid.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
	g.positions = nil
}

// Rebuild clears the grid and inserts every index of positions into the
// cell containing it. Indices are inserted in ascending order.
// The grid keeps a reference to positions for distance filtering in queries.
func (g *SpatialGrid) Rebuild(positions []components.Vec2) {
	g.Clear()
	g.positions = positions
	for i, p := range positions {
		idx := g.cellIndex(p)
		g.cells[idx] = append(g.cells[idx], i)
	}
}

// QueryRadiusInto appends to dst the indices within radius of p and returns
// the updated slice. Reuse dst across calls to avoid allocations.
// Cells are visited row-major starting from the lower-left of the block, so
// results are deterministic for identical input.
func (g *SpatialGrid) QueryRadiusInto(dst []int, p components.Vec2, radius float32) []int {
	if g.positions == nil {
		return dst
	}
	// Points outside the domain start from the nearest edge cell.
	col, row := g.cellCoords(p)

	reach := 1
	if radius > g.cellSize {
		reach = int(math.Ceil(float64(radius * g.invCell)))
	}
	radiusSq := radius * radius

	for r := max(row-reach, 0); r <= min(row+reach, g.rows-1); r++ {
		for c := max(col-reach, 0); c <= min(col+reach, g.cols-1); c++ {
			for _, j := range g.cells[r*g.cols+c] {
				if g.positions[j].Sub(p).LenSq() <= radiusSq {
					dst = append(dst, j)
				}
			}
		}
	}
	return dst
}

// Neighbors returns the indices within radius of p as a single-use sequence.
func (g *SpatialGrid) Neighbors(p components.Vec2, radius float32) iter.Seq[int] {
	return func(yield func(int) bool) {
		for _, j := range g.QueryRadiusInto(nil, p, radius) {
			if !yield(j) {
				return
			}
		}
	}
}

// CellOf returns the flat cell index a position is binned into.
func (g *SpatialGrid) CellOf(p components.Vec2) int {
	return g.cellIndex(p)
}

// Cell returns the indices stored in a flat cell index. The slice is owned
// by the grid and is only valid until the next Rebuild.
func (g *SpatialGrid) Cell(idx int) []int {
	return g.cells[idx]
}

// Describe returns the grid's layout.
func (g *SpatialGrid) Describe() GridDescription {
	return GridDescription{
		Min:      g.bounds.Min,
		Max:      g.bounds.Max,
		CellSize: g.cellSize,
		Cols:     g.cols,
		Rows:     g.rows,
	}
}

// cellIndex returns the flat index for a position.
func (g *SpatialGrid) cellIndex(p components.Vec2) int {
	col, row := g.cellCoords(p)
	return row*g.cols + col
}

// cellCoords returns floor((p - min) / cellSize) clamped to the grid.
func (g *SpatialGrid) cellCoords(p components.Vec2) (col, row int) {
	fx := math.Floor(float64((p.X - g.bounds.Min.X) * g.invCell))
	fy := math.Floor(float64((p.Y - g.bounds.Min.Y) * g.invCell))
	return clampCell(fx, g.cols), clampCell(fy, g.rows)
}

func clampCell(f float64, n int) int {
	// NaN compares false against both limits and falls through to 0.
	if !(f > 0) {
		return 0
	}
	if f >= float64(n-1) {
		return n - 1
	}
	return int(f)
}

// Vertices appends the grid-line intersections of the described lattice to
// dst as (x, y, 0) records and returns the result. The lattice spans
// round(extent/cellSize)+1 points per axis starting at Min.
func (d GridDescription) Vertices(dst []float32) []float32 {
	if !(d.CellSize > 0) {
		return dst[:0]
	}
	nh := int(math.Round(float64((d.Max.X-d.Min.X)/d.CellSize))) + 1
	nv := int(math.Round(float64((d.Max.Y-d.Min.Y)/d.CellSize))) + 1

	dst = dst[:0]
	for i := 0; i < nh; i++ {
		for j := 0; j < nv; j++ {
			dst = append(dst,
				d.Min.X+float32(i)*d.CellSize,
				d.Min.Y+float32(j)*d.CellSize,
				0,
			)
		}
	}
	return dst
}
