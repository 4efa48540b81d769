// Package grid implements the uniform sorting grid used for SPH neighbor
// queries.
//
// Cells form a dense 3D lattice over an axis-aligned volume. Each cell
// stores the index of the last particle inserted into it and each particle
// stores the index of the next particle in the same cell, so every cell is a
// singly linked list threaded through a flat array. Insertion allocates
// nothing once the arrays have grown to the particle count.
package grid

import (
	"math"

	"github.com/san-kum/sphsim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
)

// InvalidIndex terminates a cell chain.
const InvalidIndex = -1

// NeighborCells is the maximum number of cells visited by a neighbor query.
const NeighborCells = 27

// Grid is a uniform cell lattice over an AABB. Positions and cell sizes
// are in world scale.
type Grid struct {
	min      r3.Vec
	max      r3.Vec
	cellSize float64
	invCell  float64
	resX     int
	resY     int
	resZ     int

	heads []int
	next  []int
}

// New creates a grid covering [min, max] with cubic cells of cellSize.
func New(min, max r3.Vec, cellSize float64) (*Grid, error) {
	g := &Grid{}
	if err := g.Configure(min, max, cellSize); err != nil {
		return nil, err
	}
	return g, nil
}

// Configure resizes the lattice. Any previous cell contents are discarded.
func (g *Grid) Configure(min, max r3.Vec, cellSize float64) error {
	if cellSize <= 0 || math.IsNaN(cellSize) || math.IsInf(cellSize, 0) {
		return dynamo.Boundsf("grid cell size must be positive and finite, got %g", cellSize)
	}
	if !dynamo.VecIsFinite(min) || !dynamo.VecIsFinite(max) {
		return dynamo.Boundsf("grid bounds must be finite")
	}
	if max.X <= min.X || max.Y <= min.Y || max.Z <= min.Z {
		return dynamo.Boundsf("grid bounds are empty: min %v max %v", min, max)
	}

	ext := r3.Sub(max, min)
	g.min = min
	g.max = max
	g.cellSize = cellSize
	g.invCell = 1 / cellSize
	g.resX = cellsAlong(ext.X, cellSize)
	g.resY = cellsAlong(ext.Y, cellSize)
	g.resZ = cellsAlong(ext.Z, cellSize)

	n := g.resX * g.resY * g.resZ
	if cap(g.heads) >= n {
		g.heads = g.heads[:n]
	} else {
		g.heads = make([]int, n)
	}
	g.Clear()
	return nil
}

func cellsAlong(extent, size float64) int {
	n := int(math.Ceil(extent / size))
	if n < 1 {
		n = 1
	}
	return n
}

// Clear empties every cell.
func (g *Grid) Clear() {
	for i := range g.heads {
		g.heads[i] = InvalidIndex
	}
}

// Insert rebuilds the grid from positions. The grid must be rebuilt
// whenever positions change before it is queried again.
func (g *Grid) Insert(positions []r3.Vec) {
	g.Clear()

	n := len(positions)
	if cap(g.next) >= n {
		g.next = g.next[:n]
	} else {
		g.next = make([]int, n)
	}

	for i, p := range positions {
		cell := g.CellOf(p)
		g.next[i] = g.heads[cell]
		g.heads[cell] = i
	}
}

// Indices returns the integer cell coordinates containing p. Coordinates
// outside the lattice are clamped to the nearest valid cell.
func (g *Grid) Indices(p r3.Vec) (x, y, z int) {
	x = clampIndex((p.X-g.min.X)*g.invCell, g.resX)
	y = clampIndex((p.Y-g.min.Y)*g.invCell, g.resY)
	z = clampIndex((p.Z-g.min.Z)*g.invCell, g.resZ)
	return x, y, z
}

// clamp in floating point before converting; int conversion of Inf/NaN is
// implementation defined.
func clampIndex(f float64, res int) int {
	if !(f > 0) {
		return 0
	}
	if f >= float64(res-1) {
		return res - 1
	}
	return int(f)
}

// CellIndex flattens cell coordinates.
func (g *Grid) CellIndex(x, y, z int) int {
	return (z*g.resY+y)*g.resX + x
}

// CellOf returns the flat index of the cell containing p.
func (g *Grid) CellOf(p r3.Vec) int {
	x, y, z := g.Indices(p)
	return g.CellIndex(x, y, z)
}

// Head returns the last particle inserted into cell, or InvalidIndex.
func (g *Grid) Head(cell int) int {
	return g.heads[cell]
}

// Next returns the particle following i in its cell chain.
func (g *Grid) Next(i int) int {
	return g.next[i]
}

// NumCells returns the number of cells in the lattice.
func (g *Grid) NumCells() int {
	return len(g.heads)
}

// Resolution returns the number of cells along each axis.
func (g *Grid) Resolution() (x, y, z int) {
	return g.resX, g.resY, g.resZ
}

// CellSize returns the world-scale cell edge length.
func (g *Grid) CellSize() float64 {
	return g.cellSize
}

// Bounds returns the configured volume.
func (g *Grid) Bounds() r3.Box {
	return r3.Box{Min: g.min, Max: g.max}
}

// NeighborCells writes the flat indices of the 3x3x3 block of cells around
// p into out and returns how many are valid. Cells beyond the lattice edge
// are skipped.
func (g *Grid) NeighborCells(p r3.Vec, out *[NeighborCells]int) int {
	cx, cy, cz := g.Indices(p)
	n := 0
	for z := cz - 1; z <= cz+1; z++ {
		if z < 0 || z >= g.resZ {
			continue
		}
		for y := cy - 1; y <= cy+1; y++ {
			if y < 0 || y >= g.resY {
				continue
			}
			for x := cx - 1; x <= cx+1; x++ {
				if x < 0 || x >= g.resX {
					continue
				}
				out[n] = g.CellIndex(x, y, z)
				n++
			}
		}
	}
	return n
}

// ForEachNeighbor calls fn for every particle in the 27 cells around p,
// including the particle at p itself if it is in the grid.
func (g *Grid) ForEachNeighbor(p r3.Vec, fn func(j int)) {
	var cells [NeighborCells]int
	n := g.NeighborCells(p, &cells)
	for _, c := range cells[:n] {
		for j := g.heads[c]; j != InvalidIndex; j = g.next[j] {
			fn(j)
		}
	}
}

// ForEachInAabb calls fn for every particle in a cell overlapping [min, max].
// The box is clamped to the lattice, so unbounded boxes visit every cell.
func (g *Grid) ForEachInAabb(min, max r3.Vec, fn func(j int)) {
	x0, y0, z0 := g.Indices(min)
	x1, y1, z1 := g.Indices(max)
	for z := z0; z <= z1; z++ {
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				for j := g.heads[g.CellIndex(x, y, z)]; j != InvalidIndex; j = g.next[j] {
					fn(j)
				}
			}
		}
	}
}

// RemoveHead unlinks the first particle of cell. Links between the
// remaining particles are untouched, so SaveHeads/RestoreHeads undo it.
func (g *Grid) RemoveHead(cell int) {
	if h := g.heads[cell]; h != InvalidIndex {
		g.heads[cell] = g.next[h]
	}
}

// SaveHeads appends the current cell heads to dst.
func (g *Grid) SaveHeads(dst []int) []int {
	return append(dst[:0], g.heads...)
}

// RestoreHeads resets cell heads from a SaveHeads snapshot.
func (g *Grid) RestoreHeads(src []int) {
	copy(g.heads, src)
}
