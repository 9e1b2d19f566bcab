package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gtsplugin/sizecore/internal/core/ecs"
)

// AOIGrid implements a cell-based proximity index on the ground plane (X, Y).
// A 3x3 neighbourhood of cells covers any query radius up to cellSize.
// Accessed only from the simulation goroutine; no locks.

const cellSize = 256.0

type cellKey struct {
	cx int32
	cy int32
}

func toCellCoord(v float64) int32 {
	return int32(math.Floor(v / cellSize))
}

// AOIGrid tracks which entities are in which cells.
type AOIGrid struct {
	cells map[cellKey]map[ecs.EntityID]struct{}
}

func NewAOIGrid() *AOIGrid {
	return &AOIGrid{
		cells: make(map[cellKey]map[ecs.EntityID]struct{}),
	}
}

func (g *AOIGrid) key(p mgl64.Vec3) cellKey {
	return cellKey{cx: toCellCoord(p.X()), cy: toCellCoord(p.Y())}
}

// Add places an entity into the grid.
func (g *AOIGrid) Add(id ecs.EntityID, p mgl64.Vec3) {
	k := g.key(p)
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[ecs.EntityID]struct{})
		g.cells[k] = cell
	}
	cell[id] = struct{}{}
}

// Remove takes an entity out of the grid.
func (g *AOIGrid) Remove(id ecs.EntityID, p mgl64.Vec3) {
	k := g.key(p)
	cell := g.cells[k]
	if cell != nil {
		delete(cell, id)
		if len(cell) == 0 {
			delete(g.cells, k)
		}
	}
}

// Move updates an entity's cell when its position changes.
func (g *AOIGrid) Move(id ecs.EntityID, from, to mgl64.Vec3) {
	if g.key(from) == g.key(to) {
		return
	}
	g.Remove(id, from)
	g.Add(id, to)
}

// GetNearby returns all entity ids in a 3x3 neighbourhood of cells around p.
// Caller does fine-grained distance filtering.
func (g *AOIGrid) GetNearby(p mgl64.Vec3) []ecs.EntityID {
	c := g.key(p)
	var result []ecs.EntityID
	for dx := int32(-1); dx <= 1; dx++ {
		for dy := int32(-1); dy <= 1; dy++ {
			k := cellKey{cx: c.cx + dx, cy: c.cy + dy}
			for id := range g.cells[k] {
				result = append(result, id)
			}
		}
	}
	return result
}

// Clear empties the grid.
func (g *AOIGrid) Clear() {
	clear(g.cells)
}
