package world

import (
	"fmt"
	"math"
	"math/rand"
)

// Vec2 is a continuous position or velocity in world units.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

// Scale returns v scaled by s.
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }

// Dist returns the Euclidean distance between two points.
func Dist(a, b Vec2) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Cell is a single grid tile holding terrain and remaining resources.
// Quantities never go negative.
type Cell struct {
	Terrain Terrain `json:"terrain"`
	Food    float64 `json:"food"`
	Energy  float64 `json:"energy"`
}

// Grid holds the complete world state: a rectangular field of cells.
type Grid struct {
	Cols     int     `json:"cols"`
	Rows     int     `json:"rows"`
	CellSize float64 `json:"cell_size"`

	cells []Cell
}

// NewGrid creates an empty grid of cols×rows cells.
func NewGrid(cols, rows int, cellSize float64) *Grid {
	return &Grid{
		Cols:     cols,
		Rows:     rows,
		CellSize: cellSize,
		cells:    make([]Cell, cols*rows),
	}
}

// Width returns the world width in continuous units.
func (g *Grid) Width() float64 { return float64(g.Cols) * g.CellSize }

// Height returns the world height in continuous units.
func (g *Grid) Height() float64 { return float64(g.Rows) * g.CellSize }

// CellIndex converts a continuous position to cell indices, clamped in bounds.
func (g *Grid) CellIndex(p Vec2) (int, int) {
	cx := int(p.X / g.CellSize)
	cy := int(p.Y / g.CellSize)
	if cx < 0 {
		cx = 0
	}
	if cx >= g.Cols {
		cx = g.Cols - 1
	}
	if cy < 0 {
		cy = 0
	}
	if cy >= g.Rows {
		cy = g.Rows - 1
	}
	return cx, cy
}

// At returns the cell at the given indices, or nil if out of range.
func (g *Grid) At(cx, cy int) *Cell {
	if cx < 0 || cx >= g.Cols || cy < 0 || cy >= g.Rows {
		return nil
	}
	return &g.cells[cy*g.Cols+cx]
}

// CellAt returns the cell under a continuous position (positions outside the
// world map to the nearest edge cell).
func (g *Grid) CellAt(p Vec2) *Cell {
	cx, cy := g.CellIndex(p)
	return &g.cells[cy*g.Cols+cx]
}

// CellCenter returns the continuous center point of a cell.
func (g *Grid) CellCenter(cx, cy int) Vec2 {
	return Vec2{
		X: (float64(cx) + 0.5) * g.CellSize,
		Y: (float64(cy) + 0.5) * g.CellSize,
	}
}

// Clamp returns p constrained to the world bounds.
func (g *Grid) Clamp(p Vec2) Vec2 {
	if p.X < 0 {
		p.X = 0
	}
	if max := g.Width(); p.X > max {
		p.X = max
	}
	if p.Y < 0 {
		p.Y = 0
	}
	if max := g.Height(); p.Y > max {
		p.Y = max
	}
	return p
}

// CollectFood withdraws up to amount food from the cell under p and returns
// what was actually taken. The cell never goes negative.
func (g *Grid) CollectFood(p Vec2, amount float64) float64 {
	if amount <= 0 {
		return 0
	}
	c := g.CellAt(p)
	taken := amount
	if taken > c.Food {
		taken = c.Food
	}
	c.Food -= taken
	return taken
}

// CollectEnergy withdraws up to amount neural energy from the cell under p
// and returns what was actually taken.
func (g *Grid) CollectEnergy(p Vec2, amount float64) float64 {
	if amount <= 0 {
		return 0
	}
	c := g.CellAt(p)
	taken := amount
	if taken > c.Energy {
		taken = c.Energy
	}
	c.Energy -= taken
	return taken
}

// SpawnConfig controls periodic resource replenishment.
type SpawnConfig struct {
	BaseRate      float64 // expected spawn events per time unit at population 0
	PerEntityRate float64 // additional spawn events per time unit per living entity
	FoodQuantity  float64 // base food added per spawn event
	EnergyQty     float64 // base energy added per spawn event
	FoodCap       float64 // per-cell food ceiling
	EnergyCap     float64 // per-cell energy ceiling
}

// DefaultSpawnConfig returns spawn settings tuned for tens of entities.
func DefaultSpawnConfig() SpawnConfig {
	return SpawnConfig{
		BaseRate:      2.0,
		PerEntityRate: 0.15,
		FoodQuantity:  12,
		EnergyQty:     5,
		FoodCap:       60,
		EnergyCap:     30,
	}
}

// SpawnResources probabilistically adds resources to random cells, weighted
// by terrain yields. Called once per tick with the tick duration; population
// scales the spawn rate so larger populations do not starve the field.
func (g *Grid) SpawnResources(rng *rand.Rand, cfg SpawnConfig, dt float64, population int) {
	rate := cfg.BaseRate + cfg.PerEntityRate*float64(population)
	expected := rate * dt

	// Whole events plus one more with the fractional probability.
	events := int(expected)
	if rng.Float64() < expected-float64(events) {
		events++
	}

	for i := 0; i < events; i++ {
		cx := rng.Intn(g.Cols)
		cy := rng.Intn(g.Rows)
		c := &g.cells[cy*g.Cols+cx]
		props := c.Terrain.Props()

		// Each event lands as food or energy; terrain yields bias the coin.
		total := props.FoodYield + props.EnergyYield
		if total <= 0 {
			continue
		}
		if rng.Float64()*total < props.FoodYield {
			c.Food += cfg.FoodQuantity * props.FoodYield * (0.5 + rng.Float64())
			if c.Food > cfg.FoodCap {
				c.Food = cfg.FoodCap
			}
		} else {
			c.Energy += cfg.EnergyQty * props.EnergyYield * (0.5 + rng.Float64())
			if c.Energy > cfg.EnergyCap {
				c.Energy = cfg.EnergyCap
			}
		}
	}
}

// TotalResources sums food and energy across all cells.
func (g *Grid) TotalResources() (food, energy float64) {
	for i := range g.cells {
		food += g.cells[i].Food
		energy += g.cells[i].Energy
	}
	return food, energy
}

// TerrainCounts returns the number of cells per terrain class.
func (g *Grid) TerrainCounts() map[Terrain]int {
	counts := make(map[Terrain]int)
	for i := range g.cells {
		counts[g.cells[i].Terrain]++
	}
	return counts
}

// String returns a summary of the grid.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid(%dx%d cells, %.0fx%.0f units)", g.Cols, g.Rows, g.Width(), g.Height())
}
