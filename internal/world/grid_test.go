package world_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkfield/sparkfield/internal/world"
)

func TestCellIndexClampsToBounds(t *testing.T) {
	g := world.NewGrid(10, 8, 20)

	cx, cy := g.CellIndex(world.Vec2{X: 45, Y: 65})
	assert.Equal(t, 2, cx)
	assert.Equal(t, 3, cy)

	cx, cy = g.CellIndex(world.Vec2{X: -50, Y: 9999})
	assert.Equal(t, 0, cx)
	assert.Equal(t, 7, cy)
}

func TestClampKeepsPositionsInWorld(t *testing.T) {
	g := world.NewGrid(10, 8, 20)
	p := g.Clamp(world.Vec2{X: -5, Y: 500})
	assert.Equal(t, world.Vec2{X: 0, Y: 160}, p)

	inside := world.Vec2{X: 42, Y: 17}
	assert.Equal(t, inside, g.Clamp(inside))
}

func TestCollectNeverOverdraws(t *testing.T) {
	g := world.NewGrid(4, 4, 20)
	p := world.Vec2{X: 10, Y: 10}
	c := g.CellAt(p)
	c.Food = 3
	c.Energy = 1

	assert.Equal(t, 3.0, g.CollectFood(p, 10))
	assert.Equal(t, 0.0, c.Food)
	assert.Equal(t, 0.0, g.CollectFood(p, 10))

	assert.Equal(t, 1.0, g.CollectEnergy(p, 2))
	assert.Equal(t, 0.0, c.Energy)

	// Non-positive requests are no-ops.
	c.Food = 5
	assert.Equal(t, 0.0, g.CollectFood(p, -1))
	assert.Equal(t, 5.0, c.Food)
}

func TestSpawnResourcesRespectsCaps(t *testing.T) {
	g := world.NewGrid(2, 2, 20)
	rng := rand.New(rand.NewSource(3))
	cfg := world.SpawnConfig{
		BaseRate:      1000,
		PerEntityRate: 0,
		FoodQuantity:  50,
		EnergyQty:     50,
		FoodCap:       60,
		EnergyCap:     30,
	}

	for i := 0; i < 20; i++ {
		g.SpawnResources(rng, cfg, 0.1, 0)
	}
	for cy := 0; cy < 2; cy++ {
		for cx := 0; cx < 2; cx++ {
			c := g.At(cx, cy)
			assert.LessOrEqual(t, c.Food, 60.0)
			assert.LessOrEqual(t, c.Energy, 30.0)
		}
	}
	food, energy := g.TotalResources()
	assert.Greater(t, food, 0.0)
	assert.Greater(t, energy, 0.0)
}

func TestSpawnRateScalesWithPopulation(t *testing.T) {
	cfg := world.DefaultSpawnConfig()

	total := func(population int) float64 {
		g := world.NewGrid(20, 20, 20)
		rng := rand.New(rand.NewSource(9))
		for i := 0; i < 2000; i++ {
			g.SpawnResources(rng, cfg, 0.1, population)
		}
		food, energy := g.TotalResources()
		return food + energy
	}

	assert.Greater(t, total(100), total(0))
}

func TestTerrainPropsOutOfRangeFallsBack(t *testing.T) {
	assert.Equal(t, world.TerrainBarren.Props(), world.Terrain(200).Props())
	assert.Equal(t, "Unknown", world.TerrainName(world.Terrain(200)))
}

func TestGenerateDeterministicBySeed(t *testing.T) {
	cfg := world.DefaultGenConfig()
	cfg.Seed = 12345

	a := world.Generate(cfg)
	b := world.Generate(cfg)

	require.Equal(t, a.Cols, b.Cols)
	for cy := 0; cy < a.Rows; cy++ {
		for cx := 0; cx < a.Cols; cx++ {
			ca, cb := a.At(cx, cy), b.At(cx, cy)
			assert.Equal(t, ca.Terrain, cb.Terrain)
			assert.Equal(t, ca.Food, cb.Food)
			assert.Equal(t, ca.Energy, cb.Energy)
		}
	}
}

func TestGenerateProducesMixedTerrain(t *testing.T) {
	cfg := world.DefaultGenConfig()
	cfg.Seed = 7

	g := world.Generate(cfg)
	counts := g.TerrainCounts()
	assert.GreaterOrEqual(t, len(counts), 2, "a seeded field should not be uniform")

	food, energy := g.TotalResources()
	assert.Greater(t, food, 0.0)
	assert.Greater(t, energy, 0.0)
}

func TestDist(t *testing.T) {
	assert.Equal(t, 5.0, world.Dist(world.Vec2{X: 0, Y: 0}, world.Vec2{X: 3, Y: 4}))
	assert.Equal(t, 0.0, world.Dist(world.Vec2{X: 1, Y: 1}, world.Vec2{X: 1, Y: 1}))
}
