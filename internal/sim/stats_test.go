package sim_test

import (
	"encoding/json"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkfield/sparkfield/internal/entity"
	"github.com/sparkfield/sparkfield/internal/sim"
	"github.com/sparkfield/sparkfield/internal/world"
)

func TestCollectStats(t *testing.T) {
	g := world.NewGrid(4, 4, 20)
	g.CellAt(world.Vec2{X: 10, Y: 10}).Food = 30
	g.CellAt(world.Vec2{X: 30, Y: 10}).Energy = 12

	rng := rand.New(rand.NewSource(1))
	cfg := entity.DefaultConfig()

	a := entity.New(1, entity.ProfileBalanced, world.Vec2{X: 10, Y: 10}, cfg, rng)
	a.State = entity.StateCollecting
	a.Territory = &entity.Territory{Center: a.Pos, Radius: 25}
	a.Food, a.MaxFood = 80, 100
	a.Energy, a.MaxEnergy = 40, 100

	b := entity.New(2, entity.ProfileExplorer, world.Vec2{X: 50, Y: 50}, cfg, rng)
	b.State = entity.StateSeekingEnergy
	b.Food, b.MaxFood = 40, 100
	b.Energy, b.MaxEnergy = 60, 100

	gone := entity.New(3, entity.ProfileSocial, world.Vec2{}, cfg, rng)
	gone.Removed = true

	row := sim.CollectStats(50, 5.0, g, []*entity.Entity{a, b, gone}, 2, 7)

	assert.Equal(t, uint64(50), row.Tick)
	assert.Equal(t, 5.0, row.Time)
	assert.Equal(t, 2, row.Population, "removed entities are not counted")
	assert.Equal(t, 2, row.Faded)
	assert.Equal(t, uint64(7), row.Contests)
	assert.InDelta(t, 0.6, row.MeanFoodRatio, 1e-9)
	assert.InDelta(t, 0.5, row.MeanEnergyRatio, 1e-9)
	assert.Equal(t, 1, row.Territories)
	assert.Equal(t, 1, row.Collecting)
	assert.Equal(t, 1, row.Seeking)
	assert.Equal(t, 30.0, row.WorldFood)
	assert.Equal(t, 12.0, row.WorldEnergy)
}

func TestCollectStatsSingleEntityEncodes(t *testing.T) {
	g := world.NewGrid(2, 2, 20)
	rng := rand.New(rand.NewSource(1))
	e := entity.New(1, entity.ProfileBalanced, world.Vec2{X: 10, Y: 10}, entity.DefaultConfig(), rng)

	row := sim.CollectStats(1, 0.1, g, []*entity.Entity{e}, 0, 0)

	// One sample has no spread; the deviation must stay a real number
	// so the row survives JSON encoding.
	assert.Equal(t, 0.0, row.StdFoodRatio)
	assert.Equal(t, 0.0, row.StdEnergyRatio)
	_, err := json.Marshal(row)
	assert.NoError(t, err)
}

func TestCollectStatsEmptyPopulation(t *testing.T) {
	g := world.NewGrid(2, 2, 20)
	row := sim.CollectStats(1, 0.1, g, nil, 0, 0)
	assert.Equal(t, 0, row.Population)
	assert.Equal(t, 0.0, row.MeanFoodRatio)
}

func TestExportStatsCSV(t *testing.T) {
	rows := []sim.StatsRow{
		{Tick: 50, Time: 5, Population: 10, MeanFoodRatio: 0.62},
		{Tick: 100, Time: 10, Population: 9, MeanFoodRatio: 0.58},
	}

	var buf strings.Builder
	require.NoError(t, sim.ExportStatsCSV(&buf, rows))

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3, "header plus one line per row")
	assert.Contains(t, lines[0], "tick")
	assert.Contains(t, lines[0], "mean_food_ratio")
	assert.Contains(t, lines[1], "50")
}
