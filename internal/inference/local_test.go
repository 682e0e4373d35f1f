package inference_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkfield/sparkfield/internal/entity"
	"github.com/sparkfield/sparkfield/internal/inference"
	"github.com/sparkfield/sparkfield/internal/world"
)

func baseContext() *inference.DecisionContext {
	dc := &inference.DecisionContext{
		EntityID:    1,
		Profile:     "balanced",
		State:       "Exploring",
		FoodRatio:   0.6,
		EnergyRatio: 0.6,
		Params:      make(map[string]float64),
		FoodMemories: []inference.MemorySummary{
			{Pos: world.Vec2{X: 50, Y: 50}, Quantity: 20, Importance: 0.6},
		},
	}
	p := entity.DefaultParams()
	for _, s := range entity.Specs {
		dc.Params[s.Name], _ = p.Get(s.Name)
	}
	return dc
}

func TestLocalStrategyLowFood(t *testing.T) {
	dc := baseContext()
	dc.FoodRatio = 0.2

	d, err := inference.NewLocalStrategy().Decide(context.Background(), dc)
	require.NoError(t, err)

	assert.Less(t, d.Changes["resourcePreference"], dc.Params["resourcePreference"],
		"a starving entity shifts collection preference toward food")
	assert.Greater(t, d.Changes["hungerThreshold"], dc.Params["hungerThreshold"])
	assert.NotEmpty(t, d.Reasoning)
	assert.Equal(t, "local", d.Source)
}

func TestLocalStrategyLowEnergy(t *testing.T) {
	dc := baseContext()
	dc.EnergyRatio = 0.2

	d, err := inference.NewLocalStrategy().Decide(context.Background(), dc)
	require.NoError(t, err)
	assert.Greater(t, d.Changes["resourcePreference"], dc.Params["resourcePreference"])
}

func TestLocalStrategyNoKnownResources(t *testing.T) {
	dc := baseContext()
	dc.FoodMemories = nil
	dc.EnergyMemories = nil

	d, err := inference.NewLocalStrategy().Decide(context.Background(), dc)
	require.NoError(t, err)

	assert.Greater(t, d.Changes["explorationRange"], dc.Params["explorationRange"],
		"an entity with no known sites widens its search")
	assert.Greater(t, d.Changes["noveltyPreference"], dc.Params["noveltyPreference"])
}

func TestLocalStrategyRepeatedDepletion(t *testing.T) {
	dc := baseContext()
	dc.DepletedFood = []inference.MemorySummary{
		{Pos: world.Vec2{X: 40, Y: 40}, Age: 2},
		{Pos: world.Vec2{X: 70, Y: 55}, Age: 5},
	}

	d, err := inference.NewLocalStrategy().Decide(context.Background(), dc)
	require.NoError(t, err)

	assert.Greater(t, d.Changes["hungerThreshold"], dc.Params["hungerThreshold"],
		"depleted spots push the entity to start seeking earlier")
	assert.Greater(t, d.Changes["explorationRange"], dc.Params["explorationRange"])
}

func TestLocalStrategyAfterLostContest(t *testing.T) {
	dc := baseContext()
	dc.RecentOutcomes = []string{"lost a contest and took a collection penalty"}

	d, err := inference.NewLocalStrategy().Decide(context.Background(), dc)
	require.NoError(t, err)
	assert.Greater(t, d.Changes["personalSpaceFactor"], dc.Params["personalSpaceFactor"])
}

func TestLocalStrategyStableSituation(t *testing.T) {
	dc := baseContext()

	d, err := inference.NewLocalStrategy().Decide(context.Background(), dc)
	require.NoError(t, err)
	assert.InDelta(t, dc.Params["persistenceFactor"]+0.05, d.Changes["persistenceFactor"], 1e-9)
}

func TestLocalStrategyDeterministic(t *testing.T) {
	dc1 := baseContext()
	dc1.FoodRatio = 0.2
	dc2 := baseContext()
	dc2.FoodRatio = 0.2

	s := inference.NewLocalStrategy()
	d1, err := s.Decide(context.Background(), dc1)
	require.NoError(t, err)
	d2, err := s.Decide(context.Background(), dc2)
	require.NoError(t, err)
	assert.Equal(t, d1.Changes, d2.Changes)
	assert.Equal(t, d1.Reasoning, d2.Reasoning)
}
