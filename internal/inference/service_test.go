package inference_test

import (
	"context"
	"errors"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkfield/sparkfield/internal/entity"
	"github.com/sparkfield/sparkfield/internal/inference"
	"github.com/sparkfield/sparkfield/internal/world"
)

// stubBackend returns a fixed decision, optionally holding every call
// until released.
type stubBackend struct {
	decision *inference.Decision
	err      error
	hold     chan struct{}
	calls    atomic.Int64
}

func (s *stubBackend) Decide(ctx context.Context, dc *inference.DecisionContext) (*inference.Decision, error) {
	s.calls.Add(1)
	if s.hold != nil {
		<-s.hold
	}
	return s.decision, s.err
}

func newThinker(id entity.ID) *entity.Entity {
	rng := rand.New(rand.NewSource(int64(id)))
	e := entity.New(id, entity.ProfileBalanced, world.Vec2{X: 100, Y: 100}, entity.DefaultConfig(), rng)
	e.Params = entity.DefaultParams()
	e.Params.InferenceThreshold = 20
	e.Params.InferenceInterval = 10
	e.Energy = 100
	return e
}

// drainUntil pumps Drain until the entity reaches the wanted status or
// the deadline passes.
func drainUntil(t *testing.T, svc *inference.Service, index map[entity.ID]*entity.Entity, e *entity.Entity, want entity.InferenceStatus, now float64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for e.Inference.Status != want {
		if time.Now().After(deadline) {
			t.Fatalf("entity never reached %s", entity.InferenceStatusName(want))
		}
		time.Sleep(time.Millisecond)
		svc.Drain(index, now)
	}
}

func TestInferenceFullCycle(t *testing.T) {
	backend := &stubBackend{decision: &inference.Decision{
		Changes:   map[string]float64{"hungerThreshold": 0.6, "explorationRange": 999},
		Reasoning: "push wider",
		Source:    "local",
	}}
	svc := inference.NewService(backend)

	e := newThinker(1)
	ents := []*entity.Entity{e}
	index := map[entity.ID]*entity.Entity{e.ID: e}

	var observed *inference.Decision
	svc.OnDecision = func(entityID uint64, d *inference.Decision, err error, now float64) {
		observed = d
	}

	// Below the interval: stays idle.
	svc.Step(ents, 5)
	assert.Equal(t, entity.InferIdle, e.Inference.Status)

	// Eligible: enters preparing.
	svc.Step(ents, 10)
	assert.Equal(t, entity.InferPreparing, e.Inference.Status)

	// Preparing completes: energy is spent and the call dispatches.
	svc.Step(ents, 11)
	assert.Equal(t, entity.InferThinking, e.Inference.Status)
	assert.Equal(t, 70.0, e.Energy)
	assert.Equal(t, uint64(1), e.Inference.Generation)

	drainUntil(t, svc, index, e, entity.InferProcessing, 11.5)

	// Processing completes: the decision is applied with clamping.
	svc.Step(ents, 13)
	assert.Equal(t, entity.InferIdle, e.Inference.Status)
	assert.Equal(t, 0.6, e.Params.HungerThreshold)
	assert.Equal(t, 300.0, e.Params.ExplorationRange, "out-of-range values clamp")
	assert.Equal(t, "push wider", e.Inference.LastReasoning)
	assert.Equal(t, 13.0, e.Inference.LastTime)

	require.NotNil(t, observed)
	assert.Equal(t, "push wider", observed.Reasoning)

	mems := e.Memory.ByKind(entity.MemInference)
	require.Len(t, mems, 1)
	assert.True(t, mems[0].Success)

	snap := svc.Metrics().Snapshot()
	assert.Equal(t, uint64(1), snap.Dispatched)
	assert.Equal(t, uint64(1), snap.Succeeded)
}

func TestInferenceRequiresEnergyAndCadence(t *testing.T) {
	svc := inference.NewService(&stubBackend{decision: &inference.Decision{}})
	e := newThinker(1)
	e.Energy = 10 // below the threshold

	svc.Step([]*entity.Entity{e}, 50)
	assert.Equal(t, entity.InferIdle, e.Inference.Status)

	// Restored energy but too soon after the last cycle.
	e.Energy = 100
	e.Inference.LastTime = 45
	svc.Step([]*entity.Entity{e}, 50)
	assert.Equal(t, entity.InferIdle, e.Inference.Status)
}

func TestInferencePreparingAbortsWhenEnergyDrops(t *testing.T) {
	backend := &stubBackend{decision: &inference.Decision{}}
	svc := inference.NewService(backend)
	e := newThinker(1)

	svc.Step([]*entity.Entity{e}, 10)
	require.Equal(t, entity.InferPreparing, e.Inference.Status)

	// Energy collapses before the thinking phase can be paid for.
	e.Energy = 5
	svc.Step([]*entity.Entity{e}, 11)
	assert.Equal(t, entity.InferIdle, e.Inference.Status)
	assert.Equal(t, int64(0), backend.calls.Load(), "no dispatch without the energy price")
}

func TestInferenceTimeoutDiscardsLateResult(t *testing.T) {
	backend := &stubBackend{
		decision: &inference.Decision{Changes: map[string]float64{"hungerThreshold": 0.7}},
		hold:     make(chan struct{}),
	}
	svc := inference.NewService(backend)
	e := newThinker(1)
	ents := []*entity.Entity{e}
	index := map[entity.ID]*entity.Entity{e.ID: e}

	svc.Step(ents, 10)
	svc.Step(ents, 11)
	require.Equal(t, entity.InferThinking, e.Inference.Status)
	require.Equal(t, uint64(1), e.Inference.Generation)
	before := e.Params.HungerThreshold

	// The thinking window expires with the call still in flight; the
	// machine winds down through the processing buffer like any other
	// completion.
	svc.Step(ents, 26)
	assert.Equal(t, entity.InferProcessing, e.Inference.Status)
	assert.Equal(t, uint64(2), e.Inference.Generation, "timeout invalidates the in-flight call")

	mems := e.Memory.ByKind(entity.MemInference)
	require.Len(t, mems, 1)
	assert.False(t, mems[0].Success)

	// After the buffer the machine is idle again.
	svc.Step(ents, 27.5)
	assert.Equal(t, entity.InferIdle, e.Inference.Status)
	assert.Equal(t, 27.5, e.Inference.LastTime)

	// The backend finally answers; the stale result must not apply.
	close(backend.hold)
	deadline := time.Now().Add(2 * time.Second)
	for svc.Metrics().Snapshot().Dropped == 0 {
		if time.Now().After(deadline) {
			t.Fatal("late result never drained")
		}
		time.Sleep(time.Millisecond)
		svc.Drain(index, 28)
	}
	assert.Equal(t, entity.InferIdle, e.Inference.Status)
	assert.Equal(t, before, e.Params.HungerThreshold, "stale decision is discarded")

	snap := svc.Metrics().Snapshot()
	assert.Equal(t, uint64(1), snap.TimedOut)
}

func TestInferenceBackendErrorRecordsFailure(t *testing.T) {
	backend := &stubBackend{err: errors.New("model unavailable")}
	svc := inference.NewService(backend)
	e := newThinker(1)
	ents := []*entity.Entity{e}
	index := map[entity.ID]*entity.Entity{e.ID: e}

	var gotErr error
	svc.OnDecision = func(entityID uint64, d *inference.Decision, err error, now float64) {
		gotErr = err
	}

	svc.Step(ents, 10)
	svc.Step(ents, 11)
	require.Equal(t, entity.InferThinking, e.Inference.Status)

	// Failure still advances through the processing buffer before the
	// machine returns to idle.
	drainUntil(t, svc, index, e, entity.InferProcessing, 12)
	svc.Step(ents, 13.5)
	assert.Equal(t, entity.InferIdle, e.Inference.Status)

	assert.EqualError(t, gotErr, "model unavailable")
	mems := e.Memory.ByKind(entity.MemInference)
	require.Len(t, mems, 1)
	assert.False(t, mems[0].Success)

	snap := svc.Metrics().Snapshot()
	assert.Equal(t, uint64(1), snap.Failed)
}

func TestFadingEntitiesSkipInference(t *testing.T) {
	svc := inference.NewService(&stubBackend{decision: &inference.Decision{}})
	e := newThinker(1)
	e.State = entity.StateFading

	svc.Step([]*entity.Entity{e}, 50)
	assert.Equal(t, entity.InferIdle, e.Inference.Status)
}

func TestBuildContextSnapshotsEntity(t *testing.T) {
	e := newThinker(4)
	e.Food = 20
	e.Memory.AddFood(true, world.Vec2{X: 50, Y: 50}, 25, 1.0, 1)
	e.Memory.AddFood(false, world.Vec2{X: 150, Y: 40}, 0, 1.0, 2)
	e.Memory.AddEnergy(false, world.Vec2{X: 160, Y: 45}, 0, 1.0, 2.5)
	e.Memory.AddTerrain(world.Vec2{X: 100, Y: 100}, world.TerrainCrystal, 3)
	e.Memory.AddEncounter(world.Vec2{X: 60, Y: 60}, 9, -1, 2)
	e.Territory = &entity.Territory{Center: e.Pos, Radius: 30}

	dc := inference.BuildContext(e, 5)

	assert.Equal(t, entity.ID(4), dc.EntityID)
	assert.InDelta(t, 0.2, dc.FoodRatio, 1e-9)
	assert.Len(t, dc.Params, len(entity.Specs))
	require.Len(t, dc.FoodMemories, 1)
	assert.Equal(t, 25.0, dc.FoodMemories[0].Quantity)
	assert.Equal(t, 4.0, dc.FoodMemories[0].Age)
	require.Len(t, dc.DepletedFood, 1)
	assert.Equal(t, 3.0, dc.DepletedFood[0].Age)
	require.Len(t, dc.DepletedEnergy, 1)
	require.Len(t, dc.RecentTerrain, 1)
	assert.Contains(t, dc.RecentTerrain[0], "Crystal")
	require.Len(t, dc.RecentOutcomes, 1)
	assert.Contains(t, dc.RecentOutcomes[0], "lost")
	assert.Equal(t, 30.0, dc.TerritoryRadius)
}

func TestUserPromptReportsDepletionAndTerrain(t *testing.T) {
	dc := baseContext()
	dc.DepletedFood = []inference.MemorySummary{{Pos: world.Vec2{X: 40, Y: 40}, Age: 2}}
	dc.DepletedEnergy = []inference.MemorySummary{{Pos: world.Vec2{X: 80, Y: 20}, Age: 4}}
	dc.RecentTerrain = []string{"Crystal around (100, 100)"}

	user := inference.UserPrompt(dc)
	assert.Contains(t, user, "depleted of food")
	assert.Contains(t, user, "depleted of energy")
	assert.Contains(t, user, "Crystal around (100, 100)")
}

func TestPromptsNameEveryParameter(t *testing.T) {
	sys := inference.SystemPrompt()
	user := inference.UserPrompt(baseContext())
	for _, s := range entity.Specs {
		assert.Contains(t, sys, s.Name)
		assert.Contains(t, user, s.Name)
	}
	assert.Contains(t, sys, "JSON")
}
