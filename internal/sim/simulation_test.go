package sim_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkfield/sparkfield/internal/entity"
	"github.com/sparkfield/sparkfield/internal/sim"
	"github.com/sparkfield/sparkfield/internal/world"
)

func newTestSim(t *testing.T, cfg sim.Config) *sim.Simulation {
	t.Helper()
	gen := world.DefaultGenConfig()
	gen.Cols, gen.Rows = 10, 10
	gen.Seed = 99
	return sim.NewSimulation(world.Generate(gen), cfg, nil, 7)
}

func TestSimulationPopulates(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.InitialPopulation = 6
	s := newTestSim(t, cfg)

	assert.Equal(t, 6, s.Population())

	// Each entity is individually addressable and starts alive.
	for _, e := range s.Entities() {
		got, ok := s.Entity(e.ID)
		require.True(t, ok)
		assert.Same(t, e, got)
		assert.False(t, e.Removed)
	}
}

func TestSimulationTickAdvances(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.InitialPopulation = 6
	cfg.StatsInterval = 0
	s := newTestSim(t, cfg)

	for tick := uint64(1); tick <= 100; tick++ {
		s.Tick(tick, float64(tick)*sim.DefaultDt, sim.DefaultDt)
	}

	assert.Equal(t, uint64(100), s.CurrentTick())
	assert.InDelta(t, 10.0, s.Now(), 1e-9)
	assert.Equal(t, 6, s.Population())
}

func TestSimulationStatsSampling(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.InitialPopulation = 4
	cfg.StatsInterval = 5
	s := newTestSim(t, cfg)

	var observed []sim.StatsRow
	s.OnStats = func(row sim.StatsRow) { observed = append(observed, row) }

	for tick := uint64(1); tick <= 20; tick++ {
		s.Tick(tick, float64(tick)*sim.DefaultDt, sim.DefaultDt)
	}

	rows := s.StatsRows()
	require.Len(t, rows, 4, "one sample every five ticks")
	assert.Equal(t, rows, observed)
	assert.Equal(t, uint64(5), rows[0].Tick)
	assert.Equal(t, 4, rows[0].Population)
}

func TestPopulationControlReplacesFaded(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.InitialPopulation = 6
	cfg.PopulationControl = true
	cfg.StatsInterval = 0
	s := newTestSim(t, cfg)

	victim := s.Entities()[0]
	victim.Removed = true

	s.Tick(1, sim.DefaultDt, sim.DefaultDt)

	assert.Equal(t, 6, s.Population(), "a replacement keeps the population steady")
	assert.Equal(t, 1, s.Faded())
	_, ok := s.Entity(victim.ID)
	assert.False(t, ok, "the faded entity is gone from the index")

	// The replacement carries a fresh ID and in-bounds parameters.
	var foundNew bool
	for _, e := range s.Entities() {
		if e.ID <= 6 {
			continue
		}
		foundNew = true
		for _, spec := range entity.Specs {
			v, _ := e.Params.Get(spec.Name)
			assert.GreaterOrEqual(t, v, spec.Min, spec.Name)
			assert.LessOrEqual(t, v, spec.Max, spec.Name)
		}
	}
	assert.True(t, foundNew)
}

func TestSnapshotsMirrorLiveEntities(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.InitialPopulation = 4
	cfg.StatsInterval = 0
	s := newTestSim(t, cfg)
	s.Tick(1, sim.DefaultDt, sim.DefaultDt)

	summaries := s.EntitySummaries()
	require.Len(t, summaries, 4)
	for _, sum := range summaries {
		live, ok := s.Entity(sum.ID)
		require.True(t, ok)
		assert.Equal(t, live.Pos, sum.Pos)
		assert.Equal(t, live.Food, sum.Food)
		assert.Equal(t, live.State, sum.State)
		if live.Territory != nil {
			require.NotNil(t, sum.Territory)
			assert.NotSame(t, live.Territory, sum.Territory, "snapshot owns its territory copy")
		}

		d, ok := s.EntityDetails(sum.ID)
		require.True(t, ok)
		assert.Equal(t, live.Home, d.Home)
		assert.Len(t, d.Params, len(entity.Specs))
		assert.Equal(t, live.Memory.Count(), len(d.Memories))
	}

	_, ok := s.EntityDetails(9999)
	assert.False(t, ok)
}

// Readers on other goroutines go through the snapshot accessors only;
// this is the arrangement the HTTP and stream handlers rely on.
func TestConcurrentReadersDuringTicks(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.InitialPopulation = 8
	cfg.StatsInterval = 10
	s := newTestSim(t, cfg)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			for _, sum := range s.EntitySummaries() {
				_, _ = s.EntityDetails(sum.ID)
			}
			_, _ = s.HeldResources()
		}
	}()
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			_, _, _ = s.FrameSnapshot()
			_, _, _ = s.WorldCells()
		}
	}()

	for tick := uint64(1); tick <= 200; tick++ {
		s.Tick(tick, float64(tick)*sim.DefaultDt, sim.DefaultDt)
	}
	close(done)
	wg.Wait()
}

func TestPopulationControlOffShrinks(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.InitialPopulation = 6
	cfg.PopulationControl = false
	cfg.StatsInterval = 0
	s := newTestSim(t, cfg)

	s.Entities()[0].Removed = true
	s.Tick(1, sim.DefaultDt, sim.DefaultDt)

	assert.Equal(t, 5, s.Population())
	assert.Equal(t, 1, s.Faded())
}
