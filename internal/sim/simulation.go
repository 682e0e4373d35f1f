package sim

import (
	"log/slog"
	"math/rand"
	"sort"
	"sync"

	"github.com/sparkfield/sparkfield/internal/entity"
	"github.com/sparkfield/sparkfield/internal/inference"
	"github.com/sparkfield/sparkfield/internal/world"
)

// Config tunes the simulation orchestrator.
type Config struct {
	InitialPopulation int
	PopulationControl bool // replace faded entities from the fittest survivors
	HomeAdvantage     bool // territory holders get a contest bonus
	StatsInterval     uint64
	Spawn             world.SpawnConfig
	Entity            entity.Config
}

// DefaultConfig returns orchestrator settings for a small world.
func DefaultConfig() Config {
	return Config{
		InitialPopulation: 12,
		PopulationControl: true,
		StatsInterval:     50,
		Spawn:             world.DefaultSpawnConfig(),
		Entity:            entity.DefaultConfig(),
	}
}

// Simulation owns the world grid and entity population and advances them
// together each tick. All mutation happens under one lock on the engine
// goroutine; the API reads through snapshot methods.
type Simulation struct {
	mu sync.Mutex

	Grid      *world.Grid
	entities  []*entity.Entity
	index     map[entity.ID]*entity.Entity
	rng       *rand.Rand
	nextID    entity.ID
	cfg       Config
	inference *inference.Service

	lastTick uint64
	now      float64
	faded    int
	contests uint64

	recentContests []ContestOutcome
	statsRows      []StatsRow

	// OnStats, when set, observes every sampled stats row.
	OnStats func(StatsRow)
}

// NewSimulation populates a generated world with entities cycling
// through the behavior profiles.
func NewSimulation(g *world.Grid, cfg Config, svc *inference.Service, seed int64) *Simulation {
	s := &Simulation{
		Grid:      g,
		index:     make(map[entity.ID]*entity.Entity),
		rng:       rand.New(rand.NewSource(seed)),
		cfg:       cfg,
		inference: svc,
	}
	for i := 0; i < cfg.InitialPopulation; i++ {
		profile := entity.Profiles[i%len(entity.Profiles)]
		pos := world.Vec2{
			X: s.rng.Float64() * g.Width(),
			Y: s.rng.Float64() * g.Height(),
		}
		s.addEntity(profile, pos)
	}
	slog.Info("simulation populated",
		"entities", len(s.entities),
		"grid", g.String(),
	)
	return s
}

func (s *Simulation) addEntity(profile entity.Profile, pos world.Vec2) *entity.Entity {
	s.nextID++
	e := entity.New(s.nextID, profile, pos, s.cfg.Entity, s.rng)
	s.entities = append(s.entities, e)
	s.index[e.ID] = e
	return e
}

// Tick advances the whole simulation by one step. The update order is
// fixed: resources spawn, entities act in creation order, territory and
// competition resolve, then inference results drain. Draining last
// guarantees parameter changes land between behavior updates, never
// during one.
func (s *Simulation) Tick(tick uint64, now, dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastTick = tick
	s.now = now

	s.Grid.SpawnResources(s.rng, s.cfg.Spawn, dt, len(s.entities))

	for _, e := range s.entities {
		e.Update(s.Grid, s.rng, now, dt)
	}
	for _, e := range s.entities {
		e.MaybeClaimTerritory()
	}

	outcomes := ResolveEncounters(s.entities, now, s.cfg.HomeAdvantage)
	if len(outcomes) > 0 {
		s.contests += uint64(len(outcomes))
		s.recentContests = append(s.recentContests, outcomes...)
		if len(s.recentContests) > 100 {
			s.recentContests = s.recentContests[len(s.recentContests)-100:]
		}
	}

	if s.inference != nil {
		s.inference.Step(s.entities, now)
		s.inference.Drain(s.index, now)
	}

	s.reapFaded(now)

	if s.cfg.StatsInterval > 0 && tick%s.cfg.StatsInterval == 0 {
		row := CollectStats(tick, now, s.Grid, s.entities, s.faded, s.contests)
		s.statsRows = append(s.statsRows, row)
		if s.OnStats != nil {
			s.OnStats(row)
		}
		slog.Info("stats sample",
			"tick", tick,
			"population", row.Population,
			"mean_food", row.MeanFoodRatio,
			"mean_energy", row.MeanEnergyRatio,
			"territories", row.Territories,
			"contests", row.Contests,
		)
	}
}

// reapFaded removes entities that finished fading and, when population
// control is on, spawns replacements bred from the two fittest
// survivors.
func (s *Simulation) reapFaded(now float64) {
	removed := 0
	kept := s.entities[:0]
	for _, e := range s.entities {
		if e.Removed {
			delete(s.index, e.ID)
			removed++
			slog.Info("entity faded out", "entity", e.ID, "profile", e.Profile)
			continue
		}
		kept = append(kept, e)
	}
	s.entities = kept
	if removed == 0 {
		return
	}
	s.faded += removed

	if !s.cfg.PopulationControl {
		return
	}
	for i := 0; i < removed && len(s.entities) >= 2; i++ {
		a, b := s.fittestPair()
		pos := world.Vec2{
			X: s.rng.Float64() * s.Grid.Width(),
			Y: s.rng.Float64() * s.Grid.Height(),
		}
		child := s.addEntity(a.Profile, pos)
		child.Params = entity.Blend(a.Params, b.Params, 0.5).Evolve(s.rng)
		slog.Info("replacement entity spawned",
			"entity", child.ID, "parent_a", a.ID, "parent_b", b.ID)
	}
}

// fittestPair returns the two entities with the highest combined
// reserves.
func (s *Simulation) fittestPair() (*entity.Entity, *entity.Entity) {
	sorted := append([]*entity.Entity(nil), s.entities...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Food+sorted[i].Energy > sorted[j].Food+sorted[j].Energy
	})
	return sorted[0], sorted[1]
}

// CurrentTick returns the most recently processed tick.
func (s *Simulation) CurrentTick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTick
}

// Now returns the current simulation time.
func (s *Simulation) Now() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Population returns the live entity count.
func (s *Simulation) Population() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entities)
}

// Entities returns a copy of the live entity slice. The pointed-to
// entities are shared with the engine, so this is only safe while
// ticking is stopped; concurrent readers use the snapshot accessors
// below.
func (s *Simulation) Entities() []*entity.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*entity.Entity(nil), s.entities...)
}

// Entity looks up one entity by ID. Same sharing caveat as Entities.
func (s *Simulation) Entity(id entity.ID) (*entity.Entity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.index[id]
	return e, ok
}

// EntitySummary is a value copy of one entity's externally visible
// state. Snapshots are taken under the simulation lock so readers on
// other goroutines never touch a live entity.
type EntitySummary struct {
	ID        entity.ID
	Profile   entity.Profile
	State     entity.State
	Pos       world.Vec2
	Food      float64
	Energy    float64
	Penalized bool
	Inference entity.InferenceStatus
	Territory *entity.Territory // snapshot-owned copy, nil when unclaimed
}

// EntityDetail extends the summary with everything the detail endpoint
// reports.
type EntityDetail struct {
	EntitySummary
	Home       world.Vec2
	MaxFood    float64
	MaxEnergy  float64
	Params     map[string]float64
	Penalty    entity.Penalty
	InferState entity.InferenceState
	Memories   []entity.MemoryEntry
}

func (s *Simulation) summarize(e *entity.Entity) EntitySummary {
	sum := EntitySummary{
		ID:        e.ID,
		Profile:   e.Profile,
		State:     e.State,
		Pos:       e.Pos,
		Food:      e.Food,
		Energy:    e.Energy,
		Penalized: e.CurrentPenalty(s.now) > 0,
		Inference: e.Inference.Status,
	}
	if e.Territory != nil {
		t := *e.Territory
		sum.Territory = &t
	}
	return sum
}

// EntitySummaries returns value snapshots of the live population.
func (s *Simulation) EntitySummaries() []EntitySummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EntitySummary, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, s.summarize(e))
	}
	return out
}

// EntityDetails snapshots one entity in full, including parameter values
// and a copy of its memory store.
func (s *Simulation) EntityDetails(id entity.ID) (EntityDetail, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.index[id]
	if !ok {
		return EntityDetail{}, false
	}
	d := EntityDetail{
		EntitySummary: s.summarize(e),
		Home:          e.Home,
		MaxFood:       e.MaxFood,
		MaxEnergy:     e.MaxEnergy,
		Params:        make(map[string]float64, len(entity.Specs)),
		Penalty:       e.Penalty,
		InferState:    e.Inference,
		Memories:      e.Memory.Entries(),
	}
	for _, spec := range entity.Specs {
		d.Params[spec.Name] = *spec.Get(&e.Params)
	}
	return d, true
}

// FrameSnapshot returns the tick, simulation time, and entity summaries
// in one consistent view for the stream.
func (s *Simulation) FrameSnapshot() (uint64, float64, []EntitySummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]EntitySummary, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, s.summarize(e))
	}
	return s.lastTick, s.now, out
}

// WorldCells returns value copies of every cell in row-major order,
// plus the world resource totals, in one consistent view.
func (s *Simulation) WorldCells() ([]world.Cell, float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.Grid
	out := make([]world.Cell, 0, g.Cols*g.Rows)
	for cy := 0; cy < g.Rows; cy++ {
		for cx := 0; cx < g.Cols; cx++ {
			out = append(out, *g.At(cx, cy))
		}
	}
	food, energy := g.TotalResources()
	return out, food, energy
}

// HeldResources sums the reserves held across the population.
func (s *Simulation) HeldResources() (food, energy float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entities {
		food += e.Food
		energy += e.Energy
	}
	return food, energy
}

// RecentContests returns the latest contest outcomes, newest last.
func (s *Simulation) RecentContests() []ContestOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ContestOutcome(nil), s.recentContests...)
}

// StatsRows returns all sampled stats rows.
func (s *Simulation) StatsRows() []StatsRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StatsRow(nil), s.statsRows...)
}

// Faded returns the cumulative fade-out count.
func (s *Simulation) Faded() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.faded
}
