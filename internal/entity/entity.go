package entity

import (
	"math/rand"

	"github.com/sparkfield/sparkfield/internal/world"
)

// ID uniquely identifies an entity.
type ID uint64

// State is the behavior controller's current mode.
type State uint8

const (
	StateIdle State = iota
	StateExploring
	StateSeekingFood
	StateSeekingEnergy
	StateCollecting
	StateResting
	StateCompeting
	StateFading
)

// StateName returns a human-readable name for a behavior state.
func StateName(s State) string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateExploring:
		return "Exploring"
	case StateSeekingFood:
		return "SeekingFood"
	case StateSeekingEnergy:
		return "SeekingEnergy"
	case StateCollecting:
		return "Collecting"
	case StateResting:
		return "Resting"
	case StateCompeting:
		return "Competing"
	case StateFading:
		return "Fading"
	default:
		return "Unknown"
	}
}

// Territory is an advisory circular claim around a resource-rich area.
type Territory struct {
	Center world.Vec2 `json:"center"`
	Radius float64    `json:"radius"`
}

// Contains reports whether p lies inside the territory.
func (t Territory) Contains(p world.Vec2) bool {
	return world.Dist(t.Center, p) <= t.Radius
}

// Penalty is a temporary multiplicative reduction to collection efficiency
// imposed by the competition resolver.
type Penalty struct {
	Magnitude float64 `json:"magnitude"` // 0–1 reduction factor
	ExpiresAt float64 `json:"expires_at"`
}

// InferenceStatus tracks where an entity is in its inference cycle.
// This machine is independent of the behavior state machine.
type InferenceStatus uint8

const (
	InferIdle InferenceStatus = iota
	InferPreparing
	InferThinking
	InferProcessing
)

// InferenceStatusName returns a human-readable name for an inference status.
func InferenceStatusName(s InferenceStatus) string {
	switch s {
	case InferIdle:
		return "Idle"
	case InferPreparing:
		return "Preparing"
	case InferThinking:
		return "Thinking"
	case InferProcessing:
		return "Processing"
	default:
		return "Unknown"
	}
}

// InferenceState is the per-entity bookkeeping for the inference subsystem.
// Generation increments on every dispatch; a result carrying a stale
// generation is discarded, which makes late arrivals after a timeout safe.
type InferenceState struct {
	Status        InferenceStatus `json:"status"`
	PhaseStart    float64         `json:"phase_start"`
	LastTime      float64         `json:"last_time"`
	LastReasoning string          `json:"last_reasoning"`
	Generation    uint64          `json:"generation"`
}

// Entity is an autonomous agent foraging in the world.
type Entity struct {
	ID      ID      `json:"id"`
	Profile Profile `json:"profile"`

	Pos  world.Vec2 `json:"pos"`
	Vel  world.Vec2 `json:"vel"`
	Home world.Vec2 `json:"home"` // spawn point; critical-resource fallback

	State      State   `json:"state"`
	StateSince float64 `json:"state_since"`

	Food      float64 `json:"food"`
	MaxFood   float64 `json:"max_food"`
	Energy    float64 `json:"energy"`
	MaxEnergy float64 `json:"max_energy"`

	Params Params       `json:"params"`
	Memory *MemoryStore `json:"-"`

	Territory *Territory `json:"territory,omitempty"`
	Penalty   Penalty    `json:"penalty"`

	Inference InferenceState `json:"inference"`

	// Behavior-internal state.
	target      *world.Vec2   // current seek target
	heading     float64       // wander heading, radians
	idleUntil   float64       // Idle exit time
	restUntil   float64       // Resting exit time
	lastTerrain world.Terrain // last cell terrain, for discovery memories
	zeroSince   float64       // when both reserves hit zero; -1 when not
	FadeStart   float64       `json:"fade_start,omitempty"`
	Removed     bool          `json:"removed,omitempty"`
}

// Config holds per-entity initial and maximum reserves.
type Config struct {
	InitialFood    float64
	MaxFood        float64
	InitialEnergy  float64
	MaxEnergy      float64
	MemoryCapacity int
}

// DefaultConfig returns the standard reserve sizing.
func DefaultConfig() Config {
	return Config{
		InitialFood:    70,
		MaxFood:        100,
		InitialEnergy:  50,
		MaxEnergy:      100,
		MemoryCapacity: 50,
	}
}

// New creates an entity at pos with randomized parameters for the profile.
func New(id ID, profile Profile, pos world.Vec2, cfg Config, rng *rand.Rand) *Entity {
	return &Entity{
		ID:        id,
		Profile:   profile,
		Pos:       pos,
		Home:      pos,
		State:     StateExploring,
		Food:      cfg.InitialFood,
		MaxFood:   cfg.MaxFood,
		Energy:    cfg.InitialEnergy,
		MaxEnergy: cfg.MaxEnergy,
		Params:    Randomized(profile, rng),
		Memory:    NewMemoryStore(cfg.MemoryCapacity),
		heading:   rng.Float64() * 2 * 3.141592653589793,
		zeroSince: -1,
	}
}

// FoodRatio returns food reserve as a fraction of maximum.
func (e *Entity) FoodRatio() float64 {
	if e.MaxFood <= 0 {
		return 0
	}
	return e.Food / e.MaxFood
}

// EnergyRatio returns energy reserve as a fraction of maximum.
func (e *Entity) EnergyRatio() float64 {
	if e.MaxEnergy <= 0 {
		return 0
	}
	return e.Energy / e.MaxEnergy
}

// CurrentPenalty returns the active competition penalty, or 0 when expired.
func (e *Entity) CurrentPenalty(now float64) float64 {
	if now >= e.Penalty.ExpiresAt {
		return 0
	}
	return e.Penalty.Magnitude
}

// ApplyPenalty imposes a competition penalty for duration time units.
// A penalty above the significance threshold forces the entity into
// Competing immediately.
func (e *Entity) ApplyPenalty(magnitude, duration, now float64) {
	if magnitude < 0 {
		magnitude = 0
	}
	if magnitude > 1 {
		magnitude = 1
	}
	e.Penalty = Penalty{Magnitude: magnitude, ExpiresAt: now + duration}
	if magnitude > 0.3 {
		e.setState(StateCompeting, now)
	}
}

// AddFood credits collected food, clamped to the maximum reserve.
func (e *Entity) AddFood(amount float64) {
	e.Food += amount
	if e.Food > e.MaxFood {
		e.Food = e.MaxFood
	}
}

// AddEnergy credits collected energy, clamped to the maximum reserve.
func (e *Entity) AddEnergy(amount float64) {
	e.Energy += amount
	if e.Energy > e.MaxEnergy {
		e.Energy = e.MaxEnergy
	}
}

// SpendEnergy deducts up to amount energy and returns what was deducted.
func (e *Entity) SpendEnergy(amount float64) float64 {
	if amount > e.Energy {
		amount = e.Energy
	}
	e.Energy -= amount
	return amount
}

// CompetitiveAdvantage scores this entity in a resource contest.
func (e *Entity) CompetitiveAdvantage() float64 {
	return e.Params.CollectionEfficiency * (1 - e.Params.CooperationTendency)
}

// InOwnTerritory reports whether the entity stands inside its own claim.
func (e *Entity) InOwnTerritory() bool {
	return e.Territory != nil && e.Territory.Contains(e.Pos)
}

// setState transitions the behavior machine, resetting the state timer.
func (e *Entity) setState(s State, now float64) {
	if e.State == s {
		return
	}
	e.State = s
	e.StateSince = now
	e.target = nil
}

// stateTime returns how long the entity has been in its current state.
func (e *Entity) stateTime(now float64) float64 {
	return now - e.StateSince
}
