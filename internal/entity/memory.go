// Bounded associative memory — each entity records notable events and
// evicts the least important ones when full. Nearby duplicates of the same
// kind are rejected so the store holds distinct places, not repetitions.
package entity

import (
	"sort"

	"github.com/sparkfield/sparkfield/internal/world"
)

// MemoryKind tags what an entry records.
type MemoryKind uint8

const (
	MemResourceFound MemoryKind = iota
	MemResourceDepleted
	MemEnergyFound
	MemEnergyDepleted
	MemTerrain
	MemEncounter
	MemInference
)

// KindName returns a human-readable name for a memory kind.
func KindName(k MemoryKind) string {
	switch k {
	case MemResourceFound:
		return "resource-found"
	case MemResourceDepleted:
		return "resource-depleted"
	case MemEnergyFound:
		return "energy-found"
	case MemEnergyDepleted:
		return "energy-depleted"
	case MemTerrain:
		return "terrain-discovered"
	case MemEncounter:
		return "encounter"
	case MemInference:
		return "inference-performed"
	default:
		return "unknown"
	}
}

// MemoryEntry records one notable event.
type MemoryEntry struct {
	Kind       MemoryKind `json:"kind"`
	Pos        world.Vec2 `json:"pos"`
	Time       float64    `json:"time"`
	Importance float64    `json:"importance"` // 0.0–1.0

	// Kind-specific payload.
	Quantity float64       `json:"quantity,omitempty"` // resource/energy entries
	Terrain  world.Terrain `json:"terrain,omitempty"`  // terrain entries
	PeerID   ID            `json:"peer_id,omitempty"`  // encounter entries
	Outcome  int           `json:"outcome,omitempty"`  // encounter: +1 won, -1 lost, 0 neutral

	// Inference entries.
	Reasoning     string `json:"reasoning,omitempty"`
	ChangeSummary string `json:"change_summary,omitempty"`
	Success       bool   `json:"success,omitempty"`
}

// Dedup distances: a new entry this close to a recent entry of the same kind
// is considered a duplicate. Food entries use the tighter threshold.
const (
	dedupRadius     = 20.0
	dedupRadiusFood = 15.0
)

// MemoryStore is a fixed-capacity event log owned by exactly one entity.
type MemoryStore struct {
	capacity int
	entries  []MemoryEntry
}

// NewMemoryStore creates a store holding at most capacity entries.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity < 1 {
		capacity = 1
	}
	return &MemoryStore{capacity: capacity}
}

// Count returns the number of stored entries.
func (m *MemoryStore) Count() int { return len(m.entries) }

// Capacity returns the store's fixed capacity.
func (m *MemoryStore) Capacity() int { return m.capacity }

// Entries returns a copy of all entries in storage order.
func (m *MemoryStore) Entries() []MemoryEntry {
	out := make([]MemoryEntry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Clear drops every entry. Only called when an entity is removed.
func (m *MemoryStore) Clear() { m.entries = m.entries[:0] }

// Add stores an entry, stamping it with now when its time is unset.
// Returns false without storing when the entry duplicates a recent one.
func (m *MemoryStore) Add(e MemoryEntry, now float64) bool {
	if e.Time == 0 {
		e.Time = now
	}
	if e.Importance < 0 {
		e.Importance = 0
	}
	if e.Importance > 1 {
		e.Importance = 1
	}

	if m.isDuplicate(e) {
		return false
	}

	m.entries = append(m.entries, e)

	if len(m.entries) > m.capacity {
		m.prune()
	}
	m.reorder()
	return true
}

// isDuplicate reports whether e matches an entry in the recent window:
// same kind, position inside the dedup radius, and kind-specific equality.
// The recent window is the most recent quarter of the store (at least one).
func (m *MemoryStore) isDuplicate(e MemoryEntry) bool {
	if len(m.entries) == 0 {
		return false
	}

	recent := m.recentWindow()
	radius := dedupRadius
	if e.Kind == MemResourceFound || e.Kind == MemResourceDepleted {
		radius = dedupRadiusFood
	}

	for i := range recent {
		r := &recent[i]
		if r.Kind != e.Kind {
			continue
		}
		if world.Dist(r.Pos, e.Pos) > radius {
			continue
		}
		switch e.Kind {
		case MemTerrain:
			if r.Terrain == e.Terrain {
				return true
			}
		case MemEncounter:
			if r.PeerID == e.PeerID {
				return true
			}
		default:
			return true
		}
	}
	return false
}

// recentWindow returns the most recent quarter of entries by timestamp.
func (m *MemoryStore) recentWindow() []MemoryEntry {
	n := (len(m.entries) + 3) / 4
	byTime := make([]MemoryEntry, len(m.entries))
	copy(byTime, m.entries)
	sort.Slice(byTime, func(i, j int) bool { return byTime[i].Time > byTime[j].Time })
	return byTime[:n]
}

// prune drops the lowest-importance entries until the store fits capacity.
func (m *MemoryStore) prune() {
	sort.Slice(m.entries, func(i, j int) bool {
		return m.entries[i].Importance < m.entries[j].Importance
	})
	excess := len(m.entries) - m.capacity
	m.entries = m.entries[excess:]
}

// reorder sorts by importance when it differs meaningfully, by recency
// otherwise — important things are kept effectively forever, the rest is FIFO.
func (m *MemoryStore) reorder() {
	sort.Slice(m.entries, func(i, j int) bool {
		di := m.entries[i].Importance - m.entries[j].Importance
		if di > 0.2 || di < -0.2 {
			return m.entries[i].Importance > m.entries[j].Importance
		}
		return m.entries[i].Time > m.entries[j].Time
	})
}

// FoodImportance computes the base importance of a food memory from its
// quantity, before the per-entity multiplier.
func FoodImportance(quantity float64) float64 {
	q := quantity / 50
	if q > 1 {
		q = 1
	}
	imp := 0.3 + q*0.6
	if imp > 0.9 {
		imp = 0.9
	}
	return imp
}

// EnergyImportance computes the base importance of an energy memory.
// Energy is scarcer than food, so it starts and caps higher.
func EnergyImportance(quantity float64) float64 {
	q := quantity / 20
	if q > 1 {
		q = 1
	}
	imp := 0.5 + q*0.4
	if imp > 0.95 {
		imp = 0.95
	}
	return imp
}

// AddFood records a food sighting or depletion. mult is the entity's
// food-memory importance multiplier.
func (m *MemoryStore) AddFood(found bool, pos world.Vec2, quantity, mult, now float64) bool {
	kind := MemResourceFound
	imp := FoodImportance(quantity) * mult
	if !found {
		kind = MemResourceDepleted
		imp = 0.4 * mult
	}
	return m.Add(MemoryEntry{Kind: kind, Pos: pos, Quantity: quantity, Importance: imp}, now)
}

// AddEnergy records an energy sighting or depletion.
func (m *MemoryStore) AddEnergy(found bool, pos world.Vec2, quantity, mult, now float64) bool {
	kind := MemEnergyFound
	imp := EnergyImportance(quantity) * mult
	if !found {
		kind = MemEnergyDepleted
		imp = 0.45 * mult
	}
	return m.Add(MemoryEntry{Kind: kind, Pos: pos, Quantity: quantity, Importance: imp}, now)
}

// AddTerrain records a newly crossed terrain class.
func (m *MemoryStore) AddTerrain(pos world.Vec2, terrain world.Terrain, now float64) bool {
	return m.Add(MemoryEntry{Kind: MemTerrain, Pos: pos, Terrain: terrain, Importance: 0.3}, now)
}

// AddEncounter records meeting another entity. Negative outcomes are
// slightly more memorable than neutral ones.
func (m *MemoryStore) AddEncounter(pos world.Vec2, peer ID, outcome int, now float64) bool {
	imp := 0.5
	if outcome < 0 {
		imp = 0.65
	} else if outcome > 0 {
		imp = 0.55
	}
	return m.Add(MemoryEntry{Kind: MemEncounter, Pos: pos, PeerID: peer, Outcome: outcome, Importance: imp}, now)
}

// AddInference records an inference outcome.
func (m *MemoryStore) AddInference(pos world.Vec2, reasoning, summary string, success bool, now float64) bool {
	imp := 0.85
	if !success {
		imp = 0.6
	}
	return m.Add(MemoryEntry{
		Kind: MemInference, Pos: pos, Importance: imp,
		Reasoning: reasoning, ChangeSummary: summary, Success: success,
	}, now)
}

// ByKind returns all entries of one kind, most recent first.
func (m *MemoryStore) ByKind(kind MemoryKind) []MemoryEntry {
	var out []MemoryEntry
	for i := range m.entries {
		if m.entries[i].Kind == kind {
			out = append(out, m.entries[i])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time > out[j].Time })
	return out
}

// Nearest returns the entry of the given kind closest to from, or nil.
func (m *MemoryStore) Nearest(kind MemoryKind, from world.Vec2) *MemoryEntry {
	var best *MemoryEntry
	bestDist := 0.0
	for i := range m.entries {
		if m.entries[i].Kind != kind {
			continue
		}
		d := world.Dist(m.entries[i].Pos, from)
		if best == nil || d < bestDist {
			e := m.entries[i]
			best = &e
			bestDist = d
		}
	}
	return best
}

// WithinRadius returns entries positioned within radius of pos.
func (m *MemoryStore) WithinRadius(pos world.Vec2, radius float64) []MemoryEntry {
	var out []MemoryEntry
	for i := range m.entries {
		if world.Dist(m.entries[i].Pos, pos) <= radius {
			out = append(out, m.entries[i])
		}
	}
	return out
}

// RecentSince returns entries stamped at or after cutoff, most recent first.
func (m *MemoryStore) RecentSince(cutoff float64) []MemoryEntry {
	var out []MemoryEntry
	for i := range m.entries {
		if m.entries[i].Time >= cutoff {
			out = append(out, m.entries[i])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time > out[j].Time })
	return out
}

// MostRecent returns up to count entries of a kind, most recent first.
func (m *MemoryStore) MostRecent(kind MemoryKind, count int) []MemoryEntry {
	byKind := m.ByKind(kind)
	if len(byKind) > count {
		byKind = byKind[:count]
	}
	return byKind
}
