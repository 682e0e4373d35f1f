package sim

import (
	"math"

	"github.com/sparkfield/sparkfield/internal/entity"
	"github.com/sparkfield/sparkfield/internal/world"
)

// Contest resolution tuning.
const (
	EncounterRadius   = 30.0
	CompetitionRadius = 20.0

	// Ties require equal advantage; the epsilon only absorbs float
	// rounding noise, never genuinely different scores.
	tieEpsilon = 1e-9

	losePenalty   = 0.5
	losePenaltyTU = 5.0
	tiePenalty    = 0.3
	tiePenaltyTU  = 3.0

	homeAdvantageFactor = 1.2
)

// ContestOutcome describes one resolved competition for the event feed.
type ContestOutcome struct {
	A      entity.ID  `json:"a"`
	B      entity.ID  `json:"b"`
	Winner entity.ID  `json:"winner"` // zero on a tie
	Tie    bool       `json:"tie"`
	At     world.Vec2 `json:"at"`
}

// ResolveEncounters walks all entity pairs once. Pairs inside the
// encounter radius record encounter memories; pairs inside the
// competition radius that are both collecting contest the spot.
// homeAdvantage scales the advantage of an entity standing in its own
// territory when enabled.
func ResolveEncounters(entities []*entity.Entity, now float64, homeAdvantage bool) []ContestOutcome {
	var outcomes []ContestOutcome
	for i := 0; i < len(entities); i++ {
		a := entities[i]
		if a.Removed {
			continue
		}
		for j := i + 1; j < len(entities); j++ {
			b := entities[j]
			if b.Removed {
				continue
			}
			d := world.Dist(a.Pos, b.Pos)
			if d > EncounterRadius {
				continue
			}
			if d <= CompetitionRadius && contestable(a, now) && contestable(b, now) {
				out := resolveContest(a, b, now, homeAdvantage)
				outcomes = append(outcomes, out)
				continue
			}
			// Peaceful proximity: both sides remember the meeting.
			a.Memory.AddEncounter(a.Pos, b.ID, 0, now)
			b.Memory.AddEncounter(b.Pos, a.ID, 0, now)
		}
	}
	return outcomes
}

// contestable reports whether the entity is actively working a resource
// and not already under a penalty or retreating.
func contestable(e *entity.Entity, now float64) bool {
	return e.State == entity.StateCollecting && e.CurrentPenalty(now) == 0
}

// resolveContest compares competitive advantage. Distinct scores
// produce exactly one winner; the loser takes a collection penalty and
// both sides remember the outcome. An exact tie penalizes both more
// lightly.
func resolveContest(a, b *entity.Entity, now float64, homeAdvantage bool) ContestOutcome {
	advA := a.CompetitiveAdvantage()
	advB := b.CompetitiveAdvantage()
	if homeAdvantage {
		if a.InOwnTerritory() {
			advA *= homeAdvantageFactor
		}
		if b.InOwnTerritory() {
			advB *= homeAdvantageFactor
		}
	}

	out := ContestOutcome{A: a.ID, B: b.ID, At: a.Pos}
	if math.Abs(advA-advB) <= tieEpsilon {
		out.Tie = true
		a.ApplyPenalty(tiePenalty, tiePenaltyTU, now)
		b.ApplyPenalty(tiePenalty, tiePenaltyTU, now)
		a.Memory.AddEncounter(a.Pos, b.ID, -1, now)
		b.Memory.AddEncounter(b.Pos, a.ID, -1, now)
		return out
	}

	winner, loser := a, b
	if advB > advA {
		winner, loser = b, a
	}
	out.Winner = winner.ID
	loser.ApplyPenalty(losePenalty, losePenaltyTU, now)
	winner.Memory.AddEncounter(winner.Pos, loser.ID, 1, now)
	loser.Memory.AddEncounter(loser.Pos, winner.ID, -1, now)
	return out
}
