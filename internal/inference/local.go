package inference

import (
	"context"
	"fmt"
	"strings"
)

// LocalStrategy is a deterministic rule-based backend used when no
// remote model is configured, and as the fallback when a remote call
// fails. Same context in, same decision out.
type LocalStrategy struct{}

// NewLocalStrategy returns the rule-based backend.
func NewLocalStrategy() *LocalStrategy { return &LocalStrategy{} }

// Decide applies fixed heuristics to the snapshot. It never fails.
func (l *LocalStrategy) Decide(_ context.Context, dc *DecisionContext) (*Decision, error) {
	d := &Decision{Changes: make(map[string]float64), Source: "local"}
	var notes []string

	set := func(name string, v float64) { d.Changes[name] = v }
	cur := func(name string) float64 { return dc.Params[name] }

	switch {
	case dc.FoodRatio < 0.3:
		// Starving: bias collection toward food and search harder for it.
		set("resourcePreference", cur("resourcePreference")-0.4)
		set("hungerThreshold", cur("hungerThreshold")+0.1)
		notes = append(notes, "food reserve is low, shifting preference toward food")
	case dc.EnergyRatio < 0.3:
		set("resourcePreference", cur("resourcePreference")+0.4)
		set("energyLowThreshold", cur("energyLowThreshold")+0.1)
		notes = append(notes, "energy reserve is low, shifting preference toward energy")
	}

	if len(dc.DepletedFood) >= 2 || len(dc.DepletedEnergy) >= 2 {
		// Nearby spots keep running dry: start seeking earlier and
		// range farther before things get desperate.
		set("hungerThreshold", cur("hungerThreshold")+0.05)
		set("explorationRange", cur("explorationRange")*1.2)
		notes = append(notes, "recent spots were depleted, searching wider and earlier")
	}

	if len(dc.FoodMemories) == 0 && len(dc.EnergyMemories) == 0 {
		// Knows nothing: widen the search and wander more freely.
		set("explorationRange", cur("explorationRange")*1.3)
		set("noveltyPreference", cur("noveltyPreference")+0.2)
		notes = append(notes, "no resource locations remembered, widening exploration")
	}

	if dc.PenaltyActive || lostRecently(dc) {
		set("personalSpaceFactor", cur("personalSpaceFactor")+1)
		notes = append(notes, "lost a contest, keeping more distance")
	}

	if len(d.Changes) == 0 {
		// Comfortable: commit a little harder to current goals.
		set("persistenceFactor", cur("persistenceFactor")+0.05)
		notes = append(notes, "situation stable, staying the course")
	}

	d.Reasoning = fmt.Sprintf("Local strategy: %s.", strings.Join(notes, "; "))
	return d, nil
}

func lostRecently(dc *DecisionContext) bool {
	for _, o := range dc.RecentOutcomes {
		if strings.Contains(o, "lost") {
			return true
		}
	}
	return false
}
