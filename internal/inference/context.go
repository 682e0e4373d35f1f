package inference

import (
	"fmt"
	"strings"

	"github.com/sparkfield/sparkfield/internal/entity"
	"github.com/sparkfield/sparkfield/internal/world"
)

// DecisionContext is the situational snapshot handed to a Backend. It is
// built synchronously at dispatch time so the backend never touches live
// simulation state.
type DecisionContext struct {
	EntityID entity.ID
	Profile  string
	State    string
	Now      float64

	Pos         world.Vec2
	FoodRatio   float64
	EnergyRatio float64

	Params map[string]float64

	FoodMemories    []MemorySummary
	EnergyMemories  []MemorySummary
	DepletedFood    []MemorySummary
	DepletedEnergy  []MemorySummary
	RecentTerrain   []string
	RecentOutcomes  []string // encounter and inference outcomes, newest first
	LastReasoning   string
	PenaltyActive   bool
	TerritoryRadius float64 // 0 when no territory held
}

// MemorySummary is a compact recall of one resource memory.
type MemorySummary struct {
	Pos        world.Vec2
	Quantity   float64
	Importance float64
	Age        float64
}

// BuildContext snapshots an entity's situation for inference.
func BuildContext(e *entity.Entity, now float64) *DecisionContext {
	dc := &DecisionContext{
		EntityID:      e.ID,
		Profile:       string(e.Profile),
		State:         entity.StateName(e.State),
		Now:           now,
		Pos:           e.Pos,
		FoodRatio:     e.FoodRatio(),
		EnergyRatio:   e.EnergyRatio(),
		Params:        make(map[string]float64, len(entity.Specs)),
		LastReasoning: e.Inference.LastReasoning,
		PenaltyActive: e.CurrentPenalty(now) > 0,
	}
	for _, s := range entity.Specs {
		dc.Params[s.Name] = *s.Get(&e.Params)
	}
	if e.Territory != nil {
		dc.TerritoryRadius = e.Territory.Radius
	}

	dc.FoodMemories = summarize(e.Memory.ByKind(entity.MemResourceFound), now)
	dc.EnergyMemories = summarize(e.Memory.ByKind(entity.MemEnergyFound), now)
	dc.DepletedFood = summarizeRecent(e.Memory.MostRecent(entity.MemResourceDepleted, 3), now)
	dc.DepletedEnergy = summarizeRecent(e.Memory.MostRecent(entity.MemEnergyDepleted, 3), now)

	for _, m := range e.Memory.MostRecent(entity.MemTerrain, 3) {
		dc.RecentTerrain = append(dc.RecentTerrain,
			fmt.Sprintf("%s around (%.0f, %.0f)", world.TerrainName(m.Terrain), m.Pos.X, m.Pos.Y))
	}

	for _, m := range e.Memory.MostRecent(entity.MemEncounter, 3) {
		switch m.Outcome {
		case 1:
			dc.RecentOutcomes = append(dc.RecentOutcomes, "won a contest over a resource spot")
		case -1:
			dc.RecentOutcomes = append(dc.RecentOutcomes, "lost a contest and took a collection penalty")
		default:
			dc.RecentOutcomes = append(dc.RecentOutcomes, "crossed paths with another entity")
		}
	}
	return dc
}

func summarize(entries []entity.MemoryEntry, now float64) []MemorySummary {
	out := make([]MemorySummary, 0, len(entries))
	for _, m := range entries {
		if m.Quantity <= 0 {
			continue
		}
		out = append(out, MemorySummary{
			Pos:        m.Pos,
			Quantity:   m.Quantity,
			Importance: m.Importance,
			Age:        now - m.Time,
		})
	}
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}

// summarizeRecent keeps zero-quantity entries; depleted spots are worth
// reporting precisely because nothing is there.
func summarizeRecent(entries []entity.MemoryEntry, now float64) []MemorySummary {
	out := make([]MemorySummary, 0, len(entries))
	for _, m := range entries {
		out = append(out, MemorySummary{
			Pos:        m.Pos,
			Quantity:   m.Quantity,
			Importance: m.Importance,
			Age:        now - m.Time,
		})
	}
	return out
}

// SystemPrompt frames the model as the entity's adaptive controller and
// lists every adjustable parameter with its range and meaning.
func SystemPrompt() string {
	var b strings.Builder
	b.WriteString(`You are the adaptive controller of a foraging entity in a grid world.
The entity survives by balancing a food reserve and a neural-energy reserve,
guided by the decision parameters below. Based on the entity's situation,
propose small adjustments that improve its chances.

Respond ONLY with a JSON object:
{"reasoning": "<one or two sentences>", "changes": {"<parameterName>": <newValue>, ...}}

Adjust at most 4 parameters. Values outside a parameter's range are clamped.

Parameters:
`)
	for _, s := range entity.Specs {
		fmt.Fprintf(&b, "- %s [%g, %g]: %s\n", s.Name, s.Min, s.Max, s.Desc)
	}
	return b.String()
}

// UserPrompt renders the decision context as the user message.
func UserPrompt(dc *DecisionContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Entity %d (%s profile), state %s at t=%.1f.\n", dc.EntityID, dc.Profile, dc.State, dc.Now)
	fmt.Fprintf(&b, "Food reserve: %.0f%% of maximum. Energy reserve: %.0f%% of maximum.\n",
		dc.FoodRatio*100, dc.EnergyRatio*100)
	if dc.PenaltyActive {
		b.WriteString("Currently under a competition penalty.\n")
	}
	if dc.TerritoryRadius > 0 {
		fmt.Fprintf(&b, "Holds a territory of radius %.0f.\n", dc.TerritoryRadius)
	}
	b.WriteString("\n")

	writeMemories(&b, "Known food sources", dc.FoodMemories)
	writeMemories(&b, "Known energy sources", dc.EnergyMemories)

	if len(dc.DepletedFood) > 0 {
		b.WriteString("Recently found depleted of food:\n")
		for _, m := range dc.DepletedFood {
			fmt.Fprintf(&b, "- (%.0f, %.0f), %.0f time units ago\n", m.Pos.X, m.Pos.Y, m.Age)
		}
		b.WriteString("\n")
	}
	if len(dc.DepletedEnergy) > 0 {
		b.WriteString("Recently found depleted of energy:\n")
		for _, m := range dc.DepletedEnergy {
			fmt.Fprintf(&b, "- (%.0f, %.0f), %.0f time units ago\n", m.Pos.X, m.Pos.Y, m.Age)
		}
		b.WriteString("\n")
	}
	if len(dc.RecentTerrain) > 0 {
		b.WriteString("Terrain noted recently:\n")
		for _, t := range dc.RecentTerrain {
			fmt.Fprintf(&b, "- %s\n", t)
		}
		b.WriteString("\n")
	}

	if len(dc.RecentOutcomes) > 0 {
		b.WriteString("Recent events:\n")
		for _, o := range dc.RecentOutcomes {
			fmt.Fprintf(&b, "- %s\n", o)
		}
		b.WriteString("\n")
	}
	if dc.LastReasoning != "" {
		fmt.Fprintf(&b, "Your previous reasoning: %s\n\n", dc.LastReasoning)
	}

	b.WriteString("Current parameters:\n")
	for _, s := range entity.Specs {
		fmt.Fprintf(&b, "- %s: %.3g\n", s.Name, dc.Params[s.Name])
	}

	b.WriteString("\nPropose adjustments as JSON.")
	return b.String()
}

func writeMemories(b *strings.Builder, title string, ms []MemorySummary) {
	if len(ms) == 0 {
		fmt.Fprintf(b, "%s: none remembered.\n\n", title)
		return
	}
	fmt.Fprintf(b, "%s:\n", title)
	for _, m := range ms {
		fmt.Fprintf(b, "- (%.0f, %.0f) qty %.0f, importance %.2f, seen %.0f time units ago\n",
			m.Pos.X, m.Pos.Y, m.Quantity, m.Importance, m.Age)
	}
	b.WriteString("\n")
}
