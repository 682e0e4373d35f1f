// Package inference runs the asynchronous decision-adjustment cycle:
// entities periodically spend energy to reconsider their decision
// parameters, either through a remote language model or a deterministic
// local strategy. Results arrive on an inbox and are applied at a fixed
// point in the tick so late arrivals never race the simulation.
package inference

import "context"

// Decision is a proposed adjustment to an entity's decision parameters.
// Changes maps canonical parameter names to new values; out-of-range
// values are clamped on application and unknown names are ignored.
type Decision struct {
	Changes   map[string]float64 `json:"changes"`
	Reasoning string             `json:"reasoning"`
	Source    string             `json:"source"` // "remote" or "local"
}

// Summary renders a short change list for memory entries and logs.
func (d *Decision) Summary() string {
	if len(d.Changes) == 0 {
		return "no changes"
	}
	s := ""
	for name := range d.Changes {
		if s != "" {
			s += ", "
		}
		s += name
	}
	return "adjusted " + s
}

// Backend produces a Decision from a snapshot of an entity's situation.
type Backend interface {
	Decide(ctx context.Context, dc *DecisionContext) (*Decision, error)
}
