package entity

import "github.com/sparkfield/sparkfield/internal/world"

// TerritoryRadius derives the size of an entity's claim from its personal
// space and sociability. Cooperative entities claim less ground.
func (e *Entity) TerritoryRadius() float64 {
	return e.Params.PersonalSpaceFactor * (2 - e.Params.CooperationTendency) * 5
}

// MaybeClaimTerritory establishes or relocates the entity's territory.
// A claim happens while collecting with a comfortably full food reserve,
// when the entity has no territory yet or has drifted well outside the
// one it holds.
func (e *Entity) MaybeClaimTerritory() bool {
	if e.State != StateCollecting {
		return false
	}
	if e.FoodRatio() <= 0.8*e.Params.FoodSatiationThreshold {
		return false
	}
	if e.Territory != nil && world.Dist(e.Pos, e.Territory.Center) <= 1.5*e.Territory.Radius {
		// Refresh in place.
		e.Territory.Center = e.Pos
		return false
	}
	e.Territory = &Territory{Center: e.Pos, Radius: e.TerritoryRadius()}
	return true
}
