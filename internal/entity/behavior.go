package entity

import (
	"math"
	"math/rand"

	"github.com/sparkfield/sparkfield/internal/world"
)

// Movement and metabolism tuning. Speeds are world units per time unit;
// burn rates are reserve units per time unit.
const (
	baseSpeed         = 12.0
	wanderSpeedFactor = 0.6
	urgencyBoost      = 1.5
	reachDist         = 5.0
	collectDwell      = 1.5
	idleDuration      = 2.0
	foodBurnRate      = 0.6
	energyBurnRate    = 0.25
	moveBurnPerUnit   = 0.02
	restRecoveryRate  = 0.8
	fadeoutGrace      = 20.0
	fadeDuration      = 3.0
)

// Update advances the entity's behavior by dt time units. It runs
// metabolism, the state machine, and movement, and records discovery
// memories as a side effect. World mutation is limited to resource
// withdrawal from the cell under the entity.
func (e *Entity) Update(g *world.Grid, rng *rand.Rand, now, dt float64) {
	if e.Removed {
		return
	}

	e.metabolize(dt)
	e.noteTerrain(g, now)

	if e.State == StateFading {
		e.Vel = world.Vec2{}
		if now-e.FadeStart >= fadeDuration {
			e.Removed = true
		}
		return
	}
	if e.checkFadeout(now) {
		return
	}

	switch e.State {
	case StateIdle:
		e.tickIdle(rng, now)
	case StateExploring:
		e.tickExploring(rng, now, dt)
	case StateSeekingFood:
		e.tickSeeking(g, rng, now, MemResourceFound)
	case StateSeekingEnergy:
		e.tickSeeking(g, rng, now, MemEnergyFound)
	case StateCollecting:
		e.tickCollecting(g, rng, now, dt)
	case StateResting:
		e.tickResting(rng, now, dt)
	case StateCompeting:
		e.tickCompeting(now)
	}

	e.move(g, rng, now, dt)
}

// metabolize burns reserves at the base rate.
func (e *Entity) metabolize(dt float64) {
	e.Food -= foodBurnRate * dt
	if e.Food < 0 {
		e.Food = 0
	}
	e.Energy -= energyBurnRate * dt
	if e.Energy < 0 {
		e.Energy = 0
	}
}

// noteTerrain records a terrain discovery memory when crossing into a
// cell of a different terrain type.
func (e *Entity) noteTerrain(g *world.Grid, now float64) {
	c := g.CellAt(e.Pos)
	if c == nil || c.Terrain == e.lastTerrain {
		return
	}
	e.lastTerrain = c.Terrain
	e.Memory.AddTerrain(e.Pos, c.Terrain, now)
}

// checkFadeout starts the fade when both reserves have been empty for
// longer than the grace period. Returns true when fading began.
func (e *Entity) checkFadeout(now float64) bool {
	if e.Food > 0 || e.Energy > 0 {
		e.zeroSince = -1
		return false
	}
	if e.zeroSince < 0 {
		e.zeroSince = now
		return false
	}
	if now-e.zeroSince >= fadeoutGrace {
		e.setState(StateFading, now)
		e.FadeStart = now
		return true
	}
	return false
}

// needsSwitch applies the hunger/energy thresholds with the persistence
// gate: critical deficits always interrupt, ordinary deficits interrupt
// unless the persistence roll keeps the entity on task.
func (e *Entity) needsSwitch(rng *rand.Rand, now float64) bool {
	fr, er := e.FoodRatio(), e.EnergyRatio()
	p := &e.Params

	if fr < p.CriticalHungerThreshold || er < p.CriticalEnergyThreshold {
		// More urgent deficit wins.
		if fr/p.CriticalHungerThreshold <= er/p.CriticalEnergyThreshold {
			e.setState(StateSeekingFood, now)
		} else {
			e.setState(StateSeekingEnergy, now)
		}
		return true
	}

	wantFood := fr < p.HungerThreshold
	wantEnergy := er < p.EnergyLowThreshold
	if !wantFood && !wantEnergy {
		return false
	}
	if rng.Float64() < p.PersistenceFactor {
		return false // stay on task
	}
	if wantFood && (!wantEnergy || fr/p.HungerThreshold <= er/p.EnergyLowThreshold) {
		e.setState(StateSeekingFood, now)
	} else {
		e.setState(StateSeekingEnergy, now)
	}
	return true
}

func (e *Entity) tickIdle(rng *rand.Rand, now float64) {
	if e.needsSwitch(rng, now) {
		return
	}
	if e.idleUntil == 0 {
		e.idleUntil = now + idleDuration
	}
	if now >= e.idleUntil {
		e.idleUntil = 0
		e.setState(StateExploring, now)
	}
	e.Vel = world.Vec2{}
}

func (e *Entity) tickExploring(rng *rand.Rand, now, dt float64) {
	if e.needsSwitch(rng, now) {
		return
	}
	p := &e.Params
	if e.stateTime(now) >= p.ExplorationDuration {
		e.setState(StateResting, now)
		return
	}
	// Novelty-driven heading changes once the bout is underway.
	if e.stateTime(now) > 3 && rng.Float64() < 0.1*(1+p.NoveltyPreference)*dt*10 {
		e.heading = rng.Float64() * 2 * math.Pi
	}
}

// tickSeeking drives the entity toward the best known or sensed source
// of the wanted resource kind.
func (e *Entity) tickSeeking(g *world.Grid, rng *rand.Rand, now float64, kind MemoryKind) {
	if e.satiated(kind) {
		e.target = nil
		e.setState(StateExploring, now)
		return
	}
	if e.target == nil {
		t := e.chooseTarget(g, rng, kind)
		if t == nil {
			// Nothing known or sensed: head home when the need is
			// critical, otherwise keep wandering in this state.
			if e.isCritical(kind) {
				h := e.Home
				e.target = &h
			}
			return
		}
		e.target = t
	}
	if world.Dist(e.Pos, *e.target) < reachDist {
		if e.cellHas(g, kind) {
			e.setState(StateCollecting, now)
			return
		}
		e.recordDepleted(kind, now)
		e.target = nil
	}
}

func (e *Entity) satiated(kind MemoryKind) bool {
	if kind == MemEnergyFound {
		return e.EnergyRatio() > e.Params.EnergySatiationThreshold
	}
	return e.FoodRatio() > e.Params.FoodSatiationThreshold
}

func (e *Entity) isCritical(kind MemoryKind) bool {
	if kind == MemEnergyFound {
		return e.EnergyRatio() < e.Params.CriticalEnergyThreshold
	}
	return e.FoodRatio() < e.Params.CriticalHungerThreshold
}

func (e *Entity) cellHas(g *world.Grid, kind MemoryKind) bool {
	c := g.CellAt(e.Pos)
	if c == nil {
		return false
	}
	if kind == MemEnergyFound {
		return c.Energy > 0
	}
	return c.Food > 0
}

func (e *Entity) recordDepleted(kind MemoryKind, now float64) {
	if kind == MemEnergyFound {
		e.Memory.AddEnergy(false, e.Pos, 0, e.Params.EnergyMemoryImportance, now)
	} else {
		e.Memory.AddFood(false, e.Pos, 0, e.Params.FoodMemoryImportance, now)
	}
}

// chooseTarget consults memory with probability equal to the entity's
// trust in it, taking the nearest remembered source of the wanted kind.
// When the roll fails or memory holds nothing useful, it falls back to
// a direct sensor scan.
func (e *Entity) chooseTarget(g *world.Grid, rng *rand.Rand, kind MemoryKind) *world.Vec2 {
	if rng.Float64() < e.Params.MemoryTrustFactor {
		if p := e.nearestRemembered(kind); p != nil {
			return p
		}
	}
	p, _ := e.scanCells(g, kind)
	return p
}

// nearestRemembered returns the closest remembered location of the kind
// that still had resources when noted, or nil.
func (e *Entity) nearestRemembered(kind MemoryKind) *world.Vec2 {
	entries := e.Memory.Entries()
	var best *world.Vec2
	bestDist := math.MaxFloat64
	for i := range entries {
		m := &entries[i]
		if m.Kind != kind || m.Quantity <= 0 {
			continue
		}
		if d := world.Dist(e.Pos, m.Pos); d < bestDist {
			bestDist = d
			p := m.Pos
			best = &p
		}
	}
	return best
}

// scanCells surveys cells within explorationRange of the entity and
// returns the richest one, weighted by terrain yield over distance.
func (e *Entity) scanCells(g *world.Grid, kind MemoryKind) (*world.Vec2, float64) {
	r := e.Params.ExplorationRange
	cx0, cy0 := g.CellIndex(world.Vec2{X: e.Pos.X - r, Y: e.Pos.Y - r})
	cx1, cy1 := g.CellIndex(world.Vec2{X: e.Pos.X + r, Y: e.Pos.Y + r})

	var best *world.Vec2
	bestScore := 0.0
	for cy := cy0; cy <= cy1; cy++ {
		for cx := cx0; cx <= cx1; cx++ {
			c := g.At(cx, cy)
			if c == nil {
				continue
			}
			qty, yield := c.Food, c.Terrain.Props().FoodYield
			if kind == MemEnergyFound {
				qty, yield = c.Energy, c.Terrain.Props().EnergyYield
			}
			if qty <= 0 {
				continue
			}
			center := g.CellCenter(cx, cy)
			d := world.Dist(e.Pos, center)
			if d > r {
				continue
			}
			score := qty * yield / (d + 1)
			if score > bestScore {
				bestScore = score
				p := center
				best = &p
			}
		}
	}
	return best, bestScore
}

// tickCollecting withdraws resources from the cell under the entity,
// applying efficiency and any active competition penalty. After the
// dwell period it re-evaluates needs.
func (e *Entity) tickCollecting(g *world.Grid, rng *rand.Rand, now, dt float64) {
	e.Vel = world.Vec2{}
	c := g.CellAt(e.Pos)
	if c == nil {
		e.setState(StateExploring, now)
		return
	}
	p := &e.Params
	amount := p.CollectionRate * dt * p.CollectionEfficiency * (1 - e.CurrentPenalty(now))
	if amount < 0 {
		amount = 0
	}

	// resourcePreference < 0 favors food, > 0 favors energy.
	order := []MemoryKind{MemResourceFound, MemEnergyFound}
	if p.ResourcePreference > 0 {
		order[0], order[1] = order[1], order[0]
	}
	collected := false
	for _, kind := range order {
		if kind == MemResourceFound && e.FoodRatio() < p.FoodSatiationThreshold {
			got := g.CollectFood(e.Pos, amount)
			switch {
			case got > 0:
				e.AddFood(got)
				e.Memory.AddFood(true, e.Pos, c.Food+got, p.FoodMemoryImportance, now)
				collected = true
			case amount > 0:
				// Asked for a nonzero amount and got nothing: the spot
				// is dry, remember that rather than "never looked."
				e.recordDepleted(MemResourceFound, now)
			}
		}
		if kind == MemEnergyFound && e.EnergyRatio() < p.EnergySatiationThreshold {
			got := g.CollectEnergy(e.Pos, amount)
			switch {
			case got > 0:
				e.AddEnergy(got)
				e.Memory.AddEnergy(true, e.Pos, c.Energy+got, p.EnergyMemoryImportance, now)
				collected = true
			case amount > 0:
				e.recordDepleted(MemEnergyFound, now)
			}
		}
	}

	if e.stateTime(now) < collectDwell {
		return
	}
	switch {
	case e.FoodRatio() >= p.FoodSatiationThreshold && e.EnergyRatio() >= p.EnergySatiationThreshold:
		e.setState(StateResting, now)
	case !collected && c.Food <= 0 && c.Energy <= 0:
		if e.FoodRatio() < p.HungerThreshold {
			e.setState(StateSeekingFood, now)
		} else if e.EnergyRatio() < p.EnergyLowThreshold {
			e.setState(StateSeekingEnergy, now)
		} else {
			e.setState(StateExploring, now)
		}
	default:
		e.needsSwitch(rng, now)
	}
}

func (e *Entity) tickResting(rng *rand.Rand, now, dt float64) {
	e.Vel = world.Vec2{}
	if e.restUntil == 0 {
		jitter := 0.8 + 0.4*rng.Float64()
		e.restUntil = now + e.Params.RestDuration*jitter
	}
	e.AddEnergy(restRecoveryRate * dt)
	fr, er := e.FoodRatio(), e.EnergyRatio()
	if fr < e.Params.CriticalHungerThreshold || er < e.Params.CriticalEnergyThreshold {
		e.restUntil = 0
		e.needsSwitch(rng, now)
		return
	}
	if now >= e.restUntil {
		e.restUntil = 0
		e.setState(StateExploring, now)
	}
}

// tickCompeting holds ground until the penalty timer expires, then
// resumes collecting at the contested spot.
func (e *Entity) tickCompeting(now float64) {
	e.Vel = world.Vec2{}
	if e.CurrentPenalty(now) == 0 {
		e.setState(StateCollecting, now)
	}
}

// move integrates velocity. Targeted states steer directly at the
// target with an urgency boost under critical deficits; untargeted
// states wander along the current heading. Terrain scales speed and
// movement burns extra food.
func (e *Entity) move(g *world.Grid, rng *rand.Rand, now, dt float64) {
	switch e.State {
	case StateIdle, StateResting, StateCollecting, StateCompeting, StateFading:
		return
	}

	speed := baseSpeed
	if e.target != nil {
		d := world.Dist(e.Pos, *e.target)
		if d < reachDist {
			e.Vel = world.Vec2{}
			return
		}
		urgency := 1.0
		fr, er := e.FoodRatio(), e.EnergyRatio()
		if fr < e.Params.CriticalHungerThreshold || er < e.Params.CriticalEnergyThreshold {
			urgency = urgencyBoost
		}
		dir := world.Vec2{X: (e.target.X - e.Pos.X) / d, Y: (e.target.Y - e.Pos.Y) / d}
		e.Vel = dir.Scale(speed * urgency)
	} else {
		// Occasional drift keeps wander paths from being straight lines.
		e.heading += (rng.Float64() - 0.5) * 0.3
		e.Vel = world.Vec2{X: math.Cos(e.heading), Y: math.Sin(e.heading)}.Scale(speed * wanderSpeedFactor)
	}

	factor := 1.0
	if c := g.CellAt(e.Pos); c != nil {
		factor = c.Terrain.Props().MoveFactor
	}
	step := e.Vel.Scale(dt * factor)
	moved := math.Hypot(step.X, step.Y)
	e.Pos = g.Clamp(e.Pos.Add(step))
	e.Food -= moved * moveBurnPerUnit
	if e.Food < 0 {
		e.Food = 0
	}
}
