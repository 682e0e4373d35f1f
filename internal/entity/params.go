// Package entity provides the agent data model: decision parameters,
// the bounded memory store, and the behavior state machine.
package entity

import "math/rand"

// Params is an entity's behavior genome: bounded scalars consulted by the
// behavior controller every tick and rewritten by the inference subsystem.
// Every field stays inside its declared range at all times; Clamp enforces
// that on creation and after any update.
type Params struct {
	// Resource management thresholds.
	HungerThreshold          float64 `json:"hungerThreshold"`
	CriticalHungerThreshold  float64 `json:"criticalHungerThreshold"`
	EnergyLowThreshold       float64 `json:"energyLowThreshold"`
	CriticalEnergyThreshold  float64 `json:"criticalEnergyThreshold"`
	FoodSatiationThreshold   float64 `json:"foodSatiationThreshold"`
	EnergySatiationThreshold float64 `json:"energySatiationThreshold"`

	// Movement.
	ExplorationRange    float64 `json:"explorationRange"`
	ExplorationDuration float64 `json:"explorationDuration"`
	RestDuration        float64 `json:"restDuration"`
	PersonalSpaceFactor float64 `json:"personalSpaceFactor"`

	// Cognition.
	MemoryTrustFactor      float64 `json:"memoryTrustFactor"`
	NoveltyPreference      float64 `json:"noveltyPreference"`
	PersistenceFactor      float64 `json:"persistenceFactor"`
	CooperationTendency    float64 `json:"cooperationTendency"`
	FoodMemoryImportance   float64 `json:"foodMemoryImportance"`
	EnergyMemoryImportance float64 `json:"energyMemoryImportance"`

	// Collection.
	CollectionRate       float64 `json:"collectionRate"`
	CollectionEfficiency float64 `json:"collectionEfficiency"`
	ResourcePreference   float64 `json:"resourcePreference"` // -1 food … +1 energy

	// Inference control.
	InferenceThreshold float64 `json:"inferenceThreshold"` // neural energy needed to trigger
	InferenceInterval  float64 `json:"inferenceInterval"`  // min time units between inferences
}

// ParamSpec describes one parameter: its canonical name, valid range,
// accessor, and a semantic description used when building inference context.
type ParamSpec struct {
	Name string
	Min  float64
	Max  float64
	Get  func(*Params) *float64
	Desc string
}

// Specs lists every parameter in a fixed order. The Name fields are the
// canonical keys accepted from inference results.
var Specs = []ParamSpec{
	{"hungerThreshold", 0.1, 0.8, func(p *Params) *float64 { return &p.HungerThreshold },
		"food ratio below which the entity starts seeking food"},
	{"criticalHungerThreshold", 0.05, 0.3, func(p *Params) *float64 { return &p.CriticalHungerThreshold },
		"food ratio below which food seeking overrides persistence"},
	{"energyLowThreshold", 0.1, 0.8, func(p *Params) *float64 { return &p.EnergyLowThreshold },
		"energy ratio below which the entity starts seeking energy"},
	{"criticalEnergyThreshold", 0.05, 0.3, func(p *Params) *float64 { return &p.CriticalEnergyThreshold },
		"energy ratio below which energy seeking overrides persistence"},
	{"foodSatiationThreshold", 0.5, 1.0, func(p *Params) *float64 { return &p.FoodSatiationThreshold },
		"food ratio above which food seeking stops"},
	{"energySatiationThreshold", 0.5, 1.0, func(p *Params) *float64 { return &p.EnergySatiationThreshold },
		"energy ratio above which energy seeking stops"},
	{"explorationRange", 30, 300, func(p *Params) *float64 { return &p.ExplorationRange },
		"how far the entity roams and senses while exploring, in world units"},
	{"explorationDuration", 5, 60, func(p *Params) *float64 { return &p.ExplorationDuration },
		"time units of continuous exploration before resting"},
	{"restDuration", 2, 30, func(p *Params) *float64 { return &p.RestDuration },
		"time units spent resting"},
	{"personalSpaceFactor", 1, 10, func(p *Params) *float64 { return &p.PersonalSpaceFactor },
		"preferred distance from other entities; scales territory size"},
	{"memoryTrustFactor", 0, 1, func(p *Params) *float64 { return &p.MemoryTrustFactor },
		"probability of consulting memory before direct sensing"},
	{"noveltyPreference", 0, 1, func(p *Params) *float64 { return &p.NoveltyPreference },
		"tendency to pick new headings over persisting on the current one"},
	{"persistenceFactor", 0, 1, func(p *Params) *float64 { return &p.PersistenceFactor },
		"probability of resisting a goal switch when a need is non-critical"},
	{"cooperationTendency", 0, 1, func(p *Params) *float64 { return &p.CooperationTendency },
		"willingness to share contested resources; reduces competitive advantage"},
	{"foodMemoryImportance", 0.2, 2, func(p *Params) *float64 { return &p.FoodMemoryImportance },
		"multiplier on the importance of food memories during eviction"},
	{"energyMemoryImportance", 0.2, 2, func(p *Params) *float64 { return &p.EnergyMemoryImportance },
		"multiplier on the importance of energy memories during eviction"},
	{"collectionRate", 0.5, 5, func(p *Params) *float64 { return &p.CollectionRate },
		"base units withdrawn per time unit while collecting"},
	{"collectionEfficiency", 0.3, 1.5, func(p *Params) *float64 { return &p.CollectionEfficiency },
		"multiplier on collection yield; also drives competitive advantage"},
	{"resourcePreference", -1, 1, func(p *Params) *float64 { return &p.ResourcePreference },
		"which resource to try first when collecting: -1 food, +1 energy"},
	{"inferenceThreshold", 20, 90, func(p *Params) *float64 { return &p.InferenceThreshold },
		"neural energy reserve required before an inference can start"},
	{"inferenceInterval", 10, 120, func(p *Params) *float64 { return &p.InferenceInterval },
		"minimum time units between inferences"},
}

// SpecByName returns the spec for a canonical parameter name.
func SpecByName(name string) (ParamSpec, bool) {
	for _, s := range Specs {
		if s.Name == name {
			return s, true
		}
	}
	return ParamSpec{}, false
}

// Clamp forces every parameter into its declared range.
func (p *Params) Clamp() {
	for _, s := range Specs {
		v := s.Get(p)
		if *v < s.Min {
			*v = s.Min
		}
		if *v > s.Max {
			*v = s.Max
		}
	}
}

// Get returns the value of a parameter by canonical name.
func (p *Params) Get(name string) (float64, bool) {
	s, ok := SpecByName(name)
	if !ok {
		return 0, false
	}
	return *s.Get(p), true
}

// Set assigns a parameter by canonical name, clamping into range.
// Unknown names are ignored and reported false.
func (p *Params) Set(name string, value float64) bool {
	s, ok := SpecByName(name)
	if !ok {
		return false
	}
	if value < s.Min {
		value = s.Min
	}
	if value > s.Max {
		value = s.Max
	}
	*s.Get(p) = value
	return true
}

// Profile names a behavioral archetype preset.
type Profile string

const (
	ProfileBalanced     Profile = "balanced"
	ProfileExplorer     Profile = "explorer"
	ProfileGatherer     Profile = "gatherer"
	ProfileEnergySeeker Profile = "energySeeker"
	ProfileSocial       Profile = "social"
	ProfileCautious     Profile = "cautious"
)

// Profiles lists every preset.
var Profiles = []Profile{
	ProfileBalanced, ProfileExplorer, ProfileGatherer,
	ProfileEnergySeeker, ProfileSocial, ProfileCautious,
}

// DefaultParams returns the balanced preset.
func DefaultParams() Params {
	p := Params{
		HungerThreshold:          0.4,
		CriticalHungerThreshold:  0.15,
		EnergyLowThreshold:       0.4,
		CriticalEnergyThreshold:  0.15,
		FoodSatiationThreshold:   0.8,
		EnergySatiationThreshold: 0.8,
		ExplorationRange:         120,
		ExplorationDuration:      20,
		RestDuration:             8,
		PersonalSpaceFactor:      4,
		MemoryTrustFactor:        0.6,
		NoveltyPreference:        0.5,
		PersistenceFactor:        0.5,
		CooperationTendency:      0.5,
		FoodMemoryImportance:     1.0,
		EnergyMemoryImportance:   1.0,
		CollectionRate:           2.0,
		CollectionEfficiency:     1.0,
		ResourcePreference:       0,
		InferenceThreshold:       60,
		InferenceInterval:        40,
	}
	p.Clamp()
	return p
}

// ForProfile returns the preset genome for a profile.
func ForProfile(profile Profile) Params {
	p := DefaultParams()
	switch profile {
	case ProfileExplorer:
		p.ExplorationRange = 220
		p.ExplorationDuration = 40
		p.NoveltyPreference = 0.85
		p.MemoryTrustFactor = 0.35
		p.PersistenceFactor = 0.3
	case ProfileGatherer:
		p.HungerThreshold = 0.55
		p.FoodSatiationThreshold = 0.9
		p.ResourcePreference = -0.6
		p.FoodMemoryImportance = 1.6
		p.MemoryTrustFactor = 0.8
		p.CollectionRate = 3.0
	case ProfileEnergySeeker:
		p.EnergyLowThreshold = 0.55
		p.EnergySatiationThreshold = 0.9
		p.ResourcePreference = 0.6
		p.EnergyMemoryImportance = 1.6
		p.InferenceThreshold = 45
		p.InferenceInterval = 25
	case ProfileSocial:
		p.CooperationTendency = 0.85
		p.PersonalSpaceFactor = 2
		p.NoveltyPreference = 0.4
	case ProfileCautious:
		p.CriticalHungerThreshold = 0.25
		p.CriticalEnergyThreshold = 0.25
		p.PersistenceFactor = 0.75
		p.ExplorationRange = 70
		p.RestDuration = 14
		p.PersonalSpaceFactor = 7
	}
	p.Clamp()
	return p
}

// Randomized returns a profile preset with every parameter jittered by up to
// ±15% of its range, clamped back into bounds.
func Randomized(profile Profile, rng *rand.Rand) Params {
	p := ForProfile(profile)
	for _, s := range Specs {
		span := s.Max - s.Min
		*s.Get(&p) += (rng.Float64()*2 - 1) * 0.15 * span
	}
	p.Clamp()
	return p
}

// Blend returns a parameter set interpolated between a and b.
// t=0 yields a, t=1 yields b.
func Blend(a, b Params, t float64) Params {
	out := a
	for _, s := range Specs {
		av := *s.Get(&a)
		bv := *s.Get(&b)
		*s.Get(&out) = av + (bv-av)*t
	}
	out.Clamp()
	return out
}

// Evolve returns a mutated copy: each parameter shifts by up to ±10% of its
// range, clamped. Used when population control spawns replacements.
func (p Params) Evolve(rng *rand.Rand) Params {
	out := p
	for _, s := range Specs {
		span := s.Max - s.Min
		*s.Get(&out) += (rng.Float64()*2 - 1) * 0.10 * span
	}
	out.Clamp()
	return out
}
