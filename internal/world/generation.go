// World generation using layered simplex noise. Two independent noise
// fields (fertility and charge) classify terrain; initial resources are
// seeded proportionally to terrain yields.
package world

import (
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds world generation parameters.
type GenConfig struct {
	Cols     int
	Rows     int
	CellSize float64
	Seed     int64 // 0 = random
}

// DefaultGenConfig returns a field sized for tens of entities.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Cols:     40,
		Rows:     30,
		CellSize: 20,
	}
}

// Generate creates a complete grid with terrain and starting resources.
func Generate(cfg GenConfig) *Grid {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	fertNoise := opensimplex.NewNormalized(seed)
	chargeNoise := opensimplex.NewNormalized(seed + 1)
	rng := rand.New(rand.NewSource(seed + 2))

	g := NewGrid(cfg.Cols, cfg.Rows, cfg.CellSize)

	for cy := 0; cy < cfg.Rows; cy++ {
		for cx := 0; cx < cfg.Cols; cx++ {
			// Sample at 0.08 frequency so terrain forms patches a few
			// cells wide rather than per-cell static.
			fx := float64(cx) * 0.08
			fy := float64(cy) * 0.08
			fertility := octave(fertNoise, fx, fy, 3)
			charge := octave(chargeNoise, fx, fy, 3)

			c := g.At(cx, cy)
			c.Terrain = classify(fertility, charge)

			props := c.Terrain.Props()
			c.Food = props.FoodYield * (5 + rng.Float64()*15)
			c.Energy = props.EnergyYield * (2 + rng.Float64()*6)
		}
	}

	return g
}

// classify maps the two noise fields to a terrain class.
func classify(fertility, charge float64) Terrain {
	switch {
	case charge > 0.72:
		return TerrainCrystal
	case fertility < 0.3:
		return TerrainBarren
	case fertility > 0.65:
		return TerrainMeadow
	case charge > 0.55:
		return TerrainMarsh
	default:
		return TerrainForest
	}
}

// octave samples multi-octave noise for natural-looking patches.
func octave(noise opensimplex.Noise, x, y float64, octaves int) float64 {
	total := 0.0
	amplitude := 1.0
	frequency := 1.0
	maxValue := 0.0
	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxValue += amplitude
		amplitude *= 0.5
		frequency *= 2
	}
	return total / maxValue
}
