// Package world provides the cell grid, terrain classes, and per-cell
// resource pools that entities forage from.
package world

// Terrain classifies a cell. Each class carries multipliers for movement
// speed and for how readily food and neural energy spawn there.
type Terrain uint8

const (
	TerrainMeadow  Terrain = iota // open grassland — food-rich, easy movement
	TerrainForest                 // dense growth — slower, balanced yields
	TerrainCrystal                // crystalline outcrops — the energy terrain
	TerrainMarsh                  // wet ground — slow, modest yields
	TerrainBarren                 // depleted ground — little of anything
)

// NumTerrains is the number of terrain classes.
const NumTerrains = 5

// TerrainProps holds the per-class multipliers.
type TerrainProps struct {
	MoveFactor  float64 // scales position updates (1.0 = full speed)
	FoodYield   float64 // scales food spawn probability and quantity
	EnergyYield float64 // scales energy spawn probability and quantity
}

var terrainProps = [NumTerrains]TerrainProps{
	TerrainMeadow:  {MoveFactor: 1.0, FoodYield: 1.5, EnergyYield: 0.6},
	TerrainForest:  {MoveFactor: 0.7, FoodYield: 1.1, EnergyYield: 0.9},
	TerrainCrystal: {MoveFactor: 0.8, FoodYield: 0.3, EnergyYield: 1.8},
	TerrainMarsh:   {MoveFactor: 0.5, FoodYield: 0.9, EnergyYield: 1.1},
	TerrainBarren:  {MoveFactor: 1.1, FoodYield: 0.3, EnergyYield: 0.3},
}

// Props returns the multipliers for a terrain class.
func (t Terrain) Props() TerrainProps {
	if int(t) >= NumTerrains {
		return terrainProps[TerrainBarren]
	}
	return terrainProps[t]
}

// TerrainName returns a human-readable name for a terrain class.
func TerrainName(t Terrain) string {
	switch t {
	case TerrainMeadow:
		return "Meadow"
	case TerrainForest:
		return "Forest"
	case TerrainCrystal:
		return "Crystal"
	case TerrainMarsh:
		return "Marsh"
	case TerrainBarren:
		return "Barren"
	default:
		return "Unknown"
	}
}
