package sim

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/stat"

	"github.com/sparkfield/sparkfield/internal/entity"
	"github.com/sparkfield/sparkfield/internal/world"
)

// StatsRow is one sampled snapshot of population health. Rows accumulate
// in memory and can be exported as CSV for offline analysis.
type StatsRow struct {
	Tick            uint64  `csv:"tick" json:"tick"`
	Time            float64 `csv:"time" json:"time"`
	Population      int     `csv:"population" json:"population"`
	Faded           int     `csv:"faded" json:"faded"`
	MeanFoodRatio   float64 `csv:"mean_food_ratio" json:"mean_food_ratio"`
	StdFoodRatio    float64 `csv:"std_food_ratio" json:"std_food_ratio"`
	MeanEnergyRatio float64 `csv:"mean_energy_ratio" json:"mean_energy_ratio"`
	StdEnergyRatio  float64 `csv:"std_energy_ratio" json:"std_energy_ratio"`
	WorldFood       float64 `csv:"world_food" json:"world_food"`
	WorldEnergy     float64 `csv:"world_energy" json:"world_energy"`
	Territories     int     `csv:"territories" json:"territories"`
	Contests        uint64  `csv:"contests" json:"contests"`
	Exploring       int     `csv:"exploring" json:"exploring"`
	Seeking         int     `csv:"seeking" json:"seeking"`
	Collecting      int     `csv:"collecting" json:"collecting"`
	Resting         int     `csv:"resting" json:"resting"`
	Competing       int     `csv:"competing" json:"competing"`
}

// CollectStats samples the current population into a row.
func CollectStats(tick uint64, now float64, g *world.Grid, entities []*entity.Entity, faded int, contests uint64) StatsRow {
	row := StatsRow{Tick: tick, Time: now, Faded: faded, Contests: contests}

	var foodRatios, energyRatios []float64
	for _, e := range entities {
		if e.Removed {
			continue
		}
		row.Population++
		foodRatios = append(foodRatios, e.FoodRatio())
		energyRatios = append(energyRatios, e.EnergyRatio())
		if e.Territory != nil {
			row.Territories++
		}
		switch e.State {
		case entity.StateExploring:
			row.Exploring++
		case entity.StateSeekingFood, entity.StateSeekingEnergy:
			row.Seeking++
		case entity.StateCollecting:
			row.Collecting++
		case entity.StateResting:
			row.Resting++
		case entity.StateCompeting:
			row.Competing++
		}
	}
	if len(foodRatios) > 0 {
		row.MeanFoodRatio = stat.Mean(foodRatios, nil)
		row.MeanEnergyRatio = stat.Mean(energyRatios, nil)
	}
	// StdDev of a single sample is NaN, which JSON cannot encode.
	if len(foodRatios) >= 2 {
		row.StdFoodRatio = stat.StdDev(foodRatios, nil)
		row.StdEnergyRatio = stat.StdDev(energyRatios, nil)
	}
	row.WorldFood, row.WorldEnergy = g.TotalResources()
	return row
}

// ExportStatsCSV writes the accumulated rows as CSV.
func ExportStatsCSV(w io.Writer, rows []StatsRow) error {
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("export stats: %w", err)
	}
	return nil
}
