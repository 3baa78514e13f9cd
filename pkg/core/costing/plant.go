package costing

import (
	"fmt"

	"fusion_costing/pkg/models"
)

// preConstructionMUSD are the fixed pre-construction sub-accounts (10.01-10.06).
var preConstructionMUSD = []float64{10, 50, 20, 15, 30, 50}

// buildingFactors are $/kW_th for 21.01-21.17.
var buildingFactors = []float64{
	268, 186.8, 54, 37.8, 10.8, 5.4, 93.4, 18.7, 0.3,
	1.1, 0.9, 0.8, 4.4, 1.6, 2.4, 0.9, 27,
}

// Buildings halved for fuels without tritium handling or a heavy neutron load.
var tritiumBuildings = map[string]bool{"21.01": true, "21.02": true, "21.07": true}

// plantFactors are $/kW_th for the balance-of-plant accounts.
var plantFactors = []struct {
	code   string
	factor float64
}{
	{CodeMainHeatTransfer, 50},
	{CodeRadwaste, 20},
	{CodeRemoteMaintenance, 15},
	{CodeReactorIC, 25},
	{CodeTurbine, 79},
	{CodeElectrical, 47},
	{CodeMiscPlant, 30},
	{CodeHeatRejection, 29},
	{CodeFuelHandling, 46},
	{CodePlantIC, 19},
}

func preConstruction(Input) (map[string]float64, error) {
	out := make(map[string]float64, len(preConstructionMUSD))
	for i, v := range preConstructionMUSD {
		out[fmt.Sprintf("10.%02d", i+1)] = v
	}
	return out, nil
}

// buildings prices structures per kW of thermal power.
//
// FORMULA: C_21.xx = factor × P_th[MW] / 1000   [M$]
func buildings(in Input) (map[string]float64, error) {
	out := make(map[string]float64, len(buildingFactors))
	for i, f := range buildingFactors {
		code := fmt.Sprintf("21.%02d", i+1)
		v := f * in.Power.PThermal / 1000
		if in.Fuel != models.FuelDT && tritiumBuildings[code] {
			v *= 0.5
		}
		out[code] = v
	}
	return out, nil
}

// balanceOfPlant prices 22.06-22.09 and 23-28 per kW of thermal power.
func balanceOfPlant(in Input) (map[string]float64, error) {
	out := make(map[string]float64, len(plantFactors))
	for _, p := range plantFactors {
		v := p.factor * in.Power.PThermal / 1000
		if p.code == CodeFuelHandling && in.Fuel != models.FuelDT {
			v *= 0.5
		}
		out[p.code] = v
	}
	return out, nil
}
