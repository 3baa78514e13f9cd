// Package materials is the static material property table used by the cost
// aggregator. Costs are returned in millions of dollars.
package materials

import (
	"fmt"
	"sort"
	"strings"

	"fusion_costing/pkg/models"
)

// Material is an immutable row of the property table.
type Material struct {
	Code                    string  `json:"code"`
	Name                    string  `json:"name"`
	Density                 float64 `json:"density"`         // kg/m³
	RawCostPerKg            float64 `json:"raw_cost_per_kg"` // $/kg
	ManufacturingMultiplier float64 `json:"manufacturing_multiplier"`
	MaxOperatingTempK       float64 `json:"max_operating_temp_k"`
}

// UnitVolumeCost is the finished cost of one cubic metre in M$.
func (m Material) UnitVolumeCost() float64 {
	return m.Density * m.RawCostPerKg * m.ManufacturingMultiplier / 1e6
}

var table = map[string]Material{
	"FS":       {"FS", "Ferritic steel", 7470, 10, 3, 823},
	"W":        {"W", "Tungsten", 19300, 100, 3, 3695},
	"Be":       {"Be", "Beryllium", 1850, 5750, 3, 923},
	"Li":       {"Li", "Lithium", 534, 70, 1.5, 1615},
	"Li4SiO4":  {"Li4SiO4", "Lithium orthosilicate", 2390, 1, 2, 1528},
	"Li2TiO3":  {"Li2TiO3", "Lithium titanate", 3430, 1297.05, 3, 1800},
	"FLiBe":    {"FLiBe", "FLiBe molten salt", 1900, 1000, 1, 1703},
	"SiC":      {"SiC", "Silicon carbide", 3200, 14.49, 3, 3003},
	"SS316":    {"SS316", "Stainless steel 316", 7860, 2, 2, 923},
	"Cu":       {"Cu", "Copper", 8960, 10.2, 3, 1358},
	"YBCO":     {"YBCO", "REBCO tape", 6200, 55, 1, 92},
	"Nb3Sn":    {"Nb3Sn", "Niobium-tin", 8900, 5, 1, 18},
	"NbTi":     {"NbTi", "Niobium-titanium", 6000, 2.5, 1, 10},
	"Concrete": {"Concrete", "Concrete", 2300, 0.013, 2, 573},
	"BFS":      {"BFS", "Borated ferritic steel", 7800, 30, 2, 823},
	"Inconel":  {"Inconel", "Inconel 718", 8440, 46, 3, 980},
	"Pb":       {"Pb", "Lead", 11340, 2.4, 1.5, 2022},
	"PbLi":     {"PbLi", "Lead-lithium eutectic", 9700, 5, 1.5, 1943},
	"V":        {"V", "Vanadium alloy", 6100, 220, 3, 2183},
}

// aliases maps lower-case names and long-form labels onto table codes.
var aliases = map[string]string{
	"ferritic steel":          "FS",
	"ferritic steel (fms)":    "FS",
	"fms":                     "FS",
	"ods steel":               "FS",
	"tungsten":                "W",
	"beryllium":               "Be",
	"lithium":                 "Li",
	"liquid lithium":          "Li",
	"stainless steel":         "SS316",
	"stainless steel (ss)":    "SS316",
	"ss":                      "SS316",
	"copper":                  "Cu",
	"rebco":                   "YBCO",
	"concrete":                "Concrete",
	"borated steel":           "BFS",
	"lead":                    "Pb",
	"lead-lithium":            "PbLi",
	"lithium-lead":            "PbLi",
	"vanadium":                "V",
	"silicon carbide":         "SiC",
	"flibe":                   "FLiBe",
	"solid breeder (li4sio4)": "Li4SiO4",
	"solid breeder (li2tio3)": "Li2TiO3",
}

// Resolve turns a code or alias into the canonical table code.
func Resolve(code string) (string, error) {
	c := strings.TrimSpace(code)
	if _, ok := table[c]; ok {
		return c, nil
	}
	lc := strings.ToLower(c)
	if canon, ok := aliases[lc]; ok {
		return canon, nil
	}
	for k := range table {
		if strings.ToLower(k) == lc {
			return k, nil
		}
	}
	return "", fmt.Errorf("material %q: %w", code, models.ErrUnknownMaterial)
}

// Get returns the material row for a code or alias.
func Get(code string) (Material, error) {
	canon, err := Resolve(code)
	if err != nil {
		return Material{}, err
	}
	return table[canon], nil
}

// Cost prices a volume of material.
//
// FORMULA: cost = V × ρ × c_raw × m / 1e6   [M$]
func Cost(code string, volume float64) (float64, error) {
	m, err := Get(code)
	if err != nil {
		return 0, err
	}
	if volume < 0 {
		return 0, fmt.Errorf("volume %.4g m³ for %s: %w", volume, m.Code, models.ErrInvalidGeometry)
	}
	return volume * m.UnitVolumeCost(), nil
}

// CostByMass prices a mass of material in M$ (used where designs quote areal masses).
func CostByMass(code string, kg float64) (float64, error) {
	m, err := Get(code)
	if err != nil {
		return 0, err
	}
	if kg < 0 {
		return 0, fmt.Errorf("mass %.4g kg for %s: %w", kg, m.Code, models.ErrConfiguration)
	}
	return kg * m.RawCostPerKg * m.ManufacturingMultiplier / 1e6, nil
}

// WithinTemperature reports whether the material may operate at tempK.
func WithinTemperature(code string, tempK float64) (bool, error) {
	m, err := Get(code)
	if err != nil {
		return false, err
	}
	return tempK <= m.MaxOperatingTempK, nil
}

// Codes lists the table codes in sorted order.
func Codes() []string {
	codes := make([]string, 0, len(table))
	for k := range table {
		codes = append(codes, k)
	}
	sort.Strings(codes)
	return codes
}

// All returns every material sorted by code.
func All() []Material {
	out := make([]Material, 0, len(table))
	for _, c := range Codes() {
		out = append(out, table[c])
	}
	return out
}
