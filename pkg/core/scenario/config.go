// Package scenario runs one plant configuration through the whole engine:
// geometry, power balance, cost accounts and the financial cashflow.
package scenario

import (
	"fmt"
	"strings"

	"fusion_costing/pkg/core/costing"
	"fusion_costing/pkg/core/finance"
	"fusion_costing/pkg/core/geometry"
	"fusion_costing/pkg/core/materials"
	"fusion_costing/pkg/core/power"
	"fusion_costing/pkg/core/validate"
	"fusion_costing/pkg/models"
)

// Config is the flat scenario file. Pointer fields distinguish "unset" from a
// meaningful zero (an all-equity plant, no escalation, no tax).
type Config struct {
	Name          string  `yaml:"name" json:"name"`
	ReactorType   string  `yaml:"reactor_type" json:"reactor_type"`
	Topology      string  `yaml:"topology" json:"topology"`
	FuelType      string  `yaml:"fuel_type" json:"fuel_type"`
	PowerStrategy string  `yaml:"power_strategy" json:"power_strategy"`
	FusionPowerMW float64 `yaml:"fusion_power_mw" json:"fusion_power_mw"`
	QPlasma       float64 `yaml:"q_plasma" json:"q_plasma"`
	TargetNetMW   float64 `yaml:"target_net_mw" json:"target_net_mw"`

	ThermalEfficiency     float64 `yaml:"thermal_efficiency" json:"thermal_efficiency"`
	NeutronMultiplication float64 `yaml:"neutron_multiplication" json:"neutron_multiplication"`
	RepRateHz             float64 `yaml:"rep_rate_hz" json:"rep_rate_hz"`
	TargetGain            float64 `yaml:"target_gain" json:"target_gain"`
	DriverEfficiency      float64 `yaml:"driver_efficiency" json:"driver_efficiency"`

	// Geometry (m)
	MajorRadius        float64 `yaml:"major_radius" json:"major_radius"`
	MinorRadius        float64 `yaml:"minor_radius" json:"minor_radius"`
	Elongation         float64 `yaml:"elongation" json:"elongation"`
	ChamberRadius      float64 `yaml:"chamber_radius" json:"chamber_radius"`
	ChamberLength      float64 `yaml:"chamber_length" json:"chamber_length"`
	PlasmaGapThickness float64 `yaml:"plasma_gap_thickness" json:"plasma_gap_thickness"`
	FirstWallThickness float64 `yaml:"first_wall_thickness" json:"first_wall_thickness"`
	BlanketThickness   float64 `yaml:"blanket_thickness" json:"blanket_thickness"`
	ShieldThickness    float64 `yaml:"shield_thickness" json:"shield_thickness"`
	FirstWallTempK     float64 `yaml:"first_wall_temp_k" json:"first_wall_temp_k"` // 0 skips the check

	costing.MaterialChoice `yaml:",inline"`
	MagnetTechnology       string `yaml:"magnet_technology" json:"magnet_technology"`

	NOAK         *bool   `yaml:"noak" json:"noak"`
	OverrideQEng bool    `yaml:"override_q_eng" json:"override_q_eng"`
	ManualQEng   float64 `yaml:"manual_q_eng" json:"manual_q_eng"`
	LSALevel     int     `yaml:"lsa_level" json:"lsa_level"`
	CostIndex    float64 `yaml:"cost_index" json:"cost_index"`

	// Location
	Region         string  `yaml:"region" json:"region"`
	Location       string  `yaml:"location" json:"location"`
	RegionalFactor float64 `yaml:"regional_factor" json:"regional_factor"`

	// Financial
	DiscountRate       float64   `yaml:"discount_rate" json:"discount_rate"`
	DeriveDiscountRate bool      `yaml:"derive_discount_rate" json:"derive_discount_rate"`
	RiskScenario       string    `yaml:"risk_scenario" json:"risk_scenario"`
	DebtRatio          *float64  `yaml:"debt_ratio" json:"debt_ratio"`
	LoanRate           float64   `yaml:"loan_rate" json:"loan_rate"`
	LoanTenorYears     int       `yaml:"loan_tenor_years" json:"loan_tenor_years"`
	GracePeriodYears   *int      `yaml:"grace_period_years" json:"grace_period_years"`
	Amortization       string    `yaml:"amortization" json:"amortization"`
	PowerPrice         float64   `yaml:"power_price" json:"power_price"`
	PriceEscalation    *float64  `yaml:"price_escalation" json:"price_escalation"`
	CapacityFactor     *float64  `yaml:"capacity_factor" json:"capacity_factor"`
	PlantLifetimeYears *int      `yaml:"plant_lifetime_years" json:"plant_lifetime_years"`
	ConstructionYears  *int      `yaml:"construction_years" json:"construction_years"`
	RampUpYears        *int      `yaml:"ramp_up_years" json:"ramp_up_years"`
	RampUpRate         float64   `yaml:"ramp_up_rate" json:"ramp_up_rate"`
	TaxRate            *float64  `yaml:"tax_rate" json:"tax_rate"`
	Depreciation       string    `yaml:"depreciation" json:"depreciation"`
	DepreciationYears  int       `yaml:"depreciation_years" json:"depreciation_years"`
	SpendCurve         string    `yaml:"spend_curve" json:"spend_curve"`
	SpendWeights       []float64 `yaml:"spend_weights" json:"spend_weights,omitempty"`
	FixedOMPerMWYr     float64   `yaml:"fixed_om_per_mw_yr" json:"fixed_om_per_mw_yr"`
	VariableOMPerMWh   float64   `yaml:"variable_om_per_mwh" json:"variable_om_per_mwh"`
	FuelPricePerKg     float64   `yaml:"fuel_price_per_kg" json:"fuel_price_per_kg"`
	BurnKgPerGWYr      float64   `yaml:"burn_kg_per_gw_yr" json:"burn_kg_per_gw_yr"`
	Decommissioning    *float64  `yaml:"decommissioning" json:"decommissioning"` // M$, default a share of TCC
	Salvage            *float64  `yaml:"salvage" json:"salvage"`                 // M$
}

// Defaults shared by every scenario.
const (
	DefaultRegion            = "North America"
	DefaultDebtRatio         = 0.70
	DefaultPriceEscalation   = 0.02
	DefaultGracePeriodYears  = 3
	DefaultConstructionYears = 6
	DefaultRampUpYears       = 3
	DefaultSalvage           = 10.0
	// DecommissioningShare of total capital cost is booked in the final year.
	DecommissioningShare = 0.065
)

// Reference builds per topology.
var (
	tokamakBuild = struct{ major, minor, elongation float64 }{3.3, 1.13, 1.84}
	mirrorBuild  = struct{ radius, length float64 }{1.0, 10.0}
	laserRadius  = 4.0
	layerBuild   = struct{ firstWall, blanket, shield float64 }{0.02, 0.8, 0.5}
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }
func boolPtr(v bool) *bool        { return &v }

// WithDefaults returns a copy with every unset field filled. Region-dependent
// values (tax rate, regional factor) are resolved later, in Evaluate.
func (c Config) WithDefaults() Config {
	if c.ReactorType == "" {
		c.ReactorType = string(models.TechMFE)
	}
	if c.PowerStrategy == "" {
		c.PowerStrategy = string(power.StrategyPhysics)
	}
	if c.FuelType == "" {
		c.FuelType = string(models.FuelDT)
	}
	if c.MagnetTechnology == "" {
		c.MagnetTechnology = string(models.MagnetHTS)
	}

	tech, _ := models.ParseTechnology(c.ReactorType)
	if c.Topology == "" {
		c.Topology = string(models.DefaultTopology(tech))
	}
	switch models.Topology(strings.ToLower(c.Topology)) {
	case models.TopologyTokamak:
		if c.MajorRadius == 0 {
			c.MajorRadius = tokamakBuild.major
		}
		if c.MinorRadius == 0 {
			c.MinorRadius = tokamakBuild.minor
		}
		if c.Elongation == 0 {
			c.Elongation = tokamakBuild.elongation
		}
	case models.TopologyMirror:
		if c.ChamberRadius == 0 {
			c.ChamberRadius = mirrorBuild.radius
		}
		if c.ChamberLength == 0 {
			c.ChamberLength = mirrorBuild.length
		}
	case models.TopologyLaser:
		if c.ChamberRadius == 0 {
			c.ChamberRadius = laserRadius
		}
	}
	if c.FirstWallThickness == 0 {
		c.FirstWallThickness = layerBuild.firstWall
	}
	if c.BlanketThickness == 0 {
		c.BlanketThickness = layerBuild.blanket
	}
	if c.ShieldThickness == 0 {
		c.ShieldThickness = layerBuild.shield
	}

	if c.NOAK == nil {
		c.NOAK = boolPtr(true)
	}
	if c.Region == "" && c.Location == "" {
		c.Region = DefaultRegion
	}
	if c.DebtRatio == nil {
		c.DebtRatio = floatPtr(DefaultDebtRatio)
	}
	if c.PriceEscalation == nil {
		c.PriceEscalation = floatPtr(DefaultPriceEscalation)
	}
	if c.GracePeriodYears == nil {
		c.GracePeriodYears = intPtr(DefaultGracePeriodYears)
	}
	if c.ConstructionYears == nil {
		c.ConstructionYears = intPtr(DefaultConstructionYears)
	}
	if c.RampUpYears == nil {
		c.RampUpYears = intPtr(DefaultRampUpYears)
	}
	if c.Salvage == nil {
		c.Salvage = floatPtr(DefaultSalvage)
	}
	if c.CapacityFactor == nil {
		c.CapacityFactor = floatPtr(finance.DefaultCapacityFactor)
	}
	if c.PlantLifetimeYears == nil {
		c.PlantLifetimeYears = intPtr(finance.DefaultLifetimeYears)
	}
	return c
}

// Validate checks every parameter and reports all findings at once.
// It assumes defaults were applied.
func (c Config) Validate() *validate.Report {
	r := validate.NewReport()

	// 1. Technology tags
	tech, err := models.ParseTechnology(c.ReactorType)
	r.Check("reactor_type", err)
	if err == nil {
		_, err := models.ParseTopology(c.Topology, tech)
		r.Check("topology", err)
	}
	_, err = models.ParseFuelType(c.FuelType)
	r.Check("fuel_type", err)
	_, err = models.ParseMagnetTechnology(c.MagnetTechnology)
	r.Check("magnet_technology", err)
	_, err = power.ParseStrategy(c.PowerStrategy)
	r.Check("power_strategy", err)

	// 2. Power
	r.Positive("fusion_power_mw", c.FusionPowerMW)
	r.NonNegative("q_plasma", c.QPlasma)
	r.NonNegative("target_net_mw", c.TargetNetMW)
	r.Between("thermal_efficiency", c.ThermalEfficiency, 0, 1)
	r.Between("driver_efficiency", c.DriverEfficiency, 0, 1)
	if c.OverrideQEng {
		r.Positive("manual_q_eng", c.ManualQEng)
	} else if c.ManualQEng != 0 {
		r.AddWarning("manual_q_eng", "ignored without override_q_eng")
	}
	if c.TargetNetMW > 0 && c.PowerStrategy != string(power.StrategyLiterature) {
		r.AddWarning("target_net_mw", "only used by the literature strategy")
	}

	// 3. Geometry
	switch models.Topology(strings.ToLower(c.Topology)) {
	case models.TopologyTokamak:
		r.PositiveAs(models.ErrInvalidGeometry, "major_radius", c.MajorRadius)
		r.PositiveAs(models.ErrInvalidGeometry, "minor_radius", c.MinorRadius)
		r.PositiveAs(models.ErrInvalidGeometry, "elongation", c.Elongation)
	case models.TopologyMirror:
		r.PositiveAs(models.ErrInvalidGeometry, "chamber_radius", c.ChamberRadius)
		r.PositiveAs(models.ErrInvalidGeometry, "chamber_length", c.ChamberLength)
	case models.TopologyLaser:
		r.PositiveAs(models.ErrInvalidGeometry, "chamber_radius", c.ChamberRadius)
	}
	r.NonNegativeAs(models.ErrInvalidGeometry, "plasma_gap_thickness", c.PlasmaGapThickness)
	r.NonNegativeAs(models.ErrInvalidGeometry, "first_wall_thickness", c.FirstWallThickness)
	r.NonNegativeAs(models.ErrInvalidGeometry, "blanket_thickness", c.BlanketThickness)
	r.NonNegativeAs(models.ErrInvalidGeometry, "shield_thickness", c.ShieldThickness)

	r.NonNegative("first_wall_temp_k", c.FirstWallTempK)
	if c.FirstWallTempK > 0 {
		// unknown codes are reported by the cost accounts
		for _, code := range []string{orCode(c.FirstWallArmor, "W"), orCode(c.Structure, "FS")} {
			if ok, err := materials.WithinTemperature(code, c.FirstWallTempK); err == nil && !ok {
				r.AddWarning("first_wall_temp_k",
					fmt.Sprintf("%.0f K exceeds the operating limit of %s", c.FirstWallTempK, code))
			}
		}
	}

	// 4. Costing
	if c.LSALevel != 0 {
		r.Between("lsa_level", float64(c.LSALevel), 1, 4)
	}
	r.NonNegative("cost_index", c.CostIndex)
	r.NonNegative("regional_factor", c.RegionalFactor)
	if c.Region != "" {
		_, err := finance.LookupRegion(c.Region)
		r.Check("region", err)
	}
	if c.Location != "" && finance.RegionForLocation(c.Location) == finance.RegionUnknown {
		r.AddWarning("location", "no region matches; using North America rates and a cost factor of 1")
	}

	// 5. Financial
	r.Between("debt_ratio", *c.DebtRatio, 0, 1)
	if c.DeriveDiscountRate && *c.DebtRatio >= 1 {
		r.AddError("debt_ratio", "must be below 1 to derive a discount rate", *c.DebtRatio, "[0, 1)")
	}
	r.NonNegative("loan_rate", c.LoanRate)
	r.NonNegative("loan_tenor_years", float64(c.LoanTenorYears))
	r.NonNegative("grace_period_years", float64(*c.GracePeriodYears))
	r.OneOf("amortization", c.Amortization, string(finance.AmortAnnuity), string(finance.AmortEqualPrincipal))
	r.NonNegative("power_price", c.PowerPrice)
	r.Positive("capacity_factor", *c.CapacityFactor)
	if *c.CapacityFactor > 1 {
		r.AddError("capacity_factor", "out of range", *c.CapacityFactor, "(0, 1]")
	}
	r.Positive("plant_lifetime_years", float64(*c.PlantLifetimeYears))
	r.NonNegative("construction_years", float64(*c.ConstructionYears))
	r.NonNegative("ramp_up_years", float64(*c.RampUpYears))
	r.NonNegative("ramp_up_rate", c.RampUpRate)
	if c.TaxRate != nil {
		r.Between("tax_rate", *c.TaxRate, 0, 0.99)
	}
	r.OneOf("depreciation", c.Depreciation,
		string(finance.DepStraightLine), string(finance.DepHalfYear), string(finance.DepMACRS20))
	r.NonNegative("depreciation_years", float64(c.DepreciationYears))
	r.OneOf("spend_curve", c.SpendCurve,
		string(finance.SpendSCurve), string(finance.SpendUniform), string(finance.SpendCustom))
	r.NonNegative("fixed_om_per_mw_yr", c.FixedOMPerMWYr)
	r.NonNegative("variable_om_per_mwh", c.VariableOMPerMWh)
	r.NonNegative("fuel_price_per_kg", c.FuelPricePerKg)
	r.NonNegative("burn_kg_per_gw_yr", c.BurnKgPerGWYr)
	if c.Decommissioning != nil {
		r.NonNegative("decommissioning", *c.Decommissioning)
	}
	r.NonNegative("salvage", *c.Salvage)

	return r
}

func orCode(code, def string) string {
	if code == "" {
		return def
	}
	return code
}

// RadialBuild maps the flat geometry keys onto a radial build for the topology.
func (c Config) RadialBuild(topo models.Topology) (geometry.RadialBuildSpec, error) {
	shape, err := geometry.ShapeFor(topo)
	if err != nil {
		return geometry.RadialBuildSpec{}, err
	}
	spec := geometry.RadialBuildSpec{Shape: shape}
	switch shape {
	case geometry.Toroidal:
		spec.BaseRadius = c.MinorRadius
		spec.MajorRadius = c.MajorRadius
		spec.Elongation = c.Elongation
	case geometry.Cylindrical:
		spec.BaseRadius = c.ChamberRadius
		spec.Length = c.ChamberLength
	case geometry.Spherical:
		spec.BaseRadius = c.ChamberRadius
	}
	if c.PlasmaGapThickness > 0 {
		spec.Layers = append(spec.Layers, geometry.Layer{Name: geometry.LayerPlasmaGap, Thickness: c.PlasmaGapThickness})
	}
	spec.Layers = append(spec.Layers,
		geometry.Layer{Name: geometry.LayerFirstWall, Thickness: c.FirstWallThickness},
		geometry.Layer{Name: geometry.LayerBlanket, Thickness: c.BlanketThickness},
		geometry.Layer{Name: geometry.LayerShield, Thickness: c.ShieldThickness},
	)
	return spec, nil
}
