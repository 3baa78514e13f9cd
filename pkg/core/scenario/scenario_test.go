package scenario

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"fusion_costing/pkg/core/costing"
	"fusion_costing/pkg/core/finance"
	"fusion_costing/pkg/core/power"
	"fusion_costing/pkg/core/qmodel"
	"fusion_costing/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func within(t *testing.T, want, got, pct float64, msg string) {
	t.Helper()
	if math.Abs(got-want) > want*pct {
		t.Errorf("%s: got %.3f, want %.3f ±%.0f%%", msg, got, want, pct*100)
	}
}

// scenarioA is the 500 MW DT HTS tokamak priced with the physics strategy.
func scenarioA() Config {
	return Config{
		Name:             "scenario-a",
		ReactorType:      "MFE",
		Topology:         "tokamak",
		FuelType:         "DT",
		FusionPowerMW:    500,
		MagnetTechnology: "HTS",
		NOAK:             boolPtr(true),
	}
}

func scenarioB(strategy power.Strategy) Config {
	return Config{
		Name:          "scenario-b",
		ReactorType:   "IFE",
		Topology:      "laser",
		FuelType:      "DT",
		PowerStrategy: string(strategy),
		FusionPowerMW: 1000,
	}
}

func TestEvaluate_ScenarioA(t *testing.T) {
	res, err := Evaluate(scenarioA(), nil)
	require.NoError(t, err)

	within(t, 3.47, res.PowerBalance.QEng, 0.05, "Q_eng")
	within(t, 3300, res.TotalEPC, 0.10, "EPC M$")
	within(t, 19000, res.CostPerKW, 0.10, "TCC $/kW")

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, DefaultRegion, res.Region)
	assert.True(t, res.Linkage.AllPassed)
	assert.Equal(t, res.TotalCapital, res.FinanceInput.CapitalCost)
	assert.Equal(t, res.AnnualCosts.Fuel, res.FinanceInput.FuelCostPerYr)
	assert.InDelta(t, DecommissioningShare*res.TotalCapital, res.FinanceInput.Decommissioning, 1e-9)
	assert.Len(t, res.Cashflow, DefaultConstructionYears+30)
	require.NotNil(t, res.Financial.LCOE)
	assert.Greater(t, *res.Financial.LCOE, 0.0)
}

func TestEvaluate_ScenarioB(t *testing.T) {
	for _, s := range []power.Strategy{power.StrategyPhysics, power.StrategyLiterature} {
		t.Run(string(s), func(t *testing.T) {
			res, err := Evaluate(scenarioB(s), qmodel.NewEstimator(qmodel.NewMapCache()))
			require.NoError(t, err)

			assert.Equal(t, s, res.PowerBalance.Strategy)
			assert.GreaterOrEqual(t, res.PowerBalance.QEng, 3.6)
			assert.LessOrEqual(t, res.PowerBalance.QEng, 5.9)
			assert.Greater(t, res.TotalEPC, 2000.0)
			assert.Less(t, res.TotalEPC, 6000.0)
			assert.Contains(t, res.Costs, costing.CodeDriver)
			assert.NotContains(t, res.Costs, costing.CodeMagnets)
		})
	}
}

func TestEvaluate_ScenarioC(t *testing.T) {
	est := qmodel.NewEstimator(qmodel.NewMapCache())
	for size, want := range map[float64]float64{100: 1.5, 500: 4.0, 1000: 5.0} {
		cfg := scenarioA()
		cfg.PowerStrategy = string(power.StrategyLiterature)
		cfg.TargetNetMW = size

		res, err := Evaluate(cfg, est)
		require.NoError(t, err)
		within(t, want, res.PowerBalance.QEng, 0.05, "literature Q_eng")
		assert.InDelta(t, (1-1/res.PowerBalance.QEng)*res.PowerBalance.PElectricGross, res.PowerBalance.PElectricNet, 1e-9)
	}
	assert.Equal(t, 3, est.Stats().Size)
}

func TestEvaluate_OverrideQEng(t *testing.T) {
	cfg := scenarioA()
	cfg.OverrideQEng = true
	cfg.ManualQEng = 100

	res, err := Evaluate(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, power.StrategyManual, res.PowerBalance.Strategy)
	assert.Equal(t, qmodel.QMax(models.TechMFE), res.PowerBalance.QEng)
	assert.Contains(t, res.Warnings, "power_balance: "+qmodel.WarnClamped)
}

func TestEvaluate_RegionAndDiscountRate(t *testing.T) {
	base, err := Evaluate(scenarioA(), nil)
	require.NoError(t, err)

	cfg := scenarioA()
	cfg.Region = ""
	cfg.Location = "Cadarache, France"
	cfg.DeriveDiscountRate = true
	res, err := Evaluate(cfg, nil)
	require.NoError(t, err)

	europe, err := finance.LookupRegion("Europe")
	require.NoError(t, err)
	assert.Equal(t, "Europe", res.Region)
	assert.Equal(t, europe.TaxRate, res.FinanceInput.TaxRate)
	require.NotNil(t, res.WACC)
	assert.Equal(t, res.WACC.WACC, res.FinanceInput.DiscountRate)
	assert.Greater(t, res.TotalEPC, base.TotalEPC)

	zero := 0.0
	cfg = scenarioA()
	cfg.TaxRate = &zero
	cfg.DebtRatio = &zero
	res, err = Evaluate(cfg, nil)
	require.NoError(t, err)
	assert.Zero(t, res.FinanceInput.TaxRate)
	assert.Zero(t, res.FinanceInput.DebtRatio)
	for _, y := range res.Cashflow {
		assert.Zero(t, y.Taxes)
		assert.Zero(t, y.DebtService)
	}
}

func TestEvaluate_MirrorTopology(t *testing.T) {
	cfg := scenarioA()
	cfg.Topology = "mirror"
	res, err := Evaluate(cfg, nil)
	require.NoError(t, err)
	assert.Zero(t, res.Costs[costing.CodeCSCoils])
	assert.Equal(t, 10.0, res.Config.ChamberLength)
}

func TestEvaluate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"no fusion power", func(c *Config) { c.FusionPowerMW = 0 }, models.ErrConfiguration},
		{"laser on MFE", func(c *Config) { c.Topology = "laser" }, models.ErrConfiguration},
		{"unknown fuel", func(c *Config) { c.FuelType = "DLi6" }, models.ErrUnknownTechnology},
		{"unknown magnet", func(c *Config) { c.MagnetTechnology = "aluminium" }, models.ErrUnknownTechnology},
		{"bad strategy", func(c *Config) { c.PowerStrategy = "guess" }, models.ErrConfiguration},
		{"unknown region", func(c *Config) { c.Region = "Atlantis" }, models.ErrConfiguration},
		{"negative thickness", func(c *Config) { c.ShieldThickness = -0.1 }, models.ErrInvalidGeometry},
		{"negative minor radius", func(c *Config) { c.MinorRadius = -1 }, models.ErrInvalidGeometry},
		{"zero capacity factor", func(c *Config) { c.CapacityFactor = floatPtr(0) }, models.ErrConfiguration},
		{"capacity factor above one", func(c *Config) { c.CapacityFactor = floatPtr(1.2) }, models.ErrConfiguration},
		{"zero lifetime", func(c *Config) { c.PlantLifetimeYears = intPtr(0) }, models.ErrConfiguration},
		{"torus overlaps axis", func(c *Config) { c.MajorRadius = 2.0 }, models.ErrInvalidGeometry},
		{"unknown structure", func(c *Config) { c.Structure = "unobtainium" }, models.ErrUnknownMaterial},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := scenarioA()
			tt.mutate(&cfg)
			res, err := Evaluate(cfg, nil)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestValidate_ReportsEveryFinding(t *testing.T) {
	cfg := scenarioA()
	cfg.FusionPowerMW = -1
	cfg.CapacityFactor = floatPtr(1.5)
	cfg.SpendCurve = "linear"
	cfg.ManualQEng = 3
	r := cfg.WithDefaults().Validate()

	assert.False(t, r.Valid)
	assert.Len(t, r.Errors, 3)
	assert.Len(t, r.Warnings, 1)
	assert.Equal(t, "manual_q_eng", r.Warnings[0].Path)
}

func TestWithDefaults_KeepsMeaningfulZeros(t *testing.T) {
	zero, none := 0.0, 0
	cfg := Config{DebtRatio: &zero, PriceEscalation: &zero, ConstructionYears: &none}.WithDefaults()

	assert.Zero(t, *cfg.DebtRatio)
	assert.Zero(t, *cfg.PriceEscalation)
	assert.Zero(t, *cfg.ConstructionYears)
	assert.Equal(t, DefaultGracePeriodYears, *cfg.GracePeriodYears)
	assert.Equal(t, finance.DefaultCapacityFactor, *cfg.CapacityFactor)
	assert.Equal(t, finance.DefaultLifetimeYears, *cfg.PlantLifetimeYears)
	assert.Equal(t, "tokamak", cfg.Topology)
	assert.Equal(t, 3.3, cfg.MajorRadius)
}

func TestResult_SurvivesJSONRoundTrip(t *testing.T) {
	res, err := Evaluate(scenarioA(), nil)
	require.NoError(t, err)

	data, err := json.Marshal(res)
	require.NoError(t, err)
	var back Result
	require.NoError(t, json.Unmarshal(data, &back))

	assert.Equal(t, res.RunID, back.RunID)
	assert.Equal(t, res.TotalEPC, back.TotalEPC)
	lr := back.Check()
	assert.True(t, lr.AllPassed, "failed: %v", lr.FailedChecks)
}

// =============================================================================
// LOADING
// =============================================================================

const yamlScenario = `
name: yaml-tokamak
reactor_type: MFE
topology: tokamak
fusion_power_mw: 500
first_wall_armor: tungsten
blanket_type: PbLi
magnet_technology: HTS REBCO
debt_ratio: 0
region: Europe
`

const hjsonScenario = `{
  # laser plant
  reactor_type: IFE
  fusion_power_mw: 1000
  power_strategy: literature
}`

const jsonScenario = `{"reactor_type": "MFE", "fusion_power_mw": 500, "structure_material": "FS", "noak": false,}`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Formats(t *testing.T) {
	cfg, err := Load(writeFile(t, "a.yaml", yamlScenario))
	require.NoError(t, err)
	assert.Equal(t, "yaml-tokamak", cfg.Name)
	assert.Equal(t, "tungsten", cfg.FirstWallArmor)
	assert.Equal(t, "HTS REBCO", cfg.MagnetTechnology)
	require.NotNil(t, cfg.DebtRatio)
	assert.Zero(t, *cfg.DebtRatio)

	cfg, err = Load(writeFile(t, "laser.hjson", hjsonScenario))
	require.NoError(t, err)
	assert.Equal(t, "laser", cfg.Name)
	assert.Equal(t, "IFE", cfg.ReactorType)
	assert.Equal(t, "literature", cfg.PowerStrategy)

	cfg, err = Load(writeFile(t, "b.json", jsonScenario))
	require.NoError(t, err)
	assert.Equal(t, "FS", cfg.Structure)
	require.NotNil(t, cfg.NOAK)
	assert.False(t, *cfg.NOAK)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.yaml", "fusion_power_mw: [500"))
	assert.True(t, errors.Is(err, models.ErrConfiguration))
}

func TestLoad_EvaluatesYAML(t *testing.T) {
	cfg, err := Load(writeFile(t, "a.yml", yamlScenario))
	require.NoError(t, err)
	res, err := Evaluate(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "Europe", res.Region)
	assert.Zero(t, res.FinanceInput.DebtRatio)
}

func TestFormatFor(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFor("plant.YML"))
	assert.Equal(t, FormatHJSON, FormatFor("plant.hjson"))
	assert.Equal(t, FormatJSON, FormatFor("plant.json"))
	assert.Equal(t, FormatJSON, FormatFor("plant"))
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("FUSION_SWEEP_WORKERS", "3")
	t.Setenv("FUSION_Q_CACHE_SIZE", "not-a-number")
	t.Setenv("FUSION_API_ADDR", "")

	env := LoadEnv()
	assert.Equal(t, 3, env.SweepWorkers)
	assert.Equal(t, 4096, env.QCacheSize)
	assert.Equal(t, ":8080", env.APIAddr)
}

func TestValidate_FirstWallTemperature(t *testing.T) {
	cfg := Config{FusionPowerMW: 500, FirstWallTempK: 900}.WithDefaults()
	r := cfg.Validate()
	require.True(t, r.Valid)
	require.Len(t, r.Warnings, 1, "ferritic steel is limited to 823 K, tungsten is not")
	assert.Contains(t, r.Warnings[0].Message, "FS")

	cfg.Structure = "SiC"
	assert.Empty(t, cfg.Validate().Warnings)

	cfg.Structure = "unobtainium"
	assert.True(t, cfg.Validate().Valid, "unknown materials surface in the cost accounts")
}
