package scenario

import (
	"fmt"
	"strings"
	"time"

	"fusion_costing/pkg/core/costing"
	"fusion_costing/pkg/core/finance"
	"fusion_costing/pkg/core/geometry"
	"fusion_costing/pkg/core/power"
	"fusion_costing/pkg/core/qmodel"
	"fusion_costing/pkg/core/validate"
	"fusion_costing/pkg/models"

	"github.com/google/uuid"
)

// Result is the full output of one scenario run.
type Result struct {
	RunID     string    `json:"run_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Config    Config    `json:"config"`

	PowerBalance power.Result     `json:"power_balance"`
	Volumes      geometry.Volumes `json:"volumes"`

	Costs        map[string]float64  `json:"costs"`
	CostTree     *costing.Node       `json:"cost_tree"`
	TotalEPC     float64             `json:"total_epc_cost"`
	TotalCapital float64             `json:"total_capital_cost"`
	CostPerKW    float64             `json:"cost_per_kw"`
	EPCPerKW     float64             `json:"epc_per_kw"`
	AnnualCosts  costing.AnnualCosts `json:"annual_costs"`

	Region       string               `json:"region"`
	WACC         *finance.WACCResult  `json:"wacc,omitempty"`
	FinanceInput finance.Config       `json:"finance_input"`
	Cashflow     []finance.YearRecord `json:"cashflow"`
	Financial    finance.Metrics      `json:"financial"`

	Linkage  validate.LinkageReport `json:"linkage"`
	Warnings []string               `json:"warnings,omitempty"`
}

// Breakdown rebuilds the costing view of the result.
func (r *Result) Breakdown() costing.Breakdown {
	tech, _ := models.ParseTechnology(r.Config.ReactorType)
	return costing.Breakdown{
		Technology:   tech,
		Tree:         r.CostTree,
		Costs:        r.Costs,
		TotalEPC:     r.TotalEPC,
		TotalCapital: r.TotalCapital,
		CostPerKW:    r.CostPerKW,
		EPCPerKW:     r.EPCPerKW,
		Annual:       r.AnnualCosts,
	}
}

// Check re-runs the cross-result linkage on a stored result.
func (r *Result) Check() validate.LinkageReport {
	fr := finance.Result{Schedule: r.Cashflow, Metrics: r.Financial}
	return validate.CheckLinkage(r.PowerBalance, r.Breakdown(), r.FinanceInput, fr)
}

// tags are the parsed technology choices of a config.
type tags struct {
	tech     models.Technology
	topo     models.Topology
	fuel     models.FuelType
	magnet   models.MagnetTechnology
	strategy power.Strategy
}

func parseTags(c Config) (tags, error) {
	var t tags
	var err error
	if t.tech, err = models.ParseTechnology(c.ReactorType); err != nil {
		return t, err
	}
	if t.topo, err = models.ParseTopology(c.Topology, t.tech); err != nil {
		return t, err
	}
	if t.fuel, err = models.ParseFuelType(c.FuelType); err != nil {
		return t, err
	}
	if t.magnet, err = models.ParseMagnetTechnology(c.MagnetTechnology); err != nil {
		return t, err
	}
	if t.strategy, err = power.ParseStrategy(c.PowerStrategy); err != nil {
		return t, err
	}
	if c.OverrideQEng {
		t.strategy = power.StrategyManual
	}
	return t, nil
}

// ResolveRegion returns the region for the config; an unmatched location falls
// back to the default region.
func ResolveRegion(c Config) finance.Region {
	name := c.Region
	if name == "" {
		name = finance.RegionForLocation(c.Location)
	}
	r, err := finance.LookupRegion(name)
	if err != nil {
		r, _ = finance.LookupRegion(DefaultRegion)
	}
	return r
}

// Evaluate runs one scenario end to end. est may be nil; it memoizes the
// literature Q curve across runs of a sweep.
func Evaluate(cfg Config, est *qmodel.Estimator) (*Result, error) {
	cfg = cfg.WithDefaults()
	start := time.Now()

	// 1. Validate everything before any computation
	report := cfg.Validate()
	if err := report.Err(); err != nil {
		return nil, err
	}
	t, err := parseTags(cfg)
	if err != nil {
		return nil, err
	}
	res := &Result{
		RunID:     uuid.New().String(),
		Name:      cfg.Name,
		CreatedAt: start.UTC(),
		Config:    cfg,
		Warnings:  report.WarningMessages(),
	}

	// 2. Geometry
	spec, err := cfg.RadialBuild(t.topo)
	if err != nil {
		return nil, err
	}
	if res.Volumes, err = geometry.Compute(spec); err != nil {
		return nil, err
	}

	// 3. Power balance
	pin := power.Inputs{
		Technology:            t.tech,
		Fuel:                  t.fuel,
		Magnet:                t.magnet,
		FusionPowerMW:         cfg.FusionPowerMW,
		QPlasma:               cfg.QPlasma,
		NeutronMultiplication: cfg.NeutronMultiplication,
		ThermalEfficiency:     cfg.ThermalEfficiency,
		RepRateHz:             cfg.RepRateHz,
		TargetGain:            cfg.TargetGain,
		DriverEfficiency:      cfg.DriverEfficiency,
		TargetNetMW:           cfg.TargetNetMW,
		ManualQEng:            cfg.ManualQEng,
	}
	if res.PowerBalance, err = power.Compute(pin, t.strategy, est); err != nil {
		return nil, err
	}
	for _, w := range res.PowerBalance.Warnings {
		res.Warnings = append(res.Warnings, "power_balance: "+w)
	}

	// 4. Region
	region := ResolveRegion(cfg)
	res.Region = region.Name
	regionalFactor := cfg.RegionalFactor
	if regionalFactor == 0 {
		regionalFactor = region.CostFactor
	}
	taxRate := region.TaxRate
	if cfg.TaxRate != nil {
		taxRate = *cfg.TaxRate
	}

	// 5. Discount rate
	discount := cfg.DiscountRate
	loanRate := cfg.LoanRate
	if loanRate == 0 {
		loanRate = finance.Config{}.WithDefaults().LoanRate
	}
	if cfg.DeriveDiscountRate {
		wacc, _, err := finance.DeriveDiscountRate(finance.DiscountRateInput{
			Region:       region.Name,
			RiskScenario: cfg.RiskScenario,
			DebtRatio:    *cfg.DebtRatio,
			CostOfDebt:   loanRate,
		})
		if err != nil {
			return nil, err
		}
		res.WACC = &wacc
		discount = wacc.WACC
	}
	if discount == 0 {
		discount = finance.Config{}.WithDefaults().DiscountRate
	}
	lifetime := *cfg.PlantLifetimeYears
	fixedOM := cfg.FixedOMPerMWYr
	if fixedOM == 0 {
		fixedOM = finance.Config{}.WithDefaults().FixedOMPerMWYr
	}

	// 6. Cost accounts
	breakdown, err := costing.Compute(costing.Input{
		Technology:        t.tech,
		Topology:          t.topo,
		Fuel:              t.fuel,
		Magnet:            t.magnet,
		Power:             res.PowerBalance,
		Volumes:           res.Volumes,
		Elongation:        cfg.Elongation,
		Materials:         cfg.MaterialChoice,
		RepRateHz:         cfg.RepRateHz,
		NOAK:              *cfg.NOAK,
		LSALevel:          cfg.LSALevel,
		ConstructionYears: float64(*cfg.ConstructionYears),
		CostIndex:         cfg.CostIndex,
		RegionalFactor:    regionalFactor,
		Annual: costing.AnnualInputs{
			DiscountRate:   discount,
			LifetimeYears:  lifetime,
			FixedOMPerKWYr: fixedOM / 1000,
			FuelPricePerKg: cfg.FuelPricePerKg,
			BurnKgPerGWYr:  cfg.BurnKgPerGWYr,
		},
	})
	if err != nil {
		return nil, err
	}
	res.Costs = breakdown.Costs
	res.CostTree = breakdown.Tree
	res.TotalEPC = breakdown.TotalEPC
	res.TotalCapital = breakdown.TotalCapital
	res.CostPerKW = breakdown.CostPerKW
	res.EPCPerKW = breakdown.EPCPerKW
	res.AnnualCosts = breakdown.Annual

	// 7. Cashflow
	decom := DecommissioningShare * breakdown.TotalCapital
	if cfg.Decommissioning != nil {
		decom = *cfg.Decommissioning
	}
	fc := finance.Config{
		CapitalCost:       breakdown.TotalCapital,
		NetPowerMW:        res.PowerBalance.PElectricNet,
		CapacityFactor:    *cfg.CapacityFactor,
		ConstructionYears: *cfg.ConstructionYears,
		LifetimeYears:     lifetime,
		DiscountRate:      discount,
		DebtRatio:         *cfg.DebtRatio,
		LoanRate:          loanRate,
		LoanTenorYears:    cfg.LoanTenorYears,
		GracePeriodYears:  *cfg.GracePeriodYears,
		Amortization:      finance.Amortization(cfg.Amortization),
		PowerPrice:        cfg.PowerPrice,
		PriceEscalation:   *cfg.PriceEscalation,
		RampUpYears:       *cfg.RampUpYears,
		RampUpRate:        cfg.RampUpRate,
		FixedOMPerMWYr:    fixedOM,
		VariableOMPerMWh:  cfg.VariableOMPerMWh,
		FuelCostPerYr:     breakdown.Annual.Fuel,
		Decommissioning:   decom,
		Salvage:           *cfg.Salvage,
		TaxRate:           taxRate,
		Depreciation:      finance.Depreciation(cfg.Depreciation),
		DepreciationYears: cfg.DepreciationYears,
		SpendCurve:        finance.SpendCurve(cfg.SpendCurve),
		SpendWeights:      cfg.SpendWeights,
	}.WithDefaults()
	fr, err := finance.Run(fc)
	if err != nil {
		return nil, err
	}
	res.FinanceInput = fc
	res.Cashflow = fr.Schedule
	res.Financial = fr.Metrics
	for _, f := range fr.Metrics.Flags {
		res.Warnings = append(res.Warnings, "financial: "+f)
	}

	// 8. Cross-check
	res.Linkage = validate.CheckLinkage(res.PowerBalance, breakdown, fc, fr)
	if !res.Linkage.AllPassed {
		return nil, fmt.Errorf("scenario %q failed linkage checks %s: %w",
			cfg.Name, strings.Join(res.Linkage.FailedChecks, ", "), models.ErrNumerical)
	}

	fmt.Printf("[SCENARIO] %s (%s/%s, %s): EPC %.0f M$, net %.1f MW, %d warnings in %v\n",
		displayName(cfg), t.tech, t.topo, t.strategy, res.TotalEPC, res.PowerBalance.PElectricNet,
		len(res.Warnings), time.Since(start))
	return res, nil
}

func displayName(c Config) string {
	if c.Name == "" {
		return "unnamed"
	}
	return c.Name
}
