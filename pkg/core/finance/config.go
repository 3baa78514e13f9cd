// Package finance turns a capital cost and a plant output into a yearly
// cashflow schedule and the lender and investor metrics derived from it.
//
// Money is in M$; prices are $/MWh; energy is MWh.
package finance

import (
	"fmt"
	"math"

	"fusion_costing/pkg/models"
)

// SpendCurve shapes capex across construction years.
type SpendCurve string

const (
	SpendSCurve  SpendCurve = "s_curve"
	SpendUniform SpendCurve = "uniform"
	SpendCustom  SpendCurve = "custom" // explicit SpendWeights
)

// Amortization selects the repayment profile after the grace period.
type Amortization string

const (
	AmortAnnuity        Amortization = "annuity"
	AmortEqualPrincipal Amortization = "equal_principal"
)

// Depreciation selects the tax depreciation schedule.
type Depreciation string

const (
	DepStraightLine Depreciation = "straight_line"
	DepHalfYear     Depreciation = "half_year"
	DepMACRS20      Depreciation = "macrs20"
)

// Config holds every financial assumption for one plant.
type Config struct {
	CapitalCost       float64 `json:"capital_cost"`  // M$, overnight
	NetPowerMW        float64 `json:"net_power_mw"`  // MW electric
	CapacityFactor    float64 `json:"capacity_factor"`
	ConstructionYears int     `json:"construction_years"`
	LifetimeYears     int     `json:"lifetime_years"`
	DiscountRate      float64 `json:"discount_rate"`

	// Debt. DebtRatio 0 is an all-equity plant.
	DebtRatio        float64      `json:"debt_ratio"`
	LoanRate         float64      `json:"loan_rate"`
	LoanTenorYears   int          `json:"loan_tenor_years"`
	GracePeriodYears int          `json:"grace_period_years"` // interest-only years after COD
	Amortization     Amortization `json:"amortization"`

	// Revenue
	PowerPrice      float64 `json:"power_price"`      // $/MWh
	PriceEscalation float64 `json:"price_escalation"` // per year, applied to prices and O&M
	RampUpYears     int     `json:"ramp_up_years"`
	RampUpRate      float64 `json:"ramp_up_rate"` // output fraction gained per ramp year

	// Operating costs
	FixedOMPerMWYr   float64 `json:"fixed_om_per_mw_yr"`  // $/MW-yr
	VariableOMPerMWh float64 `json:"variable_om_per_mwh"` // $/MWh
	FuelCostPerYr    float64 `json:"fuel_cost_per_yr"`    // M$/yr at full output
	Decommissioning  float64 `json:"decommissioning"`     // M$, final year
	Salvage          float64 `json:"salvage"`             // M$, final year

	// Tax
	TaxRate           float64      `json:"tax_rate"`
	Depreciation      Depreciation `json:"depreciation"`
	DepreciationYears int          `json:"depreciation_years"`

	SpendCurve   SpendCurve `json:"spend_curve"`
	SpendWeights []float64  `json:"spend_weights,omitempty"`
}

// Reference plant values. Callers that treat capacity factor and lifetime as
// optional fill them from these; Run never does, since zero is invalid for both.
const (
	DefaultCapacityFactor = 0.90
	DefaultLifetimeYears  = 30
)

// WithDefaults fills unset fields. DebtRatio, PriceEscalation, TaxRate and the
// final-year items are left alone because zero is meaningful for them;
// CapacityFactor and LifetimeYears are left alone so that zero fails Validate.
func (c Config) WithDefaults() Config {
	if c.DiscountRate == 0 {
		c.DiscountRate = 0.07
	}
	if c.LoanRate == 0 {
		c.LoanRate = 0.055
	}
	if c.LoanTenorYears == 0 {
		c.LoanTenorYears = 20
	}
	if c.Amortization == "" {
		c.Amortization = AmortAnnuity
	}
	if c.PowerPrice == 0 {
		c.PowerPrice = 100
	}
	if c.FixedOMPerMWYr == 0 {
		c.FixedOMPerMWYr = 60000
	}
	if c.VariableOMPerMWh == 0 {
		c.VariableOMPerMWh = 2.7
	}
	if c.RampUpRate == 0 {
		c.RampUpRate = 0.33
	}
	if c.Depreciation == "" {
		c.Depreciation = DepStraightLine
	}
	if c.DepreciationYears == 0 {
		c.DepreciationYears = 20
	}
	if c.SpendCurve == "" {
		c.SpendCurve = SpendSCurve
		if len(c.SpendWeights) > 0 {
			c.SpendCurve = SpendCustom
		}
	}
	return c
}

// Validate rejects a config before any schedule is built.
func (c Config) Validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf(format+": %w", append(args, models.ErrConfiguration)...)
	}
	switch {
	case c.CapitalCost < 0 || math.IsNaN(c.CapitalCost):
		return bad("capital cost %.4g M$ negative", c.CapitalCost)
	case c.NetPowerMW < 0:
		return bad("net power %.4g MW negative", c.NetPowerMW)
	case c.LifetimeYears <= 0:
		return bad("plant lifetime %d years must be positive", c.LifetimeYears)
	case c.ConstructionYears < 0:
		return bad("construction years %d negative", c.ConstructionYears)
	case c.CapacityFactor <= 0 || c.CapacityFactor > 1:
		return bad("capacity factor %.4g outside (0,1]", c.CapacityFactor)
	case c.DebtRatio < 0 || c.DebtRatio > 1:
		return bad("debt ratio %.4g outside [0,1]", c.DebtRatio)
	case c.DiscountRate <= -1:
		return bad("discount rate %.4g must exceed -1", c.DiscountRate)
	case c.DebtRatio > 0 && c.LoanTenorYears <= 0:
		return bad("loan tenor %d years must be positive with debt", c.LoanTenorYears)
	case c.LoanRate < 0:
		return bad("loan rate %.4g negative", c.LoanRate)
	case c.GracePeriodYears < 0:
		return bad("grace period %d years negative", c.GracePeriodYears)
	case c.TaxRate < 0 || c.TaxRate >= 1:
		return bad("tax rate %.4g outside [0,1)", c.TaxRate)
	case c.RampUpYears < 0 || c.RampUpRate < 0:
		return bad("ramp-up %d years at %.4g negative", c.RampUpYears, c.RampUpRate)
	case c.FixedOMPerMWYr < 0 || c.VariableOMPerMWh < 0 || c.FuelCostPerYr < 0 || c.Decommissioning < 0 || c.Salvage < 0:
		return fmt.Errorf("operating cost inputs must be non-negative: %w", models.ErrNegativeCost)
	case c.DepreciationYears <= 0:
		return bad("depreciation years %d must be positive", c.DepreciationYears)
	}
	switch c.Amortization {
	case AmortAnnuity, AmortEqualPrincipal:
	default:
		return bad("amortization %q", c.Amortization)
	}
	switch c.Depreciation {
	case DepStraightLine, DepHalfYear, DepMACRS20:
	default:
		return bad("depreciation %q", c.Depreciation)
	}
	if _, err := spendWeights(c); err != nil {
		return err
	}
	return nil
}
