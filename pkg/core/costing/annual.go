package costing

import (
	"fmt"

	"fusion_costing/pkg/core/finance"
	"fusion_costing/pkg/models"
)

// AnnualInputs drive the annualized accounts 70, 80 and 90.
type AnnualInputs struct {
	DiscountRate   float64 `json:"discount_rate"`
	LifetimeYears  int     `json:"lifetime_years"`
	FixedOMPerKWYr float64 `json:"fixed_om_per_kw_yr"` // $/kW-yr
	FuelPricePerKg float64 `json:"fuel_price_per_kg"`  // $/kg
	BurnKgPerGWYr  float64 `json:"burn_kg_per_gw_yr"`  // kg/yr at 1 GW fusion
}

// WithDefaults fills unset fields.
func (a AnnualInputs) WithDefaults() AnnualInputs {
	if a.DiscountRate == 0 {
		a.DiscountRate = 0.07
	}
	if a.LifetimeYears == 0 {
		a.LifetimeYears = 30
	}
	if a.FixedOMPerKWYr == 0 {
		a.FixedOMPerKWYr = 60
	}
	if a.FuelPricePerKg == 0 {
		a.FuelPricePerKg = 10000
	}
	if a.BurnKgPerGWYr == 0 {
		a.BurnKgPerGWYr = 150
	}
	return a
}

// Validate checks ranges; it assumes defaults were applied.
func (a AnnualInputs) Validate() error {
	switch {
	case a.DiscountRate <= -1:
		return fmt.Errorf("discount_rate %.4g must exceed -1: %w", a.DiscountRate, models.ErrConfiguration)
	case a.LifetimeYears <= 0:
		return fmt.Errorf("lifetime %d years must be positive: %w", a.LifetimeYears, models.ErrConfiguration)
	case a.FixedOMPerKWYr < 0, a.FuelPricePerKg < 0, a.BurnKgPerGWYr < 0:
		return fmt.Errorf("annual cost rates must be non-negative: %w", models.ErrNegativeCost)
	}
	return nil
}

// AnnualCosts are yearly M$ figures outside the capital tree.
type AnnualCosts struct {
	OperationsMaintenance float64 `json:"om"`             // 70
	Fuel                  float64 `json:"fuel"`           // 80
	CapitalCharge         float64 `json:"capital_charge"` // 90
	CRF                   float64 `json:"crf"`
	Total                 float64 `json:"total"`
}

// Annualize prices the yearly accounts for a plant.
//
// FORMULA: 70 = om × P_net[kW]; 80 = price × burn × P_fus/1000; 90 = CRF × TCC
func Annualize(a AnnualInputs, tcc, netMW, fusionMW float64) (AnnualCosts, error) {
	a = a.WithDefaults()
	if err := a.Validate(); err != nil {
		return AnnualCosts{}, err
	}
	out := AnnualCosts{
		OperationsMaintenance: a.FixedOMPerKWYr * netMW * 1000 / 1e6,
		Fuel:                  a.FuelPricePerKg * a.BurnKgPerGWYr * fusionMW / 1000 / 1e6,
		CRF:                   finance.CRF(a.DiscountRate, a.LifetimeYears),
	}
	out.CapitalCharge = out.CRF * tcc
	out.Total = out.OperationsMaintenance + out.Fuel + out.CapitalCharge
	return out, nil
}

// Annual returns the annualized accounts keyed by code.
func (c AnnualCosts) Annual() map[string]float64 {
	return map[string]float64{
		CodeAnnualOM:      c.OperationsMaintenance,
		CodeAnnualFuel:    c.Fuel,
		CodeAnnualCapital: c.CapitalCharge,
	}
}
