package finance

import (
	"fmt"
	"strings"

	"fusion_costing/pkg/models"
)

// Region carries the market and construction parameters of one region.
type Region struct {
	Name         string   `json:"name"`
	RiskFreeRate float64  `json:"risk_free_rate"` // 10-year government bond
	MarketReturn float64  `json:"market_return"`  // long-run average index return
	TaxRate      float64  `json:"tax_rate"`
	CostFactor   float64  `json:"cost_factor"` // construction cost relative to North America
	Keywords     []string `json:"-"`
}

// RegionUnknown is reported when no keyword matches a location.
const RegionUnknown = "Unknown"

// regions is ordered; the first keyword match wins (Mexico resolves to North America).
var regions = []Region{
	{"North America", 0.0440, 0.0586, 0.2559, 1.00, []string{"united states", "usa", "canada", "mexico", "north america"}},
	{"Europe", 0.0251, 0.0513, 0.2018, 1.15, []string{"france", "germany", "uk", "united kingdom", "italy", "spain", "netherlands", "norway", "sweden", "finland", "poland", "ukraine", "europe"}},
	{"MENA", 0.0606, 0.0662, 0.55, 0.70, []string{"saudi arabia", "uae", "egypt", "algeria", "morocco", "iran", "iraq", "jordan", "tunisia", "libya", "oman", "middle east", "mena"}},
	{"Southern Africa", 0.1006, 0.0994, 0.27, 0.55, []string{"south africa", "namibia", "botswana", "zimbabwe", "zambia", "southern africa"}},
	{"Sub-Saharan Africa", 0.1895, 0.0994, 0.2728, 0.45, []string{"nigeria", "kenya", "ghana", "tanzania", "ethiopia", "sub-saharan"}},
	{"China", 0.0164, 0.0364, 0.25, 0.65, []string{"china", "chinese"}},
	{"India", 0.0639, 0.1136, 0.15, 0.45, []string{"india"}},
	{"Southeast Asia", 0.0228, 0.0293, 0.23, 0.50, []string{"singapore", "thailand", "vietnam", "indonesia", "philippines", "malaysia", "southeast asia"}},
	{"Latin America", 0.1384, 0.0861, 0.2736, 0.60, []string{"brazil", "argentina", "chile", "peru", "colombia", "latin america"}},
	{"Russia & CIS", 0.1498, 0.0742, 0.25, 0.50, []string{"russia", "kazakhstan", "uzbekistan", "turkmenistan", "armenia", "cis"}},
	{"Oceania", 0.0419, 0.0416, 0.2438, 1.05, []string{"australia", "new zealand", "fiji", "papua new guinea", "oceania"}},
}

// Regions returns the regional table.
func Regions() []Region {
	return append([]Region(nil), regions...)
}

// LookupRegion finds a region by exact name (case-insensitive).
func LookupRegion(name string) (Region, error) {
	for _, r := range regions {
		if strings.EqualFold(r.Name, strings.TrimSpace(name)) {
			return r, nil
		}
	}
	return Region{}, fmt.Errorf("region %q: %w", name, models.ErrConfiguration)
}

// RegionForLocation maps free text such as "South of France" onto a region name.
func RegionForLocation(location string) string {
	loc := strings.ToLower(strings.TrimSpace(location))
	if loc == "" {
		return RegionUnknown
	}
	for _, r := range regions {
		if strings.EqualFold(r.Name, loc) {
			return r.Name
		}
	}
	for _, r := range regions {
		for _, k := range r.Keywords {
			if strings.Contains(loc, k) {
				return r.Name
			}
		}
	}
	return RegionUnknown
}

// RegionalCostFactor returns the construction cost factor for a location, 1.0 when unknown.
func RegionalCostFactor(location string) float64 {
	r, err := LookupRegion(RegionForLocation(location))
	if err != nil {
		return 1.0
	}
	return r.CostFactor
}

// =============================================================================
// DISCOUNT RATE
// =============================================================================

// UnleveredBeta returns the asset beta for a risk scenario; unknown falls back to base.
func UnleveredBeta(scenario string) float64 {
	switch strings.ToLower(scenario) {
	case "conservative":
		return 0.70
	case "aggressive":
		return 0.85
	}
	return 0.55
}

// DiscountRateInput selects the regional WACC inputs.
type DiscountRateInput struct {
	Region       string  `json:"region"`        // region name or free-text location
	RiskScenario string  `json:"risk_scenario"` // base, conservative, aggressive
	DebtRatio    float64 `json:"debt_ratio"`
	CostOfDebt   float64 `json:"cost_of_debt"` // pre-tax
}

// DeriveDiscountRate builds a regional WACC through CAPM and Hamada re-levering.
func DeriveDiscountRate(in DiscountRateInput) (WACCResult, Region, error) {
	region, err := LookupRegion(in.Region)
	if err != nil {
		region, err = LookupRegion(RegionForLocation(in.Region))
		if err != nil {
			return WACCResult{}, Region{}, err
		}
	}
	if in.DebtRatio < 0 || in.DebtRatio >= 1 {
		return WACCResult{}, region, fmt.Errorf("debt_ratio %.4g must be in [0,1) to derive a WACC: %w", in.DebtRatio, models.ErrConfiguration)
	}

	res := CalculateWACC(WACCInput{
		UnleveredBeta:     UnleveredBeta(in.RiskScenario),
		RiskFreeRate:      region.RiskFreeRate,
		MarketRiskPremium: region.MarketReturn - region.RiskFreeRate,
		PreTaxCostOfDebt:  in.CostOfDebt,
		TaxRate:           region.TaxRate,
		DebtToEquityRatio: in.DebtRatio / (1 - in.DebtRatio),
	})
	return res, region, nil
}
