package validate

import (
	"math"

	"fusion_costing/pkg/core/costing"
	"fusion_costing/pkg/core/finance"
	"fusion_costing/pkg/core/power"
)

// =============================================================================
// CROSS-RESULT LINKAGE
// =============================================================================

// Check names of the linkage report.
const (
	CheckPowerBalance   = "power_balance"
	CheckNetPower       = "net_power_to_finance"
	CheckCapital        = "capital_to_finance"
	CheckCapexSpend     = "capex_spend"
	CheckCostAdditivity = "cost_additivity"
	CheckConservation   = "cashflow_conservation"
)

// LinkTolerance is the relative tolerance of the value-to-value checks.
const LinkTolerance = 1e-9

// Linkage is one comparison between two results.
type Linkage struct {
	Name       string  `json:"name"`
	Expected   float64 `json:"expected"`
	Actual     float64 `json:"actual"`
	Difference float64 `json:"difference"`
	Passed     bool    `json:"passed"`
	Note       string  `json:"note,omitempty"`
}

// LinkageReport contains every cross-result check of a run.
type LinkageReport struct {
	Checks       []Linkage `json:"checks"`
	AllPassed    bool      `json:"all_passed"`
	FailedChecks []string  `json:"failed_checks,omitempty"`
}

func (lr *LinkageReport) add(l Linkage) {
	lr.Checks = append(lr.Checks, l)
	if !l.Passed {
		lr.AllPassed = false
		lr.FailedChecks = append(lr.FailedChecks, l.Name)
	}
}

func compare(name string, expected, actual float64) Linkage {
	diff := actual - expected
	tol := LinkTolerance * math.Max(1, math.Abs(expected))
	return Linkage{
		Name:       name,
		Expected:   expected,
		Actual:     actual,
		Difference: diff,
		Passed:     math.Abs(diff) <= tol,
	}
}

// CheckLinkage verifies that one run is internally consistent:
//  1. net = gross − recirculating in the power balance
//  2. the cashflow runs on the net power of the power balance
//  3. the cashflow finances the total capital cost of the cost tree
//  4. construction capex sums to that capital cost
//  5. every cost parent equals the sum of its children
//  6. the cumulative balance conserves every year's net cash flow
func CheckLinkage(pb power.Result, b costing.Breakdown, fc finance.Config, fr finance.Result) LinkageReport {
	lr := LinkageReport{AllPassed: true}

	lr.add(compare(CheckPowerBalance, pb.PElectricGross-pb.PRecirculating, pb.PElectricNet))
	lr.add(compare(CheckNetPower, pb.PElectricNet, fc.NetPowerMW))
	lr.add(compare(CheckCapital, b.TotalCapital, fc.CapitalCost))

	var capex float64
	for _, y := range fr.Schedule {
		capex += y.Capex
	}
	spend := compare(CheckCapexSpend, fc.CapitalCost, capex)
	spend.Passed = math.Abs(spend.Difference) <= 1e-6*math.Max(1, fc.CapitalCost)
	lr.add(spend)

	v := costing.Verify(b.Tree)
	additivity := Linkage{Name: CheckCostAdditivity, Actual: v.BalanceGap, Difference: v.BalanceGap, Passed: v.IsBalanced}
	if len(v.Warnings) > 0 {
		additivity.Note = v.Warnings[0]
	}
	lr.add(additivity)

	conservation := Linkage{Name: CheckConservation, Passed: true}
	if len(fr.Schedule) > 0 {
		last := fr.Schedule[len(fr.Schedule)-1]
		var sum float64
		for _, y := range fr.Schedule {
			sum += y.NetCashFlow
		}
		conservation.Expected, conservation.Actual = sum, last.Balance
		conservation.Difference = last.Balance - sum
	}
	if err := finance.CheckConservation(fr.Schedule); err != nil {
		conservation.Passed = false
		conservation.Note = err.Error()
	}
	lr.add(conservation)

	return lr
}
