package finance

import (
	"math"
)

// Diagnostic flags attached to metrics.
const (
	FlagIRRUndefined            = "irr_undefined"
	FlagProjectIRRUndefined     = "project_irr_undefined"
	FlagLCOEUndefined           = "lcoe_undefined"
	FlagDSCRBreach              = "dscr_breach"
	FlagNoPayback               = "no_payback"
	FlagEquityMultipleUndefined = "equity_multiple_undefined"
)

// DSCRBreachThreshold is the coverage below which a year is in breach.
const DSCRBreachThreshold = 1.0

// DSCRPoint is the coverage of one operating year with debt service.
type DSCRPoint struct {
	Year   int     `json:"year"`
	Value  float64 `json:"value"`
	Breach bool    `json:"breach"`
}

// Metrics are the lender and investor figures of a schedule.
type Metrics struct {
	NPV            float64     `json:"npv"`            // M$, equity flows at DiscountRate
	IRR            *float64    `json:"irr"`            // nil when undefined
	LCOE           *float64    `json:"lcoe"`           // $/MWh, nil when undefined
	PaybackYears   *int        `json:"payback_years"`  // operating years, nil if never
	DSCR           []DSCRPoint `json:"dscr"`
	MinDSCR        *float64    `json:"min_dscr"`
	ProjectNPV     float64     `json:"project_npv"` // unlevered
	ProjectIRR     *float64    `json:"project_irr"`
	EquityMultiple float64     `json:"equity_multiple"`
	CRF            float64     `json:"crf"`
	DiscountRate   float64     `json:"discount_rate"`
	Flags          []string    `json:"flags,omitempty"`
}

// =============================================================================
// DISCOUNTING
// =============================================================================

// PresentValue calculates PV of a single cash flow.
//
// FORMULA: PV = CF / (1 + r)^t
func PresentValue(cashFlow, discountRate float64, periods int) float64 {
	if periods < 0 {
		return 0
	}
	return cashFlow / math.Pow(1+discountRate, float64(periods))
}

// NPV discounts a series whose first element is at t = 0.
//
// FORMULA: NPV = Σ [ CF_t / (1 + r)^t ]
func NPV(rate float64, flows []float64) float64 {
	var pv float64
	for t, cf := range flows {
		pv += PresentValue(cf, rate, t)
	}
	return pv
}

// CRF is the capital recovery factor.
//
// FORMULA: CRF = r(1+r)^n / ((1+r)^n − 1); 1/n when r = 0
func CRF(rate float64, years int) float64 {
	if years <= 0 {
		return 0
	}
	if rate == 0 {
		return 1 / float64(years)
	}
	g := math.Pow(1+rate, float64(years))
	return rate * g / (g - 1)
}

// IRR bisection controls.
const (
	irrTolerance = 1e-9
	irrMaxIter   = 300
	irrLow       = -0.99
)

// irrScan are the bracket edges probed for a sign change, lowest first.
var irrScan = []float64{irrLow, -0.5, -0.2, 0, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5, 10}

// IRR finds the rate with NPV = 0 by bracketed bisection. ok is false when no
// bracket with a sign change exists.
func IRR(flows []float64) (rate float64, ok bool) {
	if len(flows) < 2 {
		return 0, false
	}
	// 1. Bracket
	lo, hi := math.NaN(), math.NaN()
	fPrev := NPV(irrScan[0], flows)
	for i := 1; i < len(irrScan); i++ {
		f := NPV(irrScan[i], flows)
		if fPrev == 0 {
			return irrScan[i-1], true
		}
		if math.Signbit(fPrev) != math.Signbit(f) {
			lo, hi = irrScan[i-1], irrScan[i]
			break
		}
		fPrev = f
	}
	if math.IsNaN(lo) {
		return 0, false
	}

	// 2. Bisect
	fLo := NPV(lo, flows)
	for i := 0; i < irrMaxIter; i++ {
		mid := (lo + hi) / 2
		fMid := NPV(mid, flows)
		if fMid == 0 || (hi-lo)/2 < irrTolerance {
			return mid, true
		}
		if math.Signbit(fMid) == math.Signbit(fLo) {
			lo, fLo = mid, fMid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2, true
}

// LCOE is the levelized cost in $/MWh.
//
// FORMULA: LCOE = PV(capex + opex) / PV(energy) × 1e6
func LCOE(sched []YearRecord, rate float64) (float64, bool) {
	var pvCost, pvEnergy float64
	for _, r := range sched {
		pvCost += PresentValue(r.Capex+r.Opex, rate, r.Year)
		pvEnergy += PresentValue(r.Energy, rate, r.Year)
	}
	if pvEnergy <= 0 {
		return 0, false
	}
	return pvCost / pvEnergy * 1e6, true
}

// DSCR reports coverage for operating years with debt service.
//
// FORMULA: DSCR = (Revenue − Opex − Taxes) / DebtService
func DSCR(sched []YearRecord) []DSCRPoint {
	var out []DSCRPoint
	for _, r := range sched {
		if r.Phase != PhaseOperation || r.DebtService <= 0 {
			continue
		}
		v := (r.Revenue - r.Opex - r.Taxes) / r.DebtService
		out = append(out, DSCRPoint{Year: r.Year, Value: v, Breach: v < DSCRBreachThreshold})
	}
	return out
}

// Payback counts operating years until the cumulative balance first turns
// non-negative.
func Payback(sched []YearRecord) (int, bool) {
	k := 0
	for _, r := range sched {
		if r.Phase != PhaseOperation {
			continue
		}
		k++
		if r.Balance >= 0 {
			return k, true
		}
	}
	return 0, false
}

func ptr[T any](v T) *T { return &v }

// ComputeMetrics derives every metric from a schedule built with c.
func ComputeMetrics(sched []YearRecord, c Config) Metrics {
	m := Metrics{
		DiscountRate: c.DiscountRate,
		CRF:          CRF(c.DiscountRate, c.LifetimeYears),
	}

	equity := make([]float64, len(sched))
	project := make([]float64, len(sched))
	var invested, returned float64
	for i, r := range sched {
		equity[i] = r.NetCashFlow
		project[i] = r.NetCashFlow - r.DebtDraw + r.DebtService
		if r.NetCashFlow < 0 && r.Capex > 0 {
			invested -= r.NetCashFlow
		} else {
			returned += r.NetCashFlow
		}
	}

	// 1. Discounted value and returns
	m.NPV = NPV(c.DiscountRate, equity)
	m.ProjectNPV = NPV(c.DiscountRate, project)
	if irr, ok := IRR(equity); ok {
		m.IRR = ptr(irr)
	} else {
		m.Flags = append(m.Flags, FlagIRRUndefined)
	}
	if irr, ok := IRR(project); ok {
		m.ProjectIRR = ptr(irr)
	} else {
		m.Flags = append(m.Flags, FlagProjectIRRUndefined)
	}

	// 2. Cost of energy
	if lcoe, ok := LCOE(sched, c.DiscountRate); ok {
		m.LCOE = ptr(lcoe)
	} else {
		m.Flags = append(m.Flags, FlagLCOEUndefined)
	}

	// 3. Lender view
	m.DSCR = DSCR(sched)
	for _, p := range m.DSCR {
		if m.MinDSCR == nil || p.Value < *m.MinDSCR {
			m.MinDSCR = ptr(p.Value)
		}
	}
	if m.MinDSCR != nil && *m.MinDSCR < DSCRBreachThreshold {
		m.Flags = append(m.Flags, FlagDSCRBreach)
	}

	// 4. Investor view
	if pb, ok := Payback(sched); ok {
		m.PaybackYears = ptr(pb)
	} else {
		m.Flags = append(m.Flags, FlagNoPayback)
	}
	if invested > 0 {
		m.EquityMultiple = returned / invested
	} else {
		m.Flags = append(m.Flags, FlagEquityMultipleUndefined)
	}
	return m
}
