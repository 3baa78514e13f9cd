package finance

import (
	"fmt"
	"math"

	"fusion_costing/pkg/models"
)

// =============================================================================
// SPEND CURVE
// =============================================================================

// sCurveSpan is the logistic argument range spread over the construction years.
const sCurveSpan = 6.0

func expit(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

// SCurveWeights returns per-year capex fractions from a logistic S-curve.
//
// FORMULA: w_y ∝ expit(x_y) − expit(x_{y−1}), x = linspace(−6, 6, n), expit(x_{−1}) = 0
func SCurveWeights(n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{1}
	}
	w := make([]float64, n)
	var prev, sum float64
	for i := range w {
		x := -sCurveSpan + 2*sCurveSpan*float64(i)/float64(n-1)
		s := expit(x)
		w[i] = s - prev
		prev = s
		sum += w[i]
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}

// spendWeights resolves the configured curve into normalized yearly fractions.
func spendWeights(c Config) ([]float64, error) {
	n := c.ConstructionYears
	switch c.SpendCurve {
	case SpendSCurve:
		return SCurveWeights(n), nil
	case SpendUniform:
		if n == 0 {
			return nil, nil
		}
		w := make([]float64, n)
		for i := range w {
			w[i] = 1 / float64(n)
		}
		return w, nil
	case SpendCustom:
		if len(c.SpendWeights) != n {
			return nil, fmt.Errorf("spend_weights has %d entries for %d construction years: %w",
				len(c.SpendWeights), n, models.ErrConfiguration)
		}
		var sum float64
		for _, v := range c.SpendWeights {
			if v < 0 || math.IsNaN(v) {
				return nil, fmt.Errorf("spend weight %.4g negative: %w", v, models.ErrConfiguration)
			}
			sum += v
		}
		if n > 0 && sum <= 0 {
			return nil, fmt.Errorf("spend weights sum to zero: %w", models.ErrConfiguration)
		}
		w := make([]float64, n)
		for i, v := range c.SpendWeights {
			w[i] = v / sum
		}
		return w, nil
	}
	return nil, fmt.Errorf("spend_curve %q: %w", c.SpendCurve, models.ErrConfiguration)
}

// =============================================================================
// DEPRECIATION
// =============================================================================

// macrs20 is the 20-year MACRS half-year convention table in percent.
var macrs20 = []float64{
	3.750, 7.219, 6.677, 6.177, 5.713, 5.285, 4.888, 4.522, 4.462, 4.461,
	4.462, 4.461, 4.462, 4.461, 4.462, 4.461, 4.462, 4.461, 4.462, 4.461, 2.231,
}

// DepreciationSchedule returns yearly depreciation over the operating life,
// truncated or zero-padded to lifetime years.
func DepreciationSchedule(method Depreciation, base float64, years, lifetime int) ([]float64, error) {
	if years <= 0 {
		return nil, fmt.Errorf("depreciation years %d: %w", years, models.ErrConfiguration)
	}
	var sched []float64
	switch method {
	case DepStraightLine:
		for i := 0; i < years; i++ {
			sched = append(sched, base/float64(years))
		}
	case DepHalfYear:
		// half a year in the first and in the extra final year
		annual := base / float64(years)
		sched = append(sched, annual/2)
		for i := 1; i < years; i++ {
			sched = append(sched, annual)
		}
		sched = append(sched, annual/2)
	case DepMACRS20:
		for _, pct := range macrs20 {
			sched = append(sched, base*pct/100)
		}
	default:
		return nil, fmt.Errorf("depreciation %q: %w", method, models.ErrConfiguration)
	}

	out := make([]float64, lifetime)
	copy(out, sched)
	return out, nil
}

// =============================================================================
// DEBT
// =============================================================================

// AnnuityPayment is the level payment that retires principal over n years.
//
// FORMULA: PMT = P × r / (1 − (1+r)^−n); P/n when r = 0
func AnnuityPayment(principal, rate float64, years int) float64 {
	if years <= 0 {
		return 0
	}
	if rate == 0 {
		return principal / float64(years)
	}
	return principal * rate / (1 - math.Pow(1+rate, -float64(years)))
}

// loan tracks the outstanding balance through construction and repayment.
type loan struct {
	rate        float64
	tenor       int
	grace       int
	method      Amortization
	balance     float64
	atCOD       float64 // balance when repayment profile is fixed
	payment     float64 // annuity payment
	repaidYears int
}

// draw adds a construction drawdown and capitalizes interest on the opening balance.
func (l *loan) draw(amount float64) (capitalized float64) {
	capitalized = l.balance * l.rate
	l.balance += capitalized + amount
	return capitalized
}

// startRepayment fixes the repayment profile at commercial operation.
func (l *loan) startRepayment() {
	l.atCOD = l.balance
	l.payment = AnnuityPayment(l.balance, l.rate, l.tenor)
}

// service returns interest and principal for operating year k. When final is
// set any residual balance is repaid in full.
func (l *loan) service(k int, final bool) (interest, principal float64) {
	if l.balance <= 0 {
		return 0, 0
	}
	interest = l.balance * l.rate
	if k < l.grace {
		if final {
			principal = l.balance
		}
	} else {
		switch l.method {
		case AmortEqualPrincipal:
			principal = l.atCOD / float64(l.tenor)
		default:
			principal = l.payment - interest
		}
		l.repaidYears++
		if l.repaidYears >= l.tenor || final || principal > l.balance {
			principal = l.balance
		}
	}
	l.balance -= principal
	return interest, principal
}
