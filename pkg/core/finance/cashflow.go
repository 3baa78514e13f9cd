package finance

import (
	"fmt"
	"math"

	"fusion_costing/pkg/models"
)

// Phase is the lifecycle stage of a schedule year.
type Phase string

const (
	PhaseConstruction Phase = "construction"
	PhaseOperation    Phase = "operation"
	PhaseEnd          Phase = "end"
)

// next is the only transition; End is terminal.
func (p Phase) next() Phase {
	switch p {
	case PhaseConstruction:
		return PhaseOperation
	default:
		return PhaseEnd
	}
}

const hoursPerYear = 8760.0

// YearRecord is one row of the cashflow schedule. Money in M$, energy in MWh.
type YearRecord struct {
	Year                int     `json:"year"`
	Phase               Phase   `json:"phase"`
	Capex               float64 `json:"capex"`
	DebtDraw            float64 `json:"debt_draw"`
	CapitalizedInterest float64 `json:"capitalized_interest,omitempty"`
	Energy              float64 `json:"energy_mwh"`
	Revenue             float64 `json:"revenue"`
	Opex                float64 `json:"opex"`
	Interest            float64 `json:"interest"`
	Principal           float64 `json:"principal"`
	DebtService         float64 `json:"debt_service"`
	Depreciation        float64 `json:"depreciation"`
	TaxableIncome       float64 `json:"taxable_income"`
	Taxes               float64 `json:"taxes"`
	Salvage             float64 `json:"salvage,omitempty"`
	NetCashFlow         float64 `json:"net_cash_flow"`
	Balance             float64 `json:"balance"`
	LoanBalance         float64 `json:"loan_balance"`
}

// Result is a schedule plus its metrics.
type Result struct {
	Schedule []YearRecord `json:"cashflow"`
	Metrics  Metrics      `json:"financial"`
}

// rampFactor is the output fraction in operating year k.
func rampFactor(c Config, k int) float64 {
	if k >= c.RampUpYears {
		return 1
	}
	return math.Min(float64(k+1)*c.RampUpRate, 1)
}

// BuildSchedule walks Construction → Operation → End and produces one record per year.
//
// Construction: NCF = −capex + draw, interest capitalized into the loan.
// Operation:    NCF = revenue − opex − debt service − taxes (+ salvage in the final year)
func BuildSchedule(c Config) ([]YearRecord, error) {
	c = c.WithDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	weights, err := spendWeights(c)
	if err != nil {
		return nil, err
	}

	debt := &loan{
		rate:   c.LoanRate,
		tenor:  c.LoanTenorYears,
		grace:  c.GracePeriodYears,
		method: c.Amortization,
	}
	var (
		out        = make([]YearRecord, 0, c.ConstructionYears+c.LifetimeYears)
		balance    float64
		capexBase  float64
		lossCarry  float64
		depSched   []float64
		fullEnergy = c.NetPowerMW * c.CapacityFactor * hoursPerYear
	)

	phase := PhaseConstruction
	if c.ConstructionYears == 0 {
		phase = phase.next()
	}

	for y := 0; phase != PhaseEnd; y++ {
		rec := YearRecord{Year: y, Phase: phase}
		esc := math.Pow(1+c.PriceEscalation, float64(y))

		switch phase {
		case PhaseConstruction:
			// 1. Spend and draw
			rec.Capex = weights[y] * c.CapitalCost
			rec.DebtDraw = c.DebtRatio * rec.Capex
			rec.CapitalizedInterest = debt.draw(rec.DebtDraw)
			capexBase += rec.CapitalizedInterest
			rec.NetCashFlow = -rec.Capex + rec.DebtDraw

		case PhaseOperation:
			k := y - c.ConstructionYears
			final := k == c.LifetimeYears-1

			if k == 0 {
				// Plants built in zero years spend everything at COD.
				if c.ConstructionYears == 0 {
					rec.Capex = c.CapitalCost
					rec.DebtDraw = c.DebtRatio * rec.Capex
					debt.draw(rec.DebtDraw)
				}
				capexBase += c.CapitalCost
				debt.startRepayment()
				if depSched, err = DepreciationSchedule(c.Depreciation, capexBase, c.DepreciationYears, c.LifetimeYears); err != nil {
					return nil, err
				}
			}

			// 2. Output and revenue
			ramp := rampFactor(c, k)
			rec.Energy = fullEnergy * ramp
			rec.Revenue = rec.Energy * c.PowerPrice * esc / 1e6

			// 3. Operating costs
			fixed := c.FixedOMPerMWYr * c.NetPowerMW * esc / 1e6
			variable := c.VariableOMPerMWh * rec.Energy * esc / 1e6
			fuel := c.FuelCostPerYr * ramp * esc
			rec.Opex = fixed + variable + fuel
			if final {
				rec.Opex += c.Decommissioning
				rec.Salvage = c.Salvage
			}

			// 4. Debt service
			rec.Interest, rec.Principal = debt.service(k, final)
			rec.DebtService = rec.Interest + rec.Principal

			// 5. Tax with loss carryforward
			rec.Depreciation = depSched[k]
			rec.TaxableIncome = rec.Revenue - rec.Opex - rec.Interest - rec.Depreciation
			if rec.TaxableIncome < 0 {
				lossCarry -= rec.TaxableIncome
			} else {
				used := math.Min(lossCarry, rec.TaxableIncome)
				lossCarry -= used
				rec.Taxes = (rec.TaxableIncome - used) * c.TaxRate
			}

			rec.NetCashFlow = rec.Revenue - rec.Opex - rec.DebtService - rec.Taxes + rec.Salvage - rec.Capex + rec.DebtDraw
		}

		balance += rec.NetCashFlow
		rec.Balance = balance
		rec.LoanBalance = debt.balance
		out = append(out, rec)

		// 6. Advance the phase
		switch {
		case phase == PhaseConstruction && y+1 >= c.ConstructionYears:
			phase = phase.next()
		case phase == PhaseOperation && y+1 >= c.ConstructionYears+c.LifetimeYears:
			phase = phase.next()
		}
	}
	return out, nil
}

// Run builds the schedule and computes every metric.
func Run(c Config) (Result, error) {
	c = c.WithDefaults()
	sched, err := BuildSchedule(c)
	if err != nil {
		return Result{}, err
	}
	m := ComputeMetrics(sched, c)
	return Result{Schedule: sched, Metrics: m}, nil
}

// CheckConservation verifies Balance[y] = Balance[y−1] + NCF[y] exactly.
func CheckConservation(sched []YearRecord) error {
	var prev float64
	for _, r := range sched {
		if r.Balance != prev+r.NetCashFlow {
			return fmt.Errorf("year %d balance %.6f != %.6f + %.6f: %w",
				r.Year, r.Balance, prev, r.NetCashFlow, models.ErrNumerical)
		}
		prev = r.Balance
	}
	return nil
}
