// Package sweep runs one-at-a-time sensitivity cases around a base scenario
// on a bounded worker pool.
package sweep

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"fusion_costing/pkg/core/costing"
	"fusion_costing/pkg/core/finance"
	"fusion_costing/pkg/core/qmodel"
	"fusion_costing/pkg/core/scenario"
	"fusion_costing/pkg/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Driver is the input a sensitivity case perturbs.
type Driver string

const (
	DriverConstructionYears Driver = "construction_years"
	DriverCostOfCapital     Driver = "cost_of_capital" // discount and loan rate together
	DriverPowerPrice        Driver = "power_price"
	DriverCapitalCost       Driver = "capital_cost" // through cost_index
	DriverFusionPower       Driver = "fusion_power"
)

// Drivers lists every supported driver in display order.
var Drivers = []Driver{
	DriverConstructionYears,
	DriverCostOfCapital,
	DriverPowerPrice,
	DriverCapitalCost,
	DriverFusionPower,
}

// ParseDriver resolves a driver name.
func ParseDriver(s string) (Driver, error) {
	for _, d := range Drivers {
		if string(d) == s {
			return d, nil
		}
	}
	return "", fmt.Errorf("sweep driver %q: %w", s, models.ErrConfiguration)
}

// DefaultBands are the relative perturbations: ±2 % through ±14 % in 2 % steps.
var DefaultBands = func() []float64 {
	var out []float64
	for p := -14; p <= 14; p += 2 {
		if p != 0 {
			out = append(out, float64(p)/100)
		}
	}
	return out
}()

// BaseKey identifies the unperturbed case.
const BaseKey = "base"

// Key names a case, e.g. "power_price-4%".
func Key(d Driver, band float64) string {
	if band == 0 {
		return BaseKey
	}
	return fmt.Sprintf("%s%+.0f%%", d, band*100)
}

// Case is one configuration of the sweep.
type Case struct {
	Key    string          `json:"key"`
	Driver Driver          `json:"driver,omitempty"`
	Band   float64         `json:"band"`
	Config scenario.Config `json:"config"`
}

// Apply returns base with driver scaled by (1 + band).
func Apply(base scenario.Config, d Driver, band float64) (scenario.Config, error) {
	c := base.WithDefaults()
	f := 1 + band
	switch d {
	case DriverConstructionYears:
		years := int(math.Round(float64(*c.ConstructionYears) * f))
		c.ConstructionYears = &years
	case DriverCostOfCapital:
		fin := finance.Config{}.WithDefaults()
		rate := c.DiscountRate
		if c.DeriveDiscountRate {
			wacc, _, err := finance.DeriveDiscountRate(finance.DiscountRateInput{
				Region:       scenario.ResolveRegion(c).Name,
				RiskScenario: c.RiskScenario,
				DebtRatio:    *c.DebtRatio,
				CostOfDebt:   orDefault(c.LoanRate, fin.LoanRate),
			})
			if err != nil {
				return scenario.Config{}, err
			}
			rate = wacc.WACC
			c.DeriveDiscountRate = false
		}
		c.DiscountRate = orDefault(rate, fin.DiscountRate) * f
		c.LoanRate = orDefault(c.LoanRate, fin.LoanRate) * f
	case DriverPowerPrice:
		c.PowerPrice = orDefault(c.PowerPrice, finance.Config{}.WithDefaults().PowerPrice) * f
	case DriverCapitalCost:
		c.CostIndex = orDefault(c.CostIndex, costing.DefaultCostIndex) * f
	case DriverFusionPower:
		c.FusionPowerMW *= f
		c.TargetNetMW *= f
	default:
		return scenario.Config{}, fmt.Errorf("sweep driver %q: %w", d, models.ErrConfiguration)
	}
	return c, nil
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

// Cases expands base into the base case plus one case per driver and non-zero band.
func Cases(base scenario.Config, drivers []Driver, bands []float64) ([]Case, error) {
	out := []Case{{Key: BaseKey, Config: base.WithDefaults()}}
	for _, d := range drivers {
		for _, b := range bands {
			if b == 0 {
				continue
			}
			if b <= -1 {
				return nil, fmt.Errorf("band %.4g would remove %s entirely: %w", b, d, models.ErrConfiguration)
			}
			c, err := Apply(base, d, b)
			if err != nil {
				return nil, err
			}
			out = append(out, Case{Key: Key(d, b), Driver: d, Band: b, Config: c})
		}
	}
	return out, nil
}

// =============================================================================
// RUN
// =============================================================================

// Outcome is the headline of one case. Error is set instead of metrics when
// the case failed.
type Outcome struct {
	Key          string   `json:"key"`
	Driver       Driver   `json:"driver,omitempty"`
	Band         float64  `json:"band"`
	RunID        string   `json:"run_id,omitempty"`
	TotalEPC     float64  `json:"total_epc_cost"`
	NetPowerMW   float64  `json:"net_power_mw"`
	NPV          float64  `json:"npv"`
	IRR          *float64 `json:"irr"`
	LCOE         *float64 `json:"lcoe"`
	MinDSCR      *float64 `json:"min_dscr"`
	PaybackYears *int     `json:"payback_years"`
	Flags        []string `json:"flags,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// Options tune a sweep. Zero values use every driver, DefaultBands and 4 workers.
type Options struct {
	Workers   int
	Drivers   []Driver
	Bands     []float64
	Estimator *qmodel.Estimator
}

// Result collects every case keyed by Key.
type Result struct {
	SweepID  string             `json:"sweep_id"`
	Base     scenario.Config    `json:"base"`
	Outcomes map[string]Outcome `json:"outcomes"`
	Failed   int                `json:"failed"`
	Duration time.Duration      `json:"duration_ns"`
}

func outcomeOf(c Case, res *scenario.Result) Outcome {
	m := res.Financial
	return Outcome{
		Key:          c.Key,
		Driver:       c.Driver,
		Band:         c.Band,
		RunID:        res.RunID,
		TotalEPC:     res.TotalEPC,
		NetPowerMW:   res.PowerBalance.PElectricNet,
		NPV:          m.NPV,
		IRR:          m.IRR,
		LCOE:         m.LCOE,
		MinDSCR:      m.MinDSCR,
		PaybackYears: m.PaybackYears,
		Flags:        m.Flags,
	}
}

// Run evaluates every case concurrently. A failing case is recorded in its
// outcome and never stops the others; only cancellation of ctx aborts the sweep.
func Run(ctx context.Context, base scenario.Config, opts Options) (*Result, error) {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if len(opts.Drivers) == 0 {
		opts.Drivers = Drivers
	}
	if len(opts.Bands) == 0 {
		opts.Bands = DefaultBands
	}
	cases, err := Cases(base, opts.Drivers, opts.Bands)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	out := &Result{
		SweepID:  uuid.New().String(),
		Base:     cases[0].Config,
		Outcomes: make(map[string]Outcome, len(cases)),
	}
	fmt.Printf("[SWEEP] %s: %d cases on %d workers\n", out.SweepID, len(cases), opts.Workers)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for _, c := range cases {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			o := Outcome{Key: c.Key, Driver: c.Driver, Band: c.Band}
			res, err := scenario.Evaluate(c.Config, opts.Estimator)
			if err != nil {
				o.Error = err.Error()
			} else {
				o = outcomeOf(c, res)
			}

			mu.Lock()
			out.Outcomes[c.Key] = o
			if o.Error != "" {
				out.Failed++
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("sweep %s cancelled: %w", out.SweepID, err)
	}

	out.Duration = time.Since(start)
	fmt.Printf("[SWEEP] %s: %d ok, %d failed in %v\n",
		out.SweepID, len(out.Outcomes)-out.Failed, out.Failed, out.Duration)
	return out, nil
}

// =============================================================================
// TORNADO
// =============================================================================

// Bar is the NPV swing of one driver between its lowest and highest band.
type Bar struct {
	Driver   Driver  `json:"driver"`
	LowBand  float64 `json:"low_band"`
	LowNPV   float64 `json:"low_npv"`
	HighBand float64 `json:"high_band"`
	HighNPV  float64 `json:"high_npv"`
	Swing    float64 `json:"swing"`
}

// Tornado ranks drivers by |NPV(high) − NPV(low)|, widest first. Drivers
// whose extreme cases failed are left out.
func (r *Result) Tornado() []Bar {
	byDriver := map[Driver][]Outcome{}
	for _, o := range r.Outcomes {
		if o.Driver == "" || o.Error != "" {
			continue
		}
		byDriver[o.Driver] = append(byDriver[o.Driver], o)
	}

	var bars []Bar
	for d, outcomes := range byDriver {
		sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Band < outcomes[j].Band })
		lo, hi := outcomes[0], outcomes[len(outcomes)-1]
		bars = append(bars, Bar{
			Driver:   d,
			LowBand:  lo.Band,
			LowNPV:   lo.NPV,
			HighBand: hi.Band,
			HighNPV:  hi.NPV,
			Swing:    math.Abs(hi.NPV - lo.NPV),
		})
	}
	sort.Slice(bars, func(i, j int) bool {
		if bars[i].Swing != bars[j].Swing {
			return bars[i].Swing > bars[j].Swing
		}
		return bars[i].Driver < bars[j].Driver
	})
	return bars
}
