package sweep

import (
	"context"
	"errors"
	"testing"

	"fusion_costing/pkg/core/costing"
	"fusion_costing/pkg/core/qmodel"
	"fusion_costing/pkg/core/scenario"
	"fusion_costing/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokamak() scenario.Config {
	return scenario.Config{Name: "sweep-base", ReactorType: "MFE", FusionPowerMW: 500}
}

func TestDefaultBands(t *testing.T) {
	require.Len(t, DefaultBands, 14)
	assert.InDelta(t, -0.14, DefaultBands[0], 1e-12)
	assert.InDelta(t, 0.14, DefaultBands[13], 1e-12)
	assert.NotContains(t, DefaultBands, 0.0)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "power_price-4%", Key(DriverPowerPrice, -0.04))
	assert.Equal(t, "capital_cost+14%", Key(DriverCapitalCost, 0.14))
	assert.Equal(t, BaseKey, Key(DriverFusionPower, 0))
}

func TestApply(t *testing.T) {
	base := tokamak()

	c, err := Apply(base, DriverConstructionYears, 0.14)
	require.NoError(t, err)
	assert.Equal(t, 7, *c.ConstructionYears)

	c, err = Apply(base, DriverCostOfCapital, 0.10)
	require.NoError(t, err)
	assert.InDelta(t, 0.077, c.DiscountRate, 1e-12)
	assert.InDelta(t, 0.0605, c.LoanRate, 1e-12)

	c, err = Apply(base, DriverPowerPrice, -0.10)
	require.NoError(t, err)
	assert.InDelta(t, 90, c.PowerPrice, 1e-9)

	c, err = Apply(base, DriverCapitalCost, 0.04)
	require.NoError(t, err)
	assert.InDelta(t, costing.DefaultCostIndex*1.04, c.CostIndex, 1e-12)

	c, err = Apply(base, DriverFusionPower, -0.10)
	require.NoError(t, err)
	assert.InDelta(t, 450, c.FusionPowerMW, 1e-9)

	_, err = Apply(base, Driver("weather"), 0.1)
	assert.True(t, errors.Is(err, models.ErrConfiguration))
	assert.Equal(t, 500.0, base.FusionPowerMW, "base must not be mutated")
}

func TestApply_DerivedDiscountRateBecomesExplicit(t *testing.T) {
	base := tokamak()
	base.DeriveDiscountRate = true

	c, err := Apply(base, DriverCostOfCapital, 0.02)
	require.NoError(t, err)
	assert.False(t, c.DeriveDiscountRate)
	assert.Greater(t, c.DiscountRate, 0.0)
}

func TestCases(t *testing.T) {
	cases, err := Cases(tokamak(), Drivers, DefaultBands)
	require.NoError(t, err)
	assert.Len(t, cases, 1+len(Drivers)*len(DefaultBands))
	assert.Equal(t, BaseKey, cases[0].Key)

	_, err = Cases(tokamak(), Drivers, []float64{-1})
	assert.True(t, errors.Is(err, models.ErrConfiguration))
}

func TestRun_CollectsEveryCase(t *testing.T) {
	res, err := Run(context.Background(), tokamak(), Options{
		Workers: 2,
		Drivers: []Driver{DriverPowerPrice, DriverCapitalCost},
		Bands:   []float64{-0.10, 0.10},
	})
	require.NoError(t, err)
	require.Len(t, res.Outcomes, 5)
	assert.Zero(t, res.Failed)
	assert.NotEmpty(t, res.SweepID)

	base := res.Outcomes[BaseKey]
	assert.Greater(t, res.Outcomes["power_price+10%"].NPV, base.NPV)
	assert.Less(t, res.Outcomes["power_price-10%"].NPV, base.NPV)
	assert.Greater(t, res.Outcomes["capital_cost+10%"].TotalEPC, base.TotalEPC)
	assert.Equal(t, base.TotalEPC, res.Outcomes["power_price+10%"].TotalEPC)

	bars := res.Tornado()
	require.Len(t, bars, 2)
	assert.GreaterOrEqual(t, bars[0].Swing, bars[1].Swing)
	for _, b := range bars {
		assert.Equal(t, -0.10, b.LowBand)
		assert.Equal(t, 0.10, b.HighBand)
	}
}

func TestRun_RecordsFailuresWithoutAborting(t *testing.T) {
	bad := tokamak()
	bad.Region = "Atlantis"

	res, err := Run(context.Background(), bad, Options{
		Drivers: []Driver{DriverPowerPrice},
		Bands:   []float64{-0.02, 0.02},
	})
	require.NoError(t, err)
	assert.Len(t, res.Outcomes, 3)
	assert.Equal(t, 3, res.Failed)
	for _, o := range res.Outcomes {
		assert.Contains(t, o.Error, "region")
	}
	assert.Empty(t, res.Tornado())
}

func TestRun_SharedEstimatorAcrossWorkers(t *testing.T) {
	cache, err := qmodel.NewLRUCache(64)
	require.NoError(t, err)
	est := qmodel.NewEstimator(cache)

	base := tokamak()
	base.PowerStrategy = "literature"
	res, err := Run(context.Background(), base, Options{
		Workers:   8,
		Drivers:   []Driver{DriverFusionPower, DriverPowerPrice},
		Estimator: est,
	})
	require.NoError(t, err)
	assert.Zero(t, res.Failed)
	assert.Len(t, res.Outcomes, 1+2*len(DefaultBands))
	assert.Positive(t, est.Stats().Size)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, tokamak(), Options{Drivers: []Driver{DriverPowerPrice}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestParseDriver(t *testing.T) {
	d, err := ParseDriver("cost_of_capital")
	require.NoError(t, err)
	assert.Equal(t, DriverCostOfCapital, d)

	_, err = ParseDriver("interest")
	assert.Error(t, err)
}
