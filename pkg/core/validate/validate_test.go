package validate

import (
	"errors"
	"math"
	"testing"

	"fusion_costing/pkg/core/costing"
	"fusion_costing/pkg/core/finance"
	"fusion_costing/pkg/core/geometry"
	"fusion_costing/pkg/core/power"
	"fusion_costing/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport_CollectsFindings(t *testing.T) {
	r := NewReport()
	assert.True(t, r.Valid)
	assert.NoError(t, r.Err())

	r.Positive("fusion_power_mw", 0)
	r.NonNegative("blanket_thickness", -0.1)
	r.Between("capacity_factor", 1.2, 0, 1)
	r.OneOf("spend_curve", "linear", "s_curve", "uniform")
	r.OneOf("amortization", "", "annuity")
	r.Positive("major_radius", math.NaN())
	r.AddWarning("tax_rate", "defaulted from region")

	assert.False(t, r.Valid)
	assert.Len(t, r.Errors, 5)
	assert.Equal(t, "5 errors, 1 warnings, 0 info", r.Summary)
	assert.Equal(t, []string{"tax_rate: defaulted from region"}, r.WarningMessages())

	err := r.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConfiguration))
	assert.Contains(t, err.Error(), "capacity_factor")
}

func TestReport_ErrKeepsCauses(t *testing.T) {
	r := NewReport()
	r.NonNegativeAs(models.ErrInvalidGeometry, "shield_thickness", -0.1)
	r.PositiveAs(models.ErrInvalidGeometry, "minor_radius", 0)
	_, perr := models.ParseFuelType("DLi6")
	r.Check("fuel_type", perr)
	r.Positive("fusion_power_mw", -1)

	err := r.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvalidGeometry))
	assert.True(t, errors.Is(err, models.ErrUnknownTechnology))
	assert.True(t, errors.Is(err, models.ErrConfiguration))
	assert.False(t, errors.Is(err, models.ErrUnknownMaterial))

	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Findings, 4)
	assert.Contains(t, err.Error(), "4 invalid parameters")

	geomOnly := NewReport()
	geomOnly.NonNegativeAs(models.ErrInvalidGeometry, "blanket_thickness", -1)
	assert.True(t, errors.Is(geomOnly.Err(), models.ErrInvalidGeometry))
	assert.False(t, errors.Is(geomOnly.Err(), models.ErrConfiguration))
}

func TestReport_Merge(t *testing.T) {
	a := NewReport()
	a.AddInfo("region", "North America")
	b := NewReport()
	b.Check("fuel_type", errors.New("unknown"))
	b.Check("magnet_technology", nil)

	a.Merge(b)
	a.Merge(nil)
	assert.False(t, a.Valid)
	assert.Len(t, a.Errors, 1)
	assert.Len(t, a.Info, 1)
}

func linkedRun(t *testing.T) (power.Result, costing.Breakdown, finance.Config, finance.Result) {
	t.Helper()
	pb, err := power.Compute(power.Inputs{Technology: models.TechMFE, FusionPowerMW: 500}, power.StrategyPhysics, nil)
	require.NoError(t, err)
	vols, err := geometry.Compute(geometry.RadialBuildSpec{
		Shape: geometry.Toroidal, BaseRadius: 1.13, MajorRadius: 3.3, Elongation: 1.84,
		Layers: []geometry.Layer{
			{Name: geometry.LayerFirstWall, Thickness: 0.02},
			{Name: geometry.LayerBlanket, Thickness: 0.8},
			{Name: geometry.LayerShield, Thickness: 0.5},
		},
	})
	require.NoError(t, err)
	b, err := costing.Compute(costing.Input{
		Technology: models.TechMFE, Power: pb, Volumes: vols, Elongation: 1.84, NOAK: true,
	})
	require.NoError(t, err)
	fc := finance.Config{
		CapitalCost:       b.TotalCapital,
		NetPowerMW:        pb.PElectricNet,
		ConstructionYears: 6,
		LifetimeYears:     finance.DefaultLifetimeYears,
		CapacityFactor:    finance.DefaultCapacityFactor,
		DebtRatio:         0.7,
	}
	fr, err := finance.Run(fc)
	require.NoError(t, err)
	return pb, b, fc, fr
}

func TestCheckLinkage_ConsistentRun(t *testing.T) {
	lr := CheckLinkage(linkedRun(t))
	assert.True(t, lr.AllPassed, "failed: %v", lr.FailedChecks)
	assert.Len(t, lr.Checks, 6)
}

func TestCheckLinkage_DetectsBreaks(t *testing.T) {
	pb, b, fc, fr := linkedRun(t)

	fc.NetPowerMW *= 1.01
	fr.Schedule[2].Balance += 1
	lr := CheckLinkage(pb, b, fc, fr)

	assert.False(t, lr.AllPassed)
	assert.ElementsMatch(t, []string{CheckNetPower, CheckConservation}, lr.FailedChecks)
}
