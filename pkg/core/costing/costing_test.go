package costing

import (
	"math"
	"math/rand"
	"testing"

	"fusion_costing/pkg/core/geometry"
	"fusion_costing/pkg/core/power"
	"fusion_costing/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func build(t *testing.T, spec geometry.RadialBuildSpec) geometry.Volumes {
	t.Helper()
	v, err := geometry.Compute(spec)
	require.NoError(t, err)
	return v
}

func layers(fw, bl, sh float64) []geometry.Layer {
	return []geometry.Layer{
		{Name: geometry.LayerFirstWall, Thickness: fw},
		{Name: geometry.LayerBlanket, Thickness: bl},
		{Name: geometry.LayerShield, Thickness: sh},
	}
}

// tokamakInput is the 500 MW DT HTS reference tokamak.
func tokamakInput(t *testing.T) Input {
	t.Helper()
	pb, err := power.Compute(power.Inputs{Technology: models.TechMFE, FusionPowerMW: 500}, power.StrategyPhysics, nil)
	require.NoError(t, err)
	return Input{
		Technology: models.TechMFE,
		Topology:   models.TopologyTokamak,
		Power:      pb,
		Elongation: 1.84,
		NOAK:       true,
		Volumes: build(t, geometry.RadialBuildSpec{
			Shape: geometry.Toroidal, BaseRadius: 1.13, MajorRadius: 3.3, Elongation: 1.84,
			Layers: layers(0.02, 0.8, 0.5),
		}),
	}
}

// laserInput is the 1000 MW DT laser plant.
func laserInput(t *testing.T) Input {
	t.Helper()
	pb, err := power.Compute(power.Inputs{Technology: models.TechIFE, FusionPowerMW: 1000}, power.StrategyPhysics, nil)
	require.NoError(t, err)
	return Input{
		Technology: models.TechIFE,
		Topology:   models.TopologyLaser,
		Power:      pb,
		NOAK:       true,
		Volumes: build(t, geometry.RadialBuildSpec{
			Shape: geometry.Spherical, BaseRadius: 4.0,
			Layers: layers(0.02, 0.8, 0.5),
		}),
	}
}

func within(t *testing.T, want, got, pct float64, msg string) {
	t.Helper()
	if math.Abs(got-want) > want*pct {
		t.Errorf("%s: got %.2f, want %.2f ±%.0f%%", msg, got, want, pct*100)
	}
}

func TestCompute_ReferenceTokamak(t *testing.T) {
	b, err := Compute(tokamakInput(t))
	require.NoError(t, err)

	within(t, 3300, b.TotalEPC, 0.10, "EPC M$")
	within(t, 19000, b.CostPerKW, 0.10, "TCC $/kW")
	assert.InDelta(t, b.TotalEPC+b.Costs[CodeOwner], b.TotalCapital, 1e-9)
	assert.InDelta(t, 175*DefaultCostIndex, b.Costs[CodePreConstruction], 1e-9)

	for _, code := range []string{CodeMagnets, CodeHeating, CodeDivertor, CodeTFCoils} {
		assert.Contains(t, b.Costs, code)
	}
	for _, code := range []string{CodeDriver, CodeTargetFactory} {
		assert.NotContains(t, b.Costs, code)
	}
	assert.True(t, Verify(b.Tree).IsBalanced)
}

func TestCompute_LaserPlant(t *testing.T) {
	in := laserInput(t)
	b, err := Compute(in)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, b.TotalEPC, 2000.0)
	assert.LessOrEqual(t, b.TotalEPC, 6000.0)
	// 1 MJ driver at 10 Hz
	assert.InDelta(t, 450*DefaultCostIndex, b.Costs[CodeDriver], 1e-9)
	assert.InDelta(t, 100*DefaultCostIndex, b.Costs[CodeTargetFactory], 1e-9)

	for _, code := range []string{CodeMagnets, CodeHeating, CodeDivertor, CodeTFCoils, CodeCryostat} {
		assert.NotContains(t, b.Costs, code)
	}
	assert.True(t, Verify(b.Tree).IsBalanced)
}

func TestCompute_ContingencyNOAKvsFOAK(t *testing.T) {
	in := tokamakInput(t)
	noak, err := Compute(in)
	require.NoError(t, err)

	in.NOAK = false
	foak, err := Compute(in)
	require.NoError(t, err)

	base := noak.Costs[CodePreConstruction] + noak.Costs[CodeDirect]
	assert.InDelta(t, 0.10*base, noak.Costs[CodeContingency], 1e-9)
	assert.InDelta(t, 0.20*base, foak.Costs[CodeContingency], 1e-9)
	assert.Greater(t, foak.TotalCapital, noak.TotalCapital)
}

func TestCompute_RegionalFactorScalesEPC(t *testing.T) {
	in := tokamakInput(t)
	in.RegionalFactor = 1
	ref, err := Compute(in)
	require.NoError(t, err)

	for _, k := range []float64{0.5, 2} {
		in.RegionalFactor = k
		b, err := Compute(in)
		require.NoError(t, err)

		assert.InDelta(t, k*ref.TotalEPC, b.TotalEPC, 1e-6, "rf=%v", k)
		assert.InDelta(t, k*ref.TotalCapital, b.TotalCapital, 1e-6, "rf=%v", k)
		assert.InDelta(t, k*ref.Costs[CodeIndirect], b.Costs[CodeIndirect], 1e-9, "rf=%v", k)
		assert.InDelta(t, k*ref.Costs[CodeFirstWall], b.Costs[CodeFirstWall], 1e-9, "rf=%v", k)
		assert.Equal(t, ref.Escalation*k, b.Escalation)
	}
}

func TestCompute_CostIndexScalesIndirect(t *testing.T) {
	in := tokamakInput(t)
	in.ConstructionYears = 6
	ref, err := Compute(in)
	require.NoError(t, err)

	in.CostIndex = 2 * DefaultCostIndex
	b, err := Compute(in)
	require.NoError(t, err)

	raw := IndirectCost(in.Power.PElectricNet, 6)
	assert.InDelta(t, raw*DefaultCostIndex, ref.Costs[CodeIndirect], 1e-9)
	assert.InDelta(t, 2*ref.Costs[CodeIndirect], b.Costs[CodeIndirect], 1e-9)
	assert.InDelta(t, 2*ref.TotalEPC, b.TotalEPC, 1e-6)
}

func TestCompute_NonDTFuelHalvesTritiumAccounts(t *testing.T) {
	in := tokamakInput(t)
	pb, err := power.Compute(power.Inputs{Technology: models.TechMFE, Fuel: models.FuelDD, FusionPowerMW: 500}, power.StrategyPhysics, nil)
	require.NoError(t, err)
	in.Fuel = models.FuelDD
	in.Power = pb

	b, err := Compute(in)
	require.NoError(t, err)
	// 21.01 is halved, 21.03 is not
	assert.InDelta(t, 268.0/54.0*0.5, b.Costs["21.01"]/b.Costs["21.03"], 1e-9)
	assert.InDelta(t, 46.0/79.0*0.5, b.Costs[CodeFuelHandling]/b.Costs[CodeTurbine], 1e-9)
}

func TestCompute_MirrorUsesSolenoids(t *testing.T) {
	pb, err := power.Compute(power.Inputs{Technology: models.TechMFE, FusionPowerMW: 500}, power.StrategyPhysics, nil)
	require.NoError(t, err)
	in := Input{
		Technology: models.TechMFE,
		Topology:   models.TopologyMirror,
		Power:      pb,
		Volumes: build(t, geometry.RadialBuildSpec{
			Shape: geometry.Cylindrical, BaseRadius: 1.0, Length: 20,
			Layers: layers(0.02, 0.8, 0.5),
		}),
	}
	b, err := Compute(in)
	require.NoError(t, err)
	assert.Zero(t, b.Costs[CodePFCoils])
	assert.Zero(t, b.Costs[CodeCSCoils])
	assert.Greater(t, b.Costs[CodeTFCoils], 0.0)

	_, n := ConductorVolume(models.TopologyMirror, 2.32, 0)
	assert.Equal(t, 20, n)
}

func TestCompute_CopperMagnetsHaveNoCryogenics(t *testing.T) {
	in := tokamakInput(t)
	pb, err := power.Compute(power.Inputs{Technology: models.TechMFE, Magnet: models.MagnetCopper, FusionPowerMW: 500}, power.StrategyPhysics, nil)
	require.NoError(t, err)
	in.Magnet = models.MagnetCopper
	in.Power = pb

	b, err := Compute(in)
	require.NoError(t, err)
	assert.Zero(t, b.Costs[CodeCryoplant])
	assert.Zero(t, b.Costs[CodeCryostat])
}

func TestCompute_BlanketTypes(t *testing.T) {
	costs := map[string]float64{}
	for _, bt := range []string{"PbLi", "lithium-lead", "FLiBe", "Solid Breeder (Li4SiO4)", "Li2TiO3"} {
		in := tokamakInput(t)
		in.Materials.BlanketType = bt
		b, err := Compute(in)
		require.NoError(t, err, bt)
		costs[bt] = b.Costs[CodeBlanket]
	}
	assert.Equal(t, costs["PbLi"], costs["lithium-lead"])
	assert.Greater(t, costs["Solid Breeder (Li4SiO4)"], costs["PbLi"])

	in := tokamakInput(t)
	in.Materials.BlanketType = "W"
	_, err := Compute(in)
	assert.ErrorIs(t, err, models.ErrConfiguration)
}

func TestCompute_Errors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Input)
		want   error
	}{
		{"unknown armor", func(in *Input) { in.Materials.FirstWallArmor = "unobtainium" }, models.ErrUnknownMaterial},
		{"no volumes", func(in *Input) { in.Volumes = geometry.Volumes{} }, models.ErrInvalidGeometry},
		{"lsa level", func(in *Input) { in.LSALevel = 5 }, models.ErrConfiguration},
		{"negative cost index", func(in *Input) { in.CostIndex = -1 }, models.ErrConfiguration},
		{"zero net power", func(in *Input) { in.Power.PElectricNet = 0 }, models.ErrConfiguration},
		{"unknown technology", func(in *Input) { in.Technology = "stellarator" }, models.ErrUnknownTechnology},
		{"negative om rate", func(in *Input) { in.Annual.FixedOMPerKWYr = -5 }, models.ErrNegativeCost},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := tokamakInput(t)
			tc.mutate(&in)
			_, err := Compute(in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

// Parents equal the sum of their children for arbitrary valid plants.
func TestCompute_AdditivityProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	techs := []models.Technology{models.TechMFE, models.TechIFE}
	magnetTechs := []models.MagnetTechnology{models.MagnetHTS, models.MagnetLTS}
	fuels := []models.FuelType{models.FuelDT, models.FuelDD}

	for i := 0; i < 200; i++ {
		tech := techs[rng.Intn(2)]
		fuel := fuels[rng.Intn(2)]
		magnet := magnetTechs[rng.Intn(2)]
		pb, err := power.Compute(power.Inputs{
			Technology:    tech,
			Fuel:          fuel,
			Magnet:        magnet,
			FusionPowerMW: 200 + rng.Float64()*2800,
		}, power.StrategyPhysics, nil)
		require.NoError(t, err)

		fw, bl, sh := 0.01+rng.Float64()*0.1, 0.3+rng.Float64()*0.7, 0.2+rng.Float64()*0.6
		in := Input{
			Technology:        tech,
			Fuel:              fuel,
			Magnet:            magnet,
			Power:             pb,
			NOAK:              rng.Intn(2) == 0,
			LSALevel:          1 + rng.Intn(4),
			ConstructionYears: float64(3 + rng.Intn(8)),
			RegionalFactor:    0.4 + rng.Float64(),
		}
		if tech == models.TechMFE {
			R := 3 + rng.Float64()*5
			in.Elongation = 1 + rng.Float64()*1.2
			in.Volumes = build(t, geometry.RadialBuildSpec{
				Shape: geometry.Toroidal, BaseRadius: 0.25 * R, MajorRadius: R, Elongation: in.Elongation,
				Layers: layers(fw, bl, sh),
			})
		} else {
			in.Volumes = build(t, geometry.RadialBuildSpec{
				Shape: geometry.Spherical, BaseRadius: 3 + rng.Float64()*5,
				Layers: layers(fw, bl, sh),
			})
		}

		b, err := Compute(in)
		require.NoError(t, err)
		v := Verify(b.Tree)
		require.True(t, v.IsBalanced, "case %d: %v", i, v.Warnings)
		assert.Zero(t, v.BalanceGap)

		for code := range b.Costs {
			assert.True(t, Applies(code, tech), "case %d: %s present for %s", i, code, tech)
		}
	}
}
