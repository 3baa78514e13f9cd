package costing

import (
	"testing"

	"fusion_costing/pkg/models"

	"github.com/stretchr/testify/assert"
)

func TestCatalog_FixedChildOrder(t *testing.T) {
	assert.Equal(t, []string{CodePreConstruction, CodeDirect, CodeContingency, CodeIndirect}, Children(CodeEPC))
	assert.Equal(t, []string{
		CodeBuildings, CodeReactorPlant, CodeTurbine, CodeElectrical,
		CodeMiscPlant, CodeHeatRejection, CodeFuelHandling, CodePlantIC,
	}, Children(CodeDirect))
	assert.Len(t, Children(CodeBuildings), 17)
	assert.Len(t, Children(CodePreConstruction), 6)
	assert.True(t, IsLeaf(CodeFirstWall))
	assert.False(t, IsLeaf(CodeMagnets))

	seen := map[string]bool{}
	for _, d := range Catalog() {
		assert.False(t, seen[d.Code], "duplicate %s", d.Code)
		seen[d.Code] = true
		if d.Parent != "" {
			assert.True(t, seen[d.Parent], "%s listed before its parent", d.Code)
		}
	}
}

func TestApplies_ExclusiveSets(t *testing.T) {
	mfeOnly := []string{CodeMagnets, CodeTFCoils, CodeCryostat, CodeHeating, CodeDivertor}
	ifeOnly := []string{CodeDriver, CodeTargetFactory}

	for _, c := range mfeOnly {
		assert.True(t, Applies(c, models.TechMFE), c)
		assert.False(t, Applies(c, models.TechIFE), c)
	}
	for _, c := range ifeOnly {
		assert.True(t, Applies(c, models.TechIFE), c)
		assert.False(t, Applies(c, models.TechMFE), c)
	}
	assert.True(t, Applies(CodeFirstWall, models.TechIFE))
	assert.False(t, Applies("99.99", models.TechMFE))

	table := Applicability()
	assert.Equal(t, []models.Technology{models.TechIFE}, table[CodeDriver])
	assert.NotContains(t, table, CodeTFCoils) // inherits from 22.02
}

func TestAnnualize(t *testing.T) {
	a, err := Annualize(AnnualInputs{DiscountRate: 0.07, LifetimeYears: 30}, 1000, 200, 500)
	assert.NoError(t, err)
	assert.InDelta(t, 12.0, a.OperationsMaintenance, 1e-9) // 60 $/kW-yr × 200 MW
	assert.InDelta(t, 0.75, a.Fuel, 1e-9)                  // 10 k$/kg × 150 kg × 0.5
	assert.InDelta(t, 80.5864, a.CapitalCharge, 1e-3)
	assert.InDelta(t, a.OperationsMaintenance+a.Fuel+a.CapitalCharge, a.Total, 1e-12)
	assert.Equal(t, a.Fuel, a.Annual()[CodeAnnualFuel])
}

func TestVerify_DetectsGap(t *testing.T) {
	root := parentOf(CodeReactorCore, newNode(CodeFirstWall, 1), newNode(CodeBlanket, 2))
	assert.True(t, Verify(root).IsBalanced)

	root.Children[1].Value = 5
	v := Verify(root)
	assert.False(t, v.IsBalanced)
	assert.InDelta(t, -3, v.BalanceGap, 1e-12)
	assert.Contains(t, v.Gaps, CodeReactorCore)

	root.Children[0].Value = -1
	assert.Len(t, Verify(root).Warnings, 2)

	assert.False(t, Verify(nil).IsBalanced)
}
