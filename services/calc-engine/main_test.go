package main

import (
	"encoding/json"
	"testing"

	"fusion_costing/pkg/core/scenario"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// End to end: evaluate, serialize, then re-check the stored payload.
func TestE2E_CalcEngine_ScenarioA(t *testing.T) {
	res, err := scenario.Evaluate(scenario.Config{Name: "engine-a", ReactorType: "MFE", FusionPowerMW: 500}, nil)
	require.NoError(t, err)
	payload, err := json.Marshal(res)
	require.NoError(t, err)

	assert.True(t, runChecks(payload))

	// 1. Break the capital link
	var tampered scenario.Result
	require.NoError(t, json.Unmarshal(payload, &tampered))
	tampered.FinanceInput.CapitalCost *= 1.05
	bad, err := json.Marshal(tampered)
	require.NoError(t, err)
	assert.False(t, runChecks(bad))

	// 2. Garbage payload
	assert.False(t, runChecks([]byte("{not json")))
}

func TestRunCalculations(t *testing.T) {
	assert.True(t, runCalculations([]byte(`{"reactor_type": "IFE", "fusion_power_mw": 1000,}`)))
	assert.False(t, runCalculations([]byte(`{"reactor_type": "MFE", "fusion_power_mw": -5}`)))
}
