package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name          string  `json:"name"`
	FusionPowerMW float64 `json:"fusion_power_mw"`
}

func TestSmartParse_Strategies(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"strict json", `{"name": "A", "fusion_power_mw": 500}`},
		{"trailing comma", `{"name": "A", "fusion_power_mw": 500,}`},
		{"single quotes", `{'name': 'A', 'fusion_power_mw': 500}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s sample
			_, err := SmartParse(tt.input, &s)
			require.NoError(t, err)
			assert.Equal(t, "A", s.Name)
			assert.Equal(t, 500.0, s.FusionPowerMW)
		})
	}
}

func TestParseHJSONToStruct(t *testing.T) {
	var s sample
	require.NoError(t, ParseHJSONToStruct("name: B\nfusion_power_mw: 1000", &s))
	assert.Equal(t, "B", s.Name)
	assert.Equal(t, 1000.0, s.FusionPowerMW)

	assert.Error(t, ParseHJSONToStruct("{ name: [", &s))
}

func TestMarkdownHeadings(t *testing.T) {
	md := "# Plant\n\nbody\n\n## Costs\n\n| a | b |\n\n## Financial\n"
	assert.Equal(t, []string{"Plant", "Costs", "Financial"}, MarkdownHeadings(md))
	assert.True(t, ValidateMarkdown(md))
	assert.False(t, ValidateMarkdown("   "))
}
