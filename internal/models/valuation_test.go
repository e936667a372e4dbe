package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisRow_UnmarshalRatioShapes(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		wantPE *float64
	}{
		{
			name:   "explicit ratios object",
			body:   `{"symbol":"A","ratios":{"pe":11},"valuation":{"raw_values":{"pe":99}}}`,
			wantPE: f(11),
		},
		{
			name:   "valuation raw values",
			body:   `{"symbol":"A","valuation":{"score":50,"raw_values":{"pe":14.5,"ps":2}}}`,
			wantPE: f(14.5),
		},
		{
			name:   "metrics spread on the row",
			body:   `{"symbol":"A","passes_filters":true,"pe":21,"growth":{"revenueGrowthTTM":0.2}}`,
			wantPE: f(21),
		},
		{
			name: "no metrics anywhere",
			body: `{"symbol":"A","valuation":{"score":null,"raw_values":{"pe":null}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var row AnalysisRow
			require.NoError(t, json.Unmarshal([]byte(tt.body), &row))
			assert.Equal(t, "A", row.Symbol)

			if tt.wantPE == nil {
				assert.Nil(t, row.Ratios)
				return
			}
			require.NotNil(t, row.Ratios)
			require.NotNil(t, row.Ratios.PE)
			assert.Equal(t, *tt.wantPE, *row.Ratios.PE)
		})
	}
}

func TestAnalysisRow_RawValuesKeptOnValuation(t *testing.T) {
	var result AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(`{"symbols":[
		{"symbol":"X","passes_filters":true,"valuation":{"score":70,"raw_values":{"pb":1.2}}}
	]}`), &result))

	require.Len(t, result.Symbols, 1)
	row := result.Symbols[0]
	assert.True(t, row.PassesFilters)
	require.NotNil(t, row.Valuation.Score)
	assert.Equal(t, 70.0, *row.Valuation.Score)
	require.NotNil(t, row.Valuation.RawValues)
	require.NotNil(t, row.Ratios)
	assert.Equal(t, 1.2, *row.Ratios.PB)
}

func TestValuationRatios_IsEmpty(t *testing.T) {
	var nilRatios *ValuationRatios
	assert.True(t, nilRatios.IsEmpty())
	assert.True(t, (&ValuationRatios{}).IsEmpty())
	assert.False(t, (&ValuationRatios{CashFlow: CashFlowRatios{FCFYield: f(0.04)}}).IsEmpty())
}

func f(v float64) *float64 { return &v }
