package scoring

import "github.com/ternarybob/stockscope/internal/models"

// MetricSpec describes one metric used in composite scoring.
type MetricSpec struct {
	Key            string
	Label          string
	Value          func(r *models.ValuationRatios) *float64
	HigherIsBetter bool
	Weight         float64
}

// compositeMetrics is the weighted table behind the composite score.
var compositeMetrics = []MetricSpec{
	{Key: "pe", Label: "P/E", Value: func(r *models.ValuationRatios) *float64 { return r.PE }, Weight: 1.0},
	{Key: "ps", Label: "P/S", Value: func(r *models.ValuationRatios) *float64 { return r.PS }, Weight: 1.0},
	{Key: "pb", Label: "P/B", Value: func(r *models.ValuationRatios) *float64 { return r.PB }, Weight: 0.75},
	{Key: "ev_ebit", Label: "EV/EBIT", Value: func(r *models.ValuationRatios) *float64 { return r.EVEBIT }, Weight: 0.75},
	{Key: "ev_ebitda", Label: "EV/EBITDA", Value: func(r *models.ValuationRatios) *float64 { return r.EVEBITDA }, Weight: 1.0},
	{Key: "ev_sales", Label: "EV/Sales", Value: func(r *models.ValuationRatios) *float64 { return r.EVSales }, Weight: 0.75},
	{Key: "dividend_yield", Label: "Dividend yield", Value: func(r *models.ValuationRatios) *float64 { return r.DividendYield }, HigherIsBetter: true, Weight: 0.5},
	{Key: "revenue_growth", Label: "Revenue growth", Value: func(r *models.ValuationRatios) *float64 { return r.RevenueGrowth }, HigherIsBetter: true, Weight: 1.0},
	{Key: "gross_margin", Label: "Gross margin", Value: func(r *models.ValuationRatios) *float64 { return r.Profitability.GrossMargin }, HigherIsBetter: true, Weight: 0.75},
	{Key: "operating_margin", Label: "Operating margin", Value: func(r *models.ValuationRatios) *float64 { return r.Profitability.OperatingMargin }, HigherIsBetter: true, Weight: 0.75},
	{Key: "net_margin", Label: "Net margin", Value: func(r *models.ValuationRatios) *float64 { return r.Profitability.NetMargin }, HigherIsBetter: true, Weight: 0.5},
	{Key: "roe", Label: "ROE", Value: func(r *models.ValuationRatios) *float64 { return r.Profitability.ROE }, HigherIsBetter: true, Weight: 1.0},
	{Key: "roic", Label: "ROIC", Value: func(r *models.ValuationRatios) *float64 { return r.Profitability.ROIC }, HigherIsBetter: true, Weight: 1.0},
	{Key: "current_ratio", Label: "Current ratio", Value: func(r *models.ValuationRatios) *float64 { return r.FinancialHealth.CurrentRatio }, HigherIsBetter: true, Weight: 0.5},
	{Key: "debt_to_equity", Label: "Debt/Equity", Value: func(r *models.ValuationRatios) *float64 { return r.FinancialHealth.DebtToEquity }, Weight: 0.75},
	{Key: "interest_coverage", Label: "Interest coverage", Value: func(r *models.ValuationRatios) *float64 { return r.FinancialHealth.InterestCoverage }, HigherIsBetter: true, Weight: 0.5},
	{Key: "fcf_yield", Label: "FCF yield", Value: func(r *models.ValuationRatios) *float64 { return r.CashFlow.FCFYield }, HigherIsBetter: true, Weight: 1.0},
	{Key: "fcf_margin", Label: "FCF margin", Value: func(r *models.ValuationRatios) *float64 { return r.CashFlow.FCFMargin }, HigherIsBetter: true, Weight: 0.75},
	{Key: "revenue_growth_ttm", Label: "Revenue growth (TTM)", Value: func(r *models.ValuationRatios) *float64 { return r.Growth.RevenueGrowthTTM }, HigherIsBetter: true, Weight: 1.0},
	{Key: "eps_growth_ttm", Label: "EPS growth (TTM)", Value: func(r *models.ValuationRatios) *float64 { return r.Growth.EPSGrowthTTM }, HigherIsBetter: true, Weight: 1.0},
}

// revenueGrowth3Y is only used by the growth tilt, not the weighted composite.
var revenueGrowth3Y = MetricSpec{
	Key:            "revenue_growth_3y",
	Label:          "Revenue growth (3Y)",
	Value:          func(r *models.ValuationRatios) *float64 { return r.Growth.RevenueGrowth3Y },
	HigherIsBetter: true,
}

// Style subsets for the growth/value tilt.
var (
	growthMetrics = []string{"revenue_growth", "revenue_growth_ttm", "eps_growth_ttm", "revenue_growth_3y"}
	valueMetrics  = []string{"pe", "pb", "ev_ebitda", "fcf_yield", "dividend_yield"}
)

// CompositeMetrics returns a copy of the weighted metric table.
func CompositeMetrics() []MetricSpec {
	out := make([]MetricSpec, len(compositeMetrics))
	copy(out, compositeMetrics)
	return out
}

// allMetrics is every metric that needs peer stats.
func allMetrics() []MetricSpec {
	return append(CompositeMetrics(), revenueGrowth3Y)
}

// BuildIndustryStats computes peer stats for every metric over the given ratios.
// Nil entries are skipped; missing metric values are ignored per metric.
func BuildIndustryStats(peers []*models.ValuationRatios) map[string]IndustryStats {
	metrics := allMetrics()
	out := make(map[string]IndustryStats, len(metrics))
	for _, m := range metrics {
		values := make([]float64, 0, len(peers))
		for _, r := range peers {
			if r == nil {
				continue
			}
			values = append(values, deref(m.Value(r)))
		}
		out[m.Key] = CalculateStats(values)
	}
	return out
}
