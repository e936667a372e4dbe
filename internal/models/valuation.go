package models

import "encoding/json"

// ValuationRatios is one symbol's raw metric snapshot as returned by the analysis backend.
// Missing metrics are nil.
type ValuationRatios struct {
	PE            *float64 `json:"pe,omitempty"`
	PS            *float64 `json:"ps,omitempty"`
	PB            *float64 `json:"pb,omitempty"`
	EVEBIT        *float64 `json:"ev_ebit,omitempty"`
	EVEBITDA      *float64 `json:"ev_ebitda,omitempty"`
	EVSales       *float64 `json:"ev_sales,omitempty"`
	DividendYield *float64 `json:"dividend_yield,omitempty"`
	RevenueGrowth *float64 `json:"revenue_growth,omitempty"`

	Profitability   ProfitabilityRatios   `json:"profitability"`
	FinancialHealth FinancialHealthRatios `json:"financialHealth"`
	CashFlow        CashFlowRatios        `json:"cashFlow"`
	Growth          GrowthRatios          `json:"growth"`
}

// ProfitabilityRatios groups margin and return metrics.
type ProfitabilityRatios struct {
	GrossMargin     *float64 `json:"grossMargin,omitempty"`
	OperatingMargin *float64 `json:"operatingMargin,omitempty"`
	NetMargin       *float64 `json:"netMargin,omitempty"`
	ROE             *float64 `json:"roe,omitempty"`
	ROIC            *float64 `json:"roic,omitempty"`
}

// FinancialHealthRatios groups balance-sheet strength metrics.
type FinancialHealthRatios struct {
	CurrentRatio     *float64 `json:"currentRatio,omitempty"`
	DebtToEquity     *float64 `json:"debtToEquity,omitempty"`
	InterestCoverage *float64 `json:"interestCoverage,omitempty"`
}

// CashFlowRatios groups free-cash-flow metrics.
type CashFlowRatios struct {
	FCFYield  *float64 `json:"fcfYield,omitempty"`
	FCFMargin *float64 `json:"fcfMargin,omitempty"`
}

// GrowthRatios groups trailing and multi-year growth metrics.
type GrowthRatios struct {
	RevenueGrowthTTM *float64 `json:"revenueGrowthTTM,omitempty"`
	EPSGrowthTTM     *float64 `json:"epsGrowthTTM,omitempty"`
	RevenueGrowth3Y  *float64 `json:"revenueGrowth3Y,omitempty"`
}

// ValuationScore is the backend's per-symbol valuation factor. RawValues carries the
// multiples the factor was computed from.
type ValuationScore struct {
	Score     *float64         `json:"score"`
	RawValues *ValuationRatios `json:"raw_values,omitempty"`
}

// IsEmpty reports whether no metric is set.
func (r *ValuationRatios) IsEmpty() bool {
	if r == nil {
		return true
	}
	for _, v := range []*float64{
		r.PE, r.PS, r.PB, r.EVEBIT, r.EVEBITDA, r.EVSales, r.DividendYield, r.RevenueGrowth,
		r.Profitability.GrossMargin, r.Profitability.OperatingMargin, r.Profitability.NetMargin,
		r.Profitability.ROE, r.Profitability.ROIC,
		r.FinancialHealth.CurrentRatio, r.FinancialHealth.DebtToEquity, r.FinancialHealth.InterestCoverage,
		r.CashFlow.FCFYield, r.CashFlow.FCFMargin,
		r.Growth.RevenueGrowthTTM, r.Growth.EPSGrowthTTM, r.Growth.RevenueGrowth3Y,
	} {
		if v != nil {
			return false
		}
	}
	return true
}

// AnalysisRow is one symbol row in an industry analysis response.
type AnalysisRow struct {
	Symbol        string           `json:"symbol"`
	Industry      string           `json:"industry,omitempty"`
	Sector        string           `json:"sector,omitempty"`
	MarketCap     *float64         `json:"market_cap,omitempty"`
	PassesFilters bool             `json:"passes_filters"`
	Valuation     ValuationScore   `json:"valuation"`
	Ratios        *ValuationRatios `json:"ratios,omitempty"`
}

// UnmarshalJSON fills Ratios from whichever shape the backend sent: an explicit "ratios"
// object, the multiples under "valuation.raw_values", or metrics spread on the row itself.
func (r *AnalysisRow) UnmarshalJSON(data []byte) error {
	type wire AnalysisRow
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = AnalysisRow(w)

	if !r.Ratios.IsEmpty() {
		return nil
	}
	if !r.Valuation.RawValues.IsEmpty() {
		ratios := *r.Valuation.RawValues
		r.Ratios = &ratios
		return nil
	}

	var flat ValuationRatios
	if err := json.Unmarshal(data, &flat); err == nil && !flat.IsEmpty() {
		r.Ratios = &flat
	}
	return nil
}

// CustomRule is one screener rule applied by the analysis backend.
type CustomRule struct {
	Metric   string      `json:"metric"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
	Enabled  bool        `json:"enabled"`
}

// ScreenerFilters is passed through to the analysis backend untouched.
type ScreenerFilters struct {
	Country     string       `json:"country,omitempty"`
	Industry    string       `json:"industry,omitempty"`
	Cap         string       `json:"cap,omitempty" validate:"omitempty,oneof=large mid small all"`
	CustomRules []CustomRule `json:"customRules,omitempty"`
	RuleLogic   string       `json:"ruleLogic,omitempty" validate:"omitempty,oneof=AND OR"`
}

// AnalysisRequest is a single-chunk analysis call.
type AnalysisRequest struct {
	Industry string             `json:"-"`
	Symbols  []string           `json:"symbols"`
	Weights  map[string]float64 `json:"weights,omitempty"`
	Filters  *ScreenerFilters   `json:"filters,omitempty"`
}

// AnalysisResult is the (possibly merged) analysis response.
type AnalysisResult struct {
	Industry string        `json:"industry"`
	Symbols  []AnalysisRow `json:"symbols"`
}

// RankInfo is a symbol's 1-based position among its eligible peers.
type RankInfo struct {
	Rank  int `json:"rank"`
	Total int `json:"total"`
}
