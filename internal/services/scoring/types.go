// Package scoring provides pure statistics and classification functions that turn raw
// valuation ratios into peer-relative classifications and a composite growth/value score.
// All functions are stateless and perform no I/O.
package scoring

// IndustryStats summarises one metric's distribution over a peer set.
type IndustryStats struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"stdDev"`
	P25    float64 `json:"p25"`
	P75    float64 `json:"p75"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// IQR returns the interquartile range p75 - p25.
func (s IndustryStats) IQR() float64 {
	return s.P75 - s.P25
}

// MetricClassification labels one metric of one stock relative to its peers.
type MetricClassification string

const (
	WayBelow MetricClassification = "WAY_BELOW"
	Below    MetricClassification = "BELOW"
	Average  MetricClassification = "AVERAGE"
	Above    MetricClassification = "ABOVE"
	WayAbove MetricClassification = "WAY_ABOVE"
)

// Style is the growth/value tilt of a stock.
type Style string

const (
	StyleGrowth Style = "GROWTH"
	StyleValue  Style = "VALUE"
	StyleBlend  Style = "BLEND"
)

// GrowthValueScore is the composite score for one stock.
type GrowthValueScore struct {
	Classification Style    `json:"classification"`
	Score          int      `json:"score"`
	Reasons        []string `json:"reasons"`
}

// RankedSymbol is one row of a top-N ranking.
type RankedSymbol struct {
	Symbol         string `json:"symbol"`
	Bucket         string `json:"bucket"`
	Score          int    `json:"score"`
	Classification Style  `json:"classification"`
}
