package models

import "strings"

// RRGPoint is one relative-rotation-graph observation for a symbol.
type RRGPoint struct {
	Symbol       string  `json:"symbol"`
	Date         string  `json:"date"`
	RSRatio      float64 `json:"rsRatio"`
	RSMomentum   float64 `json:"rsMomentum"`
	Quadrant     string  `json:"quadrant"`
	LookbackDays int     `json:"lookback_days"`
}

// Score is the rotation strength used for sector selection.
func (p RRGPoint) Score() float64 {
	return (p.RSRatio + p.RSMomentum) / 2
}

// RRGHistory is the backend's /rrg/history response.
type RRGHistory struct {
	Benchmark    string     `json:"benchmark"`
	LookbackDays int        `json:"lookback_days"`
	Data         []RRGPoint `json:"data"`
}

// Market cap buckets used by the universe data.
const (
	BucketLarge = "large"
	BucketMid   = "mid"
	BucketSmall = "small"
)

// UniverseStock is one entry of a sector universe bucket.
type UniverseStock struct {
	Symbol    string   `json:"symbol" yaml:"symbol"`
	Name      string   `json:"name,omitempty" yaml:"name,omitempty"`
	MarketCap *float64 `json:"marketCap,omitempty" yaml:"market_cap,omitempty"`
}

// SectorStocks is a sector universe partitioned by market-cap bucket.
type SectorStocks struct {
	Large []UniverseStock `json:"large" yaml:"large"`
	Mid   []UniverseStock `json:"mid" yaml:"mid"`
	Small []UniverseStock `json:"small" yaml:"small"`
}

// Flatten returns upper-cased, de-duplicated symbols in large, mid, small order,
// together with the bucket each symbol was first seen in.
func (s *SectorStocks) Flatten() ([]string, map[string]string) {
	buckets := make(map[string]string)
	if s == nil {
		return nil, buckets
	}

	var symbols []string
	add := func(stocks []UniverseStock, bucket string) {
		for _, st := range stocks {
			sym := strings.ToUpper(strings.TrimSpace(st.Symbol))
			if sym == "" {
				continue
			}
			if _, seen := buckets[sym]; seen {
				continue
			}
			buckets[sym] = bucket
			symbols = append(symbols, sym)
		}
	}
	add(s.Large, BucketLarge)
	add(s.Mid, BucketMid)
	add(s.Small, BucketSmall)

	return symbols, buckets
}
