package research

import (
	"strings"

	"github.com/ternarybob/stockscope/internal/models"
)

// Bounds applied to submissions.
const (
	MinLookbackDays     = 30
	MaxLookbackDays     = 3600
	DefaultLookbackDays = 180
	MinTopN             = 1
	MaxTopN             = 100
	DefaultTopN         = 10
)

// Defaults supplies the values used when a request omits lookback_days or top_n.
type Defaults struct {
	LookbackDays int
	TopN         int
}

// NormalizeRequest fills defaults, clamps numeric fields and trims the sector.
// A zero or negative value counts as omitted.
func NormalizeRequest(req models.ResearchRequest, d Defaults) models.ResearchRequest {
	lookback := d.LookbackDays
	if lookback <= 0 {
		lookback = DefaultLookbackDays
	}
	topN := d.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}

	if req.LookbackDays <= 0 {
		req.LookbackDays = lookback
	}
	req.LookbackDays = clampInt(req.LookbackDays, MinLookbackDays, MaxLookbackDays)

	if req.TopN <= 0 {
		req.TopN = topN
	}
	req.TopN = clampInt(req.TopN, MinTopN, MaxTopN)

	req.Sector = strings.TrimSpace(req.Sector)
	return req
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
