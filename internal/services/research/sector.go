package research

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ternarybob/stockscope/internal/interfaces"
	"github.com/ternarybob/stockscope/internal/models"
)

// SectorETFs is the proxy panel used to pick the leading sector.
var SectorETFs = []string{"XLK", "XLF", "XLY", "XLP", "XLI", "XLE", "XLV", "XLB", "XLU", "XLC", "IYR"}

var sectorLabels = map[string]string{
	"XLK": "Technology",
	"XLF": "Financials",
	"XLY": "Consumer Discretionary",
	"XLP": "Consumer Staples",
	"XLI": "Industrials",
	"XLE": "Energy",
	"XLV": "Health Care",
	"XLB": "Materials",
	"XLU": "Utilities",
	"XLC": "Communication Services",
	"IYR": "Real Estate",
}

// ErrNoRotationData is returned when the RRG history has no usable point.
var ErrNoRotationData = errors.New("no RRG data available for sector selection")

// SectorLabel maps a sector ETF to its sector name, or returns the symbol itself.
func SectorLabel(etf string) string {
	etf = strings.ToUpper(strings.TrimSpace(etf))
	if label, ok := sectorLabels[etf]; ok {
		return label
	}
	return etf
}

// SectorLeader is the outcome of sector auto-selection.
type SectorLeader struct {
	ETF   string
	Label string
	Score float64
}

// ResolveSector fetches rotation history for SectorETFs and returns the sector whose
// latest point has the highest (rsRatio + rsMomentum) / 2.
func ResolveSector(ctx context.Context, rrg interfaces.RRGProvider, lookbackDays int) (SectorLeader, error) {
	history, err := rrg.GetRRGHistory(ctx, SectorETFs, lookbackDays)
	if err != nil {
		return SectorLeader{}, fmt.Errorf("failed to fetch RRG history: %w", err)
	}
	if history == nil {
		return SectorLeader{}, ErrNoRotationData
	}

	leader, ok := pickLeader(history.Data)
	if !ok {
		return SectorLeader{}, ErrNoRotationData
	}
	return leader, nil
}

// pickLeader keeps the latest-dated point per symbol and returns the best scorer.
// Dates are ISO-8601 so they compare lexically. Ties keep the symbol seen first.
func pickLeader(points []models.RRGPoint) (SectorLeader, bool) {
	latest := make(map[string]models.RRGPoint)
	var order []string
	for _, p := range points {
		sym := strings.ToUpper(strings.TrimSpace(p.Symbol))
		if sym == "" {
			continue
		}
		prev, seen := latest[sym]
		if !seen {
			order = append(order, sym)
		}
		if !seen || p.Date > prev.Date {
			latest[sym] = p
		}
	}
	if len(order) == 0 {
		return SectorLeader{}, false
	}

	best := SectorLeader{ETF: order[0], Score: latest[order[0]].Score()}
	for _, sym := range order[1:] {
		if score := latest[sym].Score(); score > best.Score {
			best = SectorLeader{ETF: sym, Score: score}
		}
	}
	best.Label = SectorLabel(best.ETF)
	return best, true
}
