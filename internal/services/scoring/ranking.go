package scoring

import (
	"sort"
	"strings"

	"github.com/ternarybob/stockscope/internal/models"
)

// Candidate is a stock to be scored against its peers.
type Candidate struct {
	Symbol string                  `json:"symbol" validate:"required"`
	Bucket string                  `json:"bucket"`
	Ratios *models.ValuationRatios `json:"ratios"`
}

// ScoreCandidates computes the composite score of each candidate. When stats is nil the
// peer stats are built from the candidates themselves.
func ScoreCandidates(candidates []Candidate, stats map[string]IndustryStats) []RankedSymbol {
	if stats == nil {
		peers := make([]*models.ValuationRatios, 0, len(candidates))
		for _, c := range candidates {
			peers = append(peers, c.Ratios)
		}
		stats = BuildIndustryStats(peers)
	}

	out := make([]RankedSymbol, 0, len(candidates))
	for _, c := range candidates {
		gv := ClassifyGrowthValue(c.Ratios, stats)
		out = append(out, RankedSymbol{
			Symbol:         strings.ToUpper(c.Symbol),
			Bucket:         c.Bucket,
			Score:          gv.Score,
			Classification: gv.Classification,
		})
	}
	return out
}

// RankTopN sorts by score descending (ties by symbol) and keeps at most n rows.
// n <= 0 keeps every row. The input is not modified.
func RankTopN(ranked []RankedSymbol, n int) []RankedSymbol {
	sorted := make([]RankedSymbol, len(ranked))
	copy(sorted, ranked)
	sortRanked(sorted)

	if n > 0 && n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

// PeerRank returns symbol's 1-based position by score among ranked.
func PeerRank(symbol string, ranked []RankedSymbol) (models.RankInfo, bool) {
	sorted := RankTopN(ranked, 0)
	symbol = strings.ToUpper(symbol)
	for i, r := range sorted {
		if r.Symbol == symbol {
			return models.RankInfo{Rank: i + 1, Total: len(sorted)}, true
		}
	}
	return models.RankInfo{}, false
}

func sortRanked(rows []RankedSymbol) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].Symbol < rows[j].Symbol
	})
}
