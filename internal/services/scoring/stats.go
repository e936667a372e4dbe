package scoring

import (
	"math"
	"sort"
)

// CalculateStats summarises values, ignoring NaN and infinite entries.
// With no valid values every field is zero.
//
// Percentiles use nearest-rank selection: sorted[floor(n*q)].
// StdDev is the population standard deviation.
func CalculateStats(values []float64) IndustryStats {
	valid := finiteValues(values)
	n := len(valid)
	if n == 0 {
		return IndustryStats{}
	}

	sort.Float64s(valid)

	return IndustryStats{
		Count:  n,
		Mean:   Mean(valid),
		Median: nearestRank(valid, 0.5),
		StdDev: Stddev(valid),
		P25:    nearestRank(valid, 0.25),
		P75:    nearestRank(valid, 0.75),
		Min:    valid[0],
		Max:    valid[n-1],
	}
}

// nearestRank expects sorted, non-empty input and q in [0, 1).
func nearestRank(sorted []float64, q float64) float64 {
	idx := int(math.Floor(float64(len(sorted)) * q))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func finiteValues(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if isFinite(v) {
			out = append(out, v)
		}
	}
	return out
}
