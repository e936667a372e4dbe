package scoring

import "github.com/ternarybob/stockscope/internal/models"

// ClassifyMetric places value relative to the peer band [p25, p75], using the IQR as the
// unit for the "way" bands. Comparisons are strict, so boundary values take the less
// extreme label. Missing or non-finite values are AVERAGE.
//
// Labels are positional for both directions. With inverted set (lower is better) an
// excursion above the band is still ABOVE/WAY_ABOVE, which for such a metric is the bad
// direction; a value under the band is BELOW/WAY_BELOW, the good direction.
func ClassifyMetric(value float64, stats IndustryStats, inverted bool) MetricClassification {
	if !isFinite(value) {
		return Average
	}

	iqr := stats.IQR()

	switch {
	case value < stats.P25-iqr:
		return WayBelow
	case value < stats.P25:
		return Below
	case value > stats.P75+iqr:
		return WayAbove
	case value > stats.P75:
		return Above
	default:
		return Average
	}
}

// ClassifyMetrics classifies every metric in the composite table that has peer stats.
// Lower-is-better metrics are classified inverted.
func ClassifyMetrics(ratios *models.ValuationRatios, stats map[string]IndustryStats) map[string]MetricClassification {
	out := make(map[string]MetricClassification, len(compositeMetrics))
	if ratios == nil {
		return out
	}
	for _, m := range compositeMetrics {
		st, ok := stats[m.Key]
		if !ok {
			continue
		}
		out[m.Key] = ClassifyMetric(deref(m.Value(ratios)), st, !m.HigherIsBetter)
	}
	return out
}
