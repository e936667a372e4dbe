package scoring

import (
	"fmt"
	"math"

	"github.com/ternarybob/stockscope/internal/models"
)

// InsufficientDataReason is the sole reason given when no metric is usable.
const InsufficientDataReason = "Insufficient data to compute composite score"

// Tilt band: growth minus value position beyond this margin decides the style.
const styleTiltBand = 0.1

// Reason thresholds on the normalised position.
const (
	strongPosition = 0.75
	weakPosition   = 0.25
)

// ClassifyGrowthValue scores ratios against peer stats.
//
// For each metric with a usable peer band (finite, non-zero IQR) and a finite value, the
// position within the band is normalised to [0, 1] in the metric's good direction. The
// composite score is the weighted mean position scaled to 0..100. The style compares the
// mean position of the growth subset with that of the value subset.
func ClassifyGrowthValue(ratios *models.ValuationRatios, stats map[string]IndustryStats) GrowthValueScore {
	if ratios == nil {
		return insufficientData()
	}

	positions := make(map[string]float64)
	var reasons []string
	weightedSum := 0.0
	totalWeight := 0.0

	for _, m := range compositeMetrics {
		pos, ok := position(m, ratios, stats)
		if !ok {
			continue
		}
		positions[m.Key] = pos
		weightedSum += pos * m.Weight
		totalWeight += m.Weight

		if pos >= strongPosition {
			reasons = append(reasons, fmt.Sprintf("%s strong vs peers", m.Label))
		} else if pos <= weakPosition {
			reasons = append(reasons, fmt.Sprintf("%s weak vs peers", m.Label))
		}
	}

	if totalWeight == 0 {
		return insufficientData()
	}

	if pos, ok := position(revenueGrowth3Y, ratios, stats); ok {
		positions[revenueGrowth3Y.Key] = pos
	}

	score := int(math.Round(ClampFloat64(weightedSum/totalWeight*100, 0, 100)))

	if reasons == nil {
		reasons = []string{}
	}

	return GrowthValueScore{
		Classification: styleFor(positions),
		Score:          score,
		Reasons:        reasons,
	}
}

func insufficientData() GrowthValueScore {
	return GrowthValueScore{
		Classification: StyleBlend,
		Score:          0,
		Reasons:        []string{InsufficientDataReason},
	}
}

// position returns the clamped normalised position of a metric, or false when the metric
// has no usable stats or no finite value.
func position(m MetricSpec, ratios *models.ValuationRatios, stats map[string]IndustryStats) (float64, bool) {
	st, ok := stats[m.Key]
	if !ok {
		return 0, false
	}
	iqr := st.P75 - st.P25
	if iqr == 0 || !isFinite(iqr) {
		return 0, false
	}
	value := deref(m.Value(ratios))
	if !isFinite(value) {
		return 0, false
	}

	var pos float64
	if m.HigherIsBetter {
		pos = (value - st.P25) / iqr
	} else {
		pos = (st.P75 - value) / iqr
	}
	return ClampFloat64(pos, 0, 1), true
}

func styleFor(positions map[string]float64) Style {
	growthAvg, okGrowth := subsetAverage(positions, growthMetrics)
	valueAvg, okValue := subsetAverage(positions, valueMetrics)
	if !okGrowth || !okValue {
		return StyleBlend
	}

	tilt := growthAvg - valueAvg
	switch {
	case tilt > styleTiltBand:
		return StyleGrowth
	case tilt < -styleTiltBand:
		return StyleValue
	default:
		return StyleBlend
	}
}

func subsetAverage(positions map[string]float64, keys []string) (float64, bool) {
	sum := 0.0
	n := 0
	for _, k := range keys {
		if pos, ok := positions[k]; ok {
			sum += pos
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
