package anomaly

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func makeSeries(values []float64) []Point {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	series := make([]Point, len(values))
	for i, v := range values {
		series[i] = Point{Date: start.AddDate(0, 0, i), Value: v}
	}
	return series
}

func findingsOfKind(findings []Finding, kind string) []Finding {
	var out []Finding
	for _, f := range findings {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

func TestDetectFlatSeriesHasNoAnomalies(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = 100
	}

	findings := Detect("page_views", makeSeries(values), SensitivityMedium)

	assert.Empty(t, findings)
}

func TestDetectEmptySeries(t *testing.T) {
	findings := Detect("page_views", nil, SensitivityMedium)

	assert.NotNil(t, findings)
	assert.Empty(t, findings)
}

func TestDetectSpikeProducesZScoreFinding(t *testing.T) {
	values := make([]float64, 21)
	for i := range values {
		values[i] = 100
	}
	values[20] = 200

	findings := Detect("page_views", makeSeries(values), SensitivityMedium)

	zFindings := findingsOfKind(findings, "zscore")
	assert.Len(t, zFindings, 1)
	assert.Equal(t, 200.0, zFindings[0].Value)
	assert.Equal(t, "high", zFindings[0].Severity)
}

func TestDetectSpikeProducesTrendAndSeasonalFindings(t *testing.T) {
	values := make([]float64, 21)
	for i := range values {
		values[i] = 100
	}
	values[20] = 200

	findings := Detect("page_views", makeSeries(values), SensitivityMedium)

	// 200 vs a predicted 100 is a 100% trend deviation and a 100%
	// deviation from the value seven periods earlier.
	assert.Len(t, findingsOfKind(findings, "trend"), 1)
	assert.Len(t, findingsOfKind(findings, "seasonal"), 1)
}

func TestThresholdsScaleWithSensitivity(t *testing.T) {
	low := thresholdsFor(SensitivityLow)
	medium := thresholdsFor(SensitivityMedium)
	high := thresholdsFor(SensitivityHigh)

	assert.Equal(t, 2.0, medium.zScore)
	assert.Equal(t, 25.0, medium.trendPct)
	assert.Equal(t, 35.0, medium.seasonalPct)

	assert.Less(t, high.zScore, medium.zScore)
	assert.Less(t, high.trendPct, medium.trendPct)
	assert.Less(t, high.seasonalPct, medium.seasonalPct)

	assert.Greater(t, low.zScore, medium.zScore)
	assert.Greater(t, low.trendPct, medium.trendPct)
	assert.Greater(t, low.seasonalPct, medium.seasonalPct)
}

func TestBucketSeverity(t *testing.T) {
	assert.Equal(t, "low", bucketSeverity(26, 25))
	assert.Equal(t, "medium", bucketSeverity(40, 25))
	assert.Equal(t, "high", bucketSeverity(55, 25))
}

func TestBusinessImpactWeighsRevenueMetrics(t *testing.T) {
	assert.Equal(t, "medium", businessImpact("monthly_revenue", "low"))
	assert.Equal(t, "high", businessImpact("monthly_revenue", "medium"))
	assert.Equal(t, "high", businessImpact("customer_count", "high"))

	// Non-critical metrics keep their statistical severity.
	assert.Equal(t, "low", businessImpact("page_views", "low"))
	assert.Equal(t, "medium", businessImpact("page_views", "medium"))
}

func TestPredictNextExtrapolatesLinearTrend(t *testing.T) {
	window := makeSeries([]float64{10, 20, 30, 40, 50, 60, 70})

	assert.InDelta(t, 80, predictNext(window), 1e-9)
}
