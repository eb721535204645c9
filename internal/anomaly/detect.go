package anomaly

import (
	"math"
	"strings"
	"time"
)

// Point is a single observation of a metric series, ordered oldest first.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Finding is one detected anomaly in a metric series.
type Finding struct {
	Metric    string    `json:"metric"`
	Date      time.Time `json:"date"`
	Value     float64   `json:"value"`
	Kind      string    `json:"kind"`      // "zscore", "trend", "seasonal"
	Deviation float64   `json:"deviation"` // z units for zscore, percent otherwise
	Severity  string    `json:"severity"`  // "low", "medium", "high"
	Impact    string    `json:"impact"`    // severity weighted by business impact
}

type Sensitivity string

const (
	SensitivityLow    Sensitivity = "low"
	SensitivityMedium Sensitivity = "medium"
	SensitivityHigh   Sensitivity = "high"
)

// trendWindow is the number of preceding points fitted for the linear
// trend check; seasonalPeriod is the lookback for the seasonal baseline.
const (
	trendWindow    = 7
	seasonalPeriod = 7
)

type thresholds struct {
	zScore      float64
	trendPct    float64
	seasonalPct float64
}

func thresholdsFor(sens Sensitivity) thresholds {
	switch sens {
	case SensitivityHigh:
		return thresholds{zScore: 1.5, trendPct: 15, seasonalPct: 25}
	case SensitivityLow:
		return thresholds{zScore: 2.5, trendPct: 35, seasonalPct: 45}
	default:
		return thresholds{zScore: 2.0, trendPct: 25, seasonalPct: 35}
	}
}

// Detect scans a metric series for statistical anomalies: Z-score outliers
// against the series mean, deviations from a fitted short-term linear
// trend, and deviations from the value one seasonal period earlier.
func Detect(metric string, series []Point, sens Sensitivity) []Finding {
	findings := []Finding{}

	if len(series) == 0 {
		return findings
	}

	t := thresholdsFor(sens)

	mean, stddev := meanStddev(series)

	if stddev > 0 {
		for _, p := range series {
			z := math.Abs(p.Value-mean) / stddev
			if z > t.zScore {
				findings = append(findings, newFinding(metric, p, "zscore", z, t.zScore))
			}
		}
	}

	for i := trendWindow; i < len(series); i++ {
		predicted := predictNext(series[i-trendWindow : i])
		deviation := percentDeviation(series[i].Value, predicted)
		if deviation > t.trendPct {
			findings = append(findings, newFinding(metric, series[i], "trend", deviation, t.trendPct))
		}
	}

	for i := seasonalPeriod; i < len(series); i++ {
		baseline := series[i-seasonalPeriod].Value
		if baseline == 0 {
			continue
		}
		deviation := percentDeviation(series[i].Value, baseline)
		if deviation > t.seasonalPct {
			findings = append(findings, newFinding(metric, series[i], "seasonal", deviation, t.seasonalPct))
		}
	}

	return findings
}

func newFinding(metric string, p Point, kind string, deviation float64, threshold float64) Finding {
	severity := bucketSeverity(deviation, threshold)

	return Finding{
		Metric:    metric,
		Date:      p.Date,
		Value:     p.Value,
		Kind:      kind,
		Deviation: deviation,
		Severity:  severity,
		Impact:    businessImpact(metric, severity),
	}
}

// bucketSeverity grades how far past the threshold the deviation landed.
func bucketSeverity(deviation float64, threshold float64) string {
	ratio := deviation / threshold

	switch {
	case ratio >= 2:
		return "high"
	case ratio >= 1.5:
		return "medium"
	default:
		return "low"
	}
}

// businessImpact weights revenue- and customer-named metrics one severity
// step harsher.
func businessImpact(metric string, severity string) string {
	name := strings.ToLower(metric)

	critical := strings.Contains(name, "revenue") ||
		strings.Contains(name, "sales") ||
		strings.Contains(name, "customer") ||
		strings.Contains(name, "churn")

	if !critical {
		return severity
	}

	switch severity {
	case "low":
		return "medium"
	default:
		return "high"
	}
}

func meanStddev(series []Point) (float64, float64) {
	var sum float64
	for _, p := range series {
		sum += p.Value
	}
	mean := sum / float64(len(series))

	var variance float64
	for _, p := range series {
		d := p.Value - mean
		variance += d * d
	}
	variance /= float64(len(series))

	return mean, math.Sqrt(variance)
}

// predictNext fits a least-squares line over the window and extrapolates
// one step forward.
func predictNext(window []Point) float64 {
	n := float64(len(window))

	var sumX, sumY, sumXY, sumXX float64
	for i, p := range window {
		x := float64(i)
		sumX += x
		sumY += p.Value
		sumXY += x * p.Value
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return sumY / n
	}

	slope := (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n

	return slope*n + intercept
}

func percentDeviation(actual float64, expected float64) float64 {
	base := math.Abs(expected)
	if base == 0 {
		return 0
	}
	return math.Abs(actual-expected) / base * 100
}
