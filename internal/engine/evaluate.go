package engine

import (
	"encoding/json"
	"math"

	"github.com/stratosphere-bi/stratosphere/internal/models"
	"github.com/stratosphere-bi/stratosphere/internal/types"
)

// Evaluation is the outcome of checking one rule condition against a user's
// recent metric records.
type Evaluation struct {
	CurrentValue float64
	Triggered    bool
}

// Evaluate resolves the condition's current value from records (ordered
// newest first) and compares it against the threshold. Missing metric
// fields, empty windows and unknown operators or aggregations all resolve
// to a safe non-triggering default rather than an error.
func Evaluate(cond types.RuleCondition, records []models.MetricRecord) Evaluation {
	value := resolveValue(cond, records)

	return Evaluation{
		CurrentValue: value,
		Triggered:    compare(value, cond.Operator, cond.Threshold),
	}
}

func resolveValue(cond types.RuleCondition, records []models.MetricRecord) float64 {
	if cond.Aggregation == types.AggNone || cond.Aggregation == "none" {
		// Latest value mode: the single most recent record.
		if len(records) == 0 {
			return 0
		}
		return metricValue(records[0], cond.Metric)
	}

	window := cond.Limit
	if window <= 0 {
		window = types.DefaultWindow
	}
	if len(records) > window {
		records = records[:window]
	}

	if len(records) == 0 {
		return 0
	}

	values := make([]float64, len(records))
	for i, record := range records {
		values[i] = metricValue(record, cond.Metric)
	}

	switch cond.Aggregation {
	case types.AggSum:
		return sum(values)
	case types.AggAvg:
		// Divides by the number of records actually available, which may
		// be fewer than the nominal window.
		return sum(values) / float64(len(values))
	case types.AggMin:
		min := values[0]
		for _, v := range values[1:] {
			if v < min {
				min = v
			}
		}
		return min
	case types.AggMax:
		max := values[0]
		for _, v := range values[1:] {
			if v > max {
				max = v
			}
		}
		return max
	case types.AggCount:
		return float64(len(values))
	default:
		// Unrecognized aggregation falls back to the first value in the
		// window rather than erroring.
		return values[0]
	}
}

func compare(value float64, op types.Operator, threshold float64) bool {
	// Non-finite values never trigger, under any operator.
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return false
	}

	switch op {
	case types.OpGreater:
		return value > threshold
	case types.OpLess:
		return value < threshold
	case types.OpEqual:
		return value == threshold
	case types.OpGreaterEqual:
		return value >= threshold
	case types.OpLessEqual:
		return value <= threshold
	default:
		return false
	}
}

// metricValue reads a named numeric field from a record's JSON payload,
// defaulting to 0 when the field is absent, null or non-numeric.
func metricValue(record models.MetricRecord, metric string) float64 {
	var fields map[string]interface{}

	if err := json.Unmarshal(record.Fields, &fields); err != nil {
		return 0
	}

	value, exists := fields[metric]
	if !exists {
		return 0
	}

	number, ok := value.(float64)
	if !ok {
		return 0
	}

	return number
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}
