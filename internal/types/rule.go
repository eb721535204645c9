package types

// Aggregation is the reduction applied to a window of recent metric records
// before the threshold comparison. An empty value means "latest record only".
type Aggregation string

const (
	AggNone  Aggregation = ""
	AggSum   Aggregation = "sum"
	AggAvg   Aggregation = "avg"
	AggMin   Aggregation = "min"
	AggMax   Aggregation = "max"
	AggCount Aggregation = "count"
)

// Operator is the relational comparison between the computed value and the
// rule threshold.
type Operator string

const (
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpEqual        Operator = "="
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
)

const (
	ActionEmail   = "email"
	ActionSlack   = "slack"
	ActionInApp   = "in_app"
	DefaultWindow = 100
)

// RuleCondition is the persisted shape of an automation rule's condition.
type RuleCondition struct {
	Metric      string         `json:"metric"`
	Operator    Operator       `json:"operator"`
	Threshold   float64        `json:"threshold"`
	Aggregation Aggregation    `json:"aggregation,omitempty"`
	Limit       int            `json:"limit,omitempty"`
	Trend       *TrendTrigger  `json:"trend,omitempty"`
	Anomaly     *AnomalyConfig `json:"anomaly,omitempty"`
}

// TrendTrigger and AnomalyConfig are advanced trigger options carried on the
// rule condition. They are validated and persisted but not evaluated by the
// aggregation engine; composite AND/OR conditions are not supported.
type TrendTrigger struct {
	Direction  string  `json:"direction"` // "up", "down"
	PercentMin float64 `json:"percent_min"`
	WindowDays int     `json:"window_days"`
}

type AnomalyConfig struct {
	StdDevMultiplier float64 `json:"stddev_multiplier"`
	BaselineDays     int     `json:"baseline_days"` // rolling baseline, default 30
}

// ActionConfig holds channel-specific dispatch parameters.
type ActionConfig struct {
	To         string `json:"to,omitempty"`          // email destination
	Template   string `json:"template,omitempty"`    // email template name
	WebhookURL string `json:"webhook_url,omitempty"` // slack/webhook destination
}

// ValidAggregation reports whether s is one of the closed set of supported
// aggregation kinds (including "none" and absent).
func ValidAggregation(s Aggregation) bool {
	switch s {
	case AggNone, "none", AggSum, AggAvg, AggMin, AggMax, AggCount:
		return true
	}
	return false
}

// ValidOperator reports whether s is a supported comparison operator.
func ValidOperator(s Operator) bool {
	switch s {
	case OpGreater, OpLess, OpEqual, OpGreaterEqual, OpLessEqual:
		return true
	}
	return false
}
