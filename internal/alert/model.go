package alert

import (
	"time"

	"github.com/google/uuid"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Metrics a Rule can watch. Ratios are over one aggregation period and are
// zero when their denominator is zero.
const (
	MetricFramesDropped   = "frames_dropped"
	MetricFramesFailed    = "frames_failed"
	MetricInferenceErrors = "inference_errors"
	MetricDropRatio       = "drop_ratio"
	MetricUnknownRatio    = "unknown_ratio"
)

// Rule raises an alert when every condition (or any, with LogicOr) holds
// for a period.
type Rule struct {
	Name           string        `json:"name"`
	Conditions     []Condition   `json:"conditions"`
	ConditionLogic string        `json:"condition_logic"`
	Cooldown       time.Duration `json:"cooldown"`
	Severity       Severity      `json:"severity"`
}

type Condition struct {
	Metric    string  `json:"metric"`
	Operator  string  `json:"operator"`
	Threshold float64 `json:"threshold"`
}

const (
	LogicAnd = "AND"
	LogicOr  = "OR"
)

// Alert is one firing of a Rule
type Alert struct {
	ID          uuid.UUID          `json:"id"`
	Rule        string             `json:"rule"`
	Severity    Severity           `json:"severity"`
	Values      map[string]float64 `json:"values"`
	PeriodStart time.Time          `json:"period_start"`
	PeriodEnd   time.Time          `json:"period_end"`
	TriggeredAt time.Time          `json:"triggered_at"`
}
