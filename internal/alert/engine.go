package alert

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/glimpse/internal/metrics"
)

// DefaultRules watch for a pipeline that cannot keep up or a failing model
func DefaultRules(dropRatio float64, cooldown time.Duration) []Rule {
	return []Rule{
		{
			Name: "frames_backlogged",
			Conditions: []Condition{
				{Metric: MetricDropRatio, Operator: "gt", Threshold: dropRatio},
			},
			ConditionLogic: LogicAnd,
			Cooldown:       cooldown,
			Severity:       SeverityWarning,
		},
		{
			Name: "inference_failing",
			Conditions: []Condition{
				{Metric: MetricInferenceErrors, Operator: "gt", Threshold: 0},
				{Metric: MetricFramesFailed, Operator: "gt", Threshold: 0},
			},
			ConditionLogic: LogicOr,
			Cooldown:       cooldown,
			Severity:       SeverityCritical,
		},
	}
}

type Engine struct {
	rules []Rule

	mu            sync.Mutex
	lastTriggered map[string]time.Time
}

func NewEngine(rules []Rule) *Engine {
	return &Engine{
		rules:         rules,
		lastTriggered: make(map[string]time.Time),
	}
}

// Evaluate checks every rule against the report's period and returns the
// alerts that fire. A rule inside its cooldown does not fire.
func (e *Engine) Evaluate(report metrics.Report, now time.Time) []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	var fired []Alert
	for _, rule := range e.rules {
		triggered, values := evaluateRule(rule, report)
		if !triggered || !e.shouldTrigger(rule, now) {
			continue
		}
		e.lastTriggered[rule.Name] = now
		fired = append(fired, Alert{
			ID:          uuid.New(),
			Rule:        rule.Name,
			Severity:    rule.Severity,
			Values:      values,
			PeriodStart: report.PeriodStart,
			PeriodEnd:   report.PeriodEnd,
			TriggeredAt: now,
		})
	}
	return fired
}

func evaluateRule(rule Rule, report metrics.Report) (bool, map[string]float64) {
	if len(rule.Conditions) == 0 {
		return false, nil
	}

	values := make(map[string]float64, len(rule.Conditions))
	conditionsMet := make([]bool, len(rule.Conditions))
	for i, cond := range rule.Conditions {
		value := metricValue(report, cond.Metric)
		values[cond.Metric] = value
		conditionsMet[i] = evaluateCondition(cond.Operator, value, cond.Threshold)
	}

	var triggered bool
	if rule.ConditionLogic == LogicOr {
		for _, met := range conditionsMet {
			if met {
				triggered = true
				break
			}
		}
	} else {
		triggered = true
		for _, met := range conditionsMet {
			if !met {
				triggered = false
				break
			}
		}
	}
	return triggered, values
}

func metricValue(report metrics.Report, name string) float64 {
	p := report.Period
	switch name {
	case MetricFramesDropped:
		return float64(p.FramesDropped)
	case MetricFramesFailed:
		return float64(p.FramesFailed)
	case MetricInferenceErrors:
		return float64(p.InferenceErrors)
	case MetricDropRatio:
		return ratio(p.FramesDropped, p.FramesSubmitted)
	case MetricUnknownRatio:
		return ratio(p.FacesUnknown, p.FacesMatched+p.FacesUnknown)
	default:
		return 0
	}
}

func ratio(n, d uint64) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

func evaluateCondition(operator string, value, threshold float64) bool {
	switch operator {
	case "gt":
		return value > threshold
	case "gte":
		return value >= threshold
	case "lt":
		return value < threshold
	case "lte":
		return value <= threshold
	case "eq":
		return value == threshold
	case "ne":
		return value != threshold
	default:
		return false
	}
}

func (e *Engine) shouldTrigger(rule Rule, now time.Time) bool {
	last, ok := e.lastTriggered[rule.Name]
	if !ok {
		return true
	}
	return now.After(last.Add(rule.Cooldown))
}
