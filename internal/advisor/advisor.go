// Package advisor implements the client for the LLM gateway that assists
// escalation and coordination decisions. Every call can fail; callers fall
// back to the deterministic rules in this package instead of surfacing the
// error.
package advisor

import (
	"context"

	"github.com/citygrid/citygrid/internal/event"
)

// EventSummary is the JSON-serializable view of a sensor event sent to the
// gateway as decision context.
type EventSummary struct {
	Timestamp  string  `json:"timestamp"`
	SensorType string  `json:"sensor_type"`
	Value      float64 `json:"value"`
	Unit       string  `json:"unit"`
	Severity   string  `json:"severity"`
}

// SummaryOf builds the gateway view of an event.
func SummaryOf(ev event.SensorEvent) EventSummary {
	return EventSummary{
		Timestamp:  ev.Timestamp,
		SensorType: ev.SensorType,
		Value:      ev.Value,
		Unit:       ev.Unit,
		Severity:   ev.Severity,
	}
}

// DistrictState is one entry of the coordinator's city-state snapshot.
// Index pointers are nil until the first matching escalation arrives.
type DistrictState struct {
	District       string         `json:"district"`
	TrafficIndex   *float64       `json:"traffic_index"`
	PollutionIndex *float64       `json:"pollution_index"`
	OtherMetrics   map[string]any `json:"other_metrics"`
}

// EscalationDecision is the gateway's answer to a decide_escalation call.
type EscalationDecision struct {
	Escalate           bool   `json:"escalate"`
	NormalizedSeverity string `json:"normalized_severity"`
	Reason             string `json:"reason"`
}

// PlanEntry is one district-targeted action in a coordination plan.
type PlanEntry struct {
	TargetDistrict string `json:"target_district"`
	ActionType     string `json:"action_type"`
	Reason         string `json:"reason"`
}

// Advisor is the decision collaborator consulted by the agents.
type Advisor interface {
	// DecideEscalation asks whether the current event warrants escalation,
	// given the district's recent-event window.
	DecideEscalation(ctx context.Context, district string, recent []EventSummary, current EventSummary) (*EscalationDecision, error)
	// PlanCoordination asks for a list of district-targeted actions in
	// response to an escalated event.
	PlanCoordination(ctx context.Context, sourceDistrict string, critical EventSummary, cityState []DistrictState) ([]PlanEntry, error)
}

// Deterministic fallback reasons, recorded on messages and persisted
// actions so decisions stay auditable.
const (
	ReasonFallbackRule     = "fallback_rule"
	ReasonLowSeverityNoLLM = "low_severity_no_llm"
	ReasonSupportFallback  = "support_escalation_fallback"
	ReasonLLMDecision      = "llm_decision"
	ReasonLLMPlan          = "llm_plan"
)

// FallbackActionType is the generic support action in the deterministic
// coordination plan.
const FallbackActionType = "REROUTE_TRAFFIC"

// FallbackPlan builds the deterministic coordination plan: every district
// other than the source gets a generic support action.
func FallbackPlan(sourceDistrict string, districts []string) []PlanEntry {
	var plan []PlanEntry
	for _, d := range districts {
		if d == sourceDistrict {
			continue
		}
		plan = append(plan, PlanEntry{
			TargetDistrict: d,
			ActionType:     FallbackActionType,
			Reason:         ReasonSupportFallback,
		})
	}
	return plan
}
