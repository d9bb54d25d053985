package event

import "github.com/google/uuid"

// Kind tags the inter-agent message variants.
type Kind string

// Message kinds understood by the agents.
const (
	KindEscalationRequest   Kind = "ESCALATION_REQUEST"
	KindCoordinationCommand Kind = "COORDINATION_COMMAND"
)

// CoordinatorName is the well-known target for escalation requests.
const CoordinatorName = "CityCoordinator"

// EscalationPayload carries a critical event from a district agent to the
// coordinator.
type EscalationPayload struct {
	Event  SensorEvent `json:"event"`
	Reason string      `json:"reason"`
}

// CommandPayload carries a coordination action from the coordinator to a
// district agent.
type CommandPayload struct {
	ActionType    string      `json:"action_type"`
	FromDistrict  string      `json:"from_district"`
	OriginalEvent SensorEvent `json:"original_event"`
}

// Message is the envelope exchanged over the control and inbox queues.
// Exactly one payload pointer is set, matching Kind.
type Message struct {
	Kind       Kind               `json:"kind"`
	Source     string             `json:"source"`
	Target     string             `json:"target"`
	TraceID    string             `json:"trace_id"`
	Escalation *EscalationPayload `json:"escalation,omitempty"`
	Command    *CommandPayload    `json:"command,omitempty"`
}

// NewEscalation builds an ESCALATION_REQUEST addressed to the coordinator.
func NewEscalation(district string, ev SensorEvent, reason string) Message {
	return Message{
		Kind:    KindEscalationRequest,
		Source:  district,
		Target:  CoordinatorName,
		TraceID: uuid.NewString(),
		Escalation: &EscalationPayload{
			Event:  ev,
			Reason: reason,
		},
	}
}

// NewCommand builds a COORDINATION_COMMAND addressed to a district. The
// trace ID of the escalation that triggered the command is carried over so
// the full decision chain correlates in logs and persistence.
func NewCommand(target, fromDistrict, actionType, traceID string, original SensorEvent) Message {
	if traceID == "" {
		traceID = uuid.NewString()
	}
	return Message{
		Kind:    KindCoordinationCommand,
		Source:  CoordinatorName,
		Target:  target,
		TraceID: traceID,
		Command: &CommandPayload{
			ActionType:    actionType,
			FromDistrict:  fromDistrict,
			OriginalEvent: original,
		},
	}
}
