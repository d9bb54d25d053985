// Package agent implements the district monitoring agents and the city
// coordinator.
package agent

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/citygrid/citygrid/internal/advisor"
	"github.com/citygrid/citygrid/internal/bus"
	"github.com/citygrid/citygrid/internal/event"
	"github.com/citygrid/citygrid/internal/recorder"
)

// DistrictAgent monitors a single district: it consumes normalized sensor
// events, persists them, decides escalation (advisor-assisted or
// deterministic) and handles coordination commands from the coordinator.
type DistrictAgent struct {
	district string
	sensors  *bus.Queue[event.SensorEvent]
	control  *bus.Queue[event.Message]
	inbox    *bus.Queue[event.Message]
	adv      advisor.Advisor
	rec      recorder.Recorder
	window   *RecentWindow
	wait     time.Duration
	running  atomic.Bool
}

// NewDistrictAgent creates the agent for one district. inbox is the
// coordinator's inbox, shared with every other district agent.
func NewDistrictAgent(district string, sensors *bus.Queue[event.SensorEvent], control *bus.Queue[event.Message], inbox *bus.Queue[event.Message], adv advisor.Advisor, rec recorder.Recorder, wait time.Duration) *DistrictAgent {
	if wait <= 0 {
		wait = 500 * time.Millisecond
	}
	return &DistrictAgent{
		district: district,
		sensors:  sensors,
		control:  control,
		inbox:    inbox,
		adv:      adv,
		rec:      rec,
		window:   NewRecentWindow(),
		wait:     wait,
	}
}

// District returns the agent's district name.
func (a *DistrictAgent) District() string { return a.district }

// Run is the agent's main loop. Control messages are drained to
// exhaustion before each sensor wait, so commands are never starved by a
// busy sensor stream.
func (a *DistrictAgent) Run(ctx context.Context) {
	a.running.Store(true)
	slog.Info("district agent started", "district", a.district)
	for a.running.Load() {
		a.drainControl()

		ev, ok := a.sensors.Get(a.wait)
		if !ok {
			continue
		}
		a.handleSensorEvent(ctx, ev)
	}
	slog.Info("district agent stopped", "district", a.district)
}

// Stop requests cooperative shutdown.
func (a *DistrictAgent) Stop() {
	a.running.Store(false)
}

// drainControl handles every pending coordination command without
// blocking.
func (a *DistrictAgent) drainControl() {
	for {
		msg, ok := a.control.TryGet()
		if !ok {
			return
		}
		a.handleControl(msg)
	}
}

// handleControl reacts to a control message. Coordination commands are
// currently logged; this is the hook where local actuation would attach.
func (a *DistrictAgent) handleControl(msg event.Message) {
	switch msg.Kind {
	case event.KindCoordinationCommand:
		if msg.Command == nil {
			slog.Warn("coordination command without payload", "district", a.district, "source", msg.Source)
			return
		}
		slog.Info("coordination command received",
			"district", a.district,
			"action", msg.Command.ActionType,
			"from_district", msg.Command.FromDistrict,
			"trace_id", msg.TraceID)
	default:
		slog.Info("unexpected control message", "district", a.district, "kind", msg.Kind, "source", msg.Source)
	}
}

// handleSensorEvent runs the full decision pipeline for one event:
// persist, decide escalation, possibly escalate, then record the event in
// the recent window.
//
// Note the ordering: the event is persisted with its original severity,
// while the advisor's normalized severity is written into the copy that
// enters the window (and the escalation payload). This mirrors the
// long-standing behavior of the deployed system; changing it would change
// what the dashboard shows versus what the advisor sees as context.
func (a *DistrictAgent) handleSensorEvent(ctx context.Context, ev event.SensorEvent) {
	if err := a.rec.PersistEvent(ctx, ev); err != nil {
		slog.Error("event persistence failed", "district", a.district, "error", err)
	}

	recent := a.window.Summaries()
	current := advisor.SummaryOf(ev)

	severity := strings.ToLower(ev.Severity)
	useLLM := severity == event.SeverityMedium || severity == event.SeverityHigh

	var escalate bool
	var reason string
	if useLLM {
		decision, err := a.adv.DecideEscalation(ctx, a.district, recent, current)
		if err != nil {
			slog.Warn("advisor unavailable for decide_escalation, using deterministic rule",
				"district", a.district, "error", err)
			escalate = ev.IsCritical()
			reason = advisor.ReasonFallbackRule
		} else {
			escalate = decision.Escalate
			reason = decision.Reason
			if decision.NormalizedSeverity != "" {
				ev.Severity = decision.NormalizedSeverity
			}
			slog.Info("advisor escalation decision",
				"district", a.district,
				"escalate", escalate,
				"normalized_severity", ev.Severity,
				"reason", reason)
		}
	} else {
		escalate = ev.IsCritical()
		reason = advisor.ReasonLowSeverityNoLLM
	}

	if escalate {
		slog.Warn("critical event", "district", a.district, "llm_consulted", useLLM, "event", ev.String())
		msg := event.NewEscalation(a.district, ev, reason)
		if a.inbox.TryPut(msg) {
			slog.Info("escalation sent", "district", a.district, "trace_id", msg.TraceID)
		} else {
			// Escalation delivery is best-effort: a saturated coordinator
			// must not stall the local agent.
			slog.Error("coordinator inbox full, escalation dropped", "district", a.district)
		}
	} else {
		slog.Info("event below escalation threshold", "district", a.district, "llm_consulted", useLLM, "event", ev.String())
	}

	a.window.Append(ev)
}
