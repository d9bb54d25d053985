package agent

import (
	"context"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/citygrid/citygrid/internal/advisor"
	"github.com/citygrid/citygrid/internal/bus"
	"github.com/citygrid/citygrid/internal/event"
	"github.com/citygrid/citygrid/internal/recorder"
)

// CommandNotifier is notified of every dispatched coordination command.
// Best-effort, like persistence.
type CommandNotifier interface {
	CommandDispatched(ctx context.Context, sourceDistrict, targetDistrict, actionType, reason string) error
}

// Coordinator is the single city-level agent. It consumes escalations,
// maintains the city state, requests (or derives) a coordination plan and
// dispatches commands to the target districts' control queues.
type Coordinator struct {
	inbox    *bus.Queue[event.Message]
	controls map[string]*bus.Queue[event.Message]
	adv      advisor.Advisor
	rec      recorder.Recorder
	notifier CommandNotifier // may be nil
	state    *CityState
	wait     time.Duration
	running  atomic.Bool

	dispatched atomic.Uint64
}

// NewCoordinator creates the coordinator. controls maps every configured
// district to its control queue; that map also defines the set of valid
// plan targets.
func NewCoordinator(inbox *bus.Queue[event.Message], controls map[string]*bus.Queue[event.Message], adv advisor.Advisor, rec recorder.Recorder, notifier CommandNotifier, wait time.Duration) *Coordinator {
	if wait <= 0 {
		wait = time.Second
	}
	return &Coordinator{
		inbox:    inbox,
		controls: controls,
		adv:      adv,
		rec:      rec,
		notifier: notifier,
		state:    NewCityState(),
		wait:     wait,
	}
}

// Run is the coordinator's main loop.
func (c *Coordinator) Run(ctx context.Context) {
	c.running.Store(true)
	slog.Info("city coordinator started", "districts", len(c.controls))
	for c.running.Load() {
		msg, ok := c.inbox.Get(c.wait)
		if !ok {
			continue
		}
		c.handleMessage(ctx, msg)
	}
	slog.Info("city coordinator stopped")
}

// Stop requests cooperative shutdown.
func (c *Coordinator) Stop() {
	c.running.Store(false)
}

// Dispatched returns the number of coordination commands successfully
// enqueued.
func (c *Coordinator) Dispatched() uint64 { return c.dispatched.Load() }

func (c *Coordinator) handleMessage(ctx context.Context, msg event.Message) {
	switch msg.Kind {
	case event.KindEscalationRequest:
		c.handleEscalation(ctx, msg)
	default:
		slog.Info("unexpected coordinator message", "kind", msg.Kind, "source", msg.Source)
	}
}

func (c *Coordinator) handleEscalation(ctx context.Context, msg event.Message) {
	if msg.Escalation == nil {
		slog.Warn("escalation request without payload", "source", msg.Source)
		return
	}
	ev := msg.Escalation.Event
	source := msg.Source
	slog.Warn("escalation received", "source", source, "trace_id", msg.TraceID, "event", ev.String())

	c.state.Update(source, ev)

	critical := advisor.SummaryOf(ev)
	if critical.SensorType == "" {
		critical.SensorType = "unknown"
	}
	if critical.Severity == "" {
		critical.Severity = event.SeverityUnknown
	}
	cityState := c.state.Snapshot()

	plan, err := c.adv.PlanCoordination(ctx, source, critical, cityState)
	if err != nil {
		slog.Warn("advisor unavailable for plan_coordination, using fallback plan",
			"source", source, "error", err)
		plan = advisor.FallbackPlan(source, c.districts())
	} else {
		slog.Info("advisor coordination plan", "source", source, "entries", len(plan))
	}

	c.dispatchPlan(ctx, source, msg.TraceID, ev, plan)
}

// dispatchPlan validates and dispatches each plan entry independently:
// one bad entry never aborts the rest of the plan.
func (c *Coordinator) dispatchPlan(ctx context.Context, source, traceID string, ev event.SensorEvent, plan []advisor.PlanEntry) {
	for _, entry := range plan {
		target := entry.TargetDistrict
		control, known := c.controls[target]
		if target == "" || target == source || !known {
			slog.Warn("invalid plan entry skipped",
				"source", source, "target", target, "action", entry.ActionType)
			continue
		}

		actionType := entry.ActionType
		if actionType == "" {
			actionType = "UNKNOWN_ACTION"
		}
		reason := entry.Reason
		if reason == "" {
			reason = advisor.ReasonLLMPlan
		}

		cmd := event.NewCommand(target, source, actionType, traceID, ev)
		if !control.TryPut(cmd) {
			slog.Error("control queue full, command dropped", "target", target, "action", actionType)
			continue
		}
		c.dispatched.Add(1)
		slog.Info("coordination command dispatched",
			"target", target, "source", source, "action", actionType, "trace_id", cmd.TraceID)

		if err := c.rec.PersistAction(ctx, source, target, actionType, reason, ev); err != nil {
			slog.Error("action persistence failed", "target", target, "error", err)
		}
		if c.notifier != nil {
			if err := c.notifier.CommandDispatched(ctx, source, target, actionType, reason); err != nil {
				slog.Warn("command notification failed", "target", target, "error", err)
			}
		}
	}
}

func (c *Coordinator) districts() []string {
	out := make([]string, 0, len(c.controls))
	for d := range c.controls {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
