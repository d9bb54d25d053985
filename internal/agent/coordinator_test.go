package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/citygrid/citygrid/internal/advisor"
	"github.com/citygrid/citygrid/internal/bus"
	"github.com/citygrid/citygrid/internal/event"
)

func newTestCoordinator(adv *fakeAdvisor, rec *captureRecorder, notifier CommandNotifier) (*Coordinator, *bus.Queue[event.Message], map[string]*bus.Queue[event.Message]) {
	inbox := bus.New[event.Message]("inbox", 10)
	controls := map[string]*bus.Queue[event.Message]{
		"quartiere1": bus.New[event.Message]("control:quartiere1", 10),
		"quartiere2": bus.New[event.Message]("control:quartiere2", 10),
	}
	c := NewCoordinator(inbox, controls, adv, rec, notifier, 50*time.Millisecond)
	return c, inbox, controls
}

func criticalTrafficEscalation() event.Message {
	ev := event.SensorEvent{
		District:   "quartiere1",
		SensorType: "traffic",
		Value:      120,
		Unit:       "veh/min",
		Severity:   "high",
		Timestamp:  "2026-08-29T10:00:00Z",
	}
	return event.NewEscalation("quartiere1", ev, advisor.ReasonFallbackRule)
}

func TestFallbackPlanReroutesOtherDistricts(t *testing.T) {
	// Both advisor operations failing must still produce exactly one
	// support command to the other district.
	adv := &fakeAdvisor{planErr: errors.New("gateway down")}
	rec := &captureRecorder{}
	c, _, controls := newTestCoordinator(adv, rec, nil)

	c.handleMessage(context.Background(), criticalTrafficEscalation())

	if controls["quartiere1"].Len() != 0 {
		t.Error("source district must not receive a command")
	}
	cmd, ok := controls["quartiere2"].TryGet()
	if !ok {
		t.Fatal("expected a command on quartiere2's control queue")
	}
	if cmd.Kind != event.KindCoordinationCommand {
		t.Errorf("kind = %q", cmd.Kind)
	}
	if cmd.Command.ActionType != advisor.FallbackActionType {
		t.Errorf("action = %q, want %q", cmd.Command.ActionType, advisor.FallbackActionType)
	}
	if cmd.Command.FromDistrict != "quartiere1" {
		t.Errorf("from_district = %q", cmd.Command.FromDistrict)
	}

	actions := rec.recordedActions()
	if len(actions) != 1 {
		t.Fatalf("recorded %d actions, want 1", len(actions))
	}
	got := actions[0]
	if got.source != "quartiere1" || got.target != "quartiere2" {
		t.Errorf("action source/target = %q/%q", got.source, got.target)
	}
	if got.reason != advisor.ReasonSupportFallback {
		t.Errorf("reason = %q, want %q", got.reason, advisor.ReasonSupportFallback)
	}
	if got.snapshot.Value != 120 {
		t.Errorf("snapshot value = %v", got.snapshot.Value)
	}
	if c.Dispatched() != 1 {
		t.Errorf("dispatched = %d, want 1", c.Dispatched())
	}
}

func TestAdvisorPlanDispatched(t *testing.T) {
	adv := &fakeAdvisor{plan: []advisor.PlanEntry{
		{TargetDistrict: "quartiere2", ActionType: "INCREASE_TRANSIT", Reason: "absorb rerouted load"},
	}}
	rec := &captureRecorder{}
	c, _, controls := newTestCoordinator(adv, rec, nil)

	c.handleMessage(context.Background(), criticalTrafficEscalation())

	cmd, ok := controls["quartiere2"].TryGet()
	if !ok {
		t.Fatal("expected a command on quartiere2's control queue")
	}
	if cmd.Command.ActionType != "INCREASE_TRANSIT" {
		t.Errorf("action = %q", cmd.Command.ActionType)
	}
	actions := rec.recordedActions()
	if len(actions) != 1 || actions[0].reason != "absorb rerouted load" {
		t.Errorf("actions = %+v", actions)
	}
}

func TestInvalidPlanEntriesSkipped(t *testing.T) {
	adv := &fakeAdvisor{plan: []advisor.PlanEntry{
		{TargetDistrict: "", ActionType: "A"},            // empty target
		{TargetDistrict: "quartiere1", ActionType: "B"},  // self-target
		{TargetDistrict: "quartiere99", ActionType: "C"}, // unknown district
		{TargetDistrict: "quartiere2", ActionType: "D"},  // valid
	}}
	rec := &captureRecorder{}
	c, _, controls := newTestCoordinator(adv, rec, nil)

	c.handleMessage(context.Background(), criticalTrafficEscalation())

	if c.Dispatched() != 1 {
		t.Errorf("dispatched = %d, want 1", c.Dispatched())
	}
	cmd, ok := controls["quartiere2"].TryGet()
	if !ok || cmd.Command.ActionType != "D" {
		t.Errorf("expected the valid entry dispatched, got %+v (ok=%v)", cmd, ok)
	}
	if len(rec.recordedActions()) != 1 {
		t.Errorf("recorded %d actions, want 1", len(rec.recordedActions()))
	}
}

func TestEmptyPlanEntryDefaults(t *testing.T) {
	adv := &fakeAdvisor{plan: []advisor.PlanEntry{{TargetDistrict: "quartiere2"}}}
	rec := &captureRecorder{}
	c, _, controls := newTestCoordinator(adv, rec, nil)

	c.handleMessage(context.Background(), criticalTrafficEscalation())

	cmd, ok := controls["quartiere2"].TryGet()
	if !ok {
		t.Fatal("expected a command")
	}
	if cmd.Command.ActionType != "UNKNOWN_ACTION" {
		t.Errorf("action = %q, want UNKNOWN_ACTION", cmd.Command.ActionType)
	}
	if got := rec.recordedActions()[0].reason; got != advisor.ReasonLLMPlan {
		t.Errorf("reason = %q, want %q", got, advisor.ReasonLLMPlan)
	}
	if c.Dispatched() != 1 {
		t.Errorf("dispatched = %d", c.Dispatched())
	}
}

func TestCommandCarriesEscalationTrace(t *testing.T) {
	adv := &fakeAdvisor{planErr: errors.New("down")}
	rec := &captureRecorder{}
	c, _, controls := newTestCoordinator(adv, rec, nil)

	msg := criticalTrafficEscalation()
	c.handleMessage(context.Background(), msg)

	cmd, _ := controls["quartiere2"].TryGet()
	if cmd.TraceID != msg.TraceID {
		t.Errorf("trace id = %q, want %q", cmd.TraceID, msg.TraceID)
	}
}

func TestFullControlQueueSkipsPersistence(t *testing.T) {
	adv := &fakeAdvisor{planErr: errors.New("down")}
	rec := &captureRecorder{}
	inbox := bus.New[event.Message]("inbox", 10)
	controls := map[string]*bus.Queue[event.Message]{
		"quartiere1": bus.New[event.Message]("control:quartiere1", 10),
		"quartiere2": bus.New[event.Message]("control:quartiere2", 1),
	}
	c := NewCoordinator(inbox, controls, adv, rec, nil, 50*time.Millisecond)

	controls["quartiere2"].TryPut(event.Message{Kind: event.KindCoordinationCommand})

	c.handleMessage(context.Background(), criticalTrafficEscalation())

	if c.Dispatched() != 0 {
		t.Errorf("dispatched = %d, want 0", c.Dispatched())
	}
	if len(rec.recordedActions()) != 0 {
		t.Error("dropped command must not be persisted as an action")
	}
}

func TestEscalationUpdatesCityState(t *testing.T) {
	adv := &fakeAdvisor{planErr: errors.New("down")}
	rec := &captureRecorder{}
	c, _, _ := newTestCoordinator(adv, rec, nil)

	c.handleMessage(context.Background(), criticalTrafficEscalation())

	snap := c.state.Snapshot()
	var found bool
	for _, ds := range snap {
		if ds.District == "quartiere1" {
			found = true
			if ds.TrafficIndex == nil || *ds.TrafficIndex != 120 {
				t.Errorf("traffic index = %v, want 120", ds.TrafficIndex)
			}
		}
	}
	if !found {
		t.Error("quartiere1 missing from city state snapshot")
	}
}

func TestUnknownMessageKindIgnored(t *testing.T) {
	adv := &fakeAdvisor{}
	rec := &captureRecorder{}
	c, _, controls := newTestCoordinator(adv, rec, nil)

	c.handleMessage(context.Background(), event.Message{Kind: "noise", Source: "somewhere"})
	c.handleMessage(context.Background(), event.Message{Kind: event.KindEscalationRequest, Source: "quartiere1"}) // nil payload

	for d, q := range controls {
		if q.Len() != 0 {
			t.Errorf("unexpected command on %s", d)
		}
	}
	if c.Dispatched() != 0 {
		t.Errorf("dispatched = %d, want 0", c.Dispatched())
	}
}

type captureNotifier struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (n *captureNotifier) CommandDispatched(ctx context.Context, source, target, actionType, reason string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, target+":"+actionType)
	return n.err
}

func TestNotifierBestEffort(t *testing.T) {
	adv := &fakeAdvisor{planErr: errors.New("down")}
	rec := &captureRecorder{}
	notifier := &captureNotifier{err: errors.New("webhook 500")}
	c, _, controls := newTestCoordinator(adv, rec, notifier)

	c.handleMessage(context.Background(), criticalTrafficEscalation())

	notifier.mu.Lock()
	calls := len(notifier.calls)
	notifier.mu.Unlock()
	if calls != 1 {
		t.Errorf("notifier called %d times, want 1", calls)
	}
	// A failing notifier never blocks dispatch.
	if controls["quartiere2"].Len() != 1 || c.Dispatched() != 1 {
		t.Error("dispatch must succeed despite notifier failure")
	}
}

func TestCoordinatorRunStop(t *testing.T) {
	adv := &fakeAdvisor{planErr: errors.New("down")}
	rec := &captureRecorder{}
	c, inbox, controls := newTestCoordinator(adv, rec, nil)

	done := make(chan struct{})
	go func() {
		c.Run(context.Background())
		close(done)
	}()

	inbox.TryPut(criticalTrafficEscalation())

	deadline := time.Now().Add(2 * time.Second)
	for controls["quartiere2"].Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if controls["quartiere2"].Len() != 1 {
		t.Error("escalation not processed by the run loop")
	}

	c.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator did not stop within the bounded wait")
	}
}
