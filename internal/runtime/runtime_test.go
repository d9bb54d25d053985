package runtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/citygrid/citygrid/internal/advisor"
	"github.com/citygrid/citygrid/internal/config"
	"github.com/citygrid/citygrid/internal/event"
	"github.com/citygrid/citygrid/internal/ingest"
)

type downAdvisor struct{}

func (downAdvisor) DecideEscalation(context.Context, string, []advisor.EventSummary, advisor.EventSummary) (*advisor.EscalationDecision, error) {
	return nil, errors.New("gateway unreachable")
}

func (downAdvisor) PlanCoordination(context.Context, string, advisor.EventSummary, []advisor.DistrictState) ([]advisor.PlanEntry, error) {
	return nil, errors.New("gateway unreachable")
}

type memRecorder struct {
	mu      sync.Mutex
	events  int
	actions []string
	closed  bool
}

func (r *memRecorder) PersistEvent(ctx context.Context, ev event.SensorEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events++
	return nil
}

func (r *memRecorder) PersistAction(ctx context.Context, source, target, actionType, reason string, snapshot event.SensorEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, source+"->"+target+":"+actionType+":"+reason)
	return nil
}

func (r *memRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *memRecorder) snapshot() (int, []string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.actions))
	copy(out, r.actions)
	return r.events, out, r.closed
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Timing.RouterWait = 20 * time.Millisecond
	cfg.Timing.SensorWait = 20 * time.Millisecond
	cfg.Timing.InboxWait = 20 * time.Millisecond
	cfg.Timing.ShutdownGrace = 10 * time.Millisecond
	return cfg
}

func TestPipelineEndToEndWithAdvisorDown(t *testing.T) {
	cfg := testConfig()
	rec := &memRecorder{}
	rawQ := newInjectableRuntime(t, cfg, rec)
	rt, inject := rawQ.rt, rawQ.inject

	if err := rt.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// A critical traffic event in quartiere1 with the advisor down must end
	// up as exactly one fallback support command aimed at quartiere2.
	inject("city.sensors", map[string]any{
		"district":    "quartiere1",
		"sensor_type": "traffic",
		"value":       120.0,
		"unit":        "veh/min",
		"severity":    "high",
		"timestamp":   "2026-08-29T10:00:00Z",
	})

	deadline := time.Now().Add(5 * time.Second)
	for rt.Coordinator().Dispatched() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := rt.Coordinator().Dispatched(); got != 1 {
		t.Fatalf("dispatched = %d, want 1", got)
	}

	rt.Stop()

	events, actions, closed := rec.snapshot()
	if events != 1 {
		t.Errorf("persisted events = %d, want 1", events)
	}
	if len(actions) != 1 || actions[0] != "quartiere1->quartiere2:REROUTE_TRAFFIC:support_escalation_fallback" {
		t.Errorf("actions = %v", actions)
	}
	if !closed {
		t.Error("recorder not closed on shutdown")
	}
}

func TestLowSeverityNeverReachesCoordinator(t *testing.T) {
	cfg := testConfig()
	rec := &memRecorder{}
	rawQ := newInjectableRuntime(t, cfg, rec)
	rt, inject := rawQ.rt, rawQ.inject

	if err := rt.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	inject("city.sensors", map[string]any{
		"district": "quartiere1", "sensor_type": "pollution", "value": 10.0, "severity": "low",
	})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		events, _, _ := rec.snapshot()
		if events == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	rt.Stop()

	events, actions, _ := rec.snapshot()
	if events != 1 {
		t.Errorf("persisted events = %d, want 1", events)
	}
	if len(actions) != 0 || rt.Coordinator().Dispatched() != 0 {
		t.Errorf("low severity event produced commands: %v", actions)
	}
}

func TestUnknownDistrictDroppedAtRouter(t *testing.T) {
	cfg := testConfig()
	rec := &memRecorder{}
	rawQ := newInjectableRuntime(t, cfg, rec)
	rt, inject := rawQ.rt, rawQ.inject

	if err := rt.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	inject("city.sensors", map[string]any{"district": "quartiere99", "severity": "high"})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, _, droppedUnknown, _ := rt.Router().Stats(); droppedUnknown == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	rt.Stop()

	consumed, routed, droppedUnknown, _ := rt.Router().Stats()
	if consumed != 1 || routed != 0 || droppedUnknown != 1 {
		t.Errorf("router stats = %d/%d/%d", consumed, routed, droppedUnknown)
	}
	events, _, _ := rec.snapshot()
	if events != 0 {
		t.Errorf("persisted events = %d, want 0", events)
	}
}

func TestStartStopIsClean(t *testing.T) {
	cfg := testConfig()
	rec := &memRecorder{}
	rawQ := newInjectableRuntime(t, cfg, rec)
	rt := rawQ.rt

	if err := rt.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	done := make(chan struct{})
	go func() {
		rt.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not complete")
	}

	depths := rt.QueueDepths()
	for name, depth := range depths {
		if depth != 0 {
			t.Errorf("queue %s not empty after idle run: %d", name, depth)
		}
	}
}

type nopConsumer struct{}

func (nopConsumer) Start(context.Context) error { return nil }
func (nopConsumer) Close() error                { return nil }

type injectableRuntime struct {
	rt     *Runtime
	inject func(topic string, payload map[string]any)
}

// newInjectableRuntime builds a runtime whose ingest is an in-process
// consumer bound to the raw queue, so tests feed payloads directly.
func newInjectableRuntime(t *testing.T, cfg *config.Config, rec *memRecorder) *injectableRuntime {
	t.Helper()
	rt := New(cfg, Options{
		Advisor:  downAdvisor{},
		Recorder: rec,
		Consumer: nopConsumer{},
	})
	consumer := ingest.NewChannelConsumer(rt.raw)
	rt.consumer = consumer
	return &injectableRuntime{
		rt:     rt,
		inject: consumer.InjectPayload,
	}
}
