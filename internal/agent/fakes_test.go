package agent

import (
	"context"
	"sync"

	"github.com/citygrid/citygrid/internal/advisor"
	"github.com/citygrid/citygrid/internal/event"
)

type fakeAdvisor struct {
	mu          sync.Mutex
	decideCalls int
	planCalls   int

	decision  *advisor.EscalationDecision
	decideErr error
	plan      []advisor.PlanEntry
	planErr   error
}

func (f *fakeAdvisor) DecideEscalation(ctx context.Context, district string, recent []advisor.EventSummary, current advisor.EventSummary) (*advisor.EscalationDecision, error) {
	f.mu.Lock()
	f.decideCalls++
	f.mu.Unlock()
	if f.decideErr != nil {
		return nil, f.decideErr
	}
	return f.decision, nil
}

func (f *fakeAdvisor) PlanCoordination(ctx context.Context, sourceDistrict string, critical advisor.EventSummary, cityState []advisor.DistrictState) ([]advisor.PlanEntry, error) {
	f.mu.Lock()
	f.planCalls++
	f.mu.Unlock()
	if f.planErr != nil {
		return nil, f.planErr
	}
	return f.plan, nil
}

func (f *fakeAdvisor) decideCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.decideCalls
}

type actionRecord struct {
	source     string
	target     string
	actionType string
	reason     string
	snapshot   event.SensorEvent
}

type captureRecorder struct {
	mu      sync.Mutex
	events  []event.SensorEvent
	actions []actionRecord

	eventErr  error
	actionErr error
}

func (r *captureRecorder) PersistEvent(ctx context.Context, ev event.SensorEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.eventErr
}

func (r *captureRecorder) PersistAction(ctx context.Context, source, target, actionType, reason string, snapshot event.SensorEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, actionRecord{source, target, actionType, reason, snapshot})
	return r.actionErr
}

func (r *captureRecorder) Close() error { return nil }

func (r *captureRecorder) recordedEvents() []event.SensorEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.SensorEvent, len(r.events))
	copy(out, r.events)
	return out
}

func (r *captureRecorder) recordedActions() []actionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]actionRecord, len(r.actions))
	copy(out, r.actions)
	return out
}
