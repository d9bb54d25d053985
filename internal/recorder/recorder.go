// Package recorder persists sensor events and coordination actions for
// dashboards and post-mortem audit. Persistence is a side effect of the
// decision pipeline: every call is best-effort and callers only log
// failures.
package recorder

import (
	"context"

	"github.com/citygrid/citygrid/internal/event"
)

// Recorder stores events and dispatched actions.
type Recorder interface {
	// PersistEvent records a sensor event received by a district agent.
	PersistEvent(ctx context.Context, ev event.SensorEvent) error
	// PersistAction records a coordination command dispatched by the
	// coordinator.
	PersistAction(ctx context.Context, sourceDistrict, targetDistrict, actionType, reason string, snapshot event.SensorEvent) error
	// Close releases backend resources.
	Close() error
}

// Nop discards everything. Used when persistence is disabled and in tests.
type Nop struct{}

func (Nop) PersistEvent(context.Context, event.SensorEvent) error { return nil }

func (Nop) PersistAction(context.Context, string, string, string, string, event.SensorEvent) error {
	return nil
}

func (Nop) Close() error { return nil }
