package agent

import (
	"github.com/citygrid/citygrid/internal/advisor"
	"github.com/citygrid/citygrid/internal/event"
)

// recentWindowSize bounds the per-district event history used as advisory
// context.
const recentWindowSize = 20

// RecentWindow is a bounded FIFO of the newest events seen by one district
// agent. Owned exclusively by that agent; no locking needed.
type RecentWindow struct {
	events []event.SensorEvent
	max    int
}

// NewRecentWindow creates a window with the default capacity.
func NewRecentWindow() *RecentWindow {
	return &RecentWindow{max: recentWindowSize}
}

// Append adds an event, evicting the oldest when past capacity.
func (w *RecentWindow) Append(ev event.SensorEvent) {
	w.events = append(w.events, ev)
	if len(w.events) > w.max {
		w.events = w.events[1:]
	}
}

// Len returns the number of buffered events.
func (w *RecentWindow) Len() int { return len(w.events) }

// Events returns the buffered events oldest-first. The returned slice is a
// copy.
func (w *RecentWindow) Events() []event.SensorEvent {
	out := make([]event.SensorEvent, len(w.events))
	copy(out, w.events)
	return out
}

// Summaries serializes the window for the advisor, oldest-first.
func (w *RecentWindow) Summaries() []advisor.EventSummary {
	out := make([]advisor.EventSummary, 0, len(w.events))
	for _, ev := range w.events {
		out = append(out, advisor.SummaryOf(ev))
	}
	return out
}
