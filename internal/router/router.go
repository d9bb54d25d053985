// Package router dispatches raw ingest records to the correct district's
// sensor queue.
package router

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/citygrid/citygrid/internal/bus"
	"github.com/citygrid/citygrid/internal/event"
)

// Router consumes raw records, validates the district, normalizes the
// payload and enqueues the event non-blocking. It never blocks on a slow
// district: a full sensor queue drops the event with a diagnostic.
type Router struct {
	raw     *bus.Queue[event.RawRecord]
	sensors map[string]*bus.Queue[event.SensorEvent]
	wait    time.Duration
	running atomic.Bool

	consumed       atomic.Uint64
	routed         atomic.Uint64
	droppedUnknown atomic.Uint64
	droppedFull    atomic.Uint64
}

// New creates a router. sensors maps each configured district to its
// sensor queue; an incoming district not in the map is dropped.
func New(raw *bus.Queue[event.RawRecord], sensors map[string]*bus.Queue[event.SensorEvent], wait time.Duration) *Router {
	if wait <= 0 {
		wait = time.Second
	}
	return &Router{
		raw:     raw,
		sensors: sensors,
		wait:    wait,
	}
}

// Run is the router's main loop. Blocks until Stop; run it in its own
// goroutine.
func (r *Router) Run() {
	r.running.Store(true)
	slog.Info("router started", "districts", len(r.sensors))
	for r.running.Load() {
		rec, ok := r.raw.Get(r.wait)
		if !ok {
			continue
		}
		r.route(rec)
	}
	slog.Info("router stopped")
}

// Stop requests cooperative shutdown. The loop notices within one wait
// interval.
func (r *Router) Stop() {
	r.running.Store(false)
}

func (r *Router) route(rec event.RawRecord) {
	r.consumed.Add(1)

	district := rec.District()
	sensors, ok := r.sensors[district]
	if !ok {
		r.droppedUnknown.Add(1)
		slog.Warn("event for unknown district dropped", "district", district, "topic", rec.Topic)
		return
	}

	ev := event.Normalize(rec.Topic, rec.Payload)
	if !sensors.TryPut(ev) {
		r.droppedFull.Add(1)
		slog.Error("sensor queue full, dropping event", "district", district, "topic", rec.Topic)
		return
	}
	r.routed.Add(1)
	slog.Debug("event routed", "district", district, "type", ev.SensorType)
}

// Stats reports the router's accounting: records consumed, routed, dropped
// for an unknown district, and dropped on a full sensor queue.
func (r *Router) Stats() (consumed, routed, droppedUnknown, droppedFull uint64) {
	return r.consumed.Load(), r.routed.Load(), r.droppedUnknown.Load(), r.droppedFull.Load()
}
