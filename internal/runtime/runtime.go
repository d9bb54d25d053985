// Package runtime wires the pipeline together and owns its lifecycle:
// queues, router, coordinator, one district agent per configured district,
// and the ingest consumer feeding it all.
package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/citygrid/citygrid/internal/advisor"
	"github.com/citygrid/citygrid/internal/agent"
	"github.com/citygrid/citygrid/internal/bus"
	"github.com/citygrid/citygrid/internal/config"
	"github.com/citygrid/citygrid/internal/event"
	"github.com/citygrid/citygrid/internal/ingest"
	"github.com/citygrid/citygrid/internal/recorder"
	"github.com/citygrid/citygrid/internal/router"
)

// Options carries the collaborators the runtime does not construct itself.
// Consumer may be nil when the runtime should build the Kafka consumer
// from config (tests pass an in-process consumer instead). Notifier may be
// nil.
type Options struct {
	Advisor  advisor.Advisor
	Recorder recorder.Recorder
	Notifier agent.CommandNotifier
	Consumer ingest.Consumer
}

// Runtime owns every worker and queue of the pipeline.
type Runtime struct {
	cfg *config.Config

	raw      *bus.Queue[event.RawRecord]
	sensors  map[string]*bus.Queue[event.SensorEvent]
	controls map[string]*bus.Queue[event.Message]
	inbox    *bus.Queue[event.Message]

	consumer    ingest.Consumer
	router      *router.Router
	coordinator *agent.Coordinator
	agents      []*agent.DistrictAgent
	rec         recorder.Recorder

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New builds the queue fabric and all workers. Config is assumed
// validated.
func New(cfg *config.Config, opts Options) *Runtime {
	raw := bus.New[event.RawRecord]("raw", cfg.Queues.Raw)
	sensors := make(map[string]*bus.Queue[event.SensorEvent], len(cfg.City.Districts))
	controls := make(map[string]*bus.Queue[event.Message], len(cfg.City.Districts))
	for _, d := range cfg.City.Districts {
		sensors[d] = bus.New[event.SensorEvent]("sensor:"+d, cfg.Queues.Sensor)
		controls[d] = bus.New[event.Message]("control:"+d, cfg.Queues.Control)
	}
	inbox := bus.New[event.Message]("coordinator-inbox", cfg.Queues.Inbox)

	consumer := opts.Consumer
	if consumer == nil {
		consumer = ingest.NewKafkaConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topics, raw)
	}

	rt := &Runtime{
		cfg:         cfg,
		raw:         raw,
		sensors:     sensors,
		controls:    controls,
		inbox:       inbox,
		consumer:    consumer,
		router:      router.New(raw, sensors, cfg.Timing.RouterWait),
		coordinator: agent.NewCoordinator(inbox, controls, opts.Advisor, opts.Recorder, opts.Notifier, cfg.Timing.InboxWait),
		rec:         opts.Recorder,
	}
	for _, d := range cfg.City.Districts {
		rt.agents = append(rt.agents, agent.NewDistrictAgent(
			d, sensors[d], controls[d], inbox, opts.Advisor, opts.Recorder, cfg.Timing.SensorWait))
	}
	return rt
}

// Start launches the ingest consumer and all workers.
func (rt *Runtime) Start(ctx context.Context) error {
	ctx, rt.cancel = context.WithCancel(ctx)

	if err := rt.consumer.Start(ctx); err != nil {
		return err
	}

	rt.wg.Add(1)
	go func() {
		defer rt.wg.Done()
		rt.router.Run()
	}()

	rt.wg.Add(1)
	go func() {
		defer rt.wg.Done()
		rt.coordinator.Run(ctx)
	}()

	for _, a := range rt.agents {
		rt.wg.Add(1)
		go func(a *agent.DistrictAgent) {
			defer rt.wg.Done()
			a.Run(ctx)
		}(a)
	}

	slog.Info("runtime started",
		"districts", len(rt.agents),
		"raw_capacity", rt.raw.Cap(),
		"inbox_capacity", rt.inbox.Cap())
	return nil
}

// Stop shuts the pipeline down cooperatively: agents first, then the
// coordinator, the router, and finally the ingest consumer. A short grace
// period lets in-flight log/persist side effects finish; it is
// best-effort, not a guarantee.
func (rt *Runtime) Stop() {
	slog.Info("runtime stopping")
	for _, a := range rt.agents {
		a.Stop()
	}
	rt.coordinator.Stop()
	rt.router.Stop()
	if err := rt.consumer.Close(); err != nil {
		slog.Warn("consumer close failed", "error", err)
	}
	if rt.cancel != nil {
		rt.cancel()
	}

	time.Sleep(rt.cfg.Timing.ShutdownGrace)
	rt.wg.Wait()

	if rt.rec != nil {
		if err := rt.rec.Close(); err != nil {
			slog.Warn("recorder close failed", "error", err)
		}
	}
	slog.Info("runtime stopped")
}

// Router exposes the router for depth/accounting inspection.
func (rt *Runtime) Router() *router.Router { return rt.router }

// Coordinator exposes the coordinator for inspection.
func (rt *Runtime) Coordinator() *agent.Coordinator { return rt.coordinator }

// QueueDepths reports the current depth of every queue, keyed by queue
// name.
func (rt *Runtime) QueueDepths() map[string]int {
	depths := map[string]int{
		rt.raw.Name():   rt.raw.Len(),
		rt.inbox.Name(): rt.inbox.Len(),
	}
	for _, q := range rt.sensors {
		depths[q.Name()] = q.Len()
	}
	for _, q := range rt.controls {
		depths[q.Name()] = q.Len()
	}
	return depths
}
