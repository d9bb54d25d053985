// Package ingest delivers raw sensor records from the outside world into
// the pipeline's raw queue.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/citygrid/citygrid/internal/bus"
	"github.com/citygrid/citygrid/internal/event"
)

// Consumer reads raw sensor messages from a transport.
type Consumer interface {
	// Start begins consuming into the raw queue. Non-blocking.
	Start(ctx context.Context) error
	// Close stops the consumer.
	Close() error
}

// decodeRecord parses a message body into a raw record. Only JSON objects
// are accepted; anything else is a malformed producer message and the
// record is dropped upstream.
func decodeRecord(topic string, value []byte) (event.RawRecord, error) {
	var payload map[string]any
	if err := json.Unmarshal(value, &payload); err != nil {
		return event.RawRecord{}, fmt.Errorf("decode payload: %w", err)
	}
	return event.RawRecord{Topic: topic, Payload: payload}, nil
}

// enqueue pushes a record into the raw queue without blocking. A full
// queue means the router is behind; the record is dropped with a
// diagnostic so the transport thread never stalls.
func enqueue(raw *bus.Queue[event.RawRecord], rec event.RawRecord) {
	if !raw.TryPut(rec) {
		slog.Error("raw queue full, dropping ingest record", "topic", rec.Topic)
	}
}

// ChannelConsumer is an in-process Consumer used by tests and the embedded
// simulator. Inject feeds records through the same decode path as the
// Kafka consumer.
type ChannelConsumer struct {
	raw *bus.Queue[event.RawRecord]
}

// NewChannelConsumer creates an in-process consumer writing into raw.
func NewChannelConsumer(raw *bus.Queue[event.RawRecord]) *ChannelConsumer {
	return &ChannelConsumer{raw: raw}
}

// Start is a no-op; records arrive via Inject.
func (c *ChannelConsumer) Start(ctx context.Context) error { return nil }

// Close is a no-op.
func (c *ChannelConsumer) Close() error { return nil }

// Inject decodes and enqueues one message body.
func (c *ChannelConsumer) Inject(topic string, value []byte) {
	rec, err := decodeRecord(topic, value)
	if err != nil {
		slog.Warn("invalid payload", "topic", topic, "error", err)
		return
	}
	enqueue(c.raw, rec)
}

// InjectPayload enqueues an already-decoded payload.
func (c *ChannelConsumer) InjectPayload(topic string, payload map[string]any) {
	enqueue(c.raw, event.RawRecord{Topic: topic, Payload: payload})
}
