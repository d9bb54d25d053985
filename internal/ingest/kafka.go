package ingest

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/citygrid/citygrid/internal/bus"
	"github.com/citygrid/citygrid/internal/event"
)

// KafkaConsumer implements Consumer using segmentio/kafka-go, one reader
// per configured topic.
type KafkaConsumer struct {
	brokers string
	groupID string
	topics  []string
	raw     *bus.Queue[event.RawRecord]
	readers []*kafka.Reader
	mu      sync.Mutex
}

// NewKafkaConsumer creates a Kafka consumer for the given topics, writing
// decoded records into raw.
func NewKafkaConsumer(brokers, groupID string, topics []string, raw *bus.Queue[event.RawRecord]) *KafkaConsumer {
	return &KafkaConsumer{
		brokers: brokers,
		groupID: groupID,
		topics:  topics,
		raw:     raw,
	}
}

// Start begins consuming from all configured topics.
func (c *KafkaConsumer) Start(ctx context.Context) error {
	brokerList := strings.Split(c.brokers, ",")
	for _, topic := range c.topics {
		c.startReader(ctx, brokerList, topic)
	}
	return nil
}

func (c *KafkaConsumer) startReader(ctx context.Context, brokerList []string, topic string) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokerList,
		Topic:    topic,
		GroupID:  c.groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})

	c.mu.Lock()
	c.readers = append(c.readers, reader)
	c.mu.Unlock()

	go func(r *kafka.Reader, t string) {
		for {
			msg, err := r.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn("kafka read error", "topic", t, "error", err)
				continue
			}
			rec, err := decodeRecord(t, msg.Value)
			if err != nil {
				slog.Warn("invalid payload", "topic", t, "error", err)
				continue
			}
			enqueue(c.raw, rec)
		}
	}(reader, topic)
}

// Close stops all readers.
func (c *KafkaConsumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.readers {
		r.Close()
	}
	c.readers = nil
	return nil
}
