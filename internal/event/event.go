// Package event defines the normalized sensor event and the inter-agent
// message envelope exchanged over the internal queues.
package event

import (
	"fmt"
	"strconv"
	"strings"
)

// Severity levels carried by sensor events. Producers are not trusted to
// send a known value; normalization maps anything else to SeverityUnknown
// only at the string level (the raw text is preserved, comparisons are
// case-insensitive).
const (
	SeverityLow     = "low"
	SeverityMedium  = "medium"
	SeverityHigh    = "high"
	SeverityUnknown = "unknown"
)

// RawRecord is an undecoded ingest record: the topic it arrived on and the
// decoded JSON payload. Produced by the ingest consumer, consumed by the
// router.
type RawRecord struct {
	Topic   string
	Payload map[string]any
}

// SensorEvent is the normalized representation of a sensor reading.
type SensorEvent struct {
	SourceTopic string  `json:"source_topic"`
	District    string  `json:"district"`
	SensorType  string  `json:"sensor_type"`
	Value       float64 `json:"value"`
	Unit        string  `json:"unit"`
	Severity    string  `json:"severity"`
	Timestamp   string  `json:"timestamp"`
}

// Normalize builds a SensorEvent from a raw payload. Producers may omit
// fields or send the wrong types, so every field falls back to a safe
// default; a bad value never rejects the whole record. Both "sensor_type"
// and the legacy "type" key are accepted.
func Normalize(topic string, payload map[string]any) SensorEvent {
	sensorType := asString(payload["sensor_type"], "")
	if sensorType == "" {
		sensorType = asString(payload["type"], "unknown")
	}
	return SensorEvent{
		SourceTopic: topic,
		District:    asString(payload["district"], "unknown"),
		SensorType:  sensorType,
		Value:       asFloat(payload["value"]),
		Unit:        asString(payload["unit"], ""),
		Severity:    asString(payload["severity"], SeverityUnknown),
		Timestamp:   asString(payload["timestamp"], ""),
	}
}

// District returns the district named in a raw payload, or "unknown" when
// absent. Used by the router before full normalization.
func (r RawRecord) District() string {
	if r.Payload == nil {
		return "unknown"
	}
	return asString(r.Payload["district"], "unknown")
}

// IsCritical reports whether the event's severity is "high". This is the
// deterministic escalation rule, also used as the fallback when the advisor
// is unavailable.
func (e SensorEvent) IsCritical() bool {
	return strings.EqualFold(e.Severity, SeverityHigh)
}

// String renders the event for log correlation.
func (e SensorEvent) String() string {
	return fmt.Sprintf("[%s] topic=%s district=%s type=%s value=%g %s severity=%s",
		e.Timestamp, e.SourceTopic, e.District, e.SensorType, e.Value, e.Unit, e.Severity)
}

func asString(v any, fallback string) string {
	switch s := v.(type) {
	case string:
		if s == "" {
			return fallback
		}
		return s
	case nil:
		return fallback
	default:
		return fmt.Sprint(v)
	}
}

// asFloat coerces a JSON value to float64. Invalid input yields 0.0 rather
// than an error: a malformed value must not fail the record.
func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0.0
		}
		return f
	default:
		return 0.0
	}
}
