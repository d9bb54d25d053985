// Package config provides configuration types and loading for citygrid.
package config

import "time"

// Config is the root configuration struct.
// Top-level groups: City, Kafka, Advisor, Recorder, Notify, Queues, Timing.
type Config struct {
	City     CityConfig     `json:"city"`
	Kafka    KafkaConfig    `json:"kafka"`
	Advisor  AdvisorConfig  `json:"advisor"`
	Recorder RecorderConfig `json:"recorder"`
	Notify   NotifyConfig   `json:"notify"`
	Queues   QueuesConfig   `json:"queues"`
	Timing   TimingConfig   `json:"timing"`
}

// CityConfig lists the districts the system monitors. Each district gets
// its own monitoring agent, sensor queue and control queue.
type CityConfig struct {
	Districts []string `json:"districts" envconfig:"DISTRICTS"`
}

// KafkaConfig configures the sensor-event ingest.
type KafkaConfig struct {
	Brokers string   `json:"brokers" envconfig:"BROKERS"`
	GroupID string   `json:"groupId" envconfig:"GROUP_ID"`
	Topics  []string `json:"topics" envconfig:"TOPICS"`
}

// AdvisorConfig configures the LLM gateway used for escalation and
// coordination decisions.
type AdvisorConfig struct {
	GatewayURL string        `json:"gatewayUrl" envconfig:"GATEWAY_URL"`
	Timeout    time.Duration `json:"timeout" envconfig:"TIMEOUT"`
}

// RecorderConfig selects where events and actions are persisted.
// Backend is one of "http", "sqlite" or "none".
type RecorderConfig struct {
	Backend    string        `json:"backend" envconfig:"BACKEND"`
	BackendURL string        `json:"backendUrl" envconfig:"BACKEND_URL"`
	SQLitePath string        `json:"sqlitePath" envconfig:"SQLITE_PATH"`
	Timeout    time.Duration `json:"timeout" envconfig:"TIMEOUT"`
}

// NotifyConfig configures the optional Slack notification of dispatched
// coordination commands. Empty webhook URL disables it.
type NotifyConfig struct {
	SlackWebhookURL string `json:"slackWebhookUrl" envconfig:"SLACK_WEBHOOK_URL"`
}

// QueuesConfig sets the bounded queue capacities. Every queue is
// drop-on-full; capacities bound memory, not delivery.
type QueuesConfig struct {
	Raw     int `json:"raw" envconfig:"RAW"`
	Sensor  int `json:"sensor" envconfig:"SENSOR"`
	Control int `json:"control" envconfig:"CONTROL"`
	Inbox   int `json:"inbox" envconfig:"INBOX"`
}

// TimingConfig sets the bounded waits of the consume loops and the
// shutdown grace period. The waits bound stop latency.
type TimingConfig struct {
	RouterWait    time.Duration `json:"routerWait" envconfig:"ROUTER_WAIT"`
	SensorWait    time.Duration `json:"sensorWait" envconfig:"SENSOR_WAIT"`
	InboxWait     time.Duration `json:"inboxWait" envconfig:"INBOX_WAIT"`
	ShutdownGrace time.Duration `json:"shutdownGrace" envconfig:"SHUTDOWN_GRACE"`
}

// DefaultConfig returns a config with the built-in defaults. The district
// list matches the reference two-district deployment; real installs
// override it.
func DefaultConfig() *Config {
	return &Config{
		City: CityConfig{
			Districts: []string{"quartiere1", "quartiere2"},
		},
		Kafka: KafkaConfig{
			Brokers: "localhost:9092",
			GroupID: "citygrid-mas",
			Topics:  []string{"city.sensors"},
		},
		Advisor: AdvisorConfig{
			GatewayURL: "http://llm-gateway:8000",
			Timeout:    30 * time.Second,
		},
		Recorder: RecorderConfig{
			Backend:    "http",
			BackendURL: "http://web-backend:8000",
			Timeout:    2 * time.Second,
		},
		Queues: QueuesConfig{
			Raw:     1000,
			Sensor:  200,
			Control: 200,
			Inbox:   500,
		},
		Timing: TimingConfig{
			RouterWait:    time.Second,
			SensorWait:    500 * time.Millisecond,
			InboxWait:     time.Second,
			ShutdownGrace: time.Second,
		},
	}
}

// HasDistrict reports whether name is a configured district.
func (c CityConfig) HasDistrict(name string) bool {
	for _, d := range c.Districts {
		if d == name {
			return true
		}
	}
	return false
}
