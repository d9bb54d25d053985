package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const (
	// ConfigDir is the default config directory name.
	ConfigDir = ".citygrid"
	// ConfigFile is the default config file name.
	ConfigFile = "config.json"
)

// ConfigPath returns the path to the config file. CITYGRID_CONFIG
// overrides the default ~/.citygrid/config.json.
func ConfigPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("CITYGRID_CONFIG")); explicit != "" {
		if strings.HasPrefix(explicit, "~") {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(home, explicit[1:]), nil
		}
		return explicit, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, ConfigFile), nil
}

// Load reads the config file (if present), overlays environment variables
// and validates the result. A missing file is not an error; defaults
// apply.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	path, err := ConfigPath()
	if err == nil {
		data, readErr := os.ReadFile(path)
		switch {
		case readErr == nil:
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case !os.IsNotExist(readErr):
			return nil, readErr
		}
	}

	// Override with environment variables for each group.
	envconfig.Process("CITYGRID_CITY", &cfg.City)
	envconfig.Process("CITYGRID_KAFKA", &cfg.Kafka)
	envconfig.Process("CITYGRID_ADVISOR", &cfg.Advisor)
	envconfig.Process("CITYGRID_RECORDER", &cfg.Recorder)
	envconfig.Process("CITYGRID_NOTIFY", &cfg.Notify)
	envconfig.Process("CITYGRID_QUEUES", &cfg.Queues)
	envconfig.Process("CITYGRID_TIMING", &cfg.Timing)

	applyFallbacks(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as indented JSON to the default path.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// applyFallbacks fills zero values that envconfig or a sparse config file
// may have left behind.
func applyFallbacks(cfg *Config) {
	def := DefaultConfig()
	if cfg.Queues.Raw <= 0 {
		cfg.Queues.Raw = def.Queues.Raw
	}
	if cfg.Queues.Sensor <= 0 {
		cfg.Queues.Sensor = def.Queues.Sensor
	}
	if cfg.Queues.Control <= 0 {
		cfg.Queues.Control = def.Queues.Control
	}
	if cfg.Queues.Inbox <= 0 {
		cfg.Queues.Inbox = def.Queues.Inbox
	}
	if cfg.Timing.RouterWait <= 0 {
		cfg.Timing.RouterWait = def.Timing.RouterWait
	}
	if cfg.Timing.SensorWait <= 0 {
		cfg.Timing.SensorWait = def.Timing.SensorWait
	}
	if cfg.Timing.InboxWait <= 0 {
		cfg.Timing.InboxWait = def.Timing.InboxWait
	}
	if cfg.Timing.ShutdownGrace <= 0 {
		cfg.Timing.ShutdownGrace = def.Timing.ShutdownGrace
	}
	if cfg.Advisor.Timeout <= 0 {
		cfg.Advisor.Timeout = def.Advisor.Timeout
	}
	if cfg.Recorder.Timeout <= 0 {
		cfg.Recorder.Timeout = def.Recorder.Timeout
	}
	if cfg.Kafka.Brokers == "" {
		cfg.Kafka.Brokers = def.Kafka.Brokers
	}
	if len(cfg.Kafka.Topics) == 0 {
		cfg.Kafka.Topics = def.Kafka.Topics
	}
	if cfg.Recorder.Backend == "" {
		cfg.Recorder.Backend = def.Recorder.Backend
	}
	if cfg.Recorder.Backend == "sqlite" && cfg.Recorder.SQLitePath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Recorder.SQLitePath = filepath.Join(home, ConfigDir, "citygrid.db")
		}
	}
}

// Validate checks the settings the runtime cannot limp along without.
// This is the only place in the system where a bad input is fatal.
func (c *Config) Validate() error {
	if len(c.City.Districts) == 0 {
		return fmt.Errorf("config: at least one district must be configured")
	}
	seen := map[string]bool{}
	for _, d := range c.City.Districts {
		if strings.TrimSpace(d) == "" {
			return fmt.Errorf("config: district names must be non-empty")
		}
		if seen[d] {
			return fmt.Errorf("config: duplicate district %q", d)
		}
		seen[d] = true
	}
	switch c.Recorder.Backend {
	case "http", "sqlite", "none":
	default:
		return fmt.Errorf("config: unknown recorder backend %q", c.Recorder.Backend)
	}
	return nil
}
