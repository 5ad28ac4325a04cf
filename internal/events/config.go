package events

import (
	"errors"
	"os"
	"time"
)

type Config struct {
	// Enabled turns on the JetStream publisher. Without it events are only logged.
	Enabled        bool          `yaml:"enabled"`
	URL            string        `yaml:"url"`
	Stream         string        `yaml:"stream"`
	SubjectPrefix  string        `yaml:"subject_prefix"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
	Retries        int           `yaml:"retries"`
}

func DefaultConfig() Config {
	return Config{
		URL:            "nats://localhost:4222",
		Stream:         "HARVEST",
		SubjectPrefix:  "harvest",
		PublishTimeout: 5 * time.Second,
		Retries:        3,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.URL == "" {
		c.URL = d.URL
	}
	if c.Stream == "" {
		c.Stream = d.Stream
	}
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = d.SubjectPrefix
	}
	if c.PublishTimeout == 0 {
		c.PublishTimeout = d.PublishTimeout
	}
	if c.Retries == 0 {
		c.Retries = d.Retries
	}
}

// ApplyEnvOverrides reads NATS_URL. Setting it enables publishing.
func (c *Config) ApplyEnvOverrides() {
	if val := os.Getenv("NATS_URL"); val != "" {
		c.URL = val
		c.Enabled = true
	}
}

func (c *Config) ResolvePaths(_ string) {}

func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.URL == "" {
		return errors.New("events.url is required when events are enabled")
	}
	if c.Stream == "" || c.SubjectPrefix == "" {
		return errors.New("events.stream and events.subject_prefix are required")
	}
	if c.PublishTimeout <= 0 {
		return errors.New("events.publish_timeout must be positive")
	}
	return nil
}
