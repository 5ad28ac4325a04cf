package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	Mongo       MongoConfig       `yaml:"mongo"`
	Retry       RetryConfig       `yaml:"retry"`
	Collections CollectionsConfig `yaml:"collections"`
	Pagination  PaginationConfig  `yaml:"pagination"`
	Ownership   OwnershipConfig   `yaml:"ownership"`
}

type MongoConfig struct {
	// URI has no default: an unset URI is fatal at startup.
	URI            string        `yaml:"uri"`
	DatabaseName   string        `yaml:"database_name"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

type RetryConfig struct {
	MaxRetries   int           `yaml:"max_retries"`
	InitialDelay time.Duration `yaml:"initial_delay"`
}

type CollectionsConfig struct {
	Profiles  string `yaml:"profiles"`
	Transport string `yaml:"transport"`
	Users     string `yaml:"users"`
	Chats     string `yaml:"chats"`
	Stats     string `yaml:"stats"`
	Market    string `yaml:"market"`
	Crops     string `yaml:"crops"`
	Alerts    string `yaml:"alerts"`
	Trends    string `yaml:"trends"`
}

type PaginationConfig struct {
	// MaxLimit of 0 disables the bound.
	MaxLimit     int `yaml:"max_limit"`
	DefaultLimit int `yaml:"default_limit"`
}

type OwnershipConfig struct {
	// RevealForbidden distinguishes "exists but not yours" from "not found".
	RevealForbidden bool `yaml:"reveal_forbidden"`
}

func DefaultConfig() Config {
	return Config{
		Mongo: MongoConfig{
			DatabaseName:   "harvest",
			ConnectTimeout: 10 * time.Second,
		},
		Retry: RetryConfig{
			MaxRetries:   5,
			InitialDelay: time.Second,
		},
		Collections: CollectionsConfig{
			Profiles:  "profiles",
			Transport: "transports",
			Users:     "users",
			Chats:     "chats",
			Stats:     "dashboard_stats",
			Market:    "market_data",
			Crops:     "crop_data",
			Alerts:    "alerts",
			Trends:    "trends",
		},
		Pagination: PaginationConfig{
			MaxLimit:     100,
			DefaultLimit: 10,
		},
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.Mongo.DatabaseName == "" {
		c.Mongo.DatabaseName = d.Mongo.DatabaseName
	}
	if c.Mongo.ConnectTimeout == 0 {
		c.Mongo.ConnectTimeout = d.Mongo.ConnectTimeout
	}
	if c.Retry.MaxRetries == 0 {
		c.Retry.MaxRetries = d.Retry.MaxRetries
	}
	if c.Retry.InitialDelay == 0 {
		c.Retry.InitialDelay = d.Retry.InitialDelay
	}
	if c.Pagination.DefaultLimit == 0 {
		c.Pagination.DefaultLimit = d.Pagination.DefaultLimit
	}

	cc, dc := &c.Collections, d.Collections
	for _, f := range []struct {
		dst *string
		def string
	}{
		{&cc.Profiles, dc.Profiles},
		{&cc.Transport, dc.Transport},
		{&cc.Users, dc.Users},
		{&cc.Chats, dc.Chats},
		{&cc.Stats, dc.Stats},
		{&cc.Market, dc.Market},
		{&cc.Crops, dc.Crops},
		{&cc.Alerts, dc.Alerts},
		{&cc.Trends, dc.Trends},
	} {
		if *f.dst == "" {
			*f.dst = f.def
		}
	}
}

// ApplyEnvOverrides applies environment variable overrides. MONGODB_URI wins
// over MONGO_URI when both are set.
func (c *Config) ApplyEnvOverrides() {
	if val := os.Getenv("MONGO_URI"); val != "" {
		c.Mongo.URI = val
	}
	if val := os.Getenv("MONGODB_URI"); val != "" {
		c.Mongo.URI = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Mongo.DatabaseName = val
	}
}

// ResolvePaths resolves relative paths using the given base directory.
// No paths to resolve in storage config.
func (c *Config) ResolvePaths(_ string) {}

// Validate checks values that cannot be defaulted. The URI is checked by the
// connection manager so that a missing URI takes the fatal exit path.
func (c *Config) Validate() error {
	if c.Retry.MaxRetries < 1 {
		return fmt.Errorf("storage.retry.max_retries must be positive, got %d", c.Retry.MaxRetries)
	}
	if c.Retry.InitialDelay < 0 {
		return fmt.Errorf("storage.retry.initial_delay must not be negative")
	}
	if c.Pagination.MaxLimit < 0 {
		return fmt.Errorf("storage.pagination.max_limit must not be negative")
	}
	if c.Pagination.MaxLimit > 0 && c.Pagination.DefaultLimit > c.Pagination.MaxLimit {
		return fmt.Errorf("storage.pagination.default_limit %d exceeds max_limit %d",
			c.Pagination.DefaultLimit, c.Pagination.MaxLimit)
	}
	return nil
}
