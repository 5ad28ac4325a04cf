package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type GatewayConfig struct {
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// ChatTimeout bounds chat requests, which wait on the language model.
	ChatTimeout time.Duration `yaml:"chat_timeout"`
	MaxBodySize int64         `yaml:"max_body_size"`
	// AdminPageLimit is the default page size of the user listings.
	AdminPageLimit int `yaml:"admin_page_limit"`
	// SeedDashboard seeds empty dashboard collections on read.
	SeedDashboard bool `yaml:"seed_dashboard"`
}

func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		RequestTimeout: 30 * time.Second,
		ChatTimeout:    60 * time.Second,
		MaxBodySize:    1 << 20,
		AdminPageLimit: 100,
		SeedDashboard:  true,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (g *GatewayConfig) ApplyDefaults() {
	defaults := DefaultGatewayConfig()
	if g.RequestTimeout == 0 {
		g.RequestTimeout = defaults.RequestTimeout
	}
	if g.ChatTimeout == 0 {
		g.ChatTimeout = defaults.ChatTimeout
	}
	if g.MaxBodySize == 0 {
		g.MaxBodySize = defaults.MaxBodySize
	}
	if g.AdminPageLimit == 0 {
		g.AdminPageLimit = defaults.AdminPageLimit
	}
}

// ApplyEnvOverrides applies environment variable overrides.
func (g *GatewayConfig) ApplyEnvOverrides() {
	if val := os.Getenv("GATEWAY_SEED_DASHBOARD"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			g.SeedDashboard = b
		}
	}
}

// ResolvePaths resolves relative paths using the given directory.
// No paths to resolve in gateway config.
func (g *GatewayConfig) ResolvePaths(_ string) {}

// Validate returns an error if the configuration is invalid.
func (g *GatewayConfig) Validate() error {
	if g.RequestTimeout <= 0 {
		return fmt.Errorf("gateway.request_timeout must be positive")
	}
	if g.MaxBodySize <= 0 {
		return fmt.Errorf("gateway.max_body_size must be positive")
	}
	if g.AdminPageLimit < 1 {
		return fmt.Errorf("gateway.admin_page_limit must be at least 1")
	}
	return nil
}
