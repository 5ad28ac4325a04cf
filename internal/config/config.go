package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	storage "github.com/alakara/harvest/internal/core/storage/config"
	"github.com/alakara/harvest/internal/events"
	gateway "github.com/alakara/harvest/internal/gateway/config"
	"github.com/alakara/harvest/internal/identity"
	"github.com/alakara/harvest/internal/integrations"
	"github.com/alakara/harvest/internal/logging"
	"github.com/alakara/harvest/internal/server"
	"gopkg.in/yaml.v3"
)

// DefaultDir is where LoadConfig looks for config files when no directory is given.
const DefaultDir = "config"

// Config holds the application configuration
type Config struct {
	Server  server.Config         `yaml:"server"`
	Logging logging.Config        `yaml:"logging"`
	Gateway gateway.GatewayConfig `yaml:"gateway"`

	// Components
	Storage      storage.Config      `yaml:"storage"`
	Identity     identity.Config     `yaml:"identity"`
	Events       events.Config       `yaml:"events"`
	Integrations integrations.Config `yaml:"integrations"`
}

// Default returns the built-in configuration before files and environment.
func Default() *Config {
	return &Config{
		Server:       server.DefaultConfig(),
		Logging:      logging.DefaultConfig(),
		Gateway:      gateway.DefaultGatewayConfig(),
		Storage:      storage.DefaultConfig(),
		Identity:     identity.DefaultConfig(),
		Events:       events.DefaultConfig(),
		Integrations: integrations.DefaultConfig(),
	}
}

// LoadConfig loads configuration from files and environment variables.
// Order: defaults -> config.yml -> config.local.yml -> ApplyEnvOverrides -> ResolvePaths -> Validate
func LoadConfig(dir string) (*Config, error) {
	if dir == "" {
		dir = DefaultDir
	}

	// Defaults first so YAML can override them, including bool fields.
	cfg := Default()

	if err := loadFile(filepath.Join(dir, "config.yml"), cfg); err != nil {
		return nil, err
	}
	if err := loadFile(filepath.Join(dir, "config.local.yml"), cfg); err != nil {
		return nil, err
	}

	if err := ApplyServiceConfigs(dir,
		&cfg.Server,
		&cfg.Logging,
		&cfg.Gateway,
		&cfg.Storage,
		&cfg.Identity,
		&cfg.Events,
		&cfg.Integrations,
	); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// loadFile merges filename into cfg. A missing file is skipped; an unreadable
// one is logged and skipped; malformed YAML is an error.
func loadFile(filename string, cfg *Config) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		slog.Warn("Error reading config file", "file", filename, "error", err)
		return nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", filename, err)
	}
	return nil
}
