package server

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`

	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type CORSConfig struct {
	Enabled bool `yaml:"enabled"`
	// AllowedOrigins empty allows any origin.
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowedMethods   []string `yaml:"allowed_methods"`
	AllowedHeaders   []string `yaml:"allowed_headers"`
	AllowCredentials bool     `yaml:"allow_credentials"`
	MaxAge           int      `yaml:"max_age"`
}

// RateLimitConfig drives the general limiter and the stricter one applied to
// account registration and login.
type RateLimitConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Requests     int           `yaml:"requests"`
	Window       time.Duration `yaml:"window"`
	AuthRequests int           `yaml:"auth_requests"`
	AuthWindow   time.Duration `yaml:"auth_window"`
}

func DefaultConfig() Config {
	return Config{
		Host:         "0.0.0.0",
		Port:         5000,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		CORS: CORSConfig{
			Enabled:          true,
			AllowedOrigins:   []string{"http://localhost:5173"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           86400,
		},
		RateLimit: RateLimitConfig{
			Enabled:      true,
			Requests:     100,
			Window:       time.Minute,
			AuthRequests: 5,
			AuthWindow:   time.Minute,
		},
		ShutdownTimeout: 10 * time.Second,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.Host == "" {
		c.Host = d.Host
	}
	if c.Port == 0 {
		c.Port = d.Port
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = d.IdleTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = d.CORS.AllowedMethods
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = d.CORS.AllowedHeaders
	}
	if c.RateLimit.Requests == 0 {
		c.RateLimit.Requests = d.RateLimit.Requests
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = d.RateLimit.Window
	}
	if c.RateLimit.AuthRequests == 0 {
		c.RateLimit.AuthRequests = d.RateLimit.AuthRequests
	}
	if c.RateLimit.AuthWindow == 0 {
		c.RateLimit.AuthWindow = c.RateLimit.Window
	}
}

// ApplyEnvOverrides applies PORT.
func (c *Config) ApplyEnvOverrides() {
	if val := os.Getenv("PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.Port = port
		}
	}
}

// ResolvePaths resolves relative paths using the given base directory.
// No paths to resolve in server config.
func (c *Config) ResolvePaths(_ string) {}

func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Port)
	}
	if c.RateLimit.Enabled && (c.RateLimit.Requests < 1 || c.RateLimit.Window <= 0) {
		return fmt.Errorf("server.rate_limit requires positive requests and window")
	}
	return nil
}
