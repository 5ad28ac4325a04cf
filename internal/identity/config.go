package identity

import (
	"errors"
	"os"
	"strings"
	"time"
)

// ErrMissingSecret is a fatal configuration error: legacy accounts are enabled
// without a signing secret.
var ErrMissingSecret = errors.New("identity: JWT_SECRET is required when legacy accounts are enabled")

type Config struct {
	Clerk  ClerkConfig  `yaml:"clerk"`
	Legacy LegacyConfig `yaml:"legacy"`
	// AdminRule is a CEL expression over sub, roles and metadata.
	AdminRule string `yaml:"admin_rule"`
}

type ClerkConfig struct {
	// PublicKeyPEM verifies RS256 session tokens.
	PublicKeyPEM      string        `yaml:"public_key_pem"`
	Issuer            string        `yaml:"issuer"`
	AuthorizedParties []string      `yaml:"authorized_parties"`
	Leeway            time.Duration `yaml:"leeway"`
}

type LegacyConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Secret   string        `yaml:"secret"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

const DefaultAdminRule = `"admin" in roles`

func DefaultConfig() Config {
	return Config{
		Clerk: ClerkConfig{
			Leeway: 5 * time.Second,
		},
		Legacy: LegacyConfig{
			Enabled:  true,
			TokenTTL: 7 * 24 * time.Hour,
		},
		AdminRule: DefaultAdminRule,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.Clerk.Leeway == 0 {
		c.Clerk.Leeway = d.Clerk.Leeway
	}
	if c.Legacy.TokenTTL == 0 {
		c.Legacy.TokenTTL = d.Legacy.TokenTTL
	}
	if c.AdminRule == "" {
		c.AdminRule = d.AdminRule
	}
}

// ApplyEnvOverrides applies CLERK_PEM_PUBLIC_KEY and JWT_SECRET. Escaped
// newlines in the PEM are expanded so the key fits on one env line.
func (c *Config) ApplyEnvOverrides() {
	if val := os.Getenv("CLERK_PEM_PUBLIC_KEY"); val != "" {
		c.Clerk.PublicKeyPEM = strings.ReplaceAll(val, `\n`, "\n")
	}
	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.Legacy.Secret = val
	}
}

// ResolvePaths resolves relative paths using the given base directory.
// No paths to resolve in identity config.
func (c *Config) ResolvePaths(_ string) {}

func (c *Config) Validate() error {
	if c.Legacy.Enabled && c.Legacy.Secret == "" {
		return ErrMissingSecret
	}
	if _, err := NewPolicy(c.AdminRule); err != nil {
		return err
	}
	return nil
}
