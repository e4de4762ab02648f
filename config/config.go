package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: relying party, session and federation configuration
//   - database.go: database and session-store configuration
//   - http.go: HTTP server configuration
type AppConfig struct {
	// IsDev controls development mode behavior (relaxed cookie security,
	// permissive origins). Set DEV=true for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Relying party / ceremony configuration.
	RelyingParty RelyingPartyConfig `envPrefix:"RP_"`

	// Session duration thresholds.
	Session SessionConfig `envPrefix:"SESSION_"`

	// Federation provider directory.
	Federation FederationConfig `envPrefix:"FEDERATION_"`

	// Account retention sweep.
	Retention RetentionConfig `envPrefix:"RETENTION_"`

	// Storage configuration.
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	// HTTP server configuration.
	HTTP HTTPConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.RelyingParty.Sanitize()
	c.Session.Sanitize()
	c.Retention.Sanitize()
	c.detectDevMode()
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}
