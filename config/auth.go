package config

import (
	"net/url"
	"strings"
	"time"
)

// RelyingPartyConfig identifies this service to authenticators and browsers.
type RelyingPartyConfig struct {
	// ID is the relying-party id, normally the registrable domain.
	ID string `env:"ID" envDefault:"localhost"`

	// Name is the human-readable service name shown in authenticator UI.
	Name string `env:"NAME" envDefault:"Passkey Lab"`

	// Origin is the expected web origin for ceremony responses.
	Origin string `env:"ORIGIN" envDefault:"http://localhost:8080"`

	// AndroidOrigins lists additional allowed assertion origins for Android
	// app clients, as "package-name=apk-hash-origin" pairs.
	AndroidOrigins []string `env:"ANDROID_ORIGINS" envSeparator:";"`
}

// Sanitize normalizes the origin and derives the RP id from it when unset.
func (c *RelyingPartyConfig) Sanitize() {
	c.Origin = strings.TrimSuffix(strings.TrimSpace(c.Origin), "/")
	if c.ID == "" || c.ID == "localhost" {
		if u, err := url.Parse(c.Origin); err == nil && u.Hostname() != "" {
			c.ID = u.Hostname()
		}
	}
}

// SessionConfig holds the session duration thresholds. Short gates step-up
// re-authentication; Long is the absolute cookie/session lifetime.
type SessionConfig struct {
	Short time.Duration `env:"SHORT" envDefault:"3m"`
	Long  time.Duration `env:"LONG"  envDefault:"8760h"`

	// CookieName is the name of the session cookie.
	CookieName string `env:"COOKIE_NAME" envDefault:"session_id"`
}

// Sanitize applies guardrails to session durations.
func (c *SessionConfig) Sanitize() {
	if c.Short <= 0 {
		c.Short = 3 * time.Minute
	}
	if c.Long <= c.Short {
		c.Long = 365 * 24 * time.Hour
	}
	if c.CookieName == "" {
		c.CookieName = "session_id"
	}
}

// FederationProvider is one trusted identity provider entry, parsed from a
// "origin|config-endpoint|client-id|secret[|vendor]" tuple.
type FederationConfig struct {
	// Providers lists trusted identity providers as pipe-delimited tuples,
	// separated by semicolons.
	Providers []string `env:"PROVIDERS" envSeparator:";"`

	// VendorIssuer is the token issuer for the well-known federated-login
	// vendor whose tokens route through the public-key verifier.
	VendorIssuer string `env:"VENDOR_ISSUER" envDefault:"https://accounts.google.com"`
}

// RetentionConfig controls the expired-account sweep.
type RetentionConfig struct {
	Enabled  bool          `env:"ENABLED"  envDefault:"true"`
	Interval time.Duration `env:"INTERVAL" envDefault:"1h"`
	Batch    int           `env:"BATCH"    envDefault:"100"`
}

// Sanitize applies guardrails to retention settings.
func (c *RetentionConfig) Sanitize() {
	if c.Interval < time.Minute {
		c.Interval = time.Hour
	}
	if c.Batch <= 0 {
		c.Batch = 100
	}
}
