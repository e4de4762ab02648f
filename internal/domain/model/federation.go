//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import "time"

// FederationMapping links one identity-provider issuance to a local user.
// Mappings are written once and never updated; they are removed only when
// the owning account is deleted.
type FederationMapping struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Issuer    string    `json:"issuer"`
	Subject   string    `json:"subject,omitempty"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	Picture   string    `json:"picture,omitempty"`
	Locale    string    `json:"locale,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IdentityProvider is one trusted entry in the provider directory. Secret is
// the shared verification secret and must never be exposed to callers.
type IdentityProvider struct {
	Origin         string `json:"origin"`
	ConfigEndpoint string `json:"config_endpoint"`
	ClientID       string `json:"client_id"`
	Issuer         string `json:"-"`
	Secret         string `json:"-"`

	// WellKnownVendor marks providers whose tokens are verified through the
	// vendor's published signing keys instead of the shared secret.
	WellKnownVendor bool `json:"-"`
}

// TokenClaims is the verified payload of a federated identity token.
type TokenClaims struct {
	Issuer  string `json:"iss"`
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	Locale  string `json:"locale,omitempty"`
}
