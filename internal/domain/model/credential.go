//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import "time"

// PublicKeyCredential is one registered authenticator binding. The primary
// key is the credential id minted by the authenticator itself; ownership is
// expressed through the passkey user handle, not the stable account id.
type PublicKeyCredential struct {
	ID            string    `json:"id"`
	UserHandle    string    `json:"user_handle"`
	Name          string    `json:"name"`
	PublicKey     []byte    `json:"public_key"`
	AttestationType string  `json:"attestation_type,omitempty"`
	AAGUID        string    `json:"aaguid,omitempty"`
	Transports    []string  `json:"transports,omitempty"`
	UserVerified  bool      `json:"user_verified"`
	BackupEligible bool     `json:"backup_eligible"`
	BackedUp      bool      `json:"backed_up"`
	SignCount     uint32    `json:"sign_count"`
	RegisteredAt  time.Time `json:"registered_at"`
	LastUsedAt    time.Time `json:"last_used_at,omitzero"`
}

// Synced reports whether the credential is a multi-device (synced) passkey
// rather than a device-bound one.
func (c *PublicKeyCredential) Synced() bool { return c.BackupEligible }
