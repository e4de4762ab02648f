//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const maxDisplayNameLen = 255

// usernamePattern is the allowed login identifier shape: email-like and
// plain handles, no whitespace, no path separators.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9@._:+-]+$`)

// IsValidUsername reports whether the value is acceptable as a login
// identifier. Empty strings, whitespace and "/" are rejected so identifiers
// are safe to embed in URLs and store keys.
func IsValidUsername(username string) bool {
	if username == "" {
		return false
	}
	return usernamePattern.MatchString(username)
}

// User is a single local account. PasskeyUserHandle is a second opaque id
// used only inside public-key ceremonies, decoupling the stable account id
// from the value exposed to authenticators.
type User struct {
	ID                string     `json:"id"`
	Username          string     `json:"username"`
	DisplayName       string     `json:"display_name"`
	Email             string     `json:"email,omitempty"`
	Picture           string     `json:"picture,omitempty"`
	Password          string     `json:"password,omitempty"` // cleartext by design of the demo
	PasskeyUserHandle string     `json:"passkey_user_handle,omitempty"`
	ApprovedClients   []string   `json:"approved_clients,omitempty"`
	RegisteredAt      time.Time  `json:"registered_at"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
}

// HasApprovedClient reports whether the user previously approved the given
// relying-party client id for federation.
func (u *User) HasApprovedClient(clientID string) bool {
	for _, c := range u.ApprovedClients {
		if c == clientID {
			return true
		}
	}
	return false
}

// RemoveApprovedClient removes a client id from the approval list and
// reports whether it was present.
func (u *User) RemoveApprovedClient(clientID string) bool {
	for i, c := range u.ApprovedClients {
		if c == clientID {
			u.ApprovedClients = append(u.ApprovedClients[:i], u.ApprovedClients[i+1:]...)
			return true
		}
	}
	return false
}

// NormalizeDisplayName trims the value and caps its length; an empty result
// falls back to the username.
func NormalizeDisplayName(displayName, username string) string {
	name := strings.TrimSpace(displayName)
	if name == "" {
		return username
	}
	if utf8.RuneCountInString(name) > maxDisplayNameLen {
		runes := []rune(name)
		name = string(runes[:maxDisplayNameLen])
	}
	return name
}
