package auth

import (
	"time"

	"github.com/target/passkey-lab/internal/domain/model"
)

// Session is the server-side record held for each visitor, keyed by the
// opaque token stored in the session cookie. Orchestrators never mutate
// these fields directly; all writes go through the session service.
type Session struct {
	// ID is the opaque session token held by the browser cookie.
	ID string `json:"id"`

	// Username is the candidate login identifier captured before the
	// visitor has proven control of the account.
	Username string `json:"username,omitempty"`

	// User is the signed-in account snapshot. Nil until commit.
	User *model.User `json:"user,omitempty"`

	// LastSignedInAt is stamped on every successful authentication and
	// gates step-up re-authentication for sensitive actions.
	LastSignedInAt time.Time `json:"last_signedin_at,omitzero"`

	// PendingHandle is the passkey user handle minted for a sign-up
	// ceremony before the account row exists.
	PendingHandle string `json:"pending_handle,omitempty"`

	// Entrance is the page path at which the current flow started, used
	// for terminal redirects. Defaults to "/".
	Entrance string `json:"entrance,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SignedIn reports whether the session carries an authenticated account.
func (s *Session) SignedIn() bool { return s != nil && s.User != nil }
