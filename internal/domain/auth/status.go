package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import "time"

// SignInStatus describes where a visitor is within the authentication
// lifecycle. The values are strictly ordered so callers can use threshold
// comparisons (e.g. status >= SignedIn).
type SignInStatus int

const (
	// StatusUnregistered is the pre-session sentinel: no session record
	// exists yet for this visitor.
	StatusUnregistered SignInStatus = iota
	// StatusSignedOut means a session exists but no flow is in progress.
	StatusSignedOut
	// StatusSigningUp means a sign-up is in progress: a candidate username
	// and a pending passkey user handle are set, but no account exists yet.
	StatusSigningUp
	// StatusSigningIn means a candidate username is set and the visitor is
	// partway through proving control of the account.
	StatusSigningIn
	// StatusSignedIn means the visitor holds an authenticated session whose
	// last authentication is older than the short session duration.
	StatusSignedIn
	// StatusRecentlySignedIn means the visitor authenticated within the
	// short session duration and may perform sensitive actions.
	StatusRecentlySignedIn
)

func (s SignInStatus) String() string {
	switch s {
	case StatusUnregistered:
		return "unregistered"
	case StatusSignedOut:
		return "signed-out"
	case StatusSigningUp:
		return "signing-up"
	case StatusSigningIn:
		return "signing-in"
	case StatusSignedIn:
		return "signed-in"
	case StatusRecentlySignedIn:
		return "recently-signed-in"
	default:
		return "unknown"
	}
}

// DeriveStatus computes the sign-in status from session fields alone.
// It is a pure function: no clock other than now, no I/O, no cached state.
func DeriveStatus(sess *Session, now time.Time, shortSession time.Duration) SignInStatus {
	if sess == nil {
		return StatusUnregistered
	}
	if sess.User == nil {
		switch {
		case sess.Username == "":
			return StatusSignedOut
		case sess.PendingHandle != "":
			return StatusSigningUp
		default:
			return StatusSigningIn
		}
	}
	if sess.LastSignedInAt.IsZero() || now.Sub(sess.LastSignedInAt) > shortSession {
		return StatusSignedIn
	}
	return StatusRecentlySignedIn
}
