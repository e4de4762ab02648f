package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters and internal/data; orchestration
// in internal/service.

import (
	"context"
	"errors"

	domainauth "github.com/target/passkey-lab/internal/domain/auth"
)

// ErrSessionNotFound is returned by SessionStore implementations when no
// record exists for a token.
var ErrSessionNotFound = errors.New("session not found")

// ErrNoChallenge is returned by ChallengeLedger implementations when no
// value is bound for the session.
var ErrNoChallenge = errors.New("no challenge bound to session")

// SessionStore persists and retrieves visitor sessions.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}

// ChallengeKind selects which single-use value a ledger operation targets.
type ChallengeKind string

const (
	// KindChallenge is the ceremony challenge bound to registration and
	// authentication requests.
	KindChallenge ChallengeKind = "challenge"
	// KindNonce is the federation nonce bound to a rendered sign-in page.
	KindNonce ChallengeKind = "nonce"
)

// ChallengeLedger stores per-session single-use random values. Consume must
// atomically read-and-delete so a value can never be accepted twice, even
// under a replayed request.
type ChallengeLedger interface {
	// Issue mints a fresh random value, binds it to the session (replacing
	// any previous value of the same kind) and returns it.
	Issue(ctx context.Context, sessionID string, kind ChallengeKind) (string, error)

	// Bind stores a caller-supplied value for the session.
	Bind(ctx context.Context, sessionID string, kind ChallengeKind, value string) error

	// Consume removes and returns the bound value in one step. Implementations
	// return their not-found sentinel when nothing is bound.
	Consume(ctx context.Context, sessionID string, kind ChallengeKind) (string, error)

	// Clear drops any bound value without returning it.
	Clear(ctx context.Context, sessionID string, kind ChallengeKind) error
}
