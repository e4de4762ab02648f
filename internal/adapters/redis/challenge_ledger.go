package redis

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/passkey-lab/internal/ports"
)

const challengeBytes = 32

// DefaultChallengeTTL bounds how long a proposed ceremony stays answerable.
const DefaultChallengeTTL = 5 * time.Minute

// ErrNoChallenge is returned when no value is bound for the session.
var ErrNoChallenge = ports.ErrNoChallenge

// ChallengeLedger stores per-session single-use random values in Redis.
// Consume uses GETDEL so a value can be redeemed at most once even when two
// requests race on the same session.
type ChallengeLedger struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewChallengeLedger creates a ledger with the default TTL.
func NewChallengeLedger(client redis.UniversalClient) *ChallengeLedger {
	return &ChallengeLedger{client: client, prefix: "ceremony:", ttl: DefaultChallengeTTL}
}

// NewChallengeLedgerWithTTL creates a ledger with a custom value lifetime.
func NewChallengeLedgerWithTTL(client redis.UniversalClient, ttl time.Duration) *ChallengeLedger {
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &ChallengeLedger{client: client, prefix: "ceremony:", ttl: ttl}
}

func (l *ChallengeLedger) key(sessionID string, kind ports.ChallengeKind) string {
	return l.prefix + string(kind) + ":" + sessionID
}

// Issue mints a fresh base64url random value and binds it to the session,
// replacing any previous value of the same kind.
func (l *ChallengeLedger) Issue(ctx context.Context, sessionID string, kind ports.ChallengeKind) (string, error) {
	if sessionID == "" {
		return "", errors.New("session ID cannot be empty")
	}

	buf := make([]byte, challengeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate challenge: %w", err)
	}
	value := base64.RawURLEncoding.EncodeToString(buf)

	if err := l.Bind(ctx, sessionID, kind, value); err != nil {
		return "", err
	}
	return value, nil
}

// Bind stores a caller-supplied value for the session.
func (l *ChallengeLedger) Bind(ctx context.Context, sessionID string, kind ports.ChallengeKind, value string) error {
	if sessionID == "" {
		return errors.New("session ID cannot be empty")
	}
	if value == "" {
		return errors.New("challenge value cannot be empty")
	}
	if err := l.client.Set(ctx, l.key(sessionID, kind), value, l.ttl).Err(); err != nil {
		return fmt.Errorf("bind challenge: %w", err)
	}
	return nil
}

// Consume atomically removes and returns the bound value. The read and the
// delete happen in one Redis command, closing the replay window.
func (l *ChallengeLedger) Consume(ctx context.Context, sessionID string, kind ports.ChallengeKind) (string, error) {
	if sessionID == "" {
		return "", ErrNoChallenge
	}

	value, err := l.client.GetDel(ctx, l.key(sessionID, kind)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNoChallenge
		}
		return "", fmt.Errorf("consume challenge: %w", err)
	}
	if value == "" {
		return "", ErrNoChallenge
	}
	return value, nil
}

// Clear drops any bound value without returning it.
func (l *ChallengeLedger) Clear(ctx context.Context, sessionID string, kind ports.ChallengeKind) error {
	if sessionID == "" {
		return nil
	}
	return l.client.Del(ctx, l.key(sessionID, kind)).Err()
}
