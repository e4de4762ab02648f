package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/passkey-lab/internal/domain/auth"
	"github.com/target/passkey-lab/internal/domain/model"
	"github.com/target/passkey-lab/internal/ports"
	"github.com/target/passkey-lab/internal/testutil"
)

// setupTestRedis creates a Redis client for testing.
// Tests will be skipped if Redis is not available.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	return testutil.SetupTestRedis(t)
}

func TestSessionStore_SaveGetDelete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := setupTestRedis(t)
	defer client.Close()

	store := NewSessionStore(client)
	ctx := context.Background()

	sess := domainauth.Session{
		ID:        "sess-roundtrip",
		Username:  "alice",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		ExpiresAt: time.Now().Add(time.Hour).UTC().Truncate(time.Second),
	}
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, "alice", got.Username)

	// The Redis TTL mirrors the record's absolute expiry.
	ttl := client.TTL(ctx, "session:"+sess.ID).Val()
	assert.True(t, ttl > 0 && ttl <= time.Hour)

	require.NoError(t, store.Delete(ctx, sess.ID))
	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)
}

func TestSessionStore_SignedInSnapshot(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := setupTestRedis(t)
	defer client.Close()

	store := NewSessionStore(client)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	sess := domainauth.Session{
		ID: "sess-signed-in",
		User: &model.User{
			ID:                "user-1",
			Username:          "bob@example.com",
			DisplayName:       "Bob",
			PasskeyUserHandle: "handle-1",
			RegisteredAt:      now,
		},
		LastSignedInAt: now,
		CreatedAt:      now,
		ExpiresAt:      now.Add(time.Hour),
	}
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, got.User)
	assert.Equal(t, "user-1", got.User.ID)
	assert.Equal(t, "handle-1", got.User.PasskeyUserHandle)
	assert.True(t, got.LastSignedInAt.Equal(now))
}

func TestSessionStore_Save_Validation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := setupTestRedis(t)
	defer client.Close()

	store := NewSessionStore(client)
	ctx := context.Background()

	err := store.Save(ctx, domainauth.Session{ExpiresAt: time.Now().Add(time.Hour)})
	assert.Error(t, err)

	err = store.Save(ctx, domainauth.Session{ID: "stale", ExpiresAt: time.Now().Add(-time.Minute)})
	assert.Error(t, err)

	_, err = store.Get(ctx, "")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)
}

func TestChallengeLedger_IssueConsume(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := setupTestRedis(t)
	defer client.Close()

	ledger := NewChallengeLedger(client)
	ctx := context.Background()

	value, err := ledger.Issue(ctx, "sess-1", ports.KindChallenge)
	require.NoError(t, err)
	assert.NotEmpty(t, value)

	got, err := ledger.Consume(ctx, "sess-1", ports.KindChallenge)
	require.NoError(t, err)
	assert.Equal(t, value, got)

	// Single use: a second consume finds nothing.
	_, err = ledger.Consume(ctx, "sess-1", ports.KindChallenge)
	assert.ErrorIs(t, err, ports.ErrNoChallenge)
}

func TestChallengeLedger_KindsAreIndependent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := setupTestRedis(t)
	defer client.Close()

	ledger := NewChallengeLedger(client)
	ctx := context.Background()

	require.NoError(t, ledger.Bind(ctx, "sess-2", ports.KindChallenge, "ceremony-value"))
	require.NoError(t, ledger.Bind(ctx, "sess-2", ports.KindNonce, "nonce-value"))

	nonce, err := ledger.Consume(ctx, "sess-2", ports.KindNonce)
	require.NoError(t, err)
	assert.Equal(t, "nonce-value", nonce)

	challenge, err := ledger.Consume(ctx, "sess-2", ports.KindChallenge)
	require.NoError(t, err)
	assert.Equal(t, "ceremony-value", challenge)
}

func TestChallengeLedger_IssueReplacesPrevious(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := setupTestRedis(t)
	defer client.Close()

	ledger := NewChallengeLedger(client)
	ctx := context.Background()

	first, err := ledger.Issue(ctx, "sess-3", ports.KindChallenge)
	require.NoError(t, err)
	second, err := ledger.Issue(ctx, "sess-3", ports.KindChallenge)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	got, err := ledger.Consume(ctx, "sess-3", ports.KindChallenge)
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestChallengeLedger_Clear(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	client := setupTestRedis(t)
	defer client.Close()

	ledger := NewChallengeLedgerWithTTL(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, ledger.Bind(ctx, "sess-4", ports.KindChallenge, "value"))
	require.NoError(t, ledger.Clear(ctx, "sess-4", ports.KindChallenge))

	_, err := ledger.Consume(ctx, "sess-4", ports.KindChallenge)
	assert.ErrorIs(t, err, ports.ErrNoChallenge)

	// Clearing an empty session is a no-op.
	require.NoError(t, ledger.Clear(ctx, "", ports.KindChallenge))
}
