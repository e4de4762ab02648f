package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/passkey-lab/internal/domain/auth"
	"github.com/target/passkey-lab/internal/domain/model"
	mocksauth "github.com/target/passkey-lab/internal/mocks/auth"
	"github.com/target/passkey-lab/internal/ports"
)

func newSessionService(t *testing.T) (*mocksauth.MemorySessionStore, *mocksauth.MemoryChallengeLedger, *SessionService) {
	t.Helper()
	store := mocksauth.NewMemorySessionStore()
	ledger := mocksauth.NewMemoryChallengeLedger()
	svc, err := NewSessionService(SessionServiceOptions{
		Sessions:     store,
		Ledger:       ledger,
		ShortSession: 3 * time.Minute,
		LongSession:  24 * time.Hour,
	})
	require.NoError(t, err)
	return store, ledger, svc
}

func TestNewSessionService_RequiresDependencies(t *testing.T) {
	t.Parallel()

	_, err := NewSessionService(SessionServiceOptions{Ledger: mocksauth.NewMemoryChallengeLedger()})
	assert.Error(t, err)

	_, err = NewSessionService(SessionServiceOptions{Sessions: mocksauth.NewMemorySessionStore()})
	assert.Error(t, err)
}

func TestSessionService_StartAndLoad(t *testing.T) {
	t.Parallel()
	_, _, svc := newSessionService(t)
	ctx := context.Background()

	sess, err := svc.Start(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)
	assert.Equal(t, domainauth.StatusSignedOut, svc.Status(sess))

	loaded, err := svc.Load(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, sess.ID, loaded.ID)
}

func TestSessionService_Load_MissingToken(t *testing.T) {
	t.Parallel()
	_, _, svc := newSessionService(t)
	ctx := context.Background()

	loaded, err := svc.Load(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	loaded, err = svc.Load(ctx, "no-such-token")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSessionService_BeginSigningIn(t *testing.T) {
	t.Parallel()
	_, _, svc := newSessionService(t)
	ctx := context.Background()

	sess, err := svc.Start(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.BeginSigningIn(ctx, sess, "  alice@example.com  "))
	assert.Equal(t, "alice@example.com", sess.Username)
	assert.Equal(t, domainauth.StatusSigningIn, svc.Status(sess))

	err = svc.BeginSigningIn(ctx, sess, "bad identifier")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestSessionService_PendingHandleAdvancesToSigningUp(t *testing.T) {
	t.Parallel()
	_, _, svc := newSessionService(t)
	ctx := context.Background()

	sess, err := svc.Start(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.BeginSigningUp(ctx, sess, "alice"))

	require.NoError(t, svc.SetPendingHandle(ctx, sess, "handle-1"))
	assert.Equal(t, domainauth.StatusSigningUp, svc.Status(sess))

	require.NoError(t, svc.ClearPendingHandle(ctx, sess))
	assert.Equal(t, domainauth.StatusSigningIn, svc.Status(sess))
}

func TestSessionService_CommitSignedIn(t *testing.T) {
	t.Parallel()
	store, ledger, svc := newSessionService(t)
	ctx := context.Background()

	sess, err := svc.Start(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.BeginSigningUp(ctx, sess, "alice"))
	require.NoError(t, svc.SetPendingHandle(ctx, sess, "handle-1"))

	_, err = svc.IssueChallenge(ctx, sess)
	require.NoError(t, err)

	user := &model.User{ID: "u1", Username: "alice", Password: "secret"}
	require.NoError(t, svc.CommitSignedIn(ctx, sess, user))

	assert.Equal(t, domainauth.StatusRecentlySignedIn, svc.Status(sess))
	assert.Empty(t, sess.PendingHandle)
	require.NotNil(t, sess.User)
	assert.Empty(t, sess.User.Password, "password must not enter the session record")

	// The finished flow's challenge must not survive the commit.
	_, ok := ledger.Peek(sess.ID, ports.KindChallenge)
	assert.False(t, ok)

	// The commit must be persisted, not just applied in memory.
	persisted, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, persisted.User)
	assert.Equal(t, "u1", persisted.User.ID)
}

func TestSessionService_CommitSignedIn_RequiresUser(t *testing.T) {
	t.Parallel()
	_, _, svc := newSessionService(t)
	ctx := context.Background()

	sess, err := svc.Start(ctx)
	require.NoError(t, err)
	assert.Error(t, svc.CommitSignedIn(ctx, sess, nil))
}

func TestSessionService_SignOut(t *testing.T) {
	t.Parallel()
	store, ledger, svc := newSessionService(t)
	ctx := context.Background()

	sess, err := svc.Start(ctx)
	require.NoError(t, err)
	_, err = svc.IssueChallenge(ctx, sess)
	require.NoError(t, err)
	_, err = svc.IssueNonce(ctx, sess)
	require.NoError(t, err)

	require.NoError(t, svc.SignOut(ctx, sess))

	_, err = store.Get(ctx, sess.ID)
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)
	_, ok := ledger.Peek(sess.ID, ports.KindChallenge)
	assert.False(t, ok)
	_, ok = ledger.Peek(sess.ID, ports.KindNonce)
	assert.False(t, ok)

	// Signing out a nil session is a no-op.
	assert.NoError(t, svc.SignOut(ctx, nil))
}

func TestSessionService_ChallengeSingleUse(t *testing.T) {
	t.Parallel()
	_, _, svc := newSessionService(t)
	ctx := context.Background()

	sess, err := svc.Start(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.BindChallenge(ctx, sess, "challenge-value"))

	value, err := svc.ConsumeChallenge(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, "challenge-value", value)

	_, err = svc.ConsumeChallenge(ctx, sess)
	assert.ErrorIs(t, err, ErrMissingChallenge)
}

func TestSessionService_NonceSingleUse(t *testing.T) {
	t.Parallel()
	_, _, svc := newSessionService(t)
	ctx := context.Background()

	sess, err := svc.Start(ctx)
	require.NoError(t, err)

	issued, err := svc.IssueNonce(ctx, sess)
	require.NoError(t, err)

	value, err := svc.ConsumeNonce(ctx, sess)
	require.NoError(t, err)
	assert.Equal(t, issued, value)

	_, err = svc.ConsumeNonce(ctx, sess)
	assert.ErrorIs(t, err, ErrMissingNonce)
}

func TestSessionService_Entrance(t *testing.T) {
	t.Parallel()
	_, _, svc := newSessionService(t)
	ctx := context.Background()

	sess, err := svc.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/", svc.RecallEntrance(sess))

	require.NoError(t, svc.RememberEntrance(ctx, sess, "/settings"))
	assert.Equal(t, "/settings", svc.RecallEntrance(sess))

	// Non-rooted values are normalized to the default.
	require.NoError(t, svc.RememberEntrance(ctx, sess, "https://evil.example"))
	assert.Equal(t, "/", svc.RecallEntrance(sess))

	assert.Equal(t, "/", svc.RecallEntrance(nil))
}

func TestSessionService_RefreshUser(t *testing.T) {
	t.Parallel()
	_, _, svc := newSessionService(t)
	ctx := context.Background()

	sess, err := svc.Start(ctx)
	require.NoError(t, err)

	err = svc.RefreshUser(ctx, sess, &model.User{ID: "u1"})
	assert.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, svc.CommitSignedIn(ctx, sess, &model.User{ID: "u1", Username: "alice"}))
	before := sess.LastSignedInAt

	require.NoError(t, svc.RefreshUser(ctx, sess, &model.User{ID: "u1", Username: "alice", DisplayName: "Alice", Password: "secret"}))
	assert.Equal(t, "Alice", sess.User.DisplayName)
	assert.Empty(t, sess.User.Password)
	assert.Equal(t, before, sess.LastSignedInAt, "refresh must not restamp authentication time")
}
