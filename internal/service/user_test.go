package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/passkey-lab/internal/domain/auth"
	"github.com/target/passkey-lab/internal/domain/model"
	mocksauth "github.com/target/passkey-lab/internal/mocks/auth"
)

type userFixture struct {
	sessions *SessionService
	store    *mocksauth.MemorySessionStore
	users    *mocksauth.MemoryUserRepo
	creds    *mocksauth.MemoryCredentialRepo
	mappings *mocksauth.MemoryFederationRepo
	svc      *UserService
}

func newUserService(t *testing.T) *userFixture {
	t.Helper()
	store := mocksauth.NewMemorySessionStore()
	sessions, err := NewSessionService(SessionServiceOptions{
		Sessions:     store,
		Ledger:       mocksauth.NewMemoryChallengeLedger(),
		ShortSession: 3 * time.Minute,
		LongSession:  24 * time.Hour,
	})
	require.NoError(t, err)

	users := mocksauth.NewMemoryUserRepo()
	creds := mocksauth.NewMemoryCredentialRepo()
	mappings := mocksauth.NewMemoryFederationRepo()

	svc, err := NewUserService(UserServiceOptions{
		Sessions:    sessions,
		Users:       users,
		Credentials: creds,
		Mappings:    mappings,
	})
	require.NoError(t, err)

	return &userFixture{
		sessions: sessions,
		store:    store,
		users:    users,
		creds:    creds,
		mappings: mappings,
		svc:      svc,
	}
}

func (f *userFixture) startSession(t *testing.T) *domainauth.Session {
	t.Helper()
	sess, err := f.sessions.Start(context.Background())
	require.NoError(t, err)
	return sess
}

func TestUserService_StartSignIn(t *testing.T) {
	t.Parallel()
	f := newUserService(t)
	ctx := context.Background()

	require.NoError(t, f.users.Create(ctx, &model.User{ID: "u1", Username: "alice"}))

	sess := f.startSession(t)
	exists, err := f.svc.StartSignIn(ctx, sess, "alice")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, domainauth.StatusSigningIn, f.sessions.Status(sess))

	exists, err = f.svc.StartSignIn(ctx, sess, "nobody")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = f.svc.StartSignIn(ctx, sess, "bad name")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestUserService_StartSignUp(t *testing.T) {
	t.Parallel()
	f := newUserService(t)
	ctx := context.Background()

	require.NoError(t, f.users.Create(ctx, &model.User{ID: "u1", Username: "alice"}))

	sess := f.startSession(t)
	require.NoError(t, f.svc.StartSignUp(ctx, sess, "bob"))
	assert.Equal(t, "bob", sess.Username)

	err := f.svc.StartSignUp(ctx, sess, "alice")
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestUserService_SubmitPassword_CreatesAccount(t *testing.T) {
	t.Parallel()
	f := newUserService(t)
	ctx := context.Background()

	sess := f.startSession(t)
	require.NoError(t, f.svc.StartSignUp(ctx, sess, "alice"))

	user, err := f.svc.SubmitPassword(ctx, sess, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, domainauth.StatusRecentlySignedIn, f.sessions.Status(sess))

	stored, err := f.users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", stored.Password)
}

func TestUserService_SubmitPassword_ExistingAccount(t *testing.T) {
	t.Parallel()
	f := newUserService(t)
	ctx := context.Background()

	require.NoError(t, f.users.Create(ctx, &model.User{ID: "u1", Username: "alice", Password: "hunter2"}))

	sess := f.startSession(t)
	_, err := f.svc.StartSignIn(ctx, sess, "alice")
	require.NoError(t, err)

	_, err = f.svc.SubmitPassword(ctx, sess, "wrong")
	assert.ErrorIs(t, err, ErrPasswordMismatch)
	assert.Equal(t, domainauth.StatusSigningIn, f.sessions.Status(sess))

	user, err := f.svc.SubmitPassword(ctx, sess, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, domainauth.StatusRecentlySignedIn, f.sessions.Status(sess))
}

func TestUserService_SubmitPassword_AdoptsFirstPassword(t *testing.T) {
	t.Parallel()
	f := newUserService(t)
	ctx := context.Background()

	// Accounts created via passkey or federation carry no password value.
	require.NoError(t, f.users.Create(ctx, &model.User{ID: "u1", Username: "alice"}))

	sess := f.startSession(t)
	_, err := f.svc.StartSignIn(ctx, sess, "alice")
	require.NoError(t, err)

	_, err = f.svc.SubmitPassword(ctx, sess, "first-password")
	require.NoError(t, err)

	stored, err := f.users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "first-password", stored.Password)
}

func TestUserService_SubmitPassword_Validation(t *testing.T) {
	t.Parallel()
	f := newUserService(t)
	ctx := context.Background()

	sess := f.startSession(t)
	_, err := f.svc.SubmitPassword(ctx, sess, "anything")
	assert.ErrorIs(t, err, ErrInvalidState, "no candidate username")

	_, err = f.svc.StartSignIn(ctx, sess, "alice")
	require.NoError(t, err)

	_, err = f.svc.SubmitPassword(ctx, sess, "")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	_, err = f.svc.SubmitPassword(ctx, sess, strings.Repeat("x", maxPasswordLen+1))
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestUserService_UpdateDisplayName(t *testing.T) {
	t.Parallel()
	f := newUserService(t)
	ctx := context.Background()

	sess := f.startSession(t)
	_, err := f.svc.UpdateDisplayName(ctx, sess, "Alice")
	assert.ErrorIs(t, err, ErrInvalidState)

	user := &model.User{ID: "u1", Username: "alice"}
	require.NoError(t, f.users.Create(ctx, user))
	require.NoError(t, f.sessions.CommitSignedIn(ctx, sess, user))

	updated, err := f.svc.UpdateDisplayName(ctx, sess, "  Alice A.  ")
	require.NoError(t, err)
	assert.Equal(t, "Alice A.", updated.DisplayName)
	assert.Equal(t, "Alice A.", sess.User.DisplayName)

	// Empty value falls back to the username.
	updated, err = f.svc.UpdateDisplayName(ctx, sess, "   ")
	require.NoError(t, err)
	assert.Equal(t, "alice", updated.DisplayName)
}

func TestUserService_UpdatePassword(t *testing.T) {
	t.Parallel()
	f := newUserService(t)
	ctx := context.Background()

	sess := f.startSession(t)
	user := &model.User{ID: "u1", Username: "alice", Password: "old"}
	require.NoError(t, f.users.Create(ctx, user))
	require.NoError(t, f.sessions.CommitSignedIn(ctx, sess, user))

	assert.ErrorIs(t, f.svc.UpdatePassword(ctx, sess, ""), ErrInvalidPassword)

	require.NoError(t, f.svc.UpdatePassword(ctx, sess, "new"))
	stored, err := f.users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "new", stored.Password)
	assert.Empty(t, sess.User.Password)
}

func TestUserService_DeleteAccount_Cascades(t *testing.T) {
	t.Parallel()
	f := newUserService(t)
	ctx := context.Background()

	user := &model.User{ID: "u1", Username: "alice", PasskeyUserHandle: "h1"}
	require.NoError(t, f.users.Create(ctx, user))
	require.NoError(t, f.creds.Save(ctx, &model.PublicKeyCredential{ID: "cred-1", UserHandle: "h1"}))
	require.NoError(t, f.mappings.Create(ctx, &model.FederationMapping{ID: "m1", UserID: "u1", Issuer: "https://idp.example"}))

	sess := f.startSession(t)
	require.NoError(t, f.sessions.CommitSignedIn(ctx, sess, user))

	require.NoError(t, f.svc.DeleteAccount(ctx, sess))

	_, err := f.users.GetByID(ctx, "u1")
	assert.Error(t, err)
	creds, err := f.creds.ListByHandle(ctx, "h1")
	require.NoError(t, err)
	assert.Empty(t, creds)
	mappings, err := f.mappings.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, mappings)

	// The session record is gone too.
	loaded, err := f.sessions.Load(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestUserService_DeleteAccount_AlreadyDeleted(t *testing.T) {
	t.Parallel()
	f := newUserService(t)
	ctx := context.Background()

	user := &model.User{ID: "u1", Username: "alice"}
	require.NoError(t, f.users.Create(ctx, user))

	sess := f.startSession(t)
	require.NoError(t, f.sessions.CommitSignedIn(ctx, sess, user))
	require.NoError(t, f.users.Delete(ctx, "u1"))

	err := f.svc.DeleteAccount(ctx, sess)
	assert.ErrorIs(t, err, ErrUserNotFound)

	sess2 := f.startSession(t)
	err = f.svc.DeleteAccount(ctx, sess2)
	assert.ErrorIs(t, err, ErrInvalidState)
}
