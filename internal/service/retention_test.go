package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/passkey-lab/config"
	"github.com/target/passkey-lab/internal/domain/model"
	mocksauth "github.com/target/passkey-lab/internal/mocks/auth"
)

type retentionFixture struct {
	users    *mocksauth.MemoryUserRepo
	creds    *mocksauth.MemoryCredentialRepo
	mappings *mocksauth.MemoryFederationRepo
	svc      *RetentionService
}

func newRetentionService(t *testing.T, cfg config.RetentionConfig) *retentionFixture {
	t.Helper()
	users := mocksauth.NewMemoryUserRepo()
	creds := mocksauth.NewMemoryCredentialRepo()
	mappings := mocksauth.NewMemoryFederationRepo()

	svc, err := NewRetentionService(RetentionServiceOptions{
		Users:       users,
		Credentials: creds,
		Mappings:    mappings,
		Config:      cfg,
	})
	require.NoError(t, err)
	return &retentionFixture{users: users, creds: creds, mappings: mappings, svc: svc}
}

func TestRetentionService_Sweep(t *testing.T) {
	t.Parallel()
	f := newRetentionService(t, config.RetentionConfig{Enabled: true, Interval: time.Hour, Batch: 100})
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	expired := &model.User{ID: "u1", Username: "alice", PasskeyUserHandle: "h1", ExpiresAt: &past}
	require.NoError(t, f.users.Create(ctx, expired))
	require.NoError(t, f.creds.Save(ctx, &model.PublicKeyCredential{ID: "cred-1", UserHandle: "h1"}))
	require.NoError(t, f.mappings.Create(ctx, &model.FederationMapping{ID: "m1", UserID: "u1", Issuer: "https://idp.example"}))

	keeper := &model.User{ID: "u2", Username: "bob"}
	require.NoError(t, f.users.Create(ctx, keeper))

	require.NoError(t, f.svc.Sweep(ctx))

	_, err := f.users.GetByID(ctx, "u1")
	assert.Error(t, err)
	creds, err := f.creds.ListByHandle(ctx, "h1")
	require.NoError(t, err)
	assert.Empty(t, creds)
	mappings, err := f.mappings.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, mappings)

	_, err = f.users.GetByID(ctx, "u2")
	assert.NoError(t, err, "account without expiry must survive the sweep")
}

func TestRetentionService_Sweep_FutureExpiryKept(t *testing.T) {
	t.Parallel()
	f := newRetentionService(t, config.RetentionConfig{Enabled: true, Interval: time.Hour, Batch: 100})
	ctx := context.Background()

	future := time.Now().Add(time.Hour)
	require.NoError(t, f.users.Create(ctx, &model.User{ID: "u1", Username: "alice", ExpiresAt: &future}))

	require.NoError(t, f.svc.Sweep(ctx))

	_, err := f.users.GetByID(ctx, "u1")
	assert.NoError(t, err)
}

func TestRetentionService_Run_DisabledBlocksUntilCancel(t *testing.T) {
	t.Parallel()
	f := newRetentionService(t, config.RetentionConfig{Enabled: false})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.svc.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRetentionService_Run_GracefulShutdown(t *testing.T) {
	t.Parallel()
	f := newRetentionService(t, config.RetentionConfig{Enabled: true, Interval: time.Hour, Batch: 10})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.svc.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
