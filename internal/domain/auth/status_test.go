package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/target/passkey-lab/internal/domain/model"
)

func TestDeriveStatus(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	short := 3 * time.Minute

	tests := []struct {
		name string
		sess *Session
		want SignInStatus
	}{
		{
			name: "nil session is unregistered",
			sess: nil,
			want: StatusUnregistered,
		},
		{
			name: "fresh session is signed out",
			sess: &Session{ID: "s1"},
			want: StatusSignedOut,
		},
		{
			name: "candidate username only means signing in",
			sess: &Session{ID: "s1", Username: "alice"},
			want: StatusSigningIn,
		},
		{
			name: "candidate username with pending handle means signing up",
			sess: &Session{ID: "s1", Username: "alice", PendingHandle: "h1"},
			want: StatusSigningUp,
		},
		{
			name: "recent authentication is recently signed in",
			sess: &Session{
				ID:             "s1",
				Username:       "alice",
				User:           &model.User{ID: "u1", Username: "alice"},
				LastSignedInAt: now.Add(-time.Minute),
			},
			want: StatusRecentlySignedIn,
		},
		{
			name: "authentication exactly at the threshold is still recent",
			sess: &Session{
				ID:             "s1",
				Username:       "alice",
				User:           &model.User{ID: "u1", Username: "alice"},
				LastSignedInAt: now.Add(-short),
			},
			want: StatusRecentlySignedIn,
		},
		{
			name: "stale authentication is signed in",
			sess: &Session{
				ID:             "s1",
				Username:       "alice",
				User:           &model.User{ID: "u1", Username: "alice"},
				LastSignedInAt: now.Add(-short - time.Second),
			},
			want: StatusSignedIn,
		},
		{
			name: "user without authentication timestamp is signed in",
			sess: &Session{
				ID:       "s1",
				Username: "alice",
				User:     &model.User{ID: "u1", Username: "alice"},
			},
			want: StatusSignedIn,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, DeriveStatus(tc.sess, now, short))
		})
	}
}

func TestDeriveStatus_Ordering(t *testing.T) {
	t.Parallel()

	// Threshold comparisons across the codebase depend on this order.
	assert.True(t, StatusUnregistered < StatusSignedOut)
	assert.True(t, StatusSignedOut < StatusSigningUp)
	assert.True(t, StatusSigningUp < StatusSigningIn)
	assert.True(t, StatusSigningIn < StatusSignedIn)
	assert.True(t, StatusSignedIn < StatusRecentlySignedIn)
}

func TestSignInStatus_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status SignInStatus
		want   string
	}{
		{StatusUnregistered, "unregistered"},
		{StatusSignedOut, "signed-out"},
		{StatusSigningUp, "signing-up"},
		{StatusSigningIn, "signing-in"},
		{StatusSignedIn, "signed-in"},
		{StatusRecentlySignedIn, "recently-signed-in"},
		{SignInStatus(99), "unknown"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, tc.status.String())
	}
}

func TestSession_SignedIn(t *testing.T) {
	t.Parallel()

	var nilSess *Session
	assert.False(t, nilSess.SignedIn())
	assert.False(t, (&Session{ID: "s1", Username: "alice"}).SignedIn())
	assert.True(t, (&Session{ID: "s1", User: &model.User{ID: "u1"}}).SignedIn())
}
