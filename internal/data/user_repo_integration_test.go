package data

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/passkey-lab/internal/domain/model"
	"github.com/target/passkey-lab/internal/testutil"
)

func newTestUser(suffix string) *model.User {
	return &model.User{
		ID:           "user-" + suffix,
		Username:     fmt.Sprintf("user-%s@example.com", suffix),
		DisplayName:  "User " + suffix,
		RegisteredAt: time.Now().UTC().Truncate(time.Second),
	}
}

func TestUserRepo_Create_Get_Update_Delete(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewUserRepo(NewDocumentStore(db))

		user := newTestUser("crud")
		user.Email = "crud@example.com"
		user.PasskeyUserHandle = "handle-crud"
		require.NoError(t, repo.Create(ctx, user))

		byID, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, user.Username, byID.Username)
		assert.Equal(t, user.DisplayName, byID.DisplayName)

		byUsername, err := repo.GetByUsername(ctx, user.Username)
		require.NoError(t, err)
		assert.Equal(t, user.ID, byUsername.ID)

		byHandle, err := repo.GetByHandle(ctx, "handle-crud")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byHandle.ID)

		byEmail, err := repo.GetByEmail(ctx, "crud@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byEmail.ID)

		user.DisplayName = "Renamed"
		require.NoError(t, repo.Update(ctx, user))
		updated, err := repo.GetByID(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.DisplayName)

		require.NoError(t, repo.Delete(ctx, user.ID))
		_, err = repo.GetByID(ctx, user.ID)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestUserRepo_NotFoundSentinels(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewUserRepo(NewDocumentStore(db))

		_, err := repo.GetByID(ctx, "absent")
		assert.ErrorIs(t, err, ErrUserNotFound)

		_, err = repo.GetByUsername(ctx, "absent@example.com")
		assert.ErrorIs(t, err, ErrUserNotFound)

		_, err = repo.GetByHandle(ctx, "")
		assert.ErrorIs(t, err, ErrUserNotFound)

		err = repo.Update(ctx, newTestUser("never-created"))
		assert.ErrorIs(t, err, ErrUserNotFound)

		err = repo.Delete(ctx, "absent")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestUserRepo_UniqueUsername(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewUserRepo(NewDocumentStore(db))

		first := newTestUser("unique-a")
		require.NoError(t, repo.Create(ctx, first))

		second := newTestUser("unique-b")
		second.Username = first.Username
		err := repo.Create(ctx, second)
		assert.ErrorIs(t, err, ErrUsernameExists)
	})
}

func TestUserRepo_UniqueHandle(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewUserRepo(NewDocumentStore(db))

		first := newTestUser("handle-a")
		first.PasskeyUserHandle = "shared-handle"
		require.NoError(t, repo.Create(ctx, first))

		second := newTestUser("handle-b")
		second.PasskeyUserHandle = "shared-handle"
		err := repo.Create(ctx, second)
		assert.ErrorIs(t, err, ErrHandleExists)

		// Accounts without a passkey handle never collide on it.
		third := newTestUser("handle-c")
		fourth := newTestUser("handle-d")
		require.NoError(t, repo.Create(ctx, third))
		require.NoError(t, repo.Create(ctx, fourth))
	})
}

func TestUserRepo_ListExpired(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithTestDB(t, func(db *sql.DB) {
		ctx := context.Background()
		repo := NewUserRepo(NewDocumentStore(db))

		expired := newTestUser("expired")
		expired.ExpiresAt = testutil.TimePtr(time.Now().Add(-time.Hour).UTC())
		require.NoError(t, repo.Create(ctx, expired))

		fresh := newTestUser("fresh")
		fresh.ExpiresAt = testutil.TimePtr(time.Now().Add(time.Hour).UTC())
		require.NoError(t, repo.Create(ctx, fresh))

		permanent := newTestUser("permanent")
		require.NoError(t, repo.Create(ctx, permanent))

		got, err := repo.ListExpired(ctx, 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, expired.ID, got[0].ID)
	})
}
