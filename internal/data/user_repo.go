package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/target/passkey-lab/internal/domain/model"
)

// UserRepo provides document-store operations for user accounts.
type UserRepo struct {
	store *DocumentStore
}

// NewUserRepo creates a UserRepo over the given document store.
func NewUserRepo(store *DocumentStore) *UserRepo {
	return &UserRepo{store: store}
}

// Create inserts a new user. A taken username or passkey handle surfaces as
// ErrUsernameExists / ErrHandleExists.
func (r *UserRepo) Create(ctx context.Context, user *model.User) error {
	if user == nil || user.ID == "" {
		return errors.New("user with id is required")
	}
	if !model.IsValidUsername(user.Username) {
		return fmt.Errorf("invalid username %q", user.Username)
	}
	if err := r.store.Set(ctx, CollectionUsers, user.ID, user); err != nil {
		return classifyUserWriteErr(err)
	}
	return nil
}

// Update persists changes to an existing user.
func (r *UserRepo) Update(ctx context.Context, user *model.User) error {
	if user == nil || user.ID == "" {
		return ErrUserNotFound
	}
	if _, err := r.store.Find(ctx, CollectionUsers, user.ID); err != nil {
		if errors.Is(err, ErrDocNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if err := r.store.Set(ctx, CollectionUsers, user.ID, user); err != nil {
		return classifyUserWriteErr(err)
	}
	return nil
}

// GetByID retrieves a user by its primary id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	doc, err := r.store.Find(ctx, CollectionUsers, id)
	if err != nil {
		if errors.Is(err, ErrDocNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return decodeUser(doc)
}

// GetByUsername retrieves a user by its unique username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getByField(ctx, "username", username)
}

// GetByHandle retrieves a user by its passkey user handle.
func (r *UserRepo) GetByHandle(ctx context.Context, handle string) (*model.User, error) {
	return r.getByField(ctx, "passkey_user_handle", handle)
}

// GetByEmail retrieves a user by contact email. Emails are not unique in the
// schema; the first match wins for federation reconciliation.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getByField(ctx, "email", email)
}

// Delete removes a user record. Returns ErrUserNotFound when absent so
// cascading callers fail cleanly instead of partially deleting dependents.
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, CollectionUsers, id); err != nil {
		if errors.Is(err, ErrDocNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// ListExpired returns accounts whose expiry timestamp has passed.
func (r *UserRepo) ListExpired(ctx context.Context, limit int) ([]*model.User, error) {
	docs, err := r.store.FindWhereBefore(ctx, CollectionUsers, "expires_at", time.Now(), limit)
	if err != nil {
		return nil, err
	}
	users := make([]*model.User, 0, len(docs))
	for _, doc := range docs {
		user, decodeErr := decodeUser(doc)
		if decodeErr != nil {
			return nil, decodeErr
		}
		users = append(users, user)
	}
	return users, nil
}

func (r *UserRepo) getByField(ctx context.Context, field, value string) (*model.User, error) {
	if value == "" {
		return nil, ErrUserNotFound
	}
	docs, err := r.store.FindWhere(ctx, CollectionUsers, field, value)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrUserNotFound
	}
	return decodeUser(docs[0])
}

func decodeUser(doc json.RawMessage) (*model.User, error) {
	var user model.User
	if err := json.Unmarshal(doc, &user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &user, nil
}

// classifyUserWriteErr maps unique-index violations onto repository sentinels.
func classifyUserWriteErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		switch pgErr.ConstraintName {
		case "users_username_idx":
			return ErrUsernameExists
		case "users_passkey_handle_idx":
			return ErrHandleExists
		}
	}
	return fmt.Errorf("write user: %w", err)
}
