package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/target/passkey-lab/internal/data"
	domainauth "github.com/target/passkey-lab/internal/domain/auth"
	"github.com/target/passkey-lab/internal/domain/model"
	"github.com/target/passkey-lab/internal/ports"
)

// ErrUsernameTaken is returned when a sign-up identifier is already claimed.
var ErrUsernameTaken = errors.New("username already taken")

// ErrInvalidPassword is returned for an empty or oversized password value.
var ErrInvalidPassword = errors.New("invalid password value")

const maxPasswordLen = 256

// UserServiceOptions groups dependencies for UserService.
type UserServiceOptions struct {
	Sessions    *SessionService
	Users       ports.UserRepository
	Credentials ports.CredentialRepository
	Mappings    ports.FederationRepository
}

// UserService handles the password flow and account lifecycle operations:
// sign-in entry, mock password compare, profile updates and cascading
// account deletion.
type UserService struct {
	sessions    *SessionService
	users       ports.UserRepository
	credentials ports.CredentialRepository
	mappings    ports.FederationRepository
}

// NewUserService constructs a UserService.
func NewUserService(opts UserServiceOptions) (*UserService, error) {
	if opts.Sessions == nil {
		return nil, errors.New("session service is required")
	}
	if opts.Users == nil {
		return nil, errors.New("user repository is required")
	}
	if opts.Credentials == nil {
		return nil, errors.New("credential repository is required")
	}
	if opts.Mappings == nil {
		return nil, errors.New("federation repository is required")
	}
	return &UserService{
		sessions:    opts.Sessions,
		users:       opts.Users,
		credentials: opts.Credentials,
		mappings:    opts.Mappings,
	}, nil
}

// StartSignIn records the candidate username for an existing-account flow.
// It reports whether an account with that username already exists so the
// client can pick the right next step.
func (s *UserService) StartSignIn(ctx context.Context, sess *domainauth.Session, username string) (exists bool, err error) {
	if err := s.sessions.BeginSigningIn(ctx, sess, username); err != nil {
		return false, err
	}
	_, err = s.users.GetByUsername(ctx, sess.Username)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, data.ErrUserNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("lookup account: %w", err)
	}
}

// StartSignUp records the candidate username for a new account, rejecting
// identifiers that are already claimed.
func (s *UserService) StartSignUp(ctx context.Context, sess *domainauth.Session, username string) error {
	if err := s.sessions.BeginSigningUp(ctx, sess, username); err != nil {
		return err
	}
	_, err := s.users.GetByUsername(ctx, sess.Username)
	switch {
	case err == nil:
		return ErrUsernameTaken
	case errors.Is(err, data.ErrUserNotFound):
		return nil
	default:
		return fmt.Errorf("lookup account: %w", err)
	}
}

// SubmitPassword completes a password flow for the session's candidate
// username. An existing account's stored value is compared verbatim (mocked,
// no hashing); an account without a password adopts the submitted one; an
// unknown username creates the account (password sign-up). Every success path
// ends in a signed-in commit.
func (s *UserService) SubmitPassword(ctx context.Context, sess *domainauth.Session, password string) (*model.User, error) {
	if sess.Username == "" {
		return nil, ErrInvalidState
	}
	if password == "" || len(password) > maxPasswordLen {
		return nil, ErrInvalidPassword
	}

	user, err := s.users.GetByUsername(ctx, sess.Username)
	switch {
	case err == nil:
		if user.Password == "" {
			user.Password = password
			if updateErr := s.users.Update(ctx, user); updateErr != nil {
				return nil, fmt.Errorf("set password: %w", updateErr)
			}
		} else if user.Password != password {
			return nil, ErrPasswordMismatch
		}
	case errors.Is(err, data.ErrUserNotFound):
		user = &model.User{
			ID:           uuid.NewString(),
			Username:     sess.Username,
			DisplayName:  sess.Username,
			Password:     password,
			RegisteredAt: time.Now(),
		}
		if createErr := s.users.Create(ctx, user); createErr != nil {
			if errors.Is(createErr, data.ErrUsernameExists) {
				return nil, ErrUsernameTaken
			}
			return nil, fmt.Errorf("create account: %w", createErr)
		}
	default:
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	if err := s.sessions.CommitSignedIn(ctx, sess, user); err != nil {
		return nil, fmt.Errorf("commit sign-in: %w", err)
	}
	return user, nil
}

// UpdateDisplayName replaces the signed-in account's display name. An empty
// value falls back to the username.
func (s *UserService) UpdateDisplayName(ctx context.Context, sess *domainauth.Session, displayName string) (*model.User, error) {
	user, err := s.signedInUser(ctx, sess)
	if err != nil {
		return nil, err
	}
	user.DisplayName = model.NormalizeDisplayName(displayName, user.Username)
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update display name: %w", err)
	}
	if err := s.sessions.RefreshUser(ctx, sess, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdatePassword replaces the signed-in account's password value. Recency is
// enforced by the API gate, not here.
func (s *UserService) UpdatePassword(ctx context.Context, sess *domainauth.Session, password string) error {
	if password == "" || len(password) > maxPasswordLen {
		return ErrInvalidPassword
	}
	user, err := s.signedInUser(ctx, sess)
	if err != nil {
		return err
	}
	user.Password = password
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return s.sessions.RefreshUser(ctx, sess, user)
}

// DeleteAccount removes the signed-in account with full cascade: its
// credentials, its federation mappings, then the account row, then the
// session. An already-deleted account fails cleanly with ErrUserNotFound
// before any dependent is touched.
func (s *UserService) DeleteAccount(ctx context.Context, sess *domainauth.Session) error {
	if !sess.SignedIn() {
		return ErrInvalidState
	}
	user, err := s.users.GetByID(ctx, sess.User.ID)
	if err != nil {
		if errors.Is(err, data.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup account: %w", err)
	}

	if user.PasskeyUserHandle != "" {
		if err := s.credentials.DeleteByHandle(ctx, user.PasskeyUserHandle); err != nil {
			return fmt.Errorf("delete credentials: %w", err)
		}
	}
	if err := s.mappings.DeleteByUser(ctx, user.ID); err != nil {
		return fmt.Errorf("delete federation mappings: %w", err)
	}
	if err := s.users.Delete(ctx, user.ID); err != nil && !errors.Is(err, data.ErrUserNotFound) {
		return fmt.Errorf("delete account: %w", err)
	}
	return s.sessions.SignOut(ctx, sess)
}

func (s *UserService) signedInUser(ctx context.Context, sess *domainauth.Session) (*model.User, error) {
	if !sess.SignedIn() {
		return nil, ErrInvalidState
	}
	user, err := s.users.GetByID(ctx, sess.User.ID)
	if err != nil {
		if errors.Is(err, data.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	return user, nil
}
