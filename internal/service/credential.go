package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/target/passkey-lab/internal/data"
	domainauth "github.com/target/passkey-lab/internal/domain/auth"
	"github.com/target/passkey-lab/internal/domain/model"
	"github.com/target/passkey-lab/internal/ports"
)

// CredentialServiceOptions groups the dependencies for CredentialService.
type CredentialServiceOptions struct {
	Sessions    *SessionService
	Users       ports.UserRepository
	Credentials ports.CredentialRepository
	Verifier    ports.CredentialVerifier

	// Namer turns an authenticator model id into a human-readable credential
	// name, falling back to the supplied platform label.
	Namer func(aaguid, fallback string) string
}

// CredentialService orchestrates public-key credential ceremonies: it
// proposes registration/authentication parameters, hands the client's
// response to the external verifier and persists the outcome. It never
// touches session fields directly; all session mutation goes through
// SessionService.
type CredentialService struct {
	sessions    *SessionService
	users       ports.UserRepository
	credentials ports.CredentialRepository
	verifier    ports.CredentialVerifier
	namer       func(aaguid, fallback string) string
}

// NewCredentialService constructs a CredentialService.
func NewCredentialService(opts CredentialServiceOptions) (*CredentialService, error) {
	if opts.Sessions == nil {
		return nil, errors.New("session service is required")
	}
	if opts.Users == nil {
		return nil, errors.New("user repository is required")
	}
	if opts.Credentials == nil {
		return nil, errors.New("credential repository is required")
	}
	if opts.Verifier == nil {
		return nil, errors.New("credential verifier is required")
	}
	if opts.Namer == nil {
		opts.Namer = func(_, fallback string) string { return fallback }
	}
	return &CredentialService{
		sessions:    opts.Sessions,
		users:       opts.Users,
		credentials: opts.Credentials,
		verifier:    opts.Verifier,
		namer:       opts.Namer,
	}, nil
}

// RegisterRequest proposes registration ceremony parameters. For a sign-up in
// progress it mints (or reuses) the pending passkey user handle; for a
// signed-in account it acts on the account's own handle. Existing credentials
// for the handle become the exclusion list so the same authenticator cannot
// enroll twice. The minted challenge is bound to the session before the
// parameters are returned.
func (s *CredentialService) RegisterRequest(ctx context.Context, sess *domainauth.Session) (json.RawMessage, error) {
	actor, err := s.resolveActor(ctx, sess)
	if err != nil {
		return nil, err
	}

	exclusions, err := s.credentials.ListByHandle(ctx, actor.Handle)
	if err != nil {
		return nil, fmt.Errorf("list credentials for exclusion: %w", err)
	}

	params, err := s.verifier.CreateRegistrationParams(ctx, ports.RegistrationParamsInput{
		User:       actor,
		Exclusions: exclusions,
	})
	if err != nil {
		return nil, fmt.Errorf("create registration params: %w", err)
	}

	if err := s.sessions.BindChallenge(ctx, sess, params.Challenge); err != nil {
		return nil, fmt.Errorf("bind challenge: %w", err)
	}
	return params.Options, nil
}

// RegisterResponse verifies a client attestation response and persists the
// new credential. Consuming the bound challenge is the first step, so a
// replayed response fails with ErrMissingChallenge no matter how the first
// attempt ended. If the ceremony began a sign-up, the account row is created
// here and the session is committed signed-in.
func (s *CredentialService) RegisterResponse(ctx context.Context, sess *domainauth.Session, response json.RawMessage, origin, platform string) (*model.PublicKeyCredential, error) {
	challenge, err := s.sessions.ConsumeChallenge(ctx, sess)
	if err != nil {
		return nil, err
	}

	actor, err := s.resolveActor(ctx, sess)
	if err != nil {
		return nil, err
	}

	verified, err := s.verifier.VerifyRegistration(ctx, ports.VerifyRegistrationInput{
		Response:   response,
		Challenge:  challenge,
		Origin:     origin,
		UserHandle: actor.Handle,
	})
	if err != nil {
		return nil, ErrCredentialVerificationFailed
	}

	now := time.Now()
	cred := &model.PublicKeyCredential{
		ID:              verified.CredentialID,
		UserHandle:      actor.Handle,
		Name:            s.namer(verified.AAGUID, platform),
		PublicKey:       verified.PublicKey,
		AttestationType: verified.AttestationType,
		AAGUID:          verified.AAGUID,
		Transports:      verified.Transports,
		UserVerified:    verified.UserVerified,
		BackupEligible:  verified.BackupEligible,
		BackedUp:        verified.BackedUp,
		SignCount:       verified.SignCount,
		RegisteredAt:    now,
	}
	if err := s.credentials.Save(ctx, cred); err != nil {
		return nil, fmt.Errorf("save credential: %w", err)
	}

	// A signed-in visitor adding another key keeps their current sign-in
	// recency; only a sign-up ceremony commits a fresh sign-in.
	if sess.User != nil {
		return cred, nil
	}

	user, err := s.ensureSignUpUser(ctx, sess, actor.Handle)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.CommitSignedIn(ctx, sess, user); err != nil {
		return nil, fmt.Errorf("commit sign-in: %w", err)
	}
	return cred, nil
}

// AuthenticateRequest proposes authentication ceremony parameters. A
// signed-in visitor (step-up re-authentication) gets an allow list limited to
// the account's own credentials; an anonymous visitor gets an empty allow
// list so any discoverable credential may be offered.
func (s *CredentialService) AuthenticateRequest(ctx context.Context, sess *domainauth.Session) (json.RawMessage, error) {
	var allow []*model.PublicKeyCredential
	if sess.SignedIn() {
		handle := sess.User.PasskeyUserHandle
		if handle == "" {
			return nil, ErrNoCredentialsRegistered
		}
		var err error
		allow, err = s.credentials.ListByHandle(ctx, handle)
		if err != nil {
			return nil, fmt.Errorf("list credentials for allow list: %w", err)
		}
		if len(allow) == 0 {
			return nil, ErrNoCredentialsRegistered
		}
	}

	params, err := s.verifier.CreateAuthenticationParams(ctx, ports.AuthenticationParamsInput{
		AllowList: allow,
	})
	if err != nil {
		return nil, fmt.Errorf("create authentication params: %w", err)
	}

	if err := s.sessions.BindChallenge(ctx, sess, params.Challenge); err != nil {
		return nil, fmt.Errorf("bind challenge: %w", err)
	}
	return params.Options, nil
}

// AuthenticateResponse verifies a client assertion response and signs the
// session in as the credential's owner. The challenge is consumed first, so
// every exit from this method leaves the session with no bound challenge.
func (s *CredentialService) AuthenticateResponse(ctx context.Context, sess *domainauth.Session, response json.RawMessage, origin string) (*model.User, error) {
	challenge, err := s.sessions.ConsumeChallenge(ctx, sess)
	if err != nil {
		return nil, err
	}

	credentialID := assertedCredentialID(response)
	if credentialID == "" {
		return nil, ErrCredentialVerificationFailed
	}

	cred, err := s.credentials.GetByID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, data.ErrCredentialNotFound) {
			return nil, ErrCredentialNotFound
		}
		return nil, fmt.Errorf("lookup credential: %w", err)
	}

	// Re-authentication may only exercise the session's own account.
	if sess.SignedIn() && cred.UserHandle != sess.User.PasskeyUserHandle {
		return nil, ErrAccountMismatch
	}

	user, err := s.users.GetByHandle(ctx, cred.UserHandle)
	if err != nil {
		if errors.Is(err, data.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup credential owner: %w", err)
	}

	verified, err := s.verifier.VerifyAuthentication(ctx, ports.VerifyAuthenticationInput{
		Response:   response,
		Challenge:  challenge,
		Origin:     origin,
		Credential: cred,
	})
	if err != nil {
		return nil, ErrCredentialVerificationFailed
	}

	cred.LastUsedAt = time.Now()
	cred.SignCount = verified.SignCount
	if err := s.credentials.Update(ctx, cred); err != nil {
		return nil, fmt.Errorf("update credential usage: %w", err)
	}

	if err := s.sessions.CommitSignedIn(ctx, sess, user); err != nil {
		return nil, fmt.Errorf("commit sign-in: %w", err)
	}
	return user, nil
}

// ListCredentials returns the signed-in account's registered credentials.
// An account that never registered a passkey has no handle and lists empty.
func (s *CredentialService) ListCredentials(ctx context.Context, sess *domainauth.Session) ([]*model.PublicKeyCredential, error) {
	if !sess.SignedIn() {
		return nil, ErrInvalidState
	}
	handle := sess.User.PasskeyUserHandle
	if handle == "" {
		return []*model.PublicKeyCredential{}, nil
	}
	creds, err := s.credentials.ListByHandle(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	return creds, nil
}

// RenameCredential updates the display name of one of the signed-in
// account's credentials.
func (s *CredentialService) RenameCredential(ctx context.Context, sess *domainauth.Session, credentialID, name string) (*model.PublicKeyCredential, error) {
	cred, err := s.ownedCredential(ctx, sess, credentialID)
	if err != nil {
		return nil, err
	}
	cred.Name = name
	if err := s.credentials.Update(ctx, cred); err != nil {
		return nil, fmt.Errorf("rename credential: %w", err)
	}
	return cred, nil
}

// RemoveCredential deletes one of the signed-in account's credentials.
func (s *CredentialService) RemoveCredential(ctx context.Context, sess *domainauth.Session, credentialID string) error {
	cred, err := s.ownedCredential(ctx, sess, credentialID)
	if err != nil {
		return err
	}
	if err := s.credentials.Delete(ctx, cred.ID); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return nil
}

// ownedCredential loads a credential and verifies it belongs to the
// session's signed-in account.
func (s *CredentialService) ownedCredential(ctx context.Context, sess *domainauth.Session, credentialID string) (*model.PublicKeyCredential, error) {
	if !sess.SignedIn() {
		return nil, ErrInvalidState
	}
	cred, err := s.credentials.GetByID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, data.ErrCredentialNotFound) {
			return nil, ErrCredentialNotFound
		}
		return nil, fmt.Errorf("lookup credential: %w", err)
	}
	if cred.UserHandle == "" || cred.UserHandle != sess.User.PasskeyUserHandle {
		return nil, ErrAccountMismatch
	}
	return cred, nil
}

// resolveActor determines the passkey user handle and ceremony identity for
// the current flow. A signed-in account acts through its own handle, minting
// one lazily for accounts created via password or federation. A sign-up in
// progress acts through the session's pending handle, minted on first use so
// the ceremony can run before the account row exists.
func (s *CredentialService) resolveActor(ctx context.Context, sess *domainauth.Session) (ports.CeremonyUser, error) {
	if sess.SignedIn() {
		user := sess.User
		if user.PasskeyUserHandle == "" {
			fresh, err := s.users.GetByID(ctx, user.ID)
			if err != nil {
				return ports.CeremonyUser{}, fmt.Errorf("lookup account: %w", err)
			}
			if fresh.PasskeyUserHandle == "" {
				fresh.PasskeyUserHandle = uuid.NewString()
				if err := s.users.Update(ctx, fresh); err != nil {
					return ports.CeremonyUser{}, fmt.Errorf("assign passkey handle: %w", err)
				}
			}
			if err := s.sessions.RefreshUser(ctx, sess, fresh); err != nil {
				return ports.CeremonyUser{}, err
			}
			user = sess.User
		}
		return ports.CeremonyUser{
			Handle:      user.PasskeyUserHandle,
			Name:        user.Username,
			DisplayName: user.DisplayName,
		}, nil
	}

	if sess.Username == "" {
		return ports.CeremonyUser{}, ErrInvalidState
	}
	handle := sess.PendingHandle
	if handle == "" {
		handle = uuid.NewString()
		if err := s.sessions.SetPendingHandle(ctx, sess, handle); err != nil {
			return ports.CeremonyUser{}, err
		}
	}
	return ports.CeremonyUser{
		Handle:      handle,
		Name:        sess.Username,
		DisplayName: sess.Username,
	}, nil
}

// ensureSignUpUser creates the account row at the end of a passkey sign-up.
// Creation is idempotent keyed on the passkey handle: if a crash between the
// credential write and the user write left the row behind, or a concurrent
// retry raced us, the existing row is picked up instead.
func (s *CredentialService) ensureSignUpUser(ctx context.Context, sess *domainauth.Session, handle string) (*model.User, error) {
	if existing, err := s.users.GetByHandle(ctx, handle); err == nil {
		return existing, nil
	} else if !errors.Is(err, data.ErrUserNotFound) {
		return nil, fmt.Errorf("lookup account by handle: %w", err)
	}

	user := &model.User{
		ID:                uuid.NewString(),
		Username:          sess.Username,
		DisplayName:       sess.Username,
		PasskeyUserHandle: handle,
		RegisteredAt:      time.Now(),
	}
	err := s.users.Create(ctx, user)
	if err == nil {
		return user, nil
	}
	if errors.Is(err, data.ErrHandleExists) {
		// Lost a race with our own retry; the winner's row is the account.
		return s.users.GetByHandle(ctx, handle)
	}
	if errors.Is(err, data.ErrUsernameExists) {
		return nil, ErrInvalidIdentifier
	}
	return nil, fmt.Errorf("create account: %w", err)
}

// assertedCredentialID pulls the credential id off a client assertion
// response without interpreting the rest of the payload.
func assertedCredentialID(response json.RawMessage) string {
	var envelope struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(response, &envelope); err != nil {
		return ""
	}
	return envelope.ID
}
