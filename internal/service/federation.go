package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/target/passkey-lab/internal/data"
	domainauth "github.com/target/passkey-lab/internal/domain/auth"
	"github.com/target/passkey-lab/internal/domain/model"
	"github.com/target/passkey-lab/internal/ports"
)

// FederationServiceOptions groups dependencies for FederationService.
//
// All fields are required except Logger.
type FederationServiceOptions struct {
	Sessions *SessionService
	Users    ports.UserRepository
	Mappings ports.FederationRepository
	Registry ports.ProviderDirectory

	// VendorVerifier validates tokens from well-known federated-login
	// vendors against their published signing keys; SecretVerifier validates
	// tokens from directory providers with a shared secret.
	VendorVerifier ports.TokenVerifier
	SecretVerifier ports.TokenVerifier

	Logger *slog.Logger
}

// FederationResult is the outcome of a successful token verification.
// DuplicateMapping flags the known condition of more than one mapping for
// the (issuer, user) pair; no merge is attempted, the caller decides.
type FederationResult struct {
	User             *model.User
	DuplicateMapping bool
}

// FederationService orchestrates FedCM/OIDC-style federation: provider
// lookup, nonce-bound token verification, account reconciliation and
// disconnect.
type FederationService struct {
	sessions *SessionService
	users    ports.UserRepository
	mappings ports.FederationRepository
	registry ports.ProviderDirectory
	vendor   ports.TokenVerifier
	secret   ports.TokenVerifier
	logger   *slog.Logger
}

// NewFederationService constructs a FederationService.
func NewFederationService(opts FederationServiceOptions) (*FederationService, error) {
	if opts.Sessions == nil {
		return nil, errors.New("session service is required")
	}
	if opts.Users == nil {
		return nil, errors.New("user repository is required")
	}
	if opts.Mappings == nil {
		return nil, errors.New("federation repository is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("provider directory is required")
	}
	if opts.VendorVerifier == nil {
		return nil, errors.New("vendor token verifier is required")
	}
	if opts.SecretVerifier == nil {
		return nil, errors.New("secret token verifier is required")
	}
	return &FederationService{
		sessions: opts.Sessions,
		users:    opts.Users,
		mappings: opts.Mappings,
		registry: opts.Registry,
		vendor:   opts.VendorVerifier,
		secret:   opts.SecretVerifier,
		logger:   opts.Logger,
	}, nil
}

// Providers resolves the requested provider origins against the directory.
// Any unresolved origin fails the whole lookup. The returned descriptors
// never carry the shared verification secret.
func (s *FederationService) Providers(origins []string) ([]model.IdentityProvider, error) {
	resolved := make([]model.IdentityProvider, 0, len(origins))
	for _, origin := range origins {
		p, ok := s.registry.ByOrigin(origin)
		if !ok {
			return nil, ErrProviderNotFound
		}
		p.Secret = ""
		resolved = append(resolved, p)
	}
	return resolved, nil
}

// VerifyToken validates a federated identity token against the session-bound
// nonce and reconciles the verified claims into a local account. The nonce is
// consumed first; a replayed token fails with ErrMissingNonce. On success the
// session is committed signed-in as the resolved account.
func (s *FederationService) VerifyToken(ctx context.Context, sess *domainauth.Session, rawToken, origin string) (*FederationResult, error) {
	nonce, err := s.sessions.ConsumeNonce(ctx, sess)
	if err != nil {
		return nil, err
	}

	provider, ok := s.registry.ByOrigin(origin)
	if !ok {
		return nil, ErrProviderNotFound
	}

	verifier := s.secret
	if provider.WellKnownVendor {
		verifier = s.vendor
	}
	claims, err := verifier.Verify(ctx, rawToken, ports.TokenExpectations{
		Issuer:   provider.Issuer,
		Audience: provider.ClientID,
		Nonce:    nonce,
	})
	if err != nil {
		if s.logger != nil {
			s.logger.WarnContext(ctx, "federation token rejected",
				"issuer", provider.Issuer,
				"error", err)
		}
		return nil, ErrTokenVerificationFailed
	}
	if claims.Email == "" {
		return nil, ErrMissingEmailClaim
	}

	user, err := s.reconcileUser(ctx, claims, provider.ClientID)
	if err != nil {
		return nil, err
	}

	result := &FederationResult{User: user}
	existing, err := s.mappings.ListByIssuer(ctx, provider.Issuer, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list federation mappings: %w", err)
	}
	switch {
	case len(existing) == 0:
		mapping := &model.FederationMapping{
			ID:        uuid.NewString(),
			UserID:    user.ID,
			Issuer:    provider.Issuer,
			Subject:   claims.Subject,
			Name:      claims.Name,
			Email:     claims.Email,
			Picture:   claims.Picture,
			Locale:    claims.Locale,
			CreatedAt: time.Now(),
		}
		if err := s.mappings.Create(ctx, mapping); err != nil {
			return nil, fmt.Errorf("create federation mapping: %w", err)
		}
	case len(existing) > 1:
		// Known unresolved condition: no merge policy, report it and move on.
		result.DuplicateMapping = true
		if s.logger != nil {
			s.logger.WarnContext(ctx, "multiple federation mappings for issuer",
				"issuer", provider.Issuer,
				"user_id", user.ID,
				"count", len(existing))
		}
	}

	if err := s.sessions.CommitSignedIn(ctx, sess, user); err != nil {
		return nil, fmt.Errorf("commit sign-in: %w", err)
	}
	return result, nil
}

// Disconnect removes a relying-party client id from the signed-in account's
// approved list. The caller's account hint must match the session's account.
func (s *FederationService) Disconnect(ctx context.Context, sess *domainauth.Session, accountHint, clientID string) error {
	if !sess.SignedIn() {
		return ErrInvalidState
	}
	if accountHint == "" || accountHint != sess.User.ID {
		return ErrAccountMismatch
	}

	user, err := s.users.GetByID(ctx, sess.User.ID)
	if err != nil {
		if errors.Is(err, data.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup account: %w", err)
	}
	if !user.RemoveApprovedClient(clientID) {
		return ErrClientNotApproved
	}
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return s.sessions.RefreshUser(ctx, sess, user)
}

// reconcileUser resolves the verified claims to a local account, creating
// one on first federated login with an unseen email (implicit sign-up). The
// relying-party client id is recorded as approved either way.
func (s *FederationService) reconcileUser(ctx context.Context, claims model.TokenClaims, clientID string) (*model.User, error) {
	user, err := s.users.GetByEmail(ctx, claims.Email)
	switch {
	case err == nil:
		if !user.HasApprovedClient(clientID) {
			user.ApprovedClients = append(user.ApprovedClients, clientID)
			if updateErr := s.users.Update(ctx, user); updateErr != nil {
				return nil, fmt.Errorf("approve client: %w", updateErr)
			}
		}
		return user, nil
	case errors.Is(err, data.ErrUserNotFound):
		display := claims.Name
		if display == "" {
			display = claims.Email
		}
		user = &model.User{
			ID:              uuid.NewString(),
			Username:        claims.Email,
			DisplayName:     display,
			Email:           claims.Email,
			Picture:         claims.Picture,
			ApprovedClients: []string{clientID},
			RegisteredAt:    time.Now(),
		}
		if createErr := s.users.Create(ctx, user); createErr != nil {
			if errors.Is(createErr, data.ErrUsernameExists) {
				// Email doubles as the username; a racing verify created it.
				return s.users.GetByEmail(ctx, claims.Email)
			}
			return nil, fmt.Errorf("create account: %w", createErr)
		}
		return user, nil
	default:
		return nil, fmt.Errorf("lookup account by email: %w", err)
	}
}
