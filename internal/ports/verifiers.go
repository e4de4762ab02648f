package ports

import (
	"context"
	"encoding/json"

	"github.com/target/passkey-lab/internal/domain/model"
)

// CeremonyUser is the account view exposed to a registration ceremony.
type CeremonyUser struct {
	Handle      string
	Name        string
	DisplayName string
}

// RegistrationParamsInput carries inputs for proposing registration parameters.
type RegistrationParamsInput struct {
	User CeremonyUser

	// Exclusions lists credential ids already registered for the acting
	// handle so the same authenticator cannot enroll twice.
	Exclusions []*model.PublicKeyCredential
}

// CeremonyParams is the opaque parameter document returned to the browser,
// plus the challenge the verifier embedded in it.
type CeremonyParams struct {
	Options   json.RawMessage
	Challenge string
}

// VerifyRegistrationInput carries a client attestation response together with
// the expected bindings.
type VerifyRegistrationInput struct {
	Response   json.RawMessage
	Challenge  string
	Origin     string
	UserHandle string
}

// VerifiedRegistration is the verifier's view of a successfully attested
// credential.
type VerifiedRegistration struct {
	CredentialID    string
	PublicKey       []byte
	AttestationType string
	AAGUID          string
	Transports      []string
	UserVerified    bool
	BackupEligible  bool
	BackedUp        bool
	SignCount       uint32
}

// AuthenticationParamsInput carries inputs for proposing authentication
// parameters. An empty allow list invites any discoverable credential.
type AuthenticationParamsInput struct {
	AllowList []*model.PublicKeyCredential
}

// VerifyAuthenticationInput carries a client assertion response together with
// the stored credential it claims to exercise.
type VerifyAuthenticationInput struct {
	Response   json.RawMessage
	Challenge  string
	Origin     string
	Credential *model.PublicKeyCredential
}

// VerifiedAuthentication is the verifier's result for a valid assertion.
type VerifiedAuthentication struct {
	SignCount    uint32
	UserVerified bool
}

// CredentialVerifier performs the cryptographic half of public-key credential
// ceremonies. Implementations are opaque to the orchestrator.
type CredentialVerifier interface {
	CreateRegistrationParams(ctx context.Context, in RegistrationParamsInput) (CeremonyParams, error)
	VerifyRegistration(ctx context.Context, in VerifyRegistrationInput) (*VerifiedRegistration, error)
	CreateAuthenticationParams(ctx context.Context, in AuthenticationParamsInput) (CeremonyParams, error)
	VerifyAuthentication(ctx context.Context, in VerifyAuthenticationInput) (*VerifiedAuthentication, error)
}

// TokenExpectations binds a federated identity token to its issuance context.
type TokenExpectations struct {
	Issuer   string
	Audience string
	Nonce    string
}

// TokenVerifier validates a federated identity token's signature and claims.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string, expect TokenExpectations) (model.TokenClaims, error)
}

// ProviderDirectory resolves trusted identity providers.
type ProviderDirectory interface {
	ByOrigin(origin string) (model.IdentityProvider, bool)
	ByIssuer(issuer string) (model.IdentityProvider, bool)
}
