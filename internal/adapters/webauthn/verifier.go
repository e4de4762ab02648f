// Package webauthn adapts the go-webauthn library to the credential-verifier
// port. The orchestrator treats this package as an opaque cryptographic
// collaborator: parameters in, verified credential out.
package webauthn

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
	"github.com/target/passkey-lab/internal/domain/model"
	"github.com/target/passkey-lab/internal/ports"
)

// ErrOriginMismatch is returned when a response's client origin does not
// match the expected origin resolved for the request.
var ErrOriginMismatch = errors.New("response origin does not match expected origin")

// Config holds relying-party settings for the verifier.
type Config struct {
	RPID    string
	RPName  string
	Origins []string
	Timeout time.Duration
}

// Verifier implements ports.CredentialVerifier over go-webauthn.
type Verifier struct {
	wa *webauthn.WebAuthn
}

// NewVerifier creates a verifier for the given relying party. The ceremony
// policy asks authenticators for a discoverable, user-verifying platform
// credential.
func NewVerifier(cfg Config) (*Verifier, error) {
	if cfg.RPID == "" {
		return nil, errors.New("relying party id is required")
	}
	if len(cfg.Origins) == 0 {
		return nil, errors.New("at least one origin is required")
	}
	if cfg.RPName == "" {
		cfg.RPName = cfg.RPID
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}

	wa, err := webauthn.New(&webauthn.Config{
		RPID:          cfg.RPID,
		RPDisplayName: cfg.RPName,
		RPOrigins:     cfg.Origins,
		AuthenticatorSelection: protocol.AuthenticatorSelection{
			AuthenticatorAttachment: protocol.Platform,
			ResidentKey:             protocol.ResidentKeyRequirementRequired,
			UserVerification:        protocol.VerificationRequired,
		},
		AttestationPreference: protocol.PreferNoAttestation,
		Timeouts: webauthn.TimeoutsConfig{
			Login:        webauthn.TimeoutConfig{Enforce: true, Timeout: timeout, TimeoutUVD: timeout},
			Registration: webauthn.TimeoutConfig{Enforce: true, Timeout: timeout, TimeoutUVD: timeout},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create webauthn instance: %w", err)
	}
	return &Verifier{wa: wa}, nil
}

// CreateRegistrationParams proposes creation options for a new credential,
// excluding authenticators the handle already registered.
func (v *Verifier) CreateRegistrationParams(_ context.Context, in ports.RegistrationParamsInput) (ports.CeremonyParams, error) {
	user := &ceremonyUser{
		handle:      []byte(in.User.Handle),
		name:        in.User.Name,
		displayName: in.User.DisplayName,
	}

	exclusions := make([]protocol.CredentialDescriptor, 0, len(in.Exclusions))
	for _, cred := range in.Exclusions {
		id, err := decodeCredentialID(cred.ID)
		if err != nil {
			return ports.CeremonyParams{}, err
		}
		exclusions = append(exclusions, protocol.CredentialDescriptor{
			Type:         protocol.PublicKeyCredentialType,
			CredentialID: id,
			Transport:    toTransports(cred.Transports),
		})
	}

	options, session, err := v.wa.BeginRegistration(user, webauthn.WithExclusions(exclusions))
	if err != nil {
		return ports.CeremonyParams{}, fmt.Errorf("begin registration: %w", err)
	}
	return marshalParams(options, session.Challenge)
}

// VerifyRegistration validates a client attestation response against the
// expected challenge, origin and user handle.
func (v *Verifier) VerifyRegistration(_ context.Context, in ports.VerifyRegistrationInput) (*ports.VerifiedRegistration, error) {
	parsed, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(in.Response))
	if err != nil {
		return nil, fmt.Errorf("parse registration response: %w", err)
	}
	if in.Origin != "" && parsed.Response.CollectedClientData.Origin != in.Origin {
		return nil, ErrOriginMismatch
	}

	user := &ceremonyUser{handle: []byte(in.UserHandle)}
	session := webauthn.SessionData{
		Challenge:        in.Challenge,
		UserID:           user.handle,
		UserVerification: protocol.VerificationRequired,
	}

	cred, err := v.wa.CreateCredential(user, session, parsed)
	if err != nil {
		return nil, fmt.Errorf("verify registration: %w", err)
	}

	return &ports.VerifiedRegistration{
		CredentialID:    encodeCredentialID(cred.ID),
		PublicKey:       cred.PublicKey,
		AttestationType: cred.AttestationType,
		AAGUID:          encodeAAGUID(cred.Authenticator.AAGUID),
		Transports:      fromTransports(cred.Transport),
		UserVerified:    cred.Flags.UserVerified,
		BackupEligible:  cred.Flags.BackupEligible,
		BackedUp:        cred.Flags.BackupState,
		SignCount:       cred.Authenticator.SignCount,
	}, nil
}

// CreateAuthenticationParams proposes assertion options. An empty allow list
// produces a discoverable-credential request so the authenticator may offer
// any passkey for this relying party.
func (v *Verifier) CreateAuthenticationParams(_ context.Context, in ports.AuthenticationParamsInput) (ports.CeremonyParams, error) {
	if len(in.AllowList) == 0 {
		options, session, err := v.wa.BeginDiscoverableLogin()
		if err != nil {
			return ports.CeremonyParams{}, fmt.Errorf("begin discoverable login: %w", err)
		}
		return marshalParams(options, session.Challenge)
	}

	user, err := ceremonyUserFromCredentials(in.AllowList)
	if err != nil {
		return ports.CeremonyParams{}, err
	}
	options, session, err := v.wa.BeginLogin(user)
	if err != nil {
		return ports.CeremonyParams{}, fmt.Errorf("begin login: %w", err)
	}
	return marshalParams(options, session.Challenge)
}

// VerifyAuthentication validates a client assertion against the stored
// credential's public key and the expected bindings.
func (v *Verifier) VerifyAuthentication(_ context.Context, in ports.VerifyAuthenticationInput) (*ports.VerifiedAuthentication, error) {
	if in.Credential == nil {
		return nil, errors.New("stored credential is required")
	}

	parsed, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(in.Response))
	if err != nil {
		return nil, fmt.Errorf("parse authentication response: %w", err)
	}
	if in.Origin != "" && parsed.Response.CollectedClientData.Origin != in.Origin {
		return nil, ErrOriginMismatch
	}

	user, err := ceremonyUserFromCredentials([]*model.PublicKeyCredential{in.Credential})
	if err != nil {
		return nil, err
	}
	session := webauthn.SessionData{
		Challenge:        in.Challenge,
		UserID:           user.handle,
		UserVerification: protocol.VerificationRequired,
	}

	cred, err := v.wa.ValidateLogin(user, session, parsed)
	if err != nil {
		return nil, fmt.Errorf("verify authentication: %w", err)
	}

	return &ports.VerifiedAuthentication{
		SignCount:    cred.Authenticator.SignCount,
		UserVerified: cred.Flags.UserVerified,
	}, nil
}

// ceremonyUser satisfies webauthn.User for the duration of one ceremony.
type ceremonyUser struct {
	handle      []byte
	name        string
	displayName string
	credentials []webauthn.Credential
}

func (u *ceremonyUser) WebAuthnID() []byte                         { return u.handle }
func (u *ceremonyUser) WebAuthnName() string                       { return u.name }
func (u *ceremonyUser) WebAuthnDisplayName() string                { return u.displayName }
func (u *ceremonyUser) WebAuthnCredentials() []webauthn.Credential { return u.credentials }

func ceremonyUserFromCredentials(creds []*model.PublicKeyCredential) (*ceremonyUser, error) {
	if len(creds) == 0 {
		return nil, errors.New("at least one credential is required")
	}
	user := &ceremonyUser{handle: []byte(creds[0].UserHandle)}
	for _, cred := range creds {
		converted, err := toLibraryCredential(cred)
		if err != nil {
			return nil, err
		}
		user.credentials = append(user.credentials, converted)
	}
	return user, nil
}

func toLibraryCredential(cred *model.PublicKeyCredential) (webauthn.Credential, error) {
	id, err := decodeCredentialID(cred.ID)
	if err != nil {
		return webauthn.Credential{}, err
	}
	out := webauthn.Credential{
		ID:              id,
		PublicKey:       cred.PublicKey,
		AttestationType: cred.AttestationType,
		Transport:       toTransports(cred.Transports),
		Flags: webauthn.CredentialFlags{
			UserPresent:    true,
			UserVerified:   cred.UserVerified,
			BackupEligible: cred.BackupEligible,
			BackupState:    cred.BackedUp,
		},
	}
	out.Authenticator.SignCount = cred.SignCount
	if cred.AAGUID != "" {
		if parsed, parseErr := uuid.Parse(cred.AAGUID); parseErr == nil {
			out.Authenticator.AAGUID = parsed[:]
		}
	}
	return out, nil
}

func marshalParams(options any, challenge string) (ports.CeremonyParams, error) {
	raw, err := json.Marshal(options)
	if err != nil {
		return ports.CeremonyParams{}, fmt.Errorf("marshal ceremony options: %w", err)
	}
	return ports.CeremonyParams{Options: raw, Challenge: challenge}, nil
}

func decodeCredentialID(id string) ([]byte, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(id)
	if err != nil {
		return nil, fmt.Errorf("decode credential id: %w", err)
	}
	return decoded, nil
}

func encodeCredentialID(id []byte) string {
	return base64.RawURLEncoding.EncodeToString(id)
}

func encodeAAGUID(raw []byte) string {
	parsed, err := uuid.FromBytes(raw)
	if err != nil {
		return ""
	}
	if parsed == uuid.Nil {
		return ""
	}
	return parsed.String()
}
