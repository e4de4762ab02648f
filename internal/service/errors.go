package service

import "errors"

// Service-level sentinel errors. The HTTP layer maps these onto the JSON
// error codes and status codes of the API contract.
var (
	// ErrInvalidIdentifier is returned for a username that fails the allowed
	// identifier pattern.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrInvalidState is returned when an operation is invoked outside the
	// expected phase of a flow.
	ErrInvalidState = errors.New("invalid session state for this operation")

	// ErrMissingChallenge is returned when a ceremony response arrives with
	// no challenge bound to the session.
	ErrMissingChallenge = errors.New("no ceremony challenge bound to session")

	// ErrMissingNonce is returned when a federation token arrives with no
	// nonce bound to the session.
	ErrMissingNonce = errors.New("no federation nonce bound to session")

	// ErrCredentialVerificationFailed covers any cryptographic rejection by
	// the external verifier. Deliberately generic: callers never learn which
	// part of the check failed.
	ErrCredentialVerificationFailed = errors.New("credential verification failed")

	// ErrTokenVerificationFailed covers identity-token rejections.
	ErrTokenVerificationFailed = errors.New("identity token verification failed")

	// ErrCredentialNotFound is returned when the asserted credential id is
	// unknown.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrNoCredentialsRegistered is returned when a re-authentication request
	// finds no credentials for the signed-in account.
	ErrNoCredentialsRegistered = errors.New("no credentials registered for account")

	// ErrAccountMismatch is returned when an operation targets a credential
	// or account other than the session's own.
	ErrAccountMismatch = errors.New("credential belongs to a different account")

	// ErrUserNotFound is returned when a referenced user cannot be resolved.
	ErrUserNotFound = errors.New("user not found")

	// ErrPasswordMismatch is returned on a failed mock password comparison.
	ErrPasswordMismatch = errors.New("password does not match")

	// ErrProviderNotFound is returned for an origin absent from the identity
	// provider directory.
	ErrProviderNotFound = errors.New("identity provider not found")

	// ErrMissingEmailClaim is returned when a verified token carries no email.
	ErrMissingEmailClaim = errors.New("verified token carries no email claim")

	// ErrClientNotApproved is returned when disconnecting a client id the
	// user never approved.
	ErrClientNotApproved = errors.New("client id not in approved list")
)
