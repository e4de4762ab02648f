package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	// ErrUserNotFound is returned when a user record does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameExists is returned when creating a user with a taken username.
	ErrUsernameExists = errors.New("username already exists")
	// ErrHandleExists is returned when a passkey user handle collides.
	ErrHandleExists = errors.New("passkey user handle already exists")

	// ErrCredentialNotFound is returned when a credential record does not exist.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrMappingNotFound is returned when a federation mapping does not exist.
	ErrMappingNotFound = errors.New("federation mapping not found")

	// ErrUnknownCollection guards the collection allowlist in the document store.
	ErrUnknownCollection = errors.New("unknown collection")
	// ErrDocNotFound is the generic missing-document sentinel.
	ErrDocNotFound = errors.New("document not found")
)
