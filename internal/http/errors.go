package httpx

import (
	"errors"
	"net/http"

	"github.com/target/passkey-lab/internal/service"
)

// WriteServiceError maps a service-layer sentinel onto the API's error
// contract. Unrecognized errors become a generic 500; the underlying message
// is never sent to the client for that class.
func WriteServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidIdentifier):
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_identifier", Err: err})
	case errors.Is(err, service.ErrUsernameTaken):
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_identifier", Err: err})
	case errors.Is(err, service.ErrInvalidPassword):
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_identifier", Err: err})
	case errors.Is(err, service.ErrInvalidState):
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_state", Err: err})
	case errors.Is(err, service.ErrMissingChallenge):
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "missing_challenge", Err: err})
	case errors.Is(err, service.ErrMissingNonce):
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "missing_nonce", Err: err})
	case errors.Is(err, service.ErrCredentialVerificationFailed):
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "credential_verification_failed", Err: err})
	case errors.Is(err, service.ErrTokenVerificationFailed):
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "credential_verification_failed", Err: err})
	case errors.Is(err, service.ErrPasswordMismatch):
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "credential_verification_failed", Err: err})
	case errors.Is(err, service.ErrCredentialNotFound):
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "credential_not_found", Err: err})
	case errors.Is(err, service.ErrNoCredentialsRegistered):
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "no_credentials_registered", Err: err})
	case errors.Is(err, service.ErrAccountMismatch):
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "account_mismatch", Err: err})
	case errors.Is(err, service.ErrUserNotFound):
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "user_not_found", Err: err})
	case errors.Is(err, service.ErrProviderNotFound):
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "provider_not_found", Err: err})
	case errors.Is(err, service.ErrMissingEmailClaim):
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "missing_email_claim", Err: err})
	case errors.Is(err, service.ErrClientNotApproved):
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_state", Err: err})
	default:
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "internal_error", Err: errors.New("internal server error")})
	}
}
