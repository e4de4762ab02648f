// Package tokens verifies identity tokens from directory-listed providers
// that sign with a shared secret rather than published keys.
package tokens

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/target/passkey-lab/internal/domain/model"
	"github.com/target/passkey-lab/internal/ports"
)

// ErrNonceMismatch is returned when the token's nonce claim does not match
// the session-bound value.
var ErrNonceMismatch = errors.New("token nonce does not match session nonce")

// ErrUnknownIssuer is returned when no shared secret is registered for the
// asserting issuer.
var ErrUnknownIssuer = errors.New("no shared secret for issuer")

// SecretSource resolves the shared verification secret for an issuer.
type SecretSource func(issuer string) (string, bool)

// HS256Verifier implements ports.TokenVerifier for HMAC-signed provider
// tokens. The provider directory supplies per-issuer secrets.
type HS256Verifier struct {
	secrets SecretSource
}

// NewHS256Verifier creates a verifier backed by the given secret source.
func NewHS256Verifier(secrets SecretSource) *HS256Verifier {
	return &HS256Verifier{secrets: secrets}
}

type idTokenClaims struct {
	jwt.RegisteredClaims
	Nonce   string `json:"nonce,omitempty"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	Locale  string `json:"locale,omitempty"`
}

// Verify validates signature, issuer, audience and nonce.
func (v *HS256Verifier) Verify(_ context.Context, rawToken string, expect ports.TokenExpectations) (model.TokenClaims, error) {
	if rawToken == "" {
		return model.TokenClaims{}, errors.New("token is required")
	}

	secret, ok := v.secrets(expect.Issuer)
	if !ok {
		return model.TokenClaims{}, fmt.Errorf("%w: %s", ErrUnknownIssuer, expect.Issuer)
	}

	parseOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(expect.Issuer),
		jwt.WithExpirationRequired(),
	}
	if expect.Audience != "" {
		parseOpts = append(parseOpts, jwt.WithAudience(expect.Audience))
	}

	var claims idTokenClaims
	if _, err := jwt.ParseWithClaims(rawToken, &claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, parseOpts...); err != nil {
		return model.TokenClaims{}, fmt.Errorf("parse id token: %w", err)
	}

	if expect.Nonce != "" && claims.Nonce != expect.Nonce {
		return model.TokenClaims{}, ErrNonceMismatch
	}

	return model.TokenClaims{
		Issuer:  claims.Issuer,
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
		Locale:  claims.Locale,
	}, nil
}
