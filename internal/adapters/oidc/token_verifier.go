package oidc

// Package oidc verifies federated identity tokens issued by well-known
// vendors through their published OIDC discovery documents and signing keys.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/target/passkey-lab/internal/domain/model"
	"github.com/target/passkey-lab/internal/ports"
	"golang.org/x/oauth2"
)

// ErrNonceMismatch is returned when the token's nonce does not match the
// session-bound value.
var ErrNonceMismatch = errors.New("token nonce does not match session nonce")

// TokenVerifier implements ports.TokenVerifier using go-oidc's remote keyset
// verification. Discovery documents are fetched once per issuer and cached.
type TokenVerifier struct {
	httpClient *http.Client

	mu        sync.Mutex
	providers map[string]*gooidc.Provider
}

// NewTokenVerifier creates a verifier. httpClient is optional and defaults
// to a client with a 30 second timeout.
func NewTokenVerifier(httpClient *http.Client) *TokenVerifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &TokenVerifier{
		httpClient: httpClient,
		providers:  make(map[string]*gooidc.Provider),
	}
}

// Verify validates the token's signature against the issuer's published keys
// and checks audience and nonce bindings.
func (v *TokenVerifier) Verify(ctx context.Context, rawToken string, expect ports.TokenExpectations) (model.TokenClaims, error) {
	if rawToken == "" {
		return model.TokenClaims{}, errors.New("token is required")
	}
	if expect.Issuer == "" {
		return model.TokenClaims{}, errors.New("expected issuer is required")
	}

	provider, err := v.provider(ctx, expect.Issuer)
	if err != nil {
		return model.TokenClaims{}, err
	}

	verifier := provider.Verifier(&gooidc.Config{ClientID: expect.Audience})
	idToken, err := verifier.Verify(ctx, rawToken)
	if err != nil {
		return model.TokenClaims{}, fmt.Errorf("verify id token: %w", err)
	}

	if expect.Nonce != "" && idToken.Nonce != expect.Nonce {
		return model.TokenClaims{}, ErrNonceMismatch
	}

	var claims struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
		Locale  string `json:"locale"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return model.TokenClaims{}, fmt.Errorf("decode claims: %w", err)
	}

	return model.TokenClaims{
		Issuer:  idToken.Issuer,
		Subject: idToken.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Picture: claims.Picture,
		Locale:  claims.Locale,
	}, nil
}

// provider returns the cached discovery document for issuer, fetching it on
// first use.
func (v *TokenVerifier) provider(ctx context.Context, issuer string) (*gooidc.Provider, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if p, ok := v.providers[issuer]; ok {
		return p, nil
	}

	// Route discovery through the injected HTTP client.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, v.httpClient)
	p, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery for %s: %w", issuer, err)
	}
	v.providers[issuer] = p
	return p, nil
}
