package bootstrap

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/passkey-lab/config"
	oidcadapter "github.com/target/passkey-lab/internal/adapters/oidc"
	"github.com/target/passkey-lab/internal/adapters/providers"
	redisadapter "github.com/target/passkey-lab/internal/adapters/redis"
	"github.com/target/passkey-lab/internal/adapters/tokens"
	webauthnadapter "github.com/target/passkey-lab/internal/adapters/webauthn"
	"github.com/target/passkey-lab/internal/data"
	"github.com/target/passkey-lab/internal/service"
)

// ServiceDeps groups the shared infrastructure the services are built on.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// ServiceContainer holds the constructed application services.
type ServiceContainer struct {
	Sessions    *service.SessionService
	Users       *service.UserService
	Credentials *service.CredentialService
	Federation  *service.FederationService
	Retention   *service.RetentionService

	// ResolveOrigin maps a User-Agent to the expected assertion origin.
	ResolveOrigin func(userAgent string) string
}

// NewServices wires the repositories, adapters and services together.
func NewServices(deps *ServiceDeps) (*ServiceContainer, error) {
	cfg := deps.Config

	store := data.NewDocumentStore(deps.DB)
	users := data.NewUserRepo(store)
	credentials := data.NewCredentialRepo(store)
	mappings := data.NewFederationRepo(store)

	sessionStore := redisadapter.NewSessionStore(deps.RedisClient)
	ledger := redisadapter.NewChallengeLedger(deps.RedisClient)

	sessions, err := service.NewSessionService(service.SessionServiceOptions{
		Sessions:     sessionStore,
		Ledger:       ledger,
		ShortSession: cfg.Session.Short,
		LongSession:  cfg.Session.Long,
	})
	if err != nil {
		return nil, fmt.Errorf("build session service: %w", err)
	}

	androidApps := webauthnadapter.ParseAndroidRegistry(cfg.RelyingParty.AndroidOrigins)
	verifier, err := webauthnadapter.NewVerifier(webauthnadapter.Config{
		RPID:    cfg.RelyingParty.ID,
		RPName:  cfg.RelyingParty.Name,
		Origins: webauthnadapter.AllOrigins(cfg.RelyingParty.Origin, androidApps),
	})
	if err != nil {
		return nil, fmt.Errorf("build credential verifier: %w", err)
	}

	credentialSvc, err := service.NewCredentialService(service.CredentialServiceOptions{
		Sessions:    sessions,
		Users:       users,
		Credentials: credentials,
		Verifier:    verifier,
		Namer:       webauthnadapter.AuthenticatorName,
	})
	if err != nil {
		return nil, fmt.Errorf("build credential service: %w", err)
	}

	directory, err := providers.Parse(cfg.Federation.Providers, cfg.Federation.VendorIssuer)
	if err != nil {
		return nil, fmt.Errorf("parse provider directory: %w", err)
	}

	federationSvc, err := service.NewFederationService(service.FederationServiceOptions{
		Sessions:       sessions,
		Users:          users,
		Mappings:       mappings,
		Registry:       directory,
		VendorVerifier: oidcadapter.NewTokenVerifier(&http.Client{Timeout: 10 * time.Second}),
		SecretVerifier: tokens.NewHS256Verifier(directory.SecretFor),
		Logger:         deps.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build federation service: %w", err)
	}

	userSvc, err := service.NewUserService(service.UserServiceOptions{
		Sessions:    sessions,
		Users:       users,
		Credentials: credentials,
		Mappings:    mappings,
	})
	if err != nil {
		return nil, fmt.Errorf("build user service: %w", err)
	}

	retentionSvc, err := service.NewRetentionService(service.RetentionServiceOptions{
		Users:       users,
		Credentials: credentials,
		Mappings:    mappings,
		Config:      cfg.Retention,
		Logger:      deps.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build retention service: %w", err)
	}

	webOrigin := cfg.RelyingParty.Origin
	resolveOrigin := func(userAgent string) string {
		return webauthnadapter.ResolveExpectedOrigin(userAgent, webOrigin, androidApps)
	}

	return &ServiceContainer{
		Sessions:      sessions,
		Users:         userSvc,
		Credentials:   credentialSvc,
		Federation:    federationSvc,
		Retention:     retentionSvc,
		ResolveOrigin: resolveOrigin,
	}, nil
}
