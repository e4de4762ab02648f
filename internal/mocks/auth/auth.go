// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/target/passkey-lab/internal/data"
	domainauth "github.com/target/passkey-lab/internal/domain/auth"
	"github.com/target/passkey-lab/internal/domain/model"
	"github.com/target/passkey-lab/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.SessionStore         = (*MemorySessionStore)(nil)
	_ ports.ChallengeLedger      = (*MemoryChallengeLedger)(nil)
	_ ports.UserRepository       = (*MemoryUserRepo)(nil)
	_ ports.CredentialRepository = (*MemoryCredentialRepo)(nil)
	_ ports.FederationRepository = (*MemoryFederationRepo)(nil)
	_ ports.CredentialVerifier   = (*FakeCredentialVerifier)(nil)
	_ ports.TokenVerifier        = (*FakeTokenVerifier)(nil)
	_ ports.ProviderDirectory    = (*StaticDirectory)(nil)
)

// MemorySessionStore is an in-memory session store for unit tests.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domainauth.Session
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]domainauth.Session)}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return domainauth.Session{}, ports.ErrSessionNotFound
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// MemoryChallengeLedger is an in-memory challenge/nonce ledger for unit
// tests. Consume removes the value atomically, mirroring the Redis GETDEL
// adapter.
type MemoryChallengeLedger struct {
	mu     sync.Mutex
	values map[string]string
	seq    int
}

// NewMemoryChallengeLedger creates a new in-memory ledger.
func NewMemoryChallengeLedger() *MemoryChallengeLedger {
	return &MemoryChallengeLedger{values: make(map[string]string)}
}

func (m *MemoryChallengeLedger) key(sessionID string, kind ports.ChallengeKind) string {
	return string(kind) + ":" + sessionID
}

func (m *MemoryChallengeLedger) Issue(_ context.Context, sessionID string, kind ports.ChallengeKind) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	value := fmt.Sprintf("%s-%d", kind, m.seq)
	m.values[m.key(sessionID, kind)] = value
	return value, nil
}

func (m *MemoryChallengeLedger) Bind(_ context.Context, sessionID string, kind ports.ChallengeKind, value string) error {
	if value == "" {
		return errors.New("challenge value cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[m.key(sessionID, kind)] = value
	return nil
}

func (m *MemoryChallengeLedger) Consume(_ context.Context, sessionID string, kind ports.ChallengeKind) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := m.key(sessionID, kind)
	value, ok := m.values[key]
	if !ok {
		return "", ports.ErrNoChallenge
	}
	delete(m.values, key)
	return value, nil
}

func (m *MemoryChallengeLedger) Clear(_ context.Context, sessionID string, kind ports.ChallengeKind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, m.key(sessionID, kind))
	return nil
}

// Peek returns the currently bound value without consuming it.
func (m *MemoryChallengeLedger) Peek(sessionID string, kind ports.ChallengeKind) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[m.key(sessionID, kind)]
	return value, ok
}

// MemoryUserRepo is an in-memory user repository for unit tests. It enforces
// the same uniqueness rules as the PostgreSQL repository.
type MemoryUserRepo struct {
	mu    sync.Mutex
	users map[string]model.User
}

// NewMemoryUserRepo creates a new in-memory user repository.
func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{users: make(map[string]model.User)}
}

func (m *MemoryUserRepo) Create(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return data.ErrUsernameExists
		}
		if user.PasskeyUserHandle != "" && u.PasskeyUserHandle == user.PasskeyUserHandle {
			return data.ErrHandleExists
		}
	}
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		copied := u
		return &copied, nil
	}
	return nil, data.ErrUserNotFound
}

func (m *MemoryUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return m.getBy(func(u model.User) bool { return u.Username == username })
}

func (m *MemoryUserRepo) GetByHandle(ctx context.Context, handle string) (*model.User, error) {
	if handle == "" {
		return nil, data.ErrUserNotFound
	}
	return m.getBy(func(u model.User) bool { return u.PasskeyUserHandle == handle })
}

func (m *MemoryUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if email == "" {
		return nil, data.ErrUserNotFound
	}
	return m.getBy(func(u model.User) bool { return u.Email == email })
}

func (m *MemoryUserRepo) getBy(match func(model.User) bool) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			copied := u
			return &copied, nil
		}
	}
	return nil, data.ErrUserNotFound
}

func (m *MemoryUserRepo) Update(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return data.ErrUserNotFound
	}
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryUserRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return data.ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *MemoryUserRepo) ListExpired(_ context.Context, limit int) ([]*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	var expired []*model.User
	for _, u := range m.users {
		if u.ExpiresAt != nil && u.ExpiresAt.Before(now) {
			copied := u
			expired = append(expired, &copied)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].ID < expired[j].ID })
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	return expired, nil
}

// MemoryCredentialRepo is an in-memory credential repository for unit tests.
type MemoryCredentialRepo struct {
	mu    sync.Mutex
	creds map[string]model.PublicKeyCredential
}

// NewMemoryCredentialRepo creates a new in-memory credential repository.
func NewMemoryCredentialRepo() *MemoryCredentialRepo {
	return &MemoryCredentialRepo{creds: make(map[string]model.PublicKeyCredential)}
}

func (m *MemoryCredentialRepo) Save(_ context.Context, cred *model.PublicKeyCredential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds[cred.ID] = *cred
	return nil
}

func (m *MemoryCredentialRepo) GetByID(_ context.Context, id string) (*model.PublicKeyCredential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.creds[id]; ok {
		copied := c
		return &copied, nil
	}
	return nil, data.ErrCredentialNotFound
}

func (m *MemoryCredentialRepo) ListByHandle(_ context.Context, handle string) ([]*model.PublicKeyCredential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PublicKeyCredential
	for _, c := range m.creds {
		if c.UserHandle == handle {
			copied := c
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryCredentialRepo) Update(_ context.Context, cred *model.PublicKeyCredential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.creds[cred.ID]; !ok {
		return data.ErrCredentialNotFound
	}
	m.creds[cred.ID] = *cred
	return nil
}

func (m *MemoryCredentialRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.creds[id]; !ok {
		return data.ErrCredentialNotFound
	}
	delete(m.creds, id)
	return nil
}

func (m *MemoryCredentialRepo) DeleteByHandle(_ context.Context, handle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.creds {
		if c.UserHandle == handle {
			delete(m.creds, id)
		}
	}
	return nil
}

// MemoryFederationRepo is an in-memory federation-mapping repository for
// unit tests.
type MemoryFederationRepo struct {
	mu       sync.Mutex
	mappings map[string]model.FederationMapping
}

// NewMemoryFederationRepo creates a new in-memory federation repository.
func NewMemoryFederationRepo() *MemoryFederationRepo {
	return &MemoryFederationRepo{mappings: make(map[string]model.FederationMapping)}
}

func (m *MemoryFederationRepo) Create(_ context.Context, mapping *model.FederationMapping) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mappings[mapping.ID] = *mapping
	return nil
}

func (m *MemoryFederationRepo) ListByUser(_ context.Context, userID string) ([]*model.FederationMapping, error) {
	return m.list(func(fm model.FederationMapping) bool { return fm.UserID == userID })
}

func (m *MemoryFederationRepo) ListByIssuer(_ context.Context, issuer, userID string) ([]*model.FederationMapping, error) {
	return m.list(func(fm model.FederationMapping) bool { return fm.Issuer == issuer && fm.UserID == userID })
}

func (m *MemoryFederationRepo) list(match func(model.FederationMapping) bool) ([]*model.FederationMapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.FederationMapping
	for _, fm := range m.mappings {
		if match(fm) {
			copied := fm
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryFederationRepo) DeleteByUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, fm := range m.mappings {
		if fm.UserID == userID {
			delete(m.mappings, id)
		}
	}
	return nil
}

// FakeCredentialVerifier simulates the external credential verifier with
// deterministic parameters and overridable verify behavior.
type FakeCredentialVerifier struct {
	CreateRegistrationFunc   func(ctx context.Context, in ports.RegistrationParamsInput) (ports.CeremonyParams, error)
	VerifyRegistrationFunc   func(ctx context.Context, in ports.VerifyRegistrationInput) (*ports.VerifiedRegistration, error)
	CreateAuthenticationFunc func(ctx context.Context, in ports.AuthenticationParamsInput) (ports.CeremonyParams, error)
	VerifyAuthenticationFunc func(ctx context.Context, in ports.VerifyAuthenticationInput) (*ports.VerifiedAuthentication, error)

	// LastRegistrationInput records the most recent params request for
	// exclusion-list assertions.
	LastRegistrationInput ports.RegistrationParamsInput

	seq int
}

func (f *FakeCredentialVerifier) nextChallenge() string {
	f.seq++
	return fmt.Sprintf("challenge-%d", f.seq)
}

func (f *FakeCredentialVerifier) CreateRegistrationParams(ctx context.Context, in ports.RegistrationParamsInput) (ports.CeremonyParams, error) {
	f.LastRegistrationInput = in
	if f.CreateRegistrationFunc != nil {
		return f.CreateRegistrationFunc(ctx, in)
	}
	challenge := f.nextChallenge()
	options, _ := json.Marshal(map[string]any{"challenge": challenge, "user": in.User.Name})
	return ports.CeremonyParams{Options: options, Challenge: challenge}, nil
}

func (f *FakeCredentialVerifier) VerifyRegistration(ctx context.Context, in ports.VerifyRegistrationInput) (*ports.VerifiedRegistration, error) {
	if f.VerifyRegistrationFunc != nil {
		return f.VerifyRegistrationFunc(ctx, in)
	}
	return &ports.VerifiedRegistration{
		CredentialID: "cred-" + in.UserHandle,
		PublicKey:    []byte("pk"),
		UserVerified: true,
	}, nil
}

func (f *FakeCredentialVerifier) CreateAuthenticationParams(ctx context.Context, in ports.AuthenticationParamsInput) (ports.CeremonyParams, error) {
	if f.CreateAuthenticationFunc != nil {
		return f.CreateAuthenticationFunc(ctx, in)
	}
	challenge := f.nextChallenge()
	options, _ := json.Marshal(map[string]any{"challenge": challenge})
	return ports.CeremonyParams{Options: options, Challenge: challenge}, nil
}

func (f *FakeCredentialVerifier) VerifyAuthentication(ctx context.Context, in ports.VerifyAuthenticationInput) (*ports.VerifiedAuthentication, error) {
	if f.VerifyAuthenticationFunc != nil {
		return f.VerifyAuthenticationFunc(ctx, in)
	}
	return &ports.VerifiedAuthentication{SignCount: in.Credential.SignCount + 1, UserVerified: true}, nil
}

// FakeTokenVerifier simulates an identity-token verifier. By default it
// treats the raw token as a JSON claims document and checks the nonce claim
// against expectations.
type FakeTokenVerifier struct {
	VerifyFunc func(ctx context.Context, rawToken string, expect ports.TokenExpectations) (model.TokenClaims, error)
}

func (f *FakeTokenVerifier) Verify(ctx context.Context, rawToken string, expect ports.TokenExpectations) (model.TokenClaims, error) {
	if f.VerifyFunc != nil {
		return f.VerifyFunc(ctx, rawToken, expect)
	}
	var payload struct {
		model.TokenClaims
		Nonce string `json:"nonce"`
	}
	if err := json.Unmarshal([]byte(rawToken), &payload); err != nil {
		return model.TokenClaims{}, fmt.Errorf("parse token: %w", err)
	}
	if expect.Nonce != "" && payload.Nonce != expect.Nonce {
		return model.TokenClaims{}, errors.New("nonce mismatch")
	}
	if expect.Issuer != "" && payload.Issuer != expect.Issuer {
		return model.TokenClaims{}, errors.New("issuer mismatch")
	}
	return payload.TokenClaims, nil
}

// StaticDirectory is a fixed provider directory for unit tests.
type StaticDirectory struct {
	Providers []model.IdentityProvider
}

func (d *StaticDirectory) ByOrigin(origin string) (model.IdentityProvider, bool) {
	for _, p := range d.Providers {
		if p.Origin == origin {
			return p, true
		}
	}
	return model.IdentityProvider{}, false
}

func (d *StaticDirectory) ByIssuer(issuer string) (model.IdentityProvider, bool) {
	for _, p := range d.Providers {
		if p.Issuer == issuer {
			return p, true
		}
	}
	return model.IdentityProvider{}, false
}
