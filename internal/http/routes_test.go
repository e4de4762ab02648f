package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/passkey-lab/internal/domain/model"
	mocksauth "github.com/target/passkey-lab/internal/mocks/auth"
	"github.com/target/passkey-lab/internal/service"
)

type routerFixture struct {
	handler http.Handler
	users   *mocksauth.MemoryUserRepo
	creds   *mocksauth.MemoryCredentialRepo
	cookies []*http.Cookie
}

func newRouter(t *testing.T) *routerFixture {
	t.Helper()

	sessions, err := service.NewSessionService(service.SessionServiceOptions{
		Sessions:     mocksauth.NewMemorySessionStore(),
		Ledger:       mocksauth.NewMemoryChallengeLedger(),
		ShortSession: 3 * time.Minute,
		LongSession:  24 * time.Hour,
	})
	require.NoError(t, err)

	users := mocksauth.NewMemoryUserRepo()
	creds := mocksauth.NewMemoryCredentialRepo()
	mappings := mocksauth.NewMemoryFederationRepo()

	userSvc, err := service.NewUserService(service.UserServiceOptions{
		Sessions:    sessions,
		Users:       users,
		Credentials: creds,
		Mappings:    mappings,
	})
	require.NoError(t, err)

	credSvc, err := service.NewCredentialService(service.CredentialServiceOptions{
		Sessions:    sessions,
		Users:       users,
		Credentials: creds,
		Verifier:    &mocksauth.FakeCredentialVerifier{},
	})
	require.NoError(t, err)

	fedSvc, err := service.NewFederationService(service.FederationServiceOptions{
		Sessions: sessions,
		Users:    users,
		Mappings: mappings,
		Registry: &mocksauth.StaticDirectory{Providers: []model.IdentityProvider{
			{Origin: "https://idp.example", Issuer: "https://idp.example", ClientID: "demo-rp"},
		}},
		VendorVerifier: &mocksauth.FakeTokenVerifier{},
		SecretVerifier: &mocksauth.FakeTokenVerifier{},
	})
	require.NoError(t, err)

	handler := NewRouter(RouterServices{
		Sessions:      sessions,
		Users:         userSvc,
		Credentials:   credSvc,
		Federation:    fedSvc,
		ResolveOrigin: func(string) string { return "https://example.com" },
		Cookie:        CookieParams{Name: "sid", MaxAge: 24 * time.Hour},
	})

	return &routerFixture{handler: handler, users: users, creds: creds}
}

// do issues a request carrying the fixture's cookie jar and the same-origin
// marker, then absorbs any Set-Cookie headers, mimicking a browser tab.
func (f *routerFixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(SameOriginMarkerHeader, "XMLHttpRequest")
	for _, c := range f.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if set := rec.Result().Cookies(); len(set) > 0 {
		f.cookies = set
	}
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRouter_PasswordSignUpFlow(t *testing.T) {
	t.Parallel()
	f := newRouter(t)

	rec := f.do(t, http.MethodGet, "/auth/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "signed-out", body["status"])
	assert.Equal(t, false, body["authenticated"])

	rec = f.do(t, http.MethodPost, "/auth/new-user", `{"username":"alice"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/auth/password", `{"password":"hunter2"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, "alice", body["username"])
	assert.NotContains(t, rec.Body.String(), "hunter2")

	rec = f.do(t, http.MethodGet, "/auth/status", "")
	body = decodeBody(t, rec)
	assert.Equal(t, "recently-signed-in", body["status"])
	assert.Equal(t, true, body["authenticated"])
}

func TestRouter_PasswordSignInRejectsWrongPassword(t *testing.T) {
	t.Parallel()
	f := newRouter(t)
	require.NoError(t, f.users.Create(context.Background(), &model.User{ID: "u1", Username: "alice", Password: "hunter2"}))

	rec := f.do(t, http.MethodPost, "/auth/username", `{"username":"alice"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["exists"])

	rec = f.do(t, http.MethodPost, "/auth/password", `{"password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "credential_verification_failed")
}

func TestRouter_PasskeySignUpFlow(t *testing.T) {
	t.Parallel()
	f := newRouter(t)

	rec := f.do(t, http.MethodPost, "/auth/new-user", `{"username":"alice"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/auth/register-request", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "challenge")

	rec = f.do(t, http.MethodPost, "/auth/register-response", `{"id":"x"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/auth/keys", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var keys struct {
		Keys []map[string]any `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &keys))
	require.Len(t, keys.Keys, 1)
	assert.NotContains(t, rec.Body.String(), "public_key")

	rec = f.do(t, http.MethodGet, "/auth/status", "")
	body := decodeBody(t, rec)
	assert.Equal(t, "recently-signed-in", body["status"])
}

func TestRouter_MarkerRequiredOnMutations(t *testing.T) {
	t.Parallel()
	f := newRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/username", strings.NewReader(`{"username":"alice"}`))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_access")
}

func TestRouter_FlowGateRejectsIdleSession(t *testing.T) {
	t.Parallel()
	f := newRouter(t)

	rec := f.do(t, http.MethodPost, "/auth/password", `{"password":"hunter2"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_state")
}

func TestRouter_SignedInGateRejectsAnonymous(t *testing.T) {
	t.Parallel()
	f := newRouter(t)

	rec := f.do(t, http.MethodGet, "/auth/keys", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_signed_in")
}

func TestRouter_InvalidJSON(t *testing.T) {
	t.Parallel()
	f := newRouter(t)

	rec := f.do(t, http.MethodPost, "/auth/username", `{"username":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_json")
}

func TestRouter_FederationProvidersAndVerify(t *testing.T) {
	t.Parallel()
	f := newRouter(t)

	rec := f.do(t, http.MethodPost, "/federation/providers", `{"origins":["https://idp.example"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	nonce, _ := body["nonce"].(string)
	require.NotEmpty(t, nonce)
	assert.NotContains(t, rec.Body.String(), "shared-secret")

	token := `{"iss":"https://idp.example","sub":"s1","email":"alice@example.com","nonce":"` + nonce + `"}`
	payload, err := json.Marshal(map[string]string{"token": token, "origin": "https://idp.example"})
	require.NoError(t, err)

	rec = f.do(t, http.MethodPost, "/federation/verify", string(payload))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/auth/status", "")
	assert.Equal(t, "recently-signed-in", decodeBody(t, rec)["status"])
}

func TestRouter_SignOut(t *testing.T) {
	t.Parallel()
	f := newRouter(t)

	rec := f.do(t, http.MethodPost, "/auth/new-user", `{"username":"alice"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodPost, "/auth/password", `{"password":"x"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/auth/signout", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/auth/status", "")
	assert.Equal(t, "signed-out", decodeBody(t, rec)["status"])
}

func TestRouter_Healthz(t *testing.T) {
	t.Parallel()
	f := newRouter(t)

	rec := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouter_PageRedirects(t *testing.T) {
	t.Parallel()
	f := newRouter(t)

	// Anonymous visitor cannot reach /home.
	rec := f.do(t, http.MethodGet, "/home", "")
	assert.Equal(t, http.StatusFound, rec.Code)

	// Sign in, then /signin bounces home.
	rec = f.do(t, http.MethodPost, "/auth/new-user", `{"username":"alice"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(t, http.MethodPost, "/auth/password", `{"password":"x"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/signin", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/home", rec.Header().Get("Location"))

	rec = f.do(t, http.MethodGet, "/home", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
