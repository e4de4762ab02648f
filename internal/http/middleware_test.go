package httpx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mocksauth "github.com/target/passkey-lab/internal/mocks/auth"
	"github.com/target/passkey-lab/internal/service"
)

func newMiddlewareSessions(t *testing.T) *service.SessionService {
	t.Helper()
	svc, err := service.NewSessionService(service.SessionServiceOptions{
		Sessions:     mocksauth.NewMemorySessionStore(),
		Ledger:       mocksauth.NewMemoryChallengeLedger(),
		ShortSession: 3 * time.Minute,
		LongSession:  24 * time.Hour,
	})
	require.NoError(t, err)
	return svc
}

func TestSession_StartsFreshSessionAndSetsCookie(t *testing.T) {
	t.Parallel()
	sessions := newMiddlewareSessions(t)
	cookie := CookieParams{Name: "sid", MaxAge: 24 * time.Hour}

	handler := Session(sessions, cookie)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := GetSessionFromContext(r.Context())
		require.NotNil(t, sess)
		assert.NotEmpty(t, sess.ID)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	assert.False(t, cookies[0].Secure, "plain HTTP request gets a non-secure cookie")
}

func TestSession_ReusesExistingSession(t *testing.T) {
	t.Parallel()
	sessions := newMiddlewareSessions(t)
	cookie := CookieParams{Name: "sid", MaxAge: 24 * time.Hour}

	existing, err := sessions.Start(context.Background())
	require.NoError(t, err)

	handler := Session(sessions, cookie)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := GetSessionFromContext(r.Context())
		require.NotNil(t, sess)
		assert.Equal(t, existing.ID, sess.ID)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: existing.ID})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Result().Cookies(), "no new cookie for a known session")
}

func TestSession_UnknownTokenGetsFreshSession(t *testing.T) {
	t.Parallel()
	sessions := newMiddlewareSessions(t)
	cookie := CookieParams{Name: "sid", MaxAge: 24 * time.Hour}

	handler := Session(sessions, cookie)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := GetSessionFromContext(r.Context())
		require.NotNil(t, sess)
		assert.NotEqual(t, "stale-token", sess.ID)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "stale-token"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestRequireSameOriginMarker(t *testing.T) {
	t.Parallel()

	handler := RequireSameOriginMarker()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name     string
		header   string
		wantCode int
	}{
		{"missing header", "", http.StatusBadRequest},
		{"wrong value", "fetch", http.StatusBadRequest},
		{"exact value", "XMLHttpRequest", http.StatusOK},
		{"case-insensitive value", "xmlhttprequest", http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, "/auth/x", nil)
			if tc.header != "" {
				req.Header.Set(SameOriginMarkerHeader, tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tc.wantCode, rec.Code)
			if tc.wantCode == http.StatusBadRequest {
				assert.Contains(t, rec.Body.String(), "invalid_access")
			}
		})
	}
}

func TestSetAndClearSessionCookie(t *testing.T) {
	t.Parallel()
	cookie := CookieParams{Name: "sid", Domain: "example.com", MaxAge: time.Hour}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rec := httptest.NewRecorder()
	SetSessionCookie(rec, req, cookie, "tok")

	set := rec.Result().Cookies()
	require.Len(t, set, 1)
	assert.Equal(t, "tok", set[0].Value)
	assert.True(t, set[0].Secure, "forwarded HTTPS must yield a secure cookie")
	assert.Equal(t, 3600, set[0].MaxAge)

	rec = httptest.NewRecorder()
	ClearSessionCookie(rec, req, cookie)
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Empty(t, cleared[0].Value)
	assert.Negative(t, cleared[0].MaxAge)
}

func TestIsForwardedHTTPS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		proto string
		want  bool
	}{
		{"", false},
		{"http", false},
		{"https", true},
		{"HTTPS", true},
		{"https, http", true},
		{"http, https", true},
	}
	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.proto != "" {
			req.Header.Set("X-Forwarded-Proto", tc.proto)
		}
		assert.Equal(t, tc.want, isForwardedHTTPS(req), "proto %q", tc.proto)
	}
}

func TestRecover_TurnsPanicInto500(t *testing.T) {
	t.Parallel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := Recover(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestLogging_PreservesStatus(t *testing.T) {
	t.Parallel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
