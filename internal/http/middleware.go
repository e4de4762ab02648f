package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	domainauth "github.com/target/passkey-lab/internal/domain/auth"
)

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			const defaultHTTPStatus = 200
			ww := &respWriter{ResponseWriter: w, status: defaultHTTPStatus}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// SessionSource is the subset of the session service the middleware needs.
type SessionSource interface {
	Load(ctx context.Context, token string) (*domainauth.Session, error)
	Start(ctx context.Context) (*domainauth.Session, error)
	LongSession() time.Duration
}

// CookieParams groups the session cookie attributes.
type CookieParams struct {
	Name   string
	Domain string
	MaxAge time.Duration
}

// Session returns a middleware that resolves the visitor's session from the
// session cookie, starting a fresh anonymous session (and setting the cookie)
// when none exists. Every request downstream of this middleware carries a
// valid session in its context.
func Session(src SessionSource, cookie CookieParams) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string
			if c, err := r.Cookie(cookie.Name); err == nil {
				token = c.Value
			}

			sess, err := src.Load(r.Context(), token)
			if err != nil {
				WriteError(w, ErrorParams{
					Code:    http.StatusInternalServerError,
					ErrCode: "session_unavailable",
					Err:     errors.New("session store unavailable"),
				})
				return
			}
			if sess == nil {
				sess, err = src.Start(r.Context())
				if err != nil {
					WriteError(w, ErrorParams{
						Code:    http.StatusInternalServerError,
						ErrCode: "session_unavailable",
						Err:     errors.New("session store unavailable"),
					})
					return
				}
				SetSessionCookie(w, r, cookie, sess.ID)
			}

			ctx := SetSessionInContext(r.Context(), sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SameOriginMarkerHeader must accompany every mutating API call; its absence
// is a hard failure before any session inspection.
const SameOriginMarkerHeader = "X-Requested-With"

// RequireSameOriginMarker returns a middleware that rejects requests missing
// the same-origin marker header with 400 invalid_access.
func RequireSameOriginMarker() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.EqualFold(r.Header.Get(SameOriginMarkerHeader), "XMLHttpRequest") {
				WriteError(w, ErrorParams{
					Code:    http.StatusBadRequest,
					ErrCode: "invalid_access",
					Err:     errors.New("same-origin request marker is required"),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SetSessionCookie sets the session cookie on the response.
func SetSessionCookie(w http.ResponseWriter, r *http.Request, cookie CookieParams, token string) {
	isSecure := r.TLS != nil || isForwardedHTTPS(r)
	http.SetCookie(w, &http.Cookie{
		Name:     cookie.Name,
		Value:    token,
		Path:     "/",
		Domain:   cookie.Domain,
		HttpOnly: true,
		Secure:   isSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(cookie.MaxAge / time.Second),
	})
}

// ClearSessionCookie clears the session cookie by setting it to expire immediately.
// It mirrors key attributes (Secure, Path, Domain, SameSite) used when setting cookies
// to maximize compatibility across browsers during deletion.
func ClearSessionCookie(w http.ResponseWriter, r *http.Request, cookie CookieParams) {
	isSecure := r.TLS != nil || isForwardedHTTPS(r)
	http.SetCookie(w, &http.Cookie{
		Name:     cookie.Name,
		Value:    "",
		Path:     "/",
		Domain:   cookie.Domain,
		HttpOnly: true,
		Secure:   isSecure,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

// isForwardedHTTPS checks if the request was forwarded over HTTPS.
// Handles comma-separated values in X-Forwarded-Proto header.
func isForwardedHTTPS(r *http.Request) bool {
	xfProto := r.Header.Get("X-Forwarded-Proto")
	if xfProto == "" {
		return false
	}

	for _, proto := range strings.Split(xfProto, ",") {
		if strings.EqualFold(strings.TrimSpace(proto), "https") {
			return true
		}
	}

	return false
}
