package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	domainauth "github.com/target/passkey-lab/internal/domain/auth"
)

// PageType classifies a page route by the session status it requires.
type PageType int

const (
	// PageNoAuth passes unconditionally.
	PageNoAuth PageType = iota
	// PageSignUp is a sign-up entry page; already-authenticated visitors are
	// sent home.
	PageSignUp
	// PageSignUpCredential is the passkey step of a sign-up; it additionally
	// requires a candidate username on the session.
	PageSignUpCredential
	// PageSignIn is a sign-in entry page; it records the entrance and sends
	// authenticated visitors home.
	PageSignIn
	// PageReauth is the step-up page; it requires a signed-in session.
	PageReauth
	// PageSignedIn requires at least a signed-in session.
	PageSignedIn
	// PageSensitive requires a recently-signed-in session and redirects
	// stale sessions to the step-up page with the original target attached.
	PageSensitive
)

// APIType classifies an API route by the session status it requires.
// It mirrors PageType but yields structured JSON errors instead of redirects.
type APIType int

const (
	// APINoAuth passes unconditionally.
	APINoAuth APIType = iota
	// APIFlow requires an authentication flow in progress or a signed-in
	// session: a candidate username must be set, or the visitor signed in.
	APIFlow
	// APISignedIn requires at least a signed-in session.
	APISignedIn
	// APISensitive requires a recently-signed-in session.
	APISensitive
)

// GateSessions is the subset of the session service the gates need.
type GateSessions interface {
	Status(sess *domainauth.Session) domainauth.SignInStatus
	RememberEntrance(ctx context.Context, sess *domainauth.Session, path string) error
	RecallEntrance(sess *domainauth.Session) string
}

const (
	homePath   = "/home"
	reauthPath = "/reauth"
)

// RequirePage returns a middleware enforcing the page access matrix for the
// given page type. Violations always produce a redirect, never an error
// response; the only side effect is entrance recording on sign-in pages.
func RequirePage(sessions GateSessions, pageType PageType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := GetSessionFromContext(r.Context())
			status := sessions.Status(sess)

			switch pageType {
			case PageNoAuth:
				// Unconditional pass.

			case PageSignUp, PageSignIn:
				if status >= domainauth.StatusSignedIn {
					http.Redirect(w, r, homePath, http.StatusFound)
					return
				}
				if pageType == PageSignIn && sess != nil {
					// Best effort; the page still renders if the store write fails.
					_ = sessions.RememberEntrance(r.Context(), sess, r.URL.Path)
				}

			case PageSignUpCredential:
				if status >= domainauth.StatusSignedIn {
					http.Redirect(w, r, homePath, http.StatusFound)
					return
				}
				if status < domainauth.StatusSigningIn {
					http.Redirect(w, r, sessions.RecallEntrance(sess), http.StatusFound)
					return
				}

			case PageReauth, PageSignedIn:
				if status < domainauth.StatusSignedIn {
					http.Redirect(w, r, sessions.RecallEntrance(sess), http.StatusFound)
					return
				}

			case PageSensitive:
				if status < domainauth.StatusSignedIn {
					http.Redirect(w, r, sessions.RecallEntrance(sess), http.StatusFound)
					return
				}
				if status < domainauth.StatusRecentlySignedIn {
					http.Redirect(w, r, stepUpURL(r.URL.RequestURI()), http.StatusFound)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAPI returns a middleware enforcing the API access matrix for the
// given API type. Violations produce JSON errors: 400 invalid_state for a
// wrong flow phase, 401 not_signed_in / insufficient_privilege for missing
// authentication guarantees.
func RequireAPI(sessions GateSessions, apiType APIType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := GetSessionFromContext(r.Context())
			status := sessions.Status(sess)

			switch apiType {
			case APINoAuth:
				// Unconditional pass.

			case APIFlow:
				if status < domainauth.StatusSigningUp {
					WriteError(w, ErrorParams{
						Code:    http.StatusBadRequest,
						ErrCode: "invalid_state",
						Err:     errors.New("no authentication flow in progress"),
					})
					return
				}

			case APISignedIn:
				if status < domainauth.StatusSignedIn {
					WriteError(w, ErrorParams{
						Code:    http.StatusUnauthorized,
						ErrCode: "not_signed_in",
						Err:     errors.New("sign in to use this endpoint"),
					})
					return
				}

			case APISensitive:
				if status < domainauth.StatusSignedIn {
					WriteError(w, ErrorParams{
						Code:    http.StatusUnauthorized,
						ErrCode: "not_signed_in",
						Err:     errors.New("sign in to use this endpoint"),
					})
					return
				}
				if status < domainauth.StatusRecentlySignedIn {
					WriteError(w, ErrorParams{
						Code:    http.StatusUnauthorized,
						ErrCode: "insufficient_privilege",
						Err:     errors.New("recent authentication is required"),
					})
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// stepUpURL builds the step-up redirect carrying the original target.
func stepUpURL(target string) string {
	u := url.URL{Path: reauthPath}
	q := url.Values{}
	q.Set("next", safeRedirectPath(target))
	u.RawQuery = q.Encode()
	return u.String()
}

// safeRedirectPath keeps redirects inside the app: only rooted, relative
// paths survive; everything else collapses to "/".
func safeRedirectPath(raw string) string {
	if raw == "" {
		return "/"
	}
	u, err := url.Parse(raw)
	if err != nil || u.IsAbs() || u.Host != "" || len(u.Path) == 0 || u.Path[0] != '/' {
		return "/"
	}
	return u.RequestURI()
}
