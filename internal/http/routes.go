package httpx

import (
	"log/slog"
	"net/http"

	"github.com/target/passkey-lab/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Sessions    *service.SessionService
	Users       *service.UserService
	Credentials *service.CredentialService
	Federation  *service.FederationService

	// ResolveOrigin maps a User-Agent to the expected assertion origin.
	ResolveOrigin func(userAgent string) string

	Cookie CookieParams
	Logger *slog.Logger // Logger for request and HTTP errors (optional)
}

// NewRouter creates and configures the HTTP router: session resolution on
// every route, the same-origin marker on every mutating API route, and the
// page/API gates per route classification.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	account := &AccountHandlers{
		Sessions: services.Sessions,
		Users:    services.Users,
		Cookie:   services.Cookie,
		Logger:   services.Logger,
	}
	credential := &CredentialHandlers{
		Creds:         services.Credentials,
		ResolveOrigin: services.ResolveOrigin,
	}
	federation := &FederationHandlers{
		Sessions:   services.Sessions,
		Federation: services.Federation,
	}
	pages := PageHandlers{}

	marker := RequireSameOriginMarker()
	api := func(t APIType, h http.HandlerFunc) http.Handler {
		return marker(RequireAPI(services.Sessions, t)(h))
	}
	apiGet := func(t APIType, h http.HandlerFunc) http.Handler {
		// Read-only endpoints skip the mutation marker.
		return RequireAPI(services.Sessions, t)(h)
	}
	page := func(t PageType, h http.HandlerFunc) http.Handler {
		return RequirePage(services.Sessions, t)(h)
	}

	// Flow entry and password endpoints.
	mux.Handle("POST /auth/username", api(APINoAuth, account.Username))
	mux.Handle("POST /auth/new-user", api(APINoAuth, account.NewUser))
	mux.Handle("POST /auth/password", api(APIFlow, account.Password))

	// Credential ceremony endpoints. Sign-in request/response stay open so an
	// anonymous visitor can assert a discoverable credential.
	mux.Handle("POST /auth/register-request", api(APIFlow, credential.RegisterRequest))
	mux.Handle("POST /auth/register-response", api(APIFlow, credential.RegisterResponse))
	mux.Handle("POST /auth/signin-request", api(APINoAuth, credential.SignInRequest))
	mux.Handle("POST /auth/signin-response", api(APINoAuth, credential.SignInResponse))

	// Key management.
	mux.Handle("GET /auth/keys", apiGet(APISignedIn, credential.Keys))
	mux.Handle("PUT /auth/key", api(APISignedIn, credential.RenameKey))
	mux.Handle("DELETE /auth/key/{id}", api(APISignedIn, credential.DeleteKey))

	// Account lifecycle.
	mux.Handle("POST /auth/update-display-name", api(APISignedIn, account.UpdateDisplayName))
	mux.Handle("POST /auth/update-password", api(APISensitive, account.UpdatePassword))
	mux.Handle("POST /auth/signout", api(APINoAuth, account.SignOut))
	mux.Handle("DELETE /auth/account", api(APISensitive, account.DeleteAccount))
	mux.Handle("GET /auth/status", apiGet(APINoAuth, account.Status))

	// Federation.
	mux.Handle("POST /federation/providers", api(APINoAuth, federation.Providers))
	mux.Handle("POST /federation/verify", api(APINoAuth, federation.Verify))
	mux.Handle("POST /federation/disconnect", api(APISignedIn, federation.Disconnect))

	// Gated pages.
	mux.Handle("GET /{$}", page(PageNoAuth, pages.Page("index")))
	mux.Handle("GET /signup", page(PageSignUp, pages.Page("signup")))
	mux.Handle("GET /signup/passkey", page(PageSignUpCredential, pages.Page("signup-passkey")))
	mux.Handle("GET /signin", page(PageSignIn, pages.Page("signin")))
	mux.Handle("GET /reauth", page(PageReauth, pages.Page("reauth")))
	mux.Handle("GET /home", page(PageSignedIn, pages.Page("home")))
	mux.Handle("GET /settings", page(PageSensitive, pages.Page("settings")))

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	// Session resolution wraps everything so gates and handlers always see a
	// session; logging and panic recovery wrap the outside.
	var handler http.Handler = mux
	handler = Session(services.Sessions, services.Cookie)(handler)
	if services.Logger != nil {
		handler = Logging(services.Logger)(handler)
		handler = Recover(services.Logger)(handler)
	}
	return handler
}
