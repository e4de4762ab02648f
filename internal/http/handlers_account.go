package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/target/passkey-lab/internal/domain/auth"
	"github.com/target/passkey-lab/internal/domain/model"
	"github.com/target/passkey-lab/internal/service"
)

// AccountHandlers provides HTTP handlers for the password flow and account
// lifecycle endpoints.
type AccountHandlers struct {
	Sessions *service.SessionService
	Users    *service.UserService
	Cookie   CookieParams
	Logger   *slog.Logger
}

func (h *AccountHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// userView is the account shape returned to the client. The password value
// never leaves the server.
type userView struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	Picture     string `json:"picture,omitempty"`
}

func viewOf(u *model.User) userView {
	return userView{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		Picture:     u.Picture,
	}
}

// Username starts an existing-account sign-in flow.
// POST /auth/username {"username": "..."}.
func (h *AccountHandlers) Username(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	sess := GetSessionFromContext(r.Context())
	exists, err := h.Users.StartSignIn(r.Context(), sess, req.Username)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"username": sess.Username,
		"exists":   exists,
	})
}

// NewUser starts a sign-up flow for an unclaimed username.
// POST /auth/new-user {"username": "..."}.
func (h *AccountHandlers) NewUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	sess := GetSessionFromContext(r.Context())
	if err := h.Users.StartSignUp(r.Context(), sess, req.Username); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"username": sess.Username})
}

// Password completes a password flow for the session's candidate username.
// POST /auth/password {"password": "..."}.
func (h *AccountHandlers) Password(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	sess := GetSessionFromContext(r.Context())
	user, err := h.Users.SubmitPassword(r.Context(), sess, req.Password)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, viewOf(user))
}

// UpdateDisplayName replaces the signed-in account's display name.
// POST /auth/update-display-name {"display_name": "..."}.
func (h *AccountHandlers) UpdateDisplayName(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DisplayName string `json:"display_name"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	sess := GetSessionFromContext(r.Context())
	user, err := h.Users.UpdateDisplayName(r.Context(), sess, req.DisplayName)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, viewOf(user))
}

// UpdatePassword replaces the signed-in account's password value. The route
// is gated on recent authentication.
// POST /auth/update-password {"password": "..."}.
func (h *AccountHandlers) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	sess := GetSessionFromContext(r.Context())
	if err := h.Users.UpdatePassword(r.Context(), sess, req.Password); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// SignOut destroys the session and clears the cookie.
// POST /auth/signout.
func (h *AccountHandlers) SignOut(w http.ResponseWriter, r *http.Request) {
	sess := GetSessionFromContext(r.Context())
	if err := h.Sessions.SignOut(r.Context(), sess); err != nil {
		h.logger().WarnContext(r.Context(), "sign-out failed", "error", err)
	}
	ClearSessionCookie(w, r, h.Cookie)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "success", "redirect_to": "/"})
}

// DeleteAccount removes the signed-in account with full cascade and ends the
// session.
// DELETE /auth/account.
func (h *AccountHandlers) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	sess := GetSessionFromContext(r.Context())
	if err := h.Users.DeleteAccount(r.Context(), sess); err != nil {
		WriteServiceError(w, err)
		return
	}
	ClearSessionCookie(w, r, h.Cookie)
	WriteJSON(w, http.StatusOK, map[string]string{"status": "success", "redirect_to": "/"})
}

// Status returns the derived authentication status snapshot.
// GET /auth/status.
func (h *AccountHandlers) Status(w http.ResponseWriter, r *http.Request) {
	sess := GetSessionFromContext(r.Context())
	status := h.Sessions.Status(sess)

	resp := map[string]any{
		"status":        status.String(),
		"authenticated": status >= domainauth.StatusSignedIn,
	}
	if sess != nil && sess.SignedIn() {
		resp["user"] = viewOf(sess.User)
	}
	WriteJSON(w, http.StatusOK, resp)
}
