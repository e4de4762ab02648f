package httpx

import (
	"net/http"

	"github.com/target/passkey-lab/internal/service"
)

// FederationHandlers provides HTTP handlers for the federation endpoints.
type FederationHandlers struct {
	Sessions   *service.SessionService
	Federation *service.FederationService
}

// Providers resolves requested identity-provider origins and issues the
// nonce the subsequent token must be bound to.
// POST /federation/providers {"origins": ["..."]}.
func (h *FederationHandlers) Providers(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Origins []string `json:"origins"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	providers, err := h.Federation.Providers(req.Origins)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	sess := GetSessionFromContext(r.Context())
	nonce, err := h.Sessions.IssueNonce(r.Context(), sess)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "internal_error", Err: err})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"providers": providers,
		"nonce":     nonce,
	})
}

// Verify validates a federated identity token and signs the session in.
// POST /federation/verify {"token": "...", "origin": "..."}.
func (h *FederationHandlers) Verify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token  string `json:"token"`
		Origin string `json:"origin"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	sess := GetSessionFromContext(r.Context())
	result, err := h.Federation.VerifyToken(r.Context(), sess, req.Token, req.Origin)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	resp := map[string]any{"user": viewOf(result.User)}
	if result.DuplicateMapping {
		resp["warning"] = "duplicate_mapping"
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Disconnect removes a relying-party client id from the signed-in account's
// approved list.
// POST /federation/disconnect {"account_id": "...", "client_id": "..."}.
func (h *FederationHandlers) Disconnect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string `json:"account_id"`
		ClientID  string `json:"client_id"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	sess := GetSessionFromContext(r.Context())
	if err := h.Federation.Disconnect(r.Context(), sess, req.AccountID, req.ClientID); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
