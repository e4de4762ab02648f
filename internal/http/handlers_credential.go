package httpx

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/target/passkey-lab/internal/domain/model"
	"github.com/target/passkey-lab/internal/service"
)

// CredentialHandlers provides HTTP handlers for the public-key credential
// ceremony and key-management endpoints.
type CredentialHandlers struct {
	Creds *service.CredentialService

	// ResolveOrigin maps a request's User-Agent to the expected assertion
	// origin (web origin or a registered Android app origin).
	ResolveOrigin func(userAgent string) string
}

func (h *CredentialHandlers) expectedOrigin(r *http.Request) string {
	if h.ResolveOrigin == nil {
		return ""
	}
	return h.ResolveOrigin(r.UserAgent())
}

// keyView is the credential shape returned to the client; the public key
// material stays server-side.
type keyView struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	AAGUID       string    `json:"aaguid,omitempty"`
	Transports   []string  `json:"transports,omitempty"`
	Synced       bool      `json:"synced"`
	RegisteredAt time.Time `json:"registered_at"`
	LastUsedAt   time.Time `json:"last_used_at,omitzero"`
}

func keyViewOf(c *model.PublicKeyCredential) keyView {
	return keyView{
		ID:           c.ID,
		Name:         c.Name,
		AAGUID:       c.AAGUID,
		Transports:   c.Transports,
		Synced:       c.Synced(),
		RegisteredAt: c.RegisteredAt,
		LastUsedAt:   c.LastUsedAt,
	}
}

// RegisterRequest proposes registration ceremony parameters.
// POST /auth/register-request.
func (h *CredentialHandlers) RegisterRequest(w http.ResponseWriter, r *http.Request) {
	sess := GetSessionFromContext(r.Context())
	options, err := h.Creds.RegisterRequest(r.Context(), sess)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	writeRawJSON(w, options)
}

// RegisterResponse verifies an attestation response and stores the new
// credential.
// POST /auth/register-response.
func (h *CredentialHandlers) RegisterResponse(w http.ResponseWriter, r *http.Request) {
	body, ok := readRawBody(w, r)
	if !ok {
		return
	}

	sess := GetSessionFromContext(r.Context())
	cred, err := h.Creds.RegisterResponse(r.Context(), sess, body, h.expectedOrigin(r), platformLabel(r.UserAgent()))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, keyViewOf(cred))
}

// SignInRequest proposes authentication ceremony parameters.
// POST /auth/signin-request.
func (h *CredentialHandlers) SignInRequest(w http.ResponseWriter, r *http.Request) {
	sess := GetSessionFromContext(r.Context())
	options, err := h.Creds.AuthenticateRequest(r.Context(), sess)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	writeRawJSON(w, options)
}

// SignInResponse verifies an assertion response and signs the session in.
// POST /auth/signin-response.
func (h *CredentialHandlers) SignInResponse(w http.ResponseWriter, r *http.Request) {
	body, ok := readRawBody(w, r)
	if !ok {
		return
	}

	sess := GetSessionFromContext(r.Context())
	user, err := h.Creds.AuthenticateResponse(r.Context(), sess, body, h.expectedOrigin(r))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, viewOf(user))
}

// Keys lists the signed-in account's registered credentials.
// GET /auth/keys.
func (h *CredentialHandlers) Keys(w http.ResponseWriter, r *http.Request) {
	sess := GetSessionFromContext(r.Context())
	creds, err := h.Creds.ListCredentials(r.Context(), sess)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	views := make([]keyView, 0, len(creds))
	for _, c := range creds {
		views = append(views, keyViewOf(c))
	}
	WriteJSON(w, http.StatusOK, map[string]any{"keys": views})
}

// RenameKey renames one of the signed-in account's credentials.
// PUT /auth/key {"id": "...", "name": "..."}.
func (h *CredentialHandlers) RenameKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if !DecodeJSON(w, r, &req) {
		return
	}

	sess := GetSessionFromContext(r.Context())
	cred, err := h.Creds.RenameCredential(r.Context(), sess, req.ID, strings.TrimSpace(req.Name))
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, keyViewOf(cred))
}

// DeleteKey removes one of the signed-in account's credentials.
// DELETE /auth/key/{id}.
func (h *CredentialHandlers) DeleteKey(w http.ResponseWriter, r *http.Request) {
	sess := GetSessionFromContext(r.Context())
	if err := h.Creds.RemoveCredential(r.Context(), sess, r.PathValue("id")); err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// readRawBody reads the request body as raw JSON, rejecting unparseable
// payloads before the ceremony consumes its challenge.
func readRawBody(w http.ResponseWriter, r *http.Request) (json.RawMessage, bool) {
	var raw json.RawMessage
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&raw); err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return nil, false
	}
	return raw, true
}

// writeRawJSON passes the verifier's parameter document through untouched.
func writeRawJSON(w http.ResponseWriter, options json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(options)
}

// platformLabel derives a coarse device label from the User-Agent, used as
// the credential name fallback when no authenticator metadata matches.
func platformLabel(userAgent string) string {
	switch {
	case strings.Contains(userAgent, "Android"):
		return "Android device"
	case strings.Contains(userAgent, "iPhone"), strings.Contains(userAgent, "iPad"):
		return "iOS device"
	case strings.Contains(userAgent, "Macintosh"):
		return "Mac"
	case strings.Contains(userAgent, "Windows"):
		return "Windows device"
	case strings.Contains(userAgent, "Linux"):
		return "Linux device"
	default:
		return "Unknown device"
	}
}
