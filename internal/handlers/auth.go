package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/lehmann314159/folio/internal/auth"
)

type AuthHandler struct {
	auth *auth.Service
}

func NewAuthHandler(svc *auth.Service) *AuthHandler {
	return &AuthHandler{auth: svc}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	sess, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrUnauthorized) {
		writeJSON(w, http.StatusUnauthorized, "invalid username or password", nil)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "logged in", sess)
}

// Logout always succeeds for the caller. A token that is missing or already
// invalid has nothing left to revoke.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := bearerToken(r); token != "" {
		err := h.auth.Logout(r.Context(), token)
		if err != nil && !errors.Is(err, auth.ErrUnauthorized) {
			writeError(w, r, err)
			return
		}
		if err != nil {
			slog.DebugContext(r.Context(), "logout with invalid token", "error", err)
		}
	}
	writeOK(w, "logged out", nil)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.auth.Me(r.Context(), bearerToken(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "user fetched", u)
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.auth.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "registered", u)
}

// ProviderLogin signs in with an identity asserted by an external provider
// named in the path.
func (h *AuthHandler) ProviderLogin(w http.ResponseWriter, r *http.Request) {
	var req auth.ProviderLoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.Provider = r.PathValue("provider")

	sess, err := h.auth.ProviderLogin(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "logged in", sess)
}
