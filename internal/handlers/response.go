package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/lehmann314159/folio/internal/auth"
	"github.com/lehmann314159/folio/internal/content"
	"github.com/lehmann314159/folio/internal/repository"
	"github.com/lehmann314159/folio/internal/validate"
)

// Envelope wraps every API response. Code always equals the HTTP status.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(Envelope{Code: status, Message: message, Data: data}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeOK(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, message, data)
}

// writeError maps domain errors onto envelope codes. Validation failures
// carry their field messages as data.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validate.Error
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, verr.Error(), verr.Fields)
	case errors.Is(err, auth.ErrConflict):
		writeJSON(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, auth.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, "unauthorized, please log in again", nil)
	case errors.Is(err, content.ErrNotFound),
		errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, repository.ErrNotFound):
		writeJSON(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, auth.ErrProviderConflict):
		writeJSON(w, http.StatusConflict, err.Error(), nil)
	default:
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, "internal server error", nil)
	}
}

// decodeJSON reads a JSON body into v. Malformed bodies are validation
// failures.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return validate.Field("body", "request body must be valid JSON")
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, validate.Field("id", "id must be an integer")
	}
	return id, nil
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
