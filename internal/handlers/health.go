package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db     *sql.DB
	broker pinger
}

func NewHealthHandler(db *sql.DB, broker pinger) *HealthHandler {
	return &HealthHandler{db: db, broker: broker}
}

// Check reports 503 when the database or the broker is unreachable.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"database": "ok", "broker": "ok"}
	code := http.StatusOK
	if err := h.db.PingContext(ctx); err != nil {
		status["database"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	if err := h.broker.Ping(ctx); err != nil {
		status["broker"] = err.Error()
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, http.StatusText(code), status)
}
