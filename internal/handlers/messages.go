package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehmann314159/folio/internal/messages"
	"github.com/lehmann314159/folio/internal/metrics"
	"github.com/lehmann314159/folio/internal/models"
	"github.com/lehmann314159/folio/internal/realtime"
)

// SnapshotSource opens a live feed of message snapshots.
type SnapshotSource interface {
	Subscribe(ctx context.Context) (*realtime.Subscription, error)
}

type MessageHandler struct {
	messages  *messages.Service
	source    SnapshotSource
	keepalive time.Duration
}

func NewMessageHandler(svc *messages.Service, source SnapshotSource) *MessageHandler {
	return &MessageHandler{messages: svc, source: source, keepalive: 15 * time.Second}
}

func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.messages.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "messages fetched", msgs)
}

func (h *MessageHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.MessageInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	m, err := h.messages.Post(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, "message posted", m)
}

// Stream sends the current collection and then every published snapshot as
// server-sent events. Feed errors go out as "error" events.
func (h *MessageHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rc := http.NewResponseController(w)

	// Subscribe before the initial read so nothing posted in between is lost.
	sub, err := h.source.Subscribe(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer sub.Close()

	current, err := h.messages.List(ctx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// The stream outlives the server's write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	metrics.StreamSubscribers.Inc()
	defer metrics.StreamSubscribers.Dec()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := sendSnapshot(w, rc, current); err != nil {
		return
	}

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case snapshot, ok := <-sub.Snapshots():
			if !ok {
				return
			}
			if err := sendSnapshot(w, rc, snapshot); err != nil {
				slog.DebugContext(ctx, "stream client gone", "error", err)
				return
			}
		case feedErr := <-sub.Errors():
			slog.WarnContext(ctx, "message feed error", "error", feedErr)
			if err := sendEvent(w, rc, "error", feedErr.Error()); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func sendSnapshot(w http.ResponseWriter, rc *http.ResponseController, snapshot []models.Message) error {
	if snapshot == nil {
		snapshot = []models.Message{}
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return sendEvent(w, rc, "", string(payload))
}

func sendEvent(w http.ResponseWriter, rc *http.ResponseController, event, data string) error {
	if event != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return rc.Flush()
}
