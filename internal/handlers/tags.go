package handlers

import (
	"net/http"

	"github.com/lehmann314159/folio/internal/content"
)

type TagHandler struct {
	store *content.Store
}

func NewTagHandler(store *content.Store) *TagHandler {
	return &TagHandler{store: store}
}

func (h *TagHandler) List(w http.ResponseWriter, r *http.Request) {
	writeOK(w, "tags fetched", h.store.Tags())
}
