package handlers

import (
	"net/http"

	"github.com/lehmann314159/folio/internal/content"
)

type CategoryHandler struct {
	store *content.Store
}

func NewCategoryHandler(store *content.Store) *CategoryHandler {
	return &CategoryHandler{store: store}
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	writeOK(w, "categories fetched", h.store.Categories())
}
