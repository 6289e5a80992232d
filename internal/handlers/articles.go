package handlers

import (
	"net/http"

	"github.com/lehmann314159/folio/internal/content"
	"github.com/lehmann314159/folio/internal/metrics"
)

type ArticleHandler struct {
	store *content.Store
}

func NewArticleHandler(store *content.Store) *ArticleHandler {
	return &ArticleHandler{store: store}
}

func (h *ArticleHandler) List(w http.ResponseWriter, r *http.Request) {
	q, err := content.ParseArticleQuery(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "articles fetched", h.store.List(q))
}

func (h *ArticleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	article, err := h.store.Get(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "article fetched", article)
}

func (h *ArticleHandler) Popular(w http.ResponseWriter, r *http.Request) {
	limit, err := content.ParseLimit(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "popular articles fetched", h.store.Popular(limit))
}

func (h *ArticleHandler) Latest(w http.ResponseWriter, r *http.Request) {
	limit, err := content.ParseLimit(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, "latest articles fetched", h.store.Latest(limit))
}

type likeResponse struct {
	LikeCount int `json:"likeCount"`
}

func (h *ArticleHandler) Like(w http.ResponseWriter, r *http.Request) {
	h.react(w, r, "like", h.store.Like, "article liked")
}

func (h *ArticleHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	h.react(w, r, "unlike", h.store.Unlike, "article unliked")
}

func (h *ArticleHandler) react(w http.ResponseWriter, r *http.Request, kind string, apply func(int64) (int, error), message string) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	count, err := apply(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	metrics.RecordReaction(kind)
	writeOK(w, message, likeResponse{LikeCount: count})
}
