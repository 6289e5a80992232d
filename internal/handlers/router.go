package handlers

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lehmann314159/folio/internal/middleware"
)

type Handlers struct {
	Articles   *ArticleHandler
	Categories *CategoryHandler
	Tags       *TagHandler
	Auth       *AuthHandler
	Messages   *MessageHandler
	Health     *HealthHandler
}

// NewRouter registers every route. Write endpoints go through limiter.
func NewRouter(h Handlers, limiter *middleware.RateLimiter) http.Handler {
	mux := http.NewServeMux()

	// Articles
	mux.HandleFunc("GET /api/articles", h.Articles.List)
	mux.HandleFunc("GET /api/articles/popular", h.Articles.Popular)
	mux.HandleFunc("GET /api/articles/latest", h.Articles.Latest)
	mux.HandleFunc("GET /api/articles/{id}", h.Articles.Get)
	mux.HandleFunc("POST /api/articles/{id}/like", limiter.Limit(h.Articles.Like))
	mux.HandleFunc("POST /api/articles/{id}/unlike", limiter.Limit(h.Articles.Unlike))

	// Taxonomy
	mux.HandleFunc("GET /api/categories", h.Categories.List)
	mux.HandleFunc("GET /api/tags", h.Tags.List)

	// Auth
	mux.HandleFunc("POST /api/auth/login", limiter.Limit(h.Auth.Login))
	mux.HandleFunc("POST /api/auth/logout", h.Auth.Logout)
	mux.HandleFunc("GET /api/auth/me", h.Auth.Me)
	mux.HandleFunc("POST /api/auth/register", limiter.Limit(h.Auth.Register))
	mux.HandleFunc("POST /api/auth/provider/{provider}", limiter.Limit(h.Auth.ProviderLogin))

	// Guestbook
	mux.HandleFunc("GET /api/messages", h.Messages.List)
	mux.HandleFunc("POST /api/messages", limiter.Limit(h.Messages.Create))
	mux.HandleFunc("GET /api/messages/stream", h.Messages.Stream)

	mux.HandleFunc("GET /healthz", h.Health.Check)
	mux.Handle("GET /metrics", promhttp.Handler())

	return middleware.Observe(mux)
}
