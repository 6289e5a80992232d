package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/lehmann314159/folio/internal/auth"
	"github.com/lehmann314159/folio/internal/config"
	"github.com/lehmann314159/folio/internal/content"
	"github.com/lehmann314159/folio/internal/database"
	"github.com/lehmann314159/folio/internal/handlers"
	"github.com/lehmann314159/folio/internal/logger"
	"github.com/lehmann314159/folio/internal/messages"
	"github.com/lehmann314159/folio/internal/middleware"
	"github.com/lehmann314159/folio/internal/realtime"
	"github.com/lehmann314159/folio/internal/repository"
	"github.com/lehmann314159/folio/internal/seed"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel)

	if err := run(cfg); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.New(cfg.DataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repository.New(db)

	if cfg.UsingDevSecret() {
		slog.Warn("JWT_SECRET not set, signing tokens with the development secret")
	}
	authSvc := auth.NewService(repo, auth.NewTokens(auth.TokenConfig{Secret: cfg.JWTSecret, TTL: cfg.JWTTTL}))
	if err := authSvc.SeedDefaultUsers(ctx); err != nil {
		return err
	}

	tax, err := seed.LoadTaxonomy()
	if err != nil {
		return err
	}
	store := content.NewStore(seed.Articles(cfg.ArticleCount, cfg.ArticleSeed, tax), tax.Categories, tax.Tags)
	slog.Info("content store ready", "articles", store.Len(), "seed", cfg.ArticleSeed)

	broker, err := realtime.NewBroker(cfg.RedisURL, realtime.DefaultChannel)
	if err != nil {
		return err
	}
	defer broker.Close()
	if err := broker.Ping(ctx); err != nil {
		// Writes still succeed without Redis; only live updates stop.
		slog.Warn("redis unreachable, live message updates disabled until it recovers", "error", err)
	}

	limiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst,
		middleware.WithTrustedProxies(cfg.TrustedProxies...))
	defer limiter.Stop()

	router := handlers.NewRouter(handlers.Handlers{
		Articles:   handlers.NewArticleHandler(store),
		Categories: handlers.NewCategoryHandler(store),
		Tags:       handlers.NewTagHandler(store),
		Auth:       handlers.NewAuthHandler(authSvc),
		Messages:   handlers.NewMessageHandler(messages.NewService(repo, broker), broker),
		Health:     handlers.NewHealthHandler(db, broker),
	}, limiter)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
		// Open event streams end when a shutdown signal arrives.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		purgeRevokedTokens(ctx, repo, time.Hour)
		return nil
	})
	return g.Wait()
}

// purgeRevokedTokens drops revocations whose tokens have expired anyway.
func purgeRevokedTokens(ctx context.Context, repo *repository.Repository, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := repo.PurgeRevokedTokens(ctx, time.Now())
			if err != nil {
				slog.Warn("failed to purge revoked tokens", "error", err)
				continue
			}
			if n > 0 {
				slog.Debug("purged revoked tokens", "count", n)
			}
		}
	}
}
