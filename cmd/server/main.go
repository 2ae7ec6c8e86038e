// Teamhub assistant server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/ashureev/teamhub/internal/api"
	"github.com/ashureev/teamhub/internal/assistant"
	"github.com/ashureev/teamhub/internal/config"
	"github.com/ashureev/teamhub/internal/dispatch"
	"github.com/ashureev/teamhub/internal/history"
	"github.com/ashureev/teamhub/internal/identity"
	"github.com/ashureev/teamhub/internal/middleware"
	"github.com/ashureev/teamhub/internal/store"
	"github.com/ashureev/teamhub/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped successfully")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "history_backend", cfg.History.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies.
	repo, err := store.Open(ctx, store.Options{
		Backend: cfg.History.Backend,
		DBPath:  cfg.History.DBPath,
		Redis: store.RedisOptions{
			Addr:     cfg.History.RedisAddr,
			Password: cfg.History.RedisPassword,
			DB:       cfg.History.RedisDB,
		},
	})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(ctx); err != nil {
		return err
	}
	slog.Info("History store connected", "backend", cfg.History.Backend)

	writer := history.NewAsyncWriter(cfg.History.QueueSize, logger)
	hist := history.New(repo,
		history.WithWriter(writer),
		history.WithLogger(logger),
		history.WithLimits(history.Limits{
			Conversations: cfg.History.MaxConversations,
			Messages:      cfg.History.MaxMessages,
			Events:        cfg.History.MaxEvents,
		}),
	)

	// Initialize services.
	engine := assistant.New(
		assistant.WithLogger(logger),
		assistant.WithHistory(hist),
		assistant.WithThinkDelay(cfg.Assistant.ThinkDelay),
		assistant.WithMaxMessages(cfg.History.MaxMessages),
		assistant.WithDispatchOptions(dispatch.WithTimeout(cfg.Assistant.ActionTimeout)),
	)
	sessions := assistant.NewSessions(hist,
		assistant.WithIdleTTL(cfg.Assistant.IdleTTL),
		assistant.WithSessionLogger(logger),
	)
	limiter := api.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	conns := api.NewConnManager()

	// Initialize handlers.
	baseHandler := api.NewHandler(engine, sessions, hist, limiter)
	healthHandler := api.NewHealthHandler(hist, writer, sessions, conns)
	wsHandler := api.NewWebSocketHandler(baseHandler, conns, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(allowedOrigins(cfg), identity.SessionHeaderName))
	r.Use(identity.Middleware(cfg.IsDevelopment()))

	healthHandler.RegisterHealth(r)
	baseHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/assistant", wsHandler.ServeHTTP)

	// Serve embedded chat page (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return sessions.RunSweeper(gctx, 0)
	})
	g.Go(func() error {
		return limiter.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		conns.CloseAll("server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server forced to shutdown", "error", err)
		}
		if err := writer.Close(shutdownCtx); err != nil {
			slog.Error("History writer did not drain", "error", err, "stats", writer.Stats())
		}
		return nil
	})

	return g.Wait()
}

func allowedOrigins(cfg *config.Config) []string {
	if cfg.IsDevelopment() || cfg.FrontendURL == "" {
		return []string{"*"}
	}
	return []string{cfg.FrontendURL}
}
