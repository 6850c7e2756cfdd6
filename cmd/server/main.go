// SpeakAI - English Speaking Practice Server
package main

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/speakai-labs/speakai/internal/api"
	"github.com/speakai-labs/speakai/internal/catalog"
	"github.com/speakai-labs/speakai/internal/config"
	"github.com/speakai-labs/speakai/internal/identity"
	"github.com/speakai-labs/speakai/internal/middleware"
	"github.com/speakai-labs/speakai/internal/pronunciation"
	"github.com/speakai-labs/speakai/internal/responder"
	"github.com/speakai-labs/speakai/internal/session"
	"github.com/speakai-labs/speakai/internal/speech"
	"github.com/speakai-labs/speakai/internal/store"
	"github.com/speakai-labs/speakai/web"
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

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	cat := catalog.NewService(repo)
	if err := cat.Seed(context.Background()); err != nil {
		slog.Error("Failed to seed scenario catalog", "error", err)
		os.Exit(1)
	}
	slog.Info("Scenario catalog ready")

	// The responder and scorer are simulated; a fixed RANDOM_SEED makes their
	// output reproducible.
	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	} else {
		slog.Info("Using fixed random seed", "seed", seed)
	}
	gen := responder.New(rand.New(rand.NewSource(seed)))
	scorer := pronunciation.New(rand.New(rand.NewSource(seed + 1)))

	// Initialize services.
	hub := speech.NewHub(cfg.Speech)
	engine := session.NewEngine(gen, scorer)
	mgr := session.NewManager(engine, hub, repo, cfg.ReplyDelay)

	// Initialize handlers.
	handler := api.NewHandler(mgr, cat, repo)
	wsHandler := speech.NewWebSocketHandler(mgr, hub, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware(repo, cfg.IsDevelopment()))

	handler.RegisterRoutes(r)

	// WebSocket endpoint for the browser speech adapter.
	r.Get("/ws/speech", wsHandler.ServeHTTP)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 0 = no timeout; the speech socket is long-lived
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Evict sessions idle past the TTL.
	mgr.StartTTLWorker(ctx, cfg.SessionTTL)
	slog.Info("Session TTL worker started", "session_ttl", cfg.SessionTTL)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
