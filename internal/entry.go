// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/notely/internal/api"
	"github.com/starford/notely/internal/identity"
	"github.com/starford/notely/internal/mcpserver"
	"github.com/starford/notely/internal/models"
	"github.com/starford/notely/internal/noteservice"
	"github.com/starford/notely/internal/sse"
	"github.com/starford/notely/internal/storage"
	"github.com/starford/notely/internal/summary"
)

// tagsThrottle bounds how often a client is told to refresh its tag list.
const tagsThrottle = 2 * time.Second

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// initLogger initializes the structured JSON logger and makes it the default.
func (a *application) initLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	cfg := app.config
	logger := app.initLogger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_driver", cfg.Storage.Driver),
		slog.String("auth_mode", cfg.Auth.Mode),
		slog.Bool("summary_endpoint", cfg.Summary.Endpoint != ""),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize storage.
	store, err := storage.Open(ctx, cfg.Storage.Options())
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer store.Close()

	// SSE broker.
	broker := sse.NewBroker(tagsThrottle)
	defer broker.Close()

	svc := noteservice.NewService(store,
		noteservice.WithEvents(broker.PublishNoteEvent),
		noteservice.WithWelcomeNote(cfg.Notes.SeedWelcome),
	)
	summarizer := newSummarizer(cfg.Summary, logger)

	auth, err := apiAuth(cfg.Auth)
	if err != nil {
		return err
	}
	apiRouter := api.NewRouter(svc, summarizer, auth, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := store.ListByOwner(req.Context(), auth.LocalUser.ID); err != nil {
			logger.Warn("readiness check failed", slog.String("error", err.Error()))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Follow external edits of the collection file.
	if fs, ok := store.(*storage.File); ok && cfg.Storage.Watch {
		g.Go(func() error {
			err := fs.Watch(gCtx, logger, func() {
				broker.Broadcast(sse.Event{Type: "notes.reloaded", Data: map[string]string{}})
			})
			if err != nil {
				logger.Error("watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		timeout := cfg.App.HTTP.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		// Close streams first so Shutdown is not held up by open SSE connections.
		broker.Close()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown ends the errgroup once the server has been asked to stop,
// which cancels the watcher along with it.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout. Logs go to stderr unless
// WithLogOutput says otherwise.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}

	cfg := app.config
	logger := app.initLogger()

	user := cfg.Auth.LocalUser.User()
	if app.user != nil {
		user = *app.user
	}
	if user.ID == "" {
		return fmt.Errorf("mcp: a user id is required")
	}

	store, err := storage.Open(ctx, cfg.Storage.Options())
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer store.Close()

	svc := noteservice.NewService(store, noteservice.WithWelcomeNote(cfg.Notes.SeedWelcome))
	if _, err := svc.SeedWelcome(ctx, user.ID); err != nil {
		logger.Warn("seed welcome note failed", slog.String("user", user.ID), slog.String("error", err.Error()))
	}
	srv := mcpserver.New(svc, newSummarizer(cfg.Summary, logger), user)

	logger.Info("MCP server starting", slog.String("user", user.ID), slog.String("storage_driver", cfg.Storage.Driver))
	return srv.ServeStdio()
}

// IssueToken mints a JWT for u with the configured secret.
func IssueToken(cfg *Config, u models.User, ttl time.Duration) (string, error) {
	if cfg.Auth.JWT.Secret == "" {
		return "", fmt.Errorf("auth.jwt.secret is not configured")
	}
	if u.ID == "" {
		return "", fmt.Errorf("a user id is required")
	}
	return identity.NewVerifier(cfg.Auth.JWT.Secret, cfg.Auth.JWT.Issuer).Issue(u, ttl)
}

func newSummarizer(cfg SummaryConfig, logger *slog.Logger) *summary.Requestor {
	var primary summary.Provider
	if cfg.Endpoint != "" {
		primary = summary.NewChatCompletion(cfg.Chat(), nil)
	}
	return summary.NewRequestor(primary, logger,
		summary.WithTimeout(cfg.Timeout),
		summary.WithCircuitBreaker(cfg.Breaker.Threshold, cfg.Breaker.Cooldown),
	)
}

func apiAuth(cfg AuthConfig) (api.AuthConfig, error) {
	auth := api.AuthConfig{
		Mode:      cfg.Mode,
		Token:     cfg.Token,
		LocalUser: cfg.LocalUser.User(),
	}
	if cfg.Mode == api.AuthModeJWT {
		if cfg.JWT.Secret == "" {
			return api.AuthConfig{}, fmt.Errorf("auth: jwt.secret is empty")
		}
		auth.Verifier = identity.NewVerifier(cfg.JWT.Secret, cfg.JWT.Issuer)
	}
	return auth, nil
}
