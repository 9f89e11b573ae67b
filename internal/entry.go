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
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/laguz/internal/api"
	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/index"
	"github.com/starford/laguz/internal/lorebook"
	"github.com/starford/laguz/internal/lorefile"
	"github.com/starford/laguz/internal/loreservice"
	"github.com/starford/laguz/internal/mcpserver"
	"github.com/starford/laguz/internal/sse"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger. MCP mode owns stdout for the
	// stdio transport, so logs go to stderr there.
	logOut := os.Stdout
	if app.mcp {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("lore_root", cfg.Lore.Root),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	writer := lorefile.NewWriter(logger)

	// Create the lore file on first use.
	initializer := lorefile.NewInitializer(writer, cfg.Lore.File)
	lorePath, err := initializer.Ensure(cfg.Lore.Root)
	if err != nil {
		return fmt.Errorf("ensure lore file: %w", err)
	}

	// Load the lore document. An unparseable file is not fatal: the app
	// serves from an empty in-memory store and refuses to persist over the
	// file until an operator reinitializes it.
	data, err := lorefile.Read(lorePath)
	if err != nil {
		return fmt.Errorf("read lore file: %w", err)
	}
	blocked := false
	book, err := lorebook.Load(data)
	if err != nil {
		if !errors.Is(err, apperr.ErrParse) {
			return fmt.Errorf("load lore file: %w", err)
		}
		logger.Warn("lore file is unparseable; serving empty store and refusing writes until reinit",
			slog.String("path", lorePath),
			slog.String("error", err.Error()))
		book = lorebook.New(filepath.Base(cfg.Lore.Root))
		blocked = true
	}

	// Initialize SQLite index.
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	// Run initial sync.
	if err := index.Sync(db, book, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	svc := loreservice.New(book, db, writer, lorePath,
		time.Duration(cfg.Lore.DebounceMS)*time.Millisecond, blocked, logger)
	defer svc.Close()

	if app.mcp {
		logger.Info("Starting MCP server on stdio")
		return mcpserver.New(svc).ServeStdio()
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc.Subscribe(func(ev lorebook.Event) {
		broker.PublishLoreEvent(string(ev.Kind), ev.ID, ev.File)
	})

	// Build API router.
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, http.HandlerFunc(broker.ServeHTTP))

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
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if svc.Blocked() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"store blocked"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"status":"ok","dirty":%t}`, svc.Dirty())
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the lore file for external edits (other tools, git checkouts)
	// and reload them into the running store.
	g.Go(func() error {
		err := index.Watch(gCtx, lorePath, logger, svc.IsOwnWrite, func(data []byte) {
			if err := svc.ReloadFrom(data); err != nil {
				logger.Warn("external lore change rejected", slog.String("error", err.Error()))
				return
			}
			broker.Publish(sse.Event{Type: "store.reloaded", Data: map[string]string{}})
		})
		if err != nil {
			logger.Warn("lore file watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

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

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		// Pending coalesced saves must land before exit.
		svc.Flush()

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
