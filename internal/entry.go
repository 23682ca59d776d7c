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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/starford/tourdesk/internal/api"
	"github.com/starford/tourdesk/internal/catalog"
	"github.com/starford/tourdesk/internal/itinerary"
	"github.com/starford/tourdesk/internal/mcpserver"
	"github.com/starford/tourdesk/internal/models"
	"github.com/starford/tourdesk/internal/sse"
	"github.com/starford/tourdesk/internal/storage"
	"github.com/starford/tourdesk/internal/store"
)

// components are the pieces shared by the HTTP and MCP front ends.
type components struct {
	logger  *slog.Logger
	db      *store.DB
	files   storage.Provider
	catalog *catalog.Service
}

func (a *application) setup(ctx context.Context, opts []Option) (*components, error) {
	for _, opt := range opts {
		opt(a)
	}
	if a.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := a.config

	out := a.logOutput
	if out == nil {
		out = os.Stdout
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_driver", cfg.Store.Driver),
		slog.String("catalog_path", cfg.Catalog.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	db, err := store.Open(cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	c := &components{logger: logger, db: db}

	if cfg.Catalog.Path == "" {
		return c, nil
	}
	if err := os.MkdirAll(cfg.Catalog.Path, 0o755); err != nil {
		db.Close()
		return nil, fmt.Errorf("create catalog dir: %w", err)
	}
	if c.files, err = storage.NewFS(cfg.Catalog.Path); err != nil {
		db.Close()
		return nil, fmt.Errorf("init catalog storage: %w", err)
	}
	stats, err := catalog.Sync(ctx, db, c.files, logger)
	if err != nil {
		logger.Warn("initial catalog sync failed", slog.String("error", err.Error()))
	} else {
		logger.Info("catalog synced",
			slog.Int("indexed", stats.Indexed),
			slog.Int("removed", stats.Removed),
			slog.Int("failed", stats.Failed))
	}
	return c, nil
}

// Run starts the HTTP application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	c, err := app.setup(ctx, opts)
	if err != nil {
		return err
	}
	defer c.db.Close()

	cfg := app.config
	logger := c.logger

	broker := sse.NewBroker(cfg.Events.Throttle)
	defer broker.Close()

	onCatalogChange := catalogFeed(broker, logger)
	if c.files != nil {
		c.catalog = catalog.NewService(c.db, c.files, onCatalogChange)
	}

	svc := itinerary.NewService(c.db,
		itinerary.WithNotifier(broker),
		itinerary.WithOpTimeout(cfg.Store.OpTimeout),
	)
	apiRouter := api.NewRouter(svc, c.catalog, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		pingCtx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := c.db.Ping(pingCtx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.App.MetricsPath != "" {
		r.Handle(cfg.App.MetricsPath, promhttp.Handler())
	}

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	if c.files != nil && cfg.Catalog.Watch {
		g.Go(func() error {
			if err := catalog.Watch(gCtx, c.db, c.files, cfg.Catalog.Path, logger, onCatalogChange); err != nil {
				logger.Error("catalog watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

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

		logger.Info("Shutting down server...", slog.Int("event_clients", broker.ClientCount()))

		// Close the feed first so open SSE streams end and Shutdown can drain.
		broker.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
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

// catalogEvent is the payload of a catalog.updated event.
type catalogEvent struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
}

// catalogFeed returns the catalog callback that announces file changes on
// the event stream. kind is created, updated or deleted.
func catalogFeed(broker *sse.Broker, logger *slog.Logger) catalog.EventCallback {
	return func(kind, path string) {
		broker.Publish(sse.Event{
			Type: models.EventCatalogUpdated,
			Data: catalogEvent{Kind: kind, Path: path},
		})
		logger.Debug("catalog changed", slog.String("kind", kind), slog.String("path", path))
	}
}

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the itinerary tools over stdio until stdin closes.
func RunMCP(ctx context.Context, opts ...Option) error {
	app := &application{}
	c, err := app.setup(ctx, opts)
	if err != nil {
		return err
	}
	defer c.db.Close()

	if c.files != nil {
		c.catalog = catalog.NewService(c.db, c.files, nil)
	}
	svc := itinerary.NewService(c.db, itinerary.WithOpTimeout(app.config.Store.OpTimeout))

	c.logger.Info("MCP server starting on stdio")
	return mcpserver.New(svc, c.catalog).ServeStdio()
}
