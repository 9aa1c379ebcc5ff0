// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer (the composition root). It is the only
// place that knows about concrete types:
//
//	config.Config
//	  → sqlite.DB                      (repository.SignalRepository)
//	  → s3store.Store / localstore.Store (objectstore.Store)
//	  → service.SignalService
//	  → handler.SignalHandler, handler.HealthHandler
//
// Everything below it only sees interfaces.
package server

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
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/signal-registry/internal/auth"
	"github.com/sakif/signal-registry/internal/config"
	"github.com/sakif/signal-registry/internal/handler"
	"github.com/sakif/signal-registry/internal/middleware"
	"github.com/sakif/signal-registry/internal/objectstore"
	"github.com/sakif/signal-registry/internal/objectstore/localstore"
	"github.com/sakif/signal-registry/internal/objectstore/s3store"
	sqliteRepo "github.com/sakif/signal-registry/internal/repository/sqlite"
	"github.com/sakif/signal-registry/internal/service"
)

// shutdownTimeout is how long in-flight requests get to finish on SIGINT/SIGTERM.
const shutdownTimeout = 30 * time.Second

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the database connection and closes it on shutdown.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	tokens *auth.TokenService // nil when authentication is disabled
}

// New opens the database and object store described by cfg and builds the router.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	// === CREATE DATABASE ===
	db, err := OpenDB(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	// === CREATE OBJECT STORE ===
	objects, err := newObjectStore(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("opening object store: %w", err)
	}

	// === AUTH (optional) ===
	var tokens *auth.TokenService
	if cfg.AuthEnabled() {
		tokens, err = NewTokenService(cfg)
		if err != nil {
			db.Close()
			return nil, err
		}
	} else {
		logger.Warn("JWT_SECRET not set, authentication is disabled")
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
		tokens: tokens,
	}

	svc := service.NewSignalService(db, objects, service.AllocationScope(cfg.SignalIDScope), logger)
	s.setupRoutes(svc)

	return s, nil
}

// OpenDB creates the database directory if needed, then opens and migrates
// the database. Also used by the migrate command.
func OpenDB(path string) (*sqliteRepo.DB, error) {
	if path != sqliteRepo.MemoryPath {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory %s: %w", dir, err)
		}
	}

	db, err := sqliteRepo.New(path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// NewTokenService builds the JWT service from the JWT_* settings.
func NewTokenService(cfg config.Config) (*auth.TokenService, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, auth.TokenOptions{
		Algorithm: cfg.JWTAlgo,
		Issuer:    cfg.JWTIssuer,
		TTL:       cfg.TokenTTL(),
	})
	if err != nil {
		return nil, fmt.Errorf("configuring authentication: %w", err)
	}
	return tokens, nil
}

// newObjectStore picks the object store backend named by OBJECT_STORE.
func newObjectStore(ctx context.Context, cfg config.Config) (objectstore.Store, error) {
	switch cfg.ObjectStore {
	case config.ObjectStoreLocal:
		return localstore.New(cfg.LocalObjectDir, cfg.Bucket)
	case config.ObjectStoreS3:
		return s3store.New(ctx, s3store.Config{
			Bucket:          cfg.Bucket,
			Region:          cfg.AWSRegion,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
	}
	return nil, fmt.Errorf("unknown object store %q", cfg.ObjectStore)
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /healthz              → liveness, pings the database
// POST   /api/signal/create    → create a signal
// PUT    /api/signal/modify    → modify a signal
// DELETE /api/signal/modify    → delete a signal
// GET    /api/signal/read      → read a signal's CSV
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID: tags the request so every later log line can carry the ID
// 2. RealIP: extracts the client IP from proxy headers
// 3. Logger: logs each request with timing info
// 4. Recoverer: turns a panic into a 500 (inside Logger, so the 500 is logged)
// 5. RequireAuth: /api only, and only when JWT_SECRET is set
func (s *Server) setupRoutes(svc *service.SignalService) {
	s.router.Use(middleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	healthHandler := handler.NewHealthHandler(s.db, s.logger)
	s.router.Get("/healthz", healthHandler.HandleHealth)

	signalHandler := handler.NewSignalHandler(svc, handler.Mode(s.config.ResponseMode), s.logger)

	s.router.Route("/api/signal", func(r chi.Router) {
		if s.tokens != nil {
			r.Use(auth.RequireAuth(s.tokens))
		}
		r.Post("/create", signalHandler.HandleCreate)
		r.Put("/modify", signalHandler.HandleModify)
		r.Delete("/modify", signalHandler.HandleDelete)
		r.Get("/read", signalHandler.HandleRead)
	})
}

// Handler returns the root HTTP handler. Tests drive it with httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Start calls it itself on the way out.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start starts the HTTP server and blocks until SIGINT/SIGTERM or ctx is done.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start(ctx context.Context) error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
			slog.String("objectStore", s.config.ObjectStore),
			slog.String("bucket", s.config.Bucket),
			slog.String("responseMode", s.config.ResponseMode),
			slog.Bool("auth", s.tokens != nil),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
