// Copyright (c) 2026 Zaid Dildar
//
// This file is part of evote-auth.
//
// evote-auth is licensed under the MIT License.
// See the LICENSE file for details.

// Package server assembles the biometric authentication service: storage,
// ceremony handlers, rate limiting, metrics, and the HTTP listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Zaid-Dildar/evote-auth/internal/config"
	"github.com/Zaid-Dildar/evote-auth/internal/storage/sqlite"
	"github.com/Zaid-Dildar/evote-auth/pkg/biometric"
	biometrichttp "github.com/Zaid-Dildar/evote-auth/pkg/biometric/http"
	"github.com/Zaid-Dildar/evote-auth/pkg/correlation"
	"github.com/Zaid-Dildar/evote-auth/pkg/logging"
	"github.com/Zaid-Dildar/evote-auth/pkg/metrics"
	"github.com/Zaid-Dildar/evote-auth/pkg/ratelimit"
)

// Server represents the biometric authentication server.
type Server struct {
	config  *config.Config
	logger  *slog.Logger
	service *biometric.Service
	limiter *ratelimit.Limiter

	// sqliteStore is non-nil when the sqlite backend is configured and is
	// closed on shutdown.
	sqliteStore *sqlite.Store

	httpServer *http.Server
	listener   net.Listener

	mu         sync.Mutex
	shutdownCh chan struct{}
}

// New creates a new server instance from configuration.
func New(cfg *config.Config) (*Server, error) {
	logger := setupLogger(cfg.Logging)

	s := &Server{
		config:     cfg,
		logger:     logger,
		shutdownCh: make(chan struct{}),
	}

	var users biometric.UserStore
	var creds biometric.CredentialStore
	switch cfg.Storage.Backend {
	case "sqlite":
		store, err := sqlite.Open(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
		s.sqliteStore = store
		users, creds = store, store
		logger.Info("SQLite storage initialized", "path", cfg.Storage.Path)
	case "memory":
		users = biometric.NewMemoryUserStore()
		creds = biometric.NewMemoryCredentialStore()
		logger.Warn("Using in-memory storage, state is lost on restart")
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}

	service, err := biometric.NewService(biometric.ServiceParams{
		Config: &biometric.Config{
			ChallengeSize: cfg.Biometric.ChallengeSize,
			ChallengeTTL:  cfg.Biometric.ChallengeTTL,
			Debug:         cfg.Logging.Level == "debug",
		},
		UserStore:       users,
		CredentialStore: creds,
	})
	if err != nil {
		s.closeStorage()
		return nil, fmt.Errorf("failed to create biometric service: %w", err)
	}
	s.service = service

	metrics.SetEnabled(cfg.Metrics.Enabled)
	s.limiter = ratelimit.New(&cfg.RateLimit)

	s.httpServer = &http.Server{
		Handler:           s.buildRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// setupLogger configures the logger based on config
func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	return logging.New(cfg.Level, cfg.Format).Slog()
}

// buildRouter wires the ceremony routes behind rate limiting, plus the
// operational endpoints.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(correlation.Middleware)
	r.Use(s.requestLogger)
	if s.config.Metrics.Enabled {
		r.Use(metrics.HTTPMiddleware)
	}

	r.Get("/healthz", s.handleHealth)
	if s.config.Metrics.Enabled {
		r.Handle(s.config.Metrics.Path, promhttp.Handler())
	}

	handler := biometrichttp.NewHandler(s.service).WithLogger(s.logger)
	r.Route("/api/v1/biometric", func(r chi.Router) {
		r.Use(ratelimit.Middleware(s.limiter))
		biometrichttp.MountChi(r, handler)
	})

	return r
}

// requestLogger logs one line per request with the correlation ID attached.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("Request handled",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("correlation_id", correlation.GetCorrelationID(r.Context())))
	})
}

// handleHealth reports liveness. Storage reachability counts as healthy;
// a broken database surfaces as 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.sqliteStore != nil {
		if err := s.sqliteStore.DB().PingContext(r.Context()); err != nil {
			s.logger.Error("Health check failed", slog.Any("error", err))
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("unhealthy\n"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// Start begins listening. It returns once the listener is bound; request
// serving continues in the background until Shutdown.
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.config.Server.Host, fmt.Sprintf("%d", s.config.Server.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.logger.Info("Server listening", "addr", listener.Addr().String())

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", slog.Any("error", err))
		}
	}()

	return nil
}

// Addr returns the bound listener address, useful when the configured port
// is 0.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run starts the server and blocks until the context is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	return s.Shutdown()
}

// Shutdown stops the server gracefully and releases storage.
func (s *Server) Shutdown() error {
	s.logger.Info("Shutting down server...")

	timeout := s.config.Server.ShutdownTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Error shutting down HTTP server", slog.Any("error", err))
		errs = append(errs, err)
	}

	s.limiter.Stop()
	if err := s.closeStorage(); err != nil {
		s.logger.Error("Error closing storage", slog.Any("error", err))
		errs = append(errs, err)
	}

	close(s.shutdownCh)
	s.logger.Info("Server shutdown complete")
	return errors.Join(errs...)
}

// closeStorage closes the durable store if one is open.
func (s *Server) closeStorage() error {
	if s.sqliteStore == nil {
		return nil
	}
	err := s.sqliteStore.Close()
	s.sqliteStore = nil
	return err
}

// WaitForShutdown blocks until the server is shut down.
func (s *Server) WaitForShutdown() {
	<-s.shutdownCh
}

// Service exposes the biometric service for embedding callers.
func (s *Server) Service() *biometric.Service {
	return s.service
}

// SetupSignalHandler sets up signal handling for graceful shutdown.
func SetupSignalHandler() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-signalCh
		slog.Info("Received shutdown signal")
		cancel()
	}()

	return ctx
}
