// Package sandbox assembles the local GameTester dev-api backend
package sandbox

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/alexbotov/gametester/internal/api"
	"github.com/alexbotov/gametester/internal/audit"
	"github.com/alexbotov/gametester/internal/auth"
	"github.com/alexbotov/gametester/internal/config"
	"github.com/alexbotov/gametester/internal/control"
	"github.com/alexbotov/gametester/internal/database"
	"github.com/alexbotov/gametester/internal/rng"
	"github.com/alexbotov/gametester/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"
)

// Server is a configured sandbox backend
type Server struct {
	config *config.Config
	logger *slog.Logger

	store   store.Store
	db      *database.DB
	auth    *auth.Service
	control *control.Service
	audit   *audit.Service
	rng     *rng.Service

	registry *prometheus.Registry
	handler  http.Handler
}

// New builds a server on the store cfg selects: PostgreSQL when a DSN is
// configured (migrated on startup), the in-memory store otherwise.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg.Database.DSN == "" {
		return NewWithStore(cfg, store.NewMemory(), logger), nil
	}

	db, err := database.New(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	s := NewWithStore(cfg, db, logger)
	s.db = db
	return s, nil
}

// NewWithStore builds a server on st
func NewWithStore(cfg *config.Config, st store.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		config:   cfg,
		logger:   logger,
		store:    st,
		auth:     auth.New(st, &cfg.Auth),
		control:  control.New(st),
		audit:    audit.New(st),
		rng:      rng.New(),
		registry: prometheus.NewRegistry(),
	}

	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	h := api.New(s.auth, s.control, s.audit, api.NewMetrics(s.registry), logger)
	s.handler = h.SetupRouter(s.registry)
	return s
}

// Handler returns the HTTP handler serving the dev-api
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Store returns the backing store
func (s *Server) Store() store.Store {
	return s.store
}

// Auth returns the credential service
func (s *Server) Auth() *auth.Service {
	return s.auth
}

// Close releases the database connection, if any
func (s *Server) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ListenAndServe listens on the configured address and serves until ctx is done
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.Addr)
	if err != nil {
		return oops.Code("SERVER_LISTEN").In("sandbox").With("addr", s.config.Server.Addr).Wrap(err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("sandbox listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return oops.Code("SERVER_SERVE").In("sandbox").Wrap(err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down sandbox", "timeout", s.config.Server.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return oops.Code("SERVER_SHUTDOWN").In("sandbox").Wrap(err)
		}
		return nil
	})

	return g.Wait()
}
