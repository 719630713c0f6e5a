// Package health serves the liveness endpoint polled by the hosting platform,
// plus the Prometheus scrape endpoint.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3rciful/invitebot/core/logger"
)

// ShutdownTimeout bounds graceful shutdown of the listener.
const ShutdownTimeout = 5 * time.Second

// Server answers GET / with 200 "OK" regardless of bot state.
type Server struct {
	addr     string
	router   *chi.Mux
	server   *http.Server
	listener net.Listener
}

// NewServer builds the liveness server for addr. Nothing is bound until Start.
func NewServer(addr string) *Server {
	s := &Server{
		addr:   addr,
		router: chi.NewRouter(),
	}
	s.router.Use(middleware.Recoverer)
	s.router.Get("/", handleLiveness)
	s.router.Head("/", handleLiveness)
	s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start binds the listener and serves in the background. A bind failure is
// returned to the caller so startup can abort.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("health: listen %s: %w", s.addr, err)
	}
	s.listener = ln

	logger.Info(context.Background(), "health", "health.listen",
		slog.String("status", "ok"),
		slog.String("addr", ln.Addr().String()),
	)

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "health", "health.serve",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
	}()
	return nil
}

// Addr reports the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Shutdown stops accepting connections and waits up to ShutdownTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, ShutdownTimeout)
	defer cancel()

	err := s.server.Shutdown(ctx)
	logger.Info(ctx, "health", "health.shutdown", slog.String("status", logger.Status(err)))
	return err
}

func handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
