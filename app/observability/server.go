package observability

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Server exposes /metrics and /healthz.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// NewServer builds the ops HTTP server. Every check must pass for /healthz to return 200.
func NewServer(addr string, registry *prometheus.Registry, logger *slog.Logger, checks map[string]HealthCheck) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		for name, check := range checks {
			if err := check(req.Context()); err != nil {
				logger.WarnContext(req.Context(), "Health check failed",
					slog.String("check", name),
					slog.String("error", err.Error()))
				http.Error(w, name+": "+err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Ops server listening", slog.String("address", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
