// Package server exposes the gateway over HTTP: one route to run a provider operation,
// one to receive gateway notifications, and an audit timeline per run.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tjfontaine/polyglot-pay-gateway/internal/auth"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/domain"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/core/ports"
	"github.com/tjfontaine/polyglot-pay-gateway/internal/pkg/config"
)

// Gateway is the subset of the runtime the HTTP surface drives.
type Gateway interface {
	Run(ctx context.Context, driver, operation string, params map[string]any) (any, error)
	Callback(ctx context.Context, driver string, r *http.Request) (any, error)
	Events(ctx context.Context, opts ports.AuditListOptions) ([]*domain.AuditRecord, error)
}

type Server struct {
	Router *chi.Mux
	Port   int
	logger *slog.Logger
	srv    *http.Server
}

func New(cfg config.ServerConfig, logger *slog.Logger, gw Gateway) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	// Apply middleware in order
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(TimeoutMiddleware(cfg.RequestTimeout))
	r.Use(middleware.Recoverer)

	// Wrap with OpenTelemetry HTTP instrumentation
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "paygate")
	})

	h := &handlers{gw: gw, logger: logger}
	r.Get("/healthz", h.health)
	r.Post("/notify/{driver}", h.notify)
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(auth.NewAuthenticator(cfg.APIKeys)))
		r.Post("/v1/{driver}/{operation}", h.run)
		r.Get("/v1/rockets/{rocketID}/events", h.events)
	})

	s := &Server{
		Router: r,
		Port:   cfg.Port,
		logger: logger,
	}
	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}
	return s
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting server", slog.Int("port", s.Port))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
