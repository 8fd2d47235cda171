// Package core provides the API chassis for the QRFeedback service.
// It creates a chi router and enforces cross-cutting concerns -- security,
// logging, and error handling -- before requests reach domain handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"qrfeedback/internal/config"
)

// RouteRegistrar registers a group of handler routes on a router. Handler
// packages expose one per handler; main.go collects them. This indirection
// avoids import cycles between core and handler packages.
type RouteRegistrar func(chi.Router)

// Server encapsulates all dependencies for the API, allowing for easy
// injection during testing and distinct configuration for different
// environments.
type Server struct {
	Config        *config.Config
	Logger        *slog.Logger
	Validator     *Validator
	Authenticator Authenticator // Resolves tokens to Actors; injected for testability.
	HealthProbes  []HealthProbe

	// V1RouteRegistrars mount under the /v1 prefix behind auth.
	V1RouteRegistrars []RouteRegistrar
	// RootRouteRegistrars mount at the router root. Used for the legacy
	// checkout endpoint, whose path predates /v1.
	RootRouteRegistrars []RouteRegistrar

	// closers run during Shutdown, in registration order.
	closers []func() error

	router *chi.Mux
}

// NewServer initializes dependencies, sets up the router, and prepares the
// server for route mounting. It performs a fail-fast check on critical
// dependencies.
//
// The caller is responsible for mounting routes (via MountRoutes) after
// construction. This separation allows tests to customize route registration.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	s := &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}

	return s, nil
}

// Handler returns the http.Handler interface for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
// This is used internally by route-mounting methods and tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// RegisterCloser adds a cleanup function invoked during Shutdown.
// Typically used for database connection pools.
func (s *Server) RegisterCloser(fn func() error) {
	s.closers = append(s.closers, fn)
}

// Shutdown performs a graceful termination of server resources, closing
// registered resources in order. The first error is returned after all
// closers have run.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")

	var firstErr error
	for _, close := range s.closers {
		if err := close(); err != nil {
			s.Logger.Error("error during shutdown", "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("closing server resources: %w", err)
			}
		}
	}

	s.Logger.Info("server shutdown complete")
	return firstErr
}
