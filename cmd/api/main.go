// Package main is the entry point for the QRFeedback API server.
//
// It loads configuration, connects the PostgreSQL pool, wires the Stripe and
// identity clients, and mounts the HTTP surface on the core chassis
// (middleware, routing, health checks).
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

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
	"github.com/jackc/pgx/v5/pgxpool"

	"qrfeedback/internal/api/handlers"
	"qrfeedback/internal/billing"
	"qrfeedback/internal/config"
	"qrfeedback/internal/core"
	"qrfeedback/internal/dashboard"
	"qrfeedback/internal/db"
	"qrfeedback/internal/external"
	"qrfeedback/internal/loader"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("qrfeedback API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	// Database pool.
	pool, err := newDBPool(context.Background(), cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}

	// Repositories.
	formRepo := db.NewFormRepository(pool)
	responseRepo := db.NewResponseRepository(pool)
	profileRepo := db.NewProfileRepository(pool)

	// Plan catalog and usage enforcement.
	catalog := billing.NewStaticCatalog()
	enforcer := billing.NewUsageEnforcer(profileRepo, &usageCounters{
		forms:     formRepo,
		responses: responseRepo,
	}, catalog)

	// Outbound clients.
	stripeClient := external.NewStripeClient(&http.Client{Timeout: 30 * time.Second}, external.StripeClientConfig{
		SecretKey:  cfg.Billing.StripeSecretKey.Unmask(),
		SuccessURL: cfg.Billing.CheckoutSuccessURL,
		CancelURL:  cfg.Billing.CheckoutCancelURL,
		Logger:     logger,
	})
	identityClient := external.NewIdentityClient(
		&http.Client{Timeout: cfg.Auth.Timeout},
		profileRepo,
		external.IdentityClientConfig{
			BaseURL: cfg.Auth.BaseURL,
			APIKey:  cfg.Auth.APIKey.Unmask(),
			Logger:  logger,
		},
	)

	// Dashboard snapshot service with the default read-timeout contract.
	dashboardSvc := dashboard.NewService(profileRepo, formRepo, loader.Options{}, logger)

	// Build the server.
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	srv.Authenticator = identityClient
	srv.HealthProbes = append(srv.HealthProbes, &dbProbe{pool: pool})
	srv.RegisterCloser(func() error {
		pool.Close()
		return nil
	})

	// Handlers.
	formHandler := handlers.NewFormHandler(formRepo, dashboardSvc, enforcer, srv.Validator, logger, cfg.Server.AppBaseURL)
	responseHandler := handlers.NewResponseHandler(formRepo, responseRepo, logger)
	feedbackHandler := handlers.NewFeedbackHandler(formRepo, responseRepo, enforcer, logger)
	profileHandler := handlers.NewProfileHandler(profileRepo, catalog, logger)
	dashboardHandler := handlers.NewDashboardHandler(dashboardSvc, logger)
	billingHandler := handlers.NewBillingHandler(catalog, stripeClient, logger)
	webhookHandler := handlers.NewStripeWebhookHandler(
		&external.StripeVerifier{},
		profileRepo,
		catalog,
		cfg.Billing.StripeWebhookSecret.Unmask(),
		logger,
	)

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		formHandler.RegisterRoutes,
		responseHandler.RegisterRoutes,
		feedbackHandler.RegisterRoutes,
		profileHandler.RegisterRoutes,
		dashboardHandler.RegisterRoutes,
		billingHandler.RegisterRoutes,
		webhookHandler.RegisterRoutes,
	)
	srv.RootRouteRegistrars = append(srv.RootRouteRegistrars,
		func(r chi.Router) { billingHandler.RegisterLegacyRoutes(r) },
	)

	srv.MountRoutes()

	return runHTTPServer(srv, cfg, logger)
}

// newDBPool builds and verifies the PostgreSQL connection pool.
func newDBPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL.Unmask())
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod
	poolCfg.ConnConfig.ConnectTimeout = cfg.AcquireTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// runHTTPServer starts the server with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: lvl,
	})
	return slog.New(handler)
}

// usageCounters adapts the two repositories into the single counting
// dependency the usage enforcer expects.
type usageCounters struct {
	forms     *db.FormRepository
	responses *db.ResponseRepository
}

func (u *usageCounters) CountForms(ctx context.Context, userID string) (int, error) {
	return u.forms.CountForms(ctx, userID)
}

func (u *usageCounters) CountResponsesThisMonth(ctx context.Context, userID string) (int, error) {
	return u.responses.CountResponsesThisMonth(ctx, userID)
}

// dbProbe reports database reachability for the health endpoint.
type dbProbe struct {
	pool *pgxpool.Pool
}

func (p *dbProbe) Name() string { return "database" }

func (p *dbProbe) Check(ctx context.Context) error {
	return p.pool.Ping(ctx)
}
