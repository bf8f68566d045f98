// Package app wires configuration, services, and the HTTP surface into
// a runnable application.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"saaspulse/internal/config"
	apierrors "saaspulse/internal/errors"
	"saaspulse/internal/ingest"
	"saaspulse/internal/metrics"
	custommw "saaspulse/internal/middleware"
	"saaspulse/internal/services"
	"saaspulse/internal/session"
	handlers "saaspulse/internal/transport/http"
)

// Version identifies the build. Overridable at link time.
var Version = "dev"

// Application is the main application container
type Application struct {
	Config *config.Config
	Router *chi.Mux
	Server *http.Server
	Logger *slog.Logger

	store      *session.Store
	financials *services.FinancialService
	insights   *services.InsightService
	health     *services.HealthService
}

// New assembles the application from configuration.
func New(cfg *config.Config, logger *slog.Logger) *Application {
	store := session.NewStore(cfg.Session.TTL, logger)
	metrics.RegisterSessionGauge(func() float64 { return float64(store.Count()) })

	parser := ingest.NewParser(logger).WithMaxRows(cfg.Upload.MaxRows)

	a := &Application{
		Config:     cfg,
		Logger:     logger,
		store:      store,
		financials: services.NewFinancialService(parser, store, logger),
		insights:   services.NewInsightService(cfg.Insights, logger),
		health:     services.NewHealthService(Version, store),
	}
	a.setupRouter()
	a.Server = &http.Server{
		Addr:           cfg.Address(),
		Handler:        a.Router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}
	return a
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	errorHandler := apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)
	sessions := handlers.NewSessionCookie(a.Config.Session.CookieName)

	r.Use(custommw.RequestID)
	r.Use(custommw.RealIP)
	r.Use(custommw.StructuredLogger(a.Logger))
	r.Use(custommw.Recoverer(a.Logger))
	r.Use(custommw.Timeout(a.Config.Server.RequestTimeout, a.Logger))
	r.Use(custommw.Compress(5))
	r.Use(custommw.SecurityHeaders)
	r.Use(custommw.StripSlashes)

	if a.Config.Security.EnableCORS {
		r.Use(custommw.CORS(custommw.CORSConfig{
			AllowedOrigins:   a.Config.Security.AllowedOrigins,
			AllowCredentials: true,
			Logger:           a.Logger,
		}))
	}
	if a.Config.Security.RateLimit.Enabled {
		limiter := custommw.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
		)
		r.Use(limiter.Handler)
	}

	r.Route("/api", func(r chi.Router) {
		r.With(custommw.MaxBytes(a.Config.Upload.MaxBytes)).
			Mount("/financials", handlers.NewFinancialHandler(
				a.financials, sessions, a.Config.Upload.MaxBytes, a.Logger, errorHandler).Routes())
		r.Mount("/insights", handlers.NewInsightHandler(
			a.financials, a.insights, sessions, a.Logger, errorHandler).Routes())
		r.Mount("/health", handlers.NewHealthHandler(a.health).Routes())
	})
	r.Handle("/metrics", metrics.Handler())

	a.Router = r
}

// Run starts the HTTP server and the session janitor, blocking until
// the context is cancelled or a fatal error occurs, then shuts down
// gracefully.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(ctx, "server listening",
			slog.String("address", a.Server.Addr),
			slog.String("version", Version))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.store.StartJanitor(a.Config.Session.JanitorInterval)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.Logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()

		a.store.Stop()
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil
	})

	return g.Wait()
}
