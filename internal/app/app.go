// Package app wires configuration, the key-value store, the domain
// components and the HTTP transport into a runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"smartfile/internal/config"
	"smartfile/internal/infrastructure"
	"smartfile/internal/license"
	"smartfile/internal/middleware"
	"smartfile/internal/ratelimit"
	"smartfile/internal/services"
	"smartfile/internal/session"
	"smartfile/internal/store"
	handlers "smartfile/internal/transport/http"
)

// Application is the assembled entitlement service.
type Application struct {
	Config *config.Config
	Logger *slog.Logger
	Router *chi.Mux
	Server *http.Server

	store store.Store
	rdb   *redis.Client
	guard *middleware.ActivationGuard
}

// New builds the application from configuration.
func New(cfg *config.Config) (*Application, error) {
	logger := infrastructure.NewLogger(cfg.Logging)

	app := &Application{
		Config: cfg,
		Logger: logger,
	}

	if cfg.Redis.Addr != "" {
		app.rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		app.store = store.NewRedisStore(app.rdb, store.WithPrefix(cfg.Redis.KeyPrefix))
		logger.Info("using redis store", slog.String("addr", cfg.Redis.Addr))
	} else {
		app.store = store.NewMemoryStore()
		logger.Warn("no redis address configured, using in-memory store; " +
			"state will not survive restarts and cannot be shared between instances")
	}

	registry := license.NewRegistry(app.store, logger)
	sessions := session.NewManager(app.store, logger, session.WithTTL(cfg.Entitlement.SessionTTL))
	limiter := ratelimit.NewLimiter(app.store, logger,
		ratelimit.WithCeiling(cfg.Entitlement.FreeCeiling),
		ratelimit.WithWindow(cfg.Entitlement.FreeWindow))
	service := services.NewEntitlementService(registry, sessions, limiter, logger)

	identity := middleware.ClientIdentity(cfg.Entitlement.TrustedIPHeader)

	if cfg.Security.ActivationRate.Enabled {
		app.guard = middleware.NewActivationGuard(
			cfg.Security.ActivationRate.RPS,
			cfg.Security.ActivationRate.Burst,
			identity,
			logger)
	}

	app.Router = app.buildRouter(service, identity)
	app.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      app.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return app, nil
}

func (a *Application) buildRouter(service services.EntitlementService, identity middleware.IdentityFunc) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.StructuredLogger(a.Logger))
	r.Use(middleware.Recoverer(a.Logger))
	r.Use(middleware.CORS(a.Config.Security.AllowedOrigin))
	r.Use(middleware.SecurityHeaders)

	entitlements := handlers.NewEntitlementHandler(service, identity, a.Logger)
	var guard func(http.Handler) http.Handler
	if a.guard != nil {
		guard = a.guard.Handler
	}
	r.Mount("/api", entitlements.Routes(guard))

	health := handlers.NewHealthHandler(a.store, a.Logger)
	r.Get("/healthz", health.Check)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// Run serves HTTP until SIGINT/SIGTERM, then shuts down gracefully.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.guard != nil {
		a.guard.StartJanitor(ctx, 2*time.Minute)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.Logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()

		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		if a.rdb != nil {
			if err := a.rdb.Close(); err != nil {
				a.Logger.Warn("closing redis client", slog.String("error", err.Error()))
			}
		}
		return nil
	})

	return g.Wait()
}
