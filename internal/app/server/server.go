package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"

	"guardhr/internal/domain/audit"
	"guardhr/internal/domain/auth"
	"guardhr/internal/domain/core"
	"guardhr/internal/domain/payroll"
	"guardhr/internal/domain/roster"
	"guardhr/internal/platform/config"
	"guardhr/internal/platform/crypto"
	"guardhr/internal/platform/db"
	"guardhr/internal/platform/metrics"
	"guardhr/internal/transport/http/api"
	audithandler "guardhr/internal/transport/http/handlers/audit"
	authhandler "guardhr/internal/transport/http/handlers/auth"
	corehandler "guardhr/internal/transport/http/handlers/core"
	payrollhandler "guardhr/internal/transport/http/handlers/payroll"
	rosterhandler "guardhr/internal/transport/http/handlers/roster"
	"guardhr/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	DB      *gorm.DB
	Metrics *metrics.Collector
	Cipher  *crypto.Cipher
	Router  http.Handler
}

// New opens the database, applies migrations, seeds the first operator and builds the
// router.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	gdb, err := db.Open(cfg.Database)
	if err != nil {
		return nil, err
	}
	app, err := NewWithDB(ctx, cfg, gdb)
	if err != nil {
		_ = db.Close(gdb)
		return nil, err
	}
	return app, nil
}

// NewWithDB wires the application onto an already open database.
func NewWithDB(ctx context.Context, cfg config.Config, gdb *gorm.DB) (*App, error) {
	cipher, err := crypto.New(cfg.Security.DataKey)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, gdb, Migrations()); err != nil {
		return nil, err
	}
	app := &App{Config: cfg, DB: gdb, Metrics: metrics.New(), Cipher: cipher}
	if err := app.seed(ctx); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	app.Router = app.routes()
	return app, nil
}

func (a *App) authService() *auth.Service {
	return auth.NewService(auth.NewStore(a.DB), a.Config.Auth.JWTSecret, a.Config.Auth.TokenTTL)
}

func (a *App) payrollService() *payroll.Service {
	return payroll.NewService(payroll.NewStore(a.DB), audit.New(a.DB), a.Metrics, payroll.Settings{
		Currency:        a.Config.Payroll.Currency,
		StrictTaxTables: a.Config.Payroll.StrictTaxTables,
	})
}

func (a *App) seed(ctx context.Context) error {
	created, err := a.authService().EnsureAdmin(ctx, a.Config.Seed.AdminUsername, a.Config.Seed.AdminPassword)
	if err != nil {
		return err
	}
	if created {
		slog.Info("seeded admin operator", "username", a.Config.Seed.AdminUsername)
	}
	if !a.Config.Seed.StatutoryDefaults {
		return nil
	}
	_, err = a.payrollService().EnsureDefaultRates(ctx)
	return err
}

func (a *App) routes() http.Handler {
	authService := a.authService()
	auditService := audit.New(a.DB)
	coreStore := core.NewStore(a.DB).WithCipher(a.Cipher)

	router := chi.NewRouter()
	router.Use(chimw.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(a.Metrics))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx, a.DB); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, a.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(middleware.BodyLimit(a.Config.HTTP.MaxBodyBytes))
		r.Use(middleware.Auth(authService))

		authHandler := authhandler.NewHandler(authService, auditService)
		r.With(middleware.LoginRateLimit(a.Config.HTTP.LoginAttempts, a.Config.HTTP.LoginWindow)).Post("/auth/login", authHandler.HandleLogin)
		authHandler.RegisterRoutes(r)

		coreHandler := corehandler.NewHandler(core.NewService(coreStore), auditService, authService)
		coreHandler.RegisterRoutes(r)

		payrollHandler := payrollhandler.NewHandler(a.payrollService(), authService)
		payrollHandler.RegisterRoutes(r)

		rosterHandler := rosterhandler.NewHandler(roster.NewService(roster.NewStore(a.DB), coreStore, auditService), authService)
		rosterHandler.RegisterRoutes(r)

		auditHandler := audithandler.NewHandler(auditService, authService)
		auditHandler.RegisterRoutes(r)
	})

	return router
}

func (a *App) Close() error {
	return db.Close(a.DB)
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func Run(ctx context.Context, cfg config.Config) error {
	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			slog.Warn("database close failed", "err", err)
		}
	}()

	srv := &http.Server{
		Addr:              cfg.App.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("guardhr server listening", "addr", cfg.App.Addr, "driver", cfg.Database.Driver)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	slog.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
