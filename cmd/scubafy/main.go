// Scubafy: dive-center operations backend.
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

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/api"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/api/handler"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/api/middleware"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/config"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/db"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/divecenter"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/health"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/observability"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/onboarding"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/seed"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/staff"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/subscription"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/version"
	"github.com/scubafy-dev/scubafy-app-sub001/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Observability -------------------------------------------------------
	obs, log, err := observability.New(ctx, &observability.Config{
		ServiceName:       "scubafy",
		ServiceVersion:    version.Version,
		LogLevel:          cfg.Log.Level,
		LogFormat:         cfg.Log.Format,
		OTLPEndpoint:      cfg.OTel.OTLPEndpoint,
		SentryDSN:         cfg.Sentry.DSN,
		SentryEnvironment: cfg.Sentry.Environment,
		SentrySampleRate:  cfg.Sentry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}
	defer obs.Shutdown(context.Background())
	slog.SetDefault(log)
	log.Info("starting scubafy", "build", version.String(), "db_driver", cfg.DB.Driver)

	// --- Database ------------------------------------------------------------
	// db.New opens the connection, runs migrations (AutoMigrate for SQLite,
	// golang-migrate for Postgres), and returns the GORM handle plus an
	// optional pgxpool (non-nil only for postgres, used by River).
	gormDB, pool, err := db.New(ctx, &cfg.DB)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	if pool != nil {
		defer pool.Close()
	}
	log.Info("database ready", "driver", cfg.DB.Driver)

	// --- Seed owner ----------------------------------------------------------
	if err := seed.EnsureOwner(ctx, gormDB, seed.OwnerOptions{
		Email:    cfg.App.SeedOwnerEmail,
		Password: cfg.App.SeedOwnerPassword,
	}, log); err != nil {
		return fmt.Errorf("seed owner: %w", err)
	}

	// --- Services ------------------------------------------------------------
	gate := subscription.NewGate(gormDB, log)
	staffSvc := staff.NewService(gormDB, log)
	flow := onboarding.NewFlow(gormDB, staffSvc, log, cfg.App.DefaultRedirect)
	centers := divecenter.NewService(gormDB, gate, log)

	// --- Worker queue --------------------------------------------------------
	// River migrations only run when Postgres is available.
	if pool != nil {
		if err := worker.MigrateRiver(ctx, pool); err != nil {
			return fmt.Errorf("river migrations: %w", err)
		}
		log.Info("river migrations applied")
	}

	wq, err := worker.New(pool, worker.Options{
		Driver:        cfg.DB.Driver,
		Concurrency:   cfg.Worker.Concurrency,
		SweepInterval: cfg.Worker.SweepInterval,
		Sweeper:       gate,
	}, log)
	if err != nil {
		return fmt.Errorf("create worker: %w", err)
	}
	if err := wq.Start(ctx); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := wq.Stop(stopCtx); err != nil {
			log.Error("worker stop error", "err", err)
		}
	}()

	// --- HTTP routes ---------------------------------------------------------
	mux := http.NewServeMux()
	api.RegisterRoutes(mux, api.Handlers{
		Health: health.New(
			health.Check{Name: "database", Pinger: db.NewPinger(gormDB)},
			health.Check{Name: "schema", Pinger: db.NewSchemaCheck(gormDB)},
		),
		Auth:         handler.NewAuthHandler(gormDB, gate, log, cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL),
		Subscription: handler.NewSubscriptionHandler(gate, log),
		Onboarding:   handler.NewOnboardingHandler(flow, log, cfg.JWT.Secret, cfg.JWT.AccessTTL),
		Staff:        handler.NewStaffHandler(staffSvc, log, cfg.JWT.Secret, cfg.JWT.AccessTTL),
		DiveCenters:  handler.NewDiveCenterHandler(centers, log),
	}, api.Deps{
		DB:          gormDB,
		Gate:        gate,
		Logger:      log,
		JWTSecret:   cfg.JWT.Secret,
		StaffLimits: middleware.NewRateLimiter(cfg.RateLimit.StaffCodePerMinute, cfg.RateLimit.StaffCodeBurst),
	})
	// Prometheus metrics endpoint
	mux.Handle("GET /metrics", promhttp.Handler())

	var root http.Handler = mux
	if obs.SentryEnabled() {
		root = sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle(mux)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Start server --------------------------------------------------------
	log.Info("http server listening", "addr", srv.Addr)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info("server stopped cleanly")
	return nil
}
