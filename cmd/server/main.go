package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"beefirst/internal/platform/config"
	"beefirst/internal/platform/httpserver"
	"beefirst/internal/platform/logger"
	"beefirst/internal/platform/metrics"
	"beefirst/internal/platform/middleware"
	"beefirst/internal/platform/postgres"
	"beefirst/internal/platform/redis"
	"beefirst/internal/registration/credentials"
	"beefirst/internal/registration/handler"
	regmetrics "beefirst/internal/registration/metrics"
	"beefirst/internal/registration/models"
	"beefirst/internal/registration/service"
	"beefirst/internal/registration/store"
	"beefirst/internal/registration/sweeper"
	"beefirst/pkg/platform/middleware/metadata"
	"beefirst/pkg/platform/middleware/requesttime"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal/registration.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, log)
	stop()
	if err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.RunMigrations {
		if err := postgres.Migrate(ctx, db, log); err != nil {
			return err
		}
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	hasher, err := credentials.NewHasher(cfg.Registration.BcryptCost)
	if err != nil {
		return err
	}
	policy := models.Policy{TTL: cfg.Registration.TTL, MaxAttempts: cfg.Registration.MaxAttempts}
	registrations := store.NewPostgres(db, hasher, policy, store.WithLockTimeout(cfg.Database.LockTimeout))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.New(registry)
	regMetrics := regmetrics.New(registry)

	sinks, err := buildSinks(cfg, redisClient, log)
	if err != nil {
		return err
	}
	defer sinks.Close()

	svc := service.New(registrations, sinks.notifier, hasher, credentials.NewCodeGenerator(),
		service.WithLogger(log),
		service.WithMetrics(regMetrics),
	)

	router := newRouter(cfg, svc, healthHandler(db, redisClient, log), httpMetrics, log)
	srv := httpserver.New(cfg.Server, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, srv, cfg.Server.ShutdownTimeout, log)
	})
	if sinks.worker != nil {
		g.Go(func() error { return sinks.worker.Run(gctx) })
	}
	if cfg.Registration.SweepInterval > 0 {
		sw := sweeper.New(registrations, cfg.Registration.SweepInterval,
			sweeper.WithLogger(log),
			sweeper.WithMetrics(regMetrics),
		)
		g.Go(func() error { return sw.Run(gctx) })
	}

	log.InfoContext(ctx, "beefirst started",
		"addr", cfg.Server.Addr,
		"notify_sink", cfg.Notify.Sink,
		"ttl", cfg.Registration.TTL,
		"max_attempts", cfg.Registration.MaxAttempts,
		"sweep_interval", cfg.Registration.SweepInterval,
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func newRouter(cfg config.Config, svc handler.Service, health http.HandlerFunc, httpMetrics *metrics.Metrics, log *slog.Logger) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	router.Use(metadata.ClientMetadata)
	router.Use(requesttime.Middleware)

	router.Get("/health", health)
	router.Handle("/metrics", httpMetrics.Handler())
	handler.New(svc, log, httpMetrics, cfg.Registration.TTL).Register(router)
	return router
}
