package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"beefirst/internal/platform/postgres"
	"beefirst/internal/platform/redis"
	"beefirst/pkg/platform/httputil"
)

type healthChecker interface {
	Health(ctx context.Context) error
}

// healthHandler reports ok when the database, and redis when configured, answer
// within a short deadline.
func healthHandler(db *sql.DB, redisClient *redis.Client, log *slog.Logger) http.HandlerFunc {
	var cache healthChecker
	if redisClient != nil {
		cache = redisClient
	}
	return checkHealth(func(ctx context.Context) error { return postgres.Health(ctx, db) }, cache, log)
}

func checkHealth(database func(context.Context) error, cache healthChecker, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"status": "ok", "database": "ok"}
		code := http.StatusOK
		if err := database(ctx); err != nil {
			log.WarnContext(ctx, "health check failed", "component", "database", "error", err)
			status["status"], status["database"] = "unavailable", "unavailable"
			code = http.StatusServiceUnavailable
		}
		if cache != nil {
			status["redis"] = "ok"
			if err := cache.Health(ctx); err != nil {
				log.WarnContext(ctx, "health check failed", "component", "redis", "error", err)
				status["status"], status["redis"] = "unavailable", "unavailable"
				code = http.StatusServiceUnavailable
			}
		}
		httputil.WriteJSON(w, code, status)
	}
}
