// Package sweeper periodically expires stale claims so their password hashes
// are purged even when nobody retries verification. Lazy expiry during
// verification stays authoritative; the sweeper only shortens how long a
// stale hash can linger.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"beefirst/internal/registration/metrics"
)

// Expirer expires CLAIMED rows older than the TTL and reports how many.
type Expirer interface {
	ExpireStale(ctx context.Context) (int64, error)
}

type Sweeper struct {
	store    Expirer
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Sweeper)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sweeper) {
		s.metrics = m
	}
}

func New(store Expirer, interval time.Duration, opts ...Option) *Sweeper {
	s := &Sweeper{store: store, interval: interval, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sweeps every interval until ctx is canceled. A failed sweep is logged
// and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one expiry pass.
func (s *Sweeper) Sweep(ctx context.Context) int64 {
	n, err := s.store.ExpireStale(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.WarnContext(ctx, "stale claim sweep failed", "error", err)
		}
		return 0
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "expired stale claims", "count", n)
		if s.metrics != nil {
			s.metrics.AddExpired(n)
		}
	}
	return n
}
