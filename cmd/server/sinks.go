package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"beefirst/internal/notify"
	"beefirst/internal/platform/config"
	"beefirst/internal/platform/redis"
)

// sinks is the notifier the service publishes codes through, plus the
// background worker and cleanup the chosen sink needs.
type sinks struct {
	notifier notify.Sender
	worker   *notify.Worker
	closers  []func()
}

func (s *sinks) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func buildSinks(cfg config.Config, redisClient *redis.Client, log *slog.Logger) (*sinks, error) {
	switch cfg.Notify.Sink {
	case config.SinkConsole:
		return &sinks{notifier: notify.NewConsole(log)}, nil

	case config.SinkSMTP:
		return &sinks{notifier: notify.NewSMTP(cfg.Notify.SMTP)}, nil

	case config.SinkRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("notify sink %q requires a redis client", cfg.Notify.Sink)
		}
		// The worker delivers by email when SMTP is configured, otherwise to the log.
		var deliver notify.Sender = notify.NewConsole(log)
		if cfg.Notify.SMTP.Host != "" {
			deliver = notify.NewSMTP(cfg.Notify.SMTP)
		}
		return &sinks{
			notifier: notify.NewRedisQueue(redisClient, cfg.Notify.Queue),
			worker: notify.NewWorker(redisClient, cfg.Notify.Queue, deliver,
				notify.WithWorkerLogger(log),
			),
		}, nil

	case config.SinkKafka:
		producer, err := notify.NewKafka(cfg.Notify.Kafka)
		if err != nil {
			return nil, err
		}
		pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := producer.Ping(pingCtx); err != nil {
			producer.Close()
			return nil, fmt.Errorf("kafka ping failed: %w", err)
		}
		return &sinks{notifier: producer, closers: []func(){producer.Close}}, nil
	}
	return nil, fmt.Errorf("unknown notify sink %q", cfg.Notify.Sink)
}
