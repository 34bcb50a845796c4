package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"beefirst/pkg/email"
)

const defaultPopTimeout = 5 * time.Second

// Worker drains the Redis verification queue into a delivery Sender. A message
// that fails delivery is logged and dropped; codes are short-lived and the user
// can register again once the claim expires.
type Worker struct {
	client     redis.Cmdable
	key        string
	deliver    Sender
	logger     *slog.Logger
	popTimeout time.Duration
}

type WorkerOption func(*Worker)

func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger
	}
}

// WithPopTimeout bounds each blocking pop so cancellation is observed promptly.
func WithPopTimeout(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.popTimeout = d
		}
	}
}

func NewWorker(client redis.Cmdable, key string, deliver Sender, opts ...WorkerOption) *Worker {
	w := &Worker{
		client:     client,
		key:        key,
		deliver:    deliver,
		logger:     slog.Default(),
		popTimeout: defaultPopTimeout,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run pops and delivers messages until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := w.client.BRPop(ctx, w.popTimeout, w.key).Result()
		switch {
		case errors.Is(err, redis.Nil):
			continue
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.WarnContext(ctx, "verification queue pop failed", "queue", w.key, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		// BRPOP replies with [key, value].
		if len(res) != 2 {
			continue
		}
		w.handle(ctx, res[1])
	}
}

func (w *Worker) handle(ctx context.Context, raw string) {
	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		w.logger.WarnContext(ctx, "dropping malformed verification message", "queue", w.key, "error", err)
		return
	}
	if err := w.deliver.Send(ctx, msg.Email, msg.Code); err != nil {
		w.logger.WarnContext(ctx, "verification delivery failed",
			"email", email.Mask(msg.Email),
			"request_id", msg.RequestID,
			"error", err,
		)
		return
	}
	w.logger.DebugContext(ctx, "verification delivered", "email", email.Mask(msg.Email), "request_id", msg.RequestID)
}
