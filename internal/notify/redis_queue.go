package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"beefirst/pkg/requestcontext"
)

// RedisQueue pushes verification codes onto a Redis list. A Worker pops and
// delivers them.
type RedisQueue struct {
	client redis.Cmdable
	key    string
}

func NewRedisQueue(client redis.Cmdable, key string) *RedisQueue {
	return &RedisQueue{client: client, key: key}
}

func (q *RedisQueue) Send(ctx context.Context, email, code string) error {
	payload, err := json.Marshal(Message{
		Email:     email,
		Code:      code,
		RequestID: requestcontext.RequestID(ctx),
		IssuedAt:  requestcontext.Now(ctx),
	})
	if err != nil {
		return fmt.Errorf("encode verification message: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("enqueue verification message: %w", err)
	}
	return nil
}
