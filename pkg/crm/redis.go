package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultOutboxKey is the list emails are pushed to for the delivery worker.
const DefaultOutboxKey = "autoflow:outbox:email"

// Pusher is the subset of the redis client the outbox needs.
type Pusher interface {
	LPush(ctx context.Context, key string, values ...any) *redis.IntCmd
}

// RedisMailer queues emails on a redis list.
type RedisMailer struct {
	client Pusher
	key    string
	now    func() time.Time
}

func NewRedisMailer(client Pusher, key string) *RedisMailer {
	if key == "" {
		key = DefaultOutboxKey
	}

	return &RedisMailer{client: client, key: key, now: time.Now}
}

func (m *RedisMailer) Send(ctx context.Context, email Email) error {
	if email.QueuedAt.IsZero() {
		email.QueuedAt = m.now().UTC()
	}

	encoded, err := json.Marshal(email)
	if err != nil {
		return fmt.Errorf("failed to marshal email: %w", err)
	}

	err = m.client.LPush(ctx, m.key, encoded).Err()
	if err != nil {
		return fmt.Errorf("failed to queue email: %w", err)
	}

	return nil
}
