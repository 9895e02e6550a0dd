package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper records envelope ids so a redelivered envelope reaches clients once.
type Deduper interface {
	Add(ctx context.Context, userID, id string) (bool, error)
}

// RedisDeduper keeps seen envelope ids in Redis so every relay instance
// shares the same window.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

func (r *RedisDeduper) key(userID, id string) string {
	return fmt.Sprintf("relay:seen:%s:%s", userID, id)
}

// Add reports true the first time id is seen for userID within the TTL.
func (r *RedisDeduper) Add(ctx context.Context, userID, id string) (bool, error) {
	return r.client.SetNX(ctx, r.key(userID, id), 1, r.ttl).Result()
}

