package health

import (
	"context"

	"github.com/go-redis/redis/v8"
)

// RedisIndicator reports the health of a redis connection.
type RedisIndicator struct {
	client redis.UniversalClient
	addr   string
}

// NewRedisIndicator creates a redis-backed indicator. The addr string, when
// non-empty, is reported as a detail to identify the instance.
func NewRedisIndicator(client redis.UniversalClient, addr string) *RedisIndicator {
	return &RedisIndicator{client: client, addr: addr}
}

// Check pings redis.
func (r *RedisIndicator) Check(ctx context.Context) Health {
	b := NewHealth()
	if r.addr != "" {
		b.WithDetail("addr", r.addr)
	}
	if r.client == nil {
		return b.Down().WithDetail("error", "redis not connected").Build()
	}

	if err := r.client.Ping(ctx).Err(); err != nil {
		return b.Down().WithError(err).Build()
	}
	return b.Up().Build()
}
