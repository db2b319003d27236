package guard

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "livebet:guard:"

// RedisGuard claims keys with SET NX so every process shares one view.
type RedisGuard struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisGuard(opt *redis.Options, ttl time.Duration) *RedisGuard {
	return &RedisGuard{Client: redis.NewClient(opt), TTL: ttl}
}

func (g *RedisGuard) Claim(ctx context.Context, key string) (bool, error) {
	return g.Client.SetNX(ctx, keyPrefix+key, time.Now().UTC().Format(time.RFC3339), g.TTL).Result()
}

func (g *RedisGuard) Release(ctx context.Context, key string) error {
	return g.Client.Del(ctx, keyPrefix+key).Err()
}

func (g *RedisGuard) Ping(ctx context.Context) error {
	return g.Client.Ping(ctx).Err()
}

func (g *RedisGuard) Close() error {
	return g.Client.Close()
}
