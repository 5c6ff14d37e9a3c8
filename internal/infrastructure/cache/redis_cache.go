// Package cache adapts Redis to the small JSON cache the dashboard uses.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/pks-portal/pkg/helpers"
)

type RedisCache struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisCache(rdb *redis.Client, prefix string) *RedisCache {
	return &RedisCache{rdb: rdb, prefix: prefix}
}

func (c *RedisCache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	return helpers.RedisGetJSON(ctx, c.rdb, c.prefix+key, dest)
}

func (c *RedisCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	return helpers.RedisSetJSON(ctx, c.rdb, c.prefix+key, value, ttl)
}

