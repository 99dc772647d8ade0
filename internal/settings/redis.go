package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/julianstephens/keeprun/internal/models"
)

const redisKeyPrefix = "keeprun:settings:"

// RedisCache shares settings between API replicas.
type RedisCache struct {
	rdb goredis.UniversalClient
	ttl time.Duration
}

// NewRedisCache connects to addr and checks the connection.
func NewRedisCache(ctx context.Context, addr string, ttl time.Duration) (*RedisCache, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisCacheFromClient(rdb, ttl), nil
}

func NewRedisCacheFromClient(rdb goredis.UniversalClient, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func redisKey(userID string) string { return redisKeyPrefix + userID }

func (c *RedisCache) Get(ctx context.Context, userID string) (models.Settings, bool, error) {
	raw, err := c.rdb.Get(ctx, redisKey(userID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return models.Settings{}, false, nil
	}
	if err != nil {
		return models.Settings{}, false, err
	}

	var s models.Settings
	if err := json.Unmarshal(raw, &s); err != nil {
		return models.Settings{}, false, fmt.Errorf("decode cached settings: %w", err)
	}
	return s, true, nil
}

func (c *RedisCache) Set(ctx context.Context, s models.Settings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, redisKey(s.UserID), raw, c.ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, userID string) error {
	return c.rdb.Del(ctx, redisKey(userID)).Err()
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
