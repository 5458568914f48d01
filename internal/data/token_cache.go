package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTokenCache is a read-through cache for shop access tokens, keyed by
// shop ID. A miss returns ("", nil); the caller falls back to the shop store.
type RedisTokenCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisTokenCache creates a token cache with the given TTL. A zero TTL
// defaults to one hour.
func NewRedisTokenCache(client redis.UniversalClient, ttl time.Duration) *RedisTokenCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisTokenCache{client: client, ttl: ttl}
}

func tokenKey(shopID string) string {
	return "shop_token:" + shopID
}

// Get retrieves a cached token, empty on miss.
func (c *RedisTokenCache) Get(ctx context.Context, shopID string) (string, error) {
	if shopID == "" {
		return "", errors.New("shop id cannot be empty")
	}
	token, err := c.client.Get(ctx, tokenKey(shopID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("redis get token: %w", err)
	}
	return token, nil
}

// Set caches a token for the configured TTL.
func (c *RedisTokenCache) Set(ctx context.Context, shopID, token string) error {
	if shopID == "" {
		return errors.New("shop id cannot be empty")
	}
	return c.client.Set(ctx, tokenKey(shopID), token, c.ttl).Err()
}

// Invalidate drops a cached token, for example after re-registration.
func (c *RedisTokenCache) Invalidate(ctx context.Context, shopID string) error {
	if shopID == "" {
		return errors.New("shop id cannot be empty")
	}
	if err := c.client.Del(ctx, tokenKey(shopID)).Err(); err != nil {
		return fmt.Errorf("redis del token: %w", err)
	}
	return nil
}

// Health checks the Redis connection.
func (c *RedisTokenCache) Health(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// RedisConfig holds configuration for the Redis connection.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// NewRedisClient creates a new Redis client with the given configuration.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
