package redis

import (
	"context"
	"fmt"
	"time"

	"workpulse/pkg/config"

	"github.com/go-redis/redis/v8"
)

// RedisClient wraps the shared connection used for background job locks.
// The whole Redis layer is optional; callers that get no client run in
// single-instance mode.
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient connects to the configured Redis and verifies the
// connection with a short ping before handing the client out.
func NewRedisClient(cfg config.RedisConfig) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisClient{client: client}, nil
}

// GetClient retrieves the underlying Redis client
func (r *RedisClient) GetClient() *redis.Client {
	return r.client
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}
