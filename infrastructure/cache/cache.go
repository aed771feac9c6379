package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"crosspost/infrastructure/logger"
)

// NewCache connects a redis client used for the ephemeral OAuth-task store,
// distributed locks and queue dedupe markers.
func NewCache(ctx context.Context, addr, username, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis ping failed")
		return client, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
