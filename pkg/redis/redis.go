package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/franzego/uninotify/internal/config"
	"github.com/redis/go-redis/v9"
)

// InitRedis connects and pings; the caller decides whether a failure is fatal.
func InitRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis with addr %s: %w", cfg.Addr, err)
	}
	return client, nil
}
