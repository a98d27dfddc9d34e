package redis

import (
	"context"
	"log"
	"proacademics-service/internal/config"
	"time"

	"github.com/redis/go-redis/v9"
)

var RedisClient *redis.Client

// Connect returns nil when no address is configured; callers fall back to an uncached path.
func Connect(cfg config.RedisConfig) *redis.Client {
	if cfg.Address == "" {
		log.Println("Redis address not configured, caching is disabled")
		return nil
	}

	RedisClient = redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := RedisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Error connect to Redis: %s", err)
	}
	return RedisClient
}

func Close() {
	if RedisClient == nil {
		return
	}
	if err := RedisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}
}
