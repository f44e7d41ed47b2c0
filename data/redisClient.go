package data

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/finhold/holdings_engine/config"
	"github.com/redis/go-redis/v9"
)

const redisPingTimeout = 5 * time.Second

// NewRedisClient connects to the summary cache. The cache is load-bearing
// for the warm job, so an unreachable redis is fatal at startup.
func NewRedisClient(cfg *config.Config) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("redis is unreachable", slog.String("err", err.Error()))
		panic(err)
	}

	slog.Info("redis connected")

	return rdb
}
