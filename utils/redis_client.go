package utils

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/discourse/config"
)

// NewRedis returns a client for cfg, or nil when no redis host is configured.
// Callers fall back to in-memory stores on nil. A failed ping is logged and the client is still returned.
func NewRedis(cfg config.AppConfig) *redis.Client {
	if !cfg.RedisEnabled() {
		return nil
	}
	rc := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		Sugar.Warnw("redis ping failed", "addr", rc.Options().Addr, "error", err)
	}
	return rc
}
