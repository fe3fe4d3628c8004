// Package cache provides Redis caching utilities for the application.
package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"ravencube/internal/middleware"
	"ravencube/internal/observability"

	"github.com/redis/go-redis/v9"
)

type metricsHook struct{}

func (h metricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrors.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (h metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			observability.RedisErrors.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// InitRedis connects to addr, which may be a host:port or a redis:// URL.
// It returns nil when Redis is unreachable; every caller treats a nil client
// as "no cache".
func InitRedis(addr string) *redis.Client {
	if strings.TrimSpace(addr) == "" {
		return nil
	}

	var opts *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			middleware.Logger.Warn("invalid REDIS_URL, continuing without cache", "addr", addr, "error", err)
			return nil
		}
		opts = parsed
	} else {
		opts = &redis.Options{Addr: addr}
	}

	client := Instrument(redis.NewClient(opts))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		middleware.Logger.Warn("redis connection failed, continuing without cache", "error", err)
		_ = client.Close()
		return nil
	}
	middleware.Logger.Info("redis connected")
	return client
}

// Instrument attaches the Redis error counter to an existing client.
func Instrument(client *redis.Client) *redis.Client {
	if client != nil {
		client.AddHook(metricsHook{})
	}
	return client
}

// Close closes the client if there is one.
func Close(client *redis.Client) {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		middleware.Logger.Warn("error closing redis", "error", err)
	}
}
