// Package bootstrap opens the process-wide handles shared by the commands:
// tracing, the database and the optional Redis client.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"ravencube/internal/cache"
	"ravencube/internal/config"
	"ravencube/internal/database"
	"ravencube/internal/middleware"
	"ravencube/internal/observability"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	ServiceName string
	// SkipRedis leaves Redis unconnected, e.g. for one-shot tools.
	SkipRedis bool
}

// Runtime owns the handles opened at startup. Close releases them.
type Runtime struct {
	DB    *gorm.DB
	Redis *redis.Client

	shutdownTracing func(context.Context) error
}

// InitRuntime initializes tracing, creates the database when DB_AUTO_CREATE
// is set, connects (and outside production migrates) it, and connects Redis.
// An unreachable Redis yields a nil client, not an error.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	if opts.ServiceName == "" {
		opts.ServiceName = "ravencube-api"
	}

	shutdown, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    opts.ServiceName,
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}
	rt := &Runtime{shutdownTracing: shutdown}

	if cfg.DBAutoCreate {
		if err := database.EnsureDatabase(ctx, cfg); err != nil {
			_ = rt.Close(ctx)
			return nil, fmt.Errorf("database provisioning failed: %w", err)
		}
	}

	db, err := database.Connect(cfg)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	rt.DB = db

	if !opts.SkipRedis {
		rt.Redis = cache.InitRedis(cfg.RedisURL)
		if rt.Redis == nil {
			middleware.Logger.Warn("running without redis: caching, pub/sub and rate limits are disabled")
		}
	}

	return rt, nil
}

// Close releases Redis, the database and the tracer, in that order.
func (r *Runtime) Close(ctx context.Context) error {
	var errs []error

	cache.Close(r.Redis)
	r.Redis = nil

	if r.DB != nil {
		if err := database.Close(r.DB); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
		r.DB = nil
	}

	if r.shutdownTracing != nil {
		if err := r.shutdownTracing(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
		}
		r.shutdownTracing = nil
	}

	return errors.Join(errs...)
}
