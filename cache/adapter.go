// Package cache provides the session/KV store: Redis when configured,
// an in-process fallback otherwise.
package cache

import (
	"context"
	"time"

	"github.com/ayutane/daylink/cache/local"
	cacheredis "github.com/ayutane/daylink/cache/redis"
)

// Cache is the KV surface the application needs (sessions, short-lived flags).
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
}

// Config holds configuration for both Redis and the local cache.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	GCInterval    time.Duration
}

// New returns a Cache backed by Redis if RedisAddr is set, otherwise an
// in-process local cache.
func New(cfg Config) (Cache, error) {
	if cfg.RedisAddr != "" {
		return cacheredis.NewCache(cacheredis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
	return local.NewCache(local.Config{GCInterval: cfg.GCInterval})
}
