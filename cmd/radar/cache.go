package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/couchcryptid/storm-radar-service/internal/cache"
	"github.com/couchcryptid/storm-radar-service/internal/config"
	"github.com/couchcryptid/storm-radar-service/internal/observability"
)

const startupPingTimeout = 5 * time.Second

// frameCache is the configured cache plus the handles main needs for
// eviction and shutdown. memory is nil for redis, redisClient nil for memory.
type frameCache struct {
	*cache.Cache
	memory      *cache.MemoryBackend
	redisClient *redis.Client
}

// newFrameCache builds the configured backend. A redis backend that does not
// answer a ping is an error.
func newFrameCache(ctx context.Context, cfg *config.Config, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) (*frameCache, error) {
	if cfg.CacheBackend != config.CacheRedis {
		memory := cache.NewMemoryBackend(clock, cfg.CacheMaxEntries)
		logger.Info("using memory cache", "max_entries", cfg.CacheMaxEntries)
		return &frameCache{Cache: cache.New(memory, logger, metrics), memory: memory}, nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	fc := &frameCache{Cache: cache.New(cache.NewRedisBackend(client), logger, metrics), redisClient: client}

	pingCtx, cancel := context.WithTimeout(ctx, startupPingTimeout)
	defer cancel()
	if err := fc.Ping(pingCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis %s unreachable: %w", cfg.RedisAddr, err)
	}
	logger.Info("using redis cache", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	return fc, nil
}

func (fc *frameCache) Close() error {
	if fc.redisClient == nil {
		return nil
	}
	return fc.redisClient.Close()
}
