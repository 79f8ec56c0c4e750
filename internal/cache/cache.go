// Package cache stores encoded sweep frames and upstream responses behind a
// small key/value interface with per-entry expiry.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/storm-radar-service/internal/observability"
)

// DefaultTTL is applied by Set.
const DefaultTTL = time.Hour

// Backend is the storage engine behind a Cache. Keys arrive normalized.
// Expired entries must behave exactly as absent ones.
type Backend interface {
	Has(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}

// Cache normalizes keys and records lookup metrics around a Backend.
type Cache struct {
	backend Backend
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New wraps a backend.
func New(backend Backend, logger *slog.Logger, metrics *observability.Metrics) *Cache {
	return &Cache{backend: backend, logger: logger, metrics: metrics}
}

// NormalizeKey returns the canonical form of a cache key.
func NormalizeKey(key string) string {
	return strings.ToUpper(key)
}

// Has reports whether an unexpired entry exists for key.
func (c *Cache) Has(ctx context.Context, key string) (bool, error) {
	ok, err := c.backend.Has(ctx, NormalizeKey(key))
	if err != nil {
		return false, fmt.Errorf("cache has %s: %w", key, err)
	}
	return ok, nil
}

// Get returns the stored value and whether it was present.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok, err := c.backend.Get(ctx, NormalizeKey(key))
	switch {
	case err != nil:
		c.metrics.CacheLookups.WithLabelValues("error").Inc()
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	case ok:
		c.metrics.CacheLookups.WithLabelValues("hit").Inc()
	default:
		c.metrics.CacheLookups.WithLabelValues("miss").Inc()
	}
	return v, ok, nil
}

// Set stores value under key with DefaultTTL.
func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	return c.SetTTL(ctx, key, value, DefaultTTL)
}

// SetTTL stores value under key, replacing any previous entry.
func (c *Cache) SetTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := c.backend.Set(ctx, NormalizeKey(key), value, ttl); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	c.logger.Debug("cache set", "key", NormalizeKey(key), "bytes", len(value), "ttl", ttl)
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.backend.Delete(ctx, NormalizeKey(key)); err != nil {
		return fmt.Errorf("cache delete %s: %w", key, err)
	}
	return nil
}

// Keys lists the keys of all unexpired entries.
func (c *Cache) Keys(ctx context.Context) ([]string, error) {
	keys, err := c.backend.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("cache keys: %w", err)
	}
	return keys, nil
}

// Ping checks that the backend is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	return c.backend.Ping(ctx)
}
