package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skinfolio/skinsync/internal/domain"
)

// ViewCache implements domain.ViewCache using plain string keys holding the
// rendered JSON payload. Each view key carries its own TTL so a crashed
// process never leaves permanently stale views behind.
type ViewCache struct {
	rdb *redis.Client
}

// NewViewCache creates a ViewCache backed by the given Client.
func NewViewCache(c *Client) *ViewCache {
	return &ViewCache{rdb: c.Underlying()}
}

func viewKey(key string) string {
	return "view:" + key
}

// GetView returns the cached payload for a view key, or domain.ErrNotFound
// when the key is absent or expired.
func (vc *ViewCache) GetView(ctx context.Context, key string) ([]byte, error) {
	payload, err := vc.rdb.Get(ctx, viewKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get view %s: %w", key, err)
	}
	return payload, nil
}

// SetView stores a rendered view payload with the given TTL.
func (vc *ViewCache) SetView(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if err := vc.rdb.Set(ctx, viewKey(key), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set view %s: %w", key, err)
	}
	return nil
}

// Invalidate removes the given view keys. Missing keys are not an error.
func (vc *ViewCache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = viewKey(k)
	}
	if err := vc.rdb.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("redis: invalidate views: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.ViewCache = (*ViewCache)(nil)
