// Package memory provides a process-local fallback for the view cache when
// no Redis instance is configured. Entries honor their TTL but are not
// shared across processes.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/skinfolio/skinsync/internal/domain"
)

type entry struct {
	payload   []byte
	expiresAt time.Time
}

// ViewCache implements domain.ViewCache with an in-process map.
type ViewCache struct {
	mu      sync.Mutex
	entries map[string]entry
}

// NewViewCache creates an empty ViewCache.
func NewViewCache() *ViewCache {
	return &ViewCache{entries: make(map[string]entry)}
}

// GetView returns the cached payload for a view key, or domain.ErrNotFound
// when the key is absent or expired.
func (vc *ViewCache) GetView(_ context.Context, key string) ([]byte, error) {
	vc.mu.Lock()
	defer vc.mu.Unlock()

	e, ok := vc.entries[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(vc.entries, key)
		return nil, domain.ErrNotFound
	}
	return e.payload, nil
}

// SetView stores a rendered view payload. A zero ttl means no expiry.
func (vc *ViewCache) SetView(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	vc.mu.Lock()
	defer vc.mu.Unlock()

	e := entry{payload: payload}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	vc.entries[key] = e
	return nil
}

// Invalidate removes the given view keys. Missing keys are not an error.
func (vc *ViewCache) Invalidate(_ context.Context, keys ...string) error {
	vc.mu.Lock()
	defer vc.mu.Unlock()

	for _, k := range keys {
		delete(vc.entries, k)
	}
	return nil
}

// Compile-time interface check.
var _ domain.ViewCache = (*ViewCache)(nil)
