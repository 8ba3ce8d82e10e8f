package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/skinfolio/skinsync/internal/domain"
)

// fakePortfolioReader serves static view payloads.
type fakePortfolioReader struct {
	mu           sync.Mutex
	current      []byte
	history      []byte
	currentErr   error
	historyErr   error
	currentCalls int
	historyCalls int
	lastDays     int
}

func (r *fakePortfolioReader) Portfolio(ctx context.Context, steamID string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentCalls++
	return r.current, r.currentErr
}

func (r *fakePortfolioReader) PortfolioHistory(ctx context.Context, steamID string, days int) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.historyCalls++
	r.lastDays = days
	return r.history, r.historyErr
}

// mapViewCache is an in-memory ViewCache for tests; TTLs are ignored.
type mapViewCache struct {
	mu    sync.Mutex
	views map[string][]byte
}

func newMapViewCache() *mapViewCache {
	return &mapViewCache{views: make(map[string][]byte)}
}

func (c *mapViewCache) GetView(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	payload, ok := c.views[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return payload, nil
}

func (c *mapViewCache) SetView(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.views[key] = payload
	return nil
}

func (c *mapViewCache) Invalidate(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.views, key)
	}
	return nil
}

func TestReloadRebuildsBothViews(t *testing.T) {
	reader := &fakePortfolioReader{
		current: []byte(`{"total":100}`),
		history: []byte(`[{"date":"2024-03-20","value":100}]`),
	}
	cache := newMapViewCache()
	cache.views["portfolio:current:s1"] = []byte(`stale`)

	s := NewPortfolioService(reader, cache, 30, testLogger())
	if err := s.Reload(context.Background(), "s1"); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if got := cache.views["portfolio:current:s1"]; !bytes.Equal(got, reader.current) {
		t.Errorf("current view: got %s", got)
	}
	if got := cache.views["portfolio:history:s1:30"]; !bytes.Equal(got, reader.history) {
		t.Errorf("history view: got %s", got)
	}
	if reader.lastDays != 30 {
		t.Errorf("history days: got %d", reader.lastDays)
	}
}

func TestReloadFailsOnEitherFetch(t *testing.T) {
	reader := &fakePortfolioReader{
		current:    []byte(`{}`),
		historyErr: errors.New("backend down"),
	}
	s := NewPortfolioService(reader, newMapViewCache(), 30, testLogger())
	if err := s.Reload(context.Background(), "s1"); err == nil {
		t.Error("expected reload failure")
	}
}

func TestCurrentViewCacheHitAndMiss(t *testing.T) {
	reader := &fakePortfolioReader{current: []byte(`{"total":100}`)}
	cache := newMapViewCache()
	s := NewPortfolioService(reader, cache, 0, testLogger())

	first, err := s.CurrentView(context.Background(), "s1")
	if err != nil {
		t.Fatalf("CurrentView: %v", err)
	}
	if !bytes.Equal(first, reader.current) {
		t.Errorf("got %s", first)
	}
	if reader.currentCalls != 1 {
		t.Errorf("calls after miss: %d", reader.currentCalls)
	}

	if _, err := s.CurrentView(context.Background(), "s1"); err != nil {
		t.Fatalf("second CurrentView: %v", err)
	}
	if reader.currentCalls != 1 {
		t.Errorf("cache hit must not refetch, calls: %d", reader.currentCalls)
	}
}

func TestHistoryViewDefaultDays(t *testing.T) {
	reader := &fakePortfolioReader{history: []byte(`[]`)}
	s := NewPortfolioService(reader, newMapViewCache(), 0, testLogger())

	if _, err := s.HistoryView(context.Background(), "s1"); err != nil {
		t.Fatalf("HistoryView: %v", err)
	}
	if reader.lastDays != 30 {
		t.Errorf("zero historyDays must default to 30, got %d", reader.lastDays)
	}
}
