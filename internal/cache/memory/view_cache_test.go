package memory

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/skinfolio/skinsync/internal/domain"
)

func TestViewCacheRoundTrip(t *testing.T) {
	vc := NewViewCache()
	ctx := context.Background()

	if _, err := vc.GetView(ctx, "k"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("empty cache: got %v, want ErrNotFound", err)
	}

	payload := []byte(`{"total":1}`)
	if err := vc.SetView(ctx, "k", payload, time.Minute); err != nil {
		t.Fatalf("SetView: %v", err)
	}
	got, err := vc.GetView(ctx, "k")
	if err != nil {
		t.Fatalf("GetView: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("got %s", got)
	}
}

func TestViewCacheExpiry(t *testing.T) {
	vc := NewViewCache()
	ctx := context.Background()

	if err := vc.SetView(ctx, "k", []byte("v"), time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := vc.GetView(ctx, "k"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expired entry: got %v, want ErrNotFound", err)
	}
}

func TestViewCacheZeroTTLNeverExpires(t *testing.T) {
	vc := NewViewCache()
	ctx := context.Background()

	if err := vc.SetView(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if _, err := vc.GetView(ctx, "k"); err != nil {
		t.Errorf("zero-ttl entry: %v", err)
	}
}

func TestViewCacheInvalidate(t *testing.T) {
	vc := NewViewCache()
	ctx := context.Background()

	vc.SetView(ctx, "a", []byte("1"), 0)
	vc.SetView(ctx, "b", []byte("2"), 0)

	if err := vc.Invalidate(ctx, "a", "missing"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, err := vc.GetView(ctx, "a"); !errors.Is(err, domain.ErrNotFound) {
		t.Error("a not invalidated")
	}
	if _, err := vc.GetView(ctx, "b"); err != nil {
		t.Errorf("b lost: %v", err)
	}
}
