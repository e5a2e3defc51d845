package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Shivendrahari/SignalSync/internal/models"
)

func TestMemoryResponseCacheTTL(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	cache := NewMemoryResponseCache(time.Minute)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	resp := &models.CachedResponse{
		Filter:   models.DefaultFilterState(),
		Response: response(entry("a", series("alpha", 1))),
	}
	if err := cache.Put(ctx, "s1", resp); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := cache.Get(ctx, "s1")
	if err != nil || got != resp {
		t.Fatalf("expected cached response, got %v (%v)", got, err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := cache.Get(ctx, "s1"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after ttl, got %v", err)
	}

	_ = cache.Put(ctx, "s2", resp)
	now = now.Add(2 * time.Minute)
	if removed := cache.Sweep(); removed != 1 {
		t.Fatalf("expected 1 swept entry, got %d", removed)
	}
}

func TestMemoryResponseCacheDelete(t *testing.T) {
	t.Parallel()

	cache := NewMemoryResponseCache(0)
	ctx := context.Background()
	_ = cache.Put(ctx, "s1", &models.CachedResponse{Response: response()})
	_ = cache.Delete(ctx, "s1")
	if _, err := cache.Get(ctx, "s1"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after delete, got %v", err)
	}
}
