package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/paisa-labs/market-sync/internal/cache"
)

func TestMemoryCachePutGet(t *testing.T) {
	c := cache.NewMemoryCache()
	ctx := context.Background()

	if _, ok := c.Get(ctx, "missing"); ok {
		t.Error("expected miss for absent key")
	}

	c.Put(ctx, "k", []byte("v"), time.Minute)
	got, ok := c.Get(ctx, "k")
	if !ok || string(got) != "v" {
		t.Errorf("Get = %q, %v", got, ok)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := cache.NewMemoryCache()
	ctx := context.Background()

	now := time.Now()
	c.SetClock(func() time.Time { return now })

	c.Put(ctx, "k", []byte("v"), time.Minute)
	now = now.Add(2 * time.Minute)

	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("expected expiry after TTL")
	}
}

// Add is the alert idempotency gate: set-if-absent, usable again only
// after the previous claim expires.
func TestMemoryCacheAdd(t *testing.T) {
	c := cache.NewMemoryCache()
	ctx := context.Background()

	now := time.Now()
	c.SetClock(func() time.Time { return now })

	if !c.Add(ctx, "gate", []byte("1"), time.Hour) {
		t.Fatal("first Add should claim the key")
	}
	if c.Add(ctx, "gate", []byte("1"), time.Hour) {
		t.Fatal("second Add should find the key claimed")
	}

	now = now.Add(2 * time.Hour)
	if !c.Add(ctx, "gate", []byte("1"), time.Hour) {
		t.Error("Add should succeed after the claim expires")
	}
}

// Delete releases a claim early, before Add would succeed on its own.
func TestMemoryCacheDelete(t *testing.T) {
	c := cache.NewMemoryCache()
	ctx := context.Background()

	if !c.Add(ctx, "gate", []byte("1"), time.Hour) {
		t.Fatal("first Add should claim the key")
	}
	c.Delete(ctx, "gate")
	if !c.Add(ctx, "gate", []byte("1"), time.Hour) {
		t.Error("Add should succeed after Delete released the key")
	}
}

func TestKeyNamespacing(t *testing.T) {
	if got, want := cache.Key("alerts", "u1", "i1"), "marketsync:alerts:u1:i1"; got != want {
		t.Errorf("Key = %q, want %q", got, want)
	}
}
