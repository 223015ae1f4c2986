package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type payload struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	if err := mc.Set(ctx, "k", payload{Name: "a", Value: 1.5}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := GetTyped[payload](ctx, mc, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "a" || got.Value != 1.5 {
		t.Fatalf("got %+v", got)
	}

	var s string
	_ = mc.Set(ctx, "s", "plain", 0)
	if err := mc.Get(ctx, "s", &s); err != nil || s != "plain" {
		t.Fatalf("string get = %q, %v", s, err)
	}
}

func TestMemoryCacheMissAndExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	var p payload
	if err := mc.Get(ctx, "absent", &p); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("want miss, got %v", err)
	}

	_ = mc.Set(ctx, "short", payload{Name: "x"}, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	if err := mc.Get(ctx, "short", &p); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("want expired miss, got %v", err)
	}
	if ok, _ := mc.Exists(ctx, "short"); ok {
		t.Fatalf("expired key reported as existing")
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	_ = mc.Set(ctx, "a", "1", time.Minute)
	time.Sleep(time.Millisecond)
	_ = mc.Set(ctx, "b", "2", time.Minute)
	time.Sleep(time.Millisecond)

	var s string
	_ = mc.Get(ctx, "a", &s) // touch a so b is oldest
	time.Sleep(time.Millisecond)
	_ = mc.Set(ctx, "c", "3", time.Minute)

	if ok, _ := mc.Exists(ctx, "b"); ok {
		t.Fatalf("b should have been evicted")
	}
	if ok, _ := mc.Exists(ctx, "a", "c"); !ok {
		t.Fatalf("a and c should remain")
	}
	if mc.Len() != 2 {
		t.Fatalf("len = %d", mc.Len())
	}
}

func TestLayeredCacheFillsL1FromRemote(t *testing.T) {
	ctx := context.Background()
	remote := NewMemoryCache()
	lc := NewLayeredCache(remote)
	defer lc.Close()

	_ = remote.Set(ctx, "k", payload{Name: "remote"}, time.Minute)

	got, err := GetTyped[payload](ctx, lc, "k")
	if err != nil || got.Name != "remote" {
		t.Fatalf("got %+v, %v", got, err)
	}

	_ = remote.Delete(ctx, "k")
	got, err = GetTyped[payload](ctx, lc, "k")
	if err != nil || got.Name != "remote" {
		t.Fatalf("L1 should serve after remote delete, got %+v, %v", got, err)
	}

	_ = lc.Delete(ctx, "k")
	if _, err := GetTyped[payload](ctx, lc, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("want miss after delete, got %v", err)
	}
}

func TestLayeredCacheWriteThrough(t *testing.T) {
	ctx := context.Background()
	remote := NewMemoryCache()
	lc := NewLayeredCache(remote)
	defer lc.Close()

	if err := lc.Set(ctx, "k", payload{Name: "w", Value: 2}, time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := GetTyped[payload](ctx, remote, "k")
	if err != nil || got.Value != 2 {
		t.Fatalf("remote got %+v, %v", got, err)
	}
}
