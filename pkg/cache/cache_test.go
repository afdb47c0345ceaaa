package cache

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	// Get always returns miss
	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit {
		t.Error("NullCache.Get should always return miss")
	}
	if data != nil {
		t.Error("NullCache.Get should return nil data")
	}

	// Set does nothing (no error)
	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}

	// Still a miss after Set
	_, hit, _ = c.Get(ctx, "key")
	if hit {
		t.Error("NullCache should not store data")
	}

	// Delete does nothing (no error)
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}
	defer c.Close()

	// Miss before Set
	if _, hit, _ := c.Get(ctx, "slide:s1"); hit {
		t.Error("expected miss before Set")
	}

	// Round trip
	if err := c.Set(ctx, "slide:s1", []byte("metrics"), time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "slide:s1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !hit || !bytes.Equal(data, []byte("metrics")) {
		t.Errorf("Get = %q hit=%v, want %q hit=true", data, hit, "metrics")
	}

	// Delete
	if err := c.Delete(ctx, "slide:s1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "slide:s1"); hit {
		t.Error("expected miss after Delete")
	}

	// Deleting a missing key is fine
	if err := c.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete missing key error: %v", err)
	}
}

func TestFileCacheExpiration(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}
	defer c.Close()

	if err := c.Set(ctx, "ephemeral", []byte("x"), time.Nanosecond); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, hit, _ := c.Get(ctx, "ephemeral"); hit {
		t.Error("expired entry should be a miss")
	}

	// Zero TTL stores without expiration
	if err := c.Set(ctx, "forever", []byte("x"), 0); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "forever"); !hit {
		t.Error("entry without TTL should persist")
	}
}

func TestHash(t *testing.T) {
	// Test determinism
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}

	// Test different inputs produce different hashes
	h3 := Hash([]byte("world"))
	if h1 == h3 {
		t.Error("Different inputs should produce different hashes")
	}

	// Test hash length (SHA-256 produces 64 hex chars)
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestKey(t *testing.T) {
	type thresholds struct {
		Density [2]float64 `json:"density"`
	}

	// Deterministic for identical parts
	k1 := Key("metrics", "s1", thresholds{Density: [2]float64{0.012, 0.018}})
	k2 := Key("metrics", "s1", thresholds{Density: [2]float64{0.012, 0.018}})
	if k1 != k2 {
		t.Error("Key should be deterministic")
	}

	// Different parts change the key
	k3 := Key("metrics", "s1", thresholds{Density: [2]float64{0.012, 0.020}})
	if k1 == k3 {
		t.Error("Different parts should produce different keys")
	}

	// Prefix is preserved verbatim
	if k1[:8] != "metrics:" {
		t.Errorf("Key should start with prefix, got %s", k1)
	}
}

func TestScoped(t *testing.T) {
	ctx := context.Background()
	inner, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}
	a := NewScoped(inner, "ws:a:")
	b := NewScoped(inner, "ws:b:")

	if err := a.Set(ctx, "k", []byte("from-a"), 0); err != nil {
		t.Fatalf("Set error: %v", err)
	}

	// Same logical key, different scope: no bleed-through
	if _, hit, _ := b.Get(ctx, "k"); hit {
		t.Error("scoped caches should not share keys")
	}

	data, hit, err := a.Get(ctx, "k")
	if err != nil || !hit {
		t.Fatalf("Get = hit=%v err=%v, want hit", hit, err)
	}
	if string(data) != "from-a" {
		t.Errorf("Get = %q, want from-a", data)
	}
}

func TestScopedNilInner(t *testing.T) {
	// Nil inner falls back to the null cache
	s := NewScoped(nil, "prefix:")
	if err := s.Set(context.Background(), "k", []byte("v"), 0); err != nil {
		t.Errorf("Set error: %v", err)
	}
	if _, hit, _ := s.Get(context.Background(), "k"); hit {
		t.Error("null-backed scoped cache should always miss")
	}
}
