package cache

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/querylens/querylens/pkg/config"
)

func configCache(provider string) config.CacheConfig {
	return config.CacheConfig{Provider: provider, TTL: time.Minute, MaxItems: 10}
}

func TestMemoryProviderBasics(t *testing.T) {
	p := NewMemoryProvider(&Options{DefaultTTL: time.Minute, MaxSize: 100})
	defer p.Close()
	ctx := context.Background()

	if _, ok := p.Get(ctx, "missing"); ok {
		t.Error("Expected miss for unknown key")
	}

	if err := p.Set(ctx, "k1", []byte("v1"), 0); err != nil {
		t.Fatal(err)
	}
	if v, ok := p.Get(ctx, "k1"); !ok || string(v) != "v1" {
		t.Errorf("Expected v1, got %q ok=%v", v, ok)
	}

	if err := p.Delete(ctx, "k1"); err != nil {
		t.Fatal(err)
	}
	if p.Exists(ctx, "k1") {
		t.Error("Expected k1 gone after delete")
	}
}

func TestMemoryProviderLRUEviction(t *testing.T) {
	p := NewMemoryProvider(&Options{DefaultTTL: time.Minute, MaxSize: 2})
	defer p.Close()
	ctx := context.Background()

	base := time.Now()
	tick := 0
	p.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	p.Set(ctx, "a", []byte("1"), 0)
	p.Set(ctx, "b", []byte("2"), 0)
	p.Get(ctx, "a") // refresh a's access time
	p.Set(ctx, "c", []byte("3"), 0)

	if p.Exists(ctx, "b") {
		t.Error("Expected least recently used key b to be evicted")
	}
	if !p.Exists(ctx, "a") || !p.Exists(ctx, "c") {
		t.Error("Expected a and c to survive")
	}
}

func TestMemoryProviderCleanExpired(t *testing.T) {
	p := NewMemoryProvider(&Options{DefaultTTL: time.Minute, MaxSize: 10})
	defer p.Close()
	ctx := context.Background()

	base := time.Now()
	p.now = func() time.Time { return base }

	p.Set(ctx, "short", []byte("1"), time.Second)
	p.Set(ctx, "long", []byte("2"), time.Hour)

	p.now = func() time.Time { return base.Add(time.Minute) }
	if n := p.CleanExpired(ctx); n != 1 {
		t.Errorf("Expected 1 expired item cleaned, got %d", n)
	}
	if !p.Exists(ctx, "long") {
		t.Error("Expected long-lived item to survive the sweep")
	}
}

func TestCacheCompressionRoundTrip(t *testing.T) {
	c := NewCache(NewMemoryProvider(&Options{DefaultTTL: time.Minute, MaxSize: 10}))
	defer c.Close()
	ctx := context.Background()

	// Large enough to cross the compression threshold
	big := strings.Repeat("querylens ", 2000)
	if err := c.Set(ctx, "big", big, 0); err != nil {
		t.Fatal(err)
	}

	var got string
	if err := c.Get(ctx, "big", &got); err != nil {
		t.Fatal(err)
	}
	if got != big {
		t.Error("Compressed value did not round-trip")
	}

	small := "tiny"
	if err := c.Set(ctx, "small", small, 0); err != nil {
		t.Fatal(err)
	}
	var gotSmall string
	if err := c.Get(ctx, "small", &gotSmall); err != nil {
		t.Fatal(err)
	}
	if gotSmall != small {
		t.Error("Small value did not round-trip")
	}
}

func TestMaybeDecompressPassThrough(t *testing.T) {
	plain := []byte(`{"a":1}`)
	out, err := maybeDecompress(plain)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, plain) {
		t.Error("Plain payload must pass through unchanged")
	}
}

func TestNewFromConfigUnknownProvider(t *testing.T) {
	cfg := configCache("bogus")
	if _, err := NewFromConfig(cfg); err == nil {
		t.Error("Expected error for unknown provider")
	}
}

func TestNewFromConfigMemory(t *testing.T) {
	c, err := NewFromConfig(configCache("memory"))
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	stats, err := c.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.ProviderType != "memory" {
		t.Errorf("Expected memory provider, got %s", stats.ProviderType)
	}
}
