package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestKeyConstruction(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
		want  string
	}{
		{"basic", []string{"california & tech", "none", "1", "30"}, "search:california & tech:none:1:30"},
		{"empty part becomes dash", []string{"", "none", "1", "30"}, "search:-:none:1:30"},
		{"colons escaped", []string{"a:b", "1"}, "search:a_b:1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Key(tt.parts...); got != tt.want {
				t.Errorf("Key(%v) = %q, want %q", tt.parts, got, tt.want)
			}
		})
	}

	a := Key("expr", "filters", "1", "30")
	b := Key("expr", "filters", "2", "30")
	if a == b {
		t.Error("keys differing in page must not collide")
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.Set(ctx, "search:k", []byte("payload"), 60*time.Second)
	value, ok := m.Get(ctx, "search:k")
	if !ok || string(value) != "payload" {
		t.Fatalf("expected hit with payload, got %q (ok=%v)", value, ok)
	}

	if _, ok := m.Get(ctx, "search:other"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestMemoryTTLExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	now := time.Now()
	m.now = func() time.Time { return now }

	m.Set(ctx, "search:k", []byte("v"), 60*time.Second)
	if _, ok := m.Get(ctx, "search:k"); !ok {
		t.Fatal("expected hit before expiry")
	}

	now = now.Add(61 * time.Second)
	if _, ok := m.Get(ctx, "search:k"); ok {
		t.Fatal("expected miss after TTL elapsed")
	}
}

func TestMemoryStatsAndSweep(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	now := time.Now()
	m.now = func() time.Time { return now }

	m.Set(ctx, "search:a", []byte("1"), time.Second)
	m.Set(ctx, "search:b", []byte("2"), time.Hour)
	m.Get(ctx, "search:a")       // hit
	m.Get(ctx, "search:missing") // miss

	stats := m.Stats(ctx)
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("expected 1 hit / 1 miss, got %d / %d", stats.Hits, stats.Misses)
	}
	if stats.Backend != BackendLocal {
		t.Errorf("expected local backend, got %s", stats.Backend)
	}
	if stats.Size != 2 {
		t.Errorf("expected size 2, got %d", stats.Size)
	}

	// Expired entries are swept during Stats, not just treated as misses.
	now = now.Add(2 * time.Second)
	stats = m.Stats(ctx)
	if stats.Size != 1 {
		t.Errorf("expected expired entry swept, size = %d", stats.Size)
	}
}

func TestMemoryClearResetsCounters(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.Set(ctx, "search:a", []byte("1"), time.Hour)
	m.Get(ctx, "search:a")
	m.Get(ctx, "search:b")
	m.Clear(ctx)

	stats := m.Stats(ctx)
	if stats.Hits != 0 || stats.Misses != 0 || stats.Size != 0 {
		t.Errorf("expected zeroed stats after clear, got %+v", stats)
	}
}

func TestMemoryDeletePattern(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.Set(ctx, "search:california:1", []byte("a"), time.Hour)
	m.Set(ctx, "search:california:2", []byte("b"), time.Hour)
	m.Set(ctx, "search:texas:1", []byte("c"), time.Hour)

	m.DeletePattern(ctx, "search:california*")

	if _, ok := m.Get(ctx, "search:california:1"); ok {
		t.Error("expected california keys deleted")
	}
	if _, ok := m.Get(ctx, "search:texas:1"); !ok {
		t.Error("expected texas key untouched")
	}
}

func TestMemoryDeleteExact(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	m.Set(ctx, "search:a", []byte("1"), time.Hour)
	m.Delete(ctx, "search:a")
	if _, ok := m.Get(ctx, "search:a"); ok {
		t.Error("expected key deleted")
	}
}

func TestLargeValueCompressionRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	payload := bytes.Repeat([]byte("university of california "), 1000)
	m.Set(ctx, "search:big", payload, time.Hour)

	value, ok := m.Get(ctx, "search:big")
	if !ok || !bytes.Equal(value, payload) {
		t.Fatal("large payload did not round-trip through transparent compression")
	}

	m.mu.RLock()
	stored := m.entries["search:big"].value
	m.mu.RUnlock()
	if stored[0] != compressedMarker {
		t.Error("expected large repetitive payload stored compressed")
	}
	if len(stored) >= len(payload) {
		t.Errorf("compressed storage (%d) not smaller than payload (%d)", len(stored), len(payload))
	}
}

func TestNewWithoutRedisURLUsesLocal(t *testing.T) {
	c := New(context.Background(), Options{})
	if stats := c.Stats(context.Background()); stats.Backend != BackendLocal {
		t.Errorf("expected local backend without redis url, got %s", stats.Backend)
	}
}

func TestNewUnreachableRedisFallsBackToLocal(t *testing.T) {
	// Port 1 refuses connections immediately, so the single attempt burns
	// the whole retry budget and the local backend takes over for good.
	c := New(context.Background(), Options{
		RedisURL:        "redis://127.0.0.1:1",
		ConnectAttempts: 1,
	})
	if stats := c.Stats(context.Background()); stats.Backend != BackendLocal {
		t.Fatalf("expected local backend after exhausted retry budget, got %s", stats.Backend)
	}

	// The fallback cache must be fully functional.
	ctx := context.Background()
	c.Set(ctx, Key("fallback"), []byte("value"), time.Minute)
	if got, ok := c.Get(ctx, Key("fallback")); !ok || string(got) != "value" {
		t.Errorf("fallback cache round trip failed: %q, %v", got, ok)
	}
}

func TestIsRemoteMiss(t *testing.T) {
	if !isRemoteMiss(redis.Nil) {
		t.Error("redis.Nil must classify as a miss")
	}
	if !isRemoteMiss(fmt.Errorf("fetching key: %w", redis.Nil)) {
		t.Error("wrapped redis.Nil must classify as a miss")
	}
	if isRemoteMiss(errors.New("connection reset")) {
		t.Error("backend failure must not classify as a miss")
	}
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern string
		key     string
		want    bool
	}{
		{"search:ca*", "search:ca:1", true},
		{"search:ca*", "search:tx:1", false},
		{"search:ca", "search:ca", true},
		{"search:ca", "search:ca:1", false},
		{"*", "anything", true},
	}
	for _, tt := range tests {
		if got := matchPattern(tt.pattern, tt.key); got != tt.want {
			t.Errorf("matchPattern(%q, %q) = %v, want %v", tt.pattern, tt.key, got, tt.want)
		}
	}
}
