package cache

import (
	"testing"
	"time"
)

func TestCacheGetSet(t *testing.T) {
	c := New[string](time.Minute)
	c.Set("k", "v")

	got, ok := c.Get("k")
	if !ok || got != "v" {
		t.Fatalf("Get() = %q, %v", got, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("missing key should not be found")
	}
}

func TestCacheExpiry(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := New[int](time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", 42)
	now = now.Add(2 * time.Minute)

	if _, ok := c.Get("k"); ok {
		t.Error("expired entry should not be returned")
	}
	if n := len(c.items); n != 0 {
		t.Errorf("expired entry should be evicted, %d left", n)
	}
}
