package recurrence

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestCache_BasicOperations(t *testing.T) {
	cache := NewCache(CacheConfig{
		TTL:             5 * time.Minute,
		MaxEntries:      100,
		CleanupInterval: 1 * time.Minute,
	})
	defer cache.Close()

	rule := Daily(1)
	ref := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	// Cache miss first
	result, found := cache.Get(opNext, rule, ref, 1)
	if found {
		t.Error("Expected cache miss, got hit")
	}
	if result != nil {
		t.Error("Expected nil result on cache miss")
	}

	want := nextResult{T: ref.AddDate(0, 0, 1), OK: true}
	cache.Set(opNext, rule, ref, 1, want)

	// Cache hit
	result, found = cache.Get(opNext, rule, ref, 1)
	if !found {
		t.Error("Expected cache hit, got miss")
	}
	if result != want {
		t.Errorf("Expected %v, got %v", want, result)
	}
}

func TestCache_TTLExpiration(t *testing.T) {
	cache := NewCache(CacheConfig{
		TTL:             100 * time.Millisecond, // Very short TTL for testing
		MaxEntries:      100,
		CleanupInterval: 50 * time.Millisecond,
	})
	defer cache.Close()

	rule := Daily(1)
	ref := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	cache.Set(opNext, rule, ref, 1, nextResult{OK: true})

	if _, found := cache.Get(opNext, rule, ref, 1); !found {
		t.Error("Expected cache hit immediately after set")
	}

	time.Sleep(150 * time.Millisecond)

	if _, found := cache.Get(opNext, rule, ref, 1); found {
		t.Error("Expected cache miss after TTL expiration")
	}
}

func TestCache_KeyDiscrimination(t *testing.T) {
	cache := NewCache(DefaultCacheConfig)
	defer cache.Close()

	ref := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	daily := Daily(1)
	weekly := Weekly(1, 2)

	cache.Set(opOccurrences, daily, ref, 5, []time.Time{ref})
	cache.Set(opOccurrences, weekly, ref, 5, []time.Time{})
	cache.Set(opOccurrences, daily, ref, 10, []time.Time{ref, ref})

	r1, found1 := cache.Get(opOccurrences, daily, ref, 5)
	r2, found2 := cache.Get(opOccurrences, weekly, ref, 5)
	r3, found3 := cache.Get(opOccurrences, daily, ref, 10)

	if !found1 || !found2 || !found3 {
		t.Fatal("Expected all three entries to be cached separately")
	}
	if len(r1.([]time.Time)) != 1 || len(r2.([]time.Time)) != 0 || len(r3.([]time.Time)) != 2 {
		t.Error("Cache keys collided across rules or limits")
	}

	// Different operations must not collide either.
	if _, found := cache.Get(opNext, daily, ref, 5); found {
		t.Error("Operation tag not part of the key")
	}
}

func TestCache_EvictsOverLimit(t *testing.T) {
	cache := NewCache(CacheConfig{
		TTL:             time.Hour,
		MaxEntries:      10,
		CleanupInterval: time.Hour,
	})
	defer cache.Close()

	ref := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		cache.Set(opOccurrences, Daily(1), ref, i+1, []time.Time{})
	}

	stats := cache.Stats()
	if stats.TotalEntries > 11 { // one overshoot allowed before cleanup kicks in
		t.Errorf("Expected eviction to keep entries near the limit, got %d", stats.TotalEntries)
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	cache := NewCache(DefaultCacheConfig)
	defer cache.Close()

	ref := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			rule := Daily(n + 1)
			for j := 0; j < 100; j++ {
				cache.Set(opNext, rule, ref, 1, nextResult{OK: true})
				cache.Get(opNext, rule, ref, 1)
			}
		}(i)
	}
	wg.Wait()

	stats := cache.Stats()
	if stats.TotalEntries != 10 {
		t.Errorf("Expected 10 distinct entries, got %d", stats.TotalEntries)
	}
}

func TestCache_Stats(t *testing.T) {
	cache := NewCache(DefaultCacheConfig)
	defer cache.Close()

	stats := cache.Stats()
	if stats.TotalEntries != 0 || stats.ActiveEntries != 0 {
		t.Errorf("Expected empty cache, got %+v", stats)
	}

	ref := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		cache.Set(opOccurrences, Daily(i+1), ref, 5, []time.Time{})
	}

	stats = cache.Stats()
	if stats.TotalEntries != 3 {
		t.Errorf("Expected 3 entries, got %d", stats.TotalEntries)
	}
	if stats.ActiveEntries != 3 {
		t.Errorf("Expected 3 active entries, got %d", stats.ActiveEntries)
	}
}

func TestCache_CloseClears(t *testing.T) {
	cache := NewCache(DefaultCacheConfig)

	ref := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	cache.Set(opNext, Daily(1), ref, 1, nextResult{OK: true})
	cache.Close()

	if stats := cache.Stats(); stats.TotalEntries != 0 {
		t.Errorf("Expected cache cleared on close, got %d entries", stats.TotalEntries)
	}
}

func TestCache_KeyStability(t *testing.T) {
	cache := NewCache(DefaultCacheConfig)
	defer cache.Close()

	ref := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	end := ref.AddDate(0, 1, 0)

	rule := Weekly(2, 2, 4)
	rule.EndDate = &end
	rule.PreferredTime = &ClockTime{Hour: 8}
	rule.TimeZone = "Asia/Shanghai"

	key1 := cache.generateKey(opOccurrences, rule, ref, 5)
	key2 := cache.generateKey(opOccurrences, rule, ref, 5)
	if key1 != key2 {
		t.Error("Key generation not deterministic")
	}

	other := rule
	other.Interval = 3
	if key1 == cache.generateKey(opOccurrences, other, ref, 5) {
		t.Error(fmt.Sprintf("Distinct rules share key %s", key1))
	}
}
