// cache/cache.go
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Category selects the expiry policy for a cached value.
type Category string

const (
	CategoryDefault     Category = "default"
	CategoryTeamMembers Category = "teamMembers"
	CategoryPermissions Category = "permissions"
	CategoryAnalytics   Category = "analytics"
	CategoryLongTerm    Category = "longTerm"
	CategoryBatchData   Category = "batchData"
)

// categoryTTLs is the expiry policy table. The values are a wire-level
// compatibility contract and must not drift.
var categoryTTLs = map[Category]time.Duration{
	CategoryDefault:     300000 * time.Millisecond,
	CategoryTeamMembers: 120000 * time.Millisecond,
	CategoryPermissions: 600000 * time.Millisecond,
	CategoryAnalytics:   30000 * time.Millisecond,
	CategoryLongTerm:    1800000 * time.Millisecond,
	CategoryBatchData:   30000 * time.Millisecond,
}

// TTLFor returns the expiry duration for a category, falling back to
// the default policy for unknown categories.
func TTLFor(category Category) time.Duration {
	if ttl, ok := categoryTTLs[category]; ok {
		return ttl
	}
	return categoryTTLs[CategoryDefault]
}

// Factory produces a value on a cache miss. A factory for a given key
// runs at most once per population cycle; concurrent callers share its
// settled result. The context of the caller that started the flight
// governs the fetch.
type Factory func(ctx context.Context) (interface{}, error)

// Stats is a snapshot of the store's monotonic counters.
type Stats struct {
	Hits         uint64  `json:"hits"`
	Misses       uint64  `json:"misses"`
	Deduplicated uint64  `json:"deduplicated"`
	HitRate      float64 `json:"hit_rate"`
}

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// Store is an in-memory TTL cache with single-flight coalescing of
// concurrent fetches for the same key. Expiry is evaluated lazily on
// read; expired entries are superseded on the next population, never
// swept. Construct one instance at startup and pass it by dependency
// injection so tests can run against isolated stores.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	gen     uint64

	group singleflight.Group
	now   func() time.Time

	statsMu      sync.Mutex
	hits         uint64
	misses       uint64
	deduplicated uint64
}

// New creates an empty store using the wall clock.
func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock creates a store with an injectable clock for tests.
func NewWithClock(now func() time.Time) *Store {
	return &Store{
		entries: make(map[string]entry),
		now:     now,
	}
}

// Peek returns the live cached value for key without triggering a
// fetch. Expired or absent entries report false.
func (s *Store) Peek(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok || !s.now().Before(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

// Get returns the cached value for key, coalescing concurrent misses
// into a single factory execution. A live entry is returned
// immediately; a fetch already in flight is joined; otherwise the
// factory runs, its result is cached on success, and a failure is
// propagated without poisoning the key.
func (s *Store) Get(ctx context.Context, key string, factory Factory, category Category, ttlOverride ...time.Duration) (interface{}, error) {
	if v, ok := s.Peek(key); ok {
		s.recordHit()
		return v, nil
	}

	invoked := false
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		invoked = true
		s.recordMiss()
		s.mu.RLock()
		gen := s.gen
		s.mu.RUnlock()

		value, err := factory(ctx)
		if err != nil {
			return nil, err
		}
		s.storeIfGen(key, value, category, gen, ttlOverride...)
		return value, nil
	})
	if !invoked {
		s.recordDedup()
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Set unconditionally writes a value, for results obtained outside the
// Get pathway (e.g. pushed from a real-time listener).
func (s *Store) Set(key string, value interface{}, category Category, ttlOverride ...time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{value: value, expiresAt: s.now().Add(resolveTTL(category, ttlOverride))}
}

// Invalidate removes every entry whose key contains pattern as a
// delimited substring and returns how many were dropped. The pattern
// must sit on token boundaries, so "team_5" sweeps "team_5_members" and
// "x_team_5_y" but never "team_55_members". Callers still need
// sufficiently specific patterns to avoid over-invalidation. Fetches
// already in flight are unaffected; their results may still land in the
// cache.
func (s *Store) Invalidate(pattern string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key := range s.entries {
		if keyMatches(key, pattern) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// keyMatches reports whether pattern occurs in key with non-word
// characters (or the key edges) on both sides of the occurrence.
func keyMatches(key, pattern string) bool {
	if pattern == "" {
		return false
	}
	for from := 0; ; {
		i := strings.Index(key[from:], pattern)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(pattern)
		if (start == 0 || !isWordByte(key[start-1])) && (end == len(key) || !isWordByte(key[end])) {
			return true
		}
		from = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

// Clear drops all entries, detaches pending fetches from the store, and
// resets the counters.
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = make(map[string]entry)
	s.gen++
	s.mu.Unlock()

	s.statsMu.Lock()
	s.hits, s.misses, s.deduplicated = 0, 0, 0
	s.statsMu.Unlock()
}

// Len reports the number of entries currently held, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// GetStats returns a snapshot of the counters.
func (s *Store) GetStats() Stats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	stats := Stats{Hits: s.hits, Misses: s.misses, Deduplicated: s.deduplicated}
	if total := s.hits + s.misses; total > 0 {
		stats.HitRate = float64(s.hits) / float64(total) * 100
	}
	return stats
}

// storeIfGen writes the fetched value unless Clear ran while the fetch
// was in flight.
func (s *Store) storeIfGen(key string, value interface{}, category Category, gen uint64, ttlOverride ...time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}
	s.entries[key] = entry{value: value, expiresAt: s.now().Add(resolveTTL(category, ttlOverride))}
}

func resolveTTL(category Category, override []time.Duration) time.Duration {
	if len(override) > 0 && override[0] > 0 {
		return override[0]
	}
	return TTLFor(category)
}

func (s *Store) recordHit() {
	s.statsMu.Lock()
	s.hits++
	s.statsMu.Unlock()
}

func (s *Store) recordMiss() {
	s.statsMu.Lock()
	s.misses++
	s.statsMu.Unlock()
}

func (s *Store) recordDedup() {
	s.statsMu.Lock()
	s.deduplicated++
	s.statsMu.Unlock()
}
