// cache/cache_test.go
package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests move time explicitly.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestGetCoalescesConcurrentFetches(t *testing.T) {
	store := New()
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	var calls int

	factory := func(ctx context.Context) (interface{}, error) {
		calls++
		close(started)
		<-release
		return "fetched", nil
	}

	var wg sync.WaitGroup
	results := make([]interface{}, 2)
	errs := make([]error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = store.Get(ctx, "user_1_profile", factory, CategoryDefault)
	}()

	// Second caller joins only once the first flight is running.
	<-started
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], errs[1] = store.Get(ctx, "user_1_profile", factory, CategoryDefault)
	}()

	// Give the second caller a moment to attach to the flight.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, 1, calls, "factory must run exactly once")
	for i := 0; i < 2; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "fetched", results[i])
	}

	stats := store.GetStats()
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(1), stats.Deduplicated)
}

func TestGetSharesFactoryError(t *testing.T) {
	store := New()
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	boom := errors.New("upstream down")

	factory := func(ctx context.Context) (interface{}, error) {
		close(started)
		<-release
		return nil, boom
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[0] = store.Get(ctx, "k", factory, CategoryDefault)
	}()
	<-started
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[1] = store.Get(ctx, "k", factory, CategoryDefault)
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.ErrorIs(t, errs[0], boom)
	assert.ErrorIs(t, errs[1], boom)

	// The failure must not poison the key: the next Get re-attempts.
	calls := 0
	v, err := store.Get(ctx, "k", func(ctx context.Context) (interface{}, error) {
		calls++
		return 42, nil
	}, CategoryDefault)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, calls)
}

func TestSetThenGetHonorsTTL(t *testing.T) {
	clock := newFakeClock()
	store := NewWithClock(clock.Now)
	ctx := context.Background()

	store.Set("team_9_members", []string{"ana", "bo"}, CategoryTeamMembers)

	factoryCalls := 0
	factory := func(ctx context.Context) (interface{}, error) {
		factoryCalls++
		return []string{"fresh"}, nil
	}

	clock.Advance(TTLFor(CategoryTeamMembers) - time.Millisecond)
	v, err := store.Get(ctx, "team_9_members", factory, CategoryTeamMembers)
	require.NoError(t, err)
	assert.Equal(t, []string{"ana", "bo"}, v)
	assert.Equal(t, 0, factoryCalls)

	clock.Advance(2 * time.Millisecond)
	v, err = store.Get(ctx, "team_9_members", factory, CategoryTeamMembers)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, v)
	assert.Equal(t, 1, factoryCalls)
}

func TestAnalyticsTTLBoundary(t *testing.T) {
	clock := newFakeClock()
	store := NewWithClock(clock.Now)
	ctx := context.Background()

	store.Set("analytics_team_3", 7, CategoryAnalytics)

	fetches := 0
	factory := func(ctx context.Context) (interface{}, error) {
		fetches++
		return 8, nil
	}

	clock.Advance(29999 * time.Millisecond)
	v, err := store.Get(ctx, "analytics_team_3", factory, CategoryAnalytics)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, 0, fetches)

	clock.Advance(2 * time.Millisecond) // t0 + 30001ms
	v, err = store.Get(ctx, "analytics_team_3", factory, CategoryAnalytics)
	require.NoError(t, err)
	assert.Equal(t, 8, v)
	assert.Equal(t, 1, fetches)
}

func TestTTLOverrideWinsOverCategory(t *testing.T) {
	clock := newFakeClock()
	store := NewWithClock(clock.Now)

	store.Set("short_lived", "v", CategoryLongTerm, 1*time.Second)

	clock.Advance(2 * time.Second)
	_, ok := store.Peek("short_lived")
	assert.False(t, ok)
}

func TestInvalidateSubstringBoundaries(t *testing.T) {
	store := New()

	store.Set("team_5_members", 1, CategoryDefault)
	store.Set("x_team_5_y", 2, CategoryDefault)
	store.Set("team_55_members", 3, CategoryDefault)

	removed := store.Invalidate("team_5")
	assert.Equal(t, 2, removed)

	_, ok := store.Peek("team_5_members")
	assert.False(t, ok)
	_, ok = store.Peek("x_team_5_y")
	assert.False(t, ok)
	v, ok := store.Peek("team_55_members")
	assert.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestInvalidateLeavesInFlightFetches(t *testing.T) {
	store := New()
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan struct{})
	var got interface{}
	go func() {
		defer close(done)
		got, _ = store.Get(ctx, "team_2_members", func(ctx context.Context) (interface{}, error) {
			close(started)
			<-release
			return "members", nil
		}, CategoryTeamMembers)
	}()

	<-started
	store.Invalidate("team_2")
	close(release)
	<-done

	assert.Equal(t, "members", got, "pending fetch must settle normally")
}

func TestClearResetsEverything(t *testing.T) {
	store := New()
	ctx := context.Background()

	store.Set("a", 1, CategoryDefault)
	_, _ = store.Get(ctx, "a", func(ctx context.Context) (interface{}, error) { return nil, nil }, CategoryDefault)

	store.Clear()

	assert.Equal(t, 0, store.Len())
	stats := store.GetStats()
	assert.Equal(t, uint64(0), stats.Hits)
	assert.Equal(t, uint64(0), stats.Misses)
	assert.Equal(t, uint64(0), stats.Deduplicated)
	assert.Equal(t, float64(0), stats.HitRate)
}

func TestStatsHitRate(t *testing.T) {
	store := New()
	ctx := context.Background()

	assert.Equal(t, float64(0), store.GetStats().HitRate, "no requests yet")

	factory := func(ctx context.Context) (interface{}, error) { return "v", nil }
	_, _ = store.Get(ctx, "k", factory, CategoryDefault) // miss
	_, _ = store.Get(ctx, "k", factory, CategoryDefault) // hit
	_, _ = store.Get(ctx, "k", factory, CategoryDefault) // hit

	stats := store.GetStats()
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.InDelta(t, 66.66, stats.HitRate, 0.01)
}

func TestPeekIgnoresExpired(t *testing.T) {
	clock := newFakeClock()
	store := NewWithClock(clock.Now)

	store.Set("k", "v", CategoryBatchData)
	v, ok := store.Peek("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	clock.Advance(TTLFor(CategoryBatchData) + time.Millisecond)
	_, ok = store.Peek("k")
	assert.False(t, ok)
}

func TestUnknownCategoryFallsBackToDefault(t *testing.T) {
	assert.Equal(t, TTLFor(CategoryDefault), TTLFor(Category("mystery")))
}
